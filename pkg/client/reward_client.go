package client

import (
	"context"
	"errors"
	"strings"
)

// RewardServiceError represents an error response from the reward service.
// It includes the HTTP status code for error classification.
type RewardServiceError struct {
	StatusCode int
	Message    string
}

func (e *RewardServiceError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the HTTP status code from the reward service response.
func (e *RewardServiceError) HTTPStatusCode() int {
	return e.StatusCode
}

// NotFoundError indicates the badge or discount does not exist (404).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return "resource not found: " + e.Resource
}

func (e *NotFoundError) HTTPStatusCode() int {
	return 404
}

// HTTPStatusCodeError is an interface for errors that include HTTP status codes.
type HTTPStatusCodeError interface {
	error
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus determines if an HTTP status code should be retried.
//
// Non-retryable: 400, 401, 403, 404, 409, 422 and any other 4xx.
// Retryable: 408, 429, 5xx.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 400, 401, 403, 404, 409, 422:
		return false
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		if statusCode >= 400 && statusCode < 500 {
			return false
		}
		return true
	}
}

// IsRetryableError determines if a grant failure may succeed when the user action is retried.
//
// The engine never retries on its own; it only reports the classification.
// Errors carrying an HTTP status use it. Other errors fall back to message
// patterns, and anything unrecognized (timeouts, refused connections) is retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var httpErr HTTPStatusCodeError
	if errors.As(err, &httpErr) {
		return IsRetryableHTTPStatus(httpErr.HTTPStatusCode())
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	nonRetryablePatterns := []string{
		"bad request",
		"not found",
		"forbidden",
		"unauthorized",
		"permission denied",
		"invalid badge",
		"invalid discount",
		"already granted",
	}
	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return false
		}
	}

	return true
}

// RewardClient forwards non-experience mission rewards to the service that owns them.
// Experience is applied by the level service and never passes through this client.
type RewardClient interface {
	// GrantBadge grants a collectible badge to a user.
	GrantBadge(ctx context.Context, userID, badgeID string) error

	// GrantDiscount issues a discount coupon to a user.
	GrantDiscount(ctx context.Context, userID, discountID string) error
}
