package client

import (
	"context"
	"log/slog"
)

// DevMockRewardClient is a simple mock implementation for local development.
// Unlike MockRewardClient (testify/mock), this doesn't require explicit setup
// and always succeeds with logged output.
//
// Use this for local development and the seeder CLI.
// For tests, use MockRewardClient instead.
type DevMockRewardClient struct {
	logger *slog.Logger
}

// GrantBadge logs the grant and returns success.
func (d *DevMockRewardClient) GrantBadge(ctx context.Context, userID, badgeID string) error {
	d.logger.InfoContext(ctx, "[DevMock] GrantBadge", "user_id", userID, "badge_id", badgeID)
	return nil
}

// GrantDiscount logs the grant and returns success.
func (d *DevMockRewardClient) GrantDiscount(ctx context.Context, userID, discountID string) error {
	d.logger.InfoContext(ctx, "[DevMock] GrantDiscount", "user_id", userID, "discount_id", discountID)
	return nil
}

// NewDevMockRewardClient creates a new development mock reward client.
func NewDevMockRewardClient(logger *slog.Logger) *DevMockRewardClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevMockRewardClient{logger: logger}
}
