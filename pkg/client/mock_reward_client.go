package client

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRewardClient is a mock implementation of RewardClient for testing.
// It uses testify/mock to allow test assertions on method calls.
type MockRewardClient struct {
	mock.Mock
}

// GrantBadge mocks granting a badge.
func (m *MockRewardClient) GrantBadge(ctx context.Context, userID, badgeID string) error {
	args := m.Called(ctx, userID, badgeID)
	return args.Error(0)
}

// GrantDiscount mocks issuing a discount.
func (m *MockRewardClient) GrantDiscount(ctx context.Context, userID, discountID string) error {
	args := m.Called(ctx, userID, discountID)
	return args.Error(0)
}

// NewMockRewardClient creates a new mock reward client.
func NewMockRewardClient() *MockRewardClient {
	return &MockRewardClient{}
}
