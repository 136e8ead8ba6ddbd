package mocks

import (
	"context"
	"time"

	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"github.com/stretchr/testify/mock"
)

type UnblockRequestRepository struct {
	mock.Mock
}

func (m *UnblockRequestRepository) Create(ctx context.Context, req models.UnblockRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *UnblockRequestRepository) FindByID(ctx context.Context, id string) (models.UnblockRequest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.UnblockRequest), args.Error(1)
}

func (m *UnblockRequestRepository) FindPendingByChild(ctx context.Context, childID string) (models.UnblockRequest, error) {
	args := m.Called(ctx, childID)
	return args.Get(0).(models.UnblockRequest), args.Error(1)
}

func (m *UnblockRequestRepository) ResolvePending(ctx context.Context, id string, status models.RequestStatus, parentResponse *string, respondedAt time.Time) (models.UnblockRequest, error) {
	args := m.Called(ctx, id, status, parentResponse, respondedAt)
	return args.Get(0).(models.UnblockRequest), args.Error(1)
}

func (m *UnblockRequestRepository) List(ctx context.Context, filter repositories.RequestFilter) ([]models.UnblockRequest, error) {
	args := m.Called(ctx, filter)
	requests, _ := args.Get(0).([]models.UnblockRequest)
	return requests, args.Error(1)
}
