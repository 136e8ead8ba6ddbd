package mocks

import (
	"context"

	"PinguinGuard/models"

	"github.com/stretchr/testify/mock"
)

type UsageRepository struct {
	mock.Mock
}

func (m *UsageRepository) FindByChildAndDate(ctx context.Context, childID, date string) (models.UsageRecord, error) {
	args := m.Called(ctx, childID, date)
	return args.Get(0).(models.UsageRecord), args.Error(1)
}

func (m *UsageRepository) ListByChild(ctx context.Context, childID, since string) ([]models.UsageRecord, error) {
	args := m.Called(ctx, childID, since)
	records, _ := args.Get(0).([]models.UsageRecord)
	return records, args.Error(1)
}

func (m *UsageRepository) Save(ctx context.Context, record models.UsageRecord) (models.UsageRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(models.UsageRecord), args.Error(1)
}
