package mocks

import (
	"context"

	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"github.com/stretchr/testify/mock"
)

type HistoryRepository struct {
	mock.Mock
}

func (m *HistoryRepository) Append(ctx context.Context, entry models.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *HistoryRepository) List(ctx context.Context, filter repositories.HistoryFilter) ([]models.HistoryEntry, error) {
	args := m.Called(ctx, filter)
	entries, _ := args.Get(0).([]models.HistoryEntry)
	return entries, args.Error(1)
}
