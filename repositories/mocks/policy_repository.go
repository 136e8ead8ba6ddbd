package mocks

import (
	"context"

	"PinguinGuard/models"

	"github.com/stretchr/testify/mock"
)

type PolicyRepository struct {
	mock.Mock
}

func (m *PolicyRepository) FindByChildID(ctx context.Context, childID string) (models.ChildPolicy, error) {
	args := m.Called(ctx, childID)
	return args.Get(0).(models.ChildPolicy), args.Error(1)
}

func (m *PolicyRepository) Save(ctx context.Context, policy models.ChildPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}
