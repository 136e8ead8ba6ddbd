package mocks

import (
	"context"

	"PinguinGuard/models"

	"github.com/stretchr/testify/mock"
)

type ChildRepository struct {
	mock.Mock
}

func (m *ChildRepository) FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Child, error) {
	args := m.Called(ctx, firebaseUID)
	return args.Get(0).(models.Child), args.Error(1)
}

func (m *ChildRepository) FindByParent(ctx context.Context, parentFirebaseUID string) ([]models.Child, error) {
	args := m.Called(ctx, parentFirebaseUID)
	children, _ := args.Get(0).([]models.Child)
	return children, args.Error(1)
}
