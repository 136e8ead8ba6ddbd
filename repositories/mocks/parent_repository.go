package mocks

import (
	"context"

	"PinguinGuard/models"

	"github.com/stretchr/testify/mock"
)

type ParentRepository struct {
	mock.Mock
}

func (m *ParentRepository) FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Parent, error) {
	args := m.Called(ctx, firebaseUID)
	return args.Get(0).(models.Parent), args.Error(1)
}
