package repositories

import (
	"context"

	"PinguinGuard/models"
)

type ChildRepository interface {
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Child, error)
	FindByParent(ctx context.Context, parentFirebaseUID string) ([]models.Child, error)
}
