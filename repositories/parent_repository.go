package repositories

import (
	"context"

	"PinguinGuard/models"
)

type ParentRepository interface {
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Parent, error)
}
