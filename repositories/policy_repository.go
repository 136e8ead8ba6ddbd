package repositories

import (
	"context"

	"PinguinGuard/models"
)

// PolicyRepository stores one ChildPolicy per child. FindByChildID returns
// apperrors.ErrNotFound for a child that was never configured.
type PolicyRepository interface {
	FindByChildID(ctx context.Context, childID string) (models.ChildPolicy, error)
	Save(ctx context.Context, policy models.ChildPolicy) error
}
