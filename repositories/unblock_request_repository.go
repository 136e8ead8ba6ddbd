package repositories

import (
	"context"
	"time"

	"PinguinGuard/models"
)

// RequestFilter narrows a request listing. Empty fields match everything.
type RequestFilter struct {
	ChildID  string
	ParentID string
	Status   models.RequestStatus
}

type UnblockRequestRepository interface {
	Create(ctx context.Context, req models.UnblockRequest) error
	FindByID(ctx context.Context, id string) (models.UnblockRequest, error)
	FindPendingByChild(ctx context.Context, childID string) (models.UnblockRequest, error)
	// ResolvePending moves a pending request to a terminal status. It fails
	// with *apperrors.InvalidStateError when the request is no longer pending.
	ResolvePending(ctx context.Context, id string, status models.RequestStatus, parentResponse *string, respondedAt time.Time) (models.UnblockRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]models.UnblockRequest, error)
}
