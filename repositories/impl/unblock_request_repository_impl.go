package impl

import (
	"context"
	"fmt"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"gorm.io/gorm"
)

type UnblockRequestRepositoryImpl struct {
	DB *gorm.DB
}

func NewUnblockRequestRepository(db *gorm.DB) repositories.UnblockRequestRepository {
	return &UnblockRequestRepositoryImpl{DB: db}
}

func (r *UnblockRequestRepositoryImpl) Create(ctx context.Context, req models.UnblockRequest) error {
	if err := r.DB.WithContext(ctx).Create(&req).Error; err != nil {
		return fmt.Errorf("create unblock request: %w", err)
	}
	return nil
}

func (r *UnblockRequestRepositoryImpl) FindByID(ctx context.Context, id string) (models.UnblockRequest, error) {
	var req models.UnblockRequest
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return models.UnblockRequest{}, notFound(err, "unblock request %s", id)
	}
	return req, nil
}

func (r *UnblockRequestRepositoryImpl) FindPendingByChild(ctx context.Context, childID string) (models.UnblockRequest, error) {
	var req models.UnblockRequest
	err := r.DB.WithContext(ctx).
		Where("child_id = ? AND status = ?", childID, models.RequestPending).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		return models.UnblockRequest{}, notFound(err, "pending request of child %s", childID)
	}
	return req, nil
}

func (r *UnblockRequestRepositoryImpl) ResolvePending(ctx context.Context, id string, status models.RequestStatus, parentResponse *string, respondedAt time.Time) (models.UnblockRequest, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.UnblockRequest{}).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(map[string]any{
			"status":          status,
			"parent_response": parentResponse,
			"responded_at":    respondedAt,
		})
	if res.Error != nil {
		return models.UnblockRequest{}, fmt.Errorf("resolve unblock request %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return models.UnblockRequest{}, err
		}
		return current, &apperrors.InvalidStateError{Op: "respond to", RequestID: id, Status: string(current.Status)}
	}
	return r.FindByID(ctx, id)
}

func (r *UnblockRequestRepositoryImpl) List(ctx context.Context, filter repositories.RequestFilter) ([]models.UnblockRequest, error) {
	q := r.DB.WithContext(ctx).Model(&models.UnblockRequest{})
	if filter.ChildID != "" {
		q = q.Where("child_id = ?", filter.ChildID)
	}
	if filter.ParentID != "" {
		q = q.Where("parent_id = ?", filter.ParentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var requests []models.UnblockRequest
	err := q.Order("created_at DESC").Find(&requests).Error
	return requests, err
}
