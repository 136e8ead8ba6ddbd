package impl

import (
	"context"
	"fmt"

	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"gorm.io/gorm"
)

type HistoryRepositoryImpl struct {
	DB *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) repositories.HistoryRepository {
	return &HistoryRepositoryImpl{DB: db}
}

func (r *HistoryRepositoryImpl) Append(ctx context.Context, entry models.HistoryEntry) error {
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("append history %s: %w", entry.Action, err)
	}
	return nil
}

func (r *HistoryRepositoryImpl) List(ctx context.Context, filter repositories.HistoryFilter) ([]models.HistoryEntry, error) {
	q := r.DB.WithContext(ctx).Model(&models.HistoryEntry{})
	if filter.ChildID != "" {
		q = q.Where("child_id = ?", filter.ChildID)
	}
	if filter.ParentID != "" {
		q = q.Where("parent_id = ?", filter.ParentID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var entries []models.HistoryEntry
	err := q.Order("created_at DESC").Find(&entries).Error
	return entries, err
}
