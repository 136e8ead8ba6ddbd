package impl

import (
	"context"
	"fmt"

	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepositoryImpl struct {
	DB *gorm.DB
}

func NewUsageRepository(db *gorm.DB) repositories.UsageRepository {
	return &UsageRepositoryImpl{DB: db}
}

func (r *UsageRepositoryImpl) FindByChildAndDate(ctx context.Context, childID, date string) (models.UsageRecord, error) {
	var record models.UsageRecord
	err := r.DB.WithContext(ctx).
		Where("child_id = ? AND date = ?", childID, date).
		First(&record).Error
	if err != nil {
		return models.UsageRecord{}, notFound(err, "usage of child %s on %s", childID, date)
	}
	return record, nil
}

func (r *UsageRepositoryImpl) ListByChild(ctx context.Context, childID, since string) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	err := r.DB.WithContext(ctx).
		Where("child_id = ? AND date >= ?", childID, since).
		Order("date DESC").
		Find(&records).Error
	return records, err
}

// Save upserts on (child_id, date). Totals only move forward: a late report
// carrying a smaller total than the stored one does not lower it.
func (r *UsageRepositoryImpl) Save(ctx context.Context, record models.UsageRecord) (models.UsageRecord, error) {
	record.ID = 0
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "child_id"}, {Name: "date"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "total_minutes_used"}, Value: gorm.Expr("GREATEST(usage_records.total_minutes_used, EXCLUDED.total_minutes_used)")},
				{Column: clause.Column{Name: "session_count"}, Value: gorm.Expr("GREATEST(usage_records.session_count, EXCLUDED.session_count)")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("EXCLUDED.updated_at")},
			},
		}).
		Create(&record).Error
	if err != nil {
		return models.UsageRecord{}, fmt.Errorf("save usage of child %s on %s: %w", record.ChildID, record.Date, err)
	}
	return r.FindByChildAndDate(ctx, record.ChildID, record.Date)
}
