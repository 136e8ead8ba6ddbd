package repositories

import (
	"context"

	"PinguinGuard/models"
)

type UsageRepository interface {
	FindByChildAndDate(ctx context.Context, childID, date string) (models.UsageRecord, error)
	// ListByChild returns the records dated on or after since, newest first.
	ListByChild(ctx context.Context, childID, since string) ([]models.UsageRecord, error)
	Save(ctx context.Context, record models.UsageRecord) (models.UsageRecord, error)
}
