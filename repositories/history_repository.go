package repositories

import (
	"context"

	"PinguinGuard/models"
)

type HistoryFilter struct {
	ChildID  string
	ParentID string
	Limit    int
}

// HistoryRepository is append-only.
type HistoryRepository interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter) ([]models.HistoryEntry, error)
}
