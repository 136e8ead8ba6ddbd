package services

import (
	"context"

	"PinguinGuard/models"
	"PinguinGuard/repositories"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

type HistoryService struct {
	HistoryRepo repositories.HistoryRepository
}

func NewHistoryService(historyRepo repositories.HistoryRepository) *HistoryService {
	return &HistoryService{HistoryRepo: historyRepo}
}

// List returns the newest entries visible to session: a parent sees the whole
// family, a child only itself.
func (s *HistoryService) List(ctx context.Context, session models.Session, limit int) ([]models.HistoryEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	filter := repositories.HistoryFilter{Limit: limit}
	if session.IsParent() {
		filter.ParentID = session.UserID
	} else {
		filter.ChildID = session.UserID
	}
	entries, err := s.HistoryRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return entries, nil
}
