package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"go.uber.org/zap"
)

const (
	DefaultUsageHistoryDays = 7
	MaxUsageHistoryDays     = 90
)

// UsageService keeps the per-day usage totals reported by child devices.
// Days are calendar days in Location.
type UsageService struct {
	UsageRepo repositories.UsageRepository
	Access    *Authorizer
	Location  *time.Location
	Logger    *zap.Logger

	Now func() time.Time

	locks *keyedMutex
}

func NewUsageService(usageRepo repositories.UsageRepository, access *Authorizer, loc *time.Location, logger *zap.Logger) *UsageService {
	return &UsageService{
		UsageRepo: usageRepo,
		Access:    access,
		Location:  loc,
		Logger:    logger,
		Now:       time.Now,
		locks:     newKeyedMutex(),
	}
}

// Today returns today's record of childID; a day without reports yields an
// empty record.
func (s *UsageService) Today(ctx context.Context, session models.Session, childID string) (models.UsageRecord, error) {
	family, err := s.Access.Child(ctx, session, childID)
	if err != nil {
		return models.UsageRecord{}, err
	}
	return s.today(ctx, family.ChildID)
}

// History returns up to days records ending today, newest first. days is
// clamped to [1, MaxUsageHistoryDays]; zero means DefaultUsageHistoryDays.
func (s *UsageService) History(ctx context.Context, session models.Session, childID string, days int) ([]models.UsageRecord, error) {
	family, err := s.Access.Child(ctx, session, childID)
	if err != nil {
		return nil, err
	}
	days = clampDays(days)
	since := models.DateOf(s.localNow().AddDate(0, 0, -(days - 1)))
	records, err := s.UsageRepo.ListByChild(ctx, family.ChildID, since)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.UsageRecord{}
	}
	return records, nil
}

// Report records the cumulative totals of the calling child's device for
// today. Totals never decrease within a day, so a stale report is absorbed.
func (s *UsageService) Report(ctx context.Context, session models.Session, totalMinutes, sessionCount int) (models.UsageRecord, error) {
	if !session.IsChild() {
		return models.UsageRecord{}, fmt.Errorf("only a child device can report usage: %w", apperrors.ErrForbidden)
	}
	if totalMinutes < 0 || sessionCount < 0 {
		return models.UsageRecord{}, fmt.Errorf("usage totals must not be negative: %w", apperrors.ErrInvalidArgument)
	}

	unlock := s.locks.Lock(session.UserID)
	defer unlock()

	record, err := s.today(ctx, session.UserID)
	if err != nil {
		return models.UsageRecord{}, err
	}
	if totalMinutes <= record.TotalMinutesUsed && sessionCount <= record.SessionCount {
		return record, nil
	}
	record.TotalMinutesUsed = max(record.TotalMinutesUsed, totalMinutes)
	record.SessionCount = max(record.SessionCount, sessionCount)
	record.UpdatedAt = s.Now()

	saved, err := s.UsageRepo.Save(ctx, record)
	if err != nil {
		return models.UsageRecord{}, err
	}
	s.Logger.Debug("usage reported",
		zap.String("child_id", saved.ChildID),
		zap.String("date", saved.Date),
		zap.Int("total_minutes", saved.TotalMinutesUsed))
	return saved, nil
}

func (s *UsageService) today(ctx context.Context, childID string) (models.UsageRecord, error) {
	now := s.localNow()
	record, err := s.UsageRepo.FindByChildAndDate(ctx, childID, models.DateOf(now))
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.NewUsageRecord(childID, now), nil
	}
	return record, err
}

func (s *UsageService) localNow() time.Time {
	if s.Location == nil {
		return s.Now()
	}
	return s.Now().In(s.Location)
}

func clampDays(days int) int {
	switch {
	case days == 0:
		return DefaultUsageHistoryDays
	case days < 1:
		return 1
	case days > MaxUsageHistoryDays:
		return MaxUsageHistoryDays
	}
	return days
}
