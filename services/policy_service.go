package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/interfaces"
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"PinguinGuard/restriction"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PolicyService struct {
	PolicyRepo  repositories.PolicyRepository
	HistoryRepo repositories.HistoryRepository
	Access      *Authorizer
	Events      interfaces.EventPublisher
	Logger      *zap.Logger

	Now   func() time.Time
	NewID func() string

	locks *keyedMutex
}

func NewPolicyService(
	policyRepo repositories.PolicyRepository,
	historyRepo repositories.HistoryRepository,
	access *Authorizer,
	events interfaces.EventPublisher,
	logger *zap.Logger,
) *PolicyService {
	return &PolicyService{
		PolicyRepo:  policyRepo,
		HistoryRepo: historyRepo,
		Access:      access,
		Events:      events,
		Logger:      logger,
		Now:         time.Now,
		NewID:       uuid.NewString,
		locks:       newKeyedMutex(),
	}
}

// Get returns the policy of childID, or the default policy when the parent
// never configured one.
func (s *PolicyService) Get(ctx context.Context, session models.Session, childID string) (models.ChildPolicy, error) {
	family, err := s.Access.Child(ctx, session, childID)
	if err != nil {
		return models.ChildPolicy{}, err
	}
	return s.load(ctx, family.ChildID)
}

func (s *PolicyService) SetBlock(ctx context.Context, session models.Session, childID string, isBlocked bool, reason *string) (models.ChildPolicy, error) {
	return s.update(ctx, session, childID, models.ActionBlockUpdated, func(p *models.ChildPolicy) map[string]any {
		p.IsBlocked = isBlocked
		p.BlockReason = nil
		if isBlocked && reason != nil {
			if r := strings.TrimSpace(*reason); r != "" {
				p.BlockReason = &r
			}
		}
		return map[string]any{"isBlocked": p.IsBlocked, "blockReason": p.BlockReason}
	})
}

// SetTimeSlots replaces the allowed windows. Slots are validated as a whole
// before anything is written.
func (s *PolicyService) SetTimeSlots(ctx context.Context, session models.Session, childID string, slots []string) (models.ChildPolicy, error) {
	windows, err := restriction.ParseSlots(slots)
	if err != nil {
		return models.ChildPolicy{}, err
	}
	return s.update(ctx, session, childID, models.ActionTimeSlotsUpdated, func(p *models.ChildPolicy) map[string]any {
		p.AllowedTimeSlots = windows
		return map[string]any{"allowedTimeSlots": windows.Strings()}
	})
}

// SetScreenTimeLimit sets the daily quota in minutes. A nil limit removes it.
func (s *PolicyService) SetScreenTimeLimit(ctx context.Context, session models.Session, childID string, limit *int) (models.ChildPolicy, error) {
	if limit != nil && *limit < 0 {
		return models.ChildPolicy{}, fmt.Errorf("daily screen time limit %d is negative: %w", *limit, apperrors.ErrInvalidArgument)
	}
	return s.update(ctx, session, childID, models.ActionScreenTimeLimitUpdated, func(p *models.ChildPolicy) map[string]any {
		p.DailyScreenTimeLimitMinutes = nil
		if limit != nil {
			v := *limit
			p.DailyScreenTimeLimitMinutes = &v
		}
		return map[string]any{"dailyScreenTimeLimit": p.DailyScreenTimeLimitMinutes}
	})
}

// ClearBlock lifts the manual block of childID as part of an approved unblock
// request. The approval is the audited event, so no history is appended here.
func (s *PolicyService) ClearBlock(ctx context.Context, childID string) error {
	unlock := s.locks.Lock(childID)
	defer unlock()

	policy, err := s.load(ctx, childID)
	if err != nil {
		return err
	}
	if !policy.IsBlocked {
		return nil
	}
	policy.IsBlocked = false
	policy.BlockReason = nil
	policy.UpdatedAt = s.Now()
	if err := s.PolicyRepo.Save(ctx, policy); err != nil {
		return err
	}
	s.publish(policy, "")
	return nil
}

func (s *PolicyService) update(ctx context.Context, session models.Session, childID, action string, mutate func(*models.ChildPolicy) map[string]any) (models.ChildPolicy, error) {
	if err := s.Access.Parent(session, "change a child policy"); err != nil {
		return models.ChildPolicy{}, err
	}
	family, err := s.Access.Child(ctx, session, childID)
	if err != nil {
		return models.ChildPolicy{}, err
	}

	unlock := s.locks.Lock(family.ChildID)
	defer unlock()

	policy, err := s.load(ctx, family.ChildID)
	if err != nil {
		return models.ChildPolicy{}, err
	}
	metadata := mutate(&policy)
	now := s.Now()
	policy.UpdatedAt = now
	if err := s.PolicyRepo.Save(ctx, policy); err != nil {
		return models.ChildPolicy{}, err
	}

	entry := models.HistoryEntry{
		ID:          s.NewID(),
		ChildID:     family.ChildID,
		ParentID:    family.ParentID,
		Action:      action,
		Metadata:    metadata,
		PerformedBy: session.UserID,
		CreatedAt:   now,
	}
	if err := s.HistoryRepo.Append(ctx, entry); err != nil {
		return policy, err
	}

	s.Logger.Info("policy updated",
		zap.String("child_id", family.ChildID),
		zap.String("action", action),
		zap.String("performed_by", session.UserID))
	s.publish(policy, family.ParentID)
	return policy, nil
}

func (s *PolicyService) load(ctx context.Context, childID string) (models.ChildPolicy, error) {
	policy, err := s.PolicyRepo.FindByChildID(ctx, childID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.DefaultPolicy(childID), nil
	}
	return policy, err
}

func (s *PolicyService) publish(policy models.ChildPolicy, parentID string) {
	if s.Events == nil {
		return
	}
	recipients := []string{policy.ChildID}
	if parentID != "" {
		recipients = append(recipients, parentID)
	}
	s.Events.Publish(interfaces.WebSocketMessage{
		Type:      interfaces.EventPolicyChanged,
		ChildID:   policy.ChildID,
		ParentID:  parentID,
		Payload:   policy,
		Timestamp: s.Now(),
	}, recipients...)
}
