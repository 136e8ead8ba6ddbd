package services

import (
	"context"
	"time"

	"PinguinGuard/models"
	"PinguinGuard/restriction"

	"golang.org/x/sync/errgroup"
)

// StatusService computes the server-side restriction verdict with the same
// evaluator the client uses.
type StatusService struct {
	Policies *PolicyService
	Usage    *UsageService
	Location *time.Location

	Now func() time.Time
}

func NewStatusService(policies *PolicyService, usage *UsageService, loc *time.Location) *StatusService {
	return &StatusService{Policies: policies, Usage: usage, Location: loc, Now: time.Now}
}

func (s *StatusService) Status(ctx context.Context, session models.Session, childID string) (models.RestrictionStatus, error) {
	var (
		policy models.ChildPolicy
		usage  models.UsageRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		policy, err = s.Policies.Get(gctx, session, childID)
		return err
	})
	g.Go(func() error {
		var err error
		usage, err = s.Usage.Today(gctx, session, childID)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.RestrictionStatus{}, err
	}

	now := s.Now()
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return restriction.EvaluateAt(policy, usage, now), nil
}
