package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/coordinator"
	"PinguinGuard/models"
	"PinguinGuard/restriction"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Transport is the part of *API the engine uses.
type Transport interface {
	GetPolicy(ctx context.Context, s models.Session, childID string) (models.ChildPolicy, error)
	SetBlock(ctx context.Context, s models.Session, childID string, isBlocked bool, reason *string) (models.ChildPolicy, error)
	SetTimeSlots(ctx context.Context, s models.Session, childID string, slots []string) (models.ChildPolicy, error)
	SetScreenTimeLimit(ctx context.Context, s models.Session, childID string, limit *int) (models.ChildPolicy, error)
	ListUnblockRequests(ctx context.Context, s models.Session, status models.RequestStatus) ([]models.UnblockRequest, error)
	CreateUnblockRequest(ctx context.Context, s models.Session, reason string) (models.UnblockRequest, error)
	RespondToUnblockRequest(ctx context.Context, s models.Session, requestID string, approve bool, parentResponse *string) (models.UnblockRequest, error)
	TodayScreenTime(ctx context.Context, s models.Session, childID string) (models.UsageRecord, error)
	ReportScreenTime(ctx context.Context, s models.Session, totalMinutes, sessionCount int) (models.UsageRecord, error)
}

// Engine answers "may this child use the app right now" from cached state
// and runs every backend call through a coordinator, so a late response of
// a superseded call never overwrites newer state.
type Engine struct {
	API      Transport
	Store    *Store
	Session  models.Session
	Location *time.Location
	Logger   *zap.Logger
	Now      func() time.Time

	coord *coordinator.Coordinator
}

func NewEngine(api Transport, session models.Session, loc *time.Location, logger *zap.Logger) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		API:      api,
		Store:    NewStore(),
		Session:  session,
		Location: loc,
		Logger:   logger,
		Now:      time.Now,
		coord:    coordinator.New(),
	}
}

// resolveChild maps an empty childID to the child's own id.
func (e *Engine) resolveChild(childID string) (string, error) {
	if childID != "" {
		return childID, nil
	}
	if e.Session.IsChild() {
		return e.Session.UserID, nil
	}
	return "", fmt.Errorf("childId is required: %w", apperrors.ErrInvalidArgument)
}

// usageQuery is the childId query parameter: children ask for themselves.
func (e *Engine) usageQuery(childID string) string {
	if e.Session.IsChild() {
		return ""
	}
	return childID
}

func (e *Engine) LoadPolicy(ctx context.Context, childID string) (models.ChildPolicy, error) {
	id, err := e.resolveChild(childID)
	if err != nil {
		return models.ChildPolicy{}, err
	}
	return coordinator.Do(ctx, e.coord, "loadPolicy:"+id,
		func(ctx context.Context) (models.ChildPolicy, error) {
			return e.API.GetPolicy(ctx, e.Session, id)
		},
		func(p models.ChildPolicy) {
			if p.ChildID == "" {
				p.ChildID = id
			}
			e.Store.SetPolicy(p)
		})
}

func (e *Engine) LoadUsage(ctx context.Context, childID string) (models.UsageRecord, error) {
	id, err := e.resolveChild(childID)
	if err != nil {
		return models.UsageRecord{}, err
	}
	return coordinator.Do(ctx, e.coord, "loadUsage:"+id,
		func(ctx context.Context) (models.UsageRecord, error) {
			return e.API.TodayScreenTime(ctx, e.Session, e.usageQuery(id))
		},
		func(u models.UsageRecord) { e.Store.SetUsage(id, u) })
}

func (e *Engine) LoadRequests(ctx context.Context) ([]models.UnblockRequest, error) {
	return coordinator.Do(ctx, e.coord, "loadRequests",
		func(ctx context.Context) ([]models.UnblockRequest, error) {
			return e.API.ListUnblockRequests(ctx, e.Session, "")
		},
		e.Store.SetRequests)
}

// Refresh reloads the policy, today's usage and the request list of childID
// concurrently. Loads superseded by a newer one are not errors.
func (e *Engine) Refresh(ctx context.Context, childID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := e.LoadPolicy(gctx, childID)
		return ignoreStale(err)
	})
	g.Go(func() error {
		_, err := e.LoadUsage(gctx, childID)
		return ignoreStale(err)
	})
	g.Go(func() error {
		_, err := e.LoadRequests(gctx)
		return ignoreStale(err)
	})
	return g.Wait()
}

// Status evaluates the cached policy and usage of childID at the current
// local time. known is false until the policy has been loaded; callers
// show that as a neutral "status unknown".
func (e *Engine) Status(childID string) (status models.RestrictionStatus, known bool) {
	id, err := e.resolveChild(childID)
	if err != nil {
		return models.RestrictionStatus{}, false
	}
	policy, ok := e.Store.Policy(id)
	if !ok {
		return models.RestrictionStatus{}, false
	}
	usage, _ := e.Store.Usage(id)
	return restriction.EvaluateAt(policy, usage, e.Now().In(e.Location)), true
}

// RemainingScreenTime formats today's remaining quota, "Unlimited" without
// one.
func (e *Engine) RemainingScreenTime(childID string) (string, bool) {
	id, err := e.resolveChild(childID)
	if err != nil {
		return "", false
	}
	policy, ok := e.Store.Policy(id)
	if !ok {
		return "", false
	}
	usage, _ := e.Store.Usage(id)
	return restriction.FormatRemaining(restriction.RemainingMinutes(usage.TotalMinutesUsed, policy.DailyScreenTimeLimitMinutes)), true
}

// RequestUnblock files an unblock request for the signed-in child. It is
// refused locally while a request is pending or when the known status does
// not allow one.
func (e *Engine) RequestUnblock(ctx context.Context, reason string) (models.UnblockRequest, error) {
	if !e.Session.IsChild() {
		return models.UnblockRequest{}, fmt.Errorf("only a child can request an unblock: %w", apperrors.ErrForbidden)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.UnblockRequest{}, fmt.Errorf("reason is required: %w", apperrors.ErrInvalidArgument)
	}
	if pending, ok := e.Store.PendingRequest(e.Session.UserID); ok {
		return models.UnblockRequest{}, &apperrors.InvalidStateError{
			Op:     "create unblock request",
			Status: fmt.Sprintf("request %s is still pending", pending.ID),
		}
	}
	if status, known := e.Status(""); known && !status.CanRequestUnblock {
		return models.UnblockRequest{}, &apperrors.InvalidStateError{Op: "create unblock request", Status: "access is not restricted"}
	}

	res, err := coordinator.Do(ctx, e.coord, "createUnblockRequest",
		func(ctx context.Context) (warned[models.UnblockRequest], error) {
			return splitWarning(e.API.CreateUnblockRequest(ctx, e.Session, reason))
		},
		func(res warned[models.UnblockRequest]) { e.Store.UpsertRequest(res.value) })
	if err != nil {
		return res.value, err
	}
	return res.value, res.warn
}

// warned carries a result the backend kept together with its warning.
type warned[T any] struct {
	value T
	warn  error
}

// splitWarning moves a recoverable error into the result so the coordinator
// still commits it.
func splitWarning[T any](value T, err error) (warned[T], error) {
	if apperrors.Committed(err) {
		return warned[T]{value: value, warn: err}, nil
	}
	return warned[T]{value: value}, err
}

// Respond resolves a request as the signed-in parent. An approval also clears
// the cached block, unless the backend reports it could not. A missing
// history entry is returned as a warning and does not stop the commit.
func (e *Engine) Respond(ctx context.Context, requestID string, approve bool, parentResponse *string) (models.UnblockRequest, error) {
	if !e.Session.IsParent() {
		return models.UnblockRequest{}, fmt.Errorf("only a parent can respond to an unblock request: %w", apperrors.ErrForbidden)
	}
	res, err := coordinator.Do(ctx, e.coord, "respond:"+requestID,
		func(ctx context.Context) (warned[models.UnblockRequest], error) {
			return splitWarning(e.API.RespondToUnblockRequest(ctx, e.Session, requestID, approve, parentResponse))
		},
		func(res warned[models.UnblockRequest]) {
			e.Store.UpsertRequest(res.value)
			var syncErr *apperrors.PolicySyncError
			if res.value.Status != models.RequestApproved || errors.As(res.warn, &syncErr) {
				return
			}
			if policy, ok := e.Store.Policy(res.value.ChildID); ok && policy.IsBlocked {
				policy.IsBlocked = false
				policy.BlockReason = nil
				e.Store.SetPolicy(policy)
			}
		})
	if err != nil {
		return res.value, err
	}
	return res.value, res.warn
}

func (e *Engine) SetBlock(ctx context.Context, childID string, isBlocked bool, reason *string) (models.ChildPolicy, error) {
	return e.updatePolicy(ctx, childID, func(ctx context.Context) (models.ChildPolicy, error) {
		return e.API.SetBlock(ctx, e.Session, childID, isBlocked, reason)
	})
}

// SetTimeSlots validates every slot locally before calling the backend.
func (e *Engine) SetTimeSlots(ctx context.Context, childID string, slots []string) (models.ChildPolicy, error) {
	windows, err := restriction.ParseSlots(slots)
	if err != nil {
		return models.ChildPolicy{}, err
	}
	return e.updatePolicy(ctx, childID, func(ctx context.Context) (models.ChildPolicy, error) {
		return e.API.SetTimeSlots(ctx, e.Session, childID, restriction.FormatSlots(windows))
	})
}

func (e *Engine) SetScreenTimeLimit(ctx context.Context, childID string, limit *int) (models.ChildPolicy, error) {
	if limit != nil && *limit < 0 {
		return models.ChildPolicy{}, fmt.Errorf("daily screen time limit %d is negative: %w", *limit, apperrors.ErrInvalidArgument)
	}
	return e.updatePolicy(ctx, childID, func(ctx context.Context) (models.ChildPolicy, error) {
		return e.API.SetScreenTimeLimit(ctx, e.Session, childID, limit)
	})
}

func (e *Engine) updatePolicy(ctx context.Context, childID string, call func(context.Context) (models.ChildPolicy, error)) (models.ChildPolicy, error) {
	if !e.Session.IsParent() {
		return models.ChildPolicy{}, fmt.Errorf("only a parent can change a child policy: %w", apperrors.ErrForbidden)
	}
	if childID == "" {
		return models.ChildPolicy{}, fmt.Errorf("childId is required: %w", apperrors.ErrInvalidArgument)
	}
	// Shares the load key so an in-flight reload cannot overwrite the update.
	return coordinator.Do(ctx, e.coord, "loadPolicy:"+childID, call, e.Store.SetPolicy)
}

// ReportUsage sends the device's cumulative totals for today.
func (e *Engine) ReportUsage(ctx context.Context, totalMinutes, sessionCount int) (models.UsageRecord, error) {
	if !e.Session.IsChild() {
		return models.UsageRecord{}, fmt.Errorf("only a child device can report usage: %w", apperrors.ErrForbidden)
	}
	id := e.Session.UserID
	return coordinator.Do(ctx, e.coord, "loadUsage:"+id,
		func(ctx context.Context) (models.UsageRecord, error) {
			return e.API.ReportScreenTime(ctx, e.Session, totalMinutes, sessionCount)
		},
		func(u models.UsageRecord) { e.Store.SetUsage(id, u) })
}

// Subscribe forwards to the store.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	return e.Store.Subscribe()
}

func ignoreStale(err error) error {
	if errors.Is(err, apperrors.ErrStaleOperation) {
		return nil
	}
	return err
}
