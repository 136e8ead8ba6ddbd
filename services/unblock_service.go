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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlockClearer lifts a child's manual block after an approval.
type BlockClearer interface {
	ClearBlock(ctx context.Context, childID string) error
}

// UnblockService runs the request/approval workflow:
// pending -> approved | rejected, with no way back out of a terminal state.
type UnblockService struct {
	RequestRepo repositories.UnblockRequestRepository
	HistoryRepo repositories.HistoryRepository
	Policies    BlockClearer
	Access      *Authorizer
	Push        interfaces.PushNotifier
	Events      interfaces.EventPublisher
	Logger      *zap.Logger

	Now   func() time.Time
	NewID func() string

	locks *keyedMutex
}

func NewUnblockService(
	requestRepo repositories.UnblockRequestRepository,
	historyRepo repositories.HistoryRepository,
	policies BlockClearer,
	access *Authorizer,
	push interfaces.PushNotifier,
	events interfaces.EventPublisher,
	logger *zap.Logger,
) *UnblockService {
	return &UnblockService{
		RequestRepo: requestRepo,
		HistoryRepo: historyRepo,
		Policies:    policies,
		Access:      access,
		Push:        push,
		Events:      events,
		Logger:      logger,
		Now:         time.Now,
		NewID:       uuid.NewString,
		locks:       newKeyedMutex(),
	}
}

// Create files a pending request for the calling child. A child has at most
// one pending request at a time.
func (s *UnblockService) Create(ctx context.Context, session models.Session, reason string) (models.UnblockRequest, error) {
	if !session.IsChild() {
		return models.UnblockRequest{}, fmt.Errorf("only a child can request an unblock: %w", apperrors.ErrForbidden)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.UnblockRequest{}, fmt.Errorf("reason is required: %w", apperrors.ErrInvalidArgument)
	}
	family, err := s.Access.Child(ctx, session, "")
	if err != nil {
		return models.UnblockRequest{}, err
	}

	req, err := s.create(ctx, family, reason)
	if err != nil && !apperrors.Committed(err) {
		return models.UnblockRequest{}, err
	}

	s.Logger.Info("unblock request created",
		zap.String("request_id", req.ID),
		zap.String("child_id", req.ChildID),
		zap.String("parent_id", req.ParentID))
	s.notify(ctx, req, interfaces.EventUnblockRequestCreated)
	return req, err
}

func (s *UnblockService) create(ctx context.Context, family Family, reason string) (models.UnblockRequest, error) {
	unlock := s.locks.Lock(family.ChildID)
	defer unlock()

	existing, err := s.RequestRepo.FindPendingByChild(ctx, family.ChildID)
	switch {
	case err == nil:
		return models.UnblockRequest{}, &apperrors.InvalidStateError{
			Op:     "create unblock request",
			Status: fmt.Sprintf("request %s is still pending", existing.ID),
		}
	case !errors.Is(err, apperrors.ErrNotFound):
		return models.UnblockRequest{}, err
	}

	now := s.Now()
	req := models.UnblockRequest{
		ID:        s.NewID(),
		ChildID:   family.ChildID,
		ParentID:  family.ParentID,
		Reason:    reason,
		Status:    models.RequestPending,
		CreatedAt: now,
	}
	if err := s.RequestRepo.Create(ctx, req); err != nil {
		return models.UnblockRequest{}, err
	}

	status := models.RequestPending
	err = s.HistoryRepo.Append(ctx, models.HistoryEntry{
		ID:            s.NewID(),
		ChildID:       req.ChildID,
		ParentID:      req.ParentID,
		Action:        models.ActionRequestCreated,
		Metadata:      map[string]any{"requestId": req.ID, "reason": req.Reason},
		PerformedBy:   req.ChildID,
		RequestStatus: &status,
		CreatedAt:     now,
	})
	if err != nil {
		s.Logger.Error("unblock request created without history entry",
			zap.String("request_id", req.ID),
			zap.Error(err))
		return req, &apperrors.HistoryWriteError{Action: "create", RequestID: req.ID, Err: err}
	}
	return req, nil
}

// Respond resolves a pending request owned by the calling parent. Approval
// also lifts the manual block. Once the transition is committed the resolved
// request is always returned and announced; a failed history append or block
// clear comes back next to it as *apperrors.HistoryWriteError or
// *apperrors.PolicySyncError.
func (s *UnblockService) Respond(ctx context.Context, session models.Session, requestID string, approve bool, parentResponse *string) (models.UnblockRequest, error) {
	if err := s.Access.Parent(session, "respond to an unblock request"); err != nil {
		return models.UnblockRequest{}, err
	}
	req, err := s.RequestRepo.FindByID(ctx, requestID)
	if err != nil {
		return models.UnblockRequest{}, err
	}
	if req.ParentID != session.UserID {
		return models.UnblockRequest{}, fmt.Errorf("request %s belongs to another parent: %w", requestID, apperrors.ErrForbidden)
	}
	if !req.IsPending() {
		return models.UnblockRequest{}, &apperrors.InvalidStateError{Op: "respond to", RequestID: req.ID, Status: string(req.Status)}
	}

	status, action := models.RequestRejected, models.ActionRequestRejected
	if approve {
		status, action = models.RequestApproved, models.ActionRequestApproved
	}
	var response *string
	if parentResponse != nil {
		if r := strings.TrimSpace(*parentResponse); r != "" {
			response = &r
		}
	}

	now := s.Now()
	resolved, err := s.RequestRepo.ResolvePending(ctx, req.ID, status, response, now)
	if err != nil {
		return models.UnblockRequest{}, err
	}

	metadata := map[string]any{"requestId": resolved.ID}
	if response != nil {
		metadata["parentResponse"] = *response
	}
	var historyErr, syncErr error
	if err := s.HistoryRepo.Append(ctx, models.HistoryEntry{
		ID:            s.NewID(),
		ChildID:       resolved.ChildID,
		ParentID:      resolved.ParentID,
		Action:        action,
		Metadata:      metadata,
		PerformedBy:   session.UserID,
		RequestStatus: &status,
		CreatedAt:     now,
	}); err != nil {
		historyErr = &apperrors.HistoryWriteError{Action: string(status), RequestID: resolved.ID, Err: err}
		s.Logger.Error("unblock request resolved without history entry",
			zap.String("request_id", resolved.ID),
			zap.Error(err))
	}

	if approve {
		if err := s.Policies.ClearBlock(ctx, resolved.ChildID); err != nil {
			syncErr = &apperrors.PolicySyncError{RequestID: resolved.ID, ChildID: resolved.ChildID, Err: err}
			s.Logger.Error("approved request left the child blocked",
				zap.String("request_id", resolved.ID),
				zap.String("child_id", resolved.ChildID),
				zap.Error(err))
		}
	}

	s.Logger.Info("unblock request resolved",
		zap.String("request_id", resolved.ID),
		zap.String("status", string(resolved.Status)))
	s.notify(ctx, resolved, interfaces.EventUnblockRequestResolved)
	return resolved, errors.Join(historyErr, syncErr)
}

// List returns the caller's requests, newest first. status may be empty.
func (s *UnblockService) List(ctx context.Context, session models.Session, status string) ([]models.UnblockRequest, error) {
	var filter repositories.RequestFilter
	if status != "" {
		st, err := models.ParseRequestStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidArgument, err)
		}
		filter.Status = st
	}
	switch {
	case session.IsParent():
		filter.ParentID = session.UserID
	case session.IsChild():
		filter.ChildID = session.UserID
	default:
		return nil, fmt.Errorf("unknown user type %q: %w", session.UserType, apperrors.ErrForbidden)
	}

	requests, err := s.RequestRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []models.UnblockRequest{}
	}
	return requests, nil
}

func (s *UnblockService) notify(ctx context.Context, req models.UnblockRequest, event string) {
	if s.Events != nil {
		s.Events.Publish(interfaces.WebSocketMessage{
			Type:      event,
			ChildID:   req.ChildID,
			ParentID:  req.ParentID,
			RequestID: req.ID,
			Payload:   req,
			Timestamp: s.Now(),
		}, req.ChildID, req.ParentID)
	}
	if s.Push == nil {
		return
	}

	data := map[string]string{"type": event, "requestId": req.ID, "childId": req.ChildID}
	var err error
	if event == interfaces.EventUnblockRequestCreated {
		err = s.Push.NotifyParent(ctx, req.ParentID, "Unblock request", req.Reason, data)
	} else {
		title := "Request rejected"
		if req.Status == models.RequestApproved {
			title = "Request approved"
		}
		body := ""
		if req.ParentResponse != nil {
			body = *req.ParentResponse
		}
		err = s.Push.NotifyChild(ctx, req.ChildID, title, body, data)
	}
	if err != nil {
		s.Logger.Warn("push notification failed", zap.String("request_id", req.ID), zap.Error(err))
	}
}
