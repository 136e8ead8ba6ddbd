package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/interfaces"
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"PinguinGuard/repositories/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func historyCount(t *testing.T, f *family) int {
	t.Helper()
	entries, err := f.history.List(context.Background(), parentSession, MaxHistoryLimit)
	require.NoError(t, err)
	return len(entries)
}

func TestUnblockApprovalLiftsBlock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, almaty)
	f := newFamily(now)

	_, err := f.policies.SetBlock(ctx, parentSession, "child-1", true, strPtr("homework time"))
	require.NoError(t, err)
	status, err := f.status.Status(ctx, childSession, "")
	require.NoError(t, err)
	require.Equal(t, models.ReasonManualBlock, status.Reason)

	req, err := f.unblock.Create(ctx, childSession, "need it for school")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "child-1", req.ChildID)
	assert.Equal(t, "parent-1", req.ParentID)
	assert.Equal(t, []string{"parent-1"}, f.push.parents)

	before := historyCount(t, f)
	resolved, err := f.unblock.Respond(ctx, parentSession, req.ID, true, strPtr("ok for 1h"))
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, resolved.Status)
	require.NotNil(t, resolved.ParentResponse)
	assert.Equal(t, "ok for 1h", *resolved.ParentResponse)
	require.NotNil(t, resolved.RespondedAt)
	assert.True(t, resolved.RespondedAt.Equal(now))

	assert.Equal(t, before+1, historyCount(t, f), "approval appends exactly one entry")
	entries, err := f.history.List(ctx, parentSession, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ActionRequestApproved, entries[0].Action)
	require.NotNil(t, entries[0].RequestStatus)
	assert.Equal(t, models.RequestApproved, *entries[0].RequestStatus)

	policy, err := f.policies.Get(ctx, parentSession, "child-1")
	require.NoError(t, err)
	assert.False(t, policy.IsBlocked)
	assert.Nil(t, policy.BlockReason)

	status, err = f.status.Status(ctx, childSession, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReasonNone, status.Reason)
	assert.False(t, status.IsRestricted)

	assert.Equal(t, []string{"child-1"}, f.push.kids)
	assert.Contains(t, f.events.types(), interfaces.EventUnblockRequestResolved)
}

func TestUnblockRejectionKeepsBlock(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	_, err := f.policies.SetBlock(ctx, parentSession, "child-1", true, nil)
	require.NoError(t, err)
	req, err := f.unblock.Create(ctx, childSession, "please")
	require.NoError(t, err)

	resolved, err := f.unblock.Respond(ctx, parentSession, req.ID, false, strPtr("  "))
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, resolved.Status)
	assert.Nil(t, resolved.ParentResponse, "blank response is dropped")

	policy, err := f.policies.Get(ctx, childSession, "")
	require.NoError(t, err)
	assert.True(t, policy.IsBlocked)
}

func TestRespondToTerminalRequestFails(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	req, err := f.unblock.Create(ctx, childSession, "please")
	require.NoError(t, err)
	_, err = f.unblock.Respond(ctx, parentSession, req.ID, false, nil)
	require.NoError(t, err)
	before := historyCount(t, f)

	_, err = f.unblock.Respond(ctx, parentSession, req.ID, true, nil)
	var stateErr *apperrors.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "rejected", stateErr.Status)
	assert.Equal(t, before, historyCount(t, f))

	stored, err := f.store.Requests().FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, stored.Status)
}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	_, err := f.unblock.Create(ctx, childSession, "first")
	require.NoError(t, err)

	_, err = f.unblock.Create(ctx, childSession, "second")
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	pending, err := f.unblock.List(ctx, childSession, "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	_, err := f.unblock.Create(ctx, childSession, "   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = f.unblock.Create(ctx, parentSession, "parents cannot ask")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assert.Equal(t, 0, historyCount(t, f))
}

func TestRespondByAnotherParentIsForbidden(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	req, err := f.unblock.Create(ctx, childSession, "please")
	require.NoError(t, err)

	_, err = f.unblock.Respond(ctx, strangerSession, req.ID, true, nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.unblock.Respond(ctx, childSession, req.ID, true, nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestListUnblockRequests(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	first, err := f.unblock.Create(ctx, childSession, "first")
	require.NoError(t, err)
	_, err = f.unblock.Respond(ctx, parentSession, first.ID, false, nil)
	require.NoError(t, err)

	f.unblock.Now = fixedClock(time.Date(2026, 3, 10, 13, 0, 0, 0, almaty))
	second, err := f.unblock.Create(ctx, childSession, "second")
	require.NoError(t, err)

	all, err := f.unblock.List(ctx, parentSession, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	rejected, err := f.unblock.List(ctx, parentSession, "rejected")
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, first.ID, rejected[0].ID)

	none, err := f.unblock.List(ctx, strangerSession, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.unblock.List(ctx, parentSession, "expired")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

type failingClearer struct{ err error }

func (c failingClearer) ClearBlock(context.Context, string) error { return c.err }

func TestApprovalWithFailedPolicyWriteIsRecoverable(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, almaty)
	requestRepo := new(mocks.UnblockRequestRepository)
	historyRepo := new(mocks.HistoryRepository)

	pending := models.UnblockRequest{ID: "r1", ChildID: "child-1", ParentID: "parent-1", Status: models.RequestPending}
	approved := pending
	approved.Status = models.RequestApproved
	approved.RespondedAt = &now

	requestRepo.On("FindByID", mock.Anything, "r1").Return(pending, nil)
	requestRepo.On("ResolvePending", mock.Anything, "r1", models.RequestApproved, (*string)(nil), now).Return(approved, nil)
	historyRepo.On("Append", mock.Anything, mock.MatchedBy(func(e models.HistoryEntry) bool {
		return e.Action == models.ActionRequestApproved && e.PerformedBy == "parent-1"
	})).Return(nil).Once()

	svc := NewUnblockService(requestRepo, historyRepo, failingClearer{errors.New("db down")}, NewAuthorizer(new(mocks.ChildRepository)), nil, nil, zap.NewNop())
	svc.Now = fixedClock(now)

	got, err := svc.Respond(ctx, parentSession, "r1", true, nil)

	var syncErr *apperrors.PolicySyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "r1", syncErr.RequestID)
	assert.Equal(t, models.RequestApproved, got.Status, "the approval itself is kept")
	requestRepo.AssertExpectations(t)
	historyRepo.AssertExpectations(t)
}

// failingHistory rejects appends of one action and stores the rest.
type failingHistory struct {
	repositories.HistoryRepository
	action string
	err    error
}

func (h failingHistory) Append(ctx context.Context, entry models.HistoryEntry) error {
	if entry.Action == h.action {
		return h.err
	}
	return h.HistoryRepository.Append(ctx, entry)
}

func TestApprovalWithFailedHistoryStillLiftsBlock(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	_, err := f.policies.SetBlock(ctx, parentSession, "child-1", true, nil)
	require.NoError(t, err)
	req, err := f.unblock.Create(ctx, childSession, "need it for school")
	require.NoError(t, err)
	f.unblock.HistoryRepo = failingHistory{f.store.History(), models.ActionRequestApproved, errors.New("history down")}

	resolved, err := f.unblock.Respond(ctx, parentSession, req.ID, true, nil)

	var historyErr *apperrors.HistoryWriteError
	require.ErrorAs(t, err, &historyErr)
	assert.True(t, apperrors.Committed(err))
	assert.Equal(t, req.ID, historyErr.RequestID)
	assert.Equal(t, models.RequestApproved, resolved.Status)

	policy, err := f.policies.Get(ctx, childSession, "")
	require.NoError(t, err)
	assert.False(t, policy.IsBlocked, "the approval lifts the block even without its history entry")

	assert.Equal(t, []string{"child-1"}, f.push.kids)
	assert.Contains(t, f.events.types(), interfaces.EventUnblockRequestResolved)
}

func TestApprovalWithFailedHistoryAndPolicyReportsBoth(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	req, err := f.unblock.Create(ctx, childSession, "please")
	require.NoError(t, err)
	f.unblock.HistoryRepo = failingHistory{f.store.History(), models.ActionRequestApproved, errors.New("history down")}
	f.unblock.Policies = failingClearer{errors.New("db down")}

	resolved, err := f.unblock.Respond(ctx, parentSession, req.ID, true, nil)

	var historyErr *apperrors.HistoryWriteError
	var syncErr *apperrors.PolicySyncError
	assert.ErrorAs(t, err, &historyErr)
	assert.ErrorAs(t, err, &syncErr)
	assert.Equal(t, apperrors.CodePolicySyncFailed, apperrors.CodeOf(err))
	assert.Equal(t, models.RequestApproved, resolved.Status)
}

func TestCreateWithFailedHistoryReturnsPendingRequest(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))
	f.unblock.HistoryRepo = failingHistory{f.store.History(), models.ActionRequestCreated, errors.New("history down")}

	req, err := f.unblock.Create(ctx, childSession, "need it for school")

	var historyErr *apperrors.HistoryWriteError
	require.ErrorAs(t, err, &historyErr)
	assert.True(t, apperrors.Committed(err))
	require.NotEmpty(t, req.ID, "the stored request comes back to the child")
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, []string{"parent-1"}, f.push.parents)
	assert.Contains(t, f.events.types(), interfaces.EventUnblockRequestCreated)

	stored, err := f.store.Requests().FindPendingByChild(ctx, "child-1")
	require.NoError(t, err)
	assert.Equal(t, req.ID, stored.ID)

	f.unblock.HistoryRepo = f.store.History()
	resolved, err := f.unblock.Respond(ctx, parentSession, req.ID, false, nil)
	require.NoError(t, err, "the parent can still resolve it")
	assert.Equal(t, models.RequestRejected, resolved.Status)
}

func TestConcurrentResponderLosesCleanly(t *testing.T) {
	ctx := context.Background()
	requestRepo := new(mocks.UnblockRequestRepository)
	historyRepo := new(mocks.HistoryRepository)

	pending := models.UnblockRequest{ID: "r1", ChildID: "child-1", ParentID: "parent-1", Status: models.RequestPending}
	requestRepo.On("FindByID", mock.Anything, "r1").Return(pending, nil)
	requestRepo.On("ResolvePending", mock.Anything, "r1", models.RequestRejected, mock.Anything, mock.Anything).
		Return(models.UnblockRequest{}, &apperrors.InvalidStateError{Op: "respond to", RequestID: "r1", Status: "approved"})

	svc := NewUnblockService(requestRepo, historyRepo, failingClearer{}, NewAuthorizer(new(mocks.ChildRepository)), nil, nil, zap.NewNop())

	_, err := svc.Respond(ctx, parentSession, "r1", false, nil)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
	historyRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestListPassesFilterToRepository(t *testing.T) {
	requestRepo := new(mocks.UnblockRequestRepository)
	requestRepo.On("List", mock.Anything, repositories.RequestFilter{ChildID: "child-1", Status: models.RequestPending}).
		Return(nil, nil)

	svc := NewUnblockService(requestRepo, nil, nil, nil, nil, nil, zap.NewNop())
	got, err := svc.List(context.Background(), childSession, "pending")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	requestRepo.AssertExpectations(t)
}
