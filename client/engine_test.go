package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var childSession = models.Session{UserID: "child-1", UserType: models.UserTypeChild, ParentID: "parent-1", Token: "child-token"}

// fakeTransport serves canned values. getPolicy, when set, replaces the
// canned policy lookup.
type fakeTransport struct {
	mu         sync.Mutex
	policy     models.ChildPolicy
	usage      models.UsageRecord
	requests   []models.UnblockRequest
	respond    models.UnblockRequest
	respondErr error
	createErr  error
	calls      []string

	getPolicy func(ctx context.Context) (models.ChildPolicy, error)
}

func (f *fakeTransport) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTransport) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTransport) GetPolicy(ctx context.Context, _ models.Session, childID string) (models.ChildPolicy, error) {
	f.record("GetPolicy:" + childID)
	if f.getPolicy != nil {
		return f.getPolicy(ctx)
	}
	return f.policy, nil
}

func (f *fakeTransport) SetBlock(_ context.Context, _ models.Session, childID string, isBlocked bool, reason *string) (models.ChildPolicy, error) {
	f.record("SetBlock")
	p := f.policy
	p.ChildID, p.IsBlocked, p.BlockReason = childID, isBlocked, reason
	return p, nil
}

func (f *fakeTransport) SetTimeSlots(_ context.Context, _ models.Session, childID string, slots []string) (models.ChildPolicy, error) {
	f.record("SetTimeSlots")
	p := f.policy
	p.ChildID = childID
	for _, s := range slots {
		w, err := models.ParseTimeWindow(s)
		if err != nil {
			return models.ChildPolicy{}, err
		}
		p.AllowedTimeSlots = append(p.AllowedTimeSlots, w)
	}
	return p, nil
}

func (f *fakeTransport) SetScreenTimeLimit(_ context.Context, _ models.Session, childID string, limit *int) (models.ChildPolicy, error) {
	f.record("SetScreenTimeLimit")
	p := f.policy
	p.ChildID, p.DailyScreenTimeLimitMinutes = childID, limit
	return p, nil
}

func (f *fakeTransport) ListUnblockRequests(context.Context, models.Session, models.RequestStatus) ([]models.UnblockRequest, error) {
	f.record("ListUnblockRequests")
	return f.requests, nil
}

func (f *fakeTransport) CreateUnblockRequest(_ context.Context, s models.Session, reason string) (models.UnblockRequest, error) {
	f.record("CreateUnblockRequest")
	return models.UnblockRequest{ID: "r1", ChildID: s.UserID, ParentID: s.ParentID, Reason: reason, Status: models.RequestPending}, f.createErr
}

func (f *fakeTransport) RespondToUnblockRequest(context.Context, models.Session, string, bool, *string) (models.UnblockRequest, error) {
	f.record("RespondToUnblockRequest")
	return f.respond, f.respondErr
}

func (f *fakeTransport) TodayScreenTime(_ context.Context, _ models.Session, childID string) (models.UsageRecord, error) {
	f.record("TodayScreenTime:" + childID)
	return f.usage, nil
}

func (f *fakeTransport) ReportScreenTime(_ context.Context, s models.Session, totalMinutes, sessionCount int) (models.UsageRecord, error) {
	f.record("ReportScreenTime")
	return models.UsageRecord{ChildID: s.UserID, TotalMinutesUsed: totalMinutes, SessionCount: sessionCount}, nil
}

var almaty = time.FixedZone("ALMT", 5*60*60)

func newTestEngine(api Transport, session models.Session, at time.Time) *Engine {
	e := NewEngine(api, session, almaty, zap.NewNop())
	e.Now = func() time.Time { return at }
	return e
}

func limit(n int) *int { return &n }

func TestStatusUnknownUntilLoaded(t *testing.T) {
	api := &fakeTransport{policy: models.ChildPolicy{ChildID: "child-1", IsBlocked: true}}
	e := newTestEngine(api, childSession, time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	_, known := e.Status("")
	assert.False(t, known)

	require.NoError(t, e.Refresh(context.Background(), ""))

	status, known := e.Status("")
	require.True(t, known)
	assert.Equal(t, models.ReasonManualBlock, status.Reason)
	assert.True(t, status.CanRequestUnblock)
	assert.Contains(t, api.called(), "TodayScreenTime:", "a child asks for its own usage")
}

func TestRemainingScreenTime(t *testing.T) {
	api := &fakeTransport{
		policy: models.ChildPolicy{ChildID: "child-1", DailyScreenTimeLimitMinutes: limit(120)},
		usage:  models.UsageRecord{ChildID: "child-1", TotalMinutesUsed: 45},
	}
	e := newTestEngine(api, parentSession, time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	_, ok := e.RemainingScreenTime("child-1")
	assert.False(t, ok)

	require.NoError(t, e.Refresh(context.Background(), "child-1"))
	remaining, ok := e.RemainingScreenTime("child-1")
	require.True(t, ok)
	assert.Equal(t, "1h15m", remaining)

	status, _ := e.Status("child-1")
	assert.False(t, status.IsRestricted)
}

func TestSupersededLoadDoesNotCommit(t *testing.T) {
	release := make(chan struct{})
	var n int
	var mu sync.Mutex
	api := &fakeTransport{}
	api.getPolicy = func(ctx context.Context) (models.ChildPolicy, error) {
		mu.Lock()
		n++
		first := n == 1
		mu.Unlock()
		if first {
			<-release
			return models.ChildPolicy{ChildID: "child-1", IsBlocked: true}, nil
		}
		return models.ChildPolicy{ChildID: "child-1", IsBlocked: false}, nil
	}
	e := newTestEngine(api, parentSession, time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	errc := make(chan error, 1)
	go func() {
		_, err := e.LoadPolicy(context.Background(), "child-1")
		errc <- err
	}()
	require.Eventually(t, func() bool { return e.coord.InFlight("loadPolicy:child-1") }, time.Second, time.Millisecond)

	_, err := e.LoadPolicy(context.Background(), "child-1")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errc, apperrors.ErrStaleOperation)
	policy, ok := e.Store.Policy("child-1")
	require.True(t, ok)
	assert.False(t, policy.IsBlocked, "the late response is discarded")
}

func TestRequestUnblockLocalChecks(t *testing.T) {
	ctx := context.Background()
	api := &fakeTransport{policy: models.ChildPolicy{ChildID: "child-1"}}
	e := newTestEngine(api, childSession, time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	_, err := e.RequestUnblock(ctx, "  ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	require.NoError(t, e.Refresh(ctx, ""))
	_, err = e.RequestUnblock(ctx, "please")
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err), "nothing to lift")

	api.policy.IsBlocked = true
	_, err = e.LoadPolicy(ctx, "")
	require.NoError(t, err)

	req, err := e.RequestUnblock(ctx, "need it for school")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)

	_, err = e.RequestUnblock(ctx, "again")
	var stateErr *apperrors.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Contains(t, stateErr.Status, "r1")

	creates := 0
	for _, c := range api.called() {
		if c == "CreateUnblockRequest" {
			creates++
		}
	}
	assert.Equal(t, 1, creates)

	parent := newTestEngine(api, parentSession, time.Now())
	_, err = parent.RequestUnblock(ctx, "x")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRespondApprovalClearsCachedBlock(t *testing.T) {
	ctx := context.Background()
	response := "ok for 1h"
	api := &fakeTransport{
		policy:   models.ChildPolicy{ChildID: "child-1", IsBlocked: true, BlockReason: &response},
		requests: []models.UnblockRequest{{ID: "r1", ChildID: "child-1", Status: models.RequestPending}},
		respond:  models.UnblockRequest{ID: "r1", ChildID: "child-1", Status: models.RequestApproved, ParentResponse: &response},
	}
	e := newTestEngine(api, parentSession, time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))
	require.NoError(t, e.Refresh(ctx, "child-1"))

	req, err := e.Respond(ctx, "r1", true, &response)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, req.Status)

	policy, _ := e.Store.Policy("child-1")
	assert.False(t, policy.IsBlocked)
	_, pending := e.Store.PendingRequest("child-1")
	assert.False(t, pending)
	status, _ := e.Status("child-1")
	assert.False(t, status.IsRestricted)
}

func TestRespondSyncFailureKeepsCachedBlock(t *testing.T) {
	ctx := context.Background()
	approved := models.UnblockRequest{ID: "r1", ChildID: "child-1", Status: models.RequestApproved}
	api := &fakeTransport{
		policy:     models.ChildPolicy{ChildID: "child-1", IsBlocked: true},
		respond:    approved,
		respondErr: &apperrors.PolicySyncError{RequestID: "r1", ChildID: "child-1", Err: errors.New("db down")},
	}
	e := newTestEngine(api, parentSession, time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))
	require.NoError(t, e.Refresh(ctx, "child-1"))

	req, err := e.Respond(ctx, "r1", true, nil)

	var syncErr *apperrors.PolicySyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, models.RequestApproved, req.Status)
	assert.Equal(t, models.RequestApproved, e.Store.Requests()[0].Status)
	policy, _ := e.Store.Policy("child-1")
	assert.True(t, policy.IsBlocked)
}

func TestMissingHistoryStillCommitsWorkflow(t *testing.T) {
	ctx := context.Background()
	api := &fakeTransport{
		policy:     models.ChildPolicy{ChildID: "child-1", IsBlocked: true},
		respond:    models.UnblockRequest{ID: "r1", ChildID: "child-1", Status: models.RequestApproved},
		respondErr: &apperrors.HistoryWriteError{Action: "approved", RequestID: "r1", Err: errors.New("disk full")},
		createErr:  &apperrors.HistoryWriteError{Action: "create", RequestID: "r1", Err: errors.New("disk full")},
	}
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, almaty)

	child := newTestEngine(api, childSession, at)
	require.NoError(t, child.Refresh(ctx, ""))
	req, err := child.RequestUnblock(ctx, "need it")
	var historyErr *apperrors.HistoryWriteError
	require.ErrorAs(t, err, &historyErr)
	assert.Equal(t, "r1", req.ID)
	_, pending := child.Store.PendingRequest("child-1")
	assert.True(t, pending, "the kept request is cached")

	parent := newTestEngine(api, parentSession, at)
	require.NoError(t, parent.Refresh(ctx, "child-1"))
	_, err = parent.Respond(ctx, "r1", true, nil)
	require.ErrorAs(t, err, &historyErr)
	policy, _ := parent.Store.Policy("child-1")
	assert.False(t, policy.IsBlocked, "the block was lifted on the backend")
}

func TestSetTimeSlotsValidatesLocally(t *testing.T) {
	ctx := context.Background()
	api := &fakeTransport{}
	e := newTestEngine(api, parentSession, time.Now())

	_, err := e.SetTimeSlots(ctx, "child-1", []string{"08:00-12:00", "12:00-12:00"})
	var parseErr *apperrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Empty(t, api.called())

	policy, err := e.SetTimeSlots(ctx, "child-1", []string{" 08:00-12:00 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00-12:00"}, policy.AllowedTimeSlots.Strings())
	cached, ok := e.Store.Policy("child-1")
	require.True(t, ok)
	assert.Equal(t, policy, cached)
}

func TestPolicyUpdatesNeedParent(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(&fakeTransport{}, childSession, time.Now())

	_, err := e.SetBlock(ctx, "child-1", true, nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	_, err = e.SetScreenTimeLimit(ctx, "child-1", limit(30))
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	parent := newTestEngine(&fakeTransport{}, parentSession, time.Now())
	_, err = parent.SetScreenTimeLimit(ctx, "child-1", limit(-1))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	_, err = parent.SetBlock(ctx, "", true, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestReportUsageUpdatesStatus(t *testing.T) {
	ctx := context.Background()
	api := &fakeTransport{policy: models.ChildPolicy{ChildID: "child-1", DailyScreenTimeLimitMinutes: limit(60)}}
	e := newTestEngine(api, childSession, time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))
	require.NoError(t, e.Refresh(ctx, ""))

	updates, unsubscribe := e.Subscribe()
	defer unsubscribe()

	_, err := e.ReportUsage(ctx, 60, 4)
	require.NoError(t, err)

	snap := <-updates
	assert.Equal(t, 60, snap.Usage["child-1"].TotalMinutesUsed)
	status, _ := e.Status("")
	assert.Equal(t, models.ReasonQuotaExceeded, status.Reason)
}
