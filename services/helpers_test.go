package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PinguinGuard/interfaces"
	"PinguinGuard/models"
	"PinguinGuard/repositories/memory"

	"go.uber.org/zap"
)

var almaty = time.FixedZone("ALMT", 5*60*60)

var (
	parentSession   = models.Session{UserID: "parent-1", UserType: models.UserTypeParent, ParentID: "parent-1"}
	childSession    = models.Session{UserID: "child-1", UserType: models.UserTypeChild, ParentID: "parent-1"}
	strangerSession = models.Session{UserID: "parent-2", UserType: models.UserTypeParent, ParentID: "parent-2"}
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []interfaces.WebSocketMessage
	to     [][]string
}

func (p *recordingPublisher) Publish(msg interfaces.WebSocketMessage, userIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	p.to = append(p.to, userIDs)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingPush struct {
	mu      sync.Mutex
	parents []string
	kids    []string
	err     error
}

func (p *recordingPush) NotifyParent(_ context.Context, parentUID, _, _ string, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parents = append(p.parents, parentUID)
	return p.err
}

func (p *recordingPush) NotifyChild(_ context.Context, childUID, _, _ string, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kids = append(p.kids, childUID)
	return p.err
}

// family wires the real services on top of an in-memory store holding one
// parent with one bound child.
type family struct {
	store    *memory.Store
	events   *recordingPublisher
	push     *recordingPush
	policies *PolicyService
	usage    *UsageService
	unblock  *UnblockService
	status   *StatusService
	history  *HistoryService
}

func newFamily(now time.Time) *family {
	store := memory.NewStore()
	store.AddParent(models.Parent{ID: 1, FirebaseUID: "parent-1", DeviceToken: "parent-token"})
	store.AddParent(models.Parent{ID: 2, FirebaseUID: "parent-2"})
	store.AddChild(models.Child{ID: 1, FirebaseUID: "child-1", ParentFirebaseUID: "parent-1", IsBinded: true})

	logger := zap.NewNop()
	events := &recordingPublisher{}
	push := &recordingPush{}
	access := NewAuthorizer(store.Children())

	policies := NewPolicyService(store.Policies(), store.History(), access, events, logger)
	policies.Now = fixedClock(now)
	policies.NewID = sequentialIDs("h")

	usage := NewUsageService(store.Usage(), access, almaty, logger)
	usage.Now = fixedClock(now)

	unblock := NewUnblockService(store.Requests(), store.History(), policies, access, push, events, logger)
	unblock.Now = fixedClock(now)
	unblock.NewID = sequentialIDs("u")

	status := NewStatusService(policies, usage, almaty)
	status.Now = fixedClock(now)

	return &family{
		store:    store,
		events:   events,
		push:     push,
		policies: policies,
		usage:    usage,
		unblock:  unblock,
		status:   status,
		history:  NewHistoryService(store.History()),
	}
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }
