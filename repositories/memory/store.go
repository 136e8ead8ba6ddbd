// Package memory is an in-memory implementation of the repositories, used
// for local runs without PostgreSQL and in workflow tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"
	"PinguinGuard/repositories"
)

// Store holds every table. The repository views returned by its methods
// share it.
type Store struct {
	mu       sync.RWMutex
	parents  map[string]models.Parent
	children map[string]models.Child
	policies map[string]models.ChildPolicy
	usage    map[usageKey]models.UsageRecord
	requests map[string]models.UnblockRequest
	history  []models.HistoryEntry
	nextID   uint
}

type usageKey struct {
	childID string
	date    string
}

func NewStore() *Store {
	return &Store{
		parents:  make(map[string]models.Parent),
		children: make(map[string]models.Child),
		policies: make(map[string]models.ChildPolicy),
		usage:    make(map[usageKey]models.UsageRecord),
		requests: make(map[string]models.UnblockRequest),
	}
}

// AddParent and AddChild seed accounts; the service never creates them.
func (s *Store) AddParent(p models.Parent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents[p.FirebaseUID] = p
}

func (s *Store) AddChild(c models.Child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[c.FirebaseUID] = c
}

func (s *Store) Parents() repositories.ParentRepository { return parentRepo{s} }

func (s *Store) Children() repositories.ChildRepository { return childRepo{s} }

func (s *Store) Policies() repositories.PolicyRepository { return policyRepo{s} }

func (s *Store) Usage() repositories.UsageRepository { return usageRepo{s} }

func (s *Store) Requests() repositories.UnblockRequestRepository { return requestRepo{s} }

func (s *Store) History() repositories.HistoryRepository { return historyRepo{s} }

type parentRepo struct{ s *Store }

func (r parentRepo) FindByFirebaseUID(_ context.Context, uid string) (models.Parent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.parents[uid]
	if !ok {
		return models.Parent{}, apperrors.ErrNotFound
	}
	return p, nil
}

type childRepo struct{ s *Store }

func (r childRepo) FindByFirebaseUID(_ context.Context, uid string) (models.Child, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.children[uid]
	if !ok {
		return models.Child{}, apperrors.ErrNotFound
	}
	return c, nil
}

func (r childRepo) FindByParent(_ context.Context, parentUID string) ([]models.Child, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Child
	for _, c := range r.s.children {
		if c.BelongsTo(parentUID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type policyRepo struct{ s *Store }

func (r policyRepo) FindByChildID(_ context.Context, childID string) (models.ChildPolicy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.policies[childID]
	if !ok {
		return models.ChildPolicy{}, apperrors.ErrNotFound
	}
	return p, nil
}

func (r policyRepo) Save(_ context.Context, policy models.ChildPolicy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.policies[policy.ChildID] = policy
	return nil
}

type usageRepo struct{ s *Store }

func (r usageRepo) FindByChildAndDate(_ context.Context, childID, date string) (models.UsageRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.usage[usageKey{childID, date}]
	if !ok {
		return models.UsageRecord{}, apperrors.ErrNotFound
	}
	return rec, nil
}

func (r usageRepo) ListByChild(_ context.Context, childID, since string) ([]models.UsageRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.UsageRecord
	for k, rec := range r.s.usage {
		if k.childID == childID && k.date >= since {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r usageRepo) Save(_ context.Context, record models.UsageRecord) (models.UsageRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := usageKey{record.ChildID, record.Date}
	if cur, ok := r.s.usage[key]; ok {
		record.ID = cur.ID
		record.TotalMinutesUsed = max(record.TotalMinutesUsed, cur.TotalMinutesUsed)
		record.SessionCount = max(record.SessionCount, cur.SessionCount)
	} else {
		r.s.nextID++
		record.ID = r.s.nextID
	}
	r.s.usage[key] = record
	return record, nil
}

type requestRepo struct{ s *Store }

func (r requestRepo) Create(_ context.Context, req models.UnblockRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.requests[req.ID] = req
	return nil
}

func (r requestRepo) FindByID(_ context.Context, id string) (models.UnblockRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return models.UnblockRequest{}, apperrors.ErrNotFound
	}
	return req, nil
}

func (r requestRepo) FindPendingByChild(_ context.Context, childID string) (models.UnblockRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, req := range r.s.requests {
		if req.ChildID == childID && req.IsPending() {
			return req, nil
		}
	}
	return models.UnblockRequest{}, apperrors.ErrNotFound
}

func (r requestRepo) ResolvePending(_ context.Context, id string, status models.RequestStatus, parentResponse *string, respondedAt time.Time) (models.UnblockRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return models.UnblockRequest{}, apperrors.ErrNotFound
	}
	if !req.IsPending() {
		return req, &apperrors.InvalidStateError{Op: "respond to", RequestID: id, Status: string(req.Status)}
	}
	req.Status = status
	req.ParentResponse = parentResponse
	req.RespondedAt = &respondedAt
	r.s.requests[id] = req
	return req, nil
}

func (r requestRepo) List(_ context.Context, filter repositories.RequestFilter) ([]models.UnblockRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.UnblockRequest
	for _, req := range r.s.requests {
		if filter.ChildID != "" && req.ChildID != filter.ChildID {
			continue
		}
		if filter.ParentID != "" && req.ParentID != filter.ParentID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Append(_ context.Context, entry models.HistoryEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history = append(r.s.history, entry)
	return nil
}

func (r historyRepo) List(_ context.Context, filter repositories.HistoryFilter) ([]models.HistoryEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.HistoryEntry
	for i := len(r.s.history) - 1; i >= 0; i-- {
		e := r.s.history[i]
		if filter.ChildID != "" && e.ChildID != filter.ChildID {
			continue
		}
		if filter.ParentID != "" && e.ParentID != filter.ParentID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// SeedDemoFamily adds a parent with one bound child for local runs.
func (s *Store) SeedDemoFamily() {
	s.AddParent(models.Parent{ID: 1, Name: "Demo Parent", FirebaseUID: "demo-parent", CreatedAt: time.Now()})
	s.AddChild(models.Child{ID: 1, Name: "Demo Child", FirebaseUID: "demo-child", ParentFirebaseUID: "demo-parent", IsBinded: true})
}

// PingContext lets the health check treat the store like a database.
func (s *Store) PingContext(context.Context) error { return nil }
