package client

import (
	"maps"
	"slices"
	"sync"

	"PinguinGuard/models"
)

// Snapshot is a consistent copy of the cached state.
type Snapshot struct {
	Policies map[string]models.ChildPolicy
	Usage    map[string]models.UsageRecord
	Requests []models.UnblockRequest
}

// Store caches what the client has fetched. Each aggregate has its own lock;
// subscribers get the newest snapshot after every change and may miss
// intermediate ones.
type Store struct {
	policyMu sync.RWMutex
	policies map[string]models.ChildPolicy

	usageMu sync.RWMutex
	usage   map[string]models.UsageRecord

	requestMu sync.RWMutex
	requests  []models.UnblockRequest

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

func NewStore() *Store {
	return &Store{
		policies: make(map[string]models.ChildPolicy),
		usage:    make(map[string]models.UsageRecord),
		subs:     make(map[int]chan Snapshot),
	}
}

func (s *Store) Policy(childID string) (models.ChildPolicy, bool) {
	s.policyMu.RLock()
	defer s.policyMu.RUnlock()
	p, ok := s.policies[childID]
	return p, ok
}

func (s *Store) SetPolicy(policy models.ChildPolicy) {
	s.policyMu.Lock()
	s.policies[policy.ChildID] = policy
	s.policyMu.Unlock()
	s.publish()
}

// Usage returns today's cached record of childID.
func (s *Store) Usage(childID string) (models.UsageRecord, bool) {
	s.usageMu.RLock()
	defer s.usageMu.RUnlock()
	u, ok := s.usage[childID]
	return u, ok
}

func (s *Store) SetUsage(childID string, record models.UsageRecord) {
	s.usageMu.Lock()
	s.usage[childID] = record
	s.usageMu.Unlock()
	s.publish()
}

func (s *Store) Requests() []models.UnblockRequest {
	s.requestMu.RLock()
	defer s.requestMu.RUnlock()
	return slices.Clone(s.requests)
}

func (s *Store) SetRequests(requests []models.UnblockRequest) {
	s.requestMu.Lock()
	s.requests = slices.Clone(requests)
	s.requestMu.Unlock()
	s.publish()
}

// UpsertRequest replaces the cached request with the same id or puts req
// first.
func (s *Store) UpsertRequest(req models.UnblockRequest) {
	s.requestMu.Lock()
	i := slices.IndexFunc(s.requests, func(r models.UnblockRequest) bool { return r.ID == req.ID })
	if i >= 0 {
		s.requests[i] = req
	} else {
		s.requests = append([]models.UnblockRequest{req}, s.requests...)
	}
	s.requestMu.Unlock()
	s.publish()
}

// PendingRequest returns the cached pending request of childID, if any.
func (s *Store) PendingRequest(childID string) (models.UnblockRequest, bool) {
	s.requestMu.RLock()
	defer s.requestMu.RUnlock()
	for _, r := range s.requests {
		if r.ChildID == childID && r.IsPending() {
			return r, true
		}
	}
	return models.UnblockRequest{}, false
}

func (s *Store) Snapshot() Snapshot {
	var snap Snapshot
	s.policyMu.RLock()
	snap.Policies = maps.Clone(s.policies)
	s.policyMu.RUnlock()

	s.usageMu.RLock()
	snap.Usage = maps.Clone(s.usage)
	s.usageMu.RUnlock()

	s.requestMu.RLock()
	snap.Requests = slices.Clone(s.requests)
	s.requestMu.RUnlock()
	return snap
}

// Subscribe returns a channel of snapshots and the function that closes it.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			close(ch)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, ch := range s.subs {
		// Keep only the newest snapshot for slow readers.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
