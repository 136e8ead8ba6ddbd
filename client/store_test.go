package client

import (
	"testing"

	"PinguinGuard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribersSeeLatestSnapshot(t *testing.T) {
	store := NewStore()
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	store.SetPolicy(models.ChildPolicy{ChildID: "child-1"})
	store.SetPolicy(models.ChildPolicy{ChildID: "child-1", IsBlocked: true})

	snap := <-updates
	assert.True(t, snap.Policies["child-1"].IsBlocked, "older snapshots are dropped")

	select {
	case <-updates:
		t.Fatal("expected a single pending snapshot")
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	store := NewStore()
	updates, unsubscribe := store.Subscribe()

	unsubscribe()
	unsubscribe()
	store.SetUsage("child-1", models.UsageRecord{ChildID: "child-1"})

	_, open := <-updates
	assert.False(t, open)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.SetRequests([]models.UnblockRequest{{ID: "r1", ChildID: "child-1", Status: models.RequestPending}})

	snap := store.Snapshot()
	snap.Requests[0].Status = models.RequestApproved

	pending, ok := store.PendingRequest("child-1")
	require.True(t, ok)
	assert.Equal(t, "r1", pending.ID)
}

func TestUpsertRequest(t *testing.T) {
	store := NewStore()
	store.SetRequests([]models.UnblockRequest{{ID: "r1", Status: models.RequestPending}})

	store.UpsertRequest(models.UnblockRequest{ID: "r2", Status: models.RequestPending})
	store.UpsertRequest(models.UnblockRequest{ID: "r1", Status: models.RequestRejected})

	requests := store.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "r2", requests[0].ID)
	assert.Equal(t, models.RequestRejected, requests[1].Status)
}
