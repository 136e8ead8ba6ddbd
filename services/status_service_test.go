package services

import (
	"context"
	"testing"
	"time"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFollowsPolicyAndUsage(t *testing.T) {
	ctx := context.Background()
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	status, err := f.status.Status(ctx, childSession, "")
	require.NoError(t, err)
	assert.False(t, status.IsRestricted)

	_, err = f.policies.SetScreenTimeLimit(ctx, parentSession, "child-1", intPtr(60))
	require.NoError(t, err)
	_, err = f.usage.Report(ctx, childSession, 60, 3)
	require.NoError(t, err)

	status, err = f.status.Status(ctx, parentSession, "child-1")
	require.NoError(t, err)
	assert.True(t, status.IsRestricted)
	assert.Equal(t, models.ReasonQuotaExceeded, status.Reason)

	_, err = f.policies.SetTimeSlots(ctx, parentSession, "child-1", []string{"08:00-10:00"})
	require.NoError(t, err)
	status, err = f.status.Status(ctx, childSession, "")
	require.NoError(t, err)
	assert.Equal(t, models.ReasonOutsideTimeWindow, status.Reason, "window outranks quota")
}

func TestStatusUsesConfiguredZone(t *testing.T) {
	ctx := context.Background()
	// 03:30 UTC is 08:30 in Almaty.
	f := newFamily(time.Date(2026, 3, 10, 3, 30, 0, 0, time.UTC))

	_, err := f.policies.SetTimeSlots(ctx, parentSession, "child-1", []string{"08:00-09:00"})
	require.NoError(t, err)

	status, err := f.status.Status(ctx, childSession, "")
	require.NoError(t, err)
	assert.False(t, status.IsRestricted)
}

func TestStatusOfForeignChild(t *testing.T) {
	f := newFamily(time.Date(2026, 3, 10, 12, 0, 0, 0, almaty))

	_, err := f.status.Status(context.Background(), strangerSession, "child-1")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
