package opportunity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus_Archived(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	archived := now.Add(-24 * time.Hour)
	status, active := DeriveStatus(now, &archived, nil)
	require.Equal(t, LifecycleArchived, status)
	require.False(t, active)
}

func TestDeriveStatus_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deadline := now.Add(-24 * time.Hour)
	archive := now.Add(24 * time.Hour)
	status, active := DeriveStatus(now, &archive, &deadline)
	require.Equal(t, LifecycleExpired, status)
	require.False(t, active)
}

func TestDeriveStatus_Active(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deadline := now.Add(24 * time.Hour)
	archive := now.Add(48 * time.Hour)
	status, active := DeriveStatus(now, &archive, &deadline)
	require.Equal(t, LifecycleActive, status)
	require.True(t, active)
}

func TestDeriveStatus_NoDates(t *testing.T) {
	status, active := DeriveStatus(time.Now(), nil, nil)
	require.Equal(t, LifecycleActive, status)
	require.True(t, active)
}
