package kvstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryOpportunityStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOpportunityStore()

	archived := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Upsert(ctx, "N1", "DOD", "541512", &archived, json.RawMessage(`{"noticeId":"N1"}`)))
	require.NoError(t, store.Upsert(ctx, "N2", "DOD", "541511", nil, json.RawMessage(`{"noticeId":"N2"}`)))

	got, err := store.Get(ctx, "N1")
	require.NoError(t, err)
	require.JSONEq(t, `{"noticeId":"N1"}`, string(got))

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	byAgency, err := store.ListByAgency(ctx, "DOD")
	require.NoError(t, err)
	require.Len(t, byAgency, 2)

	byNAICS, err := store.ListByNAICS(ctx, "541512")
	require.NoError(t, err)
	require.Len(t, byNAICS, 1)

	archivedBefore, err := store.ListArchivedBefore(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, archivedBefore, 1)

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1) // N1 archived in the past, N2 never archived
}

func TestMemoryCompanyStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCompanyStore()

	require.NoError(t, store.Upsert(ctx, "C1", "T1", json.RawMessage(`{"companyId":"C1"}`)))
	got, err := store.Get(ctx, "C1")
	require.NoError(t, err)
	require.JSONEq(t, `{"companyId":"C1"}`, string(got))

	byTenant, err := store.ListByTenant(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, byTenant, 1)

	require.NoError(t, store.Upsert(ctx, "C2", "T2", json.RawMessage(`{"companyId":"C2"}`)))
	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestMemoryMatchStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryMatchStore()

	require.NoError(t, store.Upsert(ctx, "C1", "N1", json.RawMessage(`{"score":0.9}`)))
	require.NoError(t, store.Upsert(ctx, "C1", "N2", json.RawMessage(`{"score":0.5}`)))

	got, err := store.Get(ctx, "C1", "N1")
	require.NoError(t, err)
	require.JSONEq(t, `{"score":0.9}`, string(got))

	list, err := store.ListByCompany(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestMemoryWeightConfigStore_History(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWeightConfigStore()

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	require.NoError(t, store.PutVersion(ctx, "default", t1, json.RawMessage(`{"v":1}`)))
	require.NoError(t, store.PutVersion(ctx, "default", t2, json.RawMessage(`{"v":2}`)))

	latest, err := store.Latest(ctx, "default")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":2}`, string(latest))

	history, err := store.History(ctx, "default")
	require.NoError(t, err)
	require.Len(t, history, 2)

	_, err = store.Latest(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAuditLogStore_Append(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuditLogStore()

	require.NoError(t, store.Append(ctx, "T1", time.Now(), json.RawMessage(`{"action":"update"}`)))
	require.NoError(t, store.Append(ctx, "T2", time.Now(), json.RawMessage(`{"action":"update"}`)))

	list, err := store.ListByTenant(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMemoryBatchCoordinationAndProgressStores(t *testing.T) {
	ctx := context.Background()
	coord := NewMemoryBatchCoordinationStore()
	require.NoError(t, coord.Upsert(ctx, "run-1", "running", json.RawMessage(`{"status":"running"}`)))
	got, err := coord.Get(ctx, "run-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"running"}`, string(got))

	active, err := coord.ListActiveSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 1)

	progress := NewMemoryProgressStore()
	require.NoError(t, progress.Upsert(ctx, "run-1", "batch-2", json.RawMessage(`{"pct":50}`)))
	require.NoError(t, progress.Upsert(ctx, "run-1", "batch-1", json.RawMessage(`{"pct":100}`)))

	list, err := progress.ListByCoordination(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.JSONEq(t, `{"pct":100}`, string(list[0]))
}
