package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zline/bi-engine/engine"
	"github.com/zline/bi-engine/session"
	"github.com/zline/bi-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSnapshot(id string, createdAt time.Time) session.Snapshot {
	settings := engine.DefaultSettings()
	settings.OneTimeAdjustment = decimal.NewFromFloat(12.5)
	return session.Snapshot{
		ID:        id,
		CreatedAt: createdAt,
		CreatedBy: "u-1",
		Clients: []engine.ClientRecord{
			{
				ID: "c-a", ClientName: "Alpha Studio", PeriodKey: "December/2025",
				ActiveStatus: engine.StatusActive, StatusDetail: "renewed",
				GrossRevenue:       decimal.RequireFromString("1000.55"),
				NetRevenueAfterTax: decimal.RequireFromString("900.45"),
				UnitsContracted:    20, UnitsDelivered: 10, UnitsUndelivered: 10,
			},
		},
		Costs: []engine.CostRecord{
			{
				ID: "x-1", CostLabel: "Editor", PeriodKey: "December/2025",
				MonthlyValue:   decimal.RequireFromString("300.10"),
				ActiveInPeriod: true, CostType: engine.CostTypeFixed,
			},
		},
		Periods:  []engine.PeriodKey{"December/2025"},
		Settings: settings,
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sampleSnapshot("snap-1", time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx, "snap-1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.CreatedBy, got.CreatedBy)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

	require.Len(t, got.Clients, 1)
	assert.Equal(t, want.Clients[0].ClientName, got.Clients[0].ClientName)
	assert.True(t, want.Clients[0].NetRevenueAfterTax.Equal(got.Clients[0].NetRevenueAfterTax),
		"money must survive the TEXT round trip exactly")

	require.Len(t, got.Costs, 1)
	assert.True(t, want.Costs[0].MonthlyValue.Equal(got.Costs[0].MonthlyValue))
	assert.Equal(t, engine.CostTypeFixed, got.Costs[0].CostType)

	assert.Equal(t, want.Periods, got.Periods)
	assert.True(t, want.Settings.OneTimeAdjustment.Equal(got.Settings.OneTimeAdjustment))
	assert.Equal(t, want.Settings.AllocationMethod, got.Settings.AllocationMethod)
}

func TestSave_DuplicateIDRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := sampleSnapshot("snap-1", time.Now())
	require.NoError(t, store.Save(ctx, snap))
	require.Error(t, store.Save(ctx, snap))
}

func TestLatest_PicksNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := sampleSnapshot("snap-old", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	newer := sampleSnapshot("snap-new", time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, older))
	require.NoError(t, store.Save(ctx, newer))

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snap-new", got.ID)
}

func TestLoad_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrSnapshotNotFound)

	_, err = store.Latest(context.Background())
	assert.ErrorIs(t, err, session.ErrSnapshotNotFound)
}
