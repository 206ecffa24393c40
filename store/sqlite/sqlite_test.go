package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/recon-engine/recon"
	"github.com/warp/recon-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func camKey(tenant string, year int) recon.CapHistoryKey {
	return recon.CapHistoryKey{
		Property: "ELW", Tenant: recon.TenantID(tenant),
		Category: recon.CategoryCAM, Year: year,
	}
}

func pctPtr(points float64) *recon.Percent {
	p := recon.PercentFromPoints(points)
	return &p
}

// =============================================================================
// CAP HISTORY
// =============================================================================

func TestSQLite_CapHistoryCommitAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Commit(ctx, []recon.CapHistoryUpdate{
		{Key: camKey("1330", 2023), Amount: recon.NewMoneyFromInt(100000)},
		{Key: camKey("1330", 2024), Amount: recon.NewMoneyFromInt(105000)},
	})
	require.NoError(t, err)

	hist, err := store.History(ctx, "ELW", "1330", recon.CategoryCAM)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
	assert.Equal(t, "105000.00", hist[2024].String())

	amount, err := store.Read(ctx, camKey("1330", 2023))
	require.NoError(t, err)
	assert.Equal(t, "100000.00", amount.String())

	_, err = store.Read(ctx, camKey("1330", 1999))
	assert.True(t, errors.Is(err, recon.ErrCapHistory))
}

func TestSQLite_CommitUpsertsOnRerun(t *testing.T) {
	// Re-running a reconciliation overwrites the year's committed amount.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Commit(ctx, []recon.CapHistoryUpdate{
		{Key: camKey("1330", 2024), Amount: recon.NewMoneyFromInt(100)},
	}))
	require.NoError(t, store.Commit(ctx, []recon.CapHistoryUpdate{
		{Key: camKey("1330", 2024), Amount: recon.NewMoneyFromInt(175)},
	}))

	amount, err := store.Read(ctx, camKey("1330", 2024))
	require.NoError(t, err)
	assert.Equal(t, "175.00", amount.String())
}

func TestSQLite_ConflictingBatchLeavesHistoryUntouched(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Commit(ctx, []recon.CapHistoryUpdate{
		{Key: camKey("1330", 2024), Amount: recon.NewMoneyFromInt(100)},
		{Key: camKey("1330", 2024), Amount: recon.NewMoneyFromInt(200)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, recon.ErrHistoryConflict))

	hist, err := store.History(ctx, "ELW", "1330", recon.CategoryCAM)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

// =============================================================================
// ESTIMATES
// =============================================================================

func TestSQLite_EstimateUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.LastEstimate(ctx, "ELW", "1330")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SetEstimate(ctx, "ELW", "1330", recon.NewMoneyFromInt(800)))
	require.NoError(t, store.SetEstimate(ctx, "ELW", "1330", recon.NewMoneyFromInt(950)))

	got, err := store.LastEstimate(ctx, "ELW", "1330")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "950.00", got.String())
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestSQLite_PaymentsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordPayment(ctx, recon.PaymentRecord{
		Property: "ELW", Tenant: "1330",
		Period: recon.NewPeriod(2024, time.April), Amount: recon.NewMoneyFromInt(800),
	}))
	require.NoError(t, store.RecordPayment(ctx, recon.PaymentRecord{
		Property: "ELW", Tenant: "1330",
		Period: recon.NewPeriod(2024, time.March), Amount: recon.NewMoney(812.50),
	}))

	recs, err := store.Payments(ctx, "ELW", "1330")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "202403", recs[0].Period.String(), "ordered by period")
	assert.Equal(t, "812.50", recs[0].Amount.String())

	none, err := store.Payments(ctx, "ELW", "9999")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// GL LINES
// =============================================================================

func TestSQLite_GLLinesRoundTripAndReimport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lines := []recon.GLLineItem{
		{Property: "ELW", Period: recon.NewPeriod(2024, time.March),
			Account: "510200", Description: "Landscaping", Amount: recon.NewMoney(1234.56)},
		{Property: "ELW", Period: recon.NewPeriod(2024, time.April),
			Account: "510200", Amount: recon.NewMoney(1300)},
	}
	require.NoError(t, store.SaveGLLines(ctx, lines))

	loaded, err := store.LoadGLLines(ctx, "ELW")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "1234.56", loaded[0].Amount.String())
	assert.Equal(t, "Landscaping", loaded[0].Description)

	// Re-importing March replaces March and leaves April alone.
	march := []recon.GLLineItem{
		{Property: "ELW", Period: recon.NewPeriod(2024, time.March),
			Account: "510300", Amount: recon.NewMoney(999)},
	}
	require.NoError(t, store.SaveGLLines(ctx, march))

	loaded, err = store.LoadGLLines(ctx, "ELW")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, recon.GLAccount("510300"), loaded[0].Account)
	assert.Equal(t, "202404", loaded[1].Period.String())
}

// =============================================================================
// ENGINE INTEGRATION
// =============================================================================

func TestSQLite_EngineRunsAgainstTheStore(t *testing.T) {
	// GIVEN: An engine wired to SQLite for both history and estimates
	// WHEN: A capped tenant reconciles two consecutive years
	// THEN: Year two's cap references year one's committed amount

	store := newTestStore(t)
	engine := recon.NewEngine(store, store)
	ctx := context.Background()

	tenant := recon.TenantConfig{
		Tenant: "1330",
		Layer: recon.ConfigLayer{
			ProrationMethod: recon.ProrateFixed,
			FixedShare:      pctPtr(100),
			CapPercent:      pctPtr(5),
		},
	}

	var lines2023, lines2024 []recon.GLLineItem
	for m := time.January; m <= time.December; m++ {
		lines2023 = append(lines2023, recon.GLLineItem{
			Property: "ELW", Period: recon.NewPeriod(2023, m),
			Account: "510200", Amount: recon.NewMoney(10000),
		})
		lines2024 = append(lines2024, recon.GLLineItem{
			Property: "ELW", Period: recon.NewPeriod(2024, m),
			Account: "510200", Amount: recon.NewMoney(15000),
		})
	}

	res1, err := engine.Run(ctx, recon.RunRequest{
		Property: "ELW", Year: 2023,
		Tenants: []recon.TenantConfig{tenant}, Lines: lines2023,
	})
	require.NoError(t, err)
	assert.True(t, res1.Committed)
	assert.True(t, res1.Results[0].FirstBillingCap)

	res2, err := engine.Run(ctx, recon.RunRequest{
		Property: "ELW", Year: 2024,
		Tenants: []recon.TenantConfig{tenant}, Lines: lines2024,
	})
	require.NoError(t, err)

	tr := res2.Results[0]
	assert.True(t, tr.CapApplied)
	assert.Equal(t, "120000.00", tr.CapReference.String())
	assert.Equal(t, "126000.00", tr.AfterCap.String())
}
