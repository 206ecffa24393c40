package recon_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/recon-engine/recon"
)

// =============================================================================
// BASE YEAR
// =============================================================================

func TestApplyBaseYear_DeductsOnlyAfterTheBaseYear(t *testing.T) {
	s := settingsRSF(t, recon.ConfigLayer{
		BaseYear:       intPtr(2022),
		BaseYearAmount: moneyPtr(10000),
	})

	// Reconciling the base year itself: no deduction.
	same := recon.ApplyBaseYear(recon.NewMoneyFromInt(120000), s, 2022)
	assert.False(t, same.Applied)
	assert.Equal(t, "120000.00", same.After.String())

	// A later year deducts the base amount.
	later := recon.ApplyBaseYear(recon.NewMoneyFromInt(120000), s, 2024)
	assert.True(t, later.Applied)
	assert.Equal(t, "10000.00", later.Deduction.String())
	assert.Equal(t, "110000.00", later.After.String())
}

func TestApplyBaseYear_NeverGoesNegative(t *testing.T) {
	// GIVEN: Expenses below the base-year level
	// THEN: The recovery floors at zero, the deduction never exceeds the total

	s := settingsRSF(t, recon.ConfigLayer{
		BaseYear:       intPtr(2022),
		BaseYearAmount: moneyPtr(10000),
	})

	res := recon.ApplyBaseYear(recon.NewMoneyFromInt(6000), s, 2024)

	assert.True(t, res.After.IsZero())
	assert.Equal(t, "6000.00", res.Deduction.String(), "deduction capped at the amount it reduces")
}

// =============================================================================
// CAPS
// =============================================================================

func capSettings(t *testing.T, layer recon.ConfigLayer) *recon.EffectiveSettings {
	t.Helper()
	return settingsRSF(t, layer)
}

func TestEnforceCap_PreviousYearReference(t *testing.T) {
	// GIVEN: Last year's committed amount of 100,000 and a 5% cap
	// WHEN: This year's expenses are 110,000
	// THEN: The limit is 105,000 and 5,000 is deducted

	s := capSettings(t, recon.ConfigLayer{CapPercent: pctPtr(5)})
	hist := recon.CapHistory{2023: recon.NewMoneyFromInt(100000)}

	res := recon.EnforceCap(recon.NewMoneyFromInt(110000), s, 2024, hist)

	assert.True(t, res.Applied)
	assert.Equal(t, "105000.00", res.Limit.String())
	assert.Equal(t, "5000.00", res.Deduction.String())
	assert.Equal(t, "105000.00", res.After.String())
}

func TestEnforceCap_UnderTheLimitPassesThrough(t *testing.T) {
	s := capSettings(t, recon.ConfigLayer{CapPercent: pctPtr(5)})
	hist := recon.CapHistory{2023: recon.NewMoneyFromInt(100000)}

	res := recon.EnforceCap(recon.NewMoneyFromInt(103000), s, 2024, hist)

	assert.False(t, res.Applied)
	assert.True(t, res.Deduction.IsZero())
	assert.Equal(t, "103000.00", res.After.String())
}

func TestEnforceCap_NoHistoryMeansFirstBilling(t *testing.T) {
	// GIVEN: A cap configured but no history at all
	// THEN: The amount passes through uncapped, flagged first-billing

	s := capSettings(t, recon.ConfigLayer{CapPercent: pctPtr(5)})

	res := recon.EnforceCap(recon.NewMoneyFromInt(110000), s, 2024, recon.CapHistory{})

	assert.True(t, res.FirstBilling)
	assert.False(t, res.Applied)
	assert.Equal(t, "110000.00", res.After.String())
}

func TestEnforceCap_HighestPreviousYearReference(t *testing.T) {
	s := capSettings(t, recon.ConfigLayer{
		CapPercent: pctPtr(5),
		CapType:    recon.CapHighestPreviousYear,
	})
	hist := recon.CapHistory{
		2021: recon.NewMoneyFromInt(120000),
		2022: recon.NewMoneyFromInt(90000),
		2023: recon.NewMoneyFromInt(100000),
		2025: recon.NewMoneyFromInt(999999), // future years never count
	}

	res := recon.EnforceCap(recon.NewMoneyFromInt(130000), s, 2024, hist)

	assert.Equal(t, "120000.00", res.Reference.String())
	assert.Equal(t, "126000.00", res.Limit.String())
	assert.Equal(t, "126000.00", res.After.String())
}

func TestEnforceCap_MinAndMaxIncreaseClampTheLimit(t *testing.T) {
	// GIVEN: A 2% cap with a 3% minimum increase floor
	// THEN: The limit rises to the floor

	s := capSettings(t, recon.ConfigLayer{
		CapPercent:  pctPtr(2),
		MinIncrease: pctPtr(3),
	})
	hist := recon.CapHistory{2023: recon.NewMoneyFromInt(100000)}

	res := recon.EnforceCap(recon.NewMoneyFromInt(110000), s, 2024, hist)
	assert.Equal(t, "103000.00", res.Limit.String())

	// And an 8% cap with a 6% maximum increase is pulled down.
	s2 := capSettings(t, recon.ConfigLayer{
		CapPercent:  pctPtr(8),
		MaxIncrease: pctPtr(6),
	})
	res2 := recon.EnforceCap(recon.NewMoneyFromInt(110000), s2, 2024, hist)
	assert.Equal(t, "106000.00", res2.Limit.String())
}

func TestEnforceCap_ExpenseStopCeilsTheLimit(t *testing.T) {
	// GIVEN: A $2.50/sqft stop over 2,500 sqft = 6,250 ceiling
	// THEN: The stop beats the percentage limit when lower

	s := capSettings(t, recon.ConfigLayer{
		CapPercent:        pctPtr(50),
		StopAmountPerSqFt: moneyPtr(2.50),
		SquareFeet:        decPtr(2500),
	})
	hist := recon.CapHistory{2023: recon.NewMoneyFromInt(10000)}

	res := recon.EnforceCap(recon.NewMoneyFromInt(20000), s, 2024, hist)

	assert.Equal(t, "6250.00", res.Limit.String())
	assert.Equal(t, "6250.00", res.After.String())
}

func TestEnforceCap_OverrideSubstitutesTheCommittedAmount(t *testing.T) {
	// GIVEN: History says 100,000 for 2023 but a negotiated override says 90,000
	// THEN: The override is the reference

	s := capSettings(t, recon.ConfigLayer{
		CapPercent:        pctPtr(5),
		CapOverrideYear:   intPtr(2023),
		CapOverrideAmount: moneyPtr(90000),
	})
	hist := recon.CapHistory{2023: recon.NewMoneyFromInt(100000)}

	res := recon.EnforceCap(recon.NewMoneyFromInt(110000), s, 2024, hist)

	assert.Equal(t, "90000.00", res.Reference.String())
	assert.Equal(t, "94500.00", res.Limit.String())
}

// =============================================================================
// CAPITAL AMORTIZATION
// =============================================================================

func TestAmortizeCapital_StraightLineWindow(t *testing.T) {
	// GIVEN: A 50,000 roof amortized over 5 years starting 2023
	// THEN: Years 2023-2027 each carry 10,000; outside the window, nothing

	item := recon.CapitalExpenseItem{
		ID: "roof", Amount: recon.NewMoneyFromInt(50000), Year: 2023, AmortYears: 5,
	}

	assert.False(t, item.ActiveIn(2022))
	assert.True(t, item.ActiveIn(2023))
	assert.True(t, item.ActiveIn(2027))
	assert.False(t, item.ActiveIn(2028))
	assert.Equal(t, "10000.00", item.AnnualAmount().String())
}

func TestAmortizeCapital_ZeroAmortYearsMeansOneYear(t *testing.T) {
	item := recon.CapitalExpenseItem{Amount: recon.NewMoneyFromInt(7500), Year: 2024}

	assert.True(t, item.ActiveIn(2024))
	assert.False(t, item.ActiveIn(2025))
	assert.Equal(t, "7500.00", item.AnnualAmount().String())
}

func TestAmortizeCapital_SeparatesPropertyAndTenantItems(t *testing.T) {
	s := settingsRSF(t)
	s.PropertyCapital = []recon.CapitalExpenseItem{
		{ID: "roof", Amount: recon.NewMoneyFromInt(50000), Year: 2023, AmortYears: 5},
		{ID: "old", Amount: recon.NewMoneyFromInt(9000), Year: 2015, AmortYears: 3}, // expired
	}
	s.TenantCapital = []recon.CapitalExpenseItem{
		{ID: "hvac", Amount: recon.NewMoneyFromInt(12000), Year: 2024, AmortYears: 4},
	}

	propTotal, tenantTotal, breakdown := recon.AmortizeCapital(s, 2024)

	assert.Equal(t, "10000.00", propTotal.String())
	assert.Equal(t, "3000.00", tenantTotal.String())
	require.Len(t, breakdown, 2)
	assert.False(t, breakdown[0].TenantOnly)
	assert.True(t, breakdown[1].TenantOnly)
}

// =============================================================================
// PRORATION AND OCCUPANCY
// =============================================================================

func TestShareOf_RSFDividesTenantByPropertySquareFeet(t *testing.T) {
	s := settingsRSF(t, recon.ConfigLayer{
		SquareFeet:      decPtr(2500),
		TotalSquareFeet: decPtr(50000),
	})

	share, err := recon.ShareOf(s)
	require.NoError(t, err)
	assert.Equal(t, "5%", share.String())
}

func TestShareOf_RSFWithoutPropertyFootageFails(t *testing.T) {
	s := settingsRSF(t, recon.ConfigLayer{SquareFeet: decPtr(2500)})

	_, err := recon.ShareOf(s)
	require.Error(t, err)
	assert.True(t, recon.IsTenantScoped(err))
}

func TestYearOccupancy_PartialLeaseAveragesMonthlyFractions(t *testing.T) {
	// GIVEN: A lease running April 1 through year end
	// THEN: Nine full months of twelve gives 0.75

	start := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	s := settingsRSF(t, recon.ConfigLayer{LeaseStart: &start})

	occ := recon.YearOccupancy(s, 2024)
	assert.True(t, occ.Equal(decimal.NewFromFloat(0.75)), "got %s", occ)
}

func TestYearOccupancy_NoLeaseDatesMeansFullYear(t *testing.T) {
	s := settingsRSF(t)
	assert.True(t, recon.YearOccupancy(s, 2024).Equal(decimal.NewFromInt(1)))
}

func TestMonthOccupancy_MidMonthMoveIn(t *testing.T) {
	// GIVEN: A lease starting April 16
	// THEN: April (30 days) is occupied 15 days = 0.5

	start := time.Date(2024, time.April, 16, 0, 0, 0, 0, time.UTC)
	frac := recon.MonthOccupancy(recon.NewPeriod(2024, time.April), &start, nil)

	assert.True(t, frac.Equal(decimal.NewFromFloat(0.5)), "got %s", frac)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestCatchupPeriods_JanuaryAfterReconYearThroughCutoff(t *testing.T) {
	cutoff := recon.NewPeriod(2025, time.April)
	periods := recon.CatchupPeriods(2024, cutoff)

	require.Len(t, periods, 4)
	assert.Equal(t, "202501", periods[0].String())
	assert.Equal(t, "202504", periods[3].String())
}

func TestCatchupPeriods_CutoffWithinReconYearYieldsNothing(t *testing.T) {
	assert.Nil(t, recon.CatchupPeriods(2024, recon.NewPeriod(2024, time.November)))
	assert.Nil(t, recon.CatchupPeriods(2024, recon.Period{}))
}

func TestParsePeriod_RejectsBadInput(t *testing.T) {
	_, err := recon.ParsePeriod("202413")
	assert.Error(t, err)
	_, err = recon.ParsePeriod("2024")
	assert.Error(t, err)

	p, err := recon.ParsePeriod("202404")
	require.NoError(t, err)
	assert.Equal(t, 30, p.Days())
}

// =============================================================================
// PAYMENT TRACKING
// =============================================================================

func TestTrackPayments_FirstBillingWithoutPriorEstimate(t *testing.T) {
	sum := recon.TrackPayments(recon.NewMoneyFromInt(12000), nil, nil, 2024, recon.Period{}, 0)

	assert.Equal(t, recon.ChangeFirstBilling, sum.Change)
	assert.Equal(t, "1000.00", sum.NewMonthly.String())
	assert.Zero(t, sum.CatchupMonths)
	assert.Equal(t, "12000.00", sum.TotalBalance.String(), "nothing paid yet, the full year is owed")
}

func TestTrackPayments_ZeroPriorEstimateIsFirstBilling(t *testing.T) {
	// GIVEN: A prior estimate record exists but carries a zero amount
	// WHEN: Tracking payments against a 12,000 annual
	// THEN: No percentage change is defined, so this is a first billing
	//       with no catch-up, exactly as if no estimate existed

	zero := recon.ZeroMoney()
	sum := recon.TrackPayments(recon.NewMoneyFromInt(12000), &zero, nil, 2024, recon.NewPeriod(2025, time.April), 0)

	assert.Equal(t, recon.ChangeFirstBilling, sum.Change)
	assert.False(t, sum.Significant)
	assert.True(t, sum.ChangePercent.IsZero())
	assert.Zero(t, sum.CatchupMonths)
	assert.Equal(t, "12000.00", sum.TotalBalance.String())
}

func TestTrackPayments_QuarterlyBillingPeriods(t *testing.T) {
	// GIVEN: A tenant billed quarterly rather than monthly
	// THEN: The new estimate divides the annual by 4 periods

	sum := recon.TrackPayments(recon.NewMoneyFromInt(12000), nil, nil, 2024, recon.Period{}, 4)

	assert.Equal(t, "3000.00", sum.NewMonthly.String())
}

func TestTrackPayments_SignificantIncreaseWithCatchup(t *testing.T) {
	// GIVEN: Old estimate 800/month, new annual 12,000 (1,000/month)
	// WHEN: Catch-up runs through April 2025 for recon year 2024
	// THEN: +25% increase, significant, 4 months x 200 = 800 catch-up

	old := recon.NewMoneyFromInt(800)
	sum := recon.TrackPayments(recon.NewMoneyFromInt(12000), &old, nil, 2024, recon.NewPeriod(2025, time.April), 0)

	assert.Equal(t, recon.ChangeIncrease, sum.Change)
	assert.True(t, sum.ChangePercent.Equal(decimal.NewFromFloat(0.25)))
	assert.True(t, sum.Significant)
	assert.Equal(t, 4, sum.CatchupMonths)
	assert.Equal(t, "800.00", sum.CatchupAmount.String())
}

func TestTrackPayments_SmallDecreaseIsNotSignificant(t *testing.T) {
	old := recon.NewMoneyFromInt(1000)
	sum := recon.TrackPayments(recon.NewMoneyFromInt(11400), &old, nil, 2024, recon.Period{}, 0)

	assert.Equal(t, recon.ChangeDecrease, sum.Change)
	assert.False(t, sum.Significant, "5% move is below the 20% threshold")
}

func TestTrackPayments_NoChangeToTheCent(t *testing.T) {
	old := recon.NewMoneyFromInt(1000)
	sum := recon.TrackPayments(recon.NewMoneyFromInt(12000), &old, nil, 2024, recon.Period{}, 0)

	assert.Equal(t, recon.ChangeNone, sum.Change)
	assert.False(t, sum.Significant)
}

func TestTrackPayments_BalancesAgainstReceivedPayments(t *testing.T) {
	// GIVEN: Annual 12,000, estimate payments of 800 for all 12 months,
	//        plus one payment outside the reconciliation year
	// THEN: Reconciliation balance is 12,000 - 9,600 = 2,400 and the
	//       catch-up through April 2025 adds 4 x 200

	old := recon.NewMoneyFromInt(800)
	var payments []recon.PaymentRecord
	for m := time.January; m <= time.December; m++ {
		payments = append(payments, recon.PaymentRecord{
			Property: "ELW", Tenant: "1330",
			Period: recon.NewPeriod(2024, m), Amount: recon.NewMoneyFromInt(800),
		})
	}
	payments = append(payments, recon.PaymentRecord{
		Property: "ELW", Tenant: "1330",
		Period: recon.NewPeriod(2025, time.January), Amount: recon.NewMoneyFromInt(800),
	})

	sum := recon.TrackPayments(recon.NewMoneyFromInt(12000), &old, payments, 2024, recon.NewPeriod(2025, time.April), 0)

	assert.Equal(t, "9600.00", sum.PaymentsReceived.String(), "2025 payment stays out of the window")
	assert.Equal(t, "2400.00", sum.ReconciliationBalance.String())
	assert.Equal(t, "800.00", sum.CatchupAmount.String())
	assert.Equal(t, "3200.00", sum.TotalBalance.String())
}

// =============================================================================
// MANUAL OVERRIDES
// =============================================================================

func TestApplyOverride_ReplaceAndAdjustment(t *testing.T) {
	calc := recon.NewMoneyFromInt(5000)

	rep, err := recon.ApplyOverride(calc, &recon.ManualOverride{
		Mode: recon.OverrideReplace, Amount: recon.NewMoneyFromInt(4200),
	})
	require.NoError(t, err)
	assert.Equal(t, "4200.00", rep.Final.String())

	adj, err := recon.ApplyOverride(calc, &recon.ManualOverride{
		Mode: recon.OverrideAdjustment, Amount: recon.NewMoney(-300),
	})
	require.NoError(t, err)
	assert.Equal(t, "4700.00", adj.Final.String())
}

func TestApplyOverride_UnknownModeIsAConfigurationError(t *testing.T) {
	// An ambiguous override must not be guessed at.
	_, err := recon.ApplyOverride(recon.NewMoneyFromInt(5000), &recon.ManualOverride{
		Tenant: "1330", Mode: "maybe", Amount: recon.NewMoneyFromInt(1),
	})

	require.Error(t, err)
	assert.True(t, recon.IsTenantScoped(err))
}
