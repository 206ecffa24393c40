/*
payment.go - Monthly estimate tracking and catch-up billing

PURPOSE:
  Translates a tenant's reconciled annual amount into the forward-looking
  monthly estimate, classifies the change against the previous estimate,
  and computes the catch-up owed for months already billed at the old
  rate.

CLASSIFICATION:
  first_billing  no previous estimate exists, or the previous estimate
                 is zero (a percentage change is undefined either way)
  increase       new monthly estimate above the old
  decrease       new monthly estimate below the old
  no_change      identical to the cent
  A change of 20% or more in either direction is flagged significant so
  that letters and approvals can call it out.

BALANCES:
  The reconciliation balance is the annual amount less every payment
  received during the reconciliation year. Reconciliation for year Y
  completes during Y+1 while the tenant keeps paying the old estimate,
  so every month from January of Y+1 through the billing cutoff is
  trued up at (new - old) per month; that catch-up plus the
  reconciliation balance is the total owed.

SEE ALSO:
  - period.go: CatchupPeriods window arithmetic
*/
package recon

import "github.com/shopspring/decimal"

// PaymentChange classifies the move from the old monthly estimate to
// the new one.
type PaymentChange string

const (
	ChangeFirstBilling PaymentChange = "first_billing"
	ChangeIncrease     PaymentChange = "increase"
	ChangeDecrease     PaymentChange = "decrease"
	ChangeNone         PaymentChange = "no_change"
)

// significantChange is the fractional threshold for flagging a change.
var significantChange = decimal.NewFromFloat(0.20)

// PaymentSummary is the payment stage of a tenant result.
type PaymentSummary struct {
	AnnualAmount  Money
	OldMonthly    Money
	NewMonthly    Money
	Change        PaymentChange
	ChangePercent decimal.Decimal // signed fraction, 0.25 = +25%
	Significant   bool

	// PaymentsReceived sums the recorded payments falling inside the
	// reconciliation year; ReconciliationBalance is the annual amount
	// less those payments.
	PaymentsReceived      Money
	ReconciliationBalance Money

	CatchupMonths int
	CatchupAmount Money

	// TotalBalance = ReconciliationBalance + CatchupAmount.
	TotalBalance Money
}

// TrackPayments derives the payment summary for one tenant. oldMonthly
// is nil when the tenant has never been billed an estimate before; a
// zero estimate is treated the same way. periodsCount is the number of
// billing periods per year, 12 when not positive.
func TrackPayments(annual Money, oldMonthly *Money, payments []PaymentRecord, reconYear int, cutoff Period, periodsCount int) PaymentSummary {
	if periodsCount <= 0 {
		periodsCount = 12
	}
	sum := PaymentSummary{
		AnnualAmount: annual,
		NewMonthly:   annual.Div(decimal.NewFromInt(int64(periodsCount))).Round(),
	}

	window := NewPeriodSet(ReconPeriods(reconYear))
	for _, p := range payments {
		if window.Contains(p.Period) {
			sum.PaymentsReceived = sum.PaymentsReceived.Add(p.Amount)
		}
	}
	sum.ReconciliationBalance = annual.Sub(sum.PaymentsReceived)

	if oldMonthly == nil || oldMonthly.IsZero() {
		sum.Change = ChangeFirstBilling
		sum.TotalBalance = sum.ReconciliationBalance
		return sum
	}
	sum.OldMonthly = *oldMonthly

	diff := sum.NewMonthly.Sub(sum.OldMonthly)
	switch {
	case diff.IsZero():
		sum.Change = ChangeNone
	case diff.IsPositive():
		sum.Change = ChangeIncrease
	default:
		sum.Change = ChangeDecrease
	}

	sum.ChangePercent = diff.Value.Div(sum.OldMonthly.Value.Abs())
	sum.Significant = sum.ChangePercent.Abs().GreaterThanOrEqual(significantChange)

	catchup := CatchupPeriods(reconYear, cutoff)
	sum.CatchupMonths = len(catchup)
	if sum.CatchupMonths > 0 {
		sum.CatchupAmount = diff.Mul(decimal.NewFromInt(int64(sum.CatchupMonths)))
	}
	sum.TotalBalance = sum.ReconciliationBalance.Add(sum.CatchupAmount)
	return sum
}
