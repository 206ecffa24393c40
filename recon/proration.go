/*
proration.go - Tenant share and occupancy proration

PURPOSE:
  Converts the property-level capped total into the tenant's charge:
  first the pro-rata share (rentable square feet or a fixed percentage),
  then the occupancy factor for partial-year leases.

OCCUPANCY:
  Each month contributes overlap-days / days-in-month, where the overlap
  is the intersection of the lease term with the month. The year factor
  is the mean of the twelve monthly fractions, so a lease covering nine
  full months yields 0.75. No lease dates means full occupancy.

SEE ALSO:
  - settings.go: proration method and square footage inputs
*/
package recon

import (
	"time"

	"github.com/shopspring/decimal"
)

var twelve = decimal.NewFromInt(12)

// ShareOf resolves the tenant's pro-rata share percentage.
func ShareOf(s *EffectiveSettings) (Percent, error) {
	switch s.ProrationMethod {
	case ProrateFixed:
		return s.FixedShare, nil
	case ProrateRSF:
		if !s.TotalSquareFeet.IsPositive() {
			return Percent{}, &ConfigurationError{Field: "total_square_feet", Tenant: s.Tenant,
				Reason: "RSF proration requires a positive property square footage"}
		}
		return PercentFromDecimalFraction(s.SquareFeet.Div(s.TotalSquareFeet)), nil
	default:
		return Percent{}, &ConfigurationError{Field: "proration_method", Tenant: s.Tenant,
			Reason: "unknown method " + string(s.ProrationMethod)}
	}
}

// MonthOccupancy returns the fraction of one period covered by the lease
// term, in [0, 1]. Nil bounds are open-ended.
func MonthOccupancy(p Period, leaseStart, leaseEnd *time.Time) decimal.Decimal {
	start := p.FirstDay()
	end := p.LastDay()

	if leaseStart != nil && leaseStart.After(start) {
		start = truncateDay(*leaseStart)
	}
	if leaseEnd != nil && leaseEnd.Before(end) {
		end = truncateDay(*leaseEnd)
	}
	if end.Before(start) {
		return decimal.Zero
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(int64(p.Days())))
}

// YearOccupancy averages the monthly fractions over the reconciliation
// year.
func YearOccupancy(s *EffectiveSettings, reconYear int) decimal.Decimal {
	if s.LeaseStart == nil && s.LeaseEnd == nil {
		return decimal.NewFromInt(1)
	}
	var sum decimal.Decimal
	for _, p := range ReconPeriods(reconYear) {
		sum = sum.Add(MonthOccupancy(p, s.LeaseStart, s.LeaseEnd))
	}
	return sum.Div(twelve)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
