package recon

// BaseYearResult records the base-year stage for one tenant run.
type BaseYearResult struct {
	Applied   bool
	Deduction Money
	After     Money
}

// ApplyBaseYear deducts the tenant's base-year amount from the eligible
// expense total. The deduction applies only for reconciliation years
// strictly after the base year, and the result never goes below zero:
// expenses falling under the base-year level produce a zero recovery,
// not a credit.
func ApplyBaseYear(total Money, s *EffectiveSettings, reconYear int) BaseYearResult {
	if s.BaseYear == 0 || reconYear <= s.BaseYear {
		return BaseYearResult{After: total}
	}
	after := total.Sub(s.BaseYearAmount).Max(ZeroMoney())
	return BaseYearResult{
		Applied:   true,
		Deduction: total.Sub(after),
		After:     after,
	}
}
