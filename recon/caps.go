/*
caps.go - Year-over-year cap enforcement

PURPOSE:
  Limits how fast a tenant's recoverable expense total may grow from one
  reconciliation year to the next. The cap needs a historical reference;
  with no history the run is treated as the tenant's first billing year
  and the amount passes through uncapped.

CAP FORMULA:
  limit = reference x (1 + cap%)
  limit is then clamped to [reference x (1 + min%), reference x (1 + max%)]
  when those bounds are configured, and finally to the expense stop
  (stop $/sqft x tenant sqft) when one is configured.
  capped  = min(amount, limit)

REFERENCE:
  previous_year          the committed amount for reconYear-1
  highest_previous_year  the maximum committed amount over all prior years
  A configured cap override (year, amount) substitutes the committed
  amount for that year before the reference is taken.

SEE ALSO:
  - history.go: the cap-history store the reference is read from
  - pipeline.go: commit discipline for updated history
*/
package recon

// CapHistory is one tenant's committed cap amounts by year for a single
// expense category.
type CapHistory map[int]Money

// CapResult records the cap stage for one tenant run.
type CapResult struct {
	Applied      bool
	FirstBilling bool
	Reference    Money
	Limit        Money
	Deduction    Money
	After        Money
}

// capReference resolves the historical reference amount, honoring a
// configured override for a specific year.
func capReference(hist CapHistory, cap CapSettings, reconYear int) (Money, bool) {
	lookup := func(year int) (Money, bool) {
		if cap.OverrideYear == year && cap.OverrideAmount != nil {
			return *cap.OverrideAmount, true
		}
		v, ok := hist[year]
		return v, ok
	}

	switch cap.Type {
	case CapHighestPreviousYear:
		var best Money
		found := false
		for year := range hist {
			if year >= reconYear {
				continue
			}
			if v, ok := lookup(year); ok && (!found || v.GreaterThan(best)) {
				best = v
				found = true
			}
		}
		// An override for a year absent from history still counts.
		if cap.OverrideYear != 0 && cap.OverrideYear < reconYear && cap.OverrideAmount != nil {
			if !found || cap.OverrideAmount.GreaterThan(best) {
				best = *cap.OverrideAmount
				found = true
			}
		}
		return best, found
	default: // CapPreviousYear
		return lookup(reconYear - 1)
	}
}

// EnforceCap applies the configured cap to the expense amount. A cap
// with no usable history reference is skipped and flagged as the first
// billing year.
func EnforceCap(amount Money, s *EffectiveSettings, reconYear int, hist CapHistory) CapResult {
	if !s.Cap.Enabled() {
		return CapResult{After: amount}
	}

	ref, ok := capReference(hist, s.Cap, reconYear)
	if !ok {
		return CapResult{FirstBilling: true, After: amount}
	}

	limit := ref.Add(s.Cap.Percent.ApplyTo(ref))
	if s.Cap.MinIncrease.IsSet() {
		floor := ref.Add(s.Cap.MinIncrease.ApplyTo(ref))
		limit = limit.Max(floor)
	}
	if s.Cap.MaxIncrease.IsSet() {
		ceiling := ref.Add(s.Cap.MaxIncrease.ApplyTo(ref))
		limit = limit.Min(ceiling)
	}
	if s.Cap.StopAmountPerSqFt != nil && s.SquareFeet.IsPositive() {
		stop := s.Cap.StopAmountPerSqFt.Mul(s.SquareFeet)
		limit = limit.Min(stop)
	}

	after := amount.Min(limit)
	return CapResult{
		Applied:   amount.GreaterThan(limit),
		Reference: ref,
		Limit:     limit,
		Deduction: amount.Sub(after),
		After:     after,
	}
}
