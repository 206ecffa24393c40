package recon

// AmortizedExpense is one capital item's contribution to a single
// reconciliation year.
type AmortizedExpense struct {
	Item         CapitalExpenseItem
	AnnualAmount Money
	TenantOnly   bool
}

// AmortizeCapital returns the active amortized contributions for the
// year. Property-level items are amortized before proration and flow
// through the tenant's share; tenant-only items are charged to the one
// tenant in full, after proration.
func AmortizeCapital(s *EffectiveSettings, year int) (propertyTotal, tenantTotal Money, breakdown []AmortizedExpense) {
	for _, item := range s.PropertyCapital {
		if !item.ActiveIn(year) {
			continue
		}
		annual := item.AnnualAmount()
		propertyTotal = propertyTotal.Add(annual)
		breakdown = append(breakdown, AmortizedExpense{Item: item, AnnualAmount: annual})
	}
	for _, item := range s.TenantCapital {
		if !item.ActiveIn(year) {
			continue
		}
		annual := item.AnnualAmount()
		tenantTotal = tenantTotal.Add(annual)
		breakdown = append(breakdown, AmortizedExpense{Item: item, AnnualAmount: annual, TenantOnly: true})
	}
	return propertyTotal, tenantTotal, breakdown
}
