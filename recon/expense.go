/*
expense.go - Category totals and administrative fee

PURPOSE:
  Computes the recoverable expense figures for one tenant run from the
  categorized ledger: CAM net, RET net, the admin-fee base and amount,
  and the base-year-eligible net that the base-year stage consumes.

ADMIN FEE:
  The fee is a management markup on CAM. It is computed per line so that
  account-specific override rules apply at their natural granularity,
  then summed. Amortized property capital joins the fee base at the
  scalar percentage. Real-estate taxes join only when the configuration
  says so; the default is CAM only.

PROPERTY-LEVEL INVARIANT:
  Every input here is property-level (pre-proration), so two tenants of
  the same property with identical settings see the identical fee.

SEE ALSO:
  - glfilter.go: produces the categorized lines and per-line percentages
  - baseyear.go: consumes BaseNetTotal
*/
package recon

// ExpenseSummary carries the property-level expense figures for one
// tenant run, before base-year, cap, and proration.
type ExpenseSummary struct {
	Totals         map[Category]CategoryTotals
	CAMNet         Money
	RETNet         Money
	AdminFeeBase   Money
	AdminFeeAmount Money

	// BaseNetTotal is the net over base-eligible lines plus the admin
	// fee; the base-year deduction applies against this figure.
	BaseNetTotal Money

	// CapNetTotal is the net over cap-eligible lines plus the admin fee;
	// cap enforcement applies against this figure after base-year.
	CapNetTotal Money

	// CapNetByCategory splits CapNetTotal per category (admin fee counts
	// under CAM). The pipeline uses the weights to apportion committed
	// history amounts.
	CapNetByCategory map[Category]Money
}

// ComputeExpenses derives the expense summary from a filtered ledger and
// the amortized property capital for the year.
func ComputeExpenses(f *FilterResult, s *EffectiveSettings, propertyCapital Money) *ExpenseSummary {
	sum := &ExpenseSummary{Totals: f.Totals, CapNetByCategory: make(map[Category]Money)}
	sum.CAMNet = f.Totals[CategoryCAM].Net
	sum.RETNet = f.Totals[CategoryRET].Net

	var baseNet, capNet Money
	for _, cl := range f.Lines {
		if cl.Excluded {
			continue
		}
		if cl.AdminFeeEligible {
			sum.AdminFeeBase = sum.AdminFeeBase.Add(cl.Line.Amount)
			sum.AdminFeeAmount = sum.AdminFeeAmount.Add(cl.AdminFeePercent.ApplyTo(cl.Line.Amount))
		}
		if cl.BaseEligible {
			baseNet = baseNet.Add(cl.Line.Amount)
		}
		if cl.CapEligible {
			capNet = capNet.Add(cl.Line.Amount)
			sum.CapNetByCategory[cl.Category] = sum.CapNetByCategory[cl.Category].Add(cl.Line.Amount)
		}
	}

	// Amortized capital joins the fee base at the scalar percentage.
	if propertyCapital.IsPositive() && s.AdminFeePercent.IsSet() {
		sum.AdminFeeBase = sum.AdminFeeBase.Add(propertyCapital)
		sum.AdminFeeAmount = sum.AdminFeeAmount.Add(s.AdminFeePercent.ApplyTo(propertyCapital))
	}

	// Taxes join the fee base only when explicitly enabled.
	if s.AdminFeeOnRET && s.AdminFeePercent.IsSet() {
		sum.AdminFeeBase = sum.AdminFeeBase.Add(sum.RETNet)
		sum.AdminFeeAmount = sum.AdminFeeAmount.Add(s.AdminFeePercent.ApplyTo(sum.RETNet))
	}

	sum.BaseNetTotal = baseNet.Add(sum.AdminFeeAmount)
	sum.CapNetTotal = capNet.Add(sum.AdminFeeAmount)
	sum.CapNetByCategory[CategoryCAM] = sum.CapNetByCategory[CategoryCAM].Add(sum.AdminFeeAmount)
	return sum
}

// TotalNet sums the per-category net figures and the admin fee. This is
// the property-level recoverable amount before base-year and cap stages.
func (sum *ExpenseSummary) TotalNet(categories []Category) Money {
	total := sum.AdminFeeAmount
	for _, cat := range categories {
		total = total.Add(sum.Totals[cat].Net)
	}
	return total
}
