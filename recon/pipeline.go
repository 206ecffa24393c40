/*
pipeline.go - Batch orchestration and commit discipline

PURPOSE:
  Runs the reconciliation for one property and year over a fixed input
  snapshot: per-tenant settings resolution, ledger filtering, expense
  math, base-year and cap stages, capital amortization, proration,
  manual overrides, and payment tracking. Each tenant is a pure function
  of the snapshot; tenants share no mutable state.

COMMIT DISCIPLINE:
  Cap-history updates are buffered during the run and committed in one
  step only after EVERY selected tenant computed successfully and the
  run is not a dry run. A failure anywhere leaves history untouched, so
  a rerun sees exactly the references the failed run saw.

ERROR POLICY:
  ConfigurationError  fails the affected tenant; the batch continues
  unusable line       skipped by the filter with an audit note
  cap-history miss    first-billing semantics, never fatal
  store read failure  fails the affected tenant

SEE ALSO:
  - history.go: store contracts and batch validation
  - settings.go: the per-tenant merge this pipeline starts from
*/
package recon

import (
	"context"
	"fmt"
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// TenantConfig pairs a tenant with its configuration layer.
type TenantConfig struct {
	Tenant TenantID
	Layer  ConfigLayer
}

// RunRequest is the fixed input snapshot for one batch run. Nothing in
// it is mutated.
type RunRequest struct {
	Property PropertyID
	Year     int

	Portfolio      ConfigLayer
	PropertyConfig ConfigLayer
	Tenants        []TenantConfig

	// OnlyTenant restricts the run to a single tenant when non-empty.
	OnlyTenant TenantID

	Lines     []GLLineItem
	Overrides map[OverrideKey]ManualOverride

	// Categories defaults to AllCategories when empty.
	Categories []Category

	// Cutoff bounds catch-up billing; zero means no catch-up.
	Cutoff Period

	// PeriodsCount is the number of billing periods per year for the new
	// monthly estimate; 0 means 12.
	PeriodsCount int

	// DryRun suppresses the cap-history commit. Dry runs are idempotent.
	DryRun bool
}

// TenantFailure records one tenant the batch could not compute.
type TenantFailure struct {
	Tenant TenantID
	Err    error
}

// RunResult is the outcome of one batch run.
type RunResult struct {
	Property  PropertyID
	Year      int
	Results   []*TenantReconciliationResult
	Failures  []TenantFailure
	Committed bool
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs reconciliation batches. Both stores may be nil: a nil
// history store means every tenant is in its first billing year, a nil
// payment store means no prior estimates exist.
type Engine struct {
	History  CapHistoryStore
	Payments PaymentHistoryStore
}

func NewEngine(history CapHistoryStore, payments PaymentHistoryStore) *Engine {
	return &Engine{History: history, Payments: payments}
}

// Run executes the batch. Per-tenant failures are collected, not
// returned; the returned error covers request validation and the
// history commit only.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.Property == "" {
		return nil, fmt.Errorf("run: property is required")
	}
	if req.Year < 2000 || req.Year > 2100 {
		return nil, fmt.Errorf("run: implausible reconciliation year %d", req.Year)
	}
	categories := req.Categories
	if len(categories) == 0 {
		categories = AllCategories
	}
	for _, cat := range categories {
		if cat != CategoryCAM && cat != CategoryRET {
			return nil, fmt.Errorf("run: unknown category %q", cat)
		}
	}

	periods := NewPeriodSet(ReconPeriods(req.Year))
	res := &RunResult{Property: req.Property, Year: req.Year}
	var pending []CapHistoryUpdate

	for _, tc := range req.Tenants {
		if req.OnlyTenant != "" && tc.Tenant != req.OnlyTenant {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tr, updates, err := e.runTenant(ctx, req, tc, categories, periods)
		if err != nil {
			res.Failures = append(res.Failures, TenantFailure{Tenant: tc.Tenant, Err: err})
			continue
		}
		res.Results = append(res.Results, tr)
		pending = append(pending, updates...)
	}

	if !req.DryRun && len(res.Failures) == 0 && len(pending) > 0 && e.History != nil {
		if err := ValidateCommitBatch(pending); err != nil {
			return res, err
		}
		if err := e.History.Commit(ctx, pending); err != nil {
			return res, fmt.Errorf("run: committing cap history: %w", err)
		}
		res.Committed = true
	}
	return res, nil
}

// =============================================================================
// PER-TENANT COMPUTATION
// =============================================================================

func (e *Engine) runTenant(ctx context.Context, req RunRequest, tc TenantConfig,
	categories []Category, periods PeriodSet) (*TenantReconciliationResult, []CapHistoryUpdate, error) {

	settings, err := Resolve(req.Property, tc.Tenant, req.Portfolio, req.PropertyConfig, tc.Layer)
	if err != nil {
		return nil, nil, err
	}

	tr := &TenantReconciliationResult{
		Tenant:   tc.Tenant,
		Property: req.Property,
		Year:     req.Year,
	}
	tr.Audit = append(tr.Audit, settings.Warnings...)

	// Ledger filtering and expense math.
	filtered := Filter(req.Lines, settings, categories, periods)
	tr.Audit = append(tr.Audit, filtered.Audit...)
	tr.Categories = filtered.Totals

	propertyCapital, tenantCapital, breakdown := AmortizeCapital(settings, req.Year)
	expenses := ComputeExpenses(filtered, settings, propertyCapital)

	tr.CAMNet = expenses.CAMNet
	tr.RETNet = expenses.RETNet
	tr.AdminFeeBase = expenses.AdminFeeBase
	tr.AdminFeeAmount = expenses.AdminFeeAmount
	tr.BaseNetTotal = expenses.BaseNetTotal

	// Base-year stage. The deduction is measured against the eligible
	// subset but reduces the full recoverable total.
	totalNet := expenses.TotalNet(categories)
	base := ApplyBaseYear(expenses.BaseNetTotal, settings, req.Year)
	tr.BaseYearApplied = base.Applied
	tr.BaseYearDeduction = base.Deduction
	afterBase := totalNet.Sub(base.Deduction).Max(ZeroMoney())
	tr.AfterBase = afterBase

	// Cap stage. Only cap-eligible dollars are capped; the exempt
	// remainder passes through unchanged.
	capEligible := expenses.CapNetTotal.Sub(base.Deduction).Max(ZeroMoney())
	capExempt := afterBase.Sub(capEligible).Max(ZeroMoney())

	hist, err := e.historySnapshot(ctx, req.Property, tc.Tenant, categories)
	if err != nil {
		return nil, nil, err
	}
	capRes := EnforceCap(capEligible, settings, req.Year, hist)
	tr.CapApplied = capRes.Applied
	tr.FirstBillingCap = capRes.FirstBilling
	tr.CapReference = capRes.Reference
	tr.CapLimit = capRes.Limit
	tr.CapDeduction = capRes.Deduction
	tr.AfterCap = capRes.After.Add(capExempt)
	if capRes.FirstBilling && settings.Cap.Enabled() {
		tr.Audit = append(tr.Audit, AuditNote{
			Code:    "first-billing-cap",
			Message: "cap configured but no history reference found; amount passes through uncapped",
		})
	}

	// Capital expenses join strictly after base-year and cap.
	tr.PropertyCapitalTotal = propertyCapital
	tr.CapitalBreakdown = breakdown

	// Proration.
	share, err := ShareOf(settings)
	if err != nil {
		return nil, nil, err
	}
	occupancy := YearOccupancy(settings, req.Year)
	tr.SharePercent = share
	tr.OccupancyFactor = occupancy

	prorated := tr.AfterCap.Add(propertyCapital).
		Mul(share.Fraction()).
		Mul(occupancy)
	tr.ProratedAmount = prorated

	// Tenant-only capital is charged to this tenant in full, prorated by
	// occupancy but not by share.
	tr.TenantCapitalShare = tenantCapital.Mul(occupancy)
	calculated := prorated.Add(tr.TenantCapitalShare).Round()
	tr.CalculatedAmount = calculated

	// Manual override.
	var override *ManualOverride
	if o, ok := req.Overrides[OverrideKey{Tenant: tc.Tenant, Property: req.Property, Year: req.Year}]; ok {
		override = &o
	}
	ov, err := ApplyOverride(calculated, override)
	if err != nil {
		return nil, nil, err
	}
	tr.OverrideApplied = ov.Applied
	tr.OverrideMode = ov.Mode
	tr.OverrideDescription = ov.Description
	tr.FinalAmount = ov.Final.Round()

	// Payment tracking against the previous estimate and received payments.
	var lastEstimate *Money
	var payments []PaymentRecord
	if e.Payments != nil {
		lastEstimate, err = e.Payments.LastEstimate(ctx, req.Property, tc.Tenant)
		if err != nil {
			return nil, nil, fmt.Errorf("payment history for tenant %s: %w", tc.Tenant, err)
		}
		payments, err = e.Payments.Payments(ctx, req.Property, tc.Tenant)
		if err != nil {
			return nil, nil, fmt.Errorf("payment history for tenant %s: %w", tc.Tenant, err)
		}
	}
	tr.Payment = TrackPayments(tr.FinalAmount, lastEstimate, payments, req.Year, req.Cutoff, req.PeriodsCount)

	// Buffer history updates: the pre-override calculated amount,
	// apportioned across categories by cap-eligible weight so that a
	// later read over any category subset sums to the right reference.
	updates := apportionHistory(req.Property, tc.Tenant, req.Year, calculated, expenses, categories)
	return tr, updates, nil
}

// historySnapshot merges the per-category histories for the selected
// categories into one year-to-amount map.
func (e *Engine) historySnapshot(ctx context.Context, property PropertyID, tenant TenantID, categories []Category) (CapHistory, error) {
	merged := CapHistory{}
	if e.History == nil {
		return merged, nil
	}
	for _, cat := range categories {
		h, err := e.History.History(ctx, property, tenant, cat)
		if err != nil {
			return nil, fmt.Errorf("cap history for tenant %s category %s: %w", tenant, cat, err)
		}
		for year, amount := range h {
			merged[year] = merged[year].Add(amount)
		}
	}
	return merged, nil
}

// apportionHistory splits the committed amount across categories in
// proportion to each category's cap-eligible net. With no eligible
// dollars anywhere the whole amount commits under the first category.
func apportionHistory(property PropertyID, tenant TenantID, year int, amount Money,
	expenses *ExpenseSummary, categories []Category) []CapHistoryUpdate {

	var total Money
	for _, cat := range categories {
		total = total.Add(expenses.CapNetByCategory[cat])
	}

	updates := make([]CapHistoryUpdate, 0, len(categories))
	remaining := amount
	for i, cat := range categories {
		var portion Money
		switch {
		case i == len(categories)-1:
			portion = remaining // last category absorbs rounding residue
		case total.IsZero():
			portion = ZeroMoney()
		default:
			weight := expenses.CapNetByCategory[cat].Value.Div(total.Value)
			portion = amount.Mul(weight).Round()
		}
		updates = append(updates, CapHistoryUpdate{
			Key:    CapHistoryKey{Property: property, Tenant: tenant, Category: cat, Year: year},
			Amount: portion,
		})
		remaining = remaining.Sub(portion)
	}
	return updates
}
