/*
Package recon provides the CAM/tax reconciliation calculation engine.

PURPOSE:
  This package contains the types and algorithms for computing annual
  Common-Area-Maintenance and real-estate-tax reconciliation charges for
  commercial tenants from general-ledger data and a three-tier hierarchy
  of business rules (portfolio, property, tenant).

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A dollar quantity backed by decimal.Decimal
  - GLLineItem: An immutable general-ledger line
  - CategorizedLine: A GL line annotated with category/exclusion flags
  - CapitalExpenseItem: A capital expense amortized over several years
  - TenantReconciliationResult: The full computation trace for one tenant

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, never float64 arithmetic
  2. Immutability: inputs are never mutated; results are fresh values
  3. Purity: per-tenant computation is a function of its inputs only
  4. Auditability: every exclusion and adjustment carries provenance

USAGE:
  settings, err := recon.Resolve(portfolio, property, tenant)
  cam := recon.Filter(lines, settings, recon.CategoryCAM)

SEE ALSO:
  - settings.go: Hierarchical configuration merge
  - glfilter.go: Ledger categorization and netting
  - pipeline.go: Batch orchestration and commit discipline
*/
package recon

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Dollar amounts (always decimal, never float)
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money         { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int) Money      { return Money{Value: decimal.NewFromInt(int64(value))} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d} }

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(b Money) Money             { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money             { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money   { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money   { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                    { return Money{Value: m.Value.Neg()} }
func (m Money) IsNegative() bool              { return m.Value.IsNegative() }
func (m Money) IsZero() bool                  { return m.Value.IsZero() }
func (m Money) IsPositive() bool              { return m.Value.IsPositive() }
func (m Money) GreaterThan(b Money) bool      { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool         { return m.Value.LessThan(b.Value) }
func (m Money) Min(b Money) Money             { if m.LessThan(b) { return m }; return b }
func (m Money) Max(b Money) Money             { if m.GreaterThan(b) { return m }; return b }
func (m Money) Equal(b Money) bool            { return m.Value.Equal(b.Value) }

// Round returns the amount rounded half-up to cents.
func (m Money) Round() Money { return Money{Value: m.Value.Round(2)} }

// String renders the amount rounded to cents, e.g. "171128.78".
func (m Money) String() string { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PropertyID string
type TenantID string
type GLAccount string

// Category identifies an expense recovery category.
type Category string

const (
	CategoryCAM Category = "cam"
	CategoryRET Category = "ret"
)

// AllCategories is the default category subset for a run.
var AllCategories = []Category{CategoryCAM, CategoryRET}

// =============================================================================
// GL LINE ITEM - Immutable ledger input
// =============================================================================

// GLLineItem is a single general-ledger line as supplied to the engine.
// The engine never mutates these; derived state lives on CategorizedLine.
type GLLineItem struct {
	Property    PropertyID
	Period      Period // YYYYMM accounting period
	Account     GLAccount
	Description string
	Amount      Money // signed: credits are negative
}

// ExclusionReason records why a line was left out of a category total.
type ExclusionReason string

const (
	ExclusionNone            ExclusionReason = ""
	ExclusionRule            ExclusionReason = "exclusion-rule"
	ExclusionNegativeBalance ExclusionReason = "negative-balance-excluded"
	ExclusionMalformed       ExclusionReason = "malformed-line-skipped"
)

// CategorizedLine is a GLLineItem viewed through the effective settings:
// category membership, exclusion provenance, and the admin-fee percentage
// resolved for this specific line via the override chain.
type CategorizedLine struct {
	Line             GLLineItem
	Category         Category
	Excluded         bool
	ExclusionReason  ExclusionReason
	BaseEligible     bool // participates in base-year totals
	CapEligible      bool // participates in cap totals
	AdminFeeEligible bool
	AdminFeePercent  Percent // resolved per-line via override chain
}

// =============================================================================
// CAPITAL EXPENSES
// =============================================================================

// CapitalExpenseItem is a capital expense amortized straight-line over
// AmortYears. The item is active for reconciliation years in
// [Year, Year+AmortYears).
type CapitalExpenseItem struct {
	ID          string
	Description string
	Amount      Money
	Year        int
	AmortYears  int
}

// ActiveIn reports whether the item contributes in the given year.
func (c CapitalExpenseItem) ActiveIn(year int) bool {
	amort := c.AmortYears
	if amort < 1 {
		amort = 1
	}
	return c.Year <= year && year < c.Year+amort
}

// AnnualAmount is the straight-line amount per active year (no interest).
func (c CapitalExpenseItem) AnnualAmount() Money {
	amort := c.AmortYears
	if amort < 1 {
		amort = 1
	}
	return c.Amount.Div(decimal.NewFromInt(int64(amort)))
}

// =============================================================================
// MANUAL OVERRIDES
// =============================================================================

type OverrideMode string

const (
	OverrideReplace    OverrideMode = "replace"
	OverrideAdjustment OverrideMode = "adjustment"
)

// ManualOverride substitutes or adjusts a tenant's calculated amount.
// Mode must be explicitly typed; an empty mode is a configuration error.
type ManualOverride struct {
	Tenant      TenantID
	Property    PropertyID
	Year        int
	Mode        OverrideMode
	Amount      Money
	Description string
}

// OverrideKey keys the manual-override map.
type OverrideKey struct {
	Tenant   TenantID
	Property PropertyID
	Year     int
}

// =============================================================================
// AUDIT - Non-fatal findings surfaced with results
// =============================================================================

// AuditNote records a non-fatal finding (skipped line, ambiguous
// percentage, missing history). Notes are data, not log output, so that
// results stay reproducible and callers decide how to surface them.
type AuditNote struct {
	Code    string
	Message string
	Account GLAccount
	Period  Period
}

// =============================================================================
// TENANT RECONCILIATION RESULT - The sole output contract
// =============================================================================

// CategoryTotals holds the gross/net/exclusion figures for one category.
// Rule-excluded lines stay in Gross with their amount carried as
// ExcludedAmount; negative-balance accounts are counted in LineCount and
// ExcludedCount but kept out of Gross entirely.
type CategoryTotals struct {
	Gross          Money
	Net            Money
	ExcludedAmount Money
	LineCount      int
	ExcludedCount  int
}

// TenantReconciliationResult is the full computation trace for one tenant.
// Downstream report and letter collaborators must treat it as the single
// source of truth: formatting only, no recomputation.
type TenantReconciliationResult struct {
	Tenant   TenantID
	Property PropertyID
	Year     int

	Categories map[Category]CategoryTotals

	// Expense stage
	CAMNet         Money
	RETNet         Money
	AdminFeeBase   Money
	AdminFeeAmount Money
	BaseNetTotal   Money

	// Base-year stage
	BaseYearApplied   bool
	BaseYearDeduction Money
	AfterBase         Money

	// Cap stage
	CapApplied      bool
	CapReference    Money
	CapLimit        Money
	CapDeduction    Money
	AfterCap        Money
	FirstBillingCap bool // no history: cap skipped

	// Capital expenses
	PropertyCapitalTotal Money
	TenantCapitalShare   Money
	CapitalBreakdown     []AmortizedExpense

	// Proration
	SharePercent    Percent
	OccupancyFactor decimal.Decimal
	ProratedAmount  Money

	// Override stage
	OverrideApplied     bool
	OverrideMode        OverrideMode
	OverrideDescription string
	CalculatedAmount    Money // pre-override, for reporting
	FinalAmount         Money

	// Payment stage
	Payment PaymentSummary

	// Non-fatal findings accumulated during the run.
	Audit []AuditNote
}
