/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are serialized as fixed two-decimal strings ("171128.78"),
  never floats. Clients must not do float math on them either.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/settings.go: SettingsJSON shape reused for config layers
*/
package api

import (
	"github.com/warp/recon-engine/factory"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RunRequestDTO triggers a reconciliation batch.
type RunRequestDTO struct {
	PropertyID string `json:"property_id"`
	Year       int    `json:"year"`
	TenantID   string `json:"tenant_id,omitempty"` // restrict to one tenant
	Cutoff     string `json:"cutoff,omitempty"`    // YYYYMM catch-up cutoff
	Categories []string `json:"categories,omitempty"`
	DryRun     bool     `json:"dry_run,omitempty"`

	// PeriodsCount is the billing periods per year; 0 means 12.
	PeriodsCount int `json:"periods_count,omitempty"`

	Portfolio factory.SettingsJSON            `json:"portfolio"`
	Property  factory.SettingsJSON            `json:"property"`
	Tenants   map[string]factory.SettingsJSON `json:"tenants"`

	Overrides []factory.OverrideJSON `json:"overrides,omitempty"`
}

// ImportLedgerRequest imports GL lines.
type ImportLedgerRequest struct {
	Lines []factory.GLLineJSON `json:"lines"`
}

// SetEstimateRequest records a tenant's monthly estimate.
type SetEstimateRequest struct {
	Monthly string `json:"monthly"`
}

// RecordPaymentRequest records one received payment.
type RecordPaymentRequest struct {
	Period string `json:"period"` // YYYYMM
	Amount string `json:"amount"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RunResponseDTO is the batch outcome.
type RunResponseDTO struct {
	PropertyID string             `json:"property_id"`
	Year       int                `json:"year"`
	Committed  bool               `json:"committed"`
	DryRun     bool               `json:"dry_run"`
	Results    []TenantResultDTO  `json:"results"`
	Failures   []TenantFailureDTO `json:"failures,omitempty"`
}

// TenantResultDTO is one tenant's reconciliation trace.
type TenantResultDTO struct {
	TenantID string `json:"tenant_id"`

	Categories map[string]CategoryTotalsDTO `json:"categories"`

	CAMNet         string `json:"cam_net"`
	RETNet         string `json:"ret_net"`
	AdminFeeBase   string `json:"admin_fee_base"`
	AdminFeeAmount string `json:"admin_fee_amount"`

	BaseYearApplied   bool   `json:"base_year_applied"`
	BaseYearDeduction string `json:"base_year_deduction"`
	AfterBase         string `json:"after_base"`

	CapApplied      bool   `json:"cap_applied"`
	FirstBillingCap bool   `json:"first_billing_cap"`
	CapReference    string `json:"cap_reference"`
	CapLimit        string `json:"cap_limit"`
	CapDeduction    string `json:"cap_deduction"`
	AfterCap        string `json:"after_cap"`

	PropertyCapitalTotal string       `json:"property_capital_total"`
	TenantCapitalShare   string       `json:"tenant_capital_share"`
	CapitalBreakdown     []CapitalDTO `json:"capital_breakdown,omitempty"`

	SharePercent    string `json:"share_percent"`
	OccupancyFactor string `json:"occupancy_factor"`
	ProratedAmount  string `json:"prorated_amount"`

	OverrideApplied  bool   `json:"override_applied"`
	OverrideMode     string `json:"override_mode,omitempty"`
	CalculatedAmount string `json:"calculated_amount"`
	FinalAmount      string `json:"final_amount"`

	Payment PaymentDTO `json:"payment"`
	Audit   []AuditDTO `json:"audit,omitempty"`
}

// CategoryTotalsDTO mirrors recon.CategoryTotals.
type CategoryTotalsDTO struct {
	Gross          string `json:"gross"`
	Net            string `json:"net"`
	ExcludedAmount string `json:"excluded_amount"`
	LineCount      int    `json:"line_count"`
	ExcludedCount  int    `json:"excluded_count"`
}

// CapitalDTO is one amortized capital contribution.
type CapitalDTO struct {
	ID           string `json:"id,omitempty"`
	Description  string `json:"description,omitempty"`
	AnnualAmount string `json:"annual_amount"`
	TenantOnly   bool   `json:"tenant_only,omitempty"`
}

// PaymentDTO mirrors recon.PaymentSummary.
type PaymentDTO struct {
	AnnualAmount          string `json:"annual_amount"`
	OldMonthly            string `json:"old_monthly"`
	NewMonthly            string `json:"new_monthly"`
	Change                string `json:"change"`
	ChangePercent         string `json:"change_percent"`
	Significant           bool   `json:"significant"`
	PaymentsReceived      string `json:"payments_received"`
	ReconciliationBalance string `json:"reconciliation_balance"`
	CatchupMonths         int    `json:"catchup_months"`
	CatchupAmount         string `json:"catchup_amount"`
	TotalBalance          string `json:"total_balance"`
}

// AuditDTO is one non-fatal finding.
type AuditDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Account string `json:"account,omitempty"`
	Period  string `json:"period,omitempty"`
}

// TenantFailureDTO is one tenant the batch could not compute.
type TenantFailureDTO struct {
	TenantID string `json:"tenant_id"`
	Error    string `json:"error"`
}

// CapHistoryDTO is the committed amounts for one tenant and category.
type CapHistoryDTO struct {
	Category string            `json:"category"`
	Amounts  map[string]string `json:"amounts"` // year -> amount
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
