/*
handlers.go - HTTP API handlers for the reconciliation engine

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Reconciliation:
    POST   /api/reconciliations                 Run a batch (dry-run capable)

  Ledger:
    POST   /api/ledger                          Import GL lines
    GET    /api/ledger/{propertyID}             List imported lines

  Cap history:
    GET    /api/cap-history/{propertyID}/{tenantID}?category=cam

  Estimates:
    PUT    /api/estimates/{propertyID}/{tenantID}

  Payments:
    POST   /api/payments/{propertyID}/{tenantID}

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, stores)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (contradictory history batch)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/recon-engine/factory"
	"github.com/warp/recon-engine/recon"
	"github.com/warp/recon-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for the API.
type Handler struct {
	store  *sqlite.Store
	engine *recon.Engine
}

func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		store:  store,
		engine: recon.NewEngine(store, store),
	}
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// RunReconciliation runs one batch.
// POST /api/reconciliations
func (h *Handler) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var dto RunRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if dto.PropertyID == "" || dto.Year == 0 {
		writeError(w, http.StatusBadRequest, "property_id and year are required", nil)
		return
	}

	req := recon.RunRequest{
		Property:     recon.PropertyID(dto.PropertyID),
		Year:         dto.Year,
		OnlyTenant:   recon.TenantID(dto.TenantID),
		DryRun:       dto.DryRun,
		PeriodsCount: dto.PeriodsCount,
	}

	var err error
	if req.Portfolio, err = factory.FromSettings(dto.Portfolio); err != nil {
		writeError(w, http.StatusBadRequest, "invalid portfolio settings", err)
		return
	}
	if req.PropertyConfig, err = factory.FromSettings(dto.Property); err != nil {
		writeError(w, http.StatusBadRequest, "invalid property settings", err)
		return
	}
	for id, s := range dto.Tenants {
		layer, lerr := factory.FromSettings(s)
		if lerr != nil {
			writeError(w, http.StatusBadRequest, "invalid settings for tenant "+id, lerr)
			return
		}
		req.Tenants = append(req.Tenants, recon.TenantConfig{Tenant: recon.TenantID(id), Layer: layer})
	}

	if dto.Cutoff != "" {
		if req.Cutoff, err = recon.ParsePeriod(dto.Cutoff); err != nil {
			writeError(w, http.StatusBadRequest, "invalid cutoff period", err)
			return
		}
	}
	for _, c := range dto.Categories {
		req.Categories = append(req.Categories, recon.Category(c))
	}
	if req.Overrides, err = factory.BuildOverrides(dto.Overrides); err != nil {
		writeError(w, http.StatusBadRequest, "invalid overrides", err)
		return
	}

	if req.Lines, err = h.store.LoadGLLines(ctx, req.Property); err != nil {
		writeError(w, http.StatusInternalServerError, "loading ledger", err)
		return
	}

	res, err := h.engine.Run(ctx, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, recon.ErrHistoryConflict) {
			status = http.StatusConflict
		}
		writeError(w, status, "reconciliation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(res, dto.DryRun))
}

// =============================================================================
// LEDGER
// =============================================================================

// ImportLedger imports GL lines.
// POST /api/ledger
func (h *Handler) ImportLedger(w http.ResponseWriter, r *http.Request) {
	var dto ImportLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	lines, err := factory.BuildGLLines(dto.Lines)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ledger lines", err)
		return
	}
	if len(lines) == 0 {
		writeError(w, http.StatusBadRequest, "no ledger lines supplied", nil)
		return
	}
	if err := h.store.SaveGLLines(r.Context(), lines); err != nil {
		writeError(w, http.StatusInternalServerError, "saving ledger", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"imported": len(lines)})
}

// ListLedger returns every imported line for one property.
// GET /api/ledger/{propertyID}
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	property := recon.PropertyID(chi.URLParam(r, "propertyID"))
	lines, err := h.store.LoadGLLines(r.Context(), property)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading ledger", err)
		return
	}

	dtos := make([]factory.GLLineJSON, 0, len(lines))
	for _, l := range lines {
		dtos = append(dtos, factory.GLLineJSON{
			Property:    string(l.Property),
			Period:      l.Period.String(),
			Account:     string(l.Account),
			Description: l.Description,
			NetAmount:   l.Amount.String(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CAP HISTORY
// =============================================================================

// GetCapHistory returns the committed amounts for one tenant.
// GET /api/cap-history/{propertyID}/{tenantID}?category=cam
func (h *Handler) GetCapHistory(w http.ResponseWriter, r *http.Request) {
	property := recon.PropertyID(chi.URLParam(r, "propertyID"))
	tenant := recon.TenantID(chi.URLParam(r, "tenantID"))
	category := recon.Category(r.URL.Query().Get("category"))
	if category == "" {
		category = recon.CategoryCAM
	}

	hist, err := h.store.History(r.Context(), property, tenant, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading cap history", err)
		return
	}

	dto := CapHistoryDTO{Category: string(category), Amounts: map[string]string{}}
	for year, amount := range hist {
		dto.Amounts[strconv.Itoa(year)] = amount.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// ESTIMATES
// =============================================================================

// SetEstimate records a tenant's current monthly estimate.
// PUT /api/estimates/{propertyID}/{tenantID}
func (h *Handler) SetEstimate(w http.ResponseWriter, r *http.Request) {
	property := recon.PropertyID(chi.URLParam(r, "propertyID"))
	tenant := recon.TenantID(chi.URLParam(r, "tenantID"))

	var dto SetEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	d, err := decimal.NewFromString(dto.Monthly)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid monthly amount", err)
		return
	}
	if err := h.store.SetEstimate(r.Context(), property, tenant, recon.MoneyFromDecimal(d)); err != nil {
		writeError(w, http.StatusInternalServerError, "saving estimate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"monthly": recon.MoneyFromDecimal(d).String()})
}

// RecordPayment records one received payment.
// POST /api/payments/{propertyID}/{tenantID}
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	property := recon.PropertyID(chi.URLParam(r, "propertyID"))
	tenant := recon.TenantID(chi.URLParam(r, "tenantID"))

	var dto RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	period, err := recon.ParsePeriod(dto.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment period", err)
		return
	}
	d, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment amount", err)
		return
	}
	rec := recon.PaymentRecord{
		Property: property, Tenant: tenant, Period: period, Amount: recon.MoneyFromDecimal(d),
	}
	if err := h.store.RecordPayment(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "saving payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"period": rec.Period.String(),
		"amount": rec.Amount.String(),
	})
}

// Health is the liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toRunResponse(res *recon.RunResult, dryRun bool) RunResponseDTO {
	out := RunResponseDTO{
		PropertyID: string(res.Property),
		Year:       res.Year,
		Committed:  res.Committed,
		DryRun:     dryRun,
		Results:    make([]TenantResultDTO, 0, len(res.Results)),
	}
	for _, tr := range res.Results {
		out.Results = append(out.Results, toTenantResult(tr))
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, TenantFailureDTO{
			TenantID: string(f.Tenant),
			Error:    f.Err.Error(),
		})
	}
	return out
}

func toTenantResult(tr *recon.TenantReconciliationResult) TenantResultDTO {
	dto := TenantResultDTO{
		TenantID:   string(tr.Tenant),
		Categories: make(map[string]CategoryTotalsDTO, len(tr.Categories)),

		CAMNet:         tr.CAMNet.String(),
		RETNet:         tr.RETNet.String(),
		AdminFeeBase:   tr.AdminFeeBase.String(),
		AdminFeeAmount: tr.AdminFeeAmount.String(),

		BaseYearApplied:   tr.BaseYearApplied,
		BaseYearDeduction: tr.BaseYearDeduction.String(),
		AfterBase:         tr.AfterBase.String(),

		CapApplied:      tr.CapApplied,
		FirstBillingCap: tr.FirstBillingCap,
		CapReference:    tr.CapReference.String(),
		CapLimit:        tr.CapLimit.String(),
		CapDeduction:    tr.CapDeduction.String(),
		AfterCap:        tr.AfterCap.String(),

		PropertyCapitalTotal: tr.PropertyCapitalTotal.String(),
		TenantCapitalShare:   tr.TenantCapitalShare.String(),

		SharePercent:    tr.SharePercent.String(),
		OccupancyFactor: tr.OccupancyFactor.String(),
		ProratedAmount:  tr.ProratedAmount.String(),

		OverrideApplied:  tr.OverrideApplied,
		OverrideMode:     string(tr.OverrideMode),
		CalculatedAmount: tr.CalculatedAmount.String(),
		FinalAmount:      tr.FinalAmount.String(),

		Payment: PaymentDTO{
			AnnualAmount:          tr.Payment.AnnualAmount.String(),
			OldMonthly:            tr.Payment.OldMonthly.String(),
			NewMonthly:            tr.Payment.NewMonthly.String(),
			Change:                string(tr.Payment.Change),
			ChangePercent:         tr.Payment.ChangePercent.String(),
			Significant:           tr.Payment.Significant,
			PaymentsReceived:      tr.Payment.PaymentsReceived.String(),
			ReconciliationBalance: tr.Payment.ReconciliationBalance.String(),
			CatchupMonths:         tr.Payment.CatchupMonths,
			CatchupAmount:         tr.Payment.CatchupAmount.String(),
			TotalBalance:          tr.Payment.TotalBalance.String(),
		},
	}

	for cat, totals := range tr.Categories {
		dto.Categories[string(cat)] = CategoryTotalsDTO{
			Gross:          totals.Gross.String(),
			Net:            totals.Net.String(),
			ExcludedAmount: totals.ExcludedAmount.String(),
			LineCount:      totals.LineCount,
			ExcludedCount:  totals.ExcludedCount,
		}
	}
	for _, c := range tr.CapitalBreakdown {
		dto.CapitalBreakdown = append(dto.CapitalBreakdown, CapitalDTO{
			ID:           c.Item.ID,
			Description:  c.Item.Description,
			AnnualAmount: c.AnnualAmount.String(),
			TenantOnly:   c.TenantOnly,
		})
	}
	for _, a := range tr.Audit {
		note := AuditDTO{Code: a.Code, Message: a.Message, Account: string(a.Account)}
		if !a.Period.IsZero() {
			note.Period = a.Period.String()
		}
		dto.Audit = append(dto.Audit, note)
	}
	return dto
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
