package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/recon-engine/recon"
)

// =============================================================================
// LEDGER PARSING - GL export documents
// =============================================================================

// GLLineJSON is one exported general-ledger line. Amounts arrive as
// strings, sometimes with thousands separators.
type GLLineJSON struct {
	Property    string `json:"property_id"`
	Period      string `json:"period"` // YYYYMM
	Account     string `json:"gl_account"`
	Description string `json:"description,omitempty"`
	NetAmount   string `json:"net_amount"`
}

// ParseGLLines converts a JSON array of ledger lines. Malformed lines
// fail the parse with a recon.DataError; skipping happens downstream in
// the filter where it can be audited per run.
func ParseGLLines(data []byte) ([]recon.GLLineItem, error) {
	var raw []GLLineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing ledger export: %w", err)
	}
	return BuildGLLines(raw)
}

// BuildGLLines converts already-decoded ledger records.
func BuildGLLines(raw []GLLineJSON) ([]recon.GLLineItem, error) {
	lines := make([]recon.GLLineItem, 0, len(raw))
	for i, r := range raw {
		account := recon.GLAccount(strings.TrimSpace(r.Account))
		period, err := recon.ParsePeriod(strings.TrimSpace(r.Period))
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", i, &recon.DataError{
				Account: account,
				Reason:  fmt.Sprintf("invalid period %q: %v", r.Period, err),
			})
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(r.NetAmount), ",", ""))
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", i, &recon.DataError{
				Account: account,
				Period:  period,
				Reason:  fmt.Sprintf("invalid amount %q: %v", r.NetAmount, err),
			})
		}
		lines = append(lines, recon.GLLineItem{
			Property:    recon.PropertyID(strings.TrimSpace(r.Property)),
			Period:      period,
			Account:     account,
			Description: r.Description,
			Amount:      recon.MoneyFromDecimal(amount),
		})
	}
	return lines, nil
}

// =============================================================================
// MANUAL OVERRIDES
// =============================================================================

// OverrideJSON is one manual-override record.
type OverrideJSON struct {
	TenantID    string `json:"tenant_id"`
	PropertyID  string `json:"property_id"`
	Year        int    `json:"year"`
	Mode        string `json:"mode"` // replace | adjustment
	Amount      string `json:"override_amount"`
	Description string `json:"description,omitempty"`
}

// ParseOverrides converts a JSON array of override records into the map
// the engine consumes. Duplicate (tenant, property, year) keys are an
// error: two competing overrides cannot both be right.
func ParseOverrides(data []byte) (map[recon.OverrideKey]recon.ManualOverride, error) {
	var raw []OverrideJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}
	return BuildOverrides(raw)
}

// BuildOverrides converts already-decoded override records.
func BuildOverrides(raw []OverrideJSON) (map[recon.OverrideKey]recon.ManualOverride, error) {
	out := make(map[recon.OverrideKey]recon.ManualOverride, len(raw))
	for i, r := range raw {
		amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(r.Amount), ",", ""))
		if err != nil {
			return nil, fmt.Errorf("override %d: invalid amount %q: %w", i, r.Amount, err)
		}
		key := recon.OverrideKey{
			Tenant:   recon.TenantID(strings.TrimSpace(r.TenantID)),
			Property: recon.PropertyID(strings.TrimSpace(r.PropertyID)),
			Year:     r.Year,
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("override %d: duplicate override for tenant %s year %d", i, key.Tenant, key.Year)
		}
		out[key] = recon.ManualOverride{
			Tenant:      key.Tenant,
			Property:    key.Property,
			Year:        r.Year,
			Mode:        recon.OverrideMode(strings.TrimSpace(r.Mode)),
			Amount:      recon.MoneyFromDecimal(amount),
			Description: r.Description,
		}
	}
	return out, nil
}
