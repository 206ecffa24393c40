/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON settings documents into recon.ConfigLayer values. This
  enables rule changes without code changes - property managers can
  define portfolio, property, and tenant settings in JSON, and the
  factory creates the proper Go structs.

JSON SCHEMA:
  {
    "settings": {
      "admin_fee_percentage": "15%",
      "prorate_share_method": "RSF",
      "fixed_pyc_share": "",
      "square_footage": "2500",
      "base_year": "2022",
      "base_year_amount": "10000.00",
      "cap_settings": {
        "cap_percentage": "5%",
        "cap_type": "previous_year",
        "min_increase": "",
        "max_increase": "",
        "stop_amount": "",
        "override_cap_year": "",
        "override_cap_amount": ""
      },
      "gl_inclusions": {"cam": ["510000-799999"], "ret": [], "admin_fee": []},
      "gl_exclusions": {"cam": [], "ret": [], "admin_fee": [], "base": [], "cap": []},
      "admin_fee_overrides": [
        {"priority": 1, "match": "MR515000", "percentage": "10%"}
      ],
      "capital_expenses": [
        {"id": "roof-2023", "description": "Roof replacement",
         "amount": "50000.00", "year": 2023, "amortization_years": 5}
      ],
      "lease_start": "2022-04-01",
      "lease_end": "2026-03-31"
    }
  }

STRING FIELDS:
  Numeric settings arrive as strings because the upstream export writes
  everything as text; empty strings mean "not set at this level".
  Percentages accept an explicit "%" suffix; bare numbers go through the
  magnitude heuristic in recon.ParsePercent.

USAGE:
  layer, err := factory.ParseConfigLayer(jsonBytes)

SEE ALSO:
  - recon/settings.go: ConfigLayer definition and merge semantics
  - recon/percent.go: percentage normalization rules
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/recon-engine/recon"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// DocumentJSON is the top-level settings document.
type DocumentJSON struct {
	ID       string       `json:"id,omitempty"`
	Name     string       `json:"name,omitempty"`
	Settings SettingsJSON `json:"settings"`
}

// SettingsJSON is the JSON representation of one configuration level.
type SettingsJSON struct {
	AdminFeePercentage string              `json:"admin_fee_percentage,omitempty"`
	AdminFeeOnRET      *bool               `json:"admin_fee_on_ret,omitempty"`
	ProrateShareMethod string              `json:"prorate_share_method,omitempty"`
	FixedShare         string              `json:"fixed_pyc_share,omitempty"`
	SquareFootage      string              `json:"square_footage,omitempty"`
	TotalSquareFootage string              `json:"total_square_footage,omitempty"`
	BaseYear           string              `json:"base_year,omitempty"`
	BaseYearAmount     string              `json:"base_year_amount,omitempty"`
	CapSettings        *CapJSON            `json:"cap_settings,omitempty"`
	GLInclusions       map[string][]string `json:"gl_inclusions,omitempty"`
	GLExclusions       map[string][]string `json:"gl_exclusions,omitempty"`
	AdminFeeOverrides  []AdminFeeRuleJSON  `json:"admin_fee_overrides,omitempty"`
	CapitalExpenses    []CapitalJSON       `json:"capital_expenses,omitempty"`
	LeaseStart         string              `json:"lease_start,omitempty"`
	LeaseEnd           string              `json:"lease_end,omitempty"`
}

// CapJSON represents cap configuration.
type CapJSON struct {
	CapPercentage     string `json:"cap_percentage,omitempty"`
	CapType           string `json:"cap_type,omitempty"`
	MinIncrease       string `json:"min_increase,omitempty"`
	MaxIncrease       string `json:"max_increase,omitempty"`
	StopAmount        string `json:"stop_amount,omitempty"` // per sqft
	OverrideCapYear   string `json:"override_cap_year,omitempty"`
	OverrideCapAmount string `json:"override_cap_amount,omitempty"`
}

// AdminFeeRuleJSON represents one admin-fee override rule.
type AdminFeeRuleJSON struct {
	Priority   int    `json:"priority"`
	Match      string `json:"match"`
	Percentage string `json:"percentage"`
}

// CapitalJSON represents one capital expense.
type CapitalJSON struct {
	ID                string `json:"id,omitempty"`
	Description       string `json:"description,omitempty"`
	Amount            string `json:"amount"`
	Year              int    `json:"year"`
	AmortizationYears int    `json:"amortization_years,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseConfigLayer converts one JSON settings document into a
// recon.ConfigLayer. Empty string fields stay unset.
func ParseConfigLayer(data []byte) (recon.ConfigLayer, error) {
	var doc DocumentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return recon.ConfigLayer{}, fmt.Errorf("parsing settings document: %w", err)
	}
	return FromSettings(doc.Settings)
}

// FromSettings converts an already-decoded settings block into a
// recon.ConfigLayer.
func FromSettings(s SettingsJSON) (recon.ConfigLayer, error) {
	var layer recon.ConfigLayer
	var err error

	if layer.AdminFeePercent, err = percentField(s.AdminFeePercentage, "admin_fee_percentage"); err != nil {
		return layer, err
	}
	layer.AdminFeeOnRET = s.AdminFeeOnRET
	layer.ProrationMethod = recon.ProrationMethod(strings.TrimSpace(s.ProrateShareMethod))
	if layer.FixedShare, err = percentField(s.FixedShare, "fixed_pyc_share"); err != nil {
		return layer, err
	}
	if layer.SquareFeet, err = decimalField(s.SquareFootage, "square_footage"); err != nil {
		return layer, err
	}
	if layer.TotalSquareFeet, err = decimalField(s.TotalSquareFootage, "total_square_footage"); err != nil {
		return layer, err
	}
	if layer.BaseYear, err = intField(s.BaseYear, "base_year"); err != nil {
		return layer, err
	}
	if layer.BaseYearAmount, err = moneyField(s.BaseYearAmount, "base_year_amount"); err != nil {
		return layer, err
	}

	if s.CapSettings != nil {
		c := s.CapSettings
		if layer.CapPercent, err = percentField(c.CapPercentage, "cap_percentage"); err != nil {
			return layer, err
		}
		layer.CapType = recon.CapType(strings.TrimSpace(c.CapType))
		if layer.MinIncrease, err = percentField(c.MinIncrease, "min_increase"); err != nil {
			return layer, err
		}
		if layer.MaxIncrease, err = percentField(c.MaxIncrease, "max_increase"); err != nil {
			return layer, err
		}
		if layer.StopAmountPerSqFt, err = moneyField(c.StopAmount, "stop_amount"); err != nil {
			return layer, err
		}
		if layer.CapOverrideYear, err = intField(c.OverrideCapYear, "override_cap_year"); err != nil {
			return layer, err
		}
		if layer.CapOverrideAmount, err = moneyField(c.OverrideCapAmount, "override_cap_amount"); err != nil {
			return layer, err
		}
	}

	layer.Inclusions = ruleLists(s.GLInclusions)
	layer.Exclusions = ruleLists(s.GLExclusions)

	for _, r := range s.AdminFeeOverrides {
		pct, perr := recon.ParsePercent(r.Percentage)
		if perr != nil {
			return layer, fmt.Errorf("admin_fee_overrides: invalid percentage %q: %w", r.Percentage, perr)
		}
		layer.AdminFeeOverrides = append(layer.AdminFeeOverrides, recon.AdminFeeRule{
			Priority: r.Priority,
			Match:    recon.AccountRule(strings.TrimSpace(r.Match)),
			Percent:  pct,
		})
	}

	for _, c := range s.CapitalExpenses {
		amount, merr := decimal.NewFromString(strings.TrimSpace(c.Amount))
		if merr != nil {
			return layer, fmt.Errorf("capital_expenses: invalid amount %q: %w", c.Amount, merr)
		}
		layer.CapitalExpenses = append(layer.CapitalExpenses, recon.CapitalExpenseItem{
			ID:          c.ID,
			Description: c.Description,
			Amount:      recon.MoneyFromDecimal(amount),
			Year:        c.Year,
			AmortYears:  c.AmortizationYears,
		})
	}

	if layer.LeaseStart, err = dateField(s.LeaseStart, "lease_start"); err != nil {
		return layer, err
	}
	if layer.LeaseEnd, err = dateField(s.LeaseEnd, "lease_end"); err != nil {
		return layer, err
	}
	return layer, nil
}

// =============================================================================
// FIELD HELPERS - empty strings mean "not set at this level"
// =============================================================================

func percentField(s, name string) (*recon.Percent, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	p, err := recon.ParsePercent(s)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid percentage %q: %w", name, s, err)
	}
	return &p, nil
}

func decimalField(s, name string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid number %q: %w", name, s, err)
	}
	return &d, nil
}

func moneyField(s, name string) (*recon.Money, error) {
	d, err := decimalField(s, name)
	if err != nil || d == nil {
		return nil, err
	}
	m := recon.MoneyFromDecimal(*d)
	return &m, nil
}

func intField(s, name string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid integer %q: %w", name, s, err)
	}
	return &n, nil
}

func dateField(s, name string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid date %q: %w", name, s, err)
	}
	return &t, nil
}

// ruleLists converts the raw string lists, dropping empty entries.
func ruleLists(raw map[string][]string) map[recon.ListCategory][]recon.AccountRule {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[recon.ListCategory][]recon.AccountRule, len(raw))
	for cat, rules := range raw {
		var list []recon.AccountRule
		for _, r := range rules {
			if r = strings.TrimSpace(r); r != "" {
				list = append(list, recon.AccountRule(r))
			}
		}
		if len(list) > 0 {
			out[recon.ListCategory(strings.ToLower(cat))] = list
		}
	}
	return out
}
