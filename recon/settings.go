/*
settings.go - Hierarchical configuration merge

PURPOSE:
  Merges the three configuration layers (portfolio, property, tenant)
  into one EffectiveSettings per tenant. The merge is a pure function
  over three explicit structured inputs - no inheritance, no implicit
  lookup chains.

PRECEDENCE TABLE:
  Scalars:          tenant > property > portfolio (most specific
                    non-null wins)
  Inclusion lists:  the most specific level that defines a NON-EMPTY
                    list replaces less specific lists wholly, per
                    category
  Exclusion lists:  union across all three levels, per category
  Admin-fee rules:  concatenated, ordered by (level specificity
                    descending, rule priority ascending); first match
                    wins, scalar percentage is the fallback

VALIDATION:
  Resolve fails with a ConfigurationError when a required field is
  absent at every level: the proration method always, and a fixed share
  when the method is Fixed. Everything else degrades to documented
  defaults (cap type previous_year).

SEE ALSO:
  - percent.go: magnitude heuristic for bare percentage values
  - glfilter.go: consumes the merged inclusion/exclusion lists
*/
package recon

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIG LAYER - One level of the hierarchy (read-only input)
// =============================================================================

// ProrationMethod selects how the tenant share is derived.
type ProrationMethod string

const (
	ProrateRSF   ProrationMethod = "RSF"   // tenant sqft / property sqft
	ProrateFixed ProrationMethod = "Fixed" // configured share percentage
)

// CapType selects the historical reference for cap enforcement.
type CapType string

const (
	CapPreviousYear        CapType = "previous_year"
	CapHighestPreviousYear CapType = "highest_previous_year"
)

// ListCategory names a GL inclusion/exclusion list. base and cap lists
// exist only as exclusions.
type ListCategory string

const (
	ListCAM      ListCategory = "cam"
	ListRET      ListCategory = "ret"
	ListAdminFee ListCategory = "admin_fee"
	ListBase     ListCategory = "base"
	ListCap      ListCategory = "cap"
)

// AccountRule is a GL account match: an exact account ("MR510000") or an
// inclusive range ("510000-519999"). The optional "MR" prefix is ignored
// during comparison.
type AccountRule string

// AdminFeeRule overrides the admin-fee percentage for matching accounts.
type AdminFeeRule struct {
	Priority int
	Match    AccountRule
	Percent  Percent
}

// ConfigLayer is one level of the configuration hierarchy. Nil pointer
// and empty-string fields mean "not set at this level".
type ConfigLayer struct {
	AdminFeePercent   *Percent
	AdminFeeOnRET     *bool // include RET net in the admin-fee base
	ProrationMethod   ProrationMethod
	FixedShare        *Percent
	SquareFeet        *decimal.Decimal // tenant suite sqft (tenant layer)
	TotalSquareFeet   *decimal.Decimal // property rentable sqft (property layer)
	BaseYear          *int
	BaseYearAmount    *Money
	CapPercent        *Percent
	CapType           CapType
	MinIncrease       *Percent
	MaxIncrease       *Percent
	StopAmountPerSqFt *Money
	CapOverrideYear   *int
	CapOverrideAmount *Money

	Inclusions map[ListCategory][]AccountRule
	Exclusions map[ListCategory][]AccountRule

	AdminFeeOverrides []AdminFeeRule
	CapitalExpenses   []CapitalExpenseItem

	// Tenant-layer lease attributes; ignored on other layers.
	LeaseStart *time.Time
	LeaseEnd   *time.Time
}

// =============================================================================
// EFFECTIVE SETTINGS - The merge result, consumed by every stage
// =============================================================================

// CapSettings is the resolved cap configuration for one tenant.
type CapSettings struct {
	Percent           Percent
	Type              CapType
	MinIncrease       Percent
	MaxIncrease       Percent
	StopAmountPerSqFt *Money
	OverrideYear      int // 0 = none
	OverrideAmount    *Money
}

// Enabled reports whether any cap applies at all.
func (c CapSettings) Enabled() bool { return c.Percent.IsSet() }

// EffectiveSettings is the per-tenant merge result. It is recomputed on
// every run and never persisted.
type EffectiveSettings struct {
	Property PropertyID
	Tenant   TenantID

	AdminFeePercent Percent
	AdminFeeOnRET   bool
	ProrationMethod ProrationMethod
	FixedShare      Percent
	SquareFeet      decimal.Decimal
	TotalSquareFeet decimal.Decimal
	LeaseStart      *time.Time
	LeaseEnd        *time.Time

	BaseYear       int // 0 = no base year
	BaseYearAmount Money

	Cap CapSettings

	Inclusions map[ListCategory][]AccountRule
	Exclusions map[ListCategory][]AccountRule

	// Admin-fee override chain, most specific first, priority ascending
	// within a level. First matching rule wins.
	AdminFeeOverrides []AdminFeeRule

	PropertyCapital []CapitalExpenseItem
	TenantCapital   []CapitalExpenseItem

	// Warnings collected during the merge (ambiguous percentages).
	Warnings []AuditNote
}

// AdminFeePercentFor resolves the admin-fee percentage for one account:
// the first override rule whose match applies wins, otherwise the scalar.
func (s *EffectiveSettings) AdminFeePercentFor(account GLAccount) Percent {
	for _, rule := range s.AdminFeeOverrides {
		if rule.Match.Matches(account) {
			return rule.Percent
		}
	}
	return s.AdminFeePercent
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolve merges the three configuration layers for one tenant. Layers
// are ordered least specific first. The result carries warnings for
// every percentage whose unit had to be guessed ambiguously.
func Resolve(property PropertyID, tenant TenantID, portfolio, prop, ten ConfigLayer) (*EffectiveSettings, error) {
	layers := []ConfigLayer{portfolio, prop, ten} // ascending specificity

	s := &EffectiveSettings{
		Property:   property,
		Tenant:     tenant,
		Inclusions: map[ListCategory][]AccountRule{},
		Exclusions: map[ListCategory][]AccountRule{},
	}

	// Scalars: most specific non-null wins.
	for _, l := range layers {
		if l.AdminFeePercent != nil {
			s.AdminFeePercent = *l.AdminFeePercent
		}
		if l.AdminFeeOnRET != nil {
			s.AdminFeeOnRET = *l.AdminFeeOnRET
		}
		if l.ProrationMethod != "" {
			s.ProrationMethod = l.ProrationMethod
		}
		if l.FixedShare != nil {
			s.FixedShare = *l.FixedShare
		}
		if l.SquareFeet != nil {
			s.SquareFeet = *l.SquareFeet
		}
		if l.TotalSquareFeet != nil {
			s.TotalSquareFeet = *l.TotalSquareFeet
		}
		if l.BaseYear != nil {
			s.BaseYear = *l.BaseYear
		}
		if l.BaseYearAmount != nil {
			s.BaseYearAmount = *l.BaseYearAmount
		}
		if l.CapPercent != nil {
			s.Cap.Percent = *l.CapPercent
		}
		if l.CapType != "" {
			s.Cap.Type = l.CapType
		}
		if l.MinIncrease != nil {
			s.Cap.MinIncrease = *l.MinIncrease
		}
		if l.MaxIncrease != nil {
			s.Cap.MaxIncrease = *l.MaxIncrease
		}
		if l.StopAmountPerSqFt != nil {
			amount := *l.StopAmountPerSqFt
			s.Cap.StopAmountPerSqFt = &amount
		}
		if l.CapOverrideYear != nil {
			s.Cap.OverrideYear = *l.CapOverrideYear
		}
		if l.CapOverrideAmount != nil {
			amount := *l.CapOverrideAmount
			s.Cap.OverrideAmount = &amount
		}
		if l.LeaseStart != nil {
			s.LeaseStart = l.LeaseStart
		}
		if l.LeaseEnd != nil {
			s.LeaseEnd = l.LeaseEnd
		}
	}

	// Inclusion lists: most specific NON-EMPTY list replaces wholly.
	for _, l := range layers {
		for cat, rules := range l.Inclusions {
			if len(rules) > 0 {
				s.Inclusions[cat] = append([]AccountRule(nil), rules...)
			}
		}
	}

	// Exclusion lists: union across all levels.
	for _, l := range layers {
		for cat, rules := range l.Exclusions {
			s.Exclusions[cat] = unionRules(s.Exclusions[cat], rules)
		}
	}

	// Admin-fee overrides: specificity descending, priority ascending.
	for i := len(layers) - 1; i >= 0; i-- {
		level := append([]AdminFeeRule(nil), layers[i].AdminFeeOverrides...)
		sort.SliceStable(level, func(a, b int) bool { return level[a].Priority < level[b].Priority })
		s.AdminFeeOverrides = append(s.AdminFeeOverrides, level...)
	}

	// Capital expenses: property layer vs tenant layer stay separate, the
	// amortizer treats them differently.
	s.PropertyCapital = append([]CapitalExpenseItem(nil), prop.CapitalExpenses...)
	s.TenantCapital = append([]CapitalExpenseItem(nil), ten.CapitalExpenses...)

	// Defaults and validation.
	if s.Cap.Enabled() && s.Cap.Type == "" {
		s.Cap.Type = CapPreviousYear
	}
	if s.ProrationMethod == "" {
		return nil, &ConfigurationError{Field: "proration_method", Tenant: tenant,
			Reason: "not set at any configuration level"}
	}
	if s.ProrationMethod == ProrateFixed && !s.FixedShare.IsSet() {
		return nil, &ConfigurationError{Field: "fixed_share", Tenant: tenant,
			Reason: "proration method is Fixed but no share is configured"}
	}
	if s.ProrationMethod != ProrateRSF && s.ProrationMethod != ProrateFixed {
		return nil, &ConfigurationError{Field: "proration_method", Tenant: tenant,
			Reason: "unknown method " + string(s.ProrationMethod)}
	}

	s.Warnings = append(s.Warnings, ambiguityWarnings(s)...)
	return s, nil
}

// unionRules appends rules not already present, preserving order.
func unionRules(existing, add []AccountRule) []AccountRule {
	seen := make(map[AccountRule]struct{}, len(existing))
	for _, r := range existing {
		seen[r] = struct{}{}
	}
	for _, r := range add {
		if _, ok := seen[r]; !ok {
			existing = append(existing, r)
			seen[r] = struct{}{}
		}
	}
	return existing
}

func ambiguityWarnings(s *EffectiveSettings) []AuditNote {
	var notes []AuditNote
	check := func(name string, p Percent) {
		if p.IsSet() && p.Ambiguous() {
			notes = append(notes, AuditNote{
				Code:    "ambiguous-percentage",
				Message: name + " value " + p.String() + " sits at the unit-inference boundary; verify the intended unit",
			})
		}
	}
	check("admin_fee_percentage", s.AdminFeePercent)
	check("fixed_share", s.FixedShare)
	check("cap_percentage", s.Cap.Percent)
	check("min_increase", s.Cap.MinIncrease)
	check("max_increase", s.Cap.MaxIncrease)
	return notes
}
