/*
percent.go - Percentage representation and normalization

PURPOSE:
  Percentage-like fields (tenant share, cap percentage, min/max increase,
  admin fee) arrive from configuration in two conventions: whole-number
  percent (5.138 meaning 5.138%) and fraction (0.007 meaning 0.7%).
  Conflating the two has caused real 100x billing misstatements, so this
  file makes the unit explicit.

THE HEURISTIC:
  Legacy configuration carries bare numbers. NormalizePercent applies the
  documented magnitude heuristic: raw >= 1 is whole-number percent and is
  divided by 100; raw < 1 is already a fraction and is used unchanged.
  Values in (0.5, 1] are flagged ambiguous - 0.7 could plausibly mean
  either 0.7% or 70% - and the Percent remembers that, so the resolver
  can surface a warning. The warning is never fatal and the heuristic
  result is never silently "corrected".

THE FIX:
  New configuration should use explicit units so no inference is needed:
    PercentFromPoints(5.138)   // 5.138%
    PercentFromFraction(0.007) // 0.7%
    ParsePercent("0.7%")       // explicit: 0.7%

SEE ALSO:
  - settings.go: Resolve collects ambiguity warnings from chosen values
*/
package recon

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Percent is a percentage stored canonically as a fraction (0.05138 for
// 5.138%) together with flags recording whether the unit was explicit or
// inferred by the magnitude heuristic, and whether the inference was
// ambiguous.
type Percent struct {
	fraction  decimal.Decimal
	inferred  bool
	ambiguous bool
	set       bool
}

var (
	one        = decimal.NewFromInt(1)
	hundred    = decimal.NewFromInt(100)
	ambigFloor = decimal.NewFromFloat(0.5)
)

// PercentFromPoints builds a Percent from whole-number percentage points,
// e.g. PercentFromPoints(5.138) is 5.138%.
func PercentFromPoints(points float64) Percent {
	return Percent{fraction: decimal.NewFromFloat(points).Div(hundred), set: true}
}

// PercentFromFraction builds a Percent from a fraction, e.g.
// PercentFromFraction(0.05) is 5%.
func PercentFromFraction(fraction float64) Percent {
	return Percent{fraction: decimal.NewFromFloat(fraction), set: true}
}

// PercentFromDecimalFraction builds a Percent from a decimal fraction.
func PercentFromDecimalFraction(fraction decimal.Decimal) Percent {
	return Percent{fraction: fraction, set: true}
}

// NormalizePercent interprets a bare configuration value using the
// magnitude heuristic: raw >= 1 is whole-number percent (divided by 100),
// raw < 1 is already a fraction (unchanged). Values in (0.5, 1] are
// marked ambiguous.
func NormalizePercent(raw decimal.Decimal) Percent {
	ambiguous := raw.GreaterThan(ambigFloor) && raw.LessThanOrEqual(one)
	if raw.GreaterThanOrEqual(one) {
		return Percent{fraction: raw.Div(hundred), inferred: true, ambiguous: ambiguous, set: true}
	}
	return Percent{fraction: raw, inferred: true, ambiguous: ambiguous, set: true}
}

// ParsePercent parses a configuration string. A trailing "%" makes the
// unit explicit (percentage points); otherwise the magnitude heuristic
// applies. Empty strings yield an unset Percent.
func ParsePercent(s string) (Percent, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Percent{}, nil
	}
	explicit := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	raw, err := decimal.NewFromString(s)
	if err != nil {
		return Percent{}, err
	}
	if explicit {
		return Percent{fraction: raw.Div(hundred), set: true}, nil
	}
	return NormalizePercent(raw), nil
}

// IsSet reports whether the percent was configured at all.
func (p Percent) IsSet() bool { return p.set }

// Inferred reports whether the unit was guessed by the heuristic rather
// than stated explicitly.
func (p Percent) Inferred() bool { return p.inferred }

// Ambiguous reports whether the heuristic could not reliably tell which
// unit the raw value used.
func (p Percent) Ambiguous() bool { return p.ambiguous }

// Fraction returns the canonical fractional value (0.05138 for 5.138%).
func (p Percent) Fraction() decimal.Decimal { return p.fraction }

// ApplyTo returns amount x percent.
func (p Percent) ApplyTo(m Money) Money { return m.Mul(p.fraction) }

// String renders the percentage in display form, e.g. "5.138%". The
// round-trip property holds: PercentFromPoints(x).String() shows x.
func (p Percent) String() string {
	if !p.set {
		return ""
	}
	return trimTrailingZeros(p.fraction.Mul(hundred).String()) + "%"
}

func trimTrailingZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
