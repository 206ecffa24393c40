package recon

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Monthly accounting period (YYYYMM)
// =============================================================================

// Period is a single accounting month. The zero value is invalid.
type Period struct {
	Year  int
	Month time.Month
}

func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses a YYYYMM string such as "202404".
func ParsePeriod(s string) (Period, error) {
	if len(s) != 6 {
		return Period{}, fmt.Errorf("invalid period %q: expected YYYYMM", s)
	}
	var year, month int
	if _, err := fmt.Sscanf(s, "%4d%2d", &year, &month); err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid period %q: month out of range", s)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

func (p Period) IsZero() bool { return p.Year == 0 }

func (p Period) String() string { return fmt.Sprintf("%04d%02d", p.Year, int(p.Month)) }

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) Before(o Period) bool {
	return p.Year < o.Year || (p.Year == o.Year && p.Month < o.Month)
}

func (p Period) After(o Period) bool { return o.Before(p) }

func (p Period) Equal(o Period) bool { return p == o }

// FirstDay and LastDay bound the period in calendar days (UTC).
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) LastDay() time.Time {
	return p.FirstDay().AddDate(0, 1, -1)
}

// Days returns the number of calendar days in the period.
func (p Period) Days() int { return p.LastDay().Day() }

// =============================================================================
// PERIOD WINDOWS - Reconciliation and catch-up ranges
// =============================================================================

// ReconPeriods returns the twelve months of the reconciliation year.
func ReconPeriods(year int) []Period {
	periods := make([]Period, 0, 12)
	for m := time.January; m <= time.December; m++ {
		periods = append(periods, Period{Year: year, Month: m})
	}
	return periods
}

// CatchupPeriods returns the trailing billing window: January of the year
// after the reconciliation year through the cutoff period, inclusive. A
// cutoff within or before the reconciliation year yields no periods.
func CatchupPeriods(reconYear int, cutoff Period) []Period {
	if cutoff.IsZero() || cutoff.Year <= reconYear {
		return nil
	}
	var periods []Period
	for p := (Period{Year: reconYear + 1, Month: time.January}); !p.After(cutoff); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

// PeriodSet supports O(1) membership checks while filtering ledger lines.
type PeriodSet map[Period]struct{}

func NewPeriodSet(periods []Period) PeriodSet {
	set := make(PeriodSet, len(periods))
	for _, p := range periods {
		set[p] = struct{}{}
	}
	return set
}

func (s PeriodSet) Contains(p Period) bool {
	_, ok := s[p]
	return ok
}
