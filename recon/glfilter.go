/*
glfilter.go - Ledger categorization, exclusion, and netting

PURPOSE:
  Turns raw general-ledger lines into per-category totals. Membership is
  decided by the merged inclusion lists (or the default account ranges
  when no list is configured), exclusions are applied with provenance,
  and accounts whose net balance for the year is negative are dropped
  from recoverable totals.

ACCOUNT MATCHING:
  Accounts may carry an "MR" ledger prefix ("MR510000"); the prefix is
  stripped before comparison. Rules are either exact accounts or
  inclusive numeric ranges written "500000-509999". Non-numeric accounts
  only ever match exact rules.

DEFAULT RANGES (when no inclusion list is configured):
  ret: 500000-509999
  cam: 510000-799999

NEGATIVE NET BALANCE:
  An account whose lines net to a negative amount for the filtered
  window represents a recovery or correction, not a recoverable expense.
  All of its lines are excluded with reason "negative-balance-excluded"
  and are left out of the category gross, unlike rule exclusions, which
  remain visible in gross with their amount carried as ExcludedAmount.

SEE ALSO:
  - settings.go: merged inclusion/exclusion lists and admin-fee chain
  - expense.go: consumes the categorized lines
*/
package recon

import (
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// ACCOUNT MATCHING
// =============================================================================

// glPrefix is the ledger system's account prefix, ignored in comparisons.
const glPrefix = "MR"

// NormalizeAccount strips the ledger prefix and surrounding whitespace.
func NormalizeAccount(a GLAccount) string {
	s := strings.TrimSpace(string(a))
	return strings.TrimPrefix(s, glPrefix)
}

// Matches reports whether the rule applies to the account. Range rules
// ("500000-509999") compare numerically; exact rules compare the
// normalized strings.
func (r AccountRule) Matches(account GLAccount) bool {
	acct := NormalizeAccount(account)
	rule := NormalizeAccount(GLAccount(r))

	if lo, hi, ok := splitRange(rule); ok {
		n, err := strconv.Atoi(acct)
		if err != nil {
			return false
		}
		return lo <= n && n <= hi
	}
	return acct == rule
}

// splitRange parses "500000-509999" style rules.
func splitRange(rule string) (lo, hi int, ok bool) {
	i := strings.IndexByte(rule, '-')
	if i <= 0 || i == len(rule)-1 {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(rule[:i]))
	hi, err2 := strconv.Atoi(strings.TrimSpace(rule[i+1:]))
	if err1 != nil || err2 != nil || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

func matchesAny(rules []AccountRule, account GLAccount) bool {
	for _, r := range rules {
		if r.Matches(account) {
			return true
		}
	}
	return false
}

// defaultCategoryRules are used for a category with no inclusion list.
var defaultCategoryRules = map[Category][]AccountRule{
	CategoryRET: {"500000-509999"},
	CategoryCAM: {"510000-799999"},
}

// inCategory decides category membership: the configured inclusion list
// when non-empty, otherwise the default account range.
func inCategory(s *EffectiveSettings, cat Category, account GLAccount) bool {
	rules := s.Inclusions[ListCategory(cat)]
	if len(rules) == 0 {
		rules = defaultCategoryRules[cat]
	}
	return matchesAny(rules, account)
}

// =============================================================================
// FILTERING
// =============================================================================

// FilterResult is the categorized view of the ledger for one tenant run.
type FilterResult struct {
	Lines  []CategorizedLine
	Totals map[Category]CategoryTotals
	Audit  []AuditNote
}

// Filter categorizes the ledger lines for one property and period window
// under the effective settings. Malformed lines are skipped with an
// audit note; they never fail the run.
func Filter(lines []GLLineItem, s *EffectiveSettings, categories []Category, periods PeriodSet) *FilterResult {
	res := &FilterResult{Totals: make(map[Category]CategoryTotals, len(categories))}
	for _, cat := range categories {
		res.Totals[cat] = CategoryTotals{}
	}

	// First pass: categorize and record per-account net balances.
	type acctKey struct {
		Category Category
		Account  string
	}
	netByAccount := make(map[acctKey]Money)

	for _, line := range lines {
		if line.Property != s.Property {
			continue
		}
		if line.Period.IsZero() || !periods.Contains(line.Period) {
			continue
		}
		if strings.TrimSpace(string(line.Account)) == "" {
			res.Audit = append(res.Audit, AuditNote{
				Code:    string(ExclusionMalformed),
				Message: "ledger line with empty account skipped",
				Period:  line.Period,
			})
			continue
		}

		for _, cat := range categories {
			if !inCategory(s, cat, line.Account) {
				continue
			}
			cl := CategorizedLine{Line: line, Category: cat}
			if matchesAny(s.Exclusions[ListCategory(cat)], line.Account) {
				cl.Excluded = true
				cl.ExclusionReason = ExclusionRule
			}
			cl.BaseEligible = !cl.Excluded &&
				!matchesAny(s.Exclusions[ListBase], line.Account)
			cl.CapEligible = !cl.Excluded &&
				!matchesAny(s.Exclusions[ListCap], line.Account)
			if cat == CategoryCAM && !cl.Excluded {
				cl.AdminFeeEligible = !matchesAny(s.Exclusions[ListAdminFee], line.Account)
				if cl.AdminFeeEligible {
					cl.AdminFeePercent = s.AdminFeePercentFor(line.Account)
				}
			}
			res.Lines = append(res.Lines, cl)

			if !cl.Excluded {
				key := acctKey{Category: cat, Account: NormalizeAccount(line.Account)}
				netByAccount[key] = netByAccount[key].Add(line.Amount)
			}
			break // a line belongs to at most one category
		}
	}

	// Second pass: drop accounts that net negative for the window.
	negative := make(map[acctKey]bool)
	for key, net := range netByAccount {
		if net.IsNegative() {
			negative[key] = true
		}
	}
	if len(negative) > 0 {
		noted := make(map[acctKey]bool)
		for i := range res.Lines {
			cl := &res.Lines[i]
			key := acctKey{Category: cl.Category, Account: NormalizeAccount(cl.Line.Account)}
			if cl.Excluded || !negative[key] {
				continue
			}
			cl.Excluded = true
			cl.ExclusionReason = ExclusionNegativeBalance
			cl.BaseEligible = false
			cl.CapEligible = false
			cl.AdminFeeEligible = false
			if !noted[key] {
				noted[key] = true
				res.Audit = append(res.Audit, AuditNote{
					Code:    string(ExclusionNegativeBalance),
					Message: "account nets negative for the reconciliation window; all lines excluded",
					Account: cl.Line.Account,
				})
			}
		}
	}

	// Totals. Rule-excluded lines stay in gross with their amount carried
	// as ExcludedAmount; negative-balance accounts are out of gross
	// entirely, so Net = Gross - ExcludedAmount holds either way.
	for _, cl := range res.Lines {
		t := res.Totals[cl.Category]
		t.LineCount++
		switch {
		case cl.ExclusionReason == ExclusionNegativeBalance:
			t.ExcludedCount++
		case cl.Excluded:
			t.ExcludedCount++
			t.Gross = t.Gross.Add(cl.Line.Amount)
			t.ExcludedAmount = t.ExcludedAmount.Add(cl.Line.Amount)
		default:
			t.Gross = t.Gross.Add(cl.Line.Amount)
			t.Net = t.Net.Add(cl.Line.Amount)
		}
		res.Totals[cl.Category] = t
	}

	sortAudit(res.Audit)
	return res
}

// sortAudit keeps audit output deterministic across runs.
func sortAudit(notes []AuditNote) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Code != notes[j].Code {
			return notes[i].Code < notes[j].Code
		}
		return notes[i].Account < notes[j].Account
	})
}
