/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The batch pipeline classifies errors with these sentinels to decide
  whether a failure is tenant-scoped, line-scoped, or ignorable.

ERROR CATEGORIES:
  1. Configuration errors - required setting absent at every level;
     fail the affected tenant only, the batch continues
  2. Data errors - a ledger record that cannot be parsed at import
     time; the import fails as a whole. Lines that parse but cannot be
     used (empty account) are skipped by the filter with an audit
     annotation instead
  3. Cap-history errors - missing history while a cap is enabled;
     treated as first-billing-year, never fatal

USAGE:
  if errors.Is(err, recon.ErrConfiguration) {
      // record against the tenant, continue the batch
  }
*/
package recon

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is returned when a required setting is missing or
	// invalid at every configuration level.
	ErrConfiguration = errors.New("invalid reconciliation configuration")

	// ErrData is returned for a malformed or unparsable ledger line.
	ErrData = errors.New("malformed ledger data")

	// ErrCapHistory is returned when cap enforcement finds no history
	// entry. Callers treat it as first-billing-year semantics.
	ErrCapHistory = errors.New("no cap history entry")

	// ErrHistoryConflict is returned when a commit batch would write the
	// same (property, tenant, category, year) key twice.
	ErrHistoryConflict = errors.New("conflicting cap history write")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError describes a required setting that could not be
// resolved from any of the three configuration levels.
type ConfigurationError struct {
	Field  string
	Tenant TenantID
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s for tenant %s: %s", e.Field, e.Tenant, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// DataError describes a ledger line the filter could not use.
type DataError struct {
	Account GLAccount
	Period  Period
	Reason  string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("ledger data: account %s period %s: %s", e.Account, e.Period, e.Reason)
}

func (e *DataError) Unwrap() error { return ErrData }

// CapHistoryError describes a missing cap reference.
type CapHistoryError struct {
	Property PropertyID
	Tenant   TenantID
	Category Category
	Year     int
}

func (e *CapHistoryError) Error() string {
	return fmt.Sprintf("cap history: no entry for property %s tenant %s category %s year %d",
		e.Property, e.Tenant, e.Category, e.Year)
}

func (e *CapHistoryError) Unwrap() error { return ErrCapHistory }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsTenantScoped returns true if the error fails one tenant but should
// not abort the batch.
func IsTenantScoped(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsRecoverable returns true if the error is absorbed within a tenant
// run (line skipped, cap skipped) rather than failing it.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrData) || errors.Is(err, ErrCapHistory)
}
