/*
history.go - Cap-history and payment-history store contracts

PURPOSE:
  The cap stage reads committed prior-year amounts and, after a batch
  succeeds, writes the current year's amounts back. These interfaces
  keep the engine pure: the pipeline reads a snapshot up front, computes
  against it, and commits updates in one deferred step.

COMMIT DISCIPLINE:
  Updates are buffered during the run and written only after every
  selected tenant has computed successfully, so a half-failed batch
  never poisons next year's references. A dry run skips the commit
  entirely and is idempotent by construction.

SEE ALSO:
  - caps.go: the enforcement math that consumes CapHistory
  - store/memory.go and store/sqlite: implementations
*/
package recon

import (
	"context"
	"fmt"
)

// CapHistoryKey identifies one committed amount.
type CapHistoryKey struct {
	Property PropertyID
	Tenant   TenantID
	Category Category
	Year     int
}

// CapHistoryUpdate is one buffered write.
type CapHistoryUpdate struct {
	Key    CapHistoryKey
	Amount Money
}

// CapHistoryStore persists committed cap amounts across runs.
type CapHistoryStore interface {
	// History returns the tenant's committed amounts by year for one
	// category. A tenant with no history returns an empty map, not an
	// error.
	History(ctx context.Context, property PropertyID, tenant TenantID, category Category) (CapHistory, error)

	// Commit writes a batch of updates atomically. Re-committing the
	// same key overwrites it; two conflicting amounts for the same key
	// within one batch fail with ErrHistoryConflict.
	Commit(ctx context.Context, updates []CapHistoryUpdate) error
}

// PaymentRecord is one payment received from a tenant, attributed to an
// accounting period.
type PaymentRecord struct {
	Property PropertyID
	Tenant   TenantID
	Period   Period
	Amount   Money
}

// PaymentHistoryStore supplies the previous monthly estimate and the
// received payments per tenant.
type PaymentHistoryStore interface {
	// LastEstimate returns nil when the tenant has never been billed.
	LastEstimate(ctx context.Context, property PropertyID, tenant TenantID) (*Money, error)

	// Payments returns every recorded payment for the tenant. Tenants
	// with no payments return an empty slice, not an error.
	Payments(ctx context.Context, property PropertyID, tenant TenantID) ([]PaymentRecord, error)
}

// ValidateCommitBatch rejects batches carrying two different amounts for
// the same key. Stores call this before writing.
func ValidateCommitBatch(updates []CapHistoryUpdate) error {
	seen := make(map[CapHistoryKey]Money, len(updates))
	for _, u := range updates {
		if prev, ok := seen[u.Key]; ok && !prev.Equal(u.Amount) {
			return &CapHistoryConflictError{Key: u.Key, First: prev, Second: u.Amount}
		}
		seen[u.Key] = u.Amount
	}
	return nil
}

// CapHistoryConflictError reports a contradictory batch.
type CapHistoryConflictError struct {
	Key    CapHistoryKey
	First  Money
	Second Money
}

func (e *CapHistoryConflictError) Error() string {
	return fmt.Sprintf("cap history: conflicting amounts %s and %s for tenant %s year %d",
		e.First, e.Second, e.Key.Tenant, e.Key.Year)
}

func (e *CapHistoryConflictError) Unwrap() error { return ErrHistoryConflict }
