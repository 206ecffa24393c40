// Package store provides CapHistoryStore and PaymentHistoryStore
// implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/recon-engine/recon"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	history   map[recon.CapHistoryKey]recon.Money
	estimates map[estimateKey]recon.Money
	payments  map[estimateKey][]recon.PaymentRecord
}

type estimateKey struct {
	Property recon.PropertyID
	Tenant   recon.TenantID
}

func NewMemory() *Memory {
	return &Memory{
		history:   make(map[recon.CapHistoryKey]recon.Money),
		estimates: make(map[estimateKey]recon.Money),
		payments:  make(map[estimateKey][]recon.PaymentRecord),
	}
}

// History returns the committed amounts by year for one tenant and
// category. Tenants with no history get an empty map.
func (m *Memory) History(_ context.Context, property recon.PropertyID, tenant recon.TenantID, category recon.Category) (recon.CapHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hist := recon.CapHistory{}
	for k, amount := range m.history {
		if k.Property == property && k.Tenant == tenant && k.Category == category {
			hist[k.Year] = amount
		}
	}
	return hist, nil
}

// Commit upserts a batch of updates atomically. Conflicting amounts for
// the same key within one batch fail before anything is written.
func (m *Memory) Commit(_ context.Context, updates []recon.CapHistoryUpdate) error {
	if err := recon.ValidateCommitBatch(updates); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		m.history[u.Key] = u.Amount
	}
	return nil
}

// Read returns one committed amount, or ErrCapHistory when absent.
func (m *Memory) Read(_ context.Context, key recon.CapHistoryKey) (recon.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	amount, ok := m.history[key]
	if !ok {
		return recon.Money{}, &recon.CapHistoryError{
			Property: key.Property, Tenant: key.Tenant, Category: key.Category, Year: key.Year,
		}
	}
	return amount, nil
}

// LastEstimate returns the previous monthly estimate, nil when the
// tenant has never been billed.
func (m *Memory) LastEstimate(_ context.Context, property recon.PropertyID, tenant recon.TenantID) (*recon.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	amount, ok := m.estimates[estimateKey{Property: property, Tenant: tenant}]
	if !ok {
		return nil, nil
	}
	return &amount, nil
}

// SetEstimate records the tenant's current monthly estimate.
func (m *Memory) SetEstimate(_ context.Context, property recon.PropertyID, tenant recon.TenantID, monthly recon.Money) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estimates[estimateKey{Property: property, Tenant: tenant}] = monthly
	return nil
}

// Payments returns every recorded payment for the tenant.
func (m *Memory) Payments(_ context.Context, property recon.PropertyID, tenant recon.TenantID) ([]recon.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.payments[estimateKey{Property: property, Tenant: tenant}]
	return append([]recon.PaymentRecord(nil), stored...), nil
}

// RecordPayment appends one received payment.
func (m *Memory) RecordPayment(_ context.Context, rec recon.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := estimateKey{Property: rec.Property, Tenant: rec.Tenant}
	m.payments[key] = append(m.payments[key], rec)
	return nil
}
