/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the persistence interfaces (recon.CapHistoryStore,
  recon.PaymentHistoryStore) using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  cap_history:     Committed recoverable amounts per
                   (property, tenant, category, year); future cap references
  estimates:       Current monthly estimate per (property, tenant)
  payments:        Payments received, one row per payment
  gl_lines:        Imported general-ledger lines for batch runs

COMMIT ATOMICITY:
  Commit writes a whole batch inside one transaction so a process crash
  mid-batch leaves history at the prior state. The batch is validated
  for internal conflicts before the transaction opens.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/recon.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := recon.NewEngine(store, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - recon/history.go: Interface definitions
  - recon/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/recon-engine/recon"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Committed cap references, one row per (property, tenant, category, year)
	CREATE TABLE IF NOT EXISTS cap_history (
		property_id TEXT NOT NULL,
		tenant_id   TEXT NOT NULL,
		category    TEXT NOT NULL,
		year        INTEGER NOT NULL,
		amount      TEXT NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (property_id, tenant_id, category, year)
	);

	CREATE INDEX IF NOT EXISTS idx_cap_history_tenant
		ON cap_history(property_id, tenant_id, category);

	-- Monthly estimates, one row per (property, tenant)
	CREATE TABLE IF NOT EXISTS estimates (
		property_id TEXT NOT NULL,
		tenant_id   TEXT NOT NULL,
		monthly     TEXT NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (property_id, tenant_id)
	);

	-- Payments received, one row per payment
	CREATE TABLE IF NOT EXISTS payments (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		property_id TEXT NOT NULL,
		tenant_id   TEXT NOT NULL,
		period      TEXT NOT NULL,
		amount      TEXT NOT NULL,
		recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_payments_tenant
		ON payments(property_id, tenant_id);

	-- Imported general-ledger lines
	CREATE TABLE IF NOT EXISTS gl_lines (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		property_id TEXT NOT NULL,
		period      TEXT NOT NULL,
		account     TEXT NOT NULL,
		description TEXT,
		amount      TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_gl_lines_property_period
		ON gl_lines(property_id, period);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CAP HISTORY
// =============================================================================

// History returns the committed amounts by year for one tenant and
// category. Tenants with no history get an empty map.
func (s *Store) History(ctx context.Context, property recon.PropertyID, tenant recon.TenantID, category recon.Category) (recon.CapHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, amount FROM cap_history
		WHERE property_id = ? AND tenant_id = ? AND category = ?`,
		string(property), string(tenant), string(category))
	if err != nil {
		return nil, fmt.Errorf("querying cap history: %w", err)
	}
	defer rows.Close()

	hist := recon.CapHistory{}
	for rows.Next() {
		var year int
		var amount string
		if err := rows.Scan(&year, &amount); err != nil {
			return nil, fmt.Errorf("scanning cap history: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt cap history amount %q: %w", amount, err)
		}
		hist[year] = recon.MoneyFromDecimal(d)
	}
	return hist, rows.Err()
}

// Commit upserts a whole batch inside one transaction.
func (s *Store) Commit(ctx context.Context, updates []recon.CapHistoryUpdate) error {
	if err := recon.ValidateCommitBatch(updates); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cap history commit: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cap_history (property_id, tenant_id, category, year, amount, updated_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(property_id, tenant_id, category, year)
		DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing cap history upsert: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx,
			string(u.Key.Property), string(u.Key.Tenant), string(u.Key.Category),
			u.Key.Year, u.Amount.String()); err != nil {
			return fmt.Errorf("writing cap history for tenant %s year %d: %w", u.Key.Tenant, u.Key.Year, err)
		}
	}
	return tx.Commit()
}

// Read returns one committed amount, or ErrCapHistory when absent.
func (s *Store) Read(ctx context.Context, key recon.CapHistoryKey) (recon.Money, error) {
	var amount string
	err := s.db.QueryRowContext(ctx, `
		SELECT amount FROM cap_history
		WHERE property_id = ? AND tenant_id = ? AND category = ? AND year = ?`,
		string(key.Property), string(key.Tenant), string(key.Category), key.Year).Scan(&amount)
	if err == sql.ErrNoRows {
		return recon.Money{}, &recon.CapHistoryError{
			Property: key.Property, Tenant: key.Tenant, Category: key.Category, Year: key.Year,
		}
	}
	if err != nil {
		return recon.Money{}, fmt.Errorf("reading cap history: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return recon.Money{}, fmt.Errorf("corrupt cap history amount %q: %w", amount, err)
	}
	return recon.MoneyFromDecimal(d), nil
}

// =============================================================================
// ESTIMATES
// =============================================================================

// LastEstimate returns the current monthly estimate, nil when the
// tenant has never been billed.
func (s *Store) LastEstimate(ctx context.Context, property recon.PropertyID, tenant recon.TenantID) (*recon.Money, error) {
	var monthly string
	err := s.db.QueryRowContext(ctx, `
		SELECT monthly FROM estimates WHERE property_id = ? AND tenant_id = ?`,
		string(property), string(tenant)).Scan(&monthly)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading estimate: %w", err)
	}
	d, err := decimal.NewFromString(monthly)
	if err != nil {
		return nil, fmt.Errorf("corrupt estimate %q: %w", monthly, err)
	}
	m := recon.MoneyFromDecimal(d)
	return &m, nil
}

// SetEstimate records the tenant's current monthly estimate.
func (s *Store) SetEstimate(ctx context.Context, property recon.PropertyID, tenant recon.TenantID, monthly recon.Money) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO estimates (property_id, tenant_id, monthly, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(property_id, tenant_id)
		DO UPDATE SET monthly = excluded.monthly, updated_at = excluded.updated_at`,
		string(property), string(tenant), monthly.String())
	if err != nil {
		return fmt.Errorf("writing estimate: %w", err)
	}
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// Payments returns every recorded payment for the tenant, oldest period
// first.
func (s *Store) Payments(ctx context.Context, property recon.PropertyID, tenant recon.TenantID) ([]recon.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period, amount FROM payments
		WHERE property_id = ? AND tenant_id = ? ORDER BY period, id`,
		string(property), string(tenant))
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	var recs []recon.PaymentRecord
	for rows.Next() {
		var period, amount string
		if err := rows.Scan(&period, &amount); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		p, err := recon.ParsePeriod(period)
		if err != nil {
			return nil, fmt.Errorf("corrupt payment period %q: %w", period, err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt payment amount %q: %w", amount, err)
		}
		recs = append(recs, recon.PaymentRecord{
			Property: property, Tenant: tenant, Period: p, Amount: recon.MoneyFromDecimal(d),
		})
	}
	return recs, rows.Err()
}

// RecordPayment appends one received payment.
func (s *Store) RecordPayment(ctx context.Context, rec recon.PaymentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (property_id, tenant_id, period, amount)
		VALUES (?, ?, ?, ?)`,
		string(rec.Property), string(rec.Tenant), rec.Period.String(), rec.Amount.String())
	if err != nil {
		return fmt.Errorf("writing payment: %w", err)
	}
	return nil
}

// =============================================================================
// GL LINES
// =============================================================================

// SaveGLLines replaces the imported ledger for one property and period
// window. Imports are idempotent per (property, period) pair.
func (s *Store) SaveGLLines(ctx context.Context, lines []recon.GLLineItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger import: %w", err)
	}
	defer tx.Rollback()

	// Clear the periods being re-imported first.
	cleared := make(map[string]bool)
	for _, l := range lines {
		k := string(l.Property) + "|" + l.Period.String()
		if cleared[k] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM gl_lines WHERE property_id = ? AND period = ?`,
			string(l.Property), l.Period.String()); err != nil {
			return fmt.Errorf("clearing ledger for period %s: %w", l.Period, err)
		}
		cleared[k] = true
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gl_lines (property_id, period, account, description, amount)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range lines {
		if _, err := stmt.ExecContext(ctx,
			string(l.Property), l.Period.String(), string(l.Account),
			l.Description, l.Amount.Value.String()); err != nil {
			return fmt.Errorf("writing ledger line: %w", err)
		}
	}
	return tx.Commit()
}

// LoadGLLines returns every imported line for one property.
func (s *Store) LoadGLLines(ctx context.Context, property recon.PropertyID) ([]recon.GLLineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period, account, description, amount FROM gl_lines
		WHERE property_id = ? ORDER BY period, account, id`,
		string(property))
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var lines []recon.GLLineItem
	for rows.Next() {
		var period, account, amount string
		var description sql.NullString
		if err := rows.Scan(&period, &account, &description, &amount); err != nil {
			return nil, fmt.Errorf("scanning ledger line: %w", err)
		}
		p, err := recon.ParsePeriod(period)
		if err != nil {
			return nil, fmt.Errorf("corrupt ledger period %q: %w", period, err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt ledger amount %q: %w", amount, err)
		}
		lines = append(lines, recon.GLLineItem{
			Property:    property,
			Period:      p,
			Account:     recon.GLAccount(account),
			Description: description.String,
			Amount:      recon.MoneyFromDecimal(d),
		})
	}
	return lines, rows.Err()
}
