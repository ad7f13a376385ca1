/*
Package sqlite provides a SQLite-backed implementation of engine.RecordStore.

PURPOSE:
  Persists obligations, settlements, instruments, economic indicators, and
  budgets using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  engine.RecordStore: full record persistence + atomic mutation batches

KEY TABLES:
  obligations: Templates, confirmed instances, and one-off records
  settlements: One settlement per obligation (payment/receipt facts)
  instruments: Payment instruments with closing days
  indicators:  Monthly economic indicator series
  budgets:     Budgets with allocations as JSON

UNIQUENESS:
  idx_obligations_provenance enforces at most ONE instance per
  (template, month). A violated insert surfaces as
  engine.AlreadyConfirmedError, the same error the engines and the
  memory store produce.

AMOUNTS AS TEXT:
  Monetary columns store decimal STRINGS. SQLite REAL is a float64 and would
  silently round; the decimal stack exists to prevent exactly that.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/finance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/engine"
)

const dateLayout = "2006-01-02"

// Store implements engine.RecordStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ engine.RecordStore = (*Store)(nil)

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
	-- Obligations (templates, instances, and one-off records)
	CREATE TABLE IF NOT EXISTS obligations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		frequency TEXT NOT NULL,
		direction TEXT NOT NULL,
		is_recurring BOOLEAN DEFAULT FALSE,
		recurring_day INTEGER DEFAULT 0,
		date TEXT NOT NULL,
		category_id TEXT DEFAULT '',
		instrument_id TEXT DEFAULT '',
		tags_json TEXT,
		recurrence_template_id TEXT DEFAULT '',
		recurrence_month TEXT DEFAULT '',
		snoozed_until TEXT,
		reminder_days INTEGER DEFAULT 0,
		settled_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_obligations_date
		ON obligations(date);
	CREATE INDEX IF NOT EXISTS idx_obligations_category
		ON obligations(category_id);

	-- CRITICAL: at most one confirmed instance per (template, month)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_obligations_provenance
		ON obligations(recurrence_template_id, recurrence_month)
		WHERE recurrence_template_id != '' AND recurrence_month != '';

	-- Settlements (one per obligation)
	CREATE TABLE IF NOT EXISTS settlements (
		obligation_id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		settled_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Payment instruments
	CREATE TABLE IF NOT EXISTS instruments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		closing_day INTEGER DEFAULT 0
	);

	-- Monthly economic indicators
	CREATE TABLE IF NOT EXISTS indicators (
		month TEXT PRIMARY KEY,
		inflation_rate TEXT NOT NULL,
		purchasing_power_index TEXT NOT NULL,
		usd_official_rate TEXT NOT NULL,
		usd_parallel_rate TEXT NOT NULL
	);

	-- Budgets (allocations stored as JSON)
	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		allocations_json TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// OBLIGATIONS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Obligations returns all records ordered by date, then id.
func (s *Store) Obligations(ctx context.Context) ([]engine.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryObligations(ctx, `
		SELECT id, name, amount, currency, frequency, direction, is_recurring,
		       recurring_day, date, category_id, instrument_id, tags_json,
		       recurrence_template_id, recurrence_month, snoozed_until,
		       reminder_days, settled_at
		FROM obligations
		ORDER BY date, id
	`)
}

// Obligation returns a single record by id.
func (s *Store) Obligation(ctx context.Context, id engine.ObligationID) (engine.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.queryObligations(ctx, `
		SELECT id, name, amount, currency, frequency, direction, is_recurring,
		       recurring_day, date, category_id, instrument_id, tags_json,
		       recurrence_template_id, recurrence_month, snoozed_until,
		       reminder_days, settled_at
		FROM obligations
		WHERE id = ?
	`, string(id))
	if err != nil {
		return engine.Obligation{}, err
	}
	if len(records) == 0 {
		return engine.Obligation{}, engine.ErrObligationNotFound
	}
	return records[0], nil
}

// PutObligation creates or replaces a record.
func (s *Store) PutObligation(ctx context.Context, o engine.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putObligation(ctx, s.db, o)
}

func (s *Store) putObligation(ctx context.Context, db execer, o engine.Obligation) error {
	tagsJSON, _ := json.Marshal(o.Tags)

	var templateID, month, snoozedUntil string
	var reminderDays int
	if o.Recurrence != nil {
		templateID = string(o.Recurrence.TemplateID)
		month = string(o.Recurrence.Month)
		if !o.Recurrence.SnoozedUntil.IsZero() {
			snoozedUntil = o.Recurrence.SnoozedUntil.Format(dateLayout)
		}
		reminderDays = o.Recurrence.ReminderDays
	}
	var settledAt string
	if o.Settlement != nil {
		settledAt = o.Settlement.SettledAt.Format(dateLayout)
	}

	query := `
		INSERT INTO obligations
		(id, name, amount, currency, frequency, direction, is_recurring,
		 recurring_day, date, category_id, instrument_id, tags_json,
		 recurrence_template_id, recurrence_month, snoozed_until,
		 reminder_days, settled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount,
			currency = excluded.currency,
			frequency = excluded.frequency,
			direction = excluded.direction,
			is_recurring = excluded.is_recurring,
			recurring_day = excluded.recurring_day,
			date = excluded.date,
			category_id = excluded.category_id,
			instrument_id = excluded.instrument_id,
			tags_json = excluded.tags_json,
			recurrence_template_id = excluded.recurrence_template_id,
			recurrence_month = excluded.recurrence_month,
			snoozed_until = excluded.snoozed_until,
			reminder_days = excluded.reminder_days,
			settled_at = excluded.settled_at
	`

	_, err := db.ExecContext(ctx, query,
		string(o.ID),
		o.Name,
		o.Amount.String(),
		string(o.Currency),
		string(o.Frequency),
		string(o.Direction),
		o.IsRecurring,
		o.RecurringDay,
		o.Date.Format(dateLayout),
		string(o.CategoryID),
		string(o.InstrumentID),
		string(tagsJSON),
		templateID,
		month,
		nullString(snoozedUntil),
		reminderDays,
		nullString(settledAt),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) && o.IsInstance() {
			return &engine.AlreadyConfirmedError{
				TemplateID: o.Recurrence.TemplateID,
				Month:      o.Recurrence.Month,
			}
		}
		return fmt.Errorf("failed to save obligation: %w", err)
	}
	return nil
}

// DeleteObligation removes a record and its settlement. Instances of a
// deleted template are left in place: they are ledger facts.
func (s *Store) DeleteObligation(ctx context.Context, id engine.ObligationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM obligations WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete obligation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return engine.ErrObligationNotFound
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM settlements WHERE obligation_id = ?`, string(id))
	return err
}

func (s *Store) queryObligations(ctx context.Context, query string, args ...any) ([]engine.Obligation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer rows.Close()

	var out []engine.Obligation
	for rows.Next() {
		var o engine.Obligation
		var id, currency, freq, direction string
		var amountStr, dateStr, tagsJSON string
		var categoryID, instrumentID string
		var templateID, month string
		var snoozedUntil, settledAt sql.NullString
		var reminderDays int
		if err := rows.Scan(&id, &o.Name, &amountStr, &currency, &freq, &direction,
			&o.IsRecurring, &o.RecurringDay, &dateStr, &categoryID, &instrumentID,
			&tagsJSON, &templateID, &month, &snoozedUntil, &reminderDays, &settledAt); err != nil {
			return nil, fmt.Errorf("failed to scan obligation: %w", err)
		}

		o.ID = engine.ObligationID(id)
		o.Currency = engine.Currency(currency)
		o.Frequency = engine.Frequency(freq)
		o.Direction = engine.Direction(direction)
		o.CategoryID = engine.CategoryID(categoryID)
		o.InstrumentID = engine.InstrumentID(instrumentID)

		if o.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("corrupt amount for obligation %s: %w", id, err)
		}
		if o.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("corrupt date for obligation %s: %w", id, err)
		}
		if tagsJSON != "" {
			if err := json.Unmarshal([]byte(tagsJSON), &o.Tags); err != nil {
				return nil, fmt.Errorf("corrupt tags for obligation %s: %w", id, err)
			}
		}

		if templateID != "" || month != "" || snoozedUntil.Valid || reminderDays != 0 {
			state := &engine.RecurrenceState{
				TemplateID:   engine.ObligationID(templateID),
				Month:        engine.MonthKey(month),
				ReminderDays: reminderDays,
			}
			if snoozedUntil.Valid && snoozedUntil.String != "" {
				if state.SnoozedUntil, err = time.Parse(dateLayout, snoozedUntil.String); err != nil {
					return nil, fmt.Errorf("corrupt snooze for obligation %s: %w", id, err)
				}
			}
			o.Recurrence = state
		}
		if settledAt.Valid && settledAt.String != "" {
			at, err := time.Parse(dateLayout, settledAt.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt settled_at for obligation %s: %w", id, err)
			}
			o.Settlement = &engine.SettlementState{SettledAt: at}
		}

		out = append(out, o)
	}
	return out, rows.Err()
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

// Settlements returns all settlement records.
func (s *Store) Settlements(ctx context.Context) ([]engine.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT obligation_id, amount, currency, settled_at
		FROM settlements
		ORDER BY obligation_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var out []engine.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SettlementFor returns the settlement for an obligation, if any.
func (s *Store) SettlementFor(ctx context.Context, id engine.ObligationID) (engine.Settlement, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT obligation_id, amount, currency, settled_at
		FROM settlements
		WHERE obligation_id = ?
	`, string(id))

	st, err := scanSettlement(row)
	if err == sql.ErrNoRows {
		return engine.Settlement{}, false, nil
	}
	if err != nil {
		return engine.Settlement{}, false, err
	}
	return st, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (engine.Settlement, error) {
	var st engine.Settlement
	var id, amountStr, currency, settledAtStr string
	if err := row.Scan(&id, &amountStr, &currency, &settledAtStr); err != nil {
		if err == sql.ErrNoRows {
			return engine.Settlement{}, err
		}
		return engine.Settlement{}, fmt.Errorf("failed to scan settlement: %w", err)
	}

	st.ObligationID = engine.ObligationID(id)
	st.Currency = engine.Currency(currency)

	var err error
	if st.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return engine.Settlement{}, fmt.Errorf("corrupt amount for settlement %s: %w", id, err)
	}
	if st.SettledAt, err = time.Parse(dateLayout, settledAtStr); err != nil {
		return engine.Settlement{}, fmt.Errorf("corrupt settled_at for settlement %s: %w", id, err)
	}
	return st, nil
}

func (s *Store) putSettlement(ctx context.Context, db execer, st engine.Settlement) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settlements (obligation_id, amount, currency, settled_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(obligation_id) DO UPDATE SET
			amount = excluded.amount,
			currency = excluded.currency,
			settled_at = excluded.settled_at
	`,
		string(st.ObligationID),
		st.Amount.String(),
		string(st.Currency),
		st.SettledAt.Format(dateLayout),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save settlement: %w", err)
	}
	return nil
}

// =============================================================================
// INSTRUMENTS
// =============================================================================

// Instruments returns all payment instruments.
func (s *Store) Instruments(ctx context.Context) ([]engine.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, closing_day FROM instruments ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var out []engine.Instrument
	for rows.Next() {
		var ins engine.Instrument
		var id, kind string
		if err := rows.Scan(&id, &ins.Name, &kind, &ins.ClosingDay); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		ins.ID = engine.InstrumentID(id)
		ins.Kind = engine.InstrumentKind(kind)
		out = append(out, ins)
	}
	return out, rows.Err()
}

// PutInstrument creates or replaces an instrument.
func (s *Store) PutInstrument(ctx context.Context, ins engine.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instruments (id, name, kind, closing_day)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			closing_day = excluded.closing_day
	`, string(ins.ID), ins.Name, string(ins.Kind), ins.ClosingDay)
	if err != nil {
		return fmt.Errorf("failed to save instrument: %w", err)
	}
	return nil
}

// =============================================================================
// INDICATORS
// =============================================================================

// Indicators returns the full indicator series, sorted by month.
func (s *Store) Indicators(ctx context.Context) ([]engine.Indicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT month, inflation_rate, purchasing_power_index,
		       usd_official_rate, usd_parallel_rate
		FROM indicators
		ORDER BY month
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators: %w", err)
	}
	defer rows.Close()

	var out []engine.Indicator
	for rows.Next() {
		var ind engine.Indicator
		var month, inflation, ppi, official, parallel string
		if err := rows.Scan(&month, &inflation, &ppi, &official, &parallel); err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}

		ind.Month = engine.MonthKey(month)
		for _, field := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&ind.InflationRate, inflation},
			{&ind.PurchasingPowerIndex, ppi},
			{&ind.USDOfficialRate, official},
			{&ind.USDParallelRate, parallel},
		} {
			if *field.dst, err = decimal.NewFromString(field.src); err != nil {
				return nil, fmt.Errorf("corrupt indicator for %s: %w", month, err)
			}
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

// PutIndicator creates or replaces the indicators for a month.
func (s *Store) PutIndicator(ctx context.Context, ind engine.Indicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indicators
		(month, inflation_rate, purchasing_power_index, usd_official_rate, usd_parallel_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(month) DO UPDATE SET
			inflation_rate = excluded.inflation_rate,
			purchasing_power_index = excluded.purchasing_power_index,
			usd_official_rate = excluded.usd_official_rate,
			usd_parallel_rate = excluded.usd_parallel_rate
	`,
		string(ind.Month),
		ind.InflationRate.String(),
		ind.PurchasingPowerIndex.String(),
		ind.USDOfficialRate.String(),
		ind.USDParallelRate.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save indicator: %w", err)
	}
	return nil
}

// =============================================================================
// BUDGETS
// =============================================================================

// allocationRecord is the JSON persisted form of an allocation.
type allocationRecord struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
}

// Budgets returns all budgets.
func (s *Store) Budgets(ctx context.Context) ([]engine.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, period_start, period_end, allocations_json
		FROM budgets
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var out []engine.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Budget returns a single budget by id.
func (s *Store) Budget(ctx context.Context, id engine.BudgetID) (engine.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, period_start, period_end, allocations_json
		FROM budgets
		WHERE id = ?
	`, string(id))

	b, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return engine.Budget{}, engine.ErrBudgetNotFound
	}
	return b, err
}

func scanBudget(row rowScanner) (engine.Budget, error) {
	var b engine.Budget
	var id, startStr, endStr, allocJSON string
	if err := row.Scan(&id, &b.Name, &startStr, &endStr, &allocJSON); err != nil {
		if err == sql.ErrNoRows {
			return engine.Budget{}, err
		}
		return engine.Budget{}, fmt.Errorf("failed to scan budget: %w", err)
	}

	b.ID = engine.BudgetID(id)

	var err error
	if b.PeriodStart, err = time.Parse(dateLayout, startStr); err != nil {
		return engine.Budget{}, fmt.Errorf("corrupt period_start for budget %s: %w", id, err)
	}
	if b.PeriodEnd, err = time.Parse(dateLayout, endStr); err != nil {
		return engine.Budget{}, fmt.Errorf("corrupt period_end for budget %s: %w", id, err)
	}

	var records []allocationRecord
	if err := json.Unmarshal([]byte(allocJSON), &records); err != nil {
		return engine.Budget{}, fmt.Errorf("corrupt allocations for budget %s: %w", id, err)
	}
	for _, r := range records {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return engine.Budget{}, fmt.Errorf("corrupt allocation amount for budget %s: %w", id, err)
		}
		b.Allocations = append(b.Allocations, engine.Allocation{
			CategoryID: engine.CategoryID(r.CategoryID),
			Amount:     amount,
			Currency:   engine.Currency(r.Currency),
		})
	}
	return b, nil
}

// PutBudget creates or replaces a budget.
func (s *Store) PutBudget(ctx context.Context, b engine.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]allocationRecord, len(b.Allocations))
	for i, a := range b.Allocations {
		records[i] = allocationRecord{
			CategoryID: string(a.CategoryID),
			Amount:     a.Amount.String(),
			Currency:   string(a.Currency),
		}
	}
	allocJSON, err := json.Marshal(records)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, name, period_start, period_end, allocations_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			allocations_json = excluded.allocations_json
	`,
		string(b.ID),
		b.Name,
		b.PeriodStart.Format(dateLayout),
		b.PeriodEnd.Format(dateLayout),
		string(allocJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// =============================================================================
// MUTATION BATCHES
// =============================================================================

// Apply persists a mutation batch inside a single SQL transaction: either
// every mutation takes effect or none do.
func (s *Store) Apply(ctx context.Context, muts []engine.Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, mut := range muts {
		switch mut.Op {
		case engine.OpCreateObligation, engine.OpUpdateObligation:
			if err := s.putObligation(ctx, tx, *mut.Obligation); err != nil {
				return err
			}
		case engine.OpPutSettlement:
			if err := s.putSettlement(ctx, tx, *mut.Settlement); err != nil {
				return err
			}
		case engine.OpDeleteSettlement:
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM settlements WHERE obligation_id = ?`,
				string(mut.Settlement.ObligationID)); err != nil {
				return fmt.Errorf("failed to delete settlement: %w", err)
			}
		default:
			return fmt.Errorf("unknown mutation op %q", mut.Op)
		}
	}

	return tx.Commit()
}

// Reset clears every record (development/demo only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"obligations", "settlements", "instruments", "indicators", "budgets"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
