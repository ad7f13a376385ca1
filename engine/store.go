/*
store.go - Persistence interface for finance records

PURPOSE:
  Defines the interface between the engines' callers and the database.
  The engines themselves never see a store: they receive already-loaded
  record collections and return Mutations. The store interface exists for
  the HTTP shell and for tests.

KEY INTERFACES:
  RecordStore: CRUD for obligations, settlements, instruments, indicators,
               and budgets, plus atomic application of engine mutations.

INVARIANTS ENFORCED ON WRITE:
  - At most one instance per (template, month): creating a second instance
    for the same pair fails with ErrAlreadyConfirmed.
  - At most one settlement per obligation: PutSettlement upserts.

IMPLEMENTATIONS:
  - engine/store: in-memory, for tests and development
  - store/sqlite: SQLite-backed, for the demo server

SEE ALSO:
  - mutation.go: the diffs Apply consumes
  - engine/store/memory.go: reference implementation
*/
package engine

import "context"

// RecordStore persists the engine's record collections. Implementations
// must be safe for concurrent use.
type RecordStore interface {
	// Obligations returns all obligation records (templates, instances, and
	// one-offs alike), ordered by date.
	Obligations(ctx context.Context) ([]Obligation, error)

	// Obligation returns a single record by id, or ErrObligationNotFound.
	Obligation(ctx context.Context, id ObligationID) (Obligation, error)

	// PutObligation creates or replaces a record. Creating an instance
	// whose (template, month) pair already exists fails with
	// ErrAlreadyConfirmed.
	PutObligation(ctx context.Context, o Obligation) error

	// DeleteObligation removes a record. Deleting a template does NOT
	// cascade to its instances: they remain as independent ledger facts.
	DeleteObligation(ctx context.Context, id ObligationID) error

	// Settlements returns all settlement records.
	Settlements(ctx context.Context) ([]Settlement, error)

	// SettlementFor returns the settlement for an obligation, if any.
	SettlementFor(ctx context.Context, id ObligationID) (Settlement, bool, error)

	// Instruments returns all payment instruments.
	Instruments(ctx context.Context) ([]Instrument, error)

	// PutInstrument creates or replaces an instrument.
	PutInstrument(ctx context.Context, ins Instrument) error

	// Indicators returns the full economic indicator series.
	Indicators(ctx context.Context) ([]Indicator, error)

	// PutIndicator creates or replaces the indicators for a month.
	PutIndicator(ctx context.Context, ind Indicator) error

	// Budgets returns all budgets.
	Budgets(ctx context.Context) ([]Budget, error)

	// Budget returns a single budget by id, or ErrBudgetNotFound.
	Budget(ctx context.Context, id BudgetID) (Budget, error)

	// PutBudget creates or replaces a budget.
	PutBudget(ctx context.Context, b Budget) error

	// Apply persists a mutation batch atomically: either every mutation
	// takes effect or none do.
	Apply(ctx context.Context, muts []Mutation) error

	// Reset clears every record. Used by demo scenario loading only.
	Reset(ctx context.Context) error
}
