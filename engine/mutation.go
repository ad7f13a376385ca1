/*
mutation.go - Record diffs returned by the engines

PURPOSE:
  The engines are pure: they never write to storage. Operations that change
  records (confirming an instance, snoozing a template, settling an
  obligation) instead return Mutations - create/update/delete intents that
  the caller persists however it likes.

WHY DIFFS?
  - Testability: engine behavior is asserted on returned values, no store
    needed.
  - Atomicity: the caller applies a whole mutation batch in one storage
    transaction, so a confirm (instance + template bookkeeping) is
    all-or-nothing.
  - Idempotency: stores enforce the (template, month) uniqueness and
    one-settlement-per-obligation invariants on apply, so a double-submitted
    batch cannot create duplicates.

SEE ALSO:
  - store.go: RecordStore.Apply consumes mutation batches
  - recurrence/: the producer of all mutations
*/
package engine

// MutationOp identifies what a Mutation does.
type MutationOp string

const (
	OpCreateObligation MutationOp = "create_obligation"
	OpUpdateObligation MutationOp = "update_obligation"
	OpPutSettlement    MutationOp = "put_settlement"
	OpDeleteSettlement MutationOp = "delete_settlement"
)

// Mutation is a single persistence intent. Exactly one of Obligation or
// Settlement is set, matching the operation.
type Mutation struct {
	Op         MutationOp
	Obligation *Obligation
	Settlement *Settlement
}

// CreateObligation builds a create intent.
func CreateObligation(o Obligation) Mutation {
	return Mutation{Op: OpCreateObligation, Obligation: &o}
}

// UpdateObligation builds an update intent.
func UpdateObligation(o Obligation) Mutation {
	return Mutation{Op: OpUpdateObligation, Obligation: &o}
}

// PutSettlement builds a settlement upsert intent.
func PutSettlement(s Settlement) Mutation {
	return Mutation{Op: OpPutSettlement, Settlement: &s}
}

// DeleteSettlement builds a settlement delete intent.
func DeleteSettlement(obligationID ObligationID) Mutation {
	return Mutation{Op: OpDeleteSettlement, Settlement: &Settlement{ObligationID: obligationID}}
}
