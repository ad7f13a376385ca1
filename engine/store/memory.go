// Package store provides RecordStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/finance-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	obligations map[engine.ObligationID]engine.Obligation
	settlements map[engine.ObligationID]engine.Settlement
	instruments map[engine.InstrumentID]engine.Instrument
	indicators  map[engine.MonthKey]engine.Indicator
	budgets     map[engine.BudgetID]engine.Budget

	// instance uniqueness index: (template, month) -> instance id
	instances map[instanceKey]engine.ObligationID
}

type instanceKey struct {
	TemplateID engine.ObligationID
	Month      engine.MonthKey
}

func NewMemory() *Memory {
	return &Memory{
		obligations: make(map[engine.ObligationID]engine.Obligation),
		settlements: make(map[engine.ObligationID]engine.Settlement),
		instruments: make(map[engine.InstrumentID]engine.Instrument),
		indicators:  make(map[engine.MonthKey]engine.Indicator),
		budgets:     make(map[engine.BudgetID]engine.Budget),
		instances:   make(map[instanceKey]engine.ObligationID),
	}
}

var _ engine.RecordStore = (*Memory)(nil)

func (m *Memory) Obligations(_ context.Context) ([]engine.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engine.Obligation, 0, len(m.obligations))
	for _, o := range m.obligations {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (m *Memory) Obligation(_ context.Context, id engine.ObligationID) (engine.Obligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.obligations[id]
	if !ok {
		return engine.Obligation{}, engine.ErrObligationNotFound
	}
	return o, nil
}

func (m *Memory) PutObligation(_ context.Context, o engine.Obligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putObligationLocked(o)
}

func (m *Memory) putObligationLocked(o engine.Obligation) error {
	if o.IsInstance() {
		k := instanceKey{TemplateID: o.Recurrence.TemplateID, Month: o.Recurrence.Month}
		if existing, ok := m.instances[k]; ok && existing != o.ID {
			return &engine.AlreadyConfirmedError{TemplateID: k.TemplateID, Month: k.Month}
		}
		m.instances[k] = o.ID
	}
	m.obligations[o.ID] = o
	return nil
}

func (m *Memory) DeleteObligation(_ context.Context, id engine.ObligationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.obligations[id]
	if !ok {
		return engine.ErrObligationNotFound
	}
	if o.IsInstance() {
		delete(m.instances, instanceKey{TemplateID: o.Recurrence.TemplateID, Month: o.Recurrence.Month})
	}
	delete(m.obligations, id)
	delete(m.settlements, id)
	return nil
}

func (m *Memory) Settlements(_ context.Context) ([]engine.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engine.Settlement, 0, len(m.settlements))
	for _, s := range m.settlements {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObligationID < out[j].ObligationID })
	return out, nil
}

func (m *Memory) SettlementFor(_ context.Context, id engine.ObligationID) (engine.Settlement, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settlements[id]
	return s, ok, nil
}

func (m *Memory) Instruments(_ context.Context) ([]engine.Instrument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engine.Instrument, 0, len(m.instruments))
	for _, ins := range m.instruments {
		out = append(out, ins)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PutInstrument(_ context.Context, ins engine.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instruments[ins.ID] = ins
	return nil
}

func (m *Memory) Indicators(_ context.Context) ([]engine.Indicator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engine.Indicator, 0, len(m.indicators))
	for _, ind := range m.indicators {
		out = append(out, ind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (m *Memory) PutIndicator(_ context.Context, ind engine.Indicator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indicators[ind.Month] = ind
	return nil
}

func (m *Memory) Budgets(_ context.Context) ([]engine.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]engine.Budget, 0, len(m.budgets))
	for _, b := range m.budgets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Budget(_ context.Context, id engine.BudgetID) (engine.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.budgets[id]
	if !ok {
		return engine.Budget{}, engine.ErrBudgetNotFound
	}
	return b, nil
}

func (m *Memory) PutBudget(_ context.Context, b engine.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[b.ID] = b
	return nil
}

// Apply persists a mutation batch atomically. The uniqueness checks run
// against a snapshot first so a failing batch leaves the store untouched.
func (m *Memory) Apply(_ context.Context, muts []engine.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch before writing anything.
	seen := make(map[instanceKey]bool)
	for _, mut := range muts {
		if mut.Op == engine.OpCreateObligation && mut.Obligation.IsInstance() {
			k := instanceKey{
				TemplateID: mut.Obligation.Recurrence.TemplateID,
				Month:      mut.Obligation.Recurrence.Month,
			}
			if _, exists := m.instances[k]; exists || seen[k] {
				return &engine.AlreadyConfirmedError{TemplateID: k.TemplateID, Month: k.Month}
			}
			seen[k] = true
		}
	}

	for _, mut := range muts {
		switch mut.Op {
		case engine.OpCreateObligation, engine.OpUpdateObligation:
			if err := m.putObligationLocked(*mut.Obligation); err != nil {
				return err
			}
		case engine.OpPutSettlement:
			m.settlements[mut.Settlement.ObligationID] = *mut.Settlement
		case engine.OpDeleteSettlement:
			delete(m.settlements, mut.Settlement.ObligationID)
		}
	}
	return nil
}

// Reset clears every record.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.obligations = make(map[engine.ObligationID]engine.Obligation)
	m.settlements = make(map[engine.ObligationID]engine.Settlement)
	m.instruments = make(map[engine.InstrumentID]engine.Instrument)
	m.indicators = make(map[engine.MonthKey]engine.Indicator)
	m.budgets = make(map[engine.BudgetID]engine.Budget)
	m.instances = make(map[instanceKey]engine.ObligationID)
	return nil
}
