package intcode

// StepMeter counts executed instructions against an optional budget.
type StepMeter struct {
	consumed uint64
	limit    uint64
}

// NewStepMeter creates a meter allowing limit steps. A zero limit disables
// the budget; the meter still counts.
func NewStepMeter(limit uint64) *StepMeter {
	return &StepMeter{limit: limit}
}

// Consume charges one step.
// Returns ErrStepBudgetExceeded once the budget is spent.
func (sm *StepMeter) Consume() error {
	if sm.IsExhausted() {
		return ErrStepBudgetExceeded
	}
	sm.consumed++
	return nil
}

// Consumed returns the number of steps charged so far.
func (sm *StepMeter) Consumed() uint64 {
	return sm.consumed
}

// Limit returns the step budget, zero when unlimited.
func (sm *StepMeter) Limit() uint64 {
	return sm.limit
}

// Remaining returns the steps left in the budget.
// An unlimited meter reports the largest uint64.
func (sm *StepMeter) Remaining() uint64 {
	if sm.limit == 0 {
		return ^uint64(0)
	}
	if sm.consumed >= sm.limit {
		return 0
	}
	return sm.limit - sm.consumed
}

// IsExhausted returns true if the budget is spent.
func (sm *StepMeter) IsExhausted() bool {
	return sm.limit != 0 && sm.consumed >= sm.limit
}

// Extend raises the budget by n steps. It has no effect on an unlimited meter.
func (sm *StepMeter) Extend(n uint64) {
	if sm.limit != 0 {
		sm.limit += n
	}
}
