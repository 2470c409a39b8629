package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts evaluations in one wave and enforces a maximum.
//
// Cycle detection stops a node from running twice; the quota bounds long
// chains and wide fan-outs where every node runs once but there are many.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step and returns StepsExceededError once the count passes
// the limit.
func (q *QuotaEnforcer) Check(wave string) error {
	q.current++
	if q.current > q.maxSteps {
		return &StepsExceededError{
			Wave:  wave,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset sets the step counter back to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a wave exceeds the max steps quota.
type StepsExceededError struct {
	Wave  string
	Steps int
	Limit int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("wave %s exceeded max steps quota: %d steps > %d limit",
		e.Wave, e.Steps, e.Limit)
}

// IsStepsExceededError reports whether err wraps a StepsExceededError.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
