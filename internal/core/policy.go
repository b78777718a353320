package core

import (
	"fmt"
	"sync/atomic"
)

// LockPolicy turns a presence score into lock decisions with a hysteresis band.
//
// The lock flag is set only by a LOCK decision and cleared once the score climbs past
// threshold+margin, or by Reset. Between the two bounds no decision is issued while
// the flag is set, so a score hovering at the threshold cannot re-invoke the actuator.
type LockPolicy struct {
	threshold int
	margin    int
	locked    atomic.Bool // read by the session listener for self-lock attribution
}

// NewLockPolicy creates a policy with the flag cleared
func NewLockPolicy(threshold, margin int) *LockPolicy {
	return &LockPolicy{
		threshold: threshold,
		margin:    margin,
	}
}

// ValidatePolicy checks the policy bounds against the score range
func ValidatePolicy(threshold, margin int, score ScoreConfig) error {
	if threshold <= score.Min || threshold > score.Max {
		return fmt.Errorf("%w: lock threshold %d outside (%d, %d]", ErrInvalidConfig, threshold, score.Min, score.Max)
	}
	if margin < 0 {
		return fmt.Errorf("%w: recovery margin must not be negative", ErrInvalidConfig)
	}
	if threshold+margin >= score.Max {
		return fmt.Errorf("%w: recovery threshold %d unreachable (max %d)", ErrInvalidConfig, threshold+margin, score.Max)
	}
	return nil
}

// Evaluate returns the decision for score and updates the lock flag accordingly.
// The caller performs the side effects of a LOCK decision.
func (p *LockPolicy) Evaluate(score int) Decision {
	if score < p.threshold && p.locked.CompareAndSwap(false, true) {
		return DecisionLock
	}
	if score > p.RecoveryThreshold() && p.locked.CompareAndSwap(true, false) {
		return DecisionClearFlag
	}
	return DecisionNone
}

// Locked reports whether this engine has issued a lock that has not been reset
func (p *LockPolicy) Locked() bool {
	return p.locked.Load()
}

// Reset clears the lock flag
func (p *LockPolicy) Reset() {
	p.locked.Store(false)
}

// Threshold returns the lock threshold
func (p *LockPolicy) Threshold() int {
	return p.threshold
}

// RecoveryThreshold is the score the flag must exceed to clear
func (p *LockPolicy) RecoveryThreshold() int {
	return p.threshold + p.margin
}
