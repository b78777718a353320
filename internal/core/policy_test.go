package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockPolicy_LocksOnceBelowThreshold(t *testing.T) {
	p := NewLockPolicy(20, 10)

	assert.Equal(t, DecisionNone, p.Evaluate(20))
	assert.Equal(t, DecisionLock, p.Evaluate(19))
	assert.True(t, p.Locked())

	for _, score := range []int{19, 10, 0, 0} {
		assert.Equal(t, DecisionNone, p.Evaluate(score), "score %d must not re-lock", score)
	}
}

func TestLockPolicy_HysteresisBand(t *testing.T) {
	p := NewLockPolicy(20, 10)
	p.Evaluate(5)

	for _, score := range []int{20, 25, 30} {
		assert.Equal(t, DecisionNone, p.Evaluate(score), "score %d is inside the band", score)
		assert.True(t, p.Locked())
	}

	assert.Equal(t, DecisionClearFlag, p.Evaluate(31))
	assert.False(t, p.Locked())
}

func TestLockPolicy_NoClearWithoutFlag(t *testing.T) {
	p := NewLockPolicy(20, 10)
	assert.Equal(t, DecisionNone, p.Evaluate(90))
	assert.False(t, p.Locked())
}

func TestLockPolicy_Reset(t *testing.T) {
	p := NewLockPolicy(20, 10)
	p.Evaluate(0)
	p.Reset()

	assert.False(t, p.Locked())
	assert.Equal(t, DecisionLock, p.Evaluate(0))
}

// Three absences from 50 with +8/-12 lock at 14; further absences pin the score at the
// floor without re-locking.
func TestScenario_AbsenceLocksOnce(t *testing.T) {
	scorer := NewPresenceScorer(ScoreConfig{Min: 0, Max: 100, Neutral: 50, Increment: 8, Decrement: 12})
	policy := NewLockPolicy(20, 10)

	var scores []int
	var decisions []Decision
	for i := 0; i < 3; i++ {
		score := scorer.Update(VerdictAbsent)
		scores = append(scores, score)
		decisions = append(decisions, policy.Evaluate(score))
	}
	assert.Equal(t, []int{38, 26, 14}, scores)
	assert.Equal(t, []Decision{DecisionNone, DecisionNone, DecisionLock}, decisions)

	for i := 0; i < 5; i++ {
		assert.Equal(t, DecisionNone, policy.Evaluate(scorer.Update(VerdictAbsent)))
	}
	assert.Equal(t, 0, scorer.Score())
	assert.True(t, policy.Locked())
}

// After the lock at 14, presence climbs 22, 30, 38 and the flag clears only at 38.
func TestScenario_RecoveryClearsPastMargin(t *testing.T) {
	scorer := NewPresenceScorer(ScoreConfig{Min: 0, Max: 100, Neutral: 50, Increment: 8, Decrement: 12})
	policy := NewLockPolicy(20, 10)
	for i := 0; i < 3; i++ {
		policy.Evaluate(scorer.Update(VerdictAbsent))
	}
	assert.Equal(t, 14, scorer.Score())
	assert.True(t, policy.Locked())

	expect := []struct {
		score    int
		decision Decision
	}{
		{22, DecisionNone},
		{30, DecisionNone},
		{38, DecisionClearFlag},
	}
	for _, e := range expect {
		score := scorer.Update(VerdictPresent)
		assert.Equal(t, e.score, score)
		assert.Equal(t, e.decision, policy.Evaluate(score))
	}
	assert.False(t, policy.Locked())
}

func TestValidatePolicy(t *testing.T) {
	score := DefaultScoreConfig()

	assert.NoError(t, ValidatePolicy(20, 10, score))
	assert.ErrorIs(t, ValidatePolicy(0, 10, score), ErrInvalidConfig)
	assert.ErrorIs(t, ValidatePolicy(101, 10, score), ErrInvalidConfig)
	assert.ErrorIs(t, ValidatePolicy(20, -1, score), ErrInvalidConfig)
	assert.ErrorIs(t, ValidatePolicy(90, 10, score), ErrInvalidConfig)
}
