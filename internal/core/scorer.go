package core

import (
	"fmt"
	"sync/atomic"
)

// ScoreConfig bounds and steps the presence score
type ScoreConfig struct {
	Min       int // lowest score
	Max       int // highest score
	Neutral   int // value restored on every reset
	Increment int // added on a face
	Decrement int // removed on no face; larger than Increment so presence erodes faster than it builds
}

// DefaultScoreConfig returns the stock scoring parameters
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		Min:       0,
		Max:       100,
		Neutral:   50,
		Increment: 8,
		Decrement: 12,
	}
}

// Validate checks bounds and steps
func (c ScoreConfig) Validate() error {
	if c.Min >= c.Max {
		return fmt.Errorf("%w: score min %d must be below max %d", ErrInvalidConfig, c.Min, c.Max)
	}
	if c.Neutral < c.Min || c.Neutral > c.Max {
		return fmt.Errorf("%w: neutral score %d outside [%d, %d]", ErrInvalidConfig, c.Neutral, c.Min, c.Max)
	}
	if c.Increment <= 0 {
		return fmt.Errorf("%w: score increment must be positive", ErrInvalidConfig)
	}
	if c.Decrement <= 0 {
		return fmt.Errorf("%w: score decrement must be positive", ErrInvalidConfig)
	}
	return nil
}

// PresenceScorer keeps a bounded confidence that the user is still at the workstation.
// Only the tick worker mutates it; the score is atomic so status readers never block it.
type PresenceScorer struct {
	cfg   ScoreConfig
	score atomic.Int64
}

// NewPresenceScorer creates a scorer at the neutral score
func NewPresenceScorer(cfg ScoreConfig) *PresenceScorer {
	s := &PresenceScorer{cfg: cfg}
	s.score.Store(int64(cfg.Neutral))
	return s
}

// Update applies one verdict and returns the new score.
//
// Inconclusive verdicts (low light) count as absence. This is a safety-first policy
// choice: uncertainty erodes presence instead of being ignored.
func (s *PresenceScorer) Update(v Verdict) int {
	score := int(s.score.Load())
	switch v {
	case VerdictPresent:
		score = min(score+s.cfg.Increment, s.cfg.Max)
	default:
		score = max(score-s.cfg.Decrement, s.cfg.Min)
	}
	s.score.Store(int64(score))
	return score
}

// Score returns the current score
func (s *PresenceScorer) Score() int {
	return int(s.score.Load())
}

// Reset restores the neutral score
func (s *PresenceScorer) Reset() {
	s.score.Store(int64(s.cfg.Neutral))
}
