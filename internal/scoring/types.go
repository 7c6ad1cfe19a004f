// Package scoring computes composite quality scores, human-readable score
// reasoning, and recommendation priorities for evaluated sources.
package scoring

import (
	"github.com/riptide-app/riptide/internal/health"
	"github.com/riptide-app/riptide/internal/source"
)

// Priority buckets a recommendation score for callers that just want a
// coarse answer.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Config holds the scoring weights. The adjustment constants are empirical
// and kept as-is for behavioral parity with tuned installations; change them
// only alongside the expectations in the test suite.
type Config struct {
	// Health adjustments by risk level.
	MinimalRiskBonus int // default: +50
	LowRiskBonus     int // default: +30
	HighRiskPenalty  int // default: -50

	// ReliabilityFactor scales 0-100 predicted reliability into points.
	ReliabilityFactor float64 // default: 0.5

	// SeasonPackBonus applies when the caller prefers season packs.
	SeasonPackBonus int // default: +100

	// ProfileMatchBonus applies on an exact preferred-resolution match.
	ProfileMatchBonus int // default: +75

	// Connection-speed compatibility bonuses by estimated download hours.
	FastDownloadBonus   int     // default: +50 (≤ FastDownloadHours)
	OkDownloadBonus     int     // default: +25 (≤ OkDownloadHours)
	SlowDownloadPenalty int     // default: -25
	FastDownloadHours   float64 // default: 2
	OkDownloadHours     float64 // default: 6

	// MaxScore is the clamp ceiling for the quality score.
	MaxScore int // default: 2000

	// Recommendation bucketing thresholds on the 0-100 scale.
	HighPriorityThreshold   int // default: 80
	MediumPriorityThreshold int // default: 60
}

// DefaultConfig returns the default scoring weights.
func DefaultConfig() Config {
	return Config{
		MinimalRiskBonus:  50,
		LowRiskBonus:      30,
		HighRiskPenalty:   -50,
		ReliabilityFactor: 0.5,

		SeasonPackBonus:   100,
		ProfileMatchBonus: 75,

		FastDownloadBonus:   50,
		OkDownloadBonus:     25,
		SlowDownloadPenalty: -25,
		FastDownloadHours:   2,
		OkDownloadHours:     6,

		MaxScore: 2000,

		HighPriorityThreshold:   80,
		MediumPriorityThreshold: 60,
	}
}

// UserProfile describes the caller's playback preferences and environment.
type UserProfile struct {
	PreferredResolution source.Resolution `json:"preferredResolution,omitempty"`
	ConnectionMbps      float64           `json:"connectionMbps,omitempty"`
}

// Preferences are per-call scoring options.
type Preferences struct {
	PreferSeasonPacks bool `json:"preferSeasonPacks,omitempty"`
}

// Input bundles everything the scorer consumes for one source. Health and
// prediction fields are optional; absent values contribute nothing.
type Input struct {
	Source      *source.Metadata
	Health      *health.Data
	Reliability *health.ReliabilityPrediction
	SeasonPack  *source.SeasonPackInfo
}

// Breakdown itemizes the score components for diagnostics.
type Breakdown struct {
	Base        int `json:"base"`
	Health      int `json:"health"`
	Reliability int `json:"reliability"`
	SeasonPack  int `json:"seasonPack"`
	Profile     int `json:"profile"`
	Speed       int `json:"speed"`
	Total       int `json:"total"`
}
