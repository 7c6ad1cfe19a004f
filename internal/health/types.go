// Package health computes and caches per-source health assessments and
// derives reliability, download-time, and risk predictions from them.
package health

import (
	"time"
)

// RiskLevel classifies how risky a source is to commit to.
type RiskLevel string

const (
	RiskMinimal RiskLevel = "minimal"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
)

// Rank returns the ordering of a risk level, minimal lowest.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskMinimal:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	default:
		return 3
	}
}

// P2PHealth is the swarm-level slice of a health assessment.
type P2PHealth struct {
	Seeders      int     `json:"seeders"`
	Leechers     int     `json:"leechers"`
	Availability float64 `json:"availability"` // 0..1
}

// Data is a cached health assessment for one source.
type Data struct {
	SourceID             string    `json:"sourceId"`
	OverallScore         float64   `json:"overallScore"` // 0-100
	RiskLevel            RiskLevel `json:"riskLevel"`
	PredictedReliability float64   `json:"predictedReliability"` // 0-100
	P2P                  P2PHealth `json:"p2p"`
	ComputedAt           time.Time `json:"computedAt"`
	// NeedsRefresh is derived from cache age at read time; a cached entry
	// with NeedsRefresh false is returned unchanged without recomputation.
	NeedsRefresh bool `json:"needsRefresh"`
}

// ReliabilityPrediction estimates how likely a download is to complete.
type ReliabilityPrediction struct {
	Score      float64  `json:"score"`      // 0-100
	Confidence float64  `json:"confidence"` // 0..1
	Factors    []string `json:"factors,omitempty"`
}

// DownloadTimeEstimate predicts transfer duration from size and throughput.
type DownloadTimeEstimate struct {
	Estimated     time.Duration `json:"estimatedMs"`
	ThroughputBps int64         `json:"throughputBps"`
	Confidence    float64       `json:"confidence"` // 0..1
}

// RiskAssessment combines health score, risk level, and prediction
// confidence into one record for callers.
type RiskAssessment struct {
	Level      RiskLevel `json:"level"`
	Score      float64   `json:"score"`      // 0-100, higher is safer
	Confidence float64   `json:"confidence"` // 0..1
	Factors    []string  `json:"factors,omitempty"`
}

// ProviderStats is the running per-provider success history used by
// reliability prediction. Updated by the download-completion feedback loop.
type ProviderStats struct {
	ProviderID    string    `json:"providerId"`
	Attempts      int64     `json:"attempts"`
	Successes     int64     `json:"successes"`
	AvgDurationMs float64   `json:"avgDurationMs"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// SuccessRate returns the historical success rate, or -1 when no attempts
// have been recorded yet.
func (s ProviderStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return -1
	}
	return float64(s.Successes) / float64(s.Attempts)
}
