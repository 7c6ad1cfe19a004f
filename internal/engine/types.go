// Package engine orchestrates source evaluation: filtering, health
// enrichment, scoring, batch processing, and the update stream.
package engine

import (
	"time"

	"github.com/riptide-app/riptide/internal/health"
	"github.com/riptide-app/riptide/internal/scoring"
	"github.com/riptide-app/riptide/internal/source"
)

// ProcessedData is the ephemeral result of evaluating one source. It is
// recomputed per evaluation call and never persisted by the engine.
type ProcessedData struct {
	SourceID string `json:"sourceId"`

	Health       *health.Data                  `json:"healthData,omitempty"`
	SeasonPack   *source.SeasonPackInfo        `json:"seasonPackInfo,omitempty"`
	Reliability  *health.ReliabilityPrediction `json:"reliabilityPrediction,omitempty"`
	DownloadTime *health.DownloadTimeEstimate  `json:"downloadTimeEstimation,omitempty"`
	Risk         *health.RiskAssessment        `json:"riskAssessment,omitempty"`

	EnhancedQualityScore int      `json:"enhancedQualityScore"`
	QualityBadges        []string `json:"qualityBadges,omitempty"`

	ProcessingTime time.Duration `json:"processingTimeMs"`
	ProcessedAt    time.Time     `json:"processedAt"`

	HasError     bool   `json:"hasError"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Recommendation pairs a source with its evaluation and the 0-100
// recommendation score used for priority bucketing. The recommendation
// score and the 0-2000 quality score are distinct scales.
type Recommendation struct {
	Source    source.Metadata  `json:"source"`
	Processed ProcessedData    `json:"processed"`
	Score     int              `json:"score"` // 0-100
	Priority  scoring.Priority `json:"priority"`
	Reasons   []string         `json:"reasons"`
}

// BatchSummary describes a completed batch evaluation.
type BatchSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsedMs"`
}

// Analytics is the read-only diagnostics snapshot exposed to callers.
type Analytics struct {
	ProcessedTotal    int64                  `json:"processedTotal"`
	ProcessingErrors  int64                  `json:"processingErrors"`
	AvgProcessingTime time.Duration          `json:"avgProcessingTimeMs"`
	HealthCacheSize   int                    `json:"healthCacheSize"`
	ProviderHistory   []health.ProviderStats `json:"providerHistory,omitempty"`

	// Placeholder accuracy metrics; populated once enough download results
	// have been recorded to validate predictions against outcomes.
	PredictionAccuracy  float64 `json:"predictionAccuracy"`
	FilterEffectiveness float64 `json:"filterEffectiveness"`
}
