package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/riptide-app/riptide/internal/health"
)

// Update event types emitted on the engine's update stream.
const (
	EventProcessed      = "source:processed"
	EventBatchProcessed = "source:batch-processed"
	EventError          = "source:error"
	EventHealthAlert    = "source:health-alert"
	EventDownloadResult = "source:download-result"
)

// SourceError is the payload for per-source evaluation failures.
type SourceError struct {
	SourceID string `json:"sourceId"`
	Message  string `json:"message"`
}

// HealthAlert is emitted when an evaluated source's health crosses into
// high-risk territory.
type HealthAlert struct {
	SourceID     string           `json:"sourceId"`
	RiskLevel    health.RiskLevel `json:"riskLevel"`
	OverallScore float64          `json:"overallScore"`
}

// DownloadResult acknowledges a recorded download outcome.
type DownloadResult struct {
	ProviderID string        `json:"providerId"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"durationMs"`
}

// Update is the tagged union carried on the update stream. Exactly one of
// the payload fields is set, matching Type.
type Update struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	At   time.Time `json:"at"`

	Processed      *ProcessedData  `json:"processed,omitempty"`
	Batch          *BatchSummary   `json:"batch,omitempty"`
	Error          *SourceError    `json:"error,omitempty"`
	HealthAlert    *HealthAlert    `json:"healthAlert,omitempty"`
	DownloadResult *DownloadResult `json:"downloadResult,omitempty"`
}

// Broadcaster delivers update events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

func newUpdate(eventType string) Update {
	return Update{
		ID:   uuid.NewString(),
		Type: eventType,
		At:   time.Now().UTC(),
	}
}
