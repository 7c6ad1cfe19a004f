package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/riptide-app/riptide/internal/filter"
	"github.com/riptide-app/riptide/internal/health"
	"github.com/riptide-app/riptide/internal/scoring"
	"github.com/riptide-app/riptide/internal/source"
)

// Config holds orchestration settings.
type Config struct {
	// ChunkSize bounds batch concurrency: items within a chunk run in
	// parallel, chunks run one after another.
	ChunkSize int // default: 10

	// HealthAlertBelow triggers a health-alert event when an evaluated
	// source's overall score falls below it.
	HealthAlertBelow float64 // default: 25

	// DefaultConflictResolution applies to Recommend calls whose filter
	// carries no conflict-resolution policy of its own.
	DefaultConflictResolution filter.ConflictResolution
}

// DefaultConfig returns default orchestration settings.
func DefaultConfig() Config {
	return Config{
		ChunkSize:        10,
		HealthAlertBelow: 25,
	}
}

// Engine evaluates sources end to end and emits update events.
type Engine struct {
	cfg         Config
	healths     *health.Service
	scorer      *scoring.Scorer
	broadcaster Broadcaster
	logger      zerolog.Logger

	mu             sync.Mutex
	processedTotal int64
	errorTotal     int64
	totalDuration  time.Duration
}

// New creates an engine.
func New(cfg Config, healths *health.Service, scorer *scoring.Scorer, logger zerolog.Logger) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.HealthAlertBelow <= 0 {
		cfg.HealthAlertBelow = DefaultConfig().HealthAlertBelow
	}
	return &Engine{
		cfg:     cfg,
		healths: healths,
		scorer:  scorer,
		logger:  logger.With().Str("component", "engine").Logger(),
	}
}

// SetBroadcaster sets the update-stream broadcaster for engine events.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.broadcaster = b
}

// ProcessSource evaluates a single source. It never returns an error;
// failures produce a degraded, error-flagged record.
func (e *Engine) ProcessSource(ctx context.Context, m *source.Metadata) ProcessedData {
	processed := e.processSafe(ctx, m)
	e.broadcastProcessed(&processed)
	return processed
}

// processSafe evaluates one source, converting panics into error-flagged
// records so sibling evaluations are never affected.
func (e *Engine) processSafe(ctx context.Context, m *source.Metadata) (processed ProcessedData) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			processed = e.degraded(m, start, fmt.Sprintf("evaluation panic: %v", r))
		}
	}()

	if m == nil || m.ID == "" {
		return e.degraded(m, start, "source metadata missing id")
	}
	if err := ctx.Err(); err != nil {
		return e.degraded(m, start, err.Error())
	}

	processed = ProcessedData{
		SourceID:    m.ID,
		ProcessedAt: start,
	}

	// Season-pack analysis is a pure filename parse; it short-circuits on
	// the name alone with no cache or network dependency.
	pack := source.DetectSeasonPack(m.File.Name, m.SizeBytes())
	processed.SeasonPack = &pack

	hd := e.healths.GetOrCompute(m)
	processed.Health = &hd

	processed.Reliability = e.healths.PredictReliability(m, &hd)
	processed.DownloadTime = e.healths.EstimateDownloadTime(m, &hd)
	processed.Risk = e.healths.AssessRisk(m, &hd, processed.Reliability)

	processed.EnhancedQualityScore = e.scorer.Score(scoring.Input{
		Source:      m,
		Health:      processed.Health,
		Reliability: processed.Reliability,
		SeasonPack:  processed.SeasonPack,
	}, nil, scoring.Preferences{})
	processed.QualityBadges = scoring.QualityBadges(m)

	processed.ProcessingTime = time.Since(start)
	e.recordProcessed(processed.ProcessingTime, false)

	if hd.OverallScore < e.cfg.HealthAlertBelow {
		e.broadcastHealthAlert(m.ID, &hd)
	}

	return processed
}

func (e *Engine) degraded(m *source.Metadata, start time.Time, msg string) ProcessedData {
	id := ""
	if m != nil {
		id = m.ID
	}
	e.recordProcessed(time.Since(start), true)
	e.broadcastError(id, msg)
	e.logger.Warn().Str("sourceId", id).Str("error", msg).Msg("Source evaluation degraded")
	return ProcessedData{
		SourceID:       id,
		ProcessedAt:    start,
		ProcessingTime: time.Since(start),
		HasError:       true,
		ErrorMessage:   msg,
	}
}

// BatchProcessSources evaluates many sources in fixed-size chunks. Items
// within a chunk run in parallel; a failure in one item degrades only that
// item's record. The result slice matches the input order and length.
func (e *Engine) BatchProcessSources(ctx context.Context, sources []source.Metadata) []ProcessedData {
	start := time.Now()
	results := make([]ProcessedData, len(sources))

	for chunkStart := 0; chunkStart < len(sources); chunkStart += e.cfg.ChunkSize {
		chunkEnd := chunkStart + e.cfg.ChunkSize
		if chunkEnd > len(sources) {
			chunkEnd = len(sources)
		}

		p := pool.New().WithMaxGoroutines(chunkEnd - chunkStart)
		for i := chunkStart; i < chunkEnd; i++ {
			p.Go(func() {
				results[i] = e.processSafe(ctx, &sources[i])
			})
		}
		p.Wait()
	}

	summary := BatchSummary{
		Total:   len(sources),
		Elapsed: time.Since(start),
	}
	for i := range results {
		if results[i].HasError {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	e.broadcastBatch(&summary)

	e.logger.Info().
		Int("total", summary.Total).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("Batch evaluation completed")

	return results
}

// Recommend filters, evaluates, scores, and ranks sources for selection.
// Conflict resolution applies when the filter admits nothing.
func (e *Engine) Recommend(ctx context.Context, sources []source.Metadata, f *filter.Advanced, profile *scoring.UserProfile, prefs scoring.Preferences) []Recommendation {
	admitted := sources
	if f != nil {
		applied := *f
		if !applied.ConflictResolution.Enabled && len(applied.ConflictResolution.Strategies) == 0 {
			applied.ConflictResolution = e.cfg.DefaultConflictResolution
		}
		admitted = applied.ApplyWithResolution(sources).Admitted
	}

	processed := e.BatchProcessSources(ctx, admitted)

	recs := make([]Recommendation, 0, len(admitted))
	for i := range admitted {
		if processed[i].HasError {
			continue
		}
		in := scoring.Input{
			Source:      &admitted[i],
			Health:      processed[i].Health,
			Reliability: processed[i].Reliability,
			SeasonPack:  processed[i].SeasonPack,
		}
		// Re-score with the caller's profile and preferences applied.
		processed[i].EnhancedQualityScore = e.scorer.Score(in, profile, prefs)

		recScore := e.scorer.RecommendationScore(in, profile, prefs)
		recs = append(recs, Recommendation{
			Source:    admitted[i],
			Processed: processed[i],
			Score:     recScore,
			Priority:  e.scorer.PriorityFor(recScore),
			Reasons:   e.scorer.Explain(in, profile, prefs),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Processed.EnhancedQualityScore > recs[j].Processed.EnhancedQualityScore
	})
	return recs
}

// RecordDownloadResult closes the feedback loop after a real download
// completes and acknowledges it on the update stream.
func (e *Engine) RecordDownloadResult(providerID string, duration time.Duration, success bool, m *source.Metadata) {
	e.healths.UpdateHistorical(providerID, duration, success, m)
	e.broadcast(EventDownloadResult, func(u *Update) {
		u.DownloadResult = &DownloadResult{
			ProviderID: providerID,
			Success:    success,
			Duration:   duration,
		}
	})
}

// Analytics returns the engine's diagnostics snapshot.
func (e *Engine) Analytics() Analytics {
	e.mu.Lock()
	processedTotal := e.processedTotal
	errorTotal := e.errorTotal
	totalDuration := e.totalDuration
	e.mu.Unlock()

	a := Analytics{
		ProcessedTotal:   processedTotal,
		ProcessingErrors: errorTotal,
		HealthCacheSize:  e.healths.CacheLen(),
		ProviderHistory:  e.healths.AllHistory(),
	}
	if processedTotal > 0 {
		a.AvgProcessingTime = totalDuration / time.Duration(processedTotal)
	}
	return a
}

func (e *Engine) recordProcessed(elapsed time.Duration, failed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.processedTotal++
	e.totalDuration += elapsed
	if failed {
		e.errorTotal++
	}
}

func (e *Engine) broadcast(eventType string, fill func(*Update)) {
	if e.broadcaster == nil {
		return
	}
	update := newUpdate(eventType)
	fill(&update)
	if err := e.broadcaster.Broadcast(eventType, update); err != nil {
		e.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to broadcast update")
	}
}

func (e *Engine) broadcastProcessed(p *ProcessedData) {
	e.broadcast(EventProcessed, func(u *Update) { u.Processed = p })
}

func (e *Engine) broadcastBatch(s *BatchSummary) {
	e.broadcast(EventBatchProcessed, func(u *Update) { u.Batch = s })
}

func (e *Engine) broadcastError(sourceID, msg string) {
	e.broadcast(EventError, func(u *Update) {
		u.Error = &SourceError{SourceID: sourceID, Message: msg}
	})
}

func (e *Engine) broadcastHealthAlert(sourceID string, hd *health.Data) {
	e.broadcast(EventHealthAlert, func(u *Update) {
		u.HealthAlert = &HealthAlert{
			SourceID:     sourceID,
			RiskLevel:    hd.RiskLevel,
			OverallScore: hd.OverallScore,
		}
	})
}
