package health

import (
	"fmt"
	"math"
	"time"

	"github.com/riptide-app/riptide/internal/source"
)

// Typical sustained throughput per provider type, used when the source
// carries no speed observation of its own.
const (
	debridThroughputBps = 12_500_000 // ~100 Mbps
	directThroughputBps = 5_000_000  // ~40 Mbps
	perSeederThroughput = 50_000     // conservative per-seeder contribution
	maxSwarmThroughput  = 10_000_000
)

// reliabilityScore is the 0-100 reliability estimate used both for cached
// Data and for PredictReliability: provider tier, seeder count, and the
// provider's historical success rate, when one exists.
func (s *Service) reliabilityScore(m *source.Metadata, overallScore float64) float64 {
	tier := float64(m.Provider.Tier.Rank()) / 3 * 35 // 0-35

	var swarm float64 // 0-35
	if m.Health.Seeders != nil {
		swarm = 7 * math.Log2(float64(*m.Health.Seeders)+1)
		if swarm > 35 {
			swarm = 35
		}
	} else if m.Provider.Type != source.ProviderTorrent {
		// Non-P2P sources don't depend on a swarm.
		swarm = 25
	}

	history := 15.0 // neutral when no history exists
	if stats, ok := s.History(m.Provider.ID); ok {
		if rate := stats.SuccessRate(); rate >= 0 {
			history = rate * 30
		}
	}

	score := tier + swarm + history
	if score > 100 {
		score = 100
	}
	return score
}

// PredictReliability estimates how likely a download from this source is to
// succeed. Returns nil when there is nothing to base a prediction on.
func (s *Service) PredictReliability(m *source.Metadata, data *Data) *ReliabilityPrediction {
	if data == nil {
		return nil
	}
	if m.Health.Seeders == nil && m.Provider.Tier == source.TierUnknown {
		if _, ok := s.History(m.Provider.ID); !ok {
			return nil
		}
	}

	pred := &ReliabilityPrediction{
		Score:      data.PredictedReliability,
		Confidence: 0.5,
	}

	if m.Provider.Tier != source.TierUnknown {
		pred.Confidence += 0.2
		pred.Factors = append(pred.Factors, fmt.Sprintf("provider tier %s", m.Provider.Tier))
	}
	if m.Health.Seeders != nil {
		pred.Confidence += 0.2
		pred.Factors = append(pred.Factors, fmt.Sprintf("%d seeders", *m.Health.Seeders))
	}
	if stats, ok := s.History(m.Provider.ID); ok && stats.Attempts > 0 {
		pred.Confidence += 0.1
		pred.Factors = append(pred.Factors,
			fmt.Sprintf("historical success %.0f%% over %d downloads", stats.SuccessRate()*100, stats.Attempts))
	}
	if pred.Confidence > 1 {
		pred.Confidence = 1
	}
	return pred
}

// EstimateDownloadTime predicts transfer duration from file size and the
// best available throughput figure. Returns nil when the size is unknown.
func (s *Service) EstimateDownloadTime(m *source.Metadata, data *Data) *DownloadTimeEstimate {
	if m.File.SizeBytes == nil || *m.File.SizeBytes <= 0 {
		return nil
	}
	size := *m.File.SizeBytes

	var throughput int64
	confidence := 0.5

	switch {
	case m.Health.DownloadSpeed != nil && *m.Health.DownloadSpeed > 0:
		throughput = *m.Health.DownloadSpeed
		confidence = 0.9
	case m.Provider.Type == source.ProviderDebrid:
		throughput = debridThroughputBps
		confidence = 0.7
	case m.Provider.Type == source.ProviderDirect:
		throughput = directThroughputBps
		confidence = 0.6
	case m.Health.Seeders != nil && *m.Health.Seeders > 0:
		throughput = int64(*m.Health.Seeders) * perSeederThroughput
		if throughput > maxSwarmThroughput {
			throughput = maxSwarmThroughput
		}
		confidence = 0.6
	default:
		return nil
	}

	seconds := float64(size) / float64(throughput)
	return &DownloadTimeEstimate{
		Estimated:     time.Duration(seconds * float64(time.Second)),
		ThroughputBps: throughput,
		Confidence:    confidence,
	}
}

// AssessRisk maps a health assessment and prediction confidence into a risk
// record. Returns nil when no health assessment is available.
func (s *Service) AssessRisk(m *source.Metadata, data *Data, pred *ReliabilityPrediction) *RiskAssessment {
	if data == nil {
		return nil
	}
	assessment := &RiskAssessment{
		Level:      data.RiskLevel,
		Score:      data.OverallScore,
		Confidence: 0.5,
	}
	if pred != nil {
		assessment.Confidence = pred.Confidence
	}
	if m.Health.Seeders != nil && *m.Health.Seeders == 0 {
		assessment.Factors = append(assessment.Factors, "no seeders")
	}
	if m.Health.Availability != nil && *m.Health.Availability < 0.5 {
		assessment.Factors = append(assessment.Factors, "low availability")
	}
	if m.Provider.Tier == source.TierUnknown {
		assessment.Factors = append(assessment.Factors, "unknown provider tier")
	}
	if m.Availability.ExpiresAt != nil && s.now().After(m.Availability.ExpiresAt.Add(-24*time.Hour)) {
		assessment.Factors = append(assessment.Factors, "availability expiring soon")
	}
	return assessment
}

// UpdateHistorical records a completed download for a provider. This is the
// engine's only feedback loop; subsequent reliability predictions for the
// provider reflect it.
func (s *Service) UpdateHistorical(providerID string, actualDuration time.Duration, success bool, m *source.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.history[providerID]
	stats.ProviderID = providerID
	stats.Attempts++
	if success {
		stats.Successes++
	}
	// Running average over all attempts.
	ms := float64(actualDuration.Milliseconds())
	stats.AvgDurationMs += (ms - stats.AvgDurationMs) / float64(stats.Attempts)
	stats.LastUpdated = s.now()
	s.history[providerID] = stats

	// A completed download invalidates the cached assessment for the source.
	if m != nil {
		s.cache.Remove(m.ID)
	}

	s.logger.Debug().
		Str("providerId", providerID).
		Bool("success", success).
		Dur("duration", actualDuration).
		Int64("attempts", stats.Attempts).
		Msg("Recorded download result")
}

// History returns the recorded stats for a provider.
func (s *Service) History(providerID string) (ProviderStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.history[providerID]
	return stats, ok
}

// AllHistory returns a snapshot of all provider stats.
func (s *Service) AllHistory() []ProviderStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ProviderStats, 0, len(s.history))
	for _, stats := range s.history {
		out = append(out, stats)
	}
	return out
}
