package health

import (
	"testing"
	"time"

	"github.com/riptide-app/riptide/internal/source"
	"github.com/riptide-app/riptide/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(DefaultConfig(), testutil.NopLogger())
}

func torrentSource(id string, seeders, leechers int, availability float64, tier source.ReliabilityTier) *source.Metadata {
	return &source.Metadata{
		ID:    id,
		Title: "Show.S01E01.1080p.WEB-DL",
		Provider: source.ProviderInfo{
			ID:   "prov-" + id,
			Type: source.ProviderTorrent,
			Tier: tier,
		},
		Health: source.HealthInfo{
			Seeders:      testutil.IntPtr(seeders),
			Leechers:     testutil.IntPtr(leechers),
			Availability: testutil.Float64Ptr(availability),
		},
	}
}

func TestGetOrComputeCachesFreshEntries(t *testing.T) {
	svc := newTestService(t)
	m := torrentSource("s1", 100, 10, 1.0, source.TierExcellent)

	first := svc.GetOrCompute(m)
	if first.SourceID != "s1" {
		t.Fatalf("SourceID = %q, want s1", first.SourceID)
	}
	if svc.CacheLen() != 1 {
		t.Fatalf("cache len = %d, want 1", svc.CacheLen())
	}

	// Degrade the raw observations; a fresh cache hit must ignore them.
	m.Health.Seeders = testutil.IntPtr(0)
	second := svc.GetOrCompute(m)
	if second.OverallScore != first.OverallScore || !second.ComputedAt.Equal(first.ComputedAt) {
		t.Error("fresh cache hit must return the stored assessment unchanged")
	}
}

func TestGetOrComputeRecomputesStaleEntries(t *testing.T) {
	svc := newTestService(t)
	m := torrentSource("s1", 100, 10, 1.0, source.TierExcellent)

	first := svc.GetOrCompute(m)

	// Advance the clock past RefreshAfter but within the TTL.
	base := time.Now()
	svc.now = func() time.Time { return base.Add(svc.cfg.RefreshAfter + time.Second) }

	m.Health.Seeders = testutil.IntPtr(0)
	m.Health.Availability = testutil.Float64Ptr(0)
	second := svc.GetOrCompute(m)
	if second.OverallScore >= first.OverallScore {
		t.Errorf("stale entry not recomputed: score %v, was %v", second.OverallScore, first.OverallScore)
	}
}

func TestCachedReportsStaleness(t *testing.T) {
	svc := newTestService(t)
	m := torrentSource("s1", 50, 5, 0.9, source.TierGood)
	svc.GetOrCompute(m)

	d, ok := svc.Cached("s1")
	if !ok || d.NeedsRefresh {
		t.Fatalf("fresh entry: ok=%v needsRefresh=%v", ok, d.NeedsRefresh)
	}

	base := time.Now()
	svc.now = func() time.Time { return base.Add(svc.cfg.RefreshAfter + time.Second) }
	d, ok = svc.Cached("s1")
	if !ok || !d.NeedsRefresh {
		t.Errorf("stale entry: ok=%v needsRefresh=%v", ok, d.NeedsRefresh)
	}

	if _, ok := svc.Cached("missing"); ok {
		t.Error("unknown source must miss")
	}
}

func TestInvalidateAndPurge(t *testing.T) {
	svc := newTestService(t)
	svc.GetOrCompute(torrentSource("s1", 10, 1, 0.5, source.TierGood))
	svc.GetOrCompute(torrentSource("s2", 10, 1, 0.5, source.TierGood))

	svc.Invalidate("s1")
	if _, ok := svc.Cached("s1"); ok {
		t.Error("invalidated entry still cached")
	}
	if svc.CacheLen() != 1 {
		t.Errorf("cache len = %d, want 1", svc.CacheLen())
	}

	svc.Purge()
	if svc.CacheLen() != 0 {
		t.Errorf("cache len after purge = %d, want 0", svc.CacheLen())
	}
}

func TestComputeScoreComponents(t *testing.T) {
	svc := newTestService(t)

	// Everything maxed: 40 + 15 + 25 + 20 = 100.
	best := torrentSource("best", 1000, 1, 1.0, source.TierExcellent)
	d := svc.GetOrCompute(best)
	if d.OverallScore != 100 {
		t.Errorf("maxed source score = %v, want 100", d.OverallScore)
	}
	if d.RiskLevel != RiskMinimal {
		t.Errorf("risk = %s, want %s", d.RiskLevel, RiskMinimal)
	}

	// No observations at all, unknown tier.
	worst := &source.Metadata{
		ID:       "worst",
		Provider: source.ProviderInfo{ID: "p", Type: source.ProviderTorrent, Tier: source.TierUnknown},
	}
	d = svc.GetOrCompute(worst)
	if d.OverallScore != 0 {
		t.Errorf("bare source score = %v, want 0", d.OverallScore)
	}
	if d.RiskLevel != RiskHigh {
		t.Errorf("risk = %s, want %s", d.RiskLevel, RiskHigh)
	}

	// A debrid-cached source earns full availability points without any
	// availability observation.
	debrid := &source.Metadata{
		ID: "debrid",
		Provider: source.ProviderInfo{
			ID: "rd", Type: source.ProviderDebrid, Tier: source.TierExcellent,
		},
		Availability: source.AvailabilityInfo{CachedOnDebrid: true},
	}
	d = svc.GetOrCompute(debrid)
	want := maxAvailabilityPoints + maxTierPoints
	if d.OverallScore != want {
		t.Errorf("debrid-cached score = %v, want %v", d.OverallScore, want)
	}
}

func TestRiskForScoreBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{100, RiskMinimal},
		{75, RiskMinimal},
		{74.9, RiskLow},
		{50, RiskLow},
		{49.9, RiskMedium},
		{25, RiskMedium},
		{24.9, RiskHigh},
		{0, RiskHigh},
	}
	for _, tt := range tests {
		if got := riskForScore(tt.score); got != tt.want {
			t.Errorf("riskForScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestPredictReliability(t *testing.T) {
	svc := newTestService(t)

	m := torrentSource("s1", 100, 10, 0.9, source.TierExcellent)
	data := svc.GetOrCompute(m)

	pred := svc.PredictReliability(m, &data)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	// 0.5 base + 0.2 tier + 0.2 seeders, no history.
	const eps = 1e-9
	if diff := pred.Confidence - 0.9; diff < -eps || diff > eps {
		t.Errorf("confidence = %v, want 0.9", pred.Confidence)
	}
	if len(pred.Factors) != 2 {
		t.Errorf("factors = %v, want tier and seeders", pred.Factors)
	}

	// With history every confidence factor applies.
	svc.UpdateHistorical(m.Provider.ID, time.Minute, true, nil)
	pred = svc.PredictReliability(m, &data)
	if pred.Confidence < 1-eps || pred.Confidence > 1 {
		t.Errorf("confidence with history = %v, want 1", pred.Confidence)
	}
	if len(pred.Factors) != 3 {
		t.Errorf("factors = %v, want three", pred.Factors)
	}
}

func TestPredictReliabilityDegradesToNil(t *testing.T) {
	svc := newTestService(t)

	bare := &source.Metadata{
		ID:       "bare",
		Provider: source.ProviderInfo{ID: "p", Type: source.ProviderTorrent, Tier: source.TierUnknown},
	}
	data := svc.GetOrCompute(bare)

	if pred := svc.PredictReliability(bare, &data); pred != nil {
		t.Errorf("expected nil prediction without any basis, got %+v", pred)
	}
	if pred := svc.PredictReliability(bare, nil); pred != nil {
		t.Error("nil assessment must yield nil prediction")
	}

	// History alone is enough of a basis.
	svc.UpdateHistorical("p", time.Minute, true, nil)
	if pred := svc.PredictReliability(bare, &data); pred == nil {
		t.Error("provider history should enable a prediction")
	}
}

func TestEstimateDownloadTime(t *testing.T) {
	svc := newTestService(t)
	data := Data{}
	size := testutil.Int64Ptr(1_000_000_000)

	tests := []struct {
		name           string
		m              *source.Metadata
		wantThroughput int64
		wantConfidence float64
		wantNil        bool
	}{
		{
			name: "observed speed wins",
			m: &source.Metadata{
				ID:       "a",
				Provider: source.ProviderInfo{Type: source.ProviderDebrid},
				File:     source.FileInfo{SizeBytes: size},
				Health:   source.HealthInfo{DownloadSpeed: testutil.Int64Ptr(2_000_000)},
			},
			wantThroughput: 2_000_000,
			wantConfidence: 0.9,
		},
		{
			name: "debrid default",
			m: &source.Metadata{
				ID:       "b",
				Provider: source.ProviderInfo{Type: source.ProviderDebrid},
				File:     source.FileInfo{SizeBytes: size},
			},
			wantThroughput: debridThroughputBps,
			wantConfidence: 0.7,
		},
		{
			name: "direct default",
			m: &source.Metadata{
				ID:       "c",
				Provider: source.ProviderInfo{Type: source.ProviderDirect},
				File:     source.FileInfo{SizeBytes: size},
			},
			wantThroughput: directThroughputBps,
			wantConfidence: 0.6,
		},
		{
			name: "swarm estimate capped",
			m: &source.Metadata{
				ID:       "d",
				Provider: source.ProviderInfo{Type: source.ProviderTorrent},
				File:     source.FileInfo{SizeBytes: size},
				Health:   source.HealthInfo{Seeders: testutil.IntPtr(500)},
			},
			wantThroughput: maxSwarmThroughput,
			wantConfidence: 0.6,
		},
		{
			name: "no size no estimate",
			m: &source.Metadata{
				ID:       "e",
				Provider: source.ProviderInfo{Type: source.ProviderDebrid},
			},
			wantNil: true,
		},
		{
			name: "no throughput basis",
			m: &source.Metadata{
				ID:       "f",
				Provider: source.ProviderInfo{Type: source.ProviderTorrent},
				File:     source.FileInfo{SizeBytes: size},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := svc.EstimateDownloadTime(tt.m, &data)
			if tt.wantNil {
				if est != nil {
					t.Fatalf("expected nil estimate, got %+v", est)
				}
				return
			}
			if est == nil {
				t.Fatal("expected an estimate")
			}
			if est.ThroughputBps != tt.wantThroughput {
				t.Errorf("throughput = %d, want %d", est.ThroughputBps, tt.wantThroughput)
			}
			if est.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", est.Confidence, tt.wantConfidence)
			}
			if est.Estimated <= 0 {
				t.Errorf("estimated duration = %v, want positive", est.Estimated)
			}
		})
	}
}

func TestAssessRisk(t *testing.T) {
	svc := newTestService(t)

	m := torrentSource("s1", 0, 5, 0.2, source.TierUnknown)
	data := svc.GetOrCompute(m)

	assessment := svc.AssessRisk(m, &data, nil)
	if assessment == nil {
		t.Fatal("expected an assessment")
	}
	if assessment.Confidence != 0.5 {
		t.Errorf("default confidence = %v, want 0.5", assessment.Confidence)
	}
	if len(assessment.Factors) != 3 {
		t.Errorf("factors = %v, want no seeders, low availability, unknown tier", assessment.Factors)
	}

	if svc.AssessRisk(m, nil, nil) != nil {
		t.Error("nil data must yield nil assessment")
	}

	pred := &ReliabilityPrediction{Confidence: 0.8}
	assessment = svc.AssessRisk(m, &data, pred)
	if assessment.Confidence != 0.8 {
		t.Errorf("confidence = %v, want prediction's 0.8", assessment.Confidence)
	}
}

func TestUpdateHistoricalRunningAverage(t *testing.T) {
	svc := newTestService(t)

	svc.UpdateHistorical("prov", 10*time.Second, true, nil)
	svc.UpdateHistorical("prov", 20*time.Second, false, nil)
	svc.UpdateHistorical("prov", 30*time.Second, true, nil)

	stats, ok := svc.History("prov")
	if !ok {
		t.Fatal("no history recorded")
	}
	if stats.Attempts != 3 || stats.Successes != 2 {
		t.Errorf("attempts/successes = %d/%d, want 3/2", stats.Attempts, stats.Successes)
	}
	const eps = 1e-6
	if diff := stats.AvgDurationMs - 20_000; diff < -eps || diff > eps {
		t.Errorf("avg duration = %v ms, want 20000", stats.AvgDurationMs)
	}
	if diff := stats.SuccessRate() - 2.0/3.0; diff < -eps || diff > eps {
		t.Errorf("success rate = %v, want 2/3", stats.SuccessRate())
	}
}

func TestUpdateHistoricalInvalidatesSourceCache(t *testing.T) {
	svc := newTestService(t)
	m := torrentSource("s1", 50, 5, 0.9, source.TierGood)
	svc.GetOrCompute(m)

	svc.UpdateHistorical(m.Provider.ID, time.Minute, true, m)
	if _, ok := svc.Cached("s1"); ok {
		t.Error("completed download must invalidate the cached assessment")
	}
}
