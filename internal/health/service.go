package health

import (
	"math"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/riptide-app/riptide/internal/source"
)

// Config holds health cache settings.
type Config struct {
	// CacheSize is the maximum number of cached assessments.
	CacheSize int
	// CacheTTL is how long a cached assessment lives before eviction.
	CacheTTL time.Duration
	// RefreshAfter is the cache age after which an entry is considered
	// stale (NeedsRefresh) and recomputed on the next read.
	RefreshAfter time.Duration
}

// DefaultConfig returns the default health cache settings.
func DefaultConfig() Config {
	return Config{
		CacheSize:    1000,
		CacheTTL:     10 * time.Minute,
		RefreshAfter: 5 * time.Minute,
	}
}

// Service computes per-source health assessments with a TTL cache keyed by
// source id. Entries for different sources never contend.
type Service struct {
	cfg    Config
	cache  *expirable.LRU[string, Data]
	logger zerolog.Logger

	mu      sync.RWMutex
	history map[string]ProviderStats

	now func() time.Time
}

// NewService creates a health service.
func NewService(cfg Config, logger zerolog.Logger) *Service {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.RefreshAfter <= 0 || cfg.RefreshAfter > cfg.CacheTTL {
		cfg.RefreshAfter = cfg.CacheTTL / 2
	}
	return &Service{
		cfg:     cfg,
		cache:   expirable.NewLRU[string, Data](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:  logger.With().Str("component", "health").Logger(),
		history: make(map[string]ProviderStats),
		now:     time.Now,
	}
}

// GetOrCompute returns the cached assessment for a source when it is still
// fresh, otherwise computes a new one, caches it, and returns it.
func (s *Service) GetOrCompute(m *source.Metadata) Data {
	if cached, ok := s.cache.Get(m.ID); ok {
		age := s.now().Sub(cached.ComputedAt)
		if age <= s.cfg.RefreshAfter {
			return cached
		}
		cached.NeedsRefresh = true
		// Stale entry: fall through and recompute.
	}
	return s.Refresh(m)
}

// Refresh computes a fresh assessment, overwriting any cached entry.
func (s *Service) Refresh(m *source.Metadata) Data {
	data := s.compute(m)
	s.cache.Add(m.ID, data)
	return data
}

// Cached returns the cached assessment without computing, if present.
func (s *Service) Cached(sourceID string) (Data, bool) {
	d, ok := s.cache.Get(sourceID)
	if ok {
		d.NeedsRefresh = s.now().Sub(d.ComputedAt) > s.cfg.RefreshAfter
	}
	return d, ok
}

// Invalidate drops the cached assessment for a source.
func (s *Service) Invalidate(sourceID string) {
	s.cache.Remove(sourceID)
}

// Purge drops every cached assessment.
func (s *Service) Purge() {
	s.cache.Purge()
}

// CacheLen returns the number of cached assessments.
func (s *Service) CacheLen() int {
	return s.cache.Len()
}

// Score component caps. The four components sum to at most 100.
const (
	maxSeederPoints       = 40.0
	maxRatioPoints        = 15.0
	maxAvailabilityPoints = 25.0
	maxTierPoints         = 20.0
)

// compute builds an assessment from the source's raw health observations and
// its provider's reliability tier.
func (s *Service) compute(m *source.Metadata) Data {
	data := Data{
		SourceID:   m.ID,
		ComputedAt: s.now(),
	}

	var score float64

	if m.Health.Seeders != nil {
		data.P2P.Seeders = *m.Health.Seeders
		// Logarithmic: 10 seeders ~ 35, 100+ seeders saturate the cap.
		seederScore := 10 * math.Log2(float64(*m.Health.Seeders)+1)
		if seederScore > maxSeederPoints {
			seederScore = maxSeederPoints
		}
		score += seederScore

		leechers := 1
		if m.Health.Leechers != nil {
			data.P2P.Leechers = *m.Health.Leechers
			if *m.Health.Leechers > 1 {
				leechers = *m.Health.Leechers
			}
		}
		ratioScore := float64(*m.Health.Seeders) / float64(leechers) * 3
		if ratioScore > maxRatioPoints {
			ratioScore = maxRatioPoints
		}
		score += ratioScore
	}

	if m.Health.Availability != nil {
		data.P2P.Availability = *m.Health.Availability
		score += *m.Health.Availability * maxAvailabilityPoints
	} else if m.Provider.Type == source.ProviderDebrid && m.Availability.CachedOnDebrid {
		// Debrid-cached sources are effectively fully available.
		data.P2P.Availability = 1
		score += maxAvailabilityPoints
	}

	score += float64(m.Provider.Tier.Rank()) / 3 * maxTierPoints

	if score > 100 {
		score = 100
	}
	data.OverallScore = score
	data.RiskLevel = riskForScore(score)
	data.PredictedReliability = s.reliabilityScore(m, score)

	return data
}

func riskForScore(score float64) RiskLevel {
	switch {
	case score >= 75:
		return RiskMinimal
	case score >= 50:
		return RiskLow
	case score >= 25:
		return RiskMedium
	default:
		return RiskHigh
	}
}
