package scoring

import (
	"fmt"

	"github.com/riptide-app/riptide/internal/health"
	"github.com/riptide-app/riptide/internal/source"
)

// Scorer computes composite scores and recommendation priorities.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given config.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// NewDefaultScorer creates a scorer with default weights.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultConfig())
}

// BaseQualityScore computes the intrinsic quality score of a source from its
// resolution, release type, codec, and audio attributes. It is independent
// of health and computed once per source.
func BaseQualityScore(m *source.Metadata) int {
	score := resolutionPoints(m.Quality.Resolution)
	score += m.Release.Type.Rank() * 40

	switch m.Codec {
	case source.CodecHEVC, source.CodecAV1:
		score += 50
	case source.CodecH264:
		score += 30
	case source.CodecVP9:
		score += 25
	}

	switch m.Audio.Format {
	case source.AudioTrueHD, source.AudioDTSHDMA:
		score += 50
	case source.AudioDTSHD:
		score += 40
	case source.AudioEAC3, source.AudioDTS:
		score += 30
	case source.AudioFLAC, source.AudioPCM:
		score += 35
	case source.AudioAC3, source.AudioAAC:
		score += 20
	}
	if m.Audio.Atmos || m.Audio.DTSX {
		score += 20
	}

	switch {
	case m.Quality.DolbyVision:
		score += 60
	case m.Quality.HDR10Plus:
		score += 50
	case m.Quality.HDR10:
		score += 40
	}

	return score
}

func resolutionPoints(r source.Resolution) int {
	switch r {
	case source.Resolution240p:
		return 20
	case source.Resolution360p:
		return 30
	case source.Resolution480p:
		return 50
	case source.Resolution720p:
		return 150
	case source.Resolution1080p:
		return 300
	case source.Resolution2160p:
		return 500
	case source.Resolution4320p:
		return 550
	default:
		return 0
	}
}

// Score computes the composite quality score for an evaluated source,
// clamped to [0, MaxScore]. Absent health or prediction inputs simply
// contribute nothing.
func (s *Scorer) Score(in Input, profile *UserProfile, prefs Preferences) int {
	total, _ := s.ScoreWithBreakdown(in, profile, prefs)
	return total
}

// ScoreWithBreakdown is Score plus the per-component itemization.
func (s *Scorer) ScoreWithBreakdown(in Input, profile *UserProfile, prefs Preferences) (int, Breakdown) {
	b := Breakdown{Base: BaseQualityScore(in.Source)}

	if in.Health != nil {
		switch in.Health.RiskLevel {
		case health.RiskMinimal:
			b.Health = s.config.MinimalRiskBonus
		case health.RiskLow:
			b.Health = s.config.LowRiskBonus
		case health.RiskHigh:
			b.Health = s.config.HighRiskPenalty
		}
	}
	if in.Reliability != nil {
		b.Reliability = int(s.config.ReliabilityFactor * in.Reliability.Score)
	}

	if prefs.PreferSeasonPacks && in.SeasonPack != nil && in.SeasonPack.IsSeasonPack {
		b.SeasonPack = s.config.SeasonPackBonus
	}

	if profile != nil {
		// Exact match only; higher resolutions already earn more base
		// points and get no additional profile credit.
		if profile.PreferredResolution > 0 &&
			in.Source.Quality.Resolution == profile.PreferredResolution {
			b.Profile = s.config.ProfileMatchBonus
		}
		b.Speed = s.speedBonus(in.Source, profile)
	}

	total := b.Base + b.Health + b.Reliability + b.SeasonPack + b.Profile + b.Speed
	if total < 0 {
		total = 0
	}
	if total > s.config.MaxScore {
		total = s.config.MaxScore
	}
	b.Total = total
	return total, b
}

// speedBonus estimates download hours from file size and the profile's
// connection speed. Skipped entirely when either is unknown.
func (s *Scorer) speedBonus(m *source.Metadata, profile *UserProfile) int {
	if profile.ConnectionMbps <= 0 || m.File.SizeBytes == nil || *m.File.SizeBytes <= 0 {
		return 0
	}
	// mbps × 125,000 = bytes per second.
	seconds := float64(*m.File.SizeBytes) / (profile.ConnectionMbps * 125_000)
	hours := seconds / 3600

	switch {
	case hours <= s.config.FastDownloadHours:
		return s.config.FastDownloadBonus
	case hours <= s.config.OkDownloadHours:
		return s.config.OkDownloadBonus
	default:
		return s.config.SlowDownloadPenalty
	}
}

// Explain produces the ordered reasoning phrases for a scored source. The
// output is deterministic for identical inputs and is meant for display, not
// further computation.
func (s *Scorer) Explain(in Input, profile *UserProfile, prefs Preferences) []string {
	reasons := make([]string, 0, 6)

	if res := in.Source.Quality.Resolution; res > 0 {
		label := res.String()
		if in.Source.Release.Type != source.ReleaseUnknown {
			label += " " + string(in.Source.Release.Type)
		}
		reasons = append(reasons, label+" quality")
	} else {
		reasons = append(reasons, "unknown quality")
	}

	if in.Health != nil {
		reasons = append(reasons, fmt.Sprintf("%s risk", in.Health.RiskLevel))
	}
	if in.Reliability != nil && in.Reliability.Score >= 80 {
		reasons = append(reasons, "highly reliable provider")
	}
	if in.SeasonPack != nil && in.SeasonPack.IsSeasonPack {
		if prefs.PreferSeasonPacks {
			reasons = append(reasons, "season pack (preferred)")
		} else {
			reasons = append(reasons, "season pack")
		}
	}
	if profile != nil && profile.PreferredResolution > 0 &&
		in.Source.Quality.Resolution == profile.PreferredResolution {
		reasons = append(reasons, "matches preferred resolution")
	}

	total := s.Score(in, profile, prefs)
	switch {
	case total >= 3*s.config.MaxScore/4:
		reasons = append(reasons, "excellent overall score")
	case total >= s.config.MaxScore/2:
		reasons = append(reasons, "good overall score")
	case total >= s.config.MaxScore/4:
		reasons = append(reasons, "fair overall score")
	default:
		reasons = append(reasons, "poor overall score")
	}
	return reasons
}

// RecommendationScore maps an evaluated source onto the separate 0-100
// recommendation scale: normalized quality weighted with the health score.
// Callers must not conflate this with the 0-MaxScore quality score.
func (s *Scorer) RecommendationScore(in Input, profile *UserProfile, prefs Preferences) int {
	quality := float64(s.Score(in, profile, prefs)) / float64(s.config.MaxScore) * 100

	healthScore := 50.0 // neutral when no assessment exists
	if in.Health != nil {
		healthScore = in.Health.OverallScore
	}

	rec := int(quality*0.6 + healthScore*0.4 + 0.5)
	if rec > 100 {
		rec = 100
	}
	if rec < 0 {
		rec = 0
	}
	return rec
}

// PriorityFor buckets a 0-100 recommendation score.
func (s *Scorer) PriorityFor(recommendation int) Priority {
	switch {
	case recommendation >= s.config.HighPriorityThreshold:
		return PriorityHigh
	case recommendation >= s.config.MediumPriorityThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// QualityBadges derives short UI badges from a source's attributes.
func QualityBadges(m *source.Metadata) []string {
	badges := make([]string, 0, 4)
	if m.Quality.Resolution >= source.Resolution2160p {
		badges = append(badges, m.Quality.Resolution.String())
	}
	switch {
	case m.Quality.DolbyVision:
		badges = append(badges, "Dolby Vision")
	case m.Quality.HDR10Plus:
		badges = append(badges, "HDR10+")
	case m.Quality.HDR10:
		badges = append(badges, "HDR10")
	}
	if m.Audio.Atmos {
		badges = append(badges, "Atmos")
	}
	if m.Audio.DTSX {
		badges = append(badges, "DTS:X")
	}
	if m.Release.Type == source.ReleaseBluRayRemux {
		badges = append(badges, "REMUX")
	}
	if m.Availability.CachedOnDebrid {
		badges = append(badges, "Instant")
	}
	return badges
}
