// Package filter implements the declarative multi-criteria filter model used
// to admit or reject candidate sources, including cross-group combination and
// conflict-resolution relaxation.
package filter

import (
	"fmt"
	"time"

	"github.com/riptide-app/riptide/internal/source"
)

// Combination controls how sub-filter groups combine across the filter.
// Within a group, constraints are always AND'd.
type Combination string

const (
	CombineAnd Combination = "and"
	CombineOr  Combination = "or"
)

// RelaxStrategy names a sub-filter group that a relaxation pass may clear.
type RelaxStrategy string

const (
	RelaxHealth   RelaxStrategy = "health"
	RelaxCodec    RelaxStrategy = "codec"
	RelaxQuality  RelaxStrategy = "quality"
	RelaxAudio    RelaxStrategy = "audio"
	RelaxRelease  RelaxStrategy = "release"
	RelaxFileSize RelaxStrategy = "filesize"
	RelaxProvider RelaxStrategy = "provider"
	RelaxAge      RelaxStrategy = "age"
)

// DefaultRelaxOrder is the default strategy order: drop health constraints
// first, then codec, then the quality ceiling, then the rest.
var DefaultRelaxOrder = []RelaxStrategy{
	RelaxHealth, RelaxCodec, RelaxQuality, RelaxAudio,
	RelaxRelease, RelaxFileSize, RelaxProvider, RelaxAge,
}

// ConflictResolution governs what happens when the combined filter admits
// zero sources from a batch.
type ConflictResolution struct {
	Enabled    bool            `json:"enabled" yaml:"enabled"`
	Strategies []RelaxStrategy `json:"strategies,omitempty" yaml:"strategies,omitempty"`
}

// QualityGroup constrains resolution and HDR capability. ExcludeHDR rejects
// any HDR source, for devices that cannot tone-map.
type QualityGroup struct {
	MinResolution source.Resolution `json:"minResolution,omitempty" yaml:"minResolution,omitempty"`
	MaxResolution source.Resolution `json:"maxResolution,omitempty" yaml:"maxResolution,omitempty"`
	RequireHDR    bool              `json:"requireHdr,omitempty" yaml:"requireHdr,omitempty"`
	ExcludeHDR    bool              `json:"excludeHdr,omitempty" yaml:"excludeHdr,omitempty"`
}

// IsZero reports whether the group imposes no constraint.
func (g QualityGroup) IsZero() bool {
	return g.MinResolution == 0 && g.MaxResolution == 0 && !g.RequireHDR && !g.ExcludeHDR
}

// Matches reports whether a source satisfies the group. Unknown resolution
// fails an explicit minimum but passes an unset one.
func (g QualityGroup) Matches(m *source.Metadata) bool {
	res := m.Quality.Resolution
	if g.MinResolution > 0 && res < g.MinResolution {
		return false
	}
	if g.MaxResolution > 0 && res > g.MaxResolution {
		return false
	}
	hdr := m.Quality.HDR10 || m.Quality.HDR10Plus || m.Quality.DolbyVision
	if g.RequireHDR && !hdr {
		return false
	}
	if g.ExcludeHDR && hdr {
		return false
	}
	return true
}

// SourceTypeGroup constrains the provider type of a source.
type SourceTypeGroup struct {
	Allowed []source.ProviderType `json:"allowed,omitempty" yaml:"allowed,omitempty"`
}

func (g SourceTypeGroup) IsZero() bool { return len(g.Allowed) == 0 }

func (g SourceTypeGroup) Matches(m *source.Metadata) bool {
	for _, t := range g.Allowed {
		if m.Provider.Type == t {
			return true
		}
	}
	return false
}

// HealthGroup constrains swarm health. Absent health data passes unless
// RequireHealthInfo is set.
type HealthGroup struct {
	MinSeeders        int     `json:"minSeeders,omitempty" yaml:"minSeeders,omitempty"`
	MaxLeechRatio     float64 `json:"maxLeechRatio,omitempty" yaml:"maxLeechRatio,omitempty"`
	MinAvailability   float64 `json:"minAvailability,omitempty" yaml:"minAvailability,omitempty"`
	RequireHealthInfo bool    `json:"requireHealthInfo,omitempty" yaml:"requireHealthInfo,omitempty"`
}

func (g HealthGroup) IsZero() bool {
	return g.MinSeeders == 0 && g.MaxLeechRatio == 0 && g.MinAvailability == 0 && !g.RequireHealthInfo
}

func (g HealthGroup) Matches(m *source.Metadata) bool {
	h := m.Health
	if g.RequireHealthInfo && h.Seeders == nil && h.Availability == nil {
		return false
	}
	if g.MinSeeders > 0 {
		if h.Seeders == nil {
			if g.RequireHealthInfo {
				return false
			}
		} else if *h.Seeders < g.MinSeeders {
			return false
		}
	}
	if g.MaxLeechRatio > 0 && h.Seeders != nil && h.Leechers != nil && *h.Seeders > 0 {
		if float64(*h.Leechers)/float64(*h.Seeders) > g.MaxLeechRatio {
			return false
		}
	}
	if g.MinAvailability > 0 {
		if h.Availability == nil {
			if g.RequireHealthInfo {
				return false
			}
		} else if *h.Availability < g.MinAvailability {
			return false
		}
	}
	return true
}

// FileSizeGroup constrains file size with inclusive bounds.
type FileSizeGroup struct {
	MinBytes        int64 `json:"minBytes,omitempty" yaml:"minBytes,omitempty"`
	MaxBytes        int64 `json:"maxBytes,omitempty" yaml:"maxBytes,omitempty"`
	RequireSizeInfo bool  `json:"requireSizeInfo,omitempty" yaml:"requireSizeInfo,omitempty"`
}

func (g FileSizeGroup) IsZero() bool {
	return g.MinBytes == 0 && g.MaxBytes == 0 && !g.RequireSizeInfo
}

func (g FileSizeGroup) Matches(m *source.Metadata) bool {
	if m.File.SizeBytes == nil {
		return !g.RequireSizeInfo
	}
	size := *m.File.SizeBytes
	if g.MinBytes > 0 && size < g.MinBytes {
		return false
	}
	if g.MaxBytes > 0 && size > g.MaxBytes {
		return false
	}
	return true
}

// CodecGroup constrains the video codec. Unknown codec fails a non-empty
// allowed set.
type CodecGroup struct {
	Allowed []source.VideoCodec `json:"allowed,omitempty" yaml:"allowed,omitempty"`
}

func (g CodecGroup) IsZero() bool { return len(g.Allowed) == 0 }

func (g CodecGroup) Matches(m *source.Metadata) bool {
	for _, c := range g.Allowed {
		if m.Codec == c {
			return true
		}
	}
	return false
}

// AudioGroup constrains audio format and object-audio flags.
type AudioGroup struct {
	Allowed      []source.AudioFormat `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	RequireAtmos bool                 `json:"requireAtmos,omitempty" yaml:"requireAtmos,omitempty"`
}

func (g AudioGroup) IsZero() bool { return len(g.Allowed) == 0 && !g.RequireAtmos }

func (g AudioGroup) Matches(m *source.Metadata) bool {
	if g.RequireAtmos && !m.Audio.Atmos {
		return false
	}
	if len(g.Allowed) == 0 {
		return true
	}
	for _, f := range g.Allowed {
		if m.Audio.Format == f {
			return true
		}
	}
	return false
}

// ReleaseGroup constrains the release type, either by explicit allow list or
// a minimum rank floor.
type ReleaseGroup struct {
	Allowed []source.ReleaseType `json:"allowed,omitempty" yaml:"allowed,omitempty"`
	MinType source.ReleaseType   `json:"minType,omitempty" yaml:"minType,omitempty"`
}

func (g ReleaseGroup) IsZero() bool { return len(g.Allowed) == 0 && g.MinType == "" }

func (g ReleaseGroup) Matches(m *source.Metadata) bool {
	if g.MinType != "" && m.Release.Type.Rank() < g.MinType.Rank() {
		return false
	}
	if len(g.Allowed) == 0 {
		return true
	}
	for _, r := range g.Allowed {
		if m.Release.Type == r {
			return true
		}
	}
	return false
}

// ProviderGroup constrains provider identity and reliability tier.
type ProviderGroup struct {
	AllowedIDs []string               `json:"allowedIds,omitempty" yaml:"allowedIds,omitempty"`
	MinTier    source.ReliabilityTier `json:"minTier,omitempty" yaml:"minTier,omitempty"`
	CachedOnly bool                   `json:"cachedOnly,omitempty" yaml:"cachedOnly,omitempty"`
}

func (g ProviderGroup) IsZero() bool {
	return len(g.AllowedIDs) == 0 && g.MinTier == "" && !g.CachedOnly
}

func (g ProviderGroup) Matches(m *source.Metadata) bool {
	if g.MinTier != "" && m.Provider.Tier.Rank() < g.MinTier.Rank() {
		return false
	}
	if g.CachedOnly && !m.Availability.CachedOnDebrid {
		return false
	}
	if len(g.AllowedIDs) == 0 {
		return true
	}
	for _, id := range g.AllowedIDs {
		if m.Provider.ID == id {
			return true
		}
	}
	return false
}

// AgeGroup constrains how long ago the source file was added. Absent dates
// pass unless RequireDateInfo is set.
type AgeGroup struct {
	MaxAgeDays      int  `json:"maxAgeDays,omitempty" yaml:"maxAgeDays,omitempty"`
	RequireDateInfo bool `json:"requireDateInfo,omitempty" yaml:"requireDateInfo,omitempty"`
}

func (g AgeGroup) IsZero() bool { return g.MaxAgeDays == 0 && !g.RequireDateInfo }

func (g AgeGroup) Matches(m *source.Metadata) bool {
	return g.matchesAt(m, time.Now())
}

func (g AgeGroup) matchesAt(m *source.Metadata, now time.Time) bool {
	if m.File.AddedDate == nil {
		return !g.RequireDateInfo
	}
	if g.MaxAgeDays > 0 {
		age := now.Sub(*m.File.AddedDate)
		if age > time.Duration(g.MaxAgeDays)*24*time.Hour {
			return false
		}
	}
	return true
}

// Advanced is a snapshot of filter criteria composed of independent
// sub-filter groups. Unset groups impose no constraint.
type Advanced struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Quality    QualityGroup    `json:"quality,omitempty" yaml:"quality,omitempty"`
	SourceType SourceTypeGroup `json:"sourceType,omitempty" yaml:"sourceType,omitempty"`
	Health     HealthGroup     `json:"health,omitempty" yaml:"health,omitempty"`
	FileSize   FileSizeGroup   `json:"fileSize,omitempty" yaml:"fileSize,omitempty"`
	Codec      CodecGroup      `json:"codec,omitempty" yaml:"codec,omitempty"`
	Audio      AudioGroup      `json:"audio,omitempty" yaml:"audio,omitempty"`
	Release    ReleaseGroup    `json:"release,omitempty" yaml:"release,omitempty"`
	Provider   ProviderGroup   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Age        AgeGroup        `json:"age,omitempty" yaml:"age,omitempty"`

	Combination        Combination        `json:"combination,omitempty" yaml:"combination,omitempty"`
	ConflictResolution ConflictResolution `json:"conflictResolution,omitempty" yaml:"conflictResolution,omitempty"`
}

// group pairs a relaxation strategy with the group's matcher and set state.
type group struct {
	strategy RelaxStrategy
	set      bool
	matches  func(*source.Metadata) bool
}

func (f *Advanced) groups() []group {
	return []group{
		{RelaxQuality, !f.Quality.IsZero(), f.Quality.Matches},
		{"", !f.SourceType.IsZero(), f.SourceType.Matches},
		{RelaxHealth, !f.Health.IsZero(), f.Health.Matches},
		{RelaxFileSize, !f.FileSize.IsZero(), f.FileSize.Matches},
		{RelaxCodec, !f.Codec.IsZero(), f.Codec.Matches},
		{RelaxAudio, !f.Audio.IsZero(), f.Audio.Matches},
		{RelaxRelease, !f.Release.IsZero(), f.Release.Matches},
		{RelaxProvider, !f.Provider.IsZero(), f.Provider.Matches},
		{RelaxAge, !f.Age.IsZero(), f.Age.Matches},
	}
}

// Evaluate reports whether a source is admitted by the filter.
// Set groups combine via the filter's Combination; an empty filter admits.
func (f *Advanced) Evaluate(m *source.Metadata) bool {
	anySet := false
	for _, g := range f.groups() {
		if !g.set {
			continue
		}
		anySet = true
		matched := g.matches(m)
		if f.Combination == CombineOr {
			if matched {
				return true
			}
		} else if !matched {
			return false
		}
	}
	if !anySet {
		return true
	}
	return f.Combination != CombineOr
}

// Apply returns the sources admitted by the filter, preserving input order.
func (f *Advanced) Apply(sources []source.Metadata) []source.Metadata {
	admitted := make([]source.Metadata, 0, len(sources))
	for i := range sources {
		if f.Evaluate(&sources[i]) {
			admitted = append(admitted, sources[i])
		}
	}
	return admitted
}

// Relax returns a copy of the filter with the named group cleared.
func (f *Advanced) Relax(strategy RelaxStrategy) *Advanced {
	relaxed := *f
	switch strategy {
	case RelaxHealth:
		relaxed.Health = HealthGroup{}
	case RelaxCodec:
		relaxed.Codec = CodecGroup{}
	case RelaxQuality:
		relaxed.Quality = QualityGroup{}
	case RelaxAudio:
		relaxed.Audio = AudioGroup{}
	case RelaxRelease:
		relaxed.Release = ReleaseGroup{}
	case RelaxFileSize:
		relaxed.FileSize = FileSizeGroup{}
	case RelaxProvider:
		relaxed.Provider = ProviderGroup{}
	case RelaxAge:
		relaxed.Age = AgeGroup{}
	}
	return &relaxed
}

// ApplyResult is the outcome of applying a filter with conflict resolution.
type ApplyResult struct {
	Admitted []source.Metadata `json:"admitted"`
	// Relaxed lists the strategies applied before a non-empty result was
	// found, in order. Empty when the original filter already admitted
	// something (or conflict resolution is disabled).
	Relaxed []RelaxStrategy `json:"relaxed,omitempty"`
}

// ApplyWithResolution applies the filter and, on an empty result with
// conflict resolution enabled, relaxes groups one at a time in strategy
// order, cumulatively, stopping at the first non-empty result or when
// strategies are exhausted.
func (f *Advanced) ApplyWithResolution(sources []source.Metadata) ApplyResult {
	admitted := f.Apply(sources)
	if len(admitted) > 0 || !f.ConflictResolution.Enabled {
		return ApplyResult{Admitted: admitted}
	}

	strategies := f.ConflictResolution.Strategies
	if len(strategies) == 0 {
		strategies = DefaultRelaxOrder
	}

	current := f
	relaxed := make([]RelaxStrategy, 0, len(strategies))
	for _, strategy := range strategies {
		current = current.Relax(strategy)
		relaxed = append(relaxed, strategy)
		admitted = current.Apply(sources)
		if len(admitted) > 0 {
			return ApplyResult{Admitted: admitted, Relaxed: relaxed}
		}
	}
	return ApplyResult{Admitted: admitted, Relaxed: relaxed}
}

// Validate checks the filter configuration for contract violations. It is
// called at construction/deserialization time so that evaluation never has
// to deal with malformed filters.
func (f *Advanced) Validate() error {
	if f.Combination != "" && f.Combination != CombineAnd && f.Combination != CombineOr {
		return fmt.Errorf("invalid filter combination %q", f.Combination)
	}
	if f.Quality.MinResolution > 0 && f.Quality.MaxResolution > 0 &&
		f.Quality.MinResolution > f.Quality.MaxResolution {
		return fmt.Errorf("quality filter: min resolution %s above max %s",
			f.Quality.MinResolution, f.Quality.MaxResolution)
	}
	if f.Quality.RequireHDR && f.Quality.ExcludeHDR {
		return fmt.Errorf("quality filter: cannot both require and exclude HDR")
	}
	if f.FileSize.MinBytes > 0 && f.FileSize.MaxBytes > 0 &&
		f.FileSize.MinBytes > f.FileSize.MaxBytes {
		return fmt.Errorf("file size filter: min %d above max %d",
			f.FileSize.MinBytes, f.FileSize.MaxBytes)
	}
	if f.FileSize.MinBytes < 0 || f.FileSize.MaxBytes < 0 {
		return fmt.Errorf("file size filter: negative bound")
	}
	if f.Health.MinSeeders < 0 {
		return fmt.Errorf("health filter: negative min seeders")
	}
	if f.Health.MinAvailability < 0 || f.Health.MinAvailability > 1 {
		return fmt.Errorf("health filter: availability %v out of [0,1]", f.Health.MinAvailability)
	}
	if f.Age.MaxAgeDays < 0 {
		return fmt.Errorf("age filter: negative max age")
	}
	for _, s := range f.ConflictResolution.Strategies {
		if !validStrategy(s) {
			return fmt.Errorf("unknown relaxation strategy %q", s)
		}
	}
	return nil
}

func validStrategy(s RelaxStrategy) bool {
	switch s {
	case RelaxHealth, RelaxCodec, RelaxQuality, RelaxAudio,
		RelaxRelease, RelaxFileSize, RelaxProvider, RelaxAge:
		return true
	}
	return false
}
