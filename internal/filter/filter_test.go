package filter

import (
	"testing"

	"github.com/riptide-app/riptide/internal/source"
)

func intPtr(i int) *int           { return &i }
func int64Ptr(i int64) *int64     { return &i }
func floatPtr(f float64) *float64 { return &f }

func sampleSource(mutate func(*source.Metadata)) source.Metadata {
	m := source.Metadata{
		ID:    "src-1",
		Title: "Show.S01.1080p.WEB-DL.HEVC",
		Provider: source.ProviderInfo{
			ID:   "prov-1",
			Type: source.ProviderTorrent,
			Tier: source.TierGood,
		},
		Quality: source.QualityInfo{Resolution: source.Resolution1080p},
		Codec:   source.CodecHEVC,
		Audio:   source.AudioInfo{Format: source.AudioEAC3},
		Release: source.ReleaseInfo{Type: source.ReleaseWEBDL},
		File: source.FileInfo{
			Name:      "Show.S01.1080p.WEB-DL.HEVC.mkv",
			SizeBytes: int64Ptr(8 << 30),
		},
		Health: source.HealthInfo{
			Seeders:      intPtr(50),
			Leechers:     intPtr(10),
			Availability: floatPtr(0.9),
		},
	}
	if mutate != nil {
		mutate(&m)
	}
	return m
}

func TestEvaluateAndCombination(t *testing.T) {
	f := &Advanced{
		Quality: QualityGroup{MinResolution: source.Resolution1080p},
		Health:  HealthGroup{MinSeeders: 10},
	}

	m := sampleSource(nil)
	if !f.Evaluate(&m) {
		t.Error("source satisfying all groups must be admitted")
	}

	lowRes := sampleSource(func(m *source.Metadata) {
		m.Quality.Resolution = source.Resolution720p
	})
	if f.Evaluate(&lowRes) {
		t.Error("AND combination must reject when any group fails")
	}
}

func TestEvaluateOrCombination(t *testing.T) {
	f := &Advanced{
		Quality:     QualityGroup{MinResolution: source.Resolution2160p},
		Health:      HealthGroup{MinSeeders: 10},
		Combination: CombineOr,
	}

	// Fails quality but passes health.
	m := sampleSource(nil)
	if !f.Evaluate(&m) {
		t.Error("OR combination must admit when any group matches")
	}

	neither := sampleSource(func(m *source.Metadata) {
		m.Health.Seeders = intPtr(1)
	})
	if f.Evaluate(&neither) {
		t.Error("OR combination must reject when no group matches")
	}
}

func TestEvaluateEmptyFilterAdmitsAll(t *testing.T) {
	f := &Advanced{}
	m := sampleSource(func(m *source.Metadata) {
		m.Quality.Resolution = source.ResolutionUnknown
		m.Health = source.HealthInfo{}
	})
	if !f.Evaluate(&m) {
		t.Error("empty filter must admit everything")
	}
}

func TestHealthGroupMissingData(t *testing.T) {
	noHealth := sampleSource(func(m *source.Metadata) {
		m.Health = source.HealthInfo{}
	})

	lenient := HealthGroup{MinSeeders: 10}
	if !lenient.Matches(&noHealth) {
		t.Error("absent health data must pass without RequireHealthInfo")
	}

	strict := HealthGroup{MinSeeders: 10, RequireHealthInfo: true}
	if strict.Matches(&noHealth) {
		t.Error("absent health data must fail with RequireHealthInfo")
	}
}

func TestRelaxIsMonotonic(t *testing.T) {
	f := &Advanced{
		Quality: QualityGroup{MinResolution: source.Resolution2160p},
		Health:  HealthGroup{MinSeeders: 100},
		Codec:   CodecGroup{Allowed: []source.VideoCodec{source.CodecAV1}},
	}

	sources := []source.Metadata{
		sampleSource(nil),
		sampleSource(func(m *source.Metadata) {
			m.ID = "src-2"
			m.Quality.Resolution = source.Resolution2160p
			m.Health.Seeders = intPtr(200)
			m.Codec = source.CodecAV1
		}),
	}

	prev := len(f.Apply(sources))
	current := f
	for _, strategy := range DefaultRelaxOrder {
		current = current.Relax(strategy)
		got := len(current.Apply(sources))
		if got < prev {
			t.Fatalf("relaxing %s shrank the result from %d to %d", strategy, prev, got)
		}
		prev = got
	}
	if prev != len(sources) {
		t.Errorf("fully relaxed filter admitted %d of %d", prev, len(sources))
	}
}

func TestApplyWithResolution(t *testing.T) {
	f := &Advanced{
		Quality:            QualityGroup{MinResolution: source.Resolution4320p},
		ConflictResolution: ConflictResolution{Enabled: true},
	}
	sources := []source.Metadata{sampleSource(nil)}

	result := f.ApplyWithResolution(sources)
	if len(result.Admitted) != 1 {
		t.Fatalf("expected relaxation to admit the source, got %d", len(result.Admitted))
	}
	if len(result.Relaxed) == 0 || len(result.Relaxed) > len(DefaultRelaxOrder) {
		t.Errorf("relaxed strategy count %d out of bounds", len(result.Relaxed))
	}
	// Quality is the only set group, third in the default order.
	if result.Relaxed[len(result.Relaxed)-1] != RelaxQuality {
		t.Errorf("last relaxed strategy = %s, want %s", result.Relaxed[len(result.Relaxed)-1], RelaxQuality)
	}

	// The original filter must be unchanged.
	if f.Quality.IsZero() {
		t.Error("ApplyWithResolution mutated the original filter")
	}
}

func TestApplyWithResolutionNoMatchPossible(t *testing.T) {
	f := &Advanced{
		Quality:            QualityGroup{MinResolution: source.Resolution1080p},
		ConflictResolution: ConflictResolution{Enabled: true},
	}

	result := f.ApplyWithResolution(nil)
	if len(result.Admitted) != 0 {
		t.Fatalf("expected empty result for empty input, got %d", len(result.Admitted))
	}
	if len(result.Relaxed) != len(DefaultRelaxOrder) {
		t.Errorf("expected all %d strategies exhausted, got %d", len(DefaultRelaxOrder), len(result.Relaxed))
	}
}

func TestApplyWithResolutionDisabled(t *testing.T) {
	f := &Advanced{
		Quality: QualityGroup{MinResolution: source.Resolution4320p},
	}
	result := f.ApplyWithResolution([]source.Metadata{sampleSource(nil)})
	if len(result.Admitted) != 0 || len(result.Relaxed) != 0 {
		t.Error("disabled conflict resolution must never relax")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Advanced
		wantErr bool
	}{
		{name: "empty", filter: Advanced{}},
		{name: "valid combination", filter: Advanced{Combination: CombineOr}},
		{name: "bad combination", filter: Advanced{Combination: "xor"}, wantErr: true},
		{
			name: "resolution bounds inverted",
			filter: Advanced{Quality: QualityGroup{
				MinResolution: source.Resolution2160p,
				MaxResolution: source.Resolution720p,
			}},
			wantErr: true,
		},
		{
			name:    "size bounds inverted",
			filter:  Advanced{FileSize: FileSizeGroup{MinBytes: 100, MaxBytes: 10}},
			wantErr: true,
		},
		{
			name:    "availability out of range",
			filter:  Advanced{Health: HealthGroup{MinAvailability: 1.5}},
			wantErr: true,
		},
		{
			name: "require and exclude HDR",
			filter: Advanced{Quality: QualityGroup{
				RequireHDR: true,
				ExcludeHDR: true,
			}},
			wantErr: true,
		},
		{
			name:    "unknown strategy",
			filter:  Advanced{ConflictResolution: ConflictResolution{Strategies: []RelaxStrategy{"magic"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	presets := Presets()
	if len(presets) == 0 {
		t.Fatal("no built-in presets loaded")
	}
	for i := range presets {
		if err := presets[i].Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", presets[i].Name, err)
		}
	}

	uhd, ok := PresetByName("4K UHD")
	if !ok {
		t.Fatal("expected 4K UHD preset")
	}
	if uhd.Quality.MinResolution != source.Resolution2160p {
		t.Errorf("4K UHD min resolution = %d, want 2160", uhd.Quality.MinResolution)
	}
}

func TestForDevice(t *testing.T) {
	f := ForDevice(DeviceProfile{
		Name:            "Living Room TV",
		MaxResolution:   source.Resolution2160p,
		Codecs:          []source.VideoCodec{source.CodecHEVC},
		SizeBudgetBytes: 20 << 30,
		PreferCached:    true,
	})
	if err := f.Validate(); err != nil {
		t.Fatalf("device filter invalid: %v", err)
	}

	hevc := sampleSource(func(m *source.Metadata) {
		m.Availability.CachedOnDebrid = true
	})
	if !f.Evaluate(&hevc) {
		t.Error("cached HEVC source within budget must pass the device filter")
	}

	uncached := sampleSource(nil)
	if f.Evaluate(&uncached) {
		t.Error("uncached source must fail a prefer-cached device filter")
	}
}

func TestForDeviceHDRCapability(t *testing.T) {
	sdrOnly := ForDevice(DeviceProfile{Name: "Old Projector", MaxResolution: source.Resolution1080p})
	if !sdrOnly.Quality.ExcludeHDR {
		t.Fatal("device without HDR support must exclude HDR sources")
	}

	hdrSource := sampleSource(func(m *source.Metadata) {
		m.Quality.DolbyVision = true
	})
	if sdrOnly.Evaluate(&hdrSource) {
		t.Error("HDR source must fail a non-HDR device filter")
	}
	plain := sampleSource(nil)
	if !sdrOnly.Evaluate(&plain) {
		t.Error("SDR source must pass a non-HDR device filter")
	}

	hdrCapable := ForDevice(DeviceProfile{
		Name:          "OLED TV",
		MaxResolution: source.Resolution2160p,
		SupportsHDR:   true,
	})
	if hdrCapable.Quality.ExcludeHDR {
		t.Fatal("HDR-capable device must not exclude HDR sources")
	}
	if !hdrCapable.Evaluate(&hdrSource) {
		t.Error("HDR source must pass an HDR-capable device filter")
	}
}

func TestQualityGroupExcludeHDR(t *testing.T) {
	f := Advanced{Quality: QualityGroup{ExcludeHDR: true}}

	for _, mutate := range []func(*source.Metadata){
		func(m *source.Metadata) { m.Quality.HDR10 = true },
		func(m *source.Metadata) { m.Quality.HDR10Plus = true },
		func(m *source.Metadata) { m.Quality.DolbyVision = true },
	} {
		s := sampleSource(mutate)
		if f.Evaluate(&s) {
			t.Error("HDR-flagged source must fail an HDR-excluding filter")
		}
	}

	sdr := sampleSource(nil)
	if !f.Evaluate(&sdr) {
		t.Error("SDR source must pass an HDR-excluding filter")
	}
}
