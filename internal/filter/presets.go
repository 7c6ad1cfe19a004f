package filter

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/riptide-app/riptide/internal/source"
)

//go:embed presets.yaml
var presetsYAML []byte

type presetFile struct {
	Presets []Advanced `yaml:"presets"`
}

var presets []Advanced

func init() {
	var file presetFile
	if err := yaml.Unmarshal(presetsYAML, &file); err != nil {
		panic(fmt.Sprintf("filter: embedded presets are malformed: %v", err))
	}
	for i := range file.Presets {
		if err := file.Presets[i].Validate(); err != nil {
			panic(fmt.Sprintf("filter: preset %q invalid: %v", file.Presets[i].Name, err))
		}
	}
	presets = file.Presets
}

// Presets returns the named, static filter presets. The returned slice is a
// copy; presets themselves are pure data.
func Presets() []Advanced {
	out := make([]Advanced, len(presets))
	copy(out, presets)
	return out
}

// PresetByName returns the preset with the given name.
func PresetByName(name string) (Advanced, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Advanced{}, false
}

// DeviceProfile describes a playback device's capabilities.
type DeviceProfile struct {
	Name            string              `json:"name"`
	MaxResolution   source.Resolution   `json:"maxResolution"`
	SupportsHDR     bool                `json:"supportsHdr"`
	Codecs          []source.VideoCodec `json:"codecs,omitempty"`
	SizeBudgetBytes int64               `json:"sizeBudgetBytes,omitempty"`
	PreferCached    bool                `json:"preferCached,omitempty"`
}

// ForDevice builds a filter from a device capability profile by populating
// the same sub-filter groups the presets use.
func ForDevice(profile DeviceProfile) Advanced {
	f := Advanced{
		Name:        "Device: " + profile.Name,
		Combination: CombineAnd,
		ConflictResolution: ConflictResolution{
			Enabled:    true,
			Strategies: []RelaxStrategy{RelaxProvider, RelaxFileSize, RelaxCodec},
		},
	}
	if profile.MaxResolution > 0 {
		f.Quality.MaxResolution = profile.MaxResolution
	}
	if !profile.SupportsHDR {
		f.Quality.ExcludeHDR = true
	}
	if len(profile.Codecs) > 0 {
		f.Codec.Allowed = append([]source.VideoCodec(nil), profile.Codecs...)
	}
	if profile.SizeBudgetBytes > 0 {
		f.FileSize.MaxBytes = profile.SizeBudgetBytes
	}
	if profile.PreferCached {
		f.Provider.CachedOnly = true
	}
	return f
}
