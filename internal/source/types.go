// Package source contains the normalized source record model consumed by the
// filtering, health, and scoring packages.
package source

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProviderType represents the kind of provider a source came from.
type ProviderType string

const (
	ProviderUnknown  ProviderType = "unknown"
	ProviderTorrent  ProviderType = "torrent"
	ProviderDirect   ProviderType = "direct"
	ProviderDebrid   ProviderType = "debrid"
	ProviderMetadata ProviderType = "metadata"
	ProviderSubtitle ProviderType = "subtitle"
)

// ReliabilityTier represents a provider's reliability classification.
type ReliabilityTier string

const (
	TierUnknown   ReliabilityTier = "unknown"
	TierFair      ReliabilityTier = "fair"
	TierGood      ReliabilityTier = "good"
	TierExcellent ReliabilityTier = "excellent"
)

// Rank returns the ordering of a tier. Unknown ranks lowest.
func (t ReliabilityTier) Rank() int {
	switch t {
	case TierFair:
		return 1
	case TierGood:
		return 2
	case TierExcellent:
		return 3
	default:
		return 0
	}
}

// Resolution is a vertical resolution in lines. Zero means unknown.
// Values order naturally: 240 < 480 < 720 < 1080 < 2160 < 4320.
type Resolution int

const (
	ResolutionUnknown Resolution = 0
	Resolution240p    Resolution = 240
	Resolution360p    Resolution = 360
	Resolution480p    Resolution = 480
	Resolution720p    Resolution = 720
	Resolution1080p   Resolution = 1080
	Resolution2160p   Resolution = 2160
	Resolution4320p   Resolution = 4320
)

// String returns the conventional label ("1080p", "4K") for a resolution.
func (r Resolution) String() string {
	switch r {
	case Resolution240p:
		return "240p"
	case Resolution360p:
		return "360p"
	case Resolution480p:
		return "480p"
	case Resolution720p:
		return "720p"
	case Resolution1080p:
		return "1080p"
	case Resolution2160p:
		return "4K"
	case Resolution4320p:
		return "8K"
	default:
		return "unknown"
	}
}

// ParseResolution converts a label like "1080p", "4K", or "2160" to a
// Resolution. Unrecognized labels map to ResolutionUnknown.
func ParseResolution(s string) Resolution {
	switch s {
	case "240p", "240":
		return Resolution240p
	case "360p", "360":
		return Resolution360p
	case "480p", "480", "sd", "SD":
		return Resolution480p
	case "720p", "720":
		return Resolution720p
	case "1080p", "1080":
		return Resolution1080p
	case "2160p", "2160", "4K", "4k", "UHD", "uhd":
		return Resolution2160p
	case "4320p", "4320", "8K", "8k":
		return Resolution4320p
	default:
		return ResolutionUnknown
	}
}

// MarshalJSON serializes resolutions by name so persisted filters stay
// readable and stable across enum reordering.
func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts either a label ("1080p") or a bare line count (1080).
func (r *Resolution) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		*r = ParseResolution(label)
		return nil
	}
	var lines int
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("invalid resolution %s", data)
	}
	*r = Resolution(lines)
	return nil
}

// VideoCodec represents the video codec of a source.
type VideoCodec string

const (
	CodecUnknown VideoCodec = "unknown"
	CodecH264    VideoCodec = "h264"
	CodecHEVC    VideoCodec = "hevc"
	CodecAV1     VideoCodec = "av1"
	CodecVP9     VideoCodec = "vp9"
	CodecXviD    VideoCodec = "xvid"
	CodecMPEG2   VideoCodec = "mpeg2"
)

// AudioFormat represents the primary audio format of a source.
type AudioFormat string

const (
	AudioUnknown AudioFormat = "unknown"
	AudioAAC     AudioFormat = "aac"
	AudioAC3     AudioFormat = "ac3"
	AudioEAC3    AudioFormat = "eac3"
	AudioDTS     AudioFormat = "dts"
	AudioDTSHD   AudioFormat = "dts-hd"
	AudioDTSHDMA AudioFormat = "dts-hd-ma"
	AudioTrueHD  AudioFormat = "truehd"
	AudioFLAC    AudioFormat = "flac"
	AudioPCM     AudioFormat = "pcm"
	AudioMP3     AudioFormat = "mp3"
)

// ReleaseType represents the release pipeline a source came from.
type ReleaseType string

const (
	ReleaseUnknown     ReleaseType = "unknown"
	ReleaseCAM         ReleaseType = "cam"
	ReleaseTelesync    ReleaseType = "telesync"
	ReleaseDVDRip      ReleaseType = "dvdrip"
	ReleaseHDTV        ReleaseType = "hdtv"
	ReleaseWEBRip      ReleaseType = "webrip"
	ReleaseWEBDL       ReleaseType = "webdl"
	ReleaseBluRay      ReleaseType = "bluray"
	ReleaseBluRayRemux ReleaseType = "remux"
)

// Rank returns the quality ordering of a release type. Unknown ranks lowest.
func (r ReleaseType) Rank() int {
	switch r {
	case ReleaseCAM:
		return 1
	case ReleaseTelesync:
		return 2
	case ReleaseDVDRip:
		return 3
	case ReleaseHDTV:
		return 4
	case ReleaseWEBRip:
		return 5
	case ReleaseWEBDL:
		return 6
	case ReleaseBluRay:
		return 7
	case ReleaseBluRayRemux:
		return 8
	default:
		return 0
	}
}

// ProviderInfo describes the provider a source was discovered on.
type ProviderInfo struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         ProviderType    `json:"type"`
	Tier         ReliabilityTier `json:"tier"`
	Capabilities []string        `json:"capabilities,omitempty"`
}

// QualityInfo describes the video quality of a source.
type QualityInfo struct {
	Resolution  Resolution `json:"resolution"`
	HDR10       bool       `json:"hdr10,omitempty"`
	HDR10Plus   bool       `json:"hdr10Plus,omitempty"`
	DolbyVision bool       `json:"dolbyVision,omitempty"`
	BitrateKbps *int       `json:"bitrateKbps,omitempty"`
	FrameRate   *float64   `json:"frameRate,omitempty"`
}

// AudioInfo describes the audio track of a source.
type AudioInfo struct {
	Format      AudioFormat `json:"format"`
	Atmos       bool        `json:"atmos,omitempty"`
	DTSX        bool        `json:"dtsx,omitempty"`
	Channels    *int        `json:"channels,omitempty"`
	BitrateKbps *int        `json:"bitrateKbps,omitempty"`
}

// ReleaseInfo describes the release a source carries.
type ReleaseInfo struct {
	Type    ReleaseType `json:"type"`
	Group   string      `json:"group,omitempty"`
	Edition string      `json:"edition,omitempty"`
	Year    int         `json:"year,omitempty"`
}

// FileInfo describes the payload file of a source.
type FileInfo struct {
	Name      string     `json:"name"`
	SizeBytes *int64     `json:"sizeBytes,omitempty"`
	Extension string     `json:"extension,omitempty"`
	Hash      string     `json:"hash,omitempty"`
	AddedDate *time.Time `json:"addedDate,omitempty"`
}

// HealthInfo carries raw swarm/link health observations. All fields are
// optional; absence means the supplying layer had no data.
type HealthInfo struct {
	Seeders       *int       `json:"seeders,omitempty"`
	Leechers      *int       `json:"leechers,omitempty"`
	DownloadSpeed *int64     `json:"downloadSpeedBps,omitempty"`
	UploadSpeed   *int64     `json:"uploadSpeedBps,omitempty"`
	Availability  *float64   `json:"availability,omitempty"` // 0..1
	LastChecked   *time.Time `json:"lastChecked,omitempty"`
}

// FeatureInfo describes playback-relevant extras.
type FeatureInfo struct {
	SubtitleLanguages []string `json:"subtitleLanguages,omitempty"`
	ThreeD            bool     `json:"3d,omitempty"`
	Chapters          bool     `json:"chapters,omitempty"`
	MultiAudio        bool     `json:"multiAudio,omitempty"`
	DirectPlay        bool     `json:"directPlay,omitempty"`
	SupportedDevices  []string `json:"supportedDevices,omitempty"`
}

// AvailabilityInfo describes where and whether the source is obtainable.
type AvailabilityInfo struct {
	Available      bool       `json:"available"`
	Region         string     `json:"region,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	DebridService  string     `json:"debridService,omitempty"`
	CachedOnDebrid bool       `json:"cachedOnDebrid,omitempty"`
}

// Metadata is the normalized, read-only description of one candidate source.
// Enum fields default to their unknown/lowest value rather than being absent.
type Metadata struct {
	ID           string            `json:"id"`
	Title        string            `json:"title,omitempty"`
	Provider     ProviderInfo      `json:"provider"`
	Quality      QualityInfo       `json:"quality"`
	Codec        VideoCodec        `json:"codec"`
	Audio        AudioInfo         `json:"audio"`
	Release      ReleaseInfo       `json:"release"`
	File         FileInfo          `json:"file"`
	Health       HealthInfo        `json:"health"`
	Features     FeatureInfo       `json:"features"`
	Availability AvailabilityInfo  `json:"availability"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Seeders returns the seeder count, or zero when unknown.
func (m *Metadata) Seeders() int {
	if m.Health.Seeders == nil {
		return 0
	}
	return *m.Health.Seeders
}

// SizeBytes returns the file size, or zero when unknown.
func (m *Metadata) SizeBytes() int64 {
	if m.File.SizeBytes == nil {
		return 0
	}
	return *m.File.SizeBytes
}
