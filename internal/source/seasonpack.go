package source

import (
	"regexp"
	"strconv"
)

// SeasonPackInfo is the result of season-pack detection on a filename.
type SeasonPackInfo struct {
	IsSeasonPack     bool    `json:"isSeasonPack"`
	IsCompleteSeries bool    `json:"isCompleteSeries,omitempty"`
	Season           int     `json:"season,omitempty"`    // 0 for complete series
	EndSeason        int     `json:"endSeason,omitempty"` // for multi-season packs (S01-S04)
	Episode          int     `json:"episode,omitempty"`   // set for single-episode releases
	EndEpisode       int     `json:"endEpisode,omitempty"`
	Confidence       float64 `json:"confidence"`
}

// Season-pack size heuristic: a single episode rarely exceeds this, a pack
// usually does. Only used to adjust confidence, never to flip the decision.
const packSizeHintBytes = 10 << 30 // 10 GiB

var (
	// Show.S01E02 or Show.S01E02E03
	episodePattern = regexp.MustCompile(`(?i)[\.\s_-][Ss](\d{1,2})[Ee](\d{1,2})(?:[Ee](\d{1,2}))?`)

	// Show.1x02
	episodePatternX = regexp.MustCompile(`(?i)[\.\s_-](\d{1,2})[xX](\d{1,2})[\.\s_-]`)

	// Show.S01-04 or Show.S01-S04 (multi-season boxsets)
	seasonRangePattern = regexp.MustCompile(`(?i)[\.\s_-][Ss](\d{1,2})-[Ss]?(\d{1,2})(?:[\.\s_-]|$)`)

	// Show.S01 without an episode number
	seasonPackPattern = regexp.MustCompile(`(?i)[\.\s_-][Ss](\d{1,2})(?:[\.\s_-]|$)`)

	// Show.Season.1 or Show Season 01
	seasonSpelledPattern = regexp.MustCompile(`(?i)[\.\s_-][Ss]eason[\.\s_-]+(\d{1,2})(?:[\.\s_-]|$)`)

	// Show.COMPLETE or Show.Complete.Series without a season number
	completeSeriesPattern = regexp.MustCompile(`(?i)[\.\s_-]complete([\.\s_-]+series)?(?:[\.\s_-]|$)`)
)

// DetectSeasonPack determines whether a filename refers to a season pack.
// It is a pure parse of the filename; the file size only nudges confidence.
func DetectSeasonPack(filename string, sizeBytes int64) SeasonPackInfo {
	info := SeasonPackInfo{}

	if m := episodePattern.FindStringSubmatch(filename); m != nil {
		info.Season, _ = strconv.Atoi(m[1])
		info.Episode, _ = strconv.Atoi(m[2])
		if m[3] != "" {
			info.EndEpisode, _ = strconv.Atoi(m[3])
		}
		info.Confidence = 0.95
		return info
	}

	if m := episodePatternX.FindStringSubmatch(filename); m != nil {
		info.Season, _ = strconv.Atoi(m[1])
		info.Episode, _ = strconv.Atoi(m[2])
		info.Confidence = 0.9
		return info
	}

	if m := seasonRangePattern.FindStringSubmatch(filename); m != nil {
		info.IsSeasonPack = true
		info.IsCompleteSeries = true
		info.Season, _ = strconv.Atoi(m[1])
		info.EndSeason, _ = strconv.Atoi(m[2])
		info.Confidence = adjustForSize(0.9, sizeBytes)
		return info
	}

	if m := seasonPackPattern.FindStringSubmatch(filename); m != nil {
		info.IsSeasonPack = true
		info.Season, _ = strconv.Atoi(m[1])
		info.Confidence = adjustForSize(0.85, sizeBytes)
		return info
	}

	if m := seasonSpelledPattern.FindStringSubmatch(filename); m != nil {
		info.IsSeasonPack = true
		info.Season, _ = strconv.Atoi(m[1])
		info.Confidence = adjustForSize(0.8, sizeBytes)
		return info
	}

	if completeSeriesPattern.MatchString(filename) {
		info.IsSeasonPack = true
		info.IsCompleteSeries = true
		info.Confidence = adjustForSize(0.7, sizeBytes)
		return info
	}

	return info
}

// adjustForSize bumps confidence when the file size is consistent with a
// multi-episode payload, and lowers it slightly for suspiciously small files.
func adjustForSize(base float64, sizeBytes int64) float64 {
	switch {
	case sizeBytes <= 0:
		return base
	case sizeBytes >= packSizeHintBytes:
		if base+0.1 > 1.0 {
			return 1.0
		}
		return base + 0.1
	case sizeBytes < 2<<30:
		return base - 0.2
	default:
		return base
	}
}
