// Package preferences persists user filter preferences: saved named
// filters, the default and last-used selections, favorites, and
// export/import of the whole set.
package preferences

import (
	"time"

	"github.com/riptide-app/riptide/internal/filter"
)

// Preference keys stored in the user_preferences table.
const (
	KeyLastUsedFilter      = "filter_last_used"
	KeyPreferSeasonPacks   = "scoring_prefer_season_packs"
	KeyPreferredResolution = "scoring_preferred_resolution"
	KeyConnectionMbps      = "scoring_connection_mbps"
)

// SavedFilter is a named, persisted filter configuration.
type SavedFilter struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Filter    filter.Advanced `json:"filter"`
	IsDefault bool            `json:"isDefault"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Favorite marks a source the user pinned for later.
type Favorite struct {
	SourceID string    `json:"sourceId"`
	Title    string    `json:"title"`
	AddedAt  time.Time `json:"addedAt"`
}

// ExportBlob is the portable snapshot produced by Export and consumed by
// Import. Version guards against future format changes.
type ExportBlob struct {
	Version      int               `json:"version"`
	ExportedAt   time.Time         `json:"exportedAt"`
	SavedFilters []SavedFilter     `json:"savedFilters"`
	Preferences  map[string]string `json:"preferences"`
	Favorites    []Favorite        `json:"favorites"`
}

// exportVersion is the current export format version.
const exportVersion = 1
