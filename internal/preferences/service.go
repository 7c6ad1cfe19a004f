package preferences

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a saved filter does not exist.
var ErrNotFound = errors.New("saved filter not found")

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// SaveFilter persists a named filter. An existing filter with the same ID
// is updated; a blank ID gets a generated one. The filter is validated
// before anything is written.
func (s *Service) SaveFilter(ctx context.Context, sf SavedFilter) (SavedFilter, error) {
	if sf.Name == "" {
		return SavedFilter{}, errors.New("filter name is required")
	}
	if err := sf.Filter.Validate(); err != nil {
		return SavedFilter{}, fmt.Errorf("invalid filter: %w", err)
	}

	filterJSON, err := json.Marshal(sf.Filter)
	if err != nil {
		return SavedFilter{}, fmt.Errorf("encode filter: %w", err)
	}

	now := time.Now().UTC()
	if sf.ID == "" {
		sf.ID = uuid.NewString()
		sf.CreatedAt = now
	}
	sf.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saved_filters (id, name, filter_json, is_default, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			filter_json = excluded.filter_json,
			updated_at = excluded.updated_at`,
		sf.ID, sf.Name, string(filterJSON), boolToInt(sf.IsDefault), now, now)
	if err != nil {
		return SavedFilter{}, fmt.Errorf("save filter: %w", err)
	}
	return sf, nil
}

// GetFilter returns one saved filter by ID.
func (s *Service) GetFilter(ctx context.Context, id string) (SavedFilter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, filter_json, is_default, created_at, updated_at
		FROM saved_filters WHERE id = ?`, id)
	return scanSavedFilter(row)
}

// ListFilters returns all saved filters ordered by name.
func (s *Service) ListFilters(ctx context.Context) ([]SavedFilter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, filter_json, is_default, created_at, updated_at
		FROM saved_filters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	defer rows.Close()

	var filters []SavedFilter
	for rows.Next() {
		sf, err := scanSavedFilter(rows)
		if err != nil {
			return nil, err
		}
		filters = append(filters, sf)
	}
	return filters, rows.Err()
}

// DeleteFilter removes a saved filter.
func (s *Service) DeleteFilter(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDefaultFilter marks one saved filter as the default, clearing any
// previous default in the same transaction.
func (s *Service) SetDefaultFilter(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE saved_filters SET is_default = 0 WHERE is_default = 1`); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE saved_filters SET is_default = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// DefaultFilter returns the default saved filter, or ErrNotFound when none
// is marked.
func (s *Service) DefaultFilter(ctx context.Context) (SavedFilter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, filter_json, is_default, created_at, updated_at
		FROM saved_filters WHERE is_default = 1 LIMIT 1`)
	return scanSavedFilter(row)
}

// SetLastUsedFilter records the saved filter most recently applied to a
// search. The filter must exist.
func (s *Service) SetLastUsedFilter(ctx context.Context, id string) error {
	if _, err := s.GetFilter(ctx, id); err != nil {
		return err
	}
	return s.SetPreference(ctx, KeyLastUsedFilter, id)
}

// LastUsedFilter returns the most recently used saved filter. ErrNotFound
// means none was recorded, or the recorded filter has since been deleted.
func (s *Service) LastUsedFilter(ctx context.Context) (SavedFilter, error) {
	id, ok, err := s.GetPreference(ctx, KeyLastUsedFilter)
	if err != nil {
		return SavedFilter{}, err
	}
	if !ok {
		return SavedFilter{}, ErrNotFound
	}
	return s.GetFilter(ctx, id)
}

// GetPreference returns a raw preference value; ok is false when unset.
func (s *Service) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM user_preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference: %w", err)
	}
	return value, true, nil
}

// SetPreference upserts a raw preference value.
func (s *Service) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

// Preferences returns every stored preference key/value.
func (s *Service) Preferences(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM user_preferences`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}

// AddFavorite pins a source.
func (s *Service) AddFavorite(ctx context.Context, sourceID, title string) error {
	if sourceID == "" {
		return errors.New("source id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorite_sources (source_id, title, added_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET title = excluded.title`,
		sourceID, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unpins a source.
func (s *Service) RemoveFavorite(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM favorite_sources WHERE source_id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ListFavorites returns pinned sources, most recent first.
func (s *Service) ListFavorites(ctx context.Context) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, title, added_at FROM favorite_sources ORDER BY added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.SourceID, &f.Title, &f.AddedAt); err != nil {
			return nil, err
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// Export produces a portable JSON snapshot of all preference state.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	filters, err := s.ListFilters(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := s.Preferences(ctx)
	if err != nil {
		return nil, err
	}
	favorites, err := s.ListFavorites(ctx)
	if err != nil {
		return nil, err
	}

	blob := ExportBlob{
		Version:      exportVersion,
		ExportedAt:   time.Now().UTC(),
		SavedFilters: filters,
		Preferences:  prefs,
		Favorites:    favorites,
	}
	return json.MarshalIndent(blob, "", "  ")
}

// Import replaces all preference state with the snapshot. The whole import
// runs in one transaction; any failure leaves existing state unchanged.
func (s *Service) Import(ctx context.Context, data []byte) error {
	var blob ExportBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("decode import: %w", err)
	}
	if blob.Version != exportVersion {
		return fmt.Errorf("unsupported export version %d", blob.Version)
	}
	for i := range blob.SavedFilters {
		if blob.SavedFilters[i].Name == "" {
			return errors.New("import contains a filter without a name")
		}
		if err := blob.SavedFilters[i].Filter.Validate(); err != nil {
			return fmt.Errorf("import filter %q: %w", blob.SavedFilters[i].Name, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"saved_filters", "user_preferences", "favorite_sources"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	now := time.Now().UTC()
	for _, sf := range blob.SavedFilters {
		filterJSON, err := json.Marshal(sf.Filter)
		if err != nil {
			return fmt.Errorf("encode filter %q: %w", sf.Name, err)
		}
		id := sf.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO saved_filters (id, name, filter_json, is_default, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, sf.Name, string(filterJSON), boolToInt(sf.IsDefault), now, now); err != nil {
			return fmt.Errorf("import filter %q: %w", sf.Name, err)
		}
	}
	for k, v := range blob.Preferences {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_preferences (key, value, updated_at) VALUES (?, ?, ?)`,
			k, v, now); err != nil {
			return fmt.Errorf("import preference %q: %w", k, err)
		}
	}
	for _, f := range blob.Favorites {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO favorite_sources (source_id, title, added_at) VALUES (?, ?, ?)`,
			f.SourceID, f.Title, now); err != nil {
			return fmt.Errorf("import favorite %q: %w", f.SourceID, err)
		}
	}

	return tx.Commit()
}

// Reset wipes all preference state.
func (s *Service) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"saved_filters", "user_preferences", "favorite_sources"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedFilter(row rowScanner) (SavedFilter, error) {
	var sf SavedFilter
	var filterJSON string
	var isDefault int
	err := row.Scan(&sf.ID, &sf.Name, &filterJSON, &isDefault, &sf.CreatedAt, &sf.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedFilter{}, ErrNotFound
	}
	if err != nil {
		return SavedFilter{}, fmt.Errorf("scan filter: %w", err)
	}
	if err := json.Unmarshal([]byte(filterJSON), &sf.Filter); err != nil {
		return SavedFilter{}, fmt.Errorf("decode filter %q: %w", sf.Name, err)
	}
	sf.IsDefault = isDefault != 0
	return sf, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
