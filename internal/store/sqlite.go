package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/guarzo/poe2gradegap/internal/model"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS excluded_modifier (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  mod_name_pattern TEXT NOT NULL DEFAULT '',
  mod_tier TEXT NOT NULL DEFAULT '',
  mod_type TEXT NOT NULL DEFAULT '',
  reason TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS analysis_result (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  base_type TEXT NOT NULL,
  created_at TEXT NOT NULL,
  normal_avg REAL NOT NULL,
  crafting_avg REAL NOT NULL,
  magic_avg REAL NOT NULL,
  gap REAL NOT NULL,
  magic_floor REAL NOT NULL,
  search_id TEXT NOT NULL DEFAULT '',
  crafting_search_id TEXT NOT NULL DEFAULT '',
  magic_search_id TEXT NOT NULL DEFAULT '',
  normal_modifiers TEXT NOT NULL DEFAULT '[]',
  crafting_modifiers TEXT NOT NULL DEFAULT '[]',
  magic_modifiers TEXT NOT NULL DEFAULT '[]'
)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_base_created ON analysis_result (base_type, created_at)`,
	`CREATE TABLE IF NOT EXISTS distribution_result (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  base_type TEXT NOT NULL,
  created_at TEXT NOT NULL,
  min_price REAL NOT NULL,
  max_price REAL NOT NULL,
  buckets TEXT NOT NULL DEFAULT '[]'
)`,
	`CREATE INDEX IF NOT EXISTS idx_distribution_base_created ON distribution_result (base_type, created_at)`,
}

const gapColumns = `id, base_type, created_at, normal_avg, crafting_avg, magic_avg, gap, magic_floor,
  search_id, crafting_search_id, magic_search_id, normal_modifiers, crafting_modifiers, magic_modifiers`

// SQLiteStore implements Store on database/sql with the sqlite3 driver.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	s, err := NewSQLite(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an open handle and applies the schema.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	s := &SQLiteStore{db: db, now: time.Now}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}
	return s, nil
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStore) AddExclusion(ctx context.Context, r model.ExclusionRule) (model.ExclusionRule, error) {
	r, err := normalizeExclusion(r)
	if err != nil {
		return model.ExclusionRule{}, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	r.Active = true

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO excluded_modifier (mod_name_pattern, mod_tier, mod_type, reason, is_active, created_at)
VALUES (?, ?, ?, ?, 1, ?)`,
		r.NamePattern, r.Tier, r.Group, r.Reason, formatTime(r.CreatedAt))
	if err != nil {
		return model.ExclusionRule{}, fmt.Errorf("inserting exclusion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ExclusionRule{}, fmt.Errorf("reading exclusion id: %w", err)
	}
	r.ID = strconv.FormatInt(id, 10)
	return r, nil
}

func (s *SQLiteStore) ActiveExclusions(ctx context.Context) ([]model.ExclusionRule, error) {
	return s.ListExclusions(ctx, false)
}

func (s *SQLiteStore) ListExclusions(ctx context.Context, includeInactive bool) ([]model.ExclusionRule, error) {
	q := `SELECT id, mod_name_pattern, mod_tier, mod_type, reason, is_active, created_at FROM excluded_modifier`
	if !includeInactive {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying exclusions: %w", err)
	}
	defer rows.Close()

	var out []model.ExclusionRule
	for rows.Next() {
		var (
			r       model.ExclusionRule
			id      int64
			active  int
			created string
		)
		if err := rows.Scan(&id, &r.NamePattern, &r.Tier, &r.Group, &r.Reason, &active, &created); err != nil {
			return nil, fmt.Errorf("scanning exclusion: %w", err)
		}
		r.ID = strconv.FormatInt(id, 10)
		r.Active = active != 0
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateExclusion(ctx context.Context, r model.ExclusionRule) error {
	id, err := parseID(r.ID)
	if err != nil {
		return err
	}
	r, err = normalizeExclusion(r)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE excluded_modifier SET mod_name_pattern = ?, mod_tier = ?, mod_type = ?, reason = ?, is_active = ? WHERE id = ?`,
		r.NamePattern, r.Tier, r.Group, r.Reason, boolInt(r.Active), id)
	if err != nil {
		return fmt.Errorf("updating exclusion: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeactivateExclusion(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE excluded_modifier SET is_active = 0 WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("deactivating exclusion: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) SaveGap(ctx context.Context, r model.GapReport) (string, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	normal, err := marshalJSON(r.NormalModifiers)
	if err != nil {
		return "", err
	}
	crafting, err := marshalJSON(r.CraftingModifiers)
	if err != nil {
		return "", err
	}
	best, err := marshalJSON(r.BestTierModifiers)
	if err != nil {
		return "", err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_result (base_type, created_at, normal_avg, crafting_avg, magic_avg, gap, magic_floor,
  search_id, crafting_search_id, magic_search_id, normal_modifiers, crafting_modifiers, magic_modifiers)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BaseType, formatTime(r.CreatedAt), r.NormalAvg, r.CraftingAvg, r.BestTierAvg, r.Gap, r.BestTierFloor,
		r.NormalQueryID, r.CraftingQueryID, r.BestTierQueryID, normal, crafting, best)
	if err != nil {
		return "", fmt.Errorf("inserting gap report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("reading gap report id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *SQLiteStore) ListGaps(ctx context.Context, baseType string, limit int) ([]model.GapReport, error) {
	q := `SELECT ` + gapColumns + ` FROM analysis_result`
	var args []any
	if baseType != "" {
		q += ` WHERE base_type = ?`
		args = append(args, baseType)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, listLimit(limit))
	return s.queryGaps(ctx, q, args...)
}

// LatestGaps returns the newest report of each base type, newest first.
func (s *SQLiteStore) LatestGaps(ctx context.Context, limit int) ([]model.GapReport, error) {
	q := `SELECT ` + gapColumns + ` FROM analysis_result a
WHERE a.id = (
  SELECT b.id FROM analysis_result b WHERE b.base_type = a.base_type
  ORDER BY b.created_at DESC, b.id DESC LIMIT 1
)
ORDER BY a.created_at DESC, a.id DESC LIMIT ?`
	return s.queryGaps(ctx, q, listLimit(limit))
}

func (s *SQLiteStore) queryGaps(ctx context.Context, q string, args ...any) ([]model.GapReport, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying gap reports: %w", err)
	}
	defer rows.Close()

	var out []model.GapReport
	for rows.Next() {
		var (
			r                      model.GapReport
			id                     int64
			created                string
			normal, crafting, best string
		)
		if err := rows.Scan(&id, &r.BaseType, &created, &r.NormalAvg, &r.CraftingAvg, &r.BestTierAvg, &r.Gap,
			&r.BestTierFloor, &r.NormalQueryID, &r.CraftingQueryID, &r.BestTierQueryID,
			&normal, &crafting, &best); err != nil {
			return nil, fmt.Errorf("scanning gap report: %w", err)
		}
		r.ID = strconv.FormatInt(id, 10)
		r.CreatedAt = parseTime(created)
		if err := unmarshalJSON(normal, &r.NormalModifiers); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(crafting, &r.CraftingModifiers); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(best, &r.BestTierModifiers); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveDistribution(ctx context.Context, r model.DistributionReport) (string, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	buckets, err := marshalJSON(r.Buckets)
	if err != nil {
		return "", err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO distribution_result (base_type, created_at, min_price, max_price, buckets) VALUES (?, ?, ?, ?, ?)`,
		r.BaseType, formatTime(r.CreatedAt), r.MinPrice, r.MaxPrice, buckets)
	if err != nil {
		return "", fmt.Errorf("inserting distribution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("reading distribution id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *SQLiteStore) ListDistributions(ctx context.Context, baseType string, limit int) ([]model.DistributionReport, error) {
	q := `SELECT id, base_type, created_at, min_price, max_price, buckets FROM distribution_result`
	var args []any
	if baseType != "" {
		q += ` WHERE base_type = ?`
		args = append(args, baseType)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, listLimit(limit))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying distributions: %w", err)
	}
	defer rows.Close()

	var out []model.DistributionReport
	for rows.Next() {
		var (
			r       model.DistributionReport
			id      int64
			created string
			buckets string
		)
		if err := rows.Scan(&id, &r.BaseType, &created, &r.MinPrice, &r.MaxPrice, &buckets); err != nil {
			return nil, fmt.Errorf("scanning distribution: %w", err)
		}
		r.ID = strconv.FormatInt(id, 10)
		r.CreatedAt = parseTime(created)
		if err := unmarshalJSON(buckets, &r.Buckets); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("exclusion %q: %w", id, ErrNotFound)
	}
	return n, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding column: %w", err)
	}
	return string(b), nil
}

func unmarshalJSON(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decoding column: %w", err)
	}
	return nil
}
