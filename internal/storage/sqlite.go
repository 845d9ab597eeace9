//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"seismos/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Open hands a task its own connection on the same database file.
func (s *SQLiteStore) Open(ctx context.Context) (Store, error) {
	handle := NewSQLiteStore(s.path)
	if err := handle.Init(ctx); err != nil {
		return nil, err
	}
	return handle, nil
}

func (s *SQLiteStore) SaveSiteCollection(ctx context.Context, sc model.SiteCollection) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSiteCollection(sc)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO site_collection (id, payload)
		VALUES (0, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload
	`, payload)
	return err
}

func (s *SQLiteStore) GetSiteCollection(ctx context.Context) (model.SiteCollection, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.SiteCollection{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM site_collection WHERE id = 0`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SiteCollection{}, false, nil
		}
		return model.SiteCollection{}, false, err
	}

	sc, err := DecodeSiteCollection(payload)
	if err != nil {
		return model.SiteCollection{}, false, fmt.Errorf("decode site collection: %w", err)
	}
	return sc, true, nil
}

func (s *SQLiteStore) SaveRuptureGroup(ctx context.Context, grp model.RuptureGroup) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRuptureGroup(grp)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO rupture_groups (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, grp.ID, grp.SchemaVersion, grp.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetRuptureGroup(ctx context.Context, id int) (model.RuptureGroup, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RuptureGroup{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM rupture_groups WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RuptureGroup{}, false, nil
		}
		return model.RuptureGroup{}, false, err
	}

	grp, err := DecodeRuptureGroup(payload)
	if err != nil {
		return model.RuptureGroup{}, false, fmt.Errorf("decode rupture group %d: %w", id, err)
	}
	return grp, true, nil
}

func (s *SQLiteStore) ListRuptureGroups(ctx context.Context) ([]model.RuptureGroup, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM rupture_groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RuptureGroup
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		grp, err := DecodeRuptureGroup(payload)
		if err != nil {
			return nil, fmt.Errorf("decode rupture group: %w", err)
		}
		out = append(out, grp)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetRuptures(ctx context.Context, groupID, start, stop int) ([]model.Rupture, error) {
	grp, ok, err := s.GetRuptureGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("rupture group %d not found", groupID)
	}
	return sliceRuptures(grp.Ruptures, start, stop), nil
}

func (s *SQLiteStore) SaveHazardCurves(ctx context.Context, curves model.SiteCurves) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeSiteCurves(curves)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO hazard_curves (rlz, site, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(rlz, site) DO UPDATE SET
			payload = excluded.payload
	`, curves.Rlz, curves.Site, payload)
	return err
}

func (s *SQLiteStore) GetHazardCurves(ctx context.Context, rlz, site int) (model.SiteCurves, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.SiteCurves{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM hazard_curves WHERE rlz = ? AND site = ?`, rlz, site).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SiteCurves{}, false, nil
		}
		return model.SiteCurves{}, false, err
	}

	curves, err := DecodeSiteCurves(payload)
	if err != nil {
		return model.SiteCurves{}, false, fmt.Errorf("decode hazard curves rlz=%d site=%d: %w", rlz, site, err)
	}
	return curves, true, nil
}

func (s *SQLiteStore) SaveBestRlzs(ctx context.Context, rlzs []int) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRlzs(rlzs)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO best_rlzs (id, payload)
		VALUES (0, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload
	`, payload)
	return err
}

func (s *SQLiteStore) GetBestRlzs(ctx context.Context) ([]int, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM best_rlzs WHERE id = 0`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	rlzs, err := DecodeRlzs(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode best rlzs: %w", err)
	}
	return rlzs, true, nil
}

func (s *SQLiteStore) SaveBinEdges(ctx context.Context, rec model.BinEdgesRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeBinEdges(rec)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO bin_edges (id, payload)
		VALUES (0, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload
	`, payload)
	return err
}

func (s *SQLiteStore) GetBinEdges(ctx context.Context) (model.BinEdgesRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.BinEdgesRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM bin_edges WHERE id = 0`).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BinEdgesRecord{}, false, nil
		}
		return model.BinEdgesRecord{}, false, err
	}

	rec, err := DecodeBinEdges(payload)
	if err != nil {
		return model.BinEdgesRecord{}, false, fmt.Errorf("decode bin edges: %w", err)
	}
	return rec, true, nil
}

func (s *SQLiteStore) SaveDisaggOutput(ctx context.Context, out model.DisaggOutput) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeDisaggOutput(out)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO disagg_outputs (path, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, out.Path(), out.SchemaVersion, out.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetDisaggOutput(ctx context.Context, path string) (model.DisaggOutput, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.DisaggOutput{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM disagg_outputs WHERE path = ?`, path).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DisaggOutput{}, false, nil
		}
		return model.DisaggOutput{}, false, err
	}

	out, err := DecodeDisaggOutput(payload)
	if err != nil {
		return model.DisaggOutput{}, false, fmt.Errorf("decode disagg output %s: %w", path, err)
	}
	return out, true, nil
}

func (s *SQLiteStore) ListDisaggOutputs(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT path FROM disagg_outputs ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS site_collection (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS rupture_groups (
			id INTEGER PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS hazard_curves (
			rlz INTEGER NOT NULL,
			site INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (rlz, site)
		);
		CREATE TABLE IF NOT EXISTS best_rlzs (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS bin_edges (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS disagg_outputs (
			path TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
