// Package store owns the embedded SQLite nutrition database.
//
// Table and column names plus the nutrient numeric codes are the
// compatibility surface consumed by downstream services and must remain
// stable across pipeline versions.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/nutridb/internal/nutrient"
)

// Food is one food record as persisted in usda_foods.
type Food struct {
	FDCID       int64
	Description string
	CommonName  string
	Category    string
	SearchTerms string
}

// Store wraps the SQLite database file.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path, applies the
// bulk-load pragmas and initializes the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The pipeline is single-threaded and the pragmas below are
	// per-connection; one connection keeps both honest.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: logger}

	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas tunes the connection for bulk loading: WAL journal with
// deferred flushing, a 4KB page size and a 10MB cache. Durability is
// traded for write throughput during the load; the final checkpoint of the
// run is the recovery mechanism, not the journal.
func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA page_size=4096",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=OFF",
		"PRAGMA cache_size=-10000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// SeedNutrients populates the nutrient reference table exactly once.
// A table already holding the full catalog is left untouched.
func (s *Store) SeedNutrients(defs []nutrient.Definition) error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM nutrients").Scan(&count); err != nil {
		return fmt.Errorf("count nutrients: %w", err)
	}
	if count >= len(defs) {
		s.logger.Info("nutrient catalog already seeded", zap.Int("count", count))
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `
        INSERT OR REPLACE INTO nutrients
        (nutrient_id, name, unit, category, rda_adult_male, rda_adult_female)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	for _, d := range defs {
		if _, err := tx.Exec(stmt, d.Code, d.Name, d.Unit, string(d.Category), d.RDAMale, d.RDAFemale); err != nil {
			return fmt.Errorf("seed nutrient %d: %w", d.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit nutrient seed: %w", err)
	}

	s.logger.Info("seeded nutrient catalog", zap.Int("count", len(defs)))
	return nil
}

// UpsertFood writes one food and its nutrient rows as a single
// transaction: either the food with its full nutrient set commits, or
// nothing does. Re-upserting the same id replaces the previous rows.
func (s *Store) UpsertFood(food Food, values []nutrient.Value) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin food transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT OR REPLACE INTO usda_foods
        (fdc_id, description, common_name, category, search_terms)
        VALUES (?, ?, ?, ?, ?)
    `, food.FDCID, food.Description, nullIfEmpty(food.CommonName), nullIfEmpty(food.Category), food.SearchTerms)
	if err != nil {
		return fmt.Errorf("upsert food %d: %w", food.FDCID, err)
	}

	for _, v := range values {
		_, err = tx.Exec(`
            INSERT OR REPLACE INTO food_nutrients
            (fdc_id, nutrient_id, amount)
            VALUES (?, ?, ?)
        `, v.FDCID, v.NutrientID, v.Amount)
		if err != nil {
			return fmt.Errorf("upsert nutrient %d for food %d: %w", v.NutrientID, v.FDCID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit food %d: %w", food.FDCID, err)
	}
	return nil
}

// Finalize builds the derived search index and optimizes the file. Run
// once after the bulk load; per-row index maintenance during ingestion
// would pay the indexing cost thousands of times over.
func (s *Store) Finalize() error {
	start := time.Now()

	if err := s.buildSearchIndex(); err != nil {
		return err
	}
	if _, err := s.db.Exec("ANALYZE"); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}

	s.logger.Info("finalized database",
		zap.String("path", s.path),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// buildSearchIndex rebuilds food_search from the final food table.
func (s *Store) buildSearchIndex() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}
	defer tx.Rollback()

	// Full rebuild: the index is derived data, never maintained
	// incrementally during ingestion.
	if _, err := tx.Exec(`INSERT INTO food_search(food_search) VALUES ('delete-all')`); err != nil {
		return fmt.Errorf("clear search index: %w", err)
	}
	if _, err := tx.Exec(`
        INSERT INTO food_search (rowid, description, common_name, search_terms)
        SELECT fdc_id, description, common_name, search_terms
        FROM usda_foods
    `); err != nil {
		return fmt.Errorf("build search index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit search index: %w", err)
	}
	return nil
}

// Search runs a full-text query against food_search and returns matching
// food ids along with the query latency.
func (s *Store) Search(query string, limit int) ([]int64, time.Duration, error) {
	start := time.Now()

	rows, err := s.db.Query(`
        SELECT rowid FROM food_search
        WHERE food_search MATCH ?
        LIMIT ?
    `, query, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search results: %w", err)
	}

	return ids, time.Since(start), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
