package store

import "fmt"

// initSchema creates the tables, indices and the FTS5 virtual table.
// Idempotent: reopening an existing database is a no-op.
func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS usda_foods (
        fdc_id INTEGER PRIMARY KEY,
        description TEXT NOT NULL,
        common_name TEXT,
        category TEXT,
        search_terms TEXT,
        brand_name TEXT,
        ingredients TEXT
    );

    CREATE TABLE IF NOT EXISTS nutrients (
        nutrient_id INTEGER PRIMARY KEY,
        name TEXT NOT NULL,
        unit TEXT NOT NULL,
        category TEXT,
        rda_adult_male REAL,
        rda_adult_female REAL
    );

    CREATE TABLE IF NOT EXISTS food_nutrients (
        fdc_id INTEGER,
        nutrient_id INTEGER,
        amount REAL,
        PRIMARY KEY (fdc_id, nutrient_id),
        FOREIGN KEY (fdc_id) REFERENCES usda_foods(fdc_id),
        FOREIGN KEY (nutrient_id) REFERENCES nutrients(nutrient_id)
    );

    CREATE VIRTUAL TABLE IF NOT EXISTS food_search
    USING fts5(
        description,
        common_name,
        search_terms,
        content='usda_foods',
        content_rowid='fdc_id',
        tokenize='porter'
    );

    CREATE INDEX IF NOT EXISTS idx_food_category ON usda_foods(category);
    CREATE INDEX IF NOT EXISTS idx_nutrient_category ON nutrients(category);
    CREATE INDEX IF NOT EXISTS idx_food_nutrients_fdc ON food_nutrients(fdc_id);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
