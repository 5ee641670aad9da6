package store

import (
	"database/sql"
	"fmt"
)

// Stats summarizes database contents for reporting and validation.
type Stats struct {
	Foods               int
	NutrientDefs        int
	NutrientRows        int
	AvgNutrientsPerFood float64
	FoodsByCategory     []CategoryCount
}

// CategoryCount is a per-category food tally.
type CategoryCount struct {
	Category string
	Count    int
}

// FoodCount returns the number of persisted food records.
func (s *Store) FoodCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM usda_foods").Scan(&n); err != nil {
		return 0, fmt.Errorf("count foods: %w", err)
	}
	return n, nil
}

// NutrientDefCount returns the number of seeded nutrient definitions.
func (s *Store) NutrientDefCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM nutrients").Scan(&n); err != nil {
		return 0, fmt.Errorf("count nutrient definitions: %w", err)
	}
	return n, nil
}

// AvgNutrientsPerFood returns the mean nutrient-row count across foods
// that have at least one row. Returns 0 for an empty database.
func (s *Store) AvgNutrientsPerFood() (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRow(`
        SELECT AVG(cnt) FROM (
            SELECT COUNT(*) AS cnt
            FROM food_nutrients
            GROUP BY fdc_id
        )
    `).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average nutrients per food: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// NutrientAmounts returns the nutrient ids and amounts stored for a food.
func (s *Store) NutrientAmounts(fdcID int64) (map[int64]float64, error) {
	rows, err := s.db.Query(`
        SELECT nutrient_id, amount
        FROM food_nutrients
        WHERE fdc_id = ?
    `, fdcID)
	if err != nil {
		return nil, fmt.Errorf("query nutrients for food %d: %w", fdcID, err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var amount float64
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, fmt.Errorf("scan nutrient row: %w", err)
		}
		out[id] = amount
	}
	return out, rows.Err()
}

// GetFood loads one food record by id.
func (s *Store) GetFood(fdcID int64) (*Food, error) {
	var f Food
	var common, category, terms sql.NullString
	err := s.db.QueryRow(`
        SELECT fdc_id, description, common_name, category, search_terms
        FROM usda_foods
        WHERE fdc_id = ?
    `, fdcID).Scan(&f.FDCID, &f.Description, &common, &category, &terms)
	if err != nil {
		return nil, fmt.Errorf("get food %d: %w", fdcID, err)
	}
	f.CommonName = common.String
	f.Category = category.String
	f.SearchTerms = terms.String
	return &f, nil
}

// CollectStats gathers the summary used by the stats command and the
// validator report.
func (s *Store) CollectStats() (*Stats, error) {
	stats := &Stats{}

	var err error
	if stats.Foods, err = s.FoodCount(); err != nil {
		return nil, err
	}
	if stats.NutrientDefs, err = s.NutrientDefCount(); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM food_nutrients").Scan(&stats.NutrientRows); err != nil {
		return nil, fmt.Errorf("count nutrient rows: %w", err)
	}
	if stats.AvgNutrientsPerFood, err = s.AvgNutrientsPerFood(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
        SELECT COALESCE(category, ''), COUNT(*)
        FROM usda_foods
        GROUP BY category
        ORDER BY COUNT(*) DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("count foods by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		stats.FoodsByCategory = append(stats.FoodsByCategory, cc)
	}
	return stats, rows.Err()
}
