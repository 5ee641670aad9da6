package validate

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/nutridb/internal/nutrient"
	"github.com/fyrsmithlabs/nutridb/internal/store"
)

func populatedStore(t *testing.T, foods int, nutrientsPerFood int) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "nutrients.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.SeedNutrients(nutrient.Catalog()))

	catalog := nutrient.Catalog()
	for i := 1; i <= foods; i++ {
		values := make([]nutrient.Value, 0, nutrientsPerFood)
		for j := 0; j < nutrientsPerFood && j < len(catalog); j++ {
			values = append(values, nutrient.Value{
				FDCID:      int64(i),
				NutrientID: catalog[j].Code,
				Amount:     float64(j + 1),
			})
		}
		food := store.Food{
			FDCID:       int64(i),
			Description: fmt.Sprintf("Chicken product %d", i),
			Category:    "Poultry Products",
		}
		require.NoError(t, s.UpsertFood(food, values))
	}

	require.NoError(t, s.Finalize())
	return s
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 7000, cfg.MinFoods)
	assert.Equal(t, 20.0, cfg.MinAvgNutrients)
	assert.Equal(t, 50*time.Millisecond, cfg.MaxSearchLatency)
	assert.Equal(t, "chicken", cfg.SampleQuery)
}

func TestNewValidator_RequiresStore(t *testing.T) {
	_, err := NewValidator(nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store is required")
}

func TestRun_AllChecksPass(t *testing.T) {
	s := populatedStore(t, 25, 30)

	v, err := NewValidator(&Config{
		MinFoods:         20,
		MinAvgNutrients:  25,
		MaxSearchLatency: time.Second,
	}, s, nil)
	require.NoError(t, err)

	report, err := v.Run()
	require.NoError(t, err)
	assert.True(t, report.Passed)
	require.Len(t, report.Checks, 3)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, "check %s: %s", c.Name, c.Detail)
	}
}

func TestRun_FailsBelowFoodBound(t *testing.T) {
	s := populatedStore(t, 3, 30)

	v, err := NewValidator(&Config{
		MinFoods:         100,
		MinAvgNutrients:  25,
		MaxSearchLatency: time.Second,
	}, s, nil)
	require.NoError(t, err)

	report, err := v.Run()
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.False(t, report.Checks[0].Passed)
	assert.True(t, report.Checks[1].Passed)
}

func TestRun_FailsOnThinNutrientCoverage(t *testing.T) {
	s := populatedStore(t, 10, 4)

	v, err := NewValidator(&Config{
		MinFoods:         5,
		MinAvgNutrients:  20,
		MaxSearchLatency: time.Second,
	}, s, nil)
	require.NoError(t, err)

	report, err := v.Run()
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.False(t, report.Checks[1].Passed)
}
