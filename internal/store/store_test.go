package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/nutridb/internal/nutrient"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "nutrients.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.SeedNutrients(nutrient.Catalog()))
	return s
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)

	n, err := s.NutrientDefCount()
	require.NoError(t, err)
	assert.Equal(t, len(nutrient.Catalog()), n)

	foods, err := s.FoodCount()
	require.NoError(t, err)
	assert.Zero(t, foods)
}

func TestOpen_ReopenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nutrients.db")

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SeedNutrients(nutrient.Catalog()))
	require.NoError(t, s.UpsertFood(Food{FDCID: 1, Description: "Apple, raw"}, nil))
	require.NoError(t, s.Close())

	s2, err := Open(path, nil)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.FoodCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeedNutrients_SecondSeedIsNoop(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SeedNutrients(nutrient.Catalog()))

	n, err := s.NutrientDefCount()
	require.NoError(t, err)
	assert.Equal(t, len(nutrient.Catalog()), n)
}

func TestUpsertFood_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	food := Food{
		FDCID:       1001,
		Description: "Chicken, broilers or fryers, breast, meat only, raw",
		CommonName:  "chicken breast",
		Category:    "Poultry Products",
	}
	values := []nutrient.Value{
		{FDCID: 1001, NutrientID: 1008, Amount: 165},
		{FDCID: 1001, NutrientID: 1003, Amount: 31},
	}

	require.NoError(t, s.UpsertFood(food, values))

	got, err := s.GetFood(1001)
	require.NoError(t, err)
	assert.Equal(t, food.Description, got.Description)
	assert.Equal(t, "chicken breast", got.CommonName)

	amounts, err := s.NutrientAmounts(1001)
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{1008: 165, 1003: 31}, amounts)
}

func TestUpsertFood_Idempotent(t *testing.T) {
	s := openTestStore(t)

	food := Food{FDCID: 1001, Description: "Chicken breast"}
	values := []nutrient.Value{{FDCID: 1001, NutrientID: 1008, Amount: 165}}

	require.NoError(t, s.UpsertFood(food, values))
	require.NoError(t, s.UpsertFood(food, values))

	n, err := s.FoodCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	amounts, err := s.NutrientAmounts(1001)
	require.NoError(t, err)
	assert.Len(t, amounts, 1)
}

func TestUpsertFood_RefetchReplacesAmounts(t *testing.T) {
	s := openTestStore(t)

	food := Food{FDCID: 1001, Description: "Chicken breast"}
	require.NoError(t, s.UpsertFood(food, []nutrient.Value{{FDCID: 1001, NutrientID: 1008, Amount: 150}}))
	require.NoError(t, s.UpsertFood(food, []nutrient.Value{{FDCID: 1001, NutrientID: 1008, Amount: 165}}))

	amounts, err := s.NutrientAmounts(1001)
	require.NoError(t, err)
	assert.Equal(t, 165.0, amounts[1008])
}

func TestUpsertFood_AtomicOnBadNutrient(t *testing.T) {
	s := openTestStore(t)

	food := Food{FDCID: 1001, Description: "Chicken breast"}
	values := []nutrient.Value{
		{FDCID: 1001, NutrientID: 1008, Amount: 165},
		// Not in the seeded catalog: the FK rejects it and the whole
		// transaction must roll back, food row included.
		{FDCID: 1001, NutrientID: 424242, Amount: 1},
	}

	err := s.UpsertFood(food, values)
	require.Error(t, err)

	n, err := s.FoodCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	amounts, err := s.NutrientAmounts(1001)
	require.NoError(t, err)
	assert.Empty(t, amounts)
}

func TestFinalize_BuildsSearchIndex(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertFood(Food{FDCID: 1, Description: "Chicken, broiler, breast, raw"}, nil))
	require.NoError(t, s.UpsertFood(Food{FDCID: 2, Description: "Salmon, Atlantic, farmed, raw"}, nil))
	require.NoError(t, s.UpsertFood(Food{FDCID: 3, Description: "Chicken, thigh, raw", CommonName: "chicken thigh"}, nil))

	require.NoError(t, s.Finalize())

	ids, took, err := s.Search("chicken", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, ids)
	assert.Greater(t, took.Nanoseconds(), int64(0))
}

func TestFinalize_RebuildReplacesIndex(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertFood(Food{FDCID: 1, Description: "Chicken breast"}, nil))
	require.NoError(t, s.Finalize())

	require.NoError(t, s.UpsertFood(Food{FDCID: 2, Description: "Chicken thigh"}, nil))
	require.NoError(t, s.Finalize())

	ids, _, err := s.Search("chicken", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestCollectStats(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertFood(
		Food{FDCID: 1, Description: "Chicken breast", Category: "Poultry Products"},
		[]nutrient.Value{
			{FDCID: 1, NutrientID: 1008, Amount: 165},
			{FDCID: 1, NutrientID: 1003, Amount: 31},
		}))
	require.NoError(t, s.UpsertFood(
		Food{FDCID: 2, Description: "Salmon", Category: "Finfish and Shellfish Products"},
		[]nutrient.Value{
			{FDCID: 2, NutrientID: 1008, Amount: 208},
		}))

	stats, err := s.CollectStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Foods)
	assert.Equal(t, len(nutrient.Catalog()), stats.NutrientDefs)
	assert.Equal(t, 3, stats.NutrientRows)
	assert.InDelta(t, 1.5, stats.AvgNutrientsPerFood, 0.001)
	assert.Len(t, stats.FoodsByCategory, 2)
}

func TestAvgNutrientsPerFood_EmptyDatabase(t *testing.T) {
	s := openTestStore(t)

	avg, err := s.AvgNutrientsPerFood()
	require.NoError(t, err)
	assert.Zero(t, avg)
}
