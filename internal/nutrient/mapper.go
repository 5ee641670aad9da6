package nutrient

import (
	"github.com/fyrsmithlabs/nutridb/internal/fdc"
)

// Value is one mapped (food, nutrient, amount) row ready for persistence.
type Value struct {
	FDCID      int64
	NutrientID int64
	Amount     float64
}

// MapProfile filters a raw detail-response nutrient list down to rows the
// store will accept: the code must belong to the catalog and the amount
// must be present. Entries with a missing amount are dropped, never stored
// as zero. Duplicate codes keep the last reported amount.
func MapProfile(fdcID int64, raw []fdc.FoodNutrient) []Value {
	out := make([]Value, 0, len(raw))
	index := make(map[int64]int, len(raw))

	for _, n := range raw {
		if n.Amount == nil || !Known(n.Nutrient.ID) {
			continue
		}
		if i, seen := index[n.Nutrient.ID]; seen {
			out[i].Amount = *n.Amount
			continue
		}
		index[n.Nutrient.ID] = len(out)
		out = append(out, Value{
			FDCID:      fdcID,
			NutrientID: n.Nutrient.ID,
			Amount:     *n.Amount,
		})
	}

	return out
}
