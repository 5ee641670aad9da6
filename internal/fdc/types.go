package fdc

// FoodSummary is one item of a paged search response. Only the fields the
// pipeline consumes are decoded; the upstream payload carries many more.
type FoodSummary struct {
	// FDCID is the stable external food id.
	FDCID int64 `json:"fdcId"`

	// Description is the catalog description of the food.
	Description string `json:"description"`

	// DataType names the source dataset (e.g. "SR Legacy").
	DataType string `json:"dataType,omitempty"`
}

// SearchResponse is the decoded body of the paged search operation.
type SearchResponse struct {
	Foods     []FoodSummary `json:"foods"`
	TotalHits int           `json:"totalHits"`
}

// Food is the decoded body of the per-id detail operation.
type Food struct {
	FDCID        int64          `json:"fdcId"`
	Description  string         `json:"description"`
	FoodCategory *FoodCategory  `json:"foodCategory,omitempty"`
	Nutrients    []FoodNutrient `json:"foodNutrients"`
}

// FoodCategory labels the food's category.
type FoodCategory struct {
	Description string `json:"description"`
}

// FoodNutrient is one nutrient entry of a food detail response.
// Amount is a pointer: upstream omits it for some entries, and a missing
// amount must be dropped rather than stored as zero.
type FoodNutrient struct {
	Nutrient NutrientRef `json:"nutrient"`
	Amount   *float64    `json:"amount,omitempty"`
}

// NutrientRef identifies a nutrient by its stable numeric code.
type NutrientRef struct {
	ID int64 `json:"id"`
}

// CategoryDescription returns the category label or "" when absent.
func (f *Food) CategoryDescription() string {
	if f.FoodCategory == nil {
		return ""
	}
	return f.FoodCategory.Description
}
