// Package nutrient holds the canonical nutrient catalog and the mapping
// from raw FoodData Central nutrient lists onto it.
//
// The catalog is reference data: it is seeded into the store exactly once
// at initialization and never mutated afterward. The numeric codes are the
// FoodData Central nutrient ids and form part of the database compatibility
// surface consumed by downstream services.
package nutrient

// Category classifies a nutrient definition.
type Category string

const (
	CategoryMacro     Category = "macro"
	CategoryFiber     Category = "fiber"
	CategoryFattyAcid Category = "fatty_acid"
	CategoryVitamin   Category = "vitamin"
	CategoryMineral   Category = "mineral"
	CategoryOther     Category = "other"
)

// Definition describes a single tracked nutrient.
type Definition struct {
	// Code is the stable FoodData Central nutrient id.
	Code int64

	// Name is the display name.
	Name string

	// Unit is the source unit (g, mg, mcg, kcal).
	Unit string

	// Category groups the nutrient for reporting.
	Category Category

	// RDAMale and RDAFemale are recommended daily amounts for the two
	// adult reference groups. Nil when no recommendation exists.
	RDAMale   *float64
	RDAFemale *float64
}

func rda(v float64) *float64 { return &v }

// definitions is the full tracked catalog (52 nutrients).
var definitions = []Definition{
	// Macronutrients
	{Code: 1008, Name: "Energy", Unit: "kcal", Category: CategoryMacro},
	{Code: 1003, Name: "Protein", Unit: "g", Category: CategoryMacro},
	{Code: 1005, Name: "Carbohydrate", Unit: "g", Category: CategoryMacro},
	{Code: 1004, Name: "Total Fat", Unit: "g", Category: CategoryMacro},

	// Fiber and sugars
	{Code: 1079, Name: "Total Fiber", Unit: "g", Category: CategoryFiber, RDAMale: rda(28), RDAFemale: rda(28)},
	{Code: 1082, Name: "Soluble Fiber", Unit: "g", Category: CategoryFiber},
	{Code: 1084, Name: "Insoluble Fiber", Unit: "g", Category: CategoryFiber},
	{Code: 2000, Name: "Total Sugars", Unit: "g", Category: CategoryFiber},

	// Fatty acids
	{Code: 1258, Name: "Saturated Fat", Unit: "g", Category: CategoryFattyAcid},
	{Code: 1292, Name: "Monounsaturated Fat", Unit: "g", Category: CategoryFattyAcid},
	{Code: 1293, Name: "Polyunsaturated Fat", Unit: "g", Category: CategoryFattyAcid},
	{Code: 1257, Name: "Trans Fat", Unit: "g", Category: CategoryFattyAcid},
	{Code: 1404, Name: "Omega-3 Fatty Acids", Unit: "g", Category: CategoryFattyAcid},
	{Code: 1405, Name: "Omega-6 Fatty Acids", Unit: "g", Category: CategoryFattyAcid},

	// Vitamins
	{Code: 1106, Name: "Vitamin A", Unit: "mcg", Category: CategoryVitamin, RDAMale: rda(900), RDAFemale: rda(700)},
	{Code: 1165, Name: "Vitamin B1 (Thiamin)", Unit: "mg", Category: CategoryVitamin, RDAMale: rda(1.2), RDAFemale: rda(1.1)},
	{Code: 1166, Name: "Vitamin B2 (Riboflavin)", Unit: "mg", Category: CategoryVitamin, RDAMale: rda(1.3), RDAFemale: rda(1.1)},
	{Code: 1167, Name: "Vitamin B3 (Niacin)", Unit: "mg", Category: CategoryVitamin, RDAMale: rda(16), RDAFemale: rda(14)},
	{Code: 1175, Name: "Vitamin B5 (Pantothenic Acid)", Unit: "mg", Category: CategoryVitamin, RDAMale: rda(5), RDAFemale: rda(5)},
	{Code: 1176, Name: "Vitamin B6", Unit: "mg", Category: CategoryVitamin, RDAMale: rda(1.3), RDAFemale: rda(1.3)},
	{Code: 1177, Name: "Folate (Vitamin B9)", Unit: "mcg", Category: CategoryVitamin, RDAMale: rda(400), RDAFemale: rda(400)},
	{Code: 1178, Name: "Vitamin B12", Unit: "mcg", Category: CategoryVitamin, RDAMale: rda(2.4), RDAFemale: rda(2.4)},
	{Code: 1162, Name: "Vitamin C", Unit: "mg", Category: CategoryVitamin, RDAMale: rda(90), RDAFemale: rda(75)},
	{Code: 1114, Name: "Vitamin D", Unit: "mcg", Category: CategoryVitamin, RDAMale: rda(15), RDAFemale: rda(15)},
	{Code: 1109, Name: "Vitamin E", Unit: "mg", Category: CategoryVitamin, RDAMale: rda(15), RDAFemale: rda(15)},
	{Code: 1185, Name: "Vitamin K", Unit: "mcg", Category: CategoryVitamin, RDAMale: rda(120), RDAFemale: rda(90)},
	{Code: 1180, Name: "Choline", Unit: "mg", Category: CategoryVitamin, RDAMale: rda(550), RDAFemale: rda(425)},
	{Code: 1190, Name: "Biotin (Vitamin B7)", Unit: "mcg", Category: CategoryVitamin, RDAMale: rda(30), RDAFemale: rda(30)},
	{Code: 1170, Name: "Vitamin B12 (added)", Unit: "mcg", Category: CategoryVitamin},

	// Minerals
	{Code: 1087, Name: "Calcium", Unit: "mg", Category: CategoryMineral, RDAMale: rda(1000), RDAFemale: rda(1000)},
	{Code: 1089, Name: "Iron", Unit: "mg", Category: CategoryMineral, RDAMale: rda(8), RDAFemale: rda(18)},
	{Code: 1090, Name: "Magnesium", Unit: "mg", Category: CategoryMineral, RDAMale: rda(400), RDAFemale: rda(310)},
	{Code: 1091, Name: "Phosphorus", Unit: "mg", Category: CategoryMineral, RDAMale: rda(700), RDAFemale: rda(700)},
	{Code: 1092, Name: "Potassium", Unit: "mg", Category: CategoryMineral, RDAMale: rda(3400), RDAFemale: rda(2600)},
	{Code: 1093, Name: "Sodium", Unit: "mg", Category: CategoryMineral, RDAMale: rda(2300), RDAFemale: rda(2300)},
	{Code: 1095, Name: "Zinc", Unit: "mg", Category: CategoryMineral, RDAMale: rda(11), RDAFemale: rda(8)},
	{Code: 1098, Name: "Copper", Unit: "mg", Category: CategoryMineral, RDAMale: rda(0.9), RDAFemale: rda(0.9)},
	{Code: 1101, Name: "Manganese", Unit: "mg", Category: CategoryMineral, RDAMale: rda(2.3), RDAFemale: rda(1.8)},
	{Code: 1103, Name: "Selenium", Unit: "mcg", Category: CategoryMineral, RDAMale: rda(55), RDAFemale: rda(55)},
	{Code: 1096, Name: "Chromium", Unit: "mcg", Category: CategoryMineral, RDAMale: rda(35), RDAFemale: rda(25)},
	{Code: 1102, Name: "Molybdenum", Unit: "mcg", Category: CategoryMineral, RDAMale: rda(45), RDAFemale: rda(45)},
	{Code: 1100, Name: "Iodine", Unit: "mcg", Category: CategoryMineral, RDAMale: rda(150), RDAFemale: rda(150)},

	// Other
	{Code: 1051, Name: "Water", Unit: "g", Category: CategoryOther},
	{Code: 1253, Name: "Cholesterol", Unit: "mg", Category: CategoryOther, RDAMale: rda(300), RDAFemale: rda(300)},
}

var byCode = func() map[int64]Definition {
	m := make(map[int64]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Code] = d
	}
	return m
}()

// Catalog returns the full nutrient catalog in seeding order.
// The returned slice must not be modified.
func Catalog() []Definition {
	return definitions
}

// ByCode looks up a definition by its FoodData Central code.
func ByCode(code int64) (Definition, bool) {
	d, ok := byCode[code]
	return d, ok
}

// Known reports whether code belongs to the tracked catalog.
func Known(code int64) bool {
	_, ok := byCode[code]
	return ok
}
