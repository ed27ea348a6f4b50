package models

import "strings"

// MealType classifies a feeding.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
	MealBottle    MealType = "bottle"
	MealBreast    MealType = "breast"
	MealSolid     MealType = "solid"
)

// MealTypes lists the canonical types in display order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack, MealBottle, MealBreast, MealSolid}

// mealTypeMap maps lowercased, possibly localized meal names to canonical
// types. Covers: English, German, French, Spanish.
var mealTypeMap = map[string]MealType{
	// English
	"breakfast":     MealBreakfast,
	"lunch":         MealLunch,
	"dinner":        MealDinner,
	"supper":        MealDinner,
	"snack":         MealSnack,
	"bottle":        MealBottle,
	"formula":       MealBottle,
	"breast":        MealBreast,
	"breastfeeding": MealBreast,
	"nursing":       MealBreast,
	"solid":         MealSolid,
	"solids":        MealSolid,
	"puree":         MealSolid,

	// German
	"frühstück":        MealBreakfast,
	"fruehstueck":      MealBreakfast,
	"mittagessen":      MealLunch,
	"abendessen":       MealDinner,
	"abendbrot":        MealDinner,
	"zwischenmahlzeit": MealSnack,
	"flasche":          MealBottle,
	"fläschchen":       MealBottle,
	"stillen":          MealBreast,
	"brei":             MealSolid,
	"beikost":          MealSolid,

	// French
	"petit-déjeuner": MealBreakfast,
	"petit déjeuner": MealBreakfast,
	"déjeuner":       MealLunch,
	"dejeuner":       MealLunch,
	"dîner":          MealDinner,
	"diner":          MealDinner,
	"goûter":         MealSnack,
	"gouter":         MealSnack,
	"biberon":        MealBottle,
	"allaitement":    MealBreast,
	"tétée":          MealBreast,
	"solide":         MealSolid,

	// Spanish
	"desayuno":  MealBreakfast,
	"almuerzo":  MealLunch,
	"comida":    MealLunch,
	"cena":      MealDinner,
	"merienda":  MealSnack,
	"biberón":   MealBottle,
	"lactancia": MealBreast,
	"papilla":   MealSolid,
}

// NormalizeMealType maps a possibly-localized meal name to its canonical
// type. Returns the canonical type and true if recognized, or the trimmed
// input and false if unknown.
func NormalizeMealType(raw string) (MealType, bool) {
	trimmed := strings.TrimSpace(raw)
	if mt, ok := mealTypeMap[strings.ToLower(trimmed)]; ok {
		return mt, true
	}
	return MealType(trimmed), false
}

// Valid reports whether t is a canonical meal type.
func (t MealType) Valid() bool {
	for _, mt := range MealTypes {
		if t == mt {
			return true
		}
	}
	return false
}
