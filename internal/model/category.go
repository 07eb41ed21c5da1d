package model

import apperrors "capsule-machine/pkg/errors"

// Category is a prize rarity tier. The set is closed: catalog entries,
// category weights and collection records all share these tags instead of
// free-form strings.
type Category string

const (
	CategoryNormal    Category = "normal"
	CategoryCommon    Category = "common"
	CategoryRare      Category = "rare"
	CategorySuperRare Category = "superrare"
	CategoryBonus     Category = "bonus"
)

// Categories is the declared iteration order for the weighted draw.
// Selection walks this slice, never a map, so tie-breaks are stable.
var Categories = []Category{
	CategoryNormal,
	CategoryCommon,
	CategoryRare,
	CategorySuperRare,
	CategoryBonus,
}

// FallbackCategory is used when the selected category has no enabled
// entries. The lowest tier always acts as the safety net.
const FallbackCategory = CategoryNormal

// DefaultCategoryWeights are seeded on first start. Bonus is weight 0 so it
// never enters the draw; its entries back the bonus-asset endpoint only.
var DefaultCategoryWeights = map[Category]int{
	CategoryNormal:    50,
	CategoryCommon:    30,
	CategoryRare:      15,
	CategorySuperRare: 5,
	CategoryBonus:     0,
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory validates a raw tag against the declared set.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if !c.Valid() {
		return "", apperrors.ErrUnknownCategory
	}
	return c, nil
}
