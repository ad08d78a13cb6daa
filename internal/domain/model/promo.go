package model

import (
	"strings"

	"trading-academy-platform/internal/domain"
)

// promoCatalog maps normalized (uppercase) promo codes to flat INR discounts.
// The table is fixed; there is no admin surface for editing codes.
var promoCatalog = map[string]int64{
	"GROWTH200":  16700,
	"LAUNCH500":  500,
	"EARLYBIRD":  4150,
	"MASTERY10":  12480,
	"WELCOME100": 100,
}

// ResolvePromo normalizes the code (case-insensitive, trimmed) and returns
// the flat discount it grants. Unknown codes yield ErrUnknownPromoCode.
func ResolvePromo(code string) (normalized string, discount int64, err error) {
	normalized = strings.ToUpper(strings.TrimSpace(code))
	d, ok := promoCatalog[normalized]
	if !ok {
		return normalized, 0, domain.ErrUnknownPromoCode
	}
	return normalized, d, nil
}
