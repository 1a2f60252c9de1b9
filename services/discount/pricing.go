// Package discount holds the pricing rules for discount presets and promo
// codes, and the GORM services that persist them.
package discount

import (
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/shopspring/decimal"
)

const (
	MinPercent = 1
	MaxPercent = 100
)

var (
	ErrDuplicateName  = apperr.New(apperr.KindConflict, "DUPLICATE_NAME", "duplicate name")
	ErrPromoNotFound  = apperr.New(apperr.KindNotFound, "PROMO_NOT_FOUND", "promo code not found")
	ErrPromoExpired   = apperr.New(apperr.KindValidation, "PROMO_EXPIRED", "promo code has expired")
	ErrPromoNotTarget = apperr.New(apperr.KindValidation, "PROMO_NOT_APPLICABLE", "promo code does not apply to this product")
	ErrPresetNotFound = apperr.New(apperr.KindNotFound, "PRESET_NOT_FOUND", "discount preset not found")
)

// DiscountedPrice returns price reduced by pct percent, rounded to cents
func DiscountedPrice(price float64, pct int) float64 {
	factor := decimal.NewFromInt(100 - int64(pct)).Div(decimal.NewFromInt(100))
	out, _ := decimal.NewFromFloat(price).Mul(factor).Round(2).Float64()
	return out
}

// ConvertPrice converts a base price into a currency by its rate, rounded to cents
func ConvertPrice(price, rate float64) float64 {
	out, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(rate)).Round(2).Float64()
	return out
}

// PromoUsable reports whether a promo code can be applied at now.
// The expiry instant itself is already expired.
func PromoUsable(p *model.PromoCode, now time.Time) bool {
	if p == nil || !p.Available {
		return false
	}
	return p.ExpiryDate == nil || now.Before(*p.ExpiryDate)
}

// PromoExpired reports whether an available promo has passed its expiry
func PromoExpired(p *model.PromoCode, now time.Time) bool {
	return p.Available && p.ExpiryDate != nil && !now.Before(*p.ExpiryDate)
}

// ValidatePercent checks a discount percentage is within [1, 100]
func ValidatePercent(pct int) error {
	if pct < MinPercent || pct > MaxPercent {
		return apperr.Validation(fmt.Sprintf("discount percent must be between %d and %d, got %d", MinPercent, MaxPercent, pct))
	}
	return nil
}

// NormalizeName is the case-insensitive uniqueness key of a preset or promo name
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
