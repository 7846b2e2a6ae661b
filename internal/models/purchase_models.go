package models

import (
	"fmt"
	"time"
)

// Product categories tracked for possession limits. Flower and concentrates
// are counted in grams; edibles, tinctures and topicals are counted in mg of
// THC.
const (
	ProductFlower       = "flower"
	ProductConcentrates = "concentrates"
	ProductEdibles      = "edibles"
	ProductTinctures    = "tinctures"
	ProductTopicals     = "topicals"
)

// User classes with distinct limit tables.
const (
	UserTypeRecreational = "recreational"
	UserTypeMedical      = "medical"
)

// PurchaseItem is a single line item of a proposed or recorded purchase.
type PurchaseItem struct {
	ProductID    string  `json:"product_id,omitempty"`
	ProductType  string  `json:"product_type" validate:"required,oneof=flower concentrates edibles tinctures topicals"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	Unit         string  `json:"unit" validate:"required,oneof=grams mg units"`
	THCContentMg float64 `json:"thc_content,omitempty" validate:"gte=0"`
}

// Validate enforces the item invariants the evaluator depends on: a known
// category, a non-negative quantity, and a THC figure for THC-accounted
// categories. Negative quantities would silently free headroom, so they are
// rejected here instead of being interpreted as returns.
func (i PurchaseItem) Validate() error {
	switch i.ProductType {
	case ProductFlower, ProductConcentrates, ProductEdibles, ProductTinctures, ProductTopicals:
	default:
		return fmt.Errorf("%w: unknown product type %q", ErrInvalidPurchaseItem, i.ProductType)
	}
	if i.Quantity < 0 {
		return fmt.Errorf("%w: negative quantity %v", ErrInvalidPurchaseItem, i.Quantity)
	}
	if i.THCContentMg < 0 {
		return fmt.Errorf("%w: negative thc content %v", ErrInvalidPurchaseItem, i.THCContentMg)
	}
	return nil
}

// Purchase is one recorded transaction in a user's compliance history.
type Purchase struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Items       []PurchaseItem `json:"items"`
	UserType    string         `json:"user_type"`
	TotalAmount float64        `json:"total_amount"`
}

// CategoryAmounts holds one value per tracked category: grams for flower and
// concentrates, mg THC for the rest. Used for caps, usage totals and
// remaining headroom alike.
type CategoryAmounts struct {
	Flower       float64 `json:"flower"`
	Concentrates float64 `json:"concentrates"`
	Edibles      float64 `json:"edibles"`
	Tinctures    float64 `json:"tinctures"`
	Topicals     float64 `json:"topicals"`
}

// Scale returns the amounts multiplied by f. Monthly caps are the daily
// table scaled by the configured multiplier.
func (a CategoryAmounts) Scale(f float64) CategoryAmounts {
	return CategoryAmounts{
		Flower:       a.Flower * f,
		Concentrates: a.Concentrates * f,
		Edibles:      a.Edibles * f,
		Tinctures:    a.Tinctures * f,
		Topicals:     a.Topicals * f,
	}
}

// LimitConfig is the immutable per-jurisdiction limit table. It is passed
// explicitly into the compliance service so tests and other jurisdictions
// can substitute their own values.
type LimitConfig struct {
	Recreational           CategoryAmounts `json:"recreational"`
	Medical                CategoryAmounts `json:"medical"`
	MonthlyLimitMultiplier float64         `json:"monthly_limit_multiplier"`
}

// DailyFor returns the daily cap table for the given user type. Unknown
// types fall back to the recreational table, the stricter of the two.
func (c LimitConfig) DailyFor(userType string) CategoryAmounts {
	if userType == UserTypeMedical {
		return c.Medical
	}
	return c.Recreational
}

// MonthlyFor returns the derived monthly cap table for the given user type.
func (c LimitConfig) MonthlyFor(userType string) CategoryAmounts {
	return c.DailyFor(userType).Scale(c.MonthlyLimitMultiplier)
}

// DefaultLimitConfig returns the California limit table: one ounce of flower
// per day recreational, eight ounces medical, monthly caps at thirty times
// the daily figures.
func DefaultLimitConfig() LimitConfig {
	return LimitConfig{
		Recreational: CategoryAmounts{
			Flower:       28.5,
			Concentrates: 8,
			Edibles:      1000,
			Tinctures:    2000,
			Topicals:     2000,
		},
		Medical: CategoryAmounts{
			Flower:       226.8,
			Concentrates: 56,
			Edibles:      5000,
			Tinctures:    10000,
			Topicals:     10000,
		},
		MonthlyLimitMultiplier: 30,
	}
}

// LimitCheck is the decision returned by the limit evaluator. Remaining is
// the daily headroom with the candidate purchase counted in, floored at
// zero, and is populated whether or not the purchase is allowed.
type LimitCheck struct {
	Allowed             bool            `json:"allowed"`
	Remaining           CategoryAmounts `json:"remaining"`
	Message             string          `json:"message"`
	DailyLimitReached   bool            `json:"daily_limit_reached"`
	MonthlyLimitReached bool            `json:"monthly_limit_reached"`
}

// WindowUsage pairs used totals with their caps for one window.
type WindowUsage struct {
	Used      CategoryAmounts `json:"used"`
	Limit     CategoryAmounts `json:"limit"`
	Remaining CategoryAmounts `json:"remaining"`
}

// LimitsSummary is the dashboard view of a user's consumption against both
// windows.
type LimitsSummary struct {
	Daily   WindowUsage `json:"daily"`
	Monthly WindowUsage `json:"monthly"`
}

// CheckLimitsRequest is the HTTP payload for a limit pre-check.
type CheckLimitsRequest struct {
	Items []PurchaseItem `json:"items" validate:"required,min=1,dive"`
}

// RecordPurchaseRequest is the HTTP payload for committing a purchase to
// history after fulfillment.
type RecordPurchaseRequest struct {
	ID          string         `json:"id,omitempty"`
	Items       []PurchaseItem `json:"items" validate:"required,min=1,dive"`
	TotalAmount float64        `json:"total_amount" validate:"gte=0"`
	Timestamp   time.Time      `json:"timestamp,omitempty"`
}
