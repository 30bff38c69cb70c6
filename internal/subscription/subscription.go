package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusDeclined  = "declined"
)

// ProPrice is the monthly Pro charge in USD.
var ProPrice = decimal.NewFromFloat(29.99)

const ProChargeName = "Popclips Pro"

type Subscription struct {
	ID              string          `json:"id"`
	ShopID          string          `json:"shop_id"`
	PlanName        string          `json:"plan_name"`
	Status          string          `json:"status"`
	ShopifyChargeID string          `json:"shopify_charge_id,omitempty"`
	Price           decimal.Decimal `json:"price"`
	ActivatedAt     *time.Time      `json:"activated_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PlanFeatures is what the admin UI renders on the billing page.
func PlanFeatures(pro bool) map[string]any {
	if pro {
		return map[string]any{
			"monthly_uploads":  50,
			"custom_carousels": true,
			"max_carousels":    5,
			"analytics":        "full",
		}
	}
	return map[string]any{
		"monthly_uploads":  10,
		"custom_carousels": false,
		"max_carousels":    0,
		"analytics":        "basic",
	}
}
