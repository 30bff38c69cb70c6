package hotspot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Animation styles the storefront player knows how to render.
const (
	AnimationPulse  = "pulse"
	AnimationStatic = "static"
	AnimationBounce = "bounce"
)

func ValidAnimation(a string) bool {
	switch a {
	case AnimationPulse, AnimationStatic, AnimationBounce:
		return true
	}
	return false
}

// Hotspot is a tappable product marker pinned to a region of a clip for a
// time window. Product fields are denormalized at creation time so the
// storefront never calls the Admin API.
type Hotspot struct {
	ID              string          `json:"id"`
	ClipID          string          `json:"clip_id"`
	ProductID       string          `json:"shopify_product_id"`
	ProductTitle    string          `json:"product_title"`
	ProductHandle   string          `json:"product_handle,omitempty"`
	ProductImageURL string          `json:"product_image_url,omitempty"`
	ProductPrice    decimal.Decimal `json:"product_price"`
	PositionX       float64         `json:"position_x"`
	PositionY       float64         `json:"position_y"`
	StartTime       float64         `json:"start_time"`
	EndTime         float64         `json:"end_time"`
	AnimationType   string          `json:"animation_type"`
	IsActive        bool            `json:"is_active"`
	ClicksCount     int64           `json:"clicks_count"`
	CreatedAt       time.Time       `json:"created_at"`
}
