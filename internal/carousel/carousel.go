package carousel

import (
	"encoding/json"
	"time"
)

const (
	TypeStandard = "standard"
	TypeCustom   = "custom"
)

// MaxCustomCarousels caps how many custom carousels a Pro shop can hold.
const MaxCustomCarousels = 5

// Carousel groups clips for a storefront placement. Every shop owns exactly
// one standard carousel (all published clips, newest first); custom carousels
// are a Pro feature with hand picked, ordered members.
type Carousel struct {
	ID         string          `json:"id"`
	ShopID     string          `json:"shop_id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Settings   json.RawMessage `json:"settings,omitempty"`
	IsActive   bool            `json:"is_active"`
	ClipsCount int             `json:"clips_count"`
	CreatedAt  time.Time       `json:"created_at"`
}
