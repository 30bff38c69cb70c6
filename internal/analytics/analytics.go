package analytics

import (
	"github.com/shopspring/decimal"
)

// Event types recorded from the storefront widget and the orders/paid
// webhook.
const (
	EventClipView     = "clip_view"
	EventClipComplete = "clip_complete"
	EventHotspotClick = "hotspot_click"
	EventAddToCart    = "add_to_cart"
	EventPurchase     = "purchase"
	EventLike         = "like"
	EventShare        = "share"
)

func ValidEventType(t string) bool {
	switch t {
	case EventClipView, EventClipComplete, EventHotspotClick, EventAddToCart, EventPurchase, EventLike, EventShare:
		return true
	}
	return false
}

// Event is one row in the analytics stream. Clip/hotspot references are
// optional; purchase events may carry revenue.
type Event struct {
	ShopID     string
	ClipID     *string
	HotspotID  *string
	EventType  string
	SessionID  string
	VisitorID  string
	ProductID  string
	Revenue    *decimal.Decimal
	Currency   string
	DeviceType string
	Browser    string
	Country    string
	Metadata   map[string]any
}
