package storefront

import (
	"encoding/json"

	"popclips/internal/carousel"
	"popclips/internal/clip"
	"popclips/internal/hotspot"
	"popclips/internal/shop"
)

// The widget consumes camelCase JSON, decoupled from the snake_case admin
// models so either side can evolve alone.

type hotspotView struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"productId"`
	ProductTitle    string  `json:"productTitle"`
	ProductHandle   string  `json:"productHandle,omitempty"`
	ProductImageURL string  `json:"productImageUrl,omitempty"`
	ProductPrice    string  `json:"productPrice"`
	PositionX       float64 `json:"positionX"`
	PositionY       float64 `json:"positionY"`
	StartTime       float64 `json:"startTime"`
	EndTime         float64 `json:"endTime"`
	AnimationType   string  `json:"animationType"`
}

type clipView struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	VideoURL     string        `json:"videoUrl"`
	ThumbnailURL string        `json:"thumbnailUrl,omitempty"`
	Duration     int           `json:"duration"`
	AspectRatio  string        `json:"aspectRatio"`
	ViewsCount   int64         `json:"viewsCount"`
	LikesCount   int64         `json:"likesCount"`
	Hotspots     []hotspotView `json:"hotspots"`
}

func newClipView(c *clip.Clip, hs []*hotspot.Hotspot) clipView {
	v := clipView{
		ID:           c.ID,
		Title:        c.Title,
		VideoURL:     c.VideoURL,
		ThumbnailURL: c.ThumbnailURL,
		Duration:     c.Duration,
		AspectRatio:  c.AspectRatio,
		ViewsCount:   c.ViewsCount,
		LikesCount:   c.LikesCount,
		Hotspots:     make([]hotspotView, 0, len(hs)),
	}
	for _, h := range hs {
		v.Hotspots = append(v.Hotspots, hotspotView{
			ID:              h.ID,
			ProductID:       h.ProductID,
			ProductTitle:    h.ProductTitle,
			ProductHandle:   h.ProductHandle,
			ProductImageURL: h.ProductImageURL,
			ProductPrice:    h.ProductPrice.StringFixed(2),
			PositionX:       h.PositionX,
			PositionY:       h.PositionY,
			StartTime:       h.StartTime,
			EndTime:         h.EndTime,
			AnimationType:   h.AnimationType,
		})
	}
	return v
}

// displaySettings layers the defaults, the shop's stored overrides and the
// carousel's own settings, in that order.
func displaySettings(s *shop.Shop, ca *carousel.Carousel) map[string]any {
	merged := shop.DefaultSettings()
	overlay := func(raw json.RawMessage) {
		if len(raw) == 0 {
			return
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil {
			for k, v := range m {
				merged[k] = v
			}
		}
	}
	overlay(s.Settings)
	if ca != nil {
		overlay(ca.Settings)
	}
	return merged
}
