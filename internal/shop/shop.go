package shop

import (
	"encoding/json"
	"time"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

type Shop struct {
	ID            string          `json:"id"`
	Domain        string          `json:"shopify_domain"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	AccessToken   string          `json:"-"`
	Scopes        []string        `json:"scopes"`
	Plan          string          `json:"plan"`
	PlanStartedAt *time.Time      `json:"plan_started_at,omitempty"`
	IsActive      bool            `json:"is_active"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	InstalledAt   time.Time       `json:"installed_at"`
}

func (s *Shop) IsPro() bool {
	return s.Plan == PlanPro
}

// DefaultSettings are the storefront display defaults applied when a shop
// has not customized anything.
func DefaultSettings() map[string]any {
	return map[string]any{
		"autoplay":         true,
		"autoplay_speed":   5,
		"show_view_count":  true,
		"show_like_button": true,
		"items_to_show":    3,
		"mobile_items":     1,
		"aspect_ratio":     "9:16",
		"hotspot_color":    "#FF6B6B",
		"button_style":     "rounded",
		"show_branding":    true,
	}
}

// Setting resolves one setting, preferring the shop's stored overrides over
// the defaults.
func (s *Shop) Setting(key string) any {
	merged := DefaultSettings()
	if len(s.Settings) > 0 {
		var overrides map[string]any
		if err := json.Unmarshal(s.Settings, &overrides); err == nil {
			for k, v := range overrides {
				merged[k] = v
			}
		}
	}
	return merged[key]
}
