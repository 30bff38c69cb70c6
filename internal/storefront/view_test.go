package storefront

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"popclips/internal/carousel"
	"popclips/internal/shop"
)

func TestDisplaySettingsLayering(t *testing.T) {
	s := &shop.Shop{Settings: json.RawMessage(`{"hotspot_color":"#00FF00","autoplay":false}`)}
	ca := &carousel.Carousel{Settings: json.RawMessage(`{"items_to_show":5}`)}

	merged := displaySettings(s, ca)

	// Shop overrides beat defaults, carousel overrides beat both.
	assert.Equal(t, "#00FF00", merged["hotspot_color"])
	assert.Equal(t, false, merged["autoplay"])
	assert.Equal(t, float64(5), merged["items_to_show"])
	// Untouched defaults survive.
	assert.Equal(t, "9:16", merged["aspect_ratio"])
}

func TestDisplaySettingsDefaultsOnly(t *testing.T) {
	merged := displaySettings(&shop.Shop{}, nil)
	assert.Equal(t, shop.DefaultSettings(), merged)
}
