package analytics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestValidEventType(t *testing.T) {
	for _, ev := range []string{
		EventClipView, EventClipComplete, EventHotspotClick,
		EventAddToCart, EventPurchase, EventLike, EventShare,
	} {
		assert.True(t, ValidEventType(ev), ev)
	}
	assert.False(t, ValidEventType("page_view"))
	assert.False(t, ValidEventType(""))
}

func TestRoundPct(t *testing.T) {
	assert.Equal(t, 33.33, roundPct(100.0/3.0))
	assert.Equal(t, 50.0, roundPct(50))
	assert.Equal(t, 0.0, roundPct(0))
}

func TestDaysClamp(t *testing.T) {
	cases := map[string]int{"": 30, "0": 30, "7": 7, "90": 90, "400": 30, "abc": 30}
	for raw, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/overview?days="+raw, nil)
		assert.Equal(t, want, days(r), raw)
	}
}

func TestLimitParamClamp(t *testing.T) {
	cases := map[string]int{"": 5, "0": 5, "3": 3, "50": 50, "51": 5, "x": 5}
	for raw, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/top-products?limit="+raw, nil)
		assert.Equal(t, want, limitParam(r, 5, 50), raw)
	}
}

func TestRoutesIncludeTopProducts(t *testing.T) {
	r := chi.NewRouter()
	(&Handlers{}).Routes(r)
	assert.True(t, r.Match(chi.NewRouteContext(), http.MethodGet, "/top-products"))
}
