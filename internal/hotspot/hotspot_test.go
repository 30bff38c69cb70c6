package hotspot

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestValidAnimation(t *testing.T) {
	assert.True(t, ValidAnimation(AnimationPulse))
	assert.True(t, ValidAnimation(AnimationStatic))
	assert.True(t, ValidAnimation(AnimationBounce))
	assert.False(t, ValidAnimation("spin"))
	assert.False(t, ValidAnimation(""))
}

func TestCreateRequestValidate(t *testing.T) {
	valid := createRequest{
		ProductID: "123", PositionX: 50, PositionY: 50,
		StartTime: 1, EndTime: 4, AnimationType: AnimationPulse,
	}
	assert.Empty(t, valid.validate())

	cases := map[string]createRequest{
		"missing product":  {PositionX: 50, PositionY: 50, StartTime: 1, EndTime: 4},
		"position too big": {ProductID: "1", PositionX: 101, PositionY: 50, StartTime: 1, EndTime: 4},
		"negative start":   {ProductID: "1", PositionX: 50, PositionY: 50, StartTime: -1, EndTime: 4},
		"end before start": {ProductID: "1", PositionX: 50, PositionY: 50, StartTime: 5, EndTime: 5},
		"bad animation":    {ProductID: "1", PositionX: 50, PositionY: 50, StartTime: 1, EndTime: 4, AnimationType: "spin"},
	}
	for name, req := range cases {
		assert.NotEmpty(t, req.validate(), name)
	}
}

func TestClipRoutesExposeSingleHotspot(t *testing.T) {
	r := chi.NewRouter()
	(&Handlers{}).ClipRoutes(r)

	assert.True(t, r.Match(chi.NewRouteContext(), http.MethodGet, "/c1/hotspots/h1"))
	assert.True(t, r.Match(chi.NewRouteContext(), http.MethodGet, "/c1/hotspots"))
	assert.True(t, r.Match(chi.NewRouteContext(), http.MethodPost, "/c1/hotspots"))
}
