package shop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetting_DefaultsWhenUnset(t *testing.T) {
	s := &Shop{}
	assert.Equal(t, "#FF6B6B", s.Setting("hotspot_color"))
	assert.Equal(t, true, s.Setting("show_branding"))
	assert.Nil(t, s.Setting("nonexistent"))
}

func TestSetting_OverridesWin(t *testing.T) {
	s := &Shop{Settings: json.RawMessage(`{"hotspot_color":"#000000","show_branding":false}`)}
	assert.Equal(t, "#000000", s.Setting("hotspot_color"))
	assert.Equal(t, false, s.Setting("show_branding"))
	// Untouched keys still fall back to defaults.
	assert.Equal(t, "rounded", s.Setting("button_style"))
}

func TestSetting_IgnoresMalformedOverrides(t *testing.T) {
	s := &Shop{Settings: json.RawMessage(`not json`)}
	assert.Equal(t, "#FF6B6B", s.Setting("hotspot_color"))
}
