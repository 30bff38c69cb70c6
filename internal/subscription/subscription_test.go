package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProPrice(t *testing.T) {
	assert.Equal(t, "29.99", ProPrice.StringFixed(2))
}

func TestPlanFeatures(t *testing.T) {
	free := PlanFeatures(false)
	assert.Equal(t, 10, free["monthly_uploads"])
	assert.Equal(t, false, free["custom_carousels"])

	pro := PlanFeatures(true)
	assert.Equal(t, 50, pro["monthly_uploads"])
	assert.Equal(t, true, pro["custom_carousels"])
	assert.Equal(t, 5, pro["max_carousels"])
}
