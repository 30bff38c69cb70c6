package clip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthlyUploadLimit(t *testing.T) {
	assert.Equal(t, FreeMonthlyUploads, MonthlyUploadLimit(false))
	assert.Equal(t, ProMonthlyUploads, MonthlyUploadLimit(true))
}
