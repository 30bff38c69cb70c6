package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateStoreIssueConsume(t *testing.T) {
	s := NewStateStore(time.Minute)

	nonce := s.Issue("demo.myshopify.com")
	assert.Len(t, nonce, 40)

	assert.True(t, s.Consume(nonce, "demo.myshopify.com"))
	// Single use.
	assert.False(t, s.Consume(nonce, "demo.myshopify.com"))
}

func TestStateStoreWrongShop(t *testing.T) {
	s := NewStateStore(time.Minute)

	nonce := s.Issue("demo.myshopify.com")
	assert.False(t, s.Consume(nonce, "other.myshopify.com"))
	// A mismatched consume still burns the nonce.
	assert.False(t, s.Consume(nonce, "demo.myshopify.com"))
}

func TestStateStoreUnknownNonce(t *testing.T) {
	s := NewStateStore(time.Minute)
	assert.False(t, s.Consume("", "demo.myshopify.com"))
	assert.False(t, s.Consume("deadbeef", "demo.myshopify.com"))
}
