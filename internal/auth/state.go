package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// StateStore holds OAuth state nonces for the duration of one install flow.
// A nonce is bound to the shop that started the flow and is single-use:
// Consume removes it whether or not it matches.
type StateStore struct {
	c   *gocache.Cache
	ttl time.Duration
}

const defaultStateTTL = 10 * time.Minute

func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &StateStore{
		c:   gocache.New(ttl, time.Minute),
		ttl: ttl,
	}
}

// Issue generates a 40-character hex nonce and records it for shopDomain.
func (s *StateStore) Issue(shopDomain string) string {
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	nonce := hex.EncodeToString(b)
	s.c.Set(nonce, shopDomain, s.ttl)
	return nonce
}

// Consume validates that the nonce exists and was issued for shopDomain,
// deleting it in the process.
func (s *StateStore) Consume(nonce, shopDomain string) bool {
	if nonce == "" {
		return false
	}
	v, ok := s.c.Get(nonce)
	if !ok {
		return false
	}
	s.c.Delete(nonce)
	issued, _ := v.(string)
	return issued == shopDomain
}
