package shopify

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type SessionTokenClaims struct {
	jwt.RegisteredClaims

	// Shopify session tokens carry custom claims; only dest matters here.
	Dest string `json:"dest,omitempty"` // e.g. https://{shop}
}

type VerifiedSession struct {
	ShopDomain string
	ExpiresAt  time.Time
}

// VerifySessionToken verifies an embedded app session token (JWT, HS256)
// against the app API secret and returns the shop domain it was issued for.
func VerifySessionToken(tokenString string, apiKey string, apiSecret string, now time.Time) (*VerifiedSession, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	if apiSecret == "" {
		return nil, fmt.Errorf("missing api secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	claims := &SessionTokenClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(apiSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(now) {
		return nil, fmt.Errorf("token expired")
	}
	if claims.NotBefore != nil && claims.NotBefore.Time.After(now) {
		return nil, fmt.Errorf("token not active yet")
	}

	// The audience must include the app's client id.
	if apiKey != "" && !audContains([]string(claims.Audience), apiKey) {
		return nil, fmt.Errorf("audience mismatch")
	}

	shopDomain := shopFromClaims(claims)
	if shopDomain == "" {
		return nil, fmt.Errorf("missing shop in token")
	}

	return &VerifiedSession{
		ShopDomain: shopDomain,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

func audContains(aud []string, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

func shopFromClaims(c *SessionTokenClaims) string {
	// Prefer dest: "https://{shop}". Issuer is a url-ish fallback.
	for _, raw := range []string{c.Dest, c.Issuer} {
		s := strings.TrimSpace(raw)
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "http://")
		s = strings.TrimSuffix(s, "/")
		if s != "" {
			return s
		}
	}
	return ""
}
