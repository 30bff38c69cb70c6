package shopify

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signSessionToken(t *testing.T, claims SessionTokenClaims, secret string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestVerifySessionToken_AudienceAndDest(t *testing.T) {
	apiKey := "test_api_key"
	secret := "test_secret"

	now := time.Unix(1700000000, 0)

	claims := SessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  []string{apiKey},
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-1 * time.Minute)),
		},
		Dest: "https://my-shop.myshopify.com",
	}

	got, err := VerifySessionToken(signSessionToken(t, claims, secret), apiKey, secret, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ShopDomain != "my-shop.myshopify.com" {
		t.Fatalf("shop domain mismatch: %q", got.ShopDomain)
	}
}

func TestVerifySessionToken_RejectsWrongAudience(t *testing.T) {
	secret := "test_secret"
	now := time.Unix(1700000000, 0)

	claims := SessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  []string{"someone_else"},
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
		Dest: "https://my-shop.myshopify.com",
	}

	if _, err := VerifySessionToken(signSessionToken(t, claims, secret), "test_api_key", secret, now); err == nil {
		t.Fatal("expected audience mismatch error")
	}
}

func TestVerifySessionToken_RejectsExpired(t *testing.T) {
	apiKey := "test_api_key"
	secret := "test_secret"
	now := time.Unix(1700000000, 0)

	claims := SessionTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  []string{apiKey},
			ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
		},
		Dest: "https://my-shop.myshopify.com",
	}

	if _, err := VerifySessionToken(signSessionToken(t, claims, secret), apiKey, secret, now); err == nil {
		t.Fatal("expected expiry error")
	}
}
