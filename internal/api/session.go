package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

// The "remember last shop" cookie is signed with the app secret so a client
// cannot forge an identity override. It is the lowest-priority identity
// source and only a convenience for embedded-admin reloads that drop the
// shop query parameter.

const shopCookieName = "popclips_shop"

const shopCookieTTL = 24 * time.Hour

func signShopValue(domain, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(domain))
	return hex.EncodeToString(mac.Sum(nil))
}

// SetShopCookie writes the signed shop cookie. Value layout: domain|hexsig.
func SetShopCookie(w http.ResponseWriter, domain, secret string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     shopCookieName,
		Value:    domain + "|" + signShopValue(domain, secret),
		Path:     "/",
		MaxAge:   int(shopCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   secure,
	})
}

// ShopFromCookie returns the cookie's shop domain when the signature checks
// out, empty string otherwise.
func ShopFromCookie(r *http.Request, secret string) string {
	c, err := r.Cookie(shopCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	domain, sig, ok := strings.Cut(c.Value, "|")
	if !ok || domain == "" {
		return ""
	}
	if !hmac.Equal([]byte(sig), []byte(signShopValue(domain, secret))) {
		return ""
	}
	return domain
}
