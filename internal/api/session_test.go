package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieSecret = "test-secret"

func TestShopCookieRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetShopCookie(rec, "demo.myshopify.com", cookieSecret, false)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, shopCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	assert.Equal(t, "demo.myshopify.com", ShopFromCookie(r, cookieSecret))
}

func TestShopCookieForgedValue(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{
		Name:  shopCookieName,
		Value: "evil.myshopify.com|deadbeef",
	})
	assert.Empty(t, ShopFromCookie(r, cookieSecret))
}

func TestShopCookieWrongSecret(t *testing.T) {
	rec := httptest.NewRecorder()
	SetShopCookie(rec, "demo.myshopify.com", cookieSecret, false)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(rec.Result().Cookies()[0])
	assert.Empty(t, ShopFromCookie(r, "other-secret"))
}

func TestShopCookieMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ShopFromCookie(r, cookieSecret))
}
