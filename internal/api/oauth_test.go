package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"popclips/internal/auth"
	"popclips/internal/shop"
	"popclips/pkg/config"
	"popclips/pkg/shopify"
)

type fakeExchanger struct {
	token string
	err   error
}

func (f *fakeExchanger) ExchangeCodeForToken(_ context.Context, _, _ string) (string, error) {
	return f.token, f.err
}

func (f *fakeExchanger) GetShopInfo(_ context.Context, _, _ string) (*shopify.ShopInfo, error) {
	return &shopify.ShopInfo{Name: "Demo Store", Email: "owner@demo.test"}, nil
}

type fakeInstaller struct {
	installed []string
}

func (f *fakeInstaller) UpsertInstall(_ context.Context, domain, name, email, accessToken string, scopes []string) (*shop.Shop, error) {
	f.installed = append(f.installed, domain)
	return &shop.Shop{ID: "shop-1", Domain: domain, Name: name, Email: email, AccessToken: accessToken, IsActive: true}, nil
}

func oauthConfig() config.Config {
	return config.Config{
		AppEnv: "test",
		Shopify: config.ShopifyConfig{
			APIKey:       "test-key",
			APISecret:    "test-secret",
			Scopes:       "read_products,write_files",
			RedirectURL:  "https://app.example.com/auth/callback",
			DomainSuffix: "myshopify.com",
		},
	}
}

func oauthSetup() (*OAuthHandlers, *fakeInstaller, *auth.StateStore) {
	installer := &fakeInstaller{}
	states := auth.NewStateStore(0)
	h := NewOAuthHandlers(oauthConfig(), &fakeExchanger{token: "shpat_test"}, installer, states, nil, zap.NewNop().Sugar())
	return h, installer, states
}

// signQuery computes the callback HMAC the way Shopify does: sorted keys,
// &-joined, excluding hmac itself.
func signQuery(values url.Values, secret string) string {
	var keys []string
	for k := range values {
		if k == "hmac" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, k+"="+values.Get(k))
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestInstallRedirectsToShopify(t *testing.T) {
	h, _, _ := oauthSetup()

	rec := httptest.NewRecorder()
	h.Install(rec, httptest.NewRequest(http.MethodGet, "/install?shop=demo", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", loc.Host)
	assert.Equal(t, "/admin/oauth/authorize", loc.Path)
	assert.Equal(t, "test-key", loc.Query().Get("client_id"))
	assert.Equal(t, "read_products,write_files", loc.Query().Get("scope"))
	assert.Len(t, loc.Query().Get("state"), 40)
}

func TestInstallRejectsInvalidShop(t *testing.T) {
	h, _, _ := oauthSetup()

	rec := httptest.NewRecorder()
	h.Install(rec, httptest.NewRequest(http.MethodGet, "/install?shop=bad_shop", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackCompletesInstall(t *testing.T) {
	h, installer, states := oauthSetup()
	state := states.Issue("demo.myshopify.com")

	q := url.Values{}
	q.Set("shop", "demo.myshopify.com")
	q.Set("code", "authcode")
	q.Set("state", state)
	q.Set("timestamp", "1700000000")
	q.Set("hmac", signQuery(q, "test-secret"))

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?"+q.Encode(), nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin?shop=demo.myshopify.com", rec.Header().Get("Location"))
	assert.Equal(t, []string{"demo.myshopify.com"}, installer.installed)
	// A fresh session cookie is part of the success path.
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestCallbackRejectsTamperedHMAC(t *testing.T) {
	h, installer, states := oauthSetup()
	state := states.Issue("demo.myshopify.com")

	q := url.Values{}
	q.Set("shop", "demo.myshopify.com")
	q.Set("code", "authcode")
	q.Set("state", state)
	q.Set("hmac", signQuery(q, "test-secret"))
	// Tamper after signing.
	q.Set("code", "stolen")

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?"+q.Encode(), nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/error?"))
	assert.Empty(t, installer.installed, "no shop record on a failed signature")
}

func TestCallbackRejectsReusedState(t *testing.T) {
	h, installer, states := oauthSetup()
	state := states.Issue("demo.myshopify.com")

	q := url.Values{}
	q.Set("shop", "demo.myshopify.com")
	q.Set("code", "authcode")
	q.Set("state", state)
	q.Set("hmac", signQuery(q, "test-secret"))
	target := "/auth/callback?" + q.Encode()

	first := httptest.NewRecorder()
	h.Callback(first, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, "/admin?shop=demo.myshopify.com", first.Header().Get("Location"))

	second := httptest.NewRecorder()
	h.Callback(second, httptest.NewRequest(http.MethodGet, target, nil))
	assert.True(t, strings.HasPrefix(second.Header().Get("Location"), "/error?"))
	assert.Len(t, installer.installed, 1)
}

func TestCallbackRejectsForeignState(t *testing.T) {
	h, installer, states := oauthSetup()
	state := states.Issue("other.myshopify.com")

	q := url.Values{}
	q.Set("shop", "demo.myshopify.com")
	q.Set("code", "authcode")
	q.Set("state", state)
	q.Set("hmac", signQuery(q, "test-secret"))

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?"+q.Encode(), nil))

	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/error?"))
	assert.Empty(t, installer.installed)
}
