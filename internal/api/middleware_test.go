package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popclips/internal/shop"
	"popclips/pkg/config"
)

type fakeDirectory struct {
	shops map[string]*shop.Shop
}

func (f *fakeDirectory) FindByDomain(_ context.Context, domain string) (*shop.Shop, error) {
	if s, ok := f.shops[domain]; ok {
		return s, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeDirectory) ActiveDomains(_ context.Context) ([]string, error) {
	var out []string
	for _, s := range f.shops {
		if s.IsActive {
			out = append(out, s.Domain)
		}
	}
	return out, nil
}

func testConfig() config.Config {
	return config.Config{
		AppEnv: "test",
		Shopify: config.ShopifyConfig{
			APIKey:       "test-key",
			APISecret:    "test-secret",
			DomainSuffix: "myshopify.com",
		},
	}
}

func resolverSetup(shops ...*shop.Shop) (http.Handler, *fakeDirectory) {
	dir := &fakeDirectory{shops: map[string]*shop.Shop{}}
	for _, s := range shops {
		dir.shops[s.Domain] = s
	}

	handler := ShopAuth(testConfig(), dir)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := ShopFromContext(r.Context())
		WriteJSON(w, http.StatusOK, map[string]string{"resolved": s.Domain})
	}))
	return handler, dir
}

func activeShop(domain string) *shop.Shop {
	return &shop.Shop{ID: "id-" + domain, Domain: domain, IsActive: true}
}

func TestShopAuthQueryParam(t *testing.T) {
	h, _ := resolverSetup(activeShop("demo.myshopify.com"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clips?shop=demo", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resolved":"demo.myshopify.com"`)
	// Successful resolution refreshes the session cookie.
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestShopAuthHeader(t *testing.T) {
	h, _ := resolverSetup(activeShop("demo.myshopify.com"))

	r := httptest.NewRequest(http.MethodGet, "/v1/clips", nil)
	r.Header.Set("X-Shop-Domain", "demo.myshopify.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "demo.myshopify.com")
}

func TestShopAuthQueryBeatsHeader(t *testing.T) {
	h, _ := resolverSetup(activeShop("first.myshopify.com"), activeShop("second.myshopify.com"))

	r := httptest.NewRequest(http.MethodGet, "/v1/clips?shop=first", nil)
	r.Header.Set("X-Shop-Domain", "second.myshopify.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resolved":"first.myshopify.com"`)
}

func TestShopAuthCookieFallback(t *testing.T) {
	h, _ := resolverSetup(activeShop("demo.myshopify.com"))

	seed := httptest.NewRecorder()
	SetShopCookie(seed, "demo.myshopify.com", "test-secret", false)

	r := httptest.NewRequest(http.MethodGet, "/v1/clips", nil)
	r.AddCookie(seed.Result().Cookies()[0])
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "demo.myshopify.com")
}

func TestShopAuthMissingShop(t *testing.T) {
	h, _ := resolverSetup(activeShop("demo.myshopify.com"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clips", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Shop domain required", body["error"])
	assert.Equal(t, "Try adding ?shop=demo.myshopify.com to your URL", body["hint"])
}

func TestShopAuthMissingShopNoInstalls(t *testing.T) {
	h, _ := resolverSetup()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clips", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Install the app first: /install?shop=your-shop.myshopify.com", body["hint"])
}

func TestShopAuthUnknownShop(t *testing.T) {
	h, _ := resolverSetup(activeShop("demo.myshopify.com"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clips?shop=ghost", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Shop not found", body["error"])
	assert.Equal(t, "ghost.myshopify.com", body["provided_domain"])
	assert.Equal(t, []any{"demo.myshopify.com"}, body["active_shops"])
	assert.Equal(t, "Did you mean ?shop=demo.myshopify.com", body["hint"])
}

type failingDirectory struct{}

func (failingDirectory) FindByDomain(context.Context, string) (*shop.Shop, error) {
	return nil, errors.New("connection refused")
}

func (failingDirectory) ActiveDomains(context.Context) ([]string, error) {
	return nil, errors.New("connection refused")
}

// An infrastructure failure must not masquerade as a missing shop.
func TestShopAuthLookupFailure(t *testing.T) {
	h := ShopAuth(testConfig(), failingDirectory{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clips?shop=demo", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Shop not found")
}

func TestShopAuthInactiveShop(t *testing.T) {
	inactive := activeShop("gone.myshopify.com")
	inactive.IsActive = false
	h, _ := resolverSetup(inactive)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clips?shop=gone", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Shop is inactive", body["error"])
	assert.Equal(t, "gone.myshopify.com", body["shop_domain"])
}

func TestVerifySignedRequestRejectsUnsigned(t *testing.T) {
	var failures []string
	h := VerifySignedRequest(testConfig(), func(surface string) {
		failures = append(failures, surface)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin?shop=demo", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{"admin"}, failures)
}
