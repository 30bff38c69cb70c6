package storefront

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

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popclips/internal/api"
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
	return nil, nil
}

func proxyConfig() config.Config {
	return config.Config{
		Shopify: config.ShopifyConfig{
			APISecret:    "proxy-secret",
			DomainSuffix: "myshopify.com",
		},
	}
}

// proxySign builds the app-proxy signature: sorted keys, concatenated with
// no separator, multi-values comma-joined.
func proxySign(values url.Values, secret string) string {
	var keys []string
	for k := range values {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + "=" + strings.Join(values[k], ","))
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func proxySetup(shops ...*shop.Shop) http.Handler {
	dir := &fakeDirectory{shops: map[string]*shop.Shop{}}
	for _, s := range shops {
		dir.shops[s.Domain] = s
	}
	return Proxy(proxyConfig(), dir)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := api.ShopFromContext(r.Context())
		api.WriteJSON(w, http.StatusOK, map[string]string{"shop": s.Domain})
	}))
}

func TestProxyAcceptsSignedRequest(t *testing.T) {
	h := proxySetup(&shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true})

	q := url.Values{}
	q.Set("shop", "demo.myshopify.com")
	q.Set("path_prefix", "/apps/popclips")
	q.Set("timestamp", "1700000000")
	q.Set("signature", proxySign(q, "proxy-secret"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/storefront/carousel?"+q.Encode(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "demo.myshopify.com")
}

func TestProxyRejectsBadSignature(t *testing.T) {
	h := proxySetup(&shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true})

	q := url.Values{}
	q.Set("shop", "demo.myshopify.com")
	q.Set("signature", proxySign(q, "proxy-secret"))
	q.Set("extra", "injected")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/storefront/carousel?"+q.Encode(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProxyRejectsMissingSignature(t *testing.T) {
	h := proxySetup(&shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/storefront/carousel?shop=demo.myshopify.com", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProxyUnknownShop(t *testing.T) {
	h := proxySetup()

	q := url.Values{}
	q.Set("shop", "ghost.myshopify.com")
	q.Set("signature", proxySign(q, "proxy-secret"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/storefront/carousel?"+q.Encode(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// A valid signature proves Shopify routed the request, so even a shop mid
// uninstall still gets its context attached here.
func TestProxyAttachesInactiveShop(t *testing.T) {
	h := proxySetup(&shop.Shop{ID: "s1", Domain: "gone.myshopify.com", IsActive: false})

	q := url.Values{}
	q.Set("shop", "gone.myshopify.com")
	q.Set("signature", proxySign(q, "proxy-secret"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/storefront/carousel?"+q.Encode(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gone.myshopify.com")
}
