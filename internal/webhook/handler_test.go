package webhook

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"popclips/internal/shop"
	"popclips/pkg/config"
)

type fakeShops struct {
	shops       map[string]*shop.Shop
	deactivated []string
	plans       map[string]string
	deleted     []string
}

func (f *fakeShops) FindByDomain(_ context.Context, domain string) (*shop.Shop, error) {
	if s, ok := f.shops[domain]; ok {
		return s, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeShops) UpdateProfile(_ context.Context, domain, name, email string) error {
	if s, ok := f.shops[domain]; ok {
		s.Name, s.Email = name, email
	}
	return nil
}

func (f *fakeShops) SetPlan(_ context.Context, shopID, plan string) error {
	f.plans[shopID] = plan
	return nil
}

func (f *fakeShops) Deactivate(_ context.Context, domain string) error {
	f.deactivated = append(f.deactivated, domain)
	if s, ok := f.shops[domain]; ok {
		s.IsActive = false
	}
	return nil
}

func (f *fakeShops) DeleteByDomain(_ context.Context, domain string) error {
	f.deleted = append(f.deleted, domain)
	delete(f.shops, domain)
	return nil
}

type fakeSubs struct {
	cancelled []string
}

func (f *fakeSubs) CancelActiveForShop(_ context.Context, shopID string) error {
	f.cancelled = append(f.cancelled, shopID)
	return nil
}

type fakeDeliveries struct {
	seen map[string]bool
}

func (f *fakeDeliveries) Record(_ context.Context, webhookID, _, _ string) error {
	if f.seen[webhookID] {
		return ErrDuplicateDelivery
	}
	f.seen[webhookID] = true
	return nil
}

func handlerSetup(shops ...*shop.Shop) (*Handler, *fakeShops, *fakeSubs) {
	fs := &fakeShops{shops: map[string]*shop.Shop{}, plans: map[string]string{}}
	for _, s := range shops {
		fs.shops[s.Domain] = s
	}
	subs := &fakeSubs{}
	h := &Handler{
		shops:      fs,
		subs:       subs,
		deliveries: &fakeDeliveries{seen: map[string]bool{}},
		cfg: config.Config{
			AppEnv: "test",
			Shopify: config.ShopifyConfig{
				APISecret:    "secret",
				DomainSuffix: "myshopify.com",
			},
		},
		log: zap.NewNop().Sugar(),
	}
	return h, fs, subs
}

func deliver(t *testing.T, h *Handler, topic, domain, webhookID string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(body))
	r.Header.Set("X-Shopify-Topic", topic)
	r.Header.Set("X-Shopify-Shop-Domain", domain)
	r.Header.Set("X-Shopify-Hmac-Sha256", webhookSign(body, "secret"))
	if webhookID != "" {
		r.Header.Set("X-Shopify-Webhook-Id", webhookID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestUninstallDeactivatesShop(t *testing.T) {
	h, fs, subs := handlerSetup(&shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true})

	rec := deliver(t, h, "app/uninstalled", "demo.myshopify.com", "wh-1", []byte(`{}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"demo.myshopify.com"}, fs.deactivated)
	assert.Equal(t, []string{"s1"}, subs.cancelled)
	assert.Equal(t, shop.PlanFree, fs.plans["s1"])
}

func TestUninstallRedeliveryAcksOnce(t *testing.T) {
	h, fs, _ := handlerSetup(&shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true})

	first := deliver(t, h, "app/uninstalled", "demo.myshopify.com", "wh-1", []byte(`{}`))
	second := deliver(t, h, "app/uninstalled", "demo.myshopify.com", "wh-1", []byte(`{}`))

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	// The dedup gate swallows the retry before the topic handler runs.
	assert.Equal(t, []string{"demo.myshopify.com"}, fs.deactivated)
}

func TestUninstallUnknownShopAcks(t *testing.T) {
	h, fs, _ := handlerSetup()

	rec := deliver(t, h, "app/uninstalled", "ghost.myshopify.com", "wh-1", []byte(`{}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Empty(t, fs.deactivated)
}

func TestMissingWebhookIDFallsBackToPayloadHash(t *testing.T) {
	h, fs, _ := handlerSetup(&shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true})

	body := []byte(`{"id":42}`)
	first := deliver(t, h, "app/uninstalled", "demo.myshopify.com", "", body)
	second := deliver(t, h, "app/uninstalled", "demo.myshopify.com", "", body)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, []string{"demo.myshopify.com"}, fs.deactivated)
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	h, fs, _ := handlerSetup(&shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true})

	body := []byte(`{}`)
	r := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(body))
	r.Header.Set("X-Shopify-Topic", "app/uninstalled")
	r.Header.Set("X-Shopify-Shop-Domain", "demo.myshopify.com")
	r.Header.Set("X-Shopify-Hmac-Sha256", webhookSign(body, "wrong-secret"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fs.deactivated)
}

func TestShopUpdateRefreshesProfile(t *testing.T) {
	s := &shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true}
	h, _, _ := handlerSetup(s)

	rec := deliver(t, h, "shop/update", "demo.myshopify.com", "wh-1",
		[]byte(`{"name":"Demo Renamed","email":"new@demo.test"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Demo Renamed", s.Name)
	assert.Equal(t, "new@demo.test", s.Email)
}

func TestShopRedactDeletesShop(t *testing.T) {
	h, fs, _ := handlerSetup(&shop.Shop{ID: "s1", Domain: "demo.myshopify.com", IsActive: true})

	rec := deliver(t, h, "shop/redact", "demo.myshopify.com", "wh-1", []byte(`{}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"demo.myshopify.com"}, fs.deleted)
}
