package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"popclips/internal/auth"
	"popclips/internal/shop"
	"popclips/pkg/config"
	"popclips/pkg/shopify"
)

// ShopDirectory is the subset of the shop repository the resolver needs.
type ShopDirectory interface {
	FindByDomain(ctx context.Context, domain string) (*shop.Shop, error)
	ActiveDomains(ctx context.Context) ([]string, error)
}

// ShopAuth resolves the tenant for admin API requests.
//
// Identity sources, in strict priority order:
//  1. `?shop=` query parameter
//  2. `X-Shop-Domain` header; an embedded session token in the Authorization
//     header supplies this slot when the plain header is absent
//  3. signed session cookie written back on earlier successful resolution
//
// Resolver failures are deliberately rich: shop identity errors target the
// merchant or developer debugging an embedded-app URL, not an attacker, so
// they carry hints the admin UI renders for self-service recovery.
func ShopAuth(cfg config.Config, shops ShopDirectory) func(http.Handler) http.Handler {
	secret := cfg.Shopify.APISecret
	secure := cfg.AppEnv == "prod"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			domain, explicit := shopIdentity(r, cfg)

			if domain == "" {
				writeShopRequired(w, r, shops)
				return
			}
			domain = auth.NormalizeShopDomain(domain, cfg.Shopify.DomainSuffix)

			s, err := shops.FindByDomain(r.Context(), domain)
			if errors.Is(err, pgx.ErrNoRows) {
				writeShopNotFound(w, r, shops, domain)
				return
			}
			if err != nil {
				WriteError(w, http.StatusInternalServerError, "internal", "shop lookup failed")
				return
			}
			if !s.IsActive {
				WriteJSON(w, http.StatusUnauthorized, map[string]any{
					"error":       "Shop is inactive",
					"message":     "This shop exists but is currently inactive",
					"shop_domain": domain,
				})
				return
			}

			// An explicit source overwrites whatever the cookie remembered.
			if explicit || ShopFromCookie(r, secret) != domain {
				SetShopCookie(w, domain, secret, secure)
			}

			next.ServeHTTP(w, r.WithContext(WithShop(r.Context(), s)))
		})
	}
}

// shopIdentity returns the claimed shop domain and whether it came from an
// explicit source (query/header/token) rather than the session cookie.
func shopIdentity(r *http.Request, cfg config.Config) (string, bool) {
	if shop := strings.TrimSpace(r.URL.Query().Get("shop")); shop != "" {
		return shop, true
	}
	if shop := strings.TrimSpace(r.Header.Get("X-Shop-Domain")); shop != "" {
		return shop, true
	}
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		token := strings.TrimSpace(authz[7:])
		if vs, err := shopify.VerifySessionToken(token, cfg.Shopify.APIKey, cfg.Shopify.APISecret, time.Now()); err == nil {
			return vs.ShopDomain, true
		}
	}
	return ShopFromCookie(r, cfg.Shopify.APISecret), false
}

func writeShopRequired(w http.ResponseWriter, r *http.Request, shops ShopDirectory) {
	hint := "Install the app first: /install?shop=your-shop.myshopify.com"
	if domains, err := shops.ActiveDomains(r.Context()); err == nil && len(domains) > 0 {
		hint = fmt.Sprintf("Try adding ?shop=%s to your URL", domains[0])
	}
	WriteJSON(w, http.StatusUnauthorized, map[string]any{
		"error":   "Shop domain required",
		"message": "Provide a shop domain via the ?shop query parameter or the X-Shop-Domain header",
		"hint":    hint,
	})
}

func writeShopNotFound(w http.ResponseWriter, r *http.Request, shops ShopDirectory, domain string) {
	domains, _ := shops.ActiveDomains(r.Context())
	if domains == nil {
		domains = []string{}
	}
	body := map[string]any{
		"error":           "Shop not found",
		"message":         fmt.Sprintf("No shop found with domain: %s", domain),
		"provided_domain": domain,
		"active_shops":    domains,
	}
	if len(domains) > 0 {
		body["hint"] = fmt.Sprintf("Did you mean ?shop=%s", domains[0])
	}
	WriteJSON(w, http.StatusNotFound, body)
}

// VerifySignedRequest gates admin API routes behind the query HMAC Shopify
// attaches to embedded-admin requests. Failure text is generic on purpose.
func VerifySignedRequest(cfg config.Config, onFailure func(surface string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.VerifyRequestHMAC(r.URL.Query(), cfg.Shopify.APISecret) {
				if onFailure != nil {
					onFailure("admin")
				}
				WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid request signature"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
