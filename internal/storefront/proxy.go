package storefront

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"popclips/internal/api"
	"popclips/internal/auth"
	"popclips/internal/metrics"
	"popclips/pkg/config"
)

// Proxy guards the app-proxy surface. Shopify forwards storefront requests
// with a signature over the query string; anything that fails verification
// never reaches a handler. The shop is taken from the verified query, so the
// admin resolver's fallback chain does not apply here. Active-state checks
// stay out of this layer: the signature already proves Shopify routed the
// request, and an uninstalling shop's storefront may still be serving cached
// pages that call back here.
func Proxy(cfg config.Config, shops api.ShopDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.VerifyProxySignature(r.URL.Query(), cfg.Shopify.APISecret) {
				metrics.SignatureFailures.WithLabelValues("proxy").Inc()
				api.WriteError(w, http.StatusUnauthorized, "invalid_signature", "invalid proxy signature")
				return
			}

			domain := auth.NormalizeShopDomain(r.URL.Query().Get("shop"), cfg.Shopify.DomainSuffix)
			if domain == "" {
				api.WriteError(w, http.StatusBadRequest, "bad_request", "missing shop parameter")
				return
			}
			s, err := shops.FindByDomain(r.Context(), domain)
			if errors.Is(err, pgx.ErrNoRows) {
				api.WriteError(w, http.StatusNotFound, "not_found", "shop not found")
				return
			}
			if err != nil {
				api.WriteError(w, http.StatusInternalServerError, "internal", "shop lookup failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(api.WithShop(r.Context(), s)))
		})
	}
}
