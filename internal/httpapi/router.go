package httpapi

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"popclips/internal/analytics"
	"popclips/internal/api"
	"popclips/internal/auth"
	"popclips/internal/carousel"
	"popclips/internal/clip"
	"popclips/internal/files"
	"popclips/internal/hotspot"
	"popclips/internal/metrics"
	"popclips/internal/shop"
	"popclips/internal/storefront"
	"popclips/internal/subscription"
	"popclips/internal/webhook"
	"popclips/pkg/config"
	"popclips/pkg/logger"
	"popclips/pkg/shopify"
)

// webhookTopics are registered with Shopify after every install. GDPR topics
// are configured in the Partner dashboard, not via the API.
var webhookTopics = []string{
	"app/uninstalled",
	"shop/update",
	"orders/paid",
}

// New builds the full route tree with all handlers wired to the pool.
func New(cfg config.Config, log logger.Sugared, pool *pgxpool.Pool) http.Handler {
	shops := shop.NewRepository(pool)
	clips := clip.NewRepository(pool)
	carousels := carousel.NewRepository(pool)
	hotspots := hotspot.NewRepository(pool)
	analyticsRepo := analytics.NewRepository(pool)
	subs := subscription.NewRepository(pool)

	exchanger := shopify.OAuthExchanger{
		APIKey:     cfg.Shopify.APIKey,
		APISecret:  cfg.Shopify.APISecret,
		APIVersion: cfg.Shopify.APIVersion,
	}
	states := auth.NewStateStore(0)

	postInstall := func(ctx context.Context, s *shop.Shop) {
		if _, err := carousels.EnsureStandard(ctx, s.ID); err != nil {
			log.Errorw("ensure standard carousel", "shop", s.Domain, "err", err)
		}
		client := shopify.Client{
			ShopDomain:  s.Domain,
			AccessToken: s.AccessToken,
			APIVersion:  cfg.Shopify.APIVersion,
		}
		for _, topic := range webhookTopics {
			address := cfg.PublicBaseURL + "/webhooks"
			if err := client.CreateWebhook(ctx, topic, address); err != nil {
				// Re-registration of an existing webhook fails with 422; safe
				// to keep going.
				log.Warnw("webhook registration", "shop", s.Domain, "topic", topic, "err", err)
			}
		}
	}

	oauthHandlers := api.NewOAuthHandlers(cfg, exchanger, shops, states, postInstall, log)
	clipHandlers := clip.NewHandlers(clips, func(ctx context.Context, clipIDs []string) (any, error) {
		return hotspots.ListActiveForClips(ctx, clipIDs)
	}, log)
	hotspotHandlers := hotspot.NewHandlers(hotspots, clips, cfg, log)
	carouselHandlers := carousel.NewHandlers(carousels, clips, log)
	analyticsHandlers := analytics.NewHandlers(analyticsRepo, clips, log)
	subHandlers := subscription.NewHandlers(subs, shops, clips, carousels, cfg, log)
	fileHandlers := files.NewHandlers(cfg, log)
	storefrontHandlers := storefront.NewHandlers(pool, clips, carousels, hotspots, log)
	webhookHandler := webhook.NewHandler(pool, shops, subs, cfg, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			api.WriteError(w, http.StatusServiceUnavailable, "unhealthy", "database unreachable")
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// OAuth and billing browser flows.
	r.Get("/install", oauthHandlers.Install)
	r.Get("/auth/callback", oauthHandlers.Callback)
	r.Get("/error", oauthHandlers.ErrorPage)
	r.Get("/subscription/callback", subHandlers.Callback)

	// The embedded admin entry: Shopify loads this with a signed query, and
	// only a valid signature gets the shell.
	r.With(
		api.VerifySignedRequest(cfg, func(surface string) {
			metrics.SignatureFailures.WithLabelValues(surface).Inc()
		}),
		api.ShopAuth(cfg, shops),
	).Get("/admin", adminPage)

	// Admin JSON API, called by the embedded UI with a session token.
	r.Route("/v1", func(r chi.Router) {
		r.Use(api.CORSMiddleware(api.CORSOptions{AllowedOrigins: cfg.AdminAllowedOrigins}))
		r.Use(api.ShopAuth(cfg, shops))

		r.Route("/clips", func(r chi.Router) {
			clipHandlers.Routes(r)
			hotspotHandlers.ClipRoutes(r)
		})
		hotspotHandlers.Routes(r)
		r.Route("/carousels", carouselHandlers.Routes)
		r.Route("/analytics", analyticsHandlers.Routes)
		r.Route("/subscription", subHandlers.Routes)
		r.Route("/files", fileHandlers.Routes)
	})

	// Storefront widget endpoints behind the Shopify app proxy.
	r.Route("/v1/storefront", func(r chi.Router) {
		r.Use(storefront.Proxy(cfg, shops))
		storefrontHandlers.Routes(r)
	})

	r.Post("/webhooks", webhookHandler.ServeHTTP)

	return r
}

func adminPage(w http.ResponseWriter, r *http.Request) {
	s, _ := api.ShopFromContext(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w,
		`<!doctype html><title>Popclips</title><div id="app" data-shop="%s"></div>`,
		html.EscapeString(s.Domain))
}
