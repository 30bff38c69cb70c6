package api

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"popclips/internal/auth"
	"popclips/internal/metrics"
	"popclips/internal/shop"
	"popclips/pkg/config"
	"popclips/pkg/logger"
	"popclips/pkg/shopify"
)

// TokenExchanger is the OAuth surface of the Shopify client, narrowed for
// tests.
type TokenExchanger interface {
	ExchangeCodeForToken(ctx context.Context, shopDomain, code string) (string, error)
	GetShopInfo(ctx context.Context, shopDomain, accessToken string) (*shopify.ShopInfo, error)
}

// ShopInstaller persists the result of a completed OAuth flow.
type ShopInstaller interface {
	UpsertInstall(ctx context.Context, domain, name, email, accessToken string, scopes []string) (*shop.Shop, error)
}

// PostInstall runs setup after the shop record exists (standard carousel,
// webhook registration). Failures are logged, never fatal to the install.
type PostInstall func(ctx context.Context, s *shop.Shop)

type OAuthHandlers struct {
	cfg         config.Config
	exchanger   TokenExchanger
	shops       ShopInstaller
	states      *auth.StateStore
	postInstall PostInstall
	log         logger.Sugared
}

func NewOAuthHandlers(cfg config.Config, exchanger TokenExchanger, shops ShopInstaller, states *auth.StateStore, postInstall PostInstall, log logger.Sugared) *OAuthHandlers {
	return &OAuthHandlers{
		cfg:         cfg,
		exchanger:   exchanger,
		shops:       shops,
		states:      states,
		postInstall: postInstall,
		log:         log,
	}
}

// Install starts the OAuth flow: validate the shop, mint a state nonce and
// send the merchant to Shopify's consent screen.
func (h *OAuthHandlers) Install(w http.ResponseWriter, r *http.Request) {
	domain := auth.NormalizeShopDomain(r.URL.Query().Get("shop"), h.cfg.Shopify.DomainSuffix)
	if !auth.ValidShopDomain(domain) {
		WriteError(w, http.StatusBadRequest, "invalid_shop",
			"Provide a valid shop, e.g. ?shop=your-shop.myshopify.com")
		return
	}

	state := h.states.Issue(domain)
	metrics.Installs.WithLabelValues("started").Inc()

	q := url.Values{}
	q.Set("client_id", h.cfg.Shopify.APIKey)
	q.Set("scope", h.cfg.Shopify.Scopes)
	q.Set("redirect_uri", h.cfg.Shopify.RedirectURL)
	q.Set("state", state)

	authorizeURL := fmt.Sprintf("https://%s/admin/oauth/authorize?%s", domain, q.Encode())
	h.log.Infow("install started", "shop", domain)
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// Callback completes the OAuth flow. Every failure redirects to the error
// page rather than rendering JSON, since the caller is a merchant's browser.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	domain := auth.NormalizeShopDomain(query.Get("shop"), h.cfg.Shopify.DomainSuffix)

	fail := func(reason, logMsg string, kv ...any) {
		metrics.Installs.WithLabelValues("failed").Inc()
		h.log.Warnw(logMsg, append([]any{"shop", domain}, kv...)...)
		http.Redirect(w, r, "/error?message="+url.QueryEscape(reason), http.StatusFound)
	}

	if !auth.ValidShopDomain(domain) {
		fail("Invalid shop domain", "callback with invalid shop")
		return
	}

	// The HMAC must be checked before anything in the query is trusted,
	// including the state.
	if !auth.VerifyRequestHMAC(query, h.cfg.Shopify.APISecret) {
		metrics.SignatureFailures.WithLabelValues("oauth").Inc()
		fail("Invalid request signature", "callback hmac verification failed")
		return
	}

	if !h.states.Consume(query.Get("state"), domain) {
		fail("Install session expired, please try again", "callback state mismatch")
		return
	}

	code := query.Get("code")
	if code == "" {
		fail("Missing authorization code", "callback without code")
		return
	}

	token, err := h.exchanger.ExchangeCodeForToken(r.Context(), domain, code)
	if err != nil {
		fail("Could not complete installation", "token exchange failed", "err", err)
		return
	}

	// Shop metadata is a nicety; an empty profile is filled by the next
	// shop/update webhook.
	var name, email string
	if info, err := h.exchanger.GetShopInfo(r.Context(), domain, token); err == nil {
		name, email = info.Name, info.Email
	} else {
		h.log.Warnw("shop info fetch failed", "shop", domain, "err", err)
	}

	scopes := strings.Split(h.cfg.Shopify.Scopes, ",")
	for i := range scopes {
		scopes[i] = strings.TrimSpace(scopes[i])
	}

	s, err := h.shops.UpsertInstall(r.Context(), domain, name, email, token, scopes)
	if err != nil {
		fail("Could not complete installation", "shop upsert failed", "err", err)
		return
	}

	if h.postInstall != nil {
		h.postInstall(r.Context(), s)
	}

	metrics.Installs.WithLabelValues("completed").Inc()
	h.log.Infow("install completed", "shop", domain)

	SetShopCookie(w, domain, h.cfg.Shopify.APISecret, h.cfg.AppEnv == "prod")
	http.Redirect(w, r, "/admin?shop="+url.QueryEscape(domain), http.StatusFound)
}

// ErrorPage renders install/billing failures for the merchant's browser.
func (h *OAuthHandlers) ErrorPage(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("message")
	if msg == "" {
		msg = "Something went wrong"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!doctype html><title>Popclips</title><h1>Installation error</h1><p>%s</p>`,
		html.EscapeString(msg))
}
