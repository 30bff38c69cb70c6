package subscription

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"popclips/internal/api"
	"popclips/internal/auth"
	"popclips/internal/carousel"
	"popclips/internal/clip"
	"popclips/internal/shop"
	"popclips/pkg/config"
	"popclips/pkg/logger"
	"popclips/pkg/shopify"
)

type Handlers struct {
	repo      *Repository
	shops     *shop.Repository
	clips     *clip.Repository
	carousels *carousel.Repository
	cfg       config.Config
	log       logger.Sugared
}

func NewHandlers(repo *Repository, shops *shop.Repository, clips *clip.Repository, carousels *carousel.Repository, cfg config.Config, log logger.Sugared) *Handlers {
	return &Handlers{repo: repo, shops: shops, clips: clips, carousels: carousels, cfg: cfg, log: log}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.current)
	r.Post("/upgrade", h.upgrade)
	r.Post("/cancel", h.cancel)
}

func (h *Handlers) adminClient(s *shop.Shop) shopify.Client {
	return shopify.Client{
		ShopDomain:  s.Domain,
		AccessToken: s.AccessToken,
		APIVersion:  h.cfg.Shopify.APIVersion,
	}
}

func (h *Handlers) current(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	uploads, err := h.clips.CountThisMonth(r.Context(), s.ID)
	if err != nil {
		h.log.Errorw("count uploads", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load subscription")
		return
	}
	customCarousels, err := h.carousels.CountCustom(r.Context(), s.ID)
	if err != nil {
		h.log.Errorw("count carousels", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load subscription")
		return
	}

	body := map[string]any{
		"plan":     s.Plan,
		"features": PlanFeatures(s.IsPro()),
		"usage": map[string]any{
			"uploads_this_month": uploads,
			"upload_limit":       clip.MonthlyUploadLimit(s.IsPro()),
			"custom_carousels":   customCarousels,
		},
	}
	if sub, err := h.repo.FindActive(r.Context(), s.ID); err == nil {
		body["subscription"] = sub
	}
	api.WriteJSON(w, http.StatusOK, body)
}

func (h *Handlers) upgrade(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}
	if s.IsPro() {
		api.WriteError(w, http.StatusBadRequest, "already_pro", "This shop is already on the Pro plan.")
		return
	}

	returnURL := fmt.Sprintf("%s/subscription/callback?shop=%s",
		strings.TrimRight(h.cfg.PublicBaseURL, "/"), url.QueryEscape(s.Domain))

	// Test charges outside production so review stores never get billed.
	charge, err := h.adminClient(s).CreateRecurringCharge(
		r.Context(), ProChargeName, ProPrice, returnURL, h.cfg.AppEnv != "prod")
	if err != nil {
		h.log.Errorw("create charge", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusBadGateway, "shopify_error", "failed to create charge")
		return
	}

	if _, err := h.repo.CreatePending(r.Context(), s.ID, PlanPro,
		strconv.FormatInt(charge.ID, 10), ProPrice.StringFixed(2)); err != nil {
		h.log.Errorw("record pending subscription", "shop", s.Domain, "charge", charge.ID, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to record subscription")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"confirmation_url": charge.ConfirmationURL,
	})
}

// Callback lands the merchant back from Shopify's charge confirmation page.
// It is a top level browser redirect, not an admin API call, so it resolves
// the shop from the query itself and answers with redirects.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	domain := auth.NormalizeShopDomain(r.URL.Query().Get("shop"), h.cfg.Shopify.DomainSuffix)
	chargeID := strings.TrimSpace(r.URL.Query().Get("charge_id"))
	adminURL := fmt.Sprintf("%s/admin?shop=%s", strings.TrimRight(h.cfg.PublicBaseURL, "/"), url.QueryEscape(domain))

	if domain == "" || chargeID == "" {
		http.Redirect(w, r, adminURL+"&billing=error", http.StatusFound)
		return
	}

	s, err := h.shops.FindByDomain(r.Context(), domain)
	if err != nil {
		http.Redirect(w, r, adminURL+"&billing=error", http.StatusFound)
		return
	}

	sub, err := h.repo.FindByChargeID(r.Context(), s.ID, chargeID)
	if err != nil {
		h.log.Warnw("charge callback for unknown subscription", "shop", domain, "charge", chargeID)
		http.Redirect(w, r, adminURL+"&billing=error", http.StatusFound)
		return
	}

	charge, err := h.adminClient(s).GetRecurringCharge(r.Context(), chargeID)
	if err != nil {
		h.log.Errorw("fetch charge", "shop", domain, "charge", chargeID, "err", err)
		http.Redirect(w, r, adminURL+"&billing=error", http.StatusFound)
		return
	}

	switch charge.Status {
	case "active", "accepted":
		if _, err := h.repo.Activate(r.Context(), sub.ID); err != nil {
			h.log.Errorw("activate subscription", "shop", domain, "err", err)
			http.Redirect(w, r, adminURL+"&billing=error", http.StatusFound)
			return
		}
		if err := h.shops.SetPlan(r.Context(), s.ID, shop.PlanPro); err != nil {
			h.log.Errorw("set plan", "shop", domain, "err", err)
			http.Redirect(w, r, adminURL+"&billing=error", http.StatusFound)
			return
		}
		h.log.Infow("subscription activated", "shop", domain, "charge", chargeID)
		http.Redirect(w, r, adminURL+"&billing=success", http.StatusFound)
	default:
		_ = h.repo.MarkDeclined(r.Context(), sub.ID)
		h.log.Infow("subscription declined", "shop", domain, "charge", chargeID, "status", charge.Status)
		http.Redirect(w, r, adminURL+"&billing=declined", http.StatusFound)
	}
}

func (h *Handlers) cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	sub, err := h.repo.FindActive(r.Context(), s.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, "not_found", "no active subscription")
			return
		}
		h.log.Errorw("find subscription", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to cancel subscription")
		return
	}

	if sub.ShopifyChargeID != "" {
		if err := h.adminClient(s).CancelRecurringCharge(r.Context(), sub.ShopifyChargeID); err != nil {
			// Shopify already cancels charges on uninstall; log and continue.
			h.log.Warnw("cancel charge", "shop", s.Domain, "charge", sub.ShopifyChargeID, "err", err)
		}
	}

	if _, err := h.repo.Cancel(r.Context(), sub.ID); err != nil {
		h.log.Errorw("cancel subscription", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to cancel subscription")
		return
	}
	if err := h.shops.SetPlan(r.Context(), s.ID, shop.PlanFree); err != nil {
		h.log.Errorw("set plan", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to cancel subscription")
		return
	}

	h.log.Infow("subscription cancelled", "shop", s.Domain)
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "plan": shop.PlanFree})
}
