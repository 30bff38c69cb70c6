package hotspot

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"popclips/internal/api"
	"popclips/internal/clip"
	"popclips/internal/shop"
	"popclips/pkg/config"
	"popclips/pkg/logger"
	"popclips/pkg/shopify"
)

type Handlers struct {
	repo  *Repository
	clips *clip.Repository
	cfg   config.Config
	log   logger.Sugared
}

func NewHandlers(repo *Repository, clips *clip.Repository, cfg config.Config, log logger.Sugared) *Handlers {
	return &Handlers{repo: repo, clips: clips, cfg: cfg, log: log}
}

// ClipRoutes nests under the clips subrouter, so {id} is the clip id here.
func (h *Handlers) ClipRoutes(r chi.Router) {
	r.Get("/{id}/hotspots", h.listForClip)
	r.Post("/{id}/hotspots", h.create)
	r.Get("/{id}/hotspots/{hotspotID}", h.get)
}

func (h *Handlers) Routes(r chi.Router) {
	r.Put("/hotspots/{id}", h.update)
	r.Delete("/hotspots/{id}", h.delete)
	r.Get("/products/search", h.searchProducts)
}

func (h *Handlers) adminClient(s *shop.Shop) shopify.Client {
	return shopify.Client{
		ShopDomain:  s.Domain,
		AccessToken: s.AccessToken,
		APIVersion:  h.cfg.Shopify.APIVersion,
	}
}

func (h *Handlers) listForClip(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	c, err := h.clips.FindByID(r.Context(), s.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeLookupError(w, err, h.log, s.Domain)
		return
	}

	hs, err := h.repo.ListForClip(r.Context(), c.ID)
	if err != nil {
		h.log.Errorw("list hotspots", "shop", s.Domain, "clip", c.ID, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to list hotspots")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"hotspots": hs})
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	c, err := h.clips.FindByID(r.Context(), s.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeLookupError(w, err, h.log, s.Domain)
		return
	}

	hs, err := h.repo.FindForShop(r.Context(), s.ID, chi.URLParam(r, "hotspotID"))
	if err != nil {
		writeLookupError(w, err, h.log, s.Domain)
		return
	}
	// The path binds the hotspot to a clip; a mismatch is a miss, not a leak.
	if hs.ClipID != c.ID {
		api.WriteError(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	api.WriteJSON(w, http.StatusOK, hs)
}

type createRequest struct {
	ProductID     string  `json:"shopify_product_id"`
	PositionX     float64 `json:"position_x"`
	PositionY     float64 `json:"position_y"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	AnimationType string  `json:"animation_type"`
}

func (req createRequest) validate() string {
	if strings.TrimSpace(req.ProductID) == "" {
		return "shopify_product_id is required"
	}
	if req.PositionX < 0 || req.PositionX > 100 || req.PositionY < 0 || req.PositionY > 100 {
		return "position_x and position_y must be between 0 and 100"
	}
	if req.StartTime < 0 {
		return "start_time must not be negative"
	}
	if req.EndTime <= req.StartTime {
		return "end_time must be greater than start_time"
	}
	if req.AnimationType != "" && !ValidAnimation(req.AnimationType) {
		return "animation_type must be one of pulse, static, bounce"
	}
	return ""
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	c, err := h.clips.FindByID(r.Context(), s.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeLookupError(w, err, h.log, s.Domain)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", msg)
		return
	}
	if req.AnimationType == "" {
		req.AnimationType = AnimationPulse
	}

	// Snapshot the product so the storefront payload is self contained.
	p, err := h.adminClient(s).GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.log.Warnw("product lookup", "shop", s.Domain, "product", req.ProductID, "err", err)
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "product not found on this shop")
		return
	}
	price, err := decimal.NewFromString(p.FirstPrice())
	if err != nil {
		price = decimal.Zero
	}

	created, err := h.repo.Create(r.Context(), &Hotspot{
		ClipID:          c.ID,
		ProductID:       strconv.FormatInt(p.ID, 10),
		ProductTitle:    p.Title,
		ProductHandle:   p.Handle,
		ProductImageURL: p.ImageSrc(),
		ProductPrice:    price,
		PositionX:       req.PositionX,
		PositionY:       req.PositionY,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		AnimationType:   req.AnimationType,
	})
	if err != nil {
		h.log.Errorw("create hotspot", "shop", s.Domain, "clip", c.ID, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to create hotspot")
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

type updateRequest struct {
	PositionX     *float64 `json:"position_x"`
	PositionY     *float64 `json:"position_y"`
	StartTime     *float64 `json:"start_time"`
	EndTime       *float64 `json:"end_time"`
	AnimationType *string  `json:"animation_type"`
	IsActive      *bool    `json:"is_active"`
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	id := chi.URLParam(r, "id")
	current, err := h.repo.FindForShop(r.Context(), s.ID, id)
	if err != nil {
		writeLookupError(w, err, h.log, s.Domain)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if (req.PositionX != nil && (*req.PositionX < 0 || *req.PositionX > 100)) ||
		(req.PositionY != nil && (*req.PositionY < 0 || *req.PositionY > 100)) {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "position_x and position_y must be between 0 and 100")
		return
	}
	if req.AnimationType != nil && !ValidAnimation(*req.AnimationType) {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "animation_type must be one of pulse, static, bounce")
		return
	}

	// The window check applies to the merged values, not each field alone.
	start, end := current.StartTime, current.EndTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	if start < 0 || end <= start {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "end_time must be greater than start_time")
		return
	}

	updated, err := h.repo.Update(r.Context(), s.ID, id, UpdateParams{
		PositionX:     req.PositionX,
		PositionY:     req.PositionY,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		AnimationType: req.AnimationType,
		IsActive:      req.IsActive,
	})
	if err != nil {
		writeLookupError(w, err, h.log, s.Domain)
		return
	}
	api.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	if err := h.repo.Delete(r.Context(), s.ID, chi.URLParam(r, "id")); err != nil {
		writeLookupError(w, err, h.log, s.Domain)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	products, err := h.adminClient(s).SearchProducts(r.Context(), query, 20)
	if err != nil {
		h.log.Errorw("product search", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusBadGateway, "shopify_error", "product search failed")
		return
	}

	type result struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Handle   string `json:"handle"`
		ImageURL string `json:"image_url"`
		Price    string `json:"price"`
	}
	out := make([]result, 0, len(products))
	for _, p := range products {
		out = append(out, result{
			ID:       p.ID,
			Title:    p.Title,
			Handle:   p.Handle,
			ImageURL: p.ImageSrc(),
			Price:    p.FirstPrice(),
		})
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"products": out})
}

func writeLookupError(w http.ResponseWriter, err error, log logger.Sugared, domain string) {
	if errors.Is(err, pgx.ErrNoRows) {
		api.WriteError(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}
	log.Errorw("hotspot lookup", "shop", domain, "err", err)
	api.WriteError(w, http.StatusInternalServerError, "internal", "lookup failed")
}
