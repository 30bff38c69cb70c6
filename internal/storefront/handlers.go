package storefront

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"popclips/internal/analytics"
	"popclips/internal/api"
	"popclips/internal/carousel"
	"popclips/internal/clip"
	"popclips/internal/hotspot"
	"popclips/internal/metrics"
	"popclips/pkg/db"
	"popclips/pkg/logger"
)

// Handlers serve the widget embedded in merchant storefronts. Responses are
// self contained: the widget never talks to Shopify directly.
type Handlers struct {
	pool      *pgxpool.Pool
	clips     *clip.Repository
	carousels *carousel.Repository
	hotspots  *hotspot.Repository
	log       logger.Sugared
}

func NewHandlers(pool *pgxpool.Pool, clips *clip.Repository, carousels *carousel.Repository, hotspots *hotspot.Repository, log logger.Sugared) *Handlers {
	return &Handlers{pool: pool, clips: clips, carousels: carousels, hotspots: hotspots, log: log}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Get("/carousel", h.carousel)
	r.Get("/clips/{id}", h.clip)
	r.Post("/track", h.track)
}

// carousel resolves which carousel to render, in priority order:
// an explicit ?carousel_id=, then a custom carousel configured for the
// ?location= placement, then the standard carousel.
func (h *Handlers) carousel(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	var (
		ca  *carousel.Carousel
		err error
	)
	if id := strings.TrimSpace(r.URL.Query().Get("carousel_id")); id != "" {
		ca, err = h.carousels.FindByID(r.Context(), s.ID, id)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			h.serverError(w, "carousel lookup", s.Domain, err)
			return
		}
	}
	if ca == nil {
		location := strings.TrimSpace(r.URL.Query().Get("location"))
		if location == "" {
			location = "all"
		}
		ca, err = h.carousels.FindActiveForLocation(r.Context(), s.ID, location)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			h.serverError(w, "carousel lookup", s.Domain, err)
			return
		}
	}
	if ca == nil {
		ca, err = h.carousels.EnsureStandard(r.Context(), s.ID)
		if err != nil {
			h.serverError(w, "standard carousel", s.Domain, err)
			return
		}
	}

	var clips []*clip.Clip
	if ca.Type == carousel.TypeStandard {
		clips, err = h.clips.ListPublished(r.Context(), s.ID)
	} else {
		clips, err = h.clips.ListForCarousel(r.Context(), ca.ID)
	}
	if err != nil {
		h.serverError(w, "carousel clips", s.Domain, err)
		return
	}

	clipIDs := make([]string, len(clips))
	for i, c := range clips {
		clipIDs[i] = c.ID
	}
	hotspots, err := h.hotspots.ListActiveForClips(r.Context(), clipIDs)
	if err != nil {
		h.serverError(w, "carousel hotspots", s.Domain, err)
		return
	}

	payload := make([]clipView, 0, len(clips))
	for _, c := range clips {
		payload = append(payload, newClipView(c, hotspots[c.ID]))
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"carousel": map[string]any{
			"id":   ca.ID,
			"name": ca.Name,
			"type": ca.Type,
		},
		"clips":    payload,
		"settings": displaySettings(s, ca),
	})
}

func (h *Handlers) clip(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	c, err := h.clips.FindPublished(r.Context(), s.ID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, "not_found", "clip not found")
			return
		}
		h.serverError(w, "clip lookup", s.Domain, err)
		return
	}

	hs, err := h.hotspots.ListActiveForClips(r.Context(), []string{c.ID})
	if err != nil {
		h.serverError(w, "clip hotspots", s.Domain, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"clip":     newClipView(c, hs[c.ID]),
		"settings": displaySettings(s, nil),
	})
}

type trackRequest struct {
	EventType  string         `json:"event_type"`
	ClipID     string         `json:"clip_id"`
	HotspotID  string         `json:"hotspot_id"`
	SessionID  string         `json:"session_id"`
	VisitorID  string         `json:"visitor_id"`
	ProductID  string         `json:"product_id"`
	DeviceType string         `json:"device_type"`
	Browser    string         `json:"browser"`
	Country    string         `json:"country"`
	Metadata   map[string]any `json:"metadata"`
}

// counterEvents maps events to the denormalized clip counter they bump.
var counterEvents = map[string]string{
	analytics.EventClipView: "views",
	analytics.EventLike:     "likes",
	analytics.EventShare:    "shares",
}

func (h *Handlers) track(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if !analytics.ValidEventType(req.EventType) {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "unknown event_type")
		return
	}

	ev := analytics.Event{
		ShopID:     s.ID,
		EventType:  req.EventType,
		SessionID:  req.SessionID,
		VisitorID:  req.VisitorID,
		ProductID:  req.ProductID,
		DeviceType: req.DeviceType,
		Browser:    req.Browser,
		Country:    req.Country,
		Metadata:   req.Metadata,
	}

	// Only accept references the shop actually owns; a forged ID from the
	// storefront must not touch another tenant's rows.
	if req.ClipID != "" {
		c, err := h.clips.FindByID(r.Context(), s.ID, req.ClipID)
		if err != nil {
			api.WriteError(w, http.StatusUnprocessableEntity, "validation", "unknown clip_id")
			return
		}
		ev.ClipID = &c.ID
	}
	if req.HotspotID != "" {
		hs, err := h.hotspots.FindForShop(r.Context(), s.ID, req.HotspotID)
		if err != nil {
			api.WriteError(w, http.StatusUnprocessableEntity, "validation", "unknown hotspot_id")
			return
		}
		ev.HotspotID = &hs.ID
	}

	err := db.WithTx(r.Context(), h.pool, func(tx pgx.Tx) error {
		if err := analytics.Insert(r.Context(), tx, ev); err != nil {
			return err
		}
		if counter, ok := counterEvents[req.EventType]; ok && ev.ClipID != nil {
			if err := clip.IncrementCounter(r.Context(), tx, *ev.ClipID, counter); err != nil {
				return err
			}
		}
		if req.EventType == analytics.EventHotspotClick && ev.HotspotID != nil {
			if err := hotspot.IncrementClicks(r.Context(), tx, *ev.HotspotID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.serverError(w, "track event", s.Domain, err)
		return
	}

	metrics.StorefrontEvents.WithLabelValues(req.EventType).Inc()
	api.WriteJSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (h *Handlers) serverError(w http.ResponseWriter, op, domain string, err error) {
	h.log.Errorw(op, "shop", domain, "err", err)
	api.WriteError(w, http.StatusInternalServerError, "internal", "request failed")
}
