package analytics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"popclips/internal/api"
	"popclips/internal/clip"
	"popclips/pkg/logger"
)

type Handlers struct {
	repo  *Repository
	clips *clip.Repository
	log   logger.Sugared
}

func NewHandlers(repo *Repository, clips *clip.Repository, log logger.Sugared) *Handlers {
	return &Handlers{repo: repo, clips: clips, log: log}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Get("/overview", h.overview)
	r.Get("/views-over-time", h.viewsOverTime)
	r.Get("/top-clips", h.topClips)
	r.Get("/top-products", h.topProducts)
	r.Get("/clips/{clipID}", h.clipStats)
}

// days clamps the lookback window; the dashboard offers 7/30/90.
func days(r *http.Request) int {
	d, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || d < 1 || d > 365 {
		return 30
	}
	return d
}

// limitParam clamps the result cap; callers pick their own default.
func limitParam(r *http.Request, def, max int) int {
	l, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || l < 1 || l > max {
		return def
	}
	return l
}

func (h *Handlers) overview(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	o, err := h.repo.Overview(r.Context(), s.ID, days(r))
	if err != nil {
		h.log.Errorw("analytics overview", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load analytics")
		return
	}
	api.WriteJSON(w, http.StatusOK, o)
}

func (h *Handlers) viewsOverTime(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	series, err := h.repo.ViewsOverTime(r.Context(), s.ID, days(r))
	if err != nil {
		h.log.Errorw("views over time", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load analytics")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"series": series})
}

func (h *Handlers) topClips(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	top, err := h.repo.TopClips(r.Context(), s.ID, days(r), limitParam(r, 10, 50))
	if err != nil {
		h.log.Errorw("top clips", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load analytics")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"clips": top})
}

func (h *Handlers) topProducts(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	top, err := h.repo.TopProducts(r.Context(), s.ID, days(r), limitParam(r, 5, 50))
	if err != nil {
		h.log.Errorw("top products", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load analytics")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"products": top})
}

func (h *Handlers) clipStats(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	c, err := h.clips.FindByID(r.Context(), s.ID, chi.URLParam(r, "clipID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, "not_found", "clip not found")
			return
		}
		h.log.Errorw("clip lookup", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load analytics")
		return
	}

	d := days(r)
	stats, err := h.repo.ClipStats(r.Context(), c.ID, d)
	if err != nil {
		h.log.Errorw("clip stats", "shop", s.Domain, "clip", c.ID, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load analytics")
		return
	}
	hotspots, err := h.repo.HotspotStatsForClip(r.Context(), c.ID, d)
	if err != nil {
		h.log.Errorw("hotspot stats", "shop", s.Domain, "clip", c.ID, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load analytics")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"clip":     map[string]any{"id": c.ID, "title": c.Title},
		"stats":    stats,
		"hotspots": hotspots,
	})
}
