package carousel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"popclips/internal/api"
	"popclips/internal/clip"
	"popclips/internal/shop"
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
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/clips", h.addClips)
	r.Delete("/{id}/clips/{clipID}", h.removeClip)
	r.Put("/{id}/reorder", h.reorder)
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	// Older installs predate the auto created standard carousel.
	if _, err := h.repo.EnsureStandard(r.Context(), s.ID); err != nil {
		h.log.Errorw("ensure standard carousel", "shop", s.Domain, "err", err)
	}

	cs, err := h.repo.List(r.Context(), s.ID)
	if err != nil {
		h.log.Errorw("list carousels", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to list carousels")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"carousels": cs})
}

type createRequest struct {
	Name     string          `json:"name"`
	Settings json.RawMessage `json:"settings"`
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}
	if !s.IsPro() {
		api.WriteError(w, http.StatusForbidden, "pro_required",
			"Custom carousels are a Pro feature. Upgrade to create them.")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "name is required")
		return
	}

	n, err := h.repo.CountCustom(r.Context(), s.ID)
	if err != nil {
		h.log.Errorw("count custom carousels", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to create carousel")
		return
	}
	if n >= MaxCustomCarousels {
		api.WriteError(w, http.StatusForbidden, "carousel_limit_reached",
			fmt.Sprintf("You can have at most %d custom carousels.", MaxCustomCarousels))
		return
	}

	c, err := h.repo.CreateCustom(r.Context(), s.ID, req.Name, req.Settings)
	if err != nil {
		h.log.Errorw("create carousel", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to create carousel")
		return
	}
	api.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	c, err := h.repo.FindByID(r.Context(), s.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err, s.Domain)
		return
	}

	var clips []*clip.Clip
	if c.Type == TypeStandard {
		clips, err = h.clips.ListPublished(r.Context(), s.ID)
	} else {
		clips, err = h.clips.ListForCarousel(r.Context(), c.ID)
	}
	if err != nil {
		h.log.Errorw("carousel clips", "shop", s.Domain, "carousel", c.ID, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to load carousel")
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{"carousel": c, "clips": clips})
}

type updateRequest struct {
	Name     *string         `json:"name"`
	Settings json.RawMessage `json:"settings"`
	IsActive *bool           `json:"is_active"`
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Name != nil {
		n := strings.TrimSpace(*req.Name)
		if n == "" {
			api.WriteError(w, http.StatusUnprocessableEntity, "validation", "name must not be empty")
			return
		}
		req.Name = &n
	}

	c, err := h.repo.Update(r.Context(), s.ID, chi.URLParam(r, "id"), UpdateParams{
		Name:     req.Name,
		Settings: req.Settings,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.writeLookupError(w, err, s.Domain)
		return
	}
	api.WriteJSON(w, http.StatusOK, c)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	id := chi.URLParam(r, "id")
	c, err := h.repo.FindByID(r.Context(), s.ID, id)
	if err != nil {
		h.writeLookupError(w, err, s.Domain)
		return
	}
	if c.Type == TypeStandard {
		api.WriteError(w, http.StatusForbidden, "standard_carousel",
			"The standard carousel cannot be deleted.")
		return
	}

	if err := h.repo.DeleteCustom(r.Context(), s.ID, id); err != nil {
		h.writeLookupError(w, err, s.Domain)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

type addClipsRequest struct {
	ClipIDs []string `json:"clip_ids"`
}

func (h *Handlers) addClips(w http.ResponseWriter, r *http.Request) {
	s, c, ok := h.customCarousel(w, r)
	if !ok {
		return
	}

	var req addClipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ClipIDs) == 0 {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "clip_ids is required")
		return
	}

	if err := h.repo.AddClips(r.Context(), s.ID, c.ID, req.ClipIDs); err != nil {
		h.log.Errorw("add clips", "shop", s.Domain, "carousel", c.ID, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to add clips")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) removeClip(w http.ResponseWriter, r *http.Request) {
	s, c, ok := h.customCarousel(w, r)
	if !ok {
		return
	}

	if err := h.repo.RemoveClip(r.Context(), c.ID, chi.URLParam(r, "clipID")); err != nil {
		h.writeLookupError(w, err, s.Domain)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

type reorderRequest struct {
	ClipIDs []string `json:"clip_ids"`
}

func (h *Handlers) reorder(w http.ResponseWriter, r *http.Request) {
	s, c, ok := h.customCarousel(w, r)
	if !ok {
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ClipIDs) == 0 {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "clip_ids is required")
		return
	}

	if err := h.repo.Reorder(r.Context(), c.ID, req.ClipIDs); err != nil {
		h.log.Errorw("reorder clips", "shop", s.Domain, "carousel", c.ID, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to reorder clips")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// customCarousel resolves the shop and the {id} carousel and rejects
// membership edits on the standard one, whose contents are derived.
func (h *Handlers) customCarousel(w http.ResponseWriter, r *http.Request) (*shop.Shop, *Carousel, bool) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return nil, nil, false
	}

	c, err := h.repo.FindByID(r.Context(), s.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err, s.Domain)
		return nil, nil, false
	}
	if c.Type != TypeCustom {
		api.WriteError(w, http.StatusForbidden, "standard_carousel",
			"The standard carousel's clips are managed automatically.")
		return nil, nil, false
	}
	return s, c, true
}

func (h *Handlers) writeLookupError(w http.ResponseWriter, err error, domain string) {
	if errors.Is(err, pgx.ErrNoRows) {
		api.WriteError(w, http.StatusNotFound, "not_found", "carousel not found")
		return
	}
	h.log.Errorw("carousel lookup", "shop", domain, "err", err)
	api.WriteError(w, http.StatusInternalServerError, "internal", "lookup failed")
}
