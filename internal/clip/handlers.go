package clip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"popclips/internal/api"
	"popclips/pkg/logger"
)

// HotspotLoader fetches hotspots for a batch of clips, keyed by clip id.
// Declared as a function so this package stays independent of the hotspot
// package, which depends on clips.
type HotspotLoader func(ctx context.Context, clipIDs []string) (any, error)

type Handlers struct {
	repo     *Repository
	hotspots HotspotLoader
	log      logger.Sugared
}

func NewHandlers(repo *Repository, hotspots HotspotLoader, log logger.Sugared) *Handlers {
	return &Handlers{repo: repo, hotspots: hotspots, log: log}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/publish", h.publish)
	r.Post("/{id}/unpublish", h.unpublish)
	r.Get("/{id}/upload-status", h.uploadStatus)
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}

	clips, err := h.repo.List(r.Context(), s.ID, limit, (page-1)*limit)
	if err != nil {
		h.log.Errorw("list clips", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to list clips")
		return
	}

	used, err := h.repo.CountThisMonth(r.Context(), s.ID)
	if err != nil {
		h.log.Errorw("count monthly uploads", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to list clips")
		return
	}

	body := map[string]any{
		"clips": clips,
		"usage": map[string]any{
			"uploads_this_month": used,
			"upload_limit":       MonthlyUploadLimit(s.IsPro()),
		},
		"page":  page,
		"limit": limit,
	}
	if h.hotspots != nil {
		ids := make([]string, len(clips))
		for i, c := range clips {
			ids[i] = c.ID
		}
		hs, err := h.hotspots(r.Context(), ids)
		if err != nil {
			h.log.Errorw("load hotspots", "shop", s.Domain, "err", err)
		} else {
			body["hotspots"] = hs
		}
	}
	api.WriteJSON(w, http.StatusOK, body)
}

type createRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	VideoURL      string `json:"video_url"`
	ThumbnailURL  string `json:"thumbnail_url"`
	ShopifyFileID string `json:"shopify_file_id"`
	Duration      int    `json:"duration"`
	AspectRatio   string `json:"aspect_ratio"`
	FileSize      int64  `json:"file_size"`
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "title is required")
		return
	}
	if len(req.Title) > 255 {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "title must be at most 255 characters")
		return
	}
	if req.ShopifyFileID == "" {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "shopify_file_id is required")
		return
	}

	used, err := h.repo.CountThisMonth(r.Context(), s.ID)
	if err != nil {
		h.log.Errorw("count monthly uploads", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to create clip")
		return
	}
	limit := MonthlyUploadLimit(s.IsPro())
	if used >= limit {
		api.WriteError(w, http.StatusForbidden, "upload_limit_reached",
			fmt.Sprintf("Monthly upload limit reached (%d/%d). Upgrade to Pro for more uploads.", used, limit))
		return
	}

	status := StatusProcessing
	if req.VideoURL != "" {
		status = StatusReady
	}

	c, err := h.repo.Create(r.Context(), CreateParams{
		ShopID:        s.ID,
		Title:         req.Title,
		Description:   req.Description,
		VideoURL:      req.VideoURL,
		ThumbnailURL:  req.ThumbnailURL,
		ShopifyFileID: req.ShopifyFileID,
		Duration:      req.Duration,
		AspectRatio:   req.AspectRatio,
		FileSize:      req.FileSize,
		Status:        status,
	})
	if err != nil {
		h.log.Errorw("create clip", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusInternalServerError, "internal", "failed to create clip")
		return
	}

	h.log.Infow("clip created", "shop", s.Domain, "clip", c.ID, "status", c.Status)
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
		writeClipLookupError(w, err, h.log, s.Domain)
		return
	}
	api.WriteJSON(w, http.StatusOK, c)
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"is_published"`
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
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			api.WriteError(w, http.StatusUnprocessableEntity, "validation", "title must not be empty")
			return
		}
		if len(t) > 255 {
			api.WriteError(w, http.StatusUnprocessableEntity, "validation", "title must be at most 255 characters")
			return
		}
		req.Title = &t
	}

	c, err := h.repo.Update(r.Context(), s.ID, chi.URLParam(r, "id"), UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeClipLookupError(w, err, h.log, s.Domain)
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
	if err := h.repo.Delete(r.Context(), s.ID, id); err != nil {
		writeClipLookupError(w, err, h.log, s.Domain)
		return
	}
	h.log.Infow("clip deleted", "shop", s.Domain, "clip", id)
	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handlers) publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

func (h *Handlers) unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *Handlers) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	id := chi.URLParam(r, "id")
	if published {
		c, err := h.repo.FindByID(r.Context(), s.ID, id)
		if err != nil {
			writeClipLookupError(w, err, h.log, s.Domain)
			return
		}
		if c.Status != StatusReady {
			api.WriteError(w, http.StatusBadRequest, "clip_not_ready",
				"clip cannot be published until processing completes")
			return
		}
	}

	c, err := h.repo.SetPublished(r.Context(), s.ID, id, published)
	if err != nil {
		writeClipLookupError(w, err, h.log, s.Domain)
		return
	}
	api.WriteJSON(w, http.StatusOK, c)
}

func (h *Handlers) uploadStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	c, err := h.repo.FindByID(r.Context(), s.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeClipLookupError(w, err, h.log, s.Domain)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"id":            c.ID,
		"status":        c.Status,
		"video_url":     c.VideoURL,
		"thumbnail_url": c.ThumbnailURL,
	})
}

func writeClipLookupError(w http.ResponseWriter, err error, log logger.Sugared, domain string) {
	if errors.Is(err, pgx.ErrNoRows) {
		api.WriteError(w, http.StatusNotFound, "not_found", "clip not found")
		return
	}
	log.Errorw("clip lookup", "shop", domain, "err", err)
	api.WriteError(w, http.StatusInternalServerError, "internal", "clip lookup failed")
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
