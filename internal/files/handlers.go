package files

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"popclips/internal/api"
	"popclips/internal/shop"
	"popclips/pkg/config"
	"popclips/pkg/logger"
	"popclips/pkg/shopify"
)

// Uploads go straight from the merchant's browser to Shopify's CDN via a
// staged target; this package only brokers the GraphQL calls around that.
type Handlers struct {
	cfg config.Config
	log logger.Sugared
}

func NewHandlers(cfg config.Config, log logger.Sugared) *Handlers {
	return &Handlers{cfg: cfg, log: log}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Get("/videos", h.listVideos)
	r.Post("/staged-upload", h.stagedUpload)
	r.Post("/complete", h.complete)
}

func (h *Handlers) adminClient(s *shop.Shop) shopify.Client {
	return shopify.Client{
		ShopDomain:  s.Domain,
		AccessToken: s.AccessToken,
		APIVersion:  h.cfg.Shopify.APIVersion,
	}
}

func (h *Handlers) listVideos(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	q := r.URL.Query()
	first, _ := strconv.Atoi(q.Get("first"))

	page, err := h.adminClient(s).ListVideoFiles(r.Context(), strings.TrimSpace(q.Get("search")), q.Get("after"), first)
	if err != nil {
		h.log.Errorw("list video files", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusBadGateway, "shopify_error", "failed to list videos")
		return
	}

	type video struct {
		ID               string  `json:"id"`
		Status           string  `json:"status"`
		Duration         float64 `json:"duration"`
		OriginalFilename string  `json:"original_filename"`
		SourceURL        string  `json:"source_url"`
		PreviewImageURL  string  `json:"preview_image_url"`
		CreatedAt        string  `json:"created_at"`
	}
	videos := make([]video, 0, len(page.Files))
	for _, f := range page.Files {
		videos = append(videos, video{
			ID:               f.ID,
			Status:           f.FileStatus,
			Duration:         f.Duration,
			OriginalFilename: f.OriginalFilename,
			SourceURL:        f.SourceURL(),
			PreviewImageURL:  f.PreviewImageURL(),
			CreatedAt:        f.CreatedAt,
		})
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"videos":        videos,
		"has_next_page": page.HasNextPage,
		"end_cursor":    page.EndCursor,
	})
}

type stagedUploadRequest struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

// Shopify caps video files at 1 GB.
const maxVideoBytes = 1 << 30

func (h *Handlers) stagedUpload(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	var req stagedUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.FileName == "" || req.MimeType == "" || req.FileSize <= 0 {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "file_name, mime_type and file_size are required")
		return
	}
	if !strings.HasPrefix(req.MimeType, "video/") {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "only video uploads are supported")
		return
	}
	if req.FileSize > maxVideoBytes {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "file exceeds the 1GB upload limit")
		return
	}

	target, err := h.adminClient(s).CreateStagedUpload(r.Context(), req.FileName, req.MimeType, req.FileSize)
	if err != nil {
		h.log.Errorw("staged upload", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusBadGateway, "shopify_error", "failed to create staged upload")
		return
	}
	api.WriteJSON(w, http.StatusOK, target)
}

type completeRequest struct {
	ResourceURL string `json:"resource_url"`
	FileName    string `json:"file_name"`
	Alt         string `json:"alt"`
}

func (h *Handlers) complete(w http.ResponseWriter, r *http.Request) {
	s, ok := api.ShopFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "unauthorized", "shop not resolved")
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.ResourceURL == "" || req.FileName == "" {
		api.WriteError(w, http.StatusUnprocessableEntity, "validation", "resource_url and file_name are required")
		return
	}

	f, err := h.adminClient(s).CompleteFileUpload(r.Context(), req.ResourceURL, req.FileName, req.Alt)
	if err != nil {
		h.log.Errorw("complete file upload", "shop", s.Domain, "err", err)
		api.WriteError(w, http.StatusBadGateway, "shopify_error", "failed to complete upload")
		return
	}

	api.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":                f.ID,
		"status":            f.FileStatus,
		"duration":          f.Duration,
		"source_url":        f.SourceURL(),
		"preview_image_url": f.PreviewImageURL(),
	})
}
