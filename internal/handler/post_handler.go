package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-blog-backend/internal/middleware"
	"go-blog-backend/internal/model"
	"go-blog-backend/internal/service"
	"go-blog-backend/internal/util"
	"go-blog-backend/pkg/apierror"
)

type PostHandler struct {
	service *service.PostService
}

func NewPostHandler(service *service.PostService) *PostHandler {
	return &PostHandler{service: service}
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.CreatePostRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.service.Create(r.Context(), identity, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, model.CreatePostResponse{
		Message: "post created successfully",
		PostID:  post.ID,
		Status:  post.Status,
	})
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePostFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]model.PostResponse, 0, len(posts))
	for _, post := range posts {
		items = append(items, model.NewPostResponse(post))
	}

	writeSuccess(w, http.StatusOK, items)
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.NewPostResponse(post))
}

// Cover serves the decoded cover image bytes.
func (h *PostHandler) Cover(w http.ResponseWriter, r *http.Request) {
	cover, err := h.service.Cover(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := cover.MIMEType
	if !util.IsImageMIME(contentType) {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(cover.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cover.Data)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), identity); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.MessageResponse{Message: "post deleted successfully"})
}

func parsePostFilter(r *http.Request) (model.PostFilter, error) {
	query := r.URL.Query()
	filter := model.PostFilter{
		Status:   strings.TrimSpace(query.Get("status")),
		Category: strings.TrimSpace(query.Get("category")),
	}

	if featured := strings.TrimSpace(query.Get("featured")); featured != "" {
		isFeatured, err := strconv.ParseBool(featured)
		if err != nil {
			return model.PostFilter{}, apierror.Validation("featured", "featured must be true or false")
		}
		if isFeatured {
			if filter.Status != "" && filter.Status != model.PostStatusPublished {
				return model.PostFilter{}, apierror.Validation("featured", "featured conflicts with status")
			}
			filter.Status = model.PostStatusPublished
		}
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return model.PostFilter{}, apierror.Validation("limit", "limit must be a positive integer")
		}
		filter.Limit = limit
	}

	return filter, nil
}
