package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/wellnessreal/internal/repository"
	"github.com/mmeshcher/wellnessreal/internal/service"
)

// ListPublishedPosts возвращает опубликованные статьи, опционально из рубрики ?category=<slug>.
func (h *Handler) ListPublishedPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPublishedPosts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.handleError(w, r, "list published posts", err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// GetPublishedPost возвращает опубликованную статью по slug.
func (h *Handler) GetPublishedPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPublishedPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleError(w, r, "get published post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// ListPosts возвращает все статьи, включая черновики.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPosts(r.Context())
	if err != nil {
		h.handleError(w, r, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// GetPost возвращает статью по идентификатору.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "get post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// postWriteError обрабатывает ошибки записи статьи: несуществующая рубрика здесь ошибка запроса.
func (h *Handler) postWriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, repository.ErrCategoryNotFound) {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	h.handleError(w, r, op, err)
}

// CreatePost создаёт статью.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if !decodeJSON(w, r, &in) {
		return
	}

	post, err := h.service.CreatePost(r.Context(), in)
	if err != nil {
		h.postWriteError(w, r, "create post", err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// UpdatePost частично изменяет статью.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in service.PostUpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	post, err := h.service.UpdatePost(r.Context(), id, in)
	if err != nil {
		h.postWriteError(w, r, "update post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost удаляет статью.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), id); err != nil {
		h.handleError(w, r, "delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories возвращает все рубрики.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.handleError(w, r, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory создаёт рубрику.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		h.handleError(w, r, "create category", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateCategory частично изменяет рубрику.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in service.CategoryUpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.service.UpdateCategory(r.Context(), id, in)
	if err != nil {
		h.handleError(w, r, "update category", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteCategory удаляет рубрику.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		h.handleError(w, r, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadResponse struct {
	URL string `json:"url"`
}

// multipart-заголовки и граница формы сверх самого файла.
const uploadOverhead = 1 << 20

// UploadImage загружает изображение для статьи и возвращает его публичный адрес.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+uploadOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file")
		return
	}

	url, err := h.service.UploadImage(r.Context(), header.Filename, data)
	if err != nil {
		h.handleError(w, r, "upload image", err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{URL: url})
}
