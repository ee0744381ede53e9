// Package handler содержит HTTP-обработчики сайта wellnessreal.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/lifecycle"
	"github.com/mmeshcher/wellnessreal/internal/middleware"
	"github.com/mmeshcher/wellnessreal/internal/model"
	"github.com/mmeshcher/wellnessreal/internal/payment"
	"github.com/mmeshcher/wellnessreal/internal/repository"
	"github.com/mmeshcher/wellnessreal/internal/service"
	"github.com/mmeshcher/wellnessreal/internal/validation"
)

// Service описывает бизнес-логику, используемую HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	AuthenticateAdmin(password string) error

	CreateProposal(ctx context.Context, in service.CreateProposalInput) (*model.Proposal, error)
	ListProposals(ctx context.Context) ([]model.Proposal, error)
	GetProposal(ctx context.Context, id uuid.UUID) (*model.Proposal, error)
	DeleteProposal(ctx context.Context, id uuid.UUID) error
	ConfirmPayment(ctx context.Context, id uuid.UUID) (*model.Proposal, error)
	ClientURL(token string) string

	ResolveProposal(ctx context.Context, token string) (*model.ClientView, error)
	SignProposal(ctx context.Context, token string, in service.SignInput, ip string) error
	ChooseTransfer(ctx context.Context, token string) error

	CreateCheckout(ctx context.Context, token string) (string, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error

	ListPublishedPosts(ctx context.Context, categorySlug string) ([]model.PostListing, error)
	GetPublishedPost(ctx context.Context, slug string) (*model.Post, error)
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*model.Post, error)
	CreatePost(ctx context.Context, in service.PostInput) (*model.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, in service.PostUpdateInput) (*model.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, in service.CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in service.CategoryUpdateInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	UploadImage(ctx context.Context, fileName string, data []byte) (string, error)

	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
	SendContact(ctx context.Context, in service.ContactInput) error
}

// Handler содержит зависимости HTTP-обработчиков.
type Handler struct {
	service Service
	logger  *zap.Logger
	auth    *middleware.AdminAuth
}

// NewHandler создаёт новый HTTP-обработчик.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AdminAuth) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		auth:    auth,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleError переводит доменную ошибку в HTTP-ответ.
// Неизвестные ошибки логируются и отдаются клиенту без подробностей.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verr *validation.Error
		terr *lifecycle.TransitionError
	)

	switch {
	case errors.Is(err, service.ErrPaymentNotApplied):
		// не 2xx и не 4xx: Stripe доставит событие повторно
		h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, "payment not applied")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &terr):
		writeError(w, http.StatusBadRequest, terr.Reason)
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "invalid proposal state")
	case errors.Is(err, payment.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid signature")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, repository.ErrProposalNotFound):
		writeError(w, http.StatusNotFound, "proposal not found")
	case errors.Is(err, repository.ErrPostNotFound):
		writeError(w, http.StatusNotFound, "post not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, repository.ErrSlugExists):
		writeError(w, http.StatusConflict, "slug already exists")
	case errors.Is(err, service.ErrNotConfigured):
		h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON читает тело запроса в v. При ошибке отвечает 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathID извлекает UUID из параметра маршрута {id}.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// clientIP возвращает адрес клиента: первый адрес X-Forwarded-For, затем X-Real-IP.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

// Health проверяет доступность БД.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
