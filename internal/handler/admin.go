package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/service"
)

type loginRequest struct {
	Password string `json:"password"`
}

// Login проверяет пароль администратора и выдаёт cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	if err := h.service.AuthenticateAdmin(req.Password); err != nil {
		h.logger.Warn("admin login failed", zap.String("ip", clientIP(r)))
		h.handleError(w, r, "admin login", err)
		return
	}

	if err := h.auth.SetSessionCookie(w); err != nil {
		h.handleError(w, r, "issue session", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

// Logout удаляет cookie сессии.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

// DashboardStats возвращает сводку для панели администратора.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.handleError(w, r, "dashboard stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Contact отправляет сообщение из формы обратной связи.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var in service.ContactInput
	if !decodeJSON(w, r, &in) {
		return
	}

	if err := h.service.SendContact(r.Context(), in); err != nil {
		h.handleError(w, r, "send contact", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}
