package handler

import (
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// maxWebhookBody ограничивает размер тела вебхука Stripe.
const maxWebhookBody = 1 << 16

type checkoutRequest struct {
	Token string `json:"token"`
}

type checkoutResponse struct {
	SessionURL string `json:"sessionUrl"`
}

// Checkout создаёт сессию оплаты картой для подписанного предложения.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	url, err := h.service.CreateCheckout(r.Context(), token)
	if err != nil {
		h.handleError(w, r, "create checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{SessionURL: url})
}

// StripeWebhook принимает события Stripe. Тело читается без изменений для проверки подписи.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("read webhook body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.HandleStripeWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.handleError(w, r, "stripe webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
