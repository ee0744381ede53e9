package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/wellnessreal/internal/service"
)

type proposalRef struct {
	ID    uuid.UUID `json:"id"`
	Token string    `json:"token"`
}

type createProposalResponse struct {
	Proposal  proposalRef `json:"proposal"`
	ClientURL string      `json:"clientUrl"`
}

// CreateProposal создаёт предложение и возвращает клиентскую ссылку.
func (h *Handler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var in service.CreateProposalInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.service.CreateProposal(r.Context(), in)
	if err != nil {
		h.handleError(w, r, "create proposal", err)
		return
	}

	writeJSON(w, http.StatusCreated, createProposalResponse{
		Proposal:  proposalRef{ID: p.ID, Token: p.Token},
		ClientURL: h.service.ClientURL(p.Token),
	})
}

// ListProposals возвращает все предложения.
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.service.ListProposals(r.Context())
	if err != nil {
		h.handleError(w, r, "list proposals", err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

// GetProposal возвращает предложение со всеми полями.
func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProposal(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "get proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProposal удаляет предложение.
func (h *Handler) DeleteProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProposal(r.Context(), id); err != nil {
		h.handleError(w, r, "delete proposal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmPayment подтверждает оплату вручную.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.service.ConfirmPayment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "confirm payment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ClientProposal отдаёт клиенту его предложение по токену.
func (h *Handler) ClientProposal(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ResolveProposal(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.handleError(w, r, "resolve proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type okResponse struct {
	Success bool `json:"success"`
}

// SignProposal принимает подпись клиента.
func (h *Handler) SignProposal(w http.ResponseWriter, r *http.Request) {
	var in service.SignInput
	if !decodeJSON(w, r, &in) {
		return
	}

	if err := h.service.SignProposal(r.Context(), chi.URLParam(r, "token"), in, clientIP(r)); err != nil {
		h.handleError(w, r, "sign proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

// ChooseTransfer фиксирует выбор оплаты банковским переводом. Оплата картой идёт через /stripe/checkout.
func (h *Handler) ChooseTransfer(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ChooseTransfer(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.handleError(w, r, "choose transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}
