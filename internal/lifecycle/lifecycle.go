// Package lifecycle описывает допустимые переходы статусов коммерческого предложения.
//
// Функции пакета чистые: они получают снимок предложения и возвращают патч,
// который нужно применить условным обновлением по версии снимка.
// Пустой патч означает, что переход уже выполнен и ничего делать не нужно.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

// ErrInvalidTransition возвращается, если переход недопустим из текущего статуса.
var ErrInvalidTransition = errors.New("invalid proposal transition")

// Action обозначает переход жизненного цикла.
type Action string

const (
	ActionView           Action = "view"
	ActionSign           Action = "sign"
	ActionChooseTransfer Action = "choose_transfer"
	ActionStartCheckout  Action = "start_checkout"
	ActionMarkPaid       Action = "mark_paid"
	ActionConfirm        Action = "confirm"
)

// TransitionError описывает отклонённый переход.
type TransitionError struct {
	Action Action
	From   model.ProposalStatus
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s from %s: %s", e.Action, e.From, e.Reason)
}

// Is позволяет сравнивать ошибку с ErrInvalidTransition через errors.Is.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func reject(a Action, p *model.Proposal, reason string) error {
	return &TransitionError{Action: a, From: p.Status, Reason: reason}
}

// Forward сообщает, что переход from -> to не возвращает статус назад.
func Forward(from, to model.ProposalStatus) bool {
	return from.Valid() && to.Valid() && to.Rank() >= from.Rank()
}

// View отмечает первый просмотр предложения клиентом.
func View(p *model.Proposal, now time.Time) model.ProposalPatch {
	if p.Status != model.ProposalStatusPending {
		return model.ProposalPatch{}
	}
	return model.ProposalPatch{
		Status:   ptr(model.ProposalStatusViewed),
		ViewedAt: &now,
	}
}

// Sign фиксирует подпись клиента.
func Sign(p *model.Proposal, fullName, ip string, now time.Time) (model.ProposalPatch, error) {
	if p.Status != model.ProposalStatusPending && p.Status != model.ProposalStatusViewed {
		return model.ProposalPatch{}, reject(ActionSign, p, "the contract has already been signed")
	}
	if p.SignedAt != nil {
		return model.ProposalPatch{}, reject(ActionSign, p, "the contract has already been signed")
	}
	return model.ProposalPatch{
		Status:            ptr(model.ProposalStatusSigned),
		SignedAt:          &now,
		SignatureFullName: &fullName,
		SignatureIP:       &ip,
	}, nil
}

func requireSigned(a Action, p *model.Proposal) error {
	switch {
	case p.Status == model.ProposalStatusSigned:
		return nil
	case p.Status.Rank() < model.ProposalStatusSigned.Rank():
		return reject(a, p, "the contract must be signed first")
	default:
		return reject(a, p, "a payment is already in progress or completed")
	}
}

// ChooseTransfer переводит подписанное предложение в ожидание банковского перевода.
func ChooseTransfer(p *model.Proposal, now time.Time) (model.ProposalPatch, error) {
	if err := requireSigned(ActionChooseTransfer, p); err != nil {
		return model.ProposalPatch{}, err
	}
	return model.ProposalPatch{
		Status:           ptr(model.ProposalStatusPaymentPending),
		PaymentMethod:    ptr(model.PaymentMethodTransfer),
		TransferMarkedAt: &now,
	}, nil
}

// CheckCheckout проверяет, что для предложения можно открыть сессию оплаты картой.
func CheckCheckout(p *model.Proposal) error {
	return requireSigned(ActionStartCheckout, p)
}

// StartCheckout сохраняет созданную сессию оплаты. Статус не меняется.
// Уже сохранённая сессия повторно не записывается.
func StartCheckout(p *model.Proposal, sessionID string) (model.ProposalPatch, error) {
	if err := CheckCheckout(p); err != nil {
		return model.ProposalPatch{}, err
	}
	if p.StripeSessionID != nil && *p.StripeSessionID == sessionID &&
		p.PaymentMethod != nil && *p.PaymentMethod == model.PaymentMethodStripe {
		return model.ProposalPatch{}, nil
	}
	return model.ProposalPatch{
		PaymentMethod:   ptr(model.PaymentMethodStripe),
		StripeSessionID: &sessionID,
	}, nil
}

// MarkPaid применяет подтверждение оплаты от платёжной системы.
// Повторное подтверждение уже оплаченного предложения ничего не меняет.
func MarkPaid(p *model.Proposal, paymentIntentID string, now time.Time) (model.ProposalPatch, error) {
	if p.PaidAt != nil {
		return model.ProposalPatch{}, nil
	}
	switch p.Status {
	case model.ProposalStatusSigned, model.ProposalStatusPaymentPending:
	case model.ProposalStatusPaid, model.ProposalStatusConfirmed:
		return model.ProposalPatch{}, nil
	default:
		return model.ProposalPatch{}, reject(ActionMarkPaid, p, "payment received for an unsigned contract")
	}

	patch := model.ProposalPatch{
		Status:        ptr(model.ProposalStatusPaid),
		PaidAt:        &now,
		ConfirmedBy:   ptr(model.ConfirmedByStripeWebhook),
		PaymentMethod: ptr(model.PaymentMethodStripe),
	}
	if paymentIntentID != "" {
		patch.StripePaymentIntentID = &paymentIntentID
	}
	return patch, nil
}

// Confirm выполняет ручное подтверждение оплаты администратором.
// Статус-предшественник не проверяется: это аварийный выход для администратора.
// paid_at и confirmed_by заполняются только если ещё не заданы.
func Confirm(p *model.Proposal, now time.Time) (model.ProposalPatch, error) {
	if p.Status == model.ProposalStatusConfirmed {
		return model.ProposalPatch{}, reject(ActionConfirm, p, "the payment has already been confirmed")
	}
	patch := model.ProposalPatch{
		Status:      ptr(model.ProposalStatusConfirmed),
		ConfirmedAt: &now,
	}
	if p.PaidAt == nil {
		patch.PaidAt = &now
	}
	if p.ConfirmedBy == nil {
		patch.ConfirmedBy = ptr(model.ConfirmedByAdminManual)
	}
	return patch, nil
}

// Unsigned сообщает, что клиент ещё не подписал договор.
func Unsigned(p *model.Proposal) bool {
	return p.Status.Rank() < model.ProposalStatusSigned.Rank()
}

func ptr[T any](v T) *T {
	return &v
}
