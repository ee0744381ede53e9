package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/lifecycle"
	"github.com/mmeshcher/wellnessreal/internal/mailer"
	"github.com/mmeshcher/wellnessreal/internal/model"
	"github.com/mmeshcher/wellnessreal/internal/payment"
	"github.com/mmeshcher/wellnessreal/internal/repository"
)

// ErrPaymentNotApplied возвращается, когда подтверждённая Stripe оплата не может быть
// записана в текущем состоянии предложения. Событие не подтверждается и будет доставлено повторно.
var ErrPaymentNotApplied = errors.New("payment not applied")

// CreateCheckout создаёт сессию оплаты картой для подписанного предложения и возвращает адрес перехода.
// Пока сохранённая сессия открыта, повторный вызов возвращает её же.
func (s *Service) CreateCheckout(ctx context.Context, token string) (string, error) {
	if s.payments == nil {
		return "", fmt.Errorf("card payments: %w", ErrNotConfigured)
	}

	p, err := s.repo.GetProposalByToken(ctx, token)
	if err != nil {
		return "", err
	}
	if err := lifecycle.CheckCheckout(p); err != nil {
		return "", err
	}

	if p.StripeSessionID != nil && *p.StripeSessionID != "" {
		current, err := s.payments.GetCheckoutSession(ctx, *p.StripeSessionID)
		if err != nil {
			return "", err
		}
		if current.Open {
			s.logger.Debug("reusing open checkout session",
				zap.String("id", p.ID.String()),
				zap.String("session", current.ID),
			)
			return current.URL, nil
		}
	}

	// одинаковый ключ для одной версии предложения: параллельные запросы получат одну сессию
	sess, err := s.payments.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		ProposalToken:  p.Token,
		ProductName:    fmt.Sprintf("%s - %s", p.ServiceLabel, p.Duration),
		Description:    "Propuesta para " + p.ClientName,
		Price:          p.Price,
		CustomerEmail:  p.ClientEmail,
		SuccessURL:     s.ClientURL(p.Token) + "/exito",
		CancelURL:      s.ClientURL(p.Token) + "/cancelado",
		IdempotencyKey: fmt.Sprintf("checkout:%s:v%d", p.Token, p.Version),
	})
	if err != nil {
		return "", err
	}

	_, _, err = s.transition(ctx, byToken(token), func(p *model.Proposal) (model.ProposalPatch, error) {
		return lifecycle.StartCheckout(p, sess.ID)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("checkout session created",
		zap.String("id", p.ID.String()),
		zap.String("session", sess.ID),
	)
	return sess.URL, nil
}

// HandleStripeWebhook проверяет подпись события и применяет подтверждение оплаты.
// Повторная доставка того же события ничего не меняет. Ошибка хранилища и оплата
// неподписанного предложения возвращаются вызывающему, чтобы платёжная система повторила доставку.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.payments == nil {
		return fmt.Errorf("card payments: %w", ErrNotConfigured)
	}

	ev, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	log := s.logger.With(zap.String("event", ev.ID), zap.String("type", ev.Type))

	if ev.Type != payment.EventCheckoutCompleted {
		log.Debug("ignoring webhook event")
		return nil
	}
	if ev.ProposalToken == "" {
		log.Warn("checkout session without proposal token", zap.String("session", ev.SessionID))
		return nil
	}

	claimed, err := s.events.Claim(ctx, ev.ID)
	switch {
	case err != nil:
		log.Warn("event guard unavailable, relying on lifecycle idempotency", zap.Error(err))
	case !claimed:
		log.Info("duplicate webhook event skipped")
		return nil
	}

	p, changed, err := s.transition(ctx, byToken(ev.ProposalToken), func(p *model.Proposal) (model.ProposalPatch, error) {
		return lifecycle.MarkPaid(p, ev.PaymentIntentID, s.now())
	})
	if err != nil {
		if errors.Is(err, repository.ErrProposalNotFound) {
			log.Error("payment received for unknown proposal", zap.Error(err))
			return nil
		}
		if relErr := s.events.Release(context.WithoutCancel(ctx), ev.ID); relErr != nil {
			log.Warn("release webhook event", zap.Error(relErr))
		}
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			log.Error("payment received but not applied", zap.Error(err))
			return fmt.Errorf("%w: %v", ErrPaymentNotApplied, err)
		}
		return fmt.Errorf("apply payment: %w", err)
	}

	if !changed {
		log.Info("payment already recorded", zap.String("id", p.ID.String()))
		return nil
	}

	log.Info("payment recorded", zap.String("id", p.ID.String()))
	s.notify(ctx, mailer.EventStripePaid, p)
	return nil
}
