package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/mailer"
	"github.com/mmeshcher/wellnessreal/internal/model"
)

const notifyTimeout = 30 * time.Second

// notify отправляет администратору уведомление в фоне. Ошибки отправки только журналируются.
func (s *Service) notify(ctx context.Context, kind mailer.EventKind, p *model.Proposal) {
	if s.mail == nil || len(s.cfg.Recipients) == 0 {
		return
	}

	ev := mailer.ProposalEvent{
		Kind:         kind,
		ClientName:   p.ClientName,
		ServiceLabel: p.ServiceLabel,
		Price:        p.Price.StringFixed(2),
		AdminURL:     s.cfg.BaseURL + adminProposalPrefix + p.ID.String(),
	}
	if p.SignatureFullName != nil {
		ev.SignatureName = *p.SignatureFullName
	}

	msg, err := mailer.ProposalNotification(s.cfg.Recipients, ev)
	if err != nil {
		s.logger.Error("build notification", zap.Error(err))
		return
	}

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.mail.Send(ctx, msg); err != nil {
			s.logger.Warn("send notification",
				zap.String("kind", string(kind)),
				zap.String("id", p.ID.String()),
				zap.Error(err),
			)
		}
	}()
}
