package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/mailer"
	"github.com/mmeshcher/wellnessreal/internal/validation"
)

// ContactInput содержит сообщение из формы обратной связи.
type ContactInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,max=50"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// SendContact пересылает сообщение формы обратной связи владельцам сайта.
func (s *Service) SendContact(ctx context.Context, in ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)

	if err := validation.Struct(in); err != nil {
		return err
	}
	if s.mail == nil || len(s.cfg.Recipients) == 0 {
		return fmt.Errorf("contact form: %w", ErrNotConfigured)
	}

	msg, err := mailer.ContactMessage(s.cfg.Recipients, mailer.ContactForm{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Subject: in.Subject,
		Message: in.Message,
	})
	if err != nil {
		return err
	}

	if err := s.mail.Send(ctx, msg); err != nil {
		return err
	}

	s.logger.Info("contact message sent", zap.String("subject", in.Subject))
	return nil
}
