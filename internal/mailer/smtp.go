// Package mailer отправляет письма через SMTP-релей.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// ErrNotConfigured возвращается, если SMTP не настроен.
var ErrNotConfigured = errors.New("smtp is not configured")

// Config описывает подключение к SMTP-релею.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
}

// Message описывает письмо в формате HTML.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP отправляет письма от имени учётной записи релея.
type SMTP struct {
	dialer   sender
	from     string
	fromName string
}

// NewSMTP создаёт отправителя. При пустом хосте отправка возвращает ErrNotConfigured.
func NewSMTP(cfg Config) *SMTP {
	s := &SMTP{from: cfg.User, fromName: cfg.FromName}
	if cfg.Host != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	return s
}

// Send отправляет письмо.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if s.dialer == nil {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To...)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail %q: %w", msg.Subject, err)
	}
	return nil
}
