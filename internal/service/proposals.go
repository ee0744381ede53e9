package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/lifecycle"
	"github.com/mmeshcher/wellnessreal/internal/mailer"
	"github.com/mmeshcher/wellnessreal/internal/model"
	"github.com/mmeshcher/wellnessreal/internal/repository"
	"github.com/mmeshcher/wellnessreal/internal/validation"
)

const (
	tokenBytes          = 24
	maxTokenAttempts    = 3
	clientPathPrefix    = "/cliente/"
	adminProposalPrefix = "/admin/propuestas/"
)

// CreateProposalInput содержит данные нового предложения от администратора.
type CreateProposalInput struct {
	ClientName   string            `json:"clientName" validate:"required,min=2,max=200"`
	ClientEmail  string            `json:"clientEmail" validate:"required,email"`
	ClientPhone  string            `json:"clientPhone" validate:"required,min=6,max=30"`
	ServiceType  model.ServiceType `json:"serviceType" validate:"required"`
	ServiceLabel string            `json:"serviceLabel" validate:"max=200"`
	Price        decimal.Decimal   `json:"price"`
	Duration     string            `json:"duration" validate:"required,max=100"`
	Description  string            `json:"description"`
	ContractText string            `json:"contractText" validate:"required,min=10"`
	Notes        string            `json:"notes"`
}

// SignInput содержит подпись договора клиентом.
type SignInput struct {
	FullName string `json:"fullName" validate:"required,min=3,max=200"`
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ClientURL возвращает адрес клиентской страницы предложения.
func (s *Service) ClientURL(token string) string {
	return s.cfg.BaseURL + clientPathPrefix + token
}

// CreateProposal проверяет данные и создаёт предложение в статусе pending.
func (s *Service) CreateProposal(ctx context.Context, in CreateProposalInput) (*model.Proposal, error) {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.ClientEmail = strings.ToLower(strings.TrimSpace(in.ClientEmail))
	in.ClientPhone = strings.TrimSpace(in.ClientPhone)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !in.ServiceType.Valid() {
		return nil, validation.Errorf("serviceType", "serviceType must be one of the offered services")
	}
	if !in.Price.IsPositive() {
		return nil, validation.Errorf("price", "price must be greater than zero")
	}

	label := in.ServiceType.Label()
	if in.ServiceType == model.ServicePersonalizado && strings.TrimSpace(in.ServiceLabel) != "" {
		label = strings.TrimSpace(in.ServiceLabel)
	}

	p := &model.Proposal{
		ID:           uuid.New(),
		ClientName:   in.ClientName,
		ClientEmail:  in.ClientEmail,
		ClientPhone:  in.ClientPhone,
		ServiceType:  in.ServiceType,
		ServiceLabel: label,
		Price:        in.Price.Round(2),
		Duration:     in.Duration,
		Description:  in.Description,
		ContractText: in.ContractText,
		Notes:        in.Notes,
		Status:       model.ProposalStatusPending,
	}

	for attempt := 1; ; attempt++ {
		token, err := newToken()
		if err != nil {
			return nil, err
		}
		p.Token = token

		created, err := s.repo.CreateProposal(ctx, p)
		if errors.Is(err, repository.ErrTokenExists) && attempt < maxTokenAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("proposal created",
			zap.String("id", created.ID.String()),
			zap.String("service", string(created.ServiceType)),
		)
		return created, nil
	}
}

// ListProposals возвращает все предложения для администратора.
func (s *Service) ListProposals(ctx context.Context) ([]model.Proposal, error) {
	return s.repo.ListProposals(ctx)
}

// GetProposal возвращает предложение по идентификатору.
func (s *Service) GetProposal(ctx context.Context, id uuid.UUID) (*model.Proposal, error) {
	return s.repo.GetProposalByID(ctx, id)
}

// DeleteProposal удаляет предложение. Это административное действие вне жизненного цикла.
func (s *Service) DeleteProposal(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProposal(ctx, id); err != nil {
		return err
	}
	s.logger.Info("proposal deleted", zap.String("id", id.String()))
	return nil
}

// ResolveProposal возвращает клиентское представление предложения.
// Первое открытие переводит предложение из pending в viewed.
func (s *Service) ResolveProposal(ctx context.Context, token string) (*model.ClientView, error) {
	p, _, err := s.transition(ctx, byToken(token), func(p *model.Proposal) (model.ProposalPatch, error) {
		return lifecycle.View(p, s.now()), nil
	})
	if err != nil {
		return nil, err
	}

	view := p.ClientView()
	return &view, nil
}

// SignProposal фиксирует подпись договора клиентом.
func (s *Service) SignProposal(ctx context.Context, token string, in SignInput, ip string) error {
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validation.Struct(in); err != nil {
		return err
	}

	p, changed, err := s.transition(ctx, byToken(token), func(p *model.Proposal) (model.ProposalPatch, error) {
		return lifecycle.Sign(p, in.FullName, ip, s.now())
	})
	if err != nil {
		return err
	}
	if changed {
		s.logger.Info("proposal signed", zap.String("id", p.ID.String()))
		s.notify(ctx, mailer.EventSigned, p)
	}
	return nil
}

// ChooseTransfer фиксирует выбор оплаты банковским переводом.
func (s *Service) ChooseTransfer(ctx context.Context, token string) error {
	p, changed, err := s.transition(ctx, byToken(token), func(p *model.Proposal) (model.ProposalPatch, error) {
		return lifecycle.ChooseTransfer(p, s.now())
	})
	if err != nil {
		return err
	}
	if changed {
		s.logger.Info("transfer payment chosen", zap.String("id", p.ID.String()))
		s.notify(ctx, mailer.EventTransferChosen, p)
	}
	return nil
}

// ConfirmPayment переводит предложение в confirmed по решению администратора.
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID) (*model.Proposal, error) {
	p, _, err := s.transition(ctx, byID(id), func(p *model.Proposal) (model.ProposalPatch, error) {
		if lifecycle.Unsigned(p) {
			s.logger.Warn("confirming payment for an unsigned proposal",
				zap.String("id", p.ID.String()),
				zap.String("status", string(p.Status)),
			)
		}
		return lifecycle.Confirm(p, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment confirmed by admin",
		zap.String("id", p.ID.String()),
		zap.Stringp("confirmedBy", (*string)(p.ConfirmedBy)),
	)
	return p, nil
}
