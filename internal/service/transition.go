package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/model"
	"github.com/mmeshcher/wellnessreal/internal/repository"
)

const maxTransitionAttempts = 3

// proposalRef адресует предложение по идентификатору или по клиентскому токену.
type proposalRef struct {
	id    uuid.UUID
	token string
}

func byID(id uuid.UUID) proposalRef     { return proposalRef{id: id} }
func byToken(token string) proposalRef { return proposalRef{token: token} }

func (r proposalRef) String() string {
	if r.token != "" {
		return "token:" + r.token[:min(len(r.token), 6)] + "..."
	}
	return "id:" + r.id.String()
}

func (s *Service) loadProposal(ctx context.Context, ref proposalRef) (*model.Proposal, error) {
	if ref.token != "" {
		return s.repo.GetProposalByToken(ctx, ref.token)
	}
	return s.repo.GetProposalByID(ctx, ref.id)
}

func (s *Service) patchProposal(ctx context.Context, ref proposalRef, patch model.ProposalPatch) (*model.Proposal, error) {
	if ref.token != "" {
		return s.repo.UpdateProposalByToken(ctx, ref.token, patch)
	}
	return s.repo.UpdateProposalByID(ctx, ref.id, patch)
}

// transition читает снимок предложения, вычисляет изменение и применяет его
// условным UPDATE по версии снимка. При конфликте версий вычисление повторяется
// на свежем снимке. changed сообщает, было ли что-то записано.
func (s *Service) transition(
	ctx context.Context,
	ref proposalRef,
	decide func(p *model.Proposal) (model.ProposalPatch, error),
) (p *model.Proposal, changed bool, err error) {
	for attempt := 1; ; attempt++ {
		snap, err := s.loadProposal(ctx, ref)
		if err != nil {
			return nil, false, err
		}

		patch, err := decide(snap)
		if err != nil {
			return snap, false, err
		}
		if patch.Empty() {
			return snap, false, nil
		}

		patch.IfVersion = snap.Version
		updated, err := s.patchProposal(ctx, ref, patch)
		if errors.Is(err, repository.ErrVersionConflict) && attempt < maxTransitionAttempts {
			s.logger.Debug("proposal changed concurrently, re-evaluating",
				zap.Stringer("proposal", ref),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return updated, true, nil
	}
}
