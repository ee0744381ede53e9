package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

const recentProposals = 5

// DashboardStats собирает показатели панели администратора. Источники читаются параллельно;
// недоступность сервиса рассылок даёт нулевые счётчики подписчиков.
func (s *Service) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var (
		proposals []model.Proposal
		posts     []model.Post
		subs      model.SubscriberCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		proposals, err = s.repo.ListProposals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = s.repo.ListPosts(gctx)
		return err
	})
	g.Go(func() error {
		if s.subscribers == nil {
			return nil
		}
		c, err := s.subscribers.SubscriberCount(gctx)
		if err != nil {
			s.logger.Warn("fetch subscriber count", zap.Error(err))
			return nil
		}
		subs = *c
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	return &model.DashboardStats{
		Proposals:   proposalStats(proposals, s.now()),
		Blog:        blogStats(posts),
		Subscribers: subs,
	}, nil
}

// proposalStats ожидает предложения в порядке от новых к старым.
func proposalStats(proposals []model.Proposal, now time.Time) model.ProposalStats {
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	startOfLastMonth := startOfMonth.AddDate(0, -1, 0)

	st := model.ProposalStats{
		Total:          len(proposals),
		StatusCounts:   make(map[model.ProposalStatus]int),
		Revenue:        decimal.Zero,
		PendingRevenue: decimal.Zero,
		Recent:         make([]model.RecentProposal, 0, recentProposals),
	}

	var paid int
	for i := range proposals {
		p := &proposals[i]
		st.StatusCounts[p.Status]++

		switch p.Status {
		case model.ProposalStatusPaid, model.ProposalStatusConfirmed:
			paid++
			st.Revenue = st.Revenue.Add(p.Price)
			if p.PaymentMethod != nil {
				switch *p.PaymentMethod {
				case model.PaymentMethodStripe:
					st.StripePayments++
				case model.PaymentMethodTransfer:
					st.TransferPayments++
				}
			}
		case model.ProposalStatusSigned, model.ProposalStatusPaymentPending:
			st.PendingRevenue = st.PendingRevenue.Add(p.Price)
			st.ActiveProposals++
		default:
			st.ActiveProposals++
		}

		switch {
		case !p.CreatedAt.Before(startOfMonth):
			st.ThisMonth++
		case !p.CreatedAt.Before(startOfLastMonth):
			st.LastMonth++
		}

		if len(st.Recent) < recentProposals {
			st.Recent = append(st.Recent, model.RecentProposal{
				ID:           p.ID,
				ClientName:   p.ClientName,
				ServiceLabel: p.ServiceLabel,
				Price:        p.Price,
				Status:       p.Status,
				CreatedAt:    p.CreatedAt,
			})
		}
	}

	if st.Total > 0 {
		st.ConversionRate = int(math.Round(float64(paid) * 100 / float64(st.Total)))
	}

	return st
}

// blogStats ожидает статьи в порядке от новых к старым.
func blogStats(posts []model.Post) model.BlogStats {
	var st model.BlogStats
	for i := range posts {
		p := &posts[i]
		if !p.Published {
			st.Drafts++
			continue
		}
		st.Published++
		if st.LastPost == nil {
			st.LastPost = &model.LastPost{Title: p.Title, PublishedAt: p.PublishedAt}
		}
	}
	return st
}
