package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

func statsProposal(status model.ProposalStatus, price int64, method *model.PaymentMethod, created time.Time) model.Proposal {
	return model.Proposal{
		ID:            uuid.New(),
		ClientName:    "Cliente",
		ServiceLabel:  "Pack 3 meses",
		Status:        status,
		Price:         decimal.NewFromInt(price),
		PaymentMethod: method,
		CreatedAt:     created,
	}
}

func TestProposalStats(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	stripe := model.PaymentMethodStripe
	transfer := model.PaymentMethodTransfer

	proposals := []model.Proposal{
		statsProposal(model.ProposalStatusPending, 50, nil, now.Add(-time.Hour)),
		statsProposal(model.ProposalStatusViewed, 60, nil, now.AddDate(0, 0, -3)),
		statsProposal(model.ProposalStatusSigned, 100, nil, now.AddDate(0, 0, -10)),
		statsProposal(model.ProposalStatusPaymentPending, 200, &transfer, now.AddDate(0, 0, -20)),
		statsProposal(model.ProposalStatusPaid, 300, &stripe, now.AddDate(0, -1, 0)),
		statsProposal(model.ProposalStatusConfirmed, 400, &transfer, now.AddDate(0, -2, 0)),
	}

	st := proposalStats(proposals, now)

	assert.Equal(t, 6, st.Total)
	assert.Equal(t, 4, st.ActiveProposals)
	assert.True(t, st.Revenue.Equal(decimal.NewFromInt(700)), "revenue = %s", st.Revenue)
	assert.True(t, st.PendingRevenue.Equal(decimal.NewFromInt(300)), "pending = %s", st.PendingRevenue)
	assert.Equal(t, 33, st.ConversionRate)
	assert.Equal(t, 3, st.ThisMonth)
	assert.Equal(t, 2, st.LastMonth)
	assert.Equal(t, 1, st.StripePayments)
	assert.Equal(t, 1, st.TransferPayments)
	assert.Equal(t, 1, st.StatusCounts[model.ProposalStatusPaid])
	require.Len(t, st.Recent, 5)
	assert.Equal(t, proposals[0].ID, st.Recent[0].ID)
}

func TestProposalStats_Empty(t *testing.T) {
	st := proposalStats(nil, time.Now())

	assert.Equal(t, 0, st.ConversionRate)
	assert.True(t, st.Revenue.IsZero())
	assert.NotNil(t, st.Recent)
}

func TestBlogStats(t *testing.T) {
	published := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	posts := []model.Post{
		{Title: "Borrador", Published: false},
		{Title: "Última", Published: true, PublishedAt: published},
		{Title: "Antigua", Published: true},
	}

	st := blogStats(posts)

	assert.Equal(t, 2, st.Published)
	assert.Equal(t, 1, st.Drafts)
	require.NotNil(t, st.LastPost)
	assert.Equal(t, "Última", st.LastPost.Title)
	assert.Equal(t, published, st.LastPost.PublishedAt)
}

func TestDashboardStats_SubscriberFailureYieldsZeros(t *testing.T) {
	env := newTestEnv(t)
	env.createProposal(t)
	env.svc.subscribers = &stubSubscribers{err: errors.New("mailerlite down")}

	st, err := env.svc.DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, st.Proposals.Total)
	assert.Equal(t, model.SubscriberCount{}, st.Subscribers)
}

func TestDashboardStats_Subscribers(t *testing.T) {
	env := newTestEnv(t)
	env.svc.subscribers = &stubSubscribers{count: &model.SubscriberCount{Active: 10, Unsubscribed: 2, Total: 12}}

	st, err := env.svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, st.Subscribers.Active)
	assert.Equal(t, 12, st.Subscribers.Total)
}
