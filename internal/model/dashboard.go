package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriberCount содержит число подписчиков рассылки по состояниям.
type SubscriberCount struct {
	Active       int `json:"active"`
	Unsubscribed int `json:"unsubscribed"`
	Bounced      int `json:"bounced"`
	Total        int `json:"total"`
}

// RecentProposal описывает строку списка последних предложений на панели администратора.
type RecentProposal struct {
	ID           uuid.UUID       `json:"id"`
	ClientName   string          `json:"clientName"`
	ServiceLabel string          `json:"serviceLabel"`
	Price        decimal.Decimal `json:"price"`
	Status       ProposalStatus  `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ProposalStats агрегирует показатели по предложениям.
type ProposalStats struct {
	Total            int                    `json:"total"`
	StatusCounts     map[ProposalStatus]int `json:"statusCounts"`
	ActiveProposals  int                    `json:"activeProposals"`
	Revenue          decimal.Decimal        `json:"revenue"`
	PendingRevenue   decimal.Decimal        `json:"pendingRevenue"`
	ConversionRate   int                    `json:"conversionRate"`
	ThisMonth        int                    `json:"thisMonth"`
	LastMonth        int                    `json:"lastMonth"`
	StripePayments   int                    `json:"stripePayments"`
	TransferPayments int                    `json:"transferPayments"`
	Recent           []RecentProposal       `json:"recent"`
}

// LastPost описывает последнюю опубликованную статью.
type LastPost struct {
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
}

// BlogStats агрегирует показатели блога.
type BlogStats struct {
	Published int       `json:"published"`
	Drafts    int       `json:"drafts"`
	LastPost  *LastPost `json:"lastPost"`
}

// DashboardStats содержит ответ панели администратора.
type DashboardStats struct {
	Proposals   ProposalStats   `json:"proposals"`
	Blog        BlogStats       `json:"blog"`
	Subscribers SubscriberCount `json:"subscribers"`
}
