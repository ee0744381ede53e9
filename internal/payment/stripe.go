// Package payment инкапсулирует взаимодействие с платёжной системой Stripe.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrInvalidSignature возвращается, если подпись webhook не прошла проверку.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// EventCheckoutCompleted обозначает успешную оплату через Checkout.
const EventCheckoutCompleted = string(stripe.EventTypeCheckoutSessionCompleted)

const metadataProposalToken = "proposalToken"

// CheckoutRequest описывает сессию оплаты одного предложения.
type CheckoutRequest struct {
	ProposalToken string
	ProductName   string
	Description   string
	Price         decimal.Decimal
	CustomerEmail string
	SuccessURL    string
	CancelURL     string

	// IdempotencyKey склеивает повторные запросы создания в одну сессию Stripe.
	IdempotencyKey string
}

// CheckoutSession описывает созданную в Stripe сессию оплаты.
type CheckoutSession struct {
	ID   string
	URL  string
	Open bool // по сессии ещё можно заплатить
}

// Event содержит нужные поля проверенного события webhook.
type Event struct {
	ID              string
	Type            string
	SessionID       string
	ProposalToken   string
	PaymentIntentID string
}

// Stripe создаёт сессии оплаты и проверяет события webhook.
type Stripe struct {
	sessions      session.Client
	webhookSecret string
	currency      string
}

// NewStripe создаёт клиента Stripe. backendURL позволяет переопределить адрес API.
func NewStripe(secretKey, webhookSecret, currency, backendURL string) *Stripe {
	backend := stripe.GetBackend(stripe.APIBackend)
	if backendURL != "" {
		backend = stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(backendURL),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		})
	}

	return &Stripe{
		sessions:      session.Client{B: backend, Key: secretKey},
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

// UnitAmount переводит цену в минимальные единицы валюты.
func UnitAmount(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateCheckoutSession создаёт сессию оплаты картой.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(UnitAmount(req.Price)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(req.CustomerEmail),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataProposalToken, req.ProposalToken)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return toCheckoutSession(sess), nil
}

// GetCheckoutSession возвращает ранее созданную сессию оплаты.
func (s *Stripe) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.sessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}

	return toCheckoutSession(sess), nil
}

func toCheckoutSession(sess *stripe.CheckoutSession) *CheckoutSession {
	return &CheckoutSession{
		ID:   sess.ID,
		URL:  sess.URL,
		Open: sess.Status == stripe.CheckoutSessionStatusOpen,
	}
}

// ParseWebhook проверяет подпись и разбирает событие webhook.
// Без секрета webhook ни одно событие не считается подписанным.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret is not configured", ErrInvalidSignature)
	}
	if signature == "" {
		return nil, ErrInvalidSignature
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventCheckoutCompleted || ev.Data == nil {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = cs.ID
	out.ProposalToken = cs.Metadata[metadataProposalToken]
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}

	return out, nil
}
