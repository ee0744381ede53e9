// Package service реализует бизнес-логику сайта: жизненный цикл предложений, оплату, блог и панель администратора.
package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/idempotency"
	"github.com/mmeshcher/wellnessreal/internal/mailer"
	"github.com/mmeshcher/wellnessreal/internal/model"
	"github.com/mmeshcher/wellnessreal/internal/payment"
)

// ErrNotConfigured возвращается, если внешняя интеграция, нужная операции, не настроена.
var ErrNotConfigured = errors.New("integration not configured")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	GetProposalByID(ctx context.Context, id uuid.UUID) (*model.Proposal, error)
	GetProposalByToken(ctx context.Context, token string) (*model.Proposal, error)
	CreateProposal(ctx context.Context, p *model.Proposal) (*model.Proposal, error)
	UpdateProposalByID(ctx context.Context, id uuid.UUID, patch model.ProposalPatch) (*model.Proposal, error)
	UpdateProposalByToken(ctx context.Context, token string, patch model.ProposalPatch) (*model.Proposal, error)
	ListProposals(ctx context.Context) ([]model.Proposal, error)
	DeleteProposal(ctx context.Context, id uuid.UUID) error

	ListPublishedPosts(ctx context.Context, categorySlug string) ([]model.Post, error)
	ListPosts(ctx context.Context) ([]model.Post, error)
	GetPostByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*model.Post, error)
	CreatePost(ctx context.Context, p *model.Post) (*model.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, patch model.PostPatch) (*model.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, patch model.CategoryPatch) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// PaymentGateway создаёт сессии оплаты и проверяет события платёжной системы.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*payment.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*payment.Event, error)
}

// Mailer отправляет письма.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// MediaStore хранит загруженные изображения.
type MediaStore interface {
	Upload(ctx context.Context, fileName, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, url string) error
}

// SubscriberSource возвращает статистику подписчиков рассылки.
type SubscriberSource interface {
	SubscriberCount(ctx context.Context) (*model.SubscriberCount, error)
}

// Deps содержит внешние зависимости сервиса. Необязательные интеграции могут быть nil.
type Deps struct {
	Payments    PaymentGateway
	Mailer      Mailer
	Media       MediaStore
	Subscribers SubscriberSource
	Events      idempotency.Guard
	Logger      *zap.Logger
}

// Config содержит параметры бизнес-логики.
type Config struct {
	BaseURL           string
	AdminPasswordHash []byte
	Recipients        []string
}

// Service содержит бизнес-логику сайта.
type Service struct {
	repo        Repository
	payments    PaymentGateway
	mail        Mailer
	media       MediaStore
	subscribers SubscriberSource
	events      idempotency.Guard
	logger      *zap.Logger
	cfg         Config
	now         func() time.Time

	notifications sync.WaitGroup
}

// NewService создаёт новый сервис с указанным репозиторием и интеграциями.
func NewService(repo Repository, deps Deps, cfg Config) *Service {
	s := &Service{
		repo:        repo,
		payments:    deps.Payments,
		mail:        deps.Mailer,
		media:       deps.Media,
		subscribers: deps.Subscribers,
		events:      deps.Events,
		logger:      deps.Logger,
		cfg:         cfg,
		now:         time.Now,
	}
	if s.events == nil {
		s.events = idempotency.NopGuard{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return s
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Wait дожидается отправки фоновых уведомлений.
func (s *Service) Wait() {
	s.notifications.Wait()
}

// Close дожидается фоновых уведомлений и закрывает ресурсы сервиса.
func (s *Service) Close() error {
	s.Wait()
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
