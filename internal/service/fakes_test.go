package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/wellnessreal/internal/mailer"
	"github.com/mmeshcher/wellnessreal/internal/model"
	"github.com/mmeshcher/wellnessreal/internal/payment"
	"github.com/mmeshcher/wellnessreal/internal/repository"
)

// memStore хранит данные в памяти и, как PostgreSQL-репозиторий, применяет
// условные обновления только к строке с ожидаемой версией.
type memStore struct {
	mu         sync.Mutex
	proposals  map[uuid.UUID]model.Proposal
	posts      map[uuid.UUID]model.Post
	categories map[uuid.UUID]model.Category

	// concurrentWrites имитирует запись другого запроса перед очередным UPDATE.
	concurrentWrites int
	updateErr        error
	updateCalls      int
}

func newMemStore() *memStore {
	return &memStore{
		proposals:  map[uuid.UUID]model.Proposal{},
		posts:      map[uuid.UUID]model.Post{},
		categories: map[uuid.UUID]model.Category{},
	}
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) proposal(id uuid.UUID) model.Proposal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proposals[id]
}

func (m *memStore) findToken(token string) (uuid.UUID, bool) {
	for id, p := range m.proposals {
		if p.Token == token {
			return id, true
		}
	}
	return uuid.Nil, false
}

func (m *memStore) GetProposalByID(_ context.Context, id uuid.UUID) (*model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, repository.ErrProposalNotFound
	}
	return &p, nil
}

func (m *memStore) GetProposalByToken(_ context.Context, token string) (*model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.findToken(token)
	if !ok {
		return nil, repository.ErrProposalNotFound
	}
	p := m.proposals[id]
	return &p, nil
}

func (m *memStore) CreateProposal(_ context.Context, p *model.Proposal) (*model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.findToken(p.Token); ok {
		return nil, repository.ErrTokenExists
	}
	created := *p
	created.Version = 1
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.proposals[created.ID] = created
	return &created, nil
}

func (m *memStore) update(id uuid.UUID, patch model.ProposalPatch) (*model.Proposal, error) {
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	cur := m.proposals[id]
	if m.concurrentWrites > 0 {
		m.concurrentWrites--
		cur.Version++
		m.proposals[id] = cur
	}
	if patch.IfVersion != 0 && patch.IfVersion != cur.Version {
		return nil, repository.ErrVersionConflict
	}
	next := patch.Apply(cur)
	next.Version++
	next.UpdatedAt = time.Now()
	m.proposals[id] = next
	return &next, nil
}

func (m *memStore) UpdateProposalByID(_ context.Context, id uuid.UUID, patch model.ProposalPatch) (*model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[id]; !ok {
		return nil, repository.ErrProposalNotFound
	}
	return m.update(id, patch)
}

func (m *memStore) UpdateProposalByToken(_ context.Context, token string, patch model.ProposalPatch) (*model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.findToken(token)
	if !ok {
		return nil, repository.ErrProposalNotFound
	}
	return m.update(id, patch)
}

func (m *memStore) ListProposals(context.Context) ([]model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]model.Proposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *memStore) DeleteProposal(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[id]; !ok {
		return repository.ErrProposalNotFound
	}
	delete(m.proposals, id)
	return nil
}

func (m *memStore) withCategory(p model.Post) model.Post {
	if p.CategoryID != nil {
		if c, ok := m.categories[*p.CategoryID]; ok {
			p.Category = &c
		}
	}
	return p
}

func (m *memStore) ListPublishedPosts(_ context.Context, categorySlug string) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Post
	for _, p := range m.posts {
		p = m.withCategory(p)
		if !p.Published {
			continue
		}
		if categorySlug != "" && (p.Category == nil || p.Category.Slug != categorySlug) {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PublishedAt.After(res[j].PublishedAt) })
	return res, nil
}

func (m *memStore) ListPosts(context.Context) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Post
	for _, p := range m.posts {
		res = append(res, m.withCategory(p))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *memStore) GetPostByID(_ context.Context, id uuid.UUID) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	p = m.withCategory(p)
	return &p, nil
}

func (m *memStore) GetPostBySlug(_ context.Context, slug string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			p = m.withCategory(p)
			return &p, nil
		}
	}
	return nil, repository.ErrPostNotFound
}

func (m *memStore) CreatePost(_ context.Context, p *model.Post) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.posts {
		if existing.Slug == p.Slug {
			return nil, repository.ErrSlugExists
		}
	}
	if p.CategoryID != nil {
		if _, ok := m.categories[*p.CategoryID]; !ok {
			return nil, repository.ErrCategoryNotFound
		}
	}
	created := *p
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.posts[created.ID] = created
	created = m.withCategory(created)
	return &created, nil
}

func (m *memStore) UpdatePost(_ context.Context, id uuid.UUID, patch model.PostPatch) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Published != nil {
		p.Published = *patch.Published
	}
	if patch.CategoryID != nil {
		if *patch.CategoryID == "" {
			p.CategoryID = nil
		} else {
			cid := uuid.MustParse(*patch.CategoryID)
			p.CategoryID = &cid
		}
	}
	m.posts[id] = p
	p = m.withCategory(p)
	return &p, nil
}

func (m *memStore) DeletePost(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repository.ErrPostNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) ListCategories(context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Category
	for _, c := range m.categories {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Title < res[j].Title })
	return res, nil
}

func (m *memStore) CreateCategory(_ context.Context, c *model.Category) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.Slug == c.Slug {
			return nil, repository.ErrSlugExists
		}
	}
	created := *c
	created.CreatedAt = time.Now()
	m.categories[created.ID] = created
	return &created, nil
}

func (m *memStore) UpdateCategory(_ context.Context, id uuid.UUID, patch model.CategoryPatch) (*model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Slug != nil {
		c.Slug = *patch.Slug
	}
	if patch.Description != nil {
		c.Description = patch.Description
	}
	m.categories[id] = c
	return &c, nil
}

func (m *memStore) DeleteCategory(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

const validSignature = "t=1,v1=valid"

type stubPayments struct {
	mu       sync.Mutex
	requests []payment.CheckoutRequest
	sessions map[string]*payment.CheckoutSession
	byKey    map[string]string
	err      error
}

// CreateCheckoutSession повторяет поведение Stripe: запрос с уже виденным ключом идемпотентности
// возвращает ту же сессию.
func (s *stubPayments) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.requests = append(s.requests, req)
	if s.sessions == nil {
		s.sessions = make(map[string]*payment.CheckoutSession)
		s.byKey = make(map[string]string)
	}
	if id, ok := s.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		sess := *s.sessions[id]
		return &sess, nil
	}

	id := fmt.Sprintf("cs_test_%d", len(s.sessions)+1)
	s.sessions[id] = &payment.CheckoutSession{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id, Open: true}
	if req.IdempotencyKey != "" {
		s.byKey[req.IdempotencyKey] = id
	}
	sess := *s.sessions[id]
	return &sess, nil
}

func (s *stubPayments) GetCheckoutSession(_ context.Context, id string) (*payment.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get checkout session: no such session %s", id)
	}
	res := *sess
	return &res, nil
}

func (s *stubPayments) expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id].Open = false
}

func (s *stubPayments) created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *stubPayments) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != validSignature {
		return nil, fmt.Errorf("%w: no matching signature", payment.ErrInvalidSignature)
	}
	var ev payment.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func webhookPayload(t *testing.T, eventID, token, intentID string) []byte {
	t.Helper()
	b, err := json.Marshal(payment.Event{
		ID:              eventID,
		Type:            payment.EventCheckoutCompleted,
		SessionID:       "cs_test_1",
		ProposalToken:   token,
		PaymentIntentID: intentID,
	})
	require.NoError(t, err)
	return b
}

type stubMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubMailer) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []string
	for _, m := range s.sent {
		res = append(res, m.Subject)
	}
	return res
}

type stubMedia struct {
	uploaded    []string
	contentType string
	deleted     []string
	deleteErr   error
}

func (s *stubMedia) Upload(_ context.Context, fileName, contentType string, r io.Reader, _ int64) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	s.uploaded = append(s.uploaded, fileName)
	s.contentType = contentType
	return "https://cdn.example.com/blog/" + fileName, nil
}

func (s *stubMedia) Delete(_ context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	return s.deleteErr
}

type stubSubscribers struct {
	count *model.SubscriberCount
	err   error
}

func (s *stubSubscribers) SubscriberCount(context.Context) (*model.SubscriberCount, error) {
	return s.count, s.err
}

type memGuard struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func (g *memGuard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, key)
	return nil
}

type testEnv struct {
	svc      *Service
	store    *memStore
	payments *stubPayments
	mail     *stubMailer
	media    *stubMedia
	guard    *memGuard
	clock    time.Time
}

var baseTime = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    newMemStore(),
		payments: &stubPayments{},
		mail:     &stubMailer{},
		media:    &stubMedia{},
		guard:    &memGuard{claimed: map[string]bool{}},
		clock:    baseTime,
	}
	env.svc = NewService(env.store, Deps{
		Payments: env.payments,
		Mailer:   env.mail,
		Media:    env.media,
		Events:   env.guard,
	}, Config{
		BaseURL:    "https://wellnessreal.es/",
		Recipients: []string{"info@wellnessreal.es"},
	})
	env.svc.now = func() time.Time { return env.clock }
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func validProposalInput() CreateProposalInput {
	return CreateProposalInput{
		ClientName:   "Ana Pérez",
		ClientEmail:  "  Ana@Example.com ",
		ClientPhone:  "+34 600 000 000",
		ServiceType:  model.ServicePack3Meses,
		Price:        decimal.NewFromInt(100),
		Duration:     "3 meses",
		Description:  "Plan de entrenamiento y nutrición",
		ContractText: "El cliente acepta las condiciones del servicio.",
	}
}

func (e *testEnv) createProposal(t *testing.T) *model.Proposal {
	t.Helper()
	p, err := e.svc.CreateProposal(context.Background(), validProposalInput())
	require.NoError(t, err)
	return p
}

func (e *testEnv) signedProposal(t *testing.T) *model.Proposal {
	t.Helper()
	p := e.createProposal(t)
	require.NoError(t, e.svc.SignProposal(context.Background(), p.Token, SignInput{FullName: "Ana Pérez"}, "203.0.113.7"))
	return p
}
