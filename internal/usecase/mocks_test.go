//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/domain/ports/repository"
)

// -----------------------------
// In-memory session repository
// -----------------------------

type memSessionRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Session // keyed by mailbox address
	saveErr error                     // simulate save failures
	findErr error                     // simulate read failures

	// tokenWrites records every UpdateAuthToken call, in order.
	tokenWrites []string
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{store: make(map[string]*model.Session)}
}

func (m *memSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.ObservedIDs = append([]string(nil), s.ObservedIDs...)
	m.store[s.MailboxAddress] = &cp
	return nil
}

func (m *memSessionRepo) FindByMailbox(ctx context.Context, tx repository.Tx, address string) (*model.Session, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[address]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	cp.ObservedIDs = append([]string(nil), s.ObservedIDs...)
	return &cp, nil
}

func (m *memSessionRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.UserID == userID {
			cp := *s
			cp.ObservedIDs = append([]string(nil), s.ObservedIDs...)
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessionRepo) FindActive(ctx context.Context, tx repository.Tx, window time.Duration) ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	var out []*model.Session
	for _, s := range m.store {
		if s.Active(now, window) {
			cp := *s
			cp.ObservedIDs = append([]string(nil), s.ObservedIDs...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSessionRepo) UpdateAuthToken(ctx context.Context, tx repository.Tx, address, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[address]
	if !ok {
		return domain.ErrNotFound
	}
	s.AuthToken = token
	m.tokenWrites = append(m.tokenWrites, token)
	return nil
}

func (m *memSessionRepo) UpdateObserved(ctx context.Context, tx repository.Tx, address string, observed []string, lastAccess time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[address]
	if !ok {
		return domain.ErrNotFound
	}
	s.ObservedIDs = append([]string(nil), observed...)
	s.LastAccess = lastAccess
	return nil
}

func (m *memSessionRepo) TouchLastAccess(ctx context.Context, tx repository.Tx, address string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[address]
	if !ok {
		return domain.ErrNotFound
	}
	s.LastAccess = at
	return nil
}

func (m *memSessionRepo) CountSessions(ctx context.Context, tx repository.Tx) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store), nil
}

func (m *memSessionRepo) storedToken(address string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.store[address]; ok {
		return s.AuthToken
	}
	return ""
}

func (m *memSessionRepo) storedObserved(address string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.store[address]; ok {
		return append([]string(nil), s.ObservedIDs...)
	}
	return nil
}

// -----------------------------
// Fake mail provider
// -----------------------------

type fakeProvider struct {
	mu sync.Mutex

	AuthenticateFunc  func(ctx context.Context, address, secret string) (string, error)
	ListMessagesFunc  func(ctx context.Context, token string) ([]model.MessageSummary, error)
	FetchMessageFunc  func(ctx context.Context, token, id string) (*model.MessageDetail, error)
	DeleteMessageFunc func(ctx context.Context, token, id string) error

	authCalls int
	listCalls int
}

func (f *fakeProvider) Authenticate(ctx context.Context, address, secret string) (string, error) {
	f.mu.Lock()
	f.authCalls++
	f.mu.Unlock()
	if f.AuthenticateFunc != nil {
		return f.AuthenticateFunc(ctx, address, secret)
	}
	return "fresh-token", nil
}

func (f *fakeProvider) ListMessages(ctx context.Context, token string) ([]model.MessageSummary, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.ListMessagesFunc != nil {
		return f.ListMessagesFunc(ctx, token)
	}
	return nil, nil
}

func (f *fakeProvider) FetchMessage(ctx context.Context, token, id string) (*model.MessageDetail, error) {
	if f.FetchMessageFunc != nil {
		return f.FetchMessageFunc(ctx, token, id)
	}
	return &model.MessageDetail{MessageSummary: model.MessageSummary{ID: id}}, nil
}

func (f *fakeProvider) DeleteMessage(ctx context.Context, token, id string) error {
	if f.DeleteMessageFunc != nil {
		return f.DeleteMessageFunc(ctx, token, id)
	}
	return nil
}

func (f *fakeProvider) CreateAccount(ctx context.Context, address, secret string) (string, error) {
	return "acct-1", nil
}

func (f *fakeProvider) Domains(ctx context.Context) ([]string, error) {
	return []string{"x.test"}, nil
}

func (f *fakeProvider) AuthCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

// -----------------------------
// Recording dispatch sink
// -----------------------------

type memSink struct {
	mu         sync.Mutex
	Delivered  []model.Notification
	DeliverErr error
}

func (s *memSink) Deliver(ctx context.Context, n model.Notification) error {
	if s.DeliverErr != nil {
		return s.DeliverErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Delivered = append(s.Delivered, n)
	return nil
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Delivered)
}

// -----------------------------
// In-memory session guard
// -----------------------------

type memGuard struct {
	mu      sync.Mutex
	held    map[string]string
	extends int
}

func newMemGuard() *memGuard {
	return &memGuard{held: make(map[string]string)}
}

func (g *memGuard) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return "", domain.ErrSessionBusy
	}
	token := key + "-token"
	g.held[key] = token
	return token, nil
}

func (g *memGuard) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] != token {
		return domain.ErrSessionBusy
	}
	g.extends++
	return nil
}

func (g *memGuard) extendCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.extends
}

func (g *memGuard) Unlock(ctx context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] != token {
		return domain.ErrNotFound
	}
	delete(g.held, key)
	return nil
}

// -----------------------------
// Pass-through transaction manager
// -----------------------------

type noopTxManager struct{}

func (noopTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
