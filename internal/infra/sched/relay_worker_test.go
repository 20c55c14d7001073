//go:build !integration

package sched

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"telegram-tempmail-relay/internal/domain/model"
	"telegram-tempmail-relay/internal/infra/worker"

	"github.com/rs/zerolog"
)

type stubRelay struct {
	mu       sync.Mutex
	sessions []*model.Session
	listErr  error
	procErr  map[string]error
	procFn   func(ctx context.Context, sess *model.Session) (int, error)
	polled   []string
}

func (s *stubRelay) ActiveSessions(ctx context.Context) ([]*model.Session, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.sessions, nil
}

func (s *stubRelay) ProcessSession(ctx context.Context, sess *model.Session) (int, error) {
	s.mu.Lock()
	s.polled = append(s.polled, sess.MailboxAddress)
	s.mu.Unlock()
	if s.procFn != nil {
		return s.procFn(ctx, sess)
	}
	if err := s.procErr[sess.MailboxAddress]; err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *stubRelay) polledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.polled)
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testSessions(addrs ...string) []*model.Session {
	out := make([]*model.Session, 0, len(addrs))
	for i, a := range addrs {
		s, _ := model.NewSession("", a, int64(i+1), a, "secret")
		out = append(out, s)
	}
	return out
}

func TestRelayWorker(t *testing.T) {
	t.Run("polls every active session on the startup tick", func(t *testing.T) {
		relay := &stubRelay{sessions: testSessions("a@x.test", "b@x.test")}
		pool := worker.NewPool(2, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		pool.Start(ctx)
		defer pool.Stop()

		w := NewRelayWorker(time.Hour, relay, pool, testLogger())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		deadline := time.After(2 * time.Second)
		for relay.polledCount() < 2 {
			select {
			case <-deadline:
				t.Fatalf("expected 2 sessions polled, got %d", relay.polledCount())
			case <-time.After(10 * time.Millisecond):
			}
		}

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled on shutdown, got: %v", err)
		}
	})

	t.Run("a failing session does not stop the others", func(t *testing.T) {
		relay := &stubRelay{
			sessions: testSessions("a@x.test", "b@x.test", "c@x.test"),
			procErr:  map[string]error{"b@x.test": errors.New("provider down")},
		}
		pool := worker.NewPool(1, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		defer pool.Stop()

		w := NewRelayWorker(time.Hour, relay, pool, testLogger())
		w.runTick(ctx)

		if relay.polledCount() != 3 {
			t.Errorf("expected all 3 sessions polled despite one failure, got %d", relay.polledCount())
		}
	})

	t.Run("shutdown mid-tick does not leave the tick blocked", func(t *testing.T) {
		relay := &stubRelay{
			sessions: testSessions("a@x.test", "b@x.test", "c@x.test", "d@x.test", "e@x.test"),
		}
		// One worker, so most sessions sit queued while the first blocks.
		relay.procFn = func(ctx context.Context, sess *model.Session) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		pool := worker.NewPool(1, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		pool.Start(ctx)
		defer pool.Stop()

		w := NewRelayWorker(time.Hour, relay, pool, testLogger())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		deadline := time.After(2 * time.Second)
		for relay.polledCount() < 1 {
			select {
			case <-deadline:
				t.Fatal("first session never started")
			case <-time.After(10 * time.Millisecond):
			}
		}

		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("tick still blocked after cancellation; queued sessions stranded")
		}
	})

	t.Run("survives an enumeration failure", func(t *testing.T) {
		relay := &stubRelay{listErr: errors.New("db down")}
		pool := worker.NewPool(1, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		defer pool.Stop()

		w := NewRelayWorker(time.Hour, relay, pool, testLogger())
		// Must not panic or hang.
		w.runTick(ctx)
		if relay.polledCount() != 0 {
			t.Errorf("expected no sessions polled, got %d", relay.polledCount())
		}
	})
}
