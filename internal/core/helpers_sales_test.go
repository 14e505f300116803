package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"salescore/internal/events"
	"salescore/internal/infra/persistence/memory"
	"salescore/pkg/domain"
)

var errPersistFailed = errors.New("persist failed")

// flakyStore wraps the memory store and fails persists on demand.
type flakyStore struct {
	*memory.Store
	mu   sync.Mutex
	fail bool
}

func newFlakyStore(initial ...domain.Snapshot) *flakyStore {
	return &flakyStore{Store: memory.New(initial...)}
}

func (s *flakyStore) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *flakyStore) Persist(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errPersistFailed
	}
	return s.Store.Persist(ctx, snap)
}

// recordingLogger keeps every log call for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	kv    []any
}

func (l *recordingLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.add("debug", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.add("info", msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...any)  { l.add("warn", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.add("error", msg, kv) }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

type fixture struct {
	store  *flakyStore
	repo   *Repository
	svc    *Service
	events *events.Recorder
	logger *recordingLogger
}

func newFixture(t *testing.T, initial ...domain.Snapshot) *fixture {
	t.Helper()
	store := newFlakyStore(initial...)
	logger := &recordingLogger{}
	repo, err := OpenRepository(context.Background(), store, WithRepositoryLogger(logger))
	require.NoError(t, err)
	rec := &events.Recorder{}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(repo,
		WithLogger(logger),
		WithEventPublisher(rec),
		WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return &fixture{store: store, repo: repo, svc: svc, events: rec, logger: logger}
}

func money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func (f *fixture) product(t *testing.T, name, price string, qty int) *domain.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(context.Background(), ProductInput{Name: name, Price: money(t, price), Qty: qty})
	require.NoError(t, err)
	return p
}

func (f *fixture) partner(t *testing.T, name, email string) *domain.Partner {
	t.Helper()
	p, err := f.svc.CreatePartner(context.Background(), PartnerInput{Name: name, Email: email})
	require.NoError(t, err)
	return p
}

func (f *fixture) persisted(t *testing.T) domain.Snapshot {
	t.Helper()
	snap, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return snap
}
