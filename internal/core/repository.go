package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"salescore/pkg/domain"
)

// Repository is the process-wide mirror of the durable snapshot. Every Save
// or Delete upserts into the mirror and rewrites the whole snapshot through
// the backing store. Batch groups several writes into one persist.
type Repository struct {
	mu       sync.Mutex
	store    domain.SnapshotStore
	snapshot domain.Snapshot
	ids      *domain.IDAllocator
	logger   Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithRepositoryLogger sets the repository logger.
func WithRepositoryLogger(l Logger) RepositoryOption {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// OpenRepository loads the snapshot from store and seeds the id counters
// past every stored id.
func OpenRepository(ctx context.Context, store domain.SnapshotStore, opts ...RepositoryOption) (*Repository, error) {
	if store == nil {
		return nil, errors.New("repository: snapshot store required")
	}
	r := &Repository{store: store, ids: domain.NewIDAllocator(), logger: noopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	snap.Normalize()
	r.snapshot = snap
	r.ids.Seed(snap)
	counts := snap.Counts()
	r.logger.Debug("snapshot loaded",
		"products", counts[domain.EntityProduct],
		"partners", counts[domain.EntityPartner],
		"sale_orders", counts[domain.EntitySaleOrder],
		"invoices", counts[domain.EntityInvoice])
	return r, nil
}

// IDs returns the allocator handing out fresh entity ids.
func (r *Repository) IDs() *domain.IDAllocator { return r.ids }

// Snapshot returns a copy of the mirror.
func (r *Repository) Snapshot() domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot.Clone()
}

// Save validates e, upserts its record and persists the whole snapshot. When
// the persist fails the mirror keeps its previous content.
func (r *Repository) Save(ctx context.Context, e domain.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.snapshot.Clone()
	if err := r.upsert(e); err != nil {
		return err
	}
	if err := r.persist(ctx); err != nil {
		r.snapshot = prev
		return err
	}
	return nil
}

// OnRollback implements domain.Tx. Single saves are never rolled back, so
// the hook is dropped.
func (r *Repository) OnRollback(func()) {}

// Delete removes the record of kind with id and persists. Entities still
// referenced by another record are rejected with an InUseError.
func (r *Repository) Delete(ctx context.Context, kind domain.EntityType, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.snapshot.Clone()
	if err := r.remove(kind, id); err != nil {
		return err
	}
	if err := r.persist(ctx); err != nil {
		r.snapshot = prev
		return err
	}
	return nil
}

// Persist writes the current mirror unchanged.
func (r *Repository) Persist(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persist(ctx)
}

// Batch runs fn with a transaction whose writes land in the mirror but are
// persisted once, after fn returns. If fn or the persist fails the mirror is
// restored and the registered rollback hooks run newest first. A panic in fn
// is rolled back the same way and then re-raised.
func (r *Repository) Batch(ctx context.Context, fn func(tx *BatchTx) error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &BatchTx{repo: r}
	prev := r.snapshot.Clone()
	defer func() {
		p := recover()
		if err == nil && p == nil {
			return
		}
		r.snapshot = prev
		for i := len(tx.rollbacks) - 1; i >= 0; i-- {
			tx.rollbacks[i]()
		}
		r.logger.Debug("batch rolled back", "writes", tx.writes, "error", err, "panic", p)
		if p != nil {
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if tx.writes == 0 {
		return nil
	}
	return r.persist(ctx)
}

// Close closes the backing store.
func (r *Repository) Close() error {
	return r.store.Close()
}

func (r *Repository) upsert(e domain.Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.StoreInto(&r.snapshot)
	r.ids.Observe(e.Kind(), e.ID())
	return nil
}

func (r *Repository) remove(kind domain.EntityType, id int) error {
	if !r.snapshot.Has(kind, id) {
		return &domain.NotFoundError{Entity: kind, ID: id}
	}
	if refKind, refID, ok := r.snapshot.ReferenceTo(kind, id); ok {
		return &domain.InUseError{Entity: kind, ID: id, ReferencedBy: refKind, ReferencedByID: refID}
	}
	r.snapshot.Remove(kind, id)
	return nil
}

func (r *Repository) persist(ctx context.Context) error {
	if err := r.store.Persist(ctx, r.snapshot); err != nil {
		r.logger.Error("persist snapshot failed", "error", err)
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// BatchTx is the transaction handed to Repository.Batch callbacks. It
// implements domain.Tx.
type BatchTx struct {
	repo      *Repository
	rollbacks []func()
	writes    int
}

// Save upserts e into the mirror without persisting.
func (tx *BatchTx) Save(_ context.Context, e domain.Entity) error {
	if err := tx.repo.upsert(e); err != nil {
		return err
	}
	tx.writes++
	return nil
}

// Delete removes a record from the mirror without persisting.
func (tx *BatchTx) Delete(_ context.Context, kind domain.EntityType, id int) error {
	if err := tx.repo.remove(kind, id); err != nil {
		return err
	}
	tx.writes++
	return nil
}

// OnRollback registers fn to run if the batch fails.
func (tx *BatchTx) OnRollback(fn func()) {
	if fn != nil {
		tx.rollbacks = append(tx.rollbacks, fn)
	}
}

var (
	_ domain.Tx = (*Repository)(nil)
	_ domain.Tx = (*BatchTx)(nil)
)
