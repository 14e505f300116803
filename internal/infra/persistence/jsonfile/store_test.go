package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescore/internal/infra/persistence/storetest"
	"salescore/pkg/domain"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (domain.SnapshotStore, func() domain.SnapshotStore) {
		path := filepath.Join(t.TempDir(), "database.json")
		s, err := New(path)
		require.NoError(t, err)
		return s, func() domain.SnapshotStore {
			again, err := New(path)
			require.NoError(t, err)
			return again
		}
	})
}

func TestPersistWritesIndentedCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "database.json")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Persist(context.Background(), storetest.Sample()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"products\": {")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc, 4)
	for _, name := range []string{"products", "partners", "saleorders", "invoices"} {
		assert.Contains(t, doc, name)
	}
	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist), "temp file left behind")
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	s, err := New(path)
	require.NoError(t, err)
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Products)
	assert.NotNil(t, snap.Invoices)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s, err := New(path)
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse snapshot")
}

func TestPersistTimesOutOnHeldLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	holder := flock.New(path + ".lock")
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = holder.Unlock() }()

	s, err := New(path, WithLockTimeout(250*time.Millisecond))
	require.NoError(t, err)
	err = s.Persist(context.Background(), storetest.Sample())
	require.ErrorIs(t, err, ErrLocked)
	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

type fakeLock struct {
	grant   bool
	err     error
	locks   int
	unlocks int
}

func (f *fakeLock) TryLockContext(context.Context, time.Duration) (bool, error) {
	f.locks++
	return f.grant, f.err
}

func (f *fakeLock) Unlock() error {
	f.unlocks++
	return nil
}

type fakeFactory struct {
	lock *fakeLock
	path string
}

func (f *fakeFactory) New(path string) FileLock {
	f.path = path
	return f.lock
}

func TestCustomLockFactory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	factory := &fakeFactory{lock: &fakeLock{grant: true}}
	s, err := New(path, WithLockFactory(factory))
	require.NoError(t, err)
	assert.Equal(t, path+".lock", factory.path)

	require.NoError(t, s.Persist(context.Background(), storetest.Sample()))
	_, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, factory.lock.locks)
	assert.Equal(t, 2, factory.lock.unlocks)

	factory.lock.grant = false
	_, err = s.Load(context.Background())
	require.ErrorIs(t, err, ErrLocked)

	factory.lock.err = errors.New("boom")
	err = s.Persist(context.Background(), storetest.Sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire lock")
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPath, s.Path())
}
