package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data   map[string]*domain.Session
	mu     sync.Mutex
	active atomic.Int32
	peak   atomic.Int32
}

func (s *SlowStore) enter() func() {
	n := s.active.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { s.active.Add(-1) }
}

func (s *SlowStore) Save(ctx context.Context, sess *domain.Session) error {
	defer s.enter()()
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[sess.ID] = sess.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	defer s.enter()()
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.data[id]; ok {
		return sess.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestManager_SerializesSameSession(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, manager.Save(ctx, domain.NewSession("race-test")))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.peak.Load(), "writes to one session must not overlap")
}

func TestManager_LoadOrStart(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := manager.LoadOrStart(ctx, "atomic-init")
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, "atomic-init")
	require.NoError(t, err)
	assert.Equal(t, domain.RunIdle, s.Status)
	assert.Empty(t, s.Messages)
}

func TestManager_SaveRejectsMissingID(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	err := manager.Save(context.Background(), &domain.Session{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type fakeLocker struct {
	locked   atomic.Int32
	unlocked atomic.Int32
	fail     error
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.locked.Add(1)
	return func(context.Context) error {
		l.unlocked.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &fakeLocker{}
	manager := session.NewManager(&SlowStore{}, session.WithLocker(locker), session.WithLockTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, domain.NewSession("s1")))
	_, err := manager.Load(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), locker.locked.Load())
	assert.Equal(t, int32(2), locker.unlocked.Load())

	locker.fail = errors.New("redis down")
	err = manager.Save(ctx, domain.NewSession("s1"))
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
