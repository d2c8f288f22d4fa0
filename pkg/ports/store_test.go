package ports_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// mockStore is the smallest SessionStore that satisfies the contract.
type mockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Session
}

func (m *mockStore) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = s.Clone()
	return nil
}

func (m *mockStore) Load(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *mockStore) List(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func TestSessionStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, &mockStore{data: map[string]*domain.Session{}})
}

func TestTransportFunc(t *testing.T) {
	called := false
	var tr ports.Transport = ports.TransportFunc(func(ctx context.Context, req ports.Request) (<-chan domain.StreamEvent, error) {
		called = true
		ch := make(chan domain.StreamEvent, 1)
		ch <- domain.StreamEvent{Type: domain.StreamCompleted, Text: req.Model}
		close(ch)
		return ch, nil
	})

	ch, err := tr.Send(context.Background(), ports.Request{Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	ev := <-ch
	if !called || ev.Text != "m" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
