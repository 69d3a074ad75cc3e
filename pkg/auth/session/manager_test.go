package session

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type stubStore struct {
	values map[string]string
}

func newStubStore() *stubStore {
	return &stubStore{values: map[string]string{}}
}

func (s *stubStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.values[key] = value.(string)
	return nil
}

func (s *stubStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (s *stubStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

type stubKeyer struct{}

func (stubKeyer) SessionKey(sessionID string) string { return "pd:session:" + sessionID }

func newTestManager(store sessionStore) *Manager {
	return &Manager{store: store, keyer: stubKeyer{}, ttl: time.Hour}
}

func TestEstablishAndHasSession(t *testing.T) {
	store := newStubStore()
	mgr := newTestManager(store)

	id := NewSessionID()
	if err := mgr.Establish(context.Background(), id); err != nil {
		t.Fatalf("establish: %v", err)
	}

	ok, err := mgr.HasSession(context.Background(), id)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if !ok {
		t.Fatal("expected session to be live")
	}
}

func TestRevokeInvalidatesSession(t *testing.T) {
	store := newStubStore()
	mgr := newTestManager(store)

	id := NewSessionID()
	if err := mgr.Establish(context.Background(), id); err != nil {
		t.Fatalf("establish: %v", err)
	}
	if err := mgr.Revoke(context.Background(), id); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	ok, err := mgr.HasSession(context.Background(), id)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatal("expected revoked session to be gone")
	}
}

func TestHasSessionRequiresID(t *testing.T) {
	mgr := newTestManager(newStubStore())
	if _, err := mgr.HasSession(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank session id")
	}
}
