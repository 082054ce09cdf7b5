package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Storage keys, one entry per credential.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserType     = "userType"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserType}

var ErrNoSession = errors.New("no session stored")

// Backend is durable key-value storage for the three credential keys.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Store reads and writes sessions through a Backend. It is safe for
// concurrent use; no lock spans a network call, so a request may send the
// token that was current when it was attached.
type Store struct {
	mu      sync.Mutex
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// NewMemoryStore is a Store that lives as long as the process.
func NewMemoryStore() *Store {
	return NewStore(NewMemoryBackend())
}

func (s *Store) Set(ctx context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Put(ctx, map[string]string{
		KeyAccessToken:  sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
		KeyUserType:     string(sess.Role),
	}); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get returns the zero Session when nothing is stored.
func (s *Store) Get(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[string]string, len(allKeys))
	for _, key := range allKeys {
		v, ok, err := s.backend.Get(ctx, key)
		if err != nil {
			return Session{}, fmt.Errorf("read %s: %w", key, err)
		}
		if ok {
			values[key] = v
		}
	}

	sess := Session{
		AccessToken:  values[KeyAccessToken],
		RefreshToken: values[KeyRefreshToken],
	}
	if tag := values[KeyUserType]; tag != "" {
		// older clients stored other casings
		if role, err := ParseRole(tag); err == nil {
			sess.Role = role
		}
	}
	return sess, nil
}

// SetAccessToken replaces only the access token, as a refresh does. It fails
// with ErrNoSession once the session has been cleared, so a refresh finishing
// after a logout cannot leave a lone access token behind.
func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.backend.Get(ctx, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("read %s: %w", KeyRefreshToken, err)
	}
	if !ok {
		return ErrNoSession
	}

	if err := s.backend.Put(ctx, map[string]string{KeyAccessToken: token}); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	return nil
}

// Clear removes all three keys together.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx, allKeys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Put(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len is the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
