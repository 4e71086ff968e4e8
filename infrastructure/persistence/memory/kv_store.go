package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"notepad-backend/application/ports"
)

// KVStore is an in-process ports.KVStore used for local runs and tests.
type KVStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewKVStore creates an empty store.
func NewKVStore() *KVStore {
	return &KVStore{items: make(map[string]string)}
}

// Seed writes entries directly, bypassing any decoding.
func (s *KVStore) Seed(entries map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range entries {
		s.items[key] = value
	}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return "", ports.ErrKeyNotFound
	}
	return value, nil
}

func (s *KVStore) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = value
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// List returns matching keys in lexical order.
func (s *KVStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports the number of stored keys.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
