package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// SessionStore holds the uploaded-files list and the current company.
type SessionStore interface {
	Files(ctx context.Context) ([]string, error)
	ResetFiles(ctx context.Context) error
	AddFile(ctx context.Context, name string) error
	RemoveFile(ctx context.Context, name string) (bool, error)
	CurrentCompany(ctx context.Context) (string, bool, error)
	SetCurrentCompany(ctx context.Context, company string) error
}

// MemorySessionStore keeps session state in process memory.
type MemorySessionStore struct {
	mu      sync.RWMutex
	files   []string
	company string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (m *MemorySessionStore) Files(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.files))
	copy(out, m.files)
	return out, nil
}

func (m *MemorySessionStore) ResetFiles(ctx context.Context) error {
	m.mu.Lock()
	m.files = nil
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) AddFile(ctx context.Context, name string) error {
	m.mu.Lock()
	m.files = append(m.files, name)
	m.mu.Unlock()
	return nil
}

// RemoveFile drops the first occurrence of name and reports whether it was tracked.
func (m *MemorySessionStore) RemoveFile(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.files {
		if f == name {
			m.files = append(m.files[:i], m.files[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemorySessionStore) CurrentCompany(ctx context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.company, m.company != "", nil
}

func (m *MemorySessionStore) SetCurrentCompany(ctx context.Context, company string) error {
	m.mu.Lock()
	m.company = company
	m.mu.Unlock()
	return nil
}

// RedisSessionStore keeps session state in Redis so several replicas share it.
type RedisSessionStore struct {
	rdb        *redis.Client
	filesKey   string
	companyKey string
}

func NewRedisSessionStore(rdb *redis.Client, prefix string) *RedisSessionStore {
	return &RedisSessionStore{
		rdb:        rdb,
		filesKey:   prefix + ":uploaded_files",
		companyKey: prefix + ":current_company",
	}
}

func (r *RedisSessionStore) Files(ctx context.Context) ([]string, error) {
	files, err := r.rdb.LRange(ctx, r.filesKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded files: %w", err)
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}

func (r *RedisSessionStore) ResetFiles(ctx context.Context) error {
	return r.rdb.Del(ctx, r.filesKey).Err()
}

func (r *RedisSessionStore) AddFile(ctx context.Context, name string) error {
	return r.rdb.RPush(ctx, r.filesKey, name).Err()
}

func (r *RedisSessionStore) RemoveFile(ctx context.Context, name string) (bool, error) {
	n, err := r.rdb.LRem(ctx, r.filesKey, 1, name).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove uploaded file: %w", err)
	}
	return n > 0, nil
}

func (r *RedisSessionStore) CurrentCompany(ctx context.Context) (string, bool, error) {
	company, err := r.rdb.Get(ctx, r.companyKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read current company: %w", err)
	}
	return company, company != "", nil
}

func (r *RedisSessionStore) SetCurrentCompany(ctx context.Context, company string) error {
	return r.rdb.Set(ctx, r.companyKey, company, 0).Err()
}
