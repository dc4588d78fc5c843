package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get for a missing setting
var ErrNotFound = errors.New("setting not found")

// MemoryStore keeps settings in a map
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]interface{})}
}

func (m *MemoryStore) Set(_ context.Context, name string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, name)
	return nil
}

// Get returns the value of name
func (m *MemoryStore) Get(_ context.Context, name string) (interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Len returns the number of stored settings
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// DefaultSettingTable is the host CMS settings table
const DefaultSettingTable = "setting"

// SQLStore writes settings to the host's `setting` table, one JSON-encoded
// value per id.
type SQLStore struct {
	db    *sql.DB
	table string
}

// NewSQLStore creates a store over the setting table of db
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, table: DefaultSettingTable}
}

func (s *SQLStore) Set(ctx context.Context, name string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting value: %w", err)
	}
	query := fmt.Sprintf("INSERT INTO `%s` (id, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)", s.table)
	if _, err := s.db.ExecContext(ctx, query, name, string(encoded)); err != nil {
		return fmt.Errorf("failed to write setting: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	query := fmt.Sprintf("DELETE FROM `%s` WHERE id = ?", s.table)
	if _, err := s.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

// Get returns the decoded value of name
func (s *SQLStore) Get(ctx context.Context, name string) (interface{}, error) {
	query := fmt.Sprintf("SELECT value FROM `%s` WHERE id = ?", s.table)
	var raw string
	err := s.db.QueryRowContext(ctx, query, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read setting: %w", err)
	}
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("failed to decode setting %s: %w", name, err)
	}
	return value, nil
}

// DefaultRedisKey is the hash holding the settings in Redis
const DefaultRedisKey = "ngram-search:settings"

// RedisStore keeps settings as JSON values in one Redis hash
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore creates a store over the hash key. An empty key selects
// DefaultRedisKey.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (r *RedisStore) Set(ctx context.Context, name string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting value: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, name, string(encoded)).Err(); err != nil {
		return fmt.Errorf("failed to write setting to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, name string) error {
	if err := r.client.HDel(ctx, r.key, name).Err(); err != nil {
		return fmt.Errorf("failed to delete setting from redis: %w", err)
	}
	return nil
}

// Get returns the decoded value of name
func (r *RedisStore) Get(ctx context.Context, name string) (interface{}, error) {
	raw, err := r.client.HGet(ctx, r.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read setting from redis: %w", err)
	}
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("failed to decode setting %s: %w", name, err)
	}
	return value, nil
}
