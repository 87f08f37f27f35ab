// Package redis persists session records in Redis, one full JSON document
// per customer identity. Every save is a whole-record overwrite; there is no
// field-level update.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/lucasmaia/atende/internal/model/order"
)

const defaultPrefix = "session:"

// Store implements the session store against Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option customizes a Store.
type Option func(*Store)

// WithTTL sets an expiration on saved records. Zero keeps them forever;
// retention is a store policy, invisible to the state machine.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store with its own Redis client.
func New(addr, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
		ttl:    0,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(identity string) string {
	return s.prefix + identity
}

// Load fetches and deserializes the record for identity. Absence is
// reported as order.ErrNotFound, never as a zero-valued session, so callers
// can tell "no record" from "empty record".
func (s *Store) Load(ctx context.Context, identity string) (*order.Session, error) {
	data, err := s.client.Get(ctx, s.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", order.ErrStoreUnavailable, err)
	}

	var sess order.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", order.ErrCorruptRecord, err)
	}

	return &sess, nil
}

// Save serializes and writes the full record, replacing any prior value.
func (s *Store) Save(ctx context.Context, identity string, sess *order.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(identity), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", order.ErrStoreUnavailable, err)
	}

	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
