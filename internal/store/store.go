package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/model"
)

const cacheTTL = 1 * time.Hour

// RedisClient is the subset of redis.Client the store uses; narrowed so tests
// can substitute miniredis-backed or stub clients.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Store owns the database handle and the optional read cache. All workflow
// writes go through InTx/InLockedTx; the cached getters serve only
// non-transactional read paths.
type Store struct {
	db    *sql.DB
	redis RedisClient
}

// New opens the database through the pgx stdlib driver. redisAddr may be
// empty, which disables the read cache.
func New(dsn, redisAddr string) (*Store, error) {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	db := stdlib.OpenDB(*config)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if redisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: redisAddr})
	}
	return s, nil
}

// NewWithDB wraps an existing handle; used by tests.
func NewWithDB(db *sql.DB, rdb RedisClient) *Store {
	return &Store{db: db, redis: rdb}
}

// Close closes the database and cache connections.
func (s *Store) Close() error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return err
		}
	}
	return s.db.Close()
}

// InTx runs fn inside a single database transaction and commits only if fn
// returns nil.
func (s *Store) InTx(ctx context.Context, fn func(TxOps) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	t := &Tx{tx: tx}
	if err := fn(t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.InvalidateProperties(ctx, t.touched...)
	return nil
}

// InLockedTx is InTx plus a transaction-scoped advisory lock on key, so two
// concurrent workflows for the same tenant serialize regardless of the
// store's isolation level. The lock is released automatically at
// commit/rollback.
func (s *Store) InLockedTx(ctx context.Context, key string, fn func(TxOps) error) error {
	return s.InTx(ctx, func(tx TxOps) error {
		if err := tx.(*Tx).lockKey(ctx, key); err != nil {
			return err
		}
		return fn(tx)
	})
}

// lockID hashes an arbitrary key into the int64 space pg_advisory_xact_lock
// expects.
func lockID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// GetProperty is the cached, non-transactional property read. Workflow code
// must use TxOps.PropertyByID instead.
func (s *Store) GetProperty(ctx context.Context, id uuid.UUID) (*model.Property, error) {
	key := fmt.Sprintf("property:%s", id)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			p := &model.Property{}
			if err := json.Unmarshal([]byte(cached), p); err == nil {
				return p, nil
			}
		}
	}

	p, err := scanProperty(s.db.QueryRowContext(ctx, propertySelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(p); err == nil {
			s.redis.SetEx(ctx, key, data, cacheTTL)
		}
	}
	return p, nil
}

// GetAccount is the cached, non-transactional account read.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	key := fmt.Sprintf("account:%s", id)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			a := &model.Account{}
			if err := json.Unmarshal([]byte(cached), a); err == nil {
				return a, nil
			}
		}
	}

	a, err := scanAccount(s.db.QueryRowContext(ctx, accountSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(a); err == nil {
			s.redis.SetEx(ctx, key, data, cacheTTL)
		}
	}
	return a, nil
}

// InvalidateProperties drops properties from the read cache. InTx calls it
// after every committed transaction that wrote a property's status.
func (s *Store) InvalidateProperties(ctx context.Context, ids ...uuid.UUID) {
	if s.redis == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf("property:%s", id))
	}
	s.redis.Del(ctx, keys...)
}
