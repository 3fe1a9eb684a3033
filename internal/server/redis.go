package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTokenTTL is how long an issued token stays valid in Redis.
const DefaultTokenTTL = 24 * time.Hour

// RedisStore keeps accounts and tokens in Redis:
//
//	<prefix>:user:<username>  JSON Account
//	<prefix>:token:<token>    username, expiring after the token TTL
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store on rdb. A zero ttl means DefaultTokenTTL.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gatekeep"
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) userKey(username string) string { return s.prefix + ":user:" + username }
func (s *RedisStore) tokenKey(token string) string   { return s.prefix + ":token:" + token }

func (s *RedisStore) CreateAccount(ctx context.Context, a *Account) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("redis.CreateAccount: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.userKey(a.Username), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis.CreateAccount: %w", err)
	}
	if !ok {
		return ErrUserExists
	}
	return nil
}

func (s *RedisStore) AccountByUsername(ctx context.Context, username string) (*Account, error) {
	data, err := s.rdb.Get(ctx, s.userKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis.AccountByUsername: %w", err)
	}
	var a Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("redis.AccountByUsername: decode: %w", err)
	}
	return &a, nil
}

func (s *RedisStore) IssueToken(ctx context.Context, token, username string) error {
	if err := s.rdb.Set(ctx, s.tokenKey(token), username, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis.IssueToken: %w", err)
	}
	return nil
}

func (s *RedisStore) AccountByToken(ctx context.Context, token string) (*Account, error) {
	username, err := s.rdb.Get(ctx, s.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("redis.AccountByToken: %w", err)
	}
	a, err := s.AccountByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenUnknown
	}
	return a, err
}
