package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientStore is the Link Store's clients table.
type ClientStore interface {
	CreateClient(ctx context.Context, keyDigest string) error
	HasClient(ctx context.Context, keyDigest string) (bool, error)
}

// SQLKeyStore keeps digests in the Link Store.
type SQLKeyStore struct {
	clients ClientStore
}

// NewSQLKeyStore creates a SQLKeyStore.
func NewSQLKeyStore(clients ClientStore) *SQLKeyStore {
	return &SQLKeyStore{clients: clients}
}

// AddKey implements KeyStore.
func (s *SQLKeyStore) AddKey(ctx context.Context, digest string) error {
	return s.clients.CreateClient(ctx, digest)
}

// HasKey implements KeyStore.
func (s *SQLKeyStore) HasKey(ctx context.Context, digest string) (bool, error) {
	return s.clients.HasClient(ctx, digest)
}

// RedisKeyPrefix prefixes every key digest stored in Redis.
const RedisKeyPrefix = "auth:keys:"

// ErrEmptyAddress is returned when Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// connectionTimeout is the timeout for verifying Redis connection.
const connectionTimeout = 5 * time.Second

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client and verifies the connection.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisKeyStore keeps digests in Redis.
type RedisKeyStore struct {
	client redis.UniversalClient
}

// NewRedisKeyStore creates a RedisKeyStore.
func NewRedisKeyStore(client redis.UniversalClient) *RedisKeyStore {
	return &RedisKeyStore{client: client}
}

// AddKey implements KeyStore. The value is the creation time in Unix
// milliseconds.
func (s *RedisKeyStore) AddKey(ctx context.Context, digest string) error {
	value := strconv.FormatInt(time.Now().UnixMilli(), 10)
	ok, err := s.client.SetNX(ctx, RedisKeyPrefix+digest, value, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store key in redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("key digest %s already exists", digest)
	}
	return nil
}

// HasKey implements KeyStore.
func (s *RedisKeyStore) HasKey(ctx context.Context, digest string) (bool, error) {
	n, err := s.client.Exists(ctx, RedisKeyPrefix+digest).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up key in redis: %w", err)
	}
	return n > 0, nil
}
