// Package cache provides Redis-based caching for per-cycle derived values
// such as institutional flow signals. When Redis is unavailable the service
// degrades to an in-process map so the decision pipeline keeps running.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes for the cache namespaces
const (
	PrefixFlowSignal      = "flow:signal:%s:%d"   // symbol, time bucket
	PrefixMarketCondition = "market:condition:%s" // symbol
)

// Default TTLs
const (
	DefaultFlowSignalTTL = 10 * time.Minute
	DefaultConditionTTL  = 5 * time.Minute
)

// Config holds cache configuration
type Config struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Service is a small cache facade over go-redis with graceful degradation:
// on Redis failure it serves from an in-memory map and periodically retries.
type Service struct {
	client *redis.Client
	mu     sync.RWMutex
	memory map[string]memoryEntry

	healthy      bool
	failureCount int
	maxFailures  int
	lastCheck    time.Time
	checkEvery   time.Duration
}

// NewService creates a cache service. When cfg.Enabled is false, or the
// initial ping fails, the service runs memory-only.
func NewService(cfg Config) *Service {
	s := &Service{
		memory:      make(map[string]memoryEntry),
		maxFailures: 3,
		checkEvery:  30 * time.Second,
	}

	if !cfg.Enabled {
		return s
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	s.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		log.Printf("[Cache] Redis unavailable, running memory-only: %v", err)
	} else {
		s.healthy = true
	}

	return s
}

// Healthy reports whether Redis is currently reachable
func (s *Service) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

func (s *Service) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCount++
	if s.failureCount >= s.maxFailures {
		s.healthy = false
	}
}

func (s *Service) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCount = 0
	s.healthy = true
}

// maybeRecover retries the Redis connection at most once per check interval
func (s *Service) maybeRecover(ctx context.Context) {
	s.mu.Lock()
	if s.healthy || s.client == nil || time.Since(s.lastCheck) < s.checkEvery {
		s.mu.Unlock()
		return
	}
	s.lastCheck = time.Now()
	s.mu.Unlock()

	if err := s.client.Ping(ctx).Err(); err == nil {
		s.recordSuccess()
		log.Println("[Cache] Redis connection recovered")
	}
}

// Set stores a JSON-encoded value under key with the given TTL
func (s *Service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}

	s.mu.Lock()
	s.memory[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()

	s.maybeRecover(ctx)
	if s.client == nil || !s.Healthy() {
		return nil
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.recordFailure()
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	s.recordSuccess()
	return nil
}

// Get loads the value stored under key into dest. Returns false when the key
// is missing or expired in both tiers.
func (s *Service) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	s.maybeRecover(ctx)

	if s.client != nil && s.Healthy() {
		data, err := s.client.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			s.recordSuccess()
		case err != nil:
			s.recordFailure()
		default:
			s.recordSuccess()
			if err := json.Unmarshal(data, dest); err != nil {
				return false, fmt.Errorf("failed to unmarshal cache value for %s: %w", key, err)
			}
			return true, nil
		}
	}

	s.mu.RLock()
	entry, ok := s.memory[key]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value for %s: %w", key, err)
	}
	return true, nil
}

// Delete removes a key from both tiers
func (s *Service) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.memory, key)
	s.mu.Unlock()

	if s.client != nil && s.Healthy() {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.recordFailure()
		}
	}
}

// Close releases the Redis client
func (s *Service) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
