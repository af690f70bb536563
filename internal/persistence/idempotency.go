package persistence

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrRequestInFlight is returned when another request holds the same key.
	ErrRequestInFlight = errors.New("request with this idempotency key is in flight")
	// ErrKeyReused is returned when a key is replayed with a different request body.
	ErrKeyReused = errors.New("idempotency key reused with a different request")
)

const pendingPrefix = "pending:"

// Fingerprint identifies a request body so a key cannot be replayed against
// a different payload.
func Fingerprint(method, path string, body []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// StoredResponse is a replayable HTTP response.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// IdempotencyStore remembers write responses by client supplied key so a
// double-submitted create or patch replays instead of racing.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// IdempotencyOption customizes the store.
type IdempotencyOption func(*IdempotencyStore)

// WithIdempotencyTTL sets how long keys are retained.
func WithIdempotencyTTL(ttl time.Duration) IdempotencyOption {
	return func(s *IdempotencyStore) {
		s.ttl = ttl
	}
}

// WithIdempotencyPrefix sets the key prefix.
func WithIdempotencyPrefix(prefix string) IdempotencyOption {
	return func(s *IdempotencyStore) {
		s.prefix = prefix
	}
}

// NewIdempotencyStore builds a store on an existing client.
func NewIdempotencyStore(client *redis.Client, opts ...IdempotencyOption) *IdempotencyStore {
	s := &IdempotencyStore{
		client: client,
		prefix: "cancellation:idem:",
		ttl:    10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IdempotencyStore) key(k string) string {
	return s.prefix + k
}

// Begin claims key. It returns the stored response when the key already
// completed, ErrRequestInFlight when it is still pending, ErrKeyReused when
// the fingerprint differs, and (nil, nil) when the caller now owns the key
// and must Complete or Abort it.
func (s *IdempotencyStore) Begin(ctx context.Context, key, fingerprint string) (*StoredResponse, error) {
	claimed, err := s.client.SetNX(ctx, s.key(key), pendingPrefix+fingerprint, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET; retry once
			return s.Begin(ctx, key, fingerprint)
		}
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	if strings.HasPrefix(val, pendingPrefix) {
		if strings.TrimPrefix(val, pendingPrefix) != fingerprint {
			return nil, ErrKeyReused
		}
		return nil, ErrRequestInFlight
	}

	var stored StoredResponse
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return nil, fmt.Errorf("decode stored response: %w", err)
	}
	if stored.Fingerprint != "" && stored.Fingerprint != fingerprint {
		return nil, ErrKeyReused
	}
	return &stored, nil
}

// Complete stores the response for replay.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode stored response: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// Abort releases a claimed key so the client may retry.
func (s *IdempotencyStore) Abort(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
