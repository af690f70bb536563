package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// MemoryStore keeps users, subscriptions and cancellations in process.
// The API falls back to it when no POSTGRES_DSN is configured; tests use it
// in place of the pgx repositories. Missing rows return pgx.ErrNoRows so
// callers see the same errors as with Postgres.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	subscriptions map[string]domain.Subscription
	cancellations map[string]domain.Cancellation
	clock         func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		subscriptions: make(map[string]domain.Subscription),
		cancellations: make(map[string]domain.Cancellation),
		clock:         monotonicClock(),
	}
}

// monotonicClock guarantees strictly increasing timestamps so "latest"
// queries are deterministic even for back-to-back inserts.
func monotonicClock() func() time.Time {
	var last time.Time
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := time.Now().UTC()
		if !now.After(last) {
			now = last.Add(time.Microsecond)
		}
		last = now
		return now
	}
}

// Users returns a UserRepository view.
func (m *MemoryStore) Users() UserRepository { return memoryUsers{m} }

// Subscriptions returns a SubscriptionRepository view.
func (m *MemoryStore) Subscriptions() SubscriptionRepository { return memorySubscriptions{m} }

// Cancellations returns a CancellationRepository view.
func (m *MemoryStore) Cancellations() CancellationRepository { return memoryCancellations{m} }

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	user.ID = uuid.NewString()
	user.CreatedAt = r.m.clock()
	r.m.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	user, ok := r.m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r memoryUsers) GetLatest(ctx context.Context) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var latest *domain.User
	for _, u := range r.m.users {
		u := u
		if latest == nil || u.CreatedAt.After(latest.CreatedAt) {
			latest = &u
		}
	}
	return latest, nil
}

type memorySubscriptions struct{ m *MemoryStore }

func (r memorySubscriptions) Create(ctx context.Context, sub *domain.Subscription) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[sub.UserID]; !ok {
		return pgx.ErrNoRows
	}
	sub.ID = uuid.NewString()
	sub.CreatedAt = r.m.clock()
	r.m.subscriptions[sub.ID] = *sub
	return nil
}

func (r memorySubscriptions) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	sub, ok := r.m.subscriptions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &sub, nil
}

func (r memorySubscriptions) LatestForUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	subs := make([]domain.Subscription, 0)
	for _, s := range r.m.subscriptions {
		if s.UserID == userID {
			subs = append(subs, s)
		}
	}
	if len(subs) == 0 {
		return nil, nil
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	return &subs[0], nil
}

func (r memorySubscriptions) UpdateStatus(ctx context.Context, id string, status domain.SubscriptionStatus) (*domain.Subscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sub, ok := r.m.subscriptions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	sub.Status = status
	r.m.subscriptions[id] = sub
	return &sub, nil
}

type memoryCancellations struct{ m *MemoryStore }

func (r memoryCancellations) Create(ctx context.Context, c *domain.Cancellation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.subscriptions[c.SubscriptionID]; !ok {
		return pgx.ErrNoRows
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.m.clock()
	r.m.cancellations[c.ID] = c.Clone()
	return nil
}

func (r memoryCancellations) GetByID(ctx context.Context, id string) (*domain.Cancellation, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.cancellations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := c.Clone()
	return &out, nil
}

func (r memoryCancellations) Patch(ctx context.Context, id string, patch domain.CancellationPatch) (*domain.Cancellation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cancellations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c = c.Clone()
	c.Apply(patch)
	r.m.cancellations[id] = c
	out := c.Clone()
	return &out, nil
}
