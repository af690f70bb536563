package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/api/dto"
	"github.com/migratemate/cancellation-flow/internal/config"
	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/flow"
)

const (
	opFetchAccount = "fetch_current_account"
	opCreate       = "create_cancellation"
	opPatch        = "patch_cancellation"
	opMarkPending  = "mark_pending_cancellation"
)

var _ flow.Gateway = (*Client)(nil)

// Client talks to the cancellation API over HTTP.
type Client struct {
	baseURL        string
	http           *http.Client
	logger         *zap.Logger
	createAttempts int
	backoff        time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	newKey         func() string

	mu    sync.RWMutex
	token string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCreateRetry sets how often record creation is attempted and the
// initial delay between attempts. The delay doubles after each failure.
func WithCreateRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.createAttempts = attempts
		}
		if backoff >= 0 {
			c.backoff = backoff
		}
	}
}

// New builds a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: 10 * time.Second},
		logger:         zap.NewNop(),
		createAttempts: 3,
		backoff:        200 * time.Millisecond,
		sleep:          sleepContext,
		newKey:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from gateway settings.
func NewFromConfig(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	return New(cfg.BaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.CallTimeout()}),
		WithLogger(logger),
		WithCreateRetry(cfg.CreateRetryAttempts, cfg.CreateRetryBackoff()),
	)
}

// SessionToken returns the token issued by the last account fetch.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// FetchCurrentUserAndSubscription reads the newest user and their newest
// subscription. Missing rows leave the corresponding Account fields empty.
func (c *Client) FetchCurrentUserAndSubscription(ctx context.Context) (flow.Account, error) {
	var resp dto.CurrentAccountResponse
	if err := c.do(ctx, opFetchAccount, http.MethodGet, "/users/first", nil, "", &resp); err != nil {
		return flow.Account{}, err
	}

	account := flow.Account{}
	if resp.User != nil {
		account.UserID = resp.User.ID
		account.Email = resp.User.Email
	}
	if resp.Subscription != nil {
		account.SubscriptionID = resp.Subscription.ID
		price := resp.Subscription.MonthlyPrice
		account.SubscriptionPriceCents = &price
	}
	if resp.SessionToken != "" {
		c.mu.Lock()
		c.token = resp.SessionToken
		c.mu.Unlock()
	}
	return account, nil
}

// CreateCancellationRecord creates the session's record, retrying transient
// failures with exponential backoff. Every attempt carries the same
// Idempotency-Key: an attempt that timed out while the server kept working
// is answered with IDEMPOTENCY_IN_FLIGHT and retried until the stored
// response is replayed.
func (c *Client) CreateCancellationRecord(ctx context.Context, userID, subscriptionID string, variant domain.DownsellVariant) (flow.CreatedRecord, error) {
	req := dto.CreateCancellationRequest{UserID: userID, SubscriptionID: subscriptionID, DownsellVariant: variant}
	key := c.newKey()
	delay := c.backoff

	var lastErr error
	for attempt := 1; attempt <= c.createAttempts; attempt++ {
		var resp dto.CancellationEnvelope
		err := c.do(ctx, opCreate, http.MethodPost, "/cancellations", req, key, &resp)
		if err == nil {
			return flow.CreatedRecord{ID: resp.Cancellation.ID, SubscriptionID: resp.Cancellation.SubscriptionID}, nil
		}
		lastErr = err

		var pe *PersistenceError
		if !errors.As(err, &pe) || !pe.Retryable() || attempt == c.createAttempts {
			break
		}
		c.logger.Warn("create cancellation failed; retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return flow.CreatedRecord{}, &PersistenceError{Op: opCreate, Kind: KindNetwork, Err: err}
		}
		delay *= 2
	}
	return flow.CreatedRecord{}, lastErr
}

// PatchCancellationRecord updates the record. An empty id sends nothing.
func (c *Client) PatchCancellationRecord(ctx context.Context, id string, patch domain.CancellationPatch) error {
	if id == "" {
		return nil
	}
	req := dto.PatchCancellationRequest{ID: id, CancellationFields: fieldsFromPatch(patch)}
	return c.do(ctx, opPatch, http.MethodPatch, "/cancellations", req, c.newKey(), nil)
}

// MarkSubscriptionPendingCancellation flags the subscription for cancellation.
func (c *Client) MarkSubscriptionPendingCancellation(ctx context.Context, subscriptionID string) error {
	pending := true
	req := dto.PatchSubscriptionRequest{ID: subscriptionID, PendingCancellation: &pending}
	return c.do(ctx, opMarkPending, http.MethodPatch, "/subscriptions", req, c.newKey(), nil)
}

// GetCancellationRecord reads a record back.
func (c *Client) GetCancellationRecord(ctx context.Context, id string) (dto.CancellationResponse, error) {
	var resp dto.CancellationEnvelope
	err := c.do(ctx, "get_cancellation", http.MethodGet, "/cancellations/"+id, nil, "", &resp)
	return resp.Cancellation, err
}

// SeedDevUser creates a development account. Only non-production servers accept it.
func (c *Client) SeedDevUser(ctx context.Context, req dto.SeedUserRequest) (dto.SeedUserResponse, error) {
	var resp dto.SeedUserResponse
	err := c.do(ctx, "seed_dev_user", http.MethodPost, "/dev/seed-user", req, "", &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &PersistenceError{Op: op, Kind: KindDecode, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &PersistenceError{Op: op, Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if token := c.SessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &PersistenceError{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &PersistenceError{Op: op, Kind: KindNetwork, Status: resp.StatusCode, Err: err}
	}
	c.logger.Debug("gateway call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &PersistenceError{Op: op, Kind: KindDecode, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func statusError(op string, status int, body []byte) error {
	pe := &PersistenceError{Op: op, Kind: KindServer, Status: status}
	if status == http.StatusNotFound {
		pe.Kind = KindNotFound
	}
	var envelope dto.ErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		pe.Code = envelope.Error.Code
		pe.Message = envelope.Error.Message
	} else {
		pe.Message = fmt.Sprintf("unexpected response %q", truncate(string(body), 120))
	}
	return pe
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func fieldsFromPatch(p domain.CancellationPatch) dto.CancellationFields {
	return dto.CancellationFields{
		DownsellVariant:         p.DownsellVariant,
		RolesApplied:            p.RolesApplied,
		CompaniesEmailed:        p.CompaniesEmailed,
		CompaniesInterviewed:    p.CompaniesInterviewed,
		FoundJobWithMigrateMate: p.FoundJobWithMigrateMate,
		Feedback:                p.Feedback,
		Reason:                  p.Reason,
		AcceptedDownsell:        p.AcceptedDownsell,
		HasImmigrationLawyer:    p.HasImmigrationLawyer,
		VisaType:                p.VisaType,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
