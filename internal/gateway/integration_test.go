package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/api/dto"
	httptransport "github.com/migratemate/cancellation-flow/internal/api/http"
	"github.com/migratemate/cancellation-flow/internal/api/http/handlers"
	"github.com/migratemate/cancellation-flow/internal/auth"
	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/events"
	"github.com/migratemate/cancellation-flow/internal/flow"
	"github.com/migratemate/cancellation-flow/internal/persistence"
	"github.com/migratemate/cancellation-flow/internal/repository"
	"github.com/migratemate/cancellation-flow/internal/service"
)

type apiOptions struct {
	cancellations func(repository.CancellationRepository) repository.CancellationRepository
	idempotency   bool
}

// newAPI serves the real HTTP surface over an in-memory store.
func newAPI(t *testing.T) (*httptest.Server, *repository.MemoryStore) {
	return newAPIWith(t, apiOptions{})
}

func newAPIWith(t *testing.T, opts apiOptions) (*httptest.Server, *repository.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager("secret", 5)

	cancellationRepo := store.Cancellations()
	if opts.cancellations != nil {
		cancellationRepo = opts.cancellations(cancellationRepo)
	}
	var idempotency fiber.Handler
	if opts.idempotency {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		idempotency = httptransport.IdempotencyMiddleware(persistence.NewIdempotencyStore(client), logger)
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, nil, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler("api", "test", nil),
		Users: handlers.NewUsersHandler(service.NewAccountService(service.AccountDependencies{
			UserRepo:         store.Users(),
			SubscriptionRepo: store.Subscriptions(),
		}), tokens, false, logger),
		Cancellations: handlers.NewCancellationsHandler(service.NewCancellationService(service.CancellationDependencies{
			CancellationRepo: cancellationRepo,
			SubscriptionRepo: store.Subscriptions(),
			Dispatcher:       dispatcher,
		})),
		Subscriptions: handlers.NewSubscriptionsHandler(service.NewSubscriptionService(service.SubscriptionDependencies{
			SubscriptionRepo: store.Subscriptions(),
			Dispatcher:       dispatcher,
		})),
		Session:     auth.NewSessionMiddleware(tokens, true),
		Idempotency: idempotency,
		DevRoutes:   true,
	})

	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRoundTripCreatePatchRead(t *testing.T) {
	srv, _ := newAPI(t)
	ctx := context.Background()
	c := New(srv.URL)

	_, err := c.SeedDevUser(ctx, dto.SeedUserRequest{Email: "round@trip.test"})
	require.NoError(t, err)
	account, err := c.FetchCurrentUserAndSubscription(ctx)
	require.NoError(t, err)

	rec, err := c.CreateCancellationRecord(ctx, account.UserID, "", domain.VariantB)
	require.NoError(t, err)
	assert.Equal(t, account.SubscriptionID, rec.SubscriptionID)

	roles := "1-5"
	accepted := false
	require.NoError(t, c.PatchCancellationRecord(ctx, rec.ID, domain.CancellationPatch{RolesApplied: &roles, AcceptedDownsell: &accepted}))
	feedback := "x"
	require.NoError(t, c.PatchCancellationRecord(ctx, rec.ID, domain.CancellationPatch{Feedback: &feedback}))

	got, err := c.GetCancellationRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", *got.Feedback)
	assert.Equal(t, "1-5", *got.RolesApplied)
	assert.False(t, *got.AcceptedDownsell)
	assert.Equal(t, domain.VariantB, got.DownsellVariant)
	assert.Nil(t, got.Reason)
}

func TestWritesRequireSessionToken(t *testing.T) {
	srv, _ := newAPI(t)
	c := New(srv.URL)
	_, err := c.CreateCancellationRecord(context.Background(), "u1", "", domain.VariantA)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 401, pe.Status)
}

func TestMachineAgainstAPI(t *testing.T) {
	srv, store := newAPI(t)
	ctx := context.Background()
	c := New(srv.URL)

	// seeded ids are random, so pin the variant
	seeded, err := c.SeedDevUser(ctx, dto.SeedUserRequest{Email: "flow@test"})
	require.NoError(t, err)
	session, err := flow.LoadSession(ctx, c)
	require.NoError(t, err)

	m := flow.NewMachine(session, c, flow.WithForcedVariant(domain.VariantB), flow.WithStrictPersistence())
	_, err = m.StillLooking(ctx)
	require.NoError(t, err)
	require.NoError(t, m.DeclineDownsell(ctx))
	for _, q := range flow.Questions {
		m.SetSurveyAnswer(q, flow.BucketFew)
	}
	require.NoError(t, m.SurveyContinue(ctx))
	require.NoError(t, m.SetReason(domain.ReasonPlatformNotHelpful))
	m.SetFollowUpText("More filters for visa sponsorship would help.")
	require.NoError(t, m.ReasonComplete(ctx))
	assert.Equal(t, flow.StepCompleted, m.Step())

	record, err := store.Cancellations().GetByID(ctx, m.Session().CancellationRecordID)
	require.NoError(t, err)
	assert.Equal(t, "1-2", *record.CompaniesInterviewed)
	assert.Equal(t, domain.ReasonPlatformNotHelpful, *record.Reason)
	assert.False(t, *record.AcceptedDownsell)

	sub, err := store.Subscriptions().GetByID(ctx, seeded.Subscription.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPendingCancellation, sub.Status)
}

// slowCancellations delays record creation past the client's timeout.
type slowCancellations struct {
	repository.CancellationRepository
	delay   time.Duration
	created atomic.Int32
}

func (s *slowCancellations) Create(ctx context.Context, c *domain.Cancellation) error {
	time.Sleep(s.delay)
	if err := s.CancellationRepository.Create(ctx, c); err != nil {
		return err
	}
	s.created.Add(1)
	return nil
}

func TestCreateRecoversRecordAfterClientTimeout(t *testing.T) {
	slow := &slowCancellations{delay: 300 * time.Millisecond}
	srv, _ := newAPIWith(t, apiOptions{
		idempotency: true,
		cancellations: func(inner repository.CancellationRepository) repository.CancellationRepository {
			slow.CancellationRepository = inner
			return slow
		},
	})
	ctx := context.Background()

	seeder := New(srv.URL)
	_, err := seeder.SeedDevUser(ctx, dto.SeedUserRequest{Email: "slow@test"})
	require.NoError(t, err)

	c := New(srv.URL,
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}),
		WithCreateRetry(5, 150*time.Millisecond))
	account, err := c.FetchCurrentUserAndSubscription(ctx)
	require.NoError(t, err)

	rec, err := c.CreateCancellationRecord(ctx, account.UserID, "", domain.VariantA)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, int32(1), slow.created.Load())

	got, err := c.GetCancellationRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VariantA, got.DownsellVariant)
}
