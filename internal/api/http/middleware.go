package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/migratemate/cancellation-flow/internal/observability"
	"github.com/migratemate/cancellation-flow/internal/persistence"
	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

const (
	// HeaderIdempotencyKey carries the client chosen key for a write.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplay marks a response served from the idempotency store.
	HeaderIdempotentReplay = "Idempotent-Replayed"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key and rejects concurrent use of one key. Requests without the
// header, or with no store configured, pass through. A Redis outage degrades
// to unprotected writes rather than failing them.
func IdempotencyMiddleware(store *persistence.IdempotencyStore, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderIdempotencyKey)
		if store == nil || key == "" {
			return c.Next()
		}
		ctx := c.UserContext()
		fingerprint := persistence.Fingerprint(c.Method(), c.Path(), c.Body())

		stored, err := store.Begin(ctx, key, fingerprint)
		switch {
		case errors.Is(err, persistence.ErrRequestInFlight):
			return apperrors.NewIdempotencyInFlight()
		case errors.Is(err, persistence.ErrKeyReused):
			return apperrors.NewConflict("idempotency key was used for a different request", nil)
		case err != nil:
			logger.Warn("idempotency store unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		case stored != nil:
			c.Set(HeaderIdempotentReplay, "true")
			if stored.ContentType != "" {
				c.Set(fiber.HeaderContentType, stored.ContentType)
			}
			return c.Status(stored.Status).Send(stored.Body)
		}

		// the error middleware recovers panics upstream, so release the key first
		defer func() {
			if r := recover(); r != nil {
				abortKey(ctx, store, key, logger)
				panic(r)
			}
		}()

		if err := c.Next(); err != nil {
			abortKey(ctx, store, key, logger)
			return err
		}
		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			abortKey(ctx, store, key, logger)
			return nil
		}
		resp := persistence.StoredResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
			Fingerprint: fingerprint,
		}
		if err := store.Complete(ctx, key, resp); err != nil {
			logger.Warn("store idempotent response", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}

func abortKey(ctx context.Context, store *persistence.IdempotencyStore, key string, logger *zap.Logger) {
	if err := store.Abort(ctx, key); err != nil {
		logger.Warn("release idempotency key", zap.String("key", key), zap.Error(err))
	}
}
