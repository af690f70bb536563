package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/migratemate/cancellation-flow/pkg/util/errorutil"
)

const sessionKey = "auth_session"

// Session is the caller identity carried by a valid session token.
type Session struct {
	UserID         string
	SubscriptionID string
}

// SessionMiddleware validates bearer session tokens on write routes.
type SessionMiddleware struct {
	tokens   *TokenManager
	required bool
}

// NewSessionMiddleware constructs middleware. When required is false,
// requests without an Authorization header pass through anonymously; a
// present but invalid token is still rejected.
func NewSessionMiddleware(tokens *TokenManager, required bool) *SessionMiddleware {
	return &SessionMiddleware{tokens: tokens, required: required}
}

// Handle enforces the session policy.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if m.required {
			return apperrors.NewUnauthorized("missing authorization header")
		}
		return c.Next()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid session token")
	}

	c.Locals(sessionKey, &Session{UserID: claims.UserID, SubscriptionID: claims.SubscriptionID})
	return c.Next()
}

// SessionFromContext retrieves the session, if the request carried one.
func SessionFromContext(c *fiber.Ctx) (*Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*Session)
	return session, ok
}

// Owns reports whether the request may act on behalf of userID.
// Anonymous requests are allowed when the middleware did not require a token.
func Owns(c *fiber.Ctx, userID string) bool {
	session, ok := SessionFromContext(c)
	if !ok {
		return true
	}
	return session.UserID == userID
}
