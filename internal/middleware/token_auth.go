package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/facepass/facepass/internal/auth"
)

const (
	// LocalFlowID holds the flow id taken from a verified access token.
	LocalFlowID = "flow_id"
	// LocalTokenExpiry holds the token's expiry time.
	LocalTokenExpiry = "token_expiry"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// TokenAuth rejects requests without a valid bearer access token.
func TokenAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := verifier.Verify(strings.TrimSpace(authz[len("bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(LocalFlowID, claims.Subject)
		c.Locals(LocalTokenExpiry, claims.Expiry)
		return c.Next()
	}
}
