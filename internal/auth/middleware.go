package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and stores the caller's principal.
// Users are not looked up: the identity provider's signature is trusted.
type AuthMiddleware struct {
	tokens    *TokenManager
	adminRole string
}

// NewAuthMiddleware constructs middleware. Tokens whose role claim equals
// adminRole are treated as admins; every other role is a plain user.
func NewAuthMiddleware(tokens *TokenManager, adminRole string) *AuthMiddleware {
	if strings.TrimSpace(adminRole) == "" {
		adminRole = string(domain.RoleAdmin)
	}
	return &AuthMiddleware{tokens: tokens, adminRole: adminRole}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &domain.Principal{UserID: claims.Subject, Role: domain.RoleUser}
	if claims.Role == m.adminRole {
		principal.Role = domain.RoleAdmin
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}
