package middleware

import (
	"net/http"
	"qrlogin-svc/src/internal/models"
	"qrlogin-svc/src/internal/token"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	// ContextClaims is the gin context key holding verified claims.
	ContextClaims = "auth_claims"

	bearerPrefix = "bearer "
)

// AuthMiddleware is the request-boundary credential gate.
type AuthMiddleware struct {
	authority *token.Authority
}

func NewAuthMiddleware(authority *token.Authority) *AuthMiddleware {
	return &AuthMiddleware{authority: authority}
}

// RequireAuth validates the bearer credential, transparently renews it
// when close to expiry (echoing the replacement on the Authorization
// response header), and attaches the claims to the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, models.NewErrorResponseWithPath(
				models.CodeTokenMissing, "Authorization token is required", c.Request.URL.Path))
			c.Abort()
			return
		}

		newToken, claims, err := m.authority.VerifyAndRenew(tokenString)
		if err != nil {
			logrus.WithError(err).Debug("Credential verification failed")
			code := models.CodeForError(err)
			c.JSON(code.HTTPStatus(), models.NewErrorResponseWithPath(
				code, "Invalid or expired token", c.Request.URL.Path))
			c.Abort()
			return
		}

		if newToken != tokenString {
			// A failure to hand back the renewed token must not fail
			// the request; the old one is still valid.
			if !setRenewalHeader(c, newToken) {
				logrus.WithField("user_id", claims.UserID).Warn("Failed to set renewed token header")
			}
		}

		c.Set(ContextClaims, claims)

		logrus.WithFields(logrus.Fields{
			"user_id": claims.UserID,
			"role":    claims.Role,
		}).Debug("User authenticated successfully")

		c.Next()
	}
}

// RequireAdminRights checks the closed role on claims set by RequireAuth.
func (m *AuthMiddleware) RequireAdminRights() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			logrus.Error("Claims not found in context - ensure RequireAuth runs first")
			c.JSON(http.StatusUnauthorized, models.NewErrorResponse(
				models.CodeUnauthorized, "Authentication required"))
			c.Abort()
			return
		}

		if claims.Role != token.RoleAdmin {
			logrus.WithFields(logrus.Fields{
				"user_id": claims.UserID,
				"role":    claims.Role,
			}).Warn("User attempted to access admin endpoint without admin privileges")
			c.JSON(http.StatusForbidden, models.NewErrorResponse(
				models.CodePermissionDenied, "Admin privileges required"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// ClaimsFromContext returns the verified claims attached by RequireAuth.
func ClaimsFromContext(c *gin.Context) (*token.Claims, bool) {
	value, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*token.Claims)
	return claims, ok
}

// extractToken pulls the bearer token off the Authorization header.
// The prefix match is case-insensitive.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if len(authHeader) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(bearerPrefix):])
}

func setRenewalHeader(c *gin.Context, newToken string) bool {
	defer func() {
		// Header construction must never take the request down with it.
		_ = recover()
	}()
	c.Header("Authorization", "Bearer "+newToken)
	return true
}
