package user

import (
	"net/http"
	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/middleware"
	"qrlogin-svc/src/internal/models"
	"qrlogin-svc/src/internal/token"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	GetMe(c *gin.Context)
	GenerateTestToken(c *gin.Context)
	GenerateDefaultTestToken(c *gin.Context)
}

type handler struct {
	config    *config.Configuration
	authority *token.Authority
}

func NewHandler(cfg *config.Configuration, authority *token.Authority) Handler {
	return &handler{
		config:    cfg,
		authority: authority,
	}
}

// GetMe echoes the verified claims back to the caller. Sits behind the
// auth gate, so it doubles as a credential smoke test.
func (h *handler) GetMe(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewErrorResponse(
			models.CodeUnauthorized, "Authentication required"))
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  claims.UserID,
		"username": claims.Username,
	}).Info("Current user info requested")

	c.JSON(http.StatusOK, models.NewSuccessResponse(gin.H{
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
		"exp":      claims.ExpiresAt.Unix(),
	}))
}

type generateTokenRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// GenerateTestToken mints a credential for development and testing.
// Disabled in production through configuration.
func (h *handler) GenerateTestToken(c *gin.Context) {
	if !h.config.QrLogin.AllowTestTokenMinting {
		c.JSON(http.StatusNotFound, models.NewErrorResponse(models.CodeNotFound, "Not found"))
		return
	}

	var req generateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.CodeInvalidParams, "user_id and username are required"))
		return
	}

	// Historically unknown roles silently became "user"; keep that
	// lenient behavior only here, on the dev surface, and only for an
	// empty role. Anything else malformed is an explicit error.
	role := token.RoleUser
	if req.Role != "" {
		parsed, err := token.ParseRole(req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(
				models.CodeInvalidParams, "role must be one of: user, admin"))
			return
		}
		role = parsed
	}

	h.mintToken(c, req.UserID, req.Username, role)
}

// GenerateDefaultTestToken mints an admin credential with fixed test identity.
func (h *handler) GenerateDefaultTestToken(c *gin.Context) {
	if !h.config.QrLogin.AllowTestTokenMinting {
		c.JSON(http.StatusNotFound, models.NewErrorResponse(models.CodeNotFound, "Not found"))
		return
	}

	h.mintToken(c, "test_user_001", "alice", token.RoleAdmin)
}

func (h *handler) mintToken(c *gin.Context, userID, username string, role token.Role) {
	expiresAt := time.Now().Add(h.authority.DefaultTTL())
	claims := &token.Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := h.authority.IssueClaims(claims)
	if err != nil {
		logrus.WithError(err).Error("Failed to mint test token")
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(
			models.CodeInternalError, "Failed to generate token"))
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    role,
	}).Info("Test token generated")

	c.JSON(http.StatusOK, models.NewSuccessResponse(tokenResponse{
		Token:     signed,
		UserID:    userID,
		Username:  username,
		Role:      string(role),
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}))
}
