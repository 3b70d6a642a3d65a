package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/middleware"
	"qrlogin-svc/src/internal/models"
	"qrlogin-svc/src/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newHandlerFixture(t *testing.T, allowMinting bool) (*gin.Engine, *token.Authority) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Configuration{}
	cfg.QrLogin.AllowTestTokenMinting = allowMinting
	config.ApplyDefaults(cfg)

	authority, err := token.NewAuthority(&cfg.Security)
	require.NoError(t, err)

	h := NewHandler(cfg, authority)
	m := middleware.NewAuthMiddleware(authority)

	router := gin.New()
	router.POST("/api/v1/test/generate-token", h.GenerateTestToken)
	router.POST("/api/v1/test/generate-token/default", h.GenerateDefaultTestToken)
	router.GET("/api/v2/user/me", m.RequireAuth(), h.GetMe)

	return router, authority
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type mintedToken struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

func decodeMinted(t *testing.T, rr *httptest.ResponseRecorder) *mintedToken {
	t.Helper()
	var envelope struct {
		Code models.ErrorCode `json:"code"`
		Data mintedToken      `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, models.CodeSuccess, envelope.Code)
	return &envelope.Data
}

func TestGenerateTestTokenDisabled(t *testing.T) {
	router, _ := newHandlerFixture(t, false)

	rr := postJSON(t, router, "/api/v1/test/generate-token",
		gin.H{"user_id": "u1", "username": "alice"})
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = postJSON(t, router, "/api/v1/test/generate-token/default", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGenerateTestToken(t *testing.T) {
	router, authority := newHandlerFixture(t, true)

	rr := postJSON(t, router, "/api/v1/test/generate-token",
		gin.H{"user_id": "u1", "username": "alice", "role": "admin"})
	require.Equal(t, http.StatusOK, rr.Code)

	minted := decodeMinted(t, rr)
	require.Equal(t, "u1", minted.UserID)
	require.Equal(t, "admin", minted.Role)

	claims, err := authority.Verify(minted.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, token.RoleAdmin, claims.Role)
}

func TestGenerateTestTokenEmptyRoleDefaultsToUser(t *testing.T) {
	router, authority := newHandlerFixture(t, true)

	rr := postJSON(t, router, "/api/v1/test/generate-token",
		gin.H{"user_id": "u1", "username": "alice"})
	require.Equal(t, http.StatusOK, rr.Code)

	minted := decodeMinted(t, rr)
	require.Equal(t, "user", minted.Role)

	claims, err := authority.Verify(minted.Token)
	require.NoError(t, err)
	require.Equal(t, token.RoleUser, claims.Role)
}

func TestGenerateTestTokenRejectsUnknownRole(t *testing.T) {
	router, _ := newHandlerFixture(t, true)

	rr := postJSON(t, router, "/api/v1/test/generate-token",
		gin.H{"user_id": "u1", "username": "alice", "role": "superuser"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, models.CodeInvalidParams, resp.Code)
}

func TestGenerateTestTokenRequiresIdentity(t *testing.T) {
	router, _ := newHandlerFixture(t, true)

	rr := postJSON(t, router, "/api/v1/test/generate-token", gin.H{"user_id": "u1"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerateDefaultTestToken(t *testing.T) {
	router, authority := newHandlerFixture(t, true)

	rr := postJSON(t, router, "/api/v1/test/generate-token/default", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	minted := decodeMinted(t, rr)
	require.Equal(t, "test_user_001", minted.UserID)
	require.Equal(t, "alice", minted.Username)
	require.Equal(t, "admin", minted.Role)

	claims, err := authority.Verify(minted.Token)
	require.NoError(t, err)
	require.Equal(t, token.RoleAdmin, claims.Role)
}

func TestGetMeEchoesClaims(t *testing.T) {
	router, authority := newHandlerFixture(t, true)

	signed, err := authority.Issue("u1", "alice", token.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/user/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Code models.ErrorCode `json:"code"`
		Data struct {
			UserID   string `json:"user_id"`
			Username string `json:"username"`
			Role     string `json:"role"`
			Exp      int64  `json:"exp"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, models.CodeSuccess, envelope.Code)
	require.Equal(t, "u1", envelope.Data.UserID)
	require.Equal(t, "alice", envelope.Data.Username)
	require.Equal(t, "user", envelope.Data.Role)
	require.NotZero(t, envelope.Data.Exp)
}
