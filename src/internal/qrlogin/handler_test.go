package qrlogin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/models"
	"qrlogin-svc/src/internal/session"
	"qrlogin-svc/src/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	router    *gin.Engine
	authority *token.Authority
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Configuration{}
	cfg.App.Timeout = 10
	config.ApplyDefaults(cfg)

	authority, err := token.NewAuthority(&cfg.Security)
	require.NoError(t, err)

	store := session.NewMemoryStore()
	registry := NewRegistry(store, time.Minute, time.Minute)
	svc := NewService(store, authority, newFakeDirectory(), registry,
		NewPNGRenderer(cfg.QrLogin.ImageSize), &cfg.QrLogin)

	h := NewHandler(cfg, svc, registry)

	router := gin.New()
	group := router.Group("/api/v1/qr-login")
	group.POST("/generate", h.Generate)
	group.GET("/status/:sessionId", h.Status)
	group.POST("/scan", h.Scan)
	group.POST("/confirm", h.Confirm)
	group.POST("/reject", h.Reject)
	router.GET("/api/v1/ws/qr/:sessionId", h.WsStatus)

	return &handlerFixture{router: router, authority: authority}
}

func (f *handlerFixture) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *handlerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *handlerFixture) generateSession(t *testing.T) string {
	t.Helper()
	rr := f.post(t, "/api/v1/qr-login/generate", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Code models.ErrorCode `json:"code"`
		Data GenerateResult   `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, models.CodeSuccess, envelope.Code)
	require.NotEmpty(t, envelope.Data.SessionID)
	return envelope.Data.SessionID
}

func (f *handlerFixture) adminToken(t *testing.T) string {
	t.Helper()
	signed, err := f.authority.Issue("admin-1", "boss", token.RoleAdmin)
	require.NoError(t, err)
	return signed
}

func TestGenerateEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.post(t, "/api/v1/qr-login/generate", gin.H{"client_info": "test-browser"})
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Code models.ErrorCode `json:"code"`
		Msg  string           `json:"msg"`
		Data GenerateResult   `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, models.CodeSuccess, envelope.Code)
	require.Equal(t, "success", envelope.Msg)
	require.NotEmpty(t, envelope.Data.QrImage)
	require.NotEmpty(t, envelope.Data.QrData)
	require.Equal(t, int64(300), envelope.Data.ExpiresIn)
}

func TestStatusEndpointUnknownSession(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.get(t, "/api/v1/qr-login/status/unknown")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, models.CodeQRNotFound, resp.Code)
}

func TestStatusEndpointReturnsBareView(t *testing.T) {
	f := newHandlerFixture(t)
	sessionID := f.generateSession(t)

	rr := f.get(t, "/api/v1/qr-login/status/"+sessionID)
	require.Equal(t, http.StatusOK, rr.Code)

	// The status endpoint serves the view directly, not wrapped in the
	// success envelope.
	var view StatusView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, session.StatusPending, view.Status)
	require.Nil(t, view.WebToken)
	require.Equal(t, "Waiting for scan", view.Message)
}

func TestScanEndpointRequiresSessionID(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.post(t, "/api/v1/qr-login/scan", gin.H{})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, models.CodeInvalidParams, resp.Code)
}

func TestConfirmFlowOverHTTP(t *testing.T) {
	f := newHandlerFixture(t)
	sessionID := f.generateSession(t)

	rr := f.post(t, "/api/v1/qr-login/scan", gin.H{"session_id": sessionID})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.post(t, "/api/v1/qr-login/confirm", gin.H{
		"session_id": sessionID,
		"app_token":  f.adminToken(t),
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Code models.ErrorCode `json:"code"`
		Data ConfirmResult    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, models.CodeSuccess, envelope.Code)
	require.True(t, envelope.Data.Success)
	require.True(t, envelope.Data.AutoRegistered)
	require.Equal(t, "qr_user_"+sessionID[:8], envelope.Data.UserID)

	// The confirmed status now carries the web credential.
	rr = f.get(t, "/api/v1/qr-login/status/"+sessionID)
	require.Equal(t, http.StatusOK, rr.Code)

	var view StatusView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, session.StatusConfirmed, view.Status)
	require.NotNil(t, view.WebToken)
	require.NotEmpty(t, *view.WebToken)
}

func TestConfirmEndpointRejectsNonAdmin(t *testing.T) {
	f := newHandlerFixture(t)
	sessionID := f.generateSession(t)

	userToken, err := f.authority.Issue("user-1", "bob", token.RoleUser)
	require.NoError(t, err)

	rr := f.post(t, "/api/v1/qr-login/confirm", gin.H{
		"session_id": sessionID,
		"app_token":  userToken,
	})
	require.Equal(t, http.StatusForbidden, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, models.CodePermissionDenied, resp.Code)
}

func TestRejectThenConfirmConflicts(t *testing.T) {
	f := newHandlerFixture(t)
	sessionID := f.generateSession(t)
	adminToken := f.adminToken(t)

	rr := f.post(t, "/api/v1/qr-login/reject", gin.H{
		"session_id": sessionID,
		"app_token":  adminToken,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.post(t, "/api/v1/qr-login/confirm", gin.H{
		"session_id": sessionID,
		"app_token":  adminToken,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, models.CodeResourceConflict, resp.Code)
}

func TestWsStatusUnknownSession(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.get(t, "/api/v1/ws/qr/unknown")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, models.CodeQRNotFound, resp.Code)
}
