package qrlogin

import (
	"context"
	"net/http"
	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/models"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	Generate(c *gin.Context)
	Status(c *gin.Context)
	Scan(c *gin.Context)
	Confirm(c *gin.Context)
	Reject(c *gin.Context)
	WsStatus(c *gin.Context)
}

type handler struct {
	config   *config.Configuration
	service  Service
	registry *Registry
	upgrader websocket.Upgrader
}

func NewHandler(cfg *config.Configuration, service Service, registry *Registry) Handler {
	return &handler{
		config:   cfg,
		service:  service,
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type generateRequest struct {
	ClientInfo string `json:"client_info"`
}

type decisionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	AppToken  string `json:"app_token"`
}

type scanRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *handler) Generate(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req generateRequest
	// client_info is optional; an empty body is fine
	_ = c.ShouldBindJSON(&req)

	logrus.WithField("client_info", req.ClientInfo).Info("Generate QR code request received")

	result, err := h.service.Generate(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(result))
}

func (h *handler) Status(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	sessionID := c.Param("sessionId")
	logrus.WithField("session_id", sessionID).Debug("Checking login status")

	view, err := h.service.Status(ctx, sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *handler) Scan(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.CodeInvalidParams, "session_id is required"))
		return
	}

	sess, err := h.service.MarkScanned(ctx, req.SessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(gin.H{
		"session_id": sess.SessionID,
		"status":     sess.Status,
	}))
}

func (h *handler) Confirm(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.CodeInvalidParams, "session_id is required"))
		return
	}

	logrus.WithField("session_id", req.SessionID).Info("Confirm login request received")

	result, err := h.service.Confirm(ctx, req.SessionID, req.AppToken)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(result))
}

func (h *handler) Reject(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.CodeInvalidParams, "session_id is required"))
		return
	}

	logrus.WithField("session_id", req.SessionID).Info("Reject login request received")

	if err := h.service.Reject(ctx, req.SessionID, req.AppToken); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(gin.H{
		"success": true,
		"message": "Login rejected",
	}))
}

// WsStatus upgrades the request and hands the connection to the
// registry, which services it until a terminal push or teardown.
func (h *handler) WsStatus(c *gin.Context) {
	sessionID := c.Param("sessionId")
	logrus.WithField("session_id", sessionID).Info("WebSocket connection request")

	ctx, cancel := h.requestContext(c)
	exists, err := h.service.Exists(ctx, sessionID)
	cancel()
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, models.NewErrorResponse(models.CodeQRNotFound, "Session not found"))
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("WebSocket upgrade failed")
		return
	}

	h.registry.Register(sessionID, ws)
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *handler) respondError(c *gin.Context, err error) {
	code := models.CodeForError(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).Error("QR login request failed")
	}
	c.JSON(status, models.NewErrorResponse(code, err.Error()))
}
