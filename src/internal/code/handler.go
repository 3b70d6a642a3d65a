package code

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/http"
	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/models"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

type Handler interface {
	SendEmailCode(c *gin.Context)
	SendPhoneCode(c *gin.Context)
}

type handler struct {
	config     *config.Configuration
	repository Repository
	publisher  Publisher
}

func NewHandler(cfg *config.Configuration, repository Repository, publisher Publisher) Handler {
	return &handler{
		config:     cfg,
		repository: repository,
		publisher:  publisher,
	}
}

type emailRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"required,email"`
}

type phoneRequest struct {
	Phone string `json:"phone" binding:"required"`
}

func (h *handler) SendEmailCode(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.CodeInvalidParams, "a valid email is required"))
		return
	}

	logrus.WithField("email", req.Email).Info("Email code request received")
	h.sendCode(c, ctx, "email", req.Email, req.Username, "Email code sent successfully")
}

func (h *handler) SendPhoneCode(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req phoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.CodeInvalidParams, "phone is required"))
		return
	}

	logrus.WithField("phone", req.Phone).Info("Phone code request received")
	h.sendCode(c, ctx, "phone", req.Phone, "", "Phone code sent successfully")
}

func (h *handler) sendCode(c *gin.Context, ctx context.Context, channel, recipient, username, successMsg string) {
	generated, err := generateCode(h.config.Code.Length)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate code")
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(
			models.CodeInternalError, "Failed to generate code"))
		return
	}

	ttl := time.Duration(h.config.Code.TTLSeconds) * time.Second
	rateLimit := time.Duration(h.config.Code.RateLimitSeconds) * time.Second

	if err := h.repository.SaveCode(ctx, recipient, generated, ttl, rateLimit); err != nil {
		code := models.CodeForError(err)
		c.JSON(code.HTTPStatus(), models.NewErrorResponse(code, err.Error()))
		return
	}

	msg := &DeliveryMessage{
		Channel:   channel,
		Recipient: recipient,
		Username:  username,
		Code:      generated,
		TTL:       h.config.Code.TTLSeconds,
		Timestamp: time.Now(),
	}
	if err := h.publisher.PublishCode(msg); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			models.CodeEmailSendFailed, models.ErrCodePublish.Error()))
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse(gin.H{
		"message": successMsg,
	}))
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func generateCode(length int) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(codeCharset)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = codeCharset[n.Int64()]
	}
	return string(result), nil
}
