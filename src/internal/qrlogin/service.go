package qrlogin

import (
	"context"
	"errors"
	"fmt"
	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/models"
	"qrlogin-svc/src/internal/session"
	"qrlogin-svc/src/internal/token"
	"qrlogin-svc/src/internal/user"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GenerateResult is the outcome of creating a fresh login session.
type GenerateResult struct {
	SessionID string `json:"session_id"`
	QrImage   string `json:"qr_image"`
	QrData    string `json:"qr_data"`
	ExpiresIn int64  `json:"expires_in"`
}

// StatusView is what a status query reports. WebToken is non-nil
// exactly when the effective status is confirmed.
type StatusView struct {
	Status   session.Status `json:"status"`
	WebToken *string        `json:"web_token"`
	Message  string         `json:"message"`
}

// ConfirmResult reports a successful confirmation.
type ConfirmResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	AutoRegistered bool   `json:"auto_registered"`
}

// Service is the QR-login session state machine.
type Service interface {
	Generate(ctx context.Context) (*GenerateResult, error)
	Status(ctx context.Context, sessionID string) (*StatusView, error)
	MarkScanned(ctx context.Context, sessionID string) (*session.Session, error)
	Confirm(ctx context.Context, sessionID, appToken string) (*ConfirmResult, error)
	Reject(ctx context.Context, sessionID, appToken string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
}

type service struct {
	store     session.Store
	authority *token.Authority
	directory user.Directory
	notifier  Notifier
	renderer  Renderer
	cfg       *config.QrLoginConfig
	now       func() time.Time
}

func NewService(store session.Store, authority *token.Authority, directory user.Directory,
	notifier Notifier, renderer Renderer, cfg *config.QrLoginConfig) Service {
	return &service{
		store:     store,
		authority: authority,
		directory: directory,
		notifier:  notifier,
		renderer:  renderer,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *service) Generate(ctx context.Context) (*GenerateResult, error) {
	sessionID := uuid.NewString()
	ttl := time.Duration(s.cfg.SessionTTLSeconds) * time.Second

	sess, err := s.store.Create(ctx, sessionID, ttl)
	if err != nil {
		logrus.WithError(err).Error("Failed to create QR session")
		return nil, err
	}

	payload := Payload{
		SessionID: sessionID,
		Action:    actionLogin,
		ExpiresAt: sess.ExpiresAt.Unix(),
	}
	qrData, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	qrImage, err := s.renderer.Render(qrData)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to render QR image")
		return nil, err
	}

	logrus.WithField("session_id", sessionID).Info("Generated QR login session")

	return &GenerateResult{
		SessionID: sessionID,
		QrImage:   qrImage,
		QrData:    qrData,
		ExpiresIn: int64(s.cfg.SessionTTLSeconds),
	}, nil
}

func (s *service) Status(ctx context.Context, sessionID string) (*StatusView, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	status := sess.EffectiveStatus(s.now())
	view := &StatusView{
		Status:  status,
		Message: statusText(status),
	}
	if status == session.StatusConfirmed {
		view.WebToken = sess.WebToken
	}
	return view, nil
}

func (s *service) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkScanned moves a pending session to scanned. Calling it again is
// a no-op returning the current record.
func (s *service) MarkScanned(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.CompareAndTransition(ctx, sessionID,
		[]session.Status{session.StatusPending},
		func(record *session.Session) error {
			record.Status = session.StatusScanned
			return nil
		})
	if err == nil {
		logrus.WithField("session_id", sessionID).Info("Session marked as scanned")
		return sess, nil
	}

	if errors.Is(err, models.ErrSessionInvalidState) {
		return s.store.Get(ctx, sessionID)
	}
	return nil, err
}

func (s *service) Confirm(ctx context.Context, sessionID, appToken string) (*ConfirmResult, error) {
	claims, err := s.authorize(appToken)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"admin_user_id": claims.UserID,
		"session_id":    sessionID,
	}).Info("Admin is confirming QR login")

	sess, err := s.loadTransitionable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Resolve the target subject: the bound user if any, otherwise one
	// derived from the session id (scan-to-provision).
	targetID := deriveUserID(sess)

	usr, created, err := s.directory.FindOrCreateByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	// Mint before the status flip so no observer ever sees a confirmed
	// session without a usable credential attached.
	webToken, err := s.authority.Issue(usr.UserID, usr.UserID, usr.Role)
	if err != nil {
		logrus.WithError(err).Error("Failed to mint web credential")
		return nil, err
	}

	updated, err := s.store.CompareAndTransition(ctx, sessionID,
		[]session.Status{session.StatusPending, session.StatusScanned},
		func(record *session.Session) error {
			record.Status = session.StatusConfirmed
			record.UserID = &usr.UserID
			record.WebToken = &webToken
			return nil
		})
	if err != nil {
		return nil, err
	}

	delivered := s.notifier.Notify(sessionID, session.StatusConfirmed, updated.WebToken)
	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    usr.UserID,
		"delivered":  delivered,
	}).Info("Login confirmed")

	return &ConfirmResult{
		Success:        true,
		Message:        "Login confirmed successfully",
		UserID:         usr.UserID,
		AutoRegistered: created,
	}, nil
}

func (s *service) Reject(ctx context.Context, sessionID, appToken string) error {
	claims, err := s.authorize(appToken)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"admin_user_id": claims.UserID,
		"session_id":    sessionID,
	}).Info("Admin is rejecting QR login")

	if _, err := s.loadTransitionable(ctx, sessionID); err != nil {
		return err
	}

	if _, err := s.store.CompareAndTransition(ctx, sessionID,
		[]session.Status{session.StatusPending, session.StatusScanned},
		func(record *session.Session) error {
			record.Status = session.StatusRejected
			return nil
		}); err != nil {
		return err
	}

	delivered := s.notifier.Notify(sessionID, session.StatusRejected, nil)
	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"delivered":  delivered,
	}).Info("Login rejected")
	return nil
}

// authorize verifies the acting credential and requires the elevated
// role: confirmation must come from an already-authenticated app session.
func (s *service) authorize(appToken string) (*token.Claims, error) {
	if appToken == "" {
		return nil, models.ErrTokenMissing
	}
	claims, err := s.authority.Verify(appToken)
	if err != nil {
		return nil, err
	}
	if claims.Role != token.RoleAdmin {
		logrus.WithFields(logrus.Fields{
			"user_id": claims.UserID,
			"role":    claims.Role,
		}).Warn("Non-admin attempted to decide a QR login")
		return nil, models.ErrPermissionDenied
	}
	return claims, nil
}

// loadTransitionable fetches the session and fails fast on records
// that can no longer move; the store CAS re-checks all of this
// atomically at write time.
func (s *service) loadTransitionable(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, models.ErrSessionInvalidState
	}
	if sess.EffectiveStatus(s.now()) == session.StatusExpired {
		return nil, models.ErrSessionExpired
	}
	return sess, nil
}

func deriveUserID(sess *session.Session) string {
	if sess.UserID != nil && *sess.UserID != "" {
		return *sess.UserID
	}
	prefix := sess.SessionID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("qr_user_%s", prefix)
}
