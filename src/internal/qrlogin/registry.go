package qrlogin

import (
	"context"
	"errors"
	"qrlogin-svc/src/internal/models"
	"qrlogin-svc/src/internal/session"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StatusMessage is the frame pushed over a live connection.
type StatusMessage struct {
	Status   string  `json:"status"`
	WebToken *string `json:"web_token"`
	Message  string  `json:"message"`
}

// Notifier is the push seam the state machine talks to.
type Notifier interface {
	Notify(sessionID string, status session.Status, webToken *string) bool
}

// Registry tracks at most one live browser connection per session and
// delivers at most one terminal push to it. It may lag behind the
// store; the store stays authoritative.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*liveConn

	store       session.Store
	heartbeat   time.Duration
	expiryCheck time.Duration
	writeWait   time.Duration
}

type liveConn struct {
	sessionID string
	ws        *websocket.Conn
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (c *liveConn) signalDone() {
	c.closeOnce.Do(func() { close(c.done) })
}

func NewRegistry(store session.Store, heartbeat, expiryCheck time.Duration) *Registry {
	return &Registry{
		conns:       make(map[string]*liveConn),
		store:       store,
		heartbeat:   heartbeat,
		expiryCheck: expiryCheck,
		writeWait:   10 * time.Second,
	}
}

// Register attaches a websocket connection to a session. A newer
// connection for the same session replaces and closes the previous one.
// The connection is serviced until a terminal push, peer close,
// heartbeat failure, or session expiry tears it down.
func (r *Registry) Register(sessionID string, ws *websocket.Conn) {
	conn := &liveConn{
		sessionID: sessionID,
		ws:        ws,
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	previous := r.conns[sessionID]
	r.conns[sessionID] = conn
	r.mu.Unlock()

	if previous != nil {
		logrus.WithField("session_id", sessionID).Debug("Replacing existing live connection")
		previous.signalDone()
		previous.ws.Close()
	}

	greeting := &StatusMessage{Status: "connected", Message: "Waiting for confirmation"}
	if err := r.write(conn, greeting); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to send greeting")
		r.drop(conn)
		return
	}

	go r.readPump(conn)
	go r.serve(conn)

	logrus.WithField("session_id", sessionID).Info("Live connection registered")
}

// Notify pushes a terminal status to the session's live connection, if
// any, then closes it. Returns false when nobody is listening; that is
// not a failure, the outcome stays queryable from the store.
func (r *Registry) Notify(sessionID string, status session.Status, webToken *string) bool {
	r.mu.Lock()
	conn := r.conns[sessionID]
	if conn != nil {
		delete(r.conns, sessionID)
	}
	r.mu.Unlock()

	if conn == nil {
		logrus.WithField("session_id", sessionID).Debug("No live connection to notify")
		return false
	}

	msg := &StatusMessage{
		Status:   string(status),
		WebToken: webToken,
		Message:  statusText(status),
	}
	err := r.write(conn, msg)
	conn.signalDone()
	conn.ws.Close()

	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Terminal push failed")
		return false
	}

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"status":     status,
	}).Info("Terminal status pushed")
	return true
}

// Unregister removes and closes the session's live connection.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	conn := r.conns[sessionID]
	if conn != nil {
		delete(r.conns, sessionID)
	}
	r.mu.Unlock()

	if conn != nil {
		conn.signalDone()
		conn.ws.Close()
	}
}

// Registered reports whether a live connection exists for the session.
func (r *Registry) Registered(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[sessionID] != nil
}

func (r *Registry) write(c *liveConn, msg *StatusMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(r.writeWait))
	return c.ws.WriteJSON(msg)
}

func (r *Registry) ping(c *liveConn) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(r.writeWait))
}

// readPump drains inbound frames. Pongs extend the read deadline; any
// read error (peer close, missed heartbeat) ends the connection.
func (r *Registry) readPump(c *liveConn) {
	pongWait := r.heartbeat * 2
	c.ws.SetReadLimit(4096)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("session_id", c.sessionID).Debug("Live connection read error")
			}
			c.signalDone()
			return
		}
		if len(message) > 0 {
			logrus.WithField("session_id", c.sessionID).Debug("Message received from live connection")
		}
	}
}

// serve multiplexes the connection's wait conditions: teardown signal,
// heartbeat tick, and expiry-check tick.
func (r *Registry) serve(c *liveConn) {
	heartbeat := time.NewTicker(r.heartbeat)
	expiry := time.NewTicker(r.expiryCheck)
	defer heartbeat.Stop()
	defer expiry.Stop()

	for {
		select {
		case <-c.done:
			r.drop(c)
			return

		case <-heartbeat.C:
			if err := r.ping(c); err != nil {
				logrus.WithField("session_id", c.sessionID).Debug("Heartbeat failed, closing connection")
				r.drop(c)
				return
			}

		case <-expiry.C:
			if r.expireIfNeeded(c) {
				return
			}
		}
	}
}

// expireIfNeeded probes the store and, when the session has passed its
// deadline while still non-terminal, pushes an expired status and
// closes. A missing record is treated as expired.
func (r *Registry) expireIfNeeded(c *liveConn) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := r.store.Get(ctx, c.sessionID)
	if err != nil {
		if !errors.Is(err, models.ErrSessionNotFound) {
			logrus.WithError(err).WithField("session_id", c.sessionID).Warn("Expiry probe failed")
			return false
		}
		sess = nil
	}

	if sess != nil && sess.EffectiveStatus(time.Now()) != session.StatusExpired {
		return false
	}

	msg := &StatusMessage{Status: string(session.StatusExpired), Message: statusText(session.StatusExpired)}
	if err := r.write(c, msg); err != nil {
		logrus.WithError(err).WithField("session_id", c.sessionID).Debug("Expired push failed")
	}
	logrus.WithField("session_id", c.sessionID).Info("Session expired, closing live connection")
	r.drop(c)
	return true
}

// drop removes the connection from the map (only while it is still the
// current entry for its session) and closes it.
func (r *Registry) drop(c *liveConn) {
	r.mu.Lock()
	if r.conns[c.sessionID] == c {
		delete(r.conns, c.sessionID)
	}
	r.mu.Unlock()

	c.signalDone()
	c.ws.Close()
}

func statusText(status session.Status) string {
	switch status {
	case session.StatusPending:
		return "Waiting for scan"
	case session.StatusScanned:
		return "Scanned, waiting for confirmation"
	case session.StatusConfirmed:
		return "Login successful"
	case session.StatusRejected:
		return "Login rejected by user"
	case session.StatusExpired:
		return "QR code expired"
	default:
		return ""
	}
}
