package session

import "time"

// Status is the lifecycle state of a QR login session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScanned   Status = "scanned"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transitions are accepted from s.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected || s == StatusExpired
}

// Session is one QR login attempt. Storage is authoritative for its
// state; live connections only mirror it.
type Session struct {
	SessionID string    `json:"session_id"`
	Status    Status    `json:"status"`
	UserID    *string   `json:"user_id,omitempty"`
	WebToken  *string   `json:"web_token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EffectiveStatus computes the status as observed at `now`. Expiry is
// never written back by a background task; a stored pending/scanned
// record past its deadline reads as expired.
func (s *Session) EffectiveStatus(now time.Time) Status {
	if (s.Status == StatusPending || s.Status == StatusScanned) && !now.Before(s.ExpiresAt) {
		return StatusExpired
	}
	return s.Status
}

// Clone returns a deep copy so mutators never touch the stored record
// before the store commits them.
func (s *Session) Clone() *Session {
	clone := *s
	if s.UserID != nil {
		v := *s.UserID
		clone.UserID = &v
	}
	if s.WebToken != nil {
		v := *s.WebToken
		clone.WebToken = &v
	}
	return &clone
}
