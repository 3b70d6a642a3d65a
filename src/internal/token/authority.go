package token

import (
	"crypto/ed25519"
	"errors"
	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Claims is the signed principal identity carried by every credential.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// Authority issues, verifies, and conditionally renews EdDSA-signed
// credentials. Signing uses the private key; verification only the
// public key.
type Authority struct {
	privateKey       ed25519.PrivateKey
	publicKey        ed25519.PublicKey
	defaultTTL       time.Duration
	renewalThreshold time.Duration
	now              func() time.Time
}

// NewAuthority builds an Authority from the security settings. Empty
// key material yields an ephemeral pair, which is fine for development
// but means tokens do not survive restarts.
func NewAuthority(cfg *config.SecuritySettings) (*Authority, error) {
	privPEM, pubPEM := cfg.JwtPrivateKey, cfg.JwtPublicKey
	if privPEM == "" || pubPEM == "" {
		logrus.Warn("No JWT key material configured, generating ephemeral Ed25519 keys")
		var err error
		privPEM, pubPEM, err = GenerateKeyPair()
		if err != nil {
			return nil, err
		}
	}

	privateKey, err := ParsePrivateKey(privPEM)
	if err != nil {
		return nil, err
	}
	publicKey, err := ParsePublicKey(pubPEM)
	if err != nil {
		return nil, err
	}

	return &Authority{
		privateKey:       privateKey,
		publicKey:        publicKey,
		defaultTTL:       time.Duration(cfg.TokenTTLSeconds) * time.Second,
		renewalThreshold: time.Duration(cfg.RenewalThresholdSeconds) * time.Second,
		now:              time.Now,
	}, nil
}

// Issue signs a credential for the given principal expiring after the
// default TTL.
func (a *Authority) Issue(userID, username string, role Role) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.defaultTTL)),
		},
	}
	return a.IssueClaims(claims)
}

// IssueClaims signs the claims exactly as given. No side effects.
func (a *Authority) IssueClaims(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(a.privateKey)
}

// Verify checks signature and expiry and returns the decoded claims.
func (a *Authority) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, models.ErrTokenInvalid
		}
		return a.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, models.ErrTokenInvalid
	}
	if claims.ExpiresAt == nil {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}

// VerifyAndRenew verifies the credential and, when less than the
// renewal threshold remains, issues a replacement expiring a full TTL
// from now with subject and role preserved. Otherwise the input token
// is returned unchanged. Renewing twice in quick succession is safe.
func (a *Authority) VerifyAndRenew(tokenString string) (string, *Claims, error) {
	claims, err := a.Verify(tokenString)
	if err != nil {
		return "", nil, err
	}

	now := a.now()
	if claims.ExpiresAt.Sub(now) > a.renewalThreshold {
		return tokenString, claims, nil
	}

	renewed := &Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.defaultTTL)),
		},
	}
	newToken, err := a.IssueClaims(renewed)
	if err != nil {
		return "", nil, err
	}

	logrus.WithField("user_id", claims.UserID).Debug("Credential renewed")
	return newToken, renewed, nil
}

// DefaultTTL exposes the configured credential lifetime.
func (a *Authority) DefaultTTL() time.Duration {
	return a.defaultTTL
}
