package token

import (
	"qrlogin-svc/src/internal/config"
	"qrlogin-svc/src/internal/models"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	authority, err := NewAuthority(&config.SecuritySettings{
		TokenTTLSeconds:         86400,
		RenewalThresholdSeconds: 3600,
	})
	require.NoError(t, err)
	return authority
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	authority := newTestAuthority(t)

	signed, err := authority.Issue("user-42", "alice", RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := authority.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "user-42", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, RoleAdmin, claims.Role)
	require.WithinDuration(t,
		time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	authority := newTestAuthority(t)

	_, err := authority.Verify("not.a.token")
	require.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer := newTestAuthority(t)
	verifier := newTestAuthority(t)

	signed, err := issuer.Issue("user-42", "alice", RoleUser)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	authority := newTestAuthority(t)

	claims := &Claims{
		UserID:   "user-42",
		Username: "alice",
		Role:     RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	signed, err := authority.IssueClaims(claims)
	require.NoError(t, err)

	_, err = authority.Verify(signed)
	require.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	authority := newTestAuthority(t)

	signed, err := authority.IssueClaims(&Claims{UserID: "user-42", Role: RoleUser})
	require.NoError(t, err)

	_, err = authority.Verify(signed)
	require.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestVerifyAndRenewLeavesFreshTokenAlone(t *testing.T) {
	authority := newTestAuthority(t)

	signed, err := authority.Issue("user-42", "alice", RoleUser)
	require.NoError(t, err)

	returned, claims, err := authority.VerifyAndRenew(signed)
	require.NoError(t, err)
	require.Equal(t, signed, returned)
	require.Equal(t, "user-42", claims.UserID)
}

func TestVerifyAndRenewReplacesNearExpiryToken(t *testing.T) {
	authority := newTestAuthority(t)

	// Thirty minutes left, under the one-hour renewal threshold.
	now := time.Now()
	claims := &Claims{
		UserID:   "user-42",
		Username: "alice",
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Minute)),
		},
	}
	signed, err := authority.IssueClaims(claims)
	require.NoError(t, err)

	renewed, renewedClaims, err := authority.VerifyAndRenew(signed)
	require.NoError(t, err)
	require.NotEqual(t, signed, renewed)
	require.Equal(t, "user-42", renewedClaims.UserID)
	require.Equal(t, RoleAdmin, renewedClaims.Role)
	require.WithinDuration(t,
		now.Add(24*time.Hour), renewedClaims.ExpiresAt.Time, time.Minute)

	// The replacement verifies on its own.
	verified, err := authority.Verify(renewed)
	require.NoError(t, err)
	require.Equal(t, "user-42", verified.UserID)
}

func TestVerifyAndRenewRejectsExpiredToken(t *testing.T) {
	authority := newTestAuthority(t)

	claims := &Claims{
		UserID: "user-42",
		Role:   RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := authority.IssueClaims(claims)
	require.NoError(t, err)

	_, _, err = authority.VerifyAndRenew(signed)
	require.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestKeyPairRoundTrip(t *testing.T) {
	privPEM, pubPEM, err := GenerateKeyPair()
	require.NoError(t, err)

	priv, err := ParsePrivateKey(privPEM)
	require.NoError(t, err)
	require.NotNil(t, priv)

	pub, err := ParsePublicKey(pubPEM)
	require.NoError(t, err)
	require.NotNil(t, pub)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("admin")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, role)

	role, err = ParseRole("User")
	require.NoError(t, err)
	require.Equal(t, RoleUser, role)

	_, err = ParseRole("superuser")
	require.ErrorIs(t, err, models.ErrUnknownRole)

	_, err = ParseRole("")
	require.ErrorIs(t, err, models.ErrUnknownRole)
}
