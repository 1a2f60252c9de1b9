package auth

import (
	"testing"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(now time.Time) *JWTManager {
	m := NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "learnhub-test",
	})
	m.now = func() time.Time { return now }
	return m
}

func TestAccessTokenCarriesAdminClaim(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)

	tests := []struct {
		role      model.Role
		wantAdmin bool
	}{
		{model.RoleAdmin, true},
		{model.RoleModerator, false},
		{model.RoleStudent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			issued, err := m.GenerateAccessToken(&model.User{ID: 7, Email: "a@b.co", Role: tt.role, TokenVersion: 3})
			require.NoError(t, err)

			claims, err := m.ValidateToken(issued.Token)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdmin, claims.Admin)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, uint(7), claims.UserID)
			assert.Equal(t, 3, claims.TokenVersion)
			assert.Equal(t, TokenTypeAccess, claims.TokenType)
			assert.Equal(t, issued.JTI, claims.ID)

			session := NewSession(claims)
			assert.Equal(t, tt.wantAdmin, session.Admin)
			assert.Equal(t, issued.JTI, session.TokenID)
		})
	}
}

func TestValidateTokenRejects(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)
	issued, err := m.GenerateAccessToken(&model.User{ID: 1, Role: model.RoleStudent})
	require.NoError(t, err)

	later := newTestManager(now.Add(2 * time.Hour))
	_, err = later.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTManager(JWTConfig{Secret: "other", Expiry: time.Hour, Issuer: "learnhub-test"})
	_, err = other.ValidateToken(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPasswordWithCost("correct horse", 4)
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong horse"), ErrPasswordMismatch)

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
