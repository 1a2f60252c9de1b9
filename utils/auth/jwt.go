package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sahilchouksey/learnhub-api/model"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	Expiry        time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// Claims represents JWT claims. Admin is the custom claim that authorizes
// the privileged user operations.
type Claims struct {
	UserID       uint       `json:"user_id"`
	Email        string     `json:"email"`
	Role         model.Role `json:"role"`
	Admin        bool       `json:"admin,omitempty"`
	TokenType    string     `json:"token_type"`
	TokenVersion int        `json:"token_version"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token operations
type JWTManager struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{config: config, now: time.Now}
}

// IssuedToken is a signed token and its identifiers
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// GenerateAccessToken signs an access token for the user. Only admins get the admin claim.
func (j *JWTManager) GenerateAccessToken(user *model.User) (IssuedToken, error) {
	return j.generate(user, TokenTypeAccess, j.config.Expiry)
}

// GenerateRefreshToken signs a refresh token for the user
func (j *JWTManager) GenerateRefreshToken(user *model.User) (IssuedToken, error) {
	return j.generate(user, TokenTypeRefresh, j.config.RefreshExpiry)
}

func (j *JWTManager) generate(user *model.User, tokenType string, ttl time.Duration) (IssuedToken, error) {
	now := j.now()
	expiresAt := now.Add(ttl)
	jti := uuid.New().String()

	claims := Claims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		Admin:        user.Role == model.RoleAdmin,
		TokenType:    tokenType,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
			Subject:   user.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.config.Secret))
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, JTI: jti, ExpiresAt: expiresAt}, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(j.config.Secret), nil
	}, jwt.WithTimeFunc(j.now), jwt.WithIssuer(j.config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}
