package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"gorm.io/gorm"
)

const sessionKey = "session"

var (
	errMissingToken = errors.New("Missing authorization token")
	errTokenFormat  = errors.New("Invalid authorization format")
	errTokenType    = errors.New("Invalid token type")
	errRevoked      = errors.New("Token has been revoked")
	errInvalidated  = errors.New("Token has been invalidated")
	errUnknownUser  = errors.New("User not found")
	errExpired      = errors.New("Token has expired")
	errInvalidToken = errors.New("Invalid token")
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	blacklist  *auth.BlacklistService
	db         *gorm.DB
	log        *logger.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		blacklist:  auth.NewBlacklistService(db),
		db:         db,
		log:        log,
	}
}

// authenticate validates the bearer token and builds the caller's session
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Session, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errTokenFormat
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, errExpired
		}
		return nil, errInvalidToken
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return nil, errTokenType
	}

	revoked, err := m.blacklist.IsRevoked(c.UserContext(), claims.ID)
	if err != nil {
		m.log.Error("failed to check token status", "error", err)
		return nil, err
	}
	if revoked {
		return nil, errRevoked
	}

	// Token version and role come from the stored user so demotions and
	// "log out everywhere" take effect before the token expires
	var user model.User
	if err := m.db.WithContext(c.UserContext()).Select("id", "role", "token_version").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUnknownUser
		}
		m.log.Error("failed to load user", "error", err)
		return nil, err
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, errInvalidated
	}

	session := auth.NewSession(claims)
	session.Role = user.Role
	session.Admin = claims.Admin && user.Role == model.RoleAdmin
	return session, nil
}

func isClientError(err error) bool {
	switch err {
	case errMissingToken, errTokenFormat, errTokenType, errRevoked, errInvalidated, errUnknownUser, errExpired, errInvalidToken:
		return true
	}
	return false
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := m.authenticate(c)
		if err != nil {
			if isClientError(err) {
				return response.Unauthorized(c, err.Error())
			}
			return response.InternalServerError(c, "Failed to verify token")
		}

		c.Locals(sessionKey, session)
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if session, err := m.authenticate(c); err == nil {
			c.Locals(sessionKey, session)
		}
		return c.Next()
	}
}

// RequireStaff allows admins and moderators. Use after Required.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := access.RequireStaff(GetSession(c)); err != nil {
			return response.FromError(c, err)
		}
		return c.Next()
	}
}

// RequireAdminClaim allows only tokens carrying the admin claim. Use after Required.
func RequireAdminClaim() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := access.RequireAdminClaim(GetSession(c)); err != nil {
			return response.FromError(c, err)
		}
		return c.Next()
	}
}

// GetSession returns the authenticated caller, or nil
func GetSession(c *fiber.Ctx) *auth.Session {
	s, _ := c.Locals(sessionKey).(*auth.Session)
	return s
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	s := GetSession(c)
	if s == nil {
		return 0, false
	}
	return s.UserID, true
}
