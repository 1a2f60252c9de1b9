package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	authutil "github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/sahilchouksey/learnhub-api/utils/response"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	users                *services.UserService
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection // nil without Redis
	validator            *validation.Validator
	log                  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	users *services.UserService,
	jwtManager *authutil.JWTManager,
	blacklist *authutil.BlacklistService,
	bruteForceProtection *middleware.BruteForceProtection,
	log *logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:                users,
		jwtManager:           jwtManager,
		blacklistService:     blacklist,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
		log:                  log.With("handler", "auth"),
	}
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	User         *model.User `json:"user,omitempty"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"` // in seconds
}

func (h *AuthHandler) issue(user *model.User) (*TokenResponse, error) {
	access, err := h.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := h.jwtManager.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    int(time.Until(access.ExpiresAt).Seconds()),
	}, nil
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationFields(c, validation.FormatValidationErrors(err))
	}

	ip := c.IP()
	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			if h.bruteForceProtection != nil {
				h.bruteForceProtection.RecordFailure(c.UserContext(), ip)
			}
			return response.Unauthorized(c, "Invalid email or password")
		}
		h.log.Error("login failed", "error", err)
		return response.FromError(c, err)
	}

	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccess(c.UserContext(), ip)
	}

	res, err := h.issue(user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}
	res.User = user

	return response.Success(c, res)
}

// RefreshToken handles POST /api/v1/auth/refresh.
// The presented refresh token is revoked once a new pair is issued.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return response.BadRequest(c, "Refresh token is required")
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}
	if claims.TokenType != authutil.TokenTypeRefresh {
		return response.Unauthorized(c, "Invalid token type")
	}

	revoked, err := h.blacklistService.IsRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if revoked {
		return response.Unauthorized(c, "Token has been revoked")
	}

	user, err := h.users.Get(c.UserContext(), claims.UserID)
	if err != nil {
		return response.Unauthorized(c, "User not found")
	}
	if user.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	res, err := h.issue(user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	old := authutil.NewSession(claims)
	if err := h.blacklistService.Revoke(c.UserContext(), old, "token_refresh"); err != nil {
		// the old token still expires on its own
		h.log.Warn("failed to revoke refresh token", "user_id", user.ID, "error", err)
	}

	return response.Success(c, res)
}

// Logout handles POST /api/v1/auth/logout by blacklisting the access token
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session := middleware.GetSession(c)
	if session == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	if err := h.blacklistService.Revoke(c.UserContext(), session, "logout"); err != nil {
		h.log.Error("logout failed", "user_id", session.UserID, "error", err)
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session := middleware.GetSession(c)
	if session == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	user, err := h.users.Get(c.UserContext(), session.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	purchases, err := h.users.Purchases(c.UserContext(), session.UserID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{
		"user":              user,
		"purchased_courses": purchases,
	})
}
