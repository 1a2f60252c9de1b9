// Package handlertest drives Fiber handlers in tests.
package handlertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// JWT returns the token manager used by every handler test
func JWT() *auth.JWTManager {
	return auth.NewJWTManager(auth.JWTConfig{
		Secret:        "handler-test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 2 * time.Hour,
		Issuer:        "learnhub-test",
	})
}

// AuthMiddleware builds the real auth middleware over db
func AuthMiddleware(db *gorm.DB) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(JWT(), db, logger.Nop())
}

// User inserts a user with the given role
func User(t testing.TB, db *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	hash, err := auth.HashPasswordWithCost("password123", 4)
	require.NoError(t, err)
	u := &model.User{Email: email, Name: "Test " + string(role), Role: role, PasswordHash: hash}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Token signs an access token for u
func Token(t testing.TB, u *model.User) string {
	t.Helper()
	tok, err := JWT().GenerateAccessToken(u)
	require.NoError(t, err)
	return tok.Token
}

// Envelope is the decoded response body
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// Do sends a JSON request (body may be nil) and decodes the envelope
func Do(t testing.TB, app *fiber.App, method, path, token string, body interface{}) (*http.Response, Envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return Send(t, app, req)
}

// Send runs an already built request and decodes the envelope
func Send(t testing.TB, app *fiber.App, req *http.Request) (*http.Response, Envelope) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var env Envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp, env
}

// Decode unmarshals the envelope data into v
func Decode(t testing.TB, env Envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}
