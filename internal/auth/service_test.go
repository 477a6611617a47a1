// internal/auth/service_test.go
package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temmyjay001/agency-service/internal/config"
)

const testPassword = "MySecurePassword123!"

func newTestService(t *testing.T) (*Service, *config.Config) {
	t.Helper()

	hash, err := HashPassword(testPassword)
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:         "test-jwt-secret-key",
		AdminEmail:        "admin@agency.test",
		AdminPasswordHash: hash,
	}
	return NewService(cfg), cfg
}

func TestHashPassword(t *testing.T) {
	hash1, err := HashPassword(testPassword)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash1)

	// Verify hash has correct format (salt:hash)
	parts := strings.Split(hash1, ":")
	assert.Len(t, parts, 2, "Hash should have salt and hash parts")

	// Hash should be different each time due to random salt
	hash2, err := HashPassword(testPassword)
	assert.NoError(t, err)
	assert.NotEqual(t, hash1, hash2, "Hashes should differ due to different salts")
}

func TestVerifyPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"Simple password", "password123"},
		{"Complex password", "MyS3cur3P@ssw0rd!"},
		{"Special characters", "!@#$%^&*()_+-={}[]|:;<>?,./"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			assert.NoError(t, err)

			valid, err := VerifyPassword(tt.password, hash)
			assert.NoError(t, err)
			assert.True(t, valid, "Correct password should verify")

			valid, err = VerifyPassword("wrongpassword", hash)
			assert.NoError(t, err)
			assert.False(t, valid, "Incorrect password should not verify")
		})
	}
}

func TestVerifyPassword_InvalidFormat(t *testing.T) {
	tests := []struct {
		name        string
		hashedPass  string
		expectError bool
	}{
		{"no colon", "invalidhash", true},
		{"empty", "", true},
		{"bad base64", "!!:!!", true},
		{"only colon", ":", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := VerifyPassword("password", tt.hashedPass)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.False(t, valid)
		})
	}
}

func TestLogin(t *testing.T) {
	service, cfg := newTestService(t)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := service.Login(ctx, LoginRequest{Email: "Admin@Agency.test", Password: testPassword})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, cfg.AdminEmail, resp.Email)
		assert.Equal(t, RoleAdmin, resp.Role)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), resp.ExpiresAt, time.Minute)

		claims, err := service.ValidateUserToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, cfg.AdminEmail, claims.Email)
		assert.Equal(t, "agency-service", claims.Issuer)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := service.Login(ctx, LoginRequest{Email: cfg.AdminEmail, Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong email", func(t *testing.T) {
		_, err := service.Login(ctx, LoginRequest{Email: "someone@else.test", Password: testPassword})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("login not configured", func(t *testing.T) {
		disabled := NewService(&config.Config{JWTSecret: "x"})
		_, err := disabled.Login(ctx, LoginRequest{Email: "a@b.c", Password: "p"})
		assert.ErrorIs(t, err, ErrLoginDisabled)
	})
}

func TestValidateUserToken_Invalid(t *testing.T) {
	service, _ := newTestService(t)

	tests := []struct {
		name  string
		token string
	}{
		{"Empty token", ""},
		{"Invalid format", "not.a.valid.token"},
		{"Random string", "randomstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateUserToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateUserToken_WrongSecret(t *testing.T) {
	service, _ := newTestService(t)
	other := NewService(&config.Config{JWTSecret: "another-secret"})

	token, _, err := other.generateToken("admin@agency.test")
	require.NoError(t, err)

	_, err = service.ValidateUserToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateUserToken_Expired(t *testing.T) {
	service, cfg := newTestService(t)

	claims := &Claims{
		Email: cfg.AdminEmail,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)), // Expired 1 hour ago
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "agency-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	validatedClaims, err := service.ValidateUserToken(tokenString)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Nil(t, validatedClaims)
}

func TestUserAuthMiddleware(t *testing.T) {
	service, _ := newTestService(t)
	middleware := NewMiddleware(service)

	resp, err := service.Login(context.Background(), LoginRequest{Email: "admin@agency.test", Password: testPassword})
	require.NoError(t, err)

	var seen *Claims
	protected := middleware.UserAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserClaims(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"valid token", "Bearer " + resp.Token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + resp.Token, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/credits/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, RoleAdmin, seen.Role)
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	service, _ := newTestService(t)
	handlers := NewHandlers(service)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"success", `{"email":"admin@agency.test","password":"` + testPassword + `"}`, http.StatusOK},
		{"bad password", `{"email":"admin@agency.test","password":"x"}`, http.StatusUnauthorized},
		{"invalid email", `{"email":"not-an-email","password":"x"}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handlers.LoginHandler(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		HashPassword(testPassword)
	}
}

func BenchmarkVerifyPassword(b *testing.B) {
	hash, _ := HashPassword(testPassword)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		VerifyPassword(testPassword, hash)
	}
}
