// internal/auth/service.go
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/internal/config"
	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLoginDisabled      = errors.New("admin login is not configured")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrInvalidHashFormat  = errors.New("invalid password hash format")
)

// argon2id parameters
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// Service authenticates the dashboard administrator configured through
// ADMIN_EMAIL and ADMIN_PASSWORD_HASH and issues bearer tokens.
type Service struct {
	config *config.Config
	now    func() time.Time
}

func NewService(config *config.Config) *Service {
	return &Service{
		config: config,
		now:    time.Now,
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if s.config.AdminEmail == "" || s.config.AdminPasswordHash == "" {
		return nil, ErrLoginDisabled
	}

	emailMatches := strings.EqualFold(strings.TrimSpace(req.Email), s.config.AdminEmail)

	// always hash so timing does not reveal whether the email matched
	valid, err := VerifyPassword(req.Password, s.config.AdminPasswordHash)
	if err != nil {
		logrus.Errorf("Stored admin password hash is unusable: %v", err)
		return nil, ErrInvalidCredentials
	}
	if !valid || !emailMatches {
		logrus.WithField("email", req.Email).Warn("Failed admin login attempt")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateToken(s.config.AdminEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Email:     s.config.AdminEmail,
		Role:      RoleAdmin,
	}, nil
}

func (s *Service) ValidateUserToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *Service) generateToken(email string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(tokenLifetime)

	claims := &Claims{
		Email: email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// HashPassword returns "base64(salt):base64(argon2id(password, salt))".
func HashPassword(password string) (string, error) {
	// Generate random salt
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.StdEncoding.EncodeToString(salt)
	encodedHash := base64.StdEncoding.EncodeToString(hash)

	return fmt.Sprintf("%s:%s", encodedSalt, encodedHash), nil
}

func VerifyPassword(password, hashedPassword string) (bool, error) {
	parts := strings.Split(hashedPassword, ":")
	if len(parts) != 2 {
		return false, ErrInvalidHashFormat
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, err
	}

	expectedHash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, err
	}

	// Hash the provided password with the same salt
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(hash, expectedHash) == 1, nil
}
