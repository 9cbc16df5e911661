package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
)

// Claims identifies the scanner client a token was issued to.
type Claims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

// Service issues and verifies bearer tokens for scanner clients. All clients
// share one provisioning secret; the per-client identity travels in the token.
type Service struct {
	jwtSecret  []byte
	secretHash string
	tokenTTL   time.Duration
}

func NewService(jwtSecret, secretHash string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{jwtSecret: []byte(jwtSecret), secretHash: secretHash, tokenTTL: tokenTTL}
}

// HashSecret produces the bcrypt hash stored in SCANNER_SECRET_HASH.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate verifies the shared secret and issues a token for the client.
func (s *Service) Authenticate(client, secret string) (token string, expiresAt time.Time, err error) {
	if client == "" || s.secretHash == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(s.secretHash), []byte(secret)) != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expiresAt = time.Now().Add(s.tokenTTL)
	claims := Claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   client,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// VerifyToken parses a bearer token and returns its claims.
func (s *Service) VerifyToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}
	if !parsed.Valid || claims.Client == "" {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}
