// Package auth implements the single-admin password and bearer-token
// scheme guarding the API.
package auth

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer = "riptide"
	tokenTTL    = 24 * time.Hour
	secretBytes = 32
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPasswordSet      = errors.New("no password has been set")
	ErrPasswordRequired   = errors.New("password is required")
)

// Service verifies the admin password and issues the bearer tokens the
// API middleware checks.
type Service struct {
	db     *sql.DB
	secret []byte
}

// Claims is the token payload; riptide only needs the registered set.
type Claims struct {
	jwt.RegisteredClaims
}

// NewService builds the auth service. An empty secret gets a random one,
// which invalidates outstanding tokens across restarts.
func NewService(db *sql.DB, secret string) (*Service, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, secretBytes)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return &Service{db: db, secret: key}, nil
}

// IsPasswordSet reports whether an admin password has been configured.
func (s *Service) IsPasswordSet() bool {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM auth WHERE id = 1)`).Scan(&exists)
	return err == nil && exists
}

// SetPassword stores the bcrypt hash of the admin password, replacing
// any previous one.
func (s *Service) SetPassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO auth (id, password_hash, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			password_hash = excluded.password_hash,
			updated_at = CURRENT_TIMESTAMP
	`, string(hash))
	if err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}
	return nil
}

// ValidatePassword compares the given password against the stored hash.
func (s *Service) ValidatePassword(password string) error {
	var hash string
	switch err := s.db.QueryRow(`SELECT password_hash FROM auth WHERE id = 1`).Scan(&hash); {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNoPasswordSet
	case err != nil:
		return fmt.Errorf("load password hash: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken issues a signed bearer token valid for tokenTTL.
func (s *Service) GenerateToken() (string, error) {
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken parses and verifies a bearer token.
func (s *Service) ValidateToken(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, s.signingKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (s *Service) signingKey(*jwt.Token) (interface{}, error) {
	return s.secret, nil
}
