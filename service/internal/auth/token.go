// Package auth issues and verifies the bearer tokens that let a websocket
// client attach to a table.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "acesupd"

var (
	// ErrTokenInvalid is returned for malformed, tampered or mis-signed tokens.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenExpired is returned once a token is past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims identify the table a token grants access to.
type Claims struct {
	TableID   uuid.UUID
	Variant   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tableClaims is the JWT body.
type tableClaims struct {
	jwt.RegisteredClaims
	Variant string `json:"variant"`
}

// Issuer signs HS256 table tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. ttl must be positive.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: empty token secret")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive, got %s", ttl)
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for tableID.
func (i *Issuer) Issue(tableID uuid.UUID, variant string) (string, error) {
	now := i.now().UTC()
	claims := tableClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   tableID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
		Variant: variant,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign table token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of token.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: token is required", ErrTokenInvalid)
	}
	var parsed tableClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	id, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: subject is not a table id", ErrTokenInvalid)
	}
	claims := Claims{
		TableID:   id,
		Variant:   parsed.Variant,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to package errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
}
