// ABOUTME: JWT helpers for issuing, verifying, and inspecting bearer tokens
// ABOUTME: Uses HS256 signing; inspection reads claims without verification

package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	ErrWrongType    = errors.New("wrong token type")
)

// Token types carried in the "typ" claim
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Type      string
	ID        string
	ExpiresAt time.Time
}

// Issuer signs and verifies HS256 tokens. The console itself never holds a
// signing secret; Issuer backs the development backend and tests.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates a new issuer with the given secret
func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, now: time.Now}
}

// Generate creates a signed token of the given type for subject.
func (i *Issuer) Generate(subject, typ string, expiresIn time.Duration) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"typ": typ,
		"jti": uuid.New().String(),
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verify validates the signature and expiry and returns the claims.
// When wantType is non-empty the "typ" claim must match it.
func (i *Issuer) Verify(tokenString, wantType string) (*Claims, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims, err := claimsFrom(mc)
	if err != nil {
		return nil, err
	}
	if wantType != "" && claims.Type != wantType {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongType, claims.Type, wantType)
	}
	return claims, nil
}

func claimsFrom(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	c := &Claims{Subject: sub}
	c.Type, _ = mc["typ"].(string)
	c.ID, _ = mc["jti"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// Inspect decodes a JWT without verifying its signature. Clients use it to
// show expiry information; it must never be used for authorization.
func Inspect(tokenString string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claimsFrom(mc)
}

// ExpiresAt returns the expiry of a JWT bearer token, or the zero time for
// opaque tokens and tokens without an exp claim.
func ExpiresAt(tokenString string) time.Time {
	if tokenString == "" {
		return time.Time{}
	}
	c, err := Inspect(tokenString)
	if err != nil {
		return time.Time{}
	}
	return c.ExpiresAt
}
