// Package auth turns the configured bearer token into an oauth2.TokenSource.
// The token is issued by the OAuth login flow of the web app; here it is only
// read, never verified (the API verifies it).
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var (
	ErrNoToken      = errors.New("no bearer token configured")
	ErrTokenExpired = errors.New("bearer token expired")
)

// Claims are the fields of a JWT bearer token the client cares about.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time // zero when the token carries no exp
}

// ParseClaims reads the claims of a JWT without verifying its signature.
func ParseClaims(raw string) (*Claims, error) {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	c := &Claims{}
	c.Subject, _ = claims["sub"].(string)
	c.Email, _ = claims["email"].(string)
	c.Name, _ = claims["name"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return c, nil
}

// NewTokenSource returns a source handing out raw as a bearer token. JWTs
// get their exp as expiry; opaque tokens never expire locally.
func NewTokenSource(raw string) oauth2.TokenSource {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if claims, err := ParseClaims(raw); err == nil {
		tok.Expiry = claims.ExpiresAt
	}
	return &checkedSource{tok: tok, now: time.Now}
}

// checkedSource fails instead of handing out an empty or expired token.
type checkedSource struct {
	tok *oauth2.Token
	now func() time.Time
}

func (s *checkedSource) Token() (*oauth2.Token, error) {
	if s.tok.AccessToken == "" {
		return nil, ErrNoToken
	}
	if !s.tok.Expiry.IsZero() && !s.now().Before(s.tok.Expiry) {
		return nil, ErrTokenExpired
	}
	return s.tok, nil
}
