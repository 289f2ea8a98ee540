// Package security issues and verifies the signed tokens the public endpoints rely on:
// nonces guarding filter submissions and filter tokens carrying a compiled query
// to later listing reads.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kailas-cloud/postfilter/internal/domain"
	"github.com/kailas-cloud/postfilter/internal/domain/query"
)

// Default token lifetimes.
const (
	DefaultNonceTTL  = 12 * time.Hour
	DefaultFilterTTL = 24 * time.Hour
)

const (
	issuer        = "postfilter"
	nonceSubject  = "ajax-nonce"
	filterSubject = "filter"
)

type filterClaims struct {
	Query query.Compiled `json:"q"`
	jwt.RegisteredClaims
}

// Signer issues HS256 tokens. Nonces and filter tokens use separate keys.
type Signer struct {
	nonceKey  []byte
	filterKey []byte
	nonceTTL  time.Duration
	filterTTL time.Duration
	now       func() time.Time
}

// NewSigner creates a Signer. Both secrets are required; non-positive TTLs select the defaults.
func NewSigner(nonceSecret, filterSecret string, nonceTTL, filterTTL time.Duration) (*Signer, error) {
	if nonceSecret == "" || filterSecret == "" {
		return nil, errors.New("token secrets cannot be empty")
	}
	if nonceTTL <= 0 {
		nonceTTL = DefaultNonceTTL
	}
	if filterTTL <= 0 {
		filterTTL = DefaultFilterTTL
	}
	return &Signer{
		nonceKey:  []byte(nonceSecret),
		filterKey: []byte(filterSecret),
		nonceTTL:  nonceTTL,
		filterTTL: filterTTL,
		now:       time.Now,
	}, nil
}

// IssueNonce returns a fresh nonce and its expiry.
func (s *Signer) IssueNonce() (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.nonceTTL)
	claims := s.registered(nonceSubject, now, exp)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.nonceKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign nonce: %w", err)
	}
	return tok, exp, nil
}

// VerifyNonce checks a nonce. Any failure wraps domain.ErrForbidden.
func (s *Signer) VerifyNonce(tok string) error {
	if tok == "" {
		return fmt.Errorf("missing nonce: %w", domain.ErrForbidden)
	}
	var claims jwt.RegisteredClaims
	if _, err := s.parser(nonceSubject).ParseWithClaims(tok, &claims, s.keyFunc(s.nonceKey)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrForbidden, err)
	}
	return nil
}

// SignFilter packs a compiled query into a filter token.
func (s *Signer) SignFilter(q query.Compiled) (string, error) {
	now := s.now()
	claims := filterClaims{
		Query:            q,
		RegisteredClaims: s.registered(filterSubject, now, now.Add(s.filterTTL)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.filterKey)
	if err != nil {
		return "", fmt.Errorf("sign filter: %w", err)
	}
	return tok, nil
}

// ParseFilter verifies a filter token and returns its query. Failures wrap domain.ErrInvalidToken.
func (s *Signer) ParseFilter(tok string) (query.Compiled, error) {
	var claims filterClaims
	if _, err := s.parser(filterSubject).ParseWithClaims(tok, &claims, s.keyFunc(s.filterKey)); err != nil {
		return query.Compiled{}, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	return claims.Query, nil
}

func (s *Signer) registered(subject string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (s *Signer) parser(subject string) *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(subject),
		jwt.WithTimeFunc(s.now),
	)
}

func (s *Signer) keyFunc(key []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}
}
