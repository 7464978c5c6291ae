// Package jwt issues and verifies the HS256 tokens used for sessions and QR access codes.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/nonce"
)

var (
	ErrInvalidNonce     = errors.New("invalid nonce")
	ErrNonValidToken    = errors.New("token did not pass validation")
	ErrInvalidClaimType = errors.New("invalid claim type")
	ErrWrongLocker      = errors.New("access code issued for another locker")
)

const (
	audienceSession      = "session"
	audienceLockerAccess = "locker_access"
)

var tokenSignatureAlg = gojwt.SigningMethodHS256

// SessionClaims identify a logged in user. Sessions are stateless and never stored.
type SessionClaims struct {
	Username    string              `json:"username"`
	Role        access.Role         `json:"role"`
	Permissions []access.Permission `json:"permissions"`
	gojwt.RegisteredClaims
}

// Claim for one-time locker access codes
type AccessCodeClaims struct {
	LockerID string `json:"locker_id"`
	gojwt.RegisteredClaims
}

type Signer struct {
	secret     []byte
	sessionTTL time.Duration
	codeTTL    time.Duration
	skew       time.Duration
	nonces     nonce.Store
}

// NewSigner creates a signer. nonces may be nil when access codes are not used.
func NewSigner(secret string, sessionTTL, codeTTL, skew time.Duration, nonces nonce.Store) *Signer {
	return &Signer{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		codeTTL:    codeTTL,
		skew:       skew,
		nonces:     nonces,
	}
}

// IssueSession returns a signed session token for user and its expiry.
func (s *Signer) IssueSession(user *access.User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiry := now.Add(s.sessionTTL)
	claims := SessionClaims{
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions(),
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   user.ID,
			Audience:  gojwt.ClaimStrings{audienceSession},
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(expiry),
		},
	}
	token, err := s.generateJWT(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

// DecodeSession verifies a session token. Expiry is enforced without leeway.
func (s *Signer) DecodeSession(tokenString string) (*SessionClaims, error) {
	return decodeJWT(s, tokenString, &SessionClaims{}, audienceSession, 0)
}

// IssueAccessCode mints a one-time token bound to lockerID. The nonce outlives the
// token by the allowed clock skew.
func (s *Signer) IssueAccessCode(ctx context.Context, lockerID string) (string, time.Time, error) {
	if s.nonces == nil {
		return "", time.Time{}, errors.New("no nonce store configured")
	}
	jti, err := nonce.New(ctx, s.nonces, s.codeTTL+s.skew)
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	expiry := now.Add(s.codeTTL)
	claims := AccessCodeClaims{
		LockerID: lockerID,
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        jti,
			Audience:  gojwt.ClaimStrings{audienceLockerAccess},
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(expiry),
		},
	}
	token, err := s.generateJWT(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

// RedeemAccessCode verifies an access code for lockerID and consumes its nonce.
// A code can be redeemed once.
func (s *Signer) RedeemAccessCode(ctx context.Context, tokenString, lockerID string) (*AccessCodeClaims, error) {
	claims, err := decodeJWT(s, tokenString, &AccessCodeClaims{}, audienceLockerAccess, s.skew)
	if err != nil {
		return nil, err
	}
	if claims.LockerID != lockerID {
		return nil, ErrWrongLocker
	}
	if s.nonces == nil {
		return nil, ErrInvalidNonce
	}
	ok, err := s.nonces.Consume(ctx, claims.ID)
	switch {
	case errors.Is(err, nonce.ErrUnknown), errors.Is(err, nonce.ErrExpired):
		return nil, fmt.Errorf("%w: %w", ErrInvalidNonce, err)
	case err != nil:
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	case !ok:
		return nil, ErrInvalidNonce
	}
	return claims, nil
}

func (s *Signer) generateJWT(claims gojwt.Claims) (string, error) {
	token := gojwt.NewWithClaims(tokenSignatureAlg, claims)
	return token.SignedString(s.secret)
}

func decodeJWT[T gojwt.Claims](s *Signer, tokenString string, claimsType T, audience string, leeway time.Duration) (T, error) {
	var zero T

	parsedToken, err := gojwt.ParseWithClaims(tokenString, claimsType, func(token *gojwt.Token) (any, error) {
		return s.secret, nil
	},
		gojwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}),
		gojwt.WithAudience(audience),
		gojwt.WithExpirationRequired(),
		gojwt.WithLeeway(leeway),
	)

	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrNonValidToken, err)
	} else if parsedToken == nil || !parsedToken.Valid {
		return zero, ErrNonValidToken
	} else if claims, ok := parsedToken.Claims.(T); ok {
		return claims, nil
	}

	return zero, ErrInvalidClaimType
}
