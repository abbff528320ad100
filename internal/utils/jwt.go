package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for reset tokens
	"encoding/hex"  // hex encoding and decoding functions
	"errors"
	"strconv"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken is a signed JWT together with its expiry.  The token is
// returned in the response body and mirrored into the `jwt` cookie.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenClaims is what Protect needs back from a verified token.
type TokenClaims struct {
	UserID   uint64
	IssuedAt time.Time
}

// ResetToken is a password reset token.  Raw goes out by mail; only Hash is
// stored.
type ResetToken struct {
	Raw  string
	Hash string
	Exp  time.Time
}

// SignToken builds and signs an HS256 JWT for a user.  The subject is the
// user id in decimal, iat is now and exp is now+ttl.
func SignToken(secret string, userID uint64, ttl time.Duration, now time.Time) (SessionToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseToken verifies the signature and expiry of a token signed by
// SignToken.  Errors wrap the jwt package sentinels so callers can classify
// them with errors.Is.
func ParseToken(secret, token string, now time.Time) (TokenClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return TokenClaims{}, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return TokenClaims{}, errors.Join(jwt.ErrTokenInvalidClaims, errors.New("bad subject"))
	}
	var iat time.Time
	if claims.IssuedAt != nil {
		iat = claims.IssuedAt.Time
	}
	return TokenClaims{UserID: id, IssuedAt: iat}, nil
}

// NewResetToken returns 32 random bytes hex encoded, their SHA-256 and an
// expiry ttl after now.
func NewResetToken(ttl time.Duration, now time.Time) (ResetToken, error) {
	raw, err := randomHex(32)
	if err != nil {
		return ResetToken{}, err
	}
	return ResetToken{Raw: raw, Hash: HashToken(raw), Exp: now.UTC().Add(ttl)}, nil
}

// HashToken returns the SHA-256 hash of a raw token as a hex string.
// Storing only the hash means a leaked table cannot be used to reset
// passwords.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
