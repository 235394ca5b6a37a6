package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinHS256SecretLength is the shortest shared secret we accept (256 bits).
const MinHS256SecretLength = 32

// HS256Signer signs JWTs with a shared secret.
type HS256Signer struct {
	kid    string
	secret []byte
}

func newHS256Signer(kid string, secret []byte) (*HS256Signer, error) {
	s := &HS256Signer{kid: kid, secret: append([]byte(nil), secret...)}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }
func (s *HS256Signer) KID() string { return s.kid }

func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.secret)
}

func (s *HS256Signer) Validate() error {
	if len(s.secret) < MinHS256SecretLength {
		return fmt.Errorf("jwtx: HS256 secret must be at least %d bytes, got %d", MinHS256SecretLength, len(s.secret))
	}
	return nil
}
