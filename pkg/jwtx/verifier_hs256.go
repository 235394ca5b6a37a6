package jwtx

import (
	"github.com/golang-jwt/jwt/v5"
)

// HS256Verifier validates JWTs signed with a shared secret.
type HS256Verifier struct {
	secret []byte
	opts   VerifyOptions
}

func NewVerifierHS256(secret []byte, opts VerifyOptions) *HS256Verifier {
	return &HS256Verifier{secret: append([]byte(nil), secret...), opts: opts}
}

func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	return parse(tokenStr, jwt.SigningMethodHS256.Alg(), func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, v.opts)
}
