package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

const (
	DefaultMinPasswordLength = 8
	DefaultMaxPasswordLength = 128
)

// DefaultDenyList holds passwords rejected regardless of composition.
var DefaultDenyList = []string{"password", "password123", "123456", "qwerty", "admin"}

// PasswordPolicy owns password hashing and the strength rules applied on
// signup, change and reset.
type PasswordPolicy struct {
	Hasher *cryptox.Hasher

	MinLength      int
	MaxLength      int
	RequireSpecial bool
	DenyList       []string
}

// NewPasswordPolicy returns the default policy backed by h.
func NewPasswordPolicy(h *cryptox.Hasher) *PasswordPolicy {
	return &PasswordPolicy{
		Hasher:    h,
		MinLength: DefaultMinPasswordLength,
		MaxLength: DefaultMaxPasswordLength,
		DenyList:  DefaultDenyList,
	}
}

func (p *PasswordPolicy) Hash(password string) (string, error) {
	return p.Hasher.Hash(password)
}

// Verify reports whether password matches hash. A malformed hash is
// treated as a mismatch.
func (p *PasswordPolicy) Verify(ctx context.Context, password, hash string) bool {
	err := p.Hasher.Verify(password, hash)
	if err != nil && errors.Is(err, cryptox.ErrMalformedHash) {
		slogx.FromContext(ctx).Warn("stored password hash is malformed", slog.Any("error", err))
	}
	return err == nil
}

// ValidateStrength checks every rule and returns all violations.
func (p *PasswordPolicy) ValidateStrength(password string) (bool, []string) {
	var reasons []string

	n := len([]rune(password))
	if n < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("Password must be at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		reasons = append(reasons, fmt.Sprintf("Password must be at most %d characters", p.MaxLength))
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r):
			special = true
		}
	}
	if !upper {
		reasons = append(reasons, "Password must contain at least one uppercase letter")
	}
	if !lower {
		reasons = append(reasons, "Password must contain at least one lowercase letter")
	}
	if !digit {
		reasons = append(reasons, "Password must contain at least one digit")
	}
	if p.RequireSpecial && !special {
		reasons = append(reasons, "Password must contain at least one special character")
	}

	for _, denied := range p.DenyList {
		if strings.EqualFold(password, denied) {
			reasons = append(reasons, "Password is too common")
			break
		}
	}

	return len(reasons) == 0, reasons
}

// GenerateRandom returns a crypto-random password of the given length.
func (p *PasswordPolicy) GenerateRandom(length int) (string, error) {
	return cryptox.GeneratePassword(length)
}

// checkStrength wraps ValidateStrength into a WEAK_PASSWORD error.
func (p *PasswordPolicy) checkStrength(password string) error {
	if ok, reasons := p.ValidateStrength(password); !ok {
		return &domain.Error{
			Code:    domain.CodeWeakPassword,
			Message: domain.ErrWeakPassword.Message,
			Reasons: reasons,
		}
	}
	return nil
}
