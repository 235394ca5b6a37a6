package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm selects the password encoder used for new hashes. Verification
// always dispatches on the prefix of the stored hash.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Configuration for Argon2id hashing.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated hash
	saltLength  = 16        // Length of the salt
)

const (
	DefaultBcryptCost = 12
	MinBcryptCost     = 10
)

var (
	ErrPasswordMismatch = errors.New("password does not match")
	ErrMalformedHash    = errors.New("invalid hash format")
)

// Hasher hashes and verifies passwords with a server-side pepper.
type Hasher struct {
	alg    Algorithm
	cost   int
	pepper string
}

type HasherOption func(*Hasher)

func WithAlgorithm(alg Algorithm) HasherOption { return func(h *Hasher) { h.alg = alg } }
func WithBcryptCost(cost int) HasherOption     { return func(h *Hasher) { h.cost = cost } }
func WithPepper(pepper string) HasherOption    { return func(h *Hasher) { h.pepper = pepper } }

func NewHasher(opts ...HasherOption) (*Hasher, error) {
	h := &Hasher{alg: AlgorithmBcrypt, cost: DefaultBcryptCost}
	for _, opt := range opts {
		opt(h)
	}

	switch h.alg {
	case AlgorithmBcrypt:
		if h.cost < MinBcryptCost || h.cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", MinBcryptCost, bcrypt.MaxCost, h.cost)
		}
	case AlgorithmArgon2id:
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", h.alg)
	}
	return h, nil
}

func (h *Hasher) Algorithm() Algorithm { return h.alg }

// Hash returns a salted, self-describing encoded hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if h.alg == AlgorithmArgon2id {
		return h.hashArgon2id(password)
	}
	out, err := bcrypt.GenerateFromPassword(h.bcryptInput(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify compares password against an encoded hash produced by either
// encoder. It returns ErrPasswordMismatch on a wrong password and
// ErrMalformedHash when the hash cannot be parsed.
func (h *Hasher) Verify(password, encodedHash string) error {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return h.verifyArgon2id(password, encodedHash)
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), h.bcryptInput(password))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return ErrPasswordMismatch
		default:
			return fmt.Errorf("%w: %v", ErrMalformedHash, err)
		}
	}
	return fmt.Errorf("%w: unknown algorithm", ErrMalformedHash)
}

// bcryptInput pre-hashes the peppered password so inputs longer than bcrypt's
// 72 byte limit are not truncated.
func (h *Hasher) bcryptInput(password string) []byte {
	mac := hmac.New(sha256.New, []byte(h.pepper))
	mac.Write([]byte(password))
	return []byte(base64.RawStdEncoding.EncodeToString(mac.Sum(nil)))
}

func (h *Hasher) hashArgon2id(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password+h.pepper), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (h *Hasher) verifyArgon2id(password, encodedHash string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return fmt.Errorf("%w: expected 6 parts", ErrMalformedHash)
	}
	if parts[2] != "v=19" {
		return fmt.Errorf("%w: wrong version", ErrMalformedHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: failed to parse parameters: %v", ErrMalformedHash, err)
	}
	if iters == 0 || par == 0 {
		return fmt.Errorf("%w: zero parameters", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: failed to decode salt: %v", ErrMalformedHash, err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return fmt.Errorf("%w: failed to decode hash", ErrMalformedHash)
	}

	computed := argon2.IDKey(
		[]byte(password+h.pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 - bounded by the decoded hash length
	)
	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// PasswordCharset is the alphabet used for generated passwords.
const PasswordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// GeneratePassword returns a random password of the given length drawn from
// PasswordCharset.
func GeneratePassword(length int) (string, error) {
	return RandomString(length, PasswordCharset)
}
