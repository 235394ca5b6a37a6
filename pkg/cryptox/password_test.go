package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T, alg Algorithm, pepper string) *Hasher {
	t.Helper()
	h, err := NewHasher(WithAlgorithm(alg), WithBcryptCost(MinBcryptCost), WithPepper(pepper))
	require.NoError(t, err)
	return h
}

func TestNewHasher_Validation(t *testing.T) {
	_, err := NewHasher(WithBcryptCost(MinBcryptCost - 1))
	require.Error(t, err)

	_, err = NewHasher(WithAlgorithm("md5"))
	require.Error(t, err)

	h, err := NewHasher()
	require.NoError(t, err)
	require.Equal(t, AlgorithmBcrypt, h.Algorithm())
}

func TestHasher_RoundTrip(t *testing.T) {
	passwords := []struct {
		name     string
		password string
	}{
		{"simple password", "Password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"longer than bcrypt limit", strings.Repeat("Ab1", 40)},
		{"unicode password", "пароль🔒密码Aa1"},
		{"whitespace password", "   Spaces1   "},
	}

	for _, alg := range []Algorithm{AlgorithmBcrypt, AlgorithmArgon2id} {
		h := newTestHasher(t, alg, "pepper")
		for _, tt := range passwords {
			t.Run(string(alg)+"/"+tt.name, func(t *testing.T) {
				hash, err := h.Hash(tt.password)
				require.NoError(t, err)
				require.NotContains(t, hash, tt.password)

				require.NoError(t, h.Verify(tt.password, hash))
				require.ErrorIs(t, h.Verify(tt.password+"x", hash), ErrPasswordMismatch)
			})
		}
	}
}

func TestHasher_Formats(t *testing.T) {
	bh := newTestHasher(t, AlgorithmBcrypt, "")
	hash, err := bh.Hash("Password123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$2a$"))
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, MinBcryptCost, cost)

	ah := newTestHasher(t, AlgorithmArgon2id, "")
	hash, err = ah.Hash("Password123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
	require.Len(t, strings.Split(hash, "$"), 6)
}

func TestHasher_UniqueSalts(t *testing.T) {
	h := newTestHasher(t, AlgorithmBcrypt, "")

	hash1, err := h.Hash("samepassword")
	require.NoError(t, err)
	hash2, err := h.Hash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
	require.NoError(t, h.Verify("samepassword", hash1))
	require.NoError(t, h.Verify("samepassword", hash2))
}

func TestHasher_VerifiesEitherEncoding(t *testing.T) {
	// A deployment switching encoders must still accept existing hashes.
	bh := newTestHasher(t, AlgorithmBcrypt, "pepper")
	ah := newTestHasher(t, AlgorithmArgon2id, "pepper")

	legacy, err := ah.Hash("Password123")
	require.NoError(t, err)
	require.NoError(t, bh.Verify("Password123", legacy))

	modern, err := bh.Hash("Password123")
	require.NoError(t, err)
	require.NoError(t, ah.Verify("Password123", modern))
}

func TestHasher_PepperMatters(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmBcrypt, AlgorithmArgon2id} {
		t.Run(string(alg), func(t *testing.T) {
			a := newTestHasher(t, alg, "pepper-a")
			b := newTestHasher(t, alg, "pepper-b")

			hash, err := a.Hash("Password123")
			require.NoError(t, err)
			require.ErrorIs(t, b.Verify("Password123", hash), ErrPasswordMismatch)
		})
	}
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := newTestHasher(t, AlgorithmBcrypt, "")

	tests := []struct {
		name        string
		invalidHash string
	}{
		{"empty hash", ""},
		{"plain text", "Password123"},
		{"unknown algorithm", "$md5$abc"},
		{"truncated bcrypt", "$2a$10$short"},
		{"missing argon parts", "$argon2id$v=19$m=19456"},
		{"malformed argon parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA"},
		{"invalid base64 hash", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!"},
		{"wrong argon version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"zero argon iterations", "$argon2id$v=19$m=19456,t=0,p=1$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				err := h.Verify("Password123", tt.invalidHash)
				require.ErrorIs(t, err, ErrMalformedHash)
			})
		})
	}
}

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{8, 16, 64} {
		password, err := GeneratePassword(length)
		require.NoError(t, err)
		require.Len(t, password, length)
		for _, c := range password {
			require.True(t, strings.ContainsRune(PasswordCharset, c), "unexpected character %q", c)
		}
	}

	_, err := GeneratePassword(0)
	require.Error(t, err)
}

func TestGeneratePassword_Uniqueness(t *testing.T) {
	const count = 100
	passwords := make(map[string]bool, count)

	for range count {
		password, err := GeneratePassword(16)
		require.NoError(t, err)
		require.NotContains(t, passwords, password, "duplicate password generated")
		passwords[password] = true
	}
}
