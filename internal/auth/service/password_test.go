package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

func newTestPolicy(t *testing.T, opts ...cryptox.HasherOption) *PasswordPolicy {
	t.Helper()
	opts = append([]cryptox.HasherOption{cryptox.WithBcryptCost(cryptox.MinBcryptCost)}, opts...)
	h, err := cryptox.NewHasher(opts...)
	require.NoError(t, err)
	return NewPasswordPolicy(h)
}

func TestPasswordPolicy_ValidateStrength(t *testing.T) {
	t.Parallel()
	p := newTestPolicy(t)

	tests := []struct {
		name     string
		password string
		reasons  int
	}{
		{"valid", "Abcd1234", 0},
		{"too short", "Abc1234", 1},
		{"too long", "Aa1" + strings.Repeat("x", 126), 1},
		{"exactly max", "Aa1" + strings.Repeat("x", 125), 0},
		{"no uppercase", "abcd1234", 1},
		{"no lowercase", "ABCD1234", 1},
		{"no digit", "Abcdefgh", 1},
		{"only lowercase", "abcdefgh", 2},
		{"empty", "", 4},
		{"deny-listed ignoring case", "Password123", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, reasons := p.ValidateStrength(tc.password)
			require.Len(t, reasons, tc.reasons, "%v", reasons)
			require.Equal(t, tc.reasons == 0, ok)
		})
	}

	t.Run("special characters can be required", func(t *testing.T) {
		strict := *p
		strict.RequireSpecial = true
		ok, reasons := strict.ValidateStrength("Abcd1234")
		require.False(t, ok)
		require.Equal(t, []string{"Password must contain at least one special character"}, reasons)

		ok, _ = strict.ValidateStrength("Abcd123!")
		require.True(t, ok)
	})
}

func TestPasswordPolicy_HashVerify(t *testing.T) {
	t.Parallel()

	for _, alg := range []cryptox.Algorithm{cryptox.AlgorithmBcrypt, cryptox.AlgorithmArgon2id} {
		t.Run(string(alg), func(t *testing.T) {
			p := newTestPolicy(t, cryptox.WithAlgorithm(alg), cryptox.WithPepper("pepper"))

			h1, err := p.Hash("Abcd1234")
			require.NoError(t, err)
			h2, err := p.Hash("Abcd1234")
			require.NoError(t, err)

			require.NotEqual(t, "Abcd1234", h1)
			require.NotEqual(t, h1, h2, "hashes must be salted")
			require.True(t, p.Verify(context.Background(), "Abcd1234", h1))
			require.True(t, p.Verify(context.Background(), "Abcd1234", h2))
			require.False(t, p.Verify(context.Background(), "Abcd1235", h1))
		})
	}

	t.Run("malformed hash never verifies", func(t *testing.T) {
		p := newTestPolicy(t)
		require.False(t, p.Verify(context.Background(), "Abcd1234", ""))
		require.False(t, p.Verify(context.Background(), "Abcd1234", "$argon2id$broken"))
		require.False(t, p.Verify(context.Background(), "Abcd1234", "$2b$10$short"))
	})

	t.Run("malformed hash warns on the request logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "req-42")
		ctx := slogx.WithContext(context.Background(), logger)

		p := newTestPolicy(t)
		require.False(t, p.Verify(ctx, "Abcd1234", "$argon2id$broken"))

		out := buf.String()
		require.Contains(t, out, "level=WARN")
		require.Contains(t, out, "stored password hash is malformed")
		require.Contains(t, out, "request_id=req-42")
	})

	t.Run("verifies hashes from the other encoder", func(t *testing.T) {
		argon := newTestPolicy(t, cryptox.WithAlgorithm(cryptox.AlgorithmArgon2id), cryptox.WithPepper("p"))
		bcryptPolicy := newTestPolicy(t, cryptox.WithPepper("p"))

		hash, err := argon.Hash("Abcd1234")
		require.NoError(t, err)
		require.True(t, bcryptPolicy.Verify(context.Background(), "Abcd1234", hash))
	})
}

func TestPasswordPolicy_GenerateRandom(t *testing.T) {
	t.Parallel()
	p := newTestPolicy(t)

	a, err := p.GenerateRandom(32)
	require.NoError(t, err)
	b, err := p.GenerateRandom(32)
	require.NoError(t, err)

	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
	for _, r := range a {
		require.True(t, strings.ContainsRune(cryptox.PasswordCharset, r))
	}

	_, err = p.GenerateRandom(0)
	require.Error(t, err)
}
