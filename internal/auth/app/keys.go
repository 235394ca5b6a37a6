package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// InitAuthKeys creates the KeyManager for the configured algorithm.
//
// Supported algorithms:
//   - "HS256": tokens are signed with AUTH_SIGNING_SECRET. Nothing is
//     published; every verifier needs the same secret.
//   - "EdDSA": AUTH_NUM_KEYS Ed25519 keys are generated on startup and
//     published on /.well-known/jwks.json. Keys only live in memory, so
//     all existing tokens become invalid when the service restarts.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	keyManager, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		Secret:    []byte(cfg.SigningSecret),
		NumKeys:   cfg.NumKeys,
		Leeway:    cfg.ClockSkew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s key manager: %w", cfg.Algorithm, err)
	}

	logger.Info("signing keys ready",
		"algorithm", keyManager.Algorithm(),
		"num_keys", keyManager.NumSigners(),
		"issuer", cfg.Issuer,
		"published", keyManager.Publishes(),
	)

	if keyManager.Publishes() {
		logger.Warn("signing keys are ephemeral; tokens issued before this start are now invalid")
	}

	return keyManager, nil
}
