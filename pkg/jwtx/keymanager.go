package jwtx

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
)

// Supported JWT signing algorithms
const (
	AlgorithmHS256 = "HS256"
	AlgorithmEdDSA = "EdDSA"
)

// KeyManager wires key material to a signer set, a verifier and (for
// asymmetric algorithms) the published KeySet.
type KeyManager struct {
	Verifier  Verifier
	KeySet    *KeySet
	algorithm string
	signers   []Signer
}

// KeyManagerOptions configures the KeyManager.
type KeyManagerOptions struct {
	// Algorithm is "HS256" or "EdDSA".
	Algorithm string

	// Issuer is set on issued tokens and enforced on verification.
	Issuer string

	// Secret is the HS256 shared secret. Ignored for EdDSA.
	Secret []byte

	// NumKeys is how many ephemeral EdDSA keys to generate. Defaults to 3,
	// capped at 10.
	NumKeys int

	// Leeway tolerates clock skew on exp/nbf.
	Leeway time.Duration

	// Now overrides the verification clock.
	Now func() time.Time
}

// NewKeyManager creates a KeyManager. HS256 uses the configured secret;
// EdDSA keys are generated on the fly and only exist in memory, so tokens
// become invalid when the service restarts.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	verifyOpts := VerifyOptions{Issuer: opts.Issuer, Leeway: opts.Leeway, Now: opts.Now}
	keyset := NewKeySet()

	switch opts.Algorithm {
	case AlgorithmHS256:
		kid := "hs256-" + cryptox.FingerprintToken(string(opts.Secret))[:8]
		signer, err := NewSignerHS256(kid, opts.Secret)
		if err != nil {
			return nil, err
		}
		return &KeyManager{
			Verifier:  NewVerifierHS256(opts.Secret, verifyOpts),
			KeySet:    keyset,
			algorithm: opts.Algorithm,
			signers:   []Signer{signer},
		}, nil

	case AlgorithmEdDSA:
		numKeys := opts.NumKeys
		if numKeys <= 0 {
			numKeys = 3
		}
		if numKeys > 10 {
			numKeys = 10
		}

		signers := make([]Signer, 0, numKeys)
		for i := range numKeys {
			signer, err := generateEdDSASigner()
			if err != nil {
				return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
			}
			if err := keyset.AddSigner(signer); err != nil {
				return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
			}
			signers = append(signers, signer)
		}
		return &KeyManager{
			Verifier:  NewVerifierEdDSA(keyset, verifyOpts),
			KeySet:    keyset,
			algorithm: opts.Algorithm,
			signers:   signers,
		}, nil
	}

	return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: HS256, EdDSA)", opts.Algorithm)
}

func generateEdDSASigner() (PublicSigner, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key ID: %w", err)
	}
	pemBytes, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, fmt.Errorf("failed to generate EdDSA key: %w", err)
	}
	return NewSignerEdDSA("tenantauth-"+token, pemBytes)
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// Publishes reports whether verification keys can be published as a JWKS.
func (km *KeyManager) Publishes() bool {
	return km.algorithm == AlgorithmEdDSA
}

// GetSigner returns a randomly selected signer from the available keys.
func (km *KeyManager) GetSigner() Signer {
	if len(km.signers) == 1 {
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))]
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	return len(km.signers)
}
