package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "GitFolio"

	keyringProbeItem = "availability-probe"
)

// KeyringStore routes credential keys to the OS keychain and everything else
// to the wrapped store. When the keychain is unavailable (headless systems,
// CI) credentials fall back to the wrapped store.
//
// Secrets land in:
//   - macOS: Keychain Access.app → "GitFolio" → "githubToken"
//   - Windows: Credential Manager → "GitFolio"
//   - Linux: Secret Service (requires libsecret)
type KeyringStore struct {
	base      Store
	available bool
	logger    *slog.Logger
}

// NewKeyringStore wraps base, probing the keychain once
func NewKeyringStore(base Store) *KeyringStore {
	k := &KeyringStore{
		base:   base,
		logger: slog.Default().With("component", "keyring"),
	}
	k.available = k.probe()
	return k
}

// probe checks if OS keychain is available. A not-found answer means the
// keychain responded.
func (k *KeyringStore) probe() bool {
	_, err := keyring.Get(KeyringService, keyringProbeItem)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	k.logger.Debug("keychain not available", "error", err)
	return false
}

// KeychainAvailable reports whether secrets go to the OS keychain
func (k *KeyringStore) KeychainAvailable() bool {
	return k.available
}

func (k *KeyringStore) Get(ctx context.Context, key string) ([]byte, error) {
	if !IsSecret(key) || !k.available {
		return k.base.Get(ctx, key)
	}

	secret, err := keyring.Get(KeyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		// written before the keychain was reachable
		return k.base.Get(ctx, key)
	}
	if err != nil {
		k.logger.Error("failed to read from keychain", "key", key, "error", err)
		return nil, fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return []byte(secret), nil
}

func (k *KeyringStore) Set(ctx context.Context, key string, value []byte) error {
	if !IsSecret(key) || !k.available {
		return k.base.Set(ctx, key, value)
	}

	if err := keyring.Set(KeyringService, key, string(value)); err != nil {
		k.logger.Error("failed to save to keychain", "key", key, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	k.logger.Info("credential saved to keychain", "service", KeyringService, "key", key)

	// drop any plaintext copy
	return k.base.Delete(ctx, key)
}

func (k *KeyringStore) Delete(ctx context.Context, key string) error {
	if IsSecret(key) && k.available {
		err := keyring.Delete(KeyringService, key)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete from OS keychain: %w", err)
		}
	}
	return k.base.Delete(ctx, key)
}

func (k *KeyringStore) Close() error {
	return k.base.Close()
}

// MaskSecret masks a credential for display.
// Shows first 7 chars and last 4 chars: "ghp_abc...wxyz"
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", secret[:7], secret[len(secret)-4:])
}
