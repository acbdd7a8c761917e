// Copyright 2025 Basis Protocol
//
// KeyManager handles generation, loading, and file-based storage of the
// tracker's own signing key, in the same load-or-generate shape the
// validator's BLS key manager used.

package schnorr

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// KeyManager owns a single signing key backed by an optional file on disk.
type KeyManager struct {
	keyPath    string
	privateKey *PrivateKey
	publicKey  *PublicKey
}

// NewKeyManager creates a key manager rooted at keyPath. An empty keyPath
// means the key is never persisted.
func NewKeyManager(keyPath string) *KeyManager {
	return &KeyManager{keyPath: keyPath}
}

// NewKeyManagerFromKey wraps an already-loaded key pair with no backing
// file. Useful when the private key arrives from somewhere other than
// local disk (an HSM, a test fixture), and for constructing a manager
// around a key generated elsewhere without a round trip through disk.
func NewKeyManagerFromKey(sk *PrivateKey) *KeyManager {
	return &KeyManager{privateKey: sk, publicKey: sk.PublicKey()}
}

// LoadOrGenerate loads the key at keyPath if it exists, otherwise generates
// a fresh one and (if keyPath is set) saves it.
func (km *KeyManager) LoadOrGenerate() error {
	if km.keyPath != "" {
		if _, err := os.Stat(km.keyPath); err == nil {
			return km.Load()
		}
	}
	return km.Generate()
}

// Load reads the hex-encoded private key from keyPath.
func (km *KeyManager) Load() error {
	if km.keyPath == "" {
		return fmt.Errorf("schnorr: no key path specified")
	}
	data, err := os.ReadFile(km.keyPath)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}
	raw, err := hex.DecodeString(string(data))
	if err != nil {
		return fmt.Errorf("decode key hex: %w", err)
	}
	sk, err := PrivateKeyFromBytes(raw)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	km.privateKey = sk
	km.publicKey = sk.PublicKey()
	return nil
}

// Generate samples a fresh key pair and, if keyPath is set, persists it.
func (km *KeyManager) Generate() error {
	sk, err := GenerateKey()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}
	km.privateKey = sk
	km.publicKey = sk.PublicKey()
	if km.keyPath != "" {
		return km.Save()
	}
	return nil
}

// Save persists the private key to keyPath, hex-encoded, with owner-only
// permissions.
func (km *KeyManager) Save() error {
	if km.keyPath == "" {
		return fmt.Errorf("schnorr: no key path specified")
	}
	if km.privateKey == nil {
		return fmt.Errorf("schnorr: no private key to save")
	}
	if dir := filepath.Dir(km.keyPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
	}
	keyHex := hex.EncodeToString(km.privateKey.Bytes())
	return os.WriteFile(km.keyPath, []byte(keyHex), 0o600)
}

// PrivateKey returns the loaded/generated private key, or nil.
func (km *KeyManager) PrivateKey() *PrivateKey { return km.privateKey }

// PublicKey returns the loaded/generated public key, or nil.
func (km *KeyManager) PublicKey() *PublicKey { return km.publicKey }

// Sign signs msg with the managed key.
func (km *KeyManager) Sign(msg []byte) ([]byte, error) {
	if km.privateKey == nil {
		return nil, fmt.Errorf("schnorr: no private key loaded")
	}
	return Sign(km.privateKey, msg)
}
