// Package secure derives encryption keys from the user's PIN, seals ledger
// records with AES-256-GCM and tracks whether a session holds a usable key.
package secure

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// DefaultIterations is the PBKDF2 work factor.
	DefaultIterations = 100_000
	// MinSecretLength is the shortest PIN accepted at setup.
	MinSecretLength = 4
)

// Key is derived key material. Call Wipe when it is no longer needed.
type Key struct {
	material []byte
}

// Wipe zeroes the key material in place.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	for i := range k.material {
		k.material[i] = 0
	}
	k.material = nil
}

// Usable reports whether the key still holds material.
func (k *Key) Usable() bool {
	return k != nil && len(k.material) == KeySize
}

// Equal compares two keys in constant time.
func (k *Key) Equal(o *Key) bool {
	if !k.Usable() || !o.Usable() {
		return false
	}
	return subtle.ConstantTimeCompare(k.material, o.material) == 1
}

// KeyDeriver turns a PIN into a key. The same secret, salt and iteration
// count always yield the same key, so the PIN itself is never stored.
type KeyDeriver struct {
	salt       []byte
	iterations int
}

func NewKeyDeriver(salt string, iterations int) *KeyDeriver {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &KeyDeriver{salt: []byte(salt), iterations: iterations}
}

// DeriveKey runs PBKDF2-HMAC-SHA256 over secret.
func (d *KeyDeriver) DeriveKey(secret string) *Key {
	return &Key{material: pbkdf2.Key([]byte(secret), d.salt, d.iterations, KeySize, sha256.New)}
}
