package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrWrongKeyOrCorrupt means a ciphertext did not authenticate under the
	// key or did not decode back into JSON.
	ErrWrongKeyOrCorrupt = errors.New("wrong key or corrupt data")
	// ErrLocked means the operation needs an unlocked session.
	ErrLocked = errors.New("session is locked")
)

// Encrypt serializes payload to JSON and seals it with AES-256-GCM.
// The result is base64 of nonce followed by ciphertext.
func Encrypt(payload any, key *Key) (string, error) {
	if !key.Usable() {
		return "", ErrLocked
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens ciphertext produced by Encrypt and unmarshals it into out.
func Decrypt(ciphertext string, key *Key, out any) error {
	if !key.Usable() {
		return ErrLocked
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return fmt.Errorf("%w: not base64", ErrWrongKeyOrCorrupt)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	ns := gcm.NonceSize()
	if len(data) < ns+gcm.Overhead() {
		return fmt.Errorf("%w: ciphertext too short", ErrWrongKeyOrCorrupt)
	}

	plaintext, err := gcm.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return ErrWrongKeyOrCorrupt
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: %v", ErrWrongKeyOrCorrupt, err)
	}
	return nil
}

func newGCM(key *Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.material)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}
