package secure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maks/internal/core"
)

// State is where a session stands in the lock lifecycle.
type State int

const (
	// StateUninitialized: no sentinel exists, the user never chose a PIN.
	StateUninitialized State = iota
	// StateSetup: the first PIN is being committed.
	StateSetup
	// StateLocked: a sentinel exists and no key is held.
	StateLocked
	// StateUnlocked: a verified key is held.
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSetup:
		return "setup"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrIncorrectSecret    = errors.New("incorrect secret")
	ErrNotInitialized     = errors.New("no secret has been set up")
	ErrAlreadyInitialized = errors.New("secret already set up")
)

const sentinelStatus = "OK"

// sentinel is the known plaintext sealed at setup and opened on unlock.
type sentinel struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// sentinelDocument is the stored form of the sealed sentinel.
type sentinelDocument struct {
	Content string `json:"content"`
}

// SentinelStore persists the per-user sentinel document.
// GetSentinel returns a nil document when none exists.
type SentinelStore interface {
	GetSentinel(ctx context.Context, userID string) ([]byte, error)
	PutSentinel(ctx context.Context, userID string, doc []byte) error
}

// Session carries one user's lock state and, when unlocked, the key.
// The key never leaves the session; callers seal and open through it.
type Session struct {
	mu     sync.RWMutex
	userID string
	state  State
	key    *Key
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Seal encrypts payload with the session key.
func (s *Session) Seal(payload any) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateUnlocked {
		return "", ErrLocked
	}
	return Encrypt(payload, s.key)
}

// Open decodes a stored record. Plaintext records are readable in any
// state; encrypted ones need the session to be unlocked.
func (s *Session) Open(rec Record, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := rec.(Encrypted); ok && s.state != StateUnlocked {
		return ErrLocked
	}
	return Decode(rec, s.key, out)
}

// Lock wipes the key. Sessions that were never set up stay uninitialized.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key.Wipe()
	s.key = nil
	if s.state == StateUnlocked {
		s.state = StateLocked
	}
}

// Vault drives sessions through setup, unlock and lock against the stored
// sentinel.
type Vault struct {
	store     SentinelStore
	kdf       *KeyDeriver
	minSecret int
	now       func() time.Time
}

func NewVault(store SentinelStore, kdf *KeyDeriver) *Vault {
	return &Vault{
		store:     store,
		kdf:       kdf,
		minSecret: MinSecretLength,
		now:       time.Now,
	}
}

// Open starts a session for userID in the state implied by the store.
func (v *Vault) Open(ctx context.Context, userID string) (*Session, error) {
	doc, err := v.store.GetSentinel(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read sentinel: %w", err)
	}
	s := &Session{userID: userID, state: StateUninitialized}
	if doc != nil {
		s.state = StateLocked
	}
	return s, nil
}

// Setup commits the first PIN: it seals a fresh sentinel under the derived
// key and leaves the session unlocked with that key.
func (v *Vault) Setup(ctx context.Context, s *Session, secret, confirm string) error {
	if err := core.ValidateSecret(secret, confirm, v.minSecret); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateUninitialized {
		return ErrAlreadyInitialized
	}

	existing, err := v.store.GetSentinel(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("read sentinel: %w", err)
	}
	if existing != nil {
		s.state = StateLocked
		return ErrAlreadyInitialized
	}

	s.state = StateSetup
	key := v.kdf.DeriveKey(secret)
	content, err := Encrypt(sentinel{Status: sentinelStatus, Timestamp: v.now().UnixMilli()}, key)
	if err != nil {
		key.Wipe()
		s.state = StateUninitialized
		return fmt.Errorf("seal sentinel: %w", err)
	}
	doc, err := marshalSentinel(content)
	if err != nil {
		key.Wipe()
		s.state = StateUninitialized
		return err
	}
	if err := v.store.PutSentinel(ctx, s.userID, doc); err != nil {
		key.Wipe()
		s.state = StateUninitialized
		return fmt.Errorf("write sentinel: %w", err)
	}

	s.key = key
	s.state = StateUnlocked
	slog.InfoContext(ctx, "Secret set up", "user_id", s.userID)
	return nil
}

// Unlock verifies secret by opening the sentinel with the derived key.
// On failure the session stays locked and the candidate key is wiped.
// An uninitialized session rereads the store first, since another client
// may have set the secret up since the session was opened.
func (v *Vault) Unlock(ctx context.Context, s *Session, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateUnlocked:
		return nil
	case StateSetup:
		return ErrNotInitialized
	}

	doc, err := v.store.GetSentinel(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("read sentinel: %w", err)
	}
	if doc == nil {
		s.state = StateUninitialized
		return ErrNotInitialized
	}
	s.state = StateLocked
	rec, err := ParseDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrongKeyOrCorrupt, err)
	}
	enc, ok := rec.(Encrypted)
	if !ok {
		return fmt.Errorf("%w: sentinel is not encrypted", ErrWrongKeyOrCorrupt)
	}

	candidate := v.kdf.DeriveKey(secret)
	var check sentinel
	if err := Decrypt(enc.Ciphertext, candidate, &check); err != nil || check.Status != sentinelStatus {
		candidate.Wipe()
		slog.WarnContext(ctx, "Unlock rejected", "user_id", s.userID)
		return ErrIncorrectSecret
	}

	s.key = candidate
	s.state = StateUnlocked
	slog.InfoContext(ctx, "Session unlocked", "user_id", s.userID)
	return nil
}

// Lock wipes the session key.
func (v *Vault) Lock(s *Session) {
	s.Lock()
}

func marshalSentinel(content string) ([]byte, error) {
	doc, err := json.Marshal(sentinelDocument{Content: content})
	if err != nil {
		return nil, fmt.Errorf("marshal sentinel: %w", err)
	}
	return doc, nil
}
