package cache

import (
	"time"

	"github.com/google/uuid"

	"maks/internal/secure"
)

// Sessions maps opaque tokens to live vault sessions. A session that leaves
// the store for any reason is locked, which wipes its key.
type Sessions struct {
	lru *LRUCache[*secure.Session]
}

func NewSessions(maxSize int, ttl time.Duration) *Sessions {
	lru := NewLRUCache[*secure.Session](maxSize, ttl)
	lru.OnEvict(func(_ string, s *secure.Session) {
		s.Lock()
	})
	return &Sessions{lru: lru}
}

// Add stores s under a fresh random token and returns the token.
func (s *Sessions) Add(sess *secure.Session) string {
	token := uuid.NewString()
	s.lru.Set(token, sess)
	return token
}

// Get returns the session for token and slides its expiry.
func (s *Sessions) Get(token string) (*secure.Session, bool) {
	if token == "" {
		return nil, false
	}
	sess, ok := s.lru.Get(token)
	if ok {
		s.lru.Touch(token)
	}
	return sess, ok
}

// Remove drops token, locking its session.
func (s *Sessions) Remove(token string) {
	s.lru.Delete(token)
}

// CleanExpired locks and drops expired sessions.
func (s *Sessions) CleanExpired() int {
	return s.lru.CleanExpired()
}

// Close locks every session.
func (s *Sessions) Close() int {
	return s.lru.Purge()
}

func (s *Sessions) Size() int {
	return s.lru.Size()
}
