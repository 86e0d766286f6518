package services

import (
	"context"
	"log/slog"

	"maks/internal/amqp"
	"maks/internal/log"
	"maks/internal/secure"
)

// SecurityService runs the PIN lifecycle of a session and announces setup.
type SecurityService struct {
	vault     *secure.Vault
	publisher EventPublisher
	logger    *log.Logger
}

func NewSecurityService(vault *secure.Vault, publisher EventPublisher) *SecurityService {
	return &SecurityService{
		vault:     vault,
		publisher: publisher,
		logger:    log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentVault}),
	}
}

// Open starts a session for userID. Store failures are write-path errors
// here: without knowing whether a sentinel exists the session cannot start.
func (s *SecurityService) Open(ctx context.Context, userID string) (*secure.Session, error) {
	sess, err := s.vault.Open(ctx, userID)
	if err != nil {
		return nil, storageErr("open session", err)
	}
	return sess, nil
}

func (s *SecurityService) Setup(ctx context.Context, sess *secure.Session, secret, confirm string) error {
	if err := s.vault.Setup(ctx, sess, secret, confirm); err != nil {
		return err
	}
	if s.publisher != nil {
		ev := amqp.NewLedgerEvent(sess.UserID(), amqp.OpSetup, amqp.RecordSecurity, "")
		if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish setup event", log.FieldUserID, sess.UserID(), log.FieldError, err)
		}
	}
	return nil
}

func (s *SecurityService) Unlock(ctx context.Context, sess *secure.Session, secret string) error {
	err := s.vault.Unlock(ctx, sess, secret)
	s.logger.InfoContext(ctx, "Unlock attempt",
		log.FieldUserID, sess.UserID(),
		log.FieldState, sess.State().String(),
		log.FieldSuccess, err == nil)
	return err
}

func (s *SecurityService) Lock(sess *secure.Session) {
	s.vault.Lock(sess)
}
