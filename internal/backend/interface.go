package backend

import (
	"context"

	"maks/internal/services"
	"maks/internal/storage"
)

type CleanupFunc func() error

// Tier is the data tier handed to the ledger and security services.
type Tier struct {
	Store storage.Store
	// Publisher is nil when no broker is configured.
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Tier, error)
}

type Config struct {
	Kind Kind

	SQLiteDBPath string

	// AMQP is optional for every kind.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Kind selects where ledger documents live.
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

func (k Kind) valid() bool {
	return k == KindSQLite || k == KindMemory
}

// Kinds lists the accepted DATA_BACKEND values.
func Kinds() []string {
	return []string{string(KindSQLite), string(KindMemory)}
}
