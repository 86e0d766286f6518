package backend

import (
	"context"
	"path/filepath"
	"testing"

	"maks/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sqlite"}); err == nil {
		t.Fatal("expected error for sqlite without a path")
	}
	if cfg, err := FromAppConfig(&config.Config{DataBackend: "Memory"}); err != nil || cfg.Kind != KindMemory {
		t.Fatalf("mixed case backend: %+v, %v", cfg, err)
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPURL: "amqp://h/", AMQPExchange: "e", AMQPQueue: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Kind != KindSQLite || cfg.SQLiteDBPath != "x.db" || cfg.AMQPQueue != "q" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Kind: KindMemory}, false},
		{"sqlite", Config{Kind: KindSQLite, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Kind: KindSQLite}, true},
		{"amqp without queue", Config{Kind: KindMemory, AMQPURL: "amqp://h/", AMQPExchange: "e"}, true},
		{"unknown", Config{Kind: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if got := Kinds(); len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Fatalf("Kinds() = %v", got)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Kind: KindMemory},
		{Kind: KindSQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "maks.db")},
	} {
		t.Run(string(cfg.Kind), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatal(err)
			}
			if res.Publisher != nil {
				t.Fatal("publisher without AMQP URL")
			}
			if err := res.Store.Ping(ctx); err != nil {
				t.Fatalf("Ping() = %v", err)
			}
			if _, err := res.Store.GetCorrection(ctx, "u"); err != nil {
				t.Fatalf("GetCorrection() = %v", err)
			}
			if err := res.Cleanup(); err != nil {
				t.Fatalf("Cleanup() = %v", err)
			}
		})
	}

	if _, err := f.CreateBackend(ctx, Config{Kind: "nope"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
