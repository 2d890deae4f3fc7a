package db

import (
	"testing"

	"github.com/nckexchange/exchange/internal/config"
)

func TestRunMigrateUnknownCommand(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "exchange",
		Password: "secret",
		Database: "exchange",
		SSLMode:  "disable",
	}
	err := RunMigrate(nil, cfg, nil, "invalid", nil)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunMigrateForceRequiresVersion(t *testing.T) {
	cfg := config.PostgresConfig{Host: "localhost", Port: 5432}
	err := RunMigrate(nil, cfg, nil, "force", nil)
	if err == nil {
		t.Fatal("expected error when force is missing its version argument")
	}
}
