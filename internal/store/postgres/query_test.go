package postgres

import (
	"testing"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

func TestAppendListOpts(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args := appendListOpts("SELECT * FROM predictions WHERE market_id = $1", []any{"m1"}, 2, "timestamp",
		domain.ListOpts{Since: &since, Limit: 10, Offset: 20})

	want := "SELECT * FROM predictions WHERE market_id = $1 AND timestamp >= $2 ORDER BY timestamp DESC LIMIT $3 OFFSET $4"
	if query != want {
		t.Fatalf("got  %q\nwant %q", query, want)
	}
	if len(args) != 4 || args[0] != "m1" || args[2] != 10 || args[3] != 20 {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestAppendListOptsNoFilters(t *testing.T) {
	query, args := appendListOpts("SELECT 1 FROM audit_log WHERE 1=1", nil, 1, "created_at", domain.ListOpts{})
	if query != "SELECT 1 FROM audit_log WHERE 1=1 ORDER BY created_at DESC" || len(args) != 0 {
		t.Fatalf("unexpected %q %v", query, args)
	}
}

func TestDSN(t *testing.T) {
	got := DSN(ClientConfig{Host: "db", User: "u", Password: "p", Database: "oracles"})
	if got != "postgres://u:p@db:5432/oracles?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if DSN(ClientConfig{DSN: "postgres://x"}) != "postgres://x" {
		t.Fatalf("explicit dsn must win")
	}
}
