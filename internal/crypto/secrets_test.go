package crypto

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	in := Secrets{"openai_api_key": "sk-test", "tavily_api_key": "tvly-test"}

	data, err := Seal(in, "hunter2")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := OpenFile(path, "hunter2")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out["openai_api_key"] != "sk-test" || out["tavily_api_key"] != "tvly-test" {
		t.Fatalf("unexpected secrets %v", out)
	}
}

func TestOpenRejectsWrongPassword(t *testing.T) {
	data, err := Seal(Secrets{"k": "v"}, "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(data, "wrong"); err == nil {
		t.Fatalf("expected decryption failure")
	}
	if _, err := Open(data, ""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected empty password error, got %v", err)
	}
}

func TestOpenRejectsUnknownVersion(t *testing.T) {
	if _, err := Open([]byte(`{"version":2}`), "pw"); err == nil {
		t.Fatalf("expected version error")
	}
}
