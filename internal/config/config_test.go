package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/oracles/internal/crypto"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if len(cfg.EnabledMembers()) != 3 {
		t.Fatalf("expected three default members, got %d", len(cfg.EnabledMembers()))
	}
	if cfg.Council.ResearchTimeout.Duration != 120*time.Second || cfg.Council.PredictTimeout.Duration != 30*time.Second {
		t.Fatalf("unexpected default timeouts")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := writeFile(t, "oracles.toml", `
mode = "server"

[council]
research_timeout = "90s"

[[council.members]]
id = "gpt"
display_name = "GPT"
provider = "openai"
model = "gpt-4.1-mini"
enabled = true

[search]
provider = "brave"
`)
	t.Setenv("ORACLES_SERVER_PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	t.Setenv("ORACLES_PROVIDERS_OPENAI_API_KEY", "sk-prefixed")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "server" || cfg.Server.Port != 9090 || cfg.Search.Provider != "brave" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Council.ResearchTimeout.Duration != 90*time.Second {
		t.Fatalf("expected research timeout override, got %s", cfg.Council.ResearchTimeout.Duration)
	}
	if cfg.Council.PredictTimeout.Duration != 30*time.Second {
		t.Fatalf("predict timeout default should survive, got %s", cfg.Council.PredictTimeout.Duration)
	}
	if len(cfg.Council.Members) != 1 || cfg.Council.Members[0].ModelID != "gpt-4.1-mini" {
		t.Fatalf("member list should replace defaults, got %+v", cfg.Council.Members)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-prefixed" {
		t.Fatalf("prefixed env var should win, got %q", cfg.Providers.OpenAI.APIKey)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ORACLES_COUNCIL_DISABLED_MEMBERS", "grok-3")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(cfg.EnabledMembers()); got != 2 {
		t.Fatalf("expected grok-3 disabled, got %d enabled", got)
	}
}

func TestLoadSecretsFile(t *testing.T) {
	sealed, err := crypto.Seal(crypto.Secrets{SecretAnthropicKey: "sk-ant", SecretSearchKey: "tvly"}, "pw")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	secretsPath := writeFile(t, "secrets.json", string(sealed))
	t.Setenv("ORACLES_SECRETS_ENCRYPTED_PATH", secretsPath)
	t.Setenv("ORACLES_SECRETS_PASSWORD", "pw")
	t.Setenv("ORACLES_SEARCH_API_KEY", "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-ant" {
		t.Fatalf("expected key from secrets file, got %q", cfg.Providers.Anthropic.APIKey)
	}
	if cfg.Search.APIKey != "from-env" {
		t.Fatalf("env must take precedence over secrets file, got %q", cfg.Search.APIKey)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Search.Provider = "bing"
	cfg.Council.Members = append(cfg.Council.Members, cfg.Council.Members[0])
	cfg.Scheduler.ExportEnabled = true
	cfg.Importer.Enabled = true
	cfg.Importer.GammaURL = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"unknown mode", "search: unknown provider", "duplicate member id", "export requires s3.enabled", "importer: gamma_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.OpenAI.APIKey = "sk-secret"
	cfg.Postgres.Password = "pw"

	red := RedactedConfig(&cfg)
	if red.Providers.OpenAI.APIKey != "***" || red.Postgres.Password != "***" {
		t.Fatalf("secrets not redacted: %+v", red.Providers)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-secret" {
		t.Fatalf("input config mutated")
	}
	if red.Providers.Anthropic.APIKey != "" {
		t.Fatalf("empty values must stay empty")
	}
}
