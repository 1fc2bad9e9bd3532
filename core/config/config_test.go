package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: "polling"}}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Callbacks.Separator != "/" || cfg.Callbacks.MaxDataBytes != 64 {
		t.Fatalf("callbacks = %+v", cfg.Callbacks)
	}
	if cfg.Database.Enabled || cfg.Database.Port != "" {
		t.Fatalf("disabled database got defaults: %+v", cfg.Database)
	}
}

func TestNormalizeErrors(t *testing.T) {
	cases := map[string]Config{
		"token":      {},
		"run mode":   {Telegram: TelegramConfig{Token: "t", RunMode: "push"}},
		"webhook":    {Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}},
		"separator":  {Telegram: TelegramConfig{Token: "t"}, Callbacks: CallbacksConfig{Separator: "::"}},
		"space":      {Telegram: TelegramConfig{Token: "t"}, Callbacks: CallbacksConfig{Separator: " "}},
		"data bytes": {Telegram: TelegramConfig{Token: "t"}, Callbacks: CallbacksConfig{MaxDataBytes: 65}},
		"exclude":    {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}}},
		"database":   {Telegram: TelegramConfig{Token: "t"}, Database: DatabaseConfig{Enabled: true}},
	}
	for name, cfg := range cases {
		if err := Normalize(&cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := Normalize(nil); err == nil {
		t.Fatal("nil config accepted")
	}
}

func TestLoadWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
telegram:
  token: from-file
  run_mode: longpoll
callbacks:
  separator: ":"
database:
  enabled: true
  host: localhost
  name: kilobot
metrics:
  listen: 127.0.0.1:9100
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Callbacks.Separator != ":" {
		t.Fatalf("separator = %q", cfg.Callbacks.Separator)
	}
	if cfg.Database.Port != "5432" || cfg.Database.MigrationsDir != "migrations" {
		t.Fatalf("database defaults = %+v", cfg.Database)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9100" {
		t.Fatalf("metrics listen = %q", cfg.Metrics.Listen)
	}
}

func TestNormalizeReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{RunMode: "webhook"},
		Callbacks: CallbacksConfig{MaxDataBytes: -1},
	}
	err := Normalize(cfg)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	for _, want := range []string{"telegram.token", "webhook.url", "webhook.port", "max_data_bytes"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestNormalizeLowercasesExclusions(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback ", "", "MESSAGE"}},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := strings.Join(cfg.RateLimit.ExcludeUpdates, ","); got != "callback,message" {
		t.Fatalf("exclusions = %q", got)
	}
}
