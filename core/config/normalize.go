package config

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid matches every validation failure returned by Normalize.
var ErrInvalid = errors.New("config: invalid")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Normalize validates cfg and fills defaults in place. It reports every
// problem found, joined.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return invalid("nil config")
	}
	telegramErr := cfg.Telegram.normalize()
	return errors.Join(
		telegramErr,
		cfg.Webhook.check(cfg.Telegram.RunMode),
		cfg.RateLimit.normalize(),
		cfg.Callbacks.normalize(),
		cfg.Database.normalize(),
	)
}

func (t *TelegramConfig) normalize() error {
	var errs []error
	if strings.TrimSpace(t.Token) == "" {
		errs = append(errs, invalid("telegram.token is required"))
	}
	switch mode := strings.ToLower(strings.TrimSpace(t.RunMode)); mode {
	case "", "polling", RunModeLongpoll:
		t.RunMode = RunModeLongpoll
	case RunModeWebhook:
		t.RunMode = mode
	default:
		errs = append(errs, invalid("telegram.run_mode %q; allowed: webhook, longpoll", t.RunMode))
	}
	if t.LongPollTimeoutSeconds < 0 {
		errs = append(errs, invalid("telegram.longpoll_timeout_seconds must be >= 0"))
	}
	return errors.Join(errs...)
}

func (w *WebhookConfig) check(runMode string) error {
	if runMode != RunModeWebhook {
		return nil
	}
	var errs []error
	if strings.TrimSpace(w.URL) == "" {
		errs = append(errs, invalid("webhook.url is required in webhook mode"))
	}
	if strings.TrimSpace(w.Listen) == "" {
		errs = append(errs, invalid("webhook.listen is required in webhook mode"))
	}
	if w.Port <= 0 {
		errs = append(errs, invalid("webhook.port must be > 0 in webhook mode"))
	}
	return errors.Join(errs...)
}

func (r *RateLimitConfig) normalize() error {
	kept := r.ExcludeUpdates[:0]
	var errs []error
	for _, v := range r.ExcludeUpdates {
		switch kind := strings.ToLower(strings.TrimSpace(v)); kind {
		case "":
		case UpdateCallback, UpdateMessage, UpdateInlineQuery:
			kept = append(kept, kind)
		default:
			errs = append(errs, invalid("rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v))
		}
	}
	r.ExcludeUpdates = kept
	return errors.Join(errs...)
}

func (cb *CallbacksConfig) normalize() error {
	if cb.Separator == "" {
		cb.Separator = DefaultSeparator
	}
	var errs []error
	if len(cb.Separator) != 1 || cb.Separator[0] <= ' ' || cb.Separator[0] > '~' {
		errs = append(errs, invalid("callbacks.separator must be one printable ASCII character, got %q", cb.Separator))
	}
	if cb.MaxDataBytes == 0 {
		cb.MaxDataBytes = MaxCallbackDataBytes
	}
	if cb.MaxDataBytes < 0 || cb.MaxDataBytes > MaxCallbackDataBytes {
		errs = append(errs, invalid("callbacks.max_data_bytes must be within 1..%d", MaxCallbackDataBytes))
	}
	return errors.Join(errs...)
}

func (db *DatabaseConfig) normalize() error {
	if !db.Enabled {
		return nil
	}
	if strings.TrimSpace(db.Host) == "" || strings.TrimSpace(db.Name) == "" {
		return invalid("database.host and database.name are required when the database is enabled")
	}
	db.Port = cmp.Or(db.Port, "5432")
	db.SSLMode = cmp.Or(db.SSLMode, "disable")
	db.MigrationsDir = cmp.Or(db.MigrationsDir, "migrations")
	if db.MaxConnections <= 0 {
		db.MaxConnections = 5
	}
	return nil
}
