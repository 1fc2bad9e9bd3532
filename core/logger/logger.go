package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/kilobot/core/buildinfo"
	coreconfig "github.com/m3rciful/kilobot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutDown   bool
	writers    []*asyncWriter

	levelVar      slog.LevelVar
	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the base logger. It stays nil until InitLogger runs, and every
	// helper in this package tolerates that.
	L *slog.Logger
)

// settings is the logging section of the config with defaults applied.
type settings struct {
	format     logFormat
	level      slog.Level
	keyOrder   []string
	stacks     bool
	sampleNum  int
	sampleDen  int
	profile    string
	botFile    string
	errorsFile string
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		level:     slog.LevelInfo,
		keyOrder:  slices.Clone(defaultKeyOrder),
		stacks:    true,
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	s.profile = strings.ToLower(strings.TrimSpace(lc.Profile))
	if s.profile == "" {
		s.profile = "prod"
	}
	s.format = parseFormat(lc.Format, s.profile)
	s.level = parseLevel(lc.Level)
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.keyOrder = order
	}
	switch strings.ToLower(strings.TrimSpace(lc.Stacks)) {
	case "off", "false", "0", "none":
		s.stacks = false
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		s.sampleNum, s.sampleDen = parseRatioSpec(spec)
	}
	if dir := strings.TrimSpace(lc.Dir); dir != "" {
		if name := strings.TrimSpace(lc.BotFile); name != "" {
			s.botFile = filepath.Join(dir, name)
		}
		if name := strings.TrimSpace(lc.ErrorsFile); name != "" {
			s.errorsFile = filepath.Join(dir, name)
		}
	}
	return s
}

func parseFormat(raw, profile string) logFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	if profile == "debug" || profile == "dev" {
		return formatKV
	}
	return formatJSON
}

func parseLevel(raw string) slog.Level {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "warning") {
		raw = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// InitLogger installs the global structured logger. Only the first call
// has an effect; later calls return the first result.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		initErr = install(resolveSettings(cfg))
	})
	return initErr
}

func install(s settings) error {
	levelVar.Set(s.level)
	debugSampler.Set(s.sampleNum, s.sampleDen)
	traceOverride = isTruthy(os.Getenv("LOG_TRACE")) || isTruthy(os.Getenv("TRACE"))

	outputs := []io.Writer{os.Stdout}
	botFile, err := openLogFile(s.botFile)
	if err != nil {
		return err
	}
	if botFile != nil {
		outputs = append(outputs, botFile)
	}
	errFile, err := openLogFile(s.errorsFile)
	if err != nil {
		if botFile != nil {
			botFile.Close()
		}
		return err
	}

	hc := handlerConfig{
		level:    &levelVar,
		writer:   newAsyncWriter(outputs, 64*1024),
		format:   s.format,
		keyOrder: s.keyOrder,
		stacks:   s.stacks,
	}
	writers = append(writers, hc.writer)
	if errFile != nil {
		hc.errors = newAsyncWriter([]io.Writer{errFile}, 16*1024)
		writers = append(writers, hc.errors)
	}

	L = slog.New(newStructuredHandler(hc))
	slog.SetDefault(L)
	logStartup(s)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

func logStartup(s settings) {
	info := buildinfo.Current()
	Info(context.Background(), "app", "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("version", info.Version),
		slog.String("build_commit", info.Commit),
		slog.String("build_time", info.Date),
		slog.String("cfg_profile", s.profile),
		slog.Bool("errors_file", s.errorsFile != ""),
	)
}

// Shutdown drains queued lines and closes the log files.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutDown {
		return nil
	}
	shutDown = true

	var errs []error
	for _, w := range writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// LogEvent logs attrs under event with logg, or the logger of ctx when
// logg is nil. Nothing is logged before InitLogger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to a component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs through the logger of ctx with the component overridden.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if logg == nil {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		logg = logg.With("component", component)
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// logged. LOG_TRACE=1 lets every event through.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
