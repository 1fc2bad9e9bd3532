package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/kilobot/core/config"
	"github.com/m3rciful/kilobot/core/logger"
	tghelpers "github.com/m3rciful/kilobot/core/telegram/helpers"
	"github.com/m3rciful/kilobot/core/telegram/messenger"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/recovery"
	tgsender "github.com/m3rciful/kilobot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RouteBuilder produces transport routes once the registry is wired.
type RouteBuilder func(rt Runtime) []Route

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config     *coreconfig.Config
	Registry   *Registry
	Components []Component
	// Deliverer overrides the bot messenger used by recovery policies.
	Deliverer recovery.Deliverer
	Metrics   *metrics.Collector

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares   []Middleware
	Routes        []Route
	RouteBuilders []RouteBuilder

	DisableWebhookCleanup bool
	// SyncCallbackAcks answers callback queries inline instead of on the
	// dispatcher queue.
	SyncCallbackAcks bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
	Messenger  *messenger.Telebot
}

// RunTelegram builds the bot, wires the registry, installs routes and
// serves updates until ctx is done. A cancelled ctx is a clean exit.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	start := time.Now()
	poller := BuildPoller(cfg)
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(HTTPClientOptions{}),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, cfg, poller, time.Since(start))
	if _, polling := poller.(*tele.LongPoller); polling && !opts.DisableWebhookCleanup {
		dropWebhook(ctx, bot)
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.SyncCallbackAcks {
		tghelpers.SetDispatcher(dispatcher)
		defer tghelpers.SetDispatcher(nil)
	}
	defer dispatcher.Close()

	if opts.Metrics != nil {
		metrics.Set(opts.Metrics)
	}
	rt := Runtime{
		Bot:        bot,
		Dispatcher: dispatcher,
		Registry:   reg,
		Messenger:  messenger.New(bot, dispatcher, cfg.Callbacks.MaxDataBytes),
	}
	var deliverer recovery.Deliverer = rt.Messenger
	if opts.Deliverer != nil {
		deliverer = opts.Deliverer
	}
	if err := reg.Wire(deliverer, opts.Components...); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	install(ctx, bot, rt, opts)
	reg.Activate()
	InitBotCommands(bot, reg)

	opsCtx, stopOps := context.WithCancel(ctx)
	defer stopOps()
	go serveOps(opsCtx, cfg.Metrics.Listen)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}
	runErr := serve(ctx, bot)
	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// install registers global middleware first, then static routes and the
// output of every RouteBuilder.
func install(ctx context.Context, bot *tele.Bot, rt Runtime, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	logger.Debug(ctx, "tg", "middlewares.installed",
		slog.String("payload", strings.Join(MiddlewareNames(opts.Middlewares), ",")),
	)

	routes := slices.Clone(opts.Routes)
	for _, build := range opts.RouteBuilders {
		if build != nil {
			routes = append(routes, build(rt)...)
		}
	}
	for _, r := range routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
}

// serve blocks in the poller until ctx ends or the bot stops by itself.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	}
}

func serveOps(ctx context.Context, listen string) {
	if listen == "" {
		return
	}
	if err := metrics.Serve(ctx, listen, metrics.Current()); err != nil {
		logger.Error(ctx, "ops", "server.failed",
			slog.String("listen", listen),
			slog.String("err", err.Error()),
		)
	}
}

func logMode(ctx context.Context, cfg *coreconfig.Config, p tele.Poller, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", took)}
	switch p := p.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", cfg.Webhook.URL),
			slog.Bool("secret", p.SecretToken != ""),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("timeout", p.Timeout),
		)
	}
	logger.Info(ctx, "tg", "mode", attrs...)
}

// dropWebhook clears a webhook left from an earlier deployment; Telegram
// refuses getUpdates while one is set.
func dropWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.Warn(ctx, "tg", "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.Info(ctx, "tg", "delete_webhook", slog.String("status", "ok"))
}
