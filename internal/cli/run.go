package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/m3rciful/kilobot/core/bootstrap"
	corecmd "github.com/m3rciful/kilobot/core/cmd"
	coreconfig "github.com/m3rciful/kilobot/core/config"
	coretelegram "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/router"
	"github.com/m3rciful/kilobot/internal/recipebot"
)

// ConfigEnvVar overrides the --config flag.
const ConfigEnvVar = "KILOBOT_CONFIG"

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigEnvVar:      ConfigEnvVar,
				DefaultConfigPath: rootOpts.ConfigPath,
				LoadConfig:        loadConfig,
				Bootstrap:         bootstrapApp,
			})
		},
	}
}

type appConfig struct{ *coreconfig.Config }

func (c appConfig) CoreConfig() *coreconfig.Config { return c.Config }

func loadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return appConfig{cfg}, nil
}

func bootstrapApp(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, res: res}, nil
}

// app assembles the recipe bot on top of the bootstrapped infrastructure.
type app struct {
	cfg *coreconfig.Config
	res *bootstrap.Result
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	cfg := a.cfg
	bot, err := recipebot.New(recipebot.Deps{
		FSM:          a.res.FSM,
		Store:        a.res.Store,
		MaxDataBytes: cfg.Callbacks.MaxDataBytes,
		AckText:      cfg.Callbacks.AckText,
		Separator:    cfg.Callbacks.Separator,
	})
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	textOpts := router.TextOptions{AdminID: cfg.Telegram.AdminID}
	cbOpts := router.CallbackOptions{AdminID: cfg.Telegram.AdminID}
	router.ApplyFallbacks(bot, &textOpts, &cbOpts)

	return coretelegram.RunOptions{
		Config:      cfg,
		Components:  bot.Components(),
		Metrics:     a.res.Metrics,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		RouteBuilders: []coretelegram.RouteBuilder{
			func(rt coretelegram.Runtime) []coretelegram.Route {
				return router.CommandRoutes(rt.Registry, router.CommandRouteOptions{AdminID: cfg.Telegram.AdminID})
			},
			func(rt coretelegram.Runtime) []coretelegram.Route {
				return router.TextRoutes(bot.FSM(), rt.Registry, textOpts)
			},
			func(rt coretelegram.Runtime) []coretelegram.Route {
				return []coretelegram.Route{router.CallbackRoute(rt.Registry, cbOpts)}
			},
		},
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			bot.Bind(rt.Messenger, rt.Registry)
			return nil
		},
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.res.Close()
		},
	}, nil
}
