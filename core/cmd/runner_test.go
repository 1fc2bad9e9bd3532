package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/kilobot/core/config"
	coretelegram "github.com/m3rciful/kilobot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	opts coretelegram.RunOptions
	err  error
}

func (a fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, a.err }

func TestConfigPathPrefersEnv(t *testing.T) {
	t.Setenv("KILOBOT_TEST_CONFIG", "/etc/kilobot.yaml")
	path, err := Options{ConfigEnvVar: "KILOBOT_TEST_CONFIG", DefaultConfigPath: "config.yaml"}.ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/kilobot.yaml", path)

	t.Setenv("KILOBOT_TEST_CONFIG", "")
	path, err = Options{ConfigEnvVar: "KILOBOT_TEST_CONFIG", DefaultConfigPath: "config.yaml"}.ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)

	_, err = Options{ConfigEnvVar: "KILOBOT_TEST_CONFIG"}.ConfigPath()
	assert.Error(t, err)
}

func TestRunRequiresSteps(t *testing.T) {
	assert.ErrorIs(t, Run(Options{}), errNoLoader)
	assert.ErrorIs(t, Run(Options{LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil }}), errNoBootstrap)
}

func TestRunChainsLifecycleHooks(t *testing.T) {
	var calls []string
	drained := false
	app := fakeApp{opts: coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { calls = append(calls, "start"); return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { calls = append(calls, "stop"); return nil },
	}}

	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		ConfigEnvVar:      "KILOBOT_UNSET_FOR_TEST",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			assert.Equal(t, "config.yaml", path)
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { drained = true; return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			require.NoError(t, opts.OnStop(ctx, coretelegram.Runtime{}))
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "stop"}, calls)
	assert.True(t, drained)
}

func TestRunReportsMissingCore(t *testing.T) {
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		ConfigEnvVar:      "KILOBOT_UNSET_FOR_TEST",
		LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return fakeApp{}, nil },
	})
	assert.ErrorIs(t, err, errNoCore)
}

func TestRunWrapsOptionErrors(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		DefaultConfigPath: "config.yaml",
		ConfigEnvVar:      "KILOBOT_UNSET_FOR_TEST",
		LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:         func(ConfigCarrier) (TelegramApp, error) { return fakeApp{err: boom}, nil },
		ShutdownLogger:    func() error { return nil },
	})
	assert.ErrorIs(t, err, boom)
}
