package bootstrap

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/kilobot/core/config"
	coredatabase "github.com/m3rciful/kilobot/core/database"
	"github.com/m3rciful/kilobot/core/telegram/metrics"
	"github.com/m3rciful/kilobot/core/telegram/state"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	t.Cleanup(func() { metrics.Set(nil) })
	connected := false
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Registry:   prometheus.NewRegistry(),
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.False(t, connected)
	assert.Nil(t, res.DB)
	assert.Same(t, res.Metrics, metrics.Current())

	_, isManager := res.Store.(state.Manager)
	assert.True(t, isManager)
	assert.NoError(t, res.Close())
}

func TestRunDatabaseFailures(t *testing.T) {
	t.Cleanup(func() { metrics.Set(nil) })
	cfg := &coreconfig.Config{Database: coreconfig.DatabaseConfig{Enabled: true, Host: "db", Name: "kilobot"}}

	_, err := Run(Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Registry:   prometheus.NewRegistry(),
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return nil, errors.New("refused")
		},
	})
	assert.ErrorContains(t, err, "database initialization failed")

	var db *sqlx.DB
	_, err = Run(Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Registry:   prometheus.NewRegistry(),
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			raw, err := sql.Open("postgres", "postgres://unused")
			if err != nil {
				return nil, err
			}
			db = sqlx.NewDb(raw, "postgres")
			return db, nil
		},
		Migrate: func(coredatabase.Config) error { return errors.New("dirty") },
	})
	assert.ErrorContains(t, err, "migrations failed")
	require.NotNil(t, db)
}

func TestRunLoggerFailure(t *testing.T) {
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return errors.New("no dir") },
	})
	assert.ErrorContains(t, err, "logger init failed")

	_, err = Run(Options{})
	assert.Error(t, err)
}
