package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guilherme-santos/calmanager/calendar"
	"github.com/guilherme-santos/calmanager/calendar/caldav"
	"github.com/guilherme-santos/calmanager/calendar/google"
	"github.com/guilherme-santos/calmanager/internal"
	"github.com/guilherme-santos/calmanager/internal/config"
	"github.com/guilherme-santos/calmanager/internal/sqlite"
)

// app holds what every command needs once the configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	storage *sqlite.Storage
	mux     *calendar.Mux
	google  *google.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file, cmd.Flags())
	if err != nil {
		return nil, err
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return nil, err
		}
	}
	logger, err := internal.NewLogger(cfg.LogFile, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o700); err != nil {
		return nil, err
	}
	storage, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %v", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		storage: storage,
		mux:     calendar.NewMux(),
	}
	a.mux.Register(internal.PlatformLocal, storage)

	if err := a.registerGoogle(); err != nil {
		if cfg.Source == internal.PlatformGoogle {
			a.Close()
			return nil, err
		}
		logger.Debug("google source disabled", zap.Error(err))
	}
	if err := a.registerCalDAV(); err != nil {
		if cfg.Source == internal.PlatformCalDAV {
			a.Close()
			return nil, err
		}
		logger.Debug("caldav source disabled", zap.Error(err))
	}

	logger.Debug("configuration loaded",
		zap.String("source", cfg.Source),
		zap.String("database", cfg.Database),
		zap.Strings("platforms", a.mux.Platforms()),
	)
	return a, nil
}

func (a *app) registerGoogle() error {
	credJSON, err := os.ReadFile(a.cfg.Google.CredentialsFile)
	if err != nil {
		return fmt.Errorf("reading google credentials file: %v", err)
	}
	client, err := google.NewClient(credJSON, a.storage,
		google.WithLogger(a.logger.Named("google")),
		google.WithRateLimit(a.cfg.Google.RequestsPerSecond),
		google.WithRedirectAddr(a.cfg.Google.RedirectAddr),
	)
	if err != nil {
		return err
	}
	a.google = client
	a.mux.Register(internal.PlatformGoogle, client)
	return nil
}

func (a *app) registerCalDAV() error {
	if a.cfg.CalDAV.URL == "" {
		return errors.New("caldav.url is not set")
	}
	client, err := caldav.NewClient(caldav.Config{
		URL:      a.cfg.CalDAV.URL,
		Username: a.cfg.CalDAV.Username,
		Password: a.cfg.CalDAV.Password,
		Logger:   a.logger.Named("caldav"),
	}, a.storage)
	if err != nil {
		return err
	}
	a.mux.Register(internal.PlatformCalDAV, client)
	return nil
}

func (a *app) source(platform string) (internal.Source, internal.Gate, error) {
	source, err := a.mux.Get(platform)
	if err != nil {
		return nil, nil, err
	}
	gate, err := a.mux.Gate(platform)
	if err != nil {
		return nil, nil, err
	}
	return source, gate, nil
}

func (a *app) Close() {
	a.storage.Close()
	a.logger.Sync()
}
