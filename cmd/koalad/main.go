package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tahomarobotics/koala/internal/api"
	"github.com/tahomarobotics/koala/internal/collector"
	"github.com/tahomarobotics/koala/internal/config"
	"github.com/tahomarobotics/koala/internal/filesink"
	"github.com/tahomarobotics/koala/internal/logging"
	"github.com/tahomarobotics/koala/internal/observability"
	"github.com/tahomarobotics/koala/internal/store"
	"github.com/tahomarobotics/koala/internal/tba"
)

const defaultConfigPath = "koalad.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "koalad: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to koalad.toml")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("koalad")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tbaClient *tba.Client
	if cfg.TBAAuthKey != "" {
		tbaClient = tba.New(tba.Config{AuthKey: cfg.TBAAuthKey})
	} else {
		logger.Warn().Msg("no tba auth key configured, event import disabled")
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	st, err := store.Open(openCtx, store.Config{URI: cfg.MongoURI, Year: cfg.Year}, tbaClient)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()
	logger.Info().Str("database", st.DatabaseName()).Msg("store ready")

	sink, err := filesink.New(cfg.FilesDir)
	if err != nil {
		return err
	}

	listener := collector.NewListener(collector.Config{
		BindAddr:    cfg.BindAddr,
		Port:        cfg.Port,
		Advertise:   cfg.Advertise,
		Instance:    cfg.Instance,
		Description: cfg.Description,
		AcceptPit:   cfg.AcceptPit,
	}, st, sink)
	if err := listener.Start(); err != nil {
		return err
	}
	logger.Info().
		Stringer("addr", listener.Addr()).
		Bool("advertise", cfg.Advertise).
		Str("files_dir", sink.Root()).
		Msg("collector listening")

	httpAPI := api.New(cfg.HTTPAddr, cfg.Instance, st, cfg.CorsOrigins)
	apiErr := make(chan error, 1)
	go func() {
		apiErr <- httpAPI.Run(ctx)
	}()

	var apiResult error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		apiResult = <-apiErr
	case apiResult = <-apiErr:
	}

	if err := listener.Stop(); err != nil {
		logger.Warn().Err(err).Msg("listener stop failed")
	}
	listener.Wait()
	if apiResult != nil {
		return fmt.Errorf("http api: %w", apiResult)
	}
	return nil
}

// loadConfig reads the config file when present. The stock path is
// allowed to be absent so a bare koalad starts on defaults.
func loadConfig(path string) (config.CollectorConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		return config.DefaultCollectorConfig(), nil
	}
	return config.LoadCollectorConfig(path)
}
