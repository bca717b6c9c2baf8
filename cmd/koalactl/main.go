package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tahomarobotics/koala/internal/client"
	"github.com/tahomarobotics/koala/internal/config"
	"github.com/tahomarobotics/koala/internal/logging"
	"github.com/tahomarobotics/koala/internal/observability"
)

const defaultConfigPath = "koalactl.toml"

type options struct {
	configPath string
	addr       string
	port       int
	instance   string
	tag        string
	data       string
	file       string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "koalactl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.configPath, "config", defaultConfigPath, "path to koalactl.toml")
	flag.StringVar(&opts.addr, "addr", "", "collector address, skips discovery when set")
	flag.IntVar(&opts.port, "port", 0, "collector port, used with -addr")
	flag.StringVar(&opts.instance, "instance", "", "mdns instance name to discover")
	flag.StringVar(&opts.tag, "tag", "", "record tag: match, strat, or pit")
	flag.StringVar(&opts.data, "data", "", "JSON record body, @path to read a file, or - for stdin")
	flag.StringVar(&opts.file, "file", "", "send this file instead of a record")
	flag.Parse()

	logging.ConfigureRuntime()
	logger := observability.InitLogger("koalactl")

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	if opts.port != 0 {
		cfg.Port = opts.port
	}
	if opts.instance != "" {
		cfg.Instance = opts.instance
	}

	if opts.file == "" && opts.data == "" {
		return errors.New("nothing to send, pass -data or -file")
	}
	if opts.file != "" && opts.data != "" {
		return errors.New("pass either -data or -file, not both")
	}
	if opts.data != "" && opts.tag == "" {
		return errors.New("-data requires -tag")
	}

	c := client.New(client.Config{
		Instance:         cfg.Instance,
		ConnectTimeout:   cfg.ConnectTimeout,
		DiscoveryTimeout: cfg.DiscoveryTimeout,
	})

	if cfg.Addr != "" {
		err = c.Connect(cfg.Addr, cfg.Port)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DiscoveryTimeout+cfg.ConnectTimeout)
		defer cancel()
		err = c.DiscoverAndConnect(ctx)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Disconnect(); err != nil {
			logger.Warn().Err(err).Msg("disconnect failed")
		}
	}()

	if opts.file != "" {
		if err := c.SendFile(opts.file); err != nil {
			return err
		}
		logger.Info().Str("file", opts.file).Msg("file sent")
		return nil
	}

	body, err := readBody(opts.data)
	if err != nil {
		return err
	}
	if err := c.Send(body, opts.tag); err != nil {
		return err
	}
	logger.Info().Str("tag", opts.tag).Int("bytes", len(body)).Msg("record sent")
	return nil
}

// readBody resolves the -data flag: a literal JSON string, @path for a
// file, or - for stdin.
func readBody(data string) (json.RawMessage, error) {
	switch {
	case data == "-":
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return json.RawMessage(raw), nil
	case strings.HasPrefix(data, "@"):
		raw, err := os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		return json.RawMessage(raw), nil
	default:
		return json.RawMessage(data), nil
	}
}

func loadConfig(path string) (config.ClientConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
		return config.DefaultClientConfig(), nil
	}
	return config.LoadClientConfig(path)
}
