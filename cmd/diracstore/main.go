package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/diracstore/diracstore/internal/config"
	"github.com/diracstore/diracstore/internal/metrics"
	"github.com/diracstore/diracstore/internal/storage/dirac"
	"github.com/diracstore/diracstore/pkg/remote"
)

var (
	configFile     string
	storageElement string
	retryCount     int
	wrapper        string
	debug          bool
)

var (
	// Version is the latest tag (set within Makefile)
	Version = "git"
	// Build is the commit hash (set within Makefile)
	Build = "norev"
)

func main() {
	app := initApp()

	app.Commands = []*cli.Command{
		existsCommand(),
		statCommand(),
		getCommand(),
		putCommand(),
		hostCommand(),
		configCommand(),
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "diracstore:", err)
		os.Exit(1)
	}
}

func initApp() *cli.App {
	return &cli.App{
		Name:  "diracstore",
		Usage: "Access grid-federation storage through the dirac-dms command suite.",
		Description: `diracstore resolves logical file names (LFN:// paths) against a grid
file catalog and stages data to and from storage elements by driving
the dirac-dms command-line tools.`,
		Action: func(ctx *cli.Context) error {
			return cli.ShowAppHelp(ctx)
		},
		Flags: initFlags(),
	}
}

func initFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "version",
			Usage:   "print diracstore version",
			Aliases: []string{"v"},
			Action: func(*cli.Context, bool) error {
				fmt.Println("Version:", Version)
				fmt.Println("Build  :", Build)
				os.Exit(0)
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "configuration file path",
			EnvVars:     []string{"DIRACSTORE_CONFIG"},
			Aliases:     []string{"c"},
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "se",
			Usage:       "default storage element for uploads",
			Destination: &storageElement,
		},
		&cli.IntFlag{
			Name:        "retry",
			Usage:       "per-command retry budget",
			Value:       -1,
			Destination: &retryCount,
		},
		&cli.StringFlag{
			Name:        "wrapper",
			Usage:       "environment-activation program to run tools under",
			Destination: &wrapper,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug output",
			Destination: &debug,
		},
	}
}

// loadConfig merges the file/env configuration with command-line flags.
// Flags win over the file and the environment.
func loadConfig() (*config.Configuration, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if storageElement != "" {
		cfg.Storage.StorageElement = storageElement
	}
	if retryCount >= 0 {
		cfg.Storage.Retry = retryCount
	}
	if wrapper != "" {
		cfg.Storage.Wrapper = wrapper
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	return cfg, cfg.Validate()
}

func setupLogger(cfg *config.Configuration) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Logging.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// setupProvider builds the provider stack shared by every data command:
// configuration, logging, toolchain detection, and the optional
// Prometheus endpoint.
func setupProvider(ctx *cli.Context) (*remote.Provider, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := setupLogger(cfg)

	toolchain, err := detectToolchain(cfg)
	if err != nil {
		return nil, nil, err
	}

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Port:      cfg.Metrics.Port,
		Path:      cfg.Metrics.Path,
		Namespace: cfg.Metrics.Namespace,
	})
	if err != nil {
		return nil, nil, err
	}
	if collector.Enabled() {
		if err := collector.Start(ctx.Context); err != nil {
			return nil, nil, err
		}
	}

	opts := []remote.Option{
		remote.WithRetry(cfg.Storage.Retry),
		remote.WithRetryDelay(cfg.Storage.RetryDelay),
		remote.WithCommandTimeout(cfg.Storage.CommandTimeout),
		remote.WithMetadataCacheTTL(cfg.Storage.MetadataCacheTTL),
		remote.WithStorageElement(cfg.Storage.StorageElement),
		remote.WithKeepLocal(cfg.Storage.KeepLocal),
		remote.WithStayOnRemote(cfg.Storage.StayOnRemote),
		remote.WithIsDefault(cfg.Storage.IsDefault),
		remote.WithLogger(logger),
		remote.WithObserver(collector),
	}

	provider, err := remote.NewProvider(toolchain, opts...)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if collector.Enabled() {
			_ = collector.Stop(context.Background())
		}
	}
	return provider, cleanup, nil
}

// detectToolchain probes PATH for the command suite unless the
// configuration pins a wrapper, in which case detection is skipped and
// every tool runs under that wrapper.
func detectToolchain(cfg *config.Configuration) (dirac.Toolchain, error) {
	if cfg.Storage.Wrapper != "" {
		return dirac.Toolchain{Wrapper: cfg.Storage.Wrapper}, nil
	}
	return dirac.DetectToolchain()
}
