package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/machinefabric/unirun-apps/apps"
	"github.com/machinefabric/unirun-apps/config"
	"github.com/machinefabric/unirun-apps/logger"
	"github.com/machinefabric/unirun-apps/provider"
	"github.com/machinefabric/unirun-apps/unirun"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	serveFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "socket",
			Usage: "Connect to the host over this unix socket instead of stdin/stdout",
		},
		&cli.BoolFlag{
			Name:  "show-on-empty",
			Usage: "List every application for an empty query",
		},
		&cli.IntFlag{
			Name:  "max-frame",
			Usage: "Largest accepted frame body in bytes",
		},
	}

	return &cli.App{
		Name:  "unirun-apps",
		Usage: "Application search provider for the unirun launcher",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"UNIRUN_APPS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-env",
				Usage: "Override the logging environment (prod, dev, local)",
			},
		}, serveFlags...),
		// Hosts start the provider without arguments.
		Action: serveCommand,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Answer host commands until QUIT",
				Action: serveCommand,
				Flags:  serveFlags,
			},
			{
				Name:      "probe",
				Usage:     "Run a provider as a host would and print the hits for a query",
				ArgsUsage: "<query>",
				Action:    probeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Provider executable (defaults to this binary)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Abort the stream after this many hits (0 for all)",
					},
					&cli.BoolFlag{
						Name:  "activate",
						Usage: "Launch the first hit",
					},
				},
			},
		},
	}
}

// setup loads the config file and applies the global flag overrides
func setup(c *cli.Context) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	if c.IsSet("log-env") {
		cfg.Logging.Env = c.String("log-env")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	log, err := logger.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// applyServeFlags lets serve flags override the file config
func applyServeFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("socket") {
		cfg.Transport.Socket = c.String("socket")
	}
	if c.IsSet("show-on-empty") {
		cfg.ShowOnEmpty = c.Bool("show-on-empty")
	}
	if c.IsSet("max-frame") {
		cfg.Limits.MaxFrame = c.Int("max-frame")
		cfg.Limits = cfg.Limits.Effective()
	}
}

func newDirectory(cfg config.DirectoryConfig, log *zap.Logger) *apps.DesktopDirectory {
	opts := []apps.Option{
		apps.WithDirs(cfg.Paths...),
		apps.WithWorkers(cfg.Workers),
		apps.WithTerminal(cfg.Terminal),
		apps.WithLogger(log.Named("apps")),
	}
	if cfg.Locale != "" {
		opts = append(opts, apps.WithLocale(cfg.Locale))
	}
	return apps.NewDesktopDirectory(opts...)
}

// openTransport connects to the host: the unix socket if configured,
// otherwise stdin/stdout
func openTransport(cfg config.TransportConfig) (*unirun.Conn, error) {
	if cfg.Socket == "" {
		return unirun.NewConn(os.Stdin, os.Stdout, os.Stdin), nil
	}
	nc, err := net.Dial("unix", cfg.Socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to host socket %s: %w", cfg.Socket, err)
	}
	return unirun.NewStreamConn(nc), nil
}

func serveCommand(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	applyServeFlags(c, &cfg)

	conn, err := openTransport(cfg.Transport)
	if err != nil {
		return err
	}
	conn.SetLimits(cfg.Limits)
	defer conn.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir := newDirectory(cfg.Directory, log)
	if cfg.Directory.WatchEnabled() {
		go func() {
			if err := dir.Watch(ctx); err != nil {
				log.Warn("directory watch stopped", zap.Error(err))
			}
		}()
	}

	log.Info("provider started",
		zap.Strings("dirs", dir.Dirs()),
		zap.Bool("show_on_empty", cfg.ShowOnEmpty),
		zap.Int("max_frame", cfg.Limits.MaxFrame),
	)

	if err := serve(ctx, conn, dir, cfg, log); err != nil {
		log.Error("provider stopped", zap.Error(err))
		return cli.Exit("", 1)
	}
	return nil
}

// serve runs the provider until it finishes or ctx is done. On cancellation
// the conn is closed and serve returns without waiting for the provider,
// since a read blocked on stdin may never return.
func serve(ctx context.Context, conn *unirun.Conn, dir provider.Directory, cfg config.Config, log *zap.Logger) error {
	done := make(chan error, 1)
	go func() {
		done <- runProvider(ctx, conn, dir, cfg, log.Named("provider"))
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			return err
		}
		log.Info("provider finished")
		return nil

	case <-ctx.Done():
		conn.Close()
		log.Info("provider interrupted")
		return nil
	}
}

func runProvider(ctx context.Context, conn *unirun.Conn, dir provider.Directory, cfg config.Config, log *zap.Logger) error {
	return provider.New(conn, dir,
		provider.WithShowOnEmpty(cfg.ShowOnEmpty),
		provider.WithLogger(log),
	).Run(ctx)
}
