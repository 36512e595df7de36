package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"vegov/app"
	"vegov/config"
	"vegov/core/host"
	"vegov/observability/logging"
	telemetry "vegov/observability/otel"
	"vegov/rpc"
	"vegov/storage"
)

const envOverride = "VEGOV_ENV"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "vegovd: %v\n", err)
		os.Exit(1)
	}
}

// run boots the daemon and blocks until ctx is cancelled.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("vegovd", flag.ContinueOnError)
	configFile := fs.String("config", "./config.toml", "Path to the configuration file")
	fixtureFlag := fs.String("fixture", "", "Path to the host query fixture (overrides host.FixturePath)")
	listenFlag := fs.String("listen", "", "RPC listen address (overrides rpc.ListenAddress)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Node.Environment
	if v := strings.TrimSpace(os.Getenv(envOverride)); v != "" {
		env = v
	}
	baseDir := filepath.Dir(*configFile)

	logger := logging.SetupWithOptions("vegovd", env, logging.Options{
		Level:      logging.ParseLevel(cfg.Node.LogLevel),
		File:       resolvePath(baseDir, cfg.Node.LogFile),
		MaxSizeMB:  cfg.Node.LogMaxSizeMB,
		MaxBackups: cfg.Node.LogMaxBackups,
		MaxAgeDays: cfg.Node.LogMaxAgeDays,
		Output:     stdout,
	}).With(slog.String("run_id", uuid.NewString()))

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "vegovd",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()
	if cfg.Telemetry.Traces {
		logger.Info("tracing enabled", logging.MaskField("endpoint", cfg.Telemetry.Endpoint))
	}

	fixturePath := cfg.Host.FixturePath
	if *fixtureFlag != "" {
		fixturePath = *fixtureFlag
	}
	querier, err := host.LoadStaticQuerier(resolvePath(baseDir, fixturePath))
	if err != nil {
		return fmt.Errorf("load host fixture: %w", err)
	}

	dataDir := resolvePath(baseDir, cfg.Node.DataDir)
	db, err := storage.NewLevelDB(filepath.Join(dataDir, "state"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	engine := app.New(db, querier, app.WithLogger(logger))
	if err := initGenesis(engine, cfg.Genesis, logger); err != nil {
		return err
	}

	listen := cfg.RPC.ListenAddress
	if *listenFlag != "" {
		listen = *listenFlag
	}
	server := rpc.NewServer(engine, rpc.Config{
		RequestsPerMinute: cfg.RPC.RequestsPerMinute,
		Burst:             cfg.RPC.Burst,
		EnableSubmit:      cfg.RPC.EnableSubmit,
		Logger:            logger,
	})
	logger.Info("vegovd started", slog.String("data_dir", dataDir), slog.Bool("submit", cfg.RPC.EnableSubmit))
	err = server.ListenAndServe(ctx, listen, time.Duration(cfg.RPC.ReadHeaderTimeoutSecs)*time.Second)
	logger.Info("vegovd stopped")
	return err
}

// initGenesis stores the configured global state on first start. A stored
// configuration is never overwritten from the config file.
func initGenesis(engine *app.App, genesis config.Genesis, logger *slog.Logger) error {
	ok, err := engine.Initialised()
	if err != nil {
		return fmt.Errorf("read genesis: %w", err)
	}
	if ok {
		logger.Info("genesis already initialised")
		return nil
	}
	global, err := genesis.Resolve()
	if err != nil {
		return fmt.Errorf("resolve genesis: %w", err)
	}
	if err := engine.InitGenesis(global); err != nil {
		return fmt.Errorf("store genesis: %w", err)
	}
	logger.Info("genesis initialised", slog.Int("foundation_addresses", len(global.FoundationAddresses)))
	return nil
}

func resolvePath(baseDir, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
