package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/pkg/config"
	"github.com/marmos91/cityfs/pkg/server"
	"github.com/spf13/pflag"
)

const usageText = `Usage: cityfs [flags] <city-file> <mount-point>
       cityfs init [--force] [--config <path>]

Mounts a read-only filesystem of countries and cities. Each city file holds
the city's coordinates and the current weather, fetched when the file is opened.

<city-file> is a CSV file (optionally .gz, .zst or .lz4), an s3://bucket/key
object or an http(s) URL. Each line looks like:

    code,name,lat,lng,population,timezone
    AU,Brisbane,-27.46794,153.02809,2189878,Australia/Brisbane

Flags:
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		runInit(os.Args[2:])
		return
	}

	flags := pflag.NewFlagSet("cityfs", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to config file (default $XDG_CONFIG_HOME/cityfs/config.yaml)")
	logLevel := flags.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	weatherOn := flags.Bool("weather", true, "Fetch weather when a city file is opened")
	noWeather := flags.Bool("no-weather", false, "Disable weather lookups (same as --weather=false)")
	metricsPort := flags.Int("metrics-port", 0, "Expose Prometheus metrics on this port")
	webdavPort := flags.Int("webdav-port", 0, "Also serve the filesystem over WebDAV on this port")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 || len(args) > 2 {
		flags.Usage()
		os.Exit(2)
	}

	overrides := []config.Override{
		config.WithDataset(args[0]),
		config.WithLogLevel(*logLevel),
	}
	if len(args) == 2 {
		overrides = append(overrides, config.WithMountPoint(args[1]))
	}
	if flags.Changed("weather") {
		overrides = append(overrides, config.WithWeather(*weatherOn))
	}
	if *noWeather {
		overrides = append(overrides, config.WithWeather(false))
	}
	if flags.Changed("metrics-port") {
		overrides = append(overrides, config.WithMetricsPort(*metricsPort))
	}
	if flags.Changed("webdav-port") {
		overrides = append(overrides, func(cfg *config.Config) {
			cfg.Adapters.WebDAV.Enabled = true
			cfg.Adapters.WebDAV.Port = *webdavPort
		})
	}

	cfg, err := config.Load(*configPath, overrides...)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logger
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsResult := config.InitializeMetrics(cfg)

	// The dataset is loaded before anything is mounted; failure is fatal.
	fsys, err := config.CreateFilesystem(ctx, cfg, metricsResult)
	if err != nil {
		log.Fatalf("Failed to initialize filesystem: %v", err)
	}

	srv := server.New(fsys)
	srv.SetShutdownTimeout(cfg.Server.ShutdownTimeout)

	adapters, err := config.CreateAdapters(cfg)
	if err != nil {
		log.Fatalf("Failed to create adapters: %v", err)
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			log.Fatalf("Failed to add %s adapter: %v", a.Protocol(), err)
		}
	}

	metricsDone := make(chan error, 1)
	if metricsResult.Server != nil {
		go func() {
			metricsDone <- metricsResult.Server.Start(ctx)
		}()
	} else {
		close(metricsDone)
	}

	logger.Info("cityfs is running. Press Ctrl+C to stop.")

	serveErr := srv.Serve(ctx)
	stop()

	if err := <-metricsDone; err != nil {
		logger.Error("Metrics server error: %v", err)
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logger.Error("Server error: %v", serveErr)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// runInit writes a sample configuration file.
func runInit(argv []string) {
	flags := pflag.NewFlagSet("cityfs init", pflag.ExitOnError)
	force := flags.Bool("force", false, "Overwrite an existing config file")
	configPath := flags.String("config", "", "Where to write the config (default $XDG_CONFIG_HOME/cityfs/config.yaml)")
	_ = flags.Parse(argv)

	path := *configPath
	if path == "" {
		var err error
		path, err = config.InitConfig(*force)
		if err != nil {
			log.Fatalf("Failed to initialize config: %v", err)
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration written to %s\n", path)
}
