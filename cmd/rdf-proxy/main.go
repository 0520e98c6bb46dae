// Package main is the entry point for the RDF namespace proxy.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/rdfproxy/internal/config"
	"github.com/vyrodovalexey/rdfproxy/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	watch       bool
	showVersion bool
}

func main() {
	flags := parseFlags(flag.CommandLine, os.Args[1:])

	if flags.showVersion {
		printVersion()
		return
	}

	cfg, configPath, err := loadConfig(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(logConfig(flags, cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting rdf-proxy",
		observability.String("version", version),
		observability.String("config", configPath),
		observability.Int("proxies", len(cfg.Proxies)),
		observability.Int("documents", len(cfg.Documents)),
	)

	app, err := initApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize application", observability.Error(err))
		return
	}

	if !flags.watch {
		configPath = ""
	}
	if err := run(app, configPath); err != nil {
		fatalWithSync(logger, "rdf-proxy stopped with errors", observability.Error(err))
	}
}

// parseFlags parses command line flags. Unset flags fall back to
// RDFPROXY_* environment variables.
func parseFlags(fs *flag.FlagSet, args []string) cliFlags {
	configPath := fs.String("config", envString("CONFIG", "configs/rdfproxy.yaml"),
		"Path to configuration file")
	logLevel := fs.String("log-level", envString("LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration file")
	logFormat := fs.String("log-format", envString("LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration file")
	watch := fs.Bool("watch", envBool("WATCH_CONFIG", true),
		"Reload the configuration file when it changes")
	showVersion := fs.Bool("version", false, "Show version information")
	_ = fs.Parse(args)

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		watch:       *watch,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("rdf-proxy version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// loadConfig resolves and loads the configuration file.
func loadConfig(path string) (*config.Config, string, error) {
	resolved, err := config.ResolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

// logConfig merges command line overrides into the configured logging.
func logConfig(flags cliFlags, cfg *config.Config) observability.LogConfig {
	lc := observability.DefaultLogConfig()
	if l := cfg.Observability.Logging; l != nil {
		if l.Level != "" {
			lc.Level = l.Level
		}
		if l.Format != "" {
			lc.Format = l.Format
		}
		if l.Output != "" {
			lc.Output = l.Output
		}
	}
	if flags.logLevel != "" {
		lc.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		lc.Format = flags.logFormat
	}
	return lc
}

// initLogger creates the logger and installs it globally.
func initLogger(cfg observability.LogConfig) (observability.Logger, error) {
	logger, err := observability.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	observability.SetGlobalLogger(logger)
	return logger, nil
}

// fatalWithSync flushes the logger before exiting.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	_ = logger.Sync()
	logger.Fatal(msg, fields...)
}
