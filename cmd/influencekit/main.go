package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"influencekit/internal/cmdlog"
	"influencekit/internal/config"
	"influencekit/internal/logging"
	"influencekit/internal/metrics"
	"influencekit/internal/store/followerdb"
	"influencekit/internal/theme"
	"influencekit/internal/xclient"
)

const defaultConfigPath = "./influencekit.yaml"

func main() {
	_ = godotenv.Load()

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	commands := map[string]func(context.Context, []string) error{
		"init":             cmdInit,
		"run":              cmdRun,
		"rebuildFollowers": cmdRebuildFollowers,
		"status":           cmdStatus,
		"stats":            cmdStats,
	}
	f, ok := commands[cmd]
	if !ok {
		printHelp()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := f(ctx, os.Args[2:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: influencekit <command> [--config path] [args]")
	fmt.Println("Commands:")
	fmt.Println("  init [--path p]               Write a default config file")
	fmt.Println("  run <campaign.json | json>    Run a DM campaign, building the follower cache first if needed")
	fmt.Println("  rebuildFollowers [handle]     Recrawl the followers of handle (default: your account)")
	fmt.Println("  status [handle]               Show follower cache status")
	fmt.Println("  stats [--dry-run] <campaign>  Hourly sends over the last 24h")
}

// app is the wiring shared by every command but init.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	db     *followerdb.DB
	client *xclient.Client
}

func loadApp(configPath string, needAPI bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		err = cfg.ResolveEnv()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if needAPI {
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, log: logging.New(cfg.Log.Level, cfg.Log.Pretty)}
	metrics.StartServer(cfg.Metrics.Addr)

	a.db, err = followerdb.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	if needAPI {
		a.client = xclient.New(xclient.Config{
			BaseURL: cfg.API.BaseURL,
			Credentials: xclient.Credentials{
				ConsumerKey:    cfg.Credentials.ConsumerKey,
				ConsumerSecret: cfg.Credentials.ConsumerSecret,
				AccessToken:    cfg.Credentials.AccessToken,
				AccessSecret:   cfg.Credentials.AccessSecret,
			},
			RequestsPerSecond: cfg.API.RequestsPerSecond,
			Burst:             cfg.API.Burst,
			MaxAttempts:       cfg.API.MaxAttempts,
			BaseBackoff:       cfg.API.BaseBackoff(),
		}, a.log)
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Error().Err(err).Msg("db_close_error")
	}
}

// run wraps a command body with metrics and outcome logging.
func (a *app) run(name string, f func() error) error {
	return cmdlog.Run(a.log, name, f)
}

// parseArgs parses flags that may appear before or after positional arguments.
func parseArgs(fset *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fset.Parse(args); err != nil {
			return nil, err
		}
		rest := fset.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}
