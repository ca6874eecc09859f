package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/footfall-dashboard/pkg/config"
	"github.com/angelmondragon/footfall-dashboard/pkg/env"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "snapshot"})

	_ = godotenv.Load()

	kind := flag.String("kind", "store", "location kind: store|city|region|global")
	id := flag.String("id", "", "location id (defaults to the first listed option)")
	preset := flag.String("preset", "", "date preset: today|yesterday|7days|30days|90days|ytd")
	from := flag.String("from", "", "custom range start (YYYY-MM-DD)")
	to := flag.String("to", "", "custom range end (YYYY-MM-DD)")
	list := flag.Bool("list", false, "print the options of -kind and exit")
	pretty := flag.Bool("pretty", env.Bool("FOOTFALL_SNAPSHOT_PRETTY", false), "indent the JSON output")

	flag.Parse()

	cfg, err := config.LoadReport()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "snapshot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"kind": *kind,
	})

	opts := runOptions{
		Kind:   *kind,
		ID:     *id,
		Preset: *preset,
		From:   *from,
		To:     *to,
		List:   *list,
		Pretty: *pretty,
	}
	if err := run(ctx, os.Stdout, cfg, opts, logg); err != nil {
		fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
