// Package main provides a CLI that migrates the mission database, seeds the
// mission catalog and optionally provisions a user.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AccelByte/extend-mission-common/pkg/cache"
	"github.com/AccelByte/extend-mission-common/pkg/config"
	"github.com/AccelByte/extend-mission-common/pkg/db"
	"github.com/AccelByte/extend-mission-common/pkg/provision"
	"github.com/AccelByte/extend-mission-common/pkg/repository"
	"github.com/AccelByte/extend-mission-common/pkg/telemetry"
)

type options struct {
	catalogPath string
	userID      string
	placeIDs    []string
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	var (
		opts   options
		places string
	)
	fs.StringVar(&opts.catalogPath, "catalog", "missions.yaml", "path to the mission catalog (JSON or YAML)")
	fs.StringVar(&opts.userID, "user", "", "user to provision after seeding (optional)")
	fs.StringVar(&places, "places", "", "comma-separated place IDs for spot missions")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.catalogPath == "" {
		return nil, errors.New("-catalog is required")
	}
	if places != "" && opts.userID == "" {
		return nil, errors.New("-places requires -user")
	}

	for _, p := range strings.Split(places, ",") {
		if p = strings.TrimSpace(p); p != "" {
			opts.placeIDs = append(opts.placeIDs, p)
		}
	}
	return &opts, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger, os.Stdout); err != nil {
		logger.Error("Seeder failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options, logger *slog.Logger, out io.Writer) error {
	otelCfg, err := telemetry.NewConfigFromEnv()
	if err != nil {
		return err
	}
	shutdown, err := telemetry.Setup(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	dbCfg, err := db.NewConfigFromEnv()
	if err != nil {
		return err
	}
	conn, err := db.Open(dbCfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, dbCfg.Driver); err != nil {
		return err
	}

	catalog, err := config.NewConfigLoader(opts.catalogPath, logger).LoadConfig()
	if err != nil {
		return err
	}
	missions := cache.NewInMemoryMissionCache(catalog, logger)

	store, err := repository.NewSQLStore(conn, dbCfg.Driver)
	if err != nil {
		return err
	}
	provisioner := provision.NewProvisioner(provision.Stores{
		Templates: store,
		Progress:  store,
		Levels:    store,
		Badges:    store,
	}, logger)

	if err := provisioner.SeedCatalog(ctx, catalog); err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d missions, %d badges\n", len(catalog.Missions), len(catalog.Badges))

	if opts.userID == "" {
		return nil
	}

	result, err := provisioner.ProvisionUser(ctx, opts.userID, opts.placeIDs, missions.GetBadgeDefinitions())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "provisioned %s: %d progress records, %d badge keys\n", result.UserID, result.Records, result.BadgeKeys)
	return nil
}
