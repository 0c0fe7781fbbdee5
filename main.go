package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/auth"
	"github.com/slatedata/querykit/pkg/cli"
	"github.com/slatedata/querykit/pkg/config"
	"github.com/slatedata/querykit/pkg/history"
	"github.com/slatedata/querykit/pkg/logging"
	"github.com/slatedata/querykit/pkg/repositories"
	"github.com/slatedata/querykit/pkg/scheduler"
	"github.com/slatedata/querykit/pkg/services"
	"github.com/slatedata/querykit/pkg/tableau"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data dir", zap.String("dir", cfg.DataDir), zap.Error(err))
	}

	client := tableau.NewClient(tableau.Config{
		BaseURL:        cfg.ServerURL,
		APIVersion:     cfg.APIVersion,
		SiteContentURL: cfg.SiteContentURL,
		TokenName:      cfg.TokenName,
		TokenSecret:    cfg.TokenSecret,
	}, logger)

	creds := auth.NewCredentialCache(client.SignIn, logger,
		auth.WithRefreshInterval(cfg.RefreshInterval()))
	defer creds.Stop()

	runLedger, err := history.Open(cfg.DataDir)
	if err != nil {
		logger.Fatal("failed to open run ledger", zap.Error(err))
	}
	defer runLedger.Close()

	runs := services.NewRunService(&services.RunServiceDeps{
		API:         client,
		Credentials: creds,
		History:     runLedger,
		Logger:      logger,
	})

	engine := scheduler.New(logger, runs.RunScheduled)
	defer engine.Stop()

	app := &cli.App{
		Metadata: services.NewMetadataService(&services.MetadataServiceDeps{
			API:         client,
			Credentials: creds,
			Logger:      logger,
		}),
		Queries: services.NewQueryService(
			repositories.NewQueryRepository(cfg.DataDir), logger),
		Schedules: services.NewScheduleService(&services.ScheduleServiceDeps{
			Repo:   repositories.NewScheduleRepository(cfg.DataDir),
			Engine: engine,
			Logger: logger,
		}),
		Runs:      runs,
		Refresher: creds,
		History:   runLedger,
		Logger:    logger,
	}

	root := cli.New(app)
	root.Version = Version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
