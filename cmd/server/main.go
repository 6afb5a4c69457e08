package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bluefin-ops/healthdeck/internal/api"
	"github.com/bluefin-ops/healthdeck/internal/cache"
	"github.com/bluefin-ops/healthdeck/internal/models"
	"github.com/bluefin-ops/healthdeck/internal/normalize"
	"github.com/bluefin-ops/healthdeck/internal/source"
	"github.com/bluefin-ops/healthdeck/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "healthdeck-server",
	Short: "healthdeck - application health dashboard backend",
	Long: `healthdeck serves application health signals - support alerts and
workflow-run telemetry - to on-call dashboards, with TTL-cached loads
from both remote sources.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.VersionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	// Optional .env for local development; secrets still come from the
	// process environment either way.
	_ = godotenv.Load()

	var cfg *Config
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	secrets, err := loadSecrets()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Severity labels: built-in defaults, optionally overridden by a
	// hot-reloaded labels file.
	severity := models.DefaultSeverityLevels()
	if cfg.SeverityLabelsFile != "" {
		labels, err := loadSeverityLabels(cfg.SeverityLabelsFile)
		if err != nil {
			return err
		}
		severity.Replace(labels)
		if err := watchSeverityLabels(ctx, cfg.SeverityLabelsFile, severity); err != nil {
			return err
		}
	}

	tableClient, err := source.NewTableClient(source.TableConfig{
		ConnectionString: secrets.StorageConnectionString,
		TableName:        secrets.TableName,
	})
	if err != nil {
		return fmt.Errorf("table source: %w", err)
	}

	queryClient, err := source.NewQueryClient(source.QueryConfig{
		BaseURL: cfg.Query.BaseURL,
		AppID:   secrets.InsightsAppID,
		APIKey:  secrets.InsightsAPIKey,
		Timeout: cfg.Query.Timeout,
	})
	if err != nil {
		return fmt.Errorf("query source: %w", err)
	}
	flowRunQuery := source.FlowRunQuery(secrets.EnvironmentID)

	norm := normalize.New(severity)

	loader := cache.New(cfg.Cache.TTL)
	loader.Register(models.SourceAlerts, func(ctx context.Context) (*models.Table, error) {
		entities, err := tableClient.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		return norm.Alerts(entities), nil
	})
	loader.Register(models.SourceFlowRuns, func(ctx context.Context) (*models.Table, error) {
		result, err := queryClient.Fetch(ctx, flowRunQuery)
		if err != nil {
			return nil, err
		}
		return norm.FlowRuns(result), nil
	})

	server, err := api.New(&api.Config{
		Address:        cfg.Server.Address,
		RequestTimeout: cfg.Server.RequestTimeout,
		RecentLimit:    cfg.Server.RecentLimit,
		Verbose:        cfg.Verbose,
	}, loader, severity)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	log.Printf("healthdeck-server %s starting (cache ttl %s)", config.Version, cfg.Cache.TTL)
	return server.Run(ctx)
}
