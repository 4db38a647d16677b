package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/deadpool-game/migrator/internal/adapter"
	"github.com/deadpool-game/migrator/internal/breaker"
	"github.com/deadpool-game/migrator/internal/checkpoint"
	"github.com/deadpool-game/migrator/internal/config"
	"github.com/deadpool-game/migrator/internal/domain"
	"github.com/deadpool-game/migrator/internal/gateway"
	"github.com/deadpool-game/migrator/internal/logger"
	"github.com/deadpool-game/migrator/internal/migrator"
	"github.com/deadpool-game/migrator/internal/ratelimit"
	"github.com/deadpool-game/migrator/internal/retry"
	"github.com/deadpool-game/migrator/internal/rule"
	"github.com/deadpool-game/migrator/internal/store"
	"github.com/deadpool-game/migrator/internal/validator"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file")
	envPath      = flag.String("env", "config/", "Path to environment files")
	dryRun       = flag.Bool("dry-run", false, "Report what would be migrated without writing")
	verbose      = flag.Bool("verbose", false, "Enable debug logging")
	tableName    = flag.String("table-name", "", "Override the configured table name")
	validateOnly = flag.Bool("validate-only", false, "Run validation checks against an existing migration and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadMigratorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if *verbose {
		cfg.Debug = true
	}
	if *tableName != "" {
		cfg.Store.TableName = *tableName
	}

	// Create context canceled on SIGINT/SIGTERM so an interrupted run
	// checkpoints before exiting
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "migrator",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Migrator",
		zap.String("table", cfg.Store.TableName),
		zap.Int("source_year", cfg.Migration.SourceYear),
		zap.Int("destination_year", cfg.Migration.DestinationYear),
		zap.Bool("dry_run", *dryRun),
		zap.Bool("validate_only", *validateOnly),
	)

	// Connect to DynamoDB
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Store.Region))
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load AWS config", zap.Error(err))
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Store.Endpoint != "" {
			o.BaseEndpoint = &cfg.Store.Endpoint
		}
	})

	// Initialize clock adapter
	clock := adapter.NewClock()

	// Initialize monitor; the retry policy feeds its throttle counter
	monitor := migrator.NewMonitor(clock)

	// Wrap the raw gateway with retry and circuit breaking
	policy := &retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		OnThrottle:  monitor.RecordThrottle,
	}
	br := breaker.New("dynamodb", breaker.Settings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
	})
	limiter := ratelimit.New(cfg.Limiter.MaxInFlight, cfg.Limiter.RequestsPerSecond, cfg.Limiter.Burst)
	limited := gateway.NewLimited(gateway.NewDynamoDB(client, cfg.Store.TableName), limiter)
	gw := gateway.NewResilient(limited, policy, br)

	// Initialize store
	dataStore := store.New(gw)

	// Initialize eligibility rules and validator
	sourceRule := rule.YearRule{SourceYear: cfg.Migration.SourceYear}
	destRule := rule.YearRule{SourceYear: cfg.Migration.DestinationYear}
	val := validator.New(validator.Options{
		SourceYear:      cfg.Migration.SourceYear,
		DestinationYear: cfg.Migration.DestinationYear,
		CapacityLimit:   cfg.Migration.CapacityLimit,
	}, dataStore, sourceRule, destRule)

	if *validateOnly {
		report := val.Run(ctx, true)
		logValidationReport(ctx, report)
		logger.Flush(2 * time.Second)
		if !report.Passed() {
			os.Exit(1)
		}
		return
	}

	// Initialize checkpoint store
	checkpoints := checkpoint.NewFileStore(cfg.Checkpoint.Path)

	m := migrator.New(migrator.Options{
		SourceYear:      cfg.Migration.SourceYear,
		DestinationYear: cfg.Migration.DestinationYear,
		CapacityLimit:   cfg.Migration.CapacityLimit,
		Timestamp:       cfg.Migration.MigrationTimestamp(),
		DryRun:          *dryRun,
		PoolSize:        cfg.Worker.PoolSize,
		QueueSize:       cfg.Worker.QueueSize,
		SaveEvery:       cfg.Checkpoint.SaveEvery,
	}, dataStore, sourceRule, checkpoints, val, monitor, clock)

	meta, err := m.Run(ctx)
	if err != nil {
		logger.ErrorCtx(ctx, err)
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}

	logger.InfoCtx(ctx, "Migration finished",
		zap.String("run_id", meta.RunID),
		zap.String("status", string(meta.Status)),
		zap.Int("errors", meta.ErrorCount),
	)
	if meta.Status != domain.RunStatusCompleted {
		logger.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func logValidationReport(ctx context.Context, report *validator.Report) {
	for _, result := range report.Results {
		for _, msg := range result.Errors {
			logger.ErrorCtx(ctx, fmt.Errorf("validation [%s]: %s", result.Name, msg))
		}
		for _, msg := range result.Warnings {
			logger.WarnCtx(ctx, "Validation warning",
				zap.String("check", result.Name),
				zap.String("detail", msg),
			)
		}
		for _, msg := range result.Info {
			logger.DebugCtx(ctx, "Validation detail",
				zap.String("check", result.Name),
				zap.String("detail", msg),
			)
		}
	}
	logger.InfoCtx(ctx, "Validation report",
		zap.Int("checks", len(report.Results)),
		zap.Int("errors", report.ErrorCount()),
		zap.Int("warnings", report.WarningCount()),
	)
}
