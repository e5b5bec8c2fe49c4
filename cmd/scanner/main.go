package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lmittmann/tint"

	"github.com/davidbmar/youtube-commercial-detector/internal/cleanup"
	"github.com/davidbmar/youtube-commercial-detector/internal/config"
	"github.com/davidbmar/youtube-commercial-detector/internal/media"
	"github.com/davidbmar/youtube-commercial-detector/internal/queue"
	"github.com/davidbmar/youtube-commercial-detector/internal/storage"
	"github.com/davidbmar/youtube-commercial-detector/internal/transcribe"
	"github.com/davidbmar/youtube-commercial-detector/internal/types"
	"github.com/davidbmar/youtube-commercial-detector/internal/worker"
)

func main() {
	var (
		configPath string
		phrase     string
		batchSize  int
		queueURL   string
		region     string
		bucket     string
		mode       string
		device     string
	)

	flag.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config file")
	flag.StringVar(&phrase, "phrase", "", "Phrase to search for (overrides config)")
	flag.IntVar(&batchSize, "batch-size", 0, "Videos to process in one batch (overrides config)")
	flag.StringVar(&queueURL, "queue-url", "", "SQS queue URL (overrides config)")
	flag.StringVar(&region, "region", "", "AWS region (overrides config)")
	flag.StringVar(&bucket, "bucket", "", "S3 bucket for transcripts and results (overrides config)")
	flag.StringVar(&mode, "mode", "", "Segmentation mode: fixed|sliding (overrides config)")
	flag.StringVar(&device, "device", "", "Transcription device: cpu|cuda (overrides config)")
	flag.Parse()

	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: "15:04:05",
		}),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if phrase != "" {
		cfg.Scanner.Phrase = phrase
	}
	if batchSize > 0 {
		cfg.Scanner.BatchSize = batchSize
	}
	if queueURL != "" {
		cfg.Queue.URL = queueURL
	}
	if region != "" {
		cfg.Storage.Region = region
	}
	if bucket != "" {
		cfg.Storage.Bucket = bucket
	}
	if mode != "" {
		cfg.Segmentation.Mode = mode
	}
	if device != "" {
		cfg.Transcriber.Device = device
	}
	cfg.ApplyMode()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Queue.URL == "" {
		logger.Error("no queue URL configured, nothing to consume")
		os.Exit(1)
	}

	ctx := context.Background()

	// Scratch space: make sure it exists, reclaim leftovers from crashes.
	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		logger.Error("failed to prepare scratch directory", "error", err)
		os.Exit(1)
	}
	cleanup.SweepStale(cfg.Storage.TempDir, 24*time.Hour, logger)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
	if err != nil {
		logger.Error("failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	// Result store: S3 in production, local directory for offline runs.
	var store storage.ResultStore
	switch cfg.Storage.Backend {
	case "local":
		store = storage.NewLocalStore(cfg.Storage.LocalRoot, cfg.Storage.TranscriptsPrefix, cfg.Storage.ResultsPrefix)
		logger.Info("using local result store", "root", cfg.Storage.LocalRoot)
	default:
		s3Store := storage.NewS3Store(
			s3.NewFromConfig(awsCfg),
			cfg.Storage.Bucket,
			cfg.Storage.Region,
			cfg.Storage.TranscriptsPrefix,
			cfg.Storage.ResultsPrefix,
			logger,
		)
		if err := s3Store.EnsureBucket(ctx); err != nil {
			logger.Error("failed to provision bucket", "error", err)
			os.Exit(1)
		}
		store = s3Store
	}

	// Transcription provider, verified before any queue consumption so the
	// worker never starts half-initialized.
	var provider transcribe.Provider
	switch cfg.Transcriber.Provider {
	case "local":
		provider = transcribe.NewLocalWhisper(cfg.Transcriber.Model, cfg.Transcriber.Device)
	default:
		provider = transcribe.NewHTTPProvider(cfg.Transcriber.Endpoint, time.Duration(cfg.Transcriber.TimeoutSeconds)*time.Second)
	}
	logger.Info("initializing transcription provider", "provider", provider.Name())
	if err := provider.Ping(ctx); err != nil {
		logger.Error("transcription provider failed to initialize", "provider", provider.Name(), "error", err)
		os.Exit(1)
	}
	transcriber := transcribe.NewRetrier(provider, cfg.Transcriber.Retries, cfg.Transcriber.BackoffFactor, logger)

	queueClient := queue.NewClient(
		sqs.NewFromConfig(awsCfg),
		cfg.Queue.URL,
		cfg.Queue.WaitSeconds,
		cfg.Queue.VisibilitySeconds,
		cfg.Queue.AckPolicy,
		logger,
	)

	ledger, err := storage.OpenLedger(cfg.Storage.Database)
	if err != nil {
		logger.Error("failed to open outcome ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	if cfg.Server.Addr != "" {
		go serveStatus(cfg.Server.Addr, ledger, logger)
	}

	orchestrator := worker.New(
		queueClient,
		store,
		media.NewTools(logger),
		transcriber,
		ledger,
		worker.Options{
			BatchSize:      cfg.Scanner.BatchSize,
			DefaultPhrase:  cfg.Scanner.Phrase,
			SegmentSeconds: cfg.Segmentation.SegmentSeconds,
			OverlapSeconds: cfg.Segmentation.OverlapSeconds,
			LanguageHint:   cfg.Scanner.LanguageHint,
			TempDir:        cfg.Storage.TempDir,
		},
		logger,
	)

	logger.Info("starting batch processing",
		"batch_size", cfg.Scanner.BatchSize,
		"phrase", cfg.Scanner.Phrase,
		"segment_seconds", cfg.Segmentation.SegmentSeconds,
		"overlap_seconds", cfg.Segmentation.OverlapSeconds,
		"ack_policy", cfg.Queue.AckPolicy)
	summary := orchestrator.ProcessBatch(ctx)
	printSummary(summary, logger)
}

// printSummary logs the batch outcome, one line per video plus the
// occurrence-by-minute breakdown.
func printSummary(summary worker.Summary, logger *slog.Logger) {
	logger.Info("batch processing summary",
		"processed", len(summary.Results),
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	for i, result := range summary.Results {
		logger.Info(fmt.Sprintf("video %d: %s (%s)", i+1, result.VideoID, result.YouTubeURL),
			"phrase", result.Phrase,
			"duration_min", fmt.Sprintf("%.2f", result.DurationMinutes),
			"total_occurrences", result.TotalOccurrences)
		if len(result.Occurrences) == 0 {
			logger.Info("no occurrences found", "video_id", result.VideoID)
			continue
		}
		for _, occ := range result.Occurrences {
			logger.Info("occurrences by minute",
				"video_id", result.VideoID,
				"minute", occ.Minute,
				"count", occ.Occurrences)
		}
	}
}

// serveStatus exposes the health probe and recent ledger outcomes while
// the batch runs.
func serveStatus(addr string, ledger *storage.Ledger, logger *slog.Logger) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		outcomes, err := ledger.Recent(50)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		counts := map[string]int{}
		for _, o := range outcomes {
			counts[o.Status]++
		}
		return c.JSON(fiber.Map{
			"recent":    outcomes,
			"processed": counts[types.OutcomeProcessed],
			"skipped":   counts[types.OutcomeSkipped],
			"failed":    counts[types.OutcomeFailed],
		})
	})

	logger.Info("status endpoint listening", "addr", addr)
	if err := app.Listen(addr); err != nil {
		logger.Error("status endpoint failed", "error", err)
	}
}
