package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"psa-scraper/config"
	"psa-scraper/scraper/ebay"
	"psa-scraper/services"
	"psa-scraper/storage"
	"psa-scraper/utils"
)

// discovererFunc builds the discovery stage from the shared HTTP pieces.
type discovererFunc func(c *config.Config, deps *pipelineDeps) services.Discoverer

type pipelineDeps struct {
	http  *resty.Client
	retry *utils.RetryConfig
}

// runPipeline wires sinks, fetcher and downloader around a discovery stage
// and runs one dataset build.
func runPipeline(ctx context.Context, c *config.Config, newDiscoverer discovererFunc) error {
	logger.Info("=== PSA dataset builder starting (%s layout) ===", c.Layout)
	logger.Info("Config — out: %s | csv: %s | images: %s (max %d) | concurrency: %d | throttle: %d-%dms",
		c.OutputDir, c.CSVOutputPath, c.ImageMode, c.MaxImages, c.DownloadConcurrency, c.ThrottleMinMs, c.ThrottleMaxMs)

	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	layout, err := storage.NewLayout(c)
	if err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(c.CSVOutputPath, c.Layout)
	if err != nil {
		return fmt.Errorf("create CSV writer: %w", err)
	}
	sinks := storage.MultiWriter{csvWriter}

	var pgWriter *storage.PostgresWriter
	if c.PostgresEnabled {
		pgWriter, err = storage.NewPostgresWriter(c.DSN())
		if err != nil {
			csvWriter.Close()
			logger.Error("Make sure PostgreSQL is running: docker compose up -d")
			return fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		sinks = append(sinks, pgWriter)
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn("Closing sinks: %v", err)
		}
	}()

	var mirror storage.ImageMirror
	if c.S3Bucket != "" {
		s3Mirror, err := storage.NewS3MirrorFromConfig(ctx, c)
		if err != nil {
			return err
		}
		mirror = s3Mirror
		logger.Info("Mirroring images to s3://%s/%s", c.S3Bucket, c.S3Prefix)
	}

	limiter := utils.NewHostLimiter(time.Duration(c.HostIntervalMs)*time.Millisecond, 1)
	client := ebay.NewHTTPClient(c, limiter)
	retry := &utils.RetryConfig{
		MaxAttempts: c.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	}

	assembler := services.NewAssembler(c,
		newDiscoverer(c, &pipelineDeps{http: client, retry: retry}),
		ebay.NewDetailFetcher(client, layout, retry, logger),
		services.NewDownloader(client, c, mirror, logger),
		layout, sinks, logger,
	)

	records, runErr := assembler.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if len(records) == 0 {
		logger.Warn("No listings were saved.")
	}

	reportOn := records
	if pgWriter != nil {
		if all, err := pgWriter.FetchAll(); err != nil {
			logger.Error("Failed to fetch records from DB for the summary: %v", err)
		} else {
			reportOn = all
		}
	}
	reports := services.NewReportService(logger, os.Stdout)
	reports.Print(reports.Generate(reportOn))

	fmt.Printf("  Done. Images → %s | CSV → %s\n\n", c.OutputDir, c.CSVOutputPath)
	return nil
}
