package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	LayoutProduct = "product"
	LayoutGrade   = "grade"

	ImageModeSingle = "single"
	ImageModeMulti  = "multi"
)

// Config holds all settings for one pipeline run. It is built once by Load,
// optionally overridden by CLI flags, and passed to every constructor.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	S3Bucket       string
	S3Prefix       string
	AWSRegion      string
	AWSEndpointURL string

	BaseURL     string
	CategoryURL string
	SearchURL   string
	SearchQuery string
	GradeParam  string
	Grades      []int
	MaxPages    int
	MaxResults  int

	Layout         string
	ImageMode      string
	MaxImages      int
	MinImageWidth  int
	MinImageHeight int
	DedupeListings bool

	DownloadConcurrency int
	HostIntervalMs      int
	ThrottleMinMs       int
	ThrottleMaxMs       int
	MaxRetries          int
	HTTPTimeout         time.Duration

	SettleMs       int
	ReadyTimeoutMs int
	ChromeBin      string
	Headless       bool

	OutputDir     string
	CSVOutputPath string
	Debug         bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "card_dataset"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Prefix:       getEnv("S3_PREFIX", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),

		BaseURL: getEnv("BASE_URL", "https://www.ebay.com"),
		CategoryURL: getEnv("CATEGORY_URL",
			"https://www.ebay.com/b/Pokemon-TCG-Professional-Sports-Authenticator-PSA-Individual-Trading-Card-Games/183454/bn_55173600?_pgn={page}"),
		SearchURL:   getEnv("SEARCH_URL", "https://www.ebay.com/sch/i.html"),
		SearchQuery: getEnv("SEARCH_QUERY", "pokemon psa"),
		GradeParam:  getEnv("GRADE_PARAM", "Grade"),
		Grades:      getEnvInts("GRADES", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}),
		MaxPages:    getEnvInt("MAX_PAGES", 2),
		MaxResults:  getEnvInt("MAX_RESULTS", 50),

		Layout:         getEnv("LAYOUT", LayoutProduct),
		ImageMode:      getEnv("IMAGE_MODE", ImageModeMulti),
		MaxImages:      getEnvInt("MAX_IMAGES", 0),
		MinImageWidth:  getEnvInt("MIN_IMAGE_WIDTH", 300),
		MinImageHeight: getEnvInt("MIN_IMAGE_HEIGHT", 300),
		DedupeListings: getEnvBool("DEDUPE_LISTINGS", true),

		DownloadConcurrency: getEnvInt("DOWNLOAD_CONCURRENCY", 1),
		HostIntervalMs:      getEnvInt("HOST_INTERVAL_MS", 500),
		ThrottleMinMs:       getEnvInt("THROTTLE_MIN_MS", 2000),
		ThrottleMaxMs:       getEnvInt("THROTTLE_MAX_MS", 5000),
		MaxRetries:          getEnvInt("MAX_RETRIES", 3),
		HTTPTimeout:         getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		SettleMs:       getEnvInt("SETTLE_MS", 5000),
		ReadyTimeoutMs: getEnvInt("READY_TIMEOUT_MS", 15000),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		Headless:       getEnvBool("HEADLESS", true),

		OutputDir:     getEnv("OUTPUT_DIR", "./ebay_pokemon_psa"),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./ebay_pokemon_psa_data.csv"),
		Debug:         strings.EqualFold(getEnv("LOG_LEVEL", "info"), "debug"),
	}
}

// Validate reports the first setting that cannot drive a run.
func (c *Config) Validate() error {
	switch c.Layout {
	case LayoutProduct, LayoutGrade:
	default:
		return fmt.Errorf("config: unknown layout %q (use %q or %q)", c.Layout, LayoutProduct, LayoutGrade)
	}
	switch c.ImageMode {
	case ImageModeSingle, ImageModeMulti:
	default:
		return fmt.Errorf("config: unknown image mode %q (use %q or %q)", c.ImageMode, ImageModeSingle, ImageModeMulti)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("config: BASE_URL is required")
	}
	if c.MaxPages < 0 || c.MaxResults < 0 || c.MaxImages < 0 {
		return fmt.Errorf("config: page, result and image limits must not be negative")
	}
	if c.MinImageWidth < 0 || c.MinImageHeight < 0 {
		return fmt.Errorf("config: minimum image dimensions must not be negative")
	}
	if c.ThrottleMinMs < 0 || c.ThrottleMaxMs < c.ThrottleMinMs {
		return fmt.Errorf("config: throttle range [%d, %d]ms is invalid", c.ThrottleMinMs, c.ThrottleMaxMs)
	}
	if c.DownloadConcurrency < 1 {
		return fmt.Errorf("config: DOWNLOAD_CONCURRENCY must be at least 1")
	}
	for _, g := range c.Grades {
		if g < 0 || g > 10 {
			return fmt.Errorf("config: grade %d outside 0..10", g)
		}
	}
	return nil
}

// ItemPrefix is the absolute URL prefix every listing reference starts with.
func (c *Config) ItemPrefix() string {
	return strings.TrimRight(c.BaseURL, "/") + "/itm/"
}

func (c *Config) ThrottleRange() (time.Duration, time.Duration) {
	return time.Duration(c.ThrottleMinMs) * time.Millisecond, time.Duration(c.ThrottleMaxMs) * time.Millisecond
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

// getEnvInts parses a comma-separated list; a malformed list falls back.
func getEnvInts(key string, fallback []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []int
	for _, part := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, n)
	}
	return out
}
