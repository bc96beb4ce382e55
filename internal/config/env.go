package config

import (
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// HTTPConfig controls the server and request limits.
type HTTPConfig struct {
    Port              string
    MaxUploadMB       int64
    ReadTimeout       time.Duration
    WriteTimeout      time.Duration
    MaxConcurrentJobs int
    JobSlotWait       time.Duration
}

// SplitConfig holds the defaults used when a request leaves a field blank.
type SplitConfig struct {
    Mode        string
    ChunkSize   int
    OddEven     string
    Suffix      string
    ArchiveName string
    ZipLevel    int
}

// StorageConfig controls fetching source documents by reference.
type StorageConfig struct {
    S3Region        string
    S3Bucket        string
    AccessKeyID     string
    SecretAccessKey string
    FetchTimeout    time.Duration
    AllowFileRefs   bool
}

// RedisConfig controls the optional job record store.
type RedisConfig struct {
    URL       string
    RecordTTL time.Duration
}

// PreviewConfig controls page rendering.
type PreviewConfig struct {
    DPI     int
    MaxDPI  int
    Quality int
}

// WebConfig guards the upload form. Both fields empty disables login.
type WebConfig struct {
    Username string
    Password string
}

// Config is the top-level configuration.
type Config struct {
    Logging LoggingConfig
    Axiom   AxiomConfig
    HTTP    HTTPConfig
    Split   SplitConfig
    Storage StorageConfig
    Redis   RedisConfig
    Preview PreviewConfig
    Web     WebConfig
}

// FromEnv loads configuration from environment with sensible defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func FromEnv() Config {
    _ = godotenv.Load()

    cfg := Config{}

    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/pdfsplitter.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_pdfsplitter",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    cfg.HTTP = HTTPConfig{
        Port:              getEnv("PORT", "8080"),
        MaxUploadMB:       int64(parseInt(getEnv("MAX_UPLOAD_MB", "64"), 64)),
        ReadTimeout:       parseDuration(getEnv("HTTP_READ_TIMEOUT", "60s"), 60*time.Second),
        WriteTimeout:      parseDuration(getEnv("HTTP_WRITE_TIMEOUT", "5m"), 5*time.Minute),
        MaxConcurrentJobs: parseInt(getEnv("MAX_CONCURRENT_JOBS", "1"), 1),
        JobSlotWait:       parseDuration(getEnv("JOB_SLOT_WAIT", "30s"), 30*time.Second),
    }
    if cfg.HTTP.MaxUploadMB <= 0 { cfg.HTTP.MaxUploadMB = 64 }

    cfg.Split = SplitConfig{
        Mode:        getEnv("DEFAULT_MODE", "each_page"),
        ChunkSize:   parseInt(getEnv("DEFAULT_CHUNK_SIZE", "5"), 5),
        OddEven:     getEnv("DEFAULT_ODD_EVEN", "odd"),
        Suffix:      getEnv("DEFAULT_SUFFIX", "split"),
        ArchiveName: getEnv("DEFAULT_ARCHIVE_NAME", "result.zip"),
        ZipLevel:    parseInt(getEnv("ZIP_LEVEL", "0"), 0),
    }

    cfg.Storage = StorageConfig{
        S3Region:        getEnv("AWS_REGION", ""),
        S3Bucket:        getEnv("AWS_S3_BUCKET", ""),
        AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
        SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
        FetchTimeout:    parseDuration(getEnv("FETCH_TIMEOUT", "60s"), 60*time.Second),
        AllowFileRefs:   parseBool(getEnv("ALLOW_FILE_REFS", "false")),
    }

    cfg.Redis = RedisConfig{
        URL:       getEnv("REDIS_URL", ""),
        RecordTTL: parseDuration(getEnv("JOB_RECORD_TTL", "24h"), 24*time.Hour),
    }

    cfg.Preview = PreviewConfig{
        DPI:     parseInt(getEnv("PREVIEW_DPI", "72"), 72),
        MaxDPI:  parseInt(getEnv("PREVIEW_MAX_DPI", "200"), 200),
        Quality: parseInt(getEnv("PREVIEW_QUALITY", "80"), 80),
    }

    cfg.Web = WebConfig{
        Username: getEnv("WEB_USERNAME", ""),
        Password: getEnv("WEB_PASSWORD", ""),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
