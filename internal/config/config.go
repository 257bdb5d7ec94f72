// Package config loads all runtime configuration from the environment:
// .env via godotenv, typed getEnv helpers, and a validate pass that
// collects every missing required field before returning one aggregate
// error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DB        DBConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Webhook   WebhookConfig
	Upload    UploadConfig
	Telemetry TelemetryConfig
	Capacity  CapacityConfig
	Analytics AnalyticsConfig
	LogLevel  string

	// Plugins holds the task-handler manifests loaded from config/plugins/,
	// keyed by plugin name.
	Plugins map[string]*PluginConfig
}

// PluginConfig describes one external task-handler plugin the queue
// dispatches to (transcription, moderation, description generation).
// The handler implementations live outside this module; one YAML
// manifest per plugin under config/plugins/ declares the wiring.
type PluginConfig struct {
	Name      string            `yaml:"name"`
	TaskType  string            `yaml:"task_type"`
	Enabled   bool              `yaml:"enabled"`
	RateLimit RateLimit         `yaml:"rate_limit"`
	Settings  map[string]string `yaml:"settings"`
}

type DBConfig struct {
	ConnString string
}

type StorageBackend string

const (
	StorageBackendLocal StorageBackend = "local"
	StorageBackendS3    StorageBackend = "s3"
)

type StorageConfig struct {
	Backend         StorageBackend
	LocalRoot       string
	LocalPublicURL  string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKeyID   string
	S3SecretKey     string
	S3PresignExpiry time.Duration
}

type QueueConfig struct {
	MaxWorkers            int
	PollInterval          time.Duration
	StaleTaskReapInterval time.Duration
	StaleTaskGracePeriod  time.Duration
	RateLimits            map[string]RateLimit

	// SweepCronExpr, if set, schedules the recurring sweep tasks via a
	// standard five-field cron expression instead of SweepInterval.
	SweepCronExpr string
	SweepInterval time.Duration
}

type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

type WebhookConfig struct {
	MaxConcurrentDeliveries int
	DeliveryTimeout         time.Duration
	RetryPollInterval       time.Duration
	SSRFAllowedHosts        []string
}

type UploadConfig struct {
	ClamAVFailClosed      bool
	SemanticSearchEnabled bool
	ModerationEnabled     bool
}

// CapacityConfig drives the disk/memory/CPU checks; each numeric check
// carries its own fail-or-warn policy. Zero thresholds disable a check.
type CapacityConfig struct {
	MinFreeDiskBytes uint64
	MaxMemoryPercent float64
	MaxCPUPercent    float64
	DiskPolicy       string
	MemoryPolicy     string
	CPUPolicy        string
	CheckInterval    time.Duration
}

// AnalyticsConfig bounds the in-memory analytics buffer; overflow drops.
type AnalyticsConfig struct {
	BufferSize    int
	FlushInterval time.Duration
}

// TelemetryConfig covers the wide-event tail-sampling toggles: keep all
// server errors, optionally client errors, slow requests over threshold,
// VIP tenants, allow-listed paths, else a deterministic sampled fraction.
type TelemetryConfig struct {
	Environment      string
	SlowThresholdMS  int
	SampleRate       float64
	KeepClientErrors bool
	VIPTenantIDs     map[string]bool
	KeepPaths        map[string]bool
	AlwaysKeep       bool
}

// Production reports whether error responses must hide details
// (ENVIRONMENT/APP_ENV set to "production").
func (c *Config) Production() bool {
	return c.Telemetry.Environment == "production"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DB: DBConfig{
			ConnString: os.Getenv("DATABASE_URL"),
		},
		Storage: StorageConfig{
			Backend:         StorageBackend(getEnv("STORAGE_BACKEND", string(StorageBackendLocal))),
			LocalRoot:       getEnv("STORAGE_LOCAL_ROOT", "./data/media"),
			LocalPublicURL:  os.Getenv("STORAGE_LOCAL_PUBLIC_URL"),
			S3Bucket:        os.Getenv("MEDIA_S3_BUCKET"),
			S3Region:        os.Getenv("MEDIA_S3_REGION"),
			S3Endpoint:      os.Getenv("MEDIA_S3_ENDPOINT"),
			S3AccessKeyID:   os.Getenv("MEDIA_S3_ACCESS_KEY_ID"),
			S3SecretKey:     os.Getenv("MEDIA_S3_SECRET_ACCESS_KEY"),
			S3PresignExpiry: getEnvDuration("MEDIA_S3_PRESIGN_EXPIRY", 15*time.Minute),
		},
		Queue: QueueConfig{
			MaxWorkers:            getEnvInt("QUEUE_MAX_WORKERS", 4),
			PollInterval:          getEnvDuration("QUEUE_POLL_INTERVAL", 2*time.Second),
			StaleTaskReapInterval: getEnvDuration("QUEUE_STALE_REAP_INTERVAL", 30*time.Second),
			StaleTaskGracePeriod:  getEnvDuration("QUEUE_STALE_GRACE_PERIOD", 10*time.Minute),
			RateLimits:            defaultRateLimits(),
			SweepCronExpr:         os.Getenv("SWEEP_CRON"),
			SweepInterval:         getEnvDuration("SWEEP_INTERVAL", time.Hour),
		},
		Webhook: WebhookConfig{
			MaxConcurrentDeliveries: getEnvInt("WEBHOOK_MAX_CONCURRENT_DELIVERIES", 50),
			DeliveryTimeout:         getEnvDuration("WEBHOOK_DELIVERY_TIMEOUT", 10*time.Second),
			RetryPollInterval:       getEnvDuration("WEBHOOK_RETRY_POLL_INTERVAL", 15*time.Second),
			SSRFAllowedHosts:        splitList(os.Getenv("WEBHOOK_SSRF_ALLOWED_HOSTS")),
		},
		Upload: UploadConfig{
			ClamAVFailClosed:      getEnvBool("CLAMAV_FAIL_CLOSED", true),
			SemanticSearchEnabled: getEnvBool("SEMANTIC_SEARCH_ENABLED", false),
			ModerationEnabled:     getEnvBool("MODERATION_ENABLED", false),
		},
		Capacity: CapacityConfig{
			MinFreeDiskBytes: uint64(getEnvInt("CAPACITY_MIN_FREE_DISK_BYTES", 0)),
			MaxMemoryPercent: getEnvFloat("CAPACITY_MAX_MEMORY_PERCENT", 0),
			MaxCPUPercent:    getEnvFloat("CAPACITY_MAX_CPU_PERCENT", 0),
			DiskPolicy:       getEnv("CAPACITY_DISK_POLICY", "warn"),
			MemoryPolicy:     getEnv("CAPACITY_MEMORY_POLICY", "warn"),
			CPUPolicy:        getEnv("CAPACITY_CPU_POLICY", "warn"),
			CheckInterval:    getEnvDuration("CAPACITY_CHECK_INTERVAL", 30*time.Second),
		},
		Analytics: AnalyticsConfig{
			BufferSize:    getEnvInt("ANALYTICS_BUFFER_SIZE", 10000),
			FlushInterval: getEnvDuration("ANALYTICS_FLUSH_INTERVAL", 5*time.Second),
		},
		Telemetry: TelemetryConfig{
			Environment:      getEnv("ENVIRONMENT", getEnv("APP_ENV", "development")),
			SlowThresholdMS:  getEnvInt("WIDE_EVENT_SLOW_THRESHOLD_MS", 2000),
			SampleRate:       getEnvFloat("WIDE_EVENT_SAMPLE_RATE", 0.05),
			KeepClientErrors: getEnvBool("WIDE_EVENT_KEEP_CLIENT_ERRORS", false),
			VIPTenantIDs:     toSet(splitList(os.Getenv("WIDE_EVENT_VIP_TENANT_IDS"))),
			KeepPaths:        toSet(splitList(os.Getenv("WIDE_EVENT_KEEP_PATHS"))),
			AlwaysKeep:       getEnvBool("WIDE_EVENT_ALWAYS_KEEP", false),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	plugins, err := loadPluginConfigs(getEnv("PLUGIN_CONFIG_DIR", "config/plugins"))
	if err != nil {
		return nil, fmt.Errorf("load plugin configs: %w", err)
	}
	cfg.Plugins = plugins

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadPluginConfigs reads one YAML manifest per file from dir. A missing
// directory is not an error; every other read/parse failure is.
func loadPluginConfigs(dir string) (map[string]*PluginConfig, error) {
	out := make(map[string]*PluginConfig)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var p PluginConfig
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out[p.Name] = &p
	}
	return out, nil
}

func defaultRateLimits() map[string]RateLimit {
	return map[string]RateLimit{
		"generate_embedding": {PerSecond: getEnvFloat("RATE_LIMIT_EMBEDDING_PER_SEC", 5), Burst: getEnvInt("RATE_LIMIT_EMBEDDING_BURST", 10)},
		"moderate_content":   {PerSecond: getEnvFloat("RATE_LIMIT_MODERATION_PER_SEC", 5), Burst: getEnvInt("RATE_LIMIT_MODERATION_BURST", 10)},
		"transcode_video":    {PerSecond: getEnvFloat("RATE_LIMIT_TRANSCODE_PER_SEC", 1), Burst: getEnvInt("RATE_LIMIT_TRANSCODE_BURST", 2)},
	}
}

func (c *Config) validate() error {
	var missing []string

	if c.DB.ConnString == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Storage.Backend == StorageBackendS3 {
		if c.Storage.S3Bucket == "" {
			missing = append(missing, "MEDIA_S3_BUCKET (required when STORAGE_BACKEND=s3)")
		}
		if c.Storage.S3AccessKeyID == "" || c.Storage.S3SecretKey == "" {
			missing = append(missing, "MEDIA_S3_ACCESS_KEY_ID/MEDIA_S3_SECRET_ACCESS_KEY (required when STORAGE_BACKEND=s3)")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
