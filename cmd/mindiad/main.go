// Command mindiad is the composition root: config -> logging -> Postgres
// store -> storage backend -> services -> workers -> signal-driven
// shutdown.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremybastin1207/mindia-go/internal/analytics"
	"github.com/jeremybastin1207/mindia-go/internal/capacity"
	"github.com/jeremybastin1207/mindia-go/internal/config"
	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/httputil"
	"github.com/jeremybastin1207/mindia-go/internal/logging"
	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/notify"
	"github.com/jeremybastin1207/mindia-go/internal/queue"
	"github.com/jeremybastin1207/mindia-go/internal/ratelimit"
	"github.com/jeremybastin1207/mindia-go/internal/search"
	"github.com/jeremybastin1207/mindia-go/internal/storage"
	"github.com/jeremybastin1207/mindia-go/internal/telemetry"
	"github.com/jeremybastin1207/mindia-go/internal/upload"
	"github.com/jeremybastin1207/mindia-go/internal/validator"
	"github.com/jeremybastin1207/mindia-go/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		mustLog(err, "load config")
	}

	logger, cleanupLog, err := logging.Setup(os.Getenv("LOG_FILE"), cfg.LogLevel)
	if err != nil {
		mustLog(err, "set up logging")
	}
	defer cleanupLog()
	sugar := logger.Sugar()

	sugar.Info("starting mindiad")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.NewStore(ctx, cfg.DB.ConnString)
	if err != nil {
		sugar.Fatalf("connect to postgres: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		sugar.Fatalf("apply schema: %v", err)
	}
	sugar.Info("connected to postgres")

	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		sugar.Fatalf("build storage backend: %v", err)
	}
	sugar.Infof("storage backend: %s", backend.Type())

	clients := httputil.NewClients(cfg.Webhook.DeliveryTimeout)

	ssrfGuard := webhook.NewSSRFGuard(cfg.Webhook.SSRFAllowedHosts...)
	webhookEngine := webhook.NewEngine(store, clients.Webhook, ssrfGuard, sugar, cfg.Webhook.MaxConcurrentDeliveries)
	retryDriver := webhook.NewRetryDriver(store, clients.Webhook, ssrfGuard, sugar)

	uploadNotifier := notify.NewUploadNotifier(store, webhookEngine, sugar, cfg.Upload.SemanticSearchEnabled, cfg.Upload.ModerationEnabled)

	checker := capacity.NewChecker(capacity.SystemStats{}, capacity.Thresholds{
		MinFreeDiskBytes: cfg.Capacity.MinFreeDiskBytes,
		MaxMemoryPercent: cfg.Capacity.MaxMemoryPercent,
		MaxCPUPercent:    cfg.Capacity.MaxCPUPercent,
		DiskPolicy:       capacity.Policy(cfg.Capacity.DiskPolicy),
		MemoryPolicy:     capacity.Policy(cfg.Capacity.MemoryPolicy),
		CPUPolicy:        capacity.Policy(cfg.Capacity.CPUPolicy),
	}, cfg.Storage.LocalRoot, sugar)

	sink := analytics.NewSink(store, sugar, cfg.Analytics.BufferSize)

	uploadSvc := &upload.Service{
		Store:    store,
		Backend:  backend,
		Policies: validator.DefaultPolicies,
		Notifier: uploadNotifier,
		Capacity: checker,
		Config: upload.Config{
			ClamAVFailClosed:      cfg.Upload.ClamAVFailClosed,
			SemanticSearchEnabled: cfg.Upload.SemanticSearchEnabled,
			ModerationEnabled:     cfg.Upload.ModerationEnabled,
			PresignExpiry:         cfg.Storage.S3PresignExpiry,
		},
	}

	searchSvc := &search.Service{Store: store}

	limits := ratelimit.NewRegistry(toRatelimitLimits(cfg.Queue.RateLimits))
	registry := queue.NewRegistry()
	queue.RegisterSweepHandlers(registry, store, sugar)

	pool := queue.NewPool(store, registry, limits, sugar, cfg.Queue.MaxWorkers)
	pool.OutcomeNotifier = uploadNotifier

	reaper := &queue.Reaper{Store: store, Log: sugar, GracePeriod: cfg.Queue.StaleTaskGracePeriod}
	scheduler := &queue.Scheduler{Store: store, Log: sugar}

	// sampler, searchSvc, and uploadSvc are consumed by the HTTP layer's
	// request middleware and endpoint handlers, wired in by the serving
	// binary that embeds this module.
	sampler := telemetry.NewSampler(cfg.Telemetry)
	_, _, _ = sampler, searchSvc, uploadSvc

	go checker.Run(ctx, cfg.Capacity.CheckInterval)
	go sink.Run(ctx, cfg.Analytics.FlushInterval)
	go queue.Listen(ctx, store.Pool(), pool, sugar)
	go pool.Run(ctx, cfg.Queue.PollInterval)
	go reaper.Run(ctx, cfg.Queue.StaleTaskReapInterval)
	go retryDriver.Run(ctx, cfg.Webhook.RetryPollInterval)
	go func() {
		if err := scheduler.Run(ctx, cfg.Queue.SweepCronExpr, cfg.Queue.SweepInterval); err != nil {
			sugar.Errorf("sweep scheduler: %v", err)
		}
	}()

	sugar.Info("mindiad running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sugar.Info("shutting down")
	cancel()
	time.Sleep(500 * time.Millisecond)
	sugar.Info("goodbye")
}

func buildBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.Storage.S3Bucket,
			Region:          cfg.Storage.S3Region,
			Endpoint:        cfg.Storage.S3Endpoint,
			AccessKeyID:     cfg.Storage.S3AccessKeyID,
			SecretAccessKey: cfg.Storage.S3SecretKey,
			PresignExpiry:   cfg.Storage.S3PresignExpiry,
		})
	default:
		local, err := storage.NewLocal(cfg.Storage.LocalRoot)
		if err != nil {
			return nil, err
		}
		local.PublicBaseURL = cfg.Storage.LocalPublicURL
		return local, nil
	}
}

func toRatelimitLimits(in map[string]config.RateLimit) ratelimit.Limits {
	out := make(ratelimit.Limits, len(in))
	for k, v := range in {
		out[k] = ratelimit.Limit{PerSecond: v.PerSecond, Burst: v.Burst}
	}
	return out
}

func mustLog(err error, op string) {
	if mdErr, ok := mdlerr.As(err); ok {
		os.Stderr.WriteString(op + ": " + mdErr.Error() + "\n")
	} else {
		os.Stderr.WriteString(op + ": " + err.Error() + "\n")
	}
	os.Exit(1)
}
