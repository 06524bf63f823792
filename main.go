package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/beanops/warehouse-sync-go/pkg/channelfeed"
	"github.com/beanops/warehouse-sync-go/pkg/fetcher"
	"github.com/beanops/warehouse-sync-go/pkg/live"
	"github.com/beanops/warehouse-sync-go/pkg/store"
	"github.com/beanops/warehouse-sync-go/pkg/synthetic"
	"github.com/beanops/warehouse-sync-go/pkg/syncer"
)

var (
	channelURL  string
	channelID   string
	channelKey  string
	postgresURL string
	redisAddr   string
	mqttBroker  string
	mqttTopic   string
	liveSource  string
	listenAddr  string
	windowHours int
	maxSamples  int
	autoSync    bool
	liveUpdates bool
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Parse command line flags; a local .env file may supply the env
	// fallbacks.
	_ = godotenv.Load()
	pflag.StringVar(&channelURL, "channel-url", "", "Base URL of the IoT channel API (empty = synthetic only)")
	pflag.StringVar(&channelID, "channel-id", "", "Channel id of the warehouse sensor feed")
	pflag.StringVar(&channelKey, "channel-api-key", "", "Read key for the channel API")
	pflag.StringVar(&postgresURL, "postgres-url", "", "Postgres connection string for the readings store (empty = no persistence)")
	pflag.StringVar(&redisAddr, "redis-addr", "", "Redis address for the hot cache and change notifications")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker URL for the alternate live feed")
	pflag.StringVar(&mqttTopic, "mqtt-topic", "warehouse/readings/changed", "MQTT topic carrying reading change notifications")
	pflag.StringVar(&liveSource, "live-source", "redis", "Live update source: redis or mqtt")
	pflag.StringVar(&listenAddr, "listen", ":8090", "Listen address for the status/metrics HTTP server")
	pflag.IntVar(&windowHours, "window-hours", 24, "Lookback window fetched each cycle")
	pflag.IntVar(&maxSamples, "max-samples", 100, "Maximum samples kept in the history window")
	pflag.BoolVar(&autoSync, "auto-sync", true, "Trigger a remote sync before each scheduled fetch")
	pflag.BoolVar(&liveUpdates, "live-updates", false, "Enable the optional live update channel")
	pflag.Lookup("channel-url").Value.Set(envOr("CHANNEL_URL", ""))
	pflag.Lookup("channel-id").Value.Set(envOr("CHANNEL_ID", ""))
	pflag.Lookup("channel-api-key").Value.Set(envOr("CHANNEL_API_KEY", ""))
	pflag.Lookup("postgres-url").Value.Set(envOr("POSTGRES_URL", ""))
	pflag.Lookup("redis-addr").Value.Set(envOr("REDIS_ADDR", ""))
	pflag.Lookup("mqtt-broker").Value.Set(envOr("MQTT_BROKER", ""))
	pflag.Parse()

	// Setup Otel
	shutdown, err := setupOTelSDK(ctx)
	defer shutdown(ctx)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(os.Stdout), zapcore.DebugLevel),
		otelzap.NewCore("github.com/beanops/warehouse-sync-go", otelzap.WithLoggerProvider(global.GetLoggerProvider())),
	)
	logger := zap.New(core)
	defer logger.Sync()
	logger.Info("starting up", zap.String("version", version), zap.String("commit", commit), zap.String("buildDate", date))

	deps, err := buildCollaborators(ctx, logger)
	if err != nil {
		logger.Fatal("cannot build collaborators", zap.Error(err))
	}
	defer deps.close()

	orch := syncer.New(deps.source, syncer.Config{
		WindowHours: windowHours,
		MaxSamples:  maxSamples,
		AutoSync:    autoSync,
		LiveUpdates: liveUpdates,
	}, deps.orchOpts(logger)...)

	if err := orch.Start(ctx); err != nil {
		logger.Fatal("cannot start orchestrator", zap.Error(err))
	}
	defer orch.Close()

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handlers.CombinedLoggingHandler(os.Stdout, newRouter(orch)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", listenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

// collaborators bundles the optional external dependencies the
// orchestrator is wired with.
type collaborators struct {
	source *fetcher.Fetcher
	remote syncer.RemoteSync
	feed   live.Feed
	st     *store.Store
}

func buildCollaborators(ctx context.Context, logger *zap.Logger) (*collaborators, error) {
	deps := &collaborators{}

	if postgresURL != "" && redisAddr != "" {
		st, err := store.New(ctx, postgresURL, redisAddr, store.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		deps.st = st
	}

	opts := []fetcher.Option{fetcher.WithLogger(logger)}

	if channelURL != "" {
		client, err := channelfeed.NewClient(channelURL, channelID,
			channelfeed.WithLogger(logger),
			channelfeed.WithAPIKey(channelKey),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fetcher.WithPrimary(client))
		deps.remote = syncer.RemoteSyncFunc(func(ctx context.Context) (syncer.SyncStatus, error) {
			res, err := client.TriggerSync(ctx)
			return syncer.SyncStatus(res), err
		})
	}

	if deps.st != nil {
		opts = append(opts, fetcher.WithSecondary(deps.st), fetcher.WithPersister(deps.st))
	}
	deps.source = fetcher.New(synthetic.New(), opts...)

	switch {
	case liveSource == "mqtt" && mqttBroker != "":
		deps.feed = live.NewMQTTFeed(mqttBroker, mqttTopic, logger)
	case liveSource == "redis" && deps.st != nil:
		deps.feed = live.NewRedisFeed(deps.st.Redis(), store.NotifyChannel, logger)
	}

	return deps, nil
}

func (c *collaborators) orchOpts(logger *zap.Logger) []syncer.Option {
	opts := []syncer.Option{syncer.WithLogger(logger)}
	if c.remote != nil {
		opts = append(opts, syncer.WithRemoteSync(c.remote))
	}
	if c.feed != nil {
		opts = append(opts, syncer.WithLiveFeed(c.feed))
	}
	return opts
}

func (c *collaborators) close() {
	if c.st != nil {
		c.st.Close()
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
