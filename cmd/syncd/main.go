package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	firestoreadapter "github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/adapter/firestore"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/adapter/httpapi"
	kafkaadapter "github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/adapter/kafka"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/cluster"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/config"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/connectivity"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/observability"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/queue"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/reports"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/syncer"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/verify"
)

// readiness gates /readyz: the service is ready once the feed has delivered
// at least one report, or while the feed is still quiet, once the local queue
// is reachable.
type readiness struct {
	snapshot *reports.Snapshot
	store    *queue.MySQLStore
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if r.snapshot.Ready() {
		return nil
	}
	if err := r.store.CheckReadiness(ctx); err != nil {
		return fmt.Errorf("feed quiet and queue unreachable: %w", err)
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := queue.Open(ctx, cfg.MySQLDSN, logger)
	if err != nil {
		logger.Error("failed to open local queue", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	gateway, err := firestoreadapter.New(ctx, firestoreadapter.Config{
		ProjectID:      cfg.FirestoreProjectID,
		Bucket:         cfg.StorageBucket,
		CredentialsB64: cfg.FirebaseCredentials,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize firebase gateway", "error", err)
		os.Exit(1)
	}
	defer gateway.Close()

	var prober connectivity.Prober
	if cfg.ProbeURL != "" {
		prober = connectivity.NewHTTPProber(cfg.ProbeURL, cfg.ProbeTimeout, logger)
	}
	monitor := connectivity.New(prober, cfg.ProbeInterval, clockwork.NewRealClock(), logger, metrics)

	coordinator := syncer.New(store, gateway, monitor, cfg.SyncItemTimeout, logger, metrics)
	monitor.OnReconnect(func() {
		res := coordinator.Synchronize(ctx)
		logger.Info("reconnect drain finished", "success", res.Success, "message", res.Message)
	})

	snapshot := reports.NewSnapshot()
	feed := kafkaadapter.NewReader(kafkaadapter.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaReportsTopic,
		GroupID: cfg.KafkaGroupID,
	}, snapshot, logger, metrics)

	clusters := cluster.NewService(snapshot, cfg.ClusterMaxZoom, logger, metrics)

	var alerts verify.AlertPublisher
	var alertWriter *kafkaadapter.AlertWriter
	if cfg.KafkaAlertsTopic != "" {
		alertWriter = kafkaadapter.NewAlertWriter(cfg.KafkaBrokers, cfg.KafkaAlertsTopic, logger)
		alerts = alertWriter
	}
	verifier := verify.New(snapshot, gateway, alerts, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, store, coordinator, monitor, clusters, verifier,
		readiness{snapshot: snapshot, store: store}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := feed.Run(ctx); err != nil {
			logger.Error("report feed error", "error", err)
		}
	}()

	go monitor.Run(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := feed.Close(); err != nil {
		logger.Error("report feed close error", "error", err)
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("alert writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
