package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	MySQLDSN string

	KafkaBrokers      []string
	KafkaReportsTopic string
	KafkaAlertsTopic  string
	KafkaGroupID      string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ProbeURL      string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	SyncItemTimeout time.Duration

	FirebaseCredentials string
	FirestoreProjectID  string
	StorageBucket       string

	ClusterMaxZoom int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	probeInterval, err := parseDuration("PROBE_INTERVAL", "10s")
	if err != nil {
		return nil, err
	}
	probeTimeout, err := parseDuration("PROBE_TIMEOUT", "3s")
	if err != nil {
		return nil, err
	}
	syncItemTimeout, err := parseDuration("SYNC_ITEM_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	maxZoom, err := parseClusterMaxZoom()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MySQLDSN: os.Getenv("MYSQL_DSN"),

		KafkaBrokers:      parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportsTopic: envOrDefault("KAFKA_REPORTS_TOPIC", "disaster-reports"),
		KafkaAlertsTopic:  envOrDefault("KAFKA_ALERTS_TOPIC", "disaster-alerts"),
		KafkaGroupID:      envOrDefault("KAFKA_GROUP_ID", "infounity-syncd"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ProbeURL:      os.Getenv("PROBE_URL"),
		ProbeInterval: probeInterval,
		ProbeTimeout:  probeTimeout,

		SyncItemTimeout: syncItemTimeout,

		FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS"),
		FirestoreProjectID:  os.Getenv("FIRESTORE_PROJECT_ID"),
		StorageBucket:       os.Getenv("STORAGE_BUCKET"),

		ClusterMaxZoom: maxZoom,
	}

	if cfg.MySQLDSN == "" {
		return nil, errors.New("MYSQL_DSN is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaReportsTopic == "" {
		return nil, errors.New("KAFKA_REPORTS_TOPIC is required")
	}
	if cfg.FirestoreProjectID == "" {
		return nil, errors.New("FIRESTORE_PROJECT_ID is required")
	}
	if cfg.StorageBucket == "" {
		return nil, errors.New("STORAGE_BUCKET is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseClusterMaxZoom() (int, error) {
	s := os.Getenv("CLUSTER_MAX_ZOOM")
	if s == "" {
		return 16, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 22 {
		return 0, errors.New("invalid CLUSTER_MAX_ZOOM")
	}
	return n, nil
}
