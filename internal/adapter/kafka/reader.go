// Package kafka connects the service to the report feed and the alert topic.
package kafka

import (
	"context"
	"errors"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/observability"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/reports"
)

// ReaderConfig selects the report feed topic and consumer group.
type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Reader consumes the live report feed and applies each message to the
// snapshot. Messages are keyed by report id; a nil value is a tombstone and
// deletes the report.
type Reader struct {
	reader   *kafkago.Reader
	snapshot *reports.Snapshot
	logger   *slog.Logger
	metrics  *observability.Metrics
}

func NewReader(cfg ReaderConfig, snapshot *reports.Snapshot, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return &Reader{reader: r, snapshot: snapshot, logger: logger, metrics: metrics}
}

// Run consumes until the context is canceled. Offsets are committed only
// after the message has been applied, so a crash replays rather than drops.
func (r *Reader) Run(ctx context.Context) error {
	r.logger.Info("report feed consumer started")
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		r.apply(msg)
		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func (r *Reader) apply(msg kafkago.Message) {
	if len(msg.Value) == 0 {
		r.snapshot.Delete(string(msg.Key))
		r.metrics.FeedMessagesApplied.Inc()
		r.logger.Debug("report removed from feed", "id", string(msg.Key))
		return
	}
	report, err := domain.ParseReportDocument(msg.Value)
	if err != nil {
		r.metrics.FeedParseErrors.Inc()
		r.logger.Error("report feed message rejected",
			"offset", msg.Offset, "partition", msg.Partition, "error", err)
		return
	}
	r.snapshot.Apply(report)
	r.metrics.FeedMessagesApplied.Inc()
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
