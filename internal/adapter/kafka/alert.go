package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
)

// AlertWriter publishes verified-disaster events to the alerts topic, where
// the external push and SMS dispatchers pick them up.
// It implements verify.AlertPublisher.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

func NewAlertWriter(brokers []string, topic string, logger *slog.Logger) *AlertWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertWriter{writer: w, logger: logger}
}

// PublishVerified announces a newly verified disaster.
func (w *AlertWriter) PublishVerified(ctx context.Context, vd domain.VerifiedDisaster) error {
	msg, err := serializeAlert(vd)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert for %s: %w", vd.ID, err)
	}
	w.logger.Info("alert published", "id", vd.ID, "type", vd.DisasterType, "district", vd.District)
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeAlert marshals a verified disaster into an alert message.
func serializeAlert(vd domain.VerifiedDisaster) (kafkago.Message, error) {
	data, err := json.Marshal(vd)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert for %s: %w", vd.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(vd.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "disaster_type", Value: []byte(vd.DisasterType)},
			{Key: "verified_at", Value: []byte(vd.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
