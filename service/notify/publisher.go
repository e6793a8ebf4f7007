package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the JetStream stream for payment notifications.
	StreamName = "PAYMENTS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "payments.*"

	// StreamRetention is how long notifications are retained.
	StreamRetention = 30 * 24 * time.Hour
)

// JetStreamSink publishes payment events to NATS JetStream. Downstream
// consumers (push delivery, activity feeds) subscribe to the stream;
// this service only produces.
type JetStreamSink struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger
}

// NewJetStreamSink connects to NATS and ensures the stream exists.
func NewJetStreamSink(natsURL string, logger *slog.Logger) (*JetStreamSink, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("sendcore-notifier"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	sink := &JetStreamSink{nc: nc, js: js, logger: logger}

	if err := sink.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("notification sink initialized", "url", natsURL, "stream", StreamName)
	return sink, nil
}

func (s *JetStreamSink) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	s.logger.Info("creating JetStream stream", "stream", StreamName)

	_, err := s.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Payment completion notifications",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Notify publishes a payment event to "payments.{counterparty}".
func (s *JetStreamSink) Notify(ctx context.Context, amount float64, tokenSymbol, counterparty string) error {
	event := PaymentEvent{
		Amount:       amount,
		TokenSymbol:  tokenSymbol,
		Counterparty: counterparty,
		PublishedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}

	subject := fmt.Sprintf("payments.%s", sanitizeToken(counterparty))
	if _, err := s.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish payment event: %w", err)
	}

	s.logger.Debug("published payment event",
		"subject", subject,
		"amount", amount,
		"token", tokenSymbol,
	)
	return nil
}

// Close closes the connection to NATS.
func (s *JetStreamSink) Close() error {
	if s.nc != nil {
		s.nc.Close()
		s.logger.Info("notification sink closed")
	}
	return nil
}
