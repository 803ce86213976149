package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/G2-Spool/spool-progress-service/internal/domain/notification"
	"github.com/G2-Spool/spool-progress-service/internal/metrics"
	"github.com/G2-Spool/spool-progress-service/pkg/circuitbreaker"
	"github.com/G2-Spool/spool-progress-service/pkg/logger"
	"github.com/G2-Spool/spool-progress-service/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION PUBLISHER
// ══════════════════════════════════════════════════════════════════════════════

// GatewaySender delivers notifications to the notification gateway over
// HTTP. Failed deliveries are retried with backoff; a circuit breaker
// stops hammering a gateway that is down.
type GatewaySender struct {
	url     string
	client  *http.Client
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// gatewayPayload is the wire format the gateway accepts.
type gatewayPayload struct {
	StudentID string            `json:"student_id"`
	Topic     string            `json:"topic"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	SentAt    time.Time         `json:"sent_at"`
}

// NewGatewaySender creates a sender for the configured gateway URL.
func NewGatewaySender(cfg config.NotificationConfig, log *logger.Logger) *GatewaySender {
	return &GatewaySender{
		url: cfg.GatewayURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retrier: retry.NotificationRetrier(),
		breaker: circuitbreaker.NotificationBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("notification breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		log: log,
	}
}

// Send posts the notification to the gateway.
func (s *GatewaySender) Send(ctx context.Context, n *notification.Notification) error {
	payload := gatewayPayload{
		StudentID: n.StudentID,
		Topic:     n.Topic.String(),
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		SentAt:    n.CreatedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.retrier.Do(ctx, func(ctx context.Context) error {
			return s.post(ctx, body)
		})
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(n.Topic.String(), "error").Inc()
		return err
	}
	metrics.NotificationsSent.WithLabelValues(n.Topic.String(), "ok").Inc()
	return nil
}

func (s *GatewaySender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("post notification: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("gateway returned %d", resp.StatusCode))
	default:
		return retry.Permanent(fmt.Errorf("gateway returned %d", resp.StatusCode))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG SENDER
// ══════════════════════════════════════════════════════════════════════════════

// LogSender writes notifications to the log instead of delivering them.
// Used when no gateway URL is configured (development, tests).
type LogSender struct {
	log *logger.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the notification.
func (s *LogSender) Send(_ context.Context, n *notification.Notification) error {
	s.log.Info("notification (log only)",
		logger.String("student_id", n.StudentID),
		logger.String("topic", n.Topic.String()),
		logger.String("title", n.Title),
		logger.String("body", n.Body),
	)
	return nil
}

// NewSender picks the gateway sender when a URL is configured, the log
// sender otherwise.
func NewSender(cfg config.NotificationConfig, log *logger.Logger) notification.Sender {
	if cfg.GatewayURL == "" {
		return NewLogSender(log)
	}
	return NewGatewaySender(cfg, log)
}
