package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects published by the safety services
const (
	AlertReported = "alert.reported"
	SOSTriggered  = "sos.triggered"
)

// Publisher delivers domain events to subscribers outside the process
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// NATSPublisher publishes JSON payloads to a NATS server
type NATSPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("safezone-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.logger.Debug("publishing event", zap.String("subject", subject), zap.Int("bytes", len(payload)))
	return p.conn.Publish(subject, payload)
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}

// NopPublisher discards events when no broker is configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close() error                                      { return nil }

// AlertReportedEvent is the payload of AlertReported
type AlertReportedEvent struct {
	AlertID   string    `json:"alert_id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// SOSTriggeredEvent is the payload of SOSTriggered
type SOSTriggeredEvent struct {
	SOSID       string    `json:"sos_id"`
	UserID      string    `json:"user_id,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lng         *float64  `json:"lng,omitempty"`
	Description string    `json:"description"`
	Attachment  string    `json:"attachment,omitempty"`
	At          time.Time `json:"at"`
}
