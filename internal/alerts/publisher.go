// Package alerts publishes reconciliation alerts for conditions a person has
// to fix by hand, such as a charged order whose stock could not be depleted.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

type Kind string

const (
	// KindDepletionFailed means a charged order could not decrease stock.
	KindDepletionFailed Kind = "depletion_failed"
	// KindRecordFailed means a charged order could not be written to the store.
	KindRecordFailed Kind = "record_failed"
)

// Alert is the JSON payload published to the alerts topic.
type Alert struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	PaymentID   string    `json:"paymentId,omitempty"`
	ProductIDs  []string  `json:"productIds,omitempty"`
	Detail      string    `json:"detail"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type alertMetrics interface {
	IncAlert(kind string)
}

// Publisher sends alerts to Pub/Sub. Without a topic it only logs them.
type Publisher struct {
	pub     publisher
	metrics alertMetrics
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewPublisher wraps a Pub/Sub publisher. topic may be nil.
func NewPublisher(topic *gcppubsub.Publisher, metrics alertMetrics, logg *logger.Logger) *Publisher {
	return newPublisher(newGCPPublisher(topic), metrics, logg)
}

func newPublisher(pub publisher, metrics alertMetrics, logg *logger.Logger) *Publisher {
	return &Publisher{
		pub:     pub,
		metrics: metrics,
		logg:    logg,
		timeout: defaultPublishTimeout,
		now:     time.Now,
	}
}

// Publish always logs the alert and then tries to deliver it. Delivery
// failures are returned but the alert has already been logged.
func (p *Publisher) Publish(ctx context.Context, alert Alert) error {
	if p == nil {
		return nil
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = p.now().UTC()
	}
	if p.metrics != nil {
		p.metrics.IncAlert(string(alert.Kind))
	}
	p.log(ctx, alert)

	if p.pub == nil {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"alert_id":     alert.ID,
			"kind":         string(alert.Kind),
			"order_number": alert.OrderNumber,
			"occurred_at":  alert.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("alert publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		if p.logg != nil {
			p.logg.Error(ctx, "alerts.publish_failed", err)
		}
		return err
	}
	return nil
}

func (p *Publisher) log(ctx context.Context, alert Alert) {
	if p.logg == nil {
		return
	}
	fields := map[string]any{
		"alert_id":   alert.ID,
		"alert_kind": string(alert.Kind),
		"detail":     alert.Detail,
	}
	if alert.OrderNumber != "" {
		fields["order_number"] = alert.OrderNumber
	}
	if alert.PaymentID != "" {
		fields["payment_id"] = alert.PaymentID
	}
	if len(alert.ProductIDs) > 0 {
		fields["product_ids"] = alert.ProductIDs
	}
	p.logg.Warn(p.logg.WithFields(ctx, fields), "reconciliation alert")
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
