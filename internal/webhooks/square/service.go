// Package squarewebhook reconciles Square payment notifications with the
// yard-sale and commission records.
package squarewebhook

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yardtrackpro/yardtrack-backend/pkg/db/models"
	"github.com/yardtrackpro/yardtrack-backend/pkg/enums"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

const (
	defaultCustomer    = "Walk-in"
	defaultSalesperson = "Unknown"
	saleTypeYardSale   = "yard_sale"
)

// Outcome describes what HandleEvent did with an event.
type Outcome string

const (
	OutcomeRecorded    Outcome = "recorded"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeNotYardSale Outcome = "not_yard_sale"
	OutcomeMalformed   Outcome = "malformed"
)

type saleConfirmer interface {
	RecordConfirmation(ctx context.Context, sale *models.YardSale, commission *models.Commission) error
}

type webhookMetrics interface {
	IncWebhookEvent(eventType, outcome string)
}

type ServiceParams struct {
	Sales   saleConfirmer
	Rates   Rates
	Metrics webhookMetrics
	Logger  *logger.Logger
	Clock   func() time.Time
}

type Service struct {
	sales   saleConfirmer
	rates   Rates
	metrics webhookMetrics
	logg    *logger.Logger
	now     func() time.Time
	tracer  trace.Tracer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Sales == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sales repository required")
	}
	if !params.Rates.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission rates required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		sales:   params.Sales,
		rates:   params.Rates,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
		tracer:  otel.Tracer("yardtrack/webhooks/square"),
	}, nil
}

// HandleEvent records a completed yard-sale payment and its commission.
// Events that are not completed yard-sale payments are acknowledged without
// writes. Errors are store failures and are safe to retry: both writes are
// keyed by the payment id.
func (s *Service) HandleEvent(ctx context.Context, event *Event) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "webhooks.square.handle")
	defer span.End()

	outcome, err := s.handle(ctx, span, event)
	eventType := ""
	if event != nil {
		eventType = event.Type
	}
	span.SetAttributes(attribute.String("webhook.type", eventType), attribute.String("webhook.outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "record failed")
		s.count(eventType, "error")
		return outcome, err
	}
	s.count(eventType, string(outcome))
	return outcome, nil
}

func (s *Service) handle(ctx context.Context, span trace.Span, event *Event) (Outcome, error) {
	if event == nil {
		return OutcomeMalformed, nil
	}
	if !event.confirmsPayment() {
		return OutcomeIgnored, nil
	}
	payment := event.Data.Object.Payment
	if !isYardSale(payment) {
		s.logInfo(ctx, "square webhook payment is not a yard sale", map[string]any{
			"event_type": event.Type,
		})
		return OutcomeNotYardSale, nil
	}

	paymentID := strings.TrimSpace(stringValue(payment.GetID()))
	if paymentID == "" || payment.GetAmountMoney() == nil || payment.GetAmountMoney().GetAmount() == nil {
		s.logInfo(ctx, "square webhook payment missing id or amount", map[string]any{
			"event_type": event.Type,
		})
		return OutcomeMalformed, nil
	}
	if s.logg != nil {
		ctx = s.logg.WithPaymentID(ctx, paymentID)
	}
	span.SetAttributes(attribute.String("payment.id", paymentID))

	sale, commission := s.buildRecords(payment, paymentID)
	if err := s.sales.RecordConfirmation(ctx, sale, commission); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "square webhook record failed", err)
		}
		return OutcomeRecorded, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record yard sale")
	}

	s.logInfo(ctx, "square webhook recorded yard sale", map[string]any{
		"total":       sale.Total.StringFixed(2),
		"salesperson": commission.Salesperson,
		"commission":  commission.Amount.StringFixed(2),
	})
	return OutcomeRecorded, nil
}

func (s *Service) buildRecords(payment *sq.Payment, paymentID string) (*models.YardSale, *models.Commission) {
	now := s.now().UTC()
	total := decimal.New(*payment.GetAmountMoney().GetAmount(), -2)
	subtotal, commissionAmount := s.rates.Split(total)
	customer, salesperson := parseNote(stringValue(payment.GetNote()))

	completedAt := now
	if parsed, err := time.Parse(time.RFC3339, stringValue(payment.GetCreatedAt())); err == nil {
		completedAt = parsed.UTC()
	}

	sale := &models.YardSale{
		ID:              uuid.New(),
		OrderType:       saleTypeYardSale,
		Source:          enums.SaleSourceWebhook,
		CustomerName:    customer,
		Subtotal:        subtotal,
		Total:           total,
		PaymentMethod:   "card",
		PaymentStatus:   enums.SalePaymentStatusFromSquare(stringValue(payment.GetStatus())),
		SquarePaymentID: &paymentID,
		CompletedAt:     &completedAt,
		Salesperson:     salesperson,
		Status:          enums.SaleStatusPaid,
		Commission:      decimal.NewNullDecimal(commissionAmount),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ref := strings.TrimSpace(stringValue(payment.GetReferenceID())); ref != "" {
		sale.OrderNumber = &ref
	}
	if receipt := strings.TrimSpace(stringValue(payment.GetReceiptURL())); receipt != "" {
		sale.ReceiptURL = &receipt
	}
	if loc := strings.TrimSpace(stringValue(payment.GetLocationID())); loc != "" {
		sale.LocationID = &loc
	}

	commission := &models.Commission{
		ID:          uuid.New(),
		Salesperson: salesperson,
		Amount:      commissionAmount,
		SaleID:      paymentID,
		SaleType:    saleTypeYardSale,
		SaleTotal:   total,
		SaleDate:    completedAt.Format("2006-01-02"),
		RecordedAt:  now,
	}
	return sale, commission
}

func (s *Service) count(eventType, outcome string) {
	if s.metrics == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	s.metrics.IncWebhookEvent(eventType, outcome)
}

func (s *Service) logInfo(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}
