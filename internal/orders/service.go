package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"

	"github.com/yardtrackpro/yardtrack-backend/internal/alerts"
	"github.com/yardtrackpro/yardtrack-backend/internal/delivery"
	"github.com/yardtrackpro/yardtrack-backend/internal/inventory"
	"github.com/yardtrackpro/yardtrack-backend/pkg/db/models"
	"github.com/yardtrackpro/yardtrack-backend/pkg/enums"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
	"github.com/yardtrackpro/yardtrack-backend/pkg/square"
)

const (
	orderNumberPrefix  = "YTP"
	noteTag            = "YTP Yard Sale"
	defaultCustomer    = "Walk-in"
	defaultSalesperson = "Unknown"
	defaultOrderType   = "yard_sale"
	defaultMaterial    = "Unknown"
	stockLockScope     = "stock"
)

type stockLedger interface {
	CheckAvailability(ctx context.Context, items []inventory.LineItem) ([]inventory.Shortfall, error)
	Decrease(ctx context.Context, input inventory.DecreaseInput) (*inventory.DecreaseResult, error)
}

type capacityChecker interface {
	Check(ctx context.Context, date string) (*delivery.Capacity, error)
}

type paymentClient interface {
	Charge(ctx context.Context, params square.PaymentCreateParams) (*square.PaymentResult, error)
}

type saleRecorder interface {
	RecordCharge(ctx context.Context, sale *models.YardSale) error
}

type productLocker interface {
	AcquireAll(ctx context.Context, scope string, ids []string) func()
}

type alertPublisher interface {
	Publish(ctx context.Context, alert alerts.Alert) error
}

type orderMetrics interface {
	ObserveOrder(outcome string, duration time.Duration)
}

// Service processes point-of-sale orders.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*Result, error)
}

type ServiceParams struct {
	Stock     stockLedger
	Delivery  capacityChecker
	Payments  paymentClient
	Sales     saleRecorder
	Locker    productLocker
	Alerts    alertPublisher
	Metrics   orderMetrics
	Logger    *logger.Logger
	Surcharge decimal.Decimal
	SalesTax  decimal.Decimal
	Clock     func() time.Time
}

type service struct {
	stock     stockLedger
	delivery  capacityChecker
	payments  paymentClient
	sales     saleRecorder
	locker    productLocker
	alerts    alertPublisher
	metrics   orderMetrics
	logg      *logger.Logger
	surcharge decimal.Decimal
	salesTax  decimal.Decimal
	now       func() time.Time
	suffix    func() string
	tracer    trace.Tracer
}

func NewService(params ServiceParams) (Service, error) {
	if params.Stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock ledger required")
	}
	if params.Delivery == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "delivery checker required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment client required")
	}
	if params.Sales == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sales repository required")
	}
	if !params.Surcharge.IsPositive() || !params.SalesTax.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "surcharge and sales tax factors required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		stock:     params.Stock,
		delivery:  params.Delivery,
		payments:  params.Payments,
		sales:     params.Sales,
		locker:    params.Locker,
		alerts:    params.Alerts,
		metrics:   params.Metrics,
		logg:      params.Logger,
		surcharge: params.Surcharge,
		salesTax:  params.SalesTax,
		now:       now,
		suffix:    randomSuffix,
		tracer:    otel.Tracer("yardtrack/orders"),
	}, nil
}

// Submit checks stock and delivery capacity, charges the card, records the
// sale and depletes stock. Nothing is charged unless every check passes.
// Once the card is charged the call succeeds; later failures are logged and
// published as reconciliation alerts.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*Result, error) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, "orders.submit")
	defer span.End()

	result, outcome, err := s.submit(ctx, span, input)
	if s.metrics != nil {
		s.metrics.ObserveOrder(outcome, s.now().Sub(started))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, outcome)
		return nil, err
	}
	span.SetStatus(otelcodes.Ok, "")
	return result, nil
}

func (s *service) submit(ctx context.Context, span trace.Span, input SubmitInput) (*Result, string, error) {
	state := StateReceived
	if strings.TrimSpace(input.SourceID) == "" || !input.Amount.IsPositive() {
		return nil, "rejected_validation", pkgerrors.New(pkgerrors.CodeValidation, "Missing sourceId or amount")
	}

	tracked := trackedProductIDs(input.Items)
	if s.locker != nil && len(tracked) > 0 {
		release := s.locker.AcquireAll(ctx, stockLockScope, tracked)
		defer release()
	}

	shortfalls, err := s.stock.CheckAvailability(ctx, lineItems(input.Items))
	if err != nil {
		s.logFailure(ctx, state, "orders.stock_check_failed", err)
		return nil, "error", err
	}
	if len(shortfalls) > 0 {
		s.logRejection(ctx, state, "insufficient inventory")
		return nil, "rejected_stock", inventory.ShortfallError(shortfalls)
	}
	state = StateStockChecked
	span.AddEvent(string(state))

	if input.Delivery != nil && strings.TrimSpace(input.Delivery.Date) != "" {
		if _, err := s.delivery.Check(ctx, input.Delivery.Date); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNoDeliveryCapacity) || pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				s.logRejection(ctx, state, "no delivery capacity")
				return nil, "rejected_capacity", err
			}
			s.logFailure(ctx, state, "orders.delivery_check_failed", err)
			return nil, "error", err
		}
	}
	state = StateDeliveryChecked
	span.AddEvent(string(state))

	now := s.now().UTC()
	orderNumber := fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.Format("20060102"), s.suffix())
	ctx = s.withLogField(ctx, func(l *logger.Logger) context.Context { return l.WithOrderNumber(ctx, orderNumber) })
	span.SetAttributes(attribute.String("order.number", orderNumber))

	customer := normalizeCustomer(input.Customer)
	salesperson := firstNonEmpty(input.Salesperson, defaultSalesperson)

	payment, err := s.payments.Charge(ctx, square.PaymentCreateParams{
		AmountCents:    toCents(input.Amount),
		Currency:       "USD",
		SourceID:       input.SourceID,
		IdempotencyKey: fmt.Sprintf("%s-%d", orderNumber, now.UnixMilli()),
		Note:           fmt.Sprintf("%s | %s | %s", noteTag, customer.Name, salesperson),
		ReferenceID:    orderNumber,
		BuyerEmail:     customer.Email,
	})
	if err != nil {
		s.logFailure(ctx, state, "orders.charge_failed", err)
		return nil, "payment_failed", err
	}
	state = StateCharged
	span.AddEvent(string(state))
	span.SetAttributes(attribute.String("payment.id", payment.ID), attribute.String("payment.status", payment.Status))
	ctx = s.withLogField(ctx, func(l *logger.Logger) context.Context { return l.WithPaymentID(ctx, payment.ID) })

	sale := s.buildSale(input, orderNumber, customer, salesperson, payment, now)
	if err := s.sales.RecordCharge(ctx, sale); err != nil {
		s.logFailure(ctx, state, "orders.record_failed", err)
		s.alert(ctx, alerts.Alert{
			Kind:        alerts.KindRecordFailed,
			OrderNumber: orderNumber,
			PaymentID:   payment.ID,
			Detail:      err.Error(),
		})
	} else {
		state = StateRecorded
		span.AddEvent(string(state))
	}

	if err := s.deplete(ctx, input.Items); err != nil {
		s.logFailure(ctx, state, "orders.depletion_failed", err)
		s.alert(ctx, alerts.Alert{
			Kind:        alerts.KindDepletionFailed,
			OrderNumber: orderNumber,
			PaymentID:   payment.ID,
			ProductIDs:  tracked,
			Detail:      err.Error(),
		})
	} else if state == StateRecorded {
		state = StateStockDepleted
		span.AddEvent(string(state))
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"state":          string(state),
			"payment_status": payment.Status,
			"amount_cents":   toCents(input.Amount),
		}), "orders.submitted")
	}

	createdAt := payment.CreatedAt
	if createdAt == "" {
		createdAt = now.Format(time.RFC3339)
	}
	return &Result{
		OrderNumber: orderNumber,
		PaymentID:   payment.ID,
		Status:      payment.Status,
		ReceiptURL:  payment.ReceiptURL,
		CreatedAt:   createdAt,
	}, "charged", nil
}

func (s *service) deplete(ctx context.Context, items []Item) error {
	var errs []error
	for _, item := range items {
		if !item.tracked() {
			continue
		}
		if _, err := s.stock.Decrease(ctx, inventory.DecreaseInput{
			ProductID: item.productID(),
			Tons:      item.Tons,
		}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.productID(), err))
		}
	}
	return multierr.Combine(errs...)
}

func (s *service) buildSale(input SubmitInput, orderNumber string, customer Customer, salesperson string, payment *square.PaymentResult, now time.Time) *models.YardSale {
	items := make([]models.SaleItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, models.SaleItem{
			ProductID: item.ProductID,
			Material:  firstNonEmpty(item.Material, defaultMaterial),
			Quantity:  item.Quantity,
			Tons:      item.Tons,
			Total:     item.Total,
		})
	}

	sale := &models.YardSale{
		ID:            uuid.New(),
		OrderNumber:   &orderNumber,
		OrderType:     firstNonEmpty(input.OrderType, defaultOrderType),
		Source:        enums.SaleSourcePOS,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		Items:         items,
		Subtotal:      input.Amount.Div(s.surcharge).Div(s.salesTax).Round(2),
		Total:         input.Amount,
		PaymentMethod: "card",
		PaymentStatus: enums.SalePaymentStatusFromSquare(payment.Status),
		Salesperson:   salesperson,
		Status:        enums.SaleStatusPaid,
		CompletedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if payment.ID != "" {
		id := payment.ID
		sale.SquarePaymentID = &id
	}
	if payment.ReceiptURL != "" {
		url := payment.ReceiptURL
		sale.ReceiptURL = &url
	}
	if payment.LocationID != "" {
		loc := payment.LocationID
		sale.LocationID = &loc
	}
	if input.Delivery != nil && strings.TrimSpace(input.Delivery.Date) != "" {
		date := strings.TrimSpace(input.Delivery.Date)
		status := enums.DeliveryStatusPending
		sale.DeliveryDate = &date
		sale.DeliveryStatus = &status
	}
	return sale
}

func (s *service) alert(ctx context.Context, alert alerts.Alert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Publish(ctx, alert); err != nil && s.logg != nil {
		s.logg.Error(ctx, "orders.alert_failed", err)
	}
}

func (s *service) withLogField(ctx context.Context, fn func(*logger.Logger) context.Context) context.Context {
	if s.logg == nil {
		return ctx
	}
	return fn(s.logg)
}

func (s *service) logRejection(ctx context.Context, state State, reason string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"state":  string(state),
		"reason": reason,
	}), "orders.rejected")
}

func (s *service) logFailure(ctx context.Context, state State, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "state", string(state)), msg, err)
}

func normalizeCustomer(c *Customer) Customer {
	if c == nil {
		return Customer{Name: defaultCustomer}
	}
	return Customer{
		Name:  firstNonEmpty(c.Name, defaultCustomer),
		Email: strings.TrimSpace(c.Email),
		Phone: normalizePhone(c.Phone),
	}
}

func lineItems(items []Item) []inventory.LineItem {
	out := make([]inventory.LineItem, 0, len(items))
	for _, item := range items {
		if !item.tracked() {
			continue
		}
		out = append(out, inventory.LineItem{
			ProductID: item.productID(),
			Label:     item.Material,
			Tons:      item.Tons,
		})
	}
	return out
}

func trackedProductIDs(items []Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.tracked() {
			ids = append(ids, item.productID())
		}
	}
	return ids
}

// toCents rounds half away from zero.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func randomSuffix() string {
	id := uuid.New()
	return strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}

func firstNonEmpty(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
