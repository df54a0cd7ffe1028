package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yardtrackpro/yardtrack-backend/pkg/db/models"
	"github.com/yardtrackpro/yardtrack-backend/pkg/enums"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

const (
	defaultVendor     = "Unknown"
	defaultCapturedBy = "Unknown"
	defaultSalesTitle = "Unknown"
	dateLayout        = "2006-01-02"
)

type stockMetrics interface {
	IncStockAdjustment(action, outcome string)
}

// Service is the stock ledger. Every mutation is a single conditional
// statement; audit rows are written afterwards and never undo the mutation.
type Service struct {
	repo    Repository
	metrics stockMetrics
	logg    *logger.Logger
	now     func() time.Time
}

type ServiceParams struct {
	Repository Repository
	Metrics    stockMetrics
	Logger     *logger.Logger
	Clock      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory repository required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    params.Repository,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// Increase records inbound material and appends an inbound ticket row.
func (s *Service) Increase(ctx context.Context, input IncreaseInput) (*IncreaseResult, error) {
	productID := strings.TrimSpace(input.ProductID)
	if err := validateAdjustment(productID, input.Tons); err != nil {
		return nil, err
	}

	now := s.now()
	newStock, err := s.repo.Increase(ctx, productID, input.Tons, now)
	if err != nil {
		s.countAdjustment(enums.StockActionIncrease, "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increase stock")
	}
	s.countAdjustment(enums.StockActionIncrease, "ok")

	ticket := buildInboundTicket(productID, input.Tons, input.Ticket, now)
	if err := s.repo.CreateInboundTicket(ctx, ticket); err != nil {
		s.logError(ctx, "inventory.inbound_ticket_failed", productID, err)
	}

	s.logInfo(ctx, "inventory.increased", map[string]any{
		"product_id": productID,
		"tons":       input.Tons.String(),
		"new_stock":  newStock.String(),
	})

	return &IncreaseResult{
		ProductID: productID,
		Tons:      input.Tons,
		NewStock:  newStock.Round(1),
		Message:   fmt.Sprintf("Added %s tons to %s", input.Tons.String(), productID),
	}, nil
}

// Decrease removes stock when enough is on hand and logs the optional sale.
func (s *Service) Decrease(ctx context.Context, input DecreaseInput) (*DecreaseResult, error) {
	productID := strings.TrimSpace(input.ProductID)
	if err := validateAdjustment(productID, input.Tons); err != nil {
		return nil, err
	}

	now := s.now()
	newStock, ok, err := s.repo.Decrease(ctx, productID, input.Tons, now)
	if err != nil {
		s.countAdjustment(enums.StockActionDecrease, "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrease stock")
	}
	if !ok {
		s.countAdjustment(enums.StockActionDecrease, "insufficient")
		available, readErr := s.repo.Available(ctx, productID)
		if readErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "read stock")
		}
		return nil, InsufficientError(productID, available, input.Tons)
	}
	s.countAdjustment(enums.StockActionDecrease, "ok")

	if input.Sale != nil {
		sale := buildSaleRecord(productID, input.Tons, input.Sale, now)
		if err := s.repo.RecordSale(ctx, sale); err != nil {
			s.logError(ctx, "inventory.sale_log_failed", productID, err)
		}
	}

	previous := newStock.Add(input.Tons)
	s.logInfo(ctx, "inventory.decreased", map[string]any{
		"product_id":     productID,
		"tons":           input.Tons.String(),
		"previous_stock": previous.String(),
		"new_stock":      newStock.String(),
	})

	return &DecreaseResult{
		ProductID:     productID,
		Tons:          input.Tons,
		PreviousStock: previous.Round(1),
		NewStock:      newStock.Round(1),
		Message:       fmt.Sprintf("Removed %s tons from %s", input.Tons.String(), productID),
	}, nil
}

// Available returns the stock on hand for productID.
func (s *Service) Available(ctx context.Context, productID string) (decimal.Decimal, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	available, err := s.repo.Available(ctx, productID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
	}
	return available, nil
}

// CheckAvailability returns every product whose requested tons exceed stock.
// Lines for the same product are summed before the comparison so an order
// cannot pass the check line by line and oversell in total. Items without a
// product id or with non-positive tons are not checked.
func (s *Service) CheckAvailability(ctx context.Context, items []LineItem) ([]Shortfall, error) {
	type demand struct {
		label string
		tons  decimal.Decimal
	}
	var order []string
	totals := make(map[string]*demand)
	for _, item := range items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" || !item.Tons.IsPositive() {
			continue
		}
		d, ok := totals[productID]
		if !ok {
			d = &demand{tons: decimal.Zero}
			totals[productID] = d
			order = append(order, productID)
		}
		if d.label == "" {
			d.label = strings.TrimSpace(item.Label)
		}
		d.tons = d.tons.Add(item.Tons)
	}

	var shortfalls []Shortfall
	for _, productID := range order {
		d := totals[productID]
		available, err := s.repo.Available(ctx, productID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
		}
		if available.LessThan(d.tons) {
			shortfalls = append(shortfalls, Shortfall{
				Product:   firstNonEmpty(d.label, productID),
				Available: available.Round(1),
				Requested: d.tons,
			})
		}
	}
	return shortfalls, nil
}

// InsufficientError reports a single-product shortfall.
func InsufficientError(productID string, available, requested decimal.Decimal) error {
	rounded := available.Round(1)
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory").WithDetails(map[string]any{
		"available": rounded.InexactFloat64(),
		"requested": requested.InexactFloat64(),
		"message": fmt.Sprintf("Only %s tons of %s available. Cannot sell %s tons.",
			rounded.String(), productID, requested.String()),
	})
}

// ShortfallError reports every offending item of a multi-item order.
func ShortfallError(shortfalls []Shortfall) error {
	parts := make([]string, 0, len(shortfalls))
	items := make([]map[string]any, 0, len(shortfalls))
	for _, sf := range shortfalls {
		parts = append(parts, fmt.Sprintf("%s: only %s tons available, need %s",
			sf.Product, sf.Available.String(), sf.Requested.String()))
		items = append(items, map[string]any{
			"product":   sf.Product,
			"available": sf.Available.InexactFloat64(),
			"requested": sf.Requested.InexactFloat64(),
		})
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientInventory, "insufficient inventory").WithDetails(map[string]any{
		"items":   items,
		"message": strings.Join(parts, "; "),
	})
}

func validateAdjustment(productID string, tons decimal.Decimal) error {
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Missing required fields: action, productId, tons")
	}
	if !tons.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tons must be greater than zero")
	}
	return nil
}

func buildInboundTicket(productID string, tons decimal.Decimal, data *TicketData, now time.Time) *models.InboundTicket {
	var td TicketData
	if data != nil {
		td = *data
	}
	return &models.InboundTicket{
		ID:           uuid.New(),
		ProductID:    productID,
		Tons:         tons,
		Vendor:       firstNonEmpty(td.Vendor, defaultVendor),
		Material:     firstNonEmpty(td.Material, productID),
		TicketNumber: strings.TrimSpace(td.TicketNumber),
		Truck:        strings.TrimSpace(td.Truck),
		TicketDate:   firstNonEmpty(td.Date, now.UTC().Format(dateLayout)),
		CapturedBy:   firstNonEmpty(td.CapturedBy, defaultCapturedBy),
		CapturedAt:   now.UTC(),
	}
}

func buildSaleRecord(productID string, tons decimal.Decimal, data *SaleData, now time.Time) *models.YardSale {
	pid := productID
	sale := &models.YardSale{
		ID:            uuid.New(),
		OrderType:     "yard_sale",
		Source:        enums.SaleSourceInventory,
		CustomerName:  strings.TrimSpace(data.CustomerName),
		CustomerEmail: strings.TrimSpace(data.CustomerEmail),
		CustomerPhone: strings.TrimSpace(data.CustomerPhone),
		Items: []models.SaleItem{{
			ProductID: productID,
			Material:  firstNonEmpty(data.Material, productID),
			Quantity:  data.Quantity,
			Tons:      tons,
			Total:     data.Total,
		}},
		ProductID:     &pid,
		Tons:          decimal.NewNullDecimal(tons),
		Subtotal:      data.Subtotal,
		Total:         data.Total,
		PaymentMethod: firstNonEmpty(data.PaymentMethod, "card"),
		PaymentStatus: enums.SalePaymentStatusCompleted,
		Salesperson:   firstNonEmpty(data.Salesperson, defaultSalesTitle),
		Status:        enums.SaleStatusPaid,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if id := strings.TrimSpace(data.PaymentID); id != "" {
		sale.SquarePaymentID = &id
	}
	return sale
}

func firstNonEmpty(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func (s *Service) countAdjustment(action enums.StockAction, outcome string) {
	if s.metrics != nil {
		s.metrics.IncStockAdjustment(action.String(), outcome)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func (s *Service) logError(ctx context.Context, msg, productID string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "product_id", productID), msg, err)
}
