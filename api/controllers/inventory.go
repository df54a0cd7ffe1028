package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/yardtrackpro/yardtrack-backend/api/responses"
	"github.com/yardtrackpro/yardtrack-backend/api/validators"
	"github.com/yardtrackpro/yardtrack-backend/internal/inventory"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

const (
	actionIncrease = "increase"
	actionDecrease = "decrease"
)

type inventoryService interface {
	Increase(ctx context.Context, input inventory.IncreaseInput) (*inventory.IncreaseResult, error)
	Decrease(ctx context.Context, input inventory.DecreaseInput) (*inventory.DecreaseResult, error)
	Available(ctx context.Context, productID string) (decimal.Decimal, error)
}

// AdjustInventory applies an inbound ticket (increase) or a single-product
// sale (decrease) to the stock ledger.
func AdjustInventory(svc inventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload inventoryRequest
		if err := validators.DecodeJSONBody(w, r, &payload, orderBodyLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID := validators.SanitizeString(payload.ProductID, textFieldLimit)

		switch payload.Action {
		case actionIncrease:
			result, err := svc.Increase(r.Context(), inventory.IncreaseInput{
				ProductID: productID,
				Tons:      *payload.Tons,
				Ticket:    payload.TicketData.toTicket(),
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, inventoryResponse{
				Success:   true,
				Action:    actionIncrease,
				ProductID: result.ProductID,
				Tons:      result.Tons.InexactFloat64(),
				NewStock:  decimalPtr(result.NewStock),
				Message:   result.Message,
			})
		case actionDecrease:
			result, err := svc.Decrease(r.Context(), inventory.DecreaseInput{
				ProductID: productID,
				Tons:      *payload.Tons,
				Sale:      payload.SaleData.toSale(),
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, inventoryResponse{
				Success:       true,
				Action:        actionDecrease,
				ProductID:     result.ProductID,
				Tons:          result.Tons.InexactFloat64(),
				PreviousStock: decimalPtr(result.PreviousStock),
				NewStock:      decimalPtr(result.NewStock),
				Message:       result.Message,
			})
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, `Invalid action. Use "increase" or "decrease"`))
		}
	}
}

// GetInventory reports the current stock of one product.
func GetInventory(svc inventoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		productID, err := validators.PathParam(r, "productId", textFieldLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		available, err := svc.Available(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stockResponse{
			Success:      true,
			ProductID:    productID,
			CurrentStock: available.Round(3).InexactFloat64(),
		})
	}
}

type inventoryRequest struct {
	Action     string           `json:"action" validate:"required"`
	ProductID  string           `json:"productId" validate:"required"`
	Tons       *decimal.Decimal `json:"tons" validate:"required"`
	TicketData *ticketData      `json:"ticketData,omitempty"`
	SaleData   *saleData        `json:"saleData,omitempty"`
}

func (inventoryRequest) ValidationMessage(_, tag string) string {
	if tag == "required" {
		return "Missing required fields: action, productId, tons"
	}
	return ""
}

type ticketData struct {
	Vendor       string `json:"vendor,omitempty"`
	Material     string `json:"material,omitempty"`
	TicketNumber string `json:"ticketNumber,omitempty"`
	Truck        string `json:"truck,omitempty"`
	Date         string `json:"date,omitempty"`
	CapturedBy   string `json:"capturedBy,omitempty"`
}

func (t *ticketData) toTicket() *inventory.TicketData {
	if t == nil {
		return nil
	}
	return &inventory.TicketData{
		Vendor:       validators.SanitizeString(t.Vendor, textFieldLimit),
		Material:     validators.SanitizeString(t.Material, textFieldLimit),
		TicketNumber: validators.SanitizeString(t.TicketNumber, textFieldLimit),
		Truck:        validators.SanitizeString(t.Truck, textFieldLimit),
		Date:         validators.SanitizeString(t.Date, textFieldLimit),
		CapturedBy:   validators.SanitizeString(t.CapturedBy, textFieldLimit),
	}
}

type saleData struct {
	Material      string          `json:"material,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Total         decimal.Decimal `json:"total"`
	Customer      *orderCustomer  `json:"customer,omitempty"`
	Salesperson   string          `json:"salesperson,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	PaymentID     string          `json:"paymentId,omitempty"`
}

func (s *saleData) toSale() *inventory.SaleData {
	if s == nil {
		return nil
	}
	sale := &inventory.SaleData{
		Material:      validators.SanitizeString(s.Material, textFieldLimit),
		Quantity:      s.Quantity,
		Subtotal:      s.Subtotal,
		Total:         s.Total,
		Salesperson:   validators.SanitizeString(s.Salesperson, textFieldLimit),
		PaymentMethod: validators.SanitizeString(s.PaymentMethod, textFieldLimit),
		PaymentID:     validators.SanitizeString(s.PaymentID, textFieldLimit),
	}
	if s.Customer != nil {
		sale.CustomerName = validators.SanitizeString(s.Customer.Name, textFieldLimit)
		sale.CustomerEmail = validators.SanitizeString(s.Customer.Email, textFieldLimit)
		sale.CustomerPhone = validators.SanitizeString(s.Customer.Phone, textFieldLimit)
	}
	return sale
}

type inventoryResponse struct {
	Success       bool     `json:"success"`
	Action        string   `json:"action"`
	ProductID     string   `json:"productId"`
	Tons          float64  `json:"tons"`
	PreviousStock *float64 `json:"previousStock,omitempty"`
	NewStock      *float64 `json:"newStock,omitempty"`
	Message       string   `json:"message"`
}

type stockResponse struct {
	Success      bool    `json:"success"`
	ProductID    string  `json:"productId"`
	CurrentStock float64 `json:"currentStock"`
}

func decimalPtr(d decimal.Decimal) *float64 {
	v := d.InexactFloat64()
	return &v
}
