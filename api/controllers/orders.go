package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/yardtrackpro/yardtrack-backend/api/responses"
	"github.com/yardtrackpro/yardtrack-backend/api/validators"
	"github.com/yardtrackpro/yardtrack-backend/internal/orders"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

const (
	orderBodyLimit = 1 << 20
	textFieldLimit = 200
)

// SubmitOrder charges a point-of-sale order.
func SubmitOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload orderRequest
		if err := validators.DecodeJSONBody(w, r, &payload, orderBodyLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderResponse{
			Success:     true,
			OrderNumber: result.OrderNumber,
			PaymentID:   result.PaymentID,
			Status:      result.Status,
			ReceiptURL:  result.ReceiptURL,
			CreatedAt:   result.CreatedAt,
		})
	}
}

type orderRequest struct {
	SourceID    string               `json:"sourceId" validate:"required"`
	Amount      *decimal.Decimal     `json:"amount" validate:"required"`
	Customer    *orderCustomer       `json:"customer,omitempty"`
	Salesperson string               `json:"salesperson,omitempty"`
	Items       []orderItem          `json:"items,omitempty" validate:"omitempty,dive"`
	OrderType   string               `json:"orderType,omitempty"`
	Delivery    *orderDeliveryDetail `json:"delivery,omitempty"`
}

type orderCustomer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type orderItem struct {
	ProductID string          `json:"productId,omitempty"`
	Material  string          `json:"material,omitempty"`
	Product   string          `json:"product,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Tons      decimal.Decimal `json:"tons"`
	Total     decimal.Decimal `json:"total"`
}

type orderDeliveryDetail struct {
	Date string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (orderRequest) ValidationMessage(field, tag string) string {
	switch {
	case tag == "required" && (field == "sourceId" || field == "amount"):
		return "Missing sourceId or amount"
	case field == "date":
		return "delivery date must be YYYY-MM-DD"
	}
	return ""
}

func (p orderRequest) toInput() orders.SubmitInput {
	input := orders.SubmitInput{
		SourceID:    p.SourceID,
		Salesperson: validators.SanitizeString(p.Salesperson, textFieldLimit),
		OrderType:   validators.SanitizeString(p.OrderType, textFieldLimit),
	}
	if p.Amount != nil {
		input.Amount = *p.Amount
	}
	if p.Customer != nil {
		input.Customer = &orders.Customer{
			Name:  validators.SanitizeString(p.Customer.Name, textFieldLimit),
			Email: validators.SanitizeString(p.Customer.Email, textFieldLimit),
			Phone: validators.SanitizeString(p.Customer.Phone, textFieldLimit),
		}
	}
	if p.Delivery != nil {
		input.Delivery = &orders.Delivery{Date: p.Delivery.Date}
	}
	for _, item := range p.Items {
		material := item.Material
		if material == "" {
			material = item.Product
		}
		input.Items = append(input.Items, orders.Item{
			ProductID: validators.SanitizeString(item.ProductID, textFieldLimit),
			Material:  validators.SanitizeString(material, textFieldLimit),
			Quantity:  item.Quantity,
			Tons:      item.Tons,
			Total:     item.Total,
		})
	}
	return input
}

type orderResponse struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber"`
	PaymentID   string `json:"paymentId"`
	Status      string `json:"status"`
	ReceiptURL  string `json:"receiptUrl,omitempty"`
	CreatedAt   string `json:"createdAt"`
}
