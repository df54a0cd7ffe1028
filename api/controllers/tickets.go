package controllers

import (
	"context"
	"net/http"

	"github.com/yardtrackpro/yardtrack-backend/api/responses"
	"github.com/yardtrackpro/yardtrack-backend/api/validators"
	"github.com/yardtrackpro/yardtrack-backend/internal/tickets"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

type ticketExtractor interface {
	Extract(ctx context.Context, image string) (*tickets.Ticket, error)
}

// ExtractTicket reads a photographed scale ticket. maxBytes caps the JSON
// body carrying the base64 image.
func ExtractTicket(svc ticketExtractor, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ticket service unavailable"))
			return
		}

		var payload extractRequest
		if err := validators.DecodeJSONBody(w, r, &payload, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.Extract(r.Context(), payload.Image)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, extractResponse{
			Success: true,
			Data: ticketResponse{
				Vendor:          ticket.Vendor,
				Material:        ticket.Material,
				TicketNumber:    ticket.TicketNumber,
				Weight:          ticket.Weight.InexactFloat64(),
				Truck:           ticket.Truck,
				Date:            ticket.Date,
				ProductID:       ticket.ProductID,
				MatchConfidence: ticket.MatchConfidence,
				NeedsReview:     ticket.NeedsReview,
			},
		})
	}
}

type extractRequest struct {
	Image string `json:"image" validate:"required"`
}

func (extractRequest) ValidationMessage(_, tag string) string {
	if tag == "required" {
		return "No image provided"
	}
	return ""
}

type extractResponse struct {
	Success bool           `json:"success"`
	Data    ticketResponse `json:"data"`
}

type ticketResponse struct {
	Vendor          string  `json:"vendor"`
	Material        string  `json:"material"`
	TicketNumber    string  `json:"ticketNumber"`
	Weight          float64 `json:"weight"`
	Truck           string  `json:"truck"`
	Date            string  `json:"date"`
	ProductID       string  `json:"productId,omitempty"`
	MatchConfidence float64 `json:"matchConfidence"`
	NeedsReview     bool    `json:"needsReview"`
}
