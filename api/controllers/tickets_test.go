package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yardtrackpro/yardtrack-backend/internal/tickets"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
)

type stubTicketExtractor struct {
	ticket *tickets.Ticket
	err    error
	image  string
}

func (s *stubTicketExtractor) Extract(ctx context.Context, image string) (*tickets.Ticket, error) {
	s.image = image
	return s.ticket, s.err
}

func TestExtractTicketSuccess(t *testing.T) {
	svc := &stubTicketExtractor{ticket: &tickets.Ticket{
		Fields: tickets.Fields{
			Vendor:       "Hanson Aggregates",
			Material:     "3/4 Limestone",
			TicketNumber: "884213",
			Weight:       decimal.RequireFromString("22.45"),
			Truck:        "T-12",
			Date:         "2024-03-05",
		},
		ProductID:       "limestone-3/4",
		MatchConfidence: 0.92,
	}}

	rec := postJSON(ExtractTicket(svc, 1<<20, nil), "/api/v1/tickets/extract", `{"image":"data:image/png;base64,aGVsbG8="}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body)
	}
	if data["productId"] != "limestone-3/4" || data["weight"] != 22.45 || data["needsReview"] != false {
		t.Fatalf("unexpected data %v", data)
	}
	if svc.image != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("image not forwarded unchanged: %q", svc.image)
	}
}

func TestExtractTicketNoImage(t *testing.T) {
	rec := postJSON(ExtractTicket(&stubTicketExtractor{}, 1<<20, nil), "/api/v1/tickets/extract", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeJSON(t, rec)["error"]; got != "No image provided" {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestExtractTicketParseFailure(t *testing.T) {
	svc := &stubTicketExtractor{err: pkgerrors.Wrap(pkgerrors.CodeExtractionParse, errors.New("no json"), "parse ticket").
		WithDetails(map[string]any{"raw": "I could not read this ticket"})}

	rec := postJSON(ExtractTicket(svc, 1<<20, nil), "/api/v1/tickets/extract", `{"image":"aGVsbG8="}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["error"] != "Failed to parse extracted data" || body["raw"] != "I could not read this ticket" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestExtractTicketBodyTooLarge(t *testing.T) {
	rec := postJSON(ExtractTicket(&stubTicketExtractor{}, 16, nil), "/api/v1/tickets/extract", `{"image":"aGVsbG8gd29ybGQgaGVsbG8gd29ybGQ="}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
