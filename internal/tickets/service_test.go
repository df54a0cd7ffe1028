package tickets

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/vision"
)

type fakeVision struct {
	reply string
	err   error
	got   vision.ImageRequest
}

func (f *fakeVision) DescribeImage(_ context.Context, req vision.ImageRequest) (string, error) {
	f.got = req
	return f.reply, f.err
}

type countingMetrics struct{ outcomes []string }

func (c *countingMetrics) IncExtraction(outcome string) { c.outcomes = append(c.outcomes, outcome) }

func newExtractor(t *testing.T, v *fakeVision, m *countingMetrics) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Vision:  v,
		Images:  DefaultImageOptions(),
		Metrics: m,
		Clock:   func() time.Time { return time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestExtractMatchesMaterial(t *testing.T) {
	v := &fakeVision{reply: `{"vendor":"Collier Materials","material":"3/4 Limestone","ticketNumber":"A-991","weight":22.8,"truck":"14","date":"2025-03-12"}`}
	m := &countingMetrics{}
	svc := newExtractor(t, v, m)

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 8, 8))
	ticket, err := svc.Extract(context.Background(), image)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v.got.MediaType != "image/png" || v.got.Prompt != Prompt {
		t.Fatalf("unexpected vision request %s", v.got.MediaType)
	}
	if ticket.ProductID != "limestone-3/4" || ticket.NeedsReview {
		t.Fatalf("unexpected match %+v", ticket)
	}
	if !ticket.Weight.Equal(decimal.RequireFromString("22.8")) || ticket.Date != "2025-03-12" {
		t.Fatalf("unexpected fields %+v", ticket.Fields)
	}
	if len(m.outcomes) != 1 || m.outcomes[0] != "ok" {
		t.Fatalf("unexpected metrics %v", m.outcomes)
	}
}

func TestExtractUnknownMaterialNeedsReview(t *testing.T) {
	v := &fakeVision{reply: `{"material":"xyz123"}`}
	m := &countingMetrics{}
	svc := newExtractor(t, v, m)

	ticket, err := svc.Extract(context.Background(), base64.StdEncoding.EncodeToString(pngBytes(t, 8, 8)))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ticket.ProductID != "" || !ticket.NeedsReview {
		t.Fatalf("expected unmatched ticket, got %+v", ticket)
	}
	if ticket.Date != "2025-03-14" || !ticket.Weight.IsZero() {
		t.Fatalf("expected defaults, got %+v", ticket.Fields)
	}
	if m.outcomes[0] != "needs_review" {
		t.Fatalf("unexpected metrics %v", m.outcomes)
	}
}

func TestExtractPropagatesErrors(t *testing.T) {
	image := base64.StdEncoding.EncodeToString(pngBytes(t, 8, 8))

	upstream := pkgerrors.New(pkgerrors.CodeExtractionFailed, "Failed to analyze image")
	svc := newExtractor(t, &fakeVision{err: upstream}, &countingMetrics{})
	if _, err := svc.Extract(context.Background(), image); !errors.Is(err, upstream) {
		t.Fatalf("expected vision error, got %v", err)
	}

	svc = newExtractor(t, &fakeVision{reply: "sorry, blurry"}, &countingMetrics{})
	if _, err := svc.Extract(context.Background(), image); !pkgerrors.IsCode(err, pkgerrors.CodeExtractionParse) {
		t.Fatalf("expected parse error, got %v", err)
	}

	svc = newExtractor(t, &fakeVision{}, &countingMetrics{})
	if _, err := svc.Extract(context.Background(), ""); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
