package tickets

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
	"github.com/yardtrackpro/yardtrack-backend/pkg/vision"
)

// Prompt is the fixed instruction sent with every ticket image.
const Prompt = `You are analyzing a material delivery ticket/scale ticket image. Extract the following information and return ONLY a valid JSON object with these exact fields:

{
  "vendor": "Company name from the ticket header (e.g., Liberty Materials Inc., Collier Materials, etc.)",
  "material": "Product/material type (e.g., Masonry Sand #2, QM-1/4 Minus, Limestone, etc.)",
  "ticketNumber": "The ticket number/ID",
  "weight": "NET weight in tons as a number (not gross, not tare - the NET weight)",
  "truck": "Truck ID or number",
  "date": "Date in YYYY-MM-DD format"
}

Important notes:
- For weight, always use the NET weight (Gross minus Tare), converted to tons if given in pounds (divide by 2000)
- If the weight is already in tons, use that number directly
- If the ticket shows both short tons and metric tonnes, use the short tons column
- Look for fields labeled "Net", "Net Weight", "Net Tons", etc.
- Return ONLY the JSON object, no other text or explanation
- If a field cannot be determined, use an empty string ""`

type visionClient interface {
	DescribeImage(ctx context.Context, req vision.ImageRequest) (string, error)
}

type extractionMetrics interface {
	IncExtraction(outcome string)
}

// Ticket is an extracted scale ticket with its catalog match.
type Ticket struct {
	Fields
	ProductID       string
	MatchConfidence float64
	NeedsReview     bool
}

type Service struct {
	vision  visionClient
	matcher *Matcher
	images  ImageOptions
	metrics extractionMetrics
	logg    *logger.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

type ServiceParams struct {
	Vision  visionClient
	Catalog Catalog
	Images  ImageOptions
	Metrics extractionMetrics
	Logger  *logger.Logger
	Clock   func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Vision == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vision client required")
	}
	catalog := params.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		vision:  params.Vision,
		matcher: NewMatcher(catalog),
		images:  params.Images,
		metrics: params.Metrics,
		logg:    params.Logger,
		tracer:  otel.Tracer("yardtrack/tickets"),
		now:     now,
	}, nil
}

// Extract decodes the uploaded image, asks the vision service for the ticket
// fields and resolves the material against the catalog.
func (s *Service) Extract(ctx context.Context, image string) (*Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "tickets.extract")
	defer span.End()

	ticket, outcome, err := s.extract(ctx, span, image)
	s.count(outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, outcome)
		return nil, err
	}
	span.SetStatus(otelcodes.Ok, "")
	return ticket, nil
}

func (s *Service) extract(ctx context.Context, span trace.Span, image string) (*Ticket, string, error) {
	data, err := decodeUpload(image)
	if err != nil {
		return nil, "invalid_input", err
	}
	prepared, err := prepareImage(data, s.images)
	if err != nil {
		return nil, "invalid_input", err
	}
	span.SetAttributes(
		attribute.String("ticket.media_type", prepared.MediaType),
		attribute.Int("ticket.image_bytes", len(prepared.Data)),
		attribute.Bool("ticket.resized", prepared.Resized),
	)

	reply, err := s.vision.DescribeImage(ctx, vision.ImageRequest{
		MediaType: prepared.MediaType,
		Data:      prepared.Data,
		Prompt:    Prompt,
	})
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "tickets.vision_failed", err)
		}
		return nil, "vision_error", err
	}

	fields, err := parseFields(reply, s.now().UTC())
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "raw", reply), "tickets.parse_failed")
		}
		return nil, "parse_error", err
	}

	match := s.matcher.Match(fields.Material)
	span.SetAttributes(
		attribute.String("ticket.product_id", match.ProductID),
		attribute.Float64("ticket.match_confidence", match.Confidence),
	)

	outcome := "ok"
	if match.NeedsReview {
		outcome = "needs_review"
	}
	return &Ticket{
		Fields:          *fields,
		ProductID:       match.ProductID,
		MatchConfidence: math.Round(match.Confidence*100) / 100,
		NeedsReview:     match.NeedsReview,
	}, outcome, nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.IncExtraction(outcome)
	}
}
