package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/yardtrackpro/yardtrack-backend/api/responses"
	squarewebhook "github.com/yardtrackpro/yardtrack-backend/internal/webhooks/square"
	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
	"github.com/yardtrackpro/yardtrack-backend/pkg/square"
)

const webhookBodyLimit = 1 << 20

type SquareWebhookService interface {
	HandleEvent(ctx context.Context, event *squarewebhook.Event) (squarewebhook.Outcome, error)
}

type squareWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type squareSigner interface {
	SigningSecret() string
	NotificationURL() string
}

type webhookMetrics interface {
	IncWebhookEvent(eventType, outcome string)
}

// SquareWebhook verifies, de-duplicates and reconciles Square payment
// notifications. Everything except a bad signature or a store failure is
// acknowledged with 200 so Square stops redelivering.
func SquareWebhook(svc SquareWebhookService, signer squareSigner, guard squareWebhookGuard, metrics webhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if signer != nil && signer.SigningSecret() != "" {
			provided := r.Header.Get(square.SignatureHeader)
			if !square.VerifySignature(signer.SigningSecret(), signer.NotificationURL(), payload, provided) {
				count(metrics, "unknown", "invalid_signature")
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid signature"))
				return
			}
		}

		var event squarewebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			count(metrics, "unknown", string(squarewebhook.OutcomeMalformed))
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "square webhook payload malformed")
			}
			responses.WriteAck(w)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"event_id":   event.EventID,
				"event_type": event.Type,
			})
		}

		eventKey := event.Key()
		guarded := false
		if guard != nil && eventKey != "" {
			duplicate, err := guard.CheckAndMark(ctx, eventKey)
			switch {
			case err != nil:
				if logg != nil {
					logg.Error(ctx, "square webhook guard unavailable", err)
				}
			case duplicate:
				count(metrics, event.Type, "duplicate")
				if logg != nil {
					logg.Info(ctx, "square webhook redelivery skipped")
				}
				responses.WriteAck(w)
				return
			default:
				guarded = true
			}
		}

		outcome, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			if guarded {
				if delErr := guard.Delete(ctx, eventKey); delErr != nil && logg != nil {
					logg.Error(ctx, "square webhook guard release failed", delErr)
				}
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Webhook processing failed"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", string(outcome)), "square webhook processed")
		}
		responses.WriteAck(w)
	}
}

func count(metrics webhookMetrics, eventType, outcome string) {
	if metrics == nil {
		return
	}
	metrics.IncWebhookEvent(eventType, outcome)
}
