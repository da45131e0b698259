package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingsRepo "slotbook/database/repository/bookings"
	"slotbook/models"

	"go.uber.org/zap"
)

// Actions reported for a processed webhook.
const (
	ActionConfirmed  = "confirmed"
	ActionCancelled  = "cancelled"
	ActionAuthorized = "authorized"
	ActionIgnored    = "ignored"
	ActionDuplicate  = "duplicate"
)

// WebhookResult is the outcome of one gateway delivery.
type WebhookResult struct {
	Action           string
	Event            string
	BookingID        string
	SearchMethod     string
	SlotsFreed       int
	AlreadyProcessed bool
	BookingFound     bool
	Reason           string
}

// WebhookProcessor applies verified gateway events to bookings.
type WebhookProcessor struct {
	Bookings  bookingsRepo.BookingRepository
	Locator   *Locator
	Canceller *Canceller
	Ledger    ReleaseLedger
	Claims    EventClaims
	Logger    *zap.Logger
	Now       func() time.Time
}

func (p *WebhookProcessor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Process handles one event. The signature must already have been verified.
// A models.ErrBookingNotFound error means there is nothing to reconcile.
func (p *WebhookProcessor) Process(ctx context.Context, eventID string, evt models.WebhookEvent) (*WebhookResult, error) {
	switch evt.Event {
	case models.EventPaymentCaptured, models.EventPaymentFailed, models.EventPaymentAuthorized:
	default:
		p.Logger.Info("ignoring webhook event", zap.String("event", evt.Event))
		return &WebhookResult{Action: ActionIgnored, Event: evt.Event}, nil
	}

	claimed := false
	if eventID != "" && p.Claims != nil {
		fresh, err := p.Claims.Claim(ctx, eventID)
		switch {
		case err != nil:
			// Handlers are idempotent on their own; carry on without the claim.
			p.Logger.Warn("webhook de-duplication unavailable", zap.String("eventId", eventID), zap.Error(err))
		case !fresh:
			p.Logger.Info("duplicate webhook delivery", zap.String("eventId", eventID), zap.String("event", evt.Event))
			return &WebhookResult{Action: ActionDuplicate, Event: evt.Event}, nil
		default:
			claimed = true
		}
	}

	res, err := p.dispatch(ctx, evt)
	if err != nil && claimed {
		// Let the gateway's retry of this delivery be processed again.
		if ferr := p.Claims.Forget(context.WithoutCancel(ctx), eventID); ferr != nil {
			p.Logger.Warn("failed to release webhook claim", zap.String("eventId", eventID), zap.Error(ferr))
		}
	}
	return res, err
}

func (p *WebhookProcessor) dispatch(ctx context.Context, evt models.WebhookEvent) (*WebhookResult, error) {
	pay := evt.Payload.Payment.Entity
	log := p.Logger.With(
		zap.String("event", evt.Event),
		zap.String("paymentId", pay.ID),
		zap.String("orderId", pay.OrderID),
	)

	switch evt.Event {
	case models.EventPaymentCaptured:
		return p.captured(ctx, log, pay)
	case models.EventPaymentFailed:
		return p.failed(ctx, log, pay)
	default:
		return p.authorized(ctx, log, pay)
	}
}

func (p *WebhookProcessor) captured(ctx context.Context, log *zap.Logger, pay models.GatewayPayment) (*WebhookResult, error) {
	found, err := p.Locator.Locate(ctx, pay.ID, pay.OrderID)
	if err != nil {
		if errors.Is(err, models.ErrBookingNotFound) {
			p.warnCapturedAfterRelease(ctx, log, pay.ID)
		}
		return nil, err
	}
	log = log.With(zap.String("bookingId", found.Booking.ID), zap.String("searchMethod", found.Method))

	changed, err := p.Bookings.Confirm(ctx, found.Booking.ID, pay.ID, pay.OrderID, p.now())
	switch {
	case errors.Is(err, models.ErrBookingNotFound):
		// Swept between lookup and confirm.
		p.warnCapturedAfterRelease(ctx, log, pay.ID)
		return nil, err
	case errors.Is(err, models.ErrInvalidTransition):
		log.Warn("captured payment for a booking that cannot be confirmed", zap.Error(err))
		return &WebhookResult{
			Action:       ActionIgnored,
			Event:        models.EventPaymentCaptured,
			BookingID:    found.Booking.ID,
			SearchMethod: found.Method,
			Reason:       err.Error(),
		}, nil
	case err != nil:
		return nil, err
	}

	if changed {
		log.Info("booking confirmed", zap.Int("attempts", found.Attempts))
	} else {
		log.Info("booking already confirmed")
	}
	return &WebhookResult{
		Action:           ActionConfirmed,
		Event:            models.EventPaymentCaptured,
		BookingID:        found.Booking.ID,
		SearchMethod:     found.Method,
		AlreadyProcessed: !changed,
		BookingFound:     true,
	}, nil
}

// warnCapturedAfterRelease flags money taken for a booking whose slots were already given back.
func (p *WebhookProcessor) warnCapturedAfterRelease(ctx context.Context, log *zap.Logger, paymentID string) {
	if p.Ledger == nil {
		return
	}
	rec, err := p.Ledger.Lookup(ctx, paymentID)
	if err != nil || rec == nil {
		return
	}
	log.Error("payment captured after its booking was released; refund required",
		zap.String("bookingId", rec.BookingID),
		zap.String("releaseReason", rec.Reason),
		zap.Time("releasedAt", rec.ReleasedAt),
	)
}

func (p *WebhookProcessor) failed(ctx context.Context, log *zap.Logger, pay models.GatewayPayment) (*WebhookResult, error) {
	if p.Ledger != nil {
		rec, err := p.Ledger.Lookup(ctx, pay.ID)
		if err != nil {
			log.Warn("release ledger unavailable", zap.Error(err))
		} else if rec != nil && rec.Pending {
			log.Info("finishing interrupted slot release", zap.String("bookingId", rec.BookingID))
			res, err := p.Canceller.Resume(ctx, *rec)
			if err != nil {
				return nil, err
			}
			return &WebhookResult{
				Action:       ActionCancelled,
				Event:        models.EventPaymentFailed,
				BookingID:    rec.BookingID,
				SlotsFreed:   res.SlotsFreed,
				BookingFound: true,
			}, nil
		} else if rec != nil {
			log.Info("booking already released", zap.String("bookingId", rec.BookingID))
			return nil, fmt.Errorf("%w: released at %s", models.ErrBookingNotFound, rec.ReleasedAt.Format(time.RFC3339))
		}
	}

	found, err := p.Locator.Locate(ctx, pay.ID, pay.OrderID)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("bookingId", found.Booking.ID), zap.String("searchMethod", found.Method))

	// An order can carry several attempts; a booking written for another attempt is not ours to cancel.
	if owner := found.Booking.Payment.PaymentID; found.Method == SearchByOrderID && owner != "" && owner != pay.ID {
		log.Info("payment failure ignored for another attempt's booking", zap.String("bookingPaymentId", owner))
		return &WebhookResult{
			Action:       ActionIgnored,
			Event:        models.EventPaymentFailed,
			BookingID:    found.Booking.ID,
			SearchMethod: found.Method,
			BookingFound: true,
			Reason:       "booking belongs to another payment attempt",
		}, nil
	}

	res, err := p.Canceller.CancelIfPending(ctx, found.Booking.ID, pay.FailureReason())
	switch {
	case errors.Is(err, models.ErrNotPending):
		// A failed attempt on an order that another attempt already paid.
		log.Info("payment failure ignored for non-pending booking", zap.String("status", string(found.Booking.Status)))
		return &WebhookResult{
			Action:       ActionIgnored,
			Event:        models.EventPaymentFailed,
			BookingID:    found.Booking.ID,
			SearchMethod: found.Method,
			BookingFound: true,
			Reason:       "booking already confirmed",
		}, nil
	case err != nil:
		return nil, err
	}

	return &WebhookResult{
		Action:       ActionCancelled,
		Event:        models.EventPaymentFailed,
		BookingID:    res.Booking.ID,
		SearchMethod: found.Method,
		SlotsFreed:   res.SlotsFreed,
		BookingFound: true,
	}, nil
}

// authorized is advisory: a single lookup, no waiting, and never an error response.
func (p *WebhookProcessor) authorized(ctx context.Context, log *zap.Logger, pay models.GatewayPayment) (*WebhookResult, error) {
	res := &WebhookResult{Action: ActionAuthorized, Event: models.EventPaymentAuthorized}

	found, err := p.Locator.LocateOnce(ctx, pay.ID, pay.OrderID)
	if err != nil {
		if !errors.Is(err, models.ErrBookingNotFound) {
			log.Warn("authorized payment lookup failed", zap.Error(err))
		}
		return res, nil
	}
	res.BookingFound = true
	res.BookingID = found.Booking.ID
	res.SearchMethod = found.Method

	changed, err := p.Bookings.MarkAuthorized(ctx, found.Booking.ID, p.now())
	if err != nil {
		log.Warn("failed to record authorized payment", zap.String("bookingId", found.Booking.ID), zap.Error(err))
		return res, nil
	}
	res.AlreadyProcessed = !changed
	return res, nil
}
