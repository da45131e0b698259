package bookingsRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	bookingsCollection     = "bookings"
	flatBookingsCollection = "flatBookings"
)

// FirestoreBookingRepo implements BookingRepository on Firestore.
type FirestoreBookingRepo struct {
	client *firestore.Client
}

func NewFirestoreBookingRepo(client *firestore.Client) BookingRepository {
	return &FirestoreBookingRepo{client: client}
}

func (repo *FirestoreBookingRepo) bookingDoc(id string) *firestore.DocumentRef {
	return repo.client.Collection(bookingsCollection).Doc(id)
}

func (repo *FirestoreBookingRepo) rowDoc(id string) *firestore.DocumentRef {
	return repo.client.Collection(flatBookingsCollection).Doc(id)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func decodeBooking(snap *firestore.DocumentSnapshot) (*models.Booking, error) {
	var b models.Booking
	if err := snap.DataTo(&b); err != nil {
		return nil, fmt.Errorf("error decoding booking %s: %w", snap.Ref.ID, err)
	}
	b.ID = snap.Ref.ID
	return &b, nil
}

// Create writes the booking and its rows in one transaction.
func (repo *FirestoreBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := repo.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(repo.bookingDoc(booking.ID), booking); err != nil {
			return err
		}
		for _, row := range booking.FlatRows() {
			if err := tx.Create(repo.rowDoc(row.ID), row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create booking %s: %w", booking.ID, err)
	}
	return nil
}

func (repo *FirestoreBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := repo.bookingDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return decodeBooking(snap)
}

func (repo *FirestoreBookingRepo) findOne(ctx context.Context, field, value string) (*models.Booking, error) {
	if value == "" {
		return nil, models.ErrBookingNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	iter := repo.client.Collection(bookingsCollection).Where(field, "==", value).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, models.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying bookings by %s: %w", field, err)
	}
	return decodeBooking(snap)
}

func (repo *FirestoreBookingRepo) FindByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error) {
	return repo.findOne(ctx, "payment.paymentId", paymentID)
}

func (repo *FirestoreBookingRepo) FindByOrderID(ctx context.Context, orderID string) (*models.Booking, error) {
	return repo.findOne(ctx, "payment.orderId", orderID)
}

func (repo *FirestoreBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	q := repo.client.Collection(bookingsCollection).Query
	if filter.Status != "" {
		q = q.Where("status", "==", string(filter.Status))
	}
	if filter.Date != "" {
		q = q.Where("date", "==", filter.Date)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []models.Booking
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing bookings: %w", err)
		}
		b, err := decodeBooking(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	sortByCreated(out)
	return out, nil
}

func (repo *FirestoreBookingRepo) Confirm(ctx context.Context, id, paymentID, orderID string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	changed := false
	ref := repo.bookingDoc(id)
	err := repo.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return models.ErrBookingNotFound
			}
			return err
		}
		b, err := decodeBooking(snap)
		if err != nil {
			return err
		}
		if b.Status == models.BookingConfirmed {
			return nil
		}
		if err := b.Transition(models.BookingConfirmed, at); err != nil {
			return err
		}
		if paymentID != "" {
			b.Payment.PaymentID = paymentID
		}
		if orderID != "" {
			b.Payment.OrderID = orderID
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(b.Status)},
			{Path: "updatedAt", Value: at},
			{Path: "payment.status", Value: string(b.Payment.Status)},
			{Path: "payment.webhookProcessed", Value: true},
			{Path: "payment.capturedAt", Value: at},
			{Path: "payment.paymentId", Value: b.Payment.PaymentID},
			{Path: "payment.orderId", Value: b.Payment.OrderID},
		}); err != nil {
			return err
		}
		for i := range b.TimeSlots {
			if err := tx.Update(repo.rowDoc(models.FlatRowID(b.ID, i)), []firestore.Update{
				{Path: "status", Value: string(b.Status)},
				{Path: "paymentId", Value: b.Payment.PaymentID},
			}); err != nil {
				return err
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to confirm booking %s: %w", id, err)
	}
	return changed, nil
}

func (repo *FirestoreBookingRepo) MarkAuthorized(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	changed := false
	ref := repo.bookingDoc(id)
	err := repo.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return models.ErrBookingNotFound
			}
			return err
		}
		b, err := decodeBooking(snap)
		if err != nil {
			return err
		}
		if b.Status != models.BookingPending {
			return nil
		}
		changed = true
		return tx.Update(ref, []firestore.Update{
			{Path: "payment.status", Value: string(models.PaymentAuthorized)},
			{Path: "payment.webhookProcessed", Value: true},
			{Path: "updatedAt", Value: at},
		})
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark booking %s authorized: %w", id, err)
	}
	return changed, nil
}

// DeleteIfPending reads the status and deletes inside one transaction, so a booking confirmed
// concurrently makes the transaction retry and then fail with ErrNotPending.
func (repo *FirestoreBookingRepo) DeleteIfPending(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var deleted *models.Booking
	ref := repo.bookingDoc(id)
	err := repo.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		deleted = nil
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return models.ErrBookingNotFound
			}
			return err
		}
		b, err := decodeBooking(snap)
		if err != nil {
			return err
		}
		if b.Status != models.BookingPending {
			return models.ErrNotPending
		}
		if err := tx.Delete(ref); err != nil {
			return err
		}
		for i := range b.TimeSlots {
			if err := tx.Delete(repo.rowDoc(models.FlatRowID(b.ID, i))); err != nil {
				return err
			}
		}
		deleted = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete booking %s: %w", id, err)
	}
	return deleted, nil
}
