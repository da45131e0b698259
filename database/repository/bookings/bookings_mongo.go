package bookingsRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MongoBookingRepo implements BookingRepository using MongoDB. Multi-document writes run in a
// session transaction, which requires a replica set.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	flatColl    *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo(db *mongo.Database) BookingRepository {
	repo := &MongoBookingRepo{
		bookingColl: db.Collection("bookings"),
		flatColl:    db.Collection("flatBookings"),
	}
	if err := repo.ensureIndexes(); err != nil {
		zap.L().Warn("booking indexes not created", zap.Error(err))
	}
	return repo
}

// withTransaction runs fn inside a session transaction, aborting on error.
func (repo *MongoBookingRepo) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	client := repo.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
}

func (repo *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows := booking.FlatRows()
	err := repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := repo.bookingColl.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		docs := make([]interface{}, 0, len(rows))
		for _, r := range rows {
			docs = append(docs, r)
		}
		if len(docs) > 0 {
			if _, err := repo.flatColl.InsertMany(sc, docs); err != nil {
				return fmt.Errorf("insert flat rows failed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("booking transaction failed: %w", err)
	}
	return nil
}

func (repo *MongoBookingRepo) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b models.Booking
	if err := repo.bookingColl.FindOne(ctx, filter).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrBookingNotFound
		}
		return nil, fmt.Errorf("error fetching booking: %w", err)
	}
	return &b, nil
}

func (repo *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return repo.findOne(ctx, bson.M{"_id": id})
}

func (repo *MongoBookingRepo) FindByPaymentID(ctx context.Context, paymentID string) (*models.Booking, error) {
	if paymentID == "" {
		return nil, models.ErrBookingNotFound
	}
	return repo.findOne(ctx, bson.M{"payment.paymentId": paymentID})
}

func (repo *MongoBookingRepo) FindByOrderID(ctx context.Context, orderID string) (*models.Booking, error) {
	if orderID == "" {
		return nil, models.ErrBookingNotFound
	}
	return repo.findOne(ctx, bson.M{"payment.orderId": orderID})
}

func (repo *MongoBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Date != "" {
		query["date"] = filter.Date
	}
	cursor, err := repo.bookingColl.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Booking
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	sortByCreated(out)
	return out, nil
}

// Confirm updates the booking and its rows in one transaction, so rows never lag behind a
// confirmed booking.
func (repo *MongoBookingRepo) Confirm(ctx context.Context, id, paymentID, orderID string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	set := bson.M{
		"status":                   models.BookingConfirmed,
		"updatedAt":                at,
		"payment.status":           models.PaymentSuccess,
		"payment.webhookProcessed": true,
		"payment.capturedAt":       at,
	}
	rowSet := bson.M{"status": models.BookingConfirmed}
	if paymentID != "" {
		set["payment.paymentId"] = paymentID
		rowSet["paymentId"] = paymentID
	}
	if orderID != "" {
		set["payment.orderId"] = orderID
	}

	changed := false
	err := repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		changed = false
		res, err := repo.bookingColl.UpdateOne(sc,
			bson.M{"_id": id, "status": models.BookingPending},
			bson.M{"$set": set},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			var b models.Booking
			if err := repo.bookingColl.FindOne(sc, bson.M{"_id": id}).Decode(&b); err != nil {
				if errors.Is(err, mongo.ErrNoDocuments) {
					return models.ErrBookingNotFound
				}
				return err
			}
			if b.Status == models.BookingConfirmed {
				return nil
			}
			return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, b.Status, models.BookingConfirmed)
		}

		if _, err := repo.flatColl.UpdateMany(sc, bson.M{"bookingId": id}, bson.M{"$set": rowSet}); err != nil {
			return fmt.Errorf("update flat rows failed: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to confirm booking %s: %w", id, err)
	}
	return changed, nil
}

func (repo *MongoBookingRepo) MarkAuthorized(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.bookingColl.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.BookingPending},
		bson.M{"$set": bson.M{
			"payment.status":           models.PaymentAuthorized,
			"payment.webhookProcessed": true,
			"updatedAt":                at,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking %s authorized: %w", id, err)
	}
	if res.MatchedCount == 0 {
		if _, err := repo.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// DeleteIfPending deletes with a status-conditioned FindOneAndDelete, so a concurrently confirmed
// booking never matches.
func (repo *MongoBookingRepo) DeleteIfPending(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var deleted models.Booking
	err := repo.withTransaction(ctx, func(sc mongo.SessionContext) error {
		err := repo.bookingColl.FindOneAndDelete(sc, bson.M{"_id": id, "status": models.BookingPending}).Decode(&deleted)
		if err != nil {
			return err
		}
		if _, err := repo.flatColl.DeleteMany(sc, bson.M{"bookingId": id}); err != nil {
			return fmt.Errorf("delete flat rows failed: %w", err)
		}
		return nil
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete booking %s: %w", id, err)
	}
	return &deleted, nil
}
