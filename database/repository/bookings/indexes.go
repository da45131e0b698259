package bookingsRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates indexes for the webhook lookups and the sweep's pending scan.
func (repo *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Bookings written before checkout returns may not carry an order id yet.
	sparse := options.Index().SetSparse(true)
	bookingIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "payment.paymentId", Value: 1}}},
		{Keys: bson.D{{Key: "payment.orderId", Value: 1}}, Options: sparse},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	}
	if _, err := repo.bookingColl.Indexes().CreateMany(ctx, bookingIdx); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	flatIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "bookingId", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: 1}, {Key: "timeSlot", Value: 1}}},
	}
	if _, err := repo.flatColl.Indexes().CreateMany(ctx, flatIdx); err != nil {
		return fmt.Errorf("failed to create flat booking indexes: %w", err)
	}
	return nil
}
