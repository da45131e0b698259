package bookingsRepo

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"slotbook/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newTestDatabase connects to MONGO_TEST_URL, which must point at a replica set for transactions.
func newTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	url := os.Getenv("MONGO_TEST_URL")
	if url == "" {
		t.Skip("MONGO_TEST_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		t.Fatalf("mongo.Connect() error: %v", err)
	}
	db := client.Database("slotbook_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestMongoBookingRepo(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewMongoBookingRepo(db)

	runRepositoryTests(t, repo, func(ctx context.Context, rowID string) (models.BookingStatus, bool, error) {
		var row models.FlatBooking
		err := db.Collection("flatBookings").FindOne(ctx, bson.M{"_id": rowID}).Decode(&row)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return row.Status, true, nil
	})
}
