package bookingsRepo

import (
	"context"
	"os"
	"testing"

	"slotbook/models"

	"cloud.google.com/go/firestore"
)

// newEmulatorClient connects to the Firestore emulator, skipping when none is configured.
func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "slotbook-test")
	if err != nil {
		t.Fatalf("firestore.NewClient() error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFirestoreBookingRepo(t *testing.T) {
	client := newEmulatorClient(t)
	repo := NewFirestoreBookingRepo(client)

	runRepositoryTests(t, repo, func(ctx context.Context, rowID string) (models.BookingStatus, bool, error) {
		snap, err := client.Collection(flatBookingsCollection).Doc(rowID).Get(ctx)
		if isNotFound(err) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		var row models.FlatBooking
		if err := snap.DataTo(&row); err != nil {
			return "", false, err
		}
		return row.Status, true, nil
	})
}
