package slotsRepo

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
)

func TestFirestoreSlotRepo(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "slotbook-test")
	if err != nil {
		t.Fatalf("firestore.NewClient() error: %v", err)
	}
	defer client.Close()

	runRepositoryTests(t, NewFirestoreSlotRepo(client, testLabels))
}
