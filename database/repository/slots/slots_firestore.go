package slotsRepo

import (
	"context"
	"fmt"
	"time"

	"slotbook/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const slotsCollection = "slots"

// FirestoreSlotRepo keeps each date as a document of label -> status fields.
type FirestoreSlotRepo struct {
	client *firestore.Client
	labels []string
	known  map[string]bool
}

// NewFirestoreSlotRepo constructs a slot repository for the configured labels.
func NewFirestoreSlotRepo(client *firestore.Client, labels []string) SlotRepository {
	return &FirestoreSlotRepo{client: client, labels: labels, known: labelSet(labels)}
}

func (repo *FirestoreSlotRepo) doc(date string) *firestore.DocumentRef {
	return repo.client.Collection(slotsCollection).Doc(date)
}

func decodeDay(snap *firestore.DocumentSnapshot) models.SlotMap {
	day := make(models.SlotMap)
	for label, v := range snap.Data() {
		if s, ok := v.(string); ok {
			day[label] = models.SlotStatus(s)
		}
	}
	return day
}

func encodeDay(day models.SlotMap) map[string]interface{} {
	data := make(map[string]interface{}, len(day))
	for label, s := range day {
		data[label] = string(s)
	}
	return data
}

// GetDay reads the date document, creating it on first access.
func (repo *FirestoreSlotRepo) GetDay(ctx context.Context, date string) (models.SlotMap, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := repo.doc(date).Get(ctx)
	if err == nil {
		return withDefaults(decodeDay(snap), repo.labels), nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("error reading slots for %s: %w", date, err)
	}

	day := initialDay(repo.labels)
	if _, err := repo.doc(date).Create(ctx, encodeDay(day)); err != nil {
		if status.Code(err) != codes.AlreadyExists {
			return nil, fmt.Errorf("error initialising slots for %s: %w", date, err)
		}
		// Lost the race to another first reader; read what they wrote.
		snap, err := repo.doc(date).Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("error reading slots for %s: %w", date, err)
		}
		return withDefaults(decodeDay(snap), repo.labels), nil
	}
	return day, nil
}

// Reserve checks and flips the labels inside one transaction.
func (repo *FirestoreSlotRepo) Reserve(ctx context.Context, date string, labels []string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ref := repo.doc(date)
	err := repo.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		exists := true
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			exists = false
		}

		day := initialDay(repo.labels)
		if exists {
			day = withDefaults(decodeDay(snap), repo.labels)
		}
		if err := checkReservable(day, repo.known, labels); err != nil {
			return err
		}

		if !exists {
			for _, l := range labels {
				day[l] = models.SlotBooked
			}
			return tx.Create(ref, encodeDay(day))
		}
		updates := make([]firestore.Update, 0, len(labels))
		for _, l := range labels {
			updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{l}, Value: string(models.SlotBooked)})
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return fmt.Errorf("failed to reserve slots on %s: %w", date, err)
	}
	return nil
}

// Release sets each label to available with a field-level update.
func (repo *FirestoreSlotRepo) Release(ctx context.Context, date string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	updates := make([]firestore.Update, 0, len(labels))
	for _, l := range labels {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{l}, Value: string(models.SlotAvailable)})
	}
	if _, err := repo.doc(date).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			// Nothing was ever reserved on this date.
			return nil
		}
		return fmt.Errorf("failed to release slots on %s: %w", date, err)
	}
	return nil
}
