package slotsRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotbook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSlotRepo keeps each date as {_id: date, slots: {label: status}}.
type MongoSlotRepo struct {
	slotColl *mongo.Collection
	labels   []string
	known    map[string]bool
}

type slotDocument struct {
	Date  string         `bson:"_id"`
	Slots models.SlotMap `bson:"slots"`
}

// NewMongoSlotRepo constructs a slot repository on db.
func NewMongoSlotRepo(db *mongo.Database, labels []string) SlotRepository {
	return &MongoSlotRepo{
		slotColl: db.Collection("slots"),
		labels:   labels,
		known:    labelSet(labels),
	}
}

// ensureDay inserts the initial document for date unless one exists.
func (repo *MongoSlotRepo) ensureDay(ctx context.Context, date string) error {
	_, err := repo.slotColl.InsertOne(ctx, slotDocument{Date: date, Slots: initialDay(repo.labels)})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("error initialising slots for %s: %w", date, err)
	}
	return nil
}

func (repo *MongoSlotRepo) GetDay(ctx context.Context, date string) (models.SlotMap, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc slotDocument
	err := repo.slotColl.FindOne(ctx, bson.M{"_id": date}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := repo.ensureDay(ctx, date); err != nil {
			return nil, err
		}
		err = repo.slotColl.FindOne(ctx, bson.M{"_id": date}).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading slots for %s: %w", date, err)
	}
	if doc.Slots == nil {
		doc.Slots = make(models.SlotMap)
	}
	return withDefaults(doc.Slots, repo.labels), nil
}

// Reserve is a single conditional update: it only matches when no label is already booked.
// Labels missing from an older document count as available.
func (repo *MongoSlotRepo) Reserve(ctx context.Context, date string, labels []string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for _, l := range labels {
		if !repo.known[l] {
			return models.ErrUnknownSlot
		}
	}
	if err := repo.ensureDay(ctx, date); err != nil {
		return err
	}

	filter := bson.M{"_id": date}
	set := bson.M{}
	for _, l := range labels {
		filter["slots."+l] = bson.M{"$ne": string(models.SlotBooked)}
		set["slots."+l] = string(models.SlotBooked)
	}
	res, err := repo.slotColl.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to reserve slots on %s: %w", date, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrSlotUnavailable
	}
	return nil
}

func (repo *MongoSlotRepo) Release(ctx context.Context, date string, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{}
	for _, l := range labels {
		set["slots."+l] = string(models.SlotAvailable)
	}
	if _, err := repo.slotColl.UpdateOne(ctx, bson.M{"_id": date}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("failed to release slots on %s: %w", date, err)
	}
	return nil
}
