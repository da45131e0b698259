package database

import (
	"context"
	"errors"
	"fmt"

	"slotbook/config"
	bookingsRepo "slotbook/database/repository/bookings"
	slotsRepo "slotbook/database/repository/slots"
	"slotbook/utils"

	"google.golang.org/api/iterator"
)

// Stores is the document store selected by STORE_DRIVER.
type Stores struct {
	Driver   string
	Slots    slotsRepo.SlotRepository
	Bookings bookingsRepo.BookingRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks the store is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Stores) Close(ctx context.Context) error {
	return s.close(ctx)
}

// OpenStores connects to the configured store and builds its repositories.
func OpenStores(cfg config.Config) (*Stores, error) {
	labels := cfg.Slots()

	switch cfg.StoreDriver {
	case "firestore":
		utils.FirebaseInit()
		client := utils.FirestoreClient
		return &Stores{
			Driver:   cfg.StoreDriver,
			Slots:    slotsRepo.NewFirestoreSlotRepo(client, labels),
			Bookings: bookingsRepo.NewFirestoreBookingRepo(client),
			ping: func(ctx context.Context) error {
				_, err := client.Collection("slots").Limit(1).Documents(ctx).Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
			close: func(context.Context) error { return client.Close() },
		}, nil

	case "mongo":
		InitDB()
		db := Database()
		return &Stores{
			Driver:   cfg.StoreDriver,
			Slots:    slotsRepo.NewMongoSlotRepo(db, labels),
			Bookings: bookingsRepo.NewMongoBookingRepo(db),
			ping:     func(ctx context.Context) error { return MongoClient.Ping(ctx, nil) },
			close:    func(ctx context.Context) error { return MongoClient.Disconnect(ctx) },
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
