package slotsRepo

import (
	"context"

	"slotbook/models"
)

// SlotRepository stores one slot map per event date. Writers only ever flip the named labels,
// never overwrite the whole map, so concurrent bookings on the same date do not lose updates.
type SlotRepository interface {
	// GetDay returns the slot map for date, initialising it with every configured label on first access.
	GetDay(ctx context.Context, date string) (models.SlotMap, error)
	// Reserve flips every label from available to booked, or none of them.
	Reserve(ctx context.Context, date string, labels []string) error
	// Release flips labels back to available. Releasing an already available label is a no-op.
	Release(ctx context.Context, date string, labels []string) error
}

// initialDay builds the map a date starts with.
func initialDay(labels []string) models.SlotMap {
	day := make(models.SlotMap, len(labels))
	for _, l := range labels {
		day[l] = models.SlotAvailable
	}
	return day
}

// withDefaults adds configured labels missing from a stored map as available.
func withDefaults(day models.SlotMap, labels []string) models.SlotMap {
	for _, l := range labels {
		if _, ok := day[l]; !ok {
			day[l] = models.SlotAvailable
		}
	}
	return day
}

// checkReservable verifies that every label is configured and free in day.
func checkReservable(day models.SlotMap, known map[string]bool, labels []string) error {
	for _, l := range labels {
		if !known[l] {
			return models.ErrUnknownSlot
		}
		if day[l] != models.SlotAvailable {
			return models.ErrSlotUnavailable
		}
	}
	return nil
}

func labelSet(labels []string) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	return set
}
