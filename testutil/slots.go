package testutil

import (
	"context"
	"sync"

	"slotbook/models"
)

// SlotStore is an in-memory SlotRepository.
type SlotStore struct {
	mu     sync.Mutex
	labels []string
	days   map[string]models.SlotMap

	// ReleaseErrs are returned by successive Release calls before they start succeeding.
	ReleaseErrs  []error
	ReleaseCalls int
}

func NewSlotStore(labels ...string) *SlotStore {
	return &SlotStore{labels: labels, days: make(map[string]models.SlotMap)}
}

func (s *SlotStore) day(date string) models.SlotMap {
	d, ok := s.days[date]
	if !ok {
		d = make(models.SlotMap, len(s.labels))
		for _, l := range s.labels {
			d[l] = models.SlotAvailable
		}
		s.days[date] = d
	}
	return d
}

// Book marks labels booked directly, for seeding fixtures.
func (s *SlotStore) Book(date string, labels ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.day(date)
	for _, l := range labels {
		d[l] = models.SlotBooked
	}
}

// Status returns the status of one label.
func (s *SlotStore) Status(date, label string) models.SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day(date)[label]
}

func (s *SlotStore) GetDay(_ context.Context, date string) (models.SlotMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(models.SlotMap)
	for k, v := range s.day(date) {
		out[k] = v
	}
	return out, nil
}

func (s *SlotStore) Reserve(_ context.Context, date string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.day(date)
	for _, l := range labels {
		st, ok := d[l]
		if !ok {
			return models.ErrUnknownSlot
		}
		if st != models.SlotAvailable {
			return models.ErrSlotUnavailable
		}
	}
	for _, l := range labels {
		d[l] = models.SlotBooked
	}
	return nil
}

func (s *SlotStore) Release(_ context.Context, date string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReleaseCalls++
	if len(s.ReleaseErrs) > 0 {
		err := s.ReleaseErrs[0]
		s.ReleaseErrs = s.ReleaseErrs[1:]
		if err != nil {
			return err
		}
	}
	d := s.day(date)
	for _, l := range labels {
		d[l] = models.SlotAvailable
	}
	return nil
}
