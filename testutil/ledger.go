package testutil

import (
	"context"
	"sort"
	"sync"

	"slotbook/models"
)

// Ledger is an in-memory release ledger and webhook event claim set.
type Ledger struct {
	mu       sync.Mutex
	records  map[string]models.ReleaseRecord
	claims   map[string]bool
	ClaimErr error
	// RecordErr is returned by Record without storing anything.
	RecordErr error
}

func NewLedger() *Ledger {
	return &Ledger{
		records: make(map[string]models.ReleaseRecord),
		claims:  make(map[string]bool),
	}
}

func (l *Ledger) Record(_ context.Context, rec models.ReleaseRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.RecordErr != nil {
		return l.RecordErr
	}
	if rec.PaymentID != "" {
		l.records[rec.PaymentID] = rec
	}
	return nil
}

func (l *Ledger) Pending(_ context.Context) ([]models.ReleaseRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.ReleaseRecord
	for _, rec := range l.records {
		if rec.Pending {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	return out, nil
}

func (l *Ledger) Lookup(_ context.Context, paymentID string) (*models.ReleaseRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[paymentID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (l *Ledger) Claim(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ClaimErr != nil {
		return false, l.ClaimErr
	}
	if l.claims[eventID] {
		return false, nil
	}
	l.claims[eventID] = true
	return true, nil
}

func (l *Ledger) Forget(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, eventID)
	return nil
}

// Claimed reports whether eventID is currently claimed.
func (l *Ledger) Claimed(eventID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claims[eventID]
}
