package slotsRepo

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"slotbook/models"
)

var testLabels = []string{"09:00 AM", "09:10 AM", "09:20 AM"}

// freshDate picks a far-future date so reruns against a persistent store start clean.
func freshDate() string {
	base := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, rand.Intn(300000)).Format("2006-01-02")
}

// runRepositoryTests checks the guarantees every SlotRepository implementation must keep.
func runRepositoryTests(t *testing.T, repo SlotRepository) {
	ctx := context.Background()

	t.Run("new day is all available", func(t *testing.T) {
		day, err := repo.GetDay(ctx, freshDate())
		if err != nil {
			t.Fatalf("GetDay() error: %v", err)
		}
		if got := day.Available(testLabels); len(got) != len(testLabels) {
			t.Errorf("available = %v, want %v", got, testLabels)
		}
	})

	t.Run("reserve is all or nothing", func(t *testing.T) {
		date := freshDate()
		if err := repo.Reserve(ctx, date, []string{"09:00 AM", "09:10 AM"}); err != nil {
			t.Fatalf("Reserve() error: %v", err)
		}
		err := repo.Reserve(ctx, date, []string{"09:10 AM", "09:20 AM"})
		if !errors.Is(err, models.ErrSlotUnavailable) {
			t.Fatalf("overlapping Reserve() error = %v, want ErrSlotUnavailable", err)
		}
		day, err := repo.GetDay(ctx, date)
		if err != nil {
			t.Fatalf("GetDay() error: %v", err)
		}
		if day["09:00 AM"] != models.SlotBooked || day["09:10 AM"] != models.SlotBooked {
			t.Errorf("reserved labels = %v", day)
		}
		if day["09:20 AM"] != models.SlotAvailable {
			t.Errorf("09:20 AM = %s after failed reserve, want available", day["09:20 AM"])
		}
	})

	t.Run("unknown label", func(t *testing.T) {
		err := repo.Reserve(ctx, freshDate(), []string{"09:00 AM", "11:59 PM"})
		if !errors.Is(err, models.ErrUnknownSlot) {
			t.Errorf("Reserve() error = %v, want ErrUnknownSlot", err)
		}
	})

	t.Run("release frees labels", func(t *testing.T) {
		date := freshDate()
		if err := repo.Reserve(ctx, date, []string{"09:20 AM"}); err != nil {
			t.Fatalf("Reserve() error: %v", err)
		}
		if err := repo.Release(ctx, date, []string{"09:20 AM"}); err != nil {
			t.Fatalf("Release() error: %v", err)
		}
		if err := repo.Release(ctx, date, []string{"09:20 AM"}); err != nil {
			t.Fatalf("second Release() error: %v", err)
		}
		if err := repo.Reserve(ctx, date, []string{"09:20 AM"}); err != nil {
			t.Errorf("Reserve() after release error: %v", err)
		}
	})

	t.Run("concurrent reserve has one winner", func(t *testing.T) {
		date := freshDate()
		if _, err := repo.GetDay(ctx, date); err != nil {
			t.Fatalf("GetDay() error: %v", err)
		}

		const n = 4
		var (
			wg   sync.WaitGroup
			errs = make([]error, n)
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = repo.Reserve(ctx, date, []string{"09:00 AM"})
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case !errors.Is(err, models.ErrSlotUnavailable):
				t.Errorf("unexpected Reserve() error: %v", err)
			}
		}
		if wins != 1 {
			t.Errorf("winners = %d, want 1", wins)
		}
	})
}
