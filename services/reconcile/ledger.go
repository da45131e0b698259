package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slotbook/models"

	"github.com/go-redis/redis/v8"
)

const (
	releaseKeyPrefix  = "release:payment:"
	pendingReleaseSet = "release:pending"
	eventKeyPrefix    = "webhook:event:"

	// ReleaseRecordTTL bounds how long a released booking can still be reported as cancelled.
	ReleaseRecordTTL = 24 * time.Hour
	// EventClaimTTL covers the gateway's retry window for a single event.
	EventClaimTTL = 24 * time.Hour
)

// ReleaseLedger remembers bookings that were released, keyed by payment id, after the booking
// document itself has been deleted.
type ReleaseLedger interface {
	// Record stores rec. A pending record is kept until a finished record replaces it.
	Record(ctx context.Context, rec models.ReleaseRecord) error
	// Lookup returns nil without error when nothing was recorded for paymentID.
	Lookup(ctx context.Context, paymentID string) (*models.ReleaseRecord, error)
	// Pending lists records whose slots have not been released yet.
	Pending(ctx context.Context) ([]models.ReleaseRecord, error)
}

// EventClaims de-duplicates webhook deliveries by gateway event id.
type EventClaims interface {
	// Claim reports true the first time eventID is seen.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Forget drops a claim so a retried delivery is processed again.
	Forget(ctx context.Context, eventID string) error
}

// RedisLedger implements ReleaseLedger and EventClaims on one Redis client.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Record(ctx context.Context, rec models.ReleaseRecord) error {
	if rec.PaymentID == "" {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal release record: %w", err)
	}
	key := releaseKeyPrefix + rec.PaymentID
	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if rec.Pending {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, pendingReleaseSet, rec.PaymentID)
			return nil
		}
		pipe.Set(ctx, key, data, ReleaseRecordTTL)
		pipe.SRem(ctx, pendingReleaseSet, rec.PaymentID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save release record: %w", err)
	}
	return nil
}

func (l *RedisLedger) Pending(ctx context.Context) ([]models.ReleaseRecord, error) {
	ids, err := l.client.SMembers(ctx, pendingReleaseSet).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending releases: %w", err)
	}
	var out []models.ReleaseRecord
	for _, id := range ids {
		rec, err := l.Lookup(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil || !rec.Pending {
			l.client.SRem(ctx, pendingReleaseSet, id)
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (l *RedisLedger) Lookup(ctx context.Context, paymentID string) (*models.ReleaseRecord, error) {
	if paymentID == "" {
		return nil, nil
	}
	data, err := l.client.Get(ctx, releaseKeyPrefix+paymentID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read release record: %w", err)
	}
	var rec models.ReleaseRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal release record: %w", err)
	}
	return &rec, nil
}

func (l *RedisLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().Unix(), EventClaimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook event %s: %w", eventID, err)
	}
	return ok, nil
}

func (l *RedisLedger) Forget(ctx context.Context, eventID string) error {
	return l.client.Del(ctx, eventKeyPrefix+eventID).Err()
}
