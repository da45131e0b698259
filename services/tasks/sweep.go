package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TypeBookingSweep = "booking:sweep"

// SweepPayload identifies who asked for a sweep.
type SweepPayload struct {
	Trigger string `json:"trigger"` // "schedule" or "manual"
}

// NewSweepTask builds the stale booking sweep task. Unique keeps concurrent schedulers from
// queueing the same tick twice.
func NewSweepTask(trigger string, uniqueFor time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(SweepPayload{Trigger: trigger})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingSweep, b)
	opts := []asynq.Option{
		asynq.Unique(uniqueFor),
		asynq.MaxRetry(0),
		asynq.Timeout(uniqueFor),
	}
	return task, opts, nil
}
