package models

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotPending      = errors.New("booking is no longer pending")
	ErrSlotUnavailable = errors.New("slot is not available")
	ErrUnknownSlot     = errors.New("unknown slot label")
)
