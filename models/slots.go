package models

// SlotStatus is the state of one labelled slot on a date.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

// SlotMap maps a slot label (e.g. "09:00 AM") to its status for one date.
type SlotMap map[string]SlotStatus

// Available returns the labels of the map that are still free, in the order of labels.
func (m SlotMap) Available(labels []string) []string {
	var out []string
	for _, l := range labels {
		if m[l] == SlotAvailable {
			out = append(out, l)
		}
	}
	return out
}

// SlotDay is the API view of a date's slot map.
type SlotDay struct {
	Date  string  `json:"date"`
	Slots SlotMap `json:"slots"`
}
