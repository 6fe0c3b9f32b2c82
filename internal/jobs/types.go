// Package jobs wires the engine's trigger points onto an asynq queue:
// the periodic reminder tick, the auto-complete sweep and the
// recording-fetch tasks (immediate and delayed).
package jobs

import (
	"github.com/google/uuid"
)

// Task types.
const (
	TypeReminderTick        = "reminder:tick"
	TypeBookingAutoComplete = "booking:autocomplete"
	TypeRecordingFetch      = "recording:fetch"
)

// RecordingFetchPayload carries one recording-fetch request.
type RecordingFetchPayload struct {
	BookingID uuid.UUID `json:"booking_id"`
	Trigger   string    `json:"trigger"`
}
