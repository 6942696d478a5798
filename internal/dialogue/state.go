package dialogue

import "time"

// Stage is a named phase of the booking dialogue state machine.
type Stage string

const (
	StageGreeting     Stage = "greeting"
	StageName         Stage = "name"
	StageDoctor       Stage = "doctor"
	StageDatetime     Stage = "datetime"
	StageConfirmation Stage = "confirmation"
	StageComplete     Stage = "complete"
)

// Fields holds the booking details collected so far for a call.
// An empty string means the field has not been collected yet.
// A field may be overwritten on correction.
type Fields struct {
	Name   string `json:"name,omitempty"`
	Doctor string `json:"doctor,omitempty"`
	Date   string `json:"date,omitempty"`
	Time   string `json:"time,omitempty"`
}

// State is the in-memory working record of one active call.
//
// Lifecycle invariant: a State exists in the Store iff its call is active and
// not yet finalized. It is created when the outbound call is placed, replaced
// on every webhook turn, and removed by the finalizer (or the idle sweep if
// the caller hung up mid-conversation).
type State struct {
	CallID      string `json:"call_id"`
	BookingID   string `json:"booking_id"`
	PhoneNumber string `json:"phone_number"`

	Stage  Stage  `json:"stage"`
	Fields Fields `json:"fields"`

	// Attempts counts consecutive unrecognized inputs in the current stage.
	// Reset on every stage transition.
	Attempts int `json:"attempts"`

	// LastActivity is stamped by the store on every write; the idle sweep
	// uses it to reclaim abandoned calls.
	LastActivity time.Time `json:"last_activity"`
}

// NewState builds the initial state for a freshly placed call.
// knownName may be empty; when set, the greeting skips the name stages.
func NewState(callID, bookingID, phoneNumber, knownName string, now time.Time) State {
	return State{
		CallID:       callID,
		BookingID:    bookingID,
		PhoneNumber:  phoneNumber,
		Stage:        StageGreeting,
		Fields:       Fields{Name: knownName},
		LastActivity: now,
	}
}
