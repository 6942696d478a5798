package booking

import "time"

// Booking is the durable record of one outbound booking call.
//
// Lifecycle: created when the call is initiated, mutated exactly once at
// finalization to fill in the collected fields and mark completion, never
// deleted. The transient dialogue state collapses into the optional fields
// here when the caller confirms.
type Booking struct {
	ID          string `json:"id" db:"id"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	// Optional until collected during the call.
	PatientName     string `json:"patient_name,omitempty" db:"patient_name"`
	PreferredDoctor string `json:"preferred_doctor,omitempty" db:"preferred_doctor"`
	AppointmentDate string `json:"appointment_date,omitempty" db:"appointment_date"`
	AppointmentTime string `json:"appointment_time,omitempty" db:"appointment_time"`

	CreatedAt   time.Time  `json:"booking_timestamp" db:"created_at"`
	Completed   bool       `json:"conversation_complete" db:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// CompletionFields is everything the dialogue collected for finalization.
type CompletionFields struct {
	PatientName     string
	PreferredDoctor string
	AppointmentDate string
	AppointmentTime string
}
