package dialogue

import (
	"fmt"
	"strings"
)

// Caller-facing lines. The confirmation summary must echo the collected
// fields verbatim.
const (
	askName     = "Could you please tell me your name?"
	askDoctor   = "Which doctor would you like to see?"
	askDate     = "What date would you prefer for your appointment?"
	askTime     = "What time would you prefer?"
	ackDatetime = "Thank you for providing the date and time."

	closingLine = "Perfect! Your appointment has been booked and logged. You will receive a confirmation shortly. Thank you for calling. Goodbye!"
	giveUpLine  = "I'm having trouble understanding you over the phone. We'll call you back shortly to finish booking your appointment. Goodbye!"
)

var (
	affirmativeKeywords = []string{"yes", "confirm", "correct"}
	negativeKeywords    = []string{"no", "incorrect"}
)

// Turn is the outcome of advancing the state machine by one webhook turn.
type Turn struct {
	State State

	// Question is the fixed next-question text for the new stage, or the
	// closing line when EndCall is set. The orchestrator prepends the
	// responder's free-form reply on non-terminal turns.
	Question string

	// EndCall tells the transport to hang up after speaking.
	EndCall bool

	// Finalize is set on the single turn that transitions into the complete
	// stage; the orchestrator must schedule finalization exactly then.
	Finalize bool
}

// Engine computes stage transitions. Advance is a pure function of
// (state, transcript, extraction): replaying the same turn against an
// unchanged state yields the same result.
type Engine struct {
	maxStageAttempts   int
	maxConfirmAttempts int
}

// NewEngine bounds the doctor/datetime self-loops at maxStageAttempts
// unrecognized inputs and the confirmation loop at maxConfirmAttempts.
// Non-positive values fall back to conservative defaults.
func NewEngine(maxStageAttempts, maxConfirmAttempts int) *Engine {
	if maxStageAttempts <= 0 {
		maxStageAttempts = 5
	}
	if maxConfirmAttempts <= 0 {
		maxConfirmAttempts = 3
	}
	return &Engine{
		maxStageAttempts:   maxStageAttempts,
		maxConfirmAttempts: maxConfirmAttempts,
	}
}

// Advance applies one transcript to the state machine and returns the new
// state, the next question, and whether the call should end.
func (e *Engine) Advance(s State, transcript string, ext Extraction) Turn {
	transcript = strings.TrimSpace(transcript)

	switch s.Stage {
	case StageGreeting:
		if s.Fields.Name != "" {
			// Name pre-supplied at call setup.
			s.Stage = StageDoctor
			break
		}
		if name, ok := ExtractName(transcript); ok {
			s.Fields.Name = name
			s.Stage = StageDoctor
		} else {
			// Ask explicitly; the turn's information is not consumed.
			s.Stage = StageName
		}

	case StageName:
		if transcript == "" {
			s.Attempts++
			if s.Attempts >= e.maxStageAttempts {
				return e.giveUp(s)
			}
			break
		}
		// Any non-empty utterance is accepted as the name.
		s.Fields.Name = TitleWords(transcript)
		s.Stage = StageDoctor
		s.Attempts = 0

	case StageDoctor:
		if ext.Doctor != "" {
			s.Fields.Doctor = ext.Doctor
			s.Stage = StageDatetime
			s.Attempts = 0
		} else {
			s.Attempts++
			if s.Attempts >= e.maxStageAttempts {
				return e.giveUp(s)
			}
		}

	case StageDatetime:
		// Date and time are independent; either may overwrite an earlier
		// value, which is how corrections work.
		if ext.Date != "" {
			s.Fields.Date = ext.Date
		}
		if ext.Time != "" {
			s.Fields.Time = ext.Time
		}
		if s.Fields.Date != "" && s.Fields.Time != "" {
			s.Stage = StageConfirmation
			s.Attempts = 0
		} else if ext.Date == "" && ext.Time == "" {
			s.Attempts++
			if s.Attempts >= e.maxStageAttempts {
				return e.giveUp(s)
			}
		}

	case StageConfirmation:
		lower := strings.ToLower(transcript)
		switch {
		// Negative first: "incorrect" contains "correct" and must not be
		// read as agreement.
		case containsAny(lower, negativeKeywords):
			s.Stage = StageDoctor
			s.Fields = Fields{Name: s.Fields.Name}
			s.Attempts = 0
		case containsAny(lower, affirmativeKeywords):
			s.Stage = StageComplete
			s.Attempts = 0
			return Turn{State: s, Question: closingLine, EndCall: true, Finalize: true}
		default:
			s.Attempts++
			if s.Attempts >= e.maxConfirmAttempts {
				return e.giveUp(s)
			}
		}

	case StageComplete:
		// Terminal; nothing left to say but goodbye.
		return Turn{State: s, Question: closingLine, EndCall: true}
	}

	return Turn{State: s, Question: e.Question(s)}
}

// Question returns the fixed prompt template for the state's current stage.
func (e *Engine) Question(s State) string {
	switch s.Stage {
	case StageName:
		return askName
	case StageDoctor:
		return askDoctor
	case StageDatetime:
		if s.Fields.Date == "" {
			return askDate
		}
		if s.Fields.Time == "" {
			return askTime
		}
		return ackDatetime
	case StageConfirmation:
		return fmt.Sprintf(
			"Let me confirm your appointment: %s, you want to see Dr. %s on %s at %s. Is this correct?",
			s.Fields.Name, s.Fields.Doctor, s.Fields.Date, s.Fields.Time,
		)
	case StageComplete:
		return closingLine
	default:
		return askName
	}
}

// giveUp ends the call without finalizing; the booking stays incomplete and
// the state is released by the orchestrator.
func (e *Engine) giveUp(s State) Turn {
	return Turn{State: s, Question: giveUpLine, EndCall: true}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
