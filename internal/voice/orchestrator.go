// Package voice turns webhook turns into spoken markup. The orchestrator is
// the only component that touches the dialogue store, the responder, the
// booking repository and the exporter together; handlers stay thin.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hospital-voice-agent/internal/booking"
	"hospital-voice-agent/internal/dialogue"
	"hospital-voice-agent/internal/export"
	"hospital-voice-agent/internal/responder"
	"hospital-voice-agent/internal/telephony"
)

const (
	webhookPath       = "/api/voice/webhook"
	processSpeechPath = "/api/voice/process-speech"

	unknownCallLine = "Sorry, there was an error with the call."
	noInputLine     = "I didn't receive any input. Please try again."
	didNotCatchLine = "I didn't catch that. Let me try again."
)

// Orchestrator drives one dialogue turn per webhook: load state, advance the
// machine, persist, speak. All methods return renderable markup; a broken
// call gets an apology and a hangup, never a transport-level error.
type Orchestrator struct {
	store    dialogue.Store
	engine   *dialogue.Engine
	extract  dialogue.Extractor
	respond  responder.Responder
	bookings booking.Repository
	exporter export.Exporter
	log      *slog.Logger

	responderTimeout time.Duration
	finalizeTimeout  time.Duration

	// wg tracks in-flight finalizations so shutdown (and tests) can wait for
	// bookings already confirmed on the phone to reach the repository.
	wg sync.WaitGroup
}

type Options struct {
	Store     dialogue.Store
	Engine    *dialogue.Engine
	Extractor dialogue.Extractor
	// Responder may be nil; turns then carry only the fixed next question.
	Responder responder.Responder
	Bookings  booking.Repository
	Exporter  export.Exporter
	Logger    *slog.Logger

	ResponderTimeout time.Duration
	FinalizeTimeout  time.Duration
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.ResponderTimeout <= 0 {
		opts.ResponderTimeout = 8 * time.Second
	}
	if opts.FinalizeTimeout <= 0 {
		opts.FinalizeTimeout = 30 * time.Second
	}
	return &Orchestrator{
		store:            opts.Store,
		engine:           opts.Engine,
		extract:          opts.Extractor,
		respond:          opts.Responder,
		bookings:         opts.Bookings,
		exporter:         opts.Exporter,
		log:              opts.Logger,
		responderTimeout: opts.ResponderTimeout,
		finalizeTimeout:  opts.FinalizeTimeout,
	}
}

// Greeting answers the provider's first webhook for a call: it speaks the
// opening line and gathers the caller's first utterance. An unknown call SID
// gets an apology and a hangup.
func (o *Orchestrator) Greeting(ctx context.Context, callID string) string {
	s, err := o.store.Get(ctx, callID)
	if err != nil {
		if !errors.Is(err, dialogue.ErrNotFound) {
			o.log.Error("load dialogue state", slog.String("call_id", callID), slog.Any("error", err))
		}
		return o.apology(callID, "I'm sorry, there was an error with the call. Please try again later.")
	}

	greeting := "Hello, this is the AI assistant from your hospital. I'm calling to help you book an appointment. May I start by getting your name?"
	if s.Fields.Name != "" {
		greeting = fmt.Sprintf("Hello %s, this is the AI assistant from your hospital. I'm calling to help you book an appointment. May I proceed?", s.Fields.Name)
	}

	markup, err := telephony.NewDocument().
		GatherSpeech(greeting, processSpeechPath).
		Say(noInputLine).
		Redirect(webhookPath).
		Render()
	if err != nil {
		o.log.Error("render greeting", slog.String("call_id", callID), slog.Any("error", err))
		return o.apology(callID, unknownCallLine)
	}
	return markup
}

// ProcessTurn applies one speech result to the call's state machine and
// returns the markup for the reply. Persisting the advanced state happens
// before any speech is rendered, so a dropped response costs a repeated
// question, not lost data.
func (o *Orchestrator) ProcessTurn(ctx context.Context, callID, transcript string) string {
	s, err := o.store.Get(ctx, callID)
	if err != nil {
		if !errors.Is(err, dialogue.ErrNotFound) {
			o.log.Error("load dialogue state", slog.String("call_id", callID), slog.Any("error", err))
		}
		return o.apology(callID, unknownCallLine)
	}

	turn := o.engine.Advance(s, transcript, o.extract.Extract(transcript))

	if turn.EndCall {
		return o.endCall(ctx, callID, turn)
	}

	if err := o.store.Put(ctx, turn.State); err != nil {
		o.log.Error("persist dialogue state", slog.String("call_id", callID), slog.Any("error", err))
		return o.apology(callID, "I'm sorry, there was an error processing your response. Please try again.")
	}

	speak := turn.Question
	if reply := o.freeformReply(ctx, s, transcript); reply != "" {
		speak = reply + " " + turn.Question
	}

	markup, err := telephony.NewDocument().
		GatherSpeech(speak, processSpeechPath).
		Say(didNotCatchLine).
		Redirect(processSpeechPath).
		Render()
	if err != nil {
		o.log.Error("render turn", slog.String("call_id", callID), slog.Any("error", err))
		return o.apology(callID, unknownCallLine)
	}

	o.log.Info("dialogue turn",
		slog.String("call_id", callID),
		slog.String("stage", string(turn.State.Stage)),
		slog.Int("attempts", turn.State.Attempts),
	)
	return markup
}

// endCall renders the terminal say+hangup and, on the finalizing turn,
// persists the complete stage before scheduling finalization. A replayed
// webhook then finds the state already complete and produces no second
// Finalize, which keeps booking completion exactly-once.
func (o *Orchestrator) endCall(ctx context.Context, callID string, turn dialogue.Turn) string {
	if turn.Finalize {
		if err := o.store.Put(ctx, turn.State); err != nil {
			o.log.Error("persist complete state", slog.String("call_id", callID), slog.Any("error", err))
		} else {
			o.wg.Add(1)
			go o.finalize(turn.State)
		}
	} else {
		// Gave up: release the state, leave the booking incomplete.
		if err := o.store.Delete(ctx, callID); err != nil && !errors.Is(err, dialogue.ErrNotFound) {
			o.log.Error("release dialogue state", slog.String("call_id", callID), slog.Any("error", err))
		}
		o.log.Warn("dialogue abandoned", slog.String("call_id", callID), slog.String("stage", string(turn.State.Stage)))
	}

	markup, err := telephony.NewDocument().Say(turn.Question).Hangup().Render()
	if err != nil {
		o.log.Error("render hangup", slog.String("call_id", callID), slog.Any("error", err))
		return o.apology(callID, unknownCallLine)
	}
	return markup
}

// finalize completes the booking, exports it and releases the call state.
// Export is best-effort: a sink failure is logged and never undoes the
// completed booking.
func (o *Orchestrator) finalize(s dialogue.State) {
	defer o.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), o.finalizeTimeout)
	defer cancel()

	now := time.Now().UTC()
	err := o.bookings.Complete(ctx, s.BookingID, booking.CompletionFields{
		PatientName:     s.Fields.Name,
		PreferredDoctor: s.Fields.Doctor,
		AppointmentDate: s.Fields.Date,
		AppointmentTime: s.Fields.Time,
	}, now)
	if err != nil {
		o.log.Error("complete booking",
			slog.String("call_id", s.CallID),
			slog.String("booking_id", s.BookingID),
			slog.Any("error", err))
		return
	}

	if err := o.exporter.Append(ctx, export.Row{
		PatientName: s.Fields.Name,
		PhoneNumber: s.PhoneNumber,
		Doctor:      s.Fields.Doctor,
		Date:        s.Fields.Date,
		Time:        s.Fields.Time,
		BookedAt:    now,
	}); err != nil {
		o.log.Error("export booking",
			slog.String("booking_id", s.BookingID),
			slog.Any("error", err))
	}

	if err := o.store.Delete(ctx, s.CallID); err != nil && !errors.Is(err, dialogue.ErrNotFound) {
		o.log.Error("release dialogue state", slog.String("call_id", s.CallID), slog.Any("error", err))
	}

	o.log.Info("booking finalized",
		slog.String("call_id", s.CallID),
		slog.String("booking_id", s.BookingID),
		slog.String("doctor", s.Fields.Doctor))
}

// freeformReply asks the responder for the conversational half of the turn.
// It is given the pre-transition state: the model comments on what the
// caller just said, not on where the machine moved to. Any failure or
// timeout degrades to an empty reply.
func (o *Orchestrator) freeformReply(ctx context.Context, s dialogue.State, transcript string) string {
	if o.respond == nil {
		return ""
	}
	rctx, cancel := context.WithTimeout(ctx, o.responderTimeout)
	defer cancel()

	reply, err := o.respond.Reply(rctx, s.Stage, s.Fields, transcript)
	if err != nil {
		o.log.Warn("responder unavailable, using fixed prompt",
			slog.String("call_id", s.CallID),
			slog.Any("error", err))
		return ""
	}
	return strings.TrimSpace(reply)
}

// Wait blocks until all in-flight finalizations have finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

func (o *Orchestrator) apology(callID, line string) string {
	markup, err := telephony.NewDocument().Say(line).Hangup().Render()
	if err != nil {
		// xml encoding of plain text cannot realistically fail; keep a
		// last-resort literal so the caller never hears dead air.
		o.log.Error("render apology", slog.String("call_id", callID), slog.Any("error", err))
		return `<?xml version="1.0" encoding="UTF-8"?><Response><Hangup/></Response>`
	}
	return markup
}
