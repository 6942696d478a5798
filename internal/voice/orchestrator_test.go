package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"hospital-voice-agent/internal/booking"
	"hospital-voice-agent/internal/dialogue"
	"hospital-voice-agent/internal/export"
)

type recordingExporter struct {
	mu   sync.Mutex
	rows []export.Row
}

func (r *recordingExporter) Append(_ context.Context, row export.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
	return nil
}

type countingRepo struct {
	*booking.MemoryRepo
	mu        sync.Mutex
	completes int
}

func (c *countingRepo) Complete(ctx context.Context, id string, f booking.CompletionFields, at time.Time) error {
	c.mu.Lock()
	c.completes++
	c.mu.Unlock()
	return c.MemoryRepo.Complete(ctx, id, f, at)
}

type stubResponder struct {
	reply string
	err   error
}

func (s stubResponder) Reply(_ context.Context, _ dialogue.Stage, _ dialogue.Fields, _ string) (string, error) {
	return s.reply, s.err
}

type fixture struct {
	orch     *Orchestrator
	store    *dialogue.MemoryStore
	repo     *countingRepo
	exporter *recordingExporter
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	store := dialogue.NewMemoryStore(30 * time.Minute)
	repo := &countingRepo{MemoryRepo: booking.NewMemoryRepo()}
	exporter := &recordingExporter{}

	o := Options{
		Store:            store,
		Engine:           dialogue.NewEngine(5, 3),
		Extractor:        dialogue.NewRegexExtractor(),
		Bookings:         repo,
		Exporter:         exporter,
		Logger:           slog.New(slog.NewJSONHandler(&strings.Builder{}, nil)),
		ResponderTimeout: time.Second,
		FinalizeTimeout:  5 * time.Second,
	}
	for _, f := range opts {
		f(&o)
	}
	return &fixture{orch: NewOrchestrator(o), store: store, repo: repo, exporter: exporter}
}

func (f *fixture) startCall(t *testing.T, callID, knownName string) {
	t.Helper()
	b := booking.Booking{ID: "booking-" + callID, PhoneNumber: "+15551112222", PatientName: knownName, CreatedAt: time.Now()}
	if err := f.repo.Create(context.Background(), b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	s := dialogue.NewState(callID, b.ID, b.PhoneNumber, knownName, time.Now())
	if err := f.store.Create(context.Background(), s); err != nil {
		t.Fatalf("create state: %v", err)
	}
}

func TestGreetingUnknownCallApologizes(t *testing.T) {
	f := newFixture(t)
	out := f.orch.Greeting(context.Background(), "CA-unknown")
	if !strings.Contains(out, "error with the call") {
		t.Fatalf("expected apology, got: %s", out)
	}
	if !strings.Contains(out, "Hangup") {
		t.Fatalf("expected hangup, got: %s", out)
	}
}

func TestGreetingPersonalizedWhenNameKnown(t *testing.T) {
	f := newFixture(t)
	f.startCall(t, "CA1", "John")
	out := f.orch.Greeting(context.Background(), "CA1")
	if !strings.Contains(out, "Hello John,") {
		t.Fatalf("expected personalized greeting, got: %s", out)
	}
	if !strings.Contains(out, `action="/api/voice/process-speech"`) {
		t.Fatalf("expected gather action, got: %s", out)
	}
}

func TestGreetingGenericWhenNameUnknown(t *testing.T) {
	f := newFixture(t)
	f.startCall(t, "CA2", "")
	out := f.orch.Greeting(context.Background(), "CA2")
	if !strings.Contains(out, "May I start by getting your name?") {
		t.Fatalf("expected generic greeting, got: %s", out)
	}
}

func TestProcessTurnUnknownCallDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	out := f.orch.ProcessTurn(context.Background(), "CA-unknown", "yes confirm")
	if !strings.Contains(out, unknownCallLine) || !strings.Contains(out, "Hangup") {
		t.Fatalf("expected apology hangup, got: %s", out)
	}
	f.orch.Wait()
	if got := f.repo.completes; got != 0 {
		t.Fatalf("unknown call must not finalize, completes = %d", got)
	}
}

func TestFullCallFinalizesExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.startCall(t, "CA3", "")
	ctx := context.Background()

	turns := []struct {
		speech string
		expect string
	}{
		{"Hi, my name is John Smith", "Which doctor would you like to see?"},
		{"I want to see Dr. Smith", "What date would you prefer"},
		{"Next Monday", "What time would you prefer?"},
		{"10:30 AM", "Is this correct?"},
	}
	for _, tc := range turns {
		out := f.orch.ProcessTurn(ctx, "CA3", tc.speech)
		if !strings.Contains(out, tc.expect) {
			t.Fatalf("turn %q: expected %q in output:\n%s", tc.speech, tc.expect, out)
		}
	}

	out := f.orch.ProcessTurn(ctx, "CA3", "Yes, that's correct")
	if !strings.Contains(out, "has been booked") || !strings.Contains(out, "Hangup") {
		t.Fatalf("expected closing hangup, got: %s", out)
	}
	f.orch.Wait()

	b, err := f.repo.GetByID(ctx, "booking-CA3")
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if !b.Completed || b.PatientName != "John" || b.PreferredDoctor != "Smith" {
		t.Fatalf("booking not completed as expected: %+v", b)
	}
	if b.AppointmentTime != "10:30 am" {
		t.Fatalf("appointment time = %q", b.AppointmentTime)
	}
	if len(f.exporter.rows) != 1 {
		t.Fatalf("expected one exported row, got %d", len(f.exporter.rows))
	}
	if f.exporter.rows[0].PhoneNumber != "+15551112222" {
		t.Fatalf("exported row = %+v", f.exporter.rows[0])
	}

	// A retried webhook for the finalizing turn says goodbye again but the
	// completed state never finalizes twice. The state row is removed by the
	// finalizer, so the retry lands on the unknown-call path.
	out = f.orch.ProcessTurn(ctx, "CA3", "Yes, that's correct")
	f.orch.Wait()
	if !strings.Contains(out, "Hangup") {
		t.Fatalf("expected hangup on retry, got: %s", out)
	}
	if f.repo.completes != 1 {
		t.Fatalf("finalize ran %d times, want 1", f.repo.completes)
	}
}

func TestGiveUpReleasesStateWithoutFinalizing(t *testing.T) {
	f := newFixture(t)
	f.startCall(t, "CA4", "John")
	ctx := context.Background()

	// Burn through the doctor stage attempts with unusable input.
	// The first turn advances greeting to the doctor stage; the five that
	// follow exhaust the doctor-stage attempt cap.
	var out string
	for i := 0; i < 6; i++ {
		out = f.orch.ProcessTurn(ctx, "CA4", "um")
	}
	if !strings.Contains(out, "having trouble understanding") || !strings.Contains(out, "Hangup") {
		t.Fatalf("expected give-up hangup, got: %s", out)
	}
	f.orch.Wait()

	if f.repo.completes != 0 {
		t.Fatalf("give-up must not finalize, completes = %d", f.repo.completes)
	}
	if _, err := f.store.Get(ctx, "CA4"); !errors.Is(err, dialogue.ErrNotFound) {
		t.Fatalf("state should be released, got err = %v", err)
	}
}

func TestResponderReplyIsPrepended(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Responder = stubResponder{reply: "Great, thanks John!"}
	})
	f.startCall(t, "CA5", "")
	out := f.orch.ProcessTurn(context.Background(), "CA5", "Hi, my name is John Smith")
	if !strings.Contains(out, "Great, thanks John! Which doctor would you like to see?") {
		t.Fatalf("expected responder reply before fixed question, got: %s", out)
	}
}

func TestResponderFailureDegradesToFixedQuestion(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Responder = stubResponder{err: errors.New("upstream timeout")}
	})
	f.startCall(t, "CA6", "")
	out := f.orch.ProcessTurn(context.Background(), "CA6", "Hi, my name is John Smith")
	if !strings.Contains(out, "Which doctor would you like to see?") {
		t.Fatalf("expected fixed question, got: %s", out)
	}
	if strings.Contains(out, "upstream timeout") {
		t.Fatalf("responder error leaked into markup: %s", out)
	}
}

func TestCorrectionAtConfirmationKeepsName(t *testing.T) {
	f := newFixture(t)
	f.startCall(t, "CA7", "")
	ctx := context.Background()

	f.orch.ProcessTurn(ctx, "CA7", "Hi, my name is John Smith")
	f.orch.ProcessTurn(ctx, "CA7", "Dr. Smith please")
	f.orch.ProcessTurn(ctx, "CA7", "Monday at 10:30 AM")
	out := f.orch.ProcessTurn(ctx, "CA7", "No, that's wrong")
	if !strings.Contains(out, "Which doctor would you like to see?") {
		t.Fatalf("expected return to doctor stage, got: %s", out)
	}

	s, err := f.store.Get(ctx, "CA7")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if s.Fields.Name != "John" {
		t.Fatalf("name should survive correction, got %q", s.Fields.Name)
	}
	if s.Fields.Doctor != "" || s.Fields.Date != "" || s.Fields.Time != "" {
		t.Fatalf("doctor/date/time should be cleared, got %+v", s.Fields)
	}
}
