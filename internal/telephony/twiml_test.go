package telephony

import (
	"strings"
	"testing"
)

func TestRenderSayHangup(t *testing.T) {
	out, err := NewDocument().Say("Goodbye.").Hangup().Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, "<?xml") {
		t.Fatalf("missing xml declaration: %q", out)
	}
	if !strings.Contains(out, "<Say>Goodbye.</Say>") {
		t.Fatalf("missing say verb: %q", out)
	}
	if !strings.Contains(out, "<Hangup></Hangup>") && !strings.Contains(out, "<Hangup/>") {
		t.Fatalf("missing hangup verb: %q", out)
	}
}

func TestRenderGatherSpeech(t *testing.T) {
	out, err := NewDocument().
		GatherSpeech("Which doctor would you like to see?", "/api/voice/process-speech").
		Redirect("/api/voice/process-speech").
		Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`input="speech"`,
		`action="/api/voice/process-speech"`,
		`method="POST"`,
		`timeout="10"`,
		`speechTimeout="auto"`,
		"<Say>Which doctor would you like to see?</Say>",
		"<Redirect method=\"POST\">/api/voice/process-speech</Redirect>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEscapesContent(t *testing.T) {
	out, err := NewDocument().Say(`Booked with Dr. <Jones> & co`).Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<Jones>") {
		t.Fatalf("content not escaped: %q", out)
	}
	if !strings.Contains(out, "&lt;Jones&gt; &amp; co") {
		t.Fatalf("expected escaped content: %q", out)
	}
}
