package telephony

import (
	"net/http"
	"strings"
)

// VoiceForm captures the subset of voice webhook fields we care about.
// Twilio sends application/x-www-form-urlencoded by default.
//
// Keep it minimal and provider-adapter-only. Dialogue decisions are not made
// here.

type VoiceForm struct {
	CallSid      string
	From         string
	To           string
	CallStatus   string
	SpeechResult string
}

// ParseVoiceWebhook reads the provider form. SpeechResult may legitimately be
// empty (silence, timeout); that is a valid turn, not a parse failure.
func ParseVoiceWebhook(r *http.Request) (VoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceForm{}, err
	}
	return VoiceForm{
		CallSid:      strings.TrimSpace(r.PostFormValue("CallSid")),
		From:         strings.TrimSpace(r.PostFormValue("From")),
		To:           strings.TrimSpace(r.PostFormValue("To")),
		CallStatus:   r.PostFormValue("CallStatus"),
		SpeechResult: r.PostFormValue("SpeechResult"),
	}, nil
}
