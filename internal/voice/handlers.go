package voice

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"hospital-voice-agent/internal/telephony"
)

// Handlers exposes the two provider-facing webhook endpoints. Both always
// answer 200 with voice markup; the provider treats anything else as a dead
// call, so errors are spoken, not returned.
type Handlers struct {
	Orchestrator *Orchestrator
	Logger       *slog.Logger
}

func (h *Handlers) Webhook(c *gin.Context) {
	form, err := telephony.ParseVoiceWebhook(c.Request)
	if err != nil || form.CallSid == "" {
		h.Logger.Warn("malformed voice webhook", slog.Any("error", err))
		h.xml(c, h.Orchestrator.apology("", unknownCallLine))
		return
	}
	h.xml(c, h.Orchestrator.Greeting(c.Request.Context(), form.CallSid))
}

func (h *Handlers) ProcessSpeech(c *gin.Context) {
	form, err := telephony.ParseVoiceWebhook(c.Request)
	if err != nil || form.CallSid == "" {
		h.Logger.Warn("malformed speech webhook", slog.Any("error", err))
		h.xml(c, h.Orchestrator.apology("", unknownCallLine))
		return
	}
	h.xml(c, h.Orchestrator.ProcessTurn(c.Request.Context(), form.CallSid, form.SpeechResult))
}

func (h *Handlers) xml(c *gin.Context, markup string) {
	c.Data(http.StatusOK, "application/xml", []byte(markup))
}
