package main

import (
	"log/slog"
	"time"

	"hospital-voice-agent/internal/auth"
	"hospital-voice-agent/internal/config"
	"hospital-voice-agent/internal/httpapi"
	"hospital-voice-agent/internal/telephony"
	"hospital-voice-agent/internal/voice"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	cfg   config.Config
	log   *slog.Logger
	auth  *auth.Manager
	api   httpapi.Handlers
	voice *voice.Handlers
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/api/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "AI Hospital Appointment Booking Agent API"})
	})
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
	})

	// Provider webhooks. Signature enforcement is on by default in
	// production and opt-in elsewhere.
	hooks := r.Group("/api/voice")
	if d.cfg.Twilio.ValidateSignatures {
		hooks.Use(telephony.RequireSignature(d.cfg.Twilio.AuthToken, d.cfg.Twilio.PublicBaseURL, d.log))
	}
	{
		hooks.POST("/webhook", d.voice.Webhook)
		hooks.POST("/process-speech", d.voice.ProcessSpeech)
	}

	// Management API.
	api := r.Group("/api")
	{
		api.POST("/auth/login", d.api.Login)

		protected := api.Group("")
		protected.Use(auth.RequireAccessToken(d.auth))
		{
			protected.POST("/make-call", d.api.MakeCall)
			protected.GET("/appointments", d.api.ListAppointments)
			protected.GET("/call-status/:call_sid", d.api.CallStatus)
		}
	}
}
