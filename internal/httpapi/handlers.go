package httpapi

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"hospital-voice-agent/internal/auth"
	"hospital-voice-agent/internal/booking"
	"hospital-voice-agent/internal/dialogue"
	"hospital-voice-agent/internal/telephony"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth        *auth.Manager
	AdminAPIKey string

	Bookings booking.Repository
	Store    dialogue.Store
	Dialer   telephony.Dialer

	PublicBaseURL string
	Logger        *slog.Logger
}

// --- Auth ---

type loginRequest struct {
	OperatorID string `json:"operator_id"`
	APIKey     string `json:"api_key"`
}

// Login exchanges the shared operator API key for a short-lived access token.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil || h.AdminAPIKey == "" {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid json"})
		return
	}
	if req.OperatorID == "" || req.APIKey == "" {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "operator_id, api_key required"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.AdminAPIKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	tok, err := h.Auth.Issue(time.Now(), req.OperatorID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok})
}

// --- Calls ---

type makeCallRequest struct {
	PhoneNumber string `json:"phone_number"`
	PatientName string `json:"patient_name,omitempty"`
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// MakeCall places an outbound booking call: booking row first, then the
// provider call, then the dialogue state keyed by the returned call SID.
// A dial failure leaves the booking row behind as a record of the attempt.
func (h Handlers) MakeCall(c *gin.Context) {
	var req makeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid json"})
		return
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "phone_number must be 7-15 digits with optional leading +"})
		return
	}

	ctx := c.Request.Context()
	b := booking.Booking{
		ID:          uuid.NewString(),
		PhoneNumber: req.PhoneNumber,
		PatientName: req.PatientName,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Bookings.Create(ctx, b); err != nil {
		h.Logger.Error("create booking", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to create booking"})
		return
	}

	ref, err := h.Dialer.CreateCall(ctx, req.PhoneNumber, h.PublicBaseURL+"/api/voice/webhook")
	if err != nil {
		h.Logger.Error("place call",
			slog.String("booking_id", b.ID),
			slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to make call"})
		return
	}

	s := dialogue.NewState(ref.SID, b.ID, req.PhoneNumber, req.PatientName, time.Now().UTC())
	if err := h.Store.Create(ctx, s); err != nil {
		// The webhook will apologize and hang up; the booking row records
		// the attempt.
		h.Logger.Error("create dialogue state",
			slog.String("call_sid", ref.SID),
			slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to track call"})
		return
	}

	h.Logger.Info("call initiated",
		slog.String("call_sid", ref.SID),
		slog.String("booking_id", b.ID))
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"call_sid":   ref.SID,
		"patient_id": b.ID,
		"message":    fmt.Sprintf("Call initiated to %s", req.PhoneNumber),
	})
}

// ListAppointments returns completed bookings, most recent first.
func (h Handlers) ListAppointments(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "limit must be 1-1000"})
			return
		}
		limit = n
	}
	items, err := h.Bookings.ListCompleted(c.Request.Context(), limit)
	if err != nil {
		h.Logger.Error("list appointments", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch appointments"})
		return
	}
	if items == nil {
		items = []booking.Booking{}
	}
	c.JSON(http.StatusOK, items)
}

// CallStatus proxies the provider's view of a call.
func (h Handlers) CallStatus(c *gin.Context) {
	sid := c.Param("call_sid")
	if sid == "" {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "call_sid required"})
		return
	}
	info, err := h.Dialer.FetchCall(c.Request.Context(), sid)
	if err != nil {
		h.Logger.Error("fetch call status", slog.String("call_sid", sid), slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch call status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"call_sid":   info.SID,
		"status":     info.Status,
		"duration":   info.Duration,
		"start_time": info.StartTime,
		"end_time":   info.EndTime,
	})
}
