package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hospital-voice-agent/internal/config"
)

// CallRef identifies a call the provider accepted for origination.
type CallRef struct {
	SID    string
	Status string
}

// CallInfo is the provider's view of a call, live or finished.
type CallInfo struct {
	SID       string
	Status    string
	Duration  string
	StartTime string
	EndTime   string
}

// Dialer places and inspects outbound calls.
type Dialer interface {
	CreateCall(ctx context.Context, to, webhookURL string) (CallRef, error)
	FetchCall(ctx context.Context, sid string) (CallInfo, error)
}

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// RestDialer talks to the Twilio REST API directly over net/http.
// No vendor SDK at this boundary; the surface we use is two endpoints.
type RestDialer struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

func NewRestDialer(cfg config.TwilioConfig) *RestDialer {
	return &RestDialer{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    twilioAPIBase,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the dialer at an alternate API host. Used in tests.
func (d *RestDialer) WithBaseURL(base string) *RestDialer {
	d.baseURL = strings.TrimRight(base, "/")
	return d
}

func (d *RestDialer) CreateCall(ctx context.Context, to, webhookURL string) (CallRef, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", d.fromNumber)
	form.Set("Url", webhookURL)
	form.Set("Method", "POST")

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", d.baseURL, d.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return CallRef{}, fmt.Errorf("build create call request: %w", err)
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return CallRef{}, fmt.Errorf("create call: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CallRef{}, fmt.Errorf("create call: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return CallRef{}, fmt.Errorf("decode create call response: %w", err)
	}
	return CallRef{SID: out.SID, Status: out.Status}, nil
}

func (d *RestDialer) FetchCall(ctx context.Context, sid string) (CallInfo, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", d.baseURL, d.accountSID, url.PathEscape(sid))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CallInfo{}, fmt.Errorf("build fetch call request: %w", err)
	}
	req.SetBasicAuth(d.accountSID, d.authToken)

	resp, err := d.client.Do(req)
	if err != nil {
		return CallInfo{}, fmt.Errorf("fetch call: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CallInfo{}, fmt.Errorf("fetch call: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		SID       string `json:"sid"`
		Status    string `json:"status"`
		Duration  string `json:"duration"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return CallInfo{}, fmt.Errorf("decode fetch call response: %w", err)
	}
	return CallInfo{
		SID:       out.SID,
		Status:    out.Status,
		Duration:  out.Duration,
		StartTime: out.StartTime,
		EndTime:   out.EndTime,
	}, nil
}
