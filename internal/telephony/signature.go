package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// ComputeSignature reproduces the provider webhook signature: the full
// request URL concatenated with every POST parameter name+value in sorted
// order, HMAC-SHA1 with the account auth token, base64 encoded.
func ComputeSignature(authToken, url string, form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(url))
	for _, k := range keys {
		for _, v := range form[k] {
			mac.Write([]byte(k))
			mac.Write([]byte(v))
		}
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks the X-Twilio-Signature header against the request.
// publicBaseURL is the externally visible scheme+host the provider signed
// against; behind a proxy the request's own Host is not reliable.
func ValidateSignature(authToken, publicBaseURL string, r *http.Request) bool {
	got := r.Header.Get("X-Twilio-Signature")
	if got == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	url := publicBaseURL + r.URL.RequestURI()
	want := ComputeSignature(authToken, url, r.PostForm)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// RequireSignature rejects webhook posts whose signature does not verify.
// When authToken is empty the check is disabled (local development).
func RequireSignature(authToken, publicBaseURL string, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authToken == "" {
			c.Next()
			return
		}
		if !ValidateSignature(authToken, publicBaseURL, c.Request) {
			log.Warn("rejected webhook with bad signature",
				slog.String("path", c.Request.URL.Path),
				slog.String("remote", c.ClientIP()))
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
