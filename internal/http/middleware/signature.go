package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderHubSignature carries the provider's HMAC of the raw request body.
const HeaderHubSignature = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

// SignBody returns the header value a provider sends for body under secret.
func SignBody(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether header is a valid sha256 HMAC of body.
func VerifySignature(secret, body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// HubSignature rejects requests whose X-Hub-Signature-256 does not match the
// body with 403 (code "forbidden"). Bodies over the limit set upstream get 413
// and unreadable ones 400. The body is restored for the handler.
// An empty secret disables the check.
func HubSignature(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abort(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
				return
			}
			abort(c, http.StatusBadRequest, "bad_request", "request body unreadable")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !VerifySignature(key, body, c.GetHeader(HeaderHubSignature)) {
			reject(RejectBadSignature)
			LoggerFrom(c).Warn().Msg("webhook signature mismatch")
			abort(c, http.StatusForbidden, "forbidden", "invalid signature")
			return
		}
		c.Next()
	}
}
