package web

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	rawBodyKey      = "raw_body"

	secretHeader    = "X-Hook-Secret"
	signatureHeader = "X-Signature"

	maxWebhookBody = 1 << 20
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("dur", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)))
	}
}

// webhookAuth checks the shared secret and the optional body signature. The
// raw body is kept in the context and restored for binding.
func (s *Server) webhookAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "cannot read body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(rawBodyKey, body)

		if s.cfg.WebhookSecret != "" {
			got := c.GetHeader(secretHeader)
			if got == "" {
				got = c.Query("secret")
			}
			if !equalSecret(got, s.cfg.WebhookSecret) {
				s.logger.Warn("webhook rejected: invalid secret", zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid secret"})
				return
			}
		}
		if !validSignature(s.cfg.HMACSecret, c.GetHeader(signatureHeader), body) {
			s.logger.Warn("webhook rejected: invalid signature", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid HMAC"})
			return
		}
		c.Next()
	}
}

func equalSecret(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// validSignature accepts any body when secret is empty.
func validSignature(secret, signature string, body []byte) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// Sign returns the hex HMAC-SHA256 of body, as expected in X-Signature.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
