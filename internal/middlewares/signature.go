package middlewares

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/cadencehq/outreach-dispatch/pkg/response"
)

const (
	SignatureHeader = "x-webhook-signature"
)

// Sign computes the hex HMAC-SHA256 of body with the shared secret. Exposed
// so tests and provider simulators can produce valid signatures.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookSignature verifies the provider signature over the raw request body
// before any event content is trusted. Verification fails closed: a missing
// secret, missing header, or mismatch all return 401.
func WebhookSignature(secret string) echo.MiddlewareFunc {
	if secret == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("webhook signing secret is not configured"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			signature := c.Request().Header.Get(SignatureHeader)
			if signature == "" {
				return response.Unauthorized(c)
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return response.BadRequest(c, fmt.Errorf("failed to read request body"))
			}

			expected := Sign(secret, body)
			if !hmac.Equal([]byte(signature), []byte(expected)) {
				return response.Unauthorized(c)
			}

			// Restore the body for the handler's bind.
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			return next(c)
		}
	}
}
