package middlewares

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newWebhookContext(body []byte) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookSignature_MissingSecretReturns500(t *testing.T) {
	mw := WebhookSignature("")

	c, rec := newWebhookContext([]byte(`{}`))
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestWebhookSignature_MissingHeaderReturns401(t *testing.T) {
	mw := WebhookSignature("signing-secret")

	c, rec := newWebhookContext([]byte(`{"type":"reply"}`))
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestWebhookSignature_InvalidSignatureReturns401(t *testing.T) {
	mw := WebhookSignature("signing-secret")

	body := []byte(`{"type":"reply"}`)
	c, rec := newWebhookContext(body)
	c.Request().Header.Set(SignatureHeader, Sign("wrong-secret", body))

	handlerCalled := false
	handler := mw(func(c echo.Context) error {
		handlerCalled = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if handlerCalled {
		t.Fatalf("handler must not run for an invalid signature")
	}
}

func TestWebhookSignature_TamperedBodyReturns401(t *testing.T) {
	const secret = "signing-secret"
	mw := WebhookSignature(secret)

	signed := []byte(`{"type":"reply","senderAddress":"ada@example.com"}`)
	tampered := []byte(`{"type":"reply","senderAddress":"eve@example.com"}`)

	c, rec := newWebhookContext(tampered)
	c.Request().Header.Set(SignatureHeader, Sign(secret, signed))

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestWebhookSignature_ValidSignaturePassesBodyThrough(t *testing.T) {
	const secret = "signing-secret"
	mw := WebhookSignature(secret)

	body := []byte(`{"type":"reply","senderAddress":"ada@example.com"}`)
	c, rec := newWebhookContext(body)
	c.Request().Header.Set(SignatureHeader, Sign(secret, body))

	var seenBody []byte
	handler := mw(func(c echo.Context) error {
		// The handler must still be able to read the full body after
		// verification consumed it.
		read, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		seenBody = read
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !bytes.Equal(seenBody, body) {
		t.Fatalf("expected handler to see original body, got %s", seenBody)
	}

	var payload map[string]string
	if err := json.Unmarshal(seenBody, &payload); err != nil {
		t.Fatalf("restored body is not valid JSON: %v", err)
	}
}
