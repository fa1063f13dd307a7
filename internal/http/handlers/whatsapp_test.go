package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDialog struct {
	lastSender string
	lastText   string
	reply      string
}

func (s *stubDialog) Handle(_ context.Context, sender, text string) string {
	s.lastSender = sender
	s.lastText = text
	return s.reply
}

func postForm(t *testing.T, h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleMessageRepliesWithTwiML(t *testing.T) {
	dialog := &stubDialog{reply: "Hola doctor <&>"}
	h := NewWhatsAppHandler(dialog, "", nil, nil)

	rec := postForm(t, h.HandleMessage, url.Values{
		"From": {"whatsapp:+5215512345678"},
		"Body": {"hola"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<Response><Message>Hola doctor &lt;&amp;&gt;</Message></Response>")
	// The legacy +521 mobile prefix collapses during normalization.
	assert.Equal(t, "+525512345678", dialog.lastSender)
	assert.Equal(t, "hola", dialog.lastText)
}

func TestHandleMessageNormalizesNationalNumber(t *testing.T) {
	dialog := &stubDialog{reply: "ok"}
	h := NewWhatsAppHandler(dialog, "", nil, nil)

	postForm(t, h.HandleMessage, url.Values{
		"From": {"whatsapp:5512345678"},
		"Body": {"hola"},
	})
	assert.Equal(t, "+525512345678", dialog.lastSender)
}

func TestHandleMessageEmptyBodyAcksWithoutDialog(t *testing.T) {
	dialog := &stubDialog{reply: "should not be sent"}
	h := NewWhatsAppHandler(dialog, "", nil, nil)

	rec := postForm(t, h.HandleMessage, url.Values{
		"From": {"whatsapp:+5215512345678"},
		"Body": {"   "},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Response/>")
	assert.Empty(t, dialog.lastText)
}

func TestHandleMessageRejectsBadSignature(t *testing.T) {
	dialog := &stubDialog{reply: "nope"}
	h := NewWhatsAppHandler(dialog, "secret", nil, nil)

	rec := postForm(t, h.HandleMessage, url.Values{
		"From": {"whatsapp:+5215512345678"},
		"Body": {"hola"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleMessageAcceptsValidSignature(t *testing.T) {
	dialog := &stubDialog{reply: "hola"}
	h := NewWhatsAppHandler(dialog, "secret", nil, nil)

	form := url.Values{
		"From": {"whatsapp:+5215512345678"},
		"Body": {"hola"},
	}
	req := httptest.NewRequest(http.MethodPost, "http://example.com/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sig := computeSignature(buildSignaturePayload("http://example.com/whatsapp", form), "secret")
	req.Header.Set("X-Twilio-Signature", sig)

	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Message>hola</Message>")
}

func TestHealthCheck(t *testing.T) {
	h := NewWhatsAppHandler(&stubDialog{}, "", nil, nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
