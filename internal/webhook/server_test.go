package webhook

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/config"
	"github.com/stretchr/testify/require"
)

func testServer(secret string) (*Server, *fakeTracker) {
	tracker := newFakeTracker()
	cfg := config.Webhook{Bind: "127.0.0.1:0", Path: "/webhooks/vcs", Secret: secret}
	logger := slog.New(slog.NewTextHandler(new(bytes.Buffer), nil))
	return NewServer(cfg, NewDispatcher(tracker, 90), logger), tracker
}

func postWebhook(t *testing.T, s *Server, event string, body []byte, signature string) (*httptest.ResponseRecorder, Result) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/vcs", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", event)
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rec := httptest.NewRecorder()
	s.handleWebhook(rec, req)

	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return rec, res
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	s, tracker := testServer("s3cret")
	body := []byte(`{"commits":[{"id":"abc123def456","message":"Implement decision dec_42"}]}`)

	rec, res := postWebhook(t, s, "push", body, "sha256=deadbeef")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "error", res.Status)
	require.Equal(t, "Invalid signature", res.Message)
	require.Empty(t, tracker.outcomes)
}

func TestHandleWebhookAcceptsValidSignature(t *testing.T) {
	s, tracker := testServer("s3cret")
	body := []byte(`{"commits":[{"id":"abc123def456","message":"Implement decision dec_42"}]}`)

	rec, res := postWebhook(t, s, "push", body, sign("s3cret", body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", res.Status)
	require.Len(t, tracker.outcomes, 1)
}

func TestHandleWebhookUnsignedAcceptedWhenNoSecret(t *testing.T) {
	s, _ := testServer("")
	body := []byte(`{"commits":[{"id":"abc123","message":"chore: no decision here"}]}`)

	rec, res := postWebhook(t, s, "push", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no_decision_found", res.Status)
}

func TestHandleWebhookMalformedBodyIsErrorNotCrash(t *testing.T) {
	s, _ := testServer("")

	rec, res := postWebhook(t, s, "push", []byte(`{"commits": not-json`), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "error", res.Status)
}

func TestHandleWebhookGenericCIEventWithoutHeader(t *testing.T) {
	s, tracker := testServer("")
	// Seed an outcome so the ci_event can resolve it by commit.
	push := []byte(`{"commits":[{"id":"abc123def456","message":"Membria Decision: dec_7"}]}`)
	_, res := postWebhook(t, s, "push", push, "")
	require.Equal(t, "success", res.Status)
	require.Len(t, tracker.outcomes, 1)

	ci := []byte(`{"event_type":"ci_complete","commit_sha":"abc123def456","passed":true}`)
	_, res = postWebhook(t, s, "", ci, "")
	require.Equal(t, "success", res.Status)
}
