package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HammerMeetNail/drawmaster/internal/identity"
)

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d", status, rr.Code)
	}
	if ct := rr.Result().Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected content type application/json, got %q", ct)
	}

	var response ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Error != message {
		t.Fatalf("expected error %q, got %q", message, response.Error)
	}
}

// authedRequest builds a request carrying uid as the authenticated caller.
func authedRequest(method, target, body, uid string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if uid != "" {
		req = req.WithContext(SetIdentityInContext(req.Context(), &identity.Identity{UID: uid, Email: uid + "@example.com"}))
	}
	return req
}
