// Package testutil provides testing utilities and helpers.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/drawmaster/internal/identity"
	"github.com/HammerMeetNail/drawmaster/internal/tree"
)

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// AssertJSONContains checks if the JSON response contains expected key-value pairs.
func AssertJSONContains(t *testing.T, body []byte, key string, expected interface{}) {
	t.Helper()
	result := ParseJSONResponse(t, body)
	if result[key] != expected {
		t.Errorf("expected %s to be %v, got %v", key, expected, result[key])
	}
}

// NewTestRequest creates a new HTTP request for testing.
func NewTestRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewTestRequestWithJSON creates a new HTTP request with JSON body.
func NewTestRequestWithJSON(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return NewTestRequest(method, path, strings.NewReader(string(body)))
}

// WithBearer signs a short-lived token for uid and sets it on req.
func WithBearer(t *testing.T, req *http.Request, verifier *identity.Verifier, uid string) *http.Request {
	t.Helper()
	token, err := verifier.Issue(identity.Identity{UID: uid, Email: uid + "@test.com"}, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// SeedTree writes fields at path, failing the test on error.
func SeedTree(t *testing.T, store tree.Store, path string, fields map[string]any) {
	t.Helper()
	if err := store.Set(context.Background(), path, fields); err != nil {
		t.Fatalf("failed to seed %s: %v", path, err)
	}
}

// ReadTree decodes the node at path into dest.
func ReadTree(t *testing.T, store tree.Store, path string, dest any) {
	t.Helper()
	node, err := store.Get(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if err := node.Decode(dest); err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
}

// RandomUID generates a random uid for testing.
func RandomUID() string {
	return uuid.NewString()
}

// RandomEmail generates a random email for testing.
func RandomEmail() string {
	return uuid.NewString()[:8] + "@test.com"
}

// ParseJSONResponse parses a JSON response body into a map.
func ParseJSONResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return result
}
