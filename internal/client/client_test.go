package client

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/net/context"

	"github.com/contentmigrate/cm-cli/internal/config"
)

func testClient(serverURL string) *Client {
	return New(config.Environment{
		EnvironmentID: "env-1",
		APIKey:        "key",
		BaseURL:       serverURL,
	})
}

func TestRateLimitRetriedThenSucceeds(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error_code": 10000, "message": "API rate limit exceeded"}`))
			return
		}
		w.Write([]byte(`{"id": "item-1", "codename": "about"}`))
	}))
	defer server.Close()

	var out struct {
		Codename string `json:"codename"`
	}
	err := testClient(server.URL).Get(context.Background(), "/items/codename/about", &out)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	if out.Codename != "about" {
		t.Errorf("expected decoded response, got %+v", out)
	}
}

func TestKnownErrorCodeIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_code": 216, "message": "element value is invalid"}`))
	}))
	defer server.Close()

	err := testClient(server.URL).Get(context.Background(), "/items/codename/about", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected no retries for a platform-coded error, got %d attempts", calls)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode != 216 {
		t.Errorf("expected APIError with code 216, got %v", err)
	}
}

func TestNotFoundIsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := testClient(server.URL).Get(context.Background(), "/items/codename/missing", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthAndProjectScope(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if err := testClient(server.URL).Get(context.Background(), "/collections", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/projects/env-1/collections" {
		t.Errorf("expected project-scoped path, got %s", gotPath)
	}
	if gotAuth != "Bearer key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestGetPageSendsContinuation(t *testing.T) {
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("x-continuation"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	if err := c.GetPage(context.Background(), "/types", "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.GetPage(context.Background(), "/types", "token-2", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[0] != "" || tokens[1] != "token-2" {
		t.Errorf("expected continuation header only on second call, got %v", tokens)
	}
}

func TestIsBadPublish(t *testing.T) {
	withValidation := &APIError{
		StatusCode: 400,
		Validation: []ValidationIssue{{Message: "element missing"}},
	}
	if !IsBadPublish(withValidation) {
		t.Error("expected validation failure to classify as bad publish")
	}
	if IsBadPublish(&APIError{StatusCode: 500}) {
		t.Error("expected plain error not to classify as bad publish")
	}
}

func TestPostBinarySetsContentType(t *testing.T) {
	var gotType string
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"id": "file-1"}`))
	}))
	defer server.Close()

	var out struct {
		ID string `json:"id"`
	}
	err := testClient(server.URL).PostBinary(context.Background(), "/files/logo.png", []byte("png-bytes"), "image/png", &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotType != "image/png" || gotBody != "png-bytes" {
		t.Errorf("expected raw binary upload, got type=%q body=%q", gotType, gotBody)
	}
	if out.ID != "file-1" {
		t.Errorf("expected file reference decoded, got %+v", out)
	}
}
