package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}, "finish_reason": "stop"},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestCompleteJSONSuccess(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var payload chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(payload.Messages) != 2 || payload.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", payload.Messages)
		}
		if payload.ResponseFormat["type"] != jsonResponseType {
			t.Errorf("response_format = %v", payload.ResponseFormat)
		}
		w.Write(completionBody(t, `{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "key", BaseURL: server.URL, Model: "test-model"})
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if content != `{"ok":true}` {
		t.Errorf("content = %q", content)
	}
	if gotAuth != "Bearer key" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestCompleteJSONRetriesRateLimit(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(completionBody(t, `{"ok":true}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(ClientConfig{APIKey: "key", BaseURL: server.URL, Model: "test-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if content != `{"ok":true}` {
		t.Errorf("content = %q", content)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Errorf("slept = %v, want the Retry-After delay", slept)
	}
}

func TestCompleteJSONDoesNotRetryClientError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "bad", BaseURL: server.URL, Model: "test-model"},
		WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error on 401")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want no retries on auth failure", calls)
	}
}

func TestCompleteJSONExhaustsRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "key", BaseURL: server.URL, Model: "test-model"},
		WithRetryMaxAttempts(3),
		WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestCompleteJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(ClientConfig{Model: "test-model"})
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestBackoffDelayDoubles(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "key"},
		WithRetryBackoff(time.Second, 10*time.Second))
	wants := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second}
	for attempt, want := range wants {
		if got := client.backoffDelay(attempt + 1); got != want {
			t.Errorf("backoffDelay(%d) = %v, want %v", attempt+1, got, want)
		}
	}
}

func TestDecodeModelJSONHandlesFences(t *testing.T) {
	var target struct {
		OK bool `json:"ok"`
	}
	inputs := []string{
		`{"ok":true}`,
		"```json\n{\"ok\":true}\n```",
		"Here is the result:\n{\"ok\":true}",
	}
	for _, input := range inputs {
		target.OK = false
		if err := decodeModelJSON(input, &target); err != nil {
			t.Errorf("decodeModelJSON(%q) failed: %v", input, err)
			continue
		}
		if !target.OK {
			t.Errorf("decodeModelJSON(%q) did not populate target", input)
		}
	}
	if err := decodeModelJSON("", &target); err == nil {
		t.Error("empty payload should fail")
	}
	if err := decodeModelJSON("no json here", &target); err == nil {
		t.Error("non-JSON payload should fail")
	}
}
