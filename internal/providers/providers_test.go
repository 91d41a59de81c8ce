package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model:    "test-model",
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("fail after", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 1
		req := &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}}

		if _, err := c.Chat(context.Background(), req); err != nil {
			t.Fatalf("first Chat() error = %v", err)
		}
		result, err := c.Chat(context.Background(), req)
		if err == nil {
			t.Fatal("second Chat() should fail")
		}
		if result.Success {
			t.Error("Success = true, want false")
		}
	})

	t.Run("responder sees images", func(t *testing.T) {
		c := NewMockClient()
		c.Responder = func(req *ChatRequest) (string, error) {
			return req.Messages[0].ImageURLs[0], nil
		}
		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x", ImageURLs: []string{"https://img/1.jpg"}}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != "https://img/1.jpg" {
			t.Errorf("Content = %q", result.Content)
		}
	})
}

func TestOpenRouterClient(t *testing.T) {
	okBody := `{"id":"gen-1","model":"m","choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15,"cost":0.002}}`

	t.Run("sends image parts and parses usage", func(t *testing.T) {
		var got openRouterRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer key" {
				t.Errorf("missing auth header")
			}
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &got); err != nil {
				t.Errorf("bad request body: %v", err)
			}
			io.WriteString(w, okBody)
		}))
		defer srv.Close()

		c := NewOpenRouterClient(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL, RetryDelay: time.Millisecond})
		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "analyze", ImageURLs: []string{"https://img/p1.jpg"}}},
			ResponseFormat: &ResponseFormat{Type: "json_schema"},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success || result.TotalTokens != 15 || result.CostUSD != 0.002 {
			t.Errorf("unexpected result: %+v", result)
		}
		if string(result.ParsedJSON) != `{"ok":true}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}
		parts, ok := got.Messages[0].Content.([]any)
		if !ok || len(parts) != 2 {
			t.Fatalf("expected 2 content parts, got %#v", got.Messages[0].Content)
		}
		if !strings.Contains(mustJSON(t, parts[1]), "https://img/p1.jpg") {
			t.Errorf("image part missing url: %v", parts[1])
		}
	})

	t.Run("inlines local files as data URLs", func(t *testing.T) {
		jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
		fileURL := writeLocalImage(t, jpeg)

		var got openRouterRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &got); err != nil {
				t.Errorf("bad request body: %v", err)
			}
			io.WriteString(w, okBody)
		}))
		defer srv.Close()

		c := NewOpenRouterClient(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL, RetryDelay: time.Millisecond})
		_, err := c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "analyze", ImageURLs: []string{fileURL}}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		parts, ok := got.Messages[0].Content.([]any)
		if !ok || len(parts) != 2 {
			t.Fatalf("expected 2 content parts, got %#v", got.Messages[0].Content)
		}
		sent := mustJSON(t, parts[1])
		want := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
		if !strings.Contains(sent, want) {
			t.Errorf("image part = %s, want data URL %s", sent, want)
		}
		if strings.Contains(sent, "file://") {
			t.Errorf("file URL leaked to provider: %s", sent)
		}
	})

	t.Run("missing local file fails before sending", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			io.WriteString(w, okBody)
		}))
		defer srv.Close()

		missing := (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(t.TempDir(), "gone.jpg"))}).String()
		c := NewOpenRouterClient(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL, RetryDelay: time.Millisecond})
		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "analyze", ImageURLs: []string{missing}}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if result.ErrorType != "invalid_image" {
			t.Errorf("ErrorType = %q", result.ErrorType)
		}
		if calls.Load() != 0 {
			t.Errorf("calls = %d, want 0", calls.Load())
		}
	})

	t.Run("sends zero temperature", func(t *testing.T) {
		var raw map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &raw); err != nil {
				t.Errorf("bad request body: %v", err)
			}
			io.WriteString(w, okBody)
		}))
		defer srv.Close()

		zero := 0.0
		c := NewOpenRouterClient(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL, RetryDelay: time.Millisecond})
		if _, err := c.Chat(context.Background(), &ChatRequest{
			Messages:    []Message{{Role: "user", Content: "x"}},
			Temperature: &zero,
		}); err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		temp, ok := raw["temperature"]
		if !ok || temp != 0.0 {
			t.Errorf("temperature = %v (present %v), want 0", temp, ok)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			io.WriteString(w, okBody)
		}))
		defer srv.Close()

		c := NewOpenRouterClient(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL, RetryDelay: time.Millisecond})
		result, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", result.Attempts)
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"bad"}`)
		}))
		defer srv.Close()

		c := NewOpenRouterClient(OpenRouterConfig{APIKey: "key", BaseURL: srv.URL, RetryDelay: time.Millisecond})
		result, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
		if result.ErrorType != "http_error" {
			t.Errorf("ErrorType = %q", result.ErrorType)
		}
	})
}

func writeLocalImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page_0001_large.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatal(err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func TestResolveImageURL(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	fileURL := writeLocalImage(t, png)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "https unchanged", in: "https://cdn.test/p1.jpg", want: "https://cdn.test/p1.jpg"},
		{name: "data unchanged", in: "data:image/jpeg;base64,AAAA", want: "data:image/jpeg;base64,AAAA"},
		{name: "file inlined", in: fileURL, want: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)},
		{name: "missing file", in: "file:///nonexistent/brochure/page.jpg", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveImageURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveImageURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveImageURL() = %q, want %q", got, tt.want)
			}
		})
	}

	msg, err := openAIMessage(Message{Role: "user", Content: "analyze", ImageURLs: []string{fileURL}})
	if err != nil {
		t.Fatalf("openAIMessage() error = %v", err)
	}
	if sent := mustJSON(t, msg); strings.Contains(sent, "file://") || !strings.Contains(sent, "data:image/png;base64,") {
		t.Errorf("openAIMessage() = %s", sent)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

const testSchema = `{"name":"t","strict":true,"schema":{"type":"object","properties":{"n":{"type":"integer"}},"required":["n"],"additionalProperties":false}}`

func TestChatStructured(t *testing.T) {
	t.Run("repairs invalid output", func(t *testing.T) {
		c := NewMockClient()
		c.Responder = func(req *ChatRequest) (string, error) {
			if len(req.Messages) == 1 {
				return `{"n":"not a number"}`, nil
			}
			return "```json\n{\"n\": 4}\n```", nil
		}
		result, err := ChatStructured(context.Background(), c, &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "count"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: json.RawMessage(testSchema)},
		})
		if err != nil {
			t.Fatalf("ChatStructured() error = %v", err)
		}
		if string(result.ParsedJSON) != `{"n":4}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}
		if c.RequestCount() != 2 {
			t.Errorf("RequestCount = %d, want 2", c.RequestCount())
		}
	})

	t.Run("gives up after repair rounds", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "no json here"
		result, err := ChatStructured(context.Background(), c, &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "count"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: json.RawMessage(testSchema)},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if result.ErrorType != "schema_validation" {
			t.Errorf("ErrorType = %q", result.ErrorType)
		}
		if c.RequestCount() != maxStructuredRepairAttempts+1 {
			t.Errorf("RequestCount = %d", c.RequestCount())
		}
	})
}

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"ok":true}`, `{"ok":true}`, false},
		{"code fence", "```json\n{\"ok\":true}\n```", `{"ok":true}`, false},
		{"surrounding text", "Here you go: {\"ok\":true} thanks", `{"ok":true}`, false},
		{"empty", "  ", "", true},
		{"garbage", "nothing", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructuredJSON(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst then empty", func(t *testing.T) {
		r := NewRateLimiter(60) // burst 6
		for i := 0; i < 6; i++ {
			if !r.TryConsume() {
				t.Fatalf("TryConsume() #%d = false", i)
			}
		}
		if r.TryConsume() {
			t.Error("TryConsume() should fail once burst is spent")
		}
		if r.Status().TotalConsumed != 6 {
			t.Errorf("TotalConsumed = %d", r.Status().TotalConsumed)
		}
	})

	t.Run("429 pauses", func(t *testing.T) {
		r := NewRateLimiter(600)
		r.Record429(time.Minute)
		if r.TryConsume() {
			t.Error("TryConsume() should fail while paused")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := r.Wait(ctx); err == nil {
			t.Error("Wait() should return context error while paused")
		}
	})

	t.Run("wrapped client", func(t *testing.T) {
		mock := NewMockClient()
		c := WithRateLimit(mock, NewRateLimiter(600))
		if _, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}}); err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if c.Name() != MockClientName {
			t.Errorf("Name() = %q", c.Name())
		}
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		want    string
		wantErr bool
	}{
		{"openrouter", ClientConfig{Provider: "openrouter", APIKey: "k"}, OpenRouterName, false},
		{"openai", ClientConfig{Provider: "openai", APIKey: "k"}, OpenAIName, false},
		{"mock with limit", ClientConfig{Provider: "mock", RateLimit: 60}, MockClientName, false},
		{"missing key", ClientConfig{Provider: "openrouter"}, "", true},
		{"unknown", ClientConfig{Provider: "nope"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && c.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", c.Name(), tt.want)
			}
		})
	}
}
