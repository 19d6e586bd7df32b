package pusher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("http://hub.example.com:8765/")

		if c.baseURL != "http://hub.example.com:8765" {
			t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
		}
		if c.httpClient.Timeout != 5*time.Minute {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Minute)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		custom := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("http://hub",
			WithHTTPClient(custom),
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
		)

		if c.httpClient != custom || custom.Timeout != 15*time.Second {
			t.Errorf("http client = %p timeout %v", c.httpClient, c.httpClient.Timeout)
		}
		if c.maxRetries != 10 || c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retries = %d/%v", c.maxRetries, c.retryBackoff)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})
}

func TestAPIError_IsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{400, false},
		{404, false},
		{413, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		err := &APIError{StatusCode: tt.status}
		if got := err.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestPush(t *testing.T) {
	payload := []byte("seventeen bytes!!")
	id := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.FormValue("target"); got != "Laptop" {
			t.Errorf("target = %q, want Laptop", got)
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if fh.Filename != "photo.png" || string(data) != string(payload) {
			t.Errorf("file = %q %q", fh.Filename, data)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(Receipt{ID: id, Target: "Laptop", Filename: fh.Filename, Size: len(data)})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewClient(server.URL)
	receipt, err := c.Push(context.Background(), "Laptop", path)
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if receipt.ID != id || receipt.Size != 17 {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestPush_MissingFile(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	if _, err := c.Push(context.Background(), "Laptop", filepath.Join(t.TempDir(), "nope")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Push() error = %v, want ErrNotExist", err)
	}
}

func TestPush_TargetNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"target not found","target":"Ghost"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRetries(3, time.Millisecond))
	_, err := c.PushBytes(context.Background(), "Ghost", "x.txt", []byte{1})

	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("PushBytes() error = %v, want ErrTargetNotFound", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "target not found" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestPush_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"target":"Laptop","filename":"a.txt","size":1}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRetries(3, time.Millisecond))
	receipt, err := c.PushBytes(context.Background(), "Laptop", "a.txt", []byte("a"))
	if err != nil {
		t.Fatalf("PushBytes() error = %v", err)
	}
	if receipt.Filename != "a.txt" {
		t.Errorf("receipt = %+v", receipt)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestPush_QueueFullAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, WithRetries(2, time.Millisecond))
	_, err := c.PushBytes(context.Background(), "Phone", "a.txt", []byte("a"))
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("PushBytes() error = %v, want ErrQueueFull", err)
	}
}

func TestClients(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clients" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"count":2,"clients":["Laptop","Phone"]}`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL).Clients(context.Background())
	if err != nil {
		t.Fatalf("Clients() error = %v", err)
	}
	if len(got) != 2 || got[0] != "Laptop" || got[1] != "Phone" {
		t.Errorf("Clients() = %v", got)
	}
}
