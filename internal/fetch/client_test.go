package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetListing(t *testing.T) {
	t.Parallel()

	const body = "<html><body><a href=\"ze_a.bsp.bz2\">ze_a.bsp.bz2</a></body></html>"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent/1.0" {
			t.Errorf("User-Agent = %q, want %q", got, "test-agent/1.0")
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Options{UserAgent: "test-agent/1.0"})

	got, err := client.GetListing(context.Background(), server.URL+"/maps/")
	if err != nil {
		t.Fatalf("GetListing() error = %v", err)
	}
	if string(got) != body {
		t.Errorf("GetListing() body = %q, want %q", got, body)
	}
}

func TestGetListingStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "forbidden", status: http.StatusForbidden, wantErr: ErrForbidden},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: ErrTooManyRequests},
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrServerError},
		{name: "bad gateway", status: http.StatusBadGateway, wantErr: ErrServerError},
		{name: "teapot", status: http.StatusTeapot, wantErr: ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			client := NewClient(DefaultOptions())
			_, err := client.GetListing(context.Background(), server.URL)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetListing() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProbeFollowsRedirect(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old/file.bz2", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/file.bz2", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new/file.bz2", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(DefaultOptions())

	canon, err := client.Probe(context.Background(), server.URL+"/old/file.bz2")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if canon.Path != "/new/file.bz2" {
		t.Errorf("Probe() path = %q, want %q", canon.Path, "/new/file.bz2")
	}
}

func TestProbeStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := NewClient(DefaultOptions())
	if _, err := client.Probe(context.Background(), server.URL+"/gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Probe() error = %v, want ErrNotFound", err)
	}
}

func TestGetStreamsBody(t *testing.T) {
	t.Parallel()

	payload := []byte("compressed map data")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	client := NewClient(DefaultOptions())

	body, cancel, err := client.Get(context.Background(), server.URL+"/maps/ze_a.bsp.bz2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer cancel()
	defer body.Close()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("body = %q, want %q", got, payload)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "not found is permanent", err: ErrNotFound, want: false},
		{name: "forbidden is permanent", err: ErrForbidden, want: false},
		{name: "unexpected status is permanent", err: ErrUnexpectedStatus, want: false},
		{name: "wrapped not found is permanent", err: fmt.Errorf("get: %w", ErrNotFound), want: false},
		{name: "server error is transient", err: ErrServerError, want: true},
		{name: "rate limit is transient", err: ErrTooManyRequests, want: true},
		{name: "connection error is transient", err: errors.New("connection refused"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	t.Run("waits within jitter bounds", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		if err := Backoff(context.Background(), 1, 10*time.Millisecond, 100*time.Millisecond); err != nil {
			t.Fatalf("Backoff() error = %v", err)
		}
		elapsed := time.Since(start)

		// Attempt 1 with 10ms initial: jitter range is 5ms to 15ms.
		if elapsed < 4*time.Millisecond {
			t.Errorf("Backoff returned too fast: %v", elapsed)
		}
		if elapsed > 500*time.Millisecond {
			t.Errorf("Backoff took too long: %v", elapsed)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Backoff(ctx, 5, time.Second, time.Minute)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Backoff() error = %v, want context.Canceled", err)
		}
	})

	t.Run("caps at max interval", func(t *testing.T) {
		t.Parallel()

		// Attempt 30 would overflow without the cap; the max of 20ms with
		// jitter bounds the wait to at most 30ms.
		start := time.Now()
		if err := Backoff(context.Background(), 30, 10*time.Millisecond, 20*time.Millisecond); err != nil {
			t.Fatalf("Backoff() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("Backoff exceeded capped interval: %v", elapsed)
		}
	})
}
