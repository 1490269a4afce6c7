package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"reorc-cli/internal/config"
	"reorc-cli/internal/core"
	"reorc-cli/internal/testutil"
)

func testConfig() config.TransportConfig {
	return config.TransportConfig{
		ConnectTimeoutSec: 5,
		GetTimeoutSec:     5,
		PostTimeoutSec:    5,
		Retries:           3,
		RetryDelaySec:     2,
	}
}

func newTestClient(sleeper core.Sleeper) *Client {
	return NewClient(testConfig(), sleeper, core.NopLogger{}, testutil.NewStubIDGenerator())
}

func TestGetJSON(t *testing.T) {
	t.Run("returns JSON body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok": true}`))
		}))
		defer srv.Close()

		raw, err := newTestClient(testutil.NewStubSleeper()).GetJSON(context.Background(), srv.URL, nil)
		if err != nil {
			t.Fatalf("GetJSON() error = %v", err)
		}
		if string(raw) != `{"ok": true}` {
			t.Errorf("body = %s, want original JSON", raw)
		}
	})

	t.Run("wraps non-JSON success body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("plain text"))
		}))
		defer srv.Close()

		raw, err := newTestClient(testutil.NewStubSleeper()).GetJSON(context.Background(), srv.URL, nil)
		if err != nil {
			t.Fatalf("GetJSON() error = %v", err)
		}

		var wrapped map[string]string
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			t.Fatalf("wrapped body is not JSON: %v", err)
		}
		if wrapped["data"] != "plain text" {
			t.Errorf("data = %q, want %q", wrapped["data"], "plain text")
		}
	})

	t.Run("non-2xx fails without retry", func(t *testing.T) {
		var requests atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		sleeper := testutil.NewStubSleeper()
		_, err := newTestClient(sleeper).GetJSON(context.Background(), srv.URL, nil)
		if !errors.Is(err, core.ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}
		if n := requests.Load(); n != 1 {
			t.Errorf("requests = %d, want 1 (no retry on HTTP errors)", n)
		}
		if len(sleeper.Sleeps()) != 0 {
			t.Errorf("sleeps = %v, want none", sleeper.Sleeps())
		}
	})

	t.Run("connection refused retries with fixed delay", func(t *testing.T) {
		// Grab an address with nothing listening on it.
		srv := httptest.NewServer(http.NewServeMux())
		deadURL := srv.URL
		srv.Close()

		sleeper := testutil.NewStubSleeper()
		_, err := newTestClient(sleeper).GetJSON(context.Background(), deadURL, nil)
		if !errors.Is(err, core.ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}

		sleeps := sleeper.Sleeps()
		if len(sleeps) != 2 {
			t.Fatalf("sleeps = %d, want 2 (3 attempts, delay between)", len(sleeps))
		}
		for _, d := range sleeps {
			if d != 2*time.Second {
				t.Errorf("sleep = %v, want 2s", d)
			}
		}
	})

	t.Run("sends custom headers", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := newTestClient(testutil.NewStubSleeper()).GetJSON(context.Background(), srv.URL,
			map[string]string{"Authorization": "Bearer tok"})
		if err != nil {
			t.Fatalf("GetJSON() error = %v", err)
		}
		if gotAuth != "Bearer tok" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
		}
	})
}

func TestPostJSON(t *testing.T) {
	var gotContentType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"done": true}`))
	}))
	defer srv.Close()

	raw, err := newTestClient(testutil.NewStubSleeper()).PostJSON(context.Background(), srv.URL, nil,
		map[string]string{"email": "a@b.c"})
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody["email"] != "a@b.c" {
		t.Errorf("body = %v, want encoded request", gotBody)
	}
	if string(raw) != `{"done": true}` {
		t.Errorf("response = %s", raw)
	}
}

func TestDownload(t *testing.T) {
	t.Run("streams body to file", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("archive-bytes"))
		}))
		defer srv.Close()

		dest := filepath.Join(t.TempDir(), "out.tar.gz")
		err := newTestClient(testutil.NewStubSleeper()).Download(context.Background(), srv.URL, nil, dest)
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}

		got, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("reading download: %v", err)
		}
		if string(got) != "archive-bytes" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("non-200 is an error and writes nothing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		}))
		defer srv.Close()

		dest := filepath.Join(t.TempDir(), "out.tar.gz")
		err := newTestClient(testutil.NewStubSleeper()).Download(context.Background(), srv.URL, nil, dest)
		if !errors.Is(err, core.ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}
		if _, err := os.Stat(dest); !os.IsNotExist(err) {
			t.Error("destination file created for failed download")
		}
	})
}
