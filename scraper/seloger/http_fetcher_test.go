package seloger

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"listing-delta/utils"
)

func newTestServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var flaky int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/recherche", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "listing-delta-test" {
			http.Error(w, "missing user agent", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Récent" in Latin-1.
		w.Write([]byte("<html><body>R\xe9cent</body></html>"))
	})
	mux.HandleFunc("/private/page", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "secret")
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&flaky, 1) < 2 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "<html>ok</html>")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&flaky, 100)
		http.Error(w, "gone", http.StatusGone)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &flaky
}

func newTestFetcher(robots bool) *HTTPFetcher {
	return NewHTTPFetcher(HTTPFetcherConfig{
		UserAgent:     "listing-delta-test",
		Timeout:       5 * time.Second,
		MaxRetries:    3,
		RetryDelay:    time.Millisecond,
		RespectRobots: robots,
	}, utils.NewDiscardLogger())
}

func TestHTTPFetcherDecodesCharset(t *testing.T) {
	srv, _ := newTestServer(t)

	body, err := newTestFetcher(true).Fetch(context.Background(), srv.URL+"/recherche")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "<html><body>Récent</body></html>" {
		t.Errorf("body = %q", got)
	}
}

func TestHTTPFetcherHonoursRobots(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := newTestFetcher(true).Fetch(context.Background(), srv.URL+"/private/page")
	if !errors.Is(err, utils.ErrPermanent) {
		t.Fatalf("err = %v; want ErrPermanent", err)
	}

	body, err := newTestFetcher(false).Fetch(context.Background(), srv.URL+"/private/page")
	if err != nil {
		t.Fatalf("robots disabled: %v", err)
	}
	body.Close()
}

func TestHTTPFetcherRetriesServerErrors(t *testing.T) {
	srv, hits := newTestServer(t)

	body, err := newTestFetcher(false).Fetch(context.Background(), srv.URL+"/flaky")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	body.Close()
	if got := atomic.LoadInt32(hits); got != 2 {
		t.Errorf("hits = %d; want 2", got)
	}
}

func TestHTTPFetcherClientErrorIsPermanent(t *testing.T) {
	srv, hits := newTestServer(t)

	_, err := newTestFetcher(false).Fetch(context.Background(), srv.URL+"/gone")
	if !errors.Is(err, utils.ErrPermanent) {
		t.Fatalf("err = %v; want ErrPermanent", err)
	}
	if got := atomic.LoadInt32(hits); got != 100 {
		t.Errorf("4xx was retried: hits = %d", got)
	}
}
