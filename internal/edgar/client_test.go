package edgar

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// testClient points the client at a local server and removes real throttling.
func testClient(t *testing.T) *Client {
	c := NewClient("claimlens-test/0.1 (test@example.com)", 10, nil)
	c.sleep = func(time.Duration) {}
	return c
}

func TestGetRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := testClient(t)
	body, err := c.get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("unexpected body: %q", body)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestGetRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t)
	if _, err := c.get(context.Background(), srv.URL); err == nil {
		t.Error("expected error after retries exhausted")
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(t)
	if _, err := c.get(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 404")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", got)
	}
}

func TestGetSetsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := testClient(t)
	if _, err := c.get(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}
	if ua != c.userAgent {
		t.Errorf("expected UA %q, got %q", c.userAgent, ua)
	}
}

func TestRecentFilingsFiltersForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"name": "ACME CORP",
			"filings": {"recent": {
				"accessionNumber": ["0001-24-000001", "0001-24-000002", "0001-24-000003"],
				"form": ["10-K", "8-K", "10-Q"],
				"filingDate": ["2024-02-01", "2024-03-01", "2024-05-01"],
				"primaryDocument": ["acme-10k.htm", "acme-8k.htm", "acme-10q.htm"]
			}}
		}`))
	}))
	defer srv.Close()

	c := testClient(t)
	c.submissionsURL = srv.URL + "/CIK%010d.json"

	filings, err := c.RecentFilings(context.Background(), 320193, []string{"10-K", "10-Q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filings) != 2 {
		t.Fatalf("expected 2 matching filings, got %d", len(filings))
	}
	if filings[0].Form != "10-K" || filings[1].Form != "10-Q" {
		t.Errorf("unexpected filings: %+v", filings)
	}

	all, err := c.RecentFilings(context.Background(), 320193, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("nil forms means all filings, got %d", len(all))
	}
}

func TestRecentFilingsGzipResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			t.Error("expected transport to advertise gzip")
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{
			"name": "ACME CORP",
			"filings": {"recent": {
				"accessionNumber": ["0001-24-000001"],
				"form": ["10-K"],
				"filingDate": ["2024-02-01"],
				"primaryDocument": ["acme-10k.htm"]
			}}
		}`))
		_ = gz.Close()
	}))
	defer srv.Close()

	c := testClient(t)
	c.submissionsURL = srv.URL + "/CIK%010d.json"

	filings, err := c.RecentFilings(context.Background(), 320193, nil)
	if err != nil {
		t.Fatalf("gzip-encoded response not decoded: %v", err)
	}
	if len(filings) != 1 || filings[0].Form != "10-K" {
		t.Errorf("unexpected filings: %+v", filings)
	}
}

func TestDownloadWritesFiling(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("10-K content"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(t)
	c.archivesURL = srv.URL + "/Archives/edgar/data/%d/%s/%s"
	dir := t.TempDir()

	f := Filing{AccessionNumber: "0001-24-000001", Form: "10-K", FilingDate: "2024-02-01", PrimaryDocument: "acme-10k.txt"}
	path, err := c.Download(context.Background(), 320193, f, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join(dir, "10-K_2024-02-01_acme-10k.txt")
	if path != want {
		t.Errorf("expected path %s, got %s", want, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read filing: %v", err)
	}
	if string(data) != "10-K content" {
		t.Errorf("unexpected filing content: %q", data)
	}
}

func TestDownloadConvertsHTMLFiling(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>ignored</title>
			<script>var hidden = 1;</script></head>
			<body><p>Revenue grew 12% in fiscal 2024.</p>
			<div>Operating margin was 28%.</div></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(t)
	c.archivesURL = srv.URL + "/Archives/edgar/data/%d/%s/%s"
	dir := t.TempDir()

	f := Filing{AccessionNumber: "0001-24-000001", Form: "10-K", FilingDate: "2024-02-01", PrimaryDocument: "acme-10k.htm"}
	path, err := c.Download(context.Background(), 320193, f, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join(dir, "10-K_2024-02-01_acme-10k.txt")
	if path != want {
		t.Errorf("expected converted path %s, got %s", want, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read filing: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "Revenue grew 12% in fiscal 2024.") ||
		!strings.Contains(text, "Operating margin was 28%.") {
		t.Errorf("extracted text missing filing content: %q", text)
	}
	if strings.Contains(text, "<") || strings.Contains(text, "hidden") || strings.Contains(text, "ignored") {
		t.Errorf("extracted text carries markup or non-body content: %q", text)
	}
}

func TestDownloadRespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /Archives/\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("should never be served"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(t)
	c.archivesURL = srv.URL + "/Archives/edgar/data/%d/%s/%s"

	f := Filing{AccessionNumber: "0001-24-000001", Form: "10-K", FilingDate: "2024-02-01", PrimaryDocument: "acme-10k.htm"}
	if _, err := c.Download(context.Background(), 320193, f, t.TempDir()); err == nil {
		t.Error("download must refuse a robots-disallowed path")
	}
}
