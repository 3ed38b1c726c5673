package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testClient returns a plain client for httptest servers, with the
// SSRF guard opened for loopback addresses.
func testClient(t *testing.T) *http.Client {
	t.Helper()
	t.Setenv("PAPERONI_TEST_ALLOW_LOCAL", "1")
	return &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func errKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return e.Kind
}

func TestFetchHTML_Success(t *testing.T) {
	expected := "<html><body>Hello</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(expected))
	}))
	defer srv.Close()

	final, body, err := fetchHTML(context.Background(), testClient(t), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if body != expected {
		t.Errorf("got %q, want %q", body, expected)
	}
	if final != srv.URL {
		t.Errorf("final URL = %q, want %q", final, srv.URL)
	}
}

func TestFetchHTML_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		// Relative Location must resolve against the current URL.
		w.Header().Set("Location", "/middle")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/end")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>landed</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	final, body, err := fetchHTML(context.Background(), testClient(t), srv.URL+"/start")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "landed") {
		t.Errorf("unexpected body %q", body)
	}
	if final != srv.URL+"/end" {
		t.Errorf("final URL = %q, want %q", final, srv.URL+"/end")
	}
}

func TestFetchHTML_TooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/loop")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	_, _, err := fetchHTML(context.Background(), testClient(t), srv.URL)
	if err == nil {
		t.Fatal("expected error for redirect loop")
	}
	if kind := errKind(t, err); kind != KindHTTP {
		t.Errorf("kind = %v, want KindHTTP", kind)
	}
	if !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetchHTML_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer srv.Close()

	_, _, err := fetchHTML(context.Background(), testClient(t), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 in error, got: %v", err)
	}
}

func TestFetchHTML_WrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"not": "html"}`))
	}))
	defer srv.Close()

	_, _, err := fetchHTML(context.Background(), testClient(t), srv.URL)
	if err == nil {
		t.Fatal("expected error for non-HTML content type")
	}
	if kind := errKind(t, err); kind != KindHTTP {
		t.Errorf("kind = %v, want KindHTTP", kind)
	}
}

func TestFetchHTML_InvalidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte{'<', 'p', '>', 0xff, 0xfe, '<', '/', 'p', '>'})
	}))
	defer srv.Close()

	_, _, err := fetchHTML(context.Background(), testClient(t), srv.URL)
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
	if kind := errKind(t, err); kind != KindUTF8 {
		t.Errorf("kind = %v, want KindUTF8", kind)
	}
}

func TestFetchHTML_InvalidURL(t *testing.T) {
	_, _, err := fetchHTML(context.Background(), testClient(t), "://bad-url")
	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestFetchHTML_BrowserHeaders(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	_, _, err := fetchHTML(context.Background(), testClient(t), srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	required := map[string]string{
		"Sec-Fetch-Dest": "document",
		"Sec-Fetch-Mode": "navigate",
		"Sec-Fetch-Site": "none",
		"Accept":         "text/html",
		"User-Agent":     "Firefox",
	}
	for header, wantSubstr := range required {
		got := headers.Get(header)
		if got == "" {
			t.Errorf("missing header %s", header)
		} else if !strings.Contains(got, wantSubstr) {
			t.Errorf("%s = %q, want substring %q", header, got, wantSubstr)
		}
	}
}

func TestFetchArticles_OrderAndIsolation(t *testing.T) {
	mux := http.NewServeMux()
	for i := 0; i < 4; i++ {
		page := fmt.Sprintf("<html><body>page %d</body></html>", i)
		mux.HandleFunc(fmt.Sprintf("/a%d", i), func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(page))
		})
	}
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	urls := []string{
		srv.URL + "/a0",
		srv.URL + "/broken",
		srv.URL + "/a2",
		srv.URL + "/a3",
	}
	results := fetchArticles(context.Background(), testClient(t), urls, 2)
	if len(results) != len(urls) {
		t.Fatalf("got %d results, want %d", len(results), len(urls))
	}
	for i, res := range results {
		if res.URL != urls[i] {
			t.Errorf("result %d is for %q, want %q", i, res.URL, urls[i])
		}
	}
	if results[1].Err == nil {
		t.Error("expected error for the broken URL")
	}
	for _, i := range []int{0, 2, 3} {
		if results[i].Err != nil {
			t.Errorf("result %d failed: %v", i, results[i].Err)
		}
		want := fmt.Sprintf("page %d", i)
		if !strings.Contains(results[i].Body, want) {
			t.Errorf("result %d body = %q, want substring %q", i, results[i].Body, want)
		}
	}
}

func TestHasPort(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"example.com:443", true},
		{"example.com:80", true},
		{"[::1]:8080", true},
		{"example.com", false},
		{"localhost", false},
	}
	for _, tt := range tests {
		got := hasPort(tt.host)
		if got != tt.want {
			t.Errorf("hasPort(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

// --- readLimited tests ---

func TestReadLimited_UnderLimit(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 100)
	got, err := readLimited(bytes.NewReader(data), 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 100 {
		t.Errorf("got %d bytes, want 100", len(got))
	}
}

func TestReadLimited_ExactlyAtLimit(t *testing.T) {
	data := bytes.Repeat([]byte("b"), 200)
	got, err := readLimited(bytes.NewReader(data), 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 200 {
		t.Errorf("got %d bytes, want 200", len(got))
	}
}

func TestReadLimited_ExceedsLimit(t *testing.T) {
	data := bytes.Repeat([]byte("c"), 201)
	_, err := readLimited(bytes.NewReader(data), 200)
	if err == nil {
		t.Fatal("expected error when exceeding limit")
	}
	if !strings.Contains(err.Error(), "exceeds maximum allowed size") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestReadLimited_ZeroMeansUnlimited(t *testing.T) {
	data := bytes.Repeat([]byte("d"), 10000)
	got, err := readLimited(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10000 {
		t.Errorf("got %d bytes, want 10000", len(got))
	}
}

func TestReadLimited_EmptyReader(t *testing.T) {
	got, err := readLimited(bytes.NewReader(nil), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d bytes, want 0", len(got))
	}
}
