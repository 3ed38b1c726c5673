// Article fetch pipeline: bounded-concurrency GET of the input URLs
// with manual redirect following and content-type validation.
package main

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// maxRedirects bounds the Location chain followed per URL.
const maxRedirects = 5

// fetchResult is the outcome of downloading one article URL. FinalURL
// is the effective URL after redirects; Err is an article-level
// failure.
type fetchResult struct {
	URL      string
	FinalURL string
	Body     string
	Err      error
}

// fetchArticles downloads every URL with at most maxConn requests in
// flight. Results keep the input order; per-URL failures never abort
// the batch.
func fetchArticles(ctx context.Context, client *http.Client, urls []string, maxConn int) []fetchResult {
	results := make([]fetchResult, len(urls))
	sem := make(chan struct{}, maxConn)
	var wg sync.WaitGroup

	for i, rawURL := range urls {
		wg.Add(1)
		go func(i int, rawURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			final, body, err := fetchHTML(ctx, client, rawURL)
			results[i] = fetchResult{URL: rawURL, FinalURL: final, Body: body, Err: err}
			if err != nil {
				log.Warn().Str("url", rawURL).Err(err).Msg("fetch failed")
			} else {
				log.Info().Str("url", final).Int("bytes", len(body)).Msg("fetched")
			}
		}(i, rawURL)
	}
	wg.Wait()
	return results
}

// fetchHTML downloads one URL, following up to maxRedirects Location
// headers, and returns the effective URL with the decoded body. The
// final response must be 2xx with a text/html content type and a
// valid UTF-8 body.
func fetchHTML(ctx context.Context, client *http.Client, rawURL string) (string, string, error) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return "", "", newErrorWithSource(KindHTTP, rawURL, "invalid URL %q: %v", rawURL, err)
	}

	for redirects := 0; ; redirects++ {
		req, err := browserRequest(ctx, current.String())
		if err != nil {
			return "", "", newErrorWithSource(KindHTTP, rawURL, "building request: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", "", newErrorWithSource(KindHTTP, rawURL, "%v", err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			resp.Body.Close()
			if redirects == maxRedirects {
				return "", "", newErrorWithSource(KindHTTP, rawURL, "too many redirects (%d)", maxRedirects)
			}
			location := resp.Header.Get("Location")
			if location == "" {
				return "", "", newErrorWithSource(KindHTTP, rawURL, "redirect without Location from %s", current)
			}
			next, err := current.Parse(location)
			if err != nil {
				return "", "", newErrorWithSource(KindHTTP, rawURL, "bad redirect target %q: %v", location, err)
			}
			log.Debug().Str("from", current.String()).Str("to", next.String()).Msg("following redirect")
			current = next
			continue
		}

		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", "", newErrorWithSource(KindHTTP, rawURL, "request to %s returned HTTP %d", current, resp.StatusCode)
		}
		essence, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if err != nil || essence != "text/html" {
			return "", "", newErrorWithSource(KindHTTP, rawURL, "expected text/html from %s, got %q", current, resp.Header.Get("Content-Type"))
		}

		body, err := readLimited(resp.Body, maxResponseBytes)
		if err != nil {
			return "", "", newErrorWithSource(KindHTTP, rawURL, "reading response: %v", err)
		}
		if !utf8.Valid(body) {
			return "", "", newErrorWithSource(KindUTF8, rawURL, "response from %s is not valid UTF-8", current)
		}
		return current.String(), string(body), nil
	}
}

func newErrorWithSource(kind ErrorKind, source, format string, args ...any) *Error {
	err := newError(kind, format, args...)
	err.ArticleSource = source
	return err
}
