// Image download pipeline. Each article's images are fetched
// concurrently, stored content-addressed in the OS temp directory and
// the DOM src attributes rewritten to the bare local filenames.
package main

import (
	"context"
	"crypto/md5"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// imageConcurrency bounds in-flight image requests per article.
const imageConcurrency = 10

// hashURL names a downloaded image after its absolute URL.
func hashURL(rawURL string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(rawURL)))
}

// mimeToExt maps a MIME essence to a file extension, dot included.
func mimeToExt(essence string) string {
	subtype := essence
	if idx := strings.LastIndex(essence, "/"); idx >= 0 {
		subtype = essence[idx+1:]
	}
	switch subtype {
	case "svg+xml":
		subtype = "svg"
	case "x-icon":
		subtype = "ico"
	}
	return "." + subtype
}

type imgDownload struct {
	ref      imageRef
	filename string
	mime     string
	err      error
}

// downloadImages fetches every collected image reference, rewrites the
// matching img elements to local filenames and replaces the article's
// image manifest with (filename, mime) pairs. Failures are collected
// per image; the article is still usable afterwards.
func downloadImages(ctx context.Context, client *http.Client, a *article) {
	if len(a.images) == 0 {
		return
	}
	log.Info().Str("url", a.sourceURL.String()).Int("count", len(a.images)).Msg("downloading images")

	downloads := make([]imgDownload, len(a.images))
	sem := make(chan struct{}, imageConcurrency)
	var wg sync.WaitGroup

	for i, ref := range a.images {
		wg.Add(1)
		go func(i int, ref imageRef) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			filename, essence, err := fetchImage(ctx, client, ref.abs)
			downloads[i] = imgDownload{ref: ref, filename: filename, mime: essence, err: err}
		}(i, ref)
	}
	wg.Wait()

	a.images = a.images[:0]
	for _, d := range downloads {
		if d.err != nil {
			log.Warn().Str("img", d.ref.abs).Err(d.err).Msg("image download failed")
			a.imgErrs = append(a.imgErrs, &ImgError{URL: d.ref.abs, Err: d.err})
			continue
		}
		rewriteImgSrc(a.doc, d.ref.src, d.filename)
		a.images = append(a.images, imageRef{src: d.filename, abs: d.ref.abs, mime: d.mime})
	}
}

// fetchImage downloads one image and stores it under
// <tempdir>/<md5-of-url>.<ext>. It returns the bare filename and the
// MIME essence of the response.
func fetchImage(ctx context.Context, client *http.Client, absURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, absURL, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", defaultUA)

	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	data, err := readLimited(resp.Body, maxResponseBytes)
	if err != nil {
		return "", "", err
	}

	essence := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			essence = parsed
		}
	}
	if essence == "" {
		essence = http.DetectContentType(data)
		if idx := strings.Index(essence, ";"); idx >= 0 {
			essence = strings.TrimSpace(essence[:idx])
		}
	}

	filename := hashURL(absURL) + mimeToExt(essence)
	path := filepath.Join(os.TempDir(), filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", err
	}
	log.Debug().Str("img", absURL).Str("file", filename).Msg("stored image")
	return filename, essence, nil
}

// rewriteImgSrc points every img that carried the original src at the
// local filename and drops srcset, which would otherwise override the
// local copy.
func rewriteImgSrc(doc *goquery.Document, originalSrc, filename string) {
	doc.Find(fmt.Sprintf("img[src=%q]", originalSrc)).Each(func(_ int, s *goquery.Selection) {
		s.SetAttr("src", filename)
		s.RemoveAttr("srcset")
	})
}

// imagePath returns the temp-dir location of a downloaded image.
func imagePath(filename string) string {
	return filepath.Join(os.TempDir(), filename)
}
