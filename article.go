// Article extraction glue: runs the readability engine over a fetched
// page, enforces the image invariants on its output and collects the
// image references the download pipeline needs.
package main

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"paperoni/readability"
)

// imageRef tracks one image through the pipeline: the src exactly as
// it appears in the DOM, its resolved absolute URL, and after download
// the local filename and MIME type.
type imageRef struct {
	src  string
	abs  string
	mime string
}

// article is one extracted page on its way to a writer.
type article struct {
	root      *html.Node
	doc       *goquery.Document
	meta      readability.Metadata
	sourceURL *url.URL
	requested string
	images    []imageRef
	imgErrs   []*ImgError
}

// extractArticle runs readability over a fetched body. finalURL is the
// effective URL after redirects, requested the URL the user gave us.
func extractArticle(body, finalURL, requested string) (*article, error) {
	parsed, err := readability.Parse(body)
	if err != nil {
		e := wrapError(KindReadability, err)
		e.ArticleSource = requested
		return nil, e
	}
	src, err := url.Parse(finalURL)
	if err != nil {
		e := newError(KindHTTP, "invalid article URL %q: %v", finalURL, err)
		e.ArticleSource = requested
		return nil, e
	}

	a := &article{
		root:      parsed.Root,
		doc:       goquery.NewDocumentFromNode(parsed.Root),
		meta:      parsed.Metadata,
		sourceURL: src,
		requested: requested,
	}
	a.dropUnusableImages()
	a.collectImageRefs()
	assignHeadingIDs(a.doc)
	return a, nil
}

// title returns the display title, falling back to the source URL when
// metadata extraction found nothing.
func (a *article) title() string {
	if a.meta.Title != "" {
		return a.meta.Title
	}
	return a.requested
}

// dropUnusableImages removes images the offline artifact cannot carry:
// empty sources and inline data URLs. Inline SVG data URLs stay.
func (a *article) dropUnusableImages() {
	a.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			s.Remove()
			return
		}
		if strings.HasPrefix(src, "data:") && !strings.HasPrefix(src, "data:image/svg+xml") {
			s.Remove()
		}
	})
}

// collectImageRefs records every distinct img src with its resolved
// absolute URL. Deduplication happens on the raw src string, before
// resolution, so repeated references download once.
func (a *article) collectImageRefs() {
	seen := map[string]bool{}
	a.images = a.images[:0]
	a.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if seen[src] {
			return
		}
		seen[src] = true
		a.images = append(a.images, imageRef{
			src: src,
			abs: resolveImgURL(src, a.sourceURL),
		})
	})
}

// resolveImgURL turns an img src into an absolute URL: already
// absolute values pass through, rooted paths join the article's
// scheme and host, and everything else resolves against the article
// URL itself.
func resolveImgURL(src string, articleURL *url.URL) string {
	if u, err := url.Parse(src); err == nil && u.IsAbs() {
		return src
	}
	if strings.HasPrefix(src, "/") {
		base := &url.URL{Scheme: articleURL.Scheme, Host: articleURL.Host}
		if joined, err := base.Parse(src); err == nil {
			return joined.String()
		}
		return src
	}
	if joined, err := articleURL.Parse(src); err == nil {
		return joined.String()
	}
	return src
}
