package main

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// readZipFile returns the contents of a file from a zip reader by name
// suffix match, since go-epub nests content under its own directories.
func readZipFile(t *testing.T, zr *zip.ReadCloser, suffix string) string {
	t.Helper()
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, suffix) {
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatal(err)
			}
			return string(data)
		}
	}
	return ""
}

func zipHasFile(zr *zip.ReadCloser, substr string) bool {
	for _, f := range zr.File {
		if strings.Contains(f.Name, substr) {
			return true
		}
	}
	return false
}

func mergedTestArticles(t *testing.T) []*article {
	t.Helper()
	first := testArticle(t, `<html><head><title>Going Offline</title></head><body><article>`+
		`<h2 id="intro">Introduction</h2>`+
		`<p>The first of two articles bundled into one book for this test case.</p>`+
		`</article></body></html>`, "https://example.com/offline")
	second := testArticle(t, `<html><head><title>Staying Offline</title></head><body><article>`+
		`<p>The second of two articles bundled into one book for this test case.</p>`+
		`</article></body></html>`, "https://example.com/still-offline")
	return []*article{first, second}
}

func TestWriteMergedEpub(t *testing.T) {
	articles := mergedTestArticles(t)
	out := filepath.Join(t.TempDir(), "bundle.epub")
	cfg := &AppConfig{Merge: out, Export: "epub", InlineTOC: true}

	if errs := generateEpubs(articles, cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("not a valid zip: %v", err)
	}
	defer zr.Close()

	for _, want := range []string{"article_0.xhtml", "article_1.xhtml", "toc.xhtml", "appendix.xhtml", "cover.png"} {
		if !zipHasFile(zr, want) {
			t.Errorf("epub is missing %s", want)
			for _, f := range zr.File {
				t.Logf("  %s", f.Name)
			}
		}
	}

	toc := readZipFile(t, zr, "toc.xhtml")
	if !strings.Contains(toc, "Going Offline") || !strings.Contains(toc, "Staying Offline") {
		t.Error("inline TOC should list both article titles")
	}
	if !strings.Contains(toc, `article_0.xhtml#intro`) {
		t.Errorf("inline TOC should link heading fragments, got:\n%s", toc)
	}

	appendix := readZipFile(t, zr, "appendix.xhtml")
	if !strings.Contains(appendix, "Article sources") {
		t.Error("appendix should carry the sources header")
	}
	if !strings.Contains(appendix, "https://example.com/offline") {
		t.Error("appendix should link the article sources")
	}
}

func TestWriteMergedEpub_SharedImage(t *testing.T) {
	filename := hashURL("https://example.com/shared.png") + ".png"
	if err := os.WriteFile(imagePath(filename), pngBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	page := func(title string) string {
		return `<html><head><title>` + title + `</title></head><body><article>` +
			`<p>One of two articles that embed the very same illustration file.</p>` +
			`<img src="https://example.com/shared.png">` +
			`</article></body></html>`
	}
	first := testArticle(t, page("First Look"), "https://example.com/first")
	second := testArticle(t, page("Second Look"), "https://example.com/second")
	for _, a := range []*article{first, second} {
		rewriteImgSrc(a.doc, "https://example.com/shared.png", filename)
		a.images = []imageRef{{src: filename, abs: "https://example.com/shared.png", mime: "image/png"}}
	}

	out := filepath.Join(t.TempDir(), "shared.epub")
	cfg := &AppConfig{Merge: out, Export: "epub"}
	if errs := generateEpubs([]*article{first, second}, cfg); len(errs) != 0 {
		t.Fatalf("merged epub with a shared image failed: %v", errs)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("not a valid zip: %v", err)
	}
	defer zr.Close()

	copies := 0
	for _, f := range zr.File {
		if strings.Contains(f.Name, filename) {
			copies++
		}
	}
	if copies != 1 {
		t.Errorf("shared image stored %d times, want 1", copies)
	}
	for _, chapter := range []string{"article_0.xhtml", "article_1.xhtml"} {
		if body := readZipFile(t, zr, chapter); !strings.Contains(body, filename) {
			t.Errorf("%s should reference the shared image", chapter)
		}
	}
}

func TestWriteArticleEpub_Metadata(t *testing.T) {
	page := `<html><head><title>Solo Story</title>` +
		`<meta name="author" content="Jane &amp; Joe">` +
		`<meta property="og:description" content="A short description.">` +
		`</head><body><article>` +
		`<p>A single article exported to its own book with author metadata set.</p>` +
		`</article></body></html>`
	a := testArticle(t, page, "https://example.com/solo")

	dir := t.TempDir()
	cfg := &AppConfig{OutputDirectory: dir, Export: "epub"}
	if errs := generateEpubs([]*article{a}, cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	out := filepath.Join(dir, "Solo Story.epub")
	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("opening %s: %v", out, err)
	}
	defer zr.Close()

	opf := readZipFile(t, zr, ".opf")
	if !strings.Contains(opf, "Solo Story") {
		t.Error("package metadata should carry the title")
	}
	if !strings.Contains(opf, "Jane &amp; Joe") {
		t.Errorf("package metadata should carry the escaped author, got:\n%s", opf)
	}
	if !zipHasFile(zr, "index.xhtml") {
		t.Error("per-article epub should use index.xhtml for its chapter")
	}
}

func TestGenerateEpubs_CollisionSuffix(t *testing.T) {
	page := `<html><head><title>Twin Title</title></head><body><article>` +
		`<p>Both articles share one title and must not overwrite each other.</p>` +
		`</article></body></html>`
	a := testArticle(t, page, "https://example.com/a")
	b := testArticle(t, page, "https://example.com/b")

	dir := t.TempDir()
	cfg := &AppConfig{OutputDirectory: dir, Export: "epub"}
	if errs := generateEpubs([]*article{a, b}, cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if _, err := os.Stat(filepath.Join(dir, "Twin Title.epub")); err != nil {
		t.Errorf("first file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Twin Title_1.epub")); err != nil {
		t.Errorf("suffixed file missing: %v", err)
	}
}

func TestArtifactFileName(t *testing.T) {
	taken := map[string]bool{}
	tests := []struct {
		title string
		want  string
	}{
		{"Plain", "out/Plain.epub"},
		{"Plain", "out/Plain_1.epub"},
		{"a/b\\c", "out/a b c.epub"},
	}
	for _, tt := range tests {
		if got := artifactFileName("out", tt.title, ".epub", taken); got != tt.want {
			t.Errorf("artifactFileName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestBuildAppendix_EscapesEntities(t *testing.T) {
	a := testArticle(t, `<html><head><title>Q&amp;A</title></head><body><article>`+
		`<p>An article whose title carries an ampersand through to the appendix.</p>`+
		`</article></body></html>`, "https://example.com/?a=1&b=2")

	got := buildAppendix([]*article{a})
	if !strings.Contains(got, "https://example.com/?a=1&amp;b=2") {
		t.Errorf("href should be escaped, got %q", got)
	}
	if !strings.Contains(got, "Q&amp;A") {
		t.Errorf("title should be escaped, got %q", got)
	}
}
