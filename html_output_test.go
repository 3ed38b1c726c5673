package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteMergedHTML(t *testing.T) {
	articles := mergedTestArticles(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "bundle.html")
	cfg := &AppConfig{Merge: out, Export: "html"}

	if errs := generateHTMLExports(articles, cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)

	if !strings.Contains(got, `id="readability-page-0"`) || !strings.Contains(got, `id="readability-page-1"`) {
		t.Error("each article should be re-identified by its index")
	}
	if !strings.Contains(got, "<title>bundle</title>") {
		t.Error("expected a title element named after the output file")
	}
	if !strings.Contains(got, "<style>") {
		t.Error("expected inlined CSS")
	}
	if !strings.Contains(got, "<footer>") || !strings.Contains(got, "Article sources") {
		t.Error("expected a footer appendix")
	}
	if !strings.Contains(got, "https://example.com/offline") {
		t.Error("appendix should link article sources")
	}

	if _, err := os.Stat(filepath.Join(dir, "bundle")); err != nil {
		t.Errorf("images directory should still be created: %v", err)
	}
}

func TestWriteArticleHTML_StyleToggles(t *testing.T) {
	page := `<html><head><title>Styled</title></head><body><article>` +
		`<p>An article used to verify the stylesheet toggles on html output.</p>` +
		`</article></body></html>`

	t.Run("no-css", func(t *testing.T) {
		a := testArticle(t, page, "https://example.com/styled")
		dir := t.TempDir()
		cfg := &AppConfig{OutputDirectory: dir, Export: "html", NoCSS: true}
		if errs := generateHTMLExports([]*article{a}, cfg); len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		data, err := os.ReadFile(filepath.Join(dir, "Styled.html"))
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "<style>") {
			t.Error("no-css output should carry no style element")
		}
	})

	t.Run("no-header-css", func(t *testing.T) {
		a := testArticle(t, page, "https://example.com/styled")
		dir := t.TempDir()
		cfg := &AppConfig{OutputDirectory: dir, Export: "html", NoHeaderCSS: true}
		if errs := generateHTMLExports([]*article{a}, cfg); len(errs) != 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		data, err := os.ReadFile(filepath.Join(dir, "Styled.html"))
		if err != nil {
			t.Fatal(err)
		}
		got := string(data)
		if !strings.Contains(got, "<style>") {
			t.Error("body styles should still be inlined")
		}
		if strings.Contains(got, "h1, h2, h3, h4") {
			t.Error("heading styles should be dropped")
		}
	})
}

func TestWriteArticleHTML_InlineImages(t *testing.T) {
	// Stage a downloaded image the way the pipeline would.
	filename := hashURL("https://example.com/pic.png") + ".png"
	if err := os.WriteFile(imagePath(filename), pngBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	page := `<html><head><title>Pictures</title></head><body><article>` +
		`<p>An article with one image that the export should embed inline as base64.</p>` +
		`<img src="https://example.com/pic.png">` +
		`</article></body></html>`
	a := testArticle(t, page, "https://example.com/pictures")

	// Simulate the post-download manifest state.
	rewriteImgSrc(a.doc, "https://example.com/pic.png", filename)
	a.images = []imageRef{{src: filename, abs: "https://example.com/pic.png", mime: "image/png"}}

	dir := t.TempDir()
	cfg := &AppConfig{OutputDirectory: dir, Export: "html", InlineImages: true}
	if errs := generateHTMLExports([]*article{a}, cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Pictures.html"))
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "data:image/png;base64,") {
		t.Error("expected a base64 data URL for the image")
	}
	if strings.Contains(got, `src="`+filename+`"`) {
		t.Error("local filename should have been replaced")
	}
}

func TestWriteArticleHTML_CopiesImages(t *testing.T) {
	filename := hashURL("https://example.com/copy.png") + ".png"
	if err := os.WriteFile(imagePath(filename), pngBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	page := `<html><head><title>Copied</title></head><body><article>` +
		`<p>An article with one image that the export should copy next to the file.</p>` +
		`<img src="https://example.com/copy.png">` +
		`</article></body></html>`
	a := testArticle(t, page, "https://example.com/copied")
	rewriteImgSrc(a.doc, "https://example.com/copy.png", filename)
	a.images = []imageRef{{src: filename, abs: "https://example.com/copy.png", mime: "image/png"}}

	dir := t.TempDir()
	cfg := &AppConfig{OutputDirectory: dir, Export: "html"}
	if errs := generateHTMLExports([]*article{a}, cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	copied := filepath.Join(dir, "Copied", filename)
	if _, err := os.Stat(copied); err != nil {
		t.Errorf("image not copied to %s: %v", copied, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "Copied.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `src="Copied/`+filename+`"`) {
		t.Error("img src should point into the images directory")
	}
}
