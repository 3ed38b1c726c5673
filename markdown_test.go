package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArticleMarkdown_Basic(t *testing.T) {
	pageHTML := `<html><head><title>Markdown Basics</title></head><body><article>` +
		`<p>A paragraph about converting articles to markdown with enough words to matter.</p>` +
		`<h2>Section</h2>` +
		`<p>See <a href="https://example.com/more">the docs</a> for details on this topic.</p>` +
		`<blockquote><p>A famous quote.</p></blockquote>` +
		`</article></body></html>`
	a := testArticle(t, pageHTML, "https://example.com/md")

	md, err := articleMarkdown(a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(md, "# Markdown Basics\n") {
		t.Errorf("expected title heading first, got:\n%s", md)
	}
	if !strings.Contains(md, "## Section") {
		t.Errorf("expected ## Section in:\n%s", md)
	}
	if !strings.Contains(md, "[the docs](https://example.com/more)") {
		t.Errorf("expected markdown link in:\n%s", md)
	}
	if !strings.Contains(md, ">") {
		t.Errorf("expected blockquote syntax in:\n%s", md)
	}
	if !strings.Contains(md, "Source: <https://example.com/md>") {
		t.Errorf("expected source link in:\n%s", md)
	}
}

func TestMarkdownConverter_LocalImageFilenames(t *testing.T) {
	md, err := getMarkdownConverter().ConvertString(
		`<p>text</p><img src="0123abcd.png" alt="A photo">`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "![A photo](0123abcd.png)") {
		t.Errorf("expected local filename kept, got:\n%s", md)
	}
}

func TestMarkdownConverter_DataURIPlaceholder(t *testing.T) {
	md, err := getMarkdownConverter().ConvertString(
		`<p>before</p><img src="data:image/png;base64,AAAA" alt="a diagram"><p>after</p>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(md, "data:") {
		t.Errorf("data URI should be stripped, got:\n%s", md)
	}
	if !strings.Contains(md, "[Image: a diagram]") {
		t.Errorf("expected alt-text placeholder, got:\n%s", md)
	}
}

func TestMarkdownConverter_DataURINoAlt(t *testing.T) {
	md, err := getMarkdownConverter().ConvertString(
		`<p>before</p><img src="data:image/png;base64,AAAA"><p>after</p>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(md, "data:") || strings.Contains(md, "[Image:") {
		t.Errorf("expected image dropped silently, got:\n%s", md)
	}
	if !strings.Contains(md, "before") || !strings.Contains(md, "after") {
		t.Errorf("surrounding text should be preserved, got:\n%s", md)
	}
}

func TestGenerateMarkdownExports_Merged(t *testing.T) {
	first := testArticle(t, `<html><head><title>First Post</title></head><body><article>`+
		`<p>Opening article content for the merged markdown output file test run.</p>`+
		`</article></body></html>`, "https://example.com/one")
	second := testArticle(t, `<html><head><title>Second Post</title></head><body><article>`+
		`<p>Closing article content for the merged markdown output file test run.</p>`+
		`</article></body></html>`, "https://example.com/two")

	out := filepath.Join(t.TempDir(), "reading.md")
	cfg := &AppConfig{Merge: out, Export: "md"}
	if errs := generateMarkdownExports([]*article{first, second}, cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)
	if !strings.Contains(md, "# First Post") || !strings.Contains(md, "# Second Post") {
		t.Errorf("expected both article headings, got:\n%s", md)
	}
	if !strings.Contains(md, "\n\n---\n\n") {
		t.Errorf("expected horizontal rule separator, got:\n%s", md)
	}
	if strings.Index(md, "First Post") > strings.Index(md, "Second Post") {
		t.Error("articles should keep input order")
	}
}

func TestGenerateMarkdownExports_PerArticleCollision(t *testing.T) {
	page := `<html><head><title>Same Title</title></head><body><article>` +
		`<p>Two distinct articles that happen to share the exact same title text.</p>` +
		`</article></body></html>`
	a := testArticle(t, page, "https://example.com/a")
	b := testArticle(t, page, "https://example.com/b")

	dir := t.TempDir()
	cfg := &AppConfig{OutputDirectory: dir, Export: "md"}
	if errs := generateMarkdownExports([]*article{a, b}, cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if _, err := os.Stat(filepath.Join(dir, "Same Title.md")); err != nil {
		t.Errorf("first file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Same Title_1.md")); err != nil {
		t.Errorf("collision-suffixed file missing: %v", err)
	}
}
