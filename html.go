// HTML export. Articles are wrapped in a minimal document shell with
// the bundled CSS inlined in a <style> element, a <title> and a
// <footer> appendix of sources. Images are either embedded as base64
// data URLs or copied into a directory next to the output file.
package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const htmlShell = `<!DOCTYPE html><html><head><meta charset="UTF-8"/></head><body></body></html>`

// generateHTMLExports writes the configured HTML artifacts and returns
// one error per article or file that failed.
func generateHTMLExports(articles []*article, cfg *AppConfig) []error {
	if len(articles) == 0 {
		return nil
	}
	if cfg.Merge != "" {
		return writeMergedHTML(articles, cfg)
	}

	var errs []error
	names := map[string]bool{}
	for _, a := range articles {
		fileName := artifactFileName(cfg.OutputDirectory, a.title(), ".html", names)
		if err := writeArticleHTML(a, fileName, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func writeMergedHTML(articles []*article, cfg *AppConfig) []error {
	name := cfg.Merge
	imgsDir := strings.TrimSuffix(filepath.Base(name), ".html")

	var errs []error
	if !cfg.InlineImages {
		if err := ensureImgsDir(filepath.Join(filepath.Dir(name), imgsDir)); err != nil {
			return []error{htmlError(err, name)}
		}
	}

	doc, head, body := newDocumentShell()
	for idx, a := range articles {
		setNodeAttr(a.root, "id", fmt.Sprintf("readability-page-%d", idx))
		if err := placeImages(a, cfg, filepath.Dir(name), imgsDir); err != nil {
			errs = append(errs, htmlError(err, a.requested))
		}
		detachNode(a.root)
		body.AppendChild(a.root)
	}

	addTitleElem(head, strings.TrimSuffix(filepath.Base(name), ".html"))
	body.AppendChild(buildFooterAppendix(articles))
	addInlineStyle(head, cfg)

	if err := renderToFile(doc, name); err != nil {
		errs = append(errs, htmlError(err, name))
		return errs
	}
	log.Info().Str("file", name).Int("articles", len(articles)).Msg("created html file")
	return errs
}

func writeArticleHTML(a *article, fileName string, cfg *AppConfig) error {
	imgsDir := strings.TrimSuffix(filepath.Base(fileName), ".html")
	if !cfg.InlineImages && len(a.images) > 0 {
		if err := ensureImgsDir(filepath.Join(filepath.Dir(fileName), imgsDir)); err != nil {
			return htmlError(err, a.requested)
		}
	}
	if err := placeImages(a, cfg, filepath.Dir(fileName), imgsDir); err != nil {
		return htmlError(err, a.requested)
	}

	doc, head, body := newDocumentShell()
	detachNode(a.root)
	body.AppendChild(a.root)
	addTitleElem(head, a.title())
	body.AppendChild(buildFooterAppendix([]*article{a}))
	addInlineStyle(head, cfg)

	if err := renderToFile(doc, fileName); err != nil {
		return htmlError(err, a.requested)
	}
	log.Info().Str("file", fileName).Msg("created html file")
	return nil
}

// placeImages points the article's img elements at their final
// location: base64 data URLs with --inline-images, otherwise copies in
// an images directory next to the output file.
func placeImages(a *article, cfg *AppConfig, outDir, imgsDir string) error {
	if cfg.InlineImages {
		return inlineImages(a)
	}
	return copyImages(a, outDir, imgsDir)
}

// inlineImages replaces each downloaded image's src with a base64 data
// URL of its bytes.
func inlineImages(a *article) error {
	for _, img := range a.images {
		data, err := os.ReadFile(imagePath(img.src))
		if err != nil {
			return err
		}
		mimeType := img.mime
		if mimeType == "" {
			mimeType = "image/*"
		}
		dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
		rewriteImgSrc(a.doc, img.src, dataURL)
	}
	return nil
}

// copyImages moves the downloaded images out of the temp dir into
// imgsDir under outDir and rewrites each src to the path relative to
// the output file.
func copyImages(a *article, outDir, imgsDir string) error {
	for _, img := range a.images {
		data, err := os.ReadFile(imagePath(img.src))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(outDir, imgsDir, img.src), data, 0o644); err != nil {
			return err
		}
		rewriteImgSrc(a.doc, img.src, path.Join(imgsDir, img.src))
	}
	return nil
}

func ensureImgsDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	log.Info().Str("dir", dir).Msg("creating images directory")
	return os.Mkdir(dir, 0o755)
}

// newDocumentShell parses the empty document template and returns the
// document node with its head and body.
func newDocumentShell() (doc, head, body *html.Node) {
	doc, err := html.Parse(strings.NewReader(htmlShell))
	if err != nil {
		// The template is a constant; failure here is a build defect.
		panic(err)
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.DataAtom {
		case atom.Head:
			head = n
		case atom.Body:
			body = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return doc, head, body
}

func newHTMLElem(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func newTextNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func detachNode(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func setNodeAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// addTitleElem appends a <title> with the given text to head.
func addTitleElem(head *html.Node, title string) {
	t := newHTMLElem(atom.Title)
	t.AppendChild(newTextNode(title))
	head.AppendChild(t)
}

// addInlineStyle prepends a <style> element with the bundled CSS,
// honoring the style toggles.
func addInlineStyle(head *html.Node, cfg *AppConfig) {
	if cfg.NoCSS {
		return
	}
	css := readAsset("body.css")
	if !cfg.NoHeaderCSS {
		css = append(css, readAsset("headers.css")...)
	}
	style := newHTMLElem(atom.Style)
	style.AppendChild(newTextNode(string(css)))
	head.InsertBefore(style, head.FirstChild)
}

// buildFooterAppendix lists every article source in a <footer>.
func buildFooterAppendix(articles []*article) *html.Node {
	footer := newHTMLElem(atom.Footer)
	h2 := newHTMLElem(atom.H2)
	h2.AppendChild(newTextNode("Appendix"))
	footer.AppendChild(h2)
	h3 := newHTMLElem(atom.H3)
	h3.AppendChild(newTextNode("Article sources"))
	footer.AppendChild(h3)

	for _, a := range articles {
		link := newHTMLElem(atom.A)
		setNodeAttr(link, "href", a.sourceURL.String())
		link.AppendChild(newTextNode(a.title()))
		footer.AppendChild(link)
		footer.AppendChild(newHTMLElem(atom.Br))
	}
	return footer
}

func renderToFile(doc *html.Node, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := html.Render(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func htmlError(err error, source string) error {
	e := wrapError(KindIO, err)
	e.ArticleSource = source
	return e
}
