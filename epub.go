// EPUB assembly with go-epub. One merged book with a chapter per
// article, or one book per article; both carry the bundled
// stylesheet, the downloaded images and an appendix of article
// sources. Merged books get a generated cover and, on request, an
// inline table of contents page.
package main

import (
	"embed"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	epub "github.com/go-shiori/go-epub"
	"github.com/rs/zerolog/log"
)

//go:embed assets/body.css assets/headers.css
var assetsFS embed.FS

// readAsset returns a bundled stylesheet. The assets are compiled in,
// so failure here is a build defect.
func readAsset(name string) []byte {
	css, err := assetsFS.ReadFile("assets/" + name)
	if err != nil {
		panic(err)
	}
	return css
}

// articleCSS returns the full bundled stylesheet.
func articleCSS() []byte {
	return append(readAsset("body.css"), readAsset("headers.css")...)
}

// epubMetaEscaper covers the markup characters for strings embedded in
// XHTML bodies we assemble by hand. go-epub escapes its own metadata,
// so titles and authors are passed to it raw.
var epubMetaEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// generateEpubs writes the configured EPUB artifacts for the given
// articles and returns one error per article or book that failed.
func generateEpubs(articles []*article, cfg *AppConfig) []error {
	if len(articles) == 0 {
		return nil
	}
	if cfg.Merge != "" {
		if err := writeMergedEpub(articles, cfg); err != nil {
			return []error{err}
		}
		return nil
	}

	var errs []error
	names := map[string]bool{}
	for _, a := range articles {
		fileName := artifactFileName(cfg.OutputDirectory, a.title(), ".epub", names)
		if err := writeArticleEpub(a, fileName, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func writeMergedEpub(articles []*article, cfg *AppConfig) error {
	name := cfg.Merge
	book, err := epub.NewEpub(strings.TrimSuffix(filepath.Base(name), ".epub"))
	if err != nil {
		return epubError(err, name)
	}
	book.SetLang("en")

	cssPath, err := addStylesheet(book)
	if err != nil {
		return epubError(err, name)
	}
	if err := addCover(book, strings.TrimSuffix(filepath.Base(name), ".epub"), len(articles)); err != nil {
		// A missing cover is cosmetic; keep going.
		log.Warn().Err(err).Msg("cover generation failed")
	}

	if cfg.InlineTOC {
		tocBody := buildInlineTOC(articles)
		if _, err := book.AddSection(tocBody, "Table of Contents", "toc.xhtml", cssPath); err != nil {
			return epubError(err, name)
		}
	}

	addedImages := map[string]string{}
	for idx, a := range articles {
		contentURL := fmt.Sprintf("article_%d.xhtml", idx)
		if err := addArticleChapter(book, a, contentURL, cssPath, addedImages); err != nil {
			return epubError(err, a.requested)
		}
	}

	appendix := buildAppendix(articles)
	if _, err := book.AddSection(appendix, "Article Sources", "appendix.xhtml", cssPath); err != nil {
		return epubError(err, name)
	}

	if err := book.Write(name); err != nil {
		return epubError(err, name)
	}
	log.Info().Str("file", name).Int("articles", len(articles)).Msg("created epub")
	return nil
}

func writeArticleEpub(a *article, fileName string, cfg *AppConfig) error {
	book, err := epub.NewEpub(a.title())
	if err != nil {
		return epubError(err, a.requested)
	}
	book.SetLang("en")
	if a.meta.Byline != "" {
		book.SetAuthor(a.meta.Byline)
	}
	if a.meta.Excerpt != "" {
		book.SetDescription(a.meta.Excerpt)
	}

	cssPath, err := addStylesheet(book)
	if err != nil {
		return epubError(err, a.requested)
	}
	if err := addArticleChapter(book, a, "index.xhtml", cssPath, map[string]string{}); err != nil {
		return epubError(err, a.requested)
	}
	appendix := buildAppendix([]*article{a})
	if _, err := book.AddSection(appendix, "Article Source", "appendix.xhtml", cssPath); err != nil {
		return epubError(err, a.requested)
	}
	if err := book.Write(fileName); err != nil {
		return epubError(err, a.requested)
	}
	log.Info().Str("file", fileName).Msg("created epub")
	return nil
}

// addArticleChapter registers the article's images, points the DOM at
// their in-book locations and adds the serialized body as a section.
// addedImages maps content-addressed filenames to in-book paths, so an
// image shared between chapters is stored once and reused.
func addArticleChapter(book *epub.Epub, a *article, contentURL, cssPath string, addedImages map[string]string) error {
	for _, img := range a.images {
		internal, ok := addedImages[img.src]
		if !ok {
			var err error
			internal, err = book.AddImage(imagePath(img.src), img.src)
			if err != nil {
				return err
			}
			addedImages[img.src] = internal
		}
		rewriteImgSrc(a.doc, img.src, internal)
	}
	body := serializeXHTML(a.root)
	_, err := book.AddSection(body, a.title(), contentURL, cssPath)
	return err
}

// addStylesheet bundles the article CSS, passed to go-epub as a data
// URI.
func addStylesheet(book *epub.Epub) (string, error) {
	dataURI := "data:text/css;base64," + base64.StdEncoding.EncodeToString(articleCSS())
	return book.AddCSS(dataURI, "stylesheet.css")
}

// addCover generates the deterministic cover image and installs it.
func addCover(book *epub.Epub, title string, articleCount int) error {
	png, err := generateCover(title, articleCount)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp("", "paperoni-cover-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	internal, err := book.AddImage(tmp.Name(), "cover.png")
	if err != nil {
		return err
	}
	return book.SetCover(internal, "")
}

// buildInlineTOC renders a nested list of every article and its
// headings, linking into the chapter files by fragment.
func buildInlineTOC(articles []*article) string {
	var sb strings.Builder
	sb.WriteString("<h1>Table of Contents</h1>\n<ol class=\"toc\">\n")
	for idx, a := range articles {
		contentURL := fmt.Sprintf("article_%d.xhtml", idx)
		sb.WriteString("<li>\n")
		fmt.Fprintf(&sb, `<a href="%s">%s</a>`, contentURL, epubMetaEscaper.Replace(a.title()))
		sb.WriteByte('\n')
		writeTOCEntries(&sb, contentURL, headingTOC(a.doc))
		sb.WriteString("</li>\n")
	}
	sb.WriteString("</ol>\n")
	return sb.String()
}

func writeTOCEntries(sb *strings.Builder, contentURL string, entries []*tocEntry) {
	if len(entries) == 0 {
		return
	}
	sb.WriteString("<ol>\n")
	for _, e := range entries {
		sb.WriteString("<li>")
		fmt.Fprintf(sb, `<a href="%s#%s">%s</a>`, contentURL, e.id, epubMetaEscaper.Replace(e.title))
		writeTOCEntries(sb, contentURL, e.children)
		sb.WriteString("</li>\n")
	}
	sb.WriteString("</ol>\n")
}

// buildAppendix lists the source URL of every article.
func buildAppendix(articles []*article) string {
	var sb strings.Builder
	sb.WriteString("<h2>Appendix</h2><h3>Article sources</h3>\n")
	for _, a := range articles {
		name := a.title()
		fmt.Fprintf(&sb, "<a href=\"%s\">%s</a><br/>\n",
			epubMetaEscaper.Replace(a.sourceURL.String()), epubMetaEscaper.Replace(name))
	}
	return sb.String()
}

// artifactFileName builds an output path from an article title,
// suffixing duplicates so parallel titles never overwrite each other.
func artifactFileName(dir, title, ext string, taken map[string]bool) string {
	if dir == "" {
		dir = "."
	}
	base := strings.NewReplacer("/", " ", "\\", " ").Replace(title)
	name := filepath.Join(dir, base+ext)
	if taken[name] {
		name = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, len(taken), ext))
	}
	taken[name] = true
	return name
}

func epubError(err error, source string) error {
	e := wrapError(KindEpub, err)
	e.ArticleSource = source
	return e
}
