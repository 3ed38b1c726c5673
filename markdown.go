// Markdown export: converts extracted articles to CommonMark.
package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/dom"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

var (
	mdConverter     *converter.Converter
	mdConverterOnce sync.Once
)

// getMarkdownConverter returns a shared converter that keeps local
// image filenames as-is and replaces data URI images with alt-text
// placeholders.
func getMarkdownConverter() *converter.Converter {
	mdConverterOnce.Do(func() {
		mdConverter = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
		// PriorityEarly (100) runs before the commonmark plugin
		// (PriorityStandard 500).
		mdConverter.Register.RendererFor("img", converter.TagTypeInline,
			func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
				src := dom.GetAttributeOr(n, "src", "")
				if !strings.HasPrefix(src, "data:") {
					// Local filename or URL, the default handler
					// renders it.
					return converter.RenderTryNext
				}
				alt := strings.TrimSpace(dom.GetAttributeOr(n, "alt", ""))
				if alt != "" {
					w.WriteString("[Image: " + alt + "]")
				}
				return converter.RenderSuccess
			},
			converter.PriorityEarly,
		)
	})
	return mdConverter
}

// articleMarkdown converts one article body, prefixed with its title as
// a level-one heading and suffixed with its source link.
func articleMarkdown(a *article) (string, error) {
	md, err := getMarkdownConverter().ConvertNode(a.root)
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", a.title())
	sb.Write(md)
	fmt.Fprintf(&sb, "\n\nSource: <%s>\n", a.sourceURL.String())
	return sb.String(), nil
}

// generateMarkdownExports writes the configured Markdown artifacts:
// one merged file with articles joined by horizontal rules, or one
// file per article.
func generateMarkdownExports(articles []*article, cfg *AppConfig) []error {
	if len(articles) == 0 {
		return nil
	}
	if cfg.Merge != "" {
		var parts []string
		var errs []error
		for _, a := range articles {
			md, err := articleMarkdown(a)
			if err != nil {
				errs = append(errs, mdError(err, a.requested))
				continue
			}
			parts = append(parts, strings.TrimSpace(md))
		}
		joined := strings.Join(parts, "\n\n---\n\n") + "\n"
		if err := os.WriteFile(cfg.Merge, []byte(joined), 0o644); err != nil {
			errs = append(errs, mdError(err, cfg.Merge))
			return errs
		}
		log.Info().Str("file", cfg.Merge).Int("articles", len(parts)).Msg("created markdown file")
		return errs
	}

	var errs []error
	names := map[string]bool{}
	for _, a := range articles {
		fileName := artifactFileName(cfg.OutputDirectory, a.title(), ".md", names)
		md, err := articleMarkdown(a)
		if err != nil {
			errs = append(errs, mdError(err, a.requested))
			continue
		}
		if err := os.WriteFile(fileName, []byte(md), 0o644); err != nil {
			errs = append(errs, mdError(err, a.requested))
			continue
		}
		log.Info().Str("file", fileName).Msg("created markdown file")
	}
	return errs
}

func mdError(err error, source string) error {
	e := wrapError(KindIO, err)
	e.ArticleSource = source
	return e
}
