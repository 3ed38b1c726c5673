// paperoni downloads web articles, extracts their readable content and
// saves them as epub, html or markdown files.
//
//	paperoni https://example.com/article
//	paperoni -f urls.txt --merge weekend-reading --export epub --inline-toc
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := &AppConfig{}
	kong.Parse(cfg,
		kong.Name("paperoni"),
		kong.Description("An article downloader. It takes URLs, extracts their article content and saves them as epub, html or markdown."),
		kong.UsageOnError(),
	)
	if err := cfg.finish(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	urls, err := cfg.collectURLs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	closer, err := initLogging(cfg.Verbose, cfg.LogToFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	code := run(cfg, urls)
	if closer != nil {
		closer.Close()
	}
	os.Exit(code)
}

// run executes the batch and returns the process exit code: 0 on full
// success, 1 when any article failed or was only partially downloaded.
func run(cfg *AppConfig, urls []string) int {
	ctx := context.Background()
	client := newBrowserClient(requestTimeout)

	var articles []*article
	var errs []error
	for _, res := range fetchArticles(ctx, client, urls, cfg.MaxConn) {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		a, err := extractArticle(res.Body, res.FinalURL, res.URL)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		downloadImages(ctx, client, a)
		articles = append(articles, a)
	}
	log.Info().Int("articles", len(articles)).Int("failed", len(errs)).Msg("extraction finished")

	switch cfg.Export {
	case "html":
		errs = append(errs, generateHTMLExports(articles, cfg)...)
	case "md":
		errs = append(errs, generateMarkdownExports(articles, cfg)...)
	default:
		errs = append(errs, generateEpubs(articles, cfg)...)
	}

	displaySummary(len(urls), articles, cfg.Merge != "", errs)

	if len(errs) > 0 {
		return 1
	}
	for _, a := range articles {
		if len(a.imgErrs) > 0 {
			return 1
		}
	}
	return 0
}
