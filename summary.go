// End-of-run summary: a colored one-line count, a table of the
// articles that made it into an artifact and a table of failures.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

type downloadCount struct {
	total      int
	successful int
	partial    int
	failed     int
}

// tallyCounts folds the batch outcome into summary counts. An article
// whose writer failed counts as failed even when it also lost images,
// so no article is counted twice.
func tallyCounts(total int, articles []*article, errs []error) downloadCount {
	failedSources := map[string]bool{}
	for _, err := range errs {
		var e *Error
		if errors.As(err, &e) && e.ArticleSource != "" {
			failedSources[e.ArticleSource] = true
		}
	}
	partial := 0
	for _, a := range articles {
		if len(a.imgErrs) > 0 && !failedSources[a.requested] {
			partial++
		}
	}
	return downloadCount{
		total:      total,
		successful: total - partial - len(errs),
		partial:    partial,
		failed:     len(errs),
	}
}

// displaySummary prints the batch outcome. articles are the ones that
// reached a writer; partial counts those with failed image downloads.
func displaySummary(total int, articles []*article, merged bool, errs []error) {
	counts := tallyCounts(total, articles, errs)
	fmt.Println(shortSummary(counts))

	if counts.successful > 0 || counts.partial > 0 {
		header := "Downloaded articles"
		if merged {
			header = "Table of Contents"
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header(header)
		for _, a := range articles {
			table.Append([]string{a.title()})
		}
		table.Render()
	}

	if len(errs) > 0 {
		fmt.Println()
		fmt.Println(color.New(color.FgHiRed, color.Bold).Sprint("Failed article downloads"))
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Link", "Reason")
		for _, err := range errs {
			source := "<unknown link>"
			reason := err.Error()
			var e *Error
			if errors.As(err, &e) {
				if e.ArticleSource != "" {
					source = e.ArticleSource
				}
				reason = e.Kind.String()
			}
			table.Append([]string{source, reason})
			log.Error().Str("source", source).Msg(err.Error())
		}
		table.Render()
	}
}

// shortSummary words the one-line outcome. Singular phrasing for
// single-article runs, exact counts for mixed outcomes.
func shortSummary(c downloadCount) string {
	if c.total != c.successful+c.partial+c.failed {
		panic("summary counts must add up to the article total")
	}
	green := color.New(color.FgGreen, color.Bold).Sprint
	red := color.New(color.FgRed, color.Bold).Sprint
	yellow := color.New(color.FgYellow, color.Bold).Sprint

	noun := func(count int) string {
		if count == 1 {
			return "article"
		}
		return "articles"
	}

	switch {
	case c.successful == c.total && c.successful == 1:
		return green("Article downloaded successfully")
	case c.failed == c.total && c.failed == 1:
		return red("Article failed to download")
	case c.partial == c.total && c.partial == 1:
		return yellow("Article partially failed to download")
	case c.successful == c.total:
		return green("All articles downloaded successfully")
	case c.failed == c.total:
		return red("All articles failed to download")
	case c.partial == c.total:
		return yellow("All articles partially failed to download")
	case c.partial == 0:
		return yellow(fmt.Sprintf("%d %s downloaded successfully, %d %s failed",
			c.successful, noun(c.successful), c.failed, noun(c.failed)))
	case c.successful == 0 && c.failed > 0:
		return yellow(fmt.Sprintf("%d %s partially failed to download, %d %s failed",
			c.partial, noun(c.partial), c.failed, noun(c.failed)))
	case c.failed == 0:
		return yellow(fmt.Sprintf("%d %s downloaded successfully, %d %s partially failed to download",
			c.successful, noun(c.successful), c.partial, noun(c.partial)))
	default:
		return yellow(fmt.Sprintf("%d %s downloaded successfully, %d %s partially failed to download, %d %s failed",
			c.successful, noun(c.successful), c.partial, noun(c.partial), c.failed, noun(c.failed)))
	}
}
