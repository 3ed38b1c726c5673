// Command-line surface. Flags are declared on AppConfig for kong;
// cross-flag rules that tags cannot express live in finish.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the parsed command line.
type AppConfig struct {
	URLs            []string `arg:"" optional:"" name:"urls" help:"URLs of web articles."`
	File            string   `short:"f" placeholder:"PATH" help:"File of newline separated article URLs."`
	OutputDirectory string   `short:"o" placeholder:"DIR" help:"Directory to store output files in."`
	Merge           string   `placeholder:"NAME" help:"Merge all articles into one file with the given name. The extension of the export format is appended when missing."`
	Export          string   `default:"epub" enum:"epub,html,md" help:"Output format (epub, html or md)."`
	MaxConn         int      `default:"8" help:"Maximum number of concurrent HTTP connections."`
	InlineTOC       bool     `name:"inline-toc" help:"Add an inlined Table of Contents page. Only applies to the epub format."`
	InlineImages    bool     `help:"Embed images as base64 data URLs. Only applies to the html format."`
	NoCSS           bool     `name:"no-css" help:"Drop the bundled stylesheet from html output."`
	NoHeaderCSS     bool     `name:"no-header-css" help:"Drop the heading styles from html output."`
	Verbose         int      `short:"v" type:"counter" help:"Log verbosity, repeat up to four times."`
	LogToFile       bool     `help:"Write logs to a timestamped file under ~/.paperoni/logs/."`
}

// exportExt returns the artifact extension for the selected format.
func (c *AppConfig) exportExt() string {
	switch c.Export {
	case "html":
		return ".html"
	case "md":
		return ".md"
	}
	return ".epub"
}

// finish validates the rules kong tags cannot express and normalizes
// the merge file name.
func (c *AppConfig) finish() error {
	if c.MaxConn < 1 {
		return &CliError{Message: "--max-conn must be a positive integer"}
	}
	if c.Merge != "" && c.OutputDirectory != "" {
		return &CliError{Message: "--merge and --output-directory cannot be used together"}
	}
	if c.OutputDirectory != "" {
		info, err := os.Stat(c.OutputDirectory)
		if err != nil {
			return &CliError{Message: fmt.Sprintf("output directory %q does not exist", c.OutputDirectory)}
		}
		if !info.IsDir() {
			return &CliError{Message: fmt.Sprintf("%q is not a directory", c.OutputDirectory)}
		}
	}
	if c.InlineTOC && c.Export != "epub" {
		return &CliError{Message: "--inline-toc can only be used with the epub format"}
	}
	if c.InlineImages && c.Export != "html" {
		return &CliError{Message: "--inline-images can only be used with the html format"}
	}
	if c.NoCSS && c.NoHeaderCSS {
		return &CliError{Message: "--no-css and --no-header-css cannot be used together"}
	}
	if c.Merge != "" && !strings.HasSuffix(c.Merge, c.exportExt()) {
		c.Merge += c.exportExt()
	}
	return nil
}

// collectURLs merges the positional URLs with the contents of --file,
// skipping blank lines and comments.
func (c *AppConfig) collectURLs() ([]string, error) {
	urls := append([]string(nil), c.URLs...)
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return nil, &CliError{Message: fmt.Sprintf("unable to read URL file: %v", err)}
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, &CliError{Message: fmt.Sprintf("unable to read URL file: %v", err)}
		}
	}
	if len(urls) == 0 {
		return nil, &CliError{Message: "No URLs to download"}
	}
	return urls, nil
}
