package readability

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Metadata is the structured record extracted alongside the article
// body.
type Metadata struct {
	Title    string
	Byline   string
	Dir      string
	Excerpt  string
	SiteName string
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// getArticleTitle derives a display title from the <title> element,
// trimming site-name decorations around separator characters and
// falling back to a lone <h1> when the title looks implausible.
func (p *parser) getArticleTitle(doc *html.Node) string {
	origTitle := ""
	if t := findFirst(doc, "title"); t != nil {
		origTitle = innerText(t, true)
	}
	curTitle := origTitle
	hierarchical := false

	if titleSepRe.MatchString(curTitle) {
		hierarchical = titleHierarchicalSepRe.MatchString(curTitle)
		curTitle = titleCutEndRe.ReplaceAllString(origTitle, "$1")
		if wordCount(curTitle) < 3 {
			curTitle = titleCutStartRe.ReplaceAllString(origTitle, "$1")
		}
	} else if strings.Contains(curTitle, ": ") {
		matched := false
		for _, h := range getElementsByTag(doc, "h1", "h2") {
			if innerText(h, true) == strings.TrimSpace(curTitle) {
				matched = true
				break
			}
		}
		if !matched {
			idx := strings.LastIndex(origTitle, ":")
			curTitle = strings.TrimSpace(origTitle[idx+1:])
			if wordCount(curTitle) < 3 {
				idx = strings.Index(origTitle, ":")
				curTitle = strings.TrimSpace(origTitle[idx+1:])
			} else if wordCount(strings.TrimSpace(origTitle[:strings.Index(origTitle, ":")])) > 5 {
				curTitle = origTitle
			}
		}
	} else if len(curTitle) > 150 || len(curTitle) < 15 {
		h1s := getElementsByTag(doc, "h1")
		if len(h1s) == 1 {
			curTitle = innerText(h1s[0], true)
		}
	}

	curTitle = normalizeWsRe.ReplaceAllString(strings.TrimSpace(curTitle), " ")

	// A very short result usually means we cut away the real title
	// rather than the site name.
	if wordCount(curTitle) <= 4 {
		stripped := wordCount(titleAnySepRe.ReplaceAllString(origTitle, "")) - 1
		if !hierarchical || wordCount(curTitle) != stripped {
			curTitle = origTitle
		}
	}
	return curTitle
}

// normalizeMetaKey lowercases a meta name, removes whitespace and
// canonicalizes "dc.title" style dots to colons.
func normalizeMetaKey(s string) string {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "")
	return strings.ReplaceAll(s, ".", ":")
}

// getArticleMetadata reads the document's <meta> tags, preferring
// Dublin Core over Open Graph over Twitter card values, and fills in
// the title from the <title> heuristics when no tag supplies one.
func (p *parser) getArticleMetadata(doc *html.Node) Metadata {
	values := map[string]string{}
	for _, meta := range getElementsByTag(doc, "meta") {
		content := getAttr(meta, "content")
		if content == "" {
			continue
		}
		if prop := getAttr(meta, "property"); prop != "" {
			if m := metaPropertyRe.FindString(prop); m != "" {
				values[normalizeMetaKey(m)] = content
			}
		}
		if name := getAttr(meta, "name"); name != "" && metaNameRe.MatchString(name) {
			values[normalizeMetaKey(name)] = content
		}
	}

	pick := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := values[k]; ok {
				return v
			}
		}
		return ""
	}

	md := Metadata{}
	md.Title = pick("dc:title", "dcterm:title", "og:title",
		"weibo:article:title", "weibo:webpage:title", "title", "twitter:title")
	if md.Title == "" {
		md.Title = p.getArticleTitle(doc)
	}
	md.Byline = pick("dc:creator", "dcterm:creator", "author")
	md.Excerpt = pick("dc:description", "dcterm:description", "og:description",
		"weibo:article:description", "weibo:webpage:description",
		"description", "twitter:description")
	md.SiteName = pick("og:site_name")

	md.Title = unescapeHTMLEntities(md.Title)
	md.Byline = unescapeHTMLEntities(md.Byline)
	md.Excerpt = unescapeHTMLEntities(md.Excerpt)
	md.SiteName = unescapeHTMLEntities(md.SiteName)
	return md
}

// unescapeHTMLEntities resolves the five named escapes plus numeric
// character references in metadata strings.
func unescapeHTMLEntities(s string) string {
	if s == "" {
		return s
	}
	s = htmlEscapeRe.ReplaceAllStringFunc(s, func(m string) string {
		switch m {
		case "&quot;":
			return `"`
		case "&amp;":
			return "&"
		case "&apos;":
			return "'"
		case "&lt;":
			return "<"
		case "&gt;":
			return ">"
		}
		return m
	})
	s = hexEntityRe.ReplaceAllStringFunc(s, func(m string) string {
		groups := hexEntityRe.FindStringSubmatch(m)
		var code uint64
		var err error
		if groups[1] != "" {
			code, err = strconv.ParseUint(groups[1], 16, 32)
		} else {
			code, err = strconv.ParseUint(groups[2], 10, 32)
		}
		if err != nil {
			return m
		}
		return string(rune(code))
	})
	return s
}

// isValidByline bounds a candidate byline to a sane length.
func isValidByline(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > 0 && len(s) < 100
}

// checkByline records the first element that looks like an author
// credit. matchString is the element's class and id concatenated; the
// substring match across that boundary is deliberate.
func (p *parser) checkByline(n *html.Node, matchString string) bool {
	if p.metadata.Byline != "" {
		return false
	}
	rel := getAttr(n, "rel")
	itemprop := getAttr(n, "itemprop")
	if rel == "author" || strings.Contains(itemprop, "author") || bylineRe.MatchString(matchString) {
		text := innerText(n, true)
		if isValidByline(text) {
			p.metadata.Byline = strings.TrimSpace(text)
			return true
		}
	}
	return false
}
