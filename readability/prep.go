package readability

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var presentationalAttrs = []string{
	"align", "background", "bgcolor", "border", "cellpadding",
	"cellspacing", "frame", "hspace", "rules", "style", "valign", "vspace",
}

// deprecatedSizeTags also lose width/height during cleanup.
var deprecatedSizeTags = map[string]bool{
	"table": true, "th": true, "td": true, "hr": true, "pre": true,
}

// prepArticle cleans the assembled article content for presentation:
// attribute stripping, conditional removal of fishy containers, share
// widgets, duplicate titles and layout leftovers.
func (p *parser) prepArticle(articleContent *html.Node) {
	p.cleanStyles(articleContent)
	p.markDataTables(articleContent)
	p.fixLazyImages(articleContent)

	p.cleanConditionally(articleContent, "form")
	p.cleanConditionally(articleContent, "fieldset")
	p.cleanConditionally(articleContent, "table")
	p.cleanConditionally(articleContent, "ul")
	p.cleanConditionally(articleContent, "div")

	for _, tag := range []string{
		"object", "embed", "h1", "footer", "link", "aside",
		"iframe", "input", "textarea", "select", "button",
	} {
		p.clean(articleContent, tag)
	}

	p.cleanShareElements(articleContent)
	p.removeDuplicateTitle(articleContent)
	p.cleanHeaders(articleContent)

	for _, par := range getElementsByTag(articleContent, "p") {
		if len(getElementsByTag(par, "img", "embed", "object", "iframe")) > 0 {
			continue
		}
		if innerText(par, false) == "" {
			detach(par)
		}
	}
	for _, br := range getElementsByTag(articleContent, "br") {
		if next := nextSignificantSibling(br); next != nil && tagName(next) == "p" {
			detach(br)
		}
	}

	p.unwrapSingleCellTables(articleContent)
}

// cleanStyles strips presentational attributes everywhere except
// inside svg subtrees.
func (p *parser) cleanStyles(n *html.Node) {
	if n.Type == html.ElementNode {
		if tagName(n) == "svg" {
			return
		}
		for _, attr := range presentationalAttrs {
			removeAttr(n, attr)
		}
		if deprecatedSizeTags[tagName(n)] {
			removeAttr(n, "width")
			removeAttr(n, "height")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.cleanStyles(c)
	}
}

// sizeInfo holds the logical dimensions of a table.
type sizeInfo struct {
	rows    int
	columns int
}

func spanAttr(n *html.Node, name string) int {
	v, err := strconv.Atoi(getAttr(n, name))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// getRowAndColumnCount measures a table's logical size, accounting for
// cells that span multiple rows or columns.
func getRowAndColumnCount(table *html.Node) sizeInfo {
	var info sizeInfo
	var carry []int
	for _, tr := range getElementsByTag(table, "tr") {
		info.rows++
		inRow := 0
		if len(carry) > 0 {
			inRow = carry[0]
			carry = carry[1:]
		}
		for _, td := range getElementsByTag(tr, "td") {
			cs := spanAttr(td, "colspan")
			rs := spanAttr(td, "rowspan")
			inRow += cs
			for k := 0; k < rs-1; k++ {
				if k < len(carry) {
					carry[k] += cs
				} else {
					carry = append(carry, cs)
				}
			}
		}
		if inRow > info.columns {
			info.columns = inRow
		}
	}
	// Spans reaching past the last written row still occupy rows.
	info.rows += len(carry)
	return info
}

// markDataTables records which tables carry real tabular data, so the
// conditional cleaner leaves them alone. The checks follow the ones
// accessibility tools use: captions, header structure, size.
func (p *parser) markDataTables(root *html.Node) {
	for _, table := range getElementsByTag(root, "table") {
		if getAttr(table, "role") == "presentation" {
			continue
		}
		if getAttr(table, "datatable") == "0" {
			continue
		}
		if hasAttr(table, "summary") {
			p.dataTables[table] = true
			continue
		}
		if caption := findFirst(table, "caption"); caption != nil && caption.FirstChild != nil {
			p.dataTables[table] = true
			continue
		}
		if len(getElementsByTag(table, "col", "colgroup", "tfoot", "thead", "th")) > 0 {
			p.dataTables[table] = true
			continue
		}
		// A nested table means the outer one is layout.
		if findFirst(table, "table") != nil {
			continue
		}
		size := getRowAndColumnCount(table)
		if size.rows >= 10 || size.columns > 4 || size.rows*size.columns > 10 {
			p.dataTables[table] = true
		}
	}
}

func (p *parser) isDataTable(n *html.Node) bool {
	return p.dataTables[n]
}

func (p *parser) hasDataTableAncestor(n *html.Node) bool {
	for a := n.Parent; a != nil; a = a.Parent {
		if p.dataTables[a] {
			return true
		}
	}
	return false
}

// fixLazyImages recovers image URLs hidden behind JavaScript lazy
// loading attributes and drops tiny base64 placeholders.
func (p *parser) fixLazyImages(root *html.Node) {
	for _, elem := range getElementsByTag(root, "img", "picture", "figure") {
		src := getAttr(elem, "src")
		if m := b64DataURLRe.FindStringSubmatch(src); m != nil && m[1] != "image/svg+xml" {
			srcCouldBeRemoved := false
			for _, a := range elem.Attr {
				if a.Key == "src" {
					continue
				}
				if imgExtRe.MatchString(a.Val) {
					srcCouldBeRemoved = true
					break
				}
			}
			if srcCouldBeRemoved {
				b64start := strings.Index(src, "base64,")
				if len(src)-(b64start+7) < 133 {
					removeAttr(elem, "src")
				}
			}
		}

		hasSrc := getAttr(elem, "src") != "" || getAttr(elem, "srcset") != ""
		if hasSrc && !strings.Contains(getAttr(elem, "class"), "lazy") {
			continue
		}

		for _, a := range elem.Attr {
			if a.Key == "src" || a.Key == "srcset" {
				continue
			}
			copyTo := ""
			if srcsetLazyRe.MatchString(a.Val) {
				copyTo = "srcset"
			} else if srcLazyRe.MatchString(a.Val) {
				copyTo = "src"
			}
			if copyTo == "" {
				continue
			}
			tag := tagName(elem)
			if tag == "img" || tag == "picture" {
				setAttr(elem, copyTo, a.Val)
			} else if tag == "figure" && len(getElementsByTag(elem, "img", "picture")) == 0 {
				img := newElement("img")
				setAttr(img, copyTo, a.Val)
				elem.AppendChild(img)
			}
		}
	}
}

// hasWhitelistedVideo reports whether the element embeds a player from
// a recognized video host.
func hasWhitelistedVideo(n *html.Node) bool {
	for _, embed := range getElementsByTag(n, "object", "embed", "iframe") {
		for _, a := range embed.Attr {
			if videosRe.MatchString(a.Val) {
				return true
			}
		}
	}
	return false
}

// cleanConditionally removes containers of the given tag that look like
// chrome rather than content, judged on link density, image/paragraph
// ratios and class weight. Data tables and their content are exempt.
func (p *parser) cleanConditionally(root *html.Node, tag string) {
	if !p.flagActive(flagCleanConditionally) {
		return
	}
	nodes := getElementsByTag(root, tag)
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if n.Parent == nil {
			continue
		}
		if tag == "table" && p.isDataTable(n) {
			continue
		}
		if p.hasDataTableAncestor(n) {
			continue
		}

		weight := p.classWeight(n)
		if weight < 0 {
			detach(n)
			continue
		}
		if charCount(n, ",") >= 10 {
			continue
		}

		pCount := len(getElementsByTag(n, "p"))
		imgCount := len(getElementsByTag(n, "img"))
		liCount := len(getElementsByTag(n, "li")) - 100
		inputCount := len(getElementsByTag(n, "input"))

		embedCount := 0
		whitelisted := false
		for _, embed := range getElementsByTag(n, "object", "embed", "iframe") {
			for _, a := range embed.Attr {
				if videosRe.MatchString(a.Val) {
					whitelisted = true
					break
				}
			}
			embedCount++
		}
		if whitelisted {
			continue
		}

		ld := linkDensity(n)
		contentLength := textLength(n)
		isList := tag == "ul" || tag == "ol"
		figureAncestor := hasAncestorTag(n, "figure", 0)

		remove := (imgCount > 1 && float64(pCount)/float64(imgCount) < 0.5 && !figureAncestor) ||
			(!isList && liCount > pCount) ||
			(inputCount > pCount/3) ||
			(!isList && contentLength < 25 && (imgCount == 0 || imgCount > 2) && !figureAncestor) ||
			(!isList && weight < 25 && ld > 0.2) ||
			(weight >= 25 && ld > 0.5) ||
			((embedCount == 1 && contentLength < 75) || embedCount > 1)
		if remove {
			detach(n)
		}
	}
}

// clean removes every element of the given tag. Video embeds from
// whitelisted hosts survive, with the exception of <object>, which is
// always dropped at this stage.
func (p *parser) clean(root *html.Node, tag string) {
	isEmbed := tag == "embed" || tag == "iframe"
	nodes := getElementsByTag(root, tag)
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if isEmbed {
			keep := false
			for _, a := range n.Attr {
				if videosRe.MatchString(a.Val) {
					keep = true
					break
				}
			}
			if keep {
				continue
			}
		}
		detach(n)
	}
}

// cleanShareElements drops social sharing widgets below the content
// size threshold.
func (p *parser) cleanShareElements(articleContent *html.Node) {
	child := articleContent.FirstChild
	for child != nil {
		// The detach pass below may remove child itself, which nils its
		// sibling link.
		next := child.NextSibling
		var doomed []*html.Node
		forEachNode(child, func(n *html.Node) {
			if n.Type != html.ElementNode {
				return
			}
			if shareRe.MatchString(classAndID(n)) && textLength(n) < 500 {
				doomed = append(doomed, n)
			}
		})
		for _, n := range doomed {
			detach(n)
		}
		child = next
	}
}

// removeDuplicateTitle drops h2 headings that merely repeat the
// article title.
func (p *parser) removeDuplicateTitle(articleContent *html.Node) {
	h2s := getElementsByTag(articleContent, "h2")
	if len(h2s) != 1 || p.metadata.Title == "" {
		return
	}
	heading := innerText(h2s[0], true)
	titleLen := float64(len(p.metadata.Title))
	rate := (float64(len(heading)) - titleLen) / titleLen
	if math.Abs(rate) >= 0.5 {
		return
	}
	var match bool
	if rate > 0 {
		match = strings.Contains(heading, p.metadata.Title)
	} else {
		match = strings.Contains(p.metadata.Title, heading)
	}
	if match {
		detach(h2s[0])
	}
}

// cleanHeaders removes headings whose class or id marks them as
// chrome.
func (p *parser) cleanHeaders(articleContent *html.Node) {
	for _, h := range getElementsByTag(articleContent, "h1", "h2") {
		if p.classWeight(h) < 0 {
			detach(h)
		}
	}
}

// unwrapSingleCellTables replaces one-cell layout tables with their
// cell's content.
func (p *parser) unwrapSingleCellTables(articleContent *html.Node) {
	for _, table := range getElementsByTag(articleContent, "table") {
		trs := getElementsByTag(table, "tr")
		if len(trs) != 1 {
			continue
		}
		tds := getElementsByTag(trs[0], "td")
		if len(tds) != 1 {
			continue
		}
		cell := tds[0]
		allPhrasing := true
		for c := cell.FirstChild; c != nil; c = c.NextSibling {
			if !isPhrasingContent(c) {
				allPhrasing = false
				break
			}
		}
		if allPhrasing {
			setNodeTag(cell, "p")
		} else {
			setNodeTag(cell, "div")
		}
		detach(cell)
		replaceNode(table, cell)
	}
}
