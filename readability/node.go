package readability

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// phrasingTags are elements that always count as phrasing content.
// a, del and ins are conditional and handled in isPhrasingContent.
var phrasingTags = map[string]bool{
	"abbr": true, "audio": true, "b": true, "bdo": true, "br": true,
	"button": true, "cite": true, "code": true, "data": true,
	"datalist": true, "dfn": true, "em": true, "embed": true, "i": true,
	"img": true, "input": true, "kbd": true, "label": true, "mark": true,
	"math": true, "meter": true, "noscript": true, "object": true,
	"output": true, "progress": true, "q": true, "ruby": true,
	"samp": true, "script": true, "select": true, "small": true,
	"span": true, "strong": true, "sub": true, "sup": true,
	"textarea": true, "time": true, "var": true, "wbr": true,
}

// blockLevelTags are elements that terminate a run of phrasing content
// inside a div.
var blockLevelTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "dialog": true, "dd": true, "div": true, "dl": true,
	"dt": true, "fieldset": true, "figcaption": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hgroup": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "ul": true,
}

// tagName returns the lowercase tag name of an element node, or "" for
// any other node kind.
func tagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// getAttr returns the value of the named attribute, or "" when absent.
func getAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// hasAttr reports whether the element carries the named attribute.
func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return true
		}
	}
	return false
}

// setAttr inserts or replaces an attribute, preserving the position of
// an existing entry with the same key.
func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// removeAttr deletes every attribute with the given key.
func removeAttr(n *html.Node, name string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if !strings.EqualFold(a.Key, name) {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// classAndID concatenates class and id with a single space, the form
// most of the attribute regexes are matched against.
func classAndID(n *html.Node) string {
	return getAttr(n, "class") + " " + getAttr(n, "id")
}

// newElement builds a detached element node with the given tag.
func newElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// setNodeTag renames an element in place, keeping attributes and
// children.
func setNodeTag(n *html.Node, tag string) {
	n.Data = tag
	n.DataAtom = atom.Lookup([]byte(tag))
}

// detach removes n from its parent. Safe to call on a node without a
// parent.
func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// replaceNode swaps old for new in old's parent.
func replaceNode(old, new *html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	parent.InsertBefore(new, old)
	parent.RemoveChild(old)
}

// appendChildren moves every child of src onto dst, preserving order.
func appendChildren(dst, src *html.Node) {
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		dst.AppendChild(c)
		c = next
	}
}

// firstElementChild returns the first child that is an element.
func firstElementChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// nextElementSibling returns the nearest following sibling element.
func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// childElementCount counts direct element children.
func childElementCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}

// forEachNode walks the subtree rooted at n in document order, calling
// fn for every node including n itself.
func forEachNode(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		forEachNode(c, fn)
	}
}

// getElementsByTag collects descendant elements with any of the given
// tags, in document order. The snapshot stays valid while the caller
// mutates the tree.
func getElementsByTag(root *html.Node, tags ...string) []*html.Node {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var out []*html.Node
	forEachNode(root, func(n *html.Node) {
		if n != root && n.Type == html.ElementNode && want[tagName(n)] {
			out = append(out, n)
		}
	})
	return out
}

// findFirst returns the first descendant element with the given tag, or
// nil.
func findFirst(root *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n != root && n.Type == html.ElementNode && tagName(n) == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// hasAncestorTag reports whether any ancestor of n (up to maxDepth
// levels, 0 meaning unbounded) has the given tag.
func hasAncestorTag(n *html.Node, tag string, maxDepth int) bool {
	depth := 0
	for p := n.Parent; p != nil; p = p.Parent {
		if maxDepth > 0 && depth >= maxDepth {
			return false
		}
		if tagName(p) == tag {
			return true
		}
		depth++
	}
	return false
}

// innerText concatenates the text content of the subtree and trims it.
// When normalize is true, runs of whitespace collapse to single spaces.
func innerText(n *html.Node, normalize bool) string {
	var sb strings.Builder
	forEachNode(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	text := strings.TrimSpace(sb.String())
	if normalize {
		text = normalizeWsRe.ReplaceAllString(text, " ")
	}
	return text
}

// textLength is the trimmed text length of the subtree, in runes.
func textLength(n *html.Node) int {
	return len([]rune(innerText(n, true)))
}

// linkDensity is the share of an element's text living inside <a>
// descendants, in [0, 1].
func linkDensity(n *html.Node) float64 {
	total := textLength(n)
	if total == 0 {
		return 0
	}
	linkLen := 0
	for _, a := range getElementsByTag(n, "a") {
		linkLen += textLength(a)
	}
	return float64(linkLen) / float64(total)
}

// charCount counts occurrences of a separator in the subtree text.
func charCount(n *html.Node, sep string) int {
	return strings.Count(innerText(n, true), sep)
}

// isPhrasingContent reports whether a node may live inside a paragraph.
// a, del and ins qualify only when all of their children do.
func isPhrasingContent(n *html.Node) bool {
	if n.Type == html.TextNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	tag := tagName(n)
	if phrasingTags[tag] {
		return true
	}
	if tag == "a" || tag == "del" || tag == "ins" {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !isPhrasingContent(c) {
				return false
			}
		}
		return true
	}
	return false
}

// isWhitespace reports whether a node is an all-whitespace text node or
// a <br>.
func isWhitespace(n *html.Node) bool {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data) == ""
	}
	return n.Type == html.ElementNode && tagName(n) == "br"
}

// isProbablyVisible applies the cheap non-rendering visibility checks.
// The literal "display: hidden" style match is intentional.
func isProbablyVisible(n *html.Node) bool {
	if strings.Contains(getAttr(n, "style"), "display: hidden") {
		return false
	}
	if hasAttr(n, "hidden") {
		return false
	}
	if getAttr(n, "aria-hidden") == "true" {
		class := getAttr(n, "class")
		if strings.Contains(class, "fallback-image") {
			return true
		}
		return false
	}
	return true
}

// isElementWithoutContent reports whether an element has no text and
// only <br>/<hr> element children.
func isElementWithoutContent(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if strings.TrimSpace(innerText(n, false)) != "" {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			tag := tagName(c)
			if tag != "br" && tag != "hr" {
				return false
			}
		}
	}
	return true
}

// hasChildBlockElement reports whether a div contains any block-level
// descendant, which stops it from being treated as a paragraph.
func hasChildBlockElement(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if blockLevelTags[tagName(c)] || hasChildBlockElement(c) {
			return true
		}
	}
	return false
}

// getNextNode advances a depth-first document-order walk over element
// nodes. With skipSubtree the walk moves to the next sibling or the
// nearest ancestor sibling instead of descending.
func getNextNode(n *html.Node, skipSubtree bool) *html.Node {
	if !skipSubtree {
		if c := firstElementChild(n); c != nil {
			return c
		}
	}
	if s := nextElementSibling(n); s != nil {
		return s
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if s := nextElementSibling(p); s != nil {
			return s
		}
	}
	return nil
}

// removeAndGetNext detaches n and returns the node the walk should
// continue from.
func removeAndGetNext(n *html.Node) *html.Node {
	next := getNextNode(n, true)
	detach(n)
	return next
}

// innerHTML renders the children of n back to markup.
func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&buf, c)
	}
	return buf.String()
}

// parseFragment parses a markup snippet in a body context and returns
// a detached container holding the resulting nodes.
func parseFragment(markup string) *html.Node {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	container := newElement("div")
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return container
	}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container
}
