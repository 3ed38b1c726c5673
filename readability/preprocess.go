package readability

import (
	"strings"

	"golang.org/x/net/html"
)

// prepDocument runs the whole-document cleanup pass before any scoring
// happens: noscript image unwrapping, script/style removal, br-run
// collapsing and font renaming.
func (p *parser) prepDocument(doc *html.Node) {
	p.unwrapNoscriptImages(doc)
	removeScripts(doc)
	removeStyles(doc)
	replaceBrs(doc)
	for _, font := range getElementsByTag(doc, "font") {
		setNodeTag(font, "span")
	}
}

// imageAttrUsable reports whether the img carries anything a browser
// could load an image from.
func imageAttrUsable(img *html.Node) bool {
	if hasAttr(img, "src") || hasAttr(img, "srcset") ||
		hasAttr(img, "data-src") || hasAttr(img, "data-srcset") {
		return true
	}
	for _, a := range img.Attr {
		if imgExtRe.MatchString(a.Val) {
			return true
		}
	}
	return false
}

// singleImage returns the lone <img> in a subtree that contains exactly
// one img and no non-whitespace text, or nil.
func singleImage(n *html.Node) *html.Node {
	if tagName(n) == "img" {
		return n
	}
	var img *html.Node
	count := 0
	forEachNode(n, func(c *html.Node) {
		if tagName(c) == "img" {
			img = c
			count++
		}
	})
	if count != 1 {
		return nil
	}
	if strings.TrimSpace(innerText(n, false)) != "" {
		return nil
	}
	return img
}

// unwrapNoscriptImages replaces lazy-loading placeholder images with
// the real <img> that sites hide inside a trailing <noscript>. Images
// with no loadable source at all are dropped first.
func (p *parser) unwrapNoscriptImages(doc *html.Node) {
	for _, img := range getElementsByTag(doc, "img") {
		if !imageAttrUsable(img) {
			detach(img)
		}
	}
	for _, noscript := range getElementsByTag(doc, "noscript") {
		inner := parseFragment(innerHTML(noscript))
		newImg := singleImage(inner)
		if newImg == nil {
			continue
		}
		var prev *html.Node
		for s := noscript.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				prev = s
				break
			}
			if s.Type == html.TextNode && strings.TrimSpace(s.Data) != "" {
				break
			}
		}
		if prev == nil || singleImage(prev) == nil {
			continue
		}
		prevImg := singleImage(prev)
		// Carry the placeholder's attributes over, keeping the real
		// image's values on conflicts under a data-old- prefix.
		for _, a := range prevImg.Attr {
			if a.Val == "" {
				continue
			}
			if a.Key == "src" || a.Key == "srcset" || imgExtRe.MatchString(a.Val) {
				if getAttr(newImg, a.Key) == a.Val {
					continue
				}
				key := a.Key
				if hasAttr(newImg, key) {
					setAttr(newImg, "data-old-"+key, getAttr(newImg, key))
				}
				setAttr(newImg, key, a.Val)
			}
		}
		detach(newImg)
		replaceNode(prev, newImg)
		detach(noscript)
	}
}

// removeScripts drops every <script> and <noscript> in the document.
func removeScripts(doc *html.Node) {
	for _, n := range getElementsByTag(doc, "script", "noscript") {
		detach(n)
	}
}

// removeStyles drops every <style> in the document.
func removeStyles(doc *html.Node) {
	for _, n := range getElementsByTag(doc, "style") {
		detach(n)
	}
}

// nextSignificantSibling skips whitespace text nodes after n.
func nextSignificantSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.TextNode && strings.TrimSpace(s.Data) == "" {
			continue
		}
		return s
	}
	return nil
}

// replaceBrs converts runs of two or more <br> elements into paragraph
// breaks. The phrasing content following a run is moved into a fresh
// <p>; a <p> parent gaining a nested paragraph is renamed to <div>.
func replaceBrs(doc *html.Node) {
	for _, br := range getElementsByTag(doc, "br") {
		if br.Parent == nil {
			continue
		}
		next := nextSignificantSibling(br)
		replaced := false

		// Swallow the rest of the <br> chain.
		for next != nil && tagName(next) == "br" {
			replaced = true
			chainNext := nextSignificantSibling(next)
			// Remove whitespace between the brs along with the br
			// itself.
			for s := br.NextSibling; s != nil && s != chainNext; {
				ns := s.NextSibling
				detach(s)
				s = ns
			}
			next = chainNext
		}
		if !replaced {
			continue
		}

		parent := br.Parent
		p := newElement("p")
		replaceNode(br, p)

		next = p.NextSibling
		for next != nil {
			if tagName(next) == "br" {
				after := nextSignificantSibling(next)
				if after != nil && tagName(after) == "br" {
					break
				}
			}
			if !isPhrasingContent(next) {
				break
			}
			sibling := next.NextSibling
			detach(next)
			p.AppendChild(next)
			next = sibling
		}

		for p.LastChild != nil && isWhitespace(p.LastChild) {
			detach(p.LastChild)
		}
		for p.FirstChild != nil && p.FirstChild.Type == html.TextNode {
			trimmed := strings.TrimLeft(p.FirstChild.Data, " \t\n\r")
			if trimmed == "" {
				detach(p.FirstChild)
				continue
			}
			p.FirstChild.Data = trimmed
			break
		}

		if tagName(parent) == "p" {
			setNodeTag(parent, "div")
		}
	}
}
