// XHTML serialization of extracted article trees. The writers need
// well-formed XML, which x/net/html's Render does not guarantee, so
// this walks the subtree itself: entity-escaped text, filtered
// attribute names, self-closed void elements, comments dropped.
package main

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// xmlEscaper covers the five XML entities for both text and attribute
// values.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// validAttrName filters attributes to names safe in XML output.
var validAttrName = regexp.MustCompile(`^[a-z0-9_-]+$`)

// validTagName filters element names to those legal in XML. Elements
// with hostile names are unwrapped, keeping their children.
var validTagName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// validXMLChar reports whether r is allowed in XML 1.0 content.
func validXMLChar(r rune) bool {
	return r == 0x9 || r == 0xA || r == 0xD ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// stripInvalidXMLChars drops characters XML cannot carry, escaped or
// not.
func stripInvalidXMLChars(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return !validXMLChar(r) }) < 0 {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if validXMLChar(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// voidElements must be self-closing in XHTML.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Source: true, atom.Wbr: true,
}

// serializeXHTML renders a subtree as XHTML.
func serializeXHTML(n *html.Node) string {
	var sb strings.Builder
	renderXHTML(&sb, n)
	return sb.String()
}

func renderXHTML(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(xmlEscaper.Replace(stripInvalidXMLChars(n.Data)))
	case html.ElementNode:
		if !validTagName.MatchString(n.Data) {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				renderXHTML(sb, c)
			}
			return
		}
		sb.WriteByte('<')
		sb.WriteString(n.Data)
		for _, a := range n.Attr {
			if !validAttrName.MatchString(a.Key) {
				continue
			}
			sb.WriteByte(' ')
			sb.WriteString(a.Key)
			sb.WriteString(`="`)
			sb.WriteString(xmlEscaper.Replace(stripInvalidXMLChars(a.Val)))
			sb.WriteByte('"')
		}
		if voidElements[n.DataAtom] && n.FirstChild == nil {
			sb.WriteString("/>")
			return
		}
		sb.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(sb, c)
		}
		sb.WriteString("</")
		sb.WriteString(n.Data)
		sb.WriteByte('>')
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderXHTML(sb, c)
		}
	}
	// Comments and other node kinds are dropped.
}
