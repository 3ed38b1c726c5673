package main

import (
	"encoding/xml"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseBody parses an HTML fragment and returns the body node.
func parseBody(t testing.TB, fragment string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.DataAtom == atom.Body {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if body == nil {
		t.Fatal("no body in parsed fragment")
	}
	return body
}

// serializeChildren renders everything inside the node.
func serializeChildren(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(serializeXHTML(c))
	}
	return sb.String()
}

func TestSerializeXHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "text escaping",
			input: `<p>a &lt; b &amp; c</p>`,
			want:  `<p>a &lt; b &amp; c</p>`,
		},
		{
			name:  "attribute escaping",
			input: `<a href="/x?a=1&amp;b=2" title='say "hi"'>go</a>`,
			want:  `<a href="/x?a=1&amp;b=2" title="say &quot;hi&quot;">go</a>`,
		},
		{
			name:  "void element self closes",
			input: `<p>before<br>after<img src="a.png" alt="pic"></p>`,
			want:  `<p>before<br/>after<img src="a.png" alt="pic"/></p>`,
		},
		{
			name:  "comments dropped",
			input: `<div><!-- hidden -->shown</div>`,
			want:  `<div>shown</div>`,
		},
		{
			name:  "nested structure",
			input: `<div><h2 id="s1">Title</h2><ul><li>one</li><li>two</li></ul></div>`,
			want:  `<div><h2 id="s1">Title</h2><ul><li>one</li><li>two</li></ul></div>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializeChildren(parseBody(t, tt.input))
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerializeXHTML_DropsHostileAttrNames(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, DataAtom: atom.P, Data: "p"}
	n.Attr = []html.Attribute{
		{Key: "id", Val: "keep"},
		{Key: `on"click`, Val: "x"},
		{Key: "DATA", Val: "upper"},
	}
	got := serializeXHTML(n)
	if got != `<p id="keep"></p>` {
		t.Errorf("got %q", got)
	}
}

func TestSerializeXHTML_StripsControlChars(t *testing.T) {
	n := &html.Node{Type: html.TextNode, Data: "a\x00b\x0bc"}
	if got := serializeXHTML(n); got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

// FuzzSerializeXHTML parses arbitrary HTML and verifies the serialized
// body is always well-formed XML with no comments or invalid
// characters.
func FuzzSerializeXHTML(f *testing.F) {
	seeds := []string{
		`<p>Hello World</p>`,
		`<img src="data:image/png;base64,abc" alt="test"/>`,
		`<picture><source media="(max-width: 480px)"/><img src="x.jpg" alt="pic"/></picture>`,
		`<p id="test" onclick="alert(1)" data-track="click">text</p>`,
		`<a href="#exists">link</a><div id="exists">target</div>`,
		`<h1><p>Title</p></h1>`,
		`<span>start <div>middle</div> end</span>`,
		`<p>Before<table><tr><td>cell</td></tr></table>After</p>`,
		`<dl>bare text<dt>term</dt><dd>definition</dd></dl>`,
		`<p>Hello` + "\x12" + `World</p>`,
		`<p>` + "\x00\x01\x08\x0B\x0C\x0E\x1F" + ` text</p>`,
		`<div id="intro">First</div><div id="intro">Second</div>`,
		`<svg xmlns="http://www.w3.org/2000/svg"><circle r="10"/></svg>`,
		`<!-- comment --><p>after</p>`,
		``,
		`<p></p>`,
		`<></>`,
		`<div><div><div><div><div>deep</div></div></div></div></div>`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		doc, err := html.Parse(strings.NewReader(input))
		if err != nil {
			t.Skip()
		}
		result := serializeXHTML(doc)

		// The output must be valid XML when wrapped in a root element.
		wrapped := "<root>" + result + "</root>"
		decoder := xml.NewDecoder(strings.NewReader(wrapped))
		decoder.Strict = false
		for {
			_, err := decoder.Token()
			if err != nil {
				if err.Error() == "EOF" {
					break
				}
				t.Fatalf("output is not valid XML:\ninput:  %q\noutput: %q\nerror:  %v", input, result, err)
			}
		}

		if strings.Contains(result, "<!--") {
			t.Errorf("comment survived serialization:\ninput:  %q\noutput: %q", input, result)
		}

		for _, r := range result {
			if !validXMLChar(r) {
				t.Errorf("invalid XML character U+%04X in output:\ninput:  %q\noutput: %q", r, input, result)
			}
		}
	})
}
