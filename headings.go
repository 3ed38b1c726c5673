// Heading handling: stable ids for intra-document links and the
// nested table of contents the EPUB writer consumes.
package main

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// validHeadingID is the character set EPUB fragment selectors accept.
var validHeadingID = regexp.MustCompile(`^[a-z0-9_-]+$`)

// assignHeadingIDs gives every h1..h4 an id usable as a link target.
// Headings without an id, or with one outside the safe character set,
// get a hash of their text. The leading underscore keeps the id valid
// when the hex digest starts with a digit.
func assignHeadingIDs(doc *goquery.Document) {
	doc.Find("h1,h2,h3,h4").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("id")
		if ok && validHeadingID.MatchString(id) {
			return
		}
		sum := md5.Sum([]byte(s.Text()))
		s.SetAttr("id", fmt.Sprintf("_%x", sum))
	})
}

// tocEntry is one heading in the nested table of contents.
type tocEntry struct {
	level    int
	title    string
	id       string
	children []*tocEntry
}

// headingTOC folds the document's h1..h4 sequence into a tree: each
// heading nests under the closest preceding heading of a lower level.
func headingTOC(doc *goquery.Document) []*tocEntry {
	var roots []*tocEntry
	var stack []*tocEntry

	doc.Find("h1,h2,h3,h4").Each(func(_ int, s *goquery.Selection) {
		level, err := strconv.Atoi(goquery.NodeName(s)[1:])
		if err != nil {
			return
		}
		id, _ := s.Attr("id")
		entry := &tocEntry{level: level, title: s.Text(), id: id}

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, entry)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, entry)
		}
		stack = append(stack, entry)
	})
	return roots
}
