// Package readability extracts the principal readable content from an
// HTML document: the article body as a cleaned DOM subtree plus a
// small metadata record. The heuristics follow the well-known
// readability approach of scoring paragraph containers by text shape
// and class naming, then growing the best candidate into a full
// article.
package readability

import (
	"bytes"
	"errors"
	"math"
	"strings"

	"golang.org/x/net/html"
)

// ErrEmptyContent is returned when no subtree with enough text
// survives extraction, even after relaxing the cleanup filters.
var ErrEmptyContent = errors.New("no qualifying article content found")

// Filter flags, dropped one at a time on retries.
const (
	flagStripUnlikely = 1 << iota
	flagWeightClasses
	flagCleanConditionally
)

// minContentLength is the trimmed text size an extraction attempt must
// reach to be accepted without retrying.
const minContentLength = 500

// tagsToScore are elements whose text feeds the candidate scores.
var tagsToScore = map[string]bool{
	"section": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "p": true, "td": true, "pre": true,
}

// dropWhenEmptyTags are containers removed outright when they hold no
// text and nothing but br or hr children.
var dropWhenEmptyTags = map[string]bool{
	"div": true, "section": true, "header": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Article is the extraction result. Root is a detached
// <div id="readability-page-1" class="page"> subtree holding the
// cleaned body.
type Article struct {
	Root     *html.Node
	Metadata Metadata
}

type parser struct {
	flags      uint32
	metadata   Metadata
	scores     map[*html.Node]float64
	dataTables map[*html.Node]bool
}

func (p *parser) flagActive(flag uint32) bool {
	return p.flags&flag != 0
}

// Parse runs the full extraction over an HTML document. It retries
// with progressively relaxed filters when the first pass finds too
// little text, and fails with ErrEmptyContent when every attempt comes
// up empty.
func Parse(htmlSource string) (*Article, error) {
	doc, err := html.Parse(strings.NewReader(htmlSource))
	if err != nil {
		return nil, err
	}

	p := &parser{
		flags: flagStripUnlikely | flagWeightClasses | flagCleanConditionally,
	}
	p.prepDocument(doc)
	p.metadata = p.getArticleMetadata(doc)

	// Snapshot the cleaned document so every retry starts from the
	// same DOM.
	var snap bytes.Buffer
	if err := html.Render(&snap, doc); err != nil {
		return nil, err
	}
	snapshot := snap.String()

	type attempt struct {
		content *html.Node
		length  int
	}
	var attempts []attempt
	var content *html.Node

	for {
		p.scores = make(map[*html.Node]float64)
		p.dataTables = make(map[*html.Node]bool)

		articleContent := p.grabArticle(doc)
		length := 0
		if articleContent != nil {
			length = textLength(articleContent)
		}
		if articleContent != nil && length >= minContentLength {
			content = articleContent
			break
		}

		attempts = append(attempts, attempt{articleContent, length})
		switch {
		case p.flagActive(flagStripUnlikely):
			p.flags &^= flagStripUnlikely
		case p.flagActive(flagWeightClasses):
			p.flags &^= flagWeightClasses
		case p.flagActive(flagCleanConditionally):
			p.flags &^= flagCleanConditionally
		default:
			// Out of filters to relax: the longest attempt wins.
			best := attempts[0]
			for _, a := range attempts[1:] {
				if a.length > best.length {
					best = a
				}
			}
			if best.length == 0 || best.content == nil {
				return nil, ErrEmptyContent
			}
			content = best.content
		}
		if content != nil {
			break
		}
		doc, err = html.Parse(strings.NewReader(snapshot))
		if err != nil {
			return nil, err
		}
	}

	if p.metadata.Excerpt == "" {
		if first := findFirst(content, "p"); first != nil {
			p.metadata.Excerpt = innerText(first, true)
		}
	}
	return &Article{Root: content, Metadata: p.metadata}, nil
}

// initializeNode seeds an element's score from its tag and class
// naming and registers it as a candidate.
func (p *parser) initializeNode(n *html.Node) {
	score := p.classWeight(n)
	switch tagName(n) {
	case "div":
		score += 5
	case "pre", "td", "blockquote":
		score += 3
	case "address", "ol", "ul", "dl", "dd", "dt", "li", "form":
		score -= 3
	case "h1", "h2", "h3", "h4", "h5", "h6", "th":
		score -= 5
	}
	p.scores[n] = score
}

// classWeight scores an element's class and id naming, each worth
// plus or minus 25.
func (p *parser) classWeight(n *html.Node) float64 {
	if !p.flagActive(flagWeightClasses) {
		return 0
	}
	weight := 0.0
	if class := getAttr(n, "class"); class != "" {
		if negativeRe.MatchString(class) {
			weight -= 25
		}
		if positiveRe.MatchString(class) {
			weight += 25
		}
	}
	if id := getAttr(n, "id"); id != "" {
		if negativeRe.MatchString(id) {
			weight -= 25
		}
		if positiveRe.MatchString(id) {
			weight += 25
		}
	}
	return weight
}

// getNodeAncestors returns up to maxDepth element ancestors, nearest
// first.
func getNodeAncestors(n *html.Node, maxDepth int) []*html.Node {
	var out []*html.Node
	for a := n.Parent; a != nil && len(out) < maxDepth; a = a.Parent {
		if a.Type != html.ElementNode {
			break
		}
		out = append(out, a)
	}
	return out
}

// hasSingleTagInsideElement reports whether n wraps exactly one child
// element of the given tag with no loose text around it.
func hasSingleTagInsideElement(n *html.Node, tag string) bool {
	if childElementCount(n) != 1 || tagName(firstElementChild(n)) != tag {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return false
		}
	}
	return true
}

// wrapPhrasingRuns wraps each maximal run of phrasing children of a
// div into its own paragraph.
func wrapPhrasingRuns(n *html.Node) {
	var par *html.Node
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if isPhrasingContent(child) {
			if par != nil {
				detach(child)
				par.AppendChild(child)
			} else if !isWhitespace(child) {
				par = newElement("p")
				replaceNode(child, par)
				par.AppendChild(child)
			}
		} else if par != nil {
			for par.LastChild != nil && isWhitespace(par.LastChild) {
				detach(par.LastChild)
			}
			par = nil
		}
		child = next
	}
	if par != nil {
		for par.LastChild != nil && isWhitespace(par.LastChild) {
			detach(par.LastChild)
		}
	}
}

// grabArticle runs one extraction attempt over the document and
// returns the assembled page div, or nil when nothing scored.
func (p *parser) grabArticle(doc *html.Node) *html.Node {
	body := findFirst(doc, "body")
	if body == nil {
		return nil
	}

	var elementsToScore []*html.Node
	node := firstElementChild(doc)
	for node != nil {
		matchString := classAndID(node)
		tag := tagName(node)

		if !isProbablyVisible(node) {
			node = removeAndGetNext(node)
			continue
		}
		if p.checkByline(node, matchString) {
			node = removeAndGetNext(node)
			continue
		}
		if p.flagActive(flagStripUnlikely) {
			if unlikelyRe.MatchString(matchString) &&
				!okMaybeRe.MatchString(matchString) &&
				!hasAncestorTag(node, "table", 0) &&
				tag != "body" && tag != "a" {
				node = removeAndGetNext(node)
				continue
			}
			if getAttr(node, "role") == "complementary" {
				node = removeAndGetNext(node)
				continue
			}
		}

		if dropWhenEmptyTags[tag] && isElementWithoutContent(node) {
			node = removeAndGetNext(node)
			continue
		}
		if tagsToScore[tag] {
			elementsToScore = append(elementsToScore, node)
		}
		if tag == "div" {
			wrapPhrasingRuns(node)
			if hasSingleTagInsideElement(node, "p") && linkDensity(node) < 0.25 {
				child := firstElementChild(node)
				detach(child)
				replaceNode(node, child)
				node = child
				elementsToScore = append(elementsToScore, node)
			} else if !hasChildBlockElement(node) {
				setNodeTag(node, "p")
				elementsToScore = append(elementsToScore, node)
			}
		}
		node = getNextNode(node, false)
	}

	var candidates []*html.Node
	for _, e := range elementsToScore {
		if e.Parent == nil {
			continue
		}
		text := innerText(e, true)
		if len([]rune(text)) < 25 {
			continue
		}
		ancestors := getNodeAncestors(e, 3)
		if len(ancestors) == 0 {
			continue
		}
		contentScore := 1.0
		contentScore += float64(strings.Count(text, ","))
		contentScore += math.Min(3, math.Floor(float64(len([]rune(text)))/100))

		for i, a := range ancestors {
			if tagName(a) == "" {
				continue
			}
			if _, ok := p.scores[a]; !ok {
				p.initializeNode(a)
				candidates = append(candidates, a)
			}
			divisor := 1.0
			switch {
			case i == 1:
				divisor = 2
			case i > 1:
				divisor = float64(i) * 3
			}
			p.scores[a] += contentScore / divisor
		}
	}

	// Scale scores by link density and keep the best five.
	var topCandidates []*html.Node
	for _, c := range candidates {
		score := p.scores[c] * (1 - linkDensity(c))
		p.scores[c] = score
		inserted := false
		for i := range topCandidates {
			if score > p.scores[topCandidates[i]] {
				topCandidates = append(topCandidates, nil)
				copy(topCandidates[i+1:], topCandidates[i:])
				topCandidates[i] = c
				inserted = true
				break
			}
		}
		if !inserted && len(topCandidates) < 5 {
			topCandidates = append(topCandidates, c)
		}
		if len(topCandidates) > 5 {
			topCandidates = topCandidates[:5]
		}
	}

	var topCandidate *html.Node
	if len(topCandidates) > 0 {
		topCandidate = topCandidates[0]
	}
	neededToCreate := false

	if topCandidate == nil || tagName(topCandidate) == "body" {
		topCandidate = newElement("div")
		appendChildren(topCandidate, body)
		body.AppendChild(topCandidate)
		p.initializeNode(topCandidate)
		neededToCreate = true
	} else {
		// Candidates sharing well-scored ancestors usually mean the
		// real article container is one level up.
		topScore := p.scores[topCandidate]
		var alternativeAncestors [][]*html.Node
		for _, c := range topCandidates[1:] {
			if p.scores[c]/topScore >= 0.75 {
				alternativeAncestors = append(alternativeAncestors, allAncestors(c))
			}
		}
		if len(alternativeAncestors) >= 3 {
			parent := topCandidate.Parent
			for parent != nil && tagName(parent) != "body" {
				listsContaining := 0
				for _, ancestors := range alternativeAncestors {
					for _, a := range ancestors {
						if a == parent {
							listsContaining++
							break
						}
					}
				}
				if listsContaining >= 3 {
					topCandidate = parent
					break
				}
				parent = parent.Parent
			}
		}
		if _, ok := p.scores[topCandidate]; !ok {
			p.initializeNode(topCandidate)
		}

		// Walk up while parents score better; a container holding
		// several scored children beats any single child.
		parent := topCandidate.Parent
		lastScore := p.scores[topCandidate]
		scoreThreshold := lastScore / 3
		for parent != nil && tagName(parent) != "body" {
			parentScore, ok := p.scores[parent]
			if !ok {
				parent = parent.Parent
				continue
			}
			if parentScore < scoreThreshold {
				break
			}
			if parentScore > lastScore {
				topCandidate = parent
				break
			}
			lastScore = parentScore
			parent = parent.Parent
		}

		for topCandidate.Parent != nil && tagName(topCandidate.Parent) != "body" &&
			childElementCount(topCandidate.Parent) == 1 {
			topCandidate = topCandidate.Parent
		}
		if _, ok := p.scores[topCandidate]; !ok {
			p.initializeNode(topCandidate)
		}
	}

	articleContent := newElement("div")
	topScore := p.scores[topCandidate]
	threshold := math.Max(10, topScore*0.2)
	parentOfTop := topCandidate.Parent
	if parentOfTop == nil {
		parentOfTop = topCandidate
	}

	var siblings []*html.Node
	for s := parentOfTop.FirstChild; s != nil; s = s.NextSibling {
		siblings = append(siblings, s)
	}
	topClass := getAttr(topCandidate, "class")
	for _, sibling := range siblings {
		if sibling.Type != html.ElementNode {
			continue
		}
		include := false
		if sibling == topCandidate {
			include = true
		} else {
			bonus := 0.0
			if topClass != "" && getAttr(sibling, "class") == topClass {
				bonus = topScore * 0.2
			}
			if score, ok := p.scores[sibling]; ok && score+bonus >= threshold {
				include = true
			} else if tagName(sibling) == "p" {
				ld := linkDensity(sibling)
				text := innerText(sibling, true)
				length := len([]rune(text))
				if length > 80 && ld < 0.25 {
					include = true
				} else if length > 0 && length <= 80 && ld == 0 && sentenceEndRe.MatchString(text) {
					include = true
				}
			}
		}
		if !include {
			continue
		}
		switch tagName(sibling) {
		case "div", "article", "section", "p":
		default:
			setNodeTag(sibling, "div")
		}
		detach(sibling)
		articleContent.AppendChild(sibling)
	}

	p.prepArticle(articleContent)

	if neededToCreate {
		setAttr(articleContent, "id", "readability-page-1")
		setAttr(articleContent, "class", "page")
	} else {
		page := newElement("div")
		setAttr(page, "id", "readability-page-1")
		setAttr(page, "class", "page")
		appendChildren(page, articleContent)
		articleContent = page
	}

	if p.metadata.Dir == "" {
		for a := parentOfTop; a != nil; a = a.Parent {
			if dir := getAttr(a, "dir"); dir != "" {
				p.metadata.Dir = dir
				break
			}
		}
	}
	return articleContent
}

// allAncestors collects every element ancestor of n, nearest first.
func allAncestors(n *html.Node) []*html.Node {
	var out []*html.Node
	for a := n.Parent; a != nil; a = a.Parent {
		if a.Type == html.ElementNode {
			out = append(out, a)
		}
	}
	return out
}
