package tei

import (
	"slices"
	"strings"

	"github.com/dgallion1/corpusload/internal/milestone"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Transformer normalizes a segment's inline TEI markup into display HTML.
type Transformer struct {
	// Unwrap lists wrapper tags removed while keeping their children.
	Unwrap []string
	// MilestoneTag and MilestoneUnits select structural markers that are
	// dropped from the text.
	MilestoneTag   string
	MilestoneUnits []string
	// Quote is replaced by literal straight double quotes.
	Quote string
	// Styled tags degrade to <i class="tag">.
	Styled []string
	// Note becomes a superscript asterisk followed by a hidden footnote span.
	Note string
}

// DefaultTransformer returns the rules used for Perseus TEI editions.
func DefaultTransformer() *Transformer {
	return &Transformer{
		Unwrap:         []string{"said", "p"},
		MilestoneTag:   "milestone",
		MilestoneUnits: []string{"page", "section"},
		Quote:          "q",
		Styled:         []string{"gloss", "quote", "title", "foreign", "placeName", "bibl"},
		Note:           "note",
	}
}

// Apply rewrites the tree below root in place. Each rule runs over the whole
// tree before the next one starts.
func (t *Transformer) Apply(root *html.Node) {
	t.apply(root, nil)
}

// apply is Apply for a piece of a split element. Elements marked continued
// get no opening quote or footnote marker; elements in cut get no closing
// quote.
func (t *Transformer) apply(root *html.Node, cut map[*html.Node]bool) {
	for _, tag := range t.Unwrap {
		for _, e := range findAll(root, tag, nil) {
			unwrap(e)
		}
	}

	if t.MilestoneTag != "" {
		isUnit := func(n *html.Node) bool {
			u, _ := attr(n, "unit")
			return slices.Contains(t.MilestoneUnits, u)
		}
		for _, e := range findAll(root, t.MilestoneTag, isUnit) {
			unwrap(e)
		}
	}

	if t.Quote != "" {
		for _, e := range findAll(root, t.Quote, nil) {
			if !continued(e) {
				e.Parent.InsertBefore(textNode(`"`), e)
			}
			if !cut[e] {
				if e.NextSibling != nil {
					e.Parent.InsertBefore(textNode(`"`), e.NextSibling)
				} else {
					e.Parent.AppendChild(textNode(`"`))
				}
			}
			unwrap(e)
		}
	}

	for _, tag := range t.Styled {
		for _, e := range findAll(root, tag, nil) {
			rewrap(e, italic(tag))
		}
	}

	if t.Note != "" {
		for _, e := range findAll(root, t.Note, nil) {
			if !continued(e) {
				sup := &html.Node{Type: html.ElementNode, Data: "sup", DataAtom: atom.Sup}
				sup.AppendChild(textNode("*"))
				e.Parent.InsertBefore(sup, e)
			}

			fn := italic("footnote")
			fn.Attr = append(fn.Attr, html.Attribute{Key: "style", Val: "display: none"})
			rewrap(e, fn)
		}
	}
}

// Segment parses one well-formed fragment, applies the rules and returns the
// rendered content of its outermost element, trimmed. An empty result means
// the segment has no visible content and should not become a leaf.
func (t *Transformer) Segment(fragment string) (string, error) {
	root, err := ParseFragment(fragment)
	if err != nil {
		return "", err
	}
	t.Apply(root)
	return Contents(root)
}

// Piece transforms one segment of a milestone split. A quote or note that
// spans markers is marked once across its pieces: the opening quote and the
// footnote asterisk go with its start, the closing quote with its end.
func (t *Transformer) Piece(seg milestone.Segment) (string, error) {
	frag := seg.Text
	if seg.Continued {
		frag = milestone.OpeningTags(seg.Open) + frag
	}
	if seg.Cut {
		frag += milestone.ClosingTags(seg.Close)
	}
	root, err := ParseFragment(frag)
	if err != nil {
		return "", err
	}
	t.apply(root, cutElements(root, len(seg.Close)))
	return Contents(root)
}

// cutElements returns the n elements closed by the synthesized tags at the
// end of a fragment. Those tags are adjacent, so the elements are the chain
// of last children below root.
func cutElements(root *html.Node, n int) map[*html.Node]bool {
	cut := make(map[*html.Node]bool, n)
	for c := root.LastChild; n > 0 && c != nil && c.Type == html.ElementNode; c = c.LastChild {
		cut[c] = true
		n--
	}
	return cut
}

func continued(n *html.Node) bool {
	v, _ := attr(n, milestone.ContinuedAttr)
	return v == "true"
}

// Contents renders the content nodes of a fragment's outermost element. If
// the fragment has no single wrapping element, its top-level nodes are used.
func Contents(root *html.Node) (string, error) {
	parent := root
	if w := wrapper(root); w != nil {
		parent = w
	}
	var b strings.Builder
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if err := Render(&b, c); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func wrapper(root *html.Node) *html.Node {
	var found *html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if found != nil {
				return nil
			}
			found = c
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		}
	}
	return found
}

// unwrap replaces n with its children.
func unwrap(n *html.Node) {
	p := n.Parent
	if p == nil {
		return
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		p.InsertBefore(c, n)
	}
	p.RemoveChild(n)
}

// rewrap moves n's children into w and puts w where n was.
func rewrap(n, w *html.Node) {
	p := n.Parent
	if p == nil {
		return
	}
	p.InsertBefore(w, n)
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		w.AppendChild(c)
	}
	p.RemoveChild(n)
}

func italic(class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "i",
		DataAtom: atom.I,
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
