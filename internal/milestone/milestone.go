// Package milestone splits a marked-up document at recurring empty marker
// elements, reconstructing the enclosing tags on both sides of every cut so
// each segment is a well-formed fragment on its own.
package milestone

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/corpusload/internal/diag"
)

// ContinuedAttr is added to every synthesized opening tag.
const ContinuedAttr = "continued"

// Attr is one attribute of an ancestor element, in document order.
type Attr struct {
	Name  string
	Value string
}

// Element is an ancestor of a milestone: its qualified tag name and
// attributes.
type Element struct {
	Name  string
	Attrs []Attr
}

// Splitter splits documents at milestones named Tag. When Attr is set only
// markers carrying Attr="Value" exactly are cut points.
type Splitter struct {
	Tag   string
	Attr  string
	Value string

	pattern *regexp.Regexp
}

// New returns a Splitter for tag, optionally filtered by attr=value.
func New(tag, attr, value string) *Splitter {
	s := &Splitter{Tag: tag, Attr: attr, Value: value}
	s.pattern = regexp.MustCompile(s.expr())
	return s
}

func (s *Splitter) expr() string {
	tag := regexp.QuoteMeta(s.Tag)
	if s.Attr == "" {
		return `<` + tag + `(?:\s[^>]*)?/?>`
	}
	return `<` + tag + `(?:\s[^>]*)?\s` + regexp.QuoteMeta(s.Attr) +
		`\s*=\s*["']` + regexp.QuoteMeta(s.Value) + `["'][^>]*>`
}

// Segment is one piece of a split document with the ancestor chains
// synthesized around it.
type Segment struct {
	// Text is the raw source between two markers.
	Text string
	// Open is reopened before Text, farthest ancestor first. Continued
	// reports whether a marker precedes Text.
	Open      []Element
	Continued bool
	// Close is closed after Text, closest ancestor first. Cut reports
	// whether a marker follows Text.
	Close []Element
	Cut   bool
}

// String renders the segment as a well-formed fragment.
func (g Segment) String() string {
	s := g.Text
	if g.Continued {
		s = OpeningTags(g.Open) + "\n" + s
	}
	if g.Cut {
		s = s + "\n" + ClosingTags(g.Close)
	}
	return s
}

// Segments cuts doc at every matching milestone and returns the M+1 pieces
// with the ancestor chains of their bounding markers.
func (s *Splitter) Segments(doc string) ([]Segment, error) {
	parts := s.SplitRaw(doc)

	markers, err := s.Ancestors(doc)
	if err != nil {
		return nil, err
	}
	if len(markers) != len(parts)-1 {
		return nil, fmt.Errorf("%w: found %d %s markers by pattern but %d in the parsed tree",
			diag.ErrMalformedInput, len(parts)-1, s.Tag, len(markers))
	}

	segs := make([]Segment, len(parts))
	for i, p := range parts {
		segs[i].Text = p
		if i < len(parts)-1 {
			segs[i].Close, segs[i].Cut = markers[i], true
		}
		if i > 0 {
			segs[i].Open, segs[i].Continued = markers[i-1], true
		}
	}
	return segs, nil
}

// Split cuts doc at every matching milestone and returns the M+1 segments.
// All but the last segment are closed with the ancestors of the marker that
// follows them; all but the first are reopened with the ancestors of the
// marker that precedes them, each opening tag marked continued="true".
func (s *Splitter) Split(doc string) ([]string, error) {
	segs, err := s.Segments(doc)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(segs))
	for i, g := range segs {
		out[i] = g.String()
	}
	return out, nil
}

// SplitRaw cuts the text at each matching marker without parsing it.
func (s *Splitter) SplitRaw(doc string) []string {
	return s.pattern.Split(doc, -1)
}

// Ancestors parses doc and returns, for every matching marker in document
// order, its ancestor chain from the closest ancestor to the root.
func (s *Splitter) Ancestors(doc string) ([][]Element, error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = true
	d.Entity = xml.HTMLEntity

	var stack []Element
	var found [][]Element
	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", diag.ErrMalformedInput, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := Element{Name: qualified(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			if s.matches(el) {
				chain := make([]Element, len(stack))
				for i := range stack {
					chain[i] = stack[len(stack)-1-i]
				}
				found = append(found, chain)
			}
			stack = append(stack, el)
		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 || stack[len(stack)-1].Name != name {
				return nil, fmt.Errorf("%w: unexpected </%s> at offset %d", diag.ErrMalformedInput, name, d.InputOffset())
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: unclosed <%s>", diag.ErrMalformedInput, stack[len(stack)-1].Name)
	}
	return found, nil
}

func (s *Splitter) matches(el Element) bool {
	if el.Name != s.Tag {
		return false
	}
	if s.Attr == "" {
		return true
	}
	for _, a := range el.Attrs {
		if a.Name == s.Attr && a.Value == s.Value {
			return true
		}
	}
	return false
}

// ClosingTags closes an ancestor chain, closest ancestor first.
func ClosingTags(chain []Element) string {
	var b strings.Builder
	for _, el := range chain {
		b.WriteString("</")
		b.WriteString(el.Name)
		b.WriteString(">")
	}
	return b.String()
}

// OpeningTags reopens an ancestor chain, farthest ancestor first, marking
// each tag as continued.
func OpeningTags(chain []Element) string {
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		el := chain[i]
		b.WriteString("<")
		b.WriteString(el.Name)
		for _, a := range el.Attrs {
			writeAttr(&b, a.Name, a.Value)
		}
		writeAttr(&b, ContinuedAttr, "true")
		b.WriteString(">")
	}
	return b.String()
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(`="`)
	xml.EscapeText(b, []byte(value))
	b.WriteString(`"`)
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
