// Package tei restructures TEI-XML editions into book/section/paragraph
// trees.
//
// Markup is held in golang.org/x/net/html nodes so fragments can be
// rearranged in place and rendered as HTML for the library, but it is read
// with an XML tokenizer: TEI milestones are self-closing and tag names are
// case-sensitive, neither of which survives an HTML parse.
package tei

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/corpusload/internal/diag"
	"golang.org/x/net/html"
)

type span struct {
	start, end int64
}

// Document is a parsed TEI file. It keeps the source bytes so the exact
// text of any element can be recovered.
type Document struct {
	Root *html.Node

	src   []byte
	spans map[*html.Node]span
}

// Parse reads a whole TEI document.
func Parse(r io.Reader) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tei: %w", err)
	}
	doc := &Document{src: src, spans: make(map[*html.Node]span)}
	root, err := build(src, doc.spans)
	if err != nil {
		return nil, err
	}
	doc.Root = root
	return doc, nil
}

// ParseFragment parses a standalone fragment. The returned node is a
// document node whose children are the fragment's top-level nodes.
func ParseFragment(s string) (*html.Node, error) {
	return build([]byte(s), nil)
}

// Raw returns the source text of n exactly as it appeared in the file.
func (d *Document) Raw(n *html.Node) string {
	sp, ok := d.spans[n]
	if !ok {
		return ""
	}
	return string(d.src[sp.start:sp.end])
}

func build(src []byte, spans map[*html.Node]span) (*html.Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(src))
	dec.Strict = true
	dec.Entity = xml.HTMLEntity

	root := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{root}
	for {
		start := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", diag.ErrMalformedInput, err)
		}
		parent := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			n := &html.Node{Type: html.ElementNode, Data: qualified(t.Name)}
			for _, a := range t.Attr {
				n.Attr = append(n.Attr, html.Attribute{Key: qualified(a.Name), Val: a.Value})
			}
			parent.AppendChild(n)
			stack = append(stack, n)
			if spans != nil {
				spans[n] = span{start: start}
			}
		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 1 || parent.Data != name {
				return nil, fmt.Errorf("%w: unexpected </%s> at offset %d", diag.ErrMalformedInput, name, start)
			}
			if spans != nil {
				sp := spans[parent]
				sp.end = dec.InputOffset()
				spans[parent] = sp
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if last := parent.LastChild; last != nil && last.Type == html.TextNode {
				last.Data += string(t)
			} else {
				parent.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
			}
		}
	}
	if len(stack) > 1 {
		return nil, fmt.Errorf("%w: unclosed <%s>", diag.ErrMalformedInput, stack[len(stack)-1].Data)
	}
	return root, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// attr returns the value of key on n.
func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// findAll returns the element descendants of n named tag, in document order,
// for which keep returns true. keep may be nil.
func findAll(n *html.Node, tag string, keep func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag && (keep == nil || keep(c)) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// textContent returns the concatenated text below n.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}
