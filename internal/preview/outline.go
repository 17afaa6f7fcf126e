package preview

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is one heading of a rendered preview with the paragraphs directly
// under it.
type Section struct {
	Title      string     `json:"title"`
	Level      int        `json:"level"`
	Paragraphs int        `json:"paragraphs"`
	Words      int        `json:"words"`
	Children   []*Section `json:"children,omitempty"`
}

// Outline parses Markdown back into its heading tree. Text before the first
// heading is counted on the returned root.
func Outline(src []byte) *Section {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	root := &Section{}
	stack := []*Section{root}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			sec := &Section{Title: string(node.Text(src)), Level: node.Level}
			// Pop until the top is a shallower heading.
			for len(stack) > 1 && stack[len(stack)-1].Level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, sec)
			stack = append(stack, sec)
		default:
			t := extractText(n, src)
			if t == "" {
				continue
			}
			top := stack[len(stack)-1]
			top.Paragraphs++
			top.Words += len(strings.Fields(t))
		}
	}
	return root
}

// Totals sums paragraphs and words over s and its descendants.
func (s *Section) Totals() (paragraphs, words int) {
	paragraphs, words = s.Paragraphs, s.Words
	for _, c := range s.Children {
		p, w := c.Totals()
		paragraphs += p
		words += w
	}
	return paragraphs, words
}

func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
