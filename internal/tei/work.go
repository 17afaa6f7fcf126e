package tei

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/corpusload/internal/diag"
	"github.com/dgallion1/corpusload/internal/doctree"
	"github.com/dgallion1/corpusload/internal/milestone"
	"golang.org/x/net/html"
)

// Layout describes where books and sections live in a TEI document and how
// sections break into paragraphs.
type Layout struct {
	Title          string // Overrides the document's first <title> when set
	DivTag         string
	BookSubtype    string
	SectionSubtype string
	NumberAttr     string

	Splitter    *milestone.Splitter
	Transformer *Transformer
}

// DefaultLayout matches Perseus editions: div[subtype=book] containing
// div[subtype=section n=...], paragraphs marked by <milestone unit="para"/>.
func DefaultLayout() Layout {
	return Layout{
		DivTag:         "div",
		BookSubtype:    "book",
		SectionSubtype: "section",
		NumberAttr:     "n",
		Splitter:       milestone.New("milestone", "unit", "para"),
		Transformer:    DefaultTransformer(),
	}
}

// Work is a prose text restructured as Work -> Book -> Section -> paragraph.
type Work struct {
	Title string
	Root  *doctree.Node
}

// Array returns the work as nested book/section/paragraph strings. Gap
// sections are empty slices.
func (w *Work) Array() [][][]string {
	out := make([][][]string, len(w.Root.Children))
	for i, book := range w.Root.Children {
		out[i] = make([][]string, len(book.Children))
		for j, section := range book.Children {
			out[i][j] = section.Strings()
		}
	}
	return out
}

// BuildWork restructures doc. Sections with an unusable number are reported
// and skipped; a section that cannot be split or parsed fails the whole
// document.
func BuildWork(doc *Document, layout Layout, report *diag.Report) (*Work, error) {
	title := layout.Title
	if title == "" {
		if ts := findAll(doc.Root, "title", nil); len(ts) > 0 {
			title = textContent(ts[0])
		}
	}
	if title == "" {
		return nil, fmt.Errorf("%w: document has no <title>", diag.ErrMalformedInput)
	}

	w := &Work{Title: title, Root: doctree.NewContainer(title)}
	for bi, b := range findAll(doc.Root, layout.DivTag, subtype(layout.BookSubtype)) {
		book := doctree.NewContainer(fmt.Sprintf("%d", bi+1))
		w.Root.Append(book)

		for _, s := range findAll(b, layout.DivTag, subtype(layout.SectionSubtype)) {
			raw, _ := attr(s, layout.NumberAttr)
			num, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || num < 1 {
				report.Addf(diag.KindUnexpectedRecord, title, fmt.Sprintf("book %d", bi+1),
					"section number %q is not a positive integer", raw)
				continue
			}

			section, err := buildSection(doc.Raw(s), layout)
			if err != nil {
				return nil, fmt.Errorf("book %d section %d: %w", bi+1, num, err)
			}
			section.Title = raw
			if err := book.InsertAt(num, section); err != nil {
				return nil, err
			}
		}
	}
	return w, nil
}

func buildSection(raw string, layout Layout) (*doctree.Node, error) {
	segments, err := layout.Splitter.Segments(raw)
	if err != nil {
		return nil, err
	}
	section := doctree.NewContainer("")
	for _, seg := range segments {
		text, err := layout.Transformer.Piece(seg)
		if err != nil {
			return nil, err
		}
		if text != "" {
			section.Append(doctree.NewLeaf(text))
		}
	}
	return section, nil
}

func subtype(want string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, _ := attr(n, "subtype")
		return v == want
	}
}
