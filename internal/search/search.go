// Package search keeps a full-text index of stored segments so a passage
// can be found by its words and addressed by work title and reference.
package search

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/dgallion1/corpusload/internal/library"
	"golang.org/x/net/html"
)

const (
	docType = "segment"

	// deletePage bounds how many segment ids are fetched per delete round.
	deletePage = 1000
)

// Segment is one indexed leaf of a work.
type Segment struct {
	Work    string `json:"work"`
	Ref     string `json:"ref"`
	Content string `json:"content"`
}

// Hit is a search result.
type Hit struct {
	ID      string  `json:"id"`
	Work    string  `json:"work"`
	Ref     string  `json:"ref"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Index is a bleve index of segments.
type Index struct {
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("work", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("ref", keywordFieldMapping)

	im.AddDocumentMapping(docType, docMapping)
	im.DefaultType = docType
	im.DefaultMapping = docMapping
	return im
}

// Open creates the index at path, or opens it if it already exists.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open search index: %w", openErr)
		}
		return &Index{index: index}, nil
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{index: index}, nil
}

// OpenMem returns an index held in memory only.
func OpenMem() (*Index, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{index: index}, nil
}

// IndexWork replaces every segment of v.Title with the non-empty leaves of
// v, addressed by 1-based dotted references ("2.14.3"). It returns the
// number of segments indexed.
func (ix *Index) IndexWork(ctx context.Context, idx library.Index, v library.Version) (int, error) {
	title := v.Title
	if title == "" {
		title = idx.Title
	}
	if err := ix.DeleteWork(ctx, title); err != nil {
		return 0, err
	}

	segs := Segments(title, v.Chapter)
	batch := ix.index.NewBatch()
	for _, s := range segs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := batch.Index(segmentID(s.Work, s.Ref), s); err != nil {
			return 0, fmt.Errorf("index %s %s: %w", s.Work, s.Ref, err)
		}
	}
	if err := ix.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("index %q: %w", title, err)
	}
	return len(segs), nil
}

// DeleteWork removes every segment of title.
func (ix *Index) DeleteWork(ctx context.Context, title string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		q := bleve.NewTermQuery(title)
		q.SetField("work")
		req := bleve.NewSearchRequest(q)
		req.Size = deletePage
		res, err := ix.index.Search(req)
		if err != nil {
			return fmt.Errorf("find segments of %q: %w", title, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := ix.index.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := ix.index.Batch(batch); err != nil {
			return fmt.Errorf("delete segments of %q: %w", title, err)
		}
	}
}

// Search runs a match query over segment content. A non-empty work limits
// results to that title.
func (ix *Index) Search(ctx context.Context, query, work string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	mq := bleve.NewMatchQuery(query)
	mq.SetField("content")
	var q blevequery.Query = mq
	if work != "" {
		wq := bleve.NewTermQuery(work)
		wq.SetField("work")
		q = bleve.NewConjunctionQuery(mq, wq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"*"}
	res, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]Hit, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = Hit{
			ID:      h.ID,
			Work:    field(h.Fields, "work"),
			Ref:     field(h.Fields, "ref"),
			Content: field(h.Fields, "content"),
			Score:   h.Score,
		}
	}
	return out, nil
}

// DocCount returns the number of indexed segments.
func (ix *Index) DocCount() (uint64, error) {
	return ix.index.DocCount()
}

// Close closes the index.
func (ix *Index) Close() error {
	return ix.index.Close()
}

// Segments flattens a version's content into its non-empty leaves with
// their references. Markup is dropped from the indexed text.
func Segments(title string, chapter any) []Segment {
	var out []Segment
	var walk func(v any, path []int)
	walk = func(v any, path []int) {
		switch t := v.(type) {
		case string:
			if text := PlainText(t); text != "" {
				out = append(out, Segment{Work: title, Ref: ref(path), Content: text})
			}
		case []any:
			for i, c := range t {
				walk(c, append(path, i+1))
			}
		case []string:
			for i, c := range t {
				walk(c, append(path, i+1))
			}
		case [][]string:
			for i, c := range t {
				walk(c, append(path, i+1))
			}
		case [][][]string:
			for i, c := range t {
				walk(c, append(path, i+1))
			}
		}
	}
	walk(chapter, nil)
	return out
}

// PlainText returns the text content of an HTML fragment with whitespace
// collapsed. Hidden footnotes are kept.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte(' ')
			}
		}
	}
}

func segmentID(work, ref string) string {
	return work + "#" + ref
}

func ref(path []int) string {
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

func field(fields map[string]interface{}, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}
