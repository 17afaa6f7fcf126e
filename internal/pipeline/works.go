package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgallion1/corpusload/internal/config"
	"github.com/dgallion1/corpusload/internal/diag"
	"github.com/dgallion1/corpusload/internal/doctree"
	"github.com/dgallion1/corpusload/internal/drama"
	"github.com/dgallion1/corpusload/internal/library"
	"github.com/dgallion1/corpusload/internal/milestone"
	"github.com/dgallion1/corpusload/internal/tei"
)

// Work is one title ready to store.
type Work struct {
	Index   library.Index
	Version library.Version
	Leaves  int
}

// ProseWorks builds the single work in a TEI file.
func ProseWorks(data []byte, p config.Profile, report *diag.Report) ([]Work, error) {
	doc, err := tei.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	layout := tei.DefaultLayout()
	layout.Title = p.Prose.Title
	layout.BookSubtype = p.Prose.BookSubtype
	layout.SectionSubtype = p.Prose.SectionSubtype
	m := p.Prose.Milestone
	layout.Splitter = milestone.New(m.Tag, m.Attr, m.Value)

	w, err := tei.BuildWork(doc, layout, report)
	if err != nil {
		return nil, err
	}

	levels := p.Prose.Levels
	if ok, err := checkShape(w.Title, w.Root, levels, report); !ok {
		return nil, err
	}
	work, err := newWork(
		library.Index{
			Title:      w.Title,
			Categories: p.Prose.Categories,
			Levels:     levels,
			Schema:     library.FlatSchema(w.Title, p.HeTitlePrefix, levels),
		},
		p.Prose.Version,
		w.Array(),
	)
	if err != nil {
		return nil, err
	}
	work.Leaves = countLeaves(w.Root.Project())
	return []Work{work}, nil
}

// DramaWorks builds one work per play in a line-records file. Excluded
// plays produce no work.
func DramaWorks(data []byte, p config.Profile, report *diag.Report) ([]Work, error) {
	format, err := drama.ParseFormat(p.Drama.LineFormat)
	if err != nil {
		return nil, err
	}
	records, err := drama.Load(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	drama.ClearRepeatedNumbers(records)

	corpus := drama.Build(records, drama.Options{
		ExcludedTitles: p.Drama.ExcludedTitles,
		SeedHeaders:    format == drama.Indented,
	}, report)

	levels := p.Drama.Levels
	works := make([]Work, 0, len(corpus.Plays))
	for _, play := range corpus.Plays {
		tree := corpus.Tree(play, format, report)
		ok, err := checkShape(play.Name, tree, levels, report)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		chapter := tree.Project()
		work, err := newWork(
			library.Index{
				Title:      play.Name,
				Categories: p.Drama.Categories,
				Levels:     levels,
				Schema:     library.NestedSchema(tree, p.HeTitlePrefix, levels),
			},
			p.Drama.Version,
			chapter,
		)
		if err != nil {
			return nil, err
		}
		work.Leaves = countLeaves(chapter)
		works = append(works, work)
	}
	return works, nil
}

// checkShape rejects a tree with more levels than the profile declares. A
// tree with no text at all is reported and not stored.
func checkShape(title string, tree *doctree.Node, levels []string, report *diag.Report) (bool, error) {
	if d := tree.Depth(); d > len(levels) {
		return false, fmt.Errorf("%w: %s has %d levels but the profile declares %d",
			diag.ErrMalformedInput, title, d, len(levels))
	}
	if tree.Empty() {
		report.Addf(diag.KindEmptyUnit, title, "", "work has no text")
		return false, nil
	}
	return true, nil
}

func newWork(idx library.Index, info config.VersionInfo, chapter any) (Work, error) {
	body, err := json.Marshal(chapter)
	if err != nil {
		return Work{}, fmt.Errorf("marshal %s: %w", idx.Title, err)
	}
	return Work{
		Index: idx,
		Version: library.Version{
			Title:         idx.Title,
			VersionTitle:  info.Title,
			VersionSource: info.Source,
			Language:      info.Language,
			Chapter:       chapter,
			ContentHash:   ContentHashHex(body),
			CreatedAt:     time.Now().UTC(),
		},
	}, nil
}

// countLeaves counts non-empty strings in a projected tree.
func countLeaves(v any) int {
	switch t := v.(type) {
	case string:
		if t != "" {
			return 1
		}
	case []any:
		n := 0
		for _, c := range t {
			n += countLeaves(c)
		}
		return n
	}
	return 0
}
