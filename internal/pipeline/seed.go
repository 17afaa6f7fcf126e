package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/corpusload/internal/config"
	"github.com/dgallion1/corpusload/internal/library"
)

// SeedResult counts what Seed wrote.
type SeedResult struct {
	SectionTerms  int `json:"section_terms"`
	CategoryTerms int `json:"category_terms"`
	Categories    int `json:"categories"`
}

// Seed replaces the section-name terms, the category terms and the category
// tree described by tx.
func Seed(ctx context.Context, sink library.Sink, tx config.Taxonomy, hePrefix string, log *slog.Logger) (SeedResult, error) {
	var res SeedResult

	sections := make([]library.Term, 0, len(tx.SectionNames))
	for _, name := range tx.SectionNames {
		sections = append(sections, library.Term{
			Name:    name,
			Scheme:  tx.SectionScheme,
			Title:   name,
			HeTitle: hePrefix + name,
		})
	}

	cats := FlattenCategories(tx.Categories)
	catTerms := make([]library.Term, 0, len(cats))
	for _, c := range cats {
		catTerms = append(catTerms, library.Term{
			Name:    c.LastPath(),
			Scheme:  tx.CategoryScheme,
			Title:   c.Title,
			HeTitle: c.HeTitle,
		})
	}

	if err := sink.ReplaceTerms(ctx, tx.SectionScheme, sections); err != nil {
		return res, fmt.Errorf("replace %s terms: %w", tx.SectionScheme, err)
	}
	res.SectionTerms = len(sections)

	if err := sink.ReplaceTerms(ctx, tx.CategoryScheme, catTerms); err != nil {
		return res, fmt.Errorf("replace %s terms: %w", tx.CategoryScheme, err)
	}
	res.CategoryTerms = len(catTerms)

	if err := sink.ReplaceCategories(ctx, cats); err != nil {
		return res, fmt.Errorf("replace categories: %w", err)
	}
	res.Categories = len(cats)

	for _, c := range cats {
		log.Debug("created category", "path", c.Path)
	}
	log.Info("seeded taxonomy", "section_terms", res.SectionTerms, "categories", res.Categories)
	return res, nil
}

// FlattenCategories lists the tree depth-first, parents before children.
// Each path is the parent's path plus the node's own name.
func FlattenCategories(nodes []config.CategoryNode) []library.Category {
	var out []library.Category
	var walk func(parent []string, nodes []config.CategoryNode)
	walk = func(parent []string, nodes []config.CategoryNode) {
		for _, n := range nodes {
			path := append(append([]string{}, parent...), n.Name)
			out = append(out, library.Category{Path: path, Title: n.Name, HeTitle: n.HeTitle})
			walk(path, n.Children)
		}
	}
	walk(nil, nodes)
	return out
}
