package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes how each corpus is imported and what taxonomy is seeded.
type Profile struct {
	HeTitlePrefix string       `yaml:"he_title_prefix"`
	Prose         ProseProfile `yaml:"prose"`
	Drama         DramaProfile `yaml:"drama"`
	Taxonomy      Taxonomy     `yaml:"taxonomy"`
}

// VersionInfo is the provenance stamped on every imported version.
type VersionInfo struct {
	Title    string `yaml:"title"`
	Source   string `yaml:"source"`
	Language string `yaml:"language"`
}

// MilestoneRule selects the empty marker element segments are split on.
// An empty Attr matches every Tag element.
type MilestoneRule struct {
	Tag   string `yaml:"tag"`
	Attr  string `yaml:"attr"`
	Value string `yaml:"value"`
}

type ProseProfile struct {
	// Title overrides the work title read from the document.
	Title          string        `yaml:"title"`
	Categories     []string      `yaml:"categories"`
	Levels         []string      `yaml:"levels"`
	Milestone      MilestoneRule `yaml:"milestone"`
	BookSubtype    string        `yaml:"book_subtype"`
	SectionSubtype string        `yaml:"section_subtype"`
	Version        VersionInfo   `yaml:"version"`
}

type DramaProfile struct {
	Categories     []string    `yaml:"categories"`
	Levels         []string    `yaml:"levels"`
	ExcludedTitles []string    `yaml:"excluded_titles"`
	LineFormat     string      `yaml:"line_format"`
	Version        VersionInfo `yaml:"version"`
}

// Taxonomy is the vocabulary written by the seed command.
type Taxonomy struct {
	SectionScheme  string         `yaml:"section_scheme"`
	CategoryScheme string         `yaml:"category_scheme"`
	SectionNames   []string       `yaml:"section_names"`
	Categories     []CategoryNode `yaml:"categories"`
}

// CategoryNode is one node of the configured category tree.
type CategoryNode struct {
	Name     string         `yaml:"name"`
	HeTitle  string         `yaml:"he_title"`
	Children []CategoryNode `yaml:"children"`
}

// LoadProfile reads a YAML profile from path and fills unset fields with
// defaults. An empty path returns the defaults.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return p, fmt.Errorf("read profile: %w", err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return p, fmt.Errorf("parse profile %s: %w", path, err)
		}
	}
	p.ApplyDefaults()
	return p, p.Validate()
}

// ApplyDefaults fills every unset field with the values used for the
// Perseus Republic and the Shakespeare dataset.
func (p *Profile) ApplyDefaults() {
	d := DefaultProfile()
	if p.HeTitlePrefix == "" {
		p.HeTitlePrefix = d.HeTitlePrefix
	}

	pr := &p.Prose
	if pr.Title == "" {
		pr.Title = d.Prose.Title
	}
	if len(pr.Categories) == 0 {
		pr.Categories = d.Prose.Categories
	}
	if len(pr.Levels) == 0 {
		pr.Levels = d.Prose.Levels
	}
	if pr.Milestone.Tag == "" {
		pr.Milestone = d.Prose.Milestone
	}
	if pr.BookSubtype == "" {
		pr.BookSubtype = d.Prose.BookSubtype
	}
	if pr.SectionSubtype == "" {
		pr.SectionSubtype = d.Prose.SectionSubtype
	}
	pr.Version.applyDefaults(d.Prose.Version)

	dr := &p.Drama
	if len(dr.Categories) == 0 {
		dr.Categories = d.Drama.Categories
	}
	if len(dr.Levels) == 0 {
		dr.Levels = d.Drama.Levels
	}
	if dr.ExcludedTitles == nil {
		dr.ExcludedTitles = d.Drama.ExcludedTitles
	}
	if dr.LineFormat == "" {
		dr.LineFormat = d.Drama.LineFormat
	}
	dr.Version.applyDefaults(d.Drama.Version)

	tx := &p.Taxonomy
	if tx.SectionScheme == "" {
		tx.SectionScheme = d.Taxonomy.SectionScheme
	}
	if tx.CategoryScheme == "" {
		tx.CategoryScheme = d.Taxonomy.CategoryScheme
	}
	if len(tx.SectionNames) == 0 {
		tx.SectionNames = d.Taxonomy.SectionNames
	}
	if len(tx.Categories) == 0 {
		tx.Categories = d.Taxonomy.Categories
	}
}

func (v *VersionInfo) applyDefaults(d VersionInfo) {
	if v.Title == "" {
		v.Title = d.Title
	}
	if v.Source == "" {
		v.Source = d.Source
	}
	if v.Language == "" {
		v.Language = d.Language
	}
}

// Validate rejects profiles the importers cannot run with.
func (p Profile) Validate() error {
	if len(p.Prose.Levels) != 3 {
		return fmt.Errorf("prose.levels must name 3 levels, got %d", len(p.Prose.Levels))
	}
	if len(p.Drama.Levels) != 3 {
		return fmt.Errorf("drama.levels must name 3 levels, got %d", len(p.Drama.Levels))
	}
	if p.Prose.Milestone.Attr == "" && p.Prose.Milestone.Value != "" {
		return fmt.Errorf("prose.milestone.value requires prose.milestone.attr")
	}
	switch p.Drama.LineFormat {
	case "classic", "indented":
	default:
		return fmt.Errorf("drama.line_format must be classic or indented, got %q", p.Drama.LineFormat)
	}
	return nil
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() Profile {
	return Profile{
		HeTitlePrefix: "א",
		Prose: ProseProfile{
			Title:          "Republic",
			Categories:     []string{"Philosophy", "Classical Philosophy", "Plato"},
			Levels:         []string{"Book", "Page", "Paragraph"},
			Milestone:      MilestoneRule{Tag: "milestone", Attr: "unit", Value: "para"},
			BookSubtype:    "book",
			SectionSubtype: "section",
			Version:        VersionInfo{Title: "Perseus", Language: "en"},
		},
		Drama: DramaProfile{
			Categories:     []string{"Drama", "Shakespeare"},
			Levels:         []string{"Act", "Scene", "Line"},
			ExcludedTitles: []string{"Pericles", "Merchant of Venice"},
			LineFormat:     "classic",
			Version: VersionInfo{
				Title:    "Elastic Search",
				Source:   "https://www.elastic.co/guide/en/kibana/current/tutorial-load-dataset.html",
				Language: "en",
			},
		},
		Taxonomy: Taxonomy{
			SectionScheme:  "section_names",
			CategoryScheme: "toc_categories",
			SectionNames:   []string{"Act", "Scene", "Line", "Book", "Page", "Paragraph"},
			Categories: []CategoryNode{
				{Name: "Poetry", HeTitle: "שירה"},
				{Name: "Fiction", HeTitle: "פרוזה"},
				{Name: "Non Fiction", HeTitle: "לא בדיוני"},
				{Name: "Drama", HeTitle: "דרמה", Children: []CategoryNode{
					{Name: "Shakespeare", HeTitle: "שייקספיר"},
				}},
				{Name: "Folklore", HeTitle: "פולקלור"},
				{Name: "Philosophy", HeTitle: "א", Children: []CategoryNode{
					{Name: "Classical Philosophy", HeTitle: "ג", Children: []CategoryNode{
						{Name: "Plato", HeTitle: "ד"},
					}},
				}},
				{Name: "Religious Texts", HeTitle: "ב"},
			},
		},
	}
}
