package drama

import (
	"fmt"
	"slices"

	"github.com/dgallion1/corpusload/internal/diag"
)

// Line is one row kept in document order. Prev/next relationships between
// rows are positions in Corpus.Lines, never pointers.
type Line struct {
	ID      string
	Type    string
	Number  Number
	HasNum  bool
	Speech  string
	Speaker string
	Text    string
}

// Corpus owns every accepted row and the plays built over them.
type Corpus struct {
	Lines []Line
	Plays []*Play
}

// Play is a top-level unit.
type Play struct {
	Name string
	Acts []*Act

	act   *Act
	scene *Scene
}

// Act holds scenes. Header is the position of the act row.
type Act struct {
	Header int
	Scenes []*Scene
}

// Scene holds positions of its leaf rows in arrival order.
type Scene struct {
	Header int
	Lines  []int
}

// Options configures a build.
type Options struct {
	// ExcludedTitles are plays dropped up front.
	ExcludedTitles []string
	// SeedHeaders puts the act row (first scene only) and the scene row at
	// the start of each scene's lines, as unnumbered leaves.
	SeedHeaders bool
}

// Builder consumes rows one at a time.
type Builder struct {
	opts   Options
	report *diag.Report
	corpus *Corpus
	plays  map[string]*Play
	warned map[string]bool
}

// NewBuilder returns an empty builder. report may be nil.
func NewBuilder(opts Options, report *diag.Report) *Builder {
	return &Builder{
		opts:   opts,
		report: report,
		corpus: &Corpus{},
		plays:  make(map[string]*Play),
		warned: make(map[string]bool),
	}
}

// Build runs every record through a new Builder.
func Build(records []Record, opts Options, report *diag.Report) *Corpus {
	b := NewBuilder(opts, report)
	for _, rec := range records {
		b.Add(rec)
	}
	return b.Corpus()
}

// Corpus returns what has been built so far.
func (b *Builder) Corpus() *Corpus {
	return b.corpus
}

// Add places one record. Records that cannot be attributed to the current
// act or scene are reported and skipped.
func (b *Builder) Add(rec Record) {
	if slices.Contains(b.opts.ExcludedTitles, rec.PlayName) {
		if !b.warned[rec.PlayName] {
			b.warned[rec.PlayName] = true
			b.report.Addf(diag.KindExcluded, rec.PlayName, "", "listed in excluded titles")
		}
		return
	}

	num, hasNum, err := ParseNumber(rec.LineNumber)
	if err != nil {
		b.skip(rec, err.Error())
		return
	}

	play := b.plays[rec.PlayName]
	if play == nil {
		play = &Play{Name: rec.PlayName}
		b.plays[rec.PlayName] = play
		b.corpus.Plays = append(b.corpus.Plays, play)
	}

	line := Line{
		ID:      string(rec.LineID),
		Type:    rec.Type,
		Number:  num,
		HasNum:  hasNum,
		Speech:  string(rec.SpeechNumber),
		Speaker: rec.Speaker,
		Text:    rec.Text,
	}

	switch rec.Type {
	case TypeAct:
		idx := b.push(line)
		play.act = &Act{Header: idx}
		play.Acts = append(play.Acts, play.act)
		play.scene = nil
	case TypeScene:
		if play.act == nil {
			b.skip(rec, "scene before any act")
			return
		}
		idx := b.push(line)
		sc := &Scene{Header: idx}
		if b.opts.SeedHeaders {
			if len(play.act.Scenes) == 0 {
				sc.Lines = append(sc.Lines, play.act.Header)
			}
			sc.Lines = append(sc.Lines, idx)
		}
		play.act.Scenes = append(play.act.Scenes, sc)
		play.scene = sc
	case TypeLine:
		if play.scene == nil {
			b.skip(rec, "line outside any scene")
			return
		}
		play.scene.Lines = append(play.scene.Lines, b.push(line))
	default:
		b.skip(rec, fmt.Sprintf("unknown row type %q", rec.Type))
	}
}

func (b *Builder) push(l Line) int {
	b.corpus.Lines = append(b.corpus.Lines, l)
	return len(b.corpus.Lines) - 1
}

func (b *Builder) skip(rec Record, why string) {
	b.report.Add(diag.Diagnostic{
		Kind:     diag.KindUnexpectedRecord,
		Unit:     rec.PlayName,
		Position: fmt.Sprintf("line_id %s (%s)", rec.LineID, rec.LineNumber),
		Detail:   fmt.Sprintf("%s: type=%q speaker=%q text=%q", why, rec.Type, rec.Speaker, rec.Text),
	})
}
