package drama

import (
	"fmt"
	"strings"

	"github.com/dgallion1/corpusload/internal/diag"
	"github.com/dgallion1/corpusload/internal/doctree"
)

// LineBreak separates merged lines and a speaker label from its text.
const LineBreak = "<br/>"

// Indent prefixes spoken and header lines in Indented format.
const Indent = "&emsp;&emsp;"

// Format selects how a leaf's text is rendered.
type Format string

const (
	// Classic prefixes a speaker label when the speaker changes.
	Classic Format = "classic"
	// Indented also indents spoken lines, italicises lines with no speaker
	// and renders act/scene header rows as plain indented text.
	Indented Format = "indented"
)

// ParseFormat validates a configured format name. Empty means Classic.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", Classic:
		return Classic, nil
	case Indented:
		return Indented, nil
	}
	return "", fmt.Errorf("unknown line format %q (want classic or indented)", s)
}

// Text renders the row at position i. The speaker label is shown only when
// it differs from the speaker of the row immediately before it in document
// order.
func (c *Corpus) Text(i int, f Format) string {
	l := c.Lines[i]
	newSpeaker := l.Speaker != "" && (i == 0 || c.Lines[i-1].Speaker != l.Speaker)

	if f != Indented {
		if !newSpeaker {
			return l.Text
		}
		return l.Speaker + LineBreak + l.Text
	}

	if l.Type == TypeAct || l.Type == TypeScene {
		return Indent + l.Text
	}
	body := Indent + l.Text
	if l.Speaker == "" {
		body = Indent + "<i>" + l.Text + "</i>"
	}
	if newSpeaker {
		return l.Speaker + LineBreak + body
	}
	return body
}

// Array projects a scene into slots indexed by declared line number - 1.
// Unnumbered rows before a numbered row are prepended to it; unnumbered rows
// right after it with the same speech number are appended to it. Slots past
// the allocated size go to the report's overflow list. Unnumbered rows at
// the end of the scene are appended to the slot written last. Trailing empty
// slots are trimmed.
func (c *Corpus) Array(sc *Scene, f Format, unit string, report *diag.Report) []string {
	result := make([]string, len(sc.Lines))
	var acc strings.Builder
	last := -1

	for i := 0; i < len(sc.Lines); i++ {
		cur := sc.Lines[i]
		l := c.Lines[cur]
		if !l.HasNum {
			acc.WriteString(c.Text(cur, f))
			acc.WriteString(LineBreak)
			continue
		}

		text := acc.String() + c.Text(cur, f)
		acc.Reset()
		slot := l.Number.Line - 1

		for i+1 < len(sc.Lines) {
			next := sc.Lines[i+1]
			nl := c.Lines[next]
			if next != cur+1 || nl.HasNum || nl.Speech != l.Speech {
				break
			}
			text += LineBreak + c.Text(next, f)
			cur = next
			i++
		}

		if slot >= len(result) {
			report.AddOverflow(diag.Overflow{Unit: unit, Slot: slot, Capacity: len(result), Text: text})
			continue
		}
		result[slot] = text
		last = slot
	}

	if acc.Len() > 0 {
		tail := strings.TrimSuffix(acc.String(), LineBreak)
		if last >= 0 {
			result[last] += LineBreak + tail
		} else {
			report.AddOverflow(diag.Overflow{Unit: unit, Slot: -1, Capacity: len(result), Text: tail})
		}
	}

	result = doctree.TrimTrailing(result)
	if len(result) == 0 {
		report.Addf(diag.KindEmptyUnit, unit, "", "scene has no numbered lines")
	}
	return result
}

// PlayArray projects a whole play to act/scene/line strings.
func (c *Corpus) PlayArray(p *Play, f Format, report *diag.Report) [][][]string {
	out := make([][][]string, len(p.Acts))
	for ai, act := range p.Acts {
		out[ai] = make([][]string, len(act.Scenes))
		for si, sc := range act.Scenes {
			out[ai][si] = c.Array(sc, f, sceneUnit(p, ai, si), report)
		}
	}
	return out
}

// Tree projects a play into a titled doctree: play -> acts -> scenes ->
// lines. Act and scene titles come from their header rows.
func (c *Corpus) Tree(p *Play, f Format, report *diag.Report) *doctree.Node {
	root := doctree.NewContainer(p.Name)
	for ai, act := range p.Acts {
		an := doctree.NewContainer(doctree.CleanTitle(c.Lines[act.Header].Text))
		for si, sc := range act.Scenes {
			lines := c.Array(sc, f, sceneUnit(p, ai, si), report)
			an.Append(doctree.LeavesOf(doctree.CleanTitle(c.Lines[sc.Header].Text), lines))
		}
		root.Append(an)
	}
	return root
}

func sceneUnit(p *Play, act, scene int) string {
	return fmt.Sprintf("%s %d.%d", p.Name, act+1, scene+1)
}
