// Package report formats import results for the terminal.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/corpusload/internal/diag"
	"github.com/dgallion1/corpusload/internal/pipeline"
	"github.com/dgallion1/corpusload/internal/preview"
	"github.com/dgallion1/corpusload/internal/search"
)

var (
	// titleStyle for bold headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	// dimStyle for muted labels
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	// boxStyle for the summary box
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	// headerBoxStyle for the job header
	headerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

const (
	// maxOverflowText bounds how much of an overflowed line is echoed.
	maxOverflowText = 60
	maxHitText      = 100
)

// FormatJobHeader renders the job's identity and input.
func FormatJobHeader(w io.Writer, snap pipeline.JobSnapshot) {
	content := fmt.Sprintf("%s %s  %s %s\n%s %s\n%s %s",
		dimStyle.Render("Kind:"), titleStyle.Render(string(snap.Kind)),
		dimStyle.Render("Job:"), snap.ID,
		dimStyle.Render("File:"), snap.Filename,
		dimStyle.Render("Hash:"), shortHash(snap.ContentHash),
	)
	fmt.Fprintln(w, headerBoxStyle.Render(content))
}

// FormatWorks writes one line per title with its outcome.
func FormatWorks(w io.Writer, results []pipeline.WorkResult) {
	for _, r := range results {
		switch r.Status {
		case pipeline.WorkStored:
			fmt.Fprintf(w, "%s %s %s\n", successStyle.Render("✓"), r.Title,
				dimStyle.Render(fmt.Sprintf("(%s segments)", formatNumber(r.Leaves))))
		case pipeline.WorkUnchanged:
			fmt.Fprintf(w, "%s %s %s\n", dimStyle.Render("="), r.Title, dimStyle.Render("unchanged"))
		default:
			fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("✗"), r.Title, errorStyle.Render(r.Error))
		}
	}
}

// FormatSummary renders the totals box for a finished job.
func FormatSummary(w io.Writer, snap pipeline.JobSnapshot) {
	p := snap.Progress
	line1 := fmt.Sprintf("%s %d/%d  %s %s",
		dimStyle.Render("Stored:"), p.WorksStored, p.TotalWorks,
		dimStyle.Render("Status:"), statusIndicator(snap.Status),
	)
	line2 := fmt.Sprintf("%s %s  %s %s",
		dimStyle.Render("Diagnostics:"), countStyle(p.Diagnostics, warnStyle),
		dimStyle.Render("Overflows:"), countStyle(p.Overflows, errorStyle),
	)
	content := titleStyle.Render("Import Complete") + "\n" + line1 + "\n" + line2
	for _, e := range p.Errors {
		content += "\n" + errorStyle.Render(e)
	}
	fmt.Fprintln(w, boxStyle.Render(content))
}

// FormatDiagnostics lists diagnostic counts by kind and, when verbose,
// every diagnostic. Overflowed lines are always listed since their text is
// not stored anywhere else.
func FormatDiagnostics(w io.Writer, r *diag.Report, verbose bool) {
	if r.Len() == 0 {
		return
	}
	var parts []string
	for _, k := range diag.Kinds {
		if n := r.Count(k); n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", dimStyle.Render(string(k)+":"), n))
		}
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))

	if verbose {
		for _, d := range r.Items() {
			if errors.Is(d, diag.ErrSlotOverflow) {
				continue
			}
			fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("!"), d.Error())
		}
	}
	for _, o := range r.Overflows() {
		fmt.Fprintf(w, "  %s %s %s %s\n",
			errorStyle.Render("overflow"),
			o.Unit,
			dimStyle.Render(fmt.Sprintf("slot %d of %d:", o.Slot, o.Capacity)),
			truncate(o.Text, maxOverflowText),
		)
	}
}

// FormatJob renders the header, per-title lines, diagnostics and summary.
func FormatJob(w io.Writer, snap pipeline.JobSnapshot, r *diag.Report, verbose bool) {
	FormatJobHeader(w, snap)
	FormatWorks(w, snap.Progress.Results)
	FormatDiagnostics(w, r, verbose)
	FormatSummary(w, snap)
}

// FormatSeed renders the taxonomy seeding counts.
func FormatSeed(w io.Writer, res pipeline.SeedResult) {
	content := fmt.Sprintf("%s\n%s %d  %s %d  %s %d",
		titleStyle.Render("Taxonomy Seeded"),
		dimStyle.Render("Section terms:"), res.SectionTerms,
		dimStyle.Render("Category terms:"), res.CategoryTerms,
		dimStyle.Render("Categories:"), res.Categories,
	)
	fmt.Fprintln(w, boxStyle.Render(content))
}

// FormatOutline writes the heading tree of a preview, indented by depth,
// with paragraph and word counts.
func FormatOutline(w io.Writer, root *preview.Section) {
	var walk func(s *preview.Section, depth int)
	walk = func(s *preview.Section, depth int) {
		paras, words := s.Totals()
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), s.Title,
			dimStyle.Render(fmt.Sprintf("%s paragraphs, %s words", formatNumber(paras), formatNumber(words))))
		for _, c := range s.Children {
			walk(c, depth+1)
		}
	}
	for _, c := range root.Children {
		walk(c, 0)
	}
}

// FormatHits lists search results with their work and reference.
func FormatHits(w io.Writer, query string, hits []search.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("No segments match %q", query)))
		return
	}
	for _, h := range hits {
		fmt.Fprintf(w, "%s %s %s\n  %s\n",
			titleStyle.Render(h.Work),
			h.Ref,
			dimStyle.Render(fmt.Sprintf("(%.2f)", h.Score)),
			truncate(h.Content, maxHitText),
		)
	}
}

// FormatReindex renders how many segments were indexed per work.
func FormatReindex(w io.Writer, counts map[string]int, titles []string) {
	total := 0
	for _, t := range titles {
		n := counts[t]
		total += n
		fmt.Fprintf(w, "%s %s %s\n", successStyle.Render("✓"), t, dimStyle.Render(fmt.Sprintf("(%s segments)", formatNumber(n))))
	}
	content := fmt.Sprintf("%s\n%s %d  %s %s",
		titleStyle.Render("Search Index Rebuilt"),
		dimStyle.Render("Works:"), len(titles),
		dimStyle.Render("Segments:"), formatNumber(total),
	)
	fmt.Fprintln(w, boxStyle.Render(content))
}

func statusIndicator(s pipeline.JobStatus) string {
	switch s {
	case pipeline.StatusCompleted:
		return successStyle.Render("OK")
	case pipeline.StatusUnchanged:
		return dimStyle.Render("UNCHANGED")
	case pipeline.StatusPartial:
		return warnStyle.Render("PARTIAL")
	case pipeline.StatusFailed:
		return errorStyle.Render("FAILED")
	}
	return string(s)
}

func countStyle(n int, style lipgloss.Style) string {
	if n == 0 {
		return dimStyle.Render("0")
	}
	return style.Render(formatNumber(n))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// formatNumber adds commas to large numbers for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
