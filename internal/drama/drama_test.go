package drama

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/corpusload/internal/diag"
)

func row(typ, num, speaker, speech, text string) Record {
	return Record{
		Type:         typ,
		PlayName:     "Hamlet",
		LineNumber:   num,
		Speaker:      speaker,
		SpeechNumber: Field(speech),
		Text:         text,
	}
}

func header() []Record {
	return []Record{
		row(TypeAct, "", "", "", "ACT I"),
		row(TypeScene, "", "", "", "SCENE I. Elsinore. A platform before the castle."),
	}
}

func build(t *testing.T, records []Record, opts Options) (*Corpus, *diag.Report) {
	t.Helper()
	report := diag.NewReport(nil)
	c := Build(records, opts, report)
	if len(c.Plays) != 1 {
		t.Fatalf("expected 1 play, got %d", len(c.Plays))
	}
	return c, report
}

func TestArray_ContinuationMergesIntoFollowingLine(t *testing.T) {
	records := append(header(),
		row(TypeLine, "1.1.1", "BERNARDO", "1", "Who's there?"),
		row(TypeLine, "", "FRANCISCO", "2", "Nay, answer me:"),
		row(TypeLine, "1.1.2", "FRANCISCO", "2", "stand, and unfold yourself."),
		row(TypeLine, "1.1.3", "BERNARDO", "3", "Long live the king!"),
	)
	c, report := build(t, records, Options{})

	got := c.Array(c.Plays[0].Acts[0].Scenes[0], Classic, "1.1", report)
	want := []string{
		"BERNARDO<br/>Who's there?",
		"FRANCISCO<br/>Nay, answer me:<br/>stand, and unfold yourself.",
		"BERNARDO<br/>Long live the king!",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
	if report.Len() != 0 {
		t.Errorf("expected no diagnostics, got %v", report.Items())
	}
}

func TestArray_AbsorbsFollowingContinuationsOfSameSpeech(t *testing.T) {
	records := append(header(),
		row(TypeLine, "1.1.1", "HORATIO", "5", "Friends to this ground."),
		row(TypeLine, "", "HORATIO", "5", "And liegemen to the Dane."),
		row(TypeLine, "", "MARCELLUS", "6", "Give you good night."),
		row(TypeLine, "1.1.2", "MARCELLUS", "6", "O, farewell."),
	)
	c, report := build(t, records, Options{})

	got := c.Array(c.Plays[0].Acts[0].Scenes[0], Classic, "1.1", report)
	want := []string{
		"HORATIO<br/>Friends to this ground.<br/>And liegemen to the Dane.",
		"MARCELLUS<br/>Give you good night.<br/>O, farewell.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestText_SpeakerPrefixNotRepeated(t *testing.T) {
	records := append(header(),
		row(TypeLine, "1.1.1", "HAMLET", "1", "To be, or not to be:"),
		row(TypeLine, "1.1.2", "HAMLET", "1", "that is the question."),
	)
	c, report := build(t, records, Options{})

	got := c.Array(c.Plays[0].Acts[0].Scenes[0], Classic, "1.1", report)
	if strings.Count(strings.Join(got, "|"), "HAMLET") != 1 {
		t.Errorf("expected a single speaker prefix, got %q", got)
	}
	if got[1] != "that is the question." {
		t.Errorf("second line should be unprefixed, got %q", got[1])
	}
}

func TestArray_GapsKeptAndTrailingTrimmed(t *testing.T) {
	records := append(header(),
		row(TypeLine, "1.1.1", "A", "1", "one"),
		row(TypeLine, "1.1.3", "A", "1", "three"),
		row(TypeLine, "", "A", "1", "three, cont."),
		row(TypeLine, "", "A", "1", "three, more."),
	)
	c, report := build(t, records, Options{})

	got := c.Array(c.Plays[0].Acts[0].Scenes[0], Classic, "1.1", report)
	want := []string{"A<br/>one", "", "three<br/>three, cont.<br/>three, more."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestArray_TrailingContinuationJoinsLastWrittenLine(t *testing.T) {
	records := append(header(),
		row(TypeLine, "1.1.2", "A", "1", "two"),
		row(TypeLine, "1.1.1", "B", "2", "one"),
		row(TypeLine, "", "C", "3", "tail"),
	)
	c, report := build(t, records, Options{})

	got := c.Array(c.Plays[0].Acts[0].Scenes[0], Classic, "1.1", report)
	want := []string{"B<br/>one<br/>C<br/>tail", "A<br/>two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestArray_OverflowIsReportedNotWritten(t *testing.T) {
	records := append(header(),
		row(TypeLine, "1.1.1", "A", "1", "one"),
		row(TypeLine, "1.1.9", "A", "1", "nine"),
	)
	c, report := build(t, records, Options{})

	got := c.Array(c.Plays[0].Acts[0].Scenes[0], Classic, "1.1", report)
	if len(got) != 1 || got[0] != "A<br/>one" {
		t.Errorf("unexpected array %q", got)
	}
	of := report.Overflows()
	if len(of) != 1 {
		t.Fatalf("expected 1 overflow, got %d", len(of))
	}
	if of[0].Slot != 8 || of[0].Capacity != 2 || of[0].Text != "nine" {
		t.Errorf("unexpected overflow %+v", of[0])
	}
}

func TestArray_AllEmptyReducesToZeroAndIsFlagged(t *testing.T) {
	c, report := build(t, header(), Options{})

	got := c.Array(c.Plays[0].Acts[0].Scenes[0], Classic, "1.1", report)
	if len(got) != 0 {
		t.Errorf("expected empty array, got %q", got)
	}
	if report.Count(diag.KindEmptyUnit) != 1 {
		t.Errorf("expected an empty_unit diagnostic")
	}
}

func TestBuild_LineOutsideSceneIsSkipped(t *testing.T) {
	records := []Record{
		row(TypeAct, "", "", "", "ACT I"),
		row(TypeLine, "1.1.1", "GOWER", "1", "To sing a song that old was sung,"),
		row(TypeScene, "", "", "", "SCENE I."),
		row(TypeLine, "1.1.1", "GOWER", "1", "From ashes ancient Gower is come;"),
	}
	c, report := build(t, records, Options{})

	if report.Count(diag.KindUnexpectedRecord) != 1 {
		t.Fatalf("expected 1 unexpected record, got %v", report.Items())
	}
	sc := c.Plays[0].Acts[0].Scenes[0]
	if len(sc.Lines) != 1 {
		t.Errorf("expected 1 line in scene, got %d", len(sc.Lines))
	}
}

func TestBuild_ActResetsSceneCursor(t *testing.T) {
	records := append(header(),
		row(TypeLine, "1.1.1", "A", "1", "one"),
		row(TypeAct, "", "", "", "ACT II"),
		row(TypeLine, "2.1.1", "A", "2", "orphan"),
	)
	_, report := build(t, records, Options{})
	if report.Count(diag.KindUnexpectedRecord) != 1 {
		t.Errorf("expected line after act header to be rejected, got %v", report.Items())
	}
}

func TestBuild_ExcludedTitles(t *testing.T) {
	records := append(header(), row(TypeLine, "1.1.1", "A", "1", "one"))
	pericles := Record{Type: TypeAct, PlayName: "Pericles", Text: "ACT I"}
	records = append(records, pericles, pericles)

	report := diag.NewReport(nil)
	c := Build(records, Options{ExcludedTitles: []string{"Pericles"}}, report)
	if len(c.Plays) != 1 || c.Plays[0].Name != "Hamlet" {
		t.Fatalf("expected only Hamlet, got %d plays", len(c.Plays))
	}
	if report.Count(diag.KindExcluded) != 1 {
		t.Errorf("expected exclusion reported once, got %d", report.Count(diag.KindExcluded))
	}
}

func TestBuild_BadLineNumberIsSkipped(t *testing.T) {
	records := append(header(), row(TypeLine, "1.x.1", "A", "1", "one"))
	_, report := build(t, records, Options{})
	if report.Count(diag.KindUnexpectedRecord) != 1 {
		t.Errorf("expected bad number to be reported, got %v", report.Items())
	}
}

func TestIndented_SeedsHeadersAndStylesLines(t *testing.T) {
	records := append(header(),
		row(TypeLine, "", "", "", "Enter BERNARDO and FRANCISCO"),
		row(TypeLine, "1.1.1", "BERNARDO", "1", "Who's there?"),
	)
	c, report := build(t, records, Options{SeedHeaders: true})

	got := c.Array(c.Plays[0].Acts[0].Scenes[0], Indented, "1.1", report)
	want := Indent + "ACT I" + LineBreak +
		Indent + "SCENE I. Elsinore. A platform before the castle." + LineBreak +
		Indent + "<i>Enter BERNARDO and FRANCISCO</i>" + LineBreak +
		"BERNARDO" + LineBreak + Indent + "Who's there?"
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected\n%q\ngot\n%q", want, got)
	}
}

func TestTree_TitlesFromHeaders(t *testing.T) {
	records := append(header(), row(TypeLine, "1.1.1", "A", "1", "one"))
	c, report := build(t, records, Options{})

	root := c.Tree(c.Plays[0], Classic, report)
	if root.Title != "Hamlet" {
		t.Errorf("unexpected root title %q", root.Title)
	}
	act := root.Children[0]
	if act.Title != "ACT I" {
		t.Errorf("unexpected act title %q", act.Title)
	}
	if got := act.Children[0].Title; got != "SCENE I  Elsinore  A platform before the castle" {
		t.Errorf("unexpected scene title %q", got)
	}
	want := [][][]string{{{"A<br/>one"}}}
	if got := c.PlayArray(c.Plays[0], Classic, nil); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != Classic {
		t.Errorf("empty format: got %q, %v", f, err)
	}
	if _, err := ParseFormat("fancy"); err == nil {
		t.Error("expected error for unknown format")
	}
}
