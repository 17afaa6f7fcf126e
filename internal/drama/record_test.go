package drama

import (
	"strings"
	"testing"
)

func TestLoad_JSONArray(t *testing.T) {
	input := `[
 {"line_id": 1, "play_name": "Henry IV", "speech_number": "", "line_number": "", "speaker": "", "text_entry": "ACT I", "type": "act"},
 {"line_id": 4, "play_name": "Henry IV", "speech_number": 1, "line_number": "1.1.1", "speaker": "KING HENRY IV", "text_entry": "So shaken as we are, so wan with care,", "type": "line"}
]`
	records, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].LineID != "4" || records[1].SpeechNumber != "1" {
		t.Errorf("numeric fields not read as strings: %+v", records[1])
	}
	if records[0].SpeechNumber != "" {
		t.Errorf("expected empty speech number, got %q", records[0].SpeechNumber)
	}
}

func TestLoad_BulkNDJSONSkipsActionLines(t *testing.T) {
	input := `{"index":{"_index":"shakespeare","_id":0}}
{"type":"act","line_id":1,"play_name":"Henry IV","speech_number":"","line_number":"","speaker":"","text_entry":"ACT I"}
{"index":{"_index":"shakespeare","_id":1}}
{"type":"scene","line_id":2,"play_name":"Henry IV","speech_number":"","line_number":"","speaker":"","text_entry":"SCENE I. London. The palace."}
`
	records, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Type != TypeScene {
		t.Errorf("expected scene, got %q", records[1].Type)
	}
}

func TestLoad_Empty(t *testing.T) {
	records, err := Load(strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestLoad_BadFieldType(t *testing.T) {
	_, err := Load(strings.NewReader(`[{"type":"line","line_id":true}]`))
	if err == nil {
		t.Error("expected error for boolean line_id")
	}
}

func TestClearRepeatedNumbers(t *testing.T) {
	records := []Record{
		{LineNumber: "1.1.1"},
		{LineNumber: "1.1.1"},
		{LineNumber: "1.1.1"},
		{LineNumber: "1.1.2"},
		{LineNumber: ""},
		{LineNumber: "1.1.2"},
	}
	ClearRepeatedNumbers(records)

	want := []string{"1.1.1", "", "", "1.1.2", "", "1.1.2"}
	for i, w := range want {
		if records[i].LineNumber != w {
			t.Errorf("record[%d]: expected %q, got %q", i, w, records[i].LineNumber)
		}
	}
}

func TestParseNumber(t *testing.T) {
	n, ok, err := ParseNumber("2.3.14")
	if err != nil || !ok {
		t.Fatalf("unexpected result ok=%v err=%v", ok, err)
	}
	if n != (Number{Act: 2, Scene: 3, Line: 14}) {
		t.Errorf("unexpected number %+v", n)
	}

	if _, ok, err := ParseNumber(""); ok || err != nil {
		t.Errorf("empty number should be a continuation, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := ParseNumber("12"); ok || err != nil {
		t.Errorf("undotted number should be a continuation, got ok=%v err=%v", ok, err)
	}
	for _, bad := range []string{"1.2", "1.a.3", "1.1.0"} {
		if _, _, err := ParseNumber(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
