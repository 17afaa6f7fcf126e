// Package drama rebuilds plays from a flat stream of act/scene/line rows
// into Act -> Scene -> Line arrays with merged continuation lines.
package drama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row types.
const (
	TypeAct   = "act"
	TypeScene = "scene"
	TypeLine  = "line"
)

// Field is a JSON scalar read as a string. Dumps disagree on whether ids and
// speech numbers are strings or numbers.
type Field string

func (f *Field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Field(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = Field(n.String())
	return nil
}

// Record is one row of the flat play dump.
type Record struct {
	Type         string `json:"type"`
	LineID       Field  `json:"line_id"`
	PlayName     string `json:"play_name"`
	SpeechNumber Field  `json:"speech_number"`
	LineNumber   string `json:"line_number"`
	Speaker      string `json:"speaker"`
	Text         string `json:"text_entry"`
}

// Load reads records from a JSON array, or from newline-delimited objects
// as produced by bulk-index dumps. Objects without a type (bulk action
// headers) are ignored.
func Load(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read records: %w", err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var records []Record
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}

	var records []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records)+1, err)
		}
		if rec.Type == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// ClearRepeatedNumbers blanks a row's line number when it repeats the number
// of the row before it, turning the repeat into a continuation.
func ClearRepeatedNumbers(records []Record) {
	var prev string
	havePrev := false
	for i := range records {
		if havePrev && records[i].LineNumber == prev {
			records[i].LineNumber = ""
			continue
		}
		prev = records[i].LineNumber
		havePrev = true
	}
}

// Number is a parsed act.scene.line path.
type Number struct {
	Act, Scene, Line int
}

// ParseNumber parses a dotted line number. ok is false for values without a
// dot, which mark continuation rows.
func ParseNumber(s string) (n Number, ok bool, err error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		return Number{}, false, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Number{}, false, fmt.Errorf("line number %q: want act.scene.line", s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Number{}, false, fmt.Errorf("line number %q: %w", s, err)
		}
		if v < 1 {
			return Number{}, false, fmt.Errorf("line number %q: parts must be >= 1", s)
		}
		vals[i] = v
	}
	return Number{Act: vals[0], Scene: vals[1], Line: vals[2]}, true, nil
}
