package format

import (
	"bytes"
	"strings"
	"testing"
)

type rows struct{ names []string }

func (r rows) Table() Table {
	t := Table{Headers: []string{"ID", "NAME"}}
	for i, n := range r.names {
		t.Rows = append(t.Rows, []string{string(rune('a' + i)), n})
	}
	return t
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"ok": true}, "", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != "{\"ok\":true}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, rows{names: []string{"Arne", "Berit"}}, "text", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ID", "NAME", "Arne", "Berit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}

	buf.Reset()
	if err := Write(&buf, rows{}, "text", false); err != nil || strings.TrimSpace(buf.String()) != "(none)" {
		t.Fatalf("expected (none), got %q %v", buf.String(), err)
	}
}

func TestWrite_TextFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []int{1}, "text", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "1") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "edn", false); err == nil {
		t.Fatalf("expected error")
	}
}
