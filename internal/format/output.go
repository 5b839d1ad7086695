package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table is a plain text rendering of a CLI payload.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Tabular payloads can be printed with --format text.
type Tabular interface {
	Table() Table
}

// Write writes output in the requested format.
//
// Supported formats:
// - json (default)
// - text (payloads implementing Tabular; others fall back to json)
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "", "json":
		return WriteJSON(w, v, pretty)
	case "text":
		t, ok := v.(Tabular)
		if !ok {
			return WriteJSON(w, v, true)
		}
		return WriteTable(w, t.Table())
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes strict JSON output for CLI commands.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}

func WriteTable(w io.Writer, t Table) error {
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, "(none)")
		return err
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		BorderTop(false).
		BorderBottom(false).
		Headers(t.Headers...).
		Rows(t.Rows...)
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
