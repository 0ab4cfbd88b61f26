package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// PrintJSON writes data as indented JSON to the writer.
func PrintJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintYAML writes data as YAML to the writer.
func PrintYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer func() { _ = encoder.Close() }()
	return encoder.Encode(data)
}

// Print writes data in the requested format.
//
// JSON and YAML marshal data directly. Table format renders table; when
// the table has no rows, emptyMsg is printed instead so list commands do
// not emit a lone header line. A nil table falls back to JSON.
func Print(w io.Writer, format Format, data any, table TableRenderer, emptyMsg string) error {
	switch format {
	case FormatJSON:
		return PrintJSON(w, data)
	case FormatYAML:
		return PrintYAML(w, data)
	case FormatTable:
		if table == nil {
			return PrintJSON(w, data)
		}
		if len(table.Rows()) == 0 && emptyMsg != "" {
			_, err := fmt.Fprintln(w, emptyMsg)
			return err
		}
		return PrintTable(w, table)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
