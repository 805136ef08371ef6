// Package output renders condition and configuration listings, colors
// diagnostics, and writes result files atomically. Listings support text,
// JSON, table, and YAML formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/bimmerbailey/ppmerge/internal/cond"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// ConfigurationRecord is the structured form of one configuration.
type ConfigurationRecord struct {
	Expression string          `json:"expression" yaml:"expression"`
	Conditions map[string]bool `json:"conditions" yaml:"conditions"`
}

func record(c cond.Configuration) ConfigurationRecord {
	r := ConfigurationRecord{Expression: c.String(), Conditions: make(map[string]bool, c.Len())}
	for _, cd := range c.Conditions() {
		r.Conditions[cd.Name] = cd.Value
	}
	return r
}

// WriteConditions outputs condition names in the configured format.
func (wr *Writer) WriteConditions(names []string) error {
	if names == nil {
		names = []string{}
	}
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(names)
	case FormatYAML:
		return wr.WriteYAML(names)
	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tCONDITION")
		fmt.Fprintln(tw, "-\t---------")
		for i, name := range names {
			fmt.Fprintf(tw, "%d\t%s\n", i+1, name)
		}
		return tw.Flush()
	default:
		for _, name := range names {
			if _, err := fmt.Fprintf(wr.w, "* %s\n", name); err != nil {
				return err
			}
		}
		return nil
	}
}

// WriteConfigurations outputs complete configurations in the configured
// format. The table format is a truth table with one column per condition.
func (wr *Writer) WriteConfigurations(confs []cond.Configuration) error {
	switch wr.format {
	case FormatJSON, FormatYAML:
		records := make([]ConfigurationRecord, len(confs))
		for i, c := range confs {
			records[i] = record(c)
		}
		if wr.format == FormatJSON {
			return wr.WriteJSON(records)
		}
		return wr.WriteYAML(records)
	case FormatTable:
		return wr.writeTruthTable(confs)
	default:
		for _, c := range confs {
			if _, err := fmt.Fprintf(wr.w, "* %s\n", c); err != nil {
				return err
			}
		}
		return nil
	}
}

func (wr *Writer) writeTruthTable(confs []cond.Configuration) error {
	names := cond.Names(confs)
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "#\t%s\n", strings.Join(names, "\t"))
	rule := make([]string, len(names))
	for i, name := range names {
		rule[i] = strings.Repeat("-", len(name))
	}
	fmt.Fprintf(tw, "-\t%s\n", strings.Join(rule, "\t"))

	for i, c := range confs {
		r := record(c)
		cells := make([]string, len(names))
		for j, name := range names {
			v, ok := r.Conditions[name]
			switch {
			case !ok:
				cells[j] = "-"
			case v:
				cells[j] = "1"
			default:
				cells[j] = "0"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\n", i+1, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML outputs any value as YAML.
func (wr *Writer) WriteYAML(v any) error {
	enc := yaml.NewEncoder(wr.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
