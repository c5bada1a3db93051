package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatPatterns formats a list of patterns as JSON
func (f *Formatter) FormatPatterns(patterns []PatternDTO) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(patterns)
}

// FormatPatternTable writes one aligned line per pattern.
func (f *Formatter) FormatPatternTable(patterns []PatternDTO) error {
	tw := tabwriter.NewWriter(f.writer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSOURCE\tBPM\tACTIVE")
	for _, p := range patterns {
		bpm := "-"
		if p.BPM > 0 {
			bpm = fmt.Sprintf("%g", p.BPM)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.Name, p.Source, bpm, p.Active)
	}
	return tw.Flush()
}

// FormatResult formats a command result as JSON
func (f *Formatter) FormatResult(result any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
