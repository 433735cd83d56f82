package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Formatter writes command output as JSON or as aligned text.
type Formatter struct {
	writer io.Writer
	json   bool
}

// NewFormatter creates a new formatter. asJSON selects indented JSON.
func NewFormatter(writer io.Writer, asJSON bool) *Formatter {
	return &Formatter{writer: writer, json: asJSON}
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatTokens writes one token per row.
func (f *Formatter) FormatTokens(tokens []TokenDTO) error {
	if f.json {
		return f.encode(tokens)
	}
	tw := tabwriter.NewWriter(f.writer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LINE\tKIND\tSPAN\tTEXT")
	for _, t := range tokens {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d-%d\t%q\n", t.Line, t.Kind, t.Start, t.End, t.Text)
	}
	return tw.Flush()
}

// FormatToolpath writes the movements of an extraction.
func (f *Formatter) FormatToolpath(tp ToolpathDTO) error {
	if f.json {
		return f.encode(tp)
	}
	tw := tabwriter.NewWriter(f.writer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tLINE\tCMD\tX\tY\tZ")
	for i, m := range tp.Movements {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%.3f\t%.3f\t%.3f\n", i, m.LineNumber, m.Command, m.X, m.Y, m.Z)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f.writer, "%d segments, %d dropped\n", tp.Segments, tp.Dropped)
	return err
}

// FormatDebugLog writes persisted debug messages, newest first.
func (f *Formatter) FormatDebugLog(entries []DebugEntryDTO) error {
	if f.json {
		return f.encode(entries)
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(f.writer, "%s [%s] %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05.000"), e.Source, e.Message); err != nil {
			return err
		}
	}
	return nil
}

// FormatCodes writes one exclude code per line.
func (f *Formatter) FormatCodes(codes []string) error {
	if f.json {
		if codes == nil {
			codes = []string{}
		}
		return f.encode(codes)
	}
	for _, c := range codes {
		if _, err := fmt.Fprintln(f.writer, c); err != nil {
			return err
		}
	}
	return nil
}
