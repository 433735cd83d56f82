package host

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ncviewer/ncviewer/internal/gcode"
	"github.com/ncviewer/ncviewer/internal/log"
)

// TextDocument is an in-memory Document and Caret.
type TextDocument struct {
	mu    sync.RWMutex
	text  string
	caret int
	moved func(line int)
}

// NewTextDocument returns a document holding text with the caret on line 0.
func NewTextDocument(text string) *TextDocument {
	return &TextDocument{text: text}
}

// Text implements Document.
func (d *TextDocument) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// LineCount implements Document. A trailing newline starts an empty last
// line, as in an editor.
func (d *TextDocument) LineCount() int {
	return CountLines(d.Text())
}

// Line implements Caret.
func (d *TextDocument) Line() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.caret
}

// MoveTo implements Caret. The line is clamped into the document.
func (d *TextDocument) MoveTo(line int) {
	d.mu.Lock()
	line = min(max(line, 0), CountLines(d.text)-1)
	d.caret = line
	moved := d.moved
	d.mu.Unlock()
	if moved != nil {
		moved(line)
	}
}

// OnCaretMoved registers fn to run after every MoveTo.
func (d *TextDocument) OnCaretMoved(fn func(line int)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.moved = fn
}

// SetText replaces the text and keeps the caret on the same logical line.
// It reports whether the text changed.
func (d *TextDocument) SetText(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if text == d.text {
		return false
	}
	d.caret = RemapLine(d.text, text, d.caret)
	d.text = text
	return true
}

// CountLines counts lines the way the extractor numbers them, so a
// highlightLine from the surface always lands inside the document.
func CountLines(text string) int {
	return gcode.CountLines(text)
}

// RemapLine maps a 0-based line of before onto after using a line diff.
// A line that survived keeps its identity; a deleted line maps to where
// the deletion happened.
func RemapLine(before, after string, line int) int {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	oldLine, newLine := 0, 0
	result := -1
	for _, d := range diffs {
		n := diffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if line < oldLine+n {
				result = newLine + (line - oldLine)
			}
			oldLine += n
			newLine += n
		case diffmatchpatch.DiffDelete:
			if line < oldLine+n {
				result = newLine
			}
			oldLine += n
		case diffmatchpatch.DiffInsert:
			newLine += n
		}
		if result >= 0 {
			break
		}
	}
	if result < 0 {
		result = newLine + (line - oldLine)
	}
	return min(max(result, 0), CountLines(after)-1)
}

// diffLines counts the lines a diff chunk spans; chunks from a line-mode
// diff hold whole lines, the last possibly unterminated.
func diffLines(text string) int {
	n := strings.Count(text, "\n")
	if text != "" && !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

// FileDocument is a TextDocument backed by a file on disk.
type FileDocument struct {
	*TextDocument
	path string
}

// OpenFile reads path into a document.
func OpenFile(path string) (*FileDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &FileDocument{TextDocument: NewTextDocument(string(data)), path: path}, nil
}

// Path returns the backing file.
func (f *FileDocument) Path() string {
	return f.path
}

// Reload re-reads the file. changed is false when the content is the same.
func (f *FileDocument) Reload() (changed bool, err error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", f.path, err)
	}
	before := f.Line()
	changed = f.SetText(string(data))
	if changed {
		log.Debug(log.CatHost, "reloaded", "path", f.path, "caret_before", before, "caret_after", f.Line())
	}
	return changed, nil
}
