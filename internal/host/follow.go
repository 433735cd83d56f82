package host

import (
	"context"
	"fmt"

	"github.com/ncviewer/ncviewer/internal/log"
)

// Refresh reloads doc and forwards a changed text, then a moved caret, to s.
// It reports whether the text changed.
func Refresh(s *Session, doc *FileDocument) (bool, error) {
	before := doc.Line()
	changed, err := doc.Reload()
	if err != nil || !changed {
		return false, err
	}
	if err := s.DocumentChanged(); err != nil {
		return true, fmt.Errorf("send change: %w", err)
	}
	if after := doc.Line(); after != before {
		if err := s.CaretMoved(after); err != nil {
			return true, fmt.Errorf("send caret: %w", err)
		}
	}
	return true, nil
}

// Follow calls Refresh whenever changes signals. It returns when ctx ends
// or changes is closed.
func Follow(ctx context.Context, s *Session, doc *FileDocument, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if _, err := Refresh(s, doc); err != nil {
				log.ErrorErr(log.CatHost, "refresh failed", err, "path", doc.Path())
			}
		}
	}
}
