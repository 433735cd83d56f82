// Package assets ships the browser viewer page and materialises it on disk
// with the bridge endpoint baked in.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ncviewer/ncviewer/internal/log"
)

// Asset names inside the media directory.
const (
	IndexFile   = "index.html"
	BundleFile  = "bundle.js"
	PatchedFile = "index_patched.html"

	bundlePlaceholder = "__BUNDLE_PLACEHOLDER__"
)

//go:embed media
var media embed.FS

// FS returns the embedded media directory.
func FS() fs.FS {
	sub, err := fs.Sub(media, "media")
	if err != nil {
		panic(err)
	}
	return sub
}

// Extractor copies the media directory to a temp dir at most once.
type Extractor struct {
	mu      sync.Mutex
	src     fs.FS
	tempDir string
	dir     string
}

// NewExtractor returns an extractor for src that creates its directory
// under tempDir ("" uses the OS default).
func NewExtractor(src fs.FS, tempDir string) *Extractor {
	return &Extractor{src: src, tempDir: tempDir}
}

var defaultExtractor = NewExtractor(FS(), "")

// EnsureExtracted extracts the embedded media once per process and
// returns the directory.
func EnsureExtracted() (string, error) {
	return defaultExtractor.EnsureExtracted()
}

// EnsureExtracted copies the assets on first use and returns the same
// directory afterwards.
func (e *Extractor) EnsureExtracted() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dir != "" {
		return e.dir, nil
	}

	dir, err := os.MkdirTemp(e.tempDir, "nc-viewer-media")
	if err != nil {
		return "", fmt.Errorf("creating media dir: %w", err)
	}
	log.Info(log.CatHost, "Extracting media assets", "dir", dir)
	if err := os.CopyFS(dir, e.src); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("extracting media: %w", err)
	}
	e.dir = dir
	return dir, nil
}

// PatchIndex writes index_patched.html into dir: the bundle placeholder
// points at dir's bundle.js and script is inserted right after <head>.
// It returns the patched file's path.
func PatchIndex(dir, script string) (string, error) {
	html, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return "", fmt.Errorf("reading index: %w", err)
	}
	bundle := filepath.Join(dir, BundleFile)
	if _, err := os.Stat(bundle); err != nil {
		log.Warn(log.CatHost, "bundle missing", "path", bundle)
	}

	patched := strings.ReplaceAll(string(html), bundlePlaceholder, FileURL(bundle))
	patched = strings.Replace(patched, "<head>", "<head>\n"+script, 1)

	out := filepath.Join(dir, PatchedFile)
	if err := os.WriteFile(out, []byte(patched), 0o600); err != nil {
		return "", fmt.Errorf("writing patched index: %w", err)
	}
	return out, nil
}

// FileURL returns the file:// URL of an absolute path.
func FileURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}
