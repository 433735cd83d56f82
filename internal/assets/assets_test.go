package assets

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_HasViewerPage(t *testing.T) {
	index, err := fs.ReadFile(FS(), IndexFile)
	require.NoError(t, err)
	assert.Contains(t, string(index), "<head>")
	assert.Contains(t, string(index), bundlePlaceholder)

	bundle, err := fs.ReadFile(FS(), BundleFile)
	require.NoError(t, err)
	assert.Contains(t, string(bundle), "X-Ncviewer-Token")
	assert.Contains(t, string(bundle), "webviewReady")
}

func TestExtractor_Once(t *testing.T) {
	e := NewExtractor(FS(), t.TempDir())

	var wg sync.WaitGroup
	dirs := make([]string, 8)
	for i := range dirs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir, err := e.EnsureExtracted()
			assert.NoError(t, err)
			dirs[i] = dir
		}(i)
	}
	wg.Wait()

	for _, d := range dirs {
		assert.Equal(t, dirs[0], d)
	}
	_, err := os.Stat(filepath.Join(dirs[0], IndexFile))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dirs[0], BundleFile))
	require.NoError(t, err)
}

func TestPatchIndex(t *testing.T) {
	dir, err := NewExtractor(FS(), t.TempDir()).EnsureExtracted()
	require.NoError(t, err)

	script := "<script>window.__NC_HTTP_ENDPOINT='http://127.0.0.1:1/ncbridge';</script>"
	out, err := PatchIndex(dir, script)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, PatchedFile), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<head>\n"+script)
	assert.NotContains(t, html, bundlePlaceholder)
	assert.Contains(t, html, FileURL(filepath.Join(dir, BundleFile)))
	assert.Equal(t, 1, strings.Count(html, script))

	original, err := os.ReadFile(filepath.Join(dir, IndexFile))
	require.NoError(t, err)
	assert.Contains(t, string(original), bundlePlaceholder, "index.html itself is left alone")
}

func TestPatchIndex_MissingIndex(t *testing.T) {
	_, err := PatchIndex(t.TempDir(), "<script></script>")
	assert.Error(t, err)
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "file:///tmp/media/bundle.js", FileURL("/tmp/media/bundle.js"))
	assert.Equal(t, "file:///tmp/a%20b/bundle.js", FileURL("/tmp/a b/bundle.js"))
}
