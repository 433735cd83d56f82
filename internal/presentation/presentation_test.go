package presentation

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncviewer/ncviewer/internal/diagnostics"
	"github.com/ncviewer/ncviewer/internal/gcode"
	"github.com/ncviewer/ncviewer/internal/toolpath"
)

func TestFromTokens_TracksLines(t *testing.T) {
	src := "G0 X1\n(note)\nM30"
	got := FromTokens(src, gcode.Tokens(src), false)

	require.Len(t, got, 4)
	assert.Equal(t, TokenDTO{Kind: "COMMAND", Text: "G0", Line: 1, Start: 0, End: 2}, got[0])
	assert.Equal(t, "COORDINATE", got[1].Kind)
	assert.Equal(t, TokenDTO{Kind: "COMMENT", Text: "(note)", Line: 2, Start: 6, End: 12}, got[2])
	assert.Equal(t, 3, got[3].Line)
}

func TestFromTokens_KeepSpace(t *testing.T) {
	src := "G0 X1"
	got := FromTokens(src, gcode.Tokens(src), true)
	require.Len(t, got, 3)
	assert.Equal(t, "WHITESPACE", got[1].Kind)
}

func TestFormatter_TokensText(t *testing.T) {
	var buf bytes.Buffer
	src := "G1 X2"
	require.NoError(t, NewFormatter(&buf, false).FormatTokens(FromTokens(src, gcode.Tokens(src), false)))

	out := buf.String()
	assert.Contains(t, out, "LINE")
	assert.Contains(t, out, `"G1"`)
	assert.Contains(t, out, "COORDINATE")
}

func TestFormatter_ToolpathJSON(t *testing.T) {
	res := toolpath.Extract("G1 X10\n", toolpath.DefaultExcludeSet())
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, true).FormatToolpath(FromResult(res, toolpath.NewExcludeSet([]string{"g28"}))))

	var got ToolpathDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got.Segments)
	assert.Equal(t, []string{"G28"}, got.Exclude)
	require.Len(t, got.Movements, 2)
	assert.Equal(t, toolpath.Movement{X: 10, Command: "G1", LineNumber: 1}, got.Movements[1])
}

func TestFormatter_ToolpathEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, true).FormatToolpath(FromResult(toolpath.Result{}, nil)))
	assert.Contains(t, buf.String(), `"movements": []`)
	assert.Contains(t, buf.String(), `"exclude": []`)

	buf.Reset()
	require.NoError(t, NewFormatter(&buf, false).FormatToolpath(FromResult(toolpath.Result{}, nil)))
	assert.Contains(t, buf.String(), "0 segments, 0 dropped")
}

func TestFormatter_DebugLog(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	entries := FromEntries([]diagnostics.Entry{{ID: 3, SessionID: "s", Source: "surface", Message: "hello", CreatedAt: at}})

	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, false).FormatDebugLog(entries))
	assert.Contains(t, buf.String(), "[surface] hello")

	buf.Reset()
	require.NoError(t, NewFormatter(&buf, true).FormatDebugLog(entries))
	var got []DebugEntryDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)
	assert.True(t, at.Equal(got[0].CreatedAt))
}

func TestFormatter_Codes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf, false).FormatCodes([]string{"G28", "M6"}))
	assert.Equal(t, "G28\nM6\n", buf.String())

	buf.Reset()
	require.NoError(t, NewFormatter(&buf, true).FormatCodes(nil))
	assert.Equal(t, "[]\n", buf.String())
}
