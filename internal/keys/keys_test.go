package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap_CaretKeys(t *testing.T) {
	km := DefaultKeyMap()
	require.Equal(t, []string{"k", "up"}, km.Up.Keys())
	require.Equal(t, []string{"j", "down"}, km.Down.Keys())
	require.Equal(t, []string{"g", "home"}, km.Top.Keys())
	require.Equal(t, []string{"G", "end"}, km.Bottom.Keys())
}

func TestDefaultKeyMap_Matches(t *testing.T) {
	km := DefaultKeyMap()
	tests := []struct {
		name    string
		msg     tea.KeyMsg
		binding key.Binding
	}{
		{"j moves down", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}, km.Down},
		{"arrow moves up", tea.KeyMsg{Type: tea.KeyUp}, km.Up},
		{"] next segment", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{']'}}, km.NextSegment},
		{"ctrl+c quits", tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit},
		{"esc closes", tea.KeyMsg{Type: tea.KeyEsc}, km.Escape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, key.Matches(tt.msg, tt.binding))
		})
	}
}

func TestDefaultKeyMap_HelpText(t *testing.T) {
	km := DefaultKeyMap()
	for _, group := range km.FullHelp() {
		for _, b := range group {
			require.NotEmpty(t, b.Help().Key)
			require.NotEmpty(t, b.Help().Desc)
		}
	}
	require.Len(t, km.ShortHelp(), 6)
}

func TestDefaultKeyMap_NoDuplicateKeys(t *testing.T) {
	seen := map[string]string{}
	for _, group := range DefaultKeyMap().FullHelp() {
		for _, b := range group {
			for _, k := range b.Keys() {
				prev, dup := seen[k]
				require.False(t, dup, "key %q bound to %q and %q", k, prev, b.Help().Desc)
				seen[k] = b.Help().Desc
			}
		}
	}
}
