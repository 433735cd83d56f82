package viewer

import (
	"fmt"
	"strings"
)

// Color is a packed 0xRRGGBB value.
type Color uint32

// Hex formats c as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// RGB splits c into its components.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Palette holds the toolpath colors for one theme.
type Palette struct {
	Name          string
	Feed          Color
	Rapid         Color
	Selected      Color
	AfterSelected Color
	Background    Color
}

// Themes.
var (
	DarkPalette = Palette{
		Name:          "dark",
		Feed:          0x50fa7b,
		Rapid:         0xff5555,
		Selected:      0xff79c6,
		AfterSelected: 0x6272a4,
		Background:    0x282a36,
	}
	LightPalette = Palette{
		Name:          "light",
		Feed:          0x2f9e44,
		Rapid:         0xd7263d,
		Selected:      0x5f3dc4,
		AfterSelected: 0x94a2b8,
		Background:    0xf5f7fb,
	}
)

// PaletteFor returns the palette named theme, falling back to dark.
func PaletteFor(theme string) Palette {
	if strings.EqualFold(strings.TrimSpace(theme), LightPalette.Name) {
		return LightPalette
	}
	return DarkPalette
}

// MotionColor is the color of a segment before any selection: rapid for G0,
// feed otherwise.
func (p Palette) MotionColor(command string) Color {
	if command == "G0" {
		return p.Rapid
	}
	return p.Feed
}
