package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// ColorKind discriminates the variants of Color.
type ColorKind uint8

const (
	// KindDefaultFg is the terminal's default foreground.
	KindDefaultFg ColorKind = iota
	// KindDefaultBg is the terminal's default background.
	KindDefaultBg
	// KindIndexed is a 256-color palette entry. Entries 0-15 are the
	// named standard and bright colors.
	KindIndexed
	// KindRGB is a 24-bit true color.
	KindRGB
)

// Color is a terminal color as selected by the protocol. The zero value
// is the default foreground.
type Color struct {
	Kind  ColorKind
	Index uint8
	R     uint8
	G     uint8
	B     uint8
}

// Default colors.
var (
	DefaultForeground = Color{Kind: KindDefaultFg}
	DefaultBackground = Color{Kind: KindDefaultBg}
)

// Named colors (indices 0-15).
var (
	Black         = Indexed(0)
	Red           = Indexed(1)
	Green         = Indexed(2)
	Yellow        = Indexed(3)
	Blue          = Indexed(4)
	Magenta       = Indexed(5)
	Cyan          = Indexed(6)
	White         = Indexed(7)
	BrightBlack   = Indexed(8)
	BrightRed     = Indexed(9)
	BrightGreen   = Indexed(10)
	BrightYellow  = Indexed(11)
	BrightBlue    = Indexed(12)
	BrightMagenta = Indexed(13)
	BrightCyan    = Indexed(14)
	BrightWhite   = Indexed(15)
)

// palette16 is the render value of the 16 named colors.
var palette16 = [16]colorful.Color{
	{R: 0.0, G: 0.0, B: 0.0},
	{R: 0.8, G: 0.0, B: 0.0},
	{R: 0.0, G: 0.8, B: 0.0},
	{R: 0.8, G: 0.8, B: 0.0},
	{R: 0.0, G: 0.0, B: 0.8},
	{R: 0.8, G: 0.0, B: 0.8},
	{R: 0.0, G: 0.8, B: 0.8},
	{R: 0.8, G: 0.8, B: 0.8},
	{R: 0.4, G: 0.4, B: 0.4},
	{R: 1.0, G: 0.4, B: 0.4},
	{R: 0.4, G: 1.0, B: 0.4},
	{R: 1.0, G: 1.0, B: 0.4},
	{R: 0.4, G: 0.4, B: 1.0},
	{R: 1.0, G: 0.4, B: 1.0},
	{R: 0.4, G: 1.0, B: 1.0},
	{R: 1.0, G: 1.0, B: 1.0},
}

var colorNames = [16]string{
	"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
	"bright-black", "bright-red", "bright-green", "bright-yellow",
	"bright-blue", "bright-magenta", "bright-cyan", "bright-white",
}

var (
	defaultFgValue = colorful.Color{R: 0.9, G: 0.9, B: 0.9}
	defaultBgValue = colorful.Color{R: 0, G: 0, B: 0}
)

// Indexed returns a 256-color palette entry.
func Indexed(n uint8) Color {
	return Color{Kind: KindIndexed, Index: n}
}

// RGBColor returns a true color.
func RGBColor(r, g, b uint8) Color {
	return Color{Kind: KindRGB, R: r, G: g, B: b}
}

// FromANSICode maps an SGR color code to a Color. Codes 30-37 and 90-97
// select the standard and bright foregrounds, 49 the default background;
// anything else maps to the default foreground.
func FromANSICode(code int) Color {
	switch {
	case code >= 30 && code <= 37:
		return Indexed(uint8(code - 30))
	case code >= 90 && code <= 97:
		return Indexed(uint8(code - 90 + 8))
	case code == 49:
		return DefaultBackground
	default:
		return DefaultForeground
	}
}

// IsDefault reports whether c is one of the default colors.
func (c Color) IsDefault() bool {
	return c.Kind == KindDefaultFg || c.Kind == KindDefaultBg
}

// Colorful returns the render value of the color.
func (c Color) Colorful() colorful.Color {
	switch c.Kind {
	case KindIndexed:
		return indexedValue(c.Index)
	case KindRGB:
		return colorful.Color{
			R: float64(c.R) / 255.0,
			G: float64(c.G) / 255.0,
			B: float64(c.B) / 255.0,
		}
	case KindDefaultBg:
		return defaultBgValue
	default:
		return defaultFgValue
	}
}

func indexedValue(n uint8) colorful.Color {
	switch {
	case n < 16:
		return palette16[n]
	case n < 232:
		i := int(n) - 16
		return colorful.Color{
			R: float64(i/36) / 5.0,
			G: float64((i%36)/6) / 5.0,
			B: float64(i%6) / 5.0,
		}
	default:
		gray := float64(int(n)-232) / 23.0
		return colorful.Color{R: gray, G: gray, B: gray}
	}
}

// RGB returns the 8-bit channels of the render value.
func (c Color) RGB() (r, g, b uint8) {
	if c.Kind == KindRGB {
		return c.R, c.G, c.B
	}
	return c.Colorful().RGB255()
}

// TCell converts the color for a tcell screen. Default colors map to
// tcell's default so the host terminal theme shows through.
func (c Color) TCell() tcell.Color {
	switch c.Kind {
	case KindIndexed:
		return tcell.PaletteColor(int(c.Index))
	case KindRGB:
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	default:
		return tcell.ColorDefault
	}
}

// String returns a readable name for the color.
func (c Color) String() string {
	switch c.Kind {
	case KindDefaultFg:
		return "default-fg"
	case KindDefaultBg:
		return "default-bg"
	case KindIndexed:
		if c.Index < 16 {
			return colorNames[c.Index]
		}
		return fmt.Sprintf("indexed(%d)", c.Index)
	case KindRGB:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	default:
		return "unknown"
	}
}
