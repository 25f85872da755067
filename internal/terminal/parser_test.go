package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserPlainText(t *testing.T) {
	p := NewParser(24, 80)

	p.ParseString("Hello")

	assert.Equal(t, "Hello", p.Grid().RowText(0))
}

func TestParserPrintableASCIIClamps(t *testing.T) {
	tests := []string{
		"",
		"a",
		"0123456789",
		"exactly-twenty-chars",
		"this line is longer than twenty columns",
		" !\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~",
	}
	const cols = 20
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			p := NewParser(4, cols)
			p.ParseString(in)

			want := in
			if len(in) > cols {
				want = in[:cols-1] + in[len(in)-1:]
			}
			assert.Equal(t, strings.TrimRight(want, " "), p.Grid().RowText(0))
			assert.Equal(t, "", p.Grid().RowText(1), "no wrap to the next row")
		})
	}
}

func TestParserNewlineReturnsToColumnZero(t *testing.T) {
	p := NewParser(24, 80)

	p.ParseString("AB\nC")

	assert.Equal(t, "AB", p.Grid().RowText(0))
	assert.Equal(t, "C", p.Grid().RowText(1))
}

func TestParserCarriageReturn(t *testing.T) {
	p := NewParser(24, 80)

	p.ParseString("ABC\rX")

	assert.Equal(t, "XBC", p.Grid().RowText(0))
}

func TestParserTab(t *testing.T) {
	p := NewParser(24, 80)

	p.ParseString("A\tB")

	assert.Equal(t, 'B', p.Grid().Cell(0, 8).Rune)
}

func TestParserBackspace(t *testing.T) {
	p := NewParser(24, 80)

	p.ParseString("AB\bC")

	assert.Equal(t, "AC", p.Grid().RowText(0))
}

func TestParserCursorMovement(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRow int
		wantCol int
	}{
		{"up default", "\x1b[10;10H\x1b[A", 8, 9},
		{"up n", "\x1b[10;10H\x1b[3A", 6, 9},
		{"up zero means one", "\x1b[10;10H\x1b[0A", 8, 9},
		{"down", "\x1b[2B", 2, 0},
		{"right", "\x1b[5C", 0, 5},
		{"left clamps", "\x1b[5C\x1b[10D", 0, 0},
		{"down clamps", "\x1b[100B", 23, 0},
		{"right clamps", "\x1b[100C", 0, 79},
		{"position", "\x1b[5;10H", 4, 9},
		{"position f", "\x1b[5;10f", 4, 9},
		{"position default", "\x1b[5;10H\x1b[H", 0, 0},
		{"position row only", "\x1b[5H", 4, 0},
		{"position col only", "\x1b[;7H", 0, 6},
		{"position clamps", "\x1b[99;999H", 23, 79},
		{"column absolute", "\x1b[3;3H\x1b[20G", 2, 19},
		{"row absolute", "\x1b[3;3H\x1b[7d", 6, 2},
		{"next line", "\x1b[3;3H\x1b[2E", 4, 0},
		{"previous line", "\x1b[5;3H\x1b[2F", 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(24, 80)
			p.ParseString(tt.input)

			row, col := p.Grid().CursorPos()
			assert.Equal(t, tt.wantRow, row)
			assert.Equal(t, tt.wantCol, col)
		})
	}
}

func TestParserCursorClampsToScrollRegion(t *testing.T) {
	p := NewParser(24, 80)

	p.ParseString("\x1b[5;10r")
	p.ParseString("\x1b[7;1H\x1b[20A")

	row, _ := p.Grid().CursorPos()
	assert.Equal(t, 4, row)

	p.ParseString("\x1b[20B")
	row, _ = p.Grid().CursorPos()
	assert.Equal(t, 9, row)

	// CUP may leave the region; relative moves clamp back into it.
	p.ParseString("\x1b[20;1H\x1b[A")
	row, _ = p.Grid().CursorPos()
	assert.Equal(t, 9, row)
}

func TestParserSetScrollRegion(t *testing.T) {
	p := NewParser(24, 80)
	p.ParseString("\x1b[5;5H")

	p.ParseString("\x1b[2;10r")

	top, bottom := p.Grid().ScrollRegion()
	assert.Equal(t, 1, top)
	assert.Equal(t, 9, bottom)
	row, col := p.Grid().CursorPos()
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	p.ParseString("\x1b[r")
	top, bottom = p.Grid().ScrollRegion()
	assert.Equal(t, 0, top)
	assert.Equal(t, 23, bottom)
}

func TestParserEraseInDisplay(t *testing.T) {
	setup := func() *Parser {
		p := NewParser(3, 4)
		p.ParseString("aaaa\r\nbbbb\r\ncccc\x1b[2;2H")
		return p
	}

	tests := []struct {
		name string
		seq  string
		want string
	}{
		{"mode 0", "\x1b[J", "aaaa\nb\n"},
		{"mode 0 explicit", "\x1b[0J", "aaaa\nb\n"},
		{"mode 1", "\x1b[1J", "\n  bb\ncccc"},
		{"mode 2", "\x1b[2J", "\n\n"},
		{"unknown mode", "\x1b[7J", "aaaa\nbbbb\ncccc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := setup()
			p.ParseString(tt.seq)
			assert.Equal(t, tt.want, p.Grid().Text())
		})
	}
}

func TestParserEraseScrollback(t *testing.T) {
	p := NewParser(2, 10)
	p.ParseString("a\nb\nc\n")
	require.Positive(t, p.Grid().ScrollbackLen())

	p.ParseString("\x1b[3J")

	assert.Equal(t, 0, p.Grid().ScrollbackLen())
}

func TestParserEraseInLine(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		want string
	}{
		{"mode 0", "\x1b[K", "ab"},
		{"mode 1", "\x1b[1K", "   def"},
		{"mode 2", "\x1b[2K", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(2, 10)
			p.ParseString("abcdef\x1b[1;3H")
			p.ParseString(tt.seq)
			assert.Equal(t, tt.want, p.Grid().RowText(0))
		})
	}
}

func TestParserScrollUpDown(t *testing.T) {
	p := NewParser(3, 5)
	p.ParseString("1\r\n2\r\n3")

	p.ParseString("\x1b[S")
	assert.Equal(t, "2\n3\n", p.Grid().Text())

	p.ParseString("\x1b[2T")
	assert.Equal(t, "\n\n2", p.Grid().Text())
}

func TestParserInsertDeleteChars(t *testing.T) {
	p := NewParser(2, 8)
	p.ParseString("abcdef\x1b[1;2H")

	p.ParseString("\x1b[2@")
	assert.Equal(t, "a  bcdef", p.Grid().RowText(0))

	p.ParseString("\x1b[3P")
	assert.Equal(t, "acdef", p.Grid().RowText(0))

	p.ParseString("\x1b[2X")
	assert.Equal(t, "a  ef", p.Grid().RowText(0))
}

func TestParserInsertDeleteLines(t *testing.T) {
	p := NewParser(4, 4)
	p.ParseString("1\r\n2\r\n3\r\n4\x1b[2;1H")

	p.ParseString("\x1b[L")
	assert.Equal(t, "1\n\n2\n3", p.Grid().Text())

	p.ParseString("\x1b[2M")
	assert.Equal(t, "1\n3\n\n", p.Grid().Text())
}

func TestParserSGRForeground(t *testing.T) {
	p := NewParser(24, 80)

	p.ParseString("\x1b[31mRED\x1b[0mx")

	g := p.Grid()
	for col := 0; col < 3; col++ {
		assert.Equal(t, Red, g.Cell(0, col).Fg, "col %d", col)
	}
	assert.Equal(t, DefaultForeground, g.Cell(0, 3).Fg)
	assert.Equal(t, DefaultPen(), g.Pen())
}

func TestParserSGRResetClearsEverything(t *testing.T) {
	prefixes := []string{
		"\x1b[1;3;4;5;7;9m",
		"\x1b[31;42m",
		"\x1b[38;5;200;48;2;1;2;3m",
		"\x1b[1;95;105m",
		"",
	}
	resets := []string{"\x1b[0m", "\x1b[m"}

	for _, prefix := range prefixes {
		for _, reset := range resets {
			p := NewParser(2, 10)
			p.ParseString(prefix + reset + "z")

			c := p.Grid().Cell(0, 0)
			assert.Equal(t, DefaultForeground, c.Fg, "%q %q", prefix, reset)
			assert.Equal(t, DefaultBackground, c.Bg, "%q %q", prefix, reset)
			assert.Equal(t, AttrNone, c.Attrs, "%q %q", prefix, reset)
		}
	}
}

func TestParserSGRAttributes(t *testing.T) {
	tests := []struct {
		seq  string
		want Attrs
	}{
		{"\x1b[1m", AttrBold},
		{"\x1b[3m", AttrItalic},
		{"\x1b[4m", AttrUnderline},
		{"\x1b[5m", AttrBlink},
		{"\x1b[7m", AttrReverse},
		{"\x1b[9m", AttrStrikethrough},
		{"\x1b[1;3m", AttrBold | AttrItalic},
		{"\x1b[1;3;22m", AttrItalic},
		{"\x1b[3;23m", AttrNone},
		{"\x1b[4;24m", AttrNone},
		{"\x1b[5;25m", AttrNone},
		{"\x1b[7;27m", AttrNone},
		{"\x1b[9;29m", AttrNone},
		{"\x1b[1;0;4m", AttrUnderline},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			p := NewParser(2, 10)
			p.ParseString(tt.seq + "x")
			assert.Equal(t, tt.want, p.Grid().Cell(0, 0).Attrs)
		})
	}
}

func TestParserSGRColors(t *testing.T) {
	tests := []struct {
		name   string
		seq    string
		wantFg Color
		wantBg Color
	}{
		{"standard fg", "\x1b[32m", Green, DefaultBackground},
		{"bright fg", "\x1b[94m", BrightBlue, DefaultBackground},
		{"standard bg", "\x1b[41m", DefaultForeground, Red},
		{"bright bg", "\x1b[107m", DefaultForeground, BrightWhite},
		{"default fg", "\x1b[31;39m", DefaultForeground, DefaultBackground},
		{"default bg", "\x1b[41;49m", DefaultForeground, DefaultBackground},
		{"256 fg", "\x1b[38;5;196m", Indexed(196), DefaultBackground},
		{"256 bg", "\x1b[48;5;21m", DefaultForeground, Indexed(21)},
		{"rgb fg", "\x1b[38;2;10;20;30m", RGBColor(10, 20, 30), DefaultBackground},
		{"rgb bg", "\x1b[48;2;1;2;3m", DefaultForeground, RGBColor(1, 2, 3)},
		{"colon 256", "\x1b[38:5:100m", Indexed(100), DefaultBackground},
		{"colon rgb", "\x1b[38:2:7:8:9m", RGBColor(7, 8, 9), DefaultBackground},
		{"colon rgb colorspace", "\x1b[48:2::7:8:9m", DefaultForeground, RGBColor(7, 8, 9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(2, 10)
			p.ParseString(tt.seq + "x")
			c := p.Grid().Cell(0, 0)
			assert.Equal(t, tt.wantFg, c.Fg)
			assert.Equal(t, tt.wantBg, c.Bg)
		})
	}
}

func TestParserExtendedColorDoesNotLeakParameters(t *testing.T) {
	// Without consuming its arguments, 38;5;1 would read 1 as bold and
	// 38;2;4;9;7 would read 4 as underline, 9 as strikethrough and 7 as
	// reverse.
	p := NewParser(2, 10)
	p.ParseString("\x1b[38;5;1mx\x1b[0;38;2;4;9;7my")

	assert.Equal(t, AttrNone, p.Grid().Cell(0, 0).Attrs)
	assert.Equal(t, AttrNone, p.Grid().Cell(0, 1).Attrs)
	assert.Equal(t, RGBColor(4, 9, 7), p.Grid().Cell(0, 1).Fg)
}

func TestParserExtendedColorTruncated(t *testing.T) {
	p := NewParser(2, 10)
	p.ParseString("\x1b[31m\x1b[38;5mx")

	assert.Equal(t, Red, p.Grid().Cell(0, 0).Fg)

	p.ParseString("\x1b[38;7;1m\x1b[1my")
	assert.True(t, p.Grid().Cell(0, 1).Attrs.Has(AttrBold))
}

func TestParserCursorVisibility(t *testing.T) {
	p := NewParser(24, 80)

	p.ParseString("\x1b[?25l")
	assert.False(t, p.Grid().CursorVisible())

	p.ParseString("\x1b[?25h")
	assert.True(t, p.Grid().CursorVisible())

	p.ParseString("\x1b[?1049;25l")
	assert.False(t, p.Grid().CursorVisible())
}

func TestParserUnknownSequencesIgnored(t *testing.T) {
	p := NewParser(2, 20)

	p.ParseString("a\x1b[5zb\x1b[?2004hc\x1b(Bd\x1b[>0qe")

	assert.Equal(t, "abcde", p.Grid().RowText(0))
}

func TestParserSplitInput(t *testing.T) {
	input := []byte("\x1b[31mRED\x1b[0m héllo\x1b]2;title\x07世")

	whole := NewParser(2, 40)
	whole.Parse(input)

	split := NewParser(2, 40)
	for _, b := range input {
		split.Parse([]byte{b})
	}

	assert.Equal(t, whole.Grid().Text(), split.Grid().Text())
	assert.Equal(t, whole.Grid().Row(0), split.Grid().Row(0))
	assert.Equal(t, "title", split.Title())
}

func TestParserUTF8(t *testing.T) {
	p := NewParser(2, 20)

	p.ParseString("héllo 世界")

	assert.Equal(t, "héllo 世界", p.Grid().RowText(0))
}

func TestParserInvalidUTF8(t *testing.T) {
	p := NewParser(2, 20)

	p.Parse([]byte{'a', 0xC3, 'b', 0xFF, 'c'})

	assert.Equal(t, "a\uFFFDb\uFFFDc", p.Grid().RowText(0))
}

func TestParserTitle(t *testing.T) {
	var titles []string
	p := NewParser(2, 20, WithTitleHandler(func(s string) {
		titles = append(titles, s)
	}))

	p.ParseString("\x1b]0;first\x07")
	p.ParseString("\x1b]2;with;semicolon\x1b\\")
	p.ParseString("\x1b]1;icon only\x07")

	assert.Equal(t, "with;semicolon", p.Title())
	assert.Equal(t, []string{"first", "with;semicolon"}, titles)
	assert.Equal(t, "", p.Grid().RowText(0))
}

func TestParserEscapeSequences(t *testing.T) {
	p := NewParser(4, 10)

	p.ParseString("\x1b[2;3H\x1b7\x1b[H\x1b8")
	row, col := p.Grid().CursorPos()
	assert.Equal(t, 1, row)
	assert.Equal(t, 2, col)

	p.ParseString("\x1b[1;1Htop\x1bM")
	assert.Equal(t, "\ntop\n\n", p.Grid().Text(), "reverse index at top scrolls down")

	p.ParseString("\x1bc")
	assert.Equal(t, "\n\n\n", p.Grid().Text())
}

func TestParserSaveRestoreCSI(t *testing.T) {
	p := NewParser(4, 10)

	p.ParseString("\x1b[3;4H\x1b[s\x1b[H\x1b[u")

	row, col := p.Grid().CursorPos()
	assert.Equal(t, 2, row)
	assert.Equal(t, 3, col)
}

func TestParserDCSDiscarded(t *testing.T) {
	p := NewParser(2, 20)

	p.ParseString("a\x1bP1$qm\x1b\\b")

	assert.Equal(t, "ab", p.Grid().RowText(0))
}

func TestParserCancelAbortsSequence(t *testing.T) {
	p := NewParser(2, 20)

	p.ParseString("\x1b[31\x18x")

	assert.Equal(t, DefaultForeground, p.Grid().Cell(0, 0).Fg)
	assert.Equal(t, "x", p.Grid().RowText(0))
}

func TestParserResize(t *testing.T) {
	p := NewParser(24, 80)

	p.Resize(30, 100)

	rows, cols := p.Grid().Size()
	assert.Equal(t, 30, rows)
	assert.Equal(t, 100, cols)
}
