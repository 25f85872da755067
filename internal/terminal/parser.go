package terminal

import (
	"bytes"
	"sync"

	"go.uber.org/zap"
)

// Parser decodes a VT100/ANSI byte stream and applies it to a Grid.
// Input may be split at any byte boundary across calls to Parse.
type Parser struct {
	mu sync.Mutex

	grid    *Grid
	machine *machine

	title   string
	onTitle func(string)

	logger *zap.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithTitleHandler registers fn to be called when the window title
// changes.
func WithTitleHandler(fn func(title string)) ParserOption {
	return func(p *Parser) {
		p.onTitle = fn
	}
}

// WithLogger sets the logger for unhandled sequences.
func WithLogger(logger *zap.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a parser that owns a rows x cols grid.
func NewParser(rows, cols int, opts ...ParserOption) *Parser {
	p := &Parser{
		grid:    NewGrid(rows, cols),
		machine: newMachine(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse feeds data through the parser in order.
func (p *Parser) Parse(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.machine.advance(p, data)
}

// ParseString feeds s through the parser.
func (p *Parser) ParseString(s string) {
	p.Parse([]byte(s))
}

// Grid returns the grid the parser writes to.
func (p *Parser) Grid() *Grid {
	return p.grid
}

// Resize resizes the grid.
func (p *Parser) Resize(rows, cols int) {
	p.grid.Resize(rows, cols)
}

// Title returns the last title set by OSC 0 or 2.
func (p *Parser) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

// Print implements Performer.
func (p *Parser) Print(r rune) {
	p.grid.WriteRune(r)
}

// Execute implements Performer.
func (p *Parser) Execute(b byte) {
	switch b {
	case '\n', '\v', '\f':
		p.grid.Newline()
	case '\r':
		p.grid.CarriageReturn()
	case '\t':
		p.grid.Tab()
	case '\b':
		p.grid.Backspace()
	}
}

// CSIDispatch implements Performer.
func (p *Parser) CSIDispatch(params *Params, intermediates []byte, ignore bool, final byte) {
	if ignore {
		return
	}
	private := len(intermediates) > 0 && intermediates[0] == '?'

	g := p.grid
	switch final {
	case 'A':
		g.CursorUp(params.Get(0, 1))
	case 'B', 'e':
		g.CursorDown(params.Get(0, 1))
	case 'C', 'a':
		g.CursorRight(params.Get(0, 1))
	case 'D':
		g.CursorLeft(params.Get(0, 1))
	case 'E':
		g.CursorDown(params.Get(0, 1))
		g.CarriageReturn()
	case 'F':
		g.CursorUp(params.Get(0, 1))
		g.CarriageReturn()
	case 'G', '`':
		g.SetCursorCol(params.Get(0, 1) - 1)
	case 'd':
		g.SetCursorRow(params.Get(0, 1) - 1)
	case 'H', 'f':
		g.SetCursor(params.Get(0, 1)-1, params.Get(1, 1)-1)
	case 'J':
		p.eraseInDisplay(params.Get(0, 0))
	case 'K':
		switch params.Get(0, 0) {
		case 0:
			g.ClearLineRight()
		case 1:
			g.ClearLineLeft()
		case 2:
			g.ClearLine()
		}
	case 'S':
		if !private {
			g.ScrollUp(params.Get(0, 1))
		}
	case 'T':
		g.ScrollDown(params.Get(0, 1))
	case 'L':
		g.InsertLines(params.Get(0, 1))
	case 'M':
		g.DeleteLines(params.Get(0, 1))
	case '@':
		if len(intermediates) == 0 {
			g.InsertChars(params.Get(0, 1))
		}
	case 'P':
		g.DeleteChars(params.Get(0, 1))
	case 'X':
		g.EraseChars(params.Get(0, 1))
	case 'm':
		if len(intermediates) == 0 {
			p.selectGraphicRendition(params)
		}
	case 'h', 'l':
		p.setMode(params, final == 'h')
	case 'r':
		if len(intermediates) == 0 {
			rows := g.Rows()
			g.SetScrollRegion(params.Get(0, 1)-1, params.Get(1, rows)-1)
			g.SetCursor(0, 0)
		}
	case 's':
		if params.Len() == 0 {
			g.SaveCursor()
		}
	case 'u':
		if len(intermediates) == 0 {
			g.RestoreCursor()
		}
	default:
		p.logger.Debug("unhandled csi",
			zap.String("final", string(final)),
			zap.ByteString("intermediates", intermediates))
	}
}

func (p *Parser) eraseInDisplay(mode int) {
	switch mode {
	case 0:
		p.grid.ClearBelow()
	case 1:
		p.grid.ClearAbove()
	case 2:
		p.grid.ClearScreen()
	case 3:
		p.grid.ClearScrollback()
	}
}

// setMode handles SM/RM. Only cursor visibility (25) is tracked.
func (p *Parser) setMode(params *Params, set bool) {
	for i := 0; i < params.Len(); i++ {
		if params.Get(i, 0) == 25 {
			p.grid.SetCursorVisible(set)
		}
	}
}

// selectGraphicRendition applies SGR parameters to the grid's pen.
// Each parameter is applied in order. Extended colors (38 and 48) take
// their arguments either as ':' subparameters or from the following
// parameters, which are then skipped.
func (p *Parser) selectGraphicRendition(params *Params) {
	pen := p.grid.Pen()
	if params.Len() == 0 {
		p.grid.SetPen(DefaultPen())
		return
	}

	for i := 0; i < params.Len(); i++ {
		group := params.Group(i)
		code := int(group[0])
		switch {
		case code == 0:
			pen = DefaultPen()
		case code == 1:
			pen.Attrs |= AttrBold
		case code == 3:
			pen.Attrs |= AttrItalic
		case code == 4:
			pen.Attrs |= AttrUnderline
		case code == 5:
			pen.Attrs |= AttrBlink
		case code == 7:
			pen.Attrs |= AttrReverse
		case code == 9:
			pen.Attrs |= AttrStrikethrough
		case code == 22:
			pen.Attrs &^= AttrBold
		case code == 23:
			pen.Attrs &^= AttrItalic
		case code == 24:
			pen.Attrs &^= AttrUnderline
		case code == 25:
			pen.Attrs &^= AttrBlink
		case code == 27:
			pen.Attrs &^= AttrReverse
		case code == 29:
			pen.Attrs &^= AttrStrikethrough
		case code >= 30 && code <= 37, code >= 90 && code <= 97:
			pen.Fg = FromANSICode(code)
		case code == 39:
			pen.Fg = DefaultForeground
		case code >= 40 && code <= 47, code >= 100 && code <= 107:
			pen.Bg = FromANSICode(code - 10)
		case code == 49:
			pen.Bg = DefaultBackground
		case code == 38, code == 48:
			c, ok, skip := extendedColor(params, i)
			i += skip
			if !ok {
				continue
			}
			if code == 38 {
				pen.Fg = c
			} else {
				pen.Bg = c
			}
		}
	}

	p.grid.SetPen(pen)
}

// extendedColor decodes the color selected by the 38 or 48 at group i.
// It returns the number of following groups consumed.
func extendedColor(params *Params, i int) (Color, bool, int) {
	group := params.Group(i)
	if len(group) > 1 {
		c, ok, _ := colorFromArgs(group[1:])
		return c, ok, 0
	}

	args := make([]uint16, 0, 4)
	for j := i + 1; j < params.Len() && len(args) < 4; j++ {
		args = append(args, params.Group(j)[0])
		if len(args) == 2 && args[0] == 5 {
			break
		}
	}
	return colorFromArgs(args)
}

// colorFromArgs decodes "5;n" or "2;r;g;b". It returns how many arguments
// the selector spans, even when values are missing or out of range.
func colorFromArgs(args []uint16) (Color, bool, int) {
	if len(args) == 0 {
		return Color{}, false, 0
	}
	switch args[0] {
	case 5:
		if len(args) < 2 || args[1] > 255 {
			return Color{}, false, min(len(args), 2)
		}
		return Indexed(uint8(args[1])), true, 2
	case 2:
		rgb := args[1:]
		if len(rgb) > 3 {
			// "2:colorspace:r:g:b" carries a colorspace id first.
			rgb = rgb[len(rgb)-3:]
		}
		if len(rgb) < 3 {
			return Color{}, false, len(args)
		}
		if rgb[0] > 255 || rgb[1] > 255 || rgb[2] > 255 {
			return Color{}, false, 4
		}
		return RGBColor(uint8(rgb[0]), uint8(rgb[1]), uint8(rgb[2])), true, 4
	default:
		return Color{}, false, 1
	}
}

// ESCDispatch implements Performer.
func (p *Parser) ESCDispatch(intermediates []byte, ignore bool, final byte) {
	if ignore || len(intermediates) > 0 {
		return
	}
	switch final {
	case '7':
		p.grid.SaveCursor()
	case '8':
		p.grid.RestoreCursor()
	case 'D':
		p.grid.LineFeed()
	case 'E':
		p.grid.Newline()
	case 'M':
		p.grid.ReverseIndex()
	case 'c':
		p.grid.Reset()
		p.setTitle("")
	}
}

// OSCDispatch implements Performer.
func (p *Parser) OSCDispatch(params [][]byte, bellTerminated bool) {
	if len(params) < 2 {
		return
	}
	switch string(params[0]) {
	case "0", "2":
		p.setTitle(string(bytes.Join(params[1:], []byte{';'})))
	}
}

func (p *Parser) setTitle(title string) {
	if title == p.title {
		return
	}
	p.title = title
	if p.onTitle != nil {
		p.onTitle(title)
	}
}

// Hook implements Performer. Device control strings are consumed and
// discarded.
func (p *Parser) Hook(params *Params, intermediates []byte, ignore bool, final byte) {}

// Put implements Performer.
func (p *Parser) Put(b byte) {}

// Unhook implements Performer.
func (p *Parser) Unhook() {}

var _ Performer = (*Parser)(nil)
