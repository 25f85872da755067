package render

import (
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

// keySequences maps special keys to what an xterm-compatible terminal
// sends for them.
var keySequences = map[tcell.Key]string{
	tcell.KeyEnter:      "\r",
	tcell.KeyTab:        "\t",
	tcell.KeyBacktab:    "\x1b[Z",
	tcell.KeyEscape:     "\x1b",
	tcell.KeyBackspace:  "\x7f",
	tcell.KeyBackspace2: "\x7f",
	tcell.KeyUp:         "\x1b[A",
	tcell.KeyDown:       "\x1b[B",
	tcell.KeyRight:      "\x1b[C",
	tcell.KeyLeft:       "\x1b[D",
	tcell.KeyHome:       "\x1b[H",
	tcell.KeyEnd:        "\x1b[F",
	tcell.KeyInsert:     "\x1b[2~",
	tcell.KeyDelete:     "\x1b[3~",
	tcell.KeyPgUp:       "\x1b[5~",
	tcell.KeyPgDn:       "\x1b[6~",
	tcell.KeyF1:         "\x1bOP",
	tcell.KeyF2:         "\x1bOQ",
	tcell.KeyF3:         "\x1bOR",
	tcell.KeyF4:         "\x1bOS",
	tcell.KeyF5:         "\x1b[15~",
	tcell.KeyF6:         "\x1b[17~",
	tcell.KeyF7:         "\x1b[18~",
	tcell.KeyF8:         "\x1b[19~",
	tcell.KeyF9:         "\x1b[20~",
	tcell.KeyF10:        "\x1b[21~",
	tcell.KeyF11:        "\x1b[23~",
	tcell.KeyF12:        "\x1b[24~",
}

// EncodeKey returns the bytes to write to the pty for ev, or nil for
// keys with no encoding. Alt prefixes the sequence with ESC.
func EncodeKey(ev *tcell.EventKey) []byte {
	var out []byte

	key := ev.Key()
	if key == tcell.KeyRune {
		out = utf8.AppendRune(nil, ev.Rune())
	} else if seq, ok := keySequences[key]; ok {
		out = []byte(seq)
	} else if key >= tcell.KeyCtrlSpace && key <= tcell.KeyCtrlUnderscore {
		out = []byte{byte(key)}
	}

	if out != nil && ev.Modifiers()&tcell.ModAlt != 0 {
		out = append([]byte{0x1b}, out...)
	}
	return out
}
