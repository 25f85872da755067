package terminal

import "unicode/utf8"

const (
	maxParams        = 32
	maxIntermediates = 2
	maxOSCParams     = 16
	maxOSCBytes      = 4096
)

// Performer receives the actions decoded by the state machine.
type Performer interface {
	// Print draws a character.
	Print(r rune)
	// Execute runs a C0 control function.
	Execute(b byte)
	// CSIDispatch runs a control sequence. ignore is set when the sequence
	// overflowed its parameter or intermediate storage.
	CSIDispatch(params *Params, intermediates []byte, ignore bool, final byte)
	// ESCDispatch runs an escape sequence.
	ESCDispatch(intermediates []byte, ignore bool, final byte)
	// OSCDispatch runs an operating system command. params are the ';'
	// separated fields.
	OSCDispatch(params [][]byte, bellTerminated bool)
	// Hook starts a device control string.
	Hook(params *Params, intermediates []byte, ignore bool, final byte)
	// Put passes one byte of a device control string.
	Put(b byte)
	// Unhook ends a device control string.
	Unhook()
}

// Params holds the numeric parameters of a control sequence. Each group
// is a parameter followed by its ':' separated subparameters. Missing
// parameters are 0.
type Params struct {
	values  [maxParams]uint16
	nvalues int
	starts  [maxParams]uint8
	ngroups int
}

// Len returns the number of parameter groups.
func (p *Params) Len() int {
	return p.ngroups
}

// Group returns parameter i with its subparameters.
func (p *Params) Group(i int) []uint16 {
	if i < 0 || i >= p.ngroups {
		return nil
	}
	start := int(p.starts[i])
	end := p.nvalues
	if i+1 < p.ngroups {
		end = int(p.starts[i+1])
	}
	return p.values[start:end]
}

// Get returns the first value of group i, or def when the group is
// missing or zero.
func (p *Params) Get(i, def int) int {
	g := p.Group(i)
	if len(g) == 0 || g[0] == 0 {
		return def
	}
	return int(g[0])
}

func (p *Params) clear() {
	p.nvalues = 0
	p.ngroups = 0
}

// push appends v. A sub value extends the current group. It reports
// false when the storage is full.
func (p *Params) push(v uint16, sub bool) bool {
	if p.nvalues >= maxParams {
		return false
	}
	if !sub || p.ngroups == 0 {
		p.starts[p.ngroups] = uint8(p.nvalues)
		p.ngroups++
	}
	p.values[p.nvalues] = v
	p.nvalues++
	return true
}

type vtState uint8

const (
	stateGround vtState = iota
	stateEscape
	stateEscapeIntermediate
	stateCSIEntry
	stateCSIParam
	stateCSIIntermediate
	stateCSIIgnore
	stateOSCString
	stateDCSEntry
	stateDCSParam
	stateDCSIntermediate
	stateDCSPassthrough
	stateDCSIgnore
	stateSOSPMAPCString
)

// machine is a byte-at-a-time VT500 style parser. It keeps all partial
// state between calls, so input may be split anywhere, including inside
// a UTF-8 sequence.
type machine struct {
	state vtState

	params     Params
	cur        uint16
	curSub     bool
	paramsSeen bool

	intermediates [maxIntermediates]byte
	ninter        int
	ignore        bool

	osc       []byte
	oscBreaks []int

	utf8Buf  [utf8.UTFMax]byte
	utf8Len  int
	utf8Need int
}

func newMachine() *machine {
	return &machine{
		osc:       make([]byte, 0, 256),
		oscBreaks: make([]int, 0, maxOSCParams),
	}
}

// advance feeds data through the machine.
func (m *machine) advance(p Performer, data []byte) {
	for _, b := range data {
		m.step(p, b)
	}
}

func (m *machine) step(p Performer, b byte) {
	if m.utf8Need > 0 {
		if b&0xC0 == 0x80 {
			m.utf8Buf[m.utf8Len] = b
			m.utf8Len++
			if m.utf8Len == m.utf8Need {
				r, _ := utf8.DecodeRune(m.utf8Buf[:m.utf8Len])
				m.utf8Need, m.utf8Len = 0, 0
				p.Print(r)
			}
			return
		}
		// Truncated sequence.
		m.utf8Need, m.utf8Len = 0, 0
		p.Print(utf8.RuneError)
	}

	// Transitions valid from any state.
	switch b {
	case 0x18, 0x1A:
		m.exitString(p, false)
		p.Execute(b)
		m.state = stateGround
		return
	case 0x1B:
		m.exitString(p, true)
		m.enterEscape()
		return
	}

	switch m.state {
	case stateGround:
		m.ground(p, b)
	case stateEscape:
		m.escape(p, b)
	case stateEscapeIntermediate:
		m.escapeIntermediate(p, b)
	case stateCSIEntry:
		m.csiEntry(p, b)
	case stateCSIParam:
		m.csiParam(p, b)
	case stateCSIIntermediate:
		m.csiIntermediate(p, b)
	case stateCSIIgnore:
		m.csiIgnore(p, b)
	case stateOSCString:
		m.oscString(p, b)
	case stateDCSEntry:
		m.dcsEntry(p, b)
	case stateDCSParam:
		m.dcsParam(p, b)
	case stateDCSIntermediate:
		m.dcsIntermediate(p, b)
	case stateDCSPassthrough:
		m.dcsPassthrough(p, b)
	case stateDCSIgnore, stateSOSPMAPCString:
		// Swallowed until ESC, CAN or SUB.
	}
}

// exitString runs the exit action of string states. An ESC ends an OSC
// string (it is the first byte of ST); CAN and SUB abort it.
func (m *machine) exitString(p Performer, byESC bool) {
	switch m.state {
	case stateOSCString:
		if byESC {
			m.oscDispatch(p, false)
		}
	case stateDCSPassthrough:
		p.Unhook()
	}
}

func (m *machine) enterEscape() {
	m.state = stateEscape
	m.ninter = 0
	m.ignore = false
}

func (m *machine) enterCSI(state vtState) {
	m.state = state
	m.params.clear()
	m.cur = 0
	m.curSub = false
	m.paramsSeen = false
}

func isC0(b byte) bool {
	return b < 0x20
}

func (m *machine) ground(p Performer, b byte) {
	switch {
	case isC0(b):
		p.Execute(b)
	case b < 0x7F:
		p.Print(rune(b))
	case b == 0x7F:
		// DEL is ignored.
	default:
		m.utf8Start(p, b)
	}
}

func (m *machine) utf8Start(p Performer, b byte) {
	switch {
	case b >= 0xC2 && b <= 0xDF:
		m.utf8Need = 2
	case b >= 0xE0 && b <= 0xEF:
		m.utf8Need = 3
	case b >= 0xF0 && b <= 0xF4:
		m.utf8Need = 4
	default:
		p.Print(utf8.RuneError)
		return
	}
	m.utf8Buf[0] = b
	m.utf8Len = 1
}

func (m *machine) collect(b byte) {
	if m.ninter >= maxIntermediates {
		m.ignore = true
		return
	}
	m.intermediates[m.ninter] = b
	m.ninter++
}

func (m *machine) escape(p Performer, b byte) {
	switch {
	case isC0(b):
		p.Execute(b)
	case b >= 0x20 && b <= 0x2F:
		m.collect(b)
		m.state = stateEscapeIntermediate
	case b == '[':
		m.enterCSI(stateCSIEntry)
	case b == ']':
		m.osc = m.osc[:0]
		m.oscBreaks = m.oscBreaks[:0]
		m.state = stateOSCString
	case b == 'P':
		m.enterCSI(stateDCSEntry)
	case b == 'X' || b == '^' || b == '_':
		m.state = stateSOSPMAPCString
	case b >= 0x30 && b <= 0x7E:
		p.ESCDispatch(m.intermediates[:m.ninter], m.ignore, b)
		m.state = stateGround
	}
}

func (m *machine) escapeIntermediate(p Performer, b byte) {
	switch {
	case isC0(b):
		p.Execute(b)
	case b >= 0x20 && b <= 0x2F:
		m.collect(b)
	case b >= 0x30 && b <= 0x7E:
		p.ESCDispatch(m.intermediates[:m.ninter], m.ignore, b)
		m.state = stateGround
	}
}

// param consumes a digit or separator.
func (m *machine) param(b byte) {
	m.paramsSeen = true
	switch b {
	case ';', ':':
		m.finishParam()
		m.curSub = b == ':'
	default:
		d := uint16(b - '0')
		if m.cur > (0xFFFF-d)/10 {
			m.cur = 0xFFFF
		} else {
			m.cur = m.cur*10 + d
		}
	}
}

func (m *machine) finishParam() {
	if !m.params.push(m.cur, m.curSub) {
		m.ignore = true
	}
	m.cur = 0
}

func (m *machine) finishParams() {
	if m.paramsSeen {
		m.finishParam()
	}
}

func isParamByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == ':' || b == ';'
}

func (m *machine) csiEntry(p Performer, b byte) {
	switch {
	case isC0(b):
		p.Execute(b)
	case b >= 0x20 && b <= 0x2F:
		m.collect(b)
		m.state = stateCSIIntermediate
	case isParamByte(b):
		m.param(b)
		m.state = stateCSIParam
	case b >= 0x3C && b <= 0x3F:
		m.collect(b)
		m.state = stateCSIParam
	case b >= 0x40 && b <= 0x7E:
		m.csiDispatch(p, b)
	}
}

func (m *machine) csiParam(p Performer, b byte) {
	switch {
	case isC0(b):
		p.Execute(b)
	case isParamByte(b):
		m.param(b)
	case b >= 0x3C && b <= 0x3F:
		m.state = stateCSIIgnore
	case b >= 0x20 && b <= 0x2F:
		m.collect(b)
		m.state = stateCSIIntermediate
	case b >= 0x40 && b <= 0x7E:
		m.csiDispatch(p, b)
	}
}

func (m *machine) csiIntermediate(p Performer, b byte) {
	switch {
	case isC0(b):
		p.Execute(b)
	case b >= 0x20 && b <= 0x2F:
		m.collect(b)
	case b >= 0x30 && b <= 0x3F:
		m.state = stateCSIIgnore
	case b >= 0x40 && b <= 0x7E:
		m.csiDispatch(p, b)
	}
}

func (m *machine) csiIgnore(p Performer, b byte) {
	switch {
	case isC0(b):
		p.Execute(b)
	case b >= 0x40 && b <= 0x7E:
		m.state = stateGround
	}
}

func (m *machine) csiDispatch(p Performer, final byte) {
	m.finishParams()
	p.CSIDispatch(&m.params, m.intermediates[:m.ninter], m.ignore, final)
	m.state = stateGround
}

func (m *machine) oscString(p Performer, b byte) {
	switch {
	case b == 0x07:
		m.oscDispatch(p, true)
		m.state = stateGround
	case b == ';':
		if len(m.oscBreaks) < maxOSCParams-1 {
			m.oscBreaks = append(m.oscBreaks, len(m.osc))
			return
		}
		m.oscPut(b)
	case isC0(b):
		// Ignored inside the string.
	default:
		m.oscPut(b)
	}
}

func (m *machine) oscPut(b byte) {
	if len(m.osc) < maxOSCBytes {
		m.osc = append(m.osc, b)
	}
}

func (m *machine) oscDispatch(p Performer, bell bool) {
	params := make([][]byte, 0, len(m.oscBreaks)+1)
	start := 0
	for _, end := range m.oscBreaks {
		params = append(params, m.osc[start:end])
		start = end
	}
	params = append(params, m.osc[start:])
	p.OSCDispatch(params, bell)
}

func (m *machine) dcsEntry(p Performer, b byte) {
	switch {
	case isC0(b):
	case b >= 0x20 && b <= 0x2F:
		m.collect(b)
		m.state = stateDCSIntermediate
	case isParamByte(b):
		m.param(b)
		m.state = stateDCSParam
	case b >= 0x3C && b <= 0x3F:
		m.collect(b)
		m.state = stateDCSParam
	case b >= 0x40 && b <= 0x7E:
		m.hook(p, b)
	}
}

func (m *machine) dcsParam(p Performer, b byte) {
	switch {
	case isC0(b):
	case isParamByte(b):
		m.param(b)
	case b >= 0x3C && b <= 0x3F:
		m.state = stateDCSIgnore
	case b >= 0x20 && b <= 0x2F:
		m.collect(b)
		m.state = stateDCSIntermediate
	case b >= 0x40 && b <= 0x7E:
		m.hook(p, b)
	}
}

func (m *machine) dcsIntermediate(p Performer, b byte) {
	switch {
	case isC0(b):
	case b >= 0x20 && b <= 0x2F:
		m.collect(b)
	case b >= 0x30 && b <= 0x3F:
		m.state = stateDCSIgnore
	case b >= 0x40 && b <= 0x7E:
		m.hook(p, b)
	}
}

func (m *machine) hook(p Performer, final byte) {
	m.finishParams()
	p.Hook(&m.params, m.intermediates[:m.ninter], m.ignore, final)
	m.state = stateDCSPassthrough
}

func (m *machine) dcsPassthrough(p Performer, b byte) {
	if b == 0x7F {
		return
	}
	p.Put(b)
}
