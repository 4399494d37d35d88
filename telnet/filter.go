package telnet

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// outBufSize is the capacity of the outbound half-duplex buffer. Data only
// accumulates here while the peer has not suppressed Go-Ahead; a chunk that
// would overflow forces an early flush.
const outBufSize = 4096

// Terminal escape sequences forwarded to the emulator for the EC and EL
// commands: cursor left + erase character, and erase whole line.
var (
	escEraseChar = []byte("\x1b[D\x1b[K")
	escEraseLine = []byte("\x1b[2K")
)

var aytReply = []byte("yes, I'm here\r\n")

// Emulator is the terminal emulator consumer the filter feeds. AppendOutput
// pushes raw display bytes, NotifyUpdate signals that a batch is complete and
// the display may redraw.
type Emulator interface {
	AppendOutput(p []byte)
	NotifyUpdate()
}

// Filter sits between a raw peer byte stream and a terminal emulator. The
// outbound path (Write) turns keystrokes into a wire-correct telnet stream;
// the inbound path (ProcessInput) strips and answers telnet commands and
// forwards everything else to the emulator.
//
// A Filter is safe for one inbound producer and one outbound producer running
// concurrently. It never owns the connection: the transport is any io.Writer,
// and inbound bytes are handed in by whoever reads the socket.
type Filter struct {
	mu  sync.Mutex
	w   io.Writer
	emu Emulator

	// Negotiated protocol state. Go-Ahead suppression defaults to on in both
	// directions so that plain servers work without any negotiation; the
	// first IAC from a real telnetd resets both to the RFC default and
	// renegotiates (see initTelnet).
	peerIsTelnetd         bool
	peerEchoesInput       bool
	peerSuppressedGoAhead bool
	echoInput             bool
	suppressGoAhead       bool

	// Outstanding requests we initiated, so the matching answer is not
	// answered again.
	doSuppressGaRequested   bool
	willSuppressGaRequested bool

	// Command parser cursor. Input may be chunked anywhere, including in the
	// middle of a command, so this state lives across ProcessInput calls.
	inCommand   bool
	command     byte
	inSubParams bool
	lastByte    byte

	outBuf  [outBufSize]byte
	outLen  int
	display []byte

	showGoAhead bool
	trace       func(msg string)
	traces      []string
}

// NewFilter returns a filter writing peer-bound bytes to w and display-bound
// bytes to emu.
func NewFilter(w io.Writer, emu Emulator) *Filter {
	return &Filter{
		w:   w,
		emu: emu,

		peerSuppressedGoAhead: true,
		suppressGoAhead:       true,
	}
}

// SetTrace installs a hook that receives a line for every telnet command sent
// or received. Pass nil to disable.
func (f *Filter) SetTrace(fn func(msg string)) {
	f.mu.Lock()
	f.trace = fn
	f.mu.Unlock()
}

// SetShowGoAhead makes received Go-Ahead signals visible in the display
// stream as a "[GA]" marker.
func (f *Filter) SetShowGoAhead(on bool) {
	f.mu.Lock()
	f.showGoAhead = on
	f.mu.Unlock()
}

// PeerEchoesInput reports whether the remote currently echoes our input. When
// false the filter mirrors outbound data to the emulator itself.
func (f *Filter) PeerEchoesInput() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peerEchoesInput
}

// PeerIsTelnetd reports whether an IAC has ever been seen from the remote.
func (f *Filter) PeerIsTelnetd() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peerIsTelnetd
}

// Write accepts raw bytes destined for the peer. Every CR is expanded to
// CR LF on the wire; a CR not meaning newline would need to be sent as CR NUL
// instead, but this client treats all outbound CRs as newlines. When the peer
// does not echo, the transformed bytes are mirrored to the emulator so the
// user sees what they typed.
func (f *Filter) Write(p []byte) error {
	f.mu.Lock()

	if bytes.IndexByte(p, '\r') >= 0 {
		expanded := make([]byte, 0, len(p)+bytes.Count(p, []byte{'\r'}))
		for _, b := range p {
			expanded = append(expanded, b)
			if b == '\r' {
				expanded = append(expanded, '\n')
			}
		}
		p = expanded
	}

	err := f.send(p)
	mirror := err == nil && !f.peerEchoesInput

	// Emulator calls happen outside the lock: the emulator may hand trigger
	// output straight back into Write.
	f.mu.Unlock()

	if mirror {
		f.emu.AppendOutput(p)
		f.emu.NotifyUpdate()
	}
	return err
}

// ProcessInput consumes a chunk of raw bytes from the peer. Telnet commands
// are stripped and acted on, everything else goes to the emulator. Any byte
// value is legal input; only transport write failures produce an error.
func (f *Filter) ProcessInput(p []byte) error {
	f.mu.Lock()

	f.display = f.display[:0]
	var err error
	for _, b := range p {
		err = f.processByte(b)
		f.lastByte = b
		if err != nil {
			break
		}
	}
	display := f.display
	traces := f.traces
	f.traces = nil
	traceFn := f.trace

	// Emulator and trace calls happen outside the lock: both may call back
	// into the filter. The display slice is only valid until the next
	// ProcessInput, so the emulator must copy.
	f.mu.Unlock()

	if traceFn != nil {
		for _, msg := range traces {
			traceFn(msg)
		}
	}
	if len(display) > 0 {
		f.emu.AppendOutput(display)
		f.emu.NotifyUpdate()
	}
	return err
}

func (f *Filter) processByte(b byte) error {
	if f.inSubParams {
		// Parameter payloads are consumed and discarded.
		if b == SE {
			f.endCommand()
		}
		return nil
	}
	if f.inCommand {
		return f.processCommandByte(b)
	}

	switch {
	case b == IAC:
		f.inCommand = true
		if !f.peerIsTelnetd {
			f.peerIsTelnetd = true
			return f.initTelnet()
		}
	case b == GA:
		return f.goAhead()
	case b == 0 && f.lastByte == '\r':
		// CR NUL on the wire marks a bare carriage return; the NUL is
		// swallowed but still eligible for peer echo.
		if f.echoInput {
			return f.send([]byte{0})
		}
	default:
		f.display = append(f.display, b)
		if f.echoInput {
			return f.send([]byte{b})
		}
	}
	return nil
}

func (f *Filter) processCommandByte(b byte) error {
	switch f.command {
	case WILL, WONT, DO, DONT:
		verb := f.command
		f.endCommand()
		f.tracef("RCVD IAC %s %s", CommandName(verb), OptionName(b))
		return f.negotiate(verb, b)
	}

	switch b {
	case WILL, WONT, DO, DONT:
		// Option byte follows.
		f.command = b
	case SB:
		f.inCommand = false
		f.inSubParams = true
	case IAC:
		// Escaped 0xFF data byte.
		f.display = append(f.display, IAC)
		f.endCommand()
	case EC:
		f.display = append(f.display, escEraseChar...)
		f.endCommand()
	case EL:
		f.display = append(f.display, escEraseLine...)
		f.endCommand()
	case AYT:
		f.endCommand()
		f.tracef("RCVD IAC AYT")
		_, err := f.w.Write(aytReply)
		return err
	case GA:
		f.endCommand()
		f.tracef("RCVD IAC GA")
		return f.goAhead()
	default:
		// NOP, DM, BRK, IP, AO and anything unrecognized.
		f.endCommand()
		f.tracef("RCVD IAC %s", CommandName(b))
	}
	return nil
}

func (f *Filter) endCommand() {
	f.inCommand = false
	f.command = 0
	f.inSubParams = false
}

// goAhead handles the half-duplex turn signal: when suppression is off on our
// side the GA is answered in kind, and the outbound buffer is released either
// way.
func (f *Filter) goAhead() error {
	if f.showGoAhead {
		f.display = append(f.display, []byte("[GA]")...)
	}
	if f.peerSuppressedGoAhead {
		return nil
	}
	if !f.suppressGoAhead {
		if err := f.send([]byte{IAC, GA}); err != nil {
			return err
		}
	}
	return f.flush()
}

// initTelnet runs once, on the first IAC ever seen. The easy-going defaults
// for dumb servers are dropped in favor of the RFC ones, then both directions
// of SUPPRESS-GO-AHEAD are requested straight away: full negotiated mode is
// far more convenient than raw half-duplex GA turn taking.
func (f *Filter) initTelnet() error {
	f.peerSuppressedGoAhead = false
	f.suppressGoAhead = false

	f.doSuppressGaRequested = true
	if err := f.sendOption(DO, OptSuppressGoAhead); err != nil {
		return err
	}
	f.willSuppressGaRequested = true
	return f.sendOption(WILL, OptSuppressGoAhead)
}

func (f *Filter) negotiate(verb, opt byte) error {
	switch verb {
	case WILL:
		return f.peerWill(opt)
	case WONT:
		return f.peerWont(opt)
	case DO:
		return f.peerDo(opt)
	case DONT:
		return f.peerDont(opt)
	}
	return nil
}

// The four negotiation handlers below share one invariant: a reply is sent
// only when it changes local state. Answering a request that matches current
// state risks an endless ping-pong with a symmetric implementation.

func (f *Filter) peerWill(opt byte) error {
	switch opt {
	case OptEcho:
		if !f.peerEchoesInput {
			f.peerEchoesInput = true
			return f.sendOption(DO, OptEcho)
		}
	case OptSuppressGoAhead:
		var err error
		if !f.doSuppressGaRequested && !f.peerSuppressedGoAhead {
			err = f.sendOption(DO, OptSuppressGoAhead)
		}
		f.doSuppressGaRequested = false
		f.peerSuppressedGoAhead = true
		if err != nil {
			return err
		}
		// Buffered data no longer waits for a GA.
		return f.flush()
	default:
		return f.sendOption(DONT, opt)
	}
	return nil
}

func (f *Filter) peerWont(opt byte) error {
	switch opt {
	case OptEcho:
		if f.peerEchoesInput {
			f.peerEchoesInput = false
			return f.sendOption(DONT, OptEcho)
		}
	case OptSuppressGoAhead:
		var err error
		if !f.doSuppressGaRequested && f.peerSuppressedGoAhead {
			err = f.sendOption(DONT, OptSuppressGoAhead)
		}
		f.doSuppressGaRequested = false
		f.peerSuppressedGoAhead = false
		return err
	}
	return nil
}

func (f *Filter) peerDo(opt byte) error {
	switch opt {
	case OptEcho:
		// A client never echoes on the peer's behalf.
		return f.sendOption(WONT, OptEcho)
	case OptSuppressGoAhead:
		var err error
		if !f.willSuppressGaRequested && !f.suppressGoAhead {
			err = f.sendOption(WILL, OptSuppressGoAhead)
		}
		f.willSuppressGaRequested = false
		f.suppressGoAhead = true
		return err
	default:
		return f.sendOption(WONT, opt)
	}
}

func (f *Filter) peerDont(opt byte) error {
	switch opt {
	case OptEcho:
		if f.echoInput {
			f.echoInput = false
			return f.sendOption(WONT, OptEcho)
		}
	case OptSuppressGoAhead:
		var err error
		if !f.willSuppressGaRequested && f.suppressGoAhead {
			err = f.sendOption(WONT, OptSuppressGoAhead)
		}
		f.willSuppressGaRequested = false
		f.suppressGoAhead = false
		return err
	}
	return nil
}

// sendOption writes IAC verb option straight to the transport. Negotiation
// replies must never sit in the flow-control buffer or pass through CR
// expansion.
func (f *Filter) sendOption(verb, opt byte) error {
	f.tracef("SENT IAC %s %s", CommandName(verb), OptionName(opt))
	_, err := f.w.Write([]byte{IAC, verb, opt})
	return err
}

// send pushes bytes toward the peer, buffering while the peer still expects
// GA turn taking.
func (f *Filter) send(p []byte) error {
	if f.peerSuppressedGoAhead {
		_, err := f.w.Write(p)
		return err
	}
	if f.outLen+len(p) > outBufSize {
		// Flushing early beats growing without bound or dropping data, even
		// if it is not strictly correct half-duplex behavior.
		if err := f.flush(); err != nil {
			return err
		}
	}
	if len(p) > outBufSize {
		_, err := f.w.Write(p)
		return err
	}
	copy(f.outBuf[f.outLen:], p)
	f.outLen += len(p)
	return nil
}

// flush writes the whole buffered region to the transport.
func (f *Filter) flush() error {
	if f.outLen == 0 {
		return nil
	}
	n := f.outLen
	f.outLen = 0
	_, err := f.w.Write(f.outBuf[:n])
	return err
}

// tracef queues a trace line. The hook itself only runs once the filter
// mutex is released, since it may block or call back into the filter.
func (f *Filter) tracef(format string, args ...interface{}) {
	if f.trace != nil {
		f.traces = append(f.traces, fmt.Sprintf(format, args...))
	}
}
