package session

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"unicode/utf8"

	"teleterm/proto"
	"teleterm/shared"
)

const scrollbackBytes = 256 * 1024

// outChunk is one unit of finished output. Local notices reach the display
// and scrollback like everything else but are kept away from the trigger
// line assembler, which only sees actual peer output.
type outChunk struct {
	p      []byte
	notice bool
}

// Terminal is the session's terminal emulator endpoint. The telnet filter
// pushes display bytes into it; it decodes the session charset, keeps
// scrollback, forwards output to the attached UI client, and feeds complete
// lines to the trigger engine.
type Terminal struct {
	mu      sync.Mutex
	charset shared.Charset
	pending []byte // bytes appended since the last update signal
	raw     []byte // undecoded tail waiting for a complete rune

	outCh   chan outChunk
	closeCh chan struct{}

	clientMu sync.Mutex
	client   net.Conn // attached UI, nil while detached

	engine shared.ScriptEngine
	sendFn func(data []byte)
	lines  bytes.Buffer

	scrollback *Scrollback
	wg         sync.WaitGroup
}

// NewTerminal builds a terminal whose trigger output is delivered through
// sendFn. Start must be called before any output arrives.
func NewTerminal(sendFn func(data []byte)) *Terminal {
	return &Terminal{
		charset:    shared.UTF8,
		outCh:      make(chan outChunk, 100),
		closeCh:    make(chan struct{}),
		sendFn:     sendFn,
		scrollback: NewScrollback(scrollbackBytes),
	}
}

func (t *Terminal) Start() {
	t.wg.Add(1)
	go t.pump()

	t.Report("[green]Welcome to teleterm!\n\n[yellow]Type /<Enter> for help\n[-]")
}

func (t *Terminal) Stop() {
	close(t.closeCh)
	t.wg.Wait()
}

// AppendOutput implements telnet.Emulator. Bytes accumulate until
// NotifyUpdate marks the batch complete.
func (t *Terminal) AppendOutput(p []byte) {
	t.mu.Lock()
	t.pending = append(t.pending, p...)
	t.mu.Unlock()
}

// NotifyUpdate implements telnet.Emulator. The pending batch is decoded from
// the session charset and released to the display; a trailing partial
// character stays back until its remaining bytes arrive.
func (t *Terminal) NotifyUpdate() {
	t.mu.Lock()
	t.raw = append(t.raw, t.pending...)
	t.pending = t.pending[:0]
	if len(t.raw) == 0 {
		t.mu.Unlock()
		return
	}
	decoded := shared.DecodeFrom(t.charset, t.raw)
	if r, _ := utf8.DecodeLastRune(decoded); r == utf8.RuneError {
		// Mid-character chunk boundary; wait for the rest.
		t.mu.Unlock()
		return
	}
	t.raw = nil
	t.mu.Unlock()

	t.emit(decoded, false)
}

// Report writes a local notice into the output stream, bypassing charset
// decoding. The text may carry display color tags.
func (t *Terminal) Report(format string, args ...interface{}) {
	t.emit([]byte(fmt.Sprintf(format, args...)), true)
}

func (t *Terminal) emit(p []byte, notice bool) {
	select {
	case t.outCh <- outChunk{p: p, notice: notice}:
	case <-t.closeCh:
	}
}

// SetCharset switches the wire charset for subsequent output.
func (t *Terminal) SetCharset(c shared.Charset) {
	t.mu.Lock()
	t.charset = c
	t.raw = nil
	t.mu.Unlock()
}

func (t *Terminal) Charset() shared.Charset {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.charset
}

// SetEngine installs (or removes, with nil) the trigger script engine.
func (t *Terminal) SetEngine(e shared.ScriptEngine) {
	t.clientMu.Lock()
	old := t.engine
	t.engine = e
	t.clientMu.Unlock()
	if old != nil {
		old.Stop()
	}
}

// Attach registers the UI client conn and repaints it from scrollback.
// A previously attached client is dropped.
func (t *Terminal) Attach(conn net.Conn) {
	t.clientMu.Lock()
	old := t.client
	t.client = conn
	t.clientMu.Unlock()
	if old != nil && old != conn {
		old.Close()
	}

	if history := t.scrollback.Bytes(); len(history) > 0 {
		t.writeClient(conn, history)
	}
}

// Detach drops the attached client, if it is still this conn (nil matches
// any).
func (t *Terminal) Detach(conn net.Conn) {
	t.clientMu.Lock()
	if conn == nil || t.client == conn {
		t.client = nil
	}
	t.clientMu.Unlock()
}

// Attached reports whether a UI client is currently connected.
func (t *Terminal) Attached() bool {
	t.clientMu.Lock()
	defer t.clientMu.Unlock()
	return t.client != nil
}

// pump serializes everything that happens to finished output: scrollback,
// forwarding to the attached client, trigger evaluation.
func (t *Terminal) pump() {
	defer t.wg.Done()

	for {
		select {
		case c := <-t.outCh:
			t.scrollback.Put(c.p)

			t.clientMu.Lock()
			client := t.client
			engine := t.engine
			t.clientMu.Unlock()

			if client != nil {
				t.writeClient(client, c.p)
			}
			if engine != nil && !c.notice {
				t.runTriggers(engine, c.p)
			}
		case <-t.closeCh:
			return
		}
	}
}

func (t *Terminal) writeClient(conn net.Conn, p []byte) {
	if err := proto.WritePacket(conn, proto.NewPacket(proto.SM_OUTPUT, p)); err != nil {
		t.Detach(conn)
		conn.Close()
	}
}

// runTriggers assembles complete lines and hands them to the script engine.
// Data the script queues goes out through sendFn, which runs on the pump
// goroutine and therefore never reenters the filter from the reader path.
func (t *Terminal) runTriggers(engine shared.ScriptEngine, p []byte) {
	t.lines.Write(p)
	for {
		raw := t.lines.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			return
		}
		line := string(bytes.TrimRight(raw[:idx], "\r"))
		t.lines.Next(idx + 1)

		for _, data := range engine.OnLine(line) {
			if t.sendFn != nil {
				t.sendFn(data)
			}
		}
	}
}
