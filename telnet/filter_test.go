package telnet

import (
	"bytes"
	"testing"
)

type displayLog struct {
	out     bytes.Buffer
	updates int
}

func (d *displayLog) AppendOutput(p []byte) { d.out.Write(p) }
func (d *displayLog) NotifyUpdate()         { d.updates++ }

func newTestFilter() (*Filter, *bytes.Buffer, *displayLog) {
	wire := new(bytes.Buffer)
	emu := &displayLog{}
	return NewFilter(wire, emu), wire, emu
}

// initRequests is what the filter emits when it sees the first IAC ever.
var initRequests = []byte{IAC, DO, OptSuppressGoAhead, IAC, WILL, OptSuppressGoAhead}

func TestPlainDataForwarded(t *testing.T) {
	f, wire, emu := newTestFilter()

	if err := f.ProcessInput([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.String(); got != "hello" {
		t.Errorf("emulator got %q, want %q", got, "hello")
	}
	if wire.Len() != 0 {
		t.Errorf("unexpected peer bytes: %v", wire.Bytes())
	}
	if emu.updates != 1 {
		t.Errorf("updates = %d, want 1", emu.updates)
	}
}

func TestWriteExpandsCarriageReturn(t *testing.T) {
	f, wire, emu := newTestFilter()

	if err := f.Write([]byte("hi\r")); err != nil {
		t.Fatal(err)
	}
	if got := wire.String(); got != "hi\r\n" {
		t.Errorf("wire got %q, want %q", got, "hi\r\n")
	}
	// Peer does not echo, so the user sees the same transformed bytes.
	if got := emu.out.String(); got != "hi\r\n" {
		t.Errorf("local echo got %q, want %q", got, "hi\r\n")
	}
}

func TestWriteWithoutCRUnchanged(t *testing.T) {
	f, wire, _ := newTestFilter()

	if err := f.Write([]byte("plain text")); err != nil {
		t.Fatal(err)
	}
	if got := wire.String(); got != "plain text" {
		t.Errorf("wire got %q, want %q", got, "plain text")
	}
}

func TestWillEchoAccepted(t *testing.T) {
	f, wire, _ := newTestFilter()

	if err := f.ProcessInput([]byte{IAC, WILL, OptEcho}); err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, initRequests...), IAC, DO, OptEcho)
	if !bytes.Equal(wire.Bytes(), want) {
		t.Errorf("wire got %v, want %v", wire.Bytes(), want)
	}
	if !f.peerEchoesInput {
		t.Error("peerEchoesInput not set")
	}

	// Receiving the same request again must not produce a second reply.
	wire.Reset()
	if err := f.ProcessInput([]byte{IAC, WILL, OptEcho}); err != nil {
		t.Fatal(err)
	}
	if wire.Len() != 0 {
		t.Errorf("duplicate WILL ECHO answered: %v", wire.Bytes())
	}
}

func TestWriteNotMirroredWhenPeerEchoes(t *testing.T) {
	f, wire, emu := newTestFilter()

	if err := f.ProcessInput([]byte{IAC, WILL, OptEcho}); err != nil {
		t.Fatal(err)
	}
	wire.Reset()
	emu.out.Reset()

	if err := f.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if got := wire.String(); got != "x" {
		t.Errorf("wire got %q, want %q", got, "x")
	}
	if emu.out.Len() != 0 {
		t.Errorf("local echo while peer echoes: %q", emu.out.String())
	}
}

func TestFirstIACNegotiatesSuppressGoAhead(t *testing.T) {
	f, wire, _ := newTestFilter()

	if err := f.ProcessInput([]byte{IAC, NOP}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(wire.Bytes(), initRequests) {
		t.Errorf("wire got %v, want %v", wire.Bytes(), initRequests)
	}
	if f.peerSuppressedGoAhead || f.suppressGoAhead {
		t.Error("go-ahead suppression not reset to RFC default")
	}
	if !f.doSuppressGaRequested || !f.willSuppressGaRequested {
		t.Error("pending request flags not set")
	}

	// Init runs exactly once.
	wire.Reset()
	if err := f.ProcessInput([]byte{IAC, NOP}); err != nil {
		t.Fatal(err)
	}
	if wire.Len() != 0 {
		t.Errorf("second IAC renegotiated: %v", wire.Bytes())
	}
}

func TestWillSuppressGoAheadAckNotAnswered(t *testing.T) {
	f, wire, _ := newTestFilter()

	// The first IAC requests DO SUPPRESS-GO-AHEAD; the peer's WILL is the
	// acknowledgment and must not be answered again.
	if err := f.ProcessInput([]byte{IAC, WILL, OptSuppressGoAhead}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(wire.Bytes(), initRequests) {
		t.Errorf("wire got %v, want %v", wire.Bytes(), initRequests)
	}
	if !f.peerSuppressedGoAhead {
		t.Error("peerSuppressedGoAhead not set")
	}
	if f.doSuppressGaRequested {
		t.Error("pending DO request flag not cleared")
	}
}

func TestGoAheadFlushesBufferedOutput(t *testing.T) {
	f, wire, emu := newTestFilter()

	// After init, the peer granting DO SUPPRESS-GO-AHEAD leaves our side
	// suppressed while the peer still signals with GA.
	if err := f.ProcessInput([]byte{IAC, DO, OptSuppressGoAhead}); err != nil {
		t.Fatal(err)
	}
	if f.peerSuppressedGoAhead || !f.suppressGoAhead {
		t.Fatalf("state = %v/%v, want false/true", f.peerSuppressedGoAhead, f.suppressGoAhead)
	}
	wire.Reset()
	emu.out.Reset()

	if err := f.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if wire.Len() != 0 {
		t.Fatalf("data written before GA: %v", wire.Bytes())
	}

	if err := f.ProcessInput([]byte{0x41, IAC, GA}); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.String(); got != "abc\x41" {
		t.Errorf("emulator got %q, want %q", got, "abc\x41")
	}
	// suppressGoAhead is on, so no GA goes back; just the buffered data.
	if got := wire.String(); got != "abc" {
		t.Errorf("wire got %q, want %q", got, "abc")
	}
}

func TestGoAheadEchoedWhenNotSuppressed(t *testing.T) {
	f, wire, _ := newTestFilter()

	if err := f.ProcessInput([]byte{IAC, NOP}); err != nil {
		t.Fatal(err)
	}
	wire.Reset()

	if err := f.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	// A bare GA with suppression off on both sides: our GA answer joins the
	// buffer, then everything flushes.
	if err := f.ProcessInput([]byte{GA}); err != nil {
		t.Fatal(err)
	}
	want := []byte{'h', 'i', IAC, GA}
	if !bytes.Equal(wire.Bytes(), want) {
		t.Errorf("wire got %v, want %v", wire.Bytes(), want)
	}
}

func TestOutboundBufferOverflowFlushesEarly(t *testing.T) {
	f, wire, _ := newTestFilter()

	if err := f.ProcessInput([]byte{IAC, NOP}); err != nil {
		t.Fatal(err)
	}
	wire.Reset()

	first := bytes.Repeat([]byte{'a'}, 3000)
	second := bytes.Repeat([]byte{'b'}, 3000)
	if err := f.Write(first); err != nil {
		t.Fatal(err)
	}
	if wire.Len() != 0 {
		t.Fatal("first chunk should have been buffered")
	}
	if err := f.Write(second); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(wire.Bytes(), first) {
		t.Errorf("overflow should flush the first chunk, wire has %d bytes", wire.Len())
	}

	// A chunk larger than the whole buffer bypasses it.
	wire.Reset()
	huge := bytes.Repeat([]byte{'c'}, outBufSize+1)
	if err := f.Write(huge); err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, second...), huge...)
	if !bytes.Equal(wire.Bytes(), want) {
		t.Errorf("wire got %d bytes, want %d", wire.Len(), len(want))
	}
}

func TestCRNULSwallowed(t *testing.T) {
	f, _, emu := newTestFilter()

	if err := f.ProcessInput([]byte("a\r\x00b")); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.String(); got != "a\rb" {
		t.Errorf("emulator got %q, want %q", got, "a\rb")
	}
}

func TestSubnegotiationDiscarded(t *testing.T) {
	f, _, emu := newTestFilter()

	stream := []byte{'x', IAC, SB, 24, 1, 2, 3, SE, 'y'}
	if err := f.ProcessInput(stream); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.String(); got != "xy" {
		t.Errorf("emulator got %q, want %q", got, "xy")
	}
}

func TestEscapedIACForwarded(t *testing.T) {
	f, _, emu := newTestFilter()

	if err := f.ProcessInput([]byte{IAC, IAC}); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.Bytes(); !bytes.Equal(got, []byte{0xFF}) {
		t.Errorf("emulator got %v, want [255]", got)
	}
}

func TestEraseCharacterAndLine(t *testing.T) {
	f, _, emu := newTestFilter()

	if err := f.ProcessInput([]byte{IAC, EC}); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.String(); got != string(escEraseChar) {
		t.Errorf("EC forwarded %q, want %q", got, escEraseChar)
	}

	emu.out.Reset()
	if err := f.ProcessInput([]byte{IAC, EL}); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.String(); got != string(escEraseLine) {
		t.Errorf("EL forwarded %q, want %q", got, escEraseLine)
	}
}

func TestAreYouThere(t *testing.T) {
	f, wire, _ := newTestFilter()

	if err := f.ProcessInput([]byte{IAC, AYT}); err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte{}, initRequests...), aytReply...)
	if !bytes.Equal(wire.Bytes(), want) {
		t.Errorf("wire got %q, want %q", wire.Bytes(), want)
	}
}

func TestUnknownOptionsRefused(t *testing.T) {
	f, wire, _ := newTestFilter()
	if err := f.ProcessInput([]byte{IAC, NOP}); err != nil {
		t.Fatal(err)
	}
	wire.Reset()

	cases := []struct {
		name  string
		in    []byte
		reply []byte
	}{
		{"WILL unknown", []byte{IAC, WILL, 31}, []byte{IAC, DONT, 31}},
		{"DO unknown", []byte{IAC, DO, 24}, []byte{IAC, WONT, 24}},
		{"WONT unknown", []byte{IAC, WONT, 90}, nil},
		{"DONT unknown", []byte{IAC, DONT, 90}, nil},
	}
	for _, tc := range cases {
		wire.Reset()
		if err := f.ProcessInput(tc.in); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(wire.Bytes(), tc.reply) {
			t.Errorf("%s: reply %v, want %v", tc.name, wire.Bytes(), tc.reply)
		}
	}
}

func TestDoEchoAlwaysRefused(t *testing.T) {
	f, wire, _ := newTestFilter()
	if err := f.ProcessInput([]byte{IAC, NOP}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		wire.Reset()
		if err := f.ProcessInput([]byte{IAC, DO, OptEcho}); err != nil {
			t.Fatal(err)
		}
		want := []byte{IAC, WONT, OptEcho}
		if !bytes.Equal(wire.Bytes(), want) {
			t.Errorf("round %d: reply %v, want %v", i, wire.Bytes(), want)
		}
	}
}

// TestChunkSplitInvariance feeds one stream at every possible split point and
// byte by byte; the parser state must survive a cut anywhere, including inside
// a command, with identical output on both sides.
func TestChunkSplitInvariance(t *testing.T) {
	stream := []byte{
		'h', 'e', 'l', 'l', 'o', ' ',
		IAC, WILL, OptEcho,
		'w', '\r', 0x00,
		IAC, SB, 24, IAC, 1, 2, SE,
		IAC, IAC,
		IAC, EC,
		IAC, DO, OptSuppressGoAhead,
		IAC, GA,
		'e', 'n', 'd',
		IAC, WONT, OptEcho,
		IAC, AYT,
	}

	run := func(chunks [][]byte) (wireOut, emuOut []byte) {
		f, wire, emu := newTestFilter()
		for _, c := range chunks {
			if err := f.ProcessInput(c); err != nil {
				t.Fatal(err)
			}
		}
		return wire.Bytes(), emu.out.Bytes()
	}

	wantWire, wantEmu := run([][]byte{stream})

	for i := 1; i < len(stream); i++ {
		gotWire, gotEmu := run([][]byte{stream[:i], stream[i:]})
		if !bytes.Equal(gotWire, wantWire) {
			t.Errorf("split at %d: wire %v, want %v", i, gotWire, wantWire)
		}
		if !bytes.Equal(gotEmu, wantEmu) {
			t.Errorf("split at %d: emulator %q, want %q", i, gotEmu, wantEmu)
		}
	}

	var single [][]byte
	for i := range stream {
		single = append(single, stream[i:i+1])
	}
	gotWire, gotEmu := run(single)
	if !bytes.Equal(gotWire, wantWire) || !bytes.Equal(gotEmu, wantEmu) {
		t.Error("byte-at-a-time feed diverged from unsplit stream")
	}
}

func TestGoAheadMarkerWhenVisible(t *testing.T) {
	f, _, emu := newTestFilter()
	f.SetShowGoAhead(true)

	if err := f.ProcessInput([]byte{'a', IAC, GA, 'b'}); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.String(); got != "a[GA]b" {
		t.Errorf("emulator got %q, want %q", got, "a[GA]b")
	}

	f.SetShowGoAhead(false)
	emu.out.Reset()
	if err := f.ProcessInput([]byte{'c', IAC, GA}); err != nil {
		t.Fatal(err)
	}
	if got := emu.out.String(); got != "c" {
		t.Errorf("emulator got %q, want %q", got, "c")
	}
}

func TestTraceHookRunsUnlocked(t *testing.T) {
	f, _, _ := newTestFilter()

	var msgs []string
	f.SetTrace(func(msg string) {
		// The hook may call back into the filter, or block on a consumer
		// that itself is waiting to write through the filter.
		f.PeerEchoesInput()
		if err := f.Write([]byte("x")); err != nil {
			t.Error(err)
		}
		msgs = append(msgs, msg)
	})

	if err := f.ProcessInput([]byte{IAC, WILL, OptEcho}); err != nil {
		t.Fatal(err)
	}
	// init DO SGA + WILL SGA, received WILL ECHO, sent DO ECHO
	if len(msgs) != 4 {
		t.Errorf("trace lines = %d (%q), want 4", len(msgs), msgs)
	}
}
