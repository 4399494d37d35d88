package proto

import (
	"bytes"
	"io"
	"testing"
)

func TestMarshalRoundTrip(t *testing.T) {
	p := NewPacket(CM_USER_INPUT, []byte("abcdef"))

	data := Marshal(p)
	p2, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if p2.Opcode != CM_USER_INPUT {
		t.Errorf("opcode = %d, want %d", p2.Opcode, CM_USER_INPUT)
	}
	if p2.String() != "abcdef" {
		t.Errorf("data = %q, want %q", p2.String(), "abcdef")
	}
}

func TestEmptyPayload(t *testing.T) {
	p := NewPacket(CM_QUERY_DETACH_STATUS, nil)

	p2, err := Unmarshal(Marshal(p))
	if err != nil {
		t.Fatal(err)
	}
	if p2.Opcode != CM_QUERY_DETACH_STATUS || p2.Len() != 0 {
		t.Errorf("got opcode %d with %d payload bytes", p2.Opcode, p2.Len())
	}
}

func TestUnmarshalShortData(t *testing.T) {
	if _, err := Unmarshal([]byte{0x01}); err != ErrInvalidPacket {
		t.Errorf("err = %v, want ErrInvalidPacket", err)
	}
}

func TestReadWritePacket(t *testing.T) {
	var conn bytes.Buffer

	out := NewPacket(SM_OUTPUT, []byte("terminal bytes"))
	if err := WritePacket(&conn, out); err != nil {
		t.Fatal(err)
	}

	in, err := ReadPacket(&conn)
	if err != nil {
		t.Fatal(err)
	}
	if in.Opcode != SM_OUTPUT || in.String() != "terminal bytes" {
		t.Errorf("got opcode %d data %q", in.Opcode, in.String())
	}

	// The stream is exhausted now.
	if _, err := ReadPacket(&conn); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestReadPacketTruncated(t *testing.T) {
	var conn bytes.Buffer
	if err := WritePacket(&conn, NewPacket(SM_OUTPUT, []byte("partial"))); err != nil {
		t.Fatal(err)
	}
	truncated := conn.Bytes()[:conn.Len()-3]

	if _, err := ReadPacket(bytes.NewReader(truncated)); err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadPacketBogusLength(t *testing.T) {
	bogus := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x01}
	if _, err := ReadPacket(bytes.NewReader(bogus)); err != ErrInvalidPacket {
		t.Errorf("err = %v, want ErrInvalidPacket", err)
	}
}
