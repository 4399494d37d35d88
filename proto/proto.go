package proto

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	headSize   = 4
	opcodeSize = 2

	// maxPacketSize caps the length word read off the socket; anything
	// bigger is a framing error, not a packet.
	maxPacketSize = 16 * 1024 * 1024
)

var ErrInvalidPacket = errors.New("invalid data packet format")

// Packet wraps a control message on the UI/daemon socket, byte order is
// Big-Endian.
//
// Packet struct:
// +-----------------------------------------------------------------------+
// | 0 byte | 1 byte | 2 byte | 3 byte | 4 byte |  5 byte |     .....      |
// +-----------------------------------+-----------------------------------+
// |            Packet Head            | Packet Data                       |
// +-----------------------------------+-----------------------------------+
// |    Data Length (4 bytes)          | Opcode (2 bytes) | Other Data     |
// +-----------------------------------------------------------------------+
type Packet struct {
	bytes.Buffer
	Opcode uint16
}

// NewPacket returns a packet with the given opcode and payload.
func NewPacket(opcode uint16, data []byte) *Packet {
	p := &Packet{Opcode: opcode}
	if len(data) > 0 {
		p.Write(data)
	}
	return p
}

// Size returns the data size of the packet: opcode plus payload.
func (p *Packet) Size() int {
	return opcodeSize + p.Len()
}

// Marshal encodes opcode and payload, without the length head.
func Marshal(p *Packet) []byte {
	b := make([]byte, opcodeSize, opcodeSize+p.Len())
	binary.BigEndian.PutUint16(b, p.Opcode)

	return append(b, p.Bytes()...)
}

// Unmarshal decodes a packet from the head-less wire form.
func Unmarshal(data []byte) (*Packet, error) {
	if len(data) < opcodeSize {
		return nil, ErrInvalidPacket
	}
	p := &Packet{}
	p.Opcode = binary.BigEndian.Uint16(data[:opcodeSize])

	if len(data) > opcodeSize {
		p.Write(data[opcodeSize:])
	}

	return p, nil
}

// WritePacket writes one length-prefixed packet to w.
func WritePacket(w io.Writer, p *Packet) error {
	buf := make([]byte, headSize, headSize+p.Size())
	binary.BigEndian.PutUint32(buf, uint32(p.Size()))
	buf = append(buf, Marshal(p)...)

	_, err := w.Write(buf)

	return err
}

// ReadPacket reads one length-prefixed packet from r. An unreasonable length
// word yields ErrInvalidPacket.
func ReadPacket(r io.Reader) (*Packet, error) {
	head := make([]byte, headSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}

	dataLen := binary.BigEndian.Uint32(head)
	if dataLen < opcodeSize || dataLen > maxPacketSize {
		return nil, ErrInvalidPacket
	}

	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	return Unmarshal(data)
}
