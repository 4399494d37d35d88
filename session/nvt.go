package session

import (
	"io"
	"net"
	"sync"

	"teleterm/shared"
	"teleterm/telnet"
)

const readBufSize = 2048

// NVT is the network side of a telnet session. It owns the connection and
// pumps inbound bytes through the protocol filter into the terminal.
type NVT struct {
	term   *Terminal
	conn   net.Conn
	filter *telnet.Filter

	closeOnce sync.Once
	closeCh   chan struct{}
}

// OpenNVT dials hostport and starts the receive loop.
func OpenNVT(term *Terminal, hostport string) (*NVT, error) {
	conn, err := telnet.Dial(hostport)
	if err != nil {
		return nil, err
	}
	n := &NVT{
		term:    term,
		conn:    conn,
		filter:  telnet.NewFilter(conn, term),
		closeCh: make(chan struct{}),
	}
	go n.receiver()
	return n, nil
}

func (n *NVT) receiver() {
	buf := make([]byte, readBufSize)
	for {
		count, err := n.conn.Read(buf)
		if count > 0 {
			if perr := n.filter.ProcessInput(buf[:count]); perr != nil {
				n.closeWith(perr)
				return
			}
		}
		if err != nil {
			n.closeWith(err)
			return
		}
	}
}

func (n *NVT) closeWith(err error) {
	select {
	case <-n.closeCh:
		return
	default:
	}
	if err == io.EOF {
		n.term.Report("\n[yellow]connection closed by remote host[-]\n")
	} else if err != nil {
		n.term.Report("\n[red]connection error: %s[-]\n", err)
	}
	n.Close()
}

// Send encodes data with the terminal charset and writes it through the
// filter. It reports whether the transport is still usable.
func (n *NVT) Send(data []byte) bool {
	if !n.IsAlive() {
		return false
	}
	if err := n.filter.Write(shared.EncodeTo(n.term.Charset(), data)); err != nil {
		n.closeWith(err)
		return false
	}
	return true
}

// Filter exposes the protocol filter for diagnostics.
func (n *NVT) Filter() *telnet.Filter {
	return n.filter
}

func (n *NVT) Close() {
	n.closeOnce.Do(func() {
		close(n.closeCh)
		n.conn.Close()
	})
}

func (n *NVT) IsAlive() bool {
	select {
	case <-n.closeCh:
		return false
	default:
		return true
	}
}
