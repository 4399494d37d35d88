package telnet

import (
	"net"
	"time"
)

// DefaultPort is used when the host string carries no port.
const DefaultPort = "23"

const dialTimeout = 10 * time.Second

// Dial opens a TCP connection to host[:port], defaulting the port to 23. The
// filter never dials on its own; callers hand the resulting conn to it.
func Dial(hostport string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, DefaultPort
	}
	return net.DialTimeout("tcp", net.JoinHostPort(host, port), dialTimeout)
}
