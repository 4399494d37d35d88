package session

import (
	"bufio"
	"strings"
)

// Shell interprets user input lines. Lines starting with "/" are commands,
// everything else is data for the active transport.
type Shell struct {
	sess *Session
	root *Command
}

func NewShell(sess *Session) *Shell {
	s := &Shell{sess: sess}
	s.root = s.buildCommands()
	return s
}

func (s *Shell) Exec(cmd string) (string, []byte, error) {
	if len(cmd) <= 0 || cmd[0] != '/' {
		return "", []byte(cmd + "\r\n"), nil
	}
	rd := bufio.NewReader(strings.NewReader(cmd[1:]))
	rd.Peek(1)

	return s.root.Exec(rd)
}
