package session

import (
	"io"
	"os"
	"os/exec"
	"sync"
)

// LocalShell runs $SHELL as a child process and feeds its output to the
// terminal. Bytes bypass the telnet filter entirely.
type LocalShell struct {
	term  *Terminal
	cmd   *exec.Cmd
	stdin io.WriteCloser

	closeOnce sync.Once
	closeCh   chan struct{}
}

func OpenLocalShell(term *Terminal) (*LocalShell, error) {
	name := os.Getenv("SHELL")
	if name == "" {
		name = "/bin/sh"
	}
	cmd := exec.Command(name)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	s := &LocalShell{
		term:    term,
		cmd:     cmd,
		stdin:   stdin,
		closeCh: make(chan struct{}),
	}
	go s.pump(stdout)
	return s, nil
}

func (s *LocalShell) pump(r io.Reader) {
	buf := make([]byte, readBufSize)
	for {
		count, err := r.Read(buf)
		if count > 0 {
			s.term.AppendOutput(buf[:count])
			s.term.NotifyUpdate()
		}
		if err != nil {
			break
		}
	}
	s.term.Report("\n[yellow]shell exited[-]\n")
	s.Close()
}

func (s *LocalShell) Send(data []byte) bool {
	if !s.IsAlive() {
		return false
	}
	if _, err := s.stdin.Write(data); err != nil {
		s.Close()
		return false
	}
	return true
}

func (s *LocalShell) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.stdin.Close()
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		go s.cmd.Wait()
	})
}

func (s *LocalShell) IsAlive() bool {
	select {
	case <-s.closeCh:
		return false
	default:
		return true
	}
}
