package session

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"teleterm/proto"
)

const cacheDir string = ".teleterm"
const socketRunDir string = "run"

// transport is what the shell talks to: a telnet connection or a local
// shell process.
type transport interface {
	Send(data []byte) bool
	Close()
	IsAlive() bool
}

// Session is the daemon side of a named session: a terminal, a shell and
// the unix socket the UI attaches to.
type Session struct {
	name  string
	term  *Terminal
	shell *Shell

	mu        sync.Mutex
	link      transport
	traceOn   bool
	gaVisible bool

	ln    net.Listener
	fname string

	closeOnce sync.Once
	closeCh   chan struct{}
}

func NewSession(name string) *Session {
	s := &Session{
		name:    name,
		closeCh: make(chan struct{}),
	}
	s.term = NewTerminal(func(data []byte) {
		if !s.Send(data) {
			s.term.Report("no active connection\n")
		}
	})
	s.shell = NewShell(s)
	return s
}

// Start runs the session until /exit. cmdfile, when non-empty, names a file
// of startup commands executed as if typed.
func (s *Session) Start(cmdfile string) error {
	s.term.Start()

	fname, err := socketFileName(s.name)
	if err != nil {
		return err
	}
	s.fname = fname
	ln, err := net.Listen("unix", fname)
	if err != nil {
		return err
	}
	s.ln = ln

	go s.acceptLoop()

	if cmdfile != "" {
		s.runCmdFile(cmdfile)
	}

	<-s.closeCh
	s.CloseLink()
	s.term.Stop()
	s.ln.Close()
	os.Remove(s.fname)

	return nil
}

func (s *Session) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
}

func (s *Session) runCmdFile(fname string) {
	f, err := os.Open(fname)
	if err != nil {
		s.term.Report("[red]cmdfile: %s[-]\n", err)
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.Input([]byte(line))
	}
}

func (s *Session) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleClient(conn)
	}
}

func (s *Session) handleClient(conn net.Conn) {
	defer func() {
		s.term.Detach(conn)
		conn.Close()
	}()

	for {
		p, err := proto.ReadPacket(conn)
		if err != nil {
			return
		}
		switch p.Opcode {
		case proto.CM_QUERY_DETACH_STATUS:
			status := byte(0)
			if !s.term.Attached() {
				status = 1
			}
			ack := proto.NewPacket(proto.SM_DETACH_STATUS, []byte{status})
			if err := proto.WritePacket(conn, ack); err != nil {
				return
			}
		case proto.CM_ATTACH_REQ:
			steal := byte(1)
			if b, err := p.ReadByte(); err == nil {
				steal = b
			}
			if s.term.Attached() && steal == 0 {
				nak := proto.NewPacket(proto.SM_ATTACH_ACK, []byte{0})
				if err := proto.WritePacket(conn, nak); err != nil {
					return
				}
				break
			}
			// Attach before acking so a client acting on the ack never
			// observes the session still detached.
			s.term.Attach(conn)
			ack := proto.NewPacket(proto.SM_ATTACH_ACK, []byte{1})
			if err := proto.WritePacket(conn, ack); err != nil {
				return
			}
		case proto.CM_USER_INPUT:
			s.Input(p.Bytes())
		case proto.CM_SCREEN_SIZE:
			// The UI renders locally; nothing to resize on this side.
		}
	}
}

// Input runs one line of user input through the shell.
func (s *Session) Input(cmd []byte) {
	msg, data, err := s.shell.Exec(strings.TrimRight(string(cmd), "\r\n"))
	if len(msg) > 0 {
		s.term.Report("%s\n", msg)
	}
	if err != nil {
		s.term.Report("[red]%s[-]\n", err)
	}
	if len(data) > 0 && !s.Send(data) {
		s.term.Report("no active connection\n")
	}
}

// Send hands data to the active transport.
func (s *Session) Send(data []byte) bool {
	s.mu.Lock()
	link := s.link
	s.mu.Unlock()

	if link == nil || !link.IsAlive() {
		return false
	}
	return link.Send(data)
}

func (s *Session) setLink(t transport) {
	s.mu.Lock()
	old := s.link
	s.link = t
	s.traceOn = false
	s.gaVisible = false
	s.mu.Unlock()

	if old != nil && old.IsAlive() {
		old.Close()
	}
}

// Open dials a telnet host and makes it the active transport.
func (s *Session) Open(host, port string) {
	nvt, err := OpenNVT(s.term, net.JoinHostPort(host, port))
	if err != nil {
		s.term.Report("[red]%s[-]\n", err)
		return
	}
	s.setLink(nvt)
	s.term.Report("[green]connected to %s:%s[-]\n", host, port)
}

// OpenShell starts a local shell and makes it the active transport.
func (s *Session) OpenShell() error {
	sh, err := OpenLocalShell(s.term)
	if err != nil {
		return err
	}
	s.setLink(sh)
	return nil
}

// CloseLink closes the active transport. It reports whether there was one.
func (s *Session) CloseLink() bool {
	s.mu.Lock()
	link := s.link
	s.link = nil
	s.traceOn = false
	s.gaVisible = false
	s.mu.Unlock()

	if link == nil || !link.IsAlive() {
		return false
	}
	link.Close()
	return true
}

// ToggleTrace switches telnet command tracing on the active connection.
func (s *Session) ToggleTrace() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nvt, ok := s.link.(*NVT)
	if !ok || !nvt.IsAlive() {
		return false, errors.New("no telnet connection")
	}
	s.traceOn = !s.traceOn
	if s.traceOn {
		term := s.term
		nvt.Filter().SetTrace(func(msg string) {
			term.Report("[blue]%s[-]\n", msg)
		})
	} else {
		nvt.Filter().SetTrace(nil)
	}
	return s.traceOn, nil
}

// ToggleShowGoAhead switches GA markers on the active connection.
func (s *Session) ToggleShowGoAhead() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nvt, ok := s.link.(*NVT)
	if !ok || !nvt.IsAlive() {
		return false, errors.New("no telnet connection")
	}
	s.gaVisible = !s.gaVisible
	nvt.Filter().SetShowGoAhead(s.gaVisible)
	return s.gaVisible, nil
}

func mkdirIfNotExist(path string, mode os.FileMode) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return os.MkdirAll(path, mode)
	}
	return err
}

func socketFileName(name string) (string, error) {
	homedir, err := SocketHomeDir()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%d.%s", homedir, os.Getpid(), name), nil
}

// SocketHomeDir returns the directory holding session sockets, creating it
// when needed.
func SocketHomeDir() (string, error) {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	baseDir := filepath.Join(userHome, cacheDir)
	err = mkdirIfNotExist(baseDir, os.ModeDir|os.FileMode(0775))
	if err != nil {
		return "", err
	}

	baseDir = filepath.Join(baseDir, socketRunDir)
	err = mkdirIfNotExist(baseDir, os.ModeDir|os.FileMode(0775))
	if err != nil {
		return "", err
	}
	return baseDir, nil
}

// GetSessionList returns the socket file names under dir.
func GetSessionList(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	for i, v := range files {
		_, n := filepath.Split(v)
		files[i] = n
	}
	return files, nil
}
