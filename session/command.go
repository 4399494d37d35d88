package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"teleterm/shared"
	"teleterm/shared/lua"
	"teleterm/telnet"
)

// CommandHandler handle command
type CommandHandler func(*Command, *bufio.Reader) (string, []byte, error)

type CommandMap map[string]*Command

// Command user command struct
type Command struct {
	name       string
	handler    CommandHandler
	subCommand CommandMap
	desc       string
	help       string
}

func (c *Command) Name() string {
	return c.name
}

func (c *Command) GetCommandMap() CommandMap {
	return c.subCommand
}

func (s *Shell) buildCommands() *Command {
	debugSubCommands := CommandMap{
		"iac": &Command{
			name:    "iac",
			handler: s.handleCmdDebugIAC,
			desc:    "switch telnet command tracing",
			help:    "\tUsage: /debug iac",
		},
	}
	setSubCommands := CommandMap{
		"ga": &Command{
			name:    "ga",
			handler: s.handleCmdSetGA,
			desc:    "switch GA visibility",
			help:    "\tUsage: /set ga",
		},
		"charset": &Command{
			name:    "charset",
			handler: s.handleCmdSetCharset,
			desc:    "set peer charset",
			help:    "\tUsage: /set charset <utf-8|gb18030|gbk|big5|latin1>",
		},
	}
	scriptSubCommands := CommandMap{
		"load": &Command{
			name:    "load",
			handler: s.handleCmdScriptLoad,
			desc:    "load a lua trigger script",
			help:    "\tUsage: /script load <file>",
		},
		"off": &Command{
			name:    "off",
			handler: s.handleCmdScriptOff,
			desc:    "unload the trigger script",
			help:    "\tUsage: /script off",
		},
	}
	commands := CommandMap{
		"open": &Command{
			name:    "/open",
			handler: s.handleCmdOpen,
			desc:    "Open a connection",
			help:    "\tUsage: /open <host> [port]",
		},
		"close": &Command{
			name:    "/close",
			handler: s.handleCmdClose,
			desc:    "Close the active connection",
			help:    "\tUsage: /close",
		},
		"shell": &Command{
			name:    "/shell",
			handler: s.handleCmdShell,
			desc:    "Run a local shell in this session",
			help:    "\tUsage: /shell",
		},
		"debug": &Command{
			name:       "/debug",
			subCommand: debugSubCommands,
			desc:       "debug switches",
			help:       "\tUsage: /debug",
		},
		"set": &Command{
			name:       "/set",
			subCommand: setSubCommands,
			desc:       "subcommands for setting",
			help:       "\tUsage: /set",
		},
		"script": &Command{
			name:       "/script",
			subCommand: scriptSubCommands,
			desc:       "trigger script control",
			help:       "\tUsage: /script",
		},
		"exit": &Command{
			name:    "/exit",
			handler: s.handleCmdExit,
			desc:    "exit daemon of this session",
			help:    "\tUsage: /exit",
		},
		"detach": &Command{
			name:    "/detach",
			handler: s.handleCmdDetach,
			desc:    "Detach from this session, equivalent to Ctrl-c",
			help:    "\tUsage: /detach",
		},
	}
	return &Command{
		name:       "",
		subCommand: commands,
		desc:       "Available commands",
	}
}

// CommandNames lists the top-level slash commands, for UI autocompletion.
func CommandNames() []string {
	s := NewSession("")
	names := make([]string, 0, len(s.shell.root.subCommand))
	for _, c := range s.shell.root.GetCommandMap() {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

func (s *Shell) handleCmdExit(c *Command, p *bufio.Reader) (string, []byte, error) {
	s.sess.Shutdown()

	return "", nil, nil
}

func (s *Shell) handleCmdDetach(c *Command, p *bufio.Reader) (string, []byte, error) {
	return "", nil, errors.New("\nPress CTRL-C to Detach\n")
}

func (s *Shell) handleCmdDebugIAC(c *Command, p *bufio.Reader) (string, []byte, error) {
	on, err := s.sess.ToggleTrace()
	if err != nil {
		return "", nil, err
	}
	if on {
		return "IAC debug opened", nil, nil
	}
	return "IAC debug closed", nil, nil
}

func (s *Shell) handleCmdSetGA(c *Command, p *bufio.Reader) (string, []byte, error) {
	on, err := s.sess.ToggleShowGoAhead()
	if err != nil {
		return "", nil, err
	}
	if on {
		return "GA visible on", nil, nil
	}
	return "GA visible off", nil, nil
}

func (s *Shell) handleCmdSetCharset(c *Command, p *bufio.Reader) (string, []byte, error) {
	if p.Buffered() <= 0 {
		return c.help, nil, errors.New("need param: <charset>")
	}
	name, err := p.ReadString(' ')
	if err != nil && err != io.EOF {
		return "", nil, err
	}
	name = strings.TrimRight(name, " ")

	cs, ok := shared.LookupCharset(name)
	if !ok {
		return c.help, nil, fmt.Errorf("unknown charset: %s", name)
	}
	s.sess.term.SetCharset(cs)

	return fmt.Sprintf("charset set to %s", cs), nil, nil
}

func (s *Shell) handleCmdScriptLoad(c *Command, p *bufio.Reader) (string, []byte, error) {
	if p.Buffered() <= 0 {
		return c.help, nil, errors.New("need param: <file>")
	}
	file, err := p.ReadString(' ')
	if err != nil && err != io.EOF {
		return "", nil, err
	}
	file = strings.TrimRight(file, " ")

	engine := lua.NewEngine()
	if err := engine.Load(file); err != nil {
		return "", nil, err
	}
	s.sess.term.SetEngine(engine)

	return fmt.Sprintf("script loaded: %s", file), nil, nil
}

func (s *Shell) handleCmdScriptOff(c *Command, p *bufio.Reader) (string, []byte, error) {
	s.sess.term.SetEngine(nil)

	return "script unloaded", nil, nil
}

func (s *Shell) handleCmdShell(c *Command, p *bufio.Reader) (string, []byte, error) {
	if err := s.sess.OpenShell(); err != nil {
		return "", nil, err
	}
	return "local shell started", nil, nil
}

func (s *Shell) handleCmdClose(c *Command, p *bufio.Reader) (string, []byte, error) {
	if s.sess.CloseLink() {
		return "", nil, nil
	}
	return "No active connection", nil, nil
}

func (s *Shell) handleCmdOpen(c *Command, p *bufio.Reader) (string, []byte, error) {
	if p.Buffered() <= 0 {
		return c.help, nil, errors.New("need params: <host> [port]")
	}

	var host, port string
	var err error
	host, err = p.ReadString(' ')
	if err != nil && err != io.EOF {
		return "", nil, err
	}
	host = strings.TrimRight(host, " ")

	if err != io.EOF {
		port, err = p.ReadString(' ')
		if err != nil && err != io.EOF {
			return "", nil, err
		}
		port = strings.TrimRight(port, " ")
	}

	if len(port) == 0 {
		port = telnet.DefaultPort
	}
	portNumber, err := strconv.Atoi(port)
	if err != nil {
		return "", nil, errors.New("port param must be a number")
	}
	if portNumber <= 0 || portNumber > 65535 {
		return "", nil, errors.New("port number must in range 1-65535")
	}

	go s.sess.Open(host, port)

	return fmt.Sprintf("connecting to %s:%s ...", host, port), nil, nil
}

func (c *Command) Exec(p *bufio.Reader) (string, []byte, error) {
	if c.handler != nil {
		return c.handler(c, p)
	}
	if c.subCommand == nil {
		return "", nil, errors.New("Unhandled command: " + c.name)
	}

	if p.Buffered() > 0 {
		cmdName, err := p.ReadString(' ')
		if err != nil && err != io.EOF {
			return "", nil, err
		}
		cmdName = strings.TrimRight(cmdName, " ")
		subCmd, ok := c.subCommand[cmdName]
		if !ok {
			return subCmdDesc(c), nil, fmt.Errorf("command not found: %s", cmdName)
		}
		return subCmd.Exec(p)
	}
	return subCmdDesc(c), nil, nil
}

func subCmdDesc(c *Command) string {
	msg := c.desc + ":\n"
	cmdNames := []string{}
	for n := range c.subCommand {
		cmdNames = append(cmdNames, n)
	}
	sort.Strings(cmdNames)
	for _, name := range cmdNames {
		msg = msg + fmt.Sprintf("\t%-10s%-50s\n", c.subCommand[name].name, c.subCommand[name].desc)
	}
	return msg
}
