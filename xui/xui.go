package xui

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"teleterm/proto"
	"teleterm/session"

	"github.com/gdamore/tcell"
	"github.com/rivo/tview"
)

// XUI is the attach-side user interface: a tview screen fed by the session
// daemon over its unix socket.
type XUI struct {
	conn net.Conn
	name string
}

func NewXUI() *XUI {
	return &XUI{}
}

// Attach resolves name against the session sockets, connects, and runs the
// UI until detach. A unique prefix or suffix of a socket name is enough.
func (ui *XUI) Attach(name string) {
	homedir, err := session.SocketHomeDir()
	if err != nil {
		fmt.Println(err)
		return
	}
	sessions, err := session.GetSessionList(homedir)
	if err != nil {
		fmt.Println(err)
		return
	}

	matchedSession := make([]string, 0)
	for _, s := range sessions {
		if strings.HasSuffix(s, name) || strings.HasPrefix(s, name) {
			matchedSession = append(matchedSession, s)
		}
	}
	if len(matchedSession) == 0 {
		fmt.Printf("There is no matched session for name: %s\n", name)
		return
	}
	if len(matchedSession) > 1 {
		fmt.Println("There are more than one session matched:")
		for _, s := range matchedSession {
			fmt.Printf("  %s\n", s)
		}
		return
	}

	fpath := filepath.Join(homedir, matchedSession[0])
	conn, err := net.Dial("unix", fpath)
	if err != nil {
		fmt.Println(err)
		os.Remove(fpath)
		return
	}
	defer conn.Close()
	ui.conn = conn
	ui.name = matchedSession[0]

	// steal flag set: a stale attached client loses the session.
	if err := proto.WritePacket(conn, proto.NewPacket(proto.CM_ATTACH_REQ, []byte{1})); err != nil {
		fmt.Println(err)
		return
	}

	statusBar.SetCell(0, 0, tview.NewTableCell(" "+ui.name+" ").
		SetMaxWidth(40).
		SetTextColor(tcell.ColorDarkRed))

	go ui.receiver()
	go ui.sender()

	ui.run()
	historyCmd.Cache()
}

func (ui *XUI) sender() {
	defer ui.conn.Close()

	for cmd := range inputCh {
		p := proto.NewPacket(proto.CM_USER_INPUT, cmd)
		if err := proto.WritePacket(ui.conn, p); err != nil {
			fmt.Fprintln(screen, err)
			return
		}
	}
}

func (ui *XUI) receiver() {
	defer ui.conn.Close()

	ansiW := tview.ANSIWriter(screen)

	for {
		p, err := proto.ReadPacket(ui.conn)
		if err != nil {
			break
		}
		switch p.Opcode {
		case proto.SM_OUTPUT:
			fmt.Fprint(ansiW, string(p.Bytes()))
		case proto.SM_ATTACH_ACK:
			if b, err := p.ReadByte(); err == nil && b == 0 {
				fmt.Fprintln(screen, "attach refused: session is busy")
			}
		}
	}

	app.Stop()
}

func (ui *XUI) run() {
	app.SetInputCapture(func(e *tcell.EventKey) *tcell.EventKey {
		switch e.Key() {
		case tcell.KeyCtrlC:
			// Detach; the daemon keeps running.
			app.Stop()
			return nil
		case tcell.KeyCtrlD:
			inputCh <- []byte("/close")
			return nil
		}
		return e
	})

	if err := app.SetRoot(layout, true).Run(); err != nil {
		panic(err)
	}
}
