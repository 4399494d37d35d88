package xui

import (
	"bufio"
	"container/list"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gdamore/tcell"
)

const cacheFileName = ".history"
const cacheDirName = ".teleterm"

// HistoryCmd keeps the input line history and the prefix-match scrolling
// state for the Up/Down keys.
type HistoryCmd struct {
	mu               sync.Mutex
	scrolling        bool
	maxLen           int
	currentInputText string
	history          *list.List
	matchs           *list.List
	currentMatch     *list.Element
}

func NewHistoryCmd(maxLen int) *HistoryCmd {
	return &HistoryCmd{
		maxLen:  maxLen,
		history: list.New(),
		matchs:  list.New(),
	}
}

func (l *HistoryCmd) IsScrolling() bool {
	return l.scrolling
}

func (l *HistoryCmd) SetScrolling(b bool) {
	l.scrolling = b
}

func (l *HistoryCmd) SetCurrentText(text string) {
	if len(strings.Trim(text, " ")) <= 0 {
		text = ""
	}
	l.currentInputText = text
}

func (l *HistoryCmd) NextMatch(key tcell.Key) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentMatch == nil {
		return ""
	}

	switch key {
	case tcell.KeyUp:
		if n := l.currentMatch.Next(); n != nil {
			l.currentMatch = n
		}
	case tcell.KeyDown:
		if p := l.currentMatch.Prev(); p != nil {
			l.currentMatch = p
		}
	}

	return l.currentMatch.Value.(string)
}

// Match rebuilds the match list for the current input text.
func (l *HistoryCmd) Match() {
	l.mu.Lock()
	defer func() {
		l.currentMatch = l.matchs.Front()
		l.mu.Unlock()
	}()

	l.matchs.Init()
	l.currentMatch = nil

	if l.currentInputText == "" {
		l.matchs.PushBackList(l.history)
		l.matchs.PushFront(" ")
		return
	}

	for e := l.history.Front(); e != nil; e = e.Next() {
		s := e.Value.(string)
		if s == l.currentInputText {
			continue
		}
		if strings.HasPrefix(strings.ToLower(s), strings.ToLower(l.currentInputText)) {
			l.matchs.PushBack(e.Value)
		}
	}
	if l.matchs.Len() > 0 {
		l.matchs.PushFront(l.currentInputText)
	}
}

// Add text into history record
func (l *HistoryCmd) Add(text string) {
	text = strings.TrimRight(text, " ")
	if len(text) <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// if exists, move to front
	for e := l.history.Front(); e != nil; e = e.Next() {
		if e.Value.(string) == text {
			l.history.MoveToFront(e)
			return
		}
	}

	if l.history.Len() >= l.maxLen {
		l.history.Remove(l.history.Back())
	}
	l.history.PushFront(text)
}

func cacheFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, cacheDirName, cacheFileName), nil
}

// Cache writes the history to disk, oldest first.
func (l *HistoryCmd) Cache() {
	fpath, err := cacheFilePath()
	if err != nil {
		return
	}
	fd, err := os.Create(fpath)
	if err != nil {
		return
	}
	defer fd.Close()

	l.mu.Lock()
	defer l.mu.Unlock()
	for e := l.history.Back(); e != nil; e = e.Prev() {
		fd.WriteString(e.Value.(string) + "\n")
	}
}

// LoadCache restores the history written by Cache.
func (l *HistoryCmd) LoadCache() {
	fpath, err := cacheFilePath()
	if err != nil {
		return
	}
	fd, err := os.Open(fpath)
	if err != nil {
		return
	}
	defer fd.Close()

	l.mu.Lock()
	defer l.mu.Unlock()
	rd := bufio.NewReader(fd)
	for {
		line, err := rd.ReadString('\n')
		if line = strings.Trim(line, "\n "); line != "" {
			l.history.PushFront(line)
		}
		if err != nil {
			return
		}
	}
}
