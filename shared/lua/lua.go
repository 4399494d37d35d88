package lua

import (
	"bufio"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"teleterm/shared"
)

// onLineFunc is the global a trigger script defines to receive each complete
// line of session output.
const onLineFunc = "on_line"

// LStatePool is a pool for lua LState objects, so concurrent trigger runs do
// not share interpreter state.
type LStatePool struct {
	m     sync.Mutex
	newFn func() (*lua.LState, error)
	saved []*lua.LState
}

// Get returns a ready LState, creating one when the pool is empty.
func (pl *LStatePool) Get() (*lua.LState, error) {
	pl.m.Lock()
	defer pl.m.Unlock()
	n := len(pl.saved)
	if n == 0 {
		return pl.newFn()
	}
	x := pl.saved[n-1]
	pl.saved = pl.saved[:n-1]

	return x, nil
}

// Put returns an LState to the pool.
func (pl *LStatePool) Put(L *lua.LState) {
	pl.m.Lock()
	defer pl.m.Unlock()
	pl.saved = append(pl.saved, L)
}

// Shutdown closes all pooled LState objects.
func (pl *LStatePool) Shutdown() {
	pl.m.Lock()
	defer pl.m.Unlock()
	for _, L := range pl.saved {
		L.Close()
	}
	pl.saved = nil
}

// Engine runs user trigger scripts against session output. A script defines
// an on_line(line) function and may call the send(text) builtin to queue data
// for the peer; the session drains that queue after each line.
type Engine struct {
	mu    sync.Mutex
	pool  *LStatePool
	proto *lua.FunctionProto
	out   *shared.Queue
}

// NewEngine creates an engine with no script loaded; OnLine is a no-op until
// Load succeeds.
func NewEngine() *Engine {
	e := &Engine{out: shared.NewQueue()}
	e.pool = &LStatePool{newFn: e.newState}
	return e
}

// Load compiles the lua file and makes it the engine's trigger script,
// replacing any previous one.
func (e *Engine) Load(fname string) error {
	proto, err := Compile(fname)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Pooled states ran the old script; start over.
	e.pool.Shutdown()
	e.proto = proto
	return nil
}

// OnLine feeds one line of session output to the script's on_line function
// and returns whatever the script queued with send().
func (e *Engine) OnLine(line string) [][]byte {
	e.mu.Lock()
	loaded := e.proto != nil
	e.mu.Unlock()
	if !loaded {
		return nil
	}

	L, err := e.pool.Get()
	if err != nil {
		return nil
	}
	defer e.pool.Put(L)

	fn := L.GetGlobal(onLineFunc)
	if fn.Type() != lua.LTFunction {
		return e.drain()
	}

	L.Push(fn)
	L.Push(lua.LString(line))
	if err := L.PCall(1, 0, nil); err != nil {
		// A broken trigger must not take the session down.
		return e.drain()
	}
	return e.drain()
}

// Stop shuts the engine down.
func (e *Engine) Stop() {
	e.pool.Shutdown()
}

func (e *Engine) drain() [][]byte {
	var out [][]byte
	for {
		v, ok := e.out.PopFront()
		if !ok {
			return out
		}
		if data, ok := v.([]byte); ok {
			out = append(out, data)
		}
	}
}

// newState builds an LState with the builtins registered and the current
// script executed, ready to take on_line calls.
func (e *Engine) newState() (*lua.LState, error) {
	L := lua.NewState()

	L.SetGlobal("send", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		e.out.PushBack([]byte(text))
		return 0
	}))

	e.mu.Lock()
	proto := e.proto
	e.mu.Unlock()

	if proto != nil {
		L.Push(L.NewFunctionFromProto(proto))
		if err := L.PCall(0, lua.MultRet, nil); err != nil {
			L.Close()
			return nil, err
		}
	}
	return L, nil
}

// Compile reads the lua file from disk and compiles it without running it,
// so syntax errors surface at load time.
func Compile(filePath string) (*lua.FunctionProto, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	chunk, err := parse.Parse(reader, filePath)
	if err != nil {
		return nil, err
	}
	return lua.Compile(chunk, filePath)
}
