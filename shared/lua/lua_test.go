package lua

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, body string) (string, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "trigger")
	if err != nil {
		t.Fatal(err)
	}
	fname := filepath.Join(dir, "trigger.lua")
	if err := ioutil.WriteFile(fname, []byte(body), 0644); err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return fname, func() { os.RemoveAll(dir) }
}

func TestOnLineSendsQueuedData(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	fname, cleanup := writeScript(t, `
function on_line(line)
	if line == "ping" then
		send("pong\n")
	end
end
`)
	defer cleanup()
	if err := e.Load(fname); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if out := e.OnLine("nothing here"); len(out) != 0 {
		t.Errorf("unmatched line produced output: %q", out)
	}
	out := e.OnLine("ping")
	if len(out) != 1 || string(out[0]) != "pong\n" {
		t.Errorf("OnLine(ping) = %q, want one pong", out)
	}
}

func TestOnLineMultipleSends(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	fname, cleanup := writeScript(t, `
function on_line(line)
	send("first")
	send("second")
end
`)
	defer cleanup()
	if err := e.Load(fname); err != nil {
		t.Fatalf("Load: %v", err)
	}

	out := e.OnLine("anything")
	if len(out) != 2 || string(out[0]) != "first" || string(out[1]) != "second" {
		t.Errorf("OnLine -> %q, want [first second] in order", out)
	}
}

func TestOnLineWithoutScript(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	if out := e.OnLine("ping"); out != nil {
		t.Errorf("no-script engine produced output: %q", out)
	}
}

func TestLoadSyntaxError(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	fname, cleanup := writeScript(t, `function on_line(line`)
	defer cleanup()
	if err := e.Load(fname); err == nil {
		t.Error("expected a compile error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	if err := e.Load("/nonexistent/trigger.lua"); err == nil {
		t.Error("expected an open error")
	}
}

func TestScriptErrorDoesNotPoisonEngine(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	fname, cleanup := writeScript(t, `
function on_line(line)
	if line == "boom" then
		error("bad trigger")
	end
	send("ok")
end
`)
	defer cleanup()
	if err := e.Load(fname); err != nil {
		t.Fatalf("Load: %v", err)
	}

	e.OnLine("boom")
	out := e.OnLine("fine")
	if len(out) != 1 || string(out[0]) != "ok" {
		t.Errorf("engine broken after script error: %q", out)
	}
}

func TestLoadReplacesScript(t *testing.T) {
	e := NewEngine()
	defer e.Stop()

	first, cleanup1 := writeScript(t, `function on_line(line) send("v1") end`)
	defer cleanup1()
	if err := e.Load(first); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out := e.OnLine("x"); len(out) != 1 || string(out[0]) != "v1" {
		t.Fatalf("first script -> %q", out)
	}

	second, cleanup2 := writeScript(t, `function on_line(line) send("v2") end`)
	defer cleanup2()
	if err := e.Load(second); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out := e.OnLine("x"); len(out) != 1 || string(out[0]) != "v2" {
		t.Errorf("second script -> %q, pooled state kept the old script", out)
	}
}
