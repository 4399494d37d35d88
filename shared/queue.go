package shared

import (
	"container/list"
	"sync"
)

// ScriptEngine is what a session drives for each complete inbound line.
// OnLine returns any peer-bound data the script queued while running.
type ScriptEngine interface {
	OnLine(line string) [][]byte
	Stop()
}

// Queue is a mutex-guarded FIFO.
type Queue struct {
	m sync.Mutex
	l *list.List
}

func NewQueue() *Queue {
	return &Queue{l: list.New()}
}

func (q *Queue) PushBack(v interface{}) {
	if v == nil {
		return
	}
	q.m.Lock()
	defer q.m.Unlock()
	q.l.PushBack(v)
}

// PopFront removes and returns the oldest element, if any.
func (q *Queue) PopFront() (interface{}, bool) {
	q.m.Lock()
	defer q.m.Unlock()
	e := q.l.Front()
	if e == nil {
		return nil, false
	}
	q.l.Remove(e)
	return e.Value, true
}

func (q *Queue) Len() int {
	q.m.Lock()
	defer q.m.Unlock()
	return q.l.Len()
}
