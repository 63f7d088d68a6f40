package kernel

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// queueKey orders the ready queue: most urgent priority first, then FIFO
// by enqueue stamp within a priority level.
type queueKey struct {
	priority Priority
	order    uint64
}

func queueCmp(a, b any) int {
	ka, kb := a.(queueKey), b.(queueKey)
	switch {
	case ka.priority < kb.priority:
		return -1
	case ka.priority > kb.priority:
		return 1
	case ka.order < kb.order:
		return -1
	case ka.order > kb.order:
		return 1
	default:
		return 0
	}
}

// readyQueue holds every task whose state is Ready or Running. The tree
// keeps "most urgent queued task" a leftmost lookup.
type readyQueue struct {
	rbt       *redblacktree.Tree
	nextOrder uint64
}

func newReadyQueue() *readyQueue {
	return &readyQueue{rbt: redblacktree.NewWith(queueCmp)}
}

// push inserts the task and stamps it with a fresh enqueue order. Equal
// priorities therefore run in enqueue order, and re-pushing a task sends
// it behind its peers.
func (q *readyQueue) push(t *Task) {
	t.order = q.nextOrder
	q.nextOrder++
	q.rbt.Put(queueKey{priority: t.Priority, order: t.order}, t.ID)
}

// remove drops the task from the queue. The task keeps its order stamp
// until the next push.
func (q *readyQueue) remove(t *Task) {
	q.rbt.Remove(queueKey{priority: t.Priority, order: t.order})
}

// min returns the most urgent queued task id, or false when the queue is
// empty.
func (q *readyQueue) min() (TaskID, bool) {
	node := q.rbt.Left()
	if node == nil {
		return 0, false
	}
	return node.Value.(TaskID), true
}

func (q *readyQueue) size() int {
	return q.rbt.Size()
}
