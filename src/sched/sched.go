// Package sched implements the stride scheduler (spec.md §4.G),
// adapted from original_source/os/src/task/manager.rs's
// BinaryHeap<Reverse<...>> ready queue: a min-heap keyed by stride,
// with the popped task's stride bumped by BIG_STRIDE/priority before
// it next competes for the CPU.
package sched

import (
	"container/heap"
	"sync"

	"defs"
)

// Entry is anything the scheduler can queue: a task exposes its
// current stride (for heap ordering) and priority (to compute the next
// bump). Defined here, not in proc, so proc can depend on sched without
// a cycle.
type Entry interface {
	Stride() int
	SetStride(s int)
	Priority() int
}

// queue is a container/heap.Interface over Entry, ordered by stride
// ascending; ties keep arrival order through a sequence number stamped
// on every push.
type queue struct {
	items []queued
	seq   uint64
}

type queued struct {
	e   Entry
	seq uint64
}

func (q *queue) Len() int { return len(q.items) }
func (q *queue) Less(i, j int) bool {
	si, sj := q.items[i].e.Stride(), q.items[j].e.Stride()
	if si != sj {
		return si < sj
	}
	return q.items[i].seq < q.items[j].seq
}
func (q *queue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *queue) Push(x interface{}) {
	q.seq++
	q.items = append(q.items, queued{e: x.(Entry), seq: q.seq})
}
func (q *queue) Pop() interface{} {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	return it.e
}

// Scheduler is the global ready queue. The "current task" slot lives
// outside it, in proc, per spec.md §4.G.
type Scheduler struct {
	sync.Mutex
	q queue
}

// Global is the kernel's single scheduler instance; there is exactly
// one per spec.md §5 (single hart, no SMP).
var Global = &Scheduler{}

// Add pushes task onto the ready queue (spec.md §4.G add).
func (s *Scheduler) Add(task Entry) {
	s.Lock()
	defer s.Unlock()
	heap.Push(&s.q, task)
}

// Fetch pops the minimum-stride ready task and bumps its stride by
// BIG_STRIDE/priority before returning it (spec.md §4.G fetch). Returns
// nil if the queue is empty.
func (s *Scheduler) Fetch() Entry {
	s.Lock()
	defer s.Unlock()
	if s.q.Len() == 0 {
		return nil
	}
	task := heap.Pop(&s.q).(Entry)
	p := task.Priority()
	if p < 2 {
		p = 2
	}
	task.SetStride(task.Stride() + defs.BigStride/p)
	return task
}

// Len reports how many tasks are currently ready, for diagnostics and
// tests.
func (s *Scheduler) Len() int {
	s.Lock()
	defer s.Unlock()
	return s.q.Len()
}
