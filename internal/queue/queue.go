// Package queue provides the work queue shared by crawl workers.
//
// The queue tracks every task from Enqueue until the matching MarkDone, not only
// while it sits in the queue. A worker that dequeued a directory and is still
// pushing its subdirectories keeps the in-flight count above zero, so
// AwaitQuiescence can never observe a transient empty queue as completion.
package queue

import (
	"context"
	"sync"
)

// Queue is a FIFO of crawl-relative directory paths with quiescence detection.
// It is safe for use by multiple producers and consumers.
type Queue struct {
	mu       sync.Mutex
	ready    *sync.Cond // a task was added or the queue shut down
	idle     *sync.Cond // in-flight reached zero or the queue shut down
	tasks    []string
	inFlight int
	closed   bool
}

// New returns an empty queue.
func New() *Queue {
	q := &Queue{}
	q.ready = sync.NewCond(&q.mu)
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Enqueue counts task as in flight and then makes it available to Dequeue.
// It returns false if the queue has been shut down; the task is dropped.
func (q *Queue) Enqueue(task string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.inFlight++
	q.tasks = append(q.tasks, task)
	q.ready.Signal()
	return true
}

// Dequeue blocks until a task is available, the queue is shut down or ctx is
// done. ok is false in the latter two cases.
func (q *Queue) Dequeue(ctx context.Context) (task string, ok bool) {
	stop := context.AfterFunc(ctx, q.wakeAll)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tasks) == 0 && !q.closed && ctx.Err() == nil {
		q.ready.Wait()
	}
	if q.closed || ctx.Err() != nil {
		return "", false
	}

	task = q.tasks[0]
	q.tasks[0] = ""
	q.tasks = q.tasks[1:]
	return task, true
}

// MarkDone retires a dequeued task. It must be called exactly once per task and
// only after every task discovered while processing it has been enqueued.
func (q *Queue) MarkDone(task string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.inFlight <= 0 {
		panic("queue: MarkDone(" + task + ") without a matching Enqueue")
	}
	q.inFlight--
	if q.inFlight == 0 && len(q.tasks) == 0 {
		q.idle.Broadcast()
	}
}

// AwaitQuiescence blocks until no task is queued or in flight. It returns
// ctx.Err() if ctx ends first, and nil immediately if the queue was shut down.
func (q *Queue) AwaitQuiescence(ctx context.Context) error {
	stop := context.AfterFunc(ctx, q.wakeAll)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for !(q.inFlight == 0 && len(q.tasks) == 0) && !q.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.idle.Wait()
	}
	return nil
}

// Shutdown releases every blocked Dequeue and AwaitQuiescence call. Tasks still
// queued are discarded and their count is returned. Tasks already handed to a
// worker remain in flight until marked done.
func (q *Queue) Shutdown() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true
	dropped := len(q.tasks)
	q.inFlight -= dropped
	q.tasks = nil
	q.ready.Broadcast()
	q.idle.Broadcast()
	return dropped
}

// InFlight returns the number of tasks enqueued but not yet marked done.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// Len returns the number of tasks waiting to be dequeued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) wakeAll() {
	q.mu.Lock()
	q.ready.Broadcast()
	q.idle.Broadcast()
	q.mu.Unlock()
}
