// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

type task struct {
	id       int64
	execute  time.Time
	interval time.Duration
	callback func()
	index    int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].execute.Before(q[j].execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Scheduler runs callbacks after a delay, optionally repeating. Callbacks run on their own
// goroutine so a slow one never delays the others.
type Scheduler struct {
	queue  taskQueue
	mutex  sync.Mutex
	nextID int64
	wake   chan struct{}
	stop   chan struct{}
	once   sync.Once
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		queue:  make(taskQueue, 0),
		nextID: 1,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	heap.Init(&s.queue)
	go s.process()
	return s
}

// After runs callback once after delay.
func (s *Scheduler) After(delay time.Duration, callback func()) int64 {
	return s.add(delay, 0, callback)
}

// Every runs callback every interval, starting one interval from now.
func (s *Scheduler) Every(interval time.Duration, callback func()) int64 {
	return s.add(interval, interval, callback)
}

func (s *Scheduler) add(delay, interval time.Duration, callback func()) int64 {
	s.mutex.Lock()
	t := &task{
		id:       s.nextID,
		execute:  time.Now().Add(delay),
		interval: interval,
		callback: callback,
	}
	s.nextID++
	heap.Push(&s.queue, t)
	s.mutex.Unlock()

	s.notify()
	return t.id
}

// Cancel removes a pending task. Unknown ids are ignored.
func (s *Scheduler) Cancel(id int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, t := range s.queue {
		if t.id == id {
			heap.Remove(&s.queue, i)
			return
		}
	}
}

func (s *Scheduler) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queue.Len()
}

// Stop ends the scheduler. Pending tasks never run; running callbacks are not interrupted.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) process() {
	t := time.NewTimer(time.Hour)
	defer t.Stop()

	for {
		t.Reset(s.fire(time.Now()))

		select {
		case <-s.stop:
			return
		case <-s.wake:
		case <-t.C:
		}
	}
}

// fire starts every due task and returns how long to sleep until the next one.
func (s *Scheduler) fire(now time.Time) time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.execute.After(now) {
			return next.execute.Sub(now)
		}
		heap.Pop(&s.queue)
		go next.callback()

		if next.interval > 0 {
			next.execute = now.Add(next.interval)
			heap.Push(&s.queue, next)
		}
	}
	return time.Hour
}
