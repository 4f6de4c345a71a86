package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

// Submitter is what services depend on to push background work
type Submitter interface {
	Submit(name string, t Task) bool
}

type job struct {
	name string
	task Task
}

type WorkerPool struct {
	taskQueue chan job
	wg        sync.WaitGroup
	mu        sync.RWMutex // guards close(taskQueue) against in-flight Submit
	isClosing atomic.Bool
	timeout   time.Duration
	log       *logrus.Entry
}

func NewWorkerPool(size int, timeout time.Duration) *WorkerPool {
	wp := &WorkerPool{
		taskQueue: make(chan job, 1000), // Buffer for 1000 pending tasks
		timeout:   timeout,
		log:       logrus.WithField("component", "worker"),
	}

	for i := 0; i < size; i++ {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for j := range wp.taskQueue {
		wp.run(j)
	}
}

func (wp *WorkerPool) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), wp.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			wp.log.WithField("task", j.name).Errorf("task panicked: %v", r)
		}
	}()

	if err := j.task(ctx); err != nil {
		wp.log.WithError(err).WithField("task", j.name).Warn("Worker task failed")
	}
}

// Submit queues t. It returns false when the pool is shutting down or the
// queue is full; the task is dropped in both cases.
func (wp *WorkerPool) Submit(name string, t Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.isClosing.Load() {
		wp.log.WithField("task", name).Warn("task submitted during shutdown, dropping")
		return false
	}
	select {
	case wp.taskQueue <- job{name: name, task: t}:
		return true
	default:
		wp.log.WithField("task", name).Warn("Task queue full, dropping task")
		return false
	}
}

// Shutdown closes the queue and waits for workers to finish
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if !wp.isClosing.CompareAndSwap(false, true) {
		wp.mu.Unlock()
		return
	}
	close(wp.taskQueue)
	wp.mu.Unlock()
	wp.wg.Wait()
}
