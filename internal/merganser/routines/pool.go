// Package routines provides a simple goroutine pool.
package routines

import "sync"

// Pool runs queued functions on a fixed number of goroutines.
type Pool struct {
	queue chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts size goroutines that process queued functions.
func NewPool(size int) *Pool {
	p := Pool{
		queue: make(chan func()),
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()

			for fn := range p.queue {
				fn()
			}
		}()
	}

	return &p
}

// Queue schedules fn to be run by one of the goroutines of the pool.
// It blocks until a goroutine accepted the function.
// Calling Queue after Wait panics.
func (p *Pool) Queue(fn func()) {
	p.queue <- fn
}

// Wait stops accepting new functions and blocks until all queued functions
// were run and the goroutines of the pool terminated.
// It can be called multiple times.
func (p *Pool) Wait() {
	p.mu.Lock()
	if !p.closed {
		close(p.queue)
		p.closed = true
	}
	p.mu.Unlock()

	p.wg.Wait()
}
