// Package bufpool implements the reusable CDR buffer pool every request
// and reply is marshaled through. The pool grows on demand and never
// shrinks; it tracks an outstanding count that is the canonical leak
// detector the ORB's tests check after every happy-path operation
// (spec.md §8 property 9).
package bufpool

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sol-eng/wrmiorb/pkg/cdr"
)

// Pool is a single-owner-at-a-time collection of idle CDR buffers, plus a
// count of buffers currently acquired and not yet released. It is safe
// for concurrent use, though the ORB core itself only ever touches it
// from its owning goroutine (spec.md §5).
type Pool struct {
	mu          sync.Mutex
	idle        []*cdr.Buffer
	outstanding int
	capacity    int
}

// New builds a pool whose freshly allocated buffers have the given
// default capacity (use cdr.DefaultCapacity, 64 KiB, when unsure).
func New(defaultCapacity int) *Pool {
	if defaultCapacity <= 0 {
		defaultCapacity = cdr.DefaultCapacity
	}
	return &Pool{capacity: defaultCapacity}
}

// Acquire returns an idle buffer if one is available, else allocates a
// fresh one at the pool's default capacity. The buffer is returned in
// write mode, freshly cleared. The outstanding counter is incremented.
func (p *Pool) Acquire() *cdr.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	var buf *cdr.Buffer
	if n := len(p.idle); n > 0 {
		buf = p.idle[n-1]
		p.idle = p.idle[:n-1]
	} else {
		buf = cdr.New(p.capacity)
	}
	buf.Clear()
	p.outstanding++
	return buf
}

// Release returns buf to the idle set and decrements the outstanding
// counter. The buffer's contents are not reset here; the next Acquire
// calls Clear before handing it back out.
func (p *Pool) Release(buf *cdr.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle = append(p.idle, buf)
	p.outstanding--
	if p.outstanding < 0 {
		log.Warn("[BUFPOOL] outstanding count went negative, double release?")
	}
}

// Outstanding returns the number of buffers currently acquired and not
// yet released. Tests use this as the leak-detector anchor.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Idle returns the number of buffers currently sitting idle in the pool.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}
