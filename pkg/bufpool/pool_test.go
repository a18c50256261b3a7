package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireAllocatesWhenEmpty(t *testing.T) {
	p := New(128)
	buf := p.Acquire()
	assert.NotNil(t, buf)
	assert.Equal(t, 1, p.Outstanding())
	assert.Equal(t, 0, p.Idle())
}

func TestReleaseReturnsToIdleAndClearsOutstanding(t *testing.T) {
	p := New(128)
	buf := p.Acquire()
	p.Release(buf)
	assert.Equal(t, 0, p.Outstanding())
	assert.Equal(t, 1, p.Idle())
}

func TestAcquireReusesIdleBuffer(t *testing.T) {
	p := New(128)
	first := p.Acquire()
	p.Release(first)
	second := p.Acquire()
	assert.Same(t, first, second)
	assert.Equal(t, 1, p.Outstanding())
	assert.Equal(t, 0, p.Idle())
}

func TestAcquireClearsBufferState(t *testing.T) {
	p := New(128)
	buf := p.Acquire()
	buf.WriteI32(42)
	p.Release(buf)

	again := p.Acquire()
	assert.Equal(t, 0, again.Position())
	assert.Equal(t, again.Capacity(), again.Limit())
}

func TestPoolGrowsWithoutBound(t *testing.T) {
	p := New(16)
	a := p.Acquire()
	b := p.Acquire()
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, p.Outstanding())
}
