package sandbox

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.starlark.net/starlark"
)

// guard cancels a thread when its context ends or its step budget runs out
type guard struct {
	done      chan struct{}
	once      sync.Once
	cancelled atomic.Bool
	exhausted atomic.Bool
}

func watch(ctx context.Context, thread *starlark.Thread, maxSteps uint64) *guard {
	g := &guard{done: make(chan struct{})}
	if maxSteps > 0 {
		thread.SetMaxExecutionSteps(maxSteps)
		thread.OnMaxSteps = func(th *starlark.Thread) {
			g.exhausted.Store(true)
			th.Cancel("too many steps")
		}
	}
	go func() {
		select {
		case <-ctx.Done():
			g.cancelled.Store(true)
			thread.Cancel(ctx.Err().Error())
		case <-g.done:
		}
	}()
	return g
}

func (g *guard) stop() {
	g.once.Do(func() { close(g.done) })
}

func (g *guard) interrupted() bool {
	return g.cancelled.Load() || g.exhausted.Load()
}

func (g *guard) stepsExceeded() bool {
	return g.exhausted.Load()
}

const truncatedMarker = "...[output truncated]\n"

// outputBuffer collects print output up to a byte limit
type outputBuffer struct {
	mu        sync.Mutex
	sb        strings.Builder
	limit     int
	truncated bool
}

func newOutputBuffer(limit int) *outputBuffer {
	return &outputBuffer{limit: limit}
}

func (b *outputBuffer) WriteLine(msg string) {
	b.add(msg + "\n")
}

// Write lets the buffer collect a process stream
func (b *outputBuffer) Write(p []byte) (int, error) {
	b.add(string(p))
	return len(p), nil
}

func (b *outputBuffer) add(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return
	}
	if b.limit > 0 && b.sb.Len()+len(text) > b.limit {
		if room := b.limit - b.sb.Len(); room > 0 {
			b.sb.WriteString(text[:room])
		}
		b.sb.WriteString(truncatedMarker)
		b.truncated = true
		return
	}
	b.sb.WriteString(text)
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}
