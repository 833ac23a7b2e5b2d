package app

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type closer struct{ closed atomic.Bool }

func (c *closer) Close() error { c.closed.Store(true); return nil }

func TestCloseAfter_WaitsForScheduler(t *testing.T) {
	done := make(chan struct{})
	c := &closer{}
	finished := make(chan struct{})
	go func() {
		closeAfter(done, c, zap.NewNop())
		close(finished)
	}()

	time.Sleep(100 * time.Millisecond)
	if c.closed.Load() {
		t.Fatalf("store closed while the scheduler was still running")
	}
	close(done)
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatalf("closeAfter never returned")
	}
	if !c.closed.Load() {
		t.Fatalf("store not closed")
	}
}
