package memory

import (
	"context"
	"sync"
	"sync/atomic"
)

// LocalGate keeps busy flags in process memory. It is enough when a single
// replica serves every session.
type LocalGate struct {
	flags sync.Map // sessionID -> *atomic.Bool
}

var _ Gate = (*LocalGate)(nil)

func NewLocalGate() *LocalGate {
	return &LocalGate{}
}

func (g *LocalGate) Acquire(_ context.Context, sessionID string) (bool, error) {
	flag, _ := g.flags.LoadOrStore(sessionID, new(atomic.Bool))
	return flag.(*atomic.Bool).CompareAndSwap(false, true), nil
}

func (g *LocalGate) Release(_ context.Context, sessionID string) error {
	if flag, ok := g.flags.Load(sessionID); ok {
		flag.(*atomic.Bool).Store(false)
	}
	return nil
}

// Forget drops the flag of a session that is no longer held in memory.
func (g *LocalGate) Forget(sessionID string) {
	g.flags.Delete(sessionID)
}
