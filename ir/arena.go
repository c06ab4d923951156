package ir

import (
	"sync"
	"sync/atomic"
)

// DefaultBlockSize is the launch block size of a kernel that does not set one.
var DefaultBlockSize = [3]uint32{256, 1, 1}

// Arena owns every Function of a compilation unit. Functions are addressed by
// FunctionHandle and released together with the arena.
//
// Variable uids are issued arena-wide, so generated names never collide
// within one unit. Distinct Functions may be recorded concurrently.
type Arena struct {
	mu        sync.RWMutex
	functions []*Function
	uids      atomic.Uint32
	blockSize [3]uint32
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{blockSize: DefaultBlockSize}
}

// SetDefaultBlockSize sets the block size of kernels started after the call.
// Builder.SetBlockSize still overrides it per kernel.
func (a *Arena) SetDefaultBlockSize(bs [3]uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blockSize = bs
}

// NewKernel starts recording a kernel.
func (a *Arena) NewKernel(name string) *Builder {
	f := a.register(KindKernel, name)
	a.mu.RLock()
	f.blockSize = a.blockSize
	a.mu.RUnlock()
	return newBuilder(f)
}

// NewCallable starts recording a callable.
func (a *Arena) NewCallable(name string) *Builder {
	return newBuilder(a.register(KindCallable, name))
}

// Function returns the function with handle h, or nil if there is none.
func (a *Arena) Function(h FunctionHandle) *Function {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(h) >= len(a.functions) {
		return nil
	}
	return a.functions[h]
}

// Len returns the number of functions in the arena.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.functions)
}

func (a *Arena) register(kind FunctionKind, name string) *Function {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := &Function{
		arena:  a,
		handle: FunctionHandle(len(a.functions)), //nolint:gosec // G115: arena size fits uint32
		kind:   kind,
		name:   name,
		body:   newScope(),
		usages: make(map[uint32]Usage),
	}
	a.functions = append(a.functions, f)
	return f
}

func (a *Arena) nextUID() uint32 {
	return a.uids.Add(1) - 1
}
