package unlock

import "sync/atomic"

// Gate runs a success callback at most once, however many times it is fired.
type Gate struct {
	fired atomic.Bool
	fn    func()
}

// NewGate wraps fn; a nil fn is allowed.
func NewGate(fn func()) *Gate {
	return &Gate{fn: fn}
}

// Fire invokes the callback on the first call and reports whether it did.
func (g *Gate) Fire() bool {
	if !g.fired.CompareAndSwap(false, true) {
		return false
	}
	if g.fn != nil {
		g.fn()
	}
	return true
}

// Fired reports whether the callback already ran.
func (g *Gate) Fired() bool {
	return g.fired.Load()
}
