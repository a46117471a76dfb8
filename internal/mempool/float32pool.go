// Package mempool recycles the float32 buffers that hold recognizer input
// tensors, pooled per size class.
package mempool

import "sync"

// classStep is the granularity of size classes.
const classStep = 4096

var pools sync.Map // size class -> *sync.Pool of []float32

func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

func poolFor(cls int) *sync.Pool {
	if p, ok := pools.Load(cls); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]float32, cls)
		return &buf
	}})
	return p.(*sync.Pool)
}

// GetFloat32 returns a buffer of length n. Its contents are unspecified.
// Return it with PutFloat32 once nothing refers to it any more.
func GetFloat32(n int) []float32 {
	if n < 0 {
		n = 0
	}
	bp := poolFor(sizeClass(n)).Get().(*[]float32)
	return (*bp)[:n]
}

// PutFloat32 hands buf back to its pool. Nil and foreign buffers whose
// capacity is not a size class are dropped.
func PutFloat32(buf []float32) {
	c := cap(buf)
	if c == 0 || c != sizeClass(c) {
		return
	}
	buf = buf[:c]
	poolFor(c).Put(&buf)
}
