package formatter

import (
	"bytes"
	"sync"
)

var bufPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

// buffer is a bytes.Buffer borrowed from a pool while one record is
// formatted.
type buffer struct {
	*bytes.Buffer
}

func newBuffer() *buffer {
	b := new(buffer)
	b.alloc()
	return b
}

func (self *buffer) alloc() { self.Buffer = bufPool.Get().(*bytes.Buffer) }

// Detach returns a copy of the formatted bytes and returns the buffer to
// the pool. The buffer must not be used afterwards.
func (self *buffer) Detach() []byte {
	b := bytes.Clone(self.Bytes())
	self.free()
	return b
}

func (self *buffer) free() {
	// To reduce peak allocation, return only smaller buffers to the pool.
	const maxBufferSize = 16 << 10
	if self.Cap() <= maxBufferSize {
		self.Reset()
		bufPool.Put(self.Buffer)
	}
	self.Buffer = nil
}
