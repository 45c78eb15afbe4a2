// Package processor provides record enrichment steps and the LIFO stack a
// handler keeps them in.
package processor

import (
	"errors"
	"slices"

	"github.com/dsh2dsh/logchain/internal/logger"
)

var (
	ErrEmptyStack   = errors.New("processor: pop from empty stack")
	ErrNotInvocable = errors.New("processor: nil processor")
)

// Processor transforms a record. It receives a record owned by the calling
// handler and returns the record to pass on.
type Processor func(r logger.Record) logger.Record

// Stack is an ordered list of processors owned by one handler. Processors
// are pushed and popped at the tail and applied first-pushed first.
type Stack struct {
	items []Processor
}

func NewStack(processors ...Processor) (*Stack, error) {
	s := new(Stack)
	for _, p := range processors {
		if err := s.Push(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (self *Stack) Push(p Processor) error {
	if p == nil {
		return ErrNotInvocable
	}
	self.items = append(self.items, p)
	return nil
}

// Pop removes and returns the processor pushed last. Popping an empty stack
// means pushes and pops are unbalanced, which is a bug of the caller.
func (self *Stack) Pop() (Processor, error) {
	if len(self.items) == 0 {
		return nil, ErrEmptyStack
	}
	last := len(self.items) - 1
	p := self.items[last]
	self.items[last] = nil
	self.items = self.items[:last]
	return p, nil
}

func (self *Stack) Len() int { return len(self.items) }

// Apply runs all processors on r, the first pushed first, each one getting
// the output of the previous one.
func (self *Stack) Apply(r logger.Record) logger.Record {
	for _, p := range self.items {
		r = p(r)
	}
	return r
}

func (self *Stack) Clone() *Stack {
	return &Stack{items: slices.Clone(self.items)}
}
