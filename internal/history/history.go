// Package history implements a bounded linear undo/redo stack.
package history

import "sync"

// DefaultCapacity bounds the number of retained states.
const DefaultCapacity = 50

// Stack is a bounded undo/redo stack with standard linear semantics:
// saving a new state discards any redo states beyond the current
// pointer, and the oldest state is evicted once capacity is reached.
// Safe for concurrent use.
type Stack[T any] struct {
	mu       sync.Mutex
	states   []T
	pos      int // index of the current state, -1 when empty
	capacity int
}

// New creates a stack with the given capacity; values below 1 fall back
// to DefaultCapacity.
func New[T any](capacity int) *Stack[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Stack[T]{pos: -1, capacity: capacity}
}

// Save pushes a new state after the current pointer, discarding any
// redo states and evicting the oldest entry past capacity.
func (s *Stack[T]) Save(state T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states = append(s.states[:s.pos+1], state)
	if len(s.states) > s.capacity {
		s.states = s.states[len(s.states)-s.capacity:]
	}
	s.pos = len(s.states) - 1
}

// Undo moves the pointer back one state. The second return is false at
// the boundary, leaving the pointer unchanged.
func (s *Stack[T]) Undo() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.pos <= 0 {
		return zero, false
	}
	s.pos--
	return s.states[s.pos], true
}

// Redo moves the pointer forward one state. The second return is false
// at the boundary.
func (s *Stack[T]) Redo() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.pos < 0 || s.pos >= len(s.states)-1 {
		return zero, false
	}
	s.pos++
	return s.states[s.pos], true
}

// Current returns the state under the pointer.
func (s *Stack[T]) Current() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.pos < 0 {
		return zero, false
	}
	return s.states[s.pos], true
}

// CanUndo reports whether an Undo would succeed.
func (s *Stack[T]) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos > 0
}

// CanRedo reports whether a Redo would succeed.
func (s *Stack[T]) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= 0 && s.pos < len(s.states)-1
}

// Len returns the number of retained states.
func (s *Stack[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Clear drops all states.
func (s *Stack[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = nil
	s.pos = -1
}
