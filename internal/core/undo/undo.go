// Package undo implements a two-stack command history that is generic over
// the operation type. The manager never inspects the model: it only runs the
// inverse or forward effect supplied for each recorded operation.
package undo

// Effect mutates the model. A nil Effect is a no-op.
type Effect func()

// Manager keeps applied operations on done and undone ones on undone, most
// recent last.
type Manager[T any] struct {
	done    []T
	undone  []T
	inverse func(T) Effect
	forward func(T) Effect
	onApply []func(T)
}

// New creates a Manager. inverse yields the effect applied on Undo, forward
// the effect re-applied on Redo.
func New[T any](inverse, forward func(T) Effect) *Manager[T] {
	return &Manager[T]{inverse: inverse, forward: forward}
}

// OnApply registers fn to run after every undo or redo effect.
func (m *Manager[T]) OnApply(fn func(T)) {
	m.onApply = append(m.onApply, fn)
}

// Record pushes an operation whose effect has already been performed.
// Recording starts a new branch, so the redo stack is discarded.
func (m *Manager[T]) Record(op T) {
	m.done = append(m.done, op)
	clear(m.undone)
	m.undone = m.undone[:0]
}

// Undo reverts the most recent operation. It reports false when there is
// nothing to undo.
func (m *Manager[T]) Undo() (T, bool) {
	op, ok := pop(&m.done)
	if !ok {
		return op, false
	}
	m.apply(m.inverse, op)
	m.undone = append(m.undone, op)
	return op, true
}

// Redo re-applies the most recently undone operation. It reports false when
// there is nothing to redo.
func (m *Manager[T]) Redo() (T, bool) {
	op, ok := pop(&m.undone)
	if !ok {
		return op, false
	}
	m.apply(m.forward, op)
	m.done = append(m.done, op)
	return op, true
}

func (m *Manager[T]) CanUndo() bool { return len(m.done) > 0 }
func (m *Manager[T]) CanRedo() bool { return len(m.undone) > 0 }

// Len returns the sizes of the done and undone stacks.
func (m *Manager[T]) Len() (done, undone int) {
	return len(m.done), len(m.undone)
}

// Clear drops both stacks.
func (m *Manager[T]) Clear() {
	clear(m.done)
	clear(m.undone)
	m.done = m.done[:0]
	m.undone = m.undone[:0]
}

func (m *Manager[T]) apply(effect func(T) Effect, op T) {
	if effect != nil {
		if fn := effect(op); fn != nil {
			fn()
		}
	}
	for _, fn := range m.onApply {
		fn(op)
	}
}

func pop[T any](stack *[]T) (T, bool) {
	var zero T
	s := *stack
	if len(s) == 0 {
		return zero, false
	}
	op := s[len(s)-1]
	s[len(s)-1] = zero
	*stack = s[:len(s)-1]
	return op, true
}
