package state

import "sync"

// Value holds a single piece of observable state. Controllers expose their
// state as Values; views subscribe and re-render on change. Notification runs
// synchronously in the goroutine that called Set, so subscribers must hand
// off to their own scheduler (e.g. tview's QueueUpdateDraw) before touching
// UI primitives.
type Value[T any] struct {
	mu     sync.Mutex
	val    T
	subs   map[int]func(T)
	nextID int
}

// NewValue creates a Value holding the given initial state
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{
		val:  initial,
		subs: make(map[int]func(T)),
	}
}

// Get returns the current state
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.val
}

// Set replaces the state and notifies all subscribers
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.val = val
	subs := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(val)
	}
}

// Update applies fn to the current state and notifies subscribers
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	v.val = fn(v.val)
	val := v.val
	subs := make([]func(T), 0, len(v.subs))
	for _, s := range v.subs {
		subs = append(subs, s)
	}
	v.mu.Unlock()

	for _, s := range subs {
		s(val)
	}
}

// Subscribe registers fn to be called on every change. The returned cancel
// function removes the subscription; calling it more than once is harmless.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}
