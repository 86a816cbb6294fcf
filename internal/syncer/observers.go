package syncer

import "sync"

// observers is a registry of event handlers guarded by the engine mutex.
// Handlers run on the emitting goroutine, outside the lock.
type observers[T any] struct {
	nextID   int
	handlers map[int]func(T)
	order    []int
}

func (o *observers[T]) add(mu *sync.Mutex, fn func(T)) func() {
	mu.Lock()
	defer mu.Unlock()

	if o.handlers == nil {
		o.handlers = make(map[int]func(T))
	}
	id := o.nextID
	o.nextID++
	o.handlers[id] = fn
	o.order = append(o.order, id)

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if _, ok := o.handlers[id]; !ok {
			return
		}
		delete(o.handlers, id)
		for i, v := range o.order {
			if v == id {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
	}
}

func (o *observers[T]) emit(mu *sync.Mutex, ev T) {
	mu.Lock()
	fns := make([]func(T), 0, len(o.order))
	for _, id := range o.order {
		fns = append(fns, o.handlers[id])
	}
	mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
