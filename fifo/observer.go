package fifo

// Subscription identifies one registered observer.
type Subscription struct {
	e  *edge
	id uint64
}

// Unsubscribe removes the observer. Called from inside a notification, the
// removal takes effect once every observer of that notification has run.
// Unsubscribing twice is a no-op.
func (s Subscription) Unsubscribe() {
	if s.e == nil {
		return
	}
	s.e.remove(s.id)
}

type subscriber struct {
	fn func(bool)
	id uint64
}

// edge is an ordered observer list for one transition channel.
type edge struct {
	subs    []subscriber
	pending []uint64
	nextID  uint64
	firing  int
}

func (e *edge) add(fn func(bool)) Subscription {
	e.nextID++
	e.subs = append(e.subs, subscriber{id: e.nextID, fn: fn})
	return Subscription{e: e, id: e.nextID}
}

func (e *edge) remove(id uint64) {
	if e.firing > 0 {
		e.pending = append(e.pending, id)
		return
	}
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

func (e *edge) fire(state bool) {
	if len(e.subs) == 0 {
		return
	}

	e.firing++
	subs := e.subs
	for _, s := range subs {
		s.fn(state)
	}
	e.firing--

	if e.firing == 0 && len(e.pending) > 0 {
		pending := e.pending
		e.pending = nil
		for _, id := range pending {
			e.remove(id)
		}
	}
}

func (e *edge) len() int {
	return len(e.subs)
}
