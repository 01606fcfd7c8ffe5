package resource

import (
	"sync"
)

// Table tracks reference-counted resources and notifies observers about
// their lifecycle.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value with one reference and returns its handle.
func (t *Table) Insert(typeID uint32, value any) Handle {
	handle := t.backend.Create(typeID, value)

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
		Refs:   1,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// Retain adds a reference to a live handle.
func (t *Table) Retain(handle Handle) bool {
	return t.retain(handle, nil, false)
}

// RetainIf adds a reference only while handle still holds value, so a
// holder of a freed and reused handle cannot retain the newcomer.
func (t *Table) RetainIf(handle Handle, value any) bool {
	return t.retain(handle, value, true)
}

func (t *Table) retain(handle Handle, owner any, check bool) bool {
	typeID, refs, ok := t.backend.retain(handle, owner, check)
	if !ok {
		return false
	}

	t.notify(Event{
		Type:   EventRetained,
		Handle: handle,
		TypeID: typeID,
		Refs:   refs,
	})
	return true
}

// Release drops a reference. When it was the last one the value's Dropper
// runs and dropped is true; its error is returned.
func (t *Table) Release(handle Handle) (dropped bool, err error) {
	return t.release(handle, nil, false)
}

// ReleaseIf drops a reference only while handle still holds value. It
// returns ErrStale otherwise.
func (t *Table) ReleaseIf(handle Handle, value any) (dropped bool, err error) {
	return t.release(handle, value, true)
}

func (t *Table) release(handle Handle, owner any, check bool) (bool, error) {
	value, typeID, refs, ok := t.backend.release(handle, owner, check)
	if !ok {
		return false, ErrStale
	}

	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
		Refs:   refs,
	})
	if refs > 0 {
		return false, nil
	}

	var err error
	if d, ok := value.(Dropper); ok {
		err = d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return true, err
}

// Refs returns the reference count of a live handle.
func (t *Table) Refs(handle Handle) (int32, bool) {
	return t.backend.Refs(handle)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of active resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all active resources. fn must not call back into the
// table.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.backend.Each(fn)
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
