package resource

import (
	"errors"
	"sync"
)

var ErrStale = errors.New("stale or unknown resource handle")

// LocalBackend is an in-memory resource backend with reference counting.
// Freed slots are reused, most recently freed first.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	live     int
	mu       sync.RWMutex
}

type entry struct {
	value  any
	typeID uint32
	refs   int32
	valid  bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// slot returns the live entry for h. Callers hold mu.
func (b *LocalBackend) slot(h Handle) (*entry, bool) {
	if h == 0 || int(h) > len(b.entries) {
		return nil, false
	}
	e := &b.entries[h-1]
	return e, e.valid
}

// owned returns the live entry for h if it holds owner, or any value when
// check is false. Callers hold mu.
func (b *LocalBackend) owned(h Handle, owner any, check bool) (*entry, bool) {
	e, ok := b.slot(h)
	if !ok || (check && e.value != owner) {
		return nil, false
	}
	return e, true
}

// Create stores a value with a reference count of one and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	fresh := entry{value: value, typeID: typeID, refs: 1, valid: true}
	b.live++

	if n := len(b.freeList); n > 0 {
		h := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		b.entries[h-1] = fresh
		return h
	}
	b.entries = append(b.entries, fresh)
	return Handle(len(b.entries))
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(h Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.slot(h)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Retain increments the reference count for a handle.
func (b *LocalBackend) Retain(h Handle) (int32, bool) {
	_, refs, ok := b.retain(h, nil, false)
	return refs, ok
}

// RetainIf increments the reference count only while h still holds value.
// value must be comparable.
func (b *LocalBackend) RetainIf(h Handle, value any) (int32, bool) {
	_, refs, ok := b.retain(h, value, true)
	return refs, ok
}

func (b *LocalBackend) retain(h Handle, owner any, check bool) (uint32, int32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.owned(h, owner, check)
	if !ok {
		return 0, 0, false
	}
	e.refs++
	return e.typeID, e.refs, true
}

// Release decrements the reference count for a handle. The slot is freed
// when the count reaches zero; the value is returned in every case.
func (b *LocalBackend) Release(h Handle) (any, int32, bool) {
	value, _, refs, ok := b.release(h, nil, false)
	return value, refs, ok
}

// ReleaseIf decrements the reference count only while h still holds value.
// value must be comparable.
func (b *LocalBackend) ReleaseIf(h Handle, value any) (int32, bool) {
	_, _, refs, ok := b.release(h, value, true)
	return refs, ok
}

func (b *LocalBackend) release(h Handle, owner any, check bool) (any, uint32, int32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.owned(h, owner, check)
	if !ok {
		return nil, 0, 0, false
	}

	value, typeID := e.value, e.typeID
	if e.refs--; e.refs > 0 {
		return value, typeID, e.refs, true
	}

	*e = entry{}
	b.live--
	b.freeList = append(b.freeList, h)
	return value, typeID, 0, true
}

// Refs returns the current reference count for a handle.
func (b *LocalBackend) Refs(h Handle) (int32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.slot(h)
	if !ok {
		return 0, false
	}
	return e.refs, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(h Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.slot(h)
	if !ok {
		return 0, false
	}
	return e.typeID, true
}

// Len returns the number of live resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each calls fn for every live resource until fn returns false. fn must
// not call back into the backend.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid && !fn(Handle(i+1), e.typeID, e.value) {
			return
		}
	}
}
