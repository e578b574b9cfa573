package objects

import (
	"math"
	"sort"

	"regoth/internal/errs"
)

// Storage owns every live script object. Code elsewhere keeps only handles and
// resolves them here, so a save-game reload can rebuild the backing map
// without invalidating references.
type Storage struct {
	objects    map[Handle]*Object
	destroyed  map[Handle]bool
	nextHandle Handle
	limit      Handle
}

// NewStorage creates an empty object storage. The first handle is 1.
func NewStorage() *Storage {
	return &Storage{
		objects:    make(map[Handle]*Object),
		destroyed:  make(map[Handle]bool),
		nextHandle: 1,
		limit:      math.MaxUint32,
	}
}

// Create adds a blank record and returns its handle.
func (s *Storage) Create(className string) (Handle, error) {
	return s.add(NewObject(className))
}

// CreateFromTemplate adds a structural copy of template and returns its handle.
func (s *Storage) CreateFromTemplate(template *Object) (Handle, error) {
	return s.add(template.Clone())
}

func (s *Storage) add(obj *Object) (Handle, error) {
	if s.nextHandle >= s.limit {
		return InvalidHandle, errs.InvalidState("script object handles exhausted")
	}
	handle := s.nextHandle
	s.nextHandle++

	obj.Handle = handle
	s.objects[handle] = obj
	return handle, nil
}

// Get resolves a handle.
func (s *Storage) Get(handle Handle) (*Object, error) {
	if handle == InvalidHandle {
		return nil, errs.InvalidState("invalid script object handle")
	}
	obj, ok := s.objects[handle]
	if !ok {
		return nil, errs.InvalidState("unknown script object handle %d", handle)
	}
	return obj, nil
}

// Exists reports whether handle refers to a live object.
func (s *Storage) Exists(handle Handle) bool {
	_, ok := s.objects[handle]
	return ok
}

// Destroy removes a live object.
func (s *Storage) Destroy(handle Handle) error {
	if _, ok := s.objects[handle]; !ok {
		if s.destroyed[handle] {
			return errs.InvalidState("script object %d already destroyed", handle)
		}
		return errs.InvalidState("unknown script object handle %d", handle)
	}
	delete(s.objects, handle)
	s.destroyed[handle] = true
	return nil
}

// IsDestroyed reports whether handle belonged to an object that was destroyed.
func (s *Storage) IsDestroyed(handle Handle) bool {
	return s.destroyed[handle]
}

// Clear drops every object and resets the handle counter.
func (s *Storage) Clear() {
	s.objects = make(map[Handle]*Object)
	s.destroyed = make(map[Handle]bool)
	s.nextHandle = 1
}

// Len returns the number of live objects.
func (s *Storage) Len() int {
	return len(s.objects)
}

// Handles returns all live handles in ascending order.
func (s *Storage) Handles() []Handle {
	handles := make([]Handle, 0, len(s.objects))
	for h := range s.objects {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// NextHandle returns the handle the next Create will assign.
func (s *Storage) NextHandle() Handle {
	return s.nextHandle
}

// Restore puts a saved object back under its original handle. It is used
// while loading a save-game after Clear; nextHandle is moved past the
// restored handle so new objects never collide.
func (s *Storage) Restore(obj *Object) error {
	if obj.Handle == InvalidHandle {
		return errs.InvalidParameters("cannot restore object without handle")
	}
	if _, ok := s.objects[obj.Handle]; ok {
		return errs.InvalidState("script object %d already exists", obj.Handle)
	}
	s.objects[obj.Handle] = obj
	delete(s.destroyed, obj.Handle)
	if obj.Handle >= s.nextHandle {
		s.nextHandle = obj.Handle + 1
	}
	return nil
}

// SetNextHandle moves the handle counter forward, e.g. to the value recorded
// in a save-game. It never moves backwards.
func (s *Storage) SetNextHandle(next Handle) {
	if next > s.nextHandle {
		s.nextHandle = next
	}
}
