package registry

import "fmt"

// HookOrderMismatchError is a fatal structural error: a render
// invoked a different kind of hook at a slot than the prior successful
// render invoked there.
type HookOrderMismatchError struct {
	Instance InstanceID
	Slot     int
	Want     HookKind
	Got      HookKind
}

func (e *HookOrderMismatchError) Error() string {
	return fmt.Sprintf("hook order mismatch on instance %d at slot %d: want %s, got %s",
		e.Instance, e.Slot, e.Want, e.Got)
}

// HookCountMismatchError is a fatal structural error: a render
// invoked more or fewer hooks than the instance's committed render count.
type HookCountMismatchError struct {
	Instance InstanceID
	Want     int
	Got      int
}

func (e *HookCountMismatchError) Error() string {
	return fmt.Sprintf("hook count mismatch on instance %d: want %d, got %d", e.Instance, e.Want, e.Got)
}

// ErrInstanceExists is returned by Create when id is already registered.
type instanceExistsError struct{ id InstanceID }

func (e *instanceExistsError) Error() string {
	return fmt.Sprintf("instance %d already exists", e.id)
}

// ErrInstanceExists reports id collisions to Create callers.
func ErrInstanceExists(id InstanceID) error { return &instanceExistsError{id} }
