package variables

import (
	"fmt"
	"reflect"
	"sync"
)

// registry records which concrete Variable type a symbol-family tag is
// declared to hold, the runtime counterpart of the symbol-to-variable-type
// macro sugar the core treats as an external collaborator. Values.Set
// consults it to reject a type mismatch before it reaches the optimizer.
var registry = struct {
	mu sync.RWMutex
	m  map[byte]reflect.Type
}{m: make(map[byte]reflect.Type)}

// Register declares that tag identifies variables of zero's concrete type.
// Re-registering a tag with a different type is an error; re-registering
// with the same type is a no-op.
func Register(tag byte, zero Variable) error {
	t := reflect.TypeOf(zero)
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if existing, ok := registry.m[tag]; ok {
		if existing != t {
			return fmt.Errorf("variables: tag %q already registered for %s, cannot reassign to %s", tag, existing, t)
		}
		return nil
	}
	registry.m[tag] = t
	return nil
}

// TypeOf returns the concrete type registered for tag, if any.
func TypeOf(tag byte) (reflect.Type, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	t, ok := registry.m[tag]
	return t, ok
}

func init() {
	// Register factorgo's built-in symbol families under their conventional
	// letters; callers remain free to Register their own tags, while
	// re-registering one of these letters for a different type is rejected.
	_ = Register('x', SE3{})
	_ = Register('p', SE2{})
	_ = Register('v', NewVectorVarN([]float64{0, 0, 0}))
	_ = Register('b', ImuBias{})
	_ = Register('r', SO3{})
	_ = Register('a', SO2{})
}
