package vm

import (
	"time"

	"github.com/kristofer/smog/pkg/value"
)

// processStart anchors clock() at the moment this package was loaded, the
// closest a Go program gets to clox's CLOCKS_PER_SEC-relative process time
// without cgo.
var processStart = time.Now()

// defineNatives installs the host-provided functions every VM starts with.
// Each is wired through the same global table user-defined globals use, so
// shadowing a native is ordinary variable redefinition rather than a
// special case.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", 0, func(args []value.Value) (value.Value, error) {
		return value.NumberValue(time.Since(processStart).Seconds()), nil
	})
}

func (vm *VM) defineNative(name string, arity int, fn value.NativeFn) {
	nameStr := vm.Intern(name)
	native := vm.newNative(name, arity, fn)
	vm.globals.Set(nameStr, value.ObjValue(native))
}
