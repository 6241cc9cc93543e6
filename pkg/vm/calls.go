package vm

import (
	"unsafe"

	"github.com/kristofer/smog/pkg/value"
)

// callValue dispatches a call instruction's receiver: closures and bound
// methods push a new call frame, classes instantiate, natives invoke
// synchronously and return a single Value, and anything else is a
// runtime error.
func (vm *VM) callValue(callee value.Value, argCount byte) error {
	if callee.Type == value.ObjRef {
		switch obj := callee.Obj.(type) {
		case *value.ObjClosure:
			return vm.call(obj, argCount)
		case *value.ObjBoundMethod:
			vm.stack[vm.sp-int(argCount)-1] = value.ObjValue(obj.Receiver.Obj)
			return vm.call(obj.Method, argCount)
		case *value.ObjClass:
			return vm.instantiate(obj, argCount)
		case *value.ObjNative:
			return vm.callNative(obj, argCount)
		}
	}
	return vm.runtimeError("Can only call functions and classes.")
}

func (vm *VM) call(closure *value.ObjClosure, argCount byte) error {
	if int(argCount) != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = callFrame{
		closure: closure,
		ip:      0,
		slots:   vm.sp - int(argCount) - 1,
	}
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(native *value.ObjNative, argCount byte) error {
	if int(argCount) != native.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
	}
	base := vm.sp - int(argCount)
	args := append([]value.Value(nil), vm.stack[base:vm.sp]...)
	result, err := native.Fn(args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.sp = base - 1
	vm.push(result)
	return nil
}

// instantiate replaces the class value on the stack with a fresh instance
// and, if the class defines an "init" method, calls it as a bound method
// against the new instance before returning control to the caller.
func (vm *VM) instantiate(class *value.ObjClass, argCount byte) error {
	inst := vm.newInstance(class)
	vm.stack[vm.sp-int(argCount)-1] = value.ObjValue(inst)

	if init, ok := class.Methods.Get(vm.initString); ok {
		return vm.call(init.Obj.(*value.ObjClosure), argCount)
	}
	if argCount != 0 {
		return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
	}
	return nil
}

// bindMethod allocates a bound method pairing the instance on the stack
// top with the named method, replacing the instance with the bound value.
func (vm *VM) bindMethod(class *value.ObjClass, name *value.ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	bound := vm.newBoundMethod(vm.peek(0), method.Obj.(*value.ObjClosure))
	vm.pop()
	vm.push(value.ObjValue(bound))
	return nil
}

// captureUpvalue returns the open upvalue for the stack slot at the given
// absolute index, reusing an existing one if the list already has it. The
// open-upvalue list stays sorted by strictly decreasing stack address, so
// the search stops at the first candidate whose address is <= the target.
func (vm *VM) captureUpvalue(localIndex int) *value.ObjUpvalue {
	target := &vm.stack[localIndex]
	var prev *value.ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && vm.slotIndex(cur.Location) > localIndex {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Location == target {
		return cur
	}

	created := vm.newUpvalue(target)
	created.Next = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// slotIndex recovers an open upvalue's stack index from its Location
// pointer, used only to maintain the list's address ordering during
// capture and closing.
func (vm *VM) slotIndex(loc *value.Value) int {
	base := uintptr(unsafe.Pointer(&vm.stack[0]))
	cur := uintptr(unsafe.Pointer(loc))
	return int((cur - base) / unsafe.Sizeof(value.Value{}))
}

// closeUpvalues promotes every open upvalue whose location is at or above
// the given absolute stack index into an inline-owned copy, then removes
// them from the open list.
func (vm *VM) closeUpvalues(fromIndex int) {
	for vm.openUpvalues != nil && vm.slotIndex(vm.openUpvalues.Location) >= fromIndex {
		u := vm.openUpvalues
		u.Close()
		vm.openUpvalues = u.Next
	}
}
