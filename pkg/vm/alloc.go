package vm

import (
	"fmt"
	"unsafe"

	"github.com/kristofer/smog/pkg/table"
	"github.com/kristofer/smog/pkg/value"
)

// sizeOf approximates an object's payload size for the bytes-allocated
// counter, which only drives the next-GC threshold heuristic and isn't
// relied on for correctness.
func sizeOf(o value.Obj) int {
	switch obj := o.(type) {
	case *value.ObjString:
		return int(unsafe.Sizeof(*obj)) + len(obj.Chars)
	case *value.ObjFunction:
		return int(unsafe.Sizeof(*obj)) + len(obj.Chunk.Code) + len(obj.Chunk.Constants)*int(unsafe.Sizeof(value.Value{}))
	case *value.ObjClosure:
		return int(unsafe.Sizeof(*obj)) + len(obj.Upvalues)*int(unsafe.Sizeof((*value.ObjUpvalue)(nil)))
	default:
		return 16
	}
}

// registerObject links a freshly built object into the intrusive
// allocation list, the GC's only record of every live object, then checks
// the heuristic/stress triggers before returning the object to its caller.
func (vm *VM) registerObject(o value.Obj) {
	o.GCHeader().Next = vm.objects
	vm.objects = o

	n := sizeOf(o)
	vm.bytesAllocated += n
	if debugLogGC {
		fmt.Fprintf(vm.Stderr, "%p allocate %d for %s\n", o, n, o.Kind())
	}

	if debugStressGC || vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
}

// newFunction allocates a blank ObjFunction (arity and chunk are filled in
// by the compiler as it emits).
func (vm *VM) newFunction() *value.ObjFunction {
	fn := &value.ObjFunction{}
	vm.registerObject(fn)
	return fn
}

// NewFunction implements compiler.Allocator.
func (vm *VM) NewFunction() *value.ObjFunction { return vm.newFunction() }

func (vm *VM) newNative(name string, arity int, fn value.NativeFn) *value.ObjNative {
	n := &value.ObjNative{Arity: arity, Fn: fn, Name: name}
	vm.registerObject(n)
	return n
}

func (vm *VM) newClosure(fn *value.ObjFunction) *value.ObjClosure {
	cl := &value.ObjClosure{Function: fn, Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount)}
	vm.registerObject(cl)
	return cl
}

func (vm *VM) newClass(name *value.ObjString) *value.ObjClass {
	cl := &value.ObjClass{Name: name, Methods: table.New()}
	vm.registerObject(cl)
	return cl
}

func (vm *VM) newInstance(class *value.ObjClass) *value.ObjInstance {
	inst := &value.ObjInstance{Class: class, Fields: table.New()}
	vm.registerObject(inst)
	return inst
}

func (vm *VM) newBoundMethod(receiver value.Value, method *value.ObjClosure) *value.ObjBoundMethod {
	b := &value.ObjBoundMethod{Receiver: receiver, Method: method}
	vm.registerObject(b)
	return b
}

func (vm *VM) newUpvalue(location *value.Value) *value.ObjUpvalue {
	u := &value.ObjUpvalue{Location: location}
	vm.registerObject(u)
	return u
}

// allocateString builds a brand-new ObjString without consulting the
// intern table; used only by Intern after a miss.
func (vm *VM) allocateString(chars string, hash uint32) *value.ObjString {
	s := &value.ObjString{Chars: chars, Hash: hash}

	// registerObject can itself trigger a collection, and at that point s
	// is linked into vm.objects but marked nowhere: it isn't in the
	// strings table yet (that happens below) and it isn't on the value
	// stack either. Push it as a stack root first so a collection landing
	// inside registerObject still marks it and sweep won't free it out
	// from under us.
	vm.push(value.ObjValue(s))
	vm.registerObject(s)
	vm.strings.Set(s, value.NilValue)
	vm.pop()
	return s
}

// Intern returns the canonical ObjString for chars, allocating and
// registering a new one only on a true miss. This is the single
// chokepoint every string value — literal, identifier, or
// runtime-computed — passes through, which is what lets Value equality
// collapse string comparison to pointer identity.
func (vm *VM) Intern(chars string) *value.ObjString {
	hash := value.HashString(chars)
	if s := vm.strings.FindString(chars, hash); s != nil {
		return s
	}
	return vm.allocateString(chars, hash)
}
