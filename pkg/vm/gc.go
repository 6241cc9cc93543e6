package vm

import (
	"fmt"

	"github.com/kristofer/smog/pkg/value"
)

const gcGrowthFactor = 2

// collectGarbage runs one stop-the-world mark-sweep cycle: mark every
// root, propagate gray objects to black, drop any interned string whose
// key died, then sweep the intrusive object list.
func (vm *VM) collectGarbage() {
	if debugLogGC {
		fmt.Fprintln(vm.Stderr, "-- gc begin")
	}

	vm.markRoots()
	vm.traceReferences()
	vm.sweepStrings()
	vm.sweep()

	vm.nextGC = vm.bytesAllocated * gcGrowthFactor
	if debugLogGC {
		fmt.Fprintln(vm.Stderr, "-- gc end")
	}
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.sp; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for u := vm.openUpvalues; u != nil; u = u.Next {
		vm.markObject(u)
	}
	vm.globals.Each(func(k *value.ObjString, v value.Value) {
		vm.markObject(k)
		vm.markValue(v)
	})
	if vm.activeCompiler != nil {
		for _, fn := range vm.activeCompiler.Roots() {
			vm.markObject(fn)
		}
	}
	vm.markString(vm.initString)
}

// markString marks a possibly-nil *ObjString. Passing a nil *ObjString
// straight to markObject would wrap it in a non-nil Obj interface value
// (Go's classic typed-nil trap), so every call site with an optional
// string field (ObjFunction.Name, vm.initString before it's assigned)
// goes through this instead.
func (vm *VM) markString(s *value.ObjString) {
	if s != nil {
		vm.markObject(s)
	}
}

func (vm *VM) markValue(v value.Value) {
	if v.Type == value.ObjRef {
		vm.markObject(v.Obj)
	}
}

// markObject sets o's mark bit and pushes it onto the gray worklist,
// unless it is nil or already marked.
func (vm *VM) markObject(o value.Obj) {
	if o == nil {
		return
	}
	h := o.GCHeader()
	if h.Marked {
		return
	}
	h.Marked = true
	if debugLogGC {
		fmt.Fprintf(vm.Stderr, "%p mark %s\n", o, o.Kind())
	}
	vm.grayStack = append(vm.grayStack, o)
}

// traceReferences repeatedly pops a gray object and blackens it (marking
// its own outgoing references) until the worklist is empty.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		o := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blacken(o)
	}
}

func (vm *VM) blacken(o value.Obj) {
	if debugLogGC {
		fmt.Fprintf(vm.Stderr, "%p blacken %s\n", o, o.Kind())
	}
	switch obj := o.(type) {
	case *value.ObjString, *value.ObjNative:
		// no outgoing references
	case *value.ObjFunction:
		vm.markString(obj.Name)
		for _, c := range obj.Chunk.Constants {
			vm.markValue(c)
		}
	case *value.ObjClosure:
		vm.markObject(obj.Function)
		for _, u := range obj.Upvalues {
			vm.markObject(u)
		}
	case *value.ObjUpvalue:
		vm.markValue(*obj.Location)
	case *value.ObjClass:
		vm.markObject(obj.Name)
		obj.Methods.Each(func(k *value.ObjString, v value.Value) {
			vm.markObject(k)
			vm.markValue(v)
		})
	case *value.ObjInstance:
		vm.markObject(obj.Class)
		obj.Fields.Each(func(k *value.ObjString, v value.Value) {
			vm.markObject(k)
			vm.markValue(v)
		})
	case *value.ObjBoundMethod:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)
	}
}

// sweepStrings drops every interned string whose mark bit is clear. This
// is what keeps the interning set weak — without it, no string held only
// by that set would ever collect.
func (vm *VM) sweepStrings() {
	var dead []*value.ObjString
	vm.strings.Each(func(k *value.ObjString, _ value.Value) {
		if !k.Marked {
			dead = append(dead, k)
		}
	})
	for _, k := range dead {
		vm.strings.Delete(k)
	}
}

// sweep walks the intrusive object list, freeing (unlinking) every object
// whose mark bit is clear and clearing the bit on survivors.
func (vm *VM) sweep() {
	var prev value.Obj
	cur := vm.objects
	for cur != nil {
		h := cur.GCHeader()
		if h.Marked {
			h.Marked = false
			prev = cur
			cur = h.Next
			continue
		}
		unreached := cur
		cur = h.Next
		if prev != nil {
			prev.GCHeader().Next = cur
		} else {
			vm.objects = cur
		}
		vm.bytesAllocated -= sizeOf(unreached)
		if debugLogGC {
			fmt.Fprintf(vm.Stderr, "%p free %s\n", unreached, unreached.Kind())
		}
	}
}
