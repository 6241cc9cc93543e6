// Package vm implements the smog virtual machine: the value stack and
// call-frame stack, global/field/method hash tables, string interning, the
// open-upvalue list, and the mark-sweep garbage collector. It is the
// terminal stage of the pipeline:
//
//	source -> pkg/lexer -> pkg/compiler -> value.Chunk -> pkg/vm -> stdout
//
// The VM owns every heap object allocated during compilation or execution;
// pkg/compiler calls back into the VM (via the Allocator interface it
// defines) for every string intern and function allocation so the GC root
// protocol and bytes-allocated accounting stay centralized here.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/kristofer/smog/pkg/compiler"
	"github.com/kristofer/smog/pkg/debug"
	"github.com/kristofer/smog/pkg/table"
	"github.com/kristofer/smog/pkg/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// InterpretResult is the tri-state outcome of a run: callers that only
// need to pick a process exit code can switch on this without inspecting
// the error returned alongside it.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// callFrame is one active invocation: where execution resumes in the
// closure's chunk, and the base slot of this frame's locals within the
// shared value stack.
type callFrame struct {
	closure *value.ObjClosure
	ip      int
	slots   int // base index into vm.stack; slots[0] is the closure or receiver
}

// compilerRoots is satisfied by *compiler.Compiler; kept as a local
// interface so this package never imports pkg/compiler's internals beyond
// the Compile entry point, and pkg/compiler never imports pkg/vm at all.
type compilerRoots interface {
	Roots() []*value.ObjFunction
}

// VM is one interpreter instance. Construct with New; every exported
// method operates on the value stack, frame stack, and heap state owned by
// this instance alone — there is no global mutable state, so tests can
// create and tear down VMs freely.
type VM struct {
	stack [stackMax]value.Value
	sp    int

	frames     [framesMax]callFrame
	frameCount int

	globals *table.Table
	strings *table.Table

	openUpvalues *value.ObjUpvalue
	objects      value.Obj

	initString *value.ObjString

	bytesAllocated int
	nextGC         int
	grayStack      []value.Obj

	activeCompiler compilerRoots

	Stdout io.Writer
	Stderr io.Writer
}

// New creates a ready-to-use VM with the clock() native installed.
func New() *VM {
	vm := &VM{
		globals: table.New(),
		strings: table.New(),
		nextGC:  1024 * 1024,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	vm.initString = vm.Intern("init")
	vm.defineNatives()
	return vm
}

// Interpret compiles and runs source to completion. On success the value
// stack is empty and the frame count is zero. A returned runtime error
// carries the formatted message and stack trace; compile diagnostics are
// written to Stderr as they are found, and the returned compile error only
// reports that compilation failed. Callers that only need the exit-code
// taxonomy should inspect the InterpretResult.
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	c := compiler.New(source, vm)
	c.SetStderr(vm.Stderr)
	vm.activeCompiler = c
	fn, err := c.Compile()
	vm.activeCompiler = nil
	if err != nil {
		return InterpretCompileError, err
	}

	if debugPrintCode {
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		debug.Disassemble(vm.Stderr, &fn.Chunk, name)
	}

	closure := vm.newClosure(fn)
	vm.push(value.ObjValue(closure))
	if err := vm.callValue(value.ObjValue(closure), 0); err != nil {
		return InterpretRuntimeError, err
	}

	return vm.run()
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

// resetStack clears the value stack, frame stack, and open-upvalue list,
// leaving the VM usable for the next Interpret call — needed after a
// runtime error so the interactive prompt can continue.
func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	trace := vm.stackTrace()
	vm.resetStack()
	return &RuntimeError{Message: msg, Frames: trace}
}
