package vm

import (
	"fmt"
	"strings"

	"github.com/kristofer/smog/pkg/bytecode"
	"github.com/kristofer/smog/pkg/debug"
	"github.com/kristofer/smog/pkg/value"
)

// run is the bytecode dispatch loop. It executes the topmost call frame's
// chunk until the outermost frame returns or a runtime error (including
// one reported by a native function) is raised. On a normal return both
// the value stack and frame stack are empty.
func (vm *VM) run() (InterpretResult, error) {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.closure.Function.Chunk.Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := readByte()
		lo := readByte()
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return frame.closure.Function.Chunk.Constants[readByte()]
	}
	readConstantLong := func() value.Value {
		lo := int(readByte())
		mid := int(readByte())
		hi := int(readByte())
		return frame.closure.Function.Chunk.Constants[lo|mid<<8|hi<<16]
	}
	readString := func() *value.ObjString {
		return readConstant().Obj.(*value.ObjString)
	}

	for {
		if debugTraceExecution {
			vm.traceStack()
			debug.DisassembleInstruction(vm.Stderr, &frame.closure.Function.Chunk, frame.ip)
		}

		op := bytecode.Opcode(readByte())
		switch op {
		case bytecode.OpConstant:
			vm.push(readConstant())
		case bytecode.OpConstantLong:
			vm.push(readConstantLong())
		case bytecode.OpNil:
			vm.push(value.NilValue)
		case bytecode.OpTrue:
			vm.push(value.BoolValue(true))
		case bytecode.OpFalse:
			vm.push(value.BoolValue(false))
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			slot := readByte()
			vm.push(vm.stack[frame.slots+int(slot)])
		case bytecode.OpSetLocal:
			slot := readByte()
			vm.stack[frame.slots+int(slot)] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return InterpretRuntimeError, vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case bytecode.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case bytecode.OpSetGlobal:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return InterpretRuntimeError, vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case bytecode.OpGetUpvalue:
			slot := readByte()
			vm.push(*frame.closure.Upvalues[slot].Location)
		case bytecode.OpSetUpvalue:
			slot := readByte()
			*frame.closure.Upvalues[slot].Location = vm.peek(0)

		case bytecode.OpGetProperty:
			if !vm.peek(0).IsObjType(value.KindInstance) {
				return InterpretRuntimeError, vm.runtimeError("Only instances have properties.")
			}
			inst := vm.peek(0).Obj.(*value.ObjInstance)
			name := readString()
			if v, ok := inst.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if err := vm.bindMethod(inst.Class, name); err != nil {
				return InterpretRuntimeError, err
			}
		case bytecode.OpSetProperty:
			if !vm.peek(1).IsObjType(value.KindInstance) {
				return InterpretRuntimeError, vm.runtimeError("Only instances have fields.")
			}
			inst := vm.peek(1).Obj.(*value.ObjInstance)
			name := readString()
			inst.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolValue(value.Equal(a, b)))
		case bytecode.OpGreater:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.BoolValue(a > b) }); err != nil {
				return InterpretRuntimeError, err
			}
		case bytecode.OpLess:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.BoolValue(a < b) }); err != nil {
				return InterpretRuntimeError, err
			}

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return InterpretRuntimeError, err
			}
		case bytecode.OpSubtract:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberValue(a - b) }); err != nil {
				return InterpretRuntimeError, err
			}
		case bytecode.OpMultiply:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberValue(a * b) }); err != nil {
				return InterpretRuntimeError, err
			}
		case bytecode.OpDivide:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.NumberValue(a / b) }); err != nil {
				return InterpretRuntimeError, err
			}

		case bytecode.OpNot:
			vm.push(value.BoolValue(vm.pop().IsFalsey()))
		case bytecode.OpNegate:
			if vm.peek(0).Type != value.Number {
				return InterpretRuntimeError, vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.NumberValue(-vm.pop().Num))

		case bytecode.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.stringify(vm.pop()))

		case bytecode.OpJump:
			offset := readShort()
			frame.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := readShort()
			if vm.peek(0).IsFalsey() {
				frame.ip += offset
			}
		case bytecode.OpLoop:
			offset := readShort()
			frame.ip -= offset

		case bytecode.OpCall:
			argCount := readByte()
			if err := vm.callValue(vm.peek(int(argCount)), argCount); err != nil {
				return InterpretRuntimeError, err
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClosure:
			fn := readConstant().Obj.(*value.ObjFunction)
			closure := vm.newClosure(fn)
			vm.push(value.ObjValue(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slots + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case bytecode.OpClass:
			vm.push(value.ObjValue(vm.newClass(readString())))
		case bytecode.OpMethod:
			vm.defineMethod(readString())

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK, nil
			}
			vm.sp = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		default:
			return InterpretRuntimeError, vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

// binaryNumberOp implements a strict-numeric binary operator, rejecting
// any operand that is not a number before calling op.
func (vm *VM) binaryNumberOp(op func(a, b float64) value.Value) error {
	if vm.peek(0).Type != value.Number || vm.peek(1).Type != value.Number {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop()
	a := vm.pop()
	vm.push(op(a.Num, b.Num))
	return nil
}

// add implements '+': number+number adds, string+string concatenates,
// anything else is a runtime error.
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch {
	case a.Type == value.Number && b.Type == value.Number:
		vm.pop()
		vm.pop()
		vm.push(value.NumberValue(a.Num + b.Num))
	case a.IsObjType(value.KindString) && b.IsObjType(value.KindString):
		vm.pop()
		vm.pop()
		result := vm.stringify(a) + vm.stringify(b)
		vm.push(value.ObjValue(vm.Intern(result)))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// defineMethod attaches the closure on top of the stack to the class just
// beneath it under name, then pops the closure (the class stays, so the
// enclosing classDeclaration can pop it once at the end of the body).
func (vm *VM) defineMethod(name *value.ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).Obj.(*value.ObjClass)
	class.Methods.Set(name, method)
	vm.pop()
}

// stringify renders v the way OP_PRINT and string concatenation do.
func (vm *VM) stringify(v value.Value) string {
	return debug.FormatValueForDisplay(v)
}

// traceStack prints the value stack top-down-omitted (bottom to top, left
// to right), matching clox's execution trace format.
func (vm *VM) traceStack() {
	var b strings.Builder
	b.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(&b, "[ %s ]", debug.FormatValueForDisplay(vm.stack[i]))
	}
	fmt.Fprintln(vm.Stderr, b.String())
}
