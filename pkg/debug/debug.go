// Package debug implements the bytecode disassembler. It is an external
// collaborator to the compiler/VM core rather than part of either, so its
// interface is narrow: two functions that format a Chunk for human
// inspection when the trace or print-code debug flags are enabled.
package debug

import (
	"fmt"
	"io"

	"github.com/kristofer/smog/pkg/bytecode"
	"github.com/kristofer/smog/pkg/value"
)

// Disassemble writes every instruction in chunk to w, labeled with name.
func Disassemble(w io.Writer, chunk *value.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = DisassembleInstruction(w, chunk, offset)
	}
}

// DisassembleInstruction formats the single instruction at offset and
// returns the offset of the next instruction.
func DisassembleInstruction(w io.Writer, chunk *value.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	op := bytecode.Opcode(chunk.Code[offset])
	switch op {
	case bytecode.OpConstant:
		return constantInstruction(w, op, chunk, offset)
	case bytecode.OpConstantLong:
		return constantLongInstruction(w, op, chunk, offset)
	case bytecode.OpNil, bytecode.OpTrue, bytecode.OpFalse, bytecode.OpPop,
		bytecode.OpEqual, bytecode.OpGreater, bytecode.OpLess, bytecode.OpAdd,
		bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide,
		bytecode.OpNot, bytecode.OpNegate, bytecode.OpPrint,
		bytecode.OpCloseUpvalue, bytecode.OpReturn:
		return simpleInstruction(w, op, offset)
	case bytecode.OpGetLocal, bytecode.OpSetLocal, bytecode.OpGetUpvalue,
		bytecode.OpSetUpvalue, bytecode.OpCall:
		return byteInstruction(w, op, chunk, offset)
	case bytecode.OpGetGlobal, bytecode.OpDefineGlobal, bytecode.OpSetGlobal,
		bytecode.OpClass, bytecode.OpMethod, bytecode.OpGetProperty, bytecode.OpSetProperty:
		return constantInstruction(w, op, chunk, offset)
	case bytecode.OpJump, bytecode.OpJumpIfFalse:
		return jumpInstruction(w, op, 1, chunk, offset)
	case bytecode.OpLoop:
		return jumpInstruction(w, op, -1, chunk, offset)
	case bytecode.OpClosure:
		return closureInstruction(w, chunk, offset)
	default:
		fmt.Fprintf(w, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(w io.Writer, op bytecode.Opcode, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func byteInstruction(w io.Writer, op bytecode.Opcode, chunk *value.Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, op bytecode.Opcode, sign int, chunk *value.Chunk, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	target := offset + 3 + sign*jump
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}

func constantInstruction(w io.Writer, op bytecode.Opcode, chunk *value.Chunk, offset int) int {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, formatValue(chunk.Constants[idx]))
	return offset + 2
}

func constantLongInstruction(w io.Writer, op bytecode.Opcode, chunk *value.Chunk, offset int) int {
	idx := int(chunk.Code[offset+1]) | int(chunk.Code[offset+2])<<8 | int(chunk.Code[offset+3])<<16
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, formatValue(chunk.Constants[idx]))
	return offset + 4
}

func closureInstruction(w io.Writer, chunk *value.Chunk, offset int) int {
	offset++
	idx := chunk.Code[offset]
	offset++
	fmt.Fprintf(w, "%-16s %4d '%s'\n", bytecode.OpClosure, idx, formatValue(chunk.Constants[idx]))
	fn := chunk.Constants[idx].Obj.(*value.ObjFunction)
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		offset++
		index := chunk.Code[offset]
		offset++
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}

// FormatValueForDisplay renders v the way OP_PRINT and string
// concatenation do, shared between the disassembler and the VM.
func FormatValueForDisplay(v value.Value) string { return formatValue(v) }

func formatValue(v value.Value) string {
	switch v.Type {
	case value.Nil:
		return "nil"
	case value.Bool:
		if v.Bl {
			return "true"
		}
		return "false"
	case value.Number:
		return fmt.Sprintf("%g", v.Num)
	case value.ObjRef:
		return FormatObject(v.Obj)
	default:
		return "?"
	}
}

// FormatObject renders a heap object the way the VM's print statement does,
// shared by the disassembler and by the VM's print and concatenation paths.
func FormatObject(o value.Obj) string {
	switch obj := o.(type) {
	case *value.ObjString:
		return obj.Chars
	case *value.ObjFunction:
		if obj.Name == nil {
			return "<script>"
		}
		return fmt.Sprintf("<fn %s>", obj.Name.Chars)
	case *value.ObjNative:
		return fmt.Sprintf("<native fn %s>", obj.Name)
	case *value.ObjClosure:
		return FormatObject(obj.Function)
	case *value.ObjUpvalue:
		return "upvalue"
	case *value.ObjClass:
		return obj.Name.Chars
	case *value.ObjInstance:
		return fmt.Sprintf("%s instance", obj.Class.Name.Chars)
	case *value.ObjBoundMethod:
		return FormatObject(obj.Method.Function)
	default:
		return "<obj>"
	}
}
