// Package bytecode defines the opcode set smog's compiler emits and its VM
// dispatches. An instruction is one opcode byte followed by 0,
// 1, or 2 operand bytes; the chunk that holds the emitted bytes lives in
// pkg/value (Chunk), alongside the constant pool and per-byte line table it
// is emitted into, since ObjFunction needs to own a Chunk and a Chunk's
// constant pool holds Values — keeping Chunk out of this package avoids a
// value<->bytecode import cycle.
//
// Jump operands are two-byte big-endian unsigned offsets. Forward jumps
// (if/and/or/ternary) are emitted with a placeholder operand and patched
// once the jump target is known; backward jumps (while/for) compute their
// offset at emission time. Both directions reject an offset that does not
// fit in 16 bits.
package bytecode

// Opcode is a single instruction's operation.
type Opcode byte

const (
	OpConstant Opcode = iota
	OpConstantLong // 3-byte operand, used once the constant pool exceeds 256 entries
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpGetProperty
	OpSetProperty
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop // "jump-back" in spec terminology
	OpCall
	OpClosure
	OpCloseUpvalue
	OpClass
	OpMethod
	OpReturn
)

var names = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpConstantLong: "OP_CONSTANT_LONG",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpClass:        "OP_CLASS",
	OpMethod:       "OP_METHOD",
	OpReturn:       "OP_RETURN",
}

func (op Opcode) String() string {
	if int(op) < len(names) && names[op] != "" {
		return names[op]
	}
	return "OP_UNKNOWN"
}
