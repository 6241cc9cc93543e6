package compiler_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/smog/pkg/bytecode"
	"github.com/kristofer/smog/pkg/compiler"
	"github.com/kristofer/smog/pkg/value"
	"github.com/kristofer/smog/pkg/vm"
)

// opcodesOf decodes the bare opcode sequence from a chunk's code, ignoring
// operand bytes, for shape assertions that don't want to hardcode operand
// indices.
func opcodesOf(t *testing.T, chunk *value.Chunk) []bytecode.Opcode {
	t.Helper()
	var ops []bytecode.Opcode
	i := 0
	for i < len(chunk.Code) {
		op := bytecode.Opcode(chunk.Code[i])
		ops = append(ops, op)
		i += operandWidth(op)
	}
	return ops
}

func operandWidth(op bytecode.Opcode) int {
	switch op {
	case bytecode.OpConstantLong:
		return 4
	case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpLoop:
		return 3
	case bytecode.OpNil, bytecode.OpTrue, bytecode.OpFalse, bytecode.OpPop,
		bytecode.OpEqual, bytecode.OpGreater, bytecode.OpLess, bytecode.OpAdd,
		bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide,
		bytecode.OpNot, bytecode.OpNegate, bytecode.OpPrint,
		bytecode.OpCloseUpvalue, bytecode.OpReturn:
		return 1
	case bytecode.OpClosure:
		return 2 // plus upvalue descriptor pairs, not modeled here
	default:
		return 2
	}
}

func compile(t *testing.T, src string) *value.ObjFunction {
	t.Helper()
	m := vm.New()
	c := compiler.New(src, m)
	var stderr strings.Builder
	c.SetStderr(&stderr)
	fn, err := c.Compile()
	require.NoError(t, err, "compile errors: %s", stderr.String())
	return fn
}

func TestArithmeticEmitsExpectedOpcodeShape(t *testing.T) {
	fn := compile(t, "print 1 + 2 * 3;")
	ops := opcodesOf(t, &fn.Chunk)
	want := []bytecode.Opcode{
		bytecode.OpConstant, // 1
		bytecode.OpConstant, // 2
		bytecode.OpConstant, // 3
		bytecode.OpMultiply,
		bytecode.OpAdd,
		bytecode.OpPrint,
		bytecode.OpNil,
		bytecode.OpReturn,
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("opcode shape mismatch (-want +got):\n%s", diff)
	}
}

func TestIfElseEmitsJumpAndJumpIfFalse(t *testing.T) {
	fn := compile(t, `
		if (true) {
			print 1;
		} else {
			print 2;
		}
	`)
	ops := opcodesOf(t, &fn.Chunk)
	assert.Contains(t, ops, bytecode.OpJumpIfFalse)
	assert.Contains(t, ops, bytecode.OpJump)
}

func TestWhileLoopEmitsOpLoop(t *testing.T) {
	fn := compile(t, `
		var i = 0;
		while (i < 3) {
			i = i + 1;
		}
	`)
	ops := opcodesOf(t, &fn.Chunk)
	assert.Contains(t, ops, bytecode.OpLoop)
}

func TestFunctionDeclarationEmitsClosure(t *testing.T) {
	fn := compile(t, `
		var x = 10;
		fun f() {
			return x;
		}
	`)
	ops := opcodesOf(t, &fn.Chunk)
	assert.Contains(t, ops, bytecode.OpClosure)
}

func TestClassDeclarationEmitsClassAndMethod(t *testing.T) {
	fn := compile(t, `
		class A {
			greet() {
				print this;
			}
		}
	`)
	ops := opcodesOf(t, &fn.Chunk)
	assert.Contains(t, ops, bytecode.OpClass)
	assert.Contains(t, ops, bytecode.OpMethod)
}

func TestTooManyConstantsPromotesToConstantLong(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("print ")
		b.WriteString(strconvItoa(i))
		b.WriteString(";\n")
	}
	fn := compile(t, b.String())
	ops := opcodesOf(t, &fn.Chunk)
	assert.Contains(t, ops, bytecode.OpConstantLong)
}

// The comma operator's right operand is parsed at assignment precedence
// rather than comma precedence, so an invalid assignment target past a
// comma is still caught — it doesn't get swallowed into a larger
// expression that silently accepts it.
func TestCommaRightOperandStillRejectsInvalidAssignmentTarget(t *testing.T) {
	m := vm.New()
	c := compiler.New("var a; a, 1 = 2;", m)
	var stderr strings.Builder
	c.SetStderr(&stderr)
	_, err := c.Compile()
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Invalid assignment target.")
}

// A variable past a comma is a legal assignment target: the comma operator
// only discards its left operand, it doesn't prevent the right operand
// from being an ordinary assignment expression.
func TestCommaRightOperandCanStillBeAssignedTo(t *testing.T) {
	fn := compile(t, "var a; var b; a, b = 1;")
	ops := opcodesOf(t, &fn.Chunk)
	assert.Contains(t, ops, bytecode.OpSetGlobal)
}

func TestSuperIsRejectedAsUnsupported(t *testing.T) {
	m := vm.New()
	c := compiler.New(`
		class A {
			greet() {
				print super.greet;
			}
		}
	`, m)
	var stderr strings.Builder
	c.SetStderr(&stderr)
	_, err := c.Compile()
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "'super' is reserved")
}

func TestTooManyParametersIsCompileError(t *testing.T) {
	var params strings.Builder
	for i := 0; i < 256; i++ {
		if i > 0 {
			params.WriteString(", ")
		}
		params.WriteString("p")
		params.WriteString(strconvItoa(i))
	}
	m := vm.New()
	c := compiler.New("fun f("+params.String()+") {}", m)
	var stderr strings.Builder
	c.SetStderr(&stderr)
	_, err := c.Compile()
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Can't have more than 255 parameters.")
}

func strconvItoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
