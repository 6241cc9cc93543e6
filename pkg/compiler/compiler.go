// Package compiler implements the single-pass Pratt-precedence parser and
// bytecode emitter for smog. Source tokens are consumed directly into a
// bytecode Chunk; there is no intermediate AST.
package compiler

import (
	"fmt"
	"io"
	"os"

	"github.com/kristofer/smog/pkg/bytecode"
	"github.com/kristofer/smog/pkg/lexer"
	"github.com/kristofer/smog/pkg/token"
	"github.com/kristofer/smog/pkg/value"
)

// Allocator is the narrow slice of VM-owned allocation the compiler needs:
// every heap object the compiler creates (interned strings, the function
// objects for nested fun/method bodies) must be allocated through the VM so
// it can track bytes-allocated and participate in the GC root protocol.
// The VM implements this interface; the compiler never imports pkg/vm.
type Allocator interface {
	NewFunction() *value.ObjFunction
	Intern(chars string) *value.ObjString
}

const (
	maxLocals    = 256
	maxUpvalues  = 256
	maxArgs      = 255
	maxConstants = 1 << 24
)

// functionKind tags what a compile context is building.
type functionKind int

const (
	kindScript functionKind = iota
	kindFunction
	kindMethod
	kindInitializer
)

type local struct {
	name       token.Token
	depth      int // -1 while the initializer of its own declaration is compiling
	isCaptured bool
}

type upvalueDesc struct {
	index   byte
	isLocal bool
}

type loopContext struct {
	start      int // offset to loop back to on `continue`
	scopeDepth int
	breaks     []int // patch offsets for pending `break` jumps
}

// funcState is one compile context: one function (or the top-level script)
// being emitted into. funcStates nest one per enclosing fun/method, forming
// the "compiler-root chain" GC root: every in-progress function object must
// stay reachable across a collection that happens mid-compile.
type funcState struct {
	enclosing *funcState
	function  *value.ObjFunction
	kind      functionKind

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	upvalues     [maxUpvalues]upvalueDesc
	upvalueCount int

	loops []loopContext
}

type classState struct {
	enclosing *classState
}

// Compiler drives one compile of one source string into one top-level
// ObjFunction (the "script" function). Create a fresh Compiler per parse.
type Compiler struct {
	scanner *lexer.Scanner
	alloc   Allocator

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool

	fs    *funcState
	class *classState

	stderr io.Writer
}

// New creates a Compiler over source. alloc supplies the VM-owned
// allocation the compiler needs for interned strings and function objects.
// Diagnostics go to os.Stderr by default; use SetStderr to redirect them.
func New(source string, alloc Allocator) *Compiler {
	c := &Compiler{scanner: lexer.New(source), alloc: alloc, stderr: os.Stderr}
	c.pushFuncState(kindScript, "")
	return c
}

// SetStderr redirects compile-error diagnostics, which are printed as they
// are discovered rather than accumulated.
func (c *Compiler) SetStderr(w io.Writer) { c.stderr = w }

// Compile parses and emits the whole program, returning the top-level
// script function. It returns an error (and a nil function) if any compile
// error was reported; the parser still runs to completion first, and each
// error's diagnostic is written to the stderr writer as it is found.
func (c *Compiler) Compile() (*value.ObjFunction, error) {
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endFunction()
	if c.hadError {
		return nil, fmt.Errorf("compilation failed")
	}
	return fn, nil
}

// Roots returns every in-progress function object on the compiler chain,
// from innermost to outermost. The VM's GC calls this while a Compile is
// in flight so a collection mid-compile cannot reclaim a function that
// hasn't been attached to its enclosing chunk's constants yet.
func (c *Compiler) Roots() []*value.ObjFunction {
	var out []*value.ObjFunction
	for fs := c.fs; fs != nil; fs = fs.enclosing {
		out = append(out, fs.function)
	}
	return out
}

// ---- function-state management ----

func (c *Compiler) pushFuncState(kind functionKind, name string) {
	fn := c.alloc.NewFunction()
	if name != "" {
		fn.Name = c.alloc.Intern(name)
	}
	fs := &funcState{enclosing: c.fs, function: fn, kind: kind}
	// Slot 0 is reserved: the receiver (named "this") for methods/
	// initializers, anonymous for plain functions and the script.
	fs.locals[0].depth = 0
	if kind != kindFunction && kind != kindScript {
		fs.locals[0].name = token.Token{Lexeme: "this"}
	}
	fs.localCount = 1
	c.fs = fs
}

func (c *Compiler) endFunction() *value.ObjFunction {
	c.emitReturn()
	fn := c.fs.function
	c.fs = c.fs.enclosing
	return fn
}

func (c *Compiler) chunk() *value.Chunk { return &c.fs.function.Chunk }

// ---- token stream ----

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Scan()
		if c.current.Kind != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// ---- error reporting ----

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	where := "at '" + tok.Lexeme + "'"
	if tok.Kind == token.EOF {
		where = "at end"
	} else if tok.Kind == token.Error {
		where = ""
	}
	if where == "" {
		fmt.Fprintf(c.stderr, "[line %d] Error: %s\n", tok.Line, msg)
	} else {
		fmt.Fprintf(c.stderr, "[line %d] Error %s: %s\n", tok.Line, where, msg)
	}
	c.hadError = true
}

// synchronize discards tokens until it reaches a likely statement
// boundary, suppressing cascading errors after the first one in a parse.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.Semicolon {
			return
		}
		switch c.current.Kind {
		case token.Class, token.Fun, token.Var, token.For, token.If,
			token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

// ---- byte emission ----

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op bytecode.Opcode) { c.emitByte(byte(op)) }

func (c *Compiler) emitOpByte(op bytecode.Opcode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	if c.fs.kind == kindInitializer {
		c.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpReturn)
}

// emitConstant adds v to the current chunk's constant pool and emits the
// instruction that pushes it: OP_CONSTANT for the first 256 entries, then
// OP_CONSTANT_LONG with a 3-byte little-endian index once that's exhausted.
func (c *Compiler) emitConstant(v value.Value) {
	idx := c.addConstant(v)
	if idx <= 0xff {
		c.emitOpByte(bytecode.OpConstant, byte(idx))
		return
	}
	c.emitOp(bytecode.OpConstantLong)
	c.emitByte(byte(idx))
	c.emitByte(byte(idx >> 8))
	c.emitByte(byte(idx >> 16))
}

// makeConstant is used for operands that must fit in a single byte (name
// constants for globals/properties/methods, function constants): callers
// that can legally exceed 256 entries use emitConstant instead.
func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.addConstant(v)
	if idx > 0xff {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) addConstant(v value.Value) int {
	idx := c.chunk().AddConstant(v)
	if idx >= maxConstants {
		c.error("Too many constants in one chunk.")
	}
	return idx
}

// emitJump emits a jump opcode with a two-byte placeholder operand and
// returns the offset of the first placeholder byte, to be patched later.
func (c *Compiler) emitJump(op bytecode.Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

// patchJump backfills the two-byte operand at offset with the distance
// from just after the operand to the current end of the chunk.
func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
		return
	}
	c.chunk().Code[offset] = byte(jump >> 8)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits a backward jump (OP_LOOP) to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset & 0xff))
}

// ---- scopes ----

func (c *Compiler) beginScope() { c.fs.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fs.scopeDepth--
	for c.fs.localCount > 0 && c.fs.locals[c.fs.localCount-1].depth > c.fs.scopeDepth {
		if c.fs.locals[c.fs.localCount-1].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
		c.fs.localCount--
	}
}

// ---- identifier constants ----

func (c *Compiler) identifierConstant(tok token.Token) byte {
	return c.makeConstant(value.ObjValue(c.alloc.Intern(tok.Lexeme)))
}

func identifiersEqual(a, b token.Token) bool { return a.Lexeme == b.Lexeme }
