package compiler

import (
	"github.com/kristofer/smog/pkg/bytecode"
	"github.com/kristofer/smog/pkg/token"
	"github.com/kristofer/smog/pkg/value"
)

// declaration parses a var/fun/class declaration, falling through to a
// plain statement. After any compile error it resynchronizes at the next
// statement boundary so the rest of the program can still be checked.
func (c *Compiler) declaration() {
	switch {
	case c.match(token.Class):
		c.classDeclaration()
	case c.match(token.Fun):
		c.funDeclaration()
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStatement()
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.Return):
		c.returnStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.Break):
		c.breakStatement()
	case c.match(token.Continue):
		c.continueStatement()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emitOp(bytecode.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) returnStatement() {
	if c.fs.kind == kindScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.Semicolon) {
		c.emitReturn()
		return
	}
	if c.fs.kind == kindInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after return value.")
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.pushLoop(loopStart)

	c.consume(token.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
	c.popLoop()
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.match(token.RightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(token.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	// continue inside a for-loop must still run the increment clause, so
	// it targets the increment's start rather than the condition.
	c.pushLoop(loopStart)
	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}
	c.popLoop()
	c.endScope()
}

func (c *Compiler) pushLoop(start int) {
	c.fs.loops = append(c.fs.loops, loopContext{start: start, scopeDepth: c.fs.scopeDepth})
}

func (c *Compiler) popLoop() {
	lp := c.fs.loops[len(c.fs.loops)-1]
	for _, off := range lp.breaks {
		c.patchJump(off)
	}
	c.fs.loops = c.fs.loops[:len(c.fs.loops)-1]
}

func (c *Compiler) breakStatement() {
	if len(c.fs.loops) == 0 {
		c.error("Can't use 'break' outside of a loop.")
		c.consume(token.Semicolon, "Expect ';' after 'break'.")
		return
	}
	c.consume(token.Semicolon, "Expect ';' after 'break'.")
	lp := &c.fs.loops[len(c.fs.loops)-1]
	c.popLocalsToDepth(lp.scopeDepth)
	off := c.emitJump(bytecode.OpJump)
	lp.breaks = append(lp.breaks, off)
}

func (c *Compiler) continueStatement() {
	if len(c.fs.loops) == 0 {
		c.error("Can't use 'continue' outside of a loop.")
		c.consume(token.Semicolon, "Expect ';' after 'continue'.")
		return
	}
	c.consume(token.Semicolon, "Expect ';' after 'continue'.")
	lp := c.fs.loops[len(c.fs.loops)-1]
	c.popLocalsToDepth(lp.scopeDepth)
	c.emitLoop(lp.start)
}

// popLocalsToDepth emits the pop/close-capture sequence for every local
// deeper than depth without touching the compiler's own local bookkeeping
// — used by break/continue, which jump out of nested blocks without
// actually leaving them from the compiler's point of view.
func (c *Compiler) popLocalsToDepth(depth int) {
	for i := c.fs.localCount - 1; i >= 0 && c.fs.locals[i].depth > depth; i-- {
		if c.fs.locals[i].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
	}
}

// ---- variable declarations ----

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(token.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

// parseVariable consumes an identifier and, for locals, declares it
// immediately; it returns the name constant index for globals (0 for
// locals, where it is unused).
func (c *Compiler) parseVariable(msg string) byte {
	c.consume(token.Identifier, msg)
	name := c.previous
	c.declareLocal(name)
	if c.fs.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) declareLocal(name token.Token) {
	if c.fs.scopeDepth == 0 {
		return
	}
	for i := c.fs.localCount - 1; i >= 0; i-- {
		l := &c.fs.locals[i]
		if l.depth != -1 && l.depth < c.fs.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if c.fs.localCount == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.fs.locals[c.fs.localCount] = local{name: name, depth: -1}
	c.fs.localCount++
}

func (c *Compiler) defineVariable(global byte) {
	if c.fs.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(bytecode.OpDefineGlobal, global)
}

func (c *Compiler) markInitialized() {
	if c.fs.scopeDepth == 0 {
		return
	}
	c.fs.locals[c.fs.localCount-1].depth = c.fs.scopeDepth
}

// ---- functions ----

func (c *Compiler) funDeclaration() {
	c.consume(token.Identifier, "Expect function name.")
	name := c.previous
	c.declareLocal(name)
	c.markInitialized()
	c.function(kindFunction, name.Lexeme)
	c.defineVariable(c.identifierConstant(name))
}

func (c *Compiler) function(kind functionKind, name string) {
	c.pushFuncState(kind, name)
	c.beginScope()

	c.consume(token.LeftParen, "Expect '(' after function name.")
	if !c.check(token.RightParen) {
		for {
			c.fs.function.Arity++
			if c.fs.function.Arity > maxArgs {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "Expect ')' after parameters.")
	c.consume(token.LeftBrace, "Expect '{' before function body.")
	c.block()

	fs := c.fs
	fn := c.endFunction()
	fn.UpvalueCount = fs.upvalueCount

	idx := c.makeConstant(value.ObjValue(fn))
	c.emitOpByte(bytecode.OpClosure, idx)
	for i := 0; i < fn.UpvalueCount; i++ {
		desc := fs.upvalues[i]
		if desc.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(desc.index)
	}
}

// ---- classes ----

func (c *Compiler) classDeclaration() {
	c.consume(token.Identifier, "Expect class name.")
	name := c.previous
	nameConstant := c.identifierConstant(name)
	c.declareLocal(name)

	c.emitOpByte(bytecode.OpClass, nameConstant)
	c.defineVariable(nameConstant)

	cs := &classState{enclosing: c.class}
	c.class = cs

	c.namedVariable(name, false)
	c.consume(token.LeftBrace, "Expect '{' before class body.")
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RightBrace, "Expect '}' after class body.")
	c.emitOp(bytecode.OpPop)

	c.class = cs.enclosing
}

func (c *Compiler) method() {
	c.consume(token.Identifier, "Expect method name.")
	name := c.previous
	constant := c.identifierConstant(name)

	kind := kindMethod
	if name.Lexeme == "init" {
		kind = kindInitializer
	}
	c.function(kind, name.Lexeme)
	c.emitOpByte(bytecode.OpMethod, constant)
}
