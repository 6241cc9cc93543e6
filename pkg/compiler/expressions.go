package compiler

import (
	"strconv"

	"github.com/kristofer/smog/pkg/bytecode"
	"github.com/kristofer/smog/pkg/token"
	"github.com/kristofer/smog/pkg/value"
)

// precedence is the Pratt climbing ladder, ascending.
type precedence int

const (
	precNone       precedence = iota
	precComma                 // ,
	precAssignment            // =
	precTernary               // ?:
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[token.Kind]rule

func init() {
	rules = map[token.Kind]rule{
		token.LeftParen:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: precCall},
		token.Dot:          {infix: (*Compiler).dot, precedence: precCall},
		token.Minus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: precTerm},
		token.Plus:         {infix: (*Compiler).binary, precedence: precTerm},
		token.Slash:        {infix: (*Compiler).binary, precedence: precFactor},
		token.Star:         {infix: (*Compiler).binary, precedence: precFactor},
		token.Bang:         {prefix: (*Compiler).unary},
		token.BangEqual:    {infix: (*Compiler).binary, precedence: precEquality},
		token.EqualEqual:   {infix: (*Compiler).binary, precedence: precEquality},
		token.Greater:      {infix: (*Compiler).binary, precedence: precComparison},
		token.GreaterEqual: {infix: (*Compiler).binary, precedence: precComparison},
		token.Less:         {infix: (*Compiler).binary, precedence: precComparison},
		token.LessEqual:    {infix: (*Compiler).binary, precedence: precComparison},
		token.Identifier:   {prefix: (*Compiler).variable},
		token.String:       {prefix: (*Compiler).string},
		token.Number:       {prefix: (*Compiler).number},
		token.And:          {infix: (*Compiler).and, precedence: precAnd},
		token.Or:           {infix: (*Compiler).or, precedence: precOr},
		token.False:        {prefix: (*Compiler).literal},
		token.Nil:          {prefix: (*Compiler).literal},
		token.True:         {prefix: (*Compiler).literal},
		token.This:         {prefix: (*Compiler).this},
		token.Super:        {prefix: (*Compiler).super},
		token.Comma:        {infix: (*Compiler).comma, precedence: precComma},
		token.Question:     {infix: (*Compiler).ternary, precedence: precTernary},
	}
}

func getRule(k token.Kind) rule { return rules[k] }

// expression parses at comma precedence, the loosest level at which an
// expression statement's top-level expression is parsed.
func (c *Compiler) expression() { c.parsePrecedence(precComma) }

func (c *Compiler) parsePrecedence(p precedence) {
	c.advance()
	prefix := getRule(c.previous.Kind).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := p <= precAssignment
	prefix(c, canAssign)

	for p <= getRule(c.current.Kind).precedence {
		c.advance()
		infix := getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.NumberValue(n))
}

func (c *Compiler) string(canAssign bool) {
	raw := c.previous.Lexeme
	chars := raw[1 : len(raw)-1] // strip surrounding quotes
	c.emitConstant(value.ObjValue(c.alloc.Intern(chars)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Kind {
	case token.False:
		c.emitOp(bytecode.OpFalse)
	case token.Nil:
		c.emitOp(bytecode.OpNil)
	case token.True:
		c.emitOp(bytecode.OpTrue)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch opKind {
	case token.Bang:
		c.emitOp(bytecode.OpNot)
	case token.Minus:
		c.emitOp(bytecode.OpNegate)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opKind := c.previous.Kind
	r := getRule(opKind)
	c.parsePrecedence(r.precedence + 1)

	switch opKind {
	case token.BangEqual:
		c.emitOp(bytecode.OpEqual)
		c.emitOp(bytecode.OpNot)
	case token.EqualEqual:
		c.emitOp(bytecode.OpEqual)
	case token.Greater:
		c.emitOp(bytecode.OpGreater)
	case token.GreaterEqual:
		c.emitOp(bytecode.OpLess)
		c.emitOp(bytecode.OpNot)
	case token.Less:
		c.emitOp(bytecode.OpLess)
	case token.LessEqual:
		c.emitOp(bytecode.OpGreater)
		c.emitOp(bytecode.OpNot)
	case token.Plus:
		c.emitOp(bytecode.OpAdd)
	case token.Minus:
		c.emitOp(bytecode.OpSubtract)
	case token.Star:
		c.emitOp(bytecode.OpMultiply)
	case token.Slash:
		c.emitOp(bytecode.OpDivide)
	}
}

// and/or implement short-circuit evaluation with jumps rather than always
// evaluating both operands.
func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

// comma pops the left result and parses the right at assignment
// precedence rather than comma precedence, so the right operand is a
// single assignment-expression: it stops before swallowing a second
// top-level comma, leaving that to the enclosing parsePrecedence loop.
func (c *Compiler) comma(canAssign bool) {
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precAssignment)
}

// ternary is the infix handler bound to '?'.
func (c *Compiler) ternary(canAssign bool) {
	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precAssignment)

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	c.consume(token.Colon, "Expect ':' after then-branch of ternary.")
	c.parsePrecedence(precAssignment)
	c.patchJump(elseJump)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOpByte(bytecode.OpCall, argCount)
}

func (c *Compiler) argumentList() byte {
	var count int
	if !c.check(token.RightParen) {
		for {
			c.parsePrecedence(precAssignment)
			if count == maxArgs {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RightParen, "Expect ')' after arguments.")
	return byte(count)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.Identifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous)

	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emitOpByte(bytecode.OpSetProperty, name)
		return
	}
	c.emitOpByte(bytecode.OpGetProperty, name)
}

func (c *Compiler) this(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variableFromToken(c.previous, false)
}

// super is tokenized and a following `.name` is consumed, but the
// expression is always rejected with a compile error: the language has
// single-parent classes reserved but not wired.
func (c *Compiler) super(canAssign bool) {
	c.error("'super' is reserved but not yet supported.")
	if c.match(token.Dot) {
		c.consume(token.Identifier, "Expect superclass method name.")
	}
}

// ---- variables ----

func (c *Compiler) variable(canAssign bool) {
	c.variableFromToken(c.previous, canAssign)
}

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	c.variableFromToken(name, canAssign)
}

func (c *Compiler) variableFromToken(name token.Token, canAssign bool) {
	var getOp, setOp bytecode.Opcode
	arg, ok := c.resolveLocal(c.fs, name)
	if ok {
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else if idx, ok := c.resolveUpvalue(c.fs, name); ok {
		arg = idx
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
		return
	}
	c.emitOpByte(getOp, byte(arg))
}

// resolveLocal walks fs's locals top-down looking for name, returning its
// slot. Reading a local mid-initialization (depth -1, i.e. its own
// initializer referring to itself) is a compile error.
func (c *Compiler) resolveLocal(fs *funcState, name token.Token) (int, bool) {
	for i := fs.localCount - 1; i >= 0; i-- {
		l := &fs.locals[i]
		if identifiersEqual(name, l.name) {
			if l.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue: if name resolves as a local in the immediately
// enclosing function, capture it directly; otherwise recurse outward so a
// chain of nested closures each gets its own upvalue descriptor pointing
// at the previous level's upvalue.
func (c *Compiler) resolveUpvalue(fs *funcState, name token.Token) (int, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if slot, ok := c.resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[slot].isCaptured = true
		return c.addUpvalue(fs, byte(slot), true), true
	}
	if idx, ok := c.resolveUpvalue(fs.enclosing, name); ok {
		return c.addUpvalue(fs, byte(idx), false), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i := 0; i < fs.upvalueCount; i++ {
		d := fs.upvalues[i]
		if d.index == index && d.isLocal == isLocal {
			return i
		}
	}
	if fs.upvalueCount == maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fs.upvalues[fs.upvalueCount] = upvalueDesc{index: index, isLocal: isLocal}
	fs.upvalueCount++
	return fs.upvalueCount - 1
}
