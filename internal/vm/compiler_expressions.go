package vm

import (
	"strconv"

	"github.com/funvibe/lumen/internal/token"
)

// Precedence orders lumen's binary operators from loosest to
// tightest binding, the ladder parsePrecedence climbs.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LEFT_PAREN:    {(*Compiler).grouping, (*Compiler).call, PrecCall},
		token.DOT:           {nil, (*Compiler).dot, PrecCall},
		token.MINUS:         {(*Compiler).unary, (*Compiler).binary, PrecTerm},
		token.PLUS:          {nil, (*Compiler).binary, PrecTerm},
		token.SLASH:         {nil, (*Compiler).binary, PrecFactor},
		token.STAR:          {nil, (*Compiler).binary, PrecFactor},
		token.BANG:          {(*Compiler).unary, nil, PrecNone},
		token.BANG_EQUAL:    {nil, (*Compiler).binary, PrecEquality},
		token.EQUAL_EQUAL:   {nil, (*Compiler).binary, PrecEquality},
		token.GREATER:       {nil, (*Compiler).binary, PrecComparison},
		token.GREATER_EQUAL: {nil, (*Compiler).binary, PrecComparison},
		token.LESS:          {nil, (*Compiler).binary, PrecComparison},
		token.LESS_EQUAL:    {nil, (*Compiler).binary, PrecComparison},
		token.IDENTIFIER:    {(*Compiler).variable, nil, PrecNone},
		token.STRING:        {(*Compiler).stringLiteral, nil, PrecNone},
		token.NUMBER:        {(*Compiler).number, nil, PrecNone},
		token.AND:           {nil, (*Compiler).and, PrecAnd},
		token.OR:            {nil, (*Compiler).or, PrecOr},
		token.FALSE:         {(*Compiler).literal, nil, PrecNone},
		token.TRUE:          {(*Compiler).literal, nil, PrecNone},
		token.NIL:           {(*Compiler).literal, nil, PrecNone},
		token.THIS:          {(*Compiler).this, nil, PrecNone},
		token.SUPER:         {(*Compiler).super, nil, PrecNone},
	}
}

func getRule(t token.Type) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{precedence: PrecNone}
}

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(precedence Precedence) {
	c.parser.advance()
	rule := getRule(c.parser.previous.Type)
	if rule.prefix == nil {
		c.parser.error("Expect expression.")
		return
	}
	canAssign := precedence <= PrecAssignment
	rule.prefix(c, canAssign)

	for precedence <= getRule(c.parser.current.Type).precedence {
		c.parser.advance()
		infix := getRule(c.parser.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.parser.match(token.EQUAL) {
		c.parser.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(_ bool) {
	line := c.parser.previous.Line
	n, err := strconv.ParseFloat(c.parser.previous.Lexeme, 64)
	if err != nil {
		c.parser.error("Invalid number literal.")
		return
	}
	c.emitConstant(NumberVal(n), line)
}

func (c *Compiler) stringLiteral(_ bool) {
	line := c.parser.previous.Line
	raw := c.parser.previous.Lexeme
	s := raw[1 : len(raw)-1] // strip the surrounding quotes
	handle := c.parser.heap.InternString(s)
	c.emitConstant(ObjVal(handle), line)
}

func (c *Compiler) literal(_ bool) {
	line := c.parser.previous.Line
	switch c.parser.previous.Type {
	case token.FALSE:
		c.emit(OP_FALSE, line)
	case token.TRUE:
		c.emit(OP_TRUE, line)
	case token.NIL:
		c.emit(OP_NIL, line)
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.parser.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	opType := c.parser.previous.Type
	line := c.parser.previous.Line
	c.parsePrecedence(PrecUnary)
	switch opType {
	case token.BANG:
		c.emit(OP_NOT, line)
	case token.MINUS:
		c.emit(OP_NEGATE, line)
	}
}

func (c *Compiler) binary(_ bool) {
	opType := c.parser.previous.Type
	line := c.parser.previous.Line
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQUAL:
		c.emit(OP_EQUAL, line)
		c.emit(OP_NOT, line)
	case token.EQUAL_EQUAL:
		c.emit(OP_EQUAL, line)
	case token.GREATER:
		c.emit(OP_GREATER, line)
	case token.GREATER_EQUAL:
		c.emit(OP_LESS, line)
		c.emit(OP_NOT, line)
	case token.LESS:
		c.emit(OP_LESS, line)
	case token.LESS_EQUAL:
		c.emit(OP_GREATER, line)
		c.emit(OP_NOT, line)
	case token.PLUS:
		c.emit(OP_ADD, line)
	case token.MINUS:
		c.emit(OP_SUBTRACT, line)
	case token.STAR:
		c.emit(OP_MULTIPLY, line)
	case token.SLASH:
		c.emit(OP_DIVIDE, line)
	}
}

func (c *Compiler) and(_ bool) {
	line := c.parser.previous.Line
	endJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	c.emit(OP_POP, line)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(_ bool) {
	line := c.parser.previous.Line
	elseJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	endJump := c.emitJump(OP_JUMP, line)
	c.patchJump(elseJump)
	c.emit(OP_POP, line)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) argumentList() int {
	argCount := 0
	if !c.parser.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if argCount == 255 {
				c.parser.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.parser.match(token.COMMA) {
				break
			}
		}
	}
	c.parser.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return argCount
}

func (c *Compiler) call(_ bool) {
	line := c.parser.previous.Line
	argCount := c.argumentList()
	c.emitBytes(OP_CALL, byte(argCount), line)
}

func (c *Compiler) dot(canAssign bool) {
	c.parser.consume(token.IDENTIFIER, "Expect property name after '.'.")
	line := c.parser.previous.Line
	nameHandle := c.parser.heap.InternString(c.parser.previous.Lexeme)
	nameConst := c.addConstant(ObjVal(nameHandle))

	switch {
	case canAssign && c.parser.match(token.EQUAL):
		c.expression()
		c.emitPropertyOp(OP_SET_PROPERTY, nameConst, line)
	case c.parser.match(token.LEFT_PAREN):
		argCount := c.argumentList()
		c.emitPropertyOp(OP_INVOKE, nameConst, line)
		c.emitByte(byte(argCount), line)
	default:
		c.emitPropertyOp(OP_GET_PROPERTY, nameConst, line)
	}
}

func (c *Compiler) emitPropertyOp(op Opcode, nameConst int, line int) {
	c.emit(op, line)
	c.emitByte(byte(nameConst), line)
}

// variable compiles a bare identifier as either a get or (if canAssign
// and followed by `=`) a set, resolving it local-first, then upvalue,
// then global.
func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.parser.previous.Lexeme, canAssign)
}

func (c *Compiler) namedVariable(name string, canAssign bool) {
	line := c.parser.previous.Line
	var getOp, setOp Opcode
	var arg int
	isConst := false

	if slot := c.resolveLocal(name); slot != -1 {
		getOp, setOp = OP_GET_LOCAL, OP_SET_LOCAL
		arg = slot
		isConst = c.isLocalConst(slot)
	} else if up := c.resolveUpvalue(name); up != -1 {
		getOp, setOp = OP_GET_UPVALUE, OP_SET_UPVALUE
		arg = up
	} else {
		handle := c.parser.heap.InternString(name)
		arg = c.addConstant(ObjVal(handle))
		getOp, setOp = OP_GET_GLOBAL, OP_SET_GLOBAL
	}

	if canAssign && c.parser.match(token.EQUAL) {
		if isConst {
			c.parser.error("Cannot assign to const variable '" + name + "'.")
		}
		c.expression()
		c.emitVariableOp(setOp, arg, line)
		return
	}
	c.emitVariableOp(getOp, arg, line)
}

func (c *Compiler) emitVariableOp(op Opcode, arg int, line int) {
	if arg < 256 {
		c.emitBytes(op, byte(arg), line)
		return
	}
	long := longFormOf(op)
	c.emit(long, line)
	c.emitByte(byte(arg>>16), line)
	c.emitByte(byte(arg>>8), line)
	c.emitByte(byte(arg), line)
}

func longFormOf(op Opcode) Opcode {
	switch op {
	case OP_GET_LOCAL:
		return OP_GET_LOCAL_LONG
	case OP_SET_LOCAL:
		return OP_SET_LOCAL_LONG
	case OP_GET_GLOBAL:
		return OP_GET_GLOBAL_LONG
	case OP_SET_GLOBAL:
		return OP_SET_GLOBAL_LONG
	case OP_DEFINE_GLOBAL:
		return OP_DEFINE_GLOBAL_LONG
	case OP_DEFINE_CONST_GLOBAL:
		return OP_DEFINE_CONST_GLOBAL_LONG
	}
	return op
}

func (c *Compiler) this(_ bool) {
	if c.class == nil {
		c.parser.error("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable("this", false)
}

func (c *Compiler) super(_ bool) {
	line := c.parser.previous.Line
	if c.class == nil {
		c.parser.error("Can't use 'super' outside of a class.")
	} else if !c.class.HasSuperclass {
		c.parser.error("Can't use 'super' in a class with no superclass.")
	}

	c.parser.consume(token.DOT, "Expect '.' after 'super'.")
	c.parser.consume(token.IDENTIFIER, "Expect superclass method name.")
	nameHandle := c.parser.heap.InternString(c.parser.previous.Lexeme)
	nameConst := c.addConstant(ObjVal(nameHandle))

	c.namedVariable("this", false)
	if c.parser.match(token.LEFT_PAREN) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emit(OP_SUPER_INVOKE, line)
		c.emitByte(byte(nameConst), line)
		c.emitByte(byte(argCount), line)
		return
	}
	c.namedVariable("super", false)
	c.emit(OP_GET_SUPER, line)
	c.emitByte(byte(nameConst), line)
}
