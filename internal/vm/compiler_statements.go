package vm

import "github.com/funvibe/lumen/internal/token"

func (c *Compiler) declaration() {
	switch {
	case c.parser.match(token.CLASS):
		c.classDeclaration()
	case c.parser.match(token.FUN):
		c.funDeclaration()
	case c.parser.match(token.VAR):
		c.varDeclaration()
	case c.parser.match(token.CONST):
		c.constDeclaration()
	default:
		c.statement()
	}
	if c.parser.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) synchronize() {
	c.parser.panicMode = false
	for c.parser.current.Type != token.EOF {
		if c.parser.previous.Type == token.SEMICOLON {
			return
		}
		switch c.parser.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.CONST, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.parser.advance()
	}
}

func (c *Compiler) parseVariable(msg string, isConst bool) int {
	c.parser.consume(token.IDENTIFIER, msg)
	c.declareVariable(isConst)
	if c.scopeDepth > 0 {
		return 0
	}
	handle := c.parser.heap.InternString(c.parser.previous.Lexeme)
	return c.addConstant(ObjVal(handle))
}

func (c *Compiler) declareVariable(isConst bool) {
	if c.scopeDepth == 0 {
		return
	}
	name := c.parser.previous.Lexeme
	for i := c.localCount - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.Depth != -1 && l.Depth < c.scopeDepth {
			break
		}
		if l.Name == name {
			c.parser.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name, isConst)
}

func (c *Compiler) defineVariable(global int, isConst bool, line int) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	op := OP_DEFINE_GLOBAL
	if isConst {
		op = OP_DEFINE_CONST_GLOBAL
	}
	c.emitVariableOp(op, global, line)
}

func (c *Compiler) varDeclaration() {
	line := c.parser.previous.Line
	global := c.parseVariable("Expect variable name.", false)
	if c.parser.match(token.EQUAL) {
		c.expression()
	} else {
		c.emit(OP_NIL, line)
	}
	c.parser.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.defineVariable(global, false, line)
}

func (c *Compiler) constDeclaration() {
	line := c.parser.previous.Line
	global := c.parseVariable("Expect constant name.", true)
	c.parser.consume(token.EQUAL, "Const declarations must have an initializer.")
	c.expression()
	c.parser.consume(token.SEMICOLON, "Expect ';' after const declaration.")
	c.defineVariable(global, true, line)
}

func (c *Compiler) funDeclaration() {
	line := c.parser.previous.Line
	global := c.parseVariable("Expect function name.", false)
	c.markInitialized()
	c.compileFunction(TypeFunction)
	c.defineVariable(global, false, line)
}

// compileFunction compiles a nested function (or method) body using a
// fresh Compiler chained through enclosing, then emits OP_CLOSURE in
// the *enclosing* compiler with the upvalue capture metadata the
// nested compile discovered.
func (c *Compiler) compileFunction(funcType FunctionType) {
	name := c.parser.previous.Lexeme
	nested := newCompiler(c.parser, c, funcType, name)
	nested.beginScope()

	c.parser.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !c.parser.check(token.RIGHT_PAREN) {
		for {
			nested.function.Arity++
			if nested.function.Arity > 255 {
				c.parser.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := nested.parseVariable("Expect parameter name.", false)
			nested.defineVariable(paramConst, false, c.parser.previous.Line)
			if !c.parser.match(token.COMMA) {
				break
			}
		}
	}
	c.parser.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	c.parser.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	nested.block()
	fn := nested.endCompiler()

	line := c.parser.previous.Line
	fnHandle := c.parser.heap.NewFunction(fn)
	constIdx := c.addConstant(ObjVal(fnHandle))
	c.emit(OP_CLOSURE, line)
	c.emitByte(byte(constIdx), line)
	for i := 0; i < nested.upvalueCount; i++ {
		if nested.upvalues[i].IsLocal {
			c.emitByte(1, line)
		} else {
			c.emitByte(0, line)
		}
		c.emitByte(nested.upvalues[i].Index, line)
	}
}

func (c *Compiler) method() {
	c.parser.consume(token.IDENTIFIER, "Expect method name.")
	name := c.parser.previous.Lexeme
	nameHandle := c.parser.heap.InternString(name)
	nameConst := c.addConstant(ObjVal(nameHandle))

	funcType := TypeMethod
	if name == "init" {
		funcType = TypeInitializer
	}
	c.compileFunction(funcType)

	line := c.parser.previous.Line
	c.emit(OP_METHOD, line)
	c.emitByte(byte(nameConst), line)
}

func (c *Compiler) classDeclaration() {
	c.parser.consume(token.IDENTIFIER, "Expect class name.")
	className := c.parser.previous.Lexeme
	classLine := c.parser.previous.Line
	nameHandle := c.parser.heap.InternString(className)
	nameConst := c.addConstant(ObjVal(nameHandle))
	c.declareVariable(false)

	c.emit(OP_CLASS, classLine)
	c.emitByte(byte(nameConst), classLine)
	c.defineVariable(nameConst, false, classLine)

	classComp := &ClassCompiler{Enclosing: c.class}
	c.class = classComp

	if c.parser.match(token.LESS) {
		c.parser.consume(token.IDENTIFIER, "Expect superclass name.")
		superName := c.parser.previous.Lexeme
		if superName == className {
			c.parser.error("A class can't inherit from itself.")
		}
		c.namedVariable(superName, false)

		c.beginScope()
		c.addLocal("super", false)
		c.markInitialized()

		c.namedVariable(className, false)
		c.emit(OP_INHERIT, classLine)
		classComp.HasSuperclass = true
	}

	c.namedVariable(className, false)
	c.parser.consume(token.LEFT_BRACE, "Expect '{' before class body.")
	for !c.parser.check(token.RIGHT_BRACE) && !c.parser.check(token.EOF) {
		c.method()
	}
	c.parser.consume(token.RIGHT_BRACE, "Expect '}' after class body.")
	c.emit(OP_POP, c.parser.previous.Line)

	if classComp.HasSuperclass {
		c.endScope(c.parser.previous.Line)
	}
	c.class = classComp.Enclosing
}

func (c *Compiler) statement() {
	switch {
	case c.parser.match(token.PRINT):
		c.printStatement()
	case c.parser.match(token.IF):
		c.ifStatement()
	case c.parser.match(token.WHILE):
		c.whileStatement()
	case c.parser.match(token.FOR):
		c.forStatement()
	case c.parser.match(token.RETURN):
		c.returnStatement()
	case c.parser.match(token.BREAK):
		c.breakStatement()
	case c.parser.match(token.CONTINUE):
		c.continueStatement()
	case c.parser.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope(c.parser.previous.Line)
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.parser.check(token.RIGHT_BRACE) && !c.parser.check(token.EOF) {
		c.declaration()
	}
	c.parser.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	line := c.parser.previous.Line
	c.expression()
	c.parser.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emit(OP_PRINT, line)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	line := c.parser.previous.Line
	c.parser.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emit(OP_POP, line)
}

func (c *Compiler) ifStatement() {
	line := c.parser.previous.Line
	c.parser.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.parser.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	c.emit(OP_POP, line)
	c.statement()

	elseJump := c.emitJump(OP_JUMP, c.parser.previous.Line)
	c.patchJump(thenJump)
	c.emit(OP_POP, c.parser.previous.Line)

	if c.parser.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	line := c.parser.previous.Line
	loopStart := c.currentChunk().Len()
	c.parser.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.parser.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(OP_JUMP_IF_FALSE, line)
	c.emit(OP_POP, line)

	lc := c.pushLoop(loopStart)
	c.statement()
	c.emitLoop(loopStart, c.parser.previous.Line)

	c.patchJump(exitJump)
	c.emit(OP_POP, c.parser.previous.Line)
	for _, j := range lc.BreakJumps {
		c.patchJump(j)
	}
	c.popLoop()
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.parser.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case c.parser.match(token.SEMICOLON):
		// no initializer
	case c.parser.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.currentChunk().Len()
	exitJump := -1
	if !c.parser.match(token.SEMICOLON) {
		c.expression()
		c.parser.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OP_JUMP_IF_FALSE, c.parser.previous.Line)
		c.emit(OP_POP, c.parser.previous.Line)
	}

	if !c.parser.check(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(OP_JUMP, c.parser.previous.Line)
		incrementStart := c.currentChunk().Len()
		c.expression()
		c.emit(OP_POP, c.parser.previous.Line)
		c.parser.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")
		c.emitLoop(loopStart, c.parser.previous.Line)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.parser.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")
	}

	lc := c.pushLoop(loopStart)
	c.statement()
	c.emitLoop(loopStart, c.parser.previous.Line)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(OP_POP, c.parser.previous.Line)
	}
	for _, j := range lc.BreakJumps {
		c.patchJump(j)
	}
	c.popLoop()
	c.endScope(c.parser.previous.Line)
}

func (c *Compiler) emitReturnNil(line int) {
	if c.funcType == TypeInitializer {
		c.emit(OP_GET_LOCAL, line)
		c.emitByte(0, line)
	} else {
		c.emit(OP_NIL, line)
	}
	c.emit(OP_RETURN, line)
}

func (c *Compiler) returnStatement() {
	line := c.parser.previous.Line
	if c.funcType == TypeScript {
		c.parser.error("Can't return from top-level code.")
	}
	if c.parser.match(token.SEMICOLON) {
		c.emitReturnNil(line)
		return
	}
	if c.funcType == TypeInitializer {
		c.parser.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.parser.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emit(OP_RETURN, line)
}

// unwindLoopLocals emits the POP/CLOSE_UPVALUE instructions for every
// local declared more deeply than the loop's own scope, without
// touching the compiler's local bookkeeping — the loop body compile
// continues normally after a break/continue statement.
func (c *Compiler) unwindLoopLocals(lc *LoopContext, line int) {
	for i := c.localCount - 1; i >= 0 && c.locals[i].Depth > lc.ScopeDepth; i-- {
		if c.locals[i].IsCaptured {
			c.emit(OP_CLOSE_UPVALUE, line)
		} else {
			c.emit(OP_POP, line)
		}
	}
}

func (c *Compiler) breakStatement() {
	line := c.parser.previous.Line
	lc := c.currentLoop()
	if lc == nil {
		c.parser.error("Can't use 'break' outside of a loop.")
		c.parser.consume(token.SEMICOLON, "Expect ';' after 'break'.")
		return
	}
	c.parser.consume(token.SEMICOLON, "Expect ';' after 'break'.")
	c.unwindLoopLocals(lc, line)
	jump := c.emitJump(OP_BREAK, line)
	lc.BreakJumps = append(lc.BreakJumps, jump)
}

func (c *Compiler) continueStatement() {
	line := c.parser.previous.Line
	lc := c.currentLoop()
	if lc == nil {
		c.parser.error("Can't use 'continue' outside of a loop.")
		c.parser.consume(token.SEMICOLON, "Expect ';' after 'continue'.")
		return
	}
	c.parser.consume(token.SEMICOLON, "Expect ';' after 'continue'.")
	c.unwindLoopLocals(lc, line)
	c.emitLoop(lc.LoopStart, line)
}
