package vm

// beginScope starts a new lexical scope.
func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope ends the current scope, popping every local declared in it
// — emitting OP_CLOSE_UPVALUE for locals a nested closure captured,
// OP_POP otherwise.
func (c *Compiler) endScope(line int) {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].Depth > c.scopeDepth {
		if c.locals[c.localCount-1].IsCaptured {
			c.emit(OP_CLOSE_UPVALUE, line)
		} else {
			c.emit(OP_POP, line)
		}
		c.localCount--
	}
}

// maxLocals bounds the number of locals one function may declare. Past
// 256 slots, OP_GET_LOCAL/OP_SET_LOCAL's 1-byte operand no longer
// reaches the slot and emitVariableOp falls back to the 3-byte
// OP_GET_LOCAL_LONG/OP_SET_LOCAL_LONG form instead — so this cap exists
// only to keep runaway declarations from growing the locals slice
// without bound, not because slots past 256 are unaddressable.
const maxLocals = 1 << 20

// addLocal declares name as a new local in the current scope. Its
// Depth is left at -1 ("uninitialized") until markInitialized is
// called once its initializer has been compiled, so resolveLocal can
// reject a declaration like `var a = a;` with a compile error instead
// of reading the uninitialized slot.
func (c *Compiler) addLocal(name string, isConst bool) {
	if c.localCount >= maxLocals {
		c.parser.error("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, Local{Name: name, Depth: -1, IsConst: isConst})
	c.localCount++
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[c.localCount-1].Depth = c.scopeDepth
}

// resolveLocal looks up name among this function's locals, innermost
// scope first, returning its slot or -1 if not found.
func (c *Compiler) resolveLocal(name string) int {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			if c.locals[i].Depth == -1 {
				c.parser.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue searches enclosing functions for name, threading an
// upvalue through every intermediate function's upvalue list so a
// doubly (or more) nested closure can still reach it.
func (c *Compiler) resolveUpvalue(name string) int {
	if c.enclosing == nil {
		return -1
	}

	if slot := c.enclosing.resolveLocal(name); slot != -1 {
		c.enclosing.locals[slot].IsCaptured = true
		return c.addUpvalue(uint8(slot), true)
	}

	if up := c.enclosing.resolveUpvalue(name); up != -1 {
		return c.addUpvalue(uint8(up), false)
	}

	return -1
}

func (c *Compiler) addUpvalue(index uint8, isLocal bool) int {
	for i := 0; i < c.upvalueCount; i++ {
		if c.upvalues[i].Index == index && c.upvalues[i].IsLocal == isLocal {
			return i
		}
	}
	if c.upvalueCount >= 256 {
		c.parser.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues[c.upvalueCount] = Upvalue{Index: index, IsLocal: isLocal}
	c.upvalueCount++
	return c.upvalueCount - 1
}

// isLocalConst reports whether the local resolved to slot was
// declared `const`, the check `a = 1` assignment compiling rejects.
func (c *Compiler) isLocalConst(slot int) bool {
	return c.locals[slot].IsConst
}

// emit helpers

func (c *Compiler) emit(op Opcode, line int) {
	c.currentChunk().WriteOp(op, line)
}

func (c *Compiler) emitByte(b byte, line int) {
	c.currentChunk().Write(b, line)
}

func (c *Compiler) emitBytes(op Opcode, b byte, line int) {
	c.emit(op, line)
	c.emitByte(b, line)
}

func (c *Compiler) emitConstant(v Value, line int) {
	idx := c.addConstant(v)
	c.currentChunk().WriteConstant(idx, line)
}

// addConstant adds v to the current chunk's constant pool, the same
// panic-mode-recoverable way addLocal/addUpvalue report their own
// "too many" limits: it records a CompileError at the current line and
// returns 0 rather than growing the pool past maxConstants.
func (c *Compiler) addConstant(v Value) int {
	if len(c.currentChunk().Constants) >= maxConstants {
		c.parser.error("Too many constants in one chunk.")
		return 0
	}
	return c.currentChunk().AddConstant(v)
}

func (c *Compiler) emitJump(op Opcode, line int) int {
	c.emit(op, line)
	c.emitByte(0xff, line)
	c.emitByte(0xff, line)
	return c.currentChunk().Len() - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := c.currentChunk().Len() - offset - 2
	if jump > 0xffff {
		c.parser.error("Too much code to jump over.")
		return
	}
	c.currentChunk().Code[offset] = byte(jump >> 8)
	c.currentChunk().Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int, line int) {
	c.emit(OP_LOOP, line)
	offset := c.currentChunk().Len() - loopStart + 2
	if offset > 0xffff {
		c.parser.error("Loop body too large.")
		return
	}
	c.emitByte(byte(offset>>8), line)
	c.emitByte(byte(offset), line)
}

func (c *Compiler) currentLoop() *LoopContext {
	if len(c.loopStack) == 0 {
		return nil
	}
	return c.loopStack[len(c.loopStack)-1]
}

func (c *Compiler) pushLoop(loopStart int) *LoopContext {
	lc := &LoopContext{LoopStart: loopStart, ScopeDepth: c.scopeDepth}
	c.loopStack = append(c.loopStack, lc)
	return lc
}

func (c *Compiler) popLoop() {
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}
