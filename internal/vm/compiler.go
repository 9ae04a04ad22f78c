package vm

import (
	"github.com/funvibe/lumen/internal/lexer"
	"github.com/funvibe/lumen/internal/token"
)

// FunctionType distinguishes the implicit top-level script function
// from user-declared functions, methods, and initializers — each
// governs slightly different `return`/`this` rules in the statement
// compiler.
type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

// Local is one compile-time local-variable slot: its name, the scope
// depth it was declared at, whether a nested function's upvalue list
// captures it (forcing OP_CLOSE_UPVALUE instead of OP_POP when its
// scope ends), and whether it was declared `const`.
type Local struct {
	Name       string
	Depth      int
	IsCaptured bool
	IsConst    bool
}

// Upvalue records, for one compiled function, where the (index+1)'th
// upvalue slot of its closures comes from: a local slot in the
// immediately enclosing function (IsLocal true) or an upvalue of that
// enclosing function (IsLocal false, chaining through nested scopes).
type Upvalue struct {
	Index   uint8
	IsLocal bool
}

// LoopContext tracks the state `break`/`continue` need: where `loop`
// jumps back to, and the list of not-yet-patched forward jumps every
// `break` in the loop body has emitted.
type LoopContext struct {
	LoopStart  int
	BreakJumps []int
	ScopeDepth int
}

// ClassCompiler tracks nested class-declaration state, chiefly
// whether the class currently being compiled has a superclass (which
// governs whether `super` is a legal expression in its method bodies).
type ClassCompiler struct {
	Enclosing     *ClassCompiler
	HasSuperclass bool
}

// parser holds the single shared scanning/token state that every
// nested function Compiler reads from: lumen has exactly one token
// stream for an entire compile, walked once, with compilers for
// nested functions chained through Compiler.enclosing rather than
// each owning their own lexer.
type parser struct {
	lex       *lexer.Lexer
	heap      *Heap
	current   token.Token
	previous  token.Token
	hadError  bool
	panicMode bool
	errors    []*CompileError
	fileName  string
}

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	p.errors = append(p.errors, &CompileError{Line: tok.Line, Message: msg})
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lex.NextToken()
		if p.current.Type != token.ERROR {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(t token.Type) bool { return p.current.Type == t }

func (p *parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t token.Type, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// Compiler compiles one function body (or the top-level script) into
// bytecode, reading tokens from the shared parser one at a time and
// emitting straight into its Chunk as it goes — there is no
// intermediate syntax tree.
type Compiler struct {
	parser *parser

	enclosing *Compiler
	funcType  FunctionType
	function  *FunctionObj

	locals     []Local
	localCount int
	scopeDepth int

	upvalues     [256]Upvalue
	upvalueCount int

	loopStack []*LoopContext
	class     *ClassCompiler
}

func newCompiler(p *parser, enclosing *Compiler, funcType FunctionType, name string) *Compiler {
	c := &Compiler{
		parser:    p,
		enclosing: enclosing,
		funcType:  funcType,
		function:  &FunctionObj{Name: name, Chunk: NewChunk(p.fileName)},
	}
	if enclosing != nil {
		c.class = enclosing.class
	}
	// Slot 0 is reserved: `this` for methods/initializers, otherwise an
	// unnamed slot the compiler never resolves by name.
	slotName := ""
	if funcType == TypeMethod || funcType == TypeInitializer {
		slotName = "this"
	}
	c.locals = append(c.locals, Local{Name: slotName, Depth: 0})
	c.localCount = 1
	return c
}

func (c *Compiler) currentChunk() *Chunk { return c.function.Chunk }

// Compile compiles the full source of one program into the implicit
// top-level script function. If any error was recorded it returns a
// nil function and a *CompileErrors holding every CompileError
// panic-mode recovery collected.
func Compile(source string, heap *Heap, fileName string) (*FunctionObj, error) {
	p := &parser{lex: lexer.New(source), heap: heap, fileName: fileName}
	p.advance()

	c := newCompiler(p, nil, TypeScript, "")
	for !p.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()

	if p.hadError {
		return nil, &CompileErrors{Errors: p.errors}
	}
	return fn, nil
}

func (c *Compiler) endCompiler() *FunctionObj {
	line := c.parser.previous.Line
	if c.funcType == TypeInitializer {
		c.emit(OP_GET_LOCAL, line)
		c.emitByte(0, line)
	} else {
		c.emit(OP_NIL, line)
	}
	c.emit(OP_RETURN, line)
	c.function.UpvalueCount = c.upvalueCount
	return c.function
}
