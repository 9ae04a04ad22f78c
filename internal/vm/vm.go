package vm

import (
	"io"

	"github.com/google/uuid"
)

const (
	maxFrames = 256
	maxStack  = maxFrames * 256
)

// CallFrame is one activation record: the closure being run, the
// chunk its function compiled to (cached off the closure so the hot
// loop doesn't chase two pointers per instruction), an instruction
// pointer into that chunk, and the stack index its local slot 0 sits
// at.
type CallFrame struct {
	closure Handle // KindClosure
	chunk   *Chunk
	ip      int
	base    int
}

// VM is one instance of the stack machine: its value stack, call
// frames, heap, and globals table, plus the diagnostic flags that
// govern tracing and GC behavior for this run.
type VM struct {
	stack []Value
	sp    int

	frames     []CallFrame
	frameCount int

	heap *Heap

	globals      map[string]Value
	constGlobals map[string]bool

	openUvHead Handle
	hasOpenUv  bool

	initStringHandle Handle

	out io.Writer

	SessionID uuid.UUID

	// Std, when true, makes reading an instance's undefined field a
	// RuntimeError instead of yielding Nil.
	Std bool
	// StressGC runs a full collection before every instruction.
	StressGC bool
	// OnGC, when non-nil, is invoked with the stats of every
	// collection (automatic or stress-mode), letting the CLI driver
	// implement --log-gc without the VM depending on internal/logsink.
	OnGC func(GCStats)
	// TraceExecution, when true, invokes OnTrace before every
	// instruction.
	TraceExecution bool
	OnTrace        func(line string)
}

// New creates a VM with its own Heap and a session identifier used to
// correlate this run's diagnostics across log lines.
func New(out io.Writer) *VM {
	vm := &VM{
		stack:        make([]Value, maxStack),
		frames:       make([]CallFrame, maxFrames),
		heap:         NewHeap(),
		globals:      make(map[string]Value),
		constGlobals: make(map[string]bool),
		out:          out,
		SessionID:    uuid.New(),
	}
	vm.initStringHandle = vm.heap.InternString("init")
	vm.registerBuiltins()
	return vm
}

// Heap exposes the VM's heap, chiefly so the CLI driver's
// --print-code path can call Disassemble with a Heap to render
// constants.
func (vm *VM) Heap() *Heap { return vm.heap }

func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUvHead = Handle{}
	vm.hasOpenUv = false
}

// Interpret runs a freshly compiled top-level script function to
// completion against this VM's existing globals (the REPL's
// "globals persist across lines" behavior: each line is compiled to
// its own script function and Interpret is called once per line).
func (vm *VM) Interpret(fn *FunctionObj) error {
	closure := &ClosureObj{Function: vm.heap.NewFunction(fn), Upvalues: nil}
	closureHandle := vm.heap.NewClosure(closure)
	vm.push(ObjVal(closureHandle))
	if err := vm.callClosureHandle(closureHandle, 0); err != nil {
		vm.resetStack()
		return err
	}
	err := vm.run()
	if err != nil {
		vm.resetStack()
	}
	return err
}

func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	err := newRuntimeError(format, args...)
	err.SessionID = vm.SessionID
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := vm.frames[i]
		name := ""
		if closure, ok := vm.heap.Closure(fr.closure); ok {
			if fn, ok := vm.heap.Function(closure.Function); ok {
				name = fn.Name
			}
		}
		line := 0
		if fr.chunk != nil && fr.ip > 0 {
			line = fr.chunk.LineAt(fr.ip - 1)
		}
		err.Trace = append(err.Trace, StackFrame{FunctionName: name, Line: line})
	}
	return err
}

// maybeCollect runs a collection if forced is true or the heap's
// allocation-pressure threshold has been crossed.
func (vm *VM) maybeCollect(forced bool) {
	if !forced && !vm.heap.NeedsCollection() {
		return
	}
	stats := vm.heap.Collect(vm.gcRoots())
	if vm.OnGC != nil {
		vm.OnGC(stats)
	}
}

func (vm *VM) gcRoots() GCRoots {
	roots := GCRoots{
		Stack:   append([]Value(nil), vm.stack[:vm.sp]...),
		Globals: vm.globals,
	}
	for i := 0; i < vm.frameCount; i++ {
		roots.FrameClosures = append(roots.FrameClosures, vm.frames[i].closure)
	}
	cur, has := vm.openUvHead, vm.hasOpenUv
	for has {
		roots.OpenUpvalues = append(roots.OpenUpvalues, cur)
		uv, ok := vm.heap.Upvalue(cur)
		if !ok {
			break
		}
		cur, has = uv.Next, uv.HasNext
	}
	roots.ExtraObjects = append(roots.ExtraObjects, vm.initStringHandle)
	return roots
}
