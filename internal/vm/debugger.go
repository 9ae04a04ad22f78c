package vm

import "strings"

// Debugger renders --trace-execution output: a dump of the value
// stack followed by the disassembly of the instruction about to run,
// one line per executed instruction. It is a thin holder for an
// output sink, trimmed from richer breakpoint/step debugging in favor
// of just what a single CLI flag needs.
type Debugger struct {
	Enabled bool
	Output  func(string)
}

// Attach wires d into vm's OnTrace hook.
func (d *Debugger) Attach(vm *VM) {
	vm.TraceExecution = d.Enabled
	vm.OnTrace = func(instrLine string) {
		var b strings.Builder
		b.WriteString("          ")
		for i := 0; i < vm.sp; i++ {
			b.WriteString("[ ")
			b.WriteString(vm.stack[i].String(vm.heap))
			b.WriteString(" ]")
		}
		d.Output(b.String())
		d.Output(instrLine)
	}
}
