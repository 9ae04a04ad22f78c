package vm

func (vm *VM) readByte(frame *CallFrame) byte {
	b := frame.chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *CallFrame) int {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readLongIndex(frame *CallFrame) int {
	a := vm.readByte(frame)
	b := vm.readByte(frame)
	c := vm.readByte(frame)
	return int(a)<<16 | int(b)<<8 | int(c)
}

func (vm *VM) readConstant(frame *CallFrame, idx int) Value {
	return frame.chunk.Constants[idx]
}

func (vm *VM) constantName(v Value) string {
	if s, ok := vm.heap.String(v.Handle); ok {
		return s.Chars
	}
	return "<invalid name>"
}

// run is the VM's fetch-decode-execute loop. It re-reads the current
// frame from vm.frames every iteration rather than caching a pointer
// across calls/returns, since OP_CALL/OP_RETURN change which frame is
// current.
func (vm *VM) run() error {
	for {
		if vm.StressGC {
			vm.maybeCollect(true)
		} else {
			vm.maybeCollect(false)
		}

		frame := &vm.frames[vm.frameCount-1]
		if vm.TraceExecution && vm.OnTrace != nil {
			line, _ := DisassembleInstruction(frame.chunk, frame.ip, vm.heap)
			vm.OnTrace(line)
		}

		op := Opcode(vm.readByte(frame))
		switch op {
		case OP_CONSTANT:
			vm.push(vm.readConstant(frame, int(vm.readByte(frame))))
		case OP_CONSTANT_LONG:
			vm.push(vm.readConstant(frame, vm.readLongIndex(frame)))
		case OP_NIL:
			vm.push(NilVal())
		case OP_TRUE:
			vm.push(BoolVal(true))
		case OP_FALSE:
			vm.push(BoolVal(false))
		case OP_POP:
			vm.pop()

		case OP_GET_LOCAL:
			vm.push(vm.stack[frame.base+int(vm.readByte(frame))])
		case OP_GET_LOCAL_LONG:
			vm.push(vm.stack[frame.base+vm.readLongIndex(frame)])
		case OP_SET_LOCAL:
			vm.stack[frame.base+int(vm.readByte(frame))] = vm.peek(0)
		case OP_SET_LOCAL_LONG:
			vm.stack[frame.base+vm.readLongIndex(frame)] = vm.peek(0)

		case OP_DEFINE_GLOBAL, OP_DEFINE_GLOBAL_LONG, OP_DEFINE_CONST_GLOBAL, OP_DEFINE_CONST_GLOBAL_LONG:
			idx := vm.constantOperand(frame, op)
			name := vm.constantName(vm.readConstant(frame, idx))
			vm.globals[name] = vm.pop()
			if op == OP_DEFINE_CONST_GLOBAL || op == OP_DEFINE_CONST_GLOBAL_LONG {
				vm.constGlobals[name] = true
			}
		case OP_GET_GLOBAL, OP_GET_GLOBAL_LONG:
			idx := vm.constantOperand(frame, op)
			name := vm.constantName(vm.readConstant(frame, idx))
			v, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.push(v)
		case OP_SET_GLOBAL, OP_SET_GLOBAL_LONG:
			idx := vm.constantOperand(frame, op)
			name := vm.constantName(vm.readConstant(frame, idx))
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			if vm.constGlobals[name] {
				return vm.runtimeError("Cannot assign to const variable '%s'.", name)
			}
			vm.globals[name] = vm.peek(0)

		case OP_GET_UPVALUE:
			idx := int(vm.readByte(frame))
			if v, err := vm.getUpvalue(frame, idx); err != nil {
				return err
			} else {
				vm.push(v)
			}
		case OP_SET_UPVALUE:
			idx := int(vm.readByte(frame))
			if err := vm.setUpvalue(frame, idx, vm.peek(0)); err != nil {
				return err
			}

		case OP_GET_PROPERTY:
			if err := vm.execGetProperty(frame); err != nil {
				return err
			}
		case OP_SET_PROPERTY:
			if err := vm.execSetProperty(frame); err != nil {
				return err
			}
		case OP_GET_SUPER:
			if err := vm.execGetSuper(frame); err != nil {
				return err
			}

		case OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(a.Equals(b)))
		case OP_GREATER:
			if err := vm.numericCompare(">"); err != nil {
				return err
			}
		case OP_LESS:
			if err := vm.numericCompare("<"); err != nil {
				return err
			}
		case OP_ADD:
			if err := vm.execAdd(); err != nil {
				return err
			}
		case OP_SUBTRACT:
			if err := vm.numericBinary("-"); err != nil {
				return err
			}
		case OP_MULTIPLY:
			if err := vm.numericBinary("*"); err != nil {
				return err
			}
		case OP_DIVIDE:
			if err := vm.numericBinary("/"); err != nil {
				return err
			}
		case OP_NOT:
			vm.push(BoolVal(vm.pop().IsFalsey()))
		case OP_NEGATE:
			v := vm.peek(0)
			if !v.IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(NumberVal(-v.Num))

		case OP_PRINT:
			v := vm.pop()
			vm.out.Write([]byte(v.String(vm.heap) + "\n"))

		case OP_JUMP:
			offset := vm.readShort(frame)
			frame.ip += offset
		case OP_JUMP_IF_FALSE:
			offset := vm.readShort(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += offset
			}
		case OP_BREAK:
			offset := vm.readShort(frame)
			frame.ip += offset
		case OP_LOOP:
			offset := vm.readShort(frame)
			frame.ip -= offset

		case OP_CALL:
			argCount := int(vm.readByte(frame))
			callee := vm.peek(argCount)
			if err := vm.callValue(callee, argCount); err != nil {
				return err
			}
		case OP_INVOKE:
			nameIdx := int(vm.readByte(frame))
			argCount := int(vm.readByte(frame))
			name := vm.constantName(vm.readConstant(frame, nameIdx))
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}
		case OP_SUPER_INVOKE:
			nameIdx := int(vm.readByte(frame))
			argCount := int(vm.readByte(frame))
			name := vm.constantName(vm.readConstant(frame, nameIdx))
			superclassVal := vm.pop()
			if err := vm.superInvoke(superclassVal.Handle, name, argCount); err != nil {
				return err
			}

		case OP_CLOSURE:
			if err := vm.execClosure(frame); err != nil {
				return err
			}
		case OP_CLOSE_UPVALUE:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case OP_RETURN:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.sp = frame.base
			vm.push(result)

		case OP_CLASS:
			nameIdx := int(vm.readByte(frame))
			name := vm.constantName(vm.readConstant(frame, nameIdx))
			vm.push(ObjVal(vm.heap.NewClass(&ClassObj{Name: name, Methods: make(map[string]Handle)})))
		case OP_INHERIT:
			if err := vm.execInherit(); err != nil {
				return err
			}
		case OP_METHOD:
			nameIdx := int(vm.readByte(frame))
			name := vm.constantName(vm.readConstant(frame, nameIdx))
			vm.execMethod(name)

		case OP_HALT:
			return nil

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) constantOperand(frame *CallFrame, op Opcode) int {
	switch op {
	case OP_DEFINE_GLOBAL_LONG, OP_DEFINE_CONST_GLOBAL_LONG, OP_GET_GLOBAL_LONG, OP_SET_GLOBAL_LONG:
		return vm.readLongIndex(frame)
	default:
		return int(vm.readByte(frame))
	}
}

func (vm *VM) getUpvalue(frame *CallFrame, idx int) (Value, error) {
	closure, ok := vm.heap.Closure(frame.closure)
	if !ok || idx >= len(closure.Upvalues) {
		return NilVal(), vm.runtimeError("Invalid upvalue access.")
	}
	uv, ok := vm.heap.Upvalue(closure.Upvalues[idx])
	if !ok {
		return NilVal(), vm.runtimeError("Invalid upvalue access.")
	}
	if uv.Location >= 0 {
		return vm.stack[uv.Location], nil
	}
	return uv.Closed, nil
}

func (vm *VM) setUpvalue(frame *CallFrame, idx int, v Value) error {
	closure, ok := vm.heap.Closure(frame.closure)
	if !ok || idx >= len(closure.Upvalues) {
		return vm.runtimeError("Invalid upvalue access.")
	}
	uv, ok := vm.heap.Upvalue(closure.Upvalues[idx])
	if !ok {
		return vm.runtimeError("Invalid upvalue access.")
	}
	if uv.Location >= 0 {
		vm.stack[uv.Location] = v
	} else {
		uv.Closed = v
	}
	return nil
}

func (vm *VM) numericBinary(op string) error {
	b := vm.peek(0)
	a := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	switch op {
	case "-":
		vm.push(NumberVal(a.Num - b.Num))
	case "*":
		vm.push(NumberVal(a.Num * b.Num))
	case "/":
		vm.push(NumberVal(a.Num / b.Num))
	}
	return nil
}

func (vm *VM) numericCompare(op string) error {
	b := vm.peek(0)
	a := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	switch op {
	case ">":
		vm.push(BoolVal(a.Num > b.Num))
	case "<":
		vm.push(BoolVal(a.Num < b.Num))
	}
	return nil
}

func (vm *VM) execAdd() error {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(NumberVal(a.Num + b.Num))
	case a.IsKind(KindString) && b.IsKind(KindString):
		vm.pop()
		vm.pop()
		as, _ := vm.heap.String(a.Handle)
		bs, _ := vm.heap.String(b.Handle)
		vm.push(ObjVal(vm.heap.InternString(as.Chars + bs.Chars)))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

func (vm *VM) execGetProperty(frame *CallFrame) error {
	nameIdx := int(vm.readByte(frame))
	name := vm.constantName(vm.readConstant(frame, nameIdx))

	objVal := vm.peek(0)
	if !objVal.IsKind(KindInstance) {
		return vm.runtimeError("Only instances have properties.")
	}
	inst, _ := vm.heap.Instance(objVal.Handle)

	if fv, ok := inst.Fields[name]; ok {
		vm.pop()
		vm.push(fv)
		return nil
	}
	if methodHandle, ok := vm.bindMethod(inst.Class, name); ok {
		vm.pop()
		vm.push(ObjVal(vm.heap.NewBoundMethod(&BoundMethodObj{Receiver: objVal, Method: methodHandle})))
		return nil
	}
	if vm.Std {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	vm.pop()
	vm.push(NilVal())
	return nil
}

func (vm *VM) execSetProperty(frame *CallFrame) error {
	nameIdx := int(vm.readByte(frame))
	name := vm.constantName(vm.readConstant(frame, nameIdx))

	objVal := vm.peek(1)
	if !objVal.IsKind(KindInstance) {
		return vm.runtimeError("Only instances have fields.")
	}
	inst, _ := vm.heap.Instance(objVal.Handle)
	value := vm.peek(0)
	inst.Fields[name] = value

	v := vm.pop()
	vm.pop()
	vm.push(v)
	return nil
}

func (vm *VM) execGetSuper(frame *CallFrame) error {
	nameIdx := int(vm.readByte(frame))
	name := vm.constantName(vm.readConstant(frame, nameIdx))

	superclassVal := vm.pop()
	receiver := vm.pop()

	methodHandle, ok := vm.bindMethod(superclassVal.Handle, name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	vm.push(ObjVal(vm.heap.NewBoundMethod(&BoundMethodObj{Receiver: receiver, Method: methodHandle})))
	return nil
}

func (vm *VM) execClosure(frame *CallFrame) error {
	constIdx := int(vm.readByte(frame))
	fnVal := vm.readConstant(frame, constIdx)
	fn, ok := vm.heap.Function(fnVal.Handle)
	if !ok {
		return vm.runtimeError("Invalid function constant.")
	}

	closure := &ClosureObj{Function: fnVal.Handle, Upvalues: make([]Handle, fn.UpvalueCount)}
	enclosing, _ := vm.heap.Closure(frame.closure)

	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := vm.readByte(frame)
		index := int(vm.readByte(frame))
		if isLocal != 0 {
			closure.Upvalues[i] = vm.captureUpvalue(frame.base + index)
		} else {
			closure.Upvalues[i] = enclosing.Upvalues[index]
		}
	}
	vm.push(ObjVal(vm.heap.NewClosure(closure)))
	return nil
}

func (vm *VM) execInherit() error {
	superclassVal := vm.peek(1)
	if !superclassVal.IsKind(KindClass) {
		return vm.runtimeError("Superclass must be a class.")
	}
	subclassVal := vm.peek(0)
	superclass, _ := vm.heap.Class(superclassVal.Handle)
	subclass, _ := vm.heap.Class(subclassVal.Handle)
	for name, method := range superclass.Methods {
		subclass.Methods[name] = method
	}
	vm.pop()
	return nil
}

func (vm *VM) execMethod(name string) {
	closureVal := vm.pop()
	classVal := vm.peek(0)
	class, _ := vm.heap.Class(classVal.Handle)
	class.Methods[name] = closureVal.Handle
}
