package vm

// callValue dispatches a call to whatever kind of callee sits at the
// top of the argument window: a closure, a native, a class
// (instantiation), or a bound method.
func (vm *VM) callValue(callee Value, argCount int) error {
	if callee.Type != ValObj {
		return vm.runtimeError("Can only call functions and classes.")
	}
	switch callee.Handle.Kind {
	case KindClosure:
		return vm.callClosureHandle(callee.Handle, argCount)
	case KindNative:
		return vm.callNative(callee.Handle, argCount)
	case KindClass:
		return vm.instantiate(callee.Handle, argCount)
	case KindBoundMethod:
		bm, ok := vm.heap.BoundMethod(callee.Handle)
		if !ok {
			return vm.runtimeError("Can only call functions and classes.")
		}
		vm.stack[vm.sp-argCount-1] = bm.Receiver
		return vm.callClosureHandle(bm.Method, argCount)
	}
	return vm.runtimeError("Can only call functions and classes.")
}

func (vm *VM) callClosureHandle(handle Handle, argCount int) error {
	closure, ok := vm.heap.Closure(handle)
	if !ok {
		return vm.runtimeError("Attempt to call a collected closure.")
	}
	fn, ok := vm.heap.Function(closure.Function)
	if !ok {
		return vm.runtimeError("Attempt to call a collected function.")
	}
	if argCount != fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, argCount)
	}
	if vm.frameCount == maxFrames {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = CallFrame{closure: handle, chunk: fn.Chunk, ip: 0, base: vm.sp - argCount - 1}
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(handle Handle, argCount int) error {
	nat, ok := vm.heap.Native(handle)
	if !ok {
		return vm.runtimeError("Attempt to call a collected native function.")
	}
	if nat.Arity >= 0 && argCount != nat.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", nat.Arity, argCount)
	}
	args := make([]Value, argCount)
	copy(args, vm.stack[vm.sp-argCount:vm.sp])
	result, err := nat.Fn(vm, args)
	if err != nil {
		if re, ok := err.(*RuntimeError); ok {
			re.SessionID = vm.SessionID
			return re
		}
		return vm.runtimeError("%s", err.Error())
	}
	vm.sp -= argCount + 1
	vm.push(result)
	return nil
}

func (vm *VM) instantiate(classHandle Handle, argCount int) error {
	class, ok := vm.heap.Class(classHandle)
	if !ok {
		return vm.runtimeError("Attempt to instantiate a collected class.")
	}
	instHandle := vm.heap.NewInstance(&InstanceObj{Class: classHandle, Fields: make(map[string]Value)})
	vm.stack[vm.sp-argCount-1] = ObjVal(instHandle)

	if initHandle, ok := class.Methods["init"]; ok {
		return vm.callClosureHandle(initHandle, argCount)
	}
	if argCount != 0 {
		return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
	}
	return nil
}

// bindMethod looks up name in classHandle's (already-flattened by
// OP_INHERIT) method table.
func (vm *VM) bindMethod(classHandle Handle, name string) (Handle, bool) {
	class, ok := vm.heap.Class(classHandle)
	if !ok {
		return Handle{}, false
	}
	h, ok := class.Methods[name]
	return h, ok
}

// invoke fuses property lookup and call into one step for `recv.m(args)`
// call sites, skipping BoundMethod allocation when the target is a
// real method rather than a callable field.
func (vm *VM) invoke(name string, argCount int) error {
	receiver := vm.peek(argCount)
	if !receiver.IsKind(KindInstance) {
		return vm.runtimeError("Only instances have methods.")
	}
	inst, _ := vm.heap.Instance(receiver.Handle)
	if fv, ok := inst.Fields[name]; ok {
		vm.stack[vm.sp-argCount-1] = fv
		return vm.callValue(fv, argCount)
	}
	methodHandle, ok := vm.bindMethod(inst.Class, name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	return vm.callClosureHandle(methodHandle, argCount)
}

func (vm *VM) superInvoke(superclass Handle, name string, argCount int) error {
	methodHandle, ok := vm.bindMethod(superclass, name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	return vm.callClosureHandle(methodHandle, argCount)
}

// captureUpvalue returns the (possibly pre-existing) open upvalue for
// stackIndex, inserting a new one into the descending-by-slot open
// list if none exists yet.
func (vm *VM) captureUpvalue(stackIndex int) Handle {
	var prev Handle
	hasPrev := false
	cur, hasCur := vm.openUvHead, vm.hasOpenUv

	for hasCur {
		uv, _ := vm.heap.Upvalue(cur)
		if uv.Location == stackIndex {
			return cur
		}
		if uv.Location < stackIndex {
			break
		}
		prev, hasPrev = cur, true
		cur, hasCur = uv.Next, uv.HasNext
	}

	newUV := &UpvalueObj{Location: stackIndex}
	if hasCur {
		newUV.Next, newUV.HasNext = cur, true
	}
	handle := vm.heap.NewUpvalue(newUV)

	if hasPrev {
		prevObj, _ := vm.heap.Upvalue(prev)
		prevObj.Next, prevObj.HasNext = handle, true
	} else {
		vm.openUvHead, vm.hasOpenUv = handle, true
	}
	return handle
}

// closeUpvalues closes every open upvalue pointing at or above
// lastStackIndex, copying its value out of the stack slot before that
// slot is reused or popped.
func (vm *VM) closeUpvalues(lastStackIndex int) {
	for vm.hasOpenUv {
		uv, ok := vm.heap.Upvalue(vm.openUvHead)
		if !ok || uv.Location < lastStackIndex {
			break
		}
		uv.Closed = vm.stack[uv.Location]
		uv.Location = -1
		vm.openUvHead, vm.hasOpenUv = uv.Next, uv.HasNext
	}
}
