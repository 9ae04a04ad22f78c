package vm

// Opcode identifies a single bytecode instruction. Each is one byte;
// some are followed by one, two, or three operand bytes as noted.
type Opcode byte

const (
	OP_CONSTANT      Opcode = iota // 1-byte operand: constant pool index
	OP_CONSTANT_LONG               // 3-byte operand: constant pool index
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_GET_LOCAL     // 1-byte operand: stack slot
	OP_GET_LOCAL_LONG
	OP_SET_LOCAL
	OP_SET_LOCAL_LONG
	OP_DEFINE_GLOBAL      // 1-byte operand: constant pool index of name
	OP_DEFINE_GLOBAL_LONG
	OP_DEFINE_CONST_GLOBAL
	OP_DEFINE_CONST_GLOBAL_LONG
	OP_GET_GLOBAL
	OP_GET_GLOBAL_LONG
	OP_SET_GLOBAL
	OP_SET_GLOBAL_LONG
	OP_GET_UPVALUE // 1-byte operand: upvalue index
	OP_SET_UPVALUE
	OP_GET_PROPERTY // 1-byte operand: constant pool index of name
	OP_SET_PROPERTY
	OP_GET_SUPER
	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE
	OP_PRINT
	OP_JUMP          // 2-byte operand: forward offset
	OP_JUMP_IF_FALSE // 2-byte operand: forward offset
	OP_LOOP          // 2-byte operand: backward offset
	OP_CALL          // 1-byte operand: argument count
	OP_INVOKE        // 1-byte constant index + 1-byte arg count
	OP_SUPER_INVOKE  // 1-byte constant index + 1-byte arg count
	OP_CLOSURE       // 1-byte operand: constant pool index of function, then per-upvalue (isLocal byte, index byte) pairs
	OP_CLOSE_UPVALUE
	OP_RETURN
	OP_CLASS // 1-byte operand: constant pool index of name
	OP_INHERIT
	OP_METHOD // 1-byte operand: constant pool index of name
	OP_BREAK  // 2-byte operand: forward offset, same encoding as OP_JUMP
	OP_HALT
)

var opcodeNames = map[Opcode]string{
	OP_CONSTANT:                 "OP_CONSTANT",
	OP_CONSTANT_LONG:            "OP_CONSTANT_LONG",
	OP_NIL:                      "OP_NIL",
	OP_TRUE:                     "OP_TRUE",
	OP_FALSE:                    "OP_FALSE",
	OP_POP:                      "OP_POP",
	OP_GET_LOCAL:                "OP_GET_LOCAL",
	OP_GET_LOCAL_LONG:           "OP_GET_LOCAL_LONG",
	OP_SET_LOCAL:                "OP_SET_LOCAL",
	OP_SET_LOCAL_LONG:           "OP_SET_LOCAL_LONG",
	OP_DEFINE_GLOBAL:            "OP_DEFINE_GLOBAL",
	OP_DEFINE_GLOBAL_LONG:       "OP_DEFINE_GLOBAL_LONG",
	OP_DEFINE_CONST_GLOBAL:      "OP_DEFINE_CONST_GLOBAL",
	OP_DEFINE_CONST_GLOBAL_LONG: "OP_DEFINE_CONST_GLOBAL_LONG",
	OP_GET_GLOBAL:               "OP_GET_GLOBAL",
	OP_GET_GLOBAL_LONG:          "OP_GET_GLOBAL_LONG",
	OP_SET_GLOBAL:               "OP_SET_GLOBAL",
	OP_SET_GLOBAL_LONG:          "OP_SET_GLOBAL_LONG",
	OP_GET_UPVALUE:              "OP_GET_UPVALUE",
	OP_SET_UPVALUE:              "OP_SET_UPVALUE",
	OP_GET_PROPERTY:             "OP_GET_PROPERTY",
	OP_SET_PROPERTY:             "OP_SET_PROPERTY",
	OP_GET_SUPER:                "OP_GET_SUPER",
	OP_EQUAL:                    "OP_EQUAL",
	OP_GREATER:                  "OP_GREATER",
	OP_LESS:                     "OP_LESS",
	OP_ADD:                      "OP_ADD",
	OP_SUBTRACT:                 "OP_SUBTRACT",
	OP_MULTIPLY:                 "OP_MULTIPLY",
	OP_DIVIDE:                   "OP_DIVIDE",
	OP_NOT:                      "OP_NOT",
	OP_NEGATE:                   "OP_NEGATE",
	OP_PRINT:                    "OP_PRINT",
	OP_JUMP:                     "OP_JUMP",
	OP_JUMP_IF_FALSE:            "OP_JUMP_IF_FALSE",
	OP_LOOP:                     "OP_LOOP",
	OP_CALL:                     "OP_CALL",
	OP_INVOKE:                   "OP_INVOKE",
	OP_SUPER_INVOKE:             "OP_SUPER_INVOKE",
	OP_CLOSURE:                  "OP_CLOSURE",
	OP_CLOSE_UPVALUE:            "OP_CLOSE_UPVALUE",
	OP_RETURN:                   "OP_RETURN",
	OP_CLASS:                    "OP_CLASS",
	OP_INHERIT:                  "OP_INHERIT",
	OP_METHOD:                   "OP_METHOD",
	OP_BREAK:                    "OP_BREAK",
	OP_HALT:                     "OP_HALT",
}

func (op Opcode) String() string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "OP_UNKNOWN"
}
