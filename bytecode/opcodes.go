package bytecode

// Op is a JVM opcode.
type Op uint8

// JVM opcodes, see JVMS §6.5.
const (
	Nop             Op = 0x00
	AconstNull      Op = 0x01
	IconstM1        Op = 0x02
	Iconst0         Op = 0x03
	Iconst1         Op = 0x04
	Iconst2         Op = 0x05
	Iconst3         Op = 0x06
	Iconst4         Op = 0x07
	Iconst5         Op = 0x08
	Lconst0         Op = 0x09
	Lconst1         Op = 0x0a
	Fconst0         Op = 0x0b
	Fconst1         Op = 0x0c
	Fconst2         Op = 0x0d
	Dconst0         Op = 0x0e
	Dconst1         Op = 0x0f
	Bipush          Op = 0x10
	Sipush          Op = 0x11
	Ldc             Op = 0x12
	LdcW            Op = 0x13
	Ldc2W           Op = 0x14
	Iload           Op = 0x15
	Lload           Op = 0x16
	Fload           Op = 0x17
	Dload           Op = 0x18
	Aload           Op = 0x19
	Iload0          Op = 0x1a
	Iload1          Op = 0x1b
	Iload2          Op = 0x1c
	Iload3          Op = 0x1d
	Lload0          Op = 0x1e
	Lload1          Op = 0x1f
	Lload2          Op = 0x20
	Lload3          Op = 0x21
	Fload0          Op = 0x22
	Fload1          Op = 0x23
	Fload2          Op = 0x24
	Fload3          Op = 0x25
	Dload0          Op = 0x26
	Dload1          Op = 0x27
	Dload2          Op = 0x28
	Dload3          Op = 0x29
	Aload0          Op = 0x2a
	Aload1          Op = 0x2b
	Aload2          Op = 0x2c
	Aload3          Op = 0x2d
	Iaload          Op = 0x2e
	Laload          Op = 0x2f
	Faload          Op = 0x30
	Daload          Op = 0x31
	Aaload          Op = 0x32
	Baload          Op = 0x33
	Caload          Op = 0x34
	Saload          Op = 0x35
	Istore          Op = 0x36
	Lstore          Op = 0x37
	Fstore          Op = 0x38
	Dstore          Op = 0x39
	Astore          Op = 0x3a
	Istore0         Op = 0x3b
	Istore1         Op = 0x3c
	Istore2         Op = 0x3d
	Istore3         Op = 0x3e
	Lstore0         Op = 0x3f
	Lstore1         Op = 0x40
	Lstore2         Op = 0x41
	Lstore3         Op = 0x42
	Fstore0         Op = 0x43
	Fstore1         Op = 0x44
	Fstore2         Op = 0x45
	Fstore3         Op = 0x46
	Dstore0         Op = 0x47
	Dstore1         Op = 0x48
	Dstore2         Op = 0x49
	Dstore3         Op = 0x4a
	Astore0         Op = 0x4b
	Astore1         Op = 0x4c
	Astore2         Op = 0x4d
	Astore3         Op = 0x4e
	Iastore         Op = 0x4f
	Lastore         Op = 0x50
	Fastore         Op = 0x51
	Dastore         Op = 0x52
	Aastore         Op = 0x53
	Bastore         Op = 0x54
	Castore         Op = 0x55
	Sastore         Op = 0x56
	Pop             Op = 0x57
	Pop2            Op = 0x58
	Dup             Op = 0x59
	DupX1           Op = 0x5a
	DupX2           Op = 0x5b
	Dup2            Op = 0x5c
	Dup2X1          Op = 0x5d
	Dup2X2          Op = 0x5e
	Swap            Op = 0x5f
	Iadd            Op = 0x60
	Ladd            Op = 0x61
	Fadd            Op = 0x62
	Dadd            Op = 0x63
	Isub            Op = 0x64
	Lsub            Op = 0x65
	Fsub            Op = 0x66
	Dsub            Op = 0x67
	Imul            Op = 0x68
	Lmul            Op = 0x69
	Fmul            Op = 0x6a
	Dmul            Op = 0x6b
	Idiv            Op = 0x6c
	Ldiv            Op = 0x6d
	Fdiv            Op = 0x6e
	Ddiv            Op = 0x6f
	Irem            Op = 0x70
	Lrem            Op = 0x71
	Frem            Op = 0x72
	Drem            Op = 0x73
	Ineg            Op = 0x74
	Lneg            Op = 0x75
	Fneg            Op = 0x76
	Dneg            Op = 0x77
	Ishl            Op = 0x78
	Lshl            Op = 0x79
	Ishr            Op = 0x7a
	Lshr            Op = 0x7b
	Iushr           Op = 0x7c
	Lushr           Op = 0x7d
	Iand            Op = 0x7e
	Land            Op = 0x7f
	Ior             Op = 0x80
	Lor             Op = 0x81
	Ixor            Op = 0x82
	Lxor            Op = 0x83
	Iinc            Op = 0x84
	I2l             Op = 0x85
	I2f             Op = 0x86
	I2d             Op = 0x87
	L2i             Op = 0x88
	L2f             Op = 0x89
	L2d             Op = 0x8a
	F2i             Op = 0x8b
	F2l             Op = 0x8c
	F2d             Op = 0x8d
	D2i             Op = 0x8e
	D2l             Op = 0x8f
	D2f             Op = 0x90
	I2b             Op = 0x91
	I2c             Op = 0x92
	I2s             Op = 0x93
	Lcmp            Op = 0x94
	Fcmpl           Op = 0x95
	Fcmpg           Op = 0x96
	Dcmpl           Op = 0x97
	Dcmpg           Op = 0x98
	Ifeq            Op = 0x99
	Ifne            Op = 0x9a
	Iflt            Op = 0x9b
	Ifge            Op = 0x9c
	Ifgt            Op = 0x9d
	Ifle            Op = 0x9e
	IfIcmpeq        Op = 0x9f
	IfIcmpne        Op = 0xa0
	IfIcmplt        Op = 0xa1
	IfIcmpge        Op = 0xa2
	IfIcmpgt        Op = 0xa3
	IfIcmple        Op = 0xa4
	IfAcmpeq        Op = 0xa5
	IfAcmpne        Op = 0xa6
	Goto            Op = 0xa7
	Jsr             Op = 0xa8
	Ret             Op = 0xa9
	Tableswitch     Op = 0xaa
	Lookupswitch    Op = 0xab
	Ireturn         Op = 0xac
	Lreturn         Op = 0xad
	Freturn         Op = 0xae
	Dreturn         Op = 0xaf
	Areturn         Op = 0xb0
	Return          Op = 0xb1
	Getstatic       Op = 0xb2
	Putstatic       Op = 0xb3
	Getfield        Op = 0xb4
	Putfield        Op = 0xb5
	Invokevirtual   Op = 0xb6
	Invokespecial   Op = 0xb7
	Invokestatic    Op = 0xb8
	Invokeinterface Op = 0xb9
	Invokedynamic   Op = 0xba
	New             Op = 0xbb
	Newarray        Op = 0xbc
	Anewarray       Op = 0xbd
	Arraylength     Op = 0xbe
	Athrow          Op = 0xbf
	Checkcast       Op = 0xc0
	Instanceof      Op = 0xc1
	Monitorenter    Op = 0xc2
	Monitorexit     Op = 0xc3
	Wide            Op = 0xc4
	Multianewarray  Op = 0xc5
	Ifnull          Op = 0xc6
	Ifnonnull       Op = 0xc7
	GotoW           Op = 0xc8
	JsrW            Op = 0xc9
)

var opNames = [...]string{
	Nop:             "nop",
	AconstNull:      "aconst_null",
	IconstM1:        "iconst_m1",
	Iconst0:         "iconst_0",
	Iconst1:         "iconst_1",
	Iconst2:         "iconst_2",
	Iconst3:         "iconst_3",
	Iconst4:         "iconst_4",
	Iconst5:         "iconst_5",
	Lconst0:         "lconst_0",
	Lconst1:         "lconst_1",
	Fconst0:         "fconst_0",
	Fconst1:         "fconst_1",
	Fconst2:         "fconst_2",
	Dconst0:         "dconst_0",
	Dconst1:         "dconst_1",
	Bipush:          "bipush",
	Sipush:          "sipush",
	Ldc:             "ldc",
	LdcW:            "ldc_w",
	Ldc2W:           "ldc2_w",
	Iload:           "iload",
	Lload:           "lload",
	Fload:           "fload",
	Dload:           "dload",
	Aload:           "aload",
	Iload0:          "iload_0",
	Iload1:          "iload_1",
	Iload2:          "iload_2",
	Iload3:          "iload_3",
	Lload0:          "lload_0",
	Lload1:          "lload_1",
	Lload2:          "lload_2",
	Lload3:          "lload_3",
	Fload0:          "fload_0",
	Fload1:          "fload_1",
	Fload2:          "fload_2",
	Fload3:          "fload_3",
	Dload0:          "dload_0",
	Dload1:          "dload_1",
	Dload2:          "dload_2",
	Dload3:          "dload_3",
	Aload0:          "aload_0",
	Aload1:          "aload_1",
	Aload2:          "aload_2",
	Aload3:          "aload_3",
	Iaload:          "iaload",
	Laload:          "laload",
	Faload:          "faload",
	Daload:          "daload",
	Aaload:          "aaload",
	Baload:          "baload",
	Caload:          "caload",
	Saload:          "saload",
	Istore:          "istore",
	Lstore:          "lstore",
	Fstore:          "fstore",
	Dstore:          "dstore",
	Astore:          "astore",
	Istore0:         "istore_0",
	Istore1:         "istore_1",
	Istore2:         "istore_2",
	Istore3:         "istore_3",
	Lstore0:         "lstore_0",
	Lstore1:         "lstore_1",
	Lstore2:         "lstore_2",
	Lstore3:         "lstore_3",
	Fstore0:         "fstore_0",
	Fstore1:         "fstore_1",
	Fstore2:         "fstore_2",
	Fstore3:         "fstore_3",
	Dstore0:         "dstore_0",
	Dstore1:         "dstore_1",
	Dstore2:         "dstore_2",
	Dstore3:         "dstore_3",
	Astore0:         "astore_0",
	Astore1:         "astore_1",
	Astore2:         "astore_2",
	Astore3:         "astore_3",
	Iastore:         "iastore",
	Lastore:         "lastore",
	Fastore:         "fastore",
	Dastore:         "dastore",
	Aastore:         "aastore",
	Bastore:         "bastore",
	Castore:         "castore",
	Sastore:         "sastore",
	Pop:             "pop",
	Pop2:            "pop2",
	Dup:             "dup",
	DupX1:           "dup_x1",
	DupX2:           "dup_x2",
	Dup2:            "dup2",
	Dup2X1:          "dup2_x1",
	Dup2X2:          "dup2_x2",
	Swap:            "swap",
	Iadd:            "iadd",
	Ladd:            "ladd",
	Fadd:            "fadd",
	Dadd:            "dadd",
	Isub:            "isub",
	Lsub:            "lsub",
	Fsub:            "fsub",
	Dsub:            "dsub",
	Imul:            "imul",
	Lmul:            "lmul",
	Fmul:            "fmul",
	Dmul:            "dmul",
	Idiv:            "idiv",
	Ldiv:            "ldiv",
	Fdiv:            "fdiv",
	Ddiv:            "ddiv",
	Irem:            "irem",
	Lrem:            "lrem",
	Frem:            "frem",
	Drem:            "drem",
	Ineg:            "ineg",
	Lneg:            "lneg",
	Fneg:            "fneg",
	Dneg:            "dneg",
	Ishl:            "ishl",
	Lshl:            "lshl",
	Ishr:            "ishr",
	Lshr:            "lshr",
	Iushr:           "iushr",
	Lushr:           "lushr",
	Iand:            "iand",
	Land:            "land",
	Ior:             "ior",
	Lor:             "lor",
	Ixor:            "ixor",
	Lxor:            "lxor",
	Iinc:            "iinc",
	I2l:             "i2l",
	I2f:             "i2f",
	I2d:             "i2d",
	L2i:             "l2i",
	L2f:             "l2f",
	L2d:             "l2d",
	F2i:             "f2i",
	F2l:             "f2l",
	F2d:             "f2d",
	D2i:             "d2i",
	D2l:             "d2l",
	D2f:             "d2f",
	I2b:             "i2b",
	I2c:             "i2c",
	I2s:             "i2s",
	Lcmp:            "lcmp",
	Fcmpl:           "fcmpl",
	Fcmpg:           "fcmpg",
	Dcmpl:           "dcmpl",
	Dcmpg:           "dcmpg",
	Ifeq:            "ifeq",
	Ifne:            "ifne",
	Iflt:            "iflt",
	Ifge:            "ifge",
	Ifgt:            "ifgt",
	Ifle:            "ifle",
	IfIcmpeq:        "if_icmpeq",
	IfIcmpne:        "if_icmpne",
	IfIcmplt:        "if_icmplt",
	IfIcmpge:        "if_icmpge",
	IfIcmpgt:        "if_icmpgt",
	IfIcmple:        "if_icmple",
	IfAcmpeq:        "if_acmpeq",
	IfAcmpne:        "if_acmpne",
	Goto:            "goto",
	Jsr:             "jsr",
	Ret:             "ret",
	Tableswitch:     "tableswitch",
	Lookupswitch:    "lookupswitch",
	Ireturn:         "ireturn",
	Lreturn:         "lreturn",
	Freturn:         "freturn",
	Dreturn:         "dreturn",
	Areturn:         "areturn",
	Return:          "return",
	Getstatic:       "getstatic",
	Putstatic:       "putstatic",
	Getfield:        "getfield",
	Putfield:        "putfield",
	Invokevirtual:   "invokevirtual",
	Invokespecial:   "invokespecial",
	Invokestatic:    "invokestatic",
	Invokeinterface: "invokeinterface",
	Invokedynamic:   "invokedynamic",
	New:             "new",
	Newarray:        "newarray",
	Anewarray:       "anewarray",
	Arraylength:     "arraylength",
	Athrow:          "athrow",
	Checkcast:       "checkcast",
	Instanceof:      "instanceof",
	Monitorenter:    "monitorenter",
	Monitorexit:     "monitorexit",
	Wide:            "wide",
	Multianewarray:  "multianewarray",
	Ifnull:          "ifnull",
	Ifnonnull:       "ifnonnull",
	GotoW:           "goto_w",
	JsrW:            "jsr_w",
}
