package vm

import (
	"sync"

	"github.com/chazu/avm1/pkg/bytecode"
)

// ActionHandler executes one opcode against a thread.
type ActionHandler func(t *Thread)

// Action is one dispatch table entry.
type Action struct {
	Op        bytecode.Opcode
	Name      string
	Arg       bytecode.ArgFormat
	MinStack  int
	Handler   ActionHandler
	Supported bool
}

// ActionTable maps every opcode byte to its entry. It is immutable after
// construction and safe to share.
type ActionTable struct {
	actions [256]Action
}

// Lookup returns the entry for op.
func (tbl *ActionTable) Lookup(op bytecode.Opcode) *Action {
	return &tbl.actions[op]
}

var (
	defaultTableOnce sync.Once
	defaultTable     *ActionTable
)

// DefaultActionTable returns the process-wide table, building it on first
// use.
func DefaultActionTable() *ActionTable {
	defaultTableOnce.Do(func() {
		defaultTable = NewActionTable()
	})
	return defaultTable
}

// NewActionTable builds a fresh table. Opcodes without a handler dispatch to
// a no-op that reports them as unsupported.
func NewActionTable() *ActionTable {
	tbl := &ActionTable{}
	handlers := handlerMap()
	for i := range tbl.actions {
		op := bytecode.Opcode(i)
		info := bytecode.GetOpcodeInfo(op)
		a := Action{Op: op, Name: info.Name, Arg: info.Arg, MinStack: info.MinStack, Handler: actionUnsupported}
		if h, ok := handlers[op]; ok {
			a.Handler = h
			a.Supported = true
		}
		tbl.actions[i] = a
	}
	return tbl
}

func handlerMap() map[bytecode.Opcode]ActionHandler {
	return map[bytecode.Opcode]ActionHandler{
		bytecode.OpEnd:           actionEnd,
		bytecode.OpNextFrame:     actionNextFrame,
		bytecode.OpPrevFrame:     actionPrevFrame,
		bytecode.OpPlay:          actionPlay,
		bytecode.OpStop:          actionStop,
		bytecode.OpToggleQuality: actionToggleQuality,
		bytecode.OpStopSounds:    actionStopSounds,

		bytecode.OpAdd:             actionAdd,
		bytecode.OpSubtract:        actionSubtract,
		bytecode.OpMultiply:        actionMultiply,
		bytecode.OpDivide:          actionDivide,
		bytecode.OpEquals:          actionEquals,
		bytecode.OpLess:            actionLess,
		bytecode.OpAnd:             actionAnd,
		bytecode.OpOr:              actionOr,
		bytecode.OpNot:             actionNot,
		bytecode.OpStringEquals:    actionStringEquals,
		bytecode.OpStringLength:    actionStringLength,
		bytecode.OpStringExtract:   actionStringExtract,
		bytecode.OpPop:             actionPop,
		bytecode.OpToInteger:       actionToInteger,
		bytecode.OpGetVariable:     actionGetVariable,
		bytecode.OpSetVariable:     actionSetVariable,
		bytecode.OpSetTarget2:      actionSetTarget2,
		bytecode.OpStringAdd:       actionStringAdd,
		bytecode.OpGetProperty:     actionGetProperty,
		bytecode.OpSetProperty:     actionSetProperty,
		bytecode.OpCloneSprite:     actionCloneSprite,
		bytecode.OpRemoveSprite:    actionRemoveSprite,
		bytecode.OpTrace:           actionTrace,
		bytecode.OpStartDrag:       actionStartDrag,
		bytecode.OpEndDrag:         actionEndDrag,
		bytecode.OpStringLess:      actionStringLess,
		bytecode.OpThrow:           actionThrow,
		bytecode.OpCastOp:          actionCastOp,
		bytecode.OpImplementsOp:    actionImplementsOp,
		bytecode.OpFSCommand2:      actionFSCommand2,
		bytecode.OpRandomNumber:    actionRandomNumber,
		bytecode.OpMBStringLength:  actionMBStringLength,
		bytecode.OpCharToAscii:     actionCharToAscii,
		bytecode.OpAsciiToChar:     actionAsciiToChar,
		bytecode.OpGetTime:         actionGetTime,
		bytecode.OpMBStringExtract: actionMBStringExtract,
		bytecode.OpMBCharToAscii:   actionMBCharToAscii,
		bytecode.OpMBAsciiToChar:   actionMBAsciiToChar,

		bytecode.OpDelete:        actionDelete,
		bytecode.OpDelete2:       actionDelete2,
		bytecode.OpDefineLocal:   actionDefineLocal,
		bytecode.OpCallFunction:  actionCallFunction,
		bytecode.OpReturn:        actionReturn,
		bytecode.OpModulo:        actionModulo,
		bytecode.OpNewObject:     actionNewObject,
		bytecode.OpDefineLocal2:  actionDefineLocal2,
		bytecode.OpInitArray:     actionInitArray,
		bytecode.OpInitObject:    actionInitObject,
		bytecode.OpTypeOf:        actionTypeOf,
		bytecode.OpTargetPath:    actionTargetPath,
		bytecode.OpEnumerate:     actionEnumerate,
		bytecode.OpAdd2:          actionAdd2,
		bytecode.OpLess2:         actionLess2,
		bytecode.OpEquals2:       actionEquals2,
		bytecode.OpToNumber:      actionToNumber,
		bytecode.OpToString:      actionToString,
		bytecode.OpPushDuplicate: actionPushDuplicate,
		bytecode.OpStackSwap:     actionStackSwap,
		bytecode.OpGetMember:     actionGetMember,
		bytecode.OpSetMember:     actionSetMember,
		bytecode.OpIncrement:     actionIncrement,
		bytecode.OpDecrement:     actionDecrement,
		bytecode.OpCallMethod:    actionCallMethod,
		bytecode.OpNewMethod:     actionNewMethod,
		bytecode.OpInstanceOf:    actionInstanceOf,
		bytecode.OpEnumerate2:    actionEnumerate2,
		bytecode.OpBitAnd:        actionBitAnd,
		bytecode.OpBitOr:         actionBitOr,
		bytecode.OpBitXor:        actionBitXor,
		bytecode.OpBitLShift:     actionBitLShift,
		bytecode.OpBitRShift:     actionBitRShift,
		bytecode.OpBitURShift:    actionBitURShift,
		bytecode.OpStrictEquals:  actionStrictEquals,
		bytecode.OpGreater:       actionGreater,
		bytecode.OpStringGreater: actionStringGreater,
		bytecode.OpExtends:       actionExtends,

		bytecode.OpGotoFrame:       actionGotoFrame,
		bytecode.OpGetURL:          actionGetURL,
		bytecode.OpStoreRegister:   actionStoreRegister,
		bytecode.OpConstantPool:    actionConstantPool,
		bytecode.OpWaitForFrame:    actionWaitForFrame,
		bytecode.OpSetTarget:       actionSetTarget,
		bytecode.OpGotoLabel:       actionGotoLabel,
		bytecode.OpWaitForFrame2:   actionWaitForFrame2,
		bytecode.OpDefineFunction2: actionDefineFunction,
		bytecode.OpTry:             actionTry,
		bytecode.OpWith:            actionWith,
		bytecode.OpPush:            actionPush,
		bytecode.OpJump:            actionJump,
		bytecode.OpGetURL2:         actionGetURL2,
		bytecode.OpDefineFunction:  actionDefineFunction,
		bytecode.OpIf:              actionIf,
		bytecode.OpCall:            actionCall,
		bytecode.OpGotoFrame2:      actionGotoFrame2,
	}
}

// actionUnsupported is the handler for opcodes with no meaning. It has no
// side effect beyond a once-per-opcode diagnostic.
func actionUnsupported(t *Thread) {
	t.in.reportUnsupported(t.diag(DiagUnsupported, "unsupported action"))
}
