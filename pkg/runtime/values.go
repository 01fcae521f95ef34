package runtime

import (
	"fmt"

	"github.com/Code4Community/c4c-lib/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindString
	KindFunction
	KindNativeFunction
	KindLoopStack
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindNativeFunction:
		return "native_function"
	case KindLoopStack:
		return "loop_stack"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values. A nil Value means
// "absent", the result of an empty block.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NullValue struct{}

func (NullValue) Kind() Kind { return KindNull }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

type IntegerValue struct {
	Val int64
}

func (v IntegerValue) Kind() Kind { return KindInteger }

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

// Null is the shared null value.
var Null Value = NullValue{}

// IsTruthy reports whether v selects the then-branch of an if. Only null,
// false and absent are falsy.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case NullValue:
		return false
	case BoolValue:
		return val.Val
	default:
		return true
	}
}

// OrNull coerces an absent value to Null.
func OrNull(v Value) Value {
	if v == nil {
		return Null
	}
	return v
}

// Equal compares scalar values by content and callables by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case NullValue:
		_, ok := b.(NullValue)
		return ok
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.Val == bv.Val
	case IntegerValue:
		bv, ok := b.(IntegerValue)
		return ok && av.Val == bv.Val
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av.Val == bv.Val
	case *FunctionValue:
		bv, ok := b.(*FunctionValue)
		return ok && av == bv
	case NativeFunctionValue:
		bv, ok := b.(NativeFunctionValue)
		return ok && av.Name == bv.Name
	default:
		return false
	}
}

//-----------------------------------------------------------------------------
// Functions & closures
//-----------------------------------------------------------------------------

// FunctionValue is a user closure: the function literal plus the
// environment it was created in.
type FunctionValue struct {
	Declaration *ast.Function
	Closure     *Environment
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

// Params returns the parameter names in positional order.
func (v *FunctionValue) Params() []string {
	if v.Declaration == nil {
		return nil
	}
	return v.Declaration.ParamNames()
}

// Arity is the number of declared parameters.
func (v *FunctionValue) Arity() int {
	return len(v.Params())
}

// NativeCallContext provides hooks for native functions.
type NativeCallContext struct {
	Env *Environment
}

type NativeFunc func(*NativeCallContext, []Value) (Value, error)

// NativeFunctionValue is a built-in primitive. Pure natives have no side
// effects and may be invoked by the checker.
type NativeFunctionValue struct {
	Name  string
	Arity int
	Pure  bool
	Impl  NativeFunc
}

func (v NativeFunctionValue) Kind() Kind { return KindNativeFunction }

// IsCallable reports whether v can be invoked.
func IsCallable(v Value) bool {
	switch v.(type) {
	case *FunctionValue, NativeFunctionValue:
		return true
	default:
		return false
	}
}

//-----------------------------------------------------------------------------
// Loop frames
//-----------------------------------------------------------------------------

// LoopFrame is the persisted state of one active times loop.
type LoopFrame struct {
	Iteration int64
	Bound     int64
	Forever   bool
}

// Done reports whether the loop has run its full count.
func (f LoopFrame) Done() bool {
	return !f.Forever && f.Iteration >= f.Bound
}

// LoopStackValue holds one frame per active times loop. It lives under a
// reserved environment binding between step calls. Each step pops frames
// outermost first while descending and pushes them back innermost first,
// so at rest the outermost loop's frame is on top.
type LoopStackValue struct {
	Frames []LoopFrame
}

func (v *LoopStackValue) Kind() Kind { return KindLoopStack }

func (v *LoopStackValue) Push(frame LoopFrame) {
	v.Frames = append(v.Frames, frame)
}

// Pop removes and returns the top frame. ok is false when empty.
func (v *LoopStackValue) Pop() (frame LoopFrame, ok bool) {
	n := len(v.Frames)
	if n == 0 {
		return LoopFrame{}, false
	}
	frame = v.Frames[n-1]
	v.Frames = v.Frames[:n-1]
	return frame, true
}

func (v *LoopStackValue) Len() int {
	return len(v.Frames)
}
