package interpreter

import (
	"strconv"
	"strings"

	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

// FormatValue renders a value the way print writes it.
func FormatValue(val runtime.Value) string {
	switch v := val.(type) {
	case nil, runtime.NullValue:
		return "null"
	case runtime.BoolValue:
		return strconv.FormatBool(v.Val)
	case runtime.IntegerValue:
		return strconv.FormatInt(v.Val, 10)
	case runtime.StringValue:
		return v.Val
	case *runtime.FunctionValue:
		return "<function (" + strings.Join(v.Params(), " ") + ")>"
	case runtime.NativeFunctionValue:
		return "<native " + v.Name + ">"
	case *runtime.LoopStackValue:
		return "<loops " + strconv.Itoa(v.Len()) + ">"
	default:
		return "<" + val.Kind().String() + ">"
	}
}

// KindName names the kind of val for error messages, including absent.
func KindName(val runtime.Value) string {
	if val == nil {
		return "absent"
	}
	return val.Kind().String()
}
