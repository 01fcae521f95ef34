package runtime

import (
	"fmt"
	"math"
)

// FromGo converts a decoded configuration scalar (as produced by yaml or
// json decoders) into a runtime value.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null, nil
	case bool:
		return BoolValue{Val: val}, nil
	case string:
		return StringValue{Val: val}, nil
	case int:
		return IntegerValue{Val: int64(val)}, nil
	case int64:
		return IntegerValue{Val: val}, nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of range", val)
		}
		return IntegerValue{Val: int64(val)}, nil
	case float64:
		if val != math.Trunc(val) || val > math.MaxInt64 || val < math.MinInt64 {
			return nil, fmt.Errorf("number %v is not an integer", val)
		}
		return IntegerValue{Val: int64(val)}, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
}
