package federation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/wundergraph/pgfederation/pkg/catalog"
)

// coerce converts a key value sent by the gateway to the Go type matching the column.
func coerce(inflector catalog.Inflector, attr catalog.Attribute, value any) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: %s is null", ErrInvalidRepresentation, attr.Name)
	}
	var (
		out any
		err error
	)
	switch inflector.ScalarType(attr) {
	case "Int", "BigInt":
		out, err = toInt64(value)
	case "Float":
		out, err = cast.ToFloat64E(value)
	case "Boolean":
		out, err = cast.ToBoolE(value)
	case "UUID":
		var s string
		if s, err = cast.ToStringE(value); err == nil {
			out, err = uuid.Parse(s)
		}
	case "JSON":
		out = value
	default:
		out, err = cast.ToStringE(value)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRepresentation, attr.Name, err)
	}
	return out, nil
}

// toInt64 accepts integral values only. Strings must be canonical base 10.
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return cast.ToInt64E(v)
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", v)
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case json.Number:
		return parseInt64(string(v))
	case string:
		return parseInt64(v)
	default:
		return 0, fmt.Errorf("%v of type %T is not an integer", value, value)
	}
}

func floatToInt64(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Trunc(v) != v {
		return 0, fmt.Errorf("%v is not an integer", v)
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", v)
	}
	return int64(v), nil
}

func parseInt64(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if strconv.FormatInt(n, 10) != s {
		return 0, fmt.Errorf("%q is not a canonical integer", s)
	}
	return n, nil
}
