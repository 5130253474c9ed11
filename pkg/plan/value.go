package plan

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// MarshalJSON implements json.Marshaler for Value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Flt)
	case KindString:
		return json.Marshal(v.Str)
	case KindList:
		return json.Marshal(v.List)
	case KindMap:
		return json.Marshal(v.Map)
	default:
		return nil, errors.Errorf("value: unknown kind %d", v.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Value, decoding the
// planner's dynamic string->JSON args map into our tagged-value type.
func (v *Value) UnmarshalJSON(data []byte) error {
	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return errors.Wrap(err, "value: malformed JSON")
	}
	*v = fromInterface(probe)
	return nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Value{Kind: KindNull}
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case float64:
		if t == float64(int64(t)) {
			return Value{Kind: KindInt, Int: int64(t)}
		}
		return Value{Kind: KindFloat, Flt: t}
	case string:
		return Value{Kind: KindString, Str: t}
	case []interface{}:
		list := make([]Value, len(t))
		for i, e := range t {
			list[i] = fromInterface(e)
		}
		return Value{Kind: KindList, List: list}
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = fromInterface(e)
		}
		return Value{Kind: KindMap, Map: m}
	default:
		return Value{Kind: KindNull}
	}
}

// ToInterface converts a Value back to a plain interface{}, the form the
// parameter mapper and modules operate on via reflection.
func (v Value) ToInterface() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Flt
	case KindString:
		return v.Str
	case KindList:
		out := make([]interface{}, len(v.List))
		for i, e := range v.List {
			out[i] = e.ToInterface()
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, len(v.Map))
		for k, e := range v.Map {
			out[k] = e.ToInterface()
		}
		return out
	}
	return nil
}
