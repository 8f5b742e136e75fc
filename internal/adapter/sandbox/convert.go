package sandbox

import (
	"fmt"

	"go.starlark.net/starlark"

	"gitlab.com/offlinejudge.net/internal/domain"
)

const maxValueDepth = 1000

func toStarlark(v domain.Value) starlark.Value {
	switch v.Kind() {
	case domain.KindBool:
		return starlark.Bool(v.BoolVal())
	case domain.KindInt:
		return starlark.MakeInt64(v.IntVal())
	case domain.KindFloat:
		return starlark.Float(v.FloatVal())
	case domain.KindString:
		return starlark.String(v.StrVal())
	case domain.KindList:
		items := v.Items()
		elems := make([]starlark.Value, len(items))
		for i, item := range items {
			elems[i] = toStarlark(item)
		}
		return starlark.NewList(elems)
	case domain.KindMap:
		keys := v.Keys()
		dict := starlark.NewDict(len(keys))
		for _, k := range keys {
			item, _ := v.Get(k)
			// string keys are always hashable
			_ = dict.SetKey(starlark.String(k), toStarlark(item))
		}
		return dict
	default:
		return starlark.None
	}
}

// fromStarlark converts a candidate value into the judge's value model.
// Sets become lists in iteration order; non-string dict keys become their
// JSON text, and two keys with the same text are an error.
func fromStarlark(v starlark.Value, depth int) (domain.Value, error) {
	if depth > maxValueDepth {
		return domain.Null(), fmt.Errorf("value nested deeper than %d levels", maxValueDepth)
	}
	switch x := v.(type) {
	case starlark.NoneType:
		return domain.Null(), nil
	case starlark.Bool:
		return domain.Bool(bool(x)), nil
	case starlark.Int:
		i, ok := x.Int64()
		if !ok {
			return domain.Null(), fmt.Errorf("integer %s does not fit in 64 bits", x.String())
		}
		return domain.Int(i), nil
	case starlark.Float:
		return domain.Float(float64(x)), nil
	case starlark.String:
		return domain.Str(string(x)), nil
	case starlark.Bytes:
		return domain.Str(string(x)), nil
	case *starlark.List:
		return sequence(x, depth)
	case starlark.Tuple:
		return sequence(x, depth)
	case *starlark.Set:
		return sequence(x, depth)
	case *starlark.Dict:
		entries := make(map[string]domain.Value, x.Len())
		for _, item := range x.Items() {
			val, err := fromStarlark(item[1], depth+1)
			if err != nil {
				return domain.Null(), err
			}
			key, err := dictKey(item[0], depth)
			if err != nil {
				return domain.Null(), err
			}
			if _, dup := entries[key]; dup {
				return domain.Null(), fmt.Errorf("dict keys %s collide once converted to strings", item[0].String())
			}
			entries[key] = val
		}
		return domain.Map(entries), nil
	default:
		return domain.Null(), fmt.Errorf("values of type %s cannot be compared", v.Type())
	}
}

func sequence(seq starlark.Iterable, depth int) (domain.Value, error) {
	var items []domain.Value
	it := seq.Iterate()
	defer it.Done()
	var elem starlark.Value
	for it.Next(&elem) {
		item, err := fromStarlark(elem, depth+1)
		if err != nil {
			return domain.Null(), err
		}
		items = append(items, item)
	}
	return domain.List(items...), nil
}

func dictKey(k starlark.Value, depth int) (string, error) {
	if s, ok := k.(starlark.String); ok {
		return string(s), nil
	}
	key, err := fromStarlark(k, depth+1)
	if err != nil {
		return "", err
	}
	return key.String(), nil
}
