package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gitlab.com/offlinejudge.net/internal/domain"
)

// Values cross the process boundary as tagged JSON arrays, [tag, payload],
// so that ints, floats and non-finite floats keep their kind. Map entries
// are [key, value] pairs of tagged values; numbers travel as strings.
const (
	tagNull  = "N"
	tagBool  = "B"
	tagInt   = "I"
	tagFloat = "F"
	tagStr   = "S"
	tagList  = "L"
	tagMap   = "M"
)

var errMalformedValue = errors.New("malformed value")

func encodeWire(v domain.Value) []interface{} {
	switch v.Kind() {
	case domain.KindBool:
		return []interface{}{tagBool, v.BoolVal()}
	case domain.KindInt:
		return []interface{}{tagInt, strconv.FormatInt(v.IntVal(), 10)}
	case domain.KindFloat:
		return []interface{}{tagFloat, strconv.FormatFloat(v.FloatVal(), 'g', -1, 64)}
	case domain.KindString:
		return []interface{}{tagStr, v.StrVal()}
	case domain.KindList:
		items := v.Items()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = encodeWire(item)
		}
		return []interface{}{tagList, out}
	case domain.KindMap:
		keys := v.Keys()
		entries := make([]interface{}, len(keys))
		for i, k := range keys {
			item, _ := v.Get(k)
			entries[i] = []interface{}{encodeWire(domain.Str(k)), encodeWire(item)}
		}
		return []interface{}{tagMap, entries}
	default:
		return []interface{}{tagNull}
	}
}

// decodeWire reads a tagged value. Non-string map keys become their JSON
// text, and two keys with the same text are an error.
func decodeWire(raw json.RawMessage, depth int) (domain.Value, error) {
	if depth > maxValueDepth {
		return domain.Null(), fmt.Errorf("value nested deeper than %d levels", maxValueDepth)
	}
	var node []json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil || len(node) == 0 {
		return domain.Null(), errMalformedValue
	}
	var tag string
	if err := json.Unmarshal(node[0], &tag); err != nil {
		return domain.Null(), errMalformedValue
	}
	if tag == tagNull {
		return domain.Null(), nil
	}
	if len(node) < 2 {
		return domain.Null(), errMalformedValue
	}
	payload := node[1]

	switch tag {
	case tagBool:
		var b bool
		if err := json.Unmarshal(payload, &b); err != nil {
			return domain.Null(), errMalformedValue
		}
		return domain.Bool(b), nil
	case tagInt:
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return domain.Null(), errMalformedValue
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return domain.Null(), fmt.Errorf("integer %s does not fit in 64 bits", s)
		}
		return domain.Int(i), nil
	case tagFloat:
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return domain.Null(), errMalformedValue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Null(), fmt.Errorf("invalid float %q", s)
		}
		return domain.Float(f), nil
	case tagStr:
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return domain.Null(), errMalformedValue
		}
		return domain.Str(s), nil
	case tagList:
		var raws []json.RawMessage
		if err := json.Unmarshal(payload, &raws); err != nil {
			return domain.Null(), errMalformedValue
		}
		items := make([]domain.Value, len(raws))
		for i, r := range raws {
			item, err := decodeWire(r, depth+1)
			if err != nil {
				return domain.Null(), err
			}
			items[i] = item
		}
		return domain.List(items...), nil
	case tagMap:
		var pairs [][2]json.RawMessage
		if err := json.Unmarshal(payload, &pairs); err != nil {
			return domain.Null(), errMalformedValue
		}
		entries := make(map[string]domain.Value, len(pairs))
		for _, pair := range pairs {
			key, err := decodeWire(pair[0], depth+1)
			if err != nil {
				return domain.Null(), err
			}
			val, err := decodeWire(pair[1], depth+1)
			if err != nil {
				return domain.Null(), err
			}
			k := key.String()
			if key.Kind() == domain.KindString {
				k = key.StrVal()
			}
			if _, dup := entries[k]; dup {
				return domain.Null(), fmt.Errorf("dict keys %s collide once converted to strings", key)
			}
			entries[k] = val
		}
		return domain.Map(entries), nil
	default:
		return domain.Null(), fmt.Errorf("unknown value tag %q", tag)
	}
}
