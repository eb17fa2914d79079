package convert

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// undefinedLiteral is the string buggy clients sometimes send in place of a
// missing field; the purity filter treats it the same as JSON null.
const undefinedLiteral = "[undefined]"

// StripUndefined removes every null value, and every string value equal to
// "undefined" or "[undefined]", from a JSON document at any depth
// (spec.md section 4.3's purity filter against buggy clients). It returns
// raw unchanged if it does not parse as JSON.
//
// It rebuilds the document from scratch rather than deleting in place:
// deleting array elements by index while iterating the same array shifts
// later indices out from under you, so each kept value is instead appended
// onto a fresh object/array via sjson.
func StripUndefined(raw []byte) []byte {
	if !gjson.ValidBytes(raw) {
		return raw
	}
	out, ok := stripValue(gjson.ParseBytes(raw))
	if !ok {
		return []byte("null")
	}
	return out
}

// stripValue returns the filtered JSON encoding of v, and false if v itself
// is undefined (null, "undefined", or "[undefined]") and should be omitted
// entirely from its parent.
func stripValue(v gjson.Result) ([]byte, bool) {
	if isUndefinedValue(v) {
		return nil, false
	}
	switch {
	case v.IsObject():
		out := []byte("{}")
		var err error
		v.ForEach(func(key, val gjson.Result) bool {
			child, keep := stripValue(val)
			if !keep {
				return true
			}
			out, err = sjson.SetRawBytes(out, key.String(), child)
			return err == nil
		})
		if err != nil {
			return []byte(v.Raw), true
		}
		return out, true

	case v.IsArray():
		out := []byte("[]")
		var err error
		v.ForEach(func(_, val gjson.Result) bool {
			child, keep := stripValue(val)
			if !keep {
				return true
			}
			out, err = sjson.SetRawBytes(out, "-1", child)
			return err == nil
		})
		if err != nil {
			return []byte(v.Raw), true
		}
		return out, true

	default:
		return []byte(v.Raw), true
	}
}

func isUndefinedValue(v gjson.Result) bool {
	if v.Type == gjson.Null {
		return true
	}
	return v.Type == gjson.String && (v.String() == "undefined" || v.String() == undefinedLiteral)
}
