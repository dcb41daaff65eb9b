package gate

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Object is a decoded JSON document returned by the Gateway. The Gateway
// owns the schema; the SDK does not impose one. Typed accessors cover the
// common field shapes and return zero values for absent or mismatched
// fields, so chained reads never panic.
type Object map[string]any

// Has reports whether the document contains the key.
func (o Object) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// ID returns the document's "id" field.
func (o Object) ID() string {
	return o.String("id")
}

// String returns the string value at key, or "".
func (o Object) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Int returns the integer value at key, or 0. JSON numbers decode as
// float64; both float64 and int shapes are accepted.
func (o Object) Int(key string) int64 {
	switch v := o[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// Bool returns the boolean value at key, or false.
func (o Object) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Decimal returns the value at key as a decimal. The Gateway sends money
// either as a JSON number or as a string; both are accepted. Absent or
// unparsable values return decimal zero.
func (o Object) Decimal(key string) decimal.Decimal {
	switch v := o[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// Raw returns the underlying decoded map. Mutating it mutates the Object.
func (o Object) Raw() map[string]any {
	return o
}

// Object returns the nested document at key, or nil.
func (o Object) Object(key string) Object {
	m, _ := o[key].(map[string]any)
	return Object(m)
}

// Objects returns the array of documents at key. Non-document elements are
// skipped.
func (o Object) Objects(key string) []Object {
	arr, _ := o[key].([]any)
	if arr == nil {
		return nil
	}
	out := make([]Object, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, Object(m))
		}
	}
	return out
}

// Collection is the Gateway's paginated list envelope: a results array plus
// count and next/previous page URLs. Filtering is the caller's business.
type Collection Object

// Count returns the total number of records reported by the Gateway.
func (c Collection) Count() int64 {
	return Object(c).Int("count")
}

// Results returns the documents on the current page.
func (c Collection) Results() []Object {
	return Object(c).Objects("results")
}

// Next returns the absolute URL of the next page, or "" on the last page.
// Feed it to Client.Get via Raw to walk pages.
func (c Collection) Next() string {
	return Object(c).String("next")
}

// Previous returns the absolute URL of the previous page, or "".
func (c Collection) Previous() string {
	return Object(c).String("previous")
}
