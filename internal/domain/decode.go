package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// presence says what decoding does with a field missing from the payload.
// Optional fields are decoded into pointers and need no rule.
type presence int

const (
	// required fields fail decoding when absent or null.
	required presence = iota
	// zeroDefault fields decode as zero when absent. The API drops
	// zero-valued counters from its payloads.
	zeroDefault
)

// node is a JSON value together with its location in the response body.
type node struct {
	path string
	res  gjson.Result
}

// parse validates body and returns its root value.
func parse(body []byte) (node, error) {
	if gjson.ValidBytes(body) {
		return node{res: gjson.ParseBytes(body)}, nil
	}

	// gjson only says yes or no; encoding/json knows where it broke.
	var v any
	err := json.Unmarshal(body, &v)
	de := &DecodeError{Reason: "invalid JSON", Cause: err}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		de.Offset = syntaxErr.Offset
	}
	return node{}, de
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

// present reports whether the value exists and is not null.
func (n node) present() bool {
	return n.res.Exists() && n.res.Type != gjson.Null
}

func (n node) fail(format string, args ...any) error {
	return &DecodeError{Path: n.path, Reason: fmt.Sprintf(format, args...)}
}

func (n node) mismatch(want string) error {
	return n.fail("expected %s, got %s", want, kindOf(n.res))
}

func kindOf(r gjson.Result) string {
	switch {
	case !r.Exists():
		return "nothing"
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	}
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Number:
		return "number " + r.Raw
	case gjson.String:
		return "string"
	}
	return "unknown value"
}

func (n node) object() (object, error) {
	if !n.res.IsObject() {
		return object{}, n.mismatch("object")
	}
	return object{path: n.path, fields: n.res.Map()}, nil
}

func (n node) stat() (Stat, error) {
	if n.res.Type != gjson.Number {
		return 0, n.mismatch("integer")
	}
	v, err := strconv.ParseInt(n.res.Raw, 10, 64)
	if err != nil {
		return 0, n.mismatch("integer")
	}
	return Stat(v), nil
}

func (n node) float() (float64, error) {
	if n.res.Type != gjson.Number {
		return 0, n.mismatch("number")
	}
	return n.res.Float(), nil
}

func (n node) str() (string, error) {
	if n.res.Type != gjson.String {
		return "", n.mismatch("string")
	}
	return n.res.Str, nil
}

func (n node) boolean() (bool, error) {
	if n.res.Type != gjson.True && n.res.Type != gjson.False {
		return false, n.mismatch("boolean")
	}
	return n.res.Bool(), nil
}

// each calls fn for every element of an array value.
func (n node) each(fn func(node) error) error {
	if !n.res.IsArray() {
		return n.mismatch("array")
	}
	for i, elem := range n.res.Array() {
		if err := fn(node{path: indexPath(n.path, i), res: elem}); err != nil {
			return err
		}
	}
	return nil
}

// listOf lifts an element decoder to an array decoder.
func listOf[T any](item func(node) (T, error)) func(node) ([]T, error) {
	return func(n node) ([]T, error) {
		out := make([]T, 0, len(n.res.Array()))
		err := n.each(func(elem node) error {
			v, err := item(elem)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

// objectOf adapts an object decoder to a node decoder.
func objectOf[T any](decode func(object) (T, error)) func(node) (T, error) {
	return func(n node) (T, error) {
		o, err := n.object()
		if err != nil {
			var zero T
			return zero, err
		}
		return decode(o)
	}
}

// object is a JSON object whose fields are looked up by wire name.
type object struct {
	path   string
	fields map[string]gjson.Result
}

func (o object) get(key string) node {
	return node{path: childPath(o.path, key), res: o.fields[key]}
}

// absent resolves a missing field according to rule.
func (o object) absent(key string, rule presence) error {
	if rule == zeroDefault {
		return nil
	}
	if o.fields[key].Exists() {
		return &DecodeError{Path: childPath(o.path, key), Reason: "required field is null"}
	}
	return &DecodeError{Path: childPath(o.path, key), Reason: "required field is missing"}
}

func (o object) str(key string, dst *string) error {
	n := o.get(key)
	if !n.present() {
		return o.absent(key, required)
	}
	v, err := n.str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (o object) optStr(key string, dst **string) error {
	n := o.get(key)
	if !n.present() {
		return nil
	}
	v, err := n.str()
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func (o object) stat(key string, rule presence, dst *Stat) error {
	n := o.get(key)
	if !n.present() {
		*dst = 0
		return o.absent(key, rule)
	}
	v, err := n.stat()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (o object) optStat(key string, dst **Stat) error {
	n := o.get(key)
	if !n.present() {
		return nil
	}
	v, err := n.stat()
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func (o object) float(key string, rule presence, dst *float64) error {
	n := o.get(key)
	if !n.present() {
		*dst = 0
		return o.absent(key, rule)
	}
	v, err := n.float()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (o object) boolean(key string, rule presence, dst *bool) error {
	n := o.get(key)
	if !n.present() {
		*dst = false
		return o.absent(key, rule)
	}
	v, err := n.boolean()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func (o object) optBool(key string, dst **bool) error {
	n := o.get(key)
	if !n.present() {
		return nil
	}
	v, err := n.boolean()
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func (o object) strs(key string, rule presence, dst *[]string) error {
	n := o.get(key)
	if !n.present() {
		*dst = []string{}
		return o.absent(key, rule)
	}
	v, err := listOf(node.str)(n)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// counter binds a wire name to a Stat field of T and its presence rule.
type counter[T any] struct {
	wire string
	rule presence
	ref  func(*T) *Stat
}

// ratio is the float64 equivalent of counter.
type ratio[T any] struct {
	wire string
	rule presence
	ref  func(*T) *float64
}

func decodeCounters[T any](o object, table []counter[T], dst *T) error {
	for _, c := range table {
		if err := o.stat(c.wire, c.rule, c.ref(dst)); err != nil {
			return err
		}
	}
	return nil
}

func decodeRatios[T any](o object, table []ratio[T], dst *T) error {
	for _, r := range table {
		if err := o.float(r.wire, r.rule, r.ref(dst)); err != nil {
			return err
		}
	}
	return nil
}

func lookupCounter[T any](table []counter[T], v *T, wire string) (Stat, bool) {
	for _, c := range table {
		if c.wire == wire {
			return *c.ref(v), true
		}
	}
	return 0, false
}

// unmarshal is the shared body of the entities' UnmarshalJSON methods.
func unmarshal[T any](data []byte, decode func(object) (T, error), dst *T) error {
	root, err := parse(data)
	if err != nil {
		return err
	}
	v, err := objectOf(decode)(root)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// optional decodes the object under key, or returns nil when it is absent.
func optional[T any](o object, key string, decode func(object) (T, error)) (*T, error) {
	n := o.get(key)
	if !n.present() {
		return nil, nil
	}
	v, err := objectOf(decode)(n)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// nested decodes the object under key. An absent zeroDefault object decodes
// as if it were empty, so its own fields' rules still apply.
func nested[T any](o object, key string, rule presence, decode func(object) (T, error)) (T, error) {
	n := o.get(key)
	if !n.present() {
		if err := o.absent(key, rule); err != nil {
			var zero T
			return zero, err
		}
		return decode(object{path: n.path, fields: map[string]gjson.Result{}})
	}
	return objectOf(decode)(n)
}
