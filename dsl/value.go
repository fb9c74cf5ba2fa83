package dsl

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/npillmayer/chartscript/runtime"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ValueTag identifies the variant of a Value.
type ValueTag uint8

// Value variants.
const (
	VTNull ValueTag = iota
	VTBool
	VTNum
	VTStr
	VTArray
	VTObject
	VTFunc
)

func (t ValueTag) String() string {
	switch t {
	case VTNull:
		return "null"
	case VTBool:
		return "bool"
	case VTNum:
		return "number"
	case VTStr:
		return "string"
	case VTArray:
		return "array"
	case VTObject:
		return "object"
	case VTFunc:
		return "function"
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Value is the tagged union of everything a routine computes with.
// Data holds bool, float64, string, *Array, *Object or *Func, depending on Tag.
type Value struct {
	Tag  ValueTag
	Data interface{}
}

// Null is the null value; it is identical to the zero Value.
var Null = Value{}

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{Tag: VTBool, Data: b} }

// Num creates a number value.
func Num(f float64) Value { return Value{Tag: VTNum, Data: f} }

// Str creates a string value.
func Str(s string) Value { return Value{Tag: VTStr, Data: s} }

// Arr wraps an array.
func Arr(a *Array) Value {
	if a == nil {
		return Null
	}
	return Value{Tag: VTArray, Data: a}
}

// List creates an array value from its elements.
func List(elems ...Value) Value { return Arr(NewArray(elems)) }

// Obj wraps an object.
func Obj(o *Object) Value {
	if o == nil {
		return Null
	}
	return Value{Tag: VTObject, Data: o}
}

// Fn wraps a function.
func Fn(f *Func) Value {
	if f == nil {
		return Null
	}
	return Value{Tag: VTFunc, Data: f}
}

// NativeFn creates a function value backed by Go code.
func NativeFn(name string, fn Native) Value {
	return Fn(&Func{Name: name, Native: fn})
}

// IsNull is true for null values.
func (v Value) IsNull() bool { return v.Tag == VTNull }

// AsBool returns the boolean of a VTBool value.
func (v Value) AsBool() bool { b, _ := v.Data.(bool); return b }

// AsNum returns the number of a VTNum value.
func (v Value) AsNum() float64 { f, _ := v.Data.(float64); return f }

// AsStr returns the string of a VTStr value.
func (v Value) AsStr() string { s, _ := v.Data.(string); return s }

// AsArray returns the array of a VTArray value, or nil.
func (v Value) AsArray() *Array { a, _ := v.Data.(*Array); return a }

// AsObject returns the object of a VTObject value, or nil.
func (v Value) AsObject() *Object { o, _ := v.Data.(*Object); return o }

// AsFunc returns the function of a VTFunc value, or nil.
func (v Value) AsFunc() *Func { f, _ := v.Data.(*Func); return f }

// Truthy implements the language's notion of truth: null, false, 0, NaN and
// the empty string are false, everything else is true.
func (v Value) Truthy() bool {
	switch v.Tag {
	case VTNull:
		return false
	case VTBool:
		return v.AsBool()
	case VTNum:
		f := v.AsNum()
		return f != 0 && !math.IsNaN(f)
	case VTStr:
		return v.AsStr() != ""
	}
	return true
}

// Number converts v to a float64, if it has a numeric reading.
func (v Value) Number() (float64, bool) {
	switch v.Tag {
	case VTNum:
		return v.AsNum(), true
	case VTBool:
		if v.AsBool() {
			return 1, true
		}
		return 0, true
	case VTStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsStr()), 64)
		return f, err == nil
	}
	return 0, false
}

// Int converts v to an int, if it has a numeric reading.
func (v Value) Int() (int, bool) {
	f, ok := v.Number()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// String renders a value for display.
func (v Value) String() string {
	switch v.Tag {
	case VTNull:
		return "null"
	case VTBool:
		return strconv.FormatBool(v.AsBool())
	case VTNum:
		return formatNumber(v.AsNum())
	case VTStr:
		return v.AsStr()
	case VTArray:
		a := v.AsArray()
		parts := make([]string, a.Len())
		for i := range parts {
			parts[i] = a.At(i).repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case VTObject:
		o := v.AsObject()
		parts := make([]string, 0, o.Len())
		for _, k := range o.Keys() {
			x, _ := o.Get(k)
			parts = append(parts, k+": "+x.repr())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case VTFunc:
		return "function " + v.AsFunc().Name
	}
	return "?"
}

func (v Value) repr() string {
	if v.Tag == VTStr {
		return strconv.Quote(v.AsStr())
	}
	return v.String()
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Interface converts v into plain Go data: nil, bool, float64, string,
// []interface{} or map[string]interface{}. Functions convert to nil.
func (v Value) Interface() interface{} {
	switch v.Tag {
	case VTBool:
		return v.AsBool()
	case VTNum:
		return v.AsNum()
	case VTStr:
		return v.AsStr()
	case VTArray:
		a := v.AsArray()
		out := make([]interface{}, a.Len())
		for i := range out {
			out[i] = a.At(i).Interface()
		}
		return out
	case VTObject:
		o := v.AsObject()
		out := make(map[string]interface{}, o.Len())
		for _, k := range o.Keys() {
			x, _ := o.Get(k)
			out[k] = x.Interface()
		}
		return out
	}
	return nil
}

// FromGo converts plain Go data into a Value. Unknown types convert to null.
func FromGo(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return Bool(t)
	case float64:
		return Num(t)
	case float32:
		return Num(float64(t))
	case int:
		return Num(float64(t))
	case int32:
		return Num(float64(t))
	case int64:
		return Num(float64(t))
	case uint64:
		return Num(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Str(t.String())
		}
		return Num(f)
	case string:
		return Str(t)
	case []float64:
		elems := make([]Value, len(t))
		for i, f := range t {
			if math.IsNaN(f) {
				continue
			}
			elems[i] = Num(f)
		}
		return Arr(NewArray(elems))
	case []string:
		elems := make([]Value, len(t))
		for i, s := range t {
			elems[i] = Str(s)
		}
		return Arr(NewArray(elems))
	case []interface{}:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = FromGo(e)
		}
		return Arr(NewArray(elems))
	case map[string]interface{}:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			o.Set(k, FromGo(t[k]))
		}
		return Obj(o)
	}
	return Null
}

// Equal is structural equality: numbers by value, arrays element-wise in view
// order, objects by key set and values. Functions are equal if identical.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case VTNull:
		return true
	case VTBool:
		return a.AsBool() == b.AsBool()
	case VTNum:
		return a.AsNum() == b.AsNum()
	case VTStr:
		return a.AsStr() == b.AsStr()
	case VTArray:
		x, y := a.AsArray(), b.AsArray()
		if x.Len() != y.Len() {
			return false
		}
		for i := 0; i < x.Len(); i++ {
			if !Equal(x.At(i), y.At(i)) {
				return false
			}
		}
		return true
	case VTObject:
		x, y := a.AsObject(), b.AsObject()
		if x.Len() != y.Len() {
			return false
		}
		for _, k := range x.Keys() {
			xv, _ := x.Get(k)
			yv, ok := y.Get(k)
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case VTFunc:
		return a.AsFunc() == b.AsFunc()
	}
	return false
}

// --- Arrays ----------------------------------------------------------------

type arrayData struct {
	elems []Value
}

// Array is a sequence of values. An array may be a reverse view onto the
// storage of another array: index 0 of a reverse view is the last element of
// the storage. Out-of-range and negative indices read as null.
type Array struct {
	data    *arrayData
	reverse bool
}

// NewArray creates an array holding elems (not copied).
func NewArray(elems []Value) *Array {
	return &Array{data: &arrayData{elems: elems}}
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.data.elems)
}

// IsReverse is true for reverse views.
func (a *Array) IsReverse() bool {
	return a != nil && a.reverse
}

// Reverse returns a view with the opposite index direction, sharing storage with a.
func (a *Array) Reverse() *Array {
	return &Array{data: a.data, reverse: !a.reverse}
}

func (a *Array) storageIndex(i int) int {
	if a.reverse {
		return len(a.data.elems) - 1 - i
	}
	return i
}

// At returns the element at index i in view order, or null if out of range.
func (a *Array) At(i int) Value {
	if a == nil || i < 0 || i >= len(a.data.elems) {
		return Null
	}
	return a.data.elems[a.storageIndex(i)]
}

// MaxArrayLen is the length an array may grow to by index assignment.
const MaxArrayLen = 1 << 22

// Set stores v at index i in view order. Forward arrays grow as needed,
// filling gaps with null, up to MaxArrayLen elements; reverse views only
// accept indices in range. Returns false if v could not be stored.
func (a *Array) Set(i int, v Value) bool {
	if i < 0 {
		return false
	}
	if i >= len(a.data.elems) {
		if a.reverse || i >= MaxArrayLen {
			return false
		}
		for len(a.data.elems) <= i {
			a.data.elems = append(a.data.elems, Null)
		}
	}
	a.data.elems[a.storageIndex(i)] = v
	return true
}

// Push appends v to the storage (i.e. at the newest end) and returns the new length.
func (a *Array) Push(v Value) int {
	a.data.elems = append(a.data.elems, v)
	return len(a.data.elems)
}

// Pop removes the newest element of the storage and returns it.
func (a *Array) Pop() Value {
	n := len(a.data.elems)
	if n == 0 {
		return Null
	}
	v := a.data.elems[n-1]
	a.data.elems = a.data.elems[:n-1]
	return v
}

// Values returns a copy of the elements in view order.
func (a *Array) Values() []Value {
	out := make([]Value, a.Len())
	for i := range out {
		out[i] = a.At(i)
	}
	return out
}

// Forward returns a copy of the elements in storage order, i.e. oldest first
// for series, regardless of the view direction.
func (a *Array) Forward() []Value {
	out := make([]Value, a.Len())
	if a != nil {
		copy(out, a.data.elems)
	}
	return out
}

// Floats returns the elements in storage order as float64, null and
// non-numeric elements as NaN.
func (a *Array) Floats() []float64 {
	out := make([]float64, a.Len())
	for i := range out {
		if e := a.data.elems[i]; e.Tag == VTNum {
			out[i] = e.AsNum()
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// --- Objects ---------------------------------------------------------------

// Object is a string-keyed map which remembers insertion order.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Get returns the value for k.
func (o *Object) Get(k string) (Value, bool) {
	if o == nil {
		return Null, false
	}
	v, ok := o.vals[k]
	return v, ok
}

// Set stores v under k. Returns the object (for chaining).
func (o *Object) Set(k string, v Value) *Object {
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
	return o
}

// Delete removes k.
func (o *Object) Delete(k string) {
	if _, ok := o.vals[k]; !ok {
		return
	}
	delete(o.vals, k)
	for i, key := range o.keys {
		if key == k {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Copy returns a shallow copy of o.
func (o *Object) Copy() *Object {
	c := NewObject()
	for _, k := range o.Keys() {
		c.Set(k, o.vals[k])
	}
	return c
}

// --- Functions -------------------------------------------------------------

// Native is the signature of functions implemented in Go.
type Native func(args []Value) (Value, error)

// Func is a callable: either native, or a script function with parameters
// and a body, closing over the scope it has been defined in.
type Func struct {
	Name   string
	Native Native
	Params []string
	Body   *Block // statement body
	Expr   Expr   // expression body of arrow functions
	Scope  *runtime.Scope
}

// Arg returns args[i], or null if there are fewer arguments.
func Arg(args []Value, i int) Value {
	if i < 0 || i >= len(args) {
		return Null
	}
	return args[i]
}

func sortedKeys(m map[string]interface{}) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
