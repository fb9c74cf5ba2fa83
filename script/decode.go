package script

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/npillmayer/chartscript/dsl"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type paramKind int8

const (
	pNumber paramKind = iota
	pBool
	pString
	pColor
	pEnum
	pList
	pScalar // number, string or bool
)

// param describes one argument of a declaration type.
type param struct {
	name  string
	kind  paramKind
	enum  []string
	check func(float64) error
}

// declType is the argument signature of an input or style type. Style types
// carry default values for each parameter.
type declType struct {
	params   []param
	defaults map[string]dsl.Value
	scalar   bool // style value is the first parameter, not an object
}

func (dt declType) param(name string) (param, bool) {
	for _, p := range dt.params {
		if p.name == name {
			return p, true
		}
	}
	return param{}, false
}

func positive(f float64) error {
	if f <= 0 {
		return fmt.Errorf("must be positive, is %g", f)
	}
	return nil
}

func fraction(f float64) error {
	if f < 0 || f > 1 {
		return fmt.Errorf("must be in [0, 1], is %g", f)
	}
	return nil
}

var numericInput = []param{
	{name: "default", kind: pNumber},
	{name: "min", kind: pNumber},
	{name: "max", kind: pNumber},
	{name: "step", kind: pNumber, check: positive},
	{name: "title", kind: pString},
}

var inputTypes = map[string]declType{
	"int":    {params: numericInput},
	"float":  {params: numericInput},
	"bool":   {params: []param{{name: "default", kind: pBool}, {name: "title", kind: pString}}},
	"text":   {params: []param{{name: "default", kind: pString}, {name: "title", kind: pString}}},
	"select": {params: []param{{name: "default", kind: pScalar}, {name: "options", kind: pList}, {name: "title", kind: pString}}},
}

const (
	defaultColor = "#2196f3"
	defaultFill  = "#2196f333"
	upColor      = "#26a69a"
	downColor    = "#ef5350"
)

var styleTypes = map[string]declType{
	"color": {
		params:   []param{{name: "color", kind: pColor}},
		defaults: map[string]dsl.Value{"color": dsl.Str(defaultColor)},
		scalar:   true,
	},
	"width": {
		params:   []param{{name: "width", kind: pNumber, check: positive}},
		defaults: map[string]dsl.Value{"width": dsl.Num(1)},
		scalar:   true,
	},
	"line": {
		params: []param{
			{name: "color", kind: pColor},
			{name: "width", kind: pNumber, check: positive},
			{name: "style", kind: pEnum, enum: []string{"solid", "dashed", "dotted"}},
		},
		defaults: map[string]dsl.Value{"color": dsl.Str(defaultColor), "width": dsl.Num(1), "style": dsl.Str("solid")},
	},
	"area": {
		params: []param{
			{name: "color", kind: pColor},
			{name: "fill", kind: pColor},
			{name: "opacity", kind: pNumber, check: fraction},
		},
		defaults: map[string]dsl.Value{"color": dsl.Str(defaultColor), "fill": dsl.Str(defaultFill), "opacity": dsl.Num(0.2)},
	},
	"bar": {
		params: []param{
			{name: "up", kind: pColor},
			{name: "down", kind: pColor},
			{name: "width", kind: pNumber, check: positive},
		},
		defaults: map[string]dsl.Value{"up": dsl.Str(upColor), "down": dsl.Str(downColor), "width": dsl.Num(0.8)},
	},
	"candle": {
		params: []param{
			{name: "up", kind: pColor},
			{name: "down", kind: pColor},
			{name: "wick", kind: pColor},
		},
		defaults: map[string]dsl.Value{"up": dsl.Str(upColor), "down": dsl.Str(downColor), "wick": dsl.Str("#737375")},
	},
	"label": {
		params: []param{
			{name: "color", kind: pColor},
			{name: "background", kind: pColor},
			{name: "size", kind: pNumber, check: positive},
			{name: "position", kind: pEnum, enum: []string{"above", "below", "left", "right", "center"}},
		},
		defaults: map[string]dsl.Value{"color": dsl.Str("#ffffff"), "background": dsl.Str(defaultColor),
			"size": dsl.Num(12), "position": dsl.Str("above")},
	},
	"shape": {
		params: []param{
			{name: "color", kind: pColor},
			{name: "kind", kind: pEnum, enum: []string{"circle", "square", "triangle", "diamond", "cross", "arrowUp", "arrowDown"}},
			{name: "size", kind: pNumber, check: positive},
		},
		defaults: map[string]dsl.Value{"color": dsl.Str(defaultColor), "kind": dsl.Str("circle"), "size": dsl.Num(8)},
	},
	"rect": {
		params: []param{
			{name: "color", kind: pColor},
			{name: "fill", kind: pColor},
			{name: "width", kind: pNumber, check: positive},
		},
		defaults: map[string]dsl.Value{"color": dsl.Str(defaultColor), "fill": dsl.Str(defaultFill), "width": dsl.Num(1)},
	},
	"circle": {
		params: []param{
			{name: "color", kind: pColor},
			{name: "fill", kind: pColor},
			{name: "radius", kind: pNumber, check: positive},
		},
		defaults: map[string]dsl.Value{"color": dsl.Str(defaultColor), "fill": dsl.Str(defaultFill), "radius": dsl.Num(4)},
	},
	"icon": {
		params: []param{
			{name: "glyph", kind: pString},
			{name: "color", kind: pColor},
			{name: "size", kind: pNumber, check: positive},
		},
		defaults: map[string]dsl.Value{"glyph": dsl.Str("★"), "color": dsl.Str(defaultColor), "size": dsl.Num(12)},
	},
}

// InputTypes lists the supported input types, sorted.
func InputTypes() []string {
	return sortedKeys(inputTypes)
}

// StyleTypes lists the supported style types, sorted.
func StyleTypes() []string {
	return sortedKeys(styleTypes)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// decodeArgs matches a raw argument list against the signature of a type.
// All argument errors are collected.
func decodeArgs(dt declType, raw string) (map[string]dsl.Value, error) {
	args, err := splitArgs(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	if len(args) == 1 && !dt.scalar && strings.HasPrefix(args[0], "{") {
		if args, err = spreadObject(args[0]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
		}
	}
	vals := make(map[string]dsl.Value)
	var errs []error
	pos := 0
	for _, arg := range args {
		name, v, named := splitNamed(arg)
		var p param
		if named {
			var ok bool
			if p, ok = dt.param(name); !ok {
				errs = append(errs, fmt.Errorf("%w: unknown argument %q", ErrBadArgument, name))
				continue
			}
		} else {
			if pos >= len(dt.params) {
				errs = append(errs, fmt.Errorf("%w: too many arguments at %q", ErrBadArgument, arg))
				continue
			}
			p = dt.params[pos]
			pos++
		}
		if _, dup := vals[p.name]; dup {
			errs = append(errs, fmt.Errorf("%w: argument %q given twice", ErrBadArgument, p.name))
			continue
		}
		lit, err := parseLiteral(v)
		if err == nil {
			vals[p.name], err = fromLiteral(p, lit)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrBadArgument, p.name, err))
		}
	}
	return vals, errors.Join(errs...)
}

// spreadObject turns a single object literal argument into named arguments.
func spreadObject(arg string) ([]string, error) {
	if !strings.HasSuffix(arg, "}") {
		return nil, fmt.Errorf("malformed object %s", arg)
	}
	return splitArgs(arg[1 : len(arg)-1])
}

func fromLiteral(p param, lit literal) (dsl.Value, error) {
	switch lit.kind {
	case litWord:
		if p.kind != pColor && p.kind != pEnum {
			return dsl.Null, fmt.Errorf("unrecognized token %q", lit.src)
		}
	case litColor:
		if p.kind != pColor {
			return dsl.Null, fmt.Errorf("unexpected color %s", lit.src)
		}
	case litNull:
		return dsl.Null, fmt.Errorf("null is not allowed")
	}
	return convertValue(p, lit.val)
}

// convertValue checks v against the parameter kind and normalizes it.
func convertValue(p param, v dsl.Value) (dsl.Value, error) {
	switch p.kind {
	case pNumber:
		f, err := number(v)
		if err != nil {
			return dsl.Null, err
		}
		if p.check != nil {
			if err := p.check(f); err != nil {
				return dsl.Null, err
			}
		}
		return dsl.Num(f), nil
	case pBool:
		switch {
		case v.Tag == dsl.VTBool:
			return v, nil
		case v.Tag == dsl.VTStr && (v.AsStr() == "true" || v.AsStr() == "false"):
			return dsl.Bool(v.AsStr() == "true"), nil
		}
		return dsl.Null, fmt.Errorf("expected boolean, is %s", v.Tag)
	case pString:
		if v.Tag != dsl.VTStr {
			return dsl.Null, fmt.Errorf("expected string, is %s", v.Tag)
		}
		return v, nil
	case pColor:
		if v.Tag != dsl.VTStr {
			return dsl.Null, fmt.Errorf("expected color, is %s", v.Tag)
		}
		c, err := ParseColor(v.AsStr())
		if err != nil {
			return dsl.Null, err
		}
		return dsl.Str(c), nil
	case pEnum:
		if v.Tag == dsl.VTStr && slices.Contains(p.enum, v.AsStr()) {
			return v, nil
		}
		return dsl.Null, fmt.Errorf("expected one of %s, is %s", strings.Join(p.enum, "|"), v)
	case pList:
		if v.Tag != dsl.VTArray {
			return dsl.Null, fmt.Errorf("expected list, is %s", v.Tag)
		}
		return v, nil
	case pScalar:
		switch v.Tag {
		case dsl.VTNum, dsl.VTStr, dsl.VTBool:
			return v, nil
		}
		return dsl.Null, fmt.Errorf("expected number, string or boolean, is %s", v.Tag)
	}
	return dsl.Null, fmt.Errorf("unsupported parameter %q", p.name)
}

func number(v dsl.Value) (float64, error) {
	switch v.Tag {
	case dsl.VTNum:
		return v.AsNum(), nil
	case dsl.VTStr:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.AsStr()), 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("expected number, is %s", v)
}

// --- Building declarations -------------------------------------------------

func buildInput(key, typ string, vals map[string]dsl.Value) (*Declaration, error) {
	d := &Declaration{Key: key, Kind: InputKind, Type: typ}
	if t, ok := vals["title"]; ok {
		d.Title = t.AsStr()
	}
	dflt, hasDefault := vals["default"]
	switch typ {
	case "int", "float":
		b := &d.Bounds
		if v, ok := vals["min"]; ok {
			b.Min, b.HasMin = v.AsNum(), true
		}
		if v, ok := vals["max"]; ok {
			b.Max, b.HasMax = v.AsNum(), true
		}
		if v, ok := vals["step"]; ok {
			b.Step, b.HasStep = v.AsNum(), true
		}
		if b.HasMin && b.HasMax && b.Min > b.Max {
			return nil, fmt.Errorf("%w: min %g exceeds max %g", ErrBadArgument, b.Min, b.Max)
		}
		if !hasDefault {
			dflt = dsl.Num(0)
			if b.HasMin {
				dflt = dsl.Num(b.Min)
			}
		}
	case "bool":
		if !hasDefault {
			dflt = dsl.Bool(false)
		}
	case "text":
		if !hasDefault {
			dflt = dsl.Str("")
		}
	case "select":
		opts, ok := vals["options"]
		if !ok || opts.AsArray().Len() == 0 {
			return nil, fmt.Errorf("%w: select needs a non-empty list of options", ErrBadArgument)
		}
		for _, o := range opts.AsArray().Values() {
			if _, err := convertValue(param{kind: pScalar}, o); err != nil {
				return nil, fmt.Errorf("%w: option: %v", ErrBadArgument, err)
			}
			d.Options = append(d.Options, o)
		}
		if !hasDefault {
			dflt = d.Options[0]
		}
	}
	v, err := d.coerceInput(dflt)
	if err != nil {
		return nil, fmt.Errorf("%w: default: %v", ErrBadArgument, err)
	}
	d.Default, d.Value = v, v
	return d, nil
}

func buildStyle(key, typ string, vals map[string]dsl.Value) *Declaration {
	dt := styleTypes[typ]
	d := &Declaration{Key: key, Kind: StyleKind, Type: typ}
	if dt.scalar {
		name := dt.params[0].name
		if v, ok := vals[name]; ok {
			d.Default = v
		} else {
			d.Default = dt.defaults[name]
		}
		d.Value = d.Default
		return d
	}
	obj := dsl.NewObject()
	for _, p := range dt.params {
		if v, ok := vals[p.name]; ok {
			obj.Set(p.name, v)
		} else {
			obj.Set(p.name, dt.defaults[p.name])
		}
	}
	d.Default = dsl.Obj(obj)
	d.Value = dsl.Obj(obj.Copy())
	return d
}

// --- Coercion --------------------------------------------------------------

// Coerce checks a new value for the declaration and converts it to the
// declared type. For object styles, v may be partial: its fields are merged
// onto base (or onto the default, if base is not an object). A plain string
// given for an object style with a color field sets the color.
func (d *Declaration) Coerce(v dsl.Value, base dsl.Value) (dsl.Value, error) {
	var r dsl.Value
	var err error
	if d.Kind == InputKind {
		r, err = d.coerceInput(v)
	} else {
		r, err = d.coerceStyle(v, base)
	}
	if err != nil {
		return dsl.Null, fmt.Errorf("%w: %s: %v", ErrPreset, d.Key, err)
	}
	return r, nil
}

func (d *Declaration) coerceInput(v dsl.Value) (dsl.Value, error) {
	switch d.Type {
	case "int", "float":
		f, err := number(v)
		if err != nil {
			return dsl.Null, err
		}
		if d.Type == "int" && f != math.Trunc(f) {
			return dsl.Null, fmt.Errorf("expected integer, is %g", f)
		}
		if d.Bounds.HasMin && f < d.Bounds.Min || d.Bounds.HasMax && f > d.Bounds.Max {
			return dsl.Null, fmt.Errorf("%g out of range %s", f, d.Bounds)
		}
		return dsl.Num(f), nil
	case "bool":
		return convertValue(param{kind: pBool}, v)
	case "text":
		if v.Tag == dsl.VTNum || v.Tag == dsl.VTBool {
			return dsl.Str(v.String()), nil
		}
		return convertValue(param{kind: pString}, v)
	case "select":
		for _, o := range d.Options {
			if dsl.Equal(o, v) || o.String() == v.String() {
				return o, nil
			}
		}
		return dsl.Null, fmt.Errorf("%s is not an option", v)
	}
	return dsl.Null, fmt.Errorf("%w: %s", ErrUnknownType, d.Type)
}

func (d *Declaration) coerceStyle(v dsl.Value, base dsl.Value) (dsl.Value, error) {
	dt, ok := styleTypes[d.Type]
	if !ok {
		return dsl.Null, fmt.Errorf("%w: %s", ErrUnknownType, d.Type)
	}
	if dt.scalar {
		return convertValue(dt.params[0], v)
	}
	if base.Tag != dsl.VTObject {
		base = d.Default
	}
	obj := base.AsObject().Copy()
	switch v.Tag {
	case dsl.VTObject:
		var errs []error
		for _, k := range v.AsObject().Keys() {
			p, ok := dt.param(k)
			if !ok {
				errs = append(errs, fmt.Errorf("unknown field %q", k))
				continue
			}
			fv, _ := v.AsObject().Get(k)
			cv, err := convertValue(p, fv)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %v", k, err))
				continue
			}
			obj.Set(k, cv)
		}
		if err := errors.Join(errs...); err != nil {
			return dsl.Null, err
		}
	case dsl.VTStr:
		p, ok := dt.param("color")
		if !ok {
			return dsl.Null, fmt.Errorf("style %s has no color", d.Type)
		}
		c, err := convertValue(p, v)
		if err != nil {
			return dsl.Null, err
		}
		obj.Set("color", c)
	default:
		return dsl.Null, fmt.Errorf("expected object, is %s", v.Tag)
	}
	return dsl.Obj(obj), nil
}

func (b Bounds) String() string {
	lo, hi := "-∞", "∞"
	if b.HasMin {
		lo = strconv.FormatFloat(b.Min, 'g', -1, 64)
	}
	if b.HasMax {
		hi = strconv.FormatFloat(b.Max, 'g', -1, 64)
	}
	return "[" + lo + ", " + hi + "]"
}
