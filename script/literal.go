package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/npillmayer/chartscript/dsl"
)

type litKind int8

const (
	litString litKind = iota // quoted string
	litNumber
	litBool
	litNull
	litList
	litObject
	litColor // #hex or color function
	litWord  // bare identifier
)

// literal is a decoded declaration argument.
type literal struct {
	kind litKind
	val  dsl.Value
	src  string
}

var (
	bareWord  = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
	namedArgs = regexp.MustCompile(`(?s)^([A-Za-z_]\w*)\s*[=:]\s*(.*)$`)
)

// splitArgs splits a raw argument list at top-level commas. Quotes and
// brackets are respected. A trailing comma is allowed.
func splitArgs(raw string) ([]string, error) {
	var args []string
	var quote byte
	depth, start := 0, 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q", c)
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(raw[start:i]))
				start = i + 1
			}
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string")
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}
	if last := strings.TrimSpace(raw[start:]); last != "" {
		args = append(args, last)
	}
	for _, a := range args {
		if a == "" {
			return nil, fmt.Errorf("empty argument")
		}
	}
	return args, nil
}

// splitNamed separates `name=value` (or `name: value`) from a positional
// argument. Comparisons like `a == b` are not named arguments.
func splitNamed(arg string) (name, value string, ok bool) {
	m := namedArgs.FindStringSubmatch(arg)
	if m == nil || strings.HasPrefix(m[2], "=") {
		return "", arg, false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// parseLiteral decodes a single argument token.
func parseLiteral(s string) (literal, error) {
	s = strings.TrimSpace(s)
	lit := literal{src: s}
	switch {
	case s == "":
		return lit, fmt.Errorf("empty argument")
	case s[0] == '"' || s[0] == '\'':
		str, err := dsl.Unquote(s)
		if err != nil {
			return lit, err
		}
		lit.kind, lit.val = litString, dsl.Str(str)
		return lit, nil
	case s[0] == '[':
		if s[len(s)-1] != ']' {
			return lit, fmt.Errorf("malformed list %s", s)
		}
		elems, err := splitArgs(s[1 : len(s)-1])
		if err != nil {
			return lit, err
		}
		vals := make([]dsl.Value, 0, len(elems))
		for _, e := range elems {
			el, err := parseLiteral(e)
			if err != nil {
				return lit, err
			}
			if el.kind == litWord {
				return lit, fmt.Errorf("unrecognized token %q in list", e)
			}
			vals = append(vals, el.val)
		}
		lit.kind, lit.val = litList, dsl.Arr(dsl.NewArray(vals))
		return lit, nil
	case s[0] == '{':
		if s[len(s)-1] != '}' {
			return lit, fmt.Errorf("malformed object %s", s)
		}
		fields, err := splitArgs(s[1 : len(s)-1])
		if err != nil {
			return lit, err
		}
		obj := dsl.NewObject()
		for _, f := range fields {
			name, v, ok := splitNamed(f)
			if !ok {
				return lit, fmt.Errorf("malformed object field %q", f)
			}
			fl, err := parseLiteral(v)
			if err != nil {
				return lit, err
			}
			obj.Set(name, fl.val)
		}
		lit.kind, lit.val = litObject, dsl.Obj(obj)
		return lit, nil
	case s[0] == '#' || funcColor.MatchString(strings.ToLower(s)):
		c, err := ParseColor(s)
		if err != nil {
			return lit, err
		}
		lit.kind, lit.val = litColor, dsl.Str(c)
		return lit, nil
	case s == "true" || s == "false":
		lit.kind, lit.val = litBool, dsl.Bool(s == "true")
		return lit, nil
	case s == "null" || s == "undefined":
		lit.kind, lit.val = litNull, dsl.Null
		return lit, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		lit.kind, lit.val = litNumber, dsl.Num(f)
		return lit, nil
	}
	if bareWord.MatchString(s) {
		lit.kind, lit.val = litWord, dsl.Str(s)
		return lit, nil
	}
	return lit, fmt.Errorf("unrecognized token %q", s)
}
