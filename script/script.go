package script

import (
	"errors"
	"fmt"

	"github.com/npillmayer/chartscript/dsl"
)

// Position tells where a script is drawn: into the primary pane (main) or
// into a pane of its own (vice).
type Position string

const (
	Main Position = "main"
	Vice Position = "vice"
)

// Metadata is collected from `@key = value` comment lines.
type Metadata struct {
	Name     string
	Title    string
	Desc     string
	Author   string
	Position Position
	Version  int
	Extra    map[string]string // unrecognized keys
}

// DisplayName is the title, or the name if no title is set.
func (m Metadata) DisplayName() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// Kind is the kind of a declaration.
type Kind string

const (
	InputKind Kind = "input"
	StyleKind Kind = "style"
)

// Bounds hold optional numeric constraints of an input declaration.
type Bounds struct {
	Min, Max, Step          float64
	HasMin, HasMax, HasStep bool
}

// Declaration is an input control or a style, as declared in a script.
type Declaration struct {
	Key     string
	Kind    Kind
	Type    string // e.g. "int", "select", "line"
	Title   string
	Default dsl.Value
	Value   dsl.Value // effective value, after presets have been applied
	Bounds  Bounds
	Options []dsl.Value // for selects
	Line    int
	Hint    string // naming advice, if any
}

// HTTPCall is a deferred data request declared in a script. Args is kept as
// raw source text, as it may refer to input keys and is evaluated only when
// the call is issued.
type HTTPCall struct {
	Key    string
	Method string
	Args   string
	Value  dsl.Value
	Line   int
}

// ParsedScript is the result of parsing a script source.
type ParsedScript struct {
	Meta   Metadata
	Inputs []*Declaration
	Styles []*Declaration
	Calls  []*HTTPCall
	Body   string
	Source string
}

// Input finds an input declaration by key.
func (ps *ParsedScript) Input(key string) *Declaration {
	return findDecl(ps.Inputs, key)
}

// Style finds a style declaration by key.
func (ps *ParsedScript) Style(key string) *Declaration {
	return findDecl(ps.Styles, key)
}

// Call finds an HTTP call declaration by key.
func (ps *ParsedScript) Call(key string) *HTTPCall {
	for _, c := range ps.Calls {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// Keys returns all declared keys, in source order per kind: inputs, styles, calls.
func (ps *ParsedScript) Keys() []string {
	var keys []string
	for _, d := range ps.Inputs {
		keys = append(keys, d.Key)
	}
	for _, d := range ps.Styles {
		keys = append(keys, d.Key)
	}
	for _, c := range ps.Calls {
		keys = append(keys, c.Key)
	}
	return keys
}

func findDecl(decls []*Declaration, key string) *Declaration {
	for _, d := range decls {
		if d.Key == key {
			return d
		}
	}
	return nil
}

// Preset is a value for a declared key, overriding its default.
type Preset struct {
	Key   string
	Value interface{}
}

// Presets are collected per kind.
type Presets struct {
	Inputs []Preset
	Styles []Preset
}

// PresetsFromMaps builds presets from maps of plain Go values, ordered by key.
func PresetsFromMaps(inputs, styles map[string]interface{}) Presets {
	var p Presets
	for _, k := range sortedKeys(inputs) {
		p.Inputs = append(p.Inputs, Preset{Key: k, Value: inputs[k]})
	}
	for _, k := range sortedKeys(styles) {
		p.Styles = append(p.Styles, Preset{Key: k, Value: styles[k]})
	}
	return p
}

// --- Errors ----------------------------------------------------------------

var (
	// ErrMissingName is the one fatal parse error.
	ErrMissingName   = errors.New("script has neither @name nor @title")
	ErrReserved      = errors.New("reserved identifier")
	ErrDuplicateKey  = errors.New("duplicate declaration")
	ErrUnknownType   = errors.New("unknown declaration type")
	ErrBadArgument   = errors.New("invalid argument")
	ErrUnterminated  = errors.New("unterminated declaration")
	ErrTrailingInput = errors.New("unexpected text after declaration")
	ErrMetadata      = errors.New("invalid metadata")
	ErrPreset        = errors.New("invalid preset")
)

// DeclError is a non-fatal error concerning a single declaration or
// metadata entry.
type DeclError struct {
	Key  string
	Line int
	Err  error
}

func (e *DeclError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Key, e.Err)
}

func (e *DeclError) Unwrap() error {
	return e.Err
}
