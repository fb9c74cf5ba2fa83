package script

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/npillmayer/chartscript/dsl"
	"golang.org/x/exp/slices"
)

var (
	metaLine   = regexp.MustCompile(`^\s*//\s*@([A-Za-z_]\w*)\s*(?:[=:]\s*)?(.*?)\s*$`)
	bareMeta   = regexp.MustCompile(`^\s*@([A-Za-z_]\w*)\s*(?:[=:]\s*)?(.*?)\s*$`)
	commentRun = regexp.MustCompile(`^\s*//\s?(.*?)\s*$`)
	trailer    = regexp.MustCompile(`^\s*;?\s*(//.*)?$`)
	followUp   = regexp.MustCompile(`^\s*;`)
)

// Parser parses script sources of one dialect.
type Parser struct {
	grammar Grammar
	head    *regexp.Regexp
}

// NewParser creates a parser for a grammar.
func NewParser(g Grammar) *Parser {
	ns := []string{regexp.QuoteMeta(g.InputNamespace), regexp.QuoteMeta(g.StyleNamespace),
		regexp.QuoteMeta(g.CallNamespace)}
	head := regexp.MustCompile(`^\s*(?:(?:var|let|const)\s+)?([A-Za-z_$][\w$]*)\s*=\s*(` +
		strings.Join(ns, "|") + `)\s*\.\s*([A-Za-z_$][\w$]*)\s*\(`)
	return &Parser{grammar: g, head: head}
}

// Grammar returns the parser's grammar.
func (p *Parser) Grammar() Grammar {
	return p.grammar
}

// Parse parses a script source with the default grammar.
func Parse(src string, presets Presets) (*ParsedScript, []error, error) {
	return NewParser(DefaultGrammar()).Parse(src, presets)
}

// Parse splits a source into metadata, declarations and body. Presets
// override declared defaults. Declaration errors are returned as a list
// of *DeclError; the returned error is non-nil only for fatal problems,
// in which case no ParsedScript is returned.
func (p *Parser) Parse(src string, presets Presets) (*ParsedScript, []error, error) {
	src = dsl.Normalize(src)
	lines := strings.Split(src, "\n")
	ps := &ParsedScript{Source: src}
	st := &parseState{ps: ps, seen: make(map[string]bool)}
	meta := metaCollector{st: st, m: &ps.Meta}
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "//"):
			meta.comment(line, i+1)
			lines[i] = ""
			continue
		case strings.HasPrefix(trimmed, "@"):
			if m := bareMeta.FindStringSubmatch(line); m != nil {
				meta.directive(m[1], m[2], i+1)
				lines[i] = ""
				continue
			}
		}
		meta.endDesc()
		m := p.head.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		key, ns, method := line[m[2]:m[3]], line[m[4]:m[5]], line[m[6]:m[7]]
		end, endLine, err := matchParen(lines, i, m[1])
		if err != nil {
			st.fail(key, i+1, err)
			lines[i] = ""
			continue
		}
		rest := lines[endLine][end+1:]
		keep := ""
		switch {
		case trailer.MatchString(rest):
			p.declare(st, key, ns, method, argText(lines, i, m[1], endLine, end), i+1)
		case followUp.MatchString(rest):
			// statements after the declaration stay in the body, at their column
			p.declare(st, key, ns, method, argText(lines, i, m[1], endLine, end), i+1)
			cut := end + 1 + strings.IndexByte(rest, ';') + 1
			keep = strings.Repeat(" ", cut) + lines[endLine][cut:]
		default:
			st.fail(key, i+1, fmt.Errorf("%w: %q", ErrTrailingInput, strings.TrimSpace(rest)))
		}
		for j := i; j <= endLine; j++ {
			lines[j] = ""
		}
		lines[endLine] = keep
		i = endLine
	}
	meta.finish()
	if ps.Meta.Name == "" && ps.Meta.Title == "" {
		return nil, st.errs, ErrMissingName
	}
	st.applyPresets(presets)
	ps.Body = strings.Join(lines, "\n")
	tracer().Debugf("parsed script %q: %d inputs, %d styles, %d calls, %d errors",
		ps.Meta.DisplayName(), len(ps.Inputs), len(ps.Styles), len(ps.Calls), len(st.errs))
	return ps, st.errs, nil
}

type parseState struct {
	ps   *ParsedScript
	seen map[string]bool
	errs []error
}

func (st *parseState) fail(key string, line int, err error) {
	st.errs = append(st.errs, &DeclError{Key: key, Line: line, Err: err})
}

func (p *Parser) declare(st *parseState, key, ns, method, raw string, line int) {
	if v := p.grammar.Validator; v != nil {
		if err := v.Validate(key); err != nil {
			st.fail(key, line, err)
			return
		}
	}
	if st.seen[key] {
		st.fail(key, line, fmt.Errorf("%w of %q", ErrDuplicateKey, key))
		return
	}
	var hint string
	if a := p.grammar.Advisor; a != nil {
		hint, _ = a.Advise(key)
	}
	switch ns {
	case p.grammar.CallNamespace:
		if !slices.Contains(p.grammar.CallMethods, method) {
			st.fail(key, line, fmt.Errorf("%w: %s.%s", ErrUnknownType, ns, method))
			return
		}
		st.ps.Calls = append(st.ps.Calls, &HTTPCall{
			Key:    key,
			Method: method,
			Args:   strings.TrimSpace(raw),
			Line:   line,
		})
	case p.grammar.InputNamespace:
		dt, ok := inputTypes[method]
		if !ok {
			st.fail(key, line, fmt.Errorf("%w: %s.%s", ErrUnknownType, ns, method))
			return
		}
		vals, err := decodeArgs(dt, raw)
		if err != nil {
			st.fail(key, line, err)
			return
		}
		d, err := buildInput(key, method, vals)
		if err != nil {
			st.fail(key, line, err)
			return
		}
		d.Line, d.Hint = line, hint
		st.ps.Inputs = append(st.ps.Inputs, d)
	case p.grammar.StyleNamespace:
		dt, ok := styleTypes[method]
		if !ok {
			st.fail(key, line, fmt.Errorf("%w: %s.%s", ErrUnknownType, ns, method))
			return
		}
		vals, err := decodeArgs(dt, raw)
		if err != nil {
			st.fail(key, line, err)
			return
		}
		d := buildStyle(key, method, vals)
		d.Line, d.Hint = line, hint
		st.ps.Styles = append(st.ps.Styles, d)
	}
	st.seen[key] = true
}

// applyPresets overrides defaults. Presets for unknown keys are ignored,
// presets of wrong type are reported and leave the default in place.
func (st *parseState) applyPresets(presets Presets) {
	apply := func(list []Preset, find func(string) *Declaration) {
		for _, pre := range list {
			d := find(pre.Key)
			if d == nil {
				continue
			}
			v, err := d.Coerce(dsl.FromGo(pre.Value), d.Default)
			if err != nil {
				st.fail(pre.Key, d.Line, err)
				continue
			}
			d.Value = v
		}
	}
	apply(presets.Inputs, st.ps.Input)
	apply(presets.Styles, st.ps.Style)
}

// matchParen finds the parenthesis closing the one just before column col
// of line i. Quotes, brackets and trailing line comments are respected.
func matchParen(lines []string, i, col int) (int, int, error) {
	depth := 1
	var quote byte
	for l := i; l < len(lines); l++ {
		line := lines[l]
		c0 := 0
		if l == i {
			c0 = col
		}
		for c := c0; c < len(line); c++ {
			ch := line[c]
			if quote != 0 {
				if ch == '\\' {
					c++
				} else if ch == quote {
					quote = 0
				}
				continue
			}
			switch ch {
			case '"', '\'':
				quote = ch
			case '/':
				if c+1 < len(line) && line[c+1] == '/' {
					c = len(line)
				}
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
				if depth == 0 {
					if ch != ')' {
						return 0, 0, fmt.Errorf("%w: unbalanced %q", ErrUnterminated, ch)
					}
					return c, l, nil
				}
			}
		}
		if quote != 0 {
			return 0, 0, fmt.Errorf("%w: string not closed on line %d", ErrUnterminated, l+1)
		}
	}
	return 0, 0, fmt.Errorf("%w: missing ')'", ErrUnterminated)
}

// argText extracts the text between the opening and the closing parenthesis,
// dropping line comments.
func argText(lines []string, startLine, startCol, endLine, endCol int) string {
	var b strings.Builder
	for l := startLine; l <= endLine; l++ {
		from, to := 0, len(lines[l])
		if l == startLine {
			from = startCol
		}
		if l == endLine {
			to = endCol
		}
		seg := stripComment(lines[l][from:to])
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			return s[:i]
		}
	}
	return s
}

// --- Metadata --------------------------------------------------------------

type metaCollector struct {
	st      *parseState
	m       *Metadata
	inDesc  bool
	version string
	vline   int
	pos     string
	pline   int
}

func (mc *metaCollector) comment(line string, lineno int) {
	if m := metaLine.FindStringSubmatch(line); m != nil {
		mc.directive(m[1], m[2], lineno)
		return
	}
	if mc.inDesc {
		if m := commentRun.FindStringSubmatch(line); m != nil && m[1] != "" {
			if mc.m.Desc != "" {
				mc.m.Desc += " "
			}
			mc.m.Desc += m[1]
		}
	}
}

func (mc *metaCollector) endDesc() {
	mc.inDesc = false
}

func (mc *metaCollector) directive(key, value string, lineno int) {
	mc.inDesc = false
	switch strings.ToLower(key) {
	case "name":
		mc.m.Name = value
	case "title":
		mc.m.Title = value
	case "desc", "description":
		mc.m.Desc = value
		mc.inDesc = true
	case "author":
		mc.m.Author = value
	case "position":
		mc.pos, mc.pline = value, lineno
	case "version":
		mc.version, mc.vline = value, lineno
	default:
		if mc.m.Extra == nil {
			mc.m.Extra = make(map[string]string)
		}
		mc.m.Extra[key] = value
	}
}

func (mc *metaCollector) finish() {
	if mc.m.Name == "" {
		mc.m.Name = mc.m.Title
	} else if mc.m.Title == "" {
		mc.m.Title = mc.m.Name
	}
	mc.m.Position = Vice
	if mc.pos != "" {
		switch p := Position(strings.ToLower(mc.pos)); p {
		case Main, Vice:
			mc.m.Position = p
		default:
			mc.st.fail("@position", mc.pline, fmt.Errorf("%w: position %q, expected main or vice", ErrMetadata, mc.pos))
		}
	}
	mc.m.Version = 1
	if mc.version != "" {
		v, err := strconv.Atoi(mc.version)
		if err != nil || v < 1 {
			mc.st.fail("@version", mc.vline, fmt.Errorf("%w: version %q, expected a positive integer", ErrMetadata, mc.version))
		} else {
			mc.m.Version = v
		}
	}
}

// ErrorList renders a list of errors, one per line.
func ErrorList(errs []error) string {
	if err := errors.Join(errs...); err != nil {
		return err.Error()
	}
	return ""
}
