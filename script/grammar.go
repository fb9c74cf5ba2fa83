package script

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
	"golang.org/x/exp/slices"
)

// Validator decides whether a key may be declared at all. A non-nil error
// drops the declaration.
type Validator interface {
	Validate(key string) error
}

// Advisor gives naming advice for keys which are legal but unfortunate.
// Advice never drops a declaration.
type Advisor interface {
	Advise(key string) (hint string, ok bool)
}

// Grammar configures the declaration namespaces of a script dialect.
type Grammar struct {
	InputNamespace string   // "input"
	StyleNamespace string   // "style"
	CallNamespace  string   // "http"
	CallMethods    []string // "loadHistory", "get", "post"
	Validator      Validator
	Advisor        Advisor
}

// DefaultGrammar returns the grammar of the standard dialect, with a keyword
// validator holding the language's reserved words and a default advisor.
func DefaultGrammar() Grammar {
	return Grammar{
		InputNamespace: "input",
		StyleNamespace: "style",
		CallNamespace:  "http",
		CallMethods:    []string{"loadHistory", "get", "post"},
		Validator:      NewKeywords(),
		Advisor:        NewTermAdvisor(),
	}
}

var reservedWords = []string{
	"await", "break", "case", "catch", "class", "const", "continue", "debugger",
	"default", "delete", "do", "else", "enum", "export", "extends", "false",
	"finally", "for", "function", "if", "implements", "import", "in",
	"instanceof", "interface", "let", "new", "null", "of", "package", "private",
	"protected", "public", "return", "static", "super", "switch", "this",
	"throw", "true", "try", "typeof", "undefined", "var", "void", "while",
	"with", "yield", "NaN", "Infinity",
}

// Keywords is a Validator rejecting reserved words and names owned by the
// host, e.g. context channels and engine functions.
type Keywords struct {
	reserved *treeset.Set
	host     *treeset.Set
}

// NewKeywords creates a keyword validator. hostNames are names the runtime
// environment binds, which scripts must not shadow.
func NewKeywords(hostNames ...string) *Keywords {
	kw := &Keywords{
		reserved: treeset.NewWithStringComparator(),
		host:     treeset.NewWithStringComparator(),
	}
	for _, w := range reservedWords {
		kw.reserved.Add(w)
	}
	kw.Reserve(hostNames...)
	return kw
}

// Reserve adds host names.
func (kw *Keywords) Reserve(names ...string) *Keywords {
	for _, n := range names {
		kw.host.Add(n)
	}
	return kw
}

// Validate is part of interface Validator.
func (kw *Keywords) Validate(key string) error {
	if kw.reserved.Contains(key) {
		return fmt.Errorf("%w: %q is a keyword", ErrReserved, key)
	}
	if kw.host.Contains(key) {
		return fmt.Errorf("%w: %q is provided by the chart environment", ErrReserved, key)
	}
	return nil
}

// Words lists all rejected words, sorted.
func (kw *Keywords) Words() []string {
	var words []string
	for _, set := range []*treeset.Set{kw.reserved, kw.host} {
		for _, w := range set.Values() {
			words = append(words, w.(string))
		}
	}
	slices.Sort(words)
	return slices.Compact(words)
}

// TermAdvisor advises against generic names and against trading terms which
// read like signals.
type TermAdvisor struct {
	generic *treeset.Set
	domain  *treeset.Set
}

var genericTerms = []string{
	"a", "arr", "b", "data", "i", "item", "j", "list", "n", "res", "result",
	"temp", "tmp", "val", "value", "x", "y",
}

var domainTerms = []string{
	"buy", "entry", "exit", "long", "loss", "profit", "risk", "sell", "short",
	"trend",
}

// NewTermAdvisor creates an advisor with the default term lists.
func NewTermAdvisor() *TermAdvisor {
	ta := &TermAdvisor{
		generic: treeset.NewWithStringComparator(),
		domain:  treeset.NewWithStringComparator(),
	}
	for _, t := range genericTerms {
		ta.generic.Add(t)
	}
	for _, t := range domainTerms {
		ta.domain.Add(t)
	}
	return ta
}

// Advise is part of interface Advisor.
func (ta *TermAdvisor) Advise(key string) (string, bool) {
	k := strings.ToLower(key)
	if ta.generic.Contains(k) {
		return fmt.Sprintf("%q is a generic name; a descriptive key makes the settings panel readable", key), true
	}
	if ta.domain.Contains(k) {
		return fmt.Sprintf("%q reads like a trading signal; consider naming what the value measures", key), true
	}
	return "", false
}
