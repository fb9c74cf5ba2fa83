package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/npillmayer/chartscript/codegen"
	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/chartscript/script"
)

// ErrorKind classifies registry errors.
type ErrorKind string

const (
	ErrUnknownVersion    ErrorKind = "unknown version"
	ErrDuplicateVersion  ErrorKind = "duplicate version"
	ErrInvalidDescriptor ErrorKind = "invalid descriptor"
	ErrNoEngines         ErrorKind = "no engines"
)

// Error is the error type of registry operations.
type Error struct {
	Kind    ErrorKind
	Version int
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("engine v%d: %s: %s", e.Version, e.Kind, e.Message)
	}
	return fmt.Sprintf("engine v%d: %s", e.Version, e.Kind)
}

// Is matches errors of the same kind, so callers may test with
// errors.Is(err, &engine.Error{Kind: engine.ErrUnknownVersion}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Descriptor describes one version of the script engine.
type Descriptor struct {
	Version       int
	Parser        *script.Parser
	FunctionsName string
	Functions     *dsl.Object
	UtilsName     string
	Utils         *dsl.Object
	Keywords      script.Validator
}

// Environment returns the codegen environment of the descriptor.
func (d *Descriptor) Environment() codegen.Environment {
	return codegen.Environment{FunctionsName: d.FunctionsName, UtilsName: d.UtilsName}
}

func (d *Descriptor) validate() error {
	switch {
	case d == nil:
		return &Error{Kind: ErrInvalidDescriptor, Message: "descriptor is nil"}
	case d.Version < 1:
		return &Error{Kind: ErrInvalidDescriptor, Version: d.Version, Message: "version must be positive"}
	case d.Parser == nil:
		return &Error{Kind: ErrInvalidDescriptor, Version: d.Version, Message: "missing parser"}
	case d.FunctionsName == "" || d.Functions == nil:
		return &Error{Kind: ErrInvalidDescriptor, Version: d.Version, Message: "missing function namespace"}
	}
	return nil
}

// Registry maps versions to engine descriptors.
type Registry struct {
	mx          sync.RWMutex
	engines     *treemap.Map // int → *Descriptor
	defaultVers int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: treemap.NewWithIntComparator()}
}

// Register adds a descriptor. The first descriptor registered becomes the default.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	if _, found := r.engines.Get(d.Version); found {
		return &Error{Kind: ErrDuplicateVersion, Version: d.Version}
	}
	r.engines.Put(d.Version, d)
	if r.defaultVers == 0 {
		r.defaultVers = d.Version
	}
	tracer().Infof("registered script engine v%d", d.Version)
	return nil
}

// Get returns the descriptor for a version.
func (r *Registry) Get(version int) (*Descriptor, error) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	if d, found := r.engines.Get(version); found {
		return d.(*Descriptor), nil
	}
	return nil, &Error{Kind: ErrUnknownVersion, Version: version}
}

// Default returns the default descriptor.
func (r *Registry) Default() (*Descriptor, error) {
	r.mx.RLock()
	v := r.defaultVers
	r.mx.RUnlock()
	if v == 0 {
		return nil, &Error{Kind: ErrNoEngines}
	}
	return r.Get(v)
}

// SetDefault makes a registered version the default.
func (r *Registry) SetDefault(version int) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if _, found := r.engines.Get(version); !found {
		return &Error{Kind: ErrUnknownVersion, Version: version}
	}
	r.defaultVers = version
	return nil
}

// Available lists the registered versions in ascending order.
func (r *Registry) Available() []int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	keys := r.engines.Keys()
	versions := make([]int, len(keys))
	for i, k := range keys {
		versions[i] = k.(int)
	}
	return versions
}

var versionDirective = regexp.MustCompile(`(?m)^\s*(?://\s*)?@version\s*(?:[=:]\s*)?(\S+)\s*$`)

// DetectVersion reads the version directive of a source. Without a valid
// directive it returns the highest registered version, or the default
// version if none is registered.
func (r *Registry) DetectVersion(src string) int {
	if m := versionDirective.FindStringSubmatch(src); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			return v
		}
	}
	if vs := r.Available(); len(vs) > 0 {
		return vs[len(vs)-1]
	}
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.defaultVers
}

// ValidateVersion detects the version of a source and returns its
// descriptor, or an *Error of kind ErrUnknownVersion.
func (r *Registry) ValidateVersion(src string) (*Descriptor, error) {
	v := r.DetectVersion(src)
	d, err := r.Get(v)
	if err != nil {
		tracer().Errorf("script requests unregistered engine version %d", v)
		return nil, &Error{Kind: ErrUnknownVersion, Version: v,
			Message: fmt.Sprintf("available versions are %v", r.Available())}
	}
	return d, nil
}
