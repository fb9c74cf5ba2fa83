/*
Package store persists scripts together with their configuration.

Sources and preset values are owned by the host application, not by the
script engine. Package store gives hosts a small interface for keeping
them, with implementations on SQLite (package store/sqlite) and Redis
(package store/redis), and helpers to snapshot and restore the instances
of a runtime manager.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/npillmayer/chartscript/manager"
	"github.com/npillmayer/chartscript/script"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'chartscript.store'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.store")
}

// ErrNotFound is returned for keys without a record.
var ErrNotFound = errors.New("script not found")

// Record is a stored script.
type Record struct {
	Key     string                 `json:"key"`
	Origin  string                 `json:"origin,omitempty"`
	Source  string                 `json:"source"`
	Visible bool                   `json:"visible"`
	Inputs  map[string]interface{} `json:"inputs,omitempty"`
	Styles  map[string]interface{} `json:"styles,omitempty"`
}

// Presets returns the configuration of the record as presets.
func (r Record) Presets() script.Presets {
	return script.PresetsFromMaps(r.Inputs, r.Styles)
}

// Scripts stores records by key.
type Scripts interface {
	Save(ctx context.Context, r Record) error
	Load(ctx context.Context, key string) (Record, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Memory is an in-memory store. It is safe for concurrent use.
type Memory struct {
	mx      sync.RWMutex
	records map[string]Record
}

var _ Scripts = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Save stores r under r.Key.
func (m *Memory) Save(ctx context.Context, r Record) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.records[r.Key] = r
	return nil
}

// Load returns the record of key.
func (m *Memory) Load(ctx context.Context, key string) (Record, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	r, ok := m.records[key]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return r, nil
}

// Delete removes the record of key. Deleting a missing key is not an error.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	delete(m.records, key)
	return nil
}

// Keys returns all keys, sorted.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	keys := maps.Keys(m.records)
	slices.Sort(keys)
	return keys, nil
}

// RecordOf snapshots an instance.
func RecordOf(inst *manager.Instance) Record {
	inputs, styles := inst.Config()
	return Record{
		Key:     inst.Key(),
		Origin:  inst.Origin(),
		Source:  inst.Source(),
		Visible: inst.Visible(),
		Inputs:  inputs,
		Styles:  styles,
	}
}

// SaveAll stores a record of every instance of a manager.
func SaveAll(ctx context.Context, s Scripts, m *manager.Manager) error {
	for _, key := range m.Keys() {
		if err := s.Save(ctx, RecordOf(m.Instance(key))); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}
	return nil
}

// Restore registers every stored script with a manager. Scripts which fail
// to register are skipped; their errors are joined into the result.
func Restore(ctx context.Context, s Scripts, m *manager.Manager) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	n := 0
	for _, key := range keys {
		r, err := s.Load(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, _, err := m.Register(r.Key, r.Source, manager.RegisterOptions{
			Origin:  r.Origin,
			Presets: r.Presets(),
		}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		m.SetVisible(r.Key, r.Visible)
		n++
	}
	tracer().Infof("restored %d of %d scripts", n, len(keys))
	return n, errors.Join(errs...)
}
