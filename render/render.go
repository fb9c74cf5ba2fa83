/*
Package render implements the per-instance render cache.

A Cache holds an offscreen recorder sized to the bounds of the instance's
pane and a dirty flag. Drawing re-executes the routine only if the cache
is dirty; otherwise the recorded content is reused. The cache never derives
dirtiness from content: it becomes dirty on creation, on a change of
bounds and when invalidated from outside.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package render

import (
	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'chartscript.render'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.render")
}

// Cache is the render cache of one script instance. It is not safe for
// concurrent use.
type Cache struct {
	buf   *draw.Recorder
	dirty bool
	size  draw.Size
	execs int
}

// NewCache creates an empty, dirty cache.
func NewCache() *Cache {
	return &Cache{buf: draw.NewRecorder(draw.Size{}), dirty: true}
}

// Invalidate marks the cache dirty. The next draw re-executes.
func (c *Cache) Invalidate() {
	c.dirty = true
}

// Dirty tells whether the next draw will re-execute.
func (c *Cache) Dirty() bool {
	return c.dirty
}

// Executions counts how often the cache has run its exec function.
func (c *Cache) Executions() int {
	return c.execs
}

// Buffer returns the offscreen recorder.
func (c *Cache) Buffer() *draw.Recorder {
	return c.buf
}

// Draw renders into target at the origin of bounds. If the bounds changed
// size, the buffer is resized and marked dirty. If dirty, the buffer is
// cleared and exec runs against it. The buffer is composited in any case.
//
// If exec fails, the buffer is left empty and the cache is clean: the
// failing frame draws nothing until the next invalidation.
func (c *Cache) Draw(bounds draw.Rect, target draw.Target, exec func(draw.Surface) error) error {
	if bounds.Size != c.size {
		tracer().Debugf("render cache resized to %gx%g", bounds.Size.W, bounds.Size.H)
		c.size = bounds.Size
		c.buf.Resize(bounds.Size)
		c.dirty = true
	}
	var err error
	if c.dirty {
		c.buf.Clear()
		c.execs++
		if err = exec(c.buf); err != nil {
			c.buf.Clear()
		}
		c.dirty = false
	}
	if target != nil {
		target.Composite(c.buf, bounds.Origin)
	}
	return err
}
