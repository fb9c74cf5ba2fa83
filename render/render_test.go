package render

import (
	"errors"
	"testing"

	"github.com/npillmayer/chartscript/draw"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

type target struct {
	composites int
	last       draw.Point
	ops        int
}

func (t *target) Composite(r *draw.Recorder, at draw.Point) {
	t.composites++
	t.last = at
	t.ops = r.Len()
}

func TestCacheReuse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.render")
	defer teardown()
	//
	c := NewCache()
	tgt := &target{}
	exec := func(s draw.Surface) error {
		s.Add(draw.Command{Op: "line"})
		return nil
	}
	bounds := draw.R(10, 20, 100, 50)
	for i := 0; i < 3; i++ {
		if err := c.Draw(bounds, tgt, exec); err != nil {
			t.Fatal(err)
		}
	}
	if c.Executions() != 1 {
		t.Errorf("Expected a single execution for unchanged bounds, have %d", c.Executions())
	}
	if tgt.composites != 3 || tgt.ops != 1 || tgt.last != (draw.Point{X: 10, Y: 20}) {
		t.Errorf("Expected 3 composites of the cached buffer at (10,20), have %+v", tgt)
	}
	c.Invalidate()
	_ = c.Draw(bounds, tgt, exec)
	_ = c.Draw(draw.R(0, 0, 120, 50), tgt, exec)
	if c.Executions() != 3 {
		t.Errorf("Expected invalidation and resize to re-execute, executions are %d", c.Executions())
	}
}

func TestCacheMovedBoundsDoNotReexecute(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.render")
	defer teardown()
	//
	c := NewCache()
	tgt := &target{}
	exec := func(draw.Surface) error { return nil }
	_ = c.Draw(draw.R(0, 0, 10, 10), tgt, exec)
	_ = c.Draw(draw.R(5, 5, 10, 10), tgt, exec)
	if c.Executions() != 1 || tgt.last.X != 5 {
		t.Errorf("Expected moving the pane to only move the composite")
	}
}

func TestCacheFailure(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.render")
	defer teardown()
	//
	c := NewCache()
	tgt := &target{}
	boom := errors.New("boom")
	err := c.Draw(draw.R(0, 0, 10, 10), tgt, func(s draw.Surface) error {
		s.Add(draw.Command{Op: "line"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected exec error to be returned, got %v", err)
	}
	if c.Dirty() || tgt.ops != 0 {
		t.Errorf("Expected failed frame to draw nothing and leave the cache clean")
	}
}
