package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestFrameCoalescing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.loop")
	defer teardown()
	//
	l := New()
	calls := 0
	redraw := func() { calls++ }
	if !l.RequestFrame("pane", redraw) {
		t.Errorf("Expected first request to schedule a frame")
	}
	for i := 0; i < 5; i++ {
		if l.RequestFrame("pane", redraw) {
			t.Errorf("Expected repeated request to be coalesced")
		}
	}
	l.RequestFrame("other", redraw)
	l.Tick()
	if calls != 2 {
		t.Errorf("Expected 2 frame callbacks, have %d", calls)
	}
	if l.Frame() != 1 || l.Pending() {
		t.Errorf("Expected one frame and nothing pending")
	}
}

func TestTasksRunBeforeFrames(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.loop")
	defer teardown()
	//
	l := New()
	var trace []string
	l.RequestFrame("f", func() { trace = append(trace, "frame") })
	l.Post(func() {
		trace = append(trace, "task")
		l.Post(func() { trace = append(trace, "nested") })
	})
	l.Tick()
	if len(trace) != 3 || trace[0] != "task" || trace[1] != "nested" || trace[2] != "frame" {
		t.Errorf("Expected task, nested, frame; is %v", trace)
	}
}

func TestPostFromGoroutines(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.loop")
	defer teardown()
	//
	l := New()
	var wg sync.WaitGroup
	sum := 0
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Post(func() { sum += n })
		}(i)
	}
	wg.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Settle(ctx); err != nil {
		t.Fatal(err)
	}
	if sum != 55 {
		t.Errorf("Expected all posted tasks to run on the loop, sum is %d", sum)
	}
}

func TestWaitTimesOut(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Errorf("Expected idle loop to time out")
	}
}

func TestGuard(t *testing.T) {
	var g Guard
	if !g.TryEnter() || g.TryEnter() || !g.Busy() {
		t.Errorf("Expected guard to admit exactly once")
	}
	g.Leave()
	if g.Busy() || !g.TryEnter() {
		t.Errorf("Expected released guard to admit again")
	}
}
