package main

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestPresetArgs(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.crepl")
	defer teardown()
	//
	p, err := presetArgs([]string{"period=50", "src=close", `stroke={"width":3}`})
	if err != nil {
		t.Fatal(err)
	}
	if p[0].Value != 50.0 || p[1].Value != "close" {
		t.Errorf("unexpected presets %v", p)
	}
	if m, ok := p[2].Value.(map[string]interface{}); !ok || m["width"] != 3.0 {
		t.Errorf("Expected stroke to be an object, is %v", p[2].Value)
	}
	if _, err := presetArgs([]string{"period"}); err == nil {
		t.Errorf("Expected error for argument without value")
	}
}

func TestRandomWalk(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.crepl")
	defer teardown()
	//
	for i, test := range []struct {
		period string
		step   int64
	}{
		{"1m", 60}, {"15m", 900}, {"4h", 14400}, {"1d", 86400}, {"x", 3600},
	} {
		if s := periodSeconds(test.period); s != test.step {
			t.Errorf("test %d: Expected step of %s to be %d, is %d", i, test.period, test.step, s)
		}
	}
	candles := randomWalk(50, 100, "1h")
	if len(candles) != 50 {
		t.Fatalf("Expected 50 candles, are %d", len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Time-candles[i-1].Time != 3600 || candles[i].Open != candles[i-1].Close {
			t.Errorf("candle %d does not continue candle %d", i, i-1)
		}
		if candles[i].High < candles[i].Close || candles[i].Low > candles[i].Close {
			t.Errorf("candle %d has close outside of its range", i)
		}
	}
}
