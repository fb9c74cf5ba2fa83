package draw

import (
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/chartscript/dsl"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func call(t *testing.T, ns *dsl.Object, op string, args ...dsl.Value) error {
	t.Helper()
	fn, ok := ns.Get(op)
	if !ok {
		t.Fatalf("namespace has no operation %q", op)
	}
	_, err := fn.AsFunc().Native(args)
	return err
}

func TestNamespaceRecords(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.draw")
	defer teardown()
	//
	rec := NewRecorder(Size{W: 200, H: 100})
	ns := Namespace(rec)
	series := dsl.List(dsl.Num(1), dsl.Null, dsl.Num(3))
	style := dsl.Obj(dsl.NewObject().Set("color", dsl.Str("#ff0000")).Set("width", dsl.Num(2)))
	if err := call(t, ns, "line", series, style); err != nil {
		t.Fatal(err)
	}
	if err := call(t, ns, "label", dsl.Num(2), dsl.Num(3), dsl.Str("top"), dsl.Str("red")); err != nil {
		t.Fatal(err)
	}
	if err := call(t, ns, "rect", dsl.Num(0), dsl.Num(1), dsl.Num(2), dsl.Num(3)); err != nil {
		t.Fatal(err)
	}
	if ops := strings.Join(rec.Ops(), ","); ops != "line,label,rect" {
		t.Errorf("Expected commands line,label,rect, are %s", ops)
	}
	cmds := rec.Commands()
	if cmds[0].Style["width"] != 2.0 || len(cmds[0].Series) != 3 {
		t.Errorf("unexpected line command %+v", cmds[0])
	}
	if cmds[1].Text != "top" || cmds[1].Style["color"] != "red" {
		t.Errorf("unexpected label command %+v", cmds[1])
	}
	if w, _ := ns.Get("width"); w.AsNum() != 200 {
		t.Errorf("Expected namespace width 200, is %v", w)
	}
}

func TestArgumentErrors(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.draw")
	defer teardown()
	//
	rec := NewRecorder(Size{W: 10, H: 10})
	ns := Namespace(rec)
	if err := call(t, ns, "line", dsl.Num(1)); !errors.Is(err, dsl.ErrArgument) {
		t.Errorf("Expected argument error for line without series, got %v", err)
	}
	if err := call(t, ns, "shape", dsl.Null, dsl.Num(1)); !errors.Is(err, dsl.ErrArgument) {
		t.Errorf("Expected argument error for shape without index, got %v", err)
	}
	if rec.Len() != 0 {
		t.Errorf("Expected failed operations not to record, have %d commands", rec.Len())
	}
}

func TestRestricted(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.draw")
	defer teardown()
	//
	ns := Restricted(NewRecorder(Size{}))
	for _, op := range Full {
		_, ok := ns.Get(op)
		allowed := op == "line" || op == "label" || op == "shape"
		if ok != allowed {
			t.Errorf("Expected operation %q availability to be %v", op, allowed)
		}
	}
}

func TestRecorderResizeClears(t *testing.T) {
	rec := NewRecorder(Size{W: 1, H: 1})
	rec.Add(Command{Op: "line"})
	rec.Resize(Size{W: 2, H: 2})
	if rec.Len() != 0 || rec.Size().W != 2 {
		t.Errorf("Expected resize to clear the recorder")
	}
}
