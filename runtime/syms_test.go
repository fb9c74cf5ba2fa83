package runtime

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestNewSymTab(t *testing.T) {
	symtab := NewSymbolTable()
	if symtab == nil {
		t.Error("no symbol table created")
	}
}

func TestNewSymbol(t *testing.T) {
	symtab := NewSymbolTable()
	sym, _ := symtab.DefineTag("new-sym")
	if sym == nil {
		t.Error("no symbol created for table")
	}
	sym.UData = 5
	if sym.Value() != 5 {
		t.Errorf("Expected value of tag to be 5, is %v", sym.Value())
	}
}

func TestResolveOrDefineTag(t *testing.T) {
	symtab := NewSymbolTable()
	sym, _ := symtab.DefineTag("new-sym")
	if _, found := symtab.ResolveOrDefineTag(sym.Name()); !found {
		t.Error("cannot find stored symbol in table")
	}
	if _, found := symtab.ResolveOrDefineTag("other"); found {
		t.Error("Expected 'other' to be newly defined")
	}
	if symtab.Size() != 2 {
		t.Errorf("Expected symbol table size to be 2, is %d", symtab.Size())
	}
}

func TestDefineTag(t *testing.T) {
	symtab := NewSymbolTable()
	sym, _ := symtab.DefineTag("new-sym")
	if _, old := symtab.DefineTag("new-sym"); old != sym {
		t.Error("symbol should have been replaced")
	}
}

func TestScopeUpsearch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.runtime")
	defer teardown()
	//
	scopep := NewScope("parent", nil)
	scope := NewScope("current", scopep)
	scopep.DefineTag("new-sym")
	sym, found := scope.ResolveTag("new-sym")
	if sym == nil || found != scopep {
		t.Errorf("Expected 'new-sym' to be found in parent scope")
	}
	if sym, sc := scope.ResolveTag("missing"); sym != nil || sc != nil {
		t.Errorf("Expected unknown tag not to resolve")
	}
}

func TestReferenceTag(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.runtime")
	defer teardown()
	//
	store := map[string]interface{}{"period": 20}
	tag := NewTag("period").Bind(func() interface{} { return store["period"] })
	if !tag.IsReference() || tag.Value() != 20 {
		t.Fatalf("Expected reference tag to read 20, is %v", tag.Value())
	}
	store["period"] = 50
	if tag.Value() != 50 {
		t.Errorf("Expected reference tag to observe update to 50, is %v", tag.Value())
	}
	tag.Set(7)
	if tag.IsReference() || tag.Value() != 7 {
		t.Errorf("Expected assigned tag to hold 7, is %v", tag.Value())
	}
	if store["period"] != 50 {
		t.Errorf("Expected referenced storage to be untouched, is %v", store["period"])
	}
}

func TestCallDepth(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.runtime")
	defer teardown()
	//
	rt := NewRuntimeEnvironment(nil, 3)
	f1, err := rt.Call("f", rt.Globals)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := rt.Call("g", f1.Scope)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Call("h", f2.Scope); err != ErrStackOverflow {
		t.Errorf("Expected stack overflow at depth 3, got %v", err)
	}
	if f2.Scope.Parent != f1.Scope {
		t.Errorf("Expected call scope to link to defining scope")
	}
	rt.Return(f1)
	if rt.MemFrameStack.Depth() != 1 {
		t.Errorf("Expected only the global frame to remain, depth is %d", rt.MemFrameStack.Depth())
	}
}

func TestScopeTree(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "chartscript.runtime")
	defer teardown()
	//
	st := &ScopeTree{}
	g := st.PushNewScope("globals")
	g.DefineTag("a")
	fn := st.PushNewScope("fn")
	fn.DefineTag("b")
	if tag, _ := st.Current().ResolveTag("a"); tag == nil {
		t.Errorf("Expected 'a' to be visible in nested scope")
	}
	st.PopScope()
	if tag, _ := st.Current().ResolveTag("b"); tag != nil {
		t.Errorf("Expected 'b' to be invisible after popping its scope")
	}
	if st.Globals() != g {
		t.Errorf("Expected global scope to be the tree's base")
	}
}
