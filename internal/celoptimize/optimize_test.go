package celoptimize

import (
	"reflect"
	"regexp"
	"testing"

	"cel/internal/celast"
	"cel/internal/celvalue"

	"github.com/kr/pretty"
)

func intLit(id int64, v int64) *celast.InlineValue {
	return celast.NewInlineValue(id, celvalue.Int(v))
}

func TestFoldListLiteral(t *testing.T) {
	n := celast.NewList(1, celast.Arg{Value: intLit(2, 1)}, celast.Arg{Value: intLit(3, 2)})
	got := Fold(n, nil)
	inline, ok := got.(*celast.InlineValue)
	if !ok {
		t.Fatalf("expected InlineValue, got %T", got)
	}
	want := celvalue.List(celvalue.Int(1), celvalue.Int(2))
	if !reflect.DeepEqual(inline.Value.ListValue(), want.ListValue()) {
		t.Fatalf("folded list = %# v, want %# v", pretty.Formatter(inline.Value), pretty.Formatter(want))
	}
}

func TestFoldMapLiteralBadKeyRevertsToRuntime(t *testing.T) {
	// A double can't become a Key, so the map literal must stay a runtime
	// Map node rather than folding to an InlineValue (§4.4).
	n := celast.NewMap(1, celast.MapEntryNode{
		Key:   celast.NewInlineValue(2, celvalue.Double(1.5)),
		Value: intLit(3, 9),
	})
	got := Fold(n, nil)
	if _, ok := got.(*celast.Map); !ok {
		t.Fatalf("expected the node to revert to *celast.Map, got %T", got)
	}
}

func TestFoldIdempotent(t *testing.T) {
	n := celast.NewList(1, celast.Arg{Value: intLit(2, 1)}, celast.Arg{Value: intLit(3, 2)})
	once := Fold(n, nil)
	twice := Fold(once, nil)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("Fold is not idempotent: %# v != %# v", pretty.Formatter(once), pretty.Formatter(twice))
	}
}

// regexObject is an example Object implementing the spec §4.4 example of a
// hook that pre-compiles a regex string literal into an opaque method-call
// object, grounded on SPEC_FULL.md's domain-stack guidance.
type regexObject struct {
	re *regexp.Regexp
}

func (r regexObject) TypeName() string { return "regex" }
func (r regexObject) Field(string) (celvalue.Value, bool) { return celvalue.Value{}, false }
func (r regexObject) Method(name string) (func([]celvalue.Value) (celvalue.Value, error), bool) {
	if name != "matches" {
		return nil, false
	}
	return func(args []celvalue.Value) (celvalue.Value, error) {
		return celvalue.Bool(r.re.MatchString(args[0].StringValue())), nil
	}, true
}
func (r regexObject) Equal(other celvalue.Object) bool {
	o, ok := other.(regexObject)
	return ok && o.re.String() == r.re.String()
}

func TestHookPrecompilesRegexLiteral(t *testing.T) {
	// A call `matches(r"^a+$")` whose sole argument folded to a string
	// literal is replaced as a whole by an InlineValue holding a
	// pre-compiled regex object.
	call := celast.NewCall(1, nil, "matches", celast.NewInlineValue(2, celvalue.String("^a+$")))

	hook := func(n celast.Node) celast.Node {
		c, ok := n.(*celast.Call)
		if !ok || c.Function != "matches" || len(c.Args) != 1 {
			return nil
		}
		lit, ok := c.Args[0].(*celast.InlineValue)
		if !ok || lit.Value.Kind() != celvalue.KindString {
			return nil
		}
		re, err := regexp.Compile(lit.Value.StringValue())
		if err != nil {
			return nil
		}
		return celast.NewInlineValue(c.ID(), celvalue.ObjectValue(regexObject{re: re}))
	}

	got := Fold(call, hook)
	inline, ok := got.(*celast.InlineValue)
	if !ok {
		t.Fatalf("expected hook to replace call with InlineValue, got %T", got)
	}
	if inline.Value.TypeName() != "regex" {
		t.Fatalf("TypeName() = %s, want regex", inline.Value.TypeName())
	}
}
