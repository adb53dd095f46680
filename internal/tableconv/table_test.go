package tableconv

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/p4lang/p4c-bm2json/internal/arch"
	"github.com/p4lang/p4c-bm2json/internal/cfg"
	"github.com/p4lang/p4c-bm2json/internal/convert"
	"github.com/p4lang/p4c-bm2json/internal/document"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func testConverter() *Converter {
	log := logrus.New()
	log.SetOutput(nullWriter{})
	a := arch.V1Model()
	sink := emitctl.NewSink(log)
	return &Converter{
		Arch: a,
		Sink: sink,
		Conv: &convert.Converter{
			Arch:            a,
			Sink:            sink,
			ParamIndex:      map[string]int{},
			ScalarsName:     "scalars",
			ScalarFieldName: map[string]string{},
		},
		IDs:                document.NewIDGroups(),
		ActionIDs:          map[string]int{"drop": 0, "fwd": 1},
		DirectCounterOwner: map[string]string{},
		DirectMeterInfo:    map[string]*DirectMeterInfo{},
		ActionProfiles:     map[string]*document.ActionProfile{},
	}
}

func simpleTable(name string) *ir.P4Table {
	return &ir.P4Table{
		Name: name,
		Keys: []ir.TableKey{
			{Expr: ir.Member{Expr: ir.PathExpression{Path: ".hdr.ipv4"}, Name: "dstAddr"}, MatchType: "lpm"},
		},
		Actions: []ir.Expression{
			ir.PathExpression{Path: "drop"},
			ir.PathExpression{Path: "fwd"},
		},
	}
}

func TestConvertAssignsNameAndID(t *testing.T) {
	c := testConverter()
	out := c.Convert(simpleTable("ipv4_lpm"), nil)
	if out.Name != "ipv4_lpm" {
		t.Errorf("Name = %q, want ipv4_lpm", out.Name)
	}
	if out.Type != "simple" {
		t.Errorf("Type = %q, want simple (no implementation property set)", out.Type)
	}
}

func TestConvertKeysPicksMostSpecificMatchType(t *testing.T) {
	c := testConverter()
	table := &ir.P4Table{
		Name: "t",
		Keys: []ir.TableKey{
			{Expr: ir.PathExpression{Path: ".hdr.a"}, MatchType: "exact"},
			{Expr: ir.PathExpression{Path: ".hdr.b"}, MatchType: "lpm"},
			{Expr: ir.PathExpression{Path: ".hdr.c"}, MatchType: "ternary"},
		},
	}
	out := c.Convert(table, nil)
	if out.MatchType != "ternary" {
		t.Errorf("MatchType = %q, want ternary (most specific of exact/lpm/ternary)", out.MatchType)
	}
	if len(out.Key) != 3 {
		t.Fatalf("got %d key elements, want 3", len(out.Key))
	}
}

func TestConvertKeysSkipsSelectorKeys(t *testing.T) {
	c := testConverter()
	table := &ir.P4Table{
		Name: "t",
		Keys: []ir.TableKey{
			{Expr: ir.PathExpression{Path: ".hdr.a"}, MatchType: "exact"},
			{Expr: ir.PathExpression{Path: ".hdr.b"}, MatchType: "selector"},
		},
	}
	out := c.Convert(table, nil)
	if len(out.Key) != 1 {
		t.Fatalf("got %d key elements, want 1 (selector key excluded)", len(out.Key))
	}
}

func TestConvertKeysExtractsTernaryMask(t *testing.T) {
	c := testConverter()
	masked := ir.BinaryOp{
		Op:    "&",
		Left:  ir.PathExpression{Path: ".hdr.flags"},
		Right: ir.Constant{Value: 0x0f},
	}
	table := &ir.P4Table{Name: "t", Keys: []ir.TableKey{{Expr: masked, MatchType: "ternary"}}}
	out := c.Convert(table, nil)
	if len(out.Key) != 1 {
		t.Fatalf("got %d key elements, want 1", len(out.Key))
	}
	if out.Key[0].Mask != "0x0f" {
		t.Errorf("Mask = %#v, want 0x0f (padded to the default 8-bit width)", out.Key[0].Mask)
	}
}

func TestConvertDefaultTableSizeFromArch(t *testing.T) {
	c := testConverter()
	out := c.Convert(simpleTable("t"), nil)
	if out.MaxSize != c.Arch.DefaultTableSize {
		t.Errorf("MaxSize = %d, want arch default %d", out.MaxSize, c.Arch.DefaultTableSize)
	}
}

func TestConvertSizePropertyOverridesDefault(t *testing.T) {
	c := testConverter()
	table := simpleTable("t")
	table.Properties = []ir.TableProperty{{Name: "size", Value: ir.Constant{Value: 512}}}
	out := c.Convert(table, nil)
	if out.MaxSize != 512 {
		t.Errorf("MaxSize = %d, want 512 (overridden by size property)", out.MaxSize)
	}
}

func TestConvertActionListResolvesKnownIDs(t *testing.T) {
	c := testConverter()
	out := c.Convert(simpleTable("t"), nil)
	if len(out.Actions) != 2 || out.Actions[0] != "drop" || out.Actions[1] != "fwd" {
		t.Fatalf("Actions = %#v, want [drop fwd]", out.Actions)
	}
	if len(out.ActionIDs) != 2 {
		t.Fatalf("ActionIDs = %#v, want 2 resolved ids", out.ActionIDs)
	}
}

func TestComputeNextTablesHitMiss(t *testing.T) {
	c := testConverter()
	out := document.Table{NextTables: map[string]any{}}
	node := &cfg.Node{HasHitMiss: true, HitNext: "next_a", MissNext: ""}
	c.computeNextTables(&out, node)

	if out.NextTables["__HIT__"] != "next_a" {
		t.Errorf("__HIT__ = %#v, want next_a", out.NextTables["__HIT__"])
	}
	if out.NextTables["__MISS__"] != nil {
		t.Errorf("__MISS__ = %#v, want nil", out.NextTables["__MISS__"])
	}
	if out.BaseDefaultNext != nil {
		t.Errorf("BaseDefaultNext = %#v, want nil for a hit/miss node", out.BaseDefaultNext)
	}
}

func TestComputeNextTablesDefaultFallthrough(t *testing.T) {
	c := testConverter()
	out := document.Table{Actions: []string{"drop", "fwd"}, NextTables: map[string]any{}}
	node := &cfg.Node{DefaultNext: "epilogue", ActionCases: map[string]string{"fwd": "special"}}
	c.computeNextTables(&out, node)

	if out.BaseDefaultNext != "epilogue" {
		t.Errorf("BaseDefaultNext = %#v, want epilogue", out.BaseDefaultNext)
	}
	if out.NextTables["drop"] != "epilogue" {
		t.Errorf("NextTables[drop] = %#v, want epilogue (unlisted action falls to default)", out.NextTables["drop"])
	}
	if out.NextTables["fwd"] != "special" {
		t.Errorf("NextTables[fwd] = %#v, want special (explicit action case)", out.NextTables["fwd"])
	}
}

func TestResolveImplementationDefaultsToSimple(t *testing.T) {
	c := testConverter()
	implType, profile := c.resolveImplementation(simpleTable("t"))
	if implType != "simple" || profile != "" {
		t.Errorf("resolveImplementation = (%q, %q), want (simple, \"\")", implType, profile)
	}
}

func TestResolveImplementationIndirect(t *testing.T) {
	c := testConverter()
	table := simpleTable("t")
	table.Properties = []ir.TableProperty{{Name: "implementation", Value: ir.PathExpression{Path: "ap"}}}
	implType, profile := c.resolveImplementation(table)
	if implType != "indirect" || profile != "ap" {
		t.Errorf("resolveImplementation = (%q, %q), want (indirect, ap)", implType, profile)
	}
}

func TestResolveImplementationIndirectWithSelector(t *testing.T) {
	c := testConverter()
	c.ActionProfiles["ap"] = &document.ActionProfile{Name: "ap", Selector: &document.SelectorSpec{}}
	table := simpleTable("t")
	table.Properties = []ir.TableProperty{{Name: "implementation", Value: ir.PathExpression{Path: "ap"}}}
	implType, _ := c.resolveImplementation(table)
	if implType != "indirect_ws" {
		t.Errorf("implType = %q, want indirect_ws when the profile has a selector", implType)
	}
}

func TestBindDirectCounterRejectsMultipleTables(t *testing.T) {
	c := testConverter()
	c.bindDirectCounter("cnt", "t1")
	c.bindDirectCounter("cnt", "t2")
	if c.Sink.Count() != 1 {
		t.Fatalf("sink.Count() = %d, want 1 (direct counter reused across tables)", c.Sink.Count())
	}
}

func TestBindDirectMeterRejectsMultipleTables(t *testing.T) {
	c := testConverter()
	c.bindDirectMeter("m", "t1", 100)
	c.bindDirectMeter("m", "t2", 200)
	if c.Sink.Count() != 1 {
		t.Fatalf("sink.Count() = %d, want 1 (direct meter reused across tables)", c.Sink.Count())
	}
}

func TestPrefixLengthContiguousMask(t *testing.T) {
	if got := prefixLength(0xFFFFFF00); got != 24 {
		t.Errorf("prefixLength(0xFFFFFF00) = %d, want 24", got)
	}
}

func TestPrefixLengthRejectsNonContiguousMask(t *testing.T) {
	if got := prefixLength(0xF0F0); got != -1 {
		t.Errorf("prefixLength(0xF0F0) = %d, want -1 (not a contiguous prefix)", got)
	}
}

func TestEntryKeyExact(t *testing.T) {
	c := testConverter()
	got := c.entryKey(ir.Constant{Value: 10, Type: ir.Bits{Width: 32}}, c.Arch.MatchTypes.Exact, 32)
	if got != "0x0000000a" {
		t.Errorf("entryKey(exact) = %#v, want 0x0000000a (padded to the 32-bit key width)", got)
	}
}

func TestEntryKeyLPMComputesPrefixLength(t *testing.T) {
	c := testConverter()
	mask := ir.Mask{Value: ir.Constant{Value: 0xC0A80000, Type: ir.Bits{Width: 32}}, Mask: ir.Constant{Value: 0xFFFF0000}}
	got := c.entryKey(mask, c.Arch.MatchTypes.LPM, 32)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("entryKey(lpm) = %#v, want a map", got)
	}
	if m["prefix_length"] != 16 {
		t.Errorf("prefix_length = %#v, want 16", m["prefix_length"])
	}
}

func TestEntryKeyLPMBareConstantIsFullPrefix(t *testing.T) {
	c := testConverter()
	got := c.entryKey(ir.Constant{Value: 0xC0A80001, Type: ir.Bits{Width: 32}}, c.Arch.MatchTypes.LPM, 32)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("entryKey(lpm, bare constant) = %#v, want a map", got)
	}
	if m["prefix_length"] != 32 {
		t.Errorf("prefix_length = %#v, want 32 (bare constant matches the full key width)", m["prefix_length"])
	}
}

func TestEntryKeyLPMDefaultExpressionIsZeroPrefix(t *testing.T) {
	c := testConverter()
	got := c.entryKey(ir.DefaultExpression{}, c.Arch.MatchTypes.LPM, 32)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("entryKey(lpm, default) = %#v, want a map", got)
	}
	if m["prefix_length"] != 0 {
		t.Errorf("prefix_length = %#v, want 0 (don't-care LPM entry)", m["prefix_length"])
	}
	if m["value"] != "0x00000000" {
		t.Errorf("value = %#v, want 0x00000000", m["value"])
	}
}

func TestEntryKeyTernaryBareConstantIsFullMask(t *testing.T) {
	c := testConverter()
	got := c.entryKey(ir.Constant{Value: 5, Type: ir.Bits{Width: 8}}, c.Arch.MatchTypes.Ternary, 8)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("entryKey(ternary, bare constant) = %#v, want a map", got)
	}
	if m["mask"] != "0xff" {
		t.Errorf("mask = %#v, want 0xff (bare constant under ternary matches exactly)", m["mask"])
	}
}

func TestEntryKeyRange(t *testing.T) {
	c := testConverter()
	r := ir.Range{Lo: ir.Constant{Value: 10, Type: ir.Bits{Width: 16}}, Hi: ir.Constant{Value: 20, Type: ir.Bits{Width: 16}}}
	got := c.entryKey(r, c.Arch.MatchTypes.Range, 16)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("entryKey(range) = %#v, want a map", got)
	}
	if m["start"] != "0x000a" || m["end"] != "0x0014" {
		t.Errorf("entryKey(range) = %#v, want start 0x000a, end 0x0014", m)
	}
}

func TestEntryKeyRangeDefaultExpressionIsFullSpan(t *testing.T) {
	c := testConverter()
	got := c.entryKey(ir.DefaultExpression{}, c.Arch.MatchTypes.Range, 8)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("entryKey(range, default) = %#v, want a map", got)
	}
	if m["start"] != "0x00" || m["end"] != "0xff" {
		t.Errorf("entryKey(range, default) = %#v, want start 0x00, end 0xff (full 8-bit span)", m)
	}
}

func TestActionNameFromPathAndMethodCall(t *testing.T) {
	if got := actionName(ir.PathExpression{Path: "drop"}); got != "drop" {
		t.Errorf("actionName(path) = %q, want drop", got)
	}
	call := ir.MethodCallExpression{Method: ir.PathExpression{Path: "fwd"}}
	if got := actionName(call); got != "fwd" {
		t.Errorf("actionName(call) = %q, want fwd", got)
	}
}
