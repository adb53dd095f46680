package parserconv

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/p4lang/p4c-bm2json/internal/arch"
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
	return &Converter{
		Sink: emitctl.NewSink(log),
		Conv: &convert.Converter{
			Arch:            arch.V1Model(),
			Sink:            emitctl.NewSink(log),
			ParamIndex:      map[string]int{},
			ScalarsName:     "scalars",
			ScalarFieldName: map[string]string{},
		},
		IDs: document.NewIDGroups(),
	}
}

func TestConvertSkipsAcceptAndReject(t *testing.T) {
	c := testConverter()
	p := &ir.P4Parser{
		Name: "parser",
		States: []ir.ParserState{
			{Name: "accept"},
			{Name: "reject"},
			{Name: "start", Default: "accept"},
		},
	}
	out := c.Convert(p)
	if len(out.ParseStates) != 1 {
		t.Fatalf("got %d parse states, want 1 (accept/reject are implicit)", len(out.ParseStates))
	}
	if out.ParseStates[0].Name != "start" {
		t.Errorf("ParseStates[0].Name = %q, want start", out.ParseStates[0].Name)
	}
}

func TestConvertStateUnconditionalTransitionToAccept(t *testing.T) {
	c := testConverter()
	ps := c.convertState(ir.ParserState{Name: "start", Default: "accept"})
	if len(ps.Transitions) != 1 {
		t.Fatalf("got %d transitions, want 1", len(ps.Transitions))
	}
	if ps.Transitions[0].Value != "default" {
		t.Errorf("Transitions[0].Value = %#v, want default", ps.Transitions[0].Value)
	}
	if ps.Transitions[0].NextState != nil {
		t.Errorf("NextState = %#v, want nil (accept)", ps.Transitions[0].NextState)
	}
}

func TestNextStateRefWarnsOnExplicitReject(t *testing.T) {
	c := testConverter()
	got := c.nextStateRef("reject")
	if got != nil {
		t.Errorf("nextStateRef(reject) = %#v, want nil", got)
	}
	if len(c.Sink.Warnings()) != 1 {
		t.Fatalf("got %d warnings, want 1 for explicit reject transition", len(c.Sink.Warnings()))
	}
}

func TestConvertMethodCallExtractSingleArg(t *testing.T) {
	c := testConverter()
	call := ir.MethodCallExpression{Name: "extract", Args: []ir.Expression{ir.PathExpression{Path: ".hdr.ethernet"}}}
	ops := c.convertMethodCall(call)
	if len(ops) != 1 || ops[0]["op"] != "extract" {
		t.Fatalf("convertMethodCall(extract) = %#v", ops)
	}
}

func TestConvertMethodCallExtractVariableLength(t *testing.T) {
	c := testConverter()
	call := ir.MethodCallExpression{
		Name: "extract",
		Args: []ir.Expression{
			ir.PathExpression{Path: ".hdr.options"},
			ir.Constant{Value: 32},
		},
	}
	ops := c.convertMethodCall(call)
	if len(ops) != 1 || ops[0]["op"] != "extract_VL" {
		t.Fatalf("convertMethodCall(extract, 2 args) = %#v, want extract_VL", ops)
	}
}

func TestExtractTargetStackHeader(t *testing.T) {
	c := testConverter()
	arg := ir.Member{Expr: ir.PathExpression{Path: ".hdr.vlan"}, Name: "next"}
	got := c.extractTarget(arg)
	if got["type"] != "stack" {
		t.Errorf("extractTarget(.next) type = %v, want stack", got["type"])
	}
}

func TestExtractTargetRegularHeader(t *testing.T) {
	c := testConverter()
	got := c.extractTarget(ir.PathExpression{Path: ".hdr.ethernet"})
	if got["type"] != "regular" || got["value"] != "hdr.ethernet" {
		t.Errorf("extractTarget = %#v, want regular/hdr.ethernet", got)
	}
}

func TestConvertMethodCallSetValid(t *testing.T) {
	c := testConverter()
	call := ir.MethodCallExpression{Name: "setValid", Method: ir.PathExpression{Path: ".hdr.ipv4"}}
	ops := c.convertMethodCall(call)
	if len(ops) != 1 || ops[0]["op"] != "set" {
		t.Fatalf("convertMethodCall(setValid) = %#v", ops)
	}
}

func TestConvertMethodCallUnknownWarns(t *testing.T) {
	c := testConverter()
	c.convertMethodCall(ir.MethodCallExpression{Name: "mystery"})
	if len(c.Sink.Warnings()) != 1 {
		t.Fatalf("got %d warnings, want 1 for an unrecognized parser extern", len(c.Sink.Warnings()))
	}
}

func TestHeaderNameJoinsMemberChain(t *testing.T) {
	e := ir.Member{Expr: ir.PathExpression{Path: ".hdr.ipv4"}, Name: "flags"}
	if got := headerName(e); got != "hdr.ipv4.flags" {
		t.Errorf("headerName = %q, want hdr.ipv4.flags", got)
	}
}

func TestSelectCaseValueMaskDefault(t *testing.T) {
	c := testConverter()
	value, mask := c.selectCaseValueMask([]ir.Expression{ir.DefaultExpression{}})
	if value != "default" || mask != nil {
		t.Errorf("selectCaseValueMask(default) = (%q, %#v), want (default, nil)", value, mask)
	}
}

func TestSelectCaseValueMaskFullMaskConstant(t *testing.T) {
	c := testConverter()
	value, mask := c.selectCaseValueMask([]ir.Expression{ir.Constant{Type: ir.Bits{Width: 8}, Value: 0x11}})
	if value != "0x11" {
		t.Errorf("value = %q, want 0x11", value)
	}
	if mask != nil {
		t.Errorf("mask = %#v, want nil (full mask collapses to no mask)", mask)
	}
}

func TestSelectCaseValueMaskPartialMask(t *testing.T) {
	c := testConverter()
	key := ir.Mask{Value: ir.Constant{Type: ir.Bits{Width: 8}, Value: 0x10}, Mask: ir.Constant{Type: ir.Bits{Width: 8}, Value: 0xf0}}
	_, mask := c.selectCaseValueMask([]ir.Expression{key})
	if mask != "0xf0" {
		t.Errorf("mask = %#v, want 0xf0", mask)
	}
}

func TestAllOnes(t *testing.T) {
	if allOnes(8) != 0xff {
		t.Errorf("allOnes(8) = %#x, want 0xff", allOnes(8))
	}
	if allOnes(0) != 0 {
		t.Errorf("allOnes(0) = %d, want 0", allOnes(0))
	}
}

func TestHexstrIntPadsToKeyWidth(t *testing.T) {
	if got := hexstrInt(0x1, 8); got != "0x01" {
		t.Errorf("hexstrInt(1, 8 bits) = %q, want 0x01", got)
	}
	if got := hexstrInt(0x1, 16); got != "0x0001" {
		t.Errorf("hexstrInt(1, 16 bits) = %q, want 0x0001 (padded to the full key width, not just even digits)", got)
	}
}

func TestSelectCaseValueMaskComposesTotalByteWidth(t *testing.T) {
	c := testConverter()
	keys := []ir.Expression{
		ir.Constant{Type: ir.Bits{Width: 16}, Value: 1},
		ir.Constant{Type: ir.Bits{Width: 8}, Value: 0x11},
	}
	value, mask := c.selectCaseValueMask(keys)
	if value != "0x000111" {
		t.Errorf("value = %q, want 0x000111 (16-bit 1 padded to 2 bytes, concatenated with 8-bit 0x11)", value)
	}
	if mask != nil {
		t.Errorf("mask = %#v, want nil (both components are full-mask constants)", mask)
	}
}
