package convert

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/p4lang/p4c-bm2json/internal/arch"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

func testConverter() *Converter {
	log := logrus.New()
	log.SetOutput(nullWriter{})
	return &Converter{
		Arch:            arch.V1Model(),
		Sink:            emitctl.NewSink(log),
		ParamIndex:      map[string]int{},
		ScalarsName:     "scalars",
		ScalarFieldName: map[string]string{},
	}
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestConvertConstantHex(t *testing.T) {
	c := testConverter()
	got := c.Convert(ir.Constant{Type: ir.Bits{Width: 8}, Value: 255}, ir.Bits{Width: 8}, false, false, false)
	if got["type"] != "hexstr" || got["value"] != "0xff" {
		t.Errorf("Convert(Constant{255}) = %#v, want {type: hexstr, value: 0xff}", got)
	}
}

func TestConvertConstantNegativeHex(t *testing.T) {
	c := testConverter()
	got := c.Convert(ir.Constant{Type: ir.Bits{Width: 8, Signed: true}, Value: -1}, ir.Bits{Width: 8, Signed: true}, false, false, false)
	if got["value"] != "-0x01" {
		t.Errorf("Convert(Constant{-1}) value = %v, want -0x01", got["value"])
	}
}

func TestConvertBoolLiteral(t *testing.T) {
	c := testConverter()
	got := c.Convert(ir.BoolLiteral{Value: true}, ir.Boolean{}, false, false, false)
	if got["type"] != "bool" || got["value"] != true {
		t.Errorf("Convert(BoolLiteral{true}) = %#v", got)
	}
}

func TestConvertRuntimeDataParam(t *testing.T) {
	c := testConverter()
	c.ParamIndex[".action.port"] = 2
	got := c.Convert(ir.PathExpression{Path: ".action.port"}, ir.Bits{Width: 9}, false, false, false)
	if got["type"] != "runtime_data" || got["value"] != 2 {
		t.Errorf("Convert(action param path) = %#v, want runtime_data/2", got)
	}
}

func TestFixLocalSubstitutesRuntimeDataInsideExpression(t *testing.T) {
	c := testConverter()
	c.ParamIndex[".action.port"] = 1
	add := ir.BinaryOp{Op: "+", Left: ir.PathExpression{Path: ".action.port"}, Right: ir.Constant{Type: ir.Bits{Width: 9}, Value: 1}}
	got := c.Convert(add, ir.Bits{Width: 9}, false, false, false)

	value, ok := got["value"].(Node)
	if !ok {
		t.Fatalf("Convert(add).value = %#v, want a Node", got["value"])
	}
	left, ok := value["left"].(Node)
	if !ok {
		t.Fatalf("value.left = %#v, want a Node (the fixLocal'd runtime_data)", value["left"])
	}
	if left["type"] != "local" || left["value"] != 1 {
		t.Errorf("left = %#v, want {type: local, value: 1}", left)
	}
}

func TestConvertWrapsExpressionWhenRequested(t *testing.T) {
	c := testConverter()
	add := ir.BinaryOp{Op: "+", Left: ir.Constant{Type: ir.Bits{Width: 8}, Value: 1}, Right: ir.Constant{Type: ir.Bits{Width: 8}, Value: 1}}
	got := c.Convert(add, ir.Bits{Width: 8}, false, true, false)
	if got["type"] != "expression" {
		t.Fatalf("wrapped result type = %v, want \"expression\"", got["type"])
	}
	// A BinaryOp already renders as {"type":"expression", ...}; requesting
	// wrap re-nests that under one more "value" layer (§4.3's wrap rule).
	nested, ok := got["value"].(Node)
	if !ok || nested["type"] != "expression" {
		t.Fatalf("wrapped value = %#v, want a re-nested expression node", got["value"])
	}
	inner, ok := nested["value"].(Node)
	if !ok || inner["op"] != "+" {
		t.Fatalf("doubly-nested value = %#v, want op \"+\"", nested["value"])
	}
}

func TestConvertBridgesBoolWhenRequested(t *testing.T) {
	c := testConverter()
	got := c.Convert(ir.BoolLiteral{Value: true}, ir.Boolean{}, false, false, true)
	if got["type"] != "expression" {
		t.Fatalf("got type %v, want expression (b2d wrapper)", got["type"])
	}
	value, ok := got["value"].(Node)
	if !ok || value["op"] != "b2d" {
		t.Fatalf("got value %#v, want op b2d", got["value"])
	}
}

func TestConvertMethodCallIsValid(t *testing.T) {
	c := testConverter()
	call := ir.MethodCallExpression{Method: ir.Member{Expr: ir.PathExpression{Path: ".hdr.ipv4"}, Name: "isValid"}, Name: "isValid"}
	got := c.Convert(call, ir.Boolean{}, false, false, false)
	value, ok := got["value"].(Node)
	if !ok || value["op"] != "valid" {
		t.Fatalf("Convert(isValid call) = %#v, want op valid", got)
	}
}

func TestConvertMethodCallLookahead(t *testing.T) {
	c := testConverter()
	call := ir.MethodCallExpression{Name: "lookahead", TypeArgs: []ir.Type{ir.Bits{Width: 16}}}
	got := c.Convert(call, ir.Bits{Width: 16}, false, false, false)
	if got["type"] != "lookahead" {
		t.Fatalf("Convert(lookahead) type = %v, want lookahead", got["type"])
	}
	pair, ok := got["value"].([]any)
	if !ok || len(pair) != 2 || pair[1] != 16 {
		t.Errorf("Convert(lookahead).value = %#v, want [0, 16]", got["value"])
	}
}

func TestConvertUnknownMethodCallWarns(t *testing.T) {
	c := testConverter()
	call := ir.MethodCallExpression{Name: "mystery_extern"}
	c.Convert(call, ir.Boolean{}, false, false, false)
	if len(c.Sink.Warnings()) != 1 {
		t.Fatalf("got %d warnings, want 1 for an unrecognized method call", len(c.Sink.Warnings()))
	}
}

func TestHexstrZeroPadsToWidth(t *testing.T) {
	cases := []struct {
		value int64
		width int
		want  string
	}{
		{0, 8, "0x00"},
		{1, 8, "0x01"},
		{256, 16, "0x0100"},
		{15, 4, "0x0f"},
	}
	for _, c := range cases {
		got := hexstr(c.value, ir.Bits{Width: c.width})
		if got != c.want {
			t.Errorf("hexstr(%d, Bits{%d}) = %q, want %q", c.value, c.width, got, c.want)
		}
	}
}

func TestOpName(t *testing.T) {
	if opName("&&") != "and" {
		t.Error("opName(\"&&\") should be \"and\"")
	}
	if opName("||") != "or" {
		t.Error("opName(\"||\") should be \"or\"")
	}
	if opName("+") != "+" {
		t.Error("opName(\"+\") should pass through unchanged")
	}
}
