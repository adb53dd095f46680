// Package convert implements ExpressionConverter (C3): rendering a
// lowered IR expression as a bmv2 JSON value.
package convert

import (
	"fmt"

	"github.com/p4lang/p4c-bm2json/internal/arch"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/fixup"
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

// Node is a JSON object rendered per the §4.3 table. Using
// map[string]any rather than bespoke structs matches the runtime's
// "type"-tagged node shapes directly, and is what every converter
// ultimately hands to encoding/json.
type Node = map[string]any

var wrapTypes = map[string]bool{"expression": true, "stack_field": true}

// Converter holds the state ExpressionConverter needs beyond the
// expression itself: the architecture model (for standard-metadata
// detection), the parameter-index map (for runtime_data), and the
// scalars-struct name actions/locals land in.
type Converter struct {
	Arch            arch.Model
	Sink            *emitctl.Sink
	ParamIndex      map[string]int   // action-parameter path -> index
	ScalarsName     string           // synthesized scalars header instance name
	ScalarFieldName map[string]string // local/metadata path -> scalar field name
	ErrorCodes      map[string]int64
	Types           map[string]ir.Type // top-level field name -> declared type, for Stack detection
	LeftValue       bool
}

// Convert renders e as JSON following §4.3. doFixup applies
// ArithmeticFixup first; wrap applies the outer-wrap rule; convertBool
// wraps the whole result in a "b2d" bridge (used on the RHS of
// assignments to Boolean lvalues).
func (c *Converter) Convert(e ir.Expression, t ir.Type, doFixup, wrap, convertBool bool) Node {
	if doFixup {
		typed := fixup.ArithmeticFixup(c.Sink.Log, e, t)
		e, t = typed.Expr, typed.Type
	}

	result := c.convert(e, t)

	if wrap && wrapTypes[typeOf(result)] {
		result = Node{"type": "expression", "value": result}
	}
	if convertBool {
		result = Node{"type": "expression", "value": Node{"op": "b2d", "left": nil, "right": result}}
	}
	return result
}

// ConvertLeftValue renders e as an lvalue: no outer wrap, no bool
// bridging, but booleans are still rendered through their lvalue form.
func (c *Converter) ConvertLeftValue(e ir.Expression, t ir.Type) Node {
	c.LeftValue = true
	defer func() { c.LeftValue = false }()
	typed := fixup.ArithmeticFixup(c.Sink.Log, e, t)
	return c.convert(typed.Expr, typed.Type)
}

func typeOf(n Node) string {
	t, _ := n["type"].(string)
	return t
}

func (c *Converter) convert(e ir.Expression, t ir.Type) Node {
	switch v := e.(type) {
	case ir.BoolLiteral:
		return Node{"type": "bool", "value": v.Value}

	case ir.Constant:
		return Node{"type": "hexstr", "value": hexstr(v.Value, t)}

	case ir.PathExpression:
		return c.convertPath(v.Path, t)

	case ir.Member:
		return c.convertMember(v, t)

	case ir.ArrayIndex:
		return c.convertArrayIndex(v)

	case ir.Not:
		return c.fixLocal(Node{"type": "expression", "value": Node{"op": "not", "left": nil, "right": c.inner(v.Expr)}})

	case ir.Mux:
		return c.fixLocal(Node{"type": "expression", "value": Node{"op": "?", "cond": c.inner(v.Cond), "left": c.inner(v.True), "right": c.inner(v.False)}})

	case ir.BinaryOp:
		if v.Op == "two_comp_mod" {
			return c.fixLocal(Node{"type": "expression", "value": Node{
				"op":    "two_comp_mod",
				"left":  c.inner(v.Left),
				"right": c.inner(v.Right),
			}})
		}
		return c.fixLocal(Node{"type": "expression", "value": Node{
			"op":    opName(v.Op),
			"left":  c.inner(v.Left),
			"right": c.inner(v.Right),
		}})

	case ir.MethodCallExpression:
		return c.convertMethodCall(v)

	default:
		emitctl.Bug(c.Sink.Log, "ExpressionConverter: unhandled IR node %T", e)
		return nil
	}
}

// inner converts an operand of a composite expression without the
// outer wrap rule (the composite itself is the thing that gets wrapped)
// but does apply the fixLocal rule, per §4.3.
func (c *Converter) inner(e ir.Expression) Node {
	n := c.convert(e, nil)
	return c.fixLocal(n)
}

// fixLocal substitutes {"type":"local","value":idx} for a runtime_data
// node that appears nested inside an expression tree (§4.3 Fix-local
// rule).
func (c *Converter) fixLocal(n Node) Node {
	if typeOf(n) == "runtime_data" {
		return Node{"type": "local", "value": n["value"]}
	}
	return n
}

func (c *Converter) convertPath(path string, t ir.Type) Node {
	if idx, ok := c.ParamIndex[path]; ok {
		return Node{"type": "runtime_data", "value": idx}
	}
	if path == c.Arch.StandardMetaName {
		return Node{"type": "header", "value": ir.ExternalName(path)}
	}
	if scalar, ok := c.ScalarFieldName[path]; ok {
		if _, isBool := t.(ir.Boolean); isBool && !c.LeftValue {
			return Node{"type": "expression", "value": Node{"op": "d2b", "left": nil, "right": Node{"type": "field", "value": []any{c.ScalarsName, scalar}}}}
		}
		return Node{"type": "field", "value": []any{c.ScalarsName, scalar}}
	}
	switch t.(type) {
	case ir.Struct, ir.Header, ir.HeaderUnion:
		return Node{"type": "header", "value": ir.ExternalName(path)}
	}
	return Node{"type": "field", "value": []any{c.ScalarsName, ir.ExternalName(path)}}
}

func (c *Converter) convertMember(m ir.Member, t ir.Type) Node {
	if bt, ok := c.baseType(m.Expr); ok {
		if _, isStack := bt.(ir.Stack); isStack {
			return Node{"type": "stack_field", "value": []any{c.encodeBase(m.Expr), m.Name}}
		}
	}
	base := pathOf(m.Expr)
	if base == c.Arch.StandardMetaName {
		return Node{"type": "field", "value": []any{ir.ExternalName(base), m.Name}}
	}
	if scalar, ok := c.ScalarFieldName[base+"."+m.Name]; ok {
		return Node{"type": "field", "value": []any{c.ScalarsName, scalar}}
	}
	return Node{"type": "field", "value": []any{ir.ExternalName(base), m.Name}}
}

func (c *Converter) convertArrayIndex(a ir.ArrayIndex) Node {
	idx, ok := a.Index.(ir.Constant)
	if !ok {
		c.Sink.Error("ExpressionConverter", "", "non-constant array index is not supported")
		return Node{"type": "header", "value": "<error>"}
	}
	return Node{"type": "header", "value": fmt.Sprintf("%s[%d]", c.encodeBase(a.Left), idx.Value)}
}

func (c *Converter) convertMethodCall(m ir.MethodCallExpression) Node {
	switch m.Name {
	case "isValid":
		return c.fixLocal(Node{"type": "expression", "value": Node{"op": "valid", "left": nil, "right": c.inner(m.Method)}})
	case "lookahead":
		width := 0
		if len(m.TypeArgs) > 0 {
			if w, ok := ir.Width(m.TypeArgs[0]); ok {
				width = w
			}
		}
		return Node{"type": "lookahead", "value": []any{0, width}}
	default:
		c.Sink.Warn("ExpressionConverter", m.Name, "unknown method call in expression position")
		return Node{"type": "expression", "value": Node{"op": m.Name, "left": nil, "right": nil}}
	}
}

func (c *Converter) encodeBase(e ir.Expression) string {
	if p, ok := e.(ir.PathExpression); ok {
		return ir.ExternalName(p.Path)
	}
	if m, ok := e.(ir.Member); ok {
		return ir.ExternalName(pathOf(m.Expr)) + "." + m.Name
	}
	return ""
}

func pathOf(e ir.Expression) string {
	if p, ok := e.(ir.PathExpression); ok {
		return p.Path
	}
	return ""
}

// baseType looks up e's declared type, used only to recognize a Stack
// receiver for the Member{expr.last}-is-a-stack-field rule (§4.3). Only
// a bare path reference resolves; anything else reports not-found,
// since that is the only receiver shape the rule matches.
func (c *Converter) baseType(e ir.Expression) (ir.Type, bool) {
	p, ok := e.(ir.PathExpression)
	if !ok {
		return nil, false
	}
	t, ok := c.Types[p.Path]
	return t, ok
}

func opName(op string) string {
	switch op {
	case "&&":
		return "and"
	case "||":
		return "or"
	default:
		return op
	}
}

// hexstr renders v as lowercase 0x-hex, zero-padded to ceil(width/8)*2
// digits, with negatives rendered as -0x... (§4.3, §6, §8 "Hex
// formatting").
func hexstr(v int64, t ir.Type) string {
	width, ok := ir.Width(t)
	if !ok {
		width = 8
	}
	return HexStrWidth(v, width)
}

// HexStr renders v per §8 "Hex formatting" using t's declared width,
// falling back to an 8-bit width when t carries none. Exported so other
// converters (table entries, parser select keys) share the same padding
// rule as expression conversion instead of re-deriving it.
func HexStr(v int64, t ir.Type) string {
	return hexstr(v, t)
}

// HexStrWidth is HexStr given a raw bit width instead of an ir.Type,
// for callers (table-entry DefaultExpression/full-mask forms) that know
// a key's width but have no typed expression to read it from.
func HexStrWidth(v int64, width int) string {
	digits := (width + 7) / 8 * 2
	if digits == 0 {
		digits = 2
	}
	neg := v < 0
	u := v
	if neg {
		u = -u
	}
	s := fmt.Sprintf("%x", u)
	for len(s) < digits {
		s = "0" + s
	}
	if neg {
		return "-0x" + s
	}
	return "0x" + s
}
