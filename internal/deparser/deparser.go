// Package deparser implements DeparserConverter (C8): the ordered
// header (and header-stack element) emit sequence (§4.8).
package deparser

import (
	"fmt"

	"github.com/p4lang/p4c-bm2json/internal/document"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

type Converter struct {
	Sink *emitctl.Sink
	IDs  *document.IDGroups

	// StackSize reports the declared size of a header-stack parameter
	// by name, needed to expand packet.emit(stack) into one entry per
	// index.
	StackSize map[string]int
}

func (c *Converter) Convert(name string, body []ir.Statement) document.Deparser {
	out := document.Deparser{Name: ir.ExternalName(name), ID: c.IDs.Next("deparsers")}
	for _, s := range body {
		out.Order = append(out.Order, c.convertStatement(s)...)
	}
	return out
}

func (c *Converter) convertStatement(s ir.Statement) []string {
	switch v := s.(type) {
	case ir.BlockStatement:
		var out []string
		for _, inner := range v.Statements {
			out = append(out, c.convertStatement(inner)...)
		}
		return out
	case ir.MethodCallStatement:
		return c.convertEmit(v.Call)
	case ir.EmptyStatement:
		return nil
	default:
		c.Sink.Error("DeparserConverter", "", "unsupported statement in deparser body: %T", s)
		return nil
	}
}

func (c *Converter) convertEmit(mc ir.MethodCallExpression) []string {
	if mc.Name != "emit" || len(mc.Args) != 1 {
		c.Sink.Error("DeparserConverter", mc.Name, "unsupported deparser method call")
		return nil
	}
	arg := mc.Args[0]
	name := headerPath(arg)
	if size, isStack := c.StackSize[name]; isStack {
		var out []string
		for i := 0; i < size; i++ {
			out = append(out, fmt.Sprintf("%s[%d]", name, i))
		}
		return out
	}
	if name == "" {
		c.Sink.Error("DeparserConverter", "", "emit of a non-header value")
		return nil
	}
	return []string{name}
}

func headerPath(e ir.Expression) string {
	switch v := e.(type) {
	case ir.PathExpression:
		return ir.ExternalName(v.Path)
	case ir.Member:
		return headerPath(v.Expr) + "." + v.Name
	default:
		return ""
	}
}
