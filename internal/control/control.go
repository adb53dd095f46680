// Package control implements ControlConverter (C6): building a CFG for
// a control block, emitting table and conditional nodes, declaring
// local externs, and checking shared-action-selector key consistency.
package control

import (
	"github.com/p4lang/p4c-bm2json/internal/cfg"
	"github.com/p4lang/p4c-bm2json/internal/convert"
	"github.com/p4lang/p4c-bm2json/internal/document"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
	"github.com/p4lang/p4c-bm2json/internal/tableconv"
)

type Converter struct {
	Sink    *emitctl.Sink
	Conv    *convert.Converter
	Tables  *tableconv.Converter

	selectorKeys map[string][]ir.Expression // selector decl name -> keys seen on first table
}

// Convert walks ctrl's CFG and returns its pipeline object (tables and
// conditionals populated; action_profiles are accumulated separately by
// Tables and merged by the caller per §4.6 step 4).
func (c *Converter) Convert(ctrl *ir.P4Control) document.Pipeline {
	if c.selectorKeys == nil {
		c.selectorKeys = map[string][]ir.Expression{}
	}

	graph := cfg.NewBuilder().Build(ctrl.Body)

	out := document.Pipeline{
		Name:      ir.ExternalName(ctrl.Name),
		InitTable: interfaceOrNil(graph.Entry),
	}

	for _, node := range graph.Nodes {
		switch node.Kind {
		case cfg.KindTable:
			t := c.resolveTable(ctrl, node.Table.Name)
			if t == nil {
				continue
			}
			out.Tables = append(out.Tables, c.Tables.Convert(t, node))
			c.checkSharedSelector(t)
		case cfg.KindConditional:
			out.Conditionals = append(out.Conditionals, document.Conditional{
				Name:       node.Name,
				Expression: c.Conv.Convert(node.Cond, ir.Boolean{}, true, false, false),
				TrueNext:   interfaceOrNil(node.TrueNext),
				FalseNext:  interfaceOrNil(node.FalseNext),
			})
		}
	}

	return out
}

// resolveTable looks up the actual table declaration among ctrl's
// locals by name, since cfg.Builder only carries the table's path as a
// stand-in (the reference map resolves this in the full front end).
func (c *Converter) resolveTable(ctrl *ir.P4Control, name string) *ir.P4Table {
	for _, d := range ctrl.Locals {
		if t, ok := d.(ir.P4Table); ok && t.Name == name {
			return &t
		}
	}
	return nil
}

// checkSharedSelector implements §4.6 step 5: every table referencing
// the same action_selector declaration must present structurally
// identical selector-match-type keys.
func (c *Converter) checkSharedSelector(t *ir.P4Table) {
	var selectorDecl string
	for _, p := range t.Properties {
		if p.Name == "implementation" {
			if path, ok := p.Value.(ir.PathExpression); ok {
				selectorDecl = path.Path
			}
		}
	}
	if selectorDecl == "" {
		return
	}
	var keys []ir.Expression
	for _, k := range t.Keys {
		if k.MatchType == "selector" {
			keys = append(keys, k.Expr)
		}
	}
	if len(keys) == 0 {
		return
	}
	prev, seen := c.selectorKeys[selectorDecl]
	if !seen {
		c.selectorKeys[selectorDecl] = keys
		return
	}
	if !sameKeySequence(prev, keys) {
		c.Sink.Error("ControlConverter", selectorDecl, "inconsistent selector inputs across tables sharing a selector")
	}
}

func sameKeySequence(a, b []ir.Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ir.SameKeyExpr(a[i], b[i]) {
			return false
		}
	}
	return true
}

func interfaceOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
