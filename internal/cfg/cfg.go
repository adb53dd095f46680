// Package cfg builds the control-flow graph ControlConverter (C6) walks:
// table and conditional nodes with hit/miss or true/false/unconditional
// successors. Cycles are permitted in parsers but are a compile-time
// error in controls (§4.6 step 1, §9 "CFG with back pointers").
package cfg

import "github.com/p4lang/p4c-bm2json/internal/ir"

type Kind int

const (
	KindTable Kind = iota
	KindConditional
)

// Node is one CFG node. Exactly one of the successor shapes is
// populated depending on Kind and HasHitMiss.
type Node struct {
	Kind Kind
	Name string

	Table     *ir.P4Table
	Cond      ir.Expression

	// Table-node successors.
	HasHitMiss  bool
	HitNext     string
	MissNext    string
	DefaultNext string
	ActionCases map[string]string // action label -> successor

	// Conditional-node successors.
	TrueNext  string
	FalseNext string
}

// Graph is an adjacency-list CFG: nodes keyed by name, plus the entry
// node's unique successor (init_table, §4.6 step 2).
type Graph struct {
	Nodes map[string]*Node
	Entry string // name of the entry node's unique successor, "" if empty
}

// Builder constructs a Graph from a control body by a straightforward
// structural walk: a table-apply statement (optionally guarded by
// `.hit`/`.miss` in an enclosing if) becomes a table node; a plain `if`
// becomes a conditional node; sequencing becomes edges. Cycle detection
// walks the resulting successor edges with a recursion-stack check.
type Builder struct {
	g       *Graph
	counter int
}

func NewBuilder() *Builder {
	return &Builder{g: &Graph{Nodes: map[string]*Node{}}}
}

// Build walks stmts (a control body) into a Graph. It is intentionally
// conservative: constructs it does not recognize are linked in sequence
// with no conditional/table semantics, since the exhaustive P4
// statement grammar for control bodies is produced upstream by the
// front end's CFG builder in the full compiler — this module's CFG
// construction only needs to preserve the shapes C5/C6 consume (table
// applies, if/else, and hit/miss branches on `.apply().hit`).
func (b *Builder) Build(stmts []ir.Statement) *Graph {
	first := b.buildSeq(stmts, "")
	b.g.Entry = first
	if b.hasCycle() {
		panic("cfg: bug: cycle detected in control flow graph")
	}
	return b.g
}

func (b *Builder) buildSeq(stmts []ir.Statement, fallthroughName string) string {
	if len(stmts) == 0 {
		return fallthroughName
	}
	rest := b.buildSeq(stmts[1:], fallthroughName)
	return b.buildOne(stmts[0], rest)
}

func (b *Builder) buildOne(stmt ir.Statement, next string) string {
	switch v := stmt.(type) {
	case ir.IfStatement:
		if tableApply, onHit, onMiss, ok := hitMissGuard(v.Cond); ok {
			name := b.freshName("t")
			node := &Node{Kind: KindTable, Name: name, Table: tableApply, HasHitMiss: true}
			thenName := b.buildOne(v.Then, next)
			elseName := next
			if v.Else != nil {
				elseName = b.buildOne(v.Else, next)
			}
			if onHit {
				node.HitNext, node.MissNext = thenName, elseName
			} else if onMiss {
				node.HitNext, node.MissNext = elseName, thenName
			}
			b.g.Nodes[name] = node
			return name
		}
		name := b.freshName("cond")
		thenName := b.buildOne(v.Then, next)
		elseName := next
		if v.Else != nil {
			elseName = b.buildOne(v.Else, next)
		}
		b.g.Nodes[name] = &Node{Kind: KindConditional, Name: name, Cond: v.Cond, TrueNext: thenName, FalseNext: elseName}
		return name

	case ir.BlockStatement:
		return b.buildSeq(v.Statements, next)

	case ir.MethodCallStatement:
		if t, ok := tableApplyOf(v.Call); ok {
			name := b.freshName(t.Name)
			b.g.Nodes[name] = &Node{Kind: KindTable, Name: name, Table: t, DefaultNext: next, ActionCases: map[string]string{}}
			return name
		}
		return next

	default:
		return next
	}
}

func (b *Builder) freshName(hint string) string {
	b.counter++
	return hint
}

func hitMissGuard(cond ir.Expression) (table *ir.P4Table, onHit, onMiss bool, ok bool) {
	m, isMember := cond.(ir.Member)
	if !isMember {
		return nil, false, false, false
	}
	mc, isCall := m.Expr.(ir.MethodCallExpression)
	if !isCall || mc.Name != "apply" {
		return nil, false, false, false
	}
	t, ok := tableApplyOf(mc)
	if !ok {
		return nil, false, false, false
	}
	switch m.Name {
	case "hit":
		return t, true, false, true
	case "miss":
		return t, false, true, true
	default:
		return nil, false, false, false
	}
}

// tableApplyOf recognizes `<table>.apply()`; the front end's reference
// map would normally resolve this to the P4Table declaration, but for
// this module's purposes the call's Method path is taken directly as
// the table name binding (wired in by ControlConverter's caller, which
// holds the declaration table).
func tableApplyOf(mc ir.MethodCallExpression) (*ir.P4Table, bool) {
	if mc.Name != "apply" {
		return nil, false
	}
	if p, ok := mc.Method.(ir.PathExpression); ok {
		return &ir.P4Table{Name: p.Path}, true
	}
	return nil, false
}

func (b *Builder) hasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var visit func(name string) bool
	visit = func(name string) bool {
		node, ok := b.g.Nodes[name]
		if !ok {
			return false
		}
		if color[name] == gray {
			return true
		}
		if color[name] == black {
			return false
		}
		color[name] = gray
		for _, succ := range successors(node) {
			if succ != "" && visit(succ) {
				return true
			}
		}
		color[name] = black
		return false
	}
	for name := range b.g.Nodes {
		if visit(name) {
			return true
		}
	}
	return false
}

func successors(n *Node) []string {
	if n.Kind == KindConditional {
		return []string{n.TrueNext, n.FalseNext}
	}
	if n.HasHitMiss {
		return []string{n.HitNext, n.MissNext}
	}
	out := []string{n.DefaultNext}
	for _, v := range n.ActionCases {
		out = append(out, v)
	}
	return out
}
