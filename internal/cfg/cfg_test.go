package cfg

import (
	"testing"

	"github.com/p4lang/p4c-bm2json/internal/ir"
)

func tableApplyStmt(name string) ir.Statement {
	return ir.MethodCallStatement{Call: ir.MethodCallExpression{
		Method: ir.PathExpression{Path: name},
		Name:   "apply",
	}}
}

func TestBuildSingleTableNode(t *testing.T) {
	g := NewBuilder().Build([]ir.Statement{tableApplyStmt("ipv4_lpm")})

	if g.Entry == "" {
		t.Fatal("Entry is empty, want the single table node's name")
	}
	node, ok := g.Nodes[g.Entry]
	if !ok {
		t.Fatalf("Entry %q not found in Nodes", g.Entry)
	}
	if node.Kind != KindTable || node.Table == nil || node.Table.Name != "ipv4_lpm" {
		t.Errorf("entry node = %#v, want a KindTable node for ipv4_lpm", node)
	}
	if node.DefaultNext != "" {
		t.Errorf("DefaultNext = %q, want empty (nothing follows)", node.DefaultNext)
	}
}

func TestBuildSequencesTwoTableApplies(t *testing.T) {
	g := NewBuilder().Build([]ir.Statement{tableApplyStmt("a"), tableApplyStmt("b")})

	first, ok := g.Nodes[g.Entry]
	if !ok {
		t.Fatalf("entry node %q missing", g.Entry)
	}
	if first.Table.Name != "a" {
		t.Fatalf("entry table = %q, want a", first.Table.Name)
	}
	if first.DefaultNext == "" {
		t.Fatal("a's DefaultNext is empty, want it to point at b's node")
	}
	second, ok := g.Nodes[first.DefaultNext]
	if !ok || second.Table.Name != "b" {
		t.Fatalf("a's DefaultNext = %q, want the node for table b", first.DefaultNext)
	}
}

func TestBuildHitMissGuard(t *testing.T) {
	cond := ir.Member{
		Expr: ir.MethodCallExpression{Method: ir.PathExpression{Path: "ipv4_lpm"}, Name: "apply"},
		Name: "hit",
	}
	stmt := ir.IfStatement{
		Cond: cond,
		Then: tableApplyStmt("on_hit"),
		Else: tableApplyStmt("on_miss"),
	}
	g := NewBuilder().Build([]ir.Statement{stmt})

	entry := g.Nodes[g.Entry]
	if !entry.HasHitMiss {
		t.Fatalf("entry node = %#v, want HasHitMiss", entry)
	}
	if entry.Table.Name != "ipv4_lpm" {
		t.Errorf("entry.Table.Name = %q, want ipv4_lpm", entry.Table.Name)
	}
	hitNode, ok := g.Nodes[entry.HitNext]
	if !ok || hitNode.Table.Name != "on_hit" {
		t.Errorf("HitNext = %q, want the on_hit table node", entry.HitNext)
	}
	missNode, ok := g.Nodes[entry.MissNext]
	if !ok || missNode.Table.Name != "on_miss" {
		t.Errorf("MissNext = %q, want the on_miss table node", entry.MissNext)
	}
}

func TestBuildPlainConditional(t *testing.T) {
	stmt := ir.IfStatement{
		Cond: ir.BoolLiteral{Value: true},
		Then: tableApplyStmt("t"),
	}
	g := NewBuilder().Build([]ir.Statement{stmt})

	entry := g.Nodes[g.Entry]
	if entry.Kind != KindConditional {
		t.Fatalf("entry.Kind = %v, want KindConditional", entry.Kind)
	}
	trueNode, ok := g.Nodes[entry.TrueNext]
	if !ok || trueNode.Table.Name != "t" {
		t.Errorf("TrueNext = %q, want the t table node", entry.TrueNext)
	}
	if entry.FalseNext != "" {
		t.Errorf("FalseNext = %q, want empty (no else branch)", entry.FalseNext)
	}
}

func TestBuildPanicsOnCycle(t *testing.T) {
	b := NewBuilder()
	b.g.Nodes["a"] = &Node{Kind: KindTable, Name: "a", Table: &ir.P4Table{Name: "a"}, DefaultNext: "b"}
	b.g.Nodes["b"] = &Node{Kind: KindTable, Name: "b", Table: &ir.P4Table{Name: "b"}, DefaultNext: "a"}
	b.g.Entry = "a"

	defer func() {
		if recover() == nil {
			t.Fatal("expected Build to panic on a cyclic control-flow graph")
		}
	}()
	b.Build(nil)
}
