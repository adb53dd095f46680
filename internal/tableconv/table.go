// Package tableconv implements TableConverter (C5): converting an IR
// table plus its enclosing CFG node into the JSON table object (§4.5).
package tableconv

import (
	"fmt"

	"github.com/p4lang/p4c-bm2json/internal/arch"
	"github.com/p4lang/p4c-bm2json/internal/cfg"
	"github.com/p4lang/p4c-bm2json/internal/convert"
	"github.com/p4lang/p4c-bm2json/internal/document"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

// precedence gives exact < lpm < ternary < range, most specific
// winning, per §4.5 step 2.
var precedence = map[string]int{"exact": 0, "lpm": 1, "ternary": 2, "range": 3}

// Converter builds Table/ActionProfile/extern-declaration objects.
type Converter struct {
	Arch       arch.Model
	Sink       *emitctl.Sink
	Conv       *convert.Converter
	IDs        *document.IDGroups
	ActionIDs  map[string]int // action name -> global id

	DirectCounterOwner map[string]string // counter decl name -> table name
	DirectMeterInfo    map[string]*DirectMeterInfo

	ActionProfiles map[string]*document.ActionProfile // name -> object (for reuse/dedup)
}

type DirectMeterInfo struct {
	Table       string
	Destination ir.Expression
	TableSize   int
}

// Convert renders table t, whose enclosing CFG node is node, as a
// document.Table.
func (c *Converter) Convert(t *ir.P4Table, node *cfg.Node) document.Table {
	out := document.Table{
		Name:       ir.ExternalName(t.Name),
		ID:         c.IDs.Next("tables"),
		NextTables: map[string]any{},
	}

	matchType, keys := c.convertKeys(t)
	out.Key = keys
	out.MatchType = matchType

	implType, profileName := c.resolveImplementation(t)
	out.Type = implType
	if profileName != "" {
		out.ActionProfile = profileName
	}

	out.MaxSize = c.Arch.DefaultTableSize
	for _, p := range t.Properties {
		if p.Name == "size" {
			if cst, ok := p.Value.(ir.Constant); ok {
				out.MaxSize = int(cst.Value)
			}
		}
		if p.Name == "direct_counter" {
			if path, ok := p.Value.(ir.PathExpression); ok {
				c.bindDirectCounter(path.Path, out.Name)
			}
		}
		if p.Name == "direct_meter" {
			if path, ok := p.Value.(ir.PathExpression); ok {
				c.bindDirectMeter(path.Path, out.Name, out.MaxSize)
			}
		}
	}

	out.ActionIDs, out.Actions = c.actionList(t)

	c.computeNextTables(&out, node)

	if de := c.defaultEntry(t, implType); de != nil {
		out.DefaultEntry = de
	}

	out.Entries = c.convertEntries(t, matchType)

	return out
}

func (c *Converter) convertKeys(t *ir.P4Table) (string, []document.KeyElement) {
	var elems []document.KeyElement
	best := ""
	lpmKeys := 0
	for _, k := range t.Keys {
		if k.MatchType == c.Arch.MatchTypes.Selector {
			continue // selector keys belong to the action_selector object
		}
		target := k.Expr
		matchType := k.MatchType
		var mask any

		if bop, ok := target.(ir.BinaryOp); ok && bop.Op == "&" {
			if cst, ok := bop.Right.(ir.Constant); ok {
				target = bop.Left
				mask = hexConst(cst)
			}
		}

		if mc, ok := target.(ir.MethodCallExpression); ok && mc.Name == "isValid" && matchType == c.Arch.MatchTypes.Ternary {
			target = ir.Member{Expr: mc.Method, Name: "$valid$"}
		}

		elems = append(elems, document.KeyElement{
			MatchType: matchType,
			Target:    targetPath(target),
			Mask:      mask,
		})

		if matchType == c.Arch.MatchTypes.LPM {
			lpmKeys++
			if lpmKeys > 1 {
				c.Sink.Error("TableConverter", "", "multiple LPM keys in one table")
			}
		}
		if precedence[matchType] > precedence[best] || best == "" {
			best = matchType
		}
	}
	if best == "" {
		best = c.Arch.MatchTypes.Exact
	}
	return best, elems
}

func targetPath(e ir.Expression) []string {
	switch v := e.(type) {
	case ir.Member:
		return append(targetPath(v.Expr), v.Name)
	case ir.PathExpression:
		return []string{ir.ExternalName(v.Path)}
	default:
		return []string{"<error>"}
	}
}

func hexConst(c ir.Constant) string {
	return convert.HexStr(c.Value, c.Type)
}

// allOnes returns a width-bit mask of all one-bits.
func allOnes(width int) int64 {
	if width <= 0 {
		return 0
	}
	if width >= 64 {
		return -1
	}
	return (int64(1) << uint(width)) - 1
}

func (c *Converter) resolveImplementation(t *ir.P4Table) (string, string) {
	for _, p := range t.Properties {
		if p.Name != "implementation" {
			continue
		}
		switch v := p.Value.(type) {
		case ir.PathExpression:
			return c.lookupProfileType(v.Path), ir.ExternalName(v.Path)
		case ir.MethodCallExpression:
			return "indirect", fmt.Sprintf("%s_profile", t.Name)
		}
	}
	return "simple", ""
}

func (c *Converter) lookupProfileType(declName string) string {
	if ap, ok := c.ActionProfiles[declName]; ok && ap.Selector != nil {
		return "indirect_ws"
	}
	return "indirect"
}

func (c *Converter) bindDirectCounter(declName, table string) {
	if owner, ok := c.DirectCounterOwner[declName]; ok && owner != table {
		c.Sink.Error("TableConverter", declName, "Direct counters cannot be attached to multiple tables %s and %s", owner, table)
		return
	}
	c.DirectCounterOwner[declName] = table
}

func (c *Converter) bindDirectMeter(declName, table string, size int) {
	info, ok := c.DirectMeterInfo[declName]
	if !ok {
		c.DirectMeterInfo[declName] = &DirectMeterInfo{Table: table, TableSize: size}
		return
	}
	if info.Table != "" && info.Table != table {
		c.Sink.Error("TableConverter", declName, "Direct meters cannot be attached to multiple tables %s and %s", info.Table, table)
		return
	}
	info.Table = table
	info.TableSize = size
}

func (c *Converter) actionList(t *ir.P4Table) ([]int, []string) {
	var ids []int
	var names []string
	for _, a := range t.Actions {
		name := actionName(a)
		if id, ok := c.ActionIDs[name]; ok {
			ids = append(ids, id)
		}
		names = append(names, ir.ExternalName(name))
	}
	return ids, names
}

func actionName(e ir.Expression) string {
	switch v := e.(type) {
	case ir.PathExpression:
		return v.Path
	case ir.MethodCallExpression:
		if p, ok := v.Method.(ir.PathExpression); ok {
			return p.Path
		}
	}
	return ""
}

func (c *Converter) computeNextTables(out *document.Table, node *cfg.Node) {
	if node == nil {
		return
	}
	if node.HasHitMiss {
		out.BaseDefaultNext = nil
		if node.HitNext != "" {
			out.NextTables["__HIT__"] = node.HitNext
		} else {
			out.NextTables["__HIT__"] = nil
		}
		if node.MissNext != "" {
			out.NextTables["__MISS__"] = node.MissNext
		} else {
			out.NextTables["__MISS__"] = nil
		}
		return
	}

	defaultNext := interfaceOrNil(node.DefaultNext)
	out.BaseDefaultNext = defaultNext
	for label, succ := range node.ActionCases {
		out.NextTables[label] = interfaceOrNil(succ)
	}
	for _, name := range out.Actions {
		if _, labeled := out.NextTables[name]; !labeled {
			out.NextTables[name] = defaultNext
		}
	}
}

func interfaceOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (c *Converter) defaultEntry(t *ir.P4Table, implType string) *document.DefaultEntry {
	for _, p := range t.Properties {
		if p.Name != "default_action" {
			continue
		}
		mc, ok := p.Value.(ir.MethodCallExpression)
		if !ok {
			continue
		}
		if implType != "simple" {
			c.Sink.Warn("TableConverter", t.Name, "overridden default action on an indirect table is ignored")
			return nil
		}
		name := actionName(mc)
		id := c.ActionIDs[name]
		var data []convert.Node
		for _, a := range mc.Args {
			if cst, ok := a.(ir.Constant); ok {
				data = append(data, c.Conv.Convert(cst, cst.Type, false, false, false))
			}
		}
		return &document.DefaultEntry{ActionID: id, ActionConst: true, ActionData: data}
	}
	return nil
}

func (c *Converter) convertEntries(t *ir.P4Table, matchType string) []document.TableEntry {
	var out []document.TableEntry
	for i, e := range t.Entries {
		var matchKey []any
		for j, k := range e.Keys {
			width := 0
			if j < len(t.Keys) {
				width = t.Keys[j].Width
			}
			matchKey = append(matchKey, c.entryKey(k, matchType, width))
		}
		mc, _ := e.Action.(ir.MethodCallExpression)
		var data []convert.Node
		for _, a := range mc.Args {
			data = append(data, c.Conv.Convert(a, nil, false, false, false))
		}
		priority := e.Priority
		if priority == 0 {
			priority = i
		}
		out = append(out, document.TableEntry{
			MatchKey:    matchKey,
			ActionEntry: document.ActionEntry{ActionID: c.ActionIDs[actionName(mc)], ActionData: data},
			Priority:    priority,
		})
	}
	return out
}

func (c *Converter) entryKey(k ir.Expression, matchType string, width int) any {
	switch matchType {
	case c.Arch.MatchTypes.Exact:
		if cst, ok := k.(ir.Constant); ok {
			return hexConst(cst)
		}
	case c.Arch.MatchTypes.Ternary:
		if m, ok := k.(ir.Mask); ok {
			vc, _ := m.Value.(ir.Constant)
			mc, _ := m.Mask.(ir.Constant)
			return map[string]any{"value": hexConst(vc), "mask": hexConst(mc)}
		}
		if cst, ok := k.(ir.Constant); ok {
			return map[string]any{"value": hexConst(cst), "mask": convert.HexStrWidth(allOnes(width), width)}
		}
		if _, isDefault := k.(ir.DefaultExpression); isDefault {
			return map[string]any{"value": convert.HexStrWidth(0, width), "mask": convert.HexStrWidth(0, width)}
		}
	case c.Arch.MatchTypes.LPM:
		if m, ok := k.(ir.Mask); ok {
			vc, _ := m.Value.(ir.Constant)
			mc, _ := m.Mask.(ir.Constant)
			prefix := prefixLength(mc.Value)
			if prefix < 0 {
				c.Sink.Error("TableConverter", "", "LPM mask is not contiguous")
			}
			return map[string]any{"value": hexConst(vc), "prefix_length": prefix}
		}
		if cst, ok := k.(ir.Constant); ok {
			return map[string]any{"value": hexConst(cst), "prefix_length": width}
		}
		if _, isDefault := k.(ir.DefaultExpression); isDefault {
			return map[string]any{"value": convert.HexStrWidth(0, width), "prefix_length": 0}
		}
	case c.Arch.MatchTypes.Range:
		if r, ok := k.(ir.Range); ok {
			lo, _ := r.Lo.(ir.Constant)
			hi, _ := r.Hi.(ir.Constant)
			return map[string]any{"start": hexConst(lo), "end": hexConst(hi)}
		}
		if _, isDefault := k.(ir.DefaultExpression); isDefault {
			return map[string]any{"start": convert.HexStrWidth(0, width), "end": convert.HexStrWidth(allOnes(width), width)}
		}
	}
	c.Sink.Error("TableConverter", "", "non-constant table-entry expression")
	return nil
}

// prefixLength returns the number of one-bits in mask, counted down from
// its highest set bit, if every bit below that run is zero (a contiguous
// prefix mask), or -1 otherwise. Zero bits above the highest set bit are
// skipped, since the key width is not known here.
func prefixLength(mask int64) int {
	n := 0
	seenZero := false
	for bit := 63; bit >= 0; bit-- {
		set := mask&(1<<uint(bit)) != 0
		if set {
			if seenZero {
				return -1
			}
			n++
		} else if n > 0 {
			seenZero = true
		}
	}
	return n
}
