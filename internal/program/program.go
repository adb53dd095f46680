// Package program implements ProgramConverter (C9): the top-level
// orchestration described in §4.9, assembling the final document from
// headers, scalars, error codes, parser/controls/deparser, and actions,
// in the fixed emission order cross-references depend on. No enum table
// is emitted: the enums array stays empty.
package program

import (
	"github.com/p4lang/p4c-bm2json/internal/arch"
	"github.com/p4lang/p4c-bm2json/internal/control"
	"github.com/p4lang/p4c-bm2json/internal/convert"
	"github.com/p4lang/p4c-bm2json/internal/deparser"
	"github.com/p4lang/p4c-bm2json/internal/document"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/fixup"
	"github.com/p4lang/p4c-bm2json/internal/ir"
	"github.com/p4lang/p4c-bm2json/internal/parserconv"
	"github.com/p4lang/p4c-bm2json/internal/policy"
	"github.com/p4lang/p4c-bm2json/internal/tableconv"
)

// Converter is the per-invocation orchestrator state (§3 "Internal
// state maintained by ProgramConverter"). A fresh Converter is created
// per Convert call; nothing here is shared across conversions (§5).
type Converter struct {
	Arch arch.Model
	Sink *emitctl.Sink

	headerTypesCreated map[string]string
	scalarWidth        int
	scalarFields       map[string]string
	scalarWidths       map[string]int
	fieldTypes         map[string]ir.Type
	errorCodes         map[string]int64
	directCounters     map[string]string
	directMeters       map[string]*tableconv.DirectMeterInfo
	ids                *document.IDGroups
	paramIndex         map[string]int
	actionIDs          map[string]int

	unusedActionParams   []string
	unusedDirectCounters []string
}

// Facts returns the §7 policy-evaluation facts gathered during the most
// recent Convert call, for callers that run policy.Engine.Evaluate
// against the finished document (e.g. cmd/p4c-bm2json).
func (c *Converter) Facts() policy.Facts {
	return policy.Facts{
		UnusedActionParams:   c.unusedActionParams,
		UnusedDirectCounters: c.unusedDirectCounters,
	}
}

// Convert runs the full orchestration over prog, producing the final
// document, or a best-effort partial one if user errors were recorded
// (§5 "checkpoints"; §7 category 1).
func (c *Converter) Convert(prog *ir.P4Program, program string) *document.Document {
	c.headerTypesCreated = map[string]string{}
	c.scalarFields = map[string]string{}
	c.scalarWidths = map[string]int{}
	c.fieldTypes = map[string]ir.Type{}
	c.errorCodes = map[string]int64{}
	c.directCounters = map[string]string{}
	c.directMeters = map[string]*tableconv.DirectMeterInfo{}
	c.ids = document.NewIDGroups()
	c.paramIndex = map[string]int{}
	c.actionIDs = map[string]int{}
	c.unusedActionParams = nil
	c.unusedDirectCounters = nil

	doc := document.New(program)

	// Step 1: meta info already set by document.New.

	var parser *ir.P4Parser
	var ingressCtrl, egressCtrl *ir.P4Control
	var updateChecksumCtrl *ir.P4Control
	var deparserBody *ir.P4Control
	var actions []*ir.P4Action

	for _, d := range prog.Declarations {
		switch v := d.(type) {
		case ir.P4Parser:
			vv := v
			if vv.Name == c.Arch.ParserControl {
				parser = &vv
			}
		case ir.P4Control:
			vv := v
			switch vv.Name {
			case c.Arch.IngressControl:
				ingressCtrl = &vv
			case c.Arch.EgressControl:
				egressCtrl = &vv
			case c.Arch.UpdateChecksum:
				updateChecksumCtrl = &vv
			case c.Arch.DeparserControl:
				deparserBody = &vv
			}
		case ir.P4Action:
			vv := v
			actions = append(actions, &vv)
		case ir.Type_Error:
			c.collectErrorCodes(v)
		}
	}

	// Step 2-3: headers, instances, stacks, scalars — driven by the
	// parser's (or ingress control's) parameter struct, since that is
	// where `hdr`/`meta` are declared.
	if parser != nil {
		c.collectParameters(parser.Params)
		c.emitHeaders(doc, parser.Params)
	} else if ingressCtrl != nil {
		c.collectParameters(ingressCtrl.Params)
		c.emitHeaders(doc, ingressCtrl.Params)
	}

	c.emitScalars(doc)

	if c.Sink.Count() > 0 {
		return doc
	}

	// Step 5: errors (no enum table is emitted).
	c.emitErrors(doc)

	if c.Sink.Count() > 0 {
		return doc
	}

	// Step 6: parser / ingress / egress / update-checksum / deparser.
	conv := &convert.Converter{
		Arch:            c.Arch,
		Sink:            c.Sink,
		ParamIndex:      c.paramIndex,
		ScalarsName:     "scalars",
		ScalarFieldName: c.scalarFields,
		ErrorCodes:      c.errorCodes,
		Types:           c.fieldTypes,
	}

	if parser != nil {
		pc := &parserconv.Converter{Sink: c.Sink, Conv: conv, IDs: c.ids}
		doc.Parsers = append(doc.Parsers, pc.Convert(parser))
	}

	tc := &tableconv.Converter{
		Arch:               c.Arch,
		Sink:               c.Sink,
		Conv:                conv,
		IDs:                c.ids,
		ActionIDs:          c.actionIDs,
		DirectCounterOwner: c.directCounters,
		DirectMeterInfo:    c.directMeters,
		ActionProfiles:     map[string]*document.ActionProfile{},
	}
	cc := &control.Converter{Sink: c.Sink, Conv: conv, Tables: tc}

	for _, id := range actions {
		c.actionIDs[id.Name] = c.ids.Next("actions")
	}

	if ingressCtrl != nil {
		doc.Pipelines = append(doc.Pipelines, cc.Convert(ingressCtrl))
	}
	if egressCtrl != nil {
		doc.Pipelines = append(doc.Pipelines, cc.Convert(egressCtrl))
	}
	if updateChecksumCtrl != nil {
		updateChecksumCtrl.Body = fixup.FixupChecksum(c.Sink, updateChecksumCtrl.Body)
		c.emitChecksums(doc, updateChecksumCtrl, conv)
	}
	if deparserBody != nil {
		dc := &deparser.Converter{Sink: c.Sink, IDs: c.ids}
		doc.Deparsers = append(doc.Deparsers, dc.Convert(deparserBody.Name, deparserBody.Body))
	}

	if c.Sink.Count() > 0 {
		return doc
	}

	// Step 7: actions.
	for _, a := range actions {
		doc.Actions = append(doc.Actions, c.convertAction(a, conv))
	}

	c.collectUnusedDirectCounters(prog)

	// Step 8: force_arith hints for standard/intrinsic metadata.
	doc.ForceArith = append(doc.ForceArith,
		document.ForceArith{c.Arch.StandardMetaName, "ingress_port"},
		document.ForceArith{c.Arch.StandardMetaName, "egress_spec"},
	)

	return doc
}

func (c *Converter) collectParameters(params []ir.Parameter) {
	// Non-action control/parser parameters are field/header references,
	// never runtime_data (§3 "structure.non_action_parameters").
}

func (c *Converter) collectErrorCodes(te ir.Type_Error) {
	for _, m := range te.Members {
		if _, dup := c.errorCodes[m]; dup {
			emitctl.Bug(c.Sink.Log, "duplicate error code for %s", m)
		}
		c.errorCodes[m] = int64(len(c.errorCodes))
	}
}

func (c *Converter) emitErrors(doc *document.Document) {
	for name, val := range c.errorCodes {
		doc.Errors = append(doc.Errors, document.ErrorEntry{Name: name, Value: val})
	}
}

func (c *Converter) emitHeaders(doc *document.Document, params []ir.Parameter) {
	for _, p := range params {
		switch t := p.Type.(type) {
		case ir.Struct:
			for _, f := range t.Fields {
				c.emitHeaderField(doc, f)
			}
		case ir.Header:
			c.emitHeaderInstance(doc, p.Name, t)
		}
	}
}

func (c *Converter) emitHeaderField(doc *document.Document, f ir.Field) {
	c.fieldTypes[f.Name] = f.Type
	switch t := f.Type.(type) {
	case ir.Header:
		c.emitHeaderInstance(doc, f.Name, t)
	case ir.Stack:
		c.emitHeaderStack(doc, f.Name, t)
	case ir.Struct:
		// nested metadata struct: flatten into scalars by name.
		for _, nf := range t.Fields {
			c.emitHeaderField(doc, nf)
		}
	case ir.Bits, ir.Boolean, ir.ErrorType:
		c.registerScalar(f.Name, t)
	}
}

func (c *Converter) emitHeaderInstance(doc *document.Document, name string, h ir.Header) {
	typeName, isNew := c.internHeaderType(h)
	if isNew {
		var fields []document.HeaderTypeField
		for _, f := range h.Fields {
			w, _ := ir.Width(f.Type)
			fields = append(fields, document.HeaderTypeField{Name: f.Name, Width: w, Signed: ir.IsSigned(f.Type)})
		}
		doc.HeaderTypes = append(doc.HeaderTypes, document.HeaderType{
			Name: typeName, ID: c.ids.Next("header_types"), Fields: fields,
		})
	}
	doc.Headers = append(doc.Headers, document.HeaderInstance{
		Name: ir.ExternalName(name), ID: c.ids.Next("headers"), HeaderType: typeName,
	})
}

func (c *Converter) emitHeaderStack(doc *document.Document, name string, s ir.Stack) {
	h, _ := s.ElemType.(ir.Header)
	typeName, isNew := c.internHeaderType(h)
	if isNew {
		var fields []document.HeaderTypeField
		for _, f := range h.Fields {
			w, _ := ir.Width(f.Type)
			fields = append(fields, document.HeaderTypeField{Name: f.Name, Width: w, Signed: ir.IsSigned(f.Type)})
		}
		doc.HeaderTypes = append(doc.HeaderTypes, document.HeaderType{
			Name: typeName, ID: c.ids.Next("header_types"), Fields: fields,
		})
	}
	var ids []int
	for i := 0; i < s.Size; i++ {
		id := c.ids.Next("headers")
		ids = append(ids, id)
	}
	doc.HeaderStacks = append(doc.HeaderStacks, document.HeaderStack{
		Name: ir.ExternalName(name), ID: c.ids.Next("header_stacks"), Size: s.Size, HeaderType: typeName, HeaderIDs: ids,
	})
}

// internHeaderType deduplicates structurally-identical header types by
// name, returning the canonical name and whether this call created it
// (§3 "header_types_created").
func (c *Converter) internHeaderType(h ir.Header) (string, bool) {
	if canon, ok := c.headerTypesCreated[h.Name]; ok {
		return canon, false
	}
	c.headerTypesCreated[h.Name] = h.Name
	return h.Name, true
}

func (c *Converter) registerScalar(name string, t ir.Type) {
	w, _ := ir.Width(t)
	synth := name
	c.scalarFields[name] = synth
	c.scalarWidths[synth] = w
	c.scalarWidth += w
}

func (c *Converter) emitScalars(doc *document.Document) {
	pad := (8 - (c.scalarWidth % 8)) % 8
	var fields []document.HeaderTypeField
	for _, synth := range c.scalarFields {
		fields = append(fields, document.HeaderTypeField{Name: synth, Width: c.scalarWidths[synth]})
	}
	if pad > 0 {
		fields = append(fields, document.HeaderTypeField{Name: "_padding", Width: pad})
	}
	doc.HeaderTypes = append(doc.HeaderTypes, document.HeaderType{
		Name: "scalars_t", ID: c.ids.Next("header_types"), Fields: fields,
	})
	doc.Headers = append(doc.Headers, document.HeaderInstance{
		Name: "scalars", ID: c.ids.Next("headers"), HeaderType: "scalars_t", Metadata: true,
	})
}

func (c *Converter) emitChecksums(doc *document.Document, ctrl *ir.P4Control, conv *convert.Converter) {
	for _, s := range ctrl.Body {
		asn, ok := s.(ir.AssignmentStatement)
		if !ok {
			continue
		}
		mc, ok := asn.Right.(ir.MethodCallExpression)
		if !ok || mc.Name != "get" {
			continue
		}
		calcID := c.ids.NextFrom("calculations", 0)
		var input []convert.Node
		for _, a := range mc.Args {
			input = append(input, conv.Convert(a, nil, false, false, false))
		}
		calcName := "calc_" + ir.ExternalName(asn.Left.(ir.PathExpression).Path)
		doc.Calculations = append(doc.Calculations, document.Calculation{
			Name: calcName, ID: calcID, Algo: c.Arch.Algorithms.CRC16, Input: input,
		})
		doc.Checksums = append(doc.Checksums, document.Checksum{
			Name:        "checksum_" + calcName,
			ID:          c.ids.Next("checksums"),
			Target:      conv.ConvertLeftValue(asn.Left, nil),
			Type:        "generic",
			Calculation: calcName,
		})
	}
}

func (c *Converter) convertAction(a *ir.P4Action, conv *convert.Converter) document.Action {
	out := document.Action{Name: ir.ExternalName(a.Name), ID: c.actionIDs[a.Name]}
	for i, p := range a.Params {
		w, ok := ir.Width(p.Type)
		if !ok {
			c.Sink.Error("ProgramConverter", a.Name, "action parameter %s has unsupported type", p.Name)
			continue
		}
		conv.ParamIndex[a.Name+"."+p.Name] = i
		out.RuntimeData = append(out.RuntimeData, document.RuntimeDataParam{Name: p.Name, Bitwidth: w})
	}
	for _, s := range a.Body {
		out.Primitives = append(out.Primitives, c.convertActionStatement(s, conv)...)
	}

	used := map[string]bool{}
	for _, s := range a.Body {
		collectStatementPaths(s, used)
	}
	for _, p := range a.Params {
		path := a.Name + "." + p.Name
		if !used[path] {
			c.unusedActionParams = append(c.unusedActionParams, path)
		}
	}

	return out
}

// collectUnusedDirectCounters records every direct_counter extern
// instance (§7 "unused_direct_counter") that no table ever bound via
// its "direct_counter" property (bindDirectCounter never saw it).
func (c *Converter) collectUnusedDirectCounters(prog *ir.P4Program) {
	decls := append([]ir.Declaration(nil), prog.Declarations...)
	for _, d := range prog.Declarations {
		if ctl, ok := d.(ir.P4Control); ok {
			decls = append(decls, ctl.Locals...)
		}
	}
	for _, d := range decls {
		di, ok := d.(ir.Declaration_Instance)
		if !ok {
			continue
		}
		ext, ok := di.Type.(ir.Extern)
		if !ok || ext.Name != "direct_counter" {
			continue
		}
		if _, bound := c.directCounters[di.Name]; !bound {
			c.unusedDirectCounters = append(c.unusedDirectCounters, di.Name)
		}
	}
}

// collectStatementPaths collects every declaration path referenced by s
// into out, used to determine which action parameters an action body
// never reads (§7 "unused_action_parameter").
func collectStatementPaths(s ir.Statement, out map[string]bool) {
	switch v := s.(type) {
	case ir.BlockStatement:
		for _, inner := range v.Statements {
			collectStatementPaths(inner, out)
		}
	case ir.AssignmentStatement:
		collectExprPaths(v.Left, out)
		collectExprPaths(v.Right, out)
	case ir.MethodCallStatement:
		collectExprPaths(v.Call, out)
	case ir.IfStatement:
		collectExprPaths(v.Cond, out)
		if v.Then != nil {
			collectStatementPaths(v.Then, out)
		}
		if v.Else != nil {
			collectStatementPaths(v.Else, out)
		}
	}
}

func collectExprPaths(e ir.Expression, out map[string]bool) {
	switch v := e.(type) {
	case ir.PathExpression:
		out[v.Path] = true
	case ir.Member:
		collectExprPaths(v.Expr, out)
	case ir.ArrayIndex:
		collectExprPaths(v.Left, out)
		collectExprPaths(v.Index, out)
	case ir.Slice:
		collectExprPaths(v.Expr, out)
	case ir.Concat:
		collectExprPaths(v.Left, out)
		collectExprPaths(v.Right, out)
	case ir.Cast:
		collectExprPaths(v.Expr, out)
	case ir.Neg:
		collectExprPaths(v.Expr, out)
	case ir.Not:
		collectExprPaths(v.Expr, out)
	case ir.BinaryOp:
		collectExprPaths(v.Left, out)
		collectExprPaths(v.Right, out)
	case ir.Mux:
		collectExprPaths(v.Cond, out)
		collectExprPaths(v.True, out)
		collectExprPaths(v.False, out)
	case ir.Mask:
		collectExprPaths(v.Value, out)
		collectExprPaths(v.Mask, out)
	case ir.Range:
		collectExprPaths(v.Lo, out)
		collectExprPaths(v.Hi, out)
	case ir.MethodCallExpression:
		collectExprPaths(v.Method, out)
		for _, a := range v.Args {
			collectExprPaths(a, out)
		}
	case ir.ListExpression:
		for _, el := range v.Elements {
			collectExprPaths(el, out)
		}
	}
}

func (c *Converter) convertActionStatement(s ir.Statement, conv *convert.Converter) []convert.Node {
	switch v := s.(type) {
	case ir.BlockStatement:
		var out []convert.Node
		for _, inner := range v.Statements {
			out = append(out, c.convertActionStatement(inner, conv)...)
		}
		return out
	case ir.ExitStatement:
		return []convert.Node{{"op": "exit", "parameters": []convert.Node{}}}
	case ir.ReturnStatement, ir.EmptyStatement:
		return nil
	case ir.AssignmentStatement:
		op := "modify_field"
		if c.isStructLike(v.Left) {
			op = "copy_header"
		}
		lhs := conv.ConvertLeftValue(v.Left, nil)
		rhs := conv.Convert(v.Right, nil, true, false, false)
		return []convert.Node{{"op": op, "parameters": []convert.Node{lhs, rhs}}}
	case ir.MethodCallStatement:
		return c.convertPrimitiveCall(v.Call, conv)
	default:
		c.Sink.Error("ProgramConverter", "", "unsupported action-body statement %T", s)
		return nil
	}
}

// isStructLike reports whether e names a whole header/struct-typed
// declaration (§4.10), in which case the assignment lowers to
// copy_header instead of modify_field.
func (c *Converter) isStructLike(e ir.Expression) bool {
	p, ok := e.(ir.PathExpression)
	if !ok {
		return false
	}
	switch c.fieldTypes[p.Path].(type) {
	case ir.Header, ir.Struct, ir.HeaderUnion:
		return true
	}
	return false
}

func (c *Converter) convertPrimitiveCall(mc ir.MethodCallExpression, conv *convert.Converter) []convert.Node {
	prim := map[string]string{
		"setValid": "add_header", "setInvalid": "remove_header",
		"push_front": "push", "pop_front": "pop",
		"increment": "count", "execute": "execute_meter",
		"read": "register_read", "write": "register_write",
		"count": "count", "clone": "clone_ingress_pkt_to_egress",
		"clone3": "clone_ingress_pkt_to_egress", "hash": "modify_field_with_hash_based_offset",
		"digest": "generate_digest", "resubmit": "resubmit", "recirculate": "recirculate",
		"drop": "drop", "random": "modify_field_rng_uniform", "truncate": "truncate",
	}
	name, ok := prim[mc.Name]
	if !ok {
		c.Sink.Warn("ProgramConverter", mc.Name, "unknown extern method")
		return []convert.Node{{"op": "_extern_method", "parameters": []convert.Node{}}}
	}
	var params []convert.Node
	for _, a := range mc.Args {
		params = append(params, conv.Convert(a, nil, false, false, false))
	}
	return []convert.Node{{"op": name, "parameters": params}}
}
