package ir

import (
	"encoding/json"
	"fmt"
)

// DecodeProgram parses the JSON surrogate of a P4Program. The wire
// format uses a "Node_Type" discriminator on every Type/Expression/
// Declaration/Statement object, the same convention the front end's
// own IR::toJSON uses, so a dump from the real front end needs no
// translation beyond field naming.
func DecodeProgram(data []byte) (*P4Program, error) {
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	decls, err := decodeDeclList(raw["Declarations"])
	if err != nil {
		return nil, err
	}
	return &P4Program{Declarations: decls}, nil
}

type rawNode map[string]json.RawMessage

func nodeType(raw rawNode) string {
	var t string
	if msg, ok := raw["Node_Type"]; ok {
		_ = json.Unmarshal(msg, &t)
	}
	return t
}

func unmarshalField[T any](raw rawNode, key string) (T, error) {
	var v T
	msg, ok := raw[key]
	if !ok {
		return v, nil
	}
	err := json.Unmarshal(msg, &v)
	return v, err
}

func decodeType(msg json.RawMessage) (Type, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var raw rawNode
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, fmt.Errorf("decoding type: %w", err)
	}
	switch nodeType(raw) {
	case "Type_Bits":
		width, _ := unmarshalField[int](raw, "Width")
		signed, _ := unmarshalField[bool](raw, "IsSigned")
		return Bits{Width: width, Signed: signed}, nil
	case "Type_Boolean":
		return Boolean{}, nil
	case "Type_Error":
		return ErrorType{}, nil
	case "Type_Varbits":
		width, _ := unmarshalField[int](raw, "Width")
		return Varbits{Width: width}, nil
	case "Type_Header":
		name, _ := unmarshalField[string](raw, "Name")
		fields, err := decodeFields(raw["Fields"])
		if err != nil {
			return nil, err
		}
		return Header{Name: name, Fields: fields}, nil
	case "Type_Struct":
		name, _ := unmarshalField[string](raw, "Name")
		fields, err := decodeFields(raw["Fields"])
		if err != nil {
			return nil, err
		}
		return Struct{Name: name, Fields: fields}, nil
	case "Type_HeaderUnion":
		name, _ := unmarshalField[string](raw, "Name")
		fields, err := decodeFields(raw["Fields"])
		if err != nil {
			return nil, err
		}
		return HeaderUnion{Name: name, Fields: fields}, nil
	case "Type_Stack":
		size, _ := unmarshalField[int](raw, "Size")
		elemMsg, _ := unmarshalField[json.RawMessage](raw, "ElemType")
		elem, err := decodeType(elemMsg)
		if err != nil {
			return nil, err
		}
		return Stack{ElemType: elem, Size: size}, nil
	case "Type_Extern":
		name, _ := unmarshalField[string](raw, "Name")
		return Extern{Name: name}, nil
	case "Type_InfInt":
		return InfInt{}, nil
	default:
		return nil, fmt.Errorf("unknown type Node_Type %q", nodeType(raw))
	}
}

func decodeFields(msg json.RawMessage) ([]Field, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawFields []rawNode
	if err := json.Unmarshal(msg, &rawFields); err != nil {
		return nil, err
	}
	fields := make([]Field, 0, len(rawFields))
	for _, rf := range rawFields {
		name, _ := unmarshalField[string](rf, "Name")
		typMsg, _ := unmarshalField[json.RawMessage](rf, "Type")
		typ, err := decodeType(typMsg)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: name, Type: typ})
	}
	return fields, nil
}

func decodeExprList(msg json.RawMessage) ([]Expression, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []json.RawMessage
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]Expression, 0, len(rawList))
	for _, rm := range rawList {
		e, err := decodeExpr(rm)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExpr(msg json.RawMessage) (Expression, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var raw rawNode
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, fmt.Errorf("decoding expression: %w", err)
	}
	typMsg, _ := unmarshalField[json.RawMessage](raw, "Type")
	typ, err := decodeType(typMsg)
	if err != nil {
		return nil, err
	}

	switch nodeType(raw) {
	case "Constant":
		value, _ := unmarshalField[int64](raw, "Value")
		return Constant{Type: typ, Value: value}, nil
	case "BoolLiteral":
		value, _ := unmarshalField[bool](raw, "Value")
		return BoolLiteral{Value: value}, nil
	case "PathExpression":
		path, _ := unmarshalField[string](raw, "Path")
		return PathExpression{Path: path}, nil
	case "Member":
		expr, err := decodeExprField(raw, "Expr")
		if err != nil {
			return nil, err
		}
		name, _ := unmarshalField[string](raw, "Name")
		return Member{Expr: expr, Name: name}, nil
	case "ArrayIndex":
		left, err := decodeExprField(raw, "Left")
		if err != nil {
			return nil, err
		}
		index, err := decodeExprField(raw, "Index")
		if err != nil {
			return nil, err
		}
		return ArrayIndex{Left: left, Index: index}, nil
	case "Slice":
		expr, err := decodeExprField(raw, "Expr")
		if err != nil {
			return nil, err
		}
		hi, _ := unmarshalField[int](raw, "Hi")
		lo, _ := unmarshalField[int](raw, "Lo")
		return Slice{Expr: expr, Hi: hi, Lo: lo}, nil
	case "Concat":
		left, err := decodeExprField(raw, "Left")
		if err != nil {
			return nil, err
		}
		right, err := decodeExprField(raw, "Right")
		if err != nil {
			return nil, err
		}
		return Concat{Left: left, Right: right}, nil
	case "Cast":
		expr, err := decodeExprField(raw, "Expr")
		if err != nil {
			return nil, err
		}
		return Cast{To: typ, Expr: expr}, nil
	case "Neg":
		expr, err := decodeExprField(raw, "Expr")
		if err != nil {
			return nil, err
		}
		return Neg{Expr: expr}, nil
	case "Not":
		expr, err := decodeExprField(raw, "Expr")
		if err != nil {
			return nil, err
		}
		return Not{Expr: expr}, nil
	case "BinaryOp":
		op, _ := unmarshalField[string](raw, "Op")
		left, err := decodeExprField(raw, "Left")
		if err != nil {
			return nil, err
		}
		right, err := decodeExprField(raw, "Right")
		if err != nil {
			return nil, err
		}
		return BinaryOp{Op: op, Left: left, Right: right}, nil
	case "Mux":
		cond, err := decodeExprField(raw, "Cond")
		if err != nil {
			return nil, err
		}
		trueE, err := decodeExprField(raw, "True")
		if err != nil {
			return nil, err
		}
		falseE, err := decodeExprField(raw, "False")
		if err != nil {
			return nil, err
		}
		return Mux{Cond: cond, True: trueE, False: falseE}, nil
	case "Mask":
		value, err := decodeExprField(raw, "Value")
		if err != nil {
			return nil, err
		}
		mask, err := decodeExprField(raw, "Mask")
		if err != nil {
			return nil, err
		}
		return Mask{Value: value, Mask: mask}, nil
	case "Range":
		lo, err := decodeExprField(raw, "Lo")
		if err != nil {
			return nil, err
		}
		hi, err := decodeExprField(raw, "Hi")
		if err != nil {
			return nil, err
		}
		return Range{Lo: lo, Hi: hi}, nil
	case "MethodCallExpression":
		method, err := decodeExprField(raw, "Method")
		if err != nil {
			return nil, err
		}
		name, _ := unmarshalField[string](raw, "Name")
		typeArgsMsg, _ := unmarshalField[json.RawMessage](raw, "TypeArgs")
		typeArgs, err := decodeTypeList(typeArgsMsg)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprList(raw["Args"])
		if err != nil {
			return nil, err
		}
		return MethodCallExpression{Method: method, Name: name, TypeArgs: typeArgs, Args: args}, nil
	case "ListExpression":
		elems, err := decodeExprList(raw["Elements"])
		if err != nil {
			return nil, err
		}
		return ListExpression{Elements: elems}, nil
	case "DefaultExpression":
		return DefaultExpression{}, nil
	case "TypeNameExpression":
		name, _ := unmarshalField[string](raw, "Name")
		return TypeNameExpression{Name: name}, nil
	default:
		return nil, fmt.Errorf("unknown expression Node_Type %q", nodeType(raw))
	}
}

func decodeExprField(raw rawNode, key string) (Expression, error) {
	msg, ok := raw[key]
	if !ok {
		return nil, nil
	}
	return decodeExpr(msg)
}

func decodeTypeList(msg json.RawMessage) ([]Type, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []json.RawMessage
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]Type, 0, len(rawList))
	for _, rm := range rawList {
		t, err := decodeType(rm)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func decodeStmtList(msg json.RawMessage) ([]Statement, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []json.RawMessage
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]Statement, 0, len(rawList))
	for _, rm := range rawList {
		s, err := decodeStmt(rm)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeStmt(msg json.RawMessage) (Statement, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var raw rawNode
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, fmt.Errorf("decoding statement: %w", err)
	}
	switch nodeType(raw) {
	case "AssignmentStatement":
		left, err := decodeExprField(raw, "Left")
		if err != nil {
			return nil, err
		}
		right, err := decodeExprField(raw, "Right")
		if err != nil {
			return nil, err
		}
		return AssignmentStatement{Left: left, Right: right}, nil
	case "MethodCallStatement":
		callMsg, _ := unmarshalField[json.RawMessage](raw, "MethodCall")
		call, err := decodeExpr(callMsg)
		if err != nil {
			return nil, err
		}
		mc, _ := call.(MethodCallExpression)
		return MethodCallStatement{Call: mc}, nil
	case "BlockStatement":
		stmts, err := decodeStmtList(raw["Statements"])
		if err != nil {
			return nil, err
		}
		return BlockStatement{Statements: stmts}, nil
	case "IfStatement":
		cond, err := decodeExprField(raw, "Cond")
		if err != nil {
			return nil, err
		}
		thenMsg, _ := unmarshalField[json.RawMessage](raw, "Then")
		then, err := decodeStmt(thenMsg)
		if err != nil {
			return nil, err
		}
		elseMsg, _ := unmarshalField[json.RawMessage](raw, "Else")
		els, err := decodeStmt(elseMsg)
		if err != nil {
			return nil, err
		}
		return IfStatement{Cond: cond, Then: then, Else: els}, nil
	case "ExitStatement":
		return ExitStatement{}, nil
	case "ReturnStatement":
		return ReturnStatement{}, nil
	case "EmptyStatement":
		return EmptyStatement{}, nil
	default:
		return nil, fmt.Errorf("unknown statement Node_Type %q", nodeType(raw))
	}
}

func decodeParams(msg json.RawMessage) ([]Parameter, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []rawNode
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]Parameter, 0, len(rawList))
	for _, rp := range rawList {
		name, _ := unmarshalField[string](rp, "Name")
		direction, _ := unmarshalField[string](rp, "Direction")
		typMsg, _ := unmarshalField[json.RawMessage](rp, "Type")
		typ, err := decodeType(typMsg)
		if err != nil {
			return nil, err
		}
		out = append(out, Parameter{Name: name, Type: typ, Direction: direction})
	}
	return out, nil
}

func decodeDeclList(msg json.RawMessage) ([]Declaration, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []json.RawMessage
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]Declaration, 0, len(rawList))
	for _, rm := range rawList {
		d, err := decodeDecl(rm)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func decodeDecl(msg json.RawMessage) (Declaration, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var raw rawNode
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, fmt.Errorf("decoding declaration: %w", err)
	}
	switch nodeType(raw) {
	case "P4Parser":
		name, _ := unmarshalField[string](raw, "Name")
		params, err := decodeParams(raw["Params"])
		if err != nil {
			return nil, err
		}
		locals, err := decodeDeclList(raw["Locals"])
		if err != nil {
			return nil, err
		}
		states, err := decodeParserStates(raw["States"])
		if err != nil {
			return nil, err
		}
		return P4Parser{Name: name, Params: params, Locals: locals, States: states}, nil
	case "P4Control":
		name, _ := unmarshalField[string](raw, "Name")
		params, err := decodeParams(raw["Params"])
		if err != nil {
			return nil, err
		}
		locals, err := decodeDeclList(raw["Locals"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtList(raw["Body"])
		if err != nil {
			return nil, err
		}
		return P4Control{Name: name, Params: params, Locals: locals, Body: body}, nil
	case "P4Action":
		name, _ := unmarshalField[string](raw, "Name")
		params, err := decodeParams(raw["Params"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmtList(raw["Body"])
		if err != nil {
			return nil, err
		}
		return P4Action{Name: name, Params: params, Body: body}, nil
	case "P4Table":
		name, _ := unmarshalField[string](raw, "Name")
		keys, err := decodeTableKeys(raw["Keys"])
		if err != nil {
			return nil, err
		}
		actions, err := decodeExprList(raw["Actions"])
		if err != nil {
			return nil, err
		}
		props, err := decodeTableProps(raw["Properties"])
		if err != nil {
			return nil, err
		}
		entries, err := decodeTableEntries(raw["Entries"])
		if err != nil {
			return nil, err
		}
		return P4Table{Name: name, Keys: keys, Actions: actions, Properties: props, Entries: entries}, nil
	case "Declaration_Instance":
		name, _ := unmarshalField[string](raw, "Name")
		typMsg, _ := unmarshalField[json.RawMessage](raw, "Type")
		typ, err := decodeType(typMsg)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprList(raw["Args"])
		if err != nil {
			return nil, err
		}
		return Declaration_Instance{Name: name, Type: typ, Args: args}, nil
	case "Declaration_Variable":
		name, _ := unmarshalField[string](raw, "Name")
		typMsg, _ := unmarshalField[json.RawMessage](raw, "Type")
		typ, err := decodeType(typMsg)
		if err != nil {
			return nil, err
		}
		init, err := decodeExprField(raw, "Init")
		if err != nil {
			return nil, err
		}
		return Declaration_Variable{Name: name, Type: typ, Init: init}, nil
	case "Declaration_ID":
		name, _ := unmarshalField[string](raw, "Name")
		value, _ := unmarshalField[int64](raw, "Value")
		return Declaration_ID{Name: name, Value: value}, nil
	case "Type_Error":
		members, _ := unmarshalField[[]string](raw, "Members")
		return Type_Error{Members: members}, nil
	default:
		return nil, fmt.Errorf("unknown declaration Node_Type %q", nodeType(raw))
	}
}

func decodeParserStates(msg json.RawMessage) ([]ParserState, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []rawNode
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]ParserState, 0, len(rawList))
	for _, rs := range rawList {
		name, _ := unmarshalField[string](rs, "Name")
		stmts, err := decodeStmtList(rs["Statements"])
		if err != nil {
			return nil, err
		}
		selectMsg, _ := unmarshalField[json.RawMessage](rs, "SelectExpr")
		sel, err := decodeExpr(selectMsg)
		if err != nil {
			return nil, err
		}
		cases, err := decodeSelectCases(rs["Cases"])
		if err != nil {
			return nil, err
		}
		def, _ := unmarshalField[string](rs, "Default")
		out = append(out, ParserState{Name: name, Statements: stmts, SelectExpr: sel, Cases: cases, Default: def})
	}
	return out, nil
}

func decodeSelectCases(msg json.RawMessage) ([]SelectCase, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []rawNode
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]SelectCase, 0, len(rawList))
	for _, rc := range rawList {
		keys, err := decodeExprList(rc["Keys"])
		if err != nil {
			return nil, err
		}
		next, _ := unmarshalField[string](rc, "Next")
		out = append(out, SelectCase{Keys: keys, Next: next})
	}
	return out, nil
}

func decodeTableKeys(msg json.RawMessage) ([]TableKey, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []rawNode
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]TableKey, 0, len(rawList))
	for _, rk := range rawList {
		exprMsg, _ := unmarshalField[json.RawMessage](rk, "Expr")
		expr, err := decodeExpr(exprMsg)
		if err != nil {
			return nil, err
		}
		matchType, _ := unmarshalField[string](rk, "MatchType")
		width, _ := unmarshalField[int](rk, "Width")
		out = append(out, TableKey{Expr: expr, MatchType: matchType, Width: width})
	}
	return out, nil
}

func decodeTableProps(msg json.RawMessage) ([]TableProperty, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []rawNode
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]TableProperty, 0, len(rawList))
	for _, rp := range rawList {
		name, _ := unmarshalField[string](rp, "Name")
		valMsg, _ := unmarshalField[json.RawMessage](rp, "Value")
		val, err := decodeExpr(valMsg)
		if err != nil {
			return nil, err
		}
		out = append(out, TableProperty{Name: name, Value: val})
	}
	return out, nil
}

func decodeTableEntries(msg json.RawMessage) ([]TableEntry, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	var rawList []rawNode
	if err := json.Unmarshal(msg, &rawList); err != nil {
		return nil, err
	}
	out := make([]TableEntry, 0, len(rawList))
	for _, re := range rawList {
		keys, err := decodeExprList(re["Keys"])
		if err != nil {
			return nil, err
		}
		actionMsg, _ := unmarshalField[json.RawMessage](re, "Action")
		action, err := decodeExpr(actionMsg)
		if err != nil {
			return nil, err
		}
		priority, _ := unmarshalField[int](re, "Priority")
		out = append(out, TableEntry{Keys: keys, Action: action, Priority: priority})
	}
	return out, nil
}
