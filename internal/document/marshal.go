package document

import "encoding/json"

// marshalPair renders [a, b] the way the runtime expects for
// name/value pairs (errors[], enum entries) instead of a {"name":...,
// "value":...} object.
func marshalPair(a any, b any) ([]byte, error) {
	return json.Marshal([2]any{a, b})
}

// marshalTriple renders [name, width, signed] for header_types[].fields.
func marshalTriple(a, b, c any) ([]byte, error) {
	return json.Marshal([3]any{a, b, c})
}
