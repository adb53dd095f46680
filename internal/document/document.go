// Package document defines the bmv2 JSON output document (§6) and the
// per-conversion id-counter/dedup state ProgramConverter (C9) owns.
// The shape mirrors the reference tooling's Tables relational model
// (internal/facts in the teacher repository): one slice per array, each
// row json-tagged for direct marshaling, assembled by BuildX-style
// orchestration rather than ad-hoc map literals scattered through the
// converters.
package document

import "github.com/p4lang/p4c-bm2json/internal/convert"

type Meta struct {
	Version  [2]int `json:"version"`
	Compiler string `json:"compiler"`
}

type HeaderTypeField struct {
	Name   string
	Width  int
	Signed bool
}

func (f HeaderTypeField) MarshalJSON() ([]byte, error) {
	return marshalTriple(f.Name, f.Width, f.Signed)
}

type HeaderType struct {
	Name       string            `json:"name"`
	ID         int               `json:"id"`
	SourceInfo any               `json:"source_info,omitempty"`
	Fields     []HeaderTypeField `json:"fields"`
}

type HeaderInstance struct {
	Name       string `json:"name"`
	ID         int    `json:"id"`
	HeaderType string `json:"header_type"`
	Metadata   bool   `json:"metadata"`
	PiOmit     bool   `json:"pi_omit,omitempty"`
}

type HeaderStack struct {
	Name       string `json:"name"`
	ID         int    `json:"id"`
	Size       int    `json:"size"`
	HeaderType string `json:"header_type"`
	HeaderIDs  []int  `json:"header_ids"`
}

type FieldList struct {
	Name     string          `json:"name"`
	ID       int             `json:"id"`
	Elements []convert.Node `json:"elements"`
}

type ErrorEntry struct {
	Name  string
	Value int64
}

func (e ErrorEntry) MarshalJSON() ([]byte, error) {
	return marshalPair(e.Name, e.Value)
}

type Enum struct {
	Name    string          `json:"name"`
	Entries []EnumEntry     `json:"entries"`
}

type EnumEntry struct {
	Name  string
	Value int64
}

func (e EnumEntry) MarshalJSON() ([]byte, error) { return marshalPair(e.Name, e.Value) }

type ParseState struct {
	Name          string          `json:"name"`
	ID            int             `json:"id"`
	ParserOps     []convert.Node `json:"parser_ops"`
	Transitions   []Transition    `json:"transitions"`
	TransitionKey []convert.Node `json:"transition_key"`
}

type Transition struct {
	Value     any    `json:"value"`
	Mask      any    `json:"mask"`
	NextState any    `json:"next_state"`
}

type Parser struct {
	Name        string       `json:"name"`
	ID          int          `json:"id"`
	InitState   string       `json:"init_state"`
	ParseStates []ParseState `json:"parse_states"`
}

type Deparser struct {
	Name  string   `json:"name"`
	ID    int      `json:"id"`
	Order []string `json:"order"`
}

type MeterArray struct {
	Name           string `json:"name"`
	ID             int    `json:"id"`
	Size           int    `json:"size"`
	IsDirect       bool   `json:"is_direct"`
	RateCount      int    `json:"rate_count"`
	Type           string `json:"type"`
	Binding        string `json:"binding,omitempty"`
	ResultTarget   []string `json:"result_target,omitempty"`
}

type CounterArray struct {
	Name     string `json:"name"`
	ID       int    `json:"id"`
	Size     int    `json:"size,omitempty"`
	IsDirect bool   `json:"is_direct"`
	Binding  string `json:"binding,omitempty"`
}

type RegisterArray struct {
	Name     string `json:"name"`
	ID       int    `json:"id"`
	Size     int    `json:"size"`
	Bitwidth int    `json:"bitwidth"`
}

type Calculation struct {
	Name  string         `json:"name"`
	ID    int            `json:"id"`
	Algo  string         `json:"algo"`
	Input []convert.Node `json:"input"`
}

type Checksum struct {
	Name        string `json:"name"`
	ID          int    `json:"id"`
	Target      convert.Node `json:"target"`
	Type        string `json:"type"`
	Calculation string `json:"calculation"`
}

type ExternInstance struct {
	Name            string   `json:"name"`
	ID              int      `json:"id"`
	Type            string   `json:"type"`
	AttributeValues []any    `json:"attribute_values"`
}

type RuntimeDataParam struct {
	Name     string `json:"name"`
	Bitwidth int    `json:"bitwidth"`
}

type Action struct {
	Name        string             `json:"name"`
	ID          int                `json:"id"`
	RuntimeData []RuntimeDataParam `json:"runtime_data"`
	Primitives  []convert.Node    `json:"primitives"`
}

type Table struct {
	Name             string          `json:"name"`
	ID               int             `json:"id"`
	Key              []KeyElement    `json:"key"`
	MatchType        string          `json:"match_type"`
	MaxSize          int             `json:"max_size"`
	WithCounters     bool            `json:"with_counters"`
	SupportTimeout   bool            `json:"support_timeout"`
	DirectMeters     any             `json:"direct_meters"`
	ActionIDs        []int           `json:"action_ids"`
	Actions          []string        `json:"actions"`
	BaseDefaultNext  any             `json:"base_default_next"`
	NextTables       map[string]any  `json:"next_tables"`
	DefaultEntry     *DefaultEntry   `json:"default_entry,omitempty"`
	Entries          []TableEntry    `json:"entries,omitempty"`
	Type             string          `json:"type"`
	ActionProfile    string          `json:"action_profile,omitempty"`
}

type KeyElement struct {
	MatchType string       `json:"match_type"`
	Target    []string     `json:"target"`
	Mask      any          `json:"mask"`
}

type DefaultEntry struct {
	ActionID    int            `json:"action_id"`
	ActionConst bool           `json:"action_const"`
	ActionData  []convert.Node `json:"action_data"`
}

type TableEntry struct {
	MatchKey    []any        `json:"match_key"`
	ActionEntry ActionEntry  `json:"action_entry"`
	Priority    int          `json:"priority"`
}

type ActionEntry struct {
	ActionID   int            `json:"action_id"`
	ActionData []convert.Node `json:"action_data"`
}

type Conditional struct {
	Name       string         `json:"name"`
	ID         int            `json:"id"`
	SourceInfo any            `json:"source_info,omitempty"`
	Expression convert.Node   `json:"expression"`
	TrueNext   any            `json:"true_next"`
	FalseNext  any            `json:"false_next"`
}

type Pipeline struct {
	Name           string        `json:"name"`
	ID             int           `json:"id"`
	InitTable      any           `json:"init_table"`
	Tables         []Table       `json:"tables"`
	ActionProfiles []ActionProfile `json:"action_profiles"`
	Conditionals   []Conditional `json:"conditionals"`
}

type ActionProfile struct {
	Name     string        `json:"name"`
	ID       int           `json:"id"`
	MaxSize  int           `json:"max_size"`
	Selector *SelectorSpec `json:"selector,omitempty"`
}

type SelectorSpec struct {
	Algo  string         `json:"algo"`
	Input []convert.Node `json:"input"`
}

type ForceArith [2]string

func (f ForceArith) MarshalJSON() ([]byte, error) { return marshalPair(f[0], f[1]) }

// Document is the top-level JSON object (§6). Every key is required;
// arrays default to empty rather than nil so they marshal as `[]`.
type Document struct {
	HeaderTypes     []HeaderType      `json:"header_types"`
	Headers         []HeaderInstance  `json:"headers"`
	HeaderStacks    []HeaderStack     `json:"header_stacks"`
	FieldLists      []FieldList       `json:"field_lists"`
	LearnLists      []FieldList       `json:"learn_lists"`
	Errors          []ErrorEntry      `json:"errors"`
	Enums           []Enum            `json:"enums"`
	Parsers         []Parser          `json:"parsers"`
	Deparsers       []Deparser        `json:"deparsers"`
	MeterArrays     []MeterArray      `json:"meter_arrays"`
	CounterArrays   []CounterArray    `json:"counter_arrays"`
	RegisterArrays  []RegisterArray   `json:"register_arrays"`
	Calculations    []Calculation     `json:"calculations"`
	Checksums       []Checksum        `json:"checksums"`
	ExternInstances []ExternInstance  `json:"extern_instances"`
	Actions         []Action          `json:"actions"`
	Pipelines       []Pipeline        `json:"pipelines"`
	ForceArith      []ForceArith      `json:"force_arith"`
	MetaInfo        Meta              `json:"__meta__"`
	Program         string            `json:"program"`
}

// New returns an empty Document with every array initialized (never
// nil), matching "arrays may be empty" rather than "arrays may be
// absent" in §6.
func New(program string) *Document {
	return &Document{
		HeaderTypes:     []HeaderType{},
		Headers:         []HeaderInstance{},
		HeaderStacks:    []HeaderStack{},
		FieldLists:      []FieldList{},
		LearnLists:      []FieldList{},
		Errors:          []ErrorEntry{},
		Enums:           []Enum{},
		Parsers:         []Parser{},
		Deparsers:       []Deparser{},
		MeterArrays:     []MeterArray{},
		CounterArrays:   []CounterArray{},
		RegisterArrays:  []RegisterArray{},
		Calculations:    []Calculation{},
		Checksums:       []Checksum{},
		ExternInstances: []ExternInstance{},
		Actions:         []Action{},
		Pipelines:       []Pipeline{},
		ForceArith:      []ForceArith{},
		MetaInfo:        Meta{Version: [2]int{2, 23}, Compiler: "p4c-bm2json"},
		Program:         program,
	}
}

// IDGroups is the per-conversion monotonically-increasing id-counter
// map (§3 "next_id: map group → counter"), threaded through the
// orchestrator rather than kept at process scope (§5, §9).
type IDGroups struct {
	counters map[string]int
}

func NewIDGroups() *IDGroups { return &IDGroups{counters: make(map[string]int)} }

// Next returns the next id in group, starting at 0. FieldList and
// LearnList ids start at 1 instead (id 0 reserved) — callers of Next
// for those two groups should seed the counter at 1 via NextFrom.
func (g *IDGroups) Next(group string) int {
	id := g.counters[group]
	g.counters[group] = id + 1
	return id
}

// NextFrom behaves like Next but seeds the counter's first value with
// start if the group has not been used yet.
func (g *IDGroups) NextFrom(group string, start int) int {
	if _, ok := g.counters[group]; !ok {
		g.counters[group] = start
	}
	id := g.counters[group]
	g.counters[group] = id + 1
	return id
}
