// Package arch models the "architecture model" external collaborator:
// well-known pipeline-control names, the standard-metadata parameter,
// match-type and algorithm identifiers, and extern type names, per §3.
package arch

// Model is the well-known-names table the architecture (e.g. v1model)
// supplies to the core. It is populated by internal/config and passed
// by value through the orchestrator.
type Model struct {
	ParserControl     string
	IngressControl    string
	EgressControl     string
	VerifyChecksum    string
	UpdateChecksum    string
	DeparserControl   string
	StandardMetaParam int
	StandardMetaName  string
	DefaultTableSize  int

	MatchTypes  MatchTypeNames
	Algorithms  AlgorithmNames
	ExternTypes ExternTypeNames
}

type MatchTypeNames struct {
	Exact, Ternary, LPM, Range, Selector string
}

type AlgorithmNames struct {
	CRC16, CRC16Custom, CRC32, CRC32Custom, Random, Identity string
}

type ExternTypeNames struct {
	Counter, Meter, Register                 string
	ActionProfile, ActionSelector            string
	DirectCounter, DirectMeter               string
	Clone, Hash, Digest                      string
	Resubmit, Recirculate, Drop              string
	Random, Truncate, Checksum               string
}

// V1Model is the standard architecture's well-known names, used as the
// default when no configuration overrides them.
func V1Model() Model {
	return Model{
		ParserControl:     "parser",
		IngressControl:    "ingress",
		EgressControl:     "egress",
		VerifyChecksum:    "verifyChecksum",
		UpdateChecksum:    "computeChecksum",
		DeparserControl:   "deparser",
		StandardMetaParam: 3,
		StandardMetaName:  "standard_metadata",
		DefaultTableSize:  1024,
		MatchTypes: MatchTypeNames{
			Exact: "exact", Ternary: "ternary", LPM: "lpm", Range: "range", Selector: "selector",
		},
		Algorithms: AlgorithmNames{
			CRC16: "crc16", CRC16Custom: "crc16_custom",
			CRC32: "crc32", CRC32Custom: "crc32_custom",
			Random: "random", Identity: "identity",
		},
		ExternTypes: ExternTypeNames{
			Counter: "counter", Meter: "meter", Register: "register",
			ActionProfile: "action_profile", ActionSelector: "action_selector",
			DirectCounter: "direct_counter", DirectMeter: "direct_meter",
			Clone: "clone", Hash: "hash", Digest: "digest",
			Resubmit: "resubmit", Recirculate: "recirculate", Drop: "drop",
			Random: "random", Truncate: "truncate", Checksum: "checksum",
		},
	}
}
