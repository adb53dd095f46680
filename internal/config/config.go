// Package config loads the architecture model and lint-style settings
// for the lowering engine, following the same search-path and defaults
// idiom the reference tooling uses for its own configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/p4lang/p4c-bm2json/internal/arch"
)

// Config is the on-disk configuration shape. Everything is optional;
// zero values fall back to the v1model defaults (arch.V1Model) when
// Model resolves the configuration.
type Config struct {
	Architecture ArchitectureConfig `json:"architecture"`
	Emit         EmitConfig         `json:"emit"`
}

type ArchitectureConfig struct {
	ParserControl     string `json:"parser_control,omitempty"`
	IngressControl    string `json:"ingress_control,omitempty"`
	EgressControl     string `json:"egress_control,omitempty"`
	VerifyChecksum    string `json:"verify_checksum,omitempty"`
	UpdateChecksum    string `json:"update_checksum,omitempty"`
	DeparserControl   string `json:"deparser_control,omitempty"`
	StandardMetaParam *int   `json:"standard_meta_param,omitempty"`
	StandardMetaName  string `json:"standard_meta_name,omitempty"`
	DefaultTableSize  *int   `json:"default_table_size,omitempty"`
}

// EmitConfig controls optional output behavior not covered by the
// required §6 schema keys.
type EmitConfig struct {
	Verbose       bool `json:"verbose,omitempty"`
	ValidateOutput *bool `json:"validate_output,omitempty"`
	EvaluateWarnings *bool `json:"evaluate_warnings,omitempty"`
}

// DefaultConfig returns the v1model defaults with warnings/validation
// enabled, the posture a fresh install should have.
func DefaultConfig() *Config {
	t := true
	return &Config{
		Emit: EmitConfig{
			ValidateOutput:   &t,
			EvaluateWarnings: &t,
		},
	}
}

// Load searches, in order: ./p4c-bm2json.json, ./.p4c-bm2json.json,
// rootPath-relative variants (if rootPath differs from the working
// directory), and ~/.config/p4c-bm2json/config.json. It returns
// DefaultConfig() if none are found.
func Load(rootPath string) (*Config, error) {
	candidates := []string{"p4c-bm2json.json", ".p4c-bm2json.json"}

	if wd, err := os.Getwd(); err == nil && rootPath != "" && rootPath != wd {
		candidates = append(candidates,
			filepath.Join(rootPath, "p4c-bm2json.json"),
			filepath.Join(rootPath, ".p4c-bm2json.json"),
		)
	}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "p4c-bm2json", "config.json"))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return LoadFile(c)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads and validates a specific configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes cfg to path as indented JSON, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyDefaults() {
	if c.Emit.ValidateOutput == nil {
		t := true
		c.Emit.ValidateOutput = &t
	}
	if c.Emit.EvaluateWarnings == nil {
		t := true
		c.Emit.EvaluateWarnings = &t
	}
}

// Model resolves the configuration into a concrete arch.Model, applying
// v1model defaults for anything left unset.
func (c *Config) Model() arch.Model {
	m := arch.V1Model()
	a := c.Architecture
	if a.ParserControl != "" {
		m.ParserControl = a.ParserControl
	}
	if a.IngressControl != "" {
		m.IngressControl = a.IngressControl
	}
	if a.EgressControl != "" {
		m.EgressControl = a.EgressControl
	}
	if a.VerifyChecksum != "" {
		m.VerifyChecksum = a.VerifyChecksum
	}
	if a.UpdateChecksum != "" {
		m.UpdateChecksum = a.UpdateChecksum
	}
	if a.DeparserControl != "" {
		m.DeparserControl = a.DeparserControl
	}
	if a.StandardMetaParam != nil {
		m.StandardMetaParam = *a.StandardMetaParam
	}
	if a.StandardMetaName != "" {
		m.StandardMetaName = a.StandardMetaName
	}
	if a.DefaultTableSize != nil {
		m.DefaultTableSize = *a.DefaultTableSize
	}
	return m
}

// ValidateOutput reports whether CUE schema validation should run.
func (c *Config) ValidateOutput() bool {
	return c.Emit.ValidateOutput == nil || *c.Emit.ValidateOutput
}

// EvaluateWarnings reports whether the OPA warnings pass should run.
func (c *Config) EvaluateWarnings() bool {
	return c.Emit.EvaluateWarnings == nil || *c.Emit.EvaluateWarnings
}
