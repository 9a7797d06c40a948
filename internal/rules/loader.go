package rules

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

//go:embed default_rules.toml
var defaultRules []byte

type ruleFile struct {
	Name  string `toml:"name" yaml:"name"`
	Rules []Rule `toml:"rules" yaml:"rules"`
}

// Default returns the embedded time-crystal rule set.
func Default() *RuleSet {
	rs, err := ParseTOML(defaultRules)
	if err != nil {
		panic(errors.Wrap(err, "embedded default rule set is invalid"))
	}
	return rs
}

// LoadFile reads a rule set from a .toml, .yaml or .yml file. An empty path
// yields the embedded default set.
func LoadFile(path string) (*RuleSet, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rule file %s", path)
	}
	var rs *RuleSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		rs, err = ParseYAML(raw)
	case ".toml":
		rs, err = ParseTOML(raw)
	default:
		return nil, errors.WithHint(
			errors.Newf("unsupported rule file type %q", filepath.Ext(path)),
			"use a .toml, .yaml or .yml file",
		)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "rule file %s", path)
	}
	return rs, nil
}

// ParseTOML decodes and compiles a TOML rule set.
func ParseTOML(raw []byte) (*RuleSet, error) {
	var f ruleFile
	md, err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode rule set")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.NewInvalidRequestError("unknown rule set keys: %s", strings.Join(keys, ", "))
	}
	return NewRuleSet(f.Name, f.Rules)
}

// ParseYAML decodes and compiles a YAML rule set.
func ParseYAML(raw []byte) (*RuleSet, error) {
	var f ruleFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "failed to decode rule set")
	}
	return NewRuleSet(f.Name, f.Rules)
}
