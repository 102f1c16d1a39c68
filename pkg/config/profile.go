package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the operator-editable policy file: extra keyword triggers for
// the offline classifier and CEL deny rules for the gate. Credentials never
// belong here; they stay in the environment.
type Profile struct {
	// KeywordOverrides maps category name → extra trigger words, checked
	// before the built-in table.
	KeywordOverrides map[string][]string `yaml:"keyword_overrides,omitempty"`

	// DenyRules are CEL expressions over the planned action; a rule that
	// evaluates true rejects the action even when the policy table would
	// proceed.
	DenyRules []string `yaml:"deny_rules,omitempty"`
}

// LoadProfile reads a Profile from path. A missing file is not an error;
// it yields an empty profile so running without one stays the default.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return &Profile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("config: read profile %s: %w", path, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("config: parse profile %s: %w", path, err)
	}
	return &profile, nil
}
