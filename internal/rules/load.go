package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Load reads a JSON rule file. See Parse for the accepted formats.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	set, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes a rule document. The document is either a bare list of
// {"pattern", "kind"} entries or an object with "rules" and "protect" keys.
func Parse(data []byte) (*Set, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidRule)
	}

	var set Set
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()

	var err error
	if trimmed[0] == '[' {
		err = dec.Decode(&set.Rules)
	} else {
		err = dec.Decode(&set)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules JSON: %w", err)
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Write stores a rule set as an indented JSON object.
func Write(path string, set *Set) error {
	if err := set.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rule file %s: %w", path, err)
	}
	return nil
}
