package rules

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed data/delivery_estimation.json
var defaultDocument []byte

// Load reads and validates the rule document at path. An empty path loads the
// document compiled into the binary.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Parse(defaultDocument)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes a rule document, canonicalizes its keys and validates it.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	t.PackageTypes = lowerKeys(t.PackageTypes)
	t.DeliveryOptions = lowerKeys(t.DeliveryOptions)
	t.Fees.Packaging = lowerKeys(t.Fees.Packaging)
	aliases := make(map[string]string, len(t.OptionAliases))
	for k, v := range t.OptionAliases {
		aliases[Key(k)] = Key(v)
	}
	t.OptionAliases = aliases

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func lowerKeys[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[Key(k)] = v
	}
	return out
}
