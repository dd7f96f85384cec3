package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"coveragesync/internal/keys"
)

// LoadKeysFile loads the YAML key-source file:
//
//	curated:
//	  - name: New York
//	    keys: ["10001", "10002"]
//	ranges:
//	  - {name: Northeast, start: 1000, end: 6999}
//	special: ["00501"]
//
// Returns nil without error if path is empty or the file doesn't exist.
func LoadKeysFile(path string) (*keys.File, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Keys file is optional
			return nil, nil
		}
		return nil, err
	}

	var f keys.File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// Source builds the candidate key source for the configured mode.
func (c *Config) Source() (keys.Source, error) {
	file, err := LoadKeysFile(c.KeysFile)
	if err != nil {
		return nil, &FatalError{Errs: []error{err}}
	}
	src, err := keys.New(c.Mode, file)
	if err != nil {
		return nil, &FatalError{Errs: []error{err}}
	}
	return src, nil
}
