package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChainSeed is the operator-provided initial retry chain per payment method.
//
//	chains:
//	  pix: [ativus, inter]
//	  credit_card: [inter, valorion, ativus]
type ChainSeed struct {
	Chains map[string][]string `yaml:"chains"`
}

// LoadChainSeed reads and parses a chain seed file.
func LoadChainSeed(path string) (*ChainSeed, error) {
	// #nosec G304 -- path comes from operator configuration.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseChainSeed(raw)
}

// ParseChainSeed parses seed YAML.
func ParseChainSeed(raw []byte) (*ChainSeed, error) {
	var seed ChainSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse chain seed: %w", err)
	}
	if len(seed.Chains) == 0 {
		return nil, fmt.Errorf("parse chain seed: no chains defined")
	}
	return &seed, nil
}
