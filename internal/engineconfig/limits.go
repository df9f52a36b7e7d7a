// Package engineconfig loads the YAML configuration the CLI and
// longer-lived hosts use to build an engine.Limits value, keeping the
// engine package itself free of a config-file format opinion.
package engineconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/cwbudde/go-pyembed/internal/engine"
)

// LimitsFile is the on-disk shape of a limits.yaml document.
//
//	instruction_budget: 100000
//	wall_timeout: 2s
type LimitsFile struct {
	InstructionBudget int64  `yaml:"instruction_budget"`
	WallTimeout       string `yaml:"wall_timeout"`
}

// DefaultLimits is a generous instruction budget (1,000,000 statements) and
// a 10s wall timeout, so a CLI invocation without a limits file still
// terminates runaway scripts.
func DefaultLimits() engine.Limits {
	return engine.Limits{InstructionBudget: 1_000_000, WallTimeout: 10 * time.Second}
}

// LoadLimits reads and parses a limits.yaml file into an engine.Limits.
func LoadLimits(path string) (engine.Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Limits{}, fmt.Errorf("engineconfig: reading limits file: %w", err)
	}
	var lf LimitsFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return engine.Limits{}, fmt.Errorf("engineconfig: parsing limits file: %w", err)
	}
	limits := DefaultLimits()
	if lf.InstructionBudget > 0 {
		limits.InstructionBudget = lf.InstructionBudget
	}
	if lf.WallTimeout != "" {
		d, err := time.ParseDuration(lf.WallTimeout)
		if err != nil {
			return engine.Limits{}, fmt.Errorf("engineconfig: invalid wall_timeout %q: %w", lf.WallTimeout, err)
		}
		limits.WallTimeout = d
	}
	return limits, nil
}
