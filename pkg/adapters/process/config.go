package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProcessConfig represents the configuration for an external tool execution.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`

	// Parameters maps argument names to type names such as "string" or "int?".
	Parameters map[string]string `yaml:"parameters" json:"parameters"`

	// Timeout bounds a single execution. Zero means no limit beyond the run's context.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ConfigFile represents the structure of tools.yaml
type ConfigFile struct {
	Tools []ProcessConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON) and returns the tools in file order.
// A missing file is treated as "no tools configured".
func LoadTools(path string) ([]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	seen := make(map[string]bool, len(cfg.Tools))
	tools := make([]ProcessConfig, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		if tool.Command == "" {
			return nil, fmt.Errorf("tool %s: command is empty", tool.Name)
		}
		if seen[tool.Name] {
			return nil, fmt.Errorf("tool %s is defined twice", tool.Name)
		}
		seen[tool.Name] = true
		tools = append(tools, tool)
	}

	return tools, nil
}
