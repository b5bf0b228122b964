// Package config loads the vc_compliance.json project configuration: which
// files make up each VHDL library, and which component/interface pair the
// compliance testbench is generated for.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config is the top-level configuration for vc-compliance.
type Config struct {
	// Standard specifies the VHDL standard: "1993", "2002", "2008", "2019"
	Standard string `json:"standard,omitempty"`

	// Libraries maps library names to their file lists
	Libraries map[string]LibraryConfig `json:"libraries,omitempty"`

	// Compliance selects what to validate and where to generate
	Compliance ComplianceConfig `json:"compliance"`
}

// LibraryConfig defines a VHDL library's files.
type LibraryConfig struct {
	// Files is a list of glob patterns for VHDL files in this library
	Files []string `json:"files"`

	// Exclude is a list of glob patterns to exclude from this library
	Exclude []string `json:"exclude,omitempty"`
}

// ComplianceConfig selects the verification component under test.
type ComplianceConfig struct {
	// VCLibrary is the library holding the VC and its interface package
	VCLibrary string `json:"vcLibrary,omitempty"`

	// TestLibrary is the library the generated testbench is registered in
	TestLibrary string `json:"testLibrary,omitempty"`

	// VC is the verification component entity name
	VC string `json:"vc"`

	// VCI is the verification component interface package name
	VCI string `json:"vci"`

	// OutputDir is where the testbench file is written
	OutputDir string `json:"outputDir,omitempty"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Standard: "2008",
		Libraries: map[string]LibraryConfig{
			"vc_lib": {
				Files: []string{"*.vhd", "*.vhdl", "**/*.vhd", "**/*.vhdl"},
			},
		},
		Compliance: ComplianceConfig{
			VCLibrary:   "vc_lib",
			TestLibrary: "vc_test_lib",
			OutputDir:   "compliance_test",
		},
	}
}

// Load finds and loads the configuration file.
// Search order:
//  1. ./vc_compliance.json (current working directory)
//  2. ./.vc_compliance.json (current working directory)
//  3. <rootPath>/vc_compliance.json (if different from cwd)
//  4. ~/.config/vc_compliance/config.json
//
// Returns DefaultConfig if no config file is found.
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "vc_compliance.json"),
		filepath.Join(cwd, ".vc_compliance.json"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "vc_compliance.json"),
				filepath.Join(rootPath, ".vc_compliance.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "vc_compliance", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults.
func (c *Config) applyDefaults() {
	if c.Standard == "" {
		c.Standard = "2008"
	}
	if c.Compliance.VCLibrary == "" {
		c.Compliance.VCLibrary = "vc_lib"
	}
	if c.Compliance.TestLibrary == "" {
		c.Compliance.TestLibrary = "vc_test_lib"
	}
	if c.Compliance.OutputDir == "" {
		c.Compliance.OutputDir = "compliance_test"
	}
	if c.Libraries == nil {
		c.Libraries = map[string]LibraryConfig{
			c.Compliance.VCLibrary: {
				Files: []string{"*.vhd", "*.vhdl", "**/*.vhd", "**/*.vhdl"},
			},
		}
	}
}

// Save writes the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ResolvedLibrary contains the expanded file list for a library.
type ResolvedLibrary struct {
	Name  string
	Files []string
}

// ResolveLibraries expands all glob patterns and returns resolved file
// lists, sorted for deterministic processing.
func (c *Config) ResolveLibraries(rootPath string) ([]ResolvedLibrary, error) {
	var result []ResolvedLibrary

	for libName, libCfg := range c.Libraries {
		resolved := ResolvedLibrary{Name: libName}

		fileSet := make(map[string]bool)
		for _, pattern := range libCfg.Files {
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(rootPath, pattern)
			}

			matches, err := expandGlob(pattern)
			if err != nil {
				// Invalid patterns are skipped, not fatal.
				continue
			}

			for _, match := range matches {
				ext := strings.ToLower(filepath.Ext(match))
				if ext == ".vhd" || ext == ".vhdl" {
					fileSet[match] = true
				}
			}
		}

		for _, pattern := range libCfg.Exclude {
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(rootPath, pattern)
			}

			matches, err := expandGlob(pattern)
			if err != nil {
				continue
			}

			for _, match := range matches {
				delete(fileSet, match)
			}
		}

		for f := range fileSet {
			resolved.Files = append(resolved.Files, f)
		}
		sort.Strings(resolved.Files)

		result = append(result, resolved)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// expandGlob expands a glob pattern, handling ** for recursive matching.
func expandGlob(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}

	parts := strings.SplitN(pattern, "**", 2)
	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	var results []string
	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if suffix == "" || matchSuffix(path, suffix) {
			results = append(results, path)
		}
		return nil
	})

	return results, err
}

// matchSuffix checks if a path matches the pattern remaining after **.
func matchSuffix(path, pattern string) bool {
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}

	if len(path) > len(pattern) {
		matched, _ = filepath.Match(pattern, path[len(path)-len(pattern):])
		return matched
	}

	return false
}
