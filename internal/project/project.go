// Package project models VHDL libraries for the compliance generator: named
// libraries holding parsed source files, name lookup for entities and
// packages, and registration of test benches with their test cases and
// configurations.
package project

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aappl/vc-compliance/internal/parser"
	"github.com/aappl/vc-compliance/internal/validator"
)

// ErrNotFound is returned by name lookups that miss.
var ErrNotFound = errors.New("not found")

// Library is a named VHDL library with an index of its design units.
type Library struct {
	Name string

	files       []*SourceFile
	entities    map[string]*SourceFile
	packages    map[string]*SourceFile
	testBenches map[string]*TestBench
}

// SourceFile is one parsed VHDL file registered in a library.
type SourceFile struct {
	Path    string
	Library *Library
	Design  *parser.DesignFile
}

// NewLibrary creates an empty library.
func NewLibrary(name string) *Library {
	return &Library{
		Name:        name,
		entities:    make(map[string]*SourceFile),
		packages:    make(map[string]*SourceFile),
		testBenches: make(map[string]*TestBench),
	}
}

// The design-file contract guard is shared; cue schema compilation is done
// once per process.
var (
	guardOnce sync.Once
	guard     *validator.Validator
	guardErr  error
)

func designGuard() (*validator.Validator, error) {
	guardOnce.Do(func() {
		guard, guardErr = validator.New()
	})
	return guard, guardErr
}

// AddSourceFile reads, parses and indexes a VHDL file. The parsed
// declarations are validated against the design-file schema before they are
// indexed; a schema violation means the parser broke its contract and the
// file is rejected.
//
// Entities carrying a runner_cfg generic are registered as test benches.
func (l *Library) AddSourceFile(path string) (*SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	design := parser.ParseDesignFile(string(data))

	v, err := designGuard()
	if err != nil {
		return nil, fmt.Errorf("loading design-file schema: %w", err)
	}
	if err := v.Validate(design); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}

	sf := &SourceFile{Path: path, Library: l, Design: design}
	l.files = append(l.files, sf)

	for _, entity := range design.Entities {
		l.entities[strings.ToLower(entity.Identifier)] = sf
		if hasRunnerCfg(entity) {
			name := strings.ToLower(entity.Identifier)
			if _, ok := l.testBenches[name]; !ok {
				l.testBenches[name] = &TestBench{Name: entity.Identifier, Source: sf}
			}
		}
	}
	for _, pkg := range design.Packages {
		l.packages[strings.ToLower(pkg.Identifier)] = sf
	}

	return sf, nil
}

func hasRunnerCfg(entity parser.Entity) bool {
	for _, g := range entity.Generics {
		for _, id := range g.IdentifierList {
			if strings.EqualFold(id, "runner_cfg") {
				return true
			}
		}
	}
	return false
}

// Files returns the registered source files in registration order.
func (l *Library) Files() []*SourceFile {
	return l.files
}

// Entity returns the source file declaring the named entity.
// VHDL names are case-insensitive.
func (l *Library) Entity(name string) (*SourceFile, error) {
	sf, ok := l.entities[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("entity %s in library %s: %w", name, l.Name, ErrNotFound)
	}
	return sf, nil
}

// Package returns the source file declaring the named package.
func (l *Library) Package(name string) (*SourceFile, error) {
	sf, ok := l.packages[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("package %s in library %s: %w", name, l.Name, ErrNotFound)
	}
	return sf, nil
}

// TestBench returns the registered test bench with the given entity name.
func (l *Library) TestBench(name string) (*TestBench, error) {
	tb, ok := l.testBenches[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("test bench %s in library %s: %w", name, l.Name, ErrNotFound)
	}
	return tb, nil
}

// TestBench is a testbench entity (one with a runner_cfg generic) against
// which named tests and their configurations are registered.
type TestBench struct {
	Name   string
	Source *SourceFile

	tests []*Test
	// description -> test, for create-or-get semantics
	testsByDescription map[string]*Test
}

// Test returns the test with the given description, creating it on first use.
func (tb *TestBench) Test(description string) *Test {
	if tb.testsByDescription == nil {
		tb.testsByDescription = make(map[string]*Test)
	}
	if t, ok := tb.testsByDescription[description]; ok {
		return t
	}
	t := &Test{Description: description, generics: make(map[string]string)}
	tb.tests = append(tb.tests, t)
	tb.testsByDescription[description] = t
	return t
}

// Tests returns the registered tests in registration order.
func (tb *TestBench) Tests() []*Test {
	return tb.tests
}

// Test is one named test with generic overrides and configurations.
type Test struct {
	Description string

	generics map[string]string
	configs  []Config
}

// Config is a named run configuration with its generic values.
type Config struct {
	Name     string
	Generics map[string]string
}

// SetGeneric overrides one generic for the test.
func (t *Test) SetGeneric(name string, value any) {
	t.generics[name] = formatGeneric(value)
}

// Generic returns a generic override set with SetGeneric.
func (t *Test) Generic(name string) (string, bool) {
	v, ok := t.generics[name]
	return v, ok
}

// AddConfig registers a named configuration for the test.
func (t *Test) AddConfig(name string, generics map[string]any) {
	cfg := Config{Name: name, Generics: make(map[string]string, len(generics))}
	for k, v := range generics {
		cfg.Generics[k] = formatGeneric(v)
	}
	t.configs = append(t.configs, cfg)
}

// Configs returns the registered configurations in registration order.
func (t *Test) Configs() []Config {
	return t.configs
}

// formatGeneric renders a generic value the way it is passed to the
// simulator: booleans lowercase, everything else via fmt.
func formatGeneric(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", x)
	}
}
