// Package policy runs advisory style checks over parsed VHDL declarations
// before compliance validation. Violations are reported to the user but never
// affect the compliance outcome; the compliance core has its own fatal
// diagnostics.
package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/aappl/vc-compliance/internal/parser"
)

//go:embed rules.rego
var rulesModule string

// Engine evaluates the embedded rego rules against declaration facts.
type Engine struct {
	queries map[string]rego.PreparedEvalQuery
}

// Violation is one advisory finding.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Message  string `json:"message"`
}

// Result contains the evaluation results.
type Result struct {
	Violations []Violation
	Summary    Summary
}

// Summary provides aggregate counts.
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the flat fact model passed to the rego rules.
type Input struct {
	Entities  []Entity   `json:"entities"`
	Packages  []Package  `json:"packages"`
	Functions []Function `json:"functions"`
}

// Entity is one entity row.
type Entity struct {
	Name     string `json:"name"`
	File     string `json:"file"`
	Generics int    `json:"generics"`
	Ports    int    `json:"ports"`
}

// Package is one package row.
type Package struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// Function is one function specification row.
type Function struct {
	Name       string `json:"name"`
	ReturnType string `json:"return_type"`
	File       string `json:"file"`
	Impure     bool   `json:"impure"`
	Parameters int    `json:"parameters"`
}

// AddFile flattens one parsed file into fact rows.
func (in *Input) AddFile(path string, design *parser.DesignFile, funcs []parser.FunctionSpecification) {
	for _, e := range design.Entities {
		generics := 0
		for _, g := range e.Generics {
			generics += len(g.IdentifierList)
		}
		ports := 0
		for _, p := range e.Ports {
			ports += len(p.IdentifierList)
		}
		in.Entities = append(in.Entities, Entity{
			Name:     e.Identifier,
			File:     path,
			Generics: generics,
			Ports:    ports,
		})
	}
	for _, p := range design.Packages {
		in.Packages = append(in.Packages, Package{Name: p.Identifier, File: path})
	}
	for _, f := range funcs {
		in.Functions = append(in.Functions, Function{
			Name:       f.Identifier,
			ReturnType: f.ReturnTypeMark,
			File:       path,
			Impure:     f.Impure,
			Parameters: len(f.Parameters),
		})
	}
}

// New creates a policy engine with the embedded rules.
func New() (*Engine, error) {
	engine := &Engine{
		queries: make(map[string]rego.PreparedEvalQuery),
	}

	module := rego.Module("rules.rego", rulesModule)

	query, err := rego.New(module, rego.Query("data.vhdl.compliance.all_violations")).
		PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}
	engine.queries["violations"] = query

	query, err = rego.New(module, rego.Query("data.vhdl.compliance.summary")).
		PrepareForEval(context.Background())
	if err != nil {
		return nil, fmt.Errorf("preparing summary query: %w", err)
	}
	engine.queries["summary"] = query

	return engine, nil
}

// Evaluate runs the rules against the input facts.
func (e *Engine) Evaluate(input Input) (*Result, error) {
	ctx := context.Background()

	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					File:     getString(vmap, "file"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}

	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		smap, ok := rs[0].Expressions[0].Value.(map[string]interface{})
		if ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	}

	return result, nil
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
