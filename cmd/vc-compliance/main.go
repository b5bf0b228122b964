// vc-compliance validates a VUnit verification component against the
// structural compliance contract and generates its compliance testbench.
//
// THE PIPELINE:
//  1. Config lists the VHDL files per library (vc_compliance.json)
//  2. The declaration parser extracts entities, packages and references
//  3. The CUE validator enforces the parser's data contract
//  4. OPA policy rules produce advisory style warnings
//  5. The compliance check validates the entity shape and constructor
//  6. The testbench synthesizer writes tb_<vc>_compliance.vhd and registers
//     its test cases
//
// Steps 1-4 never change the compliance outcome; a non-compliant component
// fails at step 5 with a single, maximally specific diagnostic.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aappl/vc-compliance/internal/compliance"
	"github.com/aappl/vc-compliance/internal/config"
	"github.com/aappl/vc-compliance/internal/parser"
	"github.com/aappl/vc-compliance/internal/policy"
	"github.com/aappl/vc-compliance/internal/project"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "init":
		runInit()
	case "-h", "--help", "help":
		printUsage()
	case "-v", "--verbose":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		runGenerate(os.Args[2], "", true)
	case "-c", "--config":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		runGenerate(os.Args[3], os.Args[2], false)
	default:
		runGenerate(cmd, "", false)
	}
}

func printUsage() {
	fmt.Println("vc-compliance - compliance testbench generator for VUnit verification components")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  vc-compliance <project-dir>              generate the compliance testbench")
	fmt.Println("  vc-compliance -v <project-dir>           generate with verbose output")
	fmt.Println("  vc-compliance -c <config> <project-dir>  generate with an explicit config file")
	fmt.Println("  vc-compliance init                       write a default vc_compliance.json")
	fmt.Println()
	fmt.Println("The config must name the verification component entity (compliance.vc) and")
	fmt.Println("its interface package (compliance.vci).")
}

func runInit() {
	path := "vc_compliance.json"
	if _, err := os.Stat(path); err == nil {
		fatalf("%s already exists", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		fatalf("writing %s: %v", path, err)
	}
	fmt.Printf("wrote %s - set compliance.vc and compliance.vci before generating\n", path)
}

func runGenerate(root, configPath string, verbose bool) {
	cfg, err := loadConfig(root, configPath)
	if err != nil {
		fatalf("%v", err)
	}

	if cfg.Compliance.VC == "" || cfg.Compliance.VCI == "" {
		fatalf("config must set compliance.vc and compliance.vci")
	}

	libraries, err := buildLibraries(cfg, root, verbose)
	if err != nil {
		fatalf("%v", err)
	}

	vcLib, ok := libraries[cfg.Compliance.VCLibrary]
	if !ok {
		fatalf("VC library %s has no files configured", cfg.Compliance.VCLibrary)
	}

	preflight(vcLib, verbose)

	check, err := compliance.New(vcLib, cfg.Compliance.VC, cfg.Compliance.VCI)
	if err != nil {
		fatalf("%v", err)
	}

	testLib, ok := libraries[cfg.Compliance.TestLibrary]
	if !ok {
		testLib = project.NewLibrary(cfg.Compliance.TestLibrary)
	}

	outputDir := cfg.Compliance.OutputDir
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(root, outputDir)
	}

	tbFile, err := check.AddVHDLTestbench(testLib, outputDir)
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("generated %s\n", tbFile.Path)
	if verbose {
		tb, err := testLib.TestBench(check.TestBenchName())
		if err == nil {
			for _, test := range tb.Tests() {
				fmt.Printf("  registered test: %s (%d configs)\n", test.Description, len(test.Configs()))
			}
		}
	}
}

func loadConfig(root, configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(root)
}

// buildLibraries resolves the configured file globs and registers every file
// in its library.
func buildLibraries(cfg *config.Config, root string, verbose bool) (map[string]*project.Library, error) {
	resolved, err := cfg.ResolveLibraries(root)
	if err != nil {
		return nil, fmt.Errorf("resolving libraries: %w", err)
	}

	libraries := make(map[string]*project.Library)
	for _, lib := range resolved {
		l := project.NewLibrary(lib.Name)
		for _, file := range lib.Files {
			if _, err := l.AddSourceFile(file); err != nil {
				return nil, err
			}
			if verbose {
				fmt.Printf("  %s -> %s\n", file, lib.Name)
			}
		}
		libraries[lib.Name] = l
	}
	return libraries, nil
}

// preflight runs the advisory policy rules over the VC library and prints
// the findings. Never fatal.
func preflight(lib *project.Library, verbose bool) {
	engine, err := policy.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: policy engine unavailable: %v\n", err)
		return
	}

	var input policy.Input
	for _, sf := range lib.Files() {
		code, err := os.ReadFile(sf.Path)
		if err != nil {
			continue
		}
		input.AddFile(sf.Path, sf.Design, parser.FindFunctionSpecifications(string(code)))
	}

	result, err := engine.Evaluate(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: policy evaluation failed: %v\n", err)
		return
	}

	for _, v := range result.Violations {
		fmt.Fprintf(os.Stderr, "%s: %s: %s [%s]\n", v.Severity, v.File, v.Message, v.Rule)
	}
	if verbose && result.Summary.TotalViolations > 0 {
		fmt.Fprintf(os.Stderr, "%d advisory findings (%d warnings, %d info)\n",
			result.Summary.TotalViolations, result.Summary.Warnings, result.Summary.Info)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
