package parser

import "regexp"

var (
	// Pattern: entity <name> is
	entityRe = regexp.MustCompile(`(?i)\bentity\s+(\w+)\s+is\b`)

	// Pattern: package [body] <name> is
	packageRe = regexp.MustCompile(`(?i)\bpackage\s+(body\s+)?(\w+)\s+is\b`)

	// Pattern: library <name>{, <name>};
	libraryRe = regexp.MustCompile(`(?i)\blibrary\s+([\w\s,]+?)\s*;`)

	// Pattern: use <library>.<unit>[.<selected>];
	useRe = regexp.MustCompile(`(?i)\buse\s+(\w+)\.(\w+)(?:\.(\w+))?\s*;`)

	// Pattern: context <library>.<unit>;
	// The dotted form distinguishes a context reference from a context declaration.
	contextRe = regexp.MustCompile(`(?i)\bcontext\s+(\w+)\.(\w+)\s*;`)

	// Pattern: entity <library>.<unit> as used in a component instantiation
	entityInstRe = regexp.MustCompile(`(?i)\bentity\s+(\w+)\.(\w+)\b`)

	// Pattern: [impure|pure] function <name>
	functionRe = regexp.MustCompile(`(?i)\b(impure\s+|pure\s+)?function\s+(\w+)`)

	// Pattern: return <type_mark>, expected right after a parameter list
	returnRe = regexp.MustCompile(`(?i)^\s*return\s+(\w+)`)

	// Clause openers inside an entity header
	genericClauseRe = regexp.MustCompile(`(?i)\bgeneric\s*\(`)
	portClauseRe    = regexp.MustCompile(`(?i)\bport\s*\(`)

	// First "end" terminates the declarative region we scan
	endRe = regexp.MustCompile(`(?i)\bend\b`)

	// Port modes; longest alternative first so "inout" is not read as "in"
	modeRe = regexp.MustCompile(`(?i)^(inout|in|out|buffer|linkage)\s+`)

	// Interface object classes preceding an identifier list
	classRe = regexp.MustCompile(`(?i)^(signal|constant|variable|file)\s+`)

	// -- line comments
	commentRe = regexp.MustCompile(`--[^\n]*`)

	// First simple name of a subtype indication
	typeMarkRe = regexp.MustCompile(`\w+`)
)
