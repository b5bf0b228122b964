// Package parser extracts VHDL declarations relevant to compliance checking:
// entities with their generic and port clauses, package declarations,
// library/use/context references and function specifications.
//
// It is a declaration scanner, not a full VHDL parser. Pattern-based scanning
// is enough here because only declaration headers are inspected; bodies are
// never interpreted.
package parser

import (
	"regexp"
	"sort"
	"strings"
)

// DesignFile holds the declarations extracted from one VHDL source file.
type DesignFile struct {
	Entities   []Entity    `json:"entities"`
	Packages   []Package   `json:"packages"`
	References []Reference `json:"references"`
	Libraries  []string    `json:"libraries"`
}

// Entity is an entity declaration with its interface clauses.
type Entity struct {
	Identifier string             `json:"identifier"`
	Generics   []InterfaceElement `json:"generics"`
	Ports      []InterfaceElement `json:"ports"`
}

// Package is a package declaration (package bodies are not recorded).
type Package struct {
	Identifier string `json:"identifier"`
}

// InterfaceElement is one element of a generic, port or parameter list:
// an identifier list sharing a subtype indication, an optional mode and an
// optional default value.
type InterfaceElement struct {
	IdentifierList    []string          `json:"identifier_list"`
	SubtypeIndication SubtypeIndication `json:"subtype_indication"`
	Mode              string            `json:"mode,omitempty"`
	InitValue         string            `json:"init_value,omitempty"`
}

// HasInitValue reports whether the element declares a default value.
func (e InterfaceElement) HasInitValue() bool {
	return e.InitValue != ""
}

// SubtypeIndication is the textual type of an interface element. TypeMark is
// the leading simple name, Code the full indication including constraints.
type SubtypeIndication struct {
	Code     string `json:"code"`
	TypeMark string `json:"type_mark"`
}

func (s SubtypeIndication) String() string {
	return s.Code
}

// Reference kinds.
const (
	RefPackage = "package"
	RefContext = "context"
	RefEntity  = "entity"
)

// Reference is a use or context clause naming a design unit in a library.
type Reference struct {
	Kind       string `json:"kind"`
	Library    string `json:"library"`
	DesignUnit string `json:"design_unit"`
	NameWithin string `json:"name_within,omitempty"`
}

// IsPackage reports whether the reference is a use clause selecting from a package.
func (r Reference) IsPackage() bool {
	return r.Kind == RefPackage
}

// IsContext reports whether the reference is a context reference.
func (r Reference) IsContext() bool {
	return r.Kind == RefContext
}

// IsEntity reports whether the reference is an entity instantiation.
func (r Reference) IsEntity() bool {
	return r.Kind == RefEntity
}

// ParseDesignFile extracts all declarations from VHDL source text.
func ParseDesignFile(code string) *DesignFile {
	code = stripComments(code)
	return &DesignFile{
		Entities:   parseEntities(code),
		Packages:   parsePackages(code),
		References: parseReferences(code),
		Libraries:  parseLibraries(code),
	}
}

// Entity returns the entity with the given identifier, exact match.
func (d *DesignFile) Entity(identifier string) (Entity, bool) {
	for _, e := range d.Entities {
		if e.Identifier == identifier {
			return e, true
		}
	}
	return Entity{}, false
}

func stripComments(code string) string {
	return commentRe.ReplaceAllString(code, "")
}

func parseEntities(code string) []Entity {
	var entities []Entity
	for _, loc := range entityRe.FindAllStringSubmatchIndex(code, -1) {
		entity := Entity{Identifier: code[loc[2]:loc[3]]}

		// The interface clauses live between "is" and the first "end".
		header := code[loc[1]:]
		if end := endRe.FindStringIndex(header); end != nil {
			header = header[:end[0]]
		}

		if inner, ok := interfaceClause(header, genericClauseRe); ok {
			entity.Generics = parseInterfaceList(inner, false)
		}
		if inner, ok := interfaceClause(header, portClauseRe); ok {
			entity.Ports = parseInterfaceList(inner, true)
		}

		entities = append(entities, entity)
	}
	return entities
}

func parsePackages(code string) []Package {
	var packages []Package
	for _, m := range packageRe.FindAllStringSubmatch(code, -1) {
		if m[1] != "" {
			// package body
			continue
		}
		packages = append(packages, Package{Identifier: m[2]})
	}
	return packages
}

func parseLibraries(code string) []string {
	seen := make(map[string]bool)
	var libraries []string
	for _, m := range libraryRe.FindAllStringSubmatch(code, -1) {
		for _, name := range strings.Split(m[1], ",") {
			name = strings.TrimSpace(name)
			if name == "" || seen[strings.ToLower(name)] {
				continue
			}
			seen[strings.ToLower(name)] = true
			libraries = append(libraries, name)
		}
	}
	return libraries
}

// parseReferences collects use and context clauses in document order.
func parseReferences(code string) []Reference {
	type match struct {
		pos int
		ref Reference
	}
	var matches []match

	for _, loc := range useRe.FindAllStringSubmatchIndex(code, -1) {
		ref := Reference{
			Kind:       RefPackage,
			Library:    code[loc[2]:loc[3]],
			DesignUnit: code[loc[4]:loc[5]],
		}
		if loc[6] >= 0 {
			ref.NameWithin = code[loc[6]:loc[7]]
		}
		matches = append(matches, match{pos: loc[0], ref: ref})
	}
	for _, loc := range contextRe.FindAllStringSubmatchIndex(code, -1) {
		matches = append(matches, match{pos: loc[0], ref: Reference{
			Kind:       RefContext,
			Library:    code[loc[2]:loc[3]],
			DesignUnit: code[loc[4]:loc[5]],
		}})
	}
	for _, loc := range entityInstRe.FindAllStringSubmatchIndex(code, -1) {
		matches = append(matches, match{pos: loc[0], ref: Reference{
			Kind:       RefEntity,
			Library:    code[loc[2]:loc[3]],
			DesignUnit: code[loc[4]:loc[5]],
		}})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	var refs []Reference
	for _, m := range matches {
		refs = append(refs, m.ref)
	}
	return refs
}

// interfaceClause finds a generic/port clause opener and returns the text
// inside its balanced parentheses.
func interfaceClause(header string, opener *regexp.Regexp) (string, bool) {
	loc := opener.FindStringIndex(header)
	if loc == nil {
		return "", false
	}
	inner, _, ok := balancedParens(header[loc[1]-1:])
	return inner, ok
}

// balancedParens returns the text inside the parenthesis s starts with and
// the number of bytes consumed including both parentheses.
func balancedParens(s string) (inner string, n int, ok bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// parseInterfaceList parses the inside of a generic, port or parameter list.
// Ports without an explicit mode default to "in".
func parseInterfaceList(text string, isPort bool) []InterfaceElement {
	var elements []InterfaceElement
	for _, decl := range splitTopLevel(text, ';') {
		if strings.TrimSpace(decl) == "" {
			continue
		}
		if elem, ok := parseInterfaceElement(decl, isPort); ok {
			elements = append(elements, elem)
		}
	}
	return elements
}

func parseInterfaceElement(decl string, isPort bool) (InterfaceElement, bool) {
	decl = strings.TrimSpace(decl)

	// First ":" that is not part of ":=" separates identifiers from the rest.
	colon := -1
	for i := 0; i < len(decl); i++ {
		if decl[i] == ':' && (i+1 >= len(decl) || decl[i+1] != '=') {
			colon = i
			break
		}
	}
	if colon < 0 {
		return InterfaceElement{}, false
	}

	left := classRe.ReplaceAllString(strings.TrimSpace(decl[:colon]), "")
	var ids []string
	for _, id := range strings.Split(left, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return InterfaceElement{}, false
	}

	elem := InterfaceElement{IdentifierList: ids}
	rest := strings.TrimSpace(decl[colon+1:])

	if m := modeRe.FindStringSubmatch(rest); m != nil {
		elem.Mode = strings.ToLower(m[1])
		rest = strings.TrimSpace(rest[len(m[0]):])
	} else if isPort {
		elem.Mode = "in"
	}

	if idx := indexTopLevel(rest, ":="); idx >= 0 {
		elem.InitValue = strings.TrimSpace(rest[idx+2:])
		rest = strings.TrimSpace(rest[:idx])
	}

	elem.SubtypeIndication = SubtypeIndication{
		Code:     rest,
		TypeMark: typeMarkRe.FindString(rest),
	}
	return elem, true
}

// splitTopLevel splits on sep at parenthesis depth zero.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// indexTopLevel returns the first index of sub at parenthesis depth zero.
func indexTopLevel(s, sub string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s[i:], sub) {
			return i
		}
	}
	return -1
}
