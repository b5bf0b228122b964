package parser

import "strings"

// FunctionSpecification is a function declaration header: identifier,
// parameter list and return type mark.
type FunctionSpecification struct {
	Identifier     string             `json:"identifier"`
	ReturnTypeMark string             `json:"return_type_mark"`
	Parameters     []InterfaceElement `json:"parameters"`
	Impure         bool               `json:"impure"`
}

// Parameter returns the parameter declaring the given identifier.
func (f FunctionSpecification) Parameter(identifier string) (InterfaceElement, bool) {
	for _, p := range f.Parameters {
		for _, id := range p.IdentifierList {
			if id == identifier {
				return p, true
			}
		}
	}
	return InterfaceElement{}, false
}

// FindFunctionSpecifications scans source text for function specifications,
// in document order. The scan is not scoped to a design unit; every function
// header in the text is reported, bodies included.
//
// Parameter lists are matched with balanced parentheses so that default
// values such as new_actor("vc", inbox_size => 1) do not cut the list short.
func FindFunctionSpecifications(code string) []FunctionSpecification {
	code = stripComments(code)

	var funcs []FunctionSpecification
	for _, loc := range functionRe.FindAllStringSubmatchIndex(code, -1) {
		fn := FunctionSpecification{Identifier: code[loc[4]:loc[5]]}
		if loc[2] >= 0 {
			fn.Impure = strings.EqualFold(strings.TrimSpace(code[loc[2]:loc[3]]), "impure")
		}

		rest := strings.TrimLeft(code[loc[1]:], " \t\r\n")
		if strings.HasPrefix(rest, "(") {
			inner, n, ok := balancedParens(rest)
			if !ok {
				continue
			}
			fn.Parameters = parseInterfaceList(inner, false)
			rest = rest[n:]
		}

		m := returnRe.FindStringSubmatch(rest)
		if m == nil {
			// Procedure-style or malformed header, not a function specification
			// we can use.
			continue
		}
		fn.ReturnTypeMark = m[1]

		funcs = append(funcs, fn)
	}
	return funcs
}
