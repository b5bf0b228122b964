// Package compliance decides whether a verification component satisfies the
// structural contract required for generic compliance testing, and generates
// the compliance testbench for components that do.
//
// A compliant component is an entity with exactly one generic (the handle)
// whose interface package declares a constructor: a new_-prefixed function
// returning the handle type and taking logger, actor, checker and
// fail_on_unexpected_msg_type parameters, each with the required type and a
// default value.
package compliance

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aappl/vc-compliance/internal/parser"
	"github.com/aappl/vc-compliance/internal/project"
)

// requiredParameter is one constructor parameter the contract demands,
// in checklist order.
type requiredParameter struct {
	Name     string
	TypeMark string
}

var requiredParameters = []requiredParameter{
	{"logger", "logger_t"},
	{"actor", "actor_t"},
	{"checker", "checker_t"},
	{"fail_on_unexpected_msg_type", "boolean"},
}

// Check is a validated (entity, constructor) pair for one verification
// component. Create one per (library, VC, VCI) triple with New; a Check is
// immutable after New succeeds and must not be reused for a different triple.
type Check struct {
	VCName  string
	VCIName string
	Lib     *project.Library

	// Set by New on success.
	Entity      parser.Entity
	Design      *parser.DesignFile
	HandleType  string
	Constructor parser.FunctionSpecification
}

// New validates the verification component named vcName against the
// interface package vciName, both looked up in lib. It returns a Check
// carrying the entity and the chosen constructor, or a single diagnostic
// describing the most specific compliance problem found.
func New(lib *project.Library, vcName, vciName string) (*Check, error) {
	c := &Check{VCName: vcName, VCIName: vciName, Lib: lib}
	if err := c.validateVC(); err != nil {
		return nil, err
	}
	if err := c.validateVCI(); err != nil {
		return nil, err
	}
	return c, nil
}

// validateVC checks the existence and generic shape of the verification
// component entity.
func (c *Check) validateVC() error {
	sf, err := c.Lib.Entity(c.VCName)
	if err != nil {
		return fmt.Errorf("failed to find VC %s", c.VCName)
	}

	code, err := os.ReadFile(sf.Path)
	if err != nil {
		return fmt.Errorf("reading VC source %s: %w", sf.Path, err)
	}

	c.Design = parser.ParseDesignFile(string(code))

	entity, ok := c.Design.Entity(c.VCName)
	if !ok {
		return fmt.Errorf("failed to find VC %s in %s", c.VCName, sf.Path)
	}
	c.Entity = entity

	// A declaration like generic(a, b : bit) is one interface element but
	// two generics, so count identifiers rather than declarations.
	genericCount := 0
	for _, g := range entity.Generics {
		genericCount += len(g.IdentifierList)
	}
	if genericCount != 1 {
		return fmt.Errorf("%s must have a single generic", c.VCName)
	}

	c.HandleType = entity.Generics[0].SubtypeIndication.TypeMark
	return nil
}

// constructorMessages is the ordered diagnostic list for the constructor
// checklist. Index i is reported when i is the deepest checklist position any
// candidate reached; the checklist below must advance through the same
// positions in the same order.
func (c *Check) constructorMessages() []string {
	messages := []string{
		"failed to find constructor function starting with new_",
		fmt.Sprintf("found constructor function starting with new_ but not with the correct return type %s", c.HandleType),
	}
	for _, p := range requiredParameters {
		messages = append(messages,
			fmt.Sprintf("found constructor function but %s parameter is missing", p.Name),
			fmt.Sprintf("found constructor function but %s parameter is not of type %s", p.Name, p.TypeMark),
			fmt.Sprintf("found constructor function but %s parameter is missing a default value", p.Name),
		)
	}
	return messages
}

// validateVCI searches the interface package for a constructor matching the
// full checklist. The first candidate (in declaration order) passing every
// check wins. When none does, the reported diagnostic is the message for the
// deepest checklist position reached by any candidate, which points at the
// closest known-good attempt rather than the first or last failure.
func (c *Check) validateVCI() error {
	sf, err := c.Lib.Package(c.VCIName)
	if err != nil {
		return fmt.Errorf("failed to find VCI %s", c.VCIName)
	}

	code, err := os.ReadFile(sf.Path)
	if err != nil {
		return fmt.Errorf("reading VCI source %s: %w", sf.Path, err)
	}

	messages := c.constructorMessages()

	// Deepest checklist position reached across all candidates.
	messageIdx := 0
	reached := func(step int) {
		if step > messageIdx {
			messageIdx = step
		}
	}

	for _, fn := range parser.FindFunctionSpecifications(string(code)) {
		if !strings.HasPrefix(fn.Identifier, "new_") {
			continue
		}
		reached(1)

		if fn.ReturnTypeMark != c.HandleType {
			continue
		}
		reached(2)

		step := 3
		compliant := true
		for _, req := range requiredParameters {
			param, ok := fn.Parameter(req.Name)
			if !ok {
				compliant = false
				break
			}
			reached(step)
			step++

			if param.SubtypeIndication.TypeMark != req.TypeMark {
				compliant = false
				break
			}
			reached(step)
			step++

			if !param.HasInitValue() {
				compliant = false
				break
			}
			reached(step)
			step++
		}

		if compliant {
			c.Constructor = fn
			return nil
		}
	}

	return errors.New(messages[messageIdx])
}
