package parser

import (
	"strings"
	"testing"
)

func TestParseEntityGenericsAndPorts(t *testing.T) {
	vhdl := `
library ieee;
use ieee.std_logic_1164.all;

entity vc is
  generic(vc_h : vc_handle_t);
  port(
    a, b : in std_logic;
    c : in std_logic := '0';
    d, e : inout std_logic;
    f, g : inout std_logic := '1';
    h, i : out std_logic := '0';
    j : out std_logic);

end entity;
`
	design := ParseDesignFile(vhdl)

	entity, ok := design.Entity("vc")
	if !ok {
		t.Fatalf("expected entity vc, got %v", design.Entities)
	}

	if len(entity.Generics) != 1 {
		t.Fatalf("expected a single generic, got %d", len(entity.Generics))
	}
	generic := entity.Generics[0]
	if generic.IdentifierList[0] != "vc_h" {
		t.Fatalf("expected generic vc_h, got %q", generic.IdentifierList[0])
	}
	if generic.SubtypeIndication.TypeMark != "vc_handle_t" {
		t.Fatalf("expected generic type vc_handle_t, got %q", generic.SubtypeIndication.TypeMark)
	}
	if generic.Mode != "" {
		t.Fatalf("generics take no mode, got %q", generic.Mode)
	}

	if len(entity.Ports) != 6 {
		t.Fatalf("expected 6 port declarations, got %d", len(entity.Ports))
	}

	checks := []struct {
		ids     string
		mode    string
		hasInit bool
	}{
		{"a,b", "in", false},
		{"c", "in", true},
		{"d,e", "inout", false},
		{"f,g", "inout", true},
		{"h,i", "out", true},
		{"j", "out", false},
	}
	for i, want := range checks {
		port := entity.Ports[i]
		if got := strings.Join(port.IdentifierList, ","); got != want.ids {
			t.Fatalf("port %d: expected identifiers %q, got %q", i, want.ids, got)
		}
		if port.Mode != want.mode {
			t.Fatalf("port %d: expected mode %q, got %q", i, want.mode, port.Mode)
		}
		if port.HasInitValue() != want.hasInit {
			t.Fatalf("port %d: expected hasInit=%v, init %q", i, want.hasInit, port.InitValue)
		}
		if port.SubtypeIndication.TypeMark != "std_logic" {
			t.Fatalf("port %d: expected std_logic, got %q", i, port.SubtypeIndication.TypeMark)
		}
	}
}

func TestParseEntityWithoutInterfaceClauses(t *testing.T) {
	design := ParseDesignFile("entity vc1 is\nend entity;\n")
	entity, ok := design.Entity("vc1")
	if !ok {
		t.Fatalf("expected entity vc1")
	}
	if len(entity.Generics) != 0 || len(entity.Ports) != 0 {
		t.Fatalf("expected empty interface, got %d generics, %d ports",
			len(entity.Generics), len(entity.Ports))
	}
}

func TestParsePortModeDefaultsToIn(t *testing.T) {
	design := ParseDesignFile(`
entity vc is
  port(clk : std_logic);
end entity;
`)
	entity, _ := design.Entity("vc")
	if len(entity.Ports) != 1 || entity.Ports[0].Mode != "in" {
		t.Fatalf("expected implicit in mode, got %+v", entity.Ports)
	}
}

func TestParseSubtypeIndicationKeepsConstraint(t *testing.T) {
	design := ParseDesignFile(`
entity vc is
  generic(h : handle_t);
  port(data : in std_logic_vector(7 downto 0));
end entity;
`)
	entity, _ := design.Entity("vc")
	port := entity.Ports[0]
	if port.SubtypeIndication.TypeMark != "std_logic_vector" {
		t.Fatalf("expected type mark std_logic_vector, got %q", port.SubtypeIndication.TypeMark)
	}
	if port.SubtypeIndication.Code != "std_logic_vector(7 downto 0)" {
		t.Fatalf("expected full subtype indication, got %q", port.SubtypeIndication.Code)
	}
}

func TestParseReferencesInOrder(t *testing.T) {
	design := ParseDesignFile(`
library ieee, std;
library vunit_lib;
context vunit_lib.vunit_context;
use ieee.std_logic_1164.all;
use work.memory_pkg.memory_t;

entity vc is
end entity;
`)

	if len(design.Libraries) != 3 {
		t.Fatalf("expected 3 libraries, got %v", design.Libraries)
	}

	if len(design.References) != 3 {
		t.Fatalf("expected 3 references, got %v", design.References)
	}

	ctx := design.References[0]
	if !ctx.IsContext() || ctx.Library != "vunit_lib" || ctx.DesignUnit != "vunit_context" {
		t.Fatalf("expected vunit_lib.vunit_context context reference, got %+v", ctx)
	}

	use := design.References[1]
	if !use.IsPackage() || use.Library != "ieee" || use.DesignUnit != "std_logic_1164" || use.NameWithin != "all" {
		t.Fatalf("expected ieee.std_logic_1164.all use reference, got %+v", use)
	}

	sel := design.References[2]
	if sel.Library != "work" || sel.DesignUnit != "memory_pkg" || sel.NameWithin != "memory_t" {
		t.Fatalf("expected work.memory_pkg.memory_t use reference, got %+v", sel)
	}
}

func TestParseEntityInstantiationReferences(t *testing.T) {
	design := ParseDesignFile(`
entity tb is
end entity;

architecture a of tb is
begin
  dut: entity vc_lib.vc
    generic map(h);
end architecture;
`)

	if len(design.References) != 1 {
		t.Fatalf("expected 1 reference, got %v", design.References)
	}
	ref := design.References[0]
	if !ref.IsEntity() || ref.Library != "vc_lib" || ref.DesignUnit != "vc" {
		t.Fatalf("expected vc_lib.vc entity reference, got %+v", ref)
	}

	// Entity declarations are not references.
	if _, ok := design.Entity("tb"); !ok {
		t.Fatalf("expected entity tb to be declared")
	}
}

func TestParsePackagesSkipBodies(t *testing.T) {
	design := ParseDesignFile(`
package vc_pkg is
  function f return integer;
end package;

package body vc_pkg is
end package body;
`)
	if len(design.Packages) != 1 || design.Packages[0].Identifier != "vc_pkg" {
		t.Fatalf("expected a single package vc_pkg, got %v", design.Packages)
	}
}

func TestFindFunctionSpecifications(t *testing.T) {
	vhdl := `
package vc_pkg is
  impure function new_vc(
    logger : logger_t := vc_logger;
    actor : actor_t := null_actor;
    checker : checker_t := null_checker;
    fail_on_unexpected_msg_type : boolean := true
  ) return vc_handle_t;

  function as_sync(vc_h : vc_handle_t) return sync_handle_t;

  impure function create_vc return vc_handle_t;
end package;
`
	funcs := FindFunctionSpecifications(vhdl)
	if len(funcs) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(funcs))
	}

	ctor := funcs[0]
	if ctor.Identifier != "new_vc" || !ctor.Impure {
		t.Fatalf("expected impure new_vc first, got %+v", ctor)
	}
	if ctor.ReturnTypeMark != "vc_handle_t" {
		t.Fatalf("expected return type vc_handle_t, got %q", ctor.ReturnTypeMark)
	}
	if len(ctor.Parameters) != 4 {
		t.Fatalf("expected 4 parameters, got %d", len(ctor.Parameters))
	}
	logger, ok := ctor.Parameter("logger")
	if !ok || logger.SubtypeIndication.TypeMark != "logger_t" || logger.InitValue != "vc_logger" {
		t.Fatalf("unexpected logger parameter: %+v", logger)
	}

	if funcs[1].Identifier != "as_sync" || funcs[1].Impure {
		t.Fatalf("expected pure as_sync second, got %+v", funcs[1])
	}

	noParams := funcs[2]
	if noParams.Identifier != "create_vc" || len(noParams.Parameters) != 0 {
		t.Fatalf("expected parameterless create_vc, got %+v", noParams)
	}
}

func TestFindFunctionSpecificationsParenthesizedDefault(t *testing.T) {
	vhdl := `
  impure function new_vc(
    actor : actor_t := new_actor("vc", inbox_size => 1);
    width : natural := maximum(8, 16)
  ) return vc_handle_t;
`
	funcs := FindFunctionSpecifications(vhdl)
	if len(funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(funcs))
	}
	actor, ok := funcs[0].Parameter("actor")
	if !ok || actor.InitValue != `new_actor("vc", inbox_size => 1)` {
		t.Fatalf("unexpected actor default: %+v", actor)
	}
	width, ok := funcs[0].Parameter("width")
	if !ok || width.InitValue != "maximum(8, 16)" {
		t.Fatalf("unexpected width default: %+v", width)
	}
}

func TestCommentsAreIgnored(t *testing.T) {
	vhdl := `
-- entity commented_out is
entity vc is
  -- generic(bad : bit);
  generic(vc_h : vc_handle_t); -- the handle
end entity;
`
	design := ParseDesignFile(vhdl)
	if _, ok := design.Entity("commented_out"); ok {
		t.Fatalf("commented entity must not be parsed")
	}
	entity, ok := design.Entity("vc")
	if !ok || len(entity.Generics) != 1 {
		t.Fatalf("expected vc with one generic, got %+v", entity)
	}
}
