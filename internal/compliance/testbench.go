package compliance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/aappl/vc-compliance/internal/project"
)

// templateParams is the closed set of fields substituted into the testbench
// skeleton.
type templateParams struct {
	ContextItems       string
	EntityName         string
	ConstructorName    string
	SignalDeclarations string
	HandleName         string
	HandleType         string
	Instantiation      string
}

var tbTemplate = template.Must(template.New("testbench").Parse(tbSkeleton))

// TestBenchName returns the name of the generated compliance testbench
// entity, tb_<entity>_compliance.
func (c *Check) TestBenchName() string {
	return fmt.Sprintf("tb_%s_compliance", c.Entity.Identifier)
}

// CreateVHDLTestbench returns the text of the compliance testbench for the
// validated component. Deterministic for a given Check.
func (c *Check) CreateVHDLTestbench() (string, error) {
	handleName := c.Entity.Generics[0].IdentifierList[0]
	signalDeclarations, portMappings := c.portDerivation()

	params := templateParams{
		ContextItems:       c.contextItems(),
		EntityName:         c.Entity.Identifier,
		ConstructorName:    c.Constructor.Identifier,
		SignalDeclarations: signalDeclarations,
		HandleName:         handleName,
		HandleType:         c.HandleType,
		Instantiation:      c.instantiation(handleName, portMappings),
	}

	var sb strings.Builder
	if err := tbTemplate.Execute(&sb, params); err != nil {
		return "", fmt.Errorf("substituting testbench template: %w", err)
	}
	return sb.String(), nil
}

// contextItems assembles the library and use/context clauses of the
// testbench. The VC library and interface package come first; the component's
// own references follow in declaration order, with library clauses for
// not-yet-seen external libraries prepended and working-library references
// rewritten to the concrete VC library name.
func (c *Check) contextItems() string {
	libraryNames := make(map[string]bool)
	contextItems := fmt.Sprintf("library %s;\n", c.Lib.Name)
	contextItems += fmt.Sprintf("use %s.%s.all;\n", c.Lib.Name, c.VCIName)

	for _, ref := range c.Design.References {
		if !ref.IsPackage() && !ref.IsContext() {
			continue
		}

		if ref.Library != "work" && !libraryNames[ref.Library] {
			libraryNames[ref.Library] = true
			contextItems = fmt.Sprintf("library %s;\n", ref.Library) + contextItems
		}

		libraryName := ref.Library
		if libraryName == "work" {
			libraryName = c.Lib.Name
		}

		if ref.IsContext() {
			contextItems += fmt.Sprintf("context %s.%s;\n", libraryName, ref.DesignUnit)
		}

		if ref.IsPackage() {
			contextItems += fmt.Sprintf("use %s.%s.%s;\n", libraryName, ref.DesignUnit, ref.NameWithin)
		}
	}

	return contextItems
}

// portDerivation returns the external signal declarations and the port map
// entries. Only in/inout ports without a default value get a driving signal;
// everything else is left open.
func (c *Check) portDerivation() (signalDeclarations, portMappings string) {
	for _, port := range c.Entity.Ports {
		if (port.Mode == "in" || port.Mode == "inout") && !port.HasInitValue() {
			signalDeclarations += fmt.Sprintf("  signal %s : %s;\n",
				strings.Join(port.IdentifierList, ", "), port.SubtypeIndication)
			for _, identifier := range port.IdentifierList {
				portMappings += fmt.Sprintf("      %s => %s,\n", identifier, identifier)
			}
		} else {
			for _, identifier := range port.IdentifierList {
				portMappings += fmt.Sprintf("      %s => open,\n", identifier)
			}
		}
	}
	return signalDeclarations, portMappings
}

// instantiation builds the component instantiation with its generic map and,
// when the entity has ports, the port map.
func (c *Check) instantiation(handleName, portMappings string) string {
	vcInstantiation := fmt.Sprintf("  vc_inst: entity %s.%s\n    generic map(%s);\n",
		c.Lib.Name, c.Entity.Identifier, handleName)

	if len(c.Entity.Ports) > 0 {
		vcInstantiation = strings.TrimSuffix(vcInstantiation, ";\n") + "\n    port map(\n"
		vcInstantiation += strings.TrimSuffix(portMappings, ",\n") + "\n    );\n"
	}

	return vcInstantiation
}

// AddVHDLTestbench writes the compliance testbench to testDir, registers it
// in testLib and configures its test cases. Generating a second time against
// the same test library is an error; an existing testbench is never
// overwritten.
func (c *Check) AddVHDLTestbench(testLib *project.Library, testDir string) (*project.SourceFile, error) {
	name := c.TestBenchName()

	if _, err := testLib.TestBench(name); err == nil {
		return nil, fmt.Errorf("%s already exists in %s", name, testLib.Name)
	} else if !errors.Is(err, project.ErrNotFound) {
		return nil, err
	}

	contents, err := c.CreateVHDLTestbench()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(testDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", testDir, err)
	}

	tbPath := filepath.Join(testDir, name+".vhd")
	if err := os.WriteFile(tbPath, []byte(contents), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", tbPath, err)
	}

	tbFile, err := testLib.AddSourceFile(tbPath)
	if err != nil {
		return nil, err
	}

	testbench, err := testLib.TestBench(name)
	if err != nil {
		return nil, fmt.Errorf("generated testbench %s was not registered: %w", name, err)
	}

	test := testbench.Test("Test that the actor can be customised")
	test.SetGeneric("use_custom_actor", true)

	test = testbench.Test("Test unexpected message handling")
	for _, failOnUnexpected := range []bool{false, true} {
		test.AddConfig(
			fmt.Sprintf("fail_on_unexpected_msg_type=%v", failOnUnexpected),
			map[string]any{
				"fail_on_unexpected_msg_type": failOnUnexpected,
				"use_custom_logger":           true,
				"use_custom_actor":            true,
			},
		)
	}

	return tbFile, nil
}

// tbSkeleton is the fixed testbench skeleton. It declares a custom actor and
// logger, a handle-construction function that swaps them in based on the
// use_custom_logger/use_custom_actor generics, and the three built-in test
// cases every compliant component must pass.
const tbSkeleton = `{{.ContextItems}}
entity tb_{{.EntityName}}_compliance is
  generic(
    use_custom_logger : boolean := false;
    use_custom_actor : boolean := false;
    fail_on_unexpected_msg_type : boolean := true;
    runner_cfg : string);
end entity;

architecture tb of tb_{{.EntityName}}_compliance is
  constant custom_actor : actor_t := new_actor("vc", inbox_size => 1);
  constant custom_logger : logger_t := get_logger("vc");

  impure function create_handle return {{.HandleType}} is
    variable handle : {{.HandleType}};
    variable logger : logger_t := null_logger;
    variable actor : actor_t := null_actor;
  begin
    if use_custom_logger then
      logger := custom_logger;
    end if;

    if use_custom_actor then
      actor := custom_actor;
    end if;

    return {{.ConstructorName}}(
      logger => logger,
      actor => actor,
      fail_on_unexpected_msg_type => fail_on_unexpected_msg_type);
  end;

  constant {{.HandleName}} : {{.HandleType}} := create_handle;
  constant unexpected_msg : msg_type_t := new_msg_type("unexpected msg");

{{.SignalDeclarations}}
begin
  main : process
    variable t_start : time;
    variable msg : msg_t;
  begin
    test_runner_setup(runner, runner_cfg);

    while test_suite loop

      if run("Test that sync interface is supported") then
        t_start := now;
        wait_for_time(net, as_sync({{.HandleName}}), 1 ns);
        wait_for_time(net, as_sync({{.HandleName}}), 2 ns);
        wait_for_time(net, as_sync({{.HandleName}}), 3 ns);
        check_equal(now - t_start, 0 ns);
        t_start := now;
        wait_until_idle(net, as_sync({{.HandleName}}));
        check_equal(now - t_start, 6 ns);

      elsif run("Test that the actor can be customised") then
        t_start := now;
        wait_for_time(net, as_sync({{.HandleName}}), 1 ns);
        wait_for_time(net, as_sync({{.HandleName}}), 2 ns);
        check_equal(now - t_start, 0 ns);
        wait_for_time(net, as_sync({{.HandleName}}), 3 ns);
        check_equal(now - t_start, 1 ns);
        wait_until_idle(net, as_sync({{.HandleName}}));
        check_equal(now - t_start, 6 ns);

      elsif run("Test unexpected message handling") then
        mock(custom_logger);
        msg := new_msg(unexpected_msg);
        send(net, custom_actor, msg);
        wait for 1 ns;
        if fail_on_unexpected_msg_type then
          check_only_log(custom_logger, "Got unexpected message unexpected msg", failure);
        else
          check_no_log;
        end if;
        unmock(custom_logger);
      end if;

    end loop;

    test_runner_cleanup(runner);
  end process;

{{.Instantiation}}
end architecture;
`
