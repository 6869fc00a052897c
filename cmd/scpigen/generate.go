package main

import (
	"bytes"
	"fmt"
)

// generate renders spec as a Go source file declaring a literal
// []scpi.CommandDescriptor table and a parallel HandlerNames slice. The
// offline generator front-loads YAML parsing and parameter-type validation
// at build time; the application only has to pass the literal descriptors
// to scpi.BuildCommandTable, which is cheap and deterministic at program
// startup. Handler functions are not embedded in
// generated source — HandlerNames gives the application a name per command
// to bind its own Handler implementations onto the returned table.
func generate(spec *fileSpec) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "// Code generated by scpigen; DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", spec.Package)
	fmt.Fprintf(&buf, "import \"github.com/t76/instrument-core/internal/scpi\"\n\n")

	fmt.Fprintf(&buf, "// HandlerNames names, per command in the same order as %s, the\n", spec.Variable)
	fmt.Fprintf(&buf, "// application-supplied handler function the YAML source bound to it.\n")
	fmt.Fprintf(&buf, "var HandlerNames = []string{\n")
	for _, cmd := range spec.Commands {
		fmt.Fprintf(&buf, "\t%q,\n", cmd.Handler())
	}
	fmt.Fprintf(&buf, "}\n\n")

	fmt.Fprintf(&buf, "// %s is the command descriptor table generated from the YAML command\n", spec.Variable)
	fmt.Fprintf(&buf, "// specification. Bind Handler fields (see HandlerNames) before calling\n")
	fmt.Fprintf(&buf, "// scpi.BuildCommandTable.\n")
	fmt.Fprintf(&buf, "var %s = []scpi.CommandDescriptor{\n", spec.Variable)
	for _, cmd := range spec.Commands {
		fmt.Fprintf(&buf, "\t{\n\t\tName: %q,\n", cmd.Name)
		if len(cmd.Parameters) > 0 {
			fmt.Fprintf(&buf, "\t\tParameters: []scpi.ParameterDescriptor{\n")
			for _, param := range cmd.Parameters {
				typeConst, err := parameterTypeConstant(param.Type)
				if err != nil {
					return nil, fmt.Errorf("command %q: %w", cmd.Name, err)
				}
				if len(param.Choices) > 0 {
					fmt.Fprintf(&buf, "\t\t\t{Type: %s, Choices: []string{", typeConst)
					for i, choice := range param.Choices {
						if i > 0 {
							buf.WriteString(", ")
						}
						fmt.Fprintf(&buf, "%q", choice)
					}
					fmt.Fprintf(&buf, "}},\n")
				} else {
					fmt.Fprintf(&buf, "\t\t\t{Type: %s},\n", typeConst)
				}
			}
			fmt.Fprintf(&buf, "\t\t},\n")
		}
		fmt.Fprintf(&buf, "\t},\n")
	}
	fmt.Fprintf(&buf, "}\n")

	return buf.Bytes(), nil
}
