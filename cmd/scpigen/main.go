// Command scpigen is the offline command-table generator of spec.md §4.6:
// it converts a YAML SCPI command specification into a Go source file
// declaring the literal CommandDescriptor table, so the firmware image
// never parses YAML or walks a generator at runtime.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scpigen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	in := flag.String("in", "", "path to the YAML command specification")
	out := flag.String("out", "", "path to write the generated Go source (default: stdout)")
	flag.Parse()

	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	spec, err := loadSpec(*in)
	if err != nil {
		return err
	}

	src, err := generate(spec)
	if err != nil {
		return err
	}

	if *out == "" {
		_, err = os.Stdout.Write(src)
		return err
	}
	return os.WriteFile(*out, src, 0o644)
}
