package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/wippyai/canon/schema"
)

func main() {
	var (
		schemaFile = flag.String("schema", "", "Path to interface schema JSON")
		funcName   = flag.String("func", "", "Show the wire layout of one function's regions")
		normalize  = flag.Bool("json", false, "Re-emit the schema as normalized JSON and exit")
	)
	flag.Parse()

	if *schemaFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: abidump -schema <iface.json> [-func name] [-json]")
		os.Exit(1)
	}

	if err := run(*schemaFile, *funcName, *normalize); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(schemaFile, funcName string, normalize bool) error {
	f, err := os.Open(schemaFile)
	if err != nil {
		return fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()

	decl, err := schema.DecodeJSON(f)
	if err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}

	if normalize {
		return schema.EncodeJSON(os.Stdout, decl)
	}

	layouts := schema.NewLayouts()

	fmt.Printf("Schema: %s\n", schemaFile)
	fmt.Printf("Imports: %d\n", len(decl.Imports))
	fmt.Printf("Exports: %d\n", len(decl.Exports))

	if len(decl.Imports) > 0 {
		fmt.Printf("\nImported functions:\n")
		for _, imp := range decl.Imports {
			fmt.Printf("  %s#%s\n", imp.Namespace, formatFunc(imp.Func))
		}
	}
	if len(decl.Exports) > 0 {
		fmt.Printf("\nExported functions:\n")
		for _, exp := range decl.Exports {
			fmt.Printf("  %s\n", formatFunc(exp.Func))
		}
	}

	if funcName == "" {
		return nil
	}

	fn, ok := findFunc(decl, funcName)
	if !ok {
		return fmt.Errorf("function %q not in schema", funcName)
	}
	printRegions(layouts, fn)
	return nil
}

func findFunc(decl *schema.Schema, name string) (schema.Func, bool) {
	for _, imp := range decl.Imports {
		if imp.Func.Name == name {
			return imp.Func, true
		}
	}
	for _, exp := range decl.Exports {
		if exp.Func.Name == name {
			return exp.Func, true
		}
	}
	return schema.Func{}, false
}

func formatFunc(fn schema.Func) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name + ": " + schema.Name(p.Type)
	}
	sig := fn.Name + "(" + strings.Join(params, ", ") + ")"
	if fn.Result != nil {
		sig += " -> " + schema.Name(fn.Result)
	}
	return sig
}

// printRegions dumps the argument region layout and result layout the way
// the marshaller will place them.
func printRegions(layouts *schema.Layouts, fn schema.Func) {
	fmt.Printf("\nFunction: %s\n", formatFunc(fn))

	if len(fn.Params) > 0 {
		types := make([]schema.Type, len(fn.Params))
		for i, p := range fn.Params {
			types[i] = p.Type
		}
		offs := layouts.FieldOffsets(types)

		fmt.Printf("\nArgument region:\n")
		fmt.Printf("  %-8s %-6s %-6s %-20s %s\n", "offset", "size", "align", "param", "type")
		end := uint32(0)
		align := uint32(1)
		for i, p := range fn.Params {
			tl := layouts.Of(p.Type)
			fmt.Printf("  %-8d %-6d %-6d %-20s %s\n", offs[i], tl.Size, tl.Align, p.Name, schema.Name(p.Type))
			if e := offs[i] + tl.Size; e > end {
				end = e
			}
			if tl.Align > align {
				align = tl.Align
			}
		}
		fmt.Printf("  total: %d bytes, align %d\n", schema.AlignTo(end, align), align)
	}

	if fn.Result != nil {
		rl := layouts.Of(fn.Result)
		fmt.Printf("\nResult region: %d bytes, align %d (%s)\n", rl.Size, rl.Align, schema.Name(fn.Result))
	}
}
