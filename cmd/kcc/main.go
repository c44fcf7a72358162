// Command kcc is the CLI driver (spec.md §6): it wires the lexer, parser,
// semantic annotator, and code generator together in-process and prints
// the resulting instruction stream.
//
// Grounded on lang/ya/main.go's flag layout (-S/-o/-v) and stage-by-stage
// verbose logging, collapsed from a 5-subprocess pipeline
// (ylex|yparse|ysem|ygen|ypeep) into 4 direct in-process calls, since the
// core's stages share the AST and symbol table as Go values rather than
// communicating over stdio (SPEC_FULL.md §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmofishsauce/kcc/internal/codegen"
	"github.com/gmofishsauce/kcc/internal/diag"
	"github.com/gmofishsauce/kcc/internal/lexer"
	"github.com/gmofishsauce/kcc/internal/parser"
	"github.com/gmofishsauce/kcc/internal/sema"
	"github.com/gmofishsauce/kcc/internal/symtab"
	"github.com/gmofishsauce/kcc/internal/token"
)

var (
	flagStopAfterAsm bool
	flagVerbose      bool
	flagOutput       string
)

func main() {
	root := &cobra.Command{
		Use:   "kcc [file.c]",
		Short: "kcc compiles a substantial fragment of C to x86-64 assembly",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	root.Flags().BoolVarP(&flagStopAfterAsm, "S", "S", true, "emit assembly and stop (the only mode this core supports)")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log each pipeline stage as it runs")
	root.Flags().StringVarP(&flagOutput, "output", "o", "", "write assembly to this file instead of stdout")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("kcc: %w", err)
	}
	defer src.Close()

	diags := diag.NewSink()

	logStage := func(name string) {
		if flagVerbose {
			fmt.Fprintf(os.Stderr, "kcc: %s\n", name)
		}
	}

	logStage("lexing " + path)
	toks, lexErr := lexer.TokenizeAll(src, path)
	if lexErr != nil {
		diags.Report(diag.Error, diag.CodeIO, toks[len(toks)-1].Loc, "%v", lexErr)
	}

	logStage("parsing")
	syms := symtab.NewTable()
	stream := token.NewSliceStream(toks)
	p := parser.New(stream, syms, diags)
	prog := p.Parse()

	logStage("annotating")
	annotator := sema.New(diags)
	annotator.Annotate(prog)

	out := os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("kcc: %w", err)
		}
		defer f.Close()
		out = f
	}

	if diags.HasErrors() {
		diags.Flush(os.Stderr)
		return fmt.Errorf("kcc: compilation failed")
	}

	logStage("generating code")
	compiler := codegen.New(diags)
	asm := compiler.Compile(prog, annotator.Table())

	diags.Flush(os.Stderr)
	if diags.HasErrors() {
		return fmt.Errorf("kcc: compilation failed")
	}

	fmt.Fprint(out, asm.String())
	return nil
}
