package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jward/deadwood"
)

// toCLIFindings converts findings with file paths relative to root.
func toCLIFindings(root string, findings []deadwood.Finding) []CLIFinding {
	out := make([]CLIFinding, 0, len(findings))
	for _, f := range findings {
		cf := CLIFinding{
			File:         relPath(root, f.Module),
			Name:         f.Name,
			Kind:         f.Kind,
			UsedInModule: f.UsedInModule,
		}
		if f.Local != f.Name {
			cf.Local = f.Local
		}
		out = append(out, cf)
	}
	return out
}

// relPath returns path relative to root when it lies below it.
func relPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// formatFindingsText formats CLIFinding results as aligned columns.
func formatFindingsText(w io.Writer, findings []CLIFinding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No unused exports.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tEXPORT\tKIND\tNOTE")
	for _, f := range findings {
		name := f.Name
		if f.Local != "" {
			name = fmt.Sprintf("%s (%s)", f.Name, f.Local)
		}
		note := ""
		if f.UsedInModule {
			note = "used in same file"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.File, name, f.Kind, note)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d unused export(s)\n", len(findings))
}

// formatExplainText prints the trace one module per line.
func formatExplainText(w io.Writer, e CLIExplain) {
	if !e.Resolved {
		fmt.Fprintf(w, "%s#%s is not declared by %s or any module it re-exports\n", e.Module, e.Symbol, e.Module)
		return
	}
	for i, m := range e.Chain {
		switch {
		case i == len(e.Chain)-1:
			fmt.Fprintf(w, "%s%s  (declares %s)\n", strings.Repeat("  ", i), m, e.Symbol)
		default:
			fmt.Fprintf(w, "%s%s  export *\n", strings.Repeat("  ", i), m)
		}
	}
}

// outputResult writes result in the selected format to the command's
// output.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIFinding:
		formatFindingsText(w, v)
	case CLIExplain:
		formatExplainText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
