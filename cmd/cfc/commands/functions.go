package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/cflowchart/pkg/cast"
)

// functionInfo describes one function definition.
type functionInfo struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Line   int      `json:"line"`
}

// functionsCmd represents the functions command
var functionsCmd = &cobra.Command{
	Use:   "functions <file>",
	Short: "List the function definitions of a C file",
	Long: `Lists every function definition with its parameters and line number.
Use the names with "cfc chart --function" to render a single function.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		funcs, err := listFunctions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), funcs)
		}
		return printFunctions(cmd.OutOrStdout(), funcs)
	},
}

func init() {
	functionsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(functionsCmd)
}

func listFunctions(ctx context.Context, path string) ([]functionInfo, error) {
	unit, err := cast.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}

	defs := cast.Functions(unit)
	out := make([]functionInfo, 0, len(defs))
	for _, fd := range defs {
		info := functionInfo{Name: fd.Name(), Params: []string{}, Line: fd.Position().Line}
		if fd.Decl != nil {
			info.Params = fd.Decl.ParamNames()
		}
		out = append(out, info)
	}
	return out, nil
}

func printFunctions(w io.Writer, funcs []functionInfo) error {
	if len(funcs) == 0 {
		_, err := fmt.Fprintln(w, "No function definitions found.")
		return err
	}
	for _, f := range funcs {
		if _, err := fmt.Fprintf(w, "%5d  %s(%s)\n", f.Line, f.Name, strings.Join(f.Params, ", ")); err != nil {
			return err
		}
	}
	return nil
}
