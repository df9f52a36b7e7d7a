package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/cwbudde/go-pyembed/internal/engine"
	"github.com/cwbudde/go-pyembed/internal/engineconfig"
)

var (
	argNames   []string
	argsFile   string
	limitsFile string
)

var runCmd = &cobra.Command{
	Use:   "run <file.py>",
	Short: "Compile and run a restricted-Python script",
	Long: `Compile and run a script against the embedded engine, printing its
Exit in the same debug-form the embedding test harness expects:

  Return(<value repr>)
  Raise(Exc: (L-C to L-C) Kind: message)
  LimitExceeded{kind: Instructions|Wall}

Examples:
  pyembed run script.py
  pyembed run script.py --args args.json
  pyembed run script.py --arg x --arg y --args args.json --limits limits.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVar(&argNames, "arg", nil, "declared argument name (repeatable); inferred from --args if omitted")
	runCmd.Flags().StringVar(&argsFile, "args", "", "path to a JSON object supplying argument values")
	runCmd.Flags().StringVar(&limitsFile, "limits", "", "path to a limits.yaml file (defaults applied otherwise)")
}

func runScript(_ *cobra.Command, cliArgs []string) error {
	filename := cliArgs[0]
	source, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	names, values, err := loadArgs(argsFile, argNames)
	if err != nil {
		return err
	}

	limits := engineconfig.DefaultLimits()
	if limitsFile != "" {
		limits, err = engineconfig.LoadLimits(limitsFile)
		if err != nil {
			return err
		}
	}

	program, perr := engine.Compile(string(source), filename, names, nil)
	if perr != nil {
		fmt.Println(perr.Summary())
		exitWithError("parse failed")
		return nil
	}

	exit, out, runErr := program.Run(values, limits, nil)
	if s := out.Stdout(); s != "" {
		fmt.Print(s)
	}
	if runErr != nil {
		return fmt.Errorf("internal error: %w", runErr)
	}
	fmt.Println(exit.String())
	return nil
}

// loadArgs resolves the declared argument names and their values. Explicit
// --arg flags win; otherwise names are inferred from the JSON args file's
// top-level keys, in document order, per SPEC_FULL.md section 6's CLI
// surface. Values are read with gjson rather than encoding/json so that
// key order — and therefore argument order when inferring names — survives
// intact, the same ordering discipline internal/engine/jsonconv.go uses.
func loadArgs(path string, declared []string) ([]string, []engine.Value, error) {
	if path == "" {
		return declared, make([]engine.Value, len(declared)), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading args file %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, nil, fmt.Errorf("args file %s is not valid JSON", path)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, nil, fmt.Errorf("args file %s must contain a JSON object", path)
	}

	byName := map[string]engine.Value{}
	var docOrder []string
	root.ForEach(func(key, val gjson.Result) bool {
		name := key.Str
		docOrder = append(docOrder, name)
		v, verr := engine.JSONToValue(val.Raw)
		if verr != nil {
			v = engine.None
		}
		byName[name] = v
		return true
	})

	names := declared
	if len(names) == 0 {
		names = docOrder
	}
	values := make([]engine.Value, len(names))
	for i, n := range names {
		if v, ok := byName[n]; ok {
			values[i] = v
		} else {
			values[i] = engine.None
		}
	}
	return names, values, nil
}
