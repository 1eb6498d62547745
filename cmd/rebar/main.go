// Command rebar is the engine's CLI: compile and run scripts, drop into a
// REPL, or run a directory of .rbr test files, against either execution
// provider (§4.4 interp / §4.5 compiler).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rebar/internal/compiler"
	"rebar/internal/environment"
	"rebar/internal/interp"
	"rebar/internal/jit"
	"rebar/internal/repl"
	"rebar/internal/stdlib"
	rtesting "rebar/internal/testing"
)

var version = "0.1.0"

func newEnvironment(providerName string, profile bool) (*environment.Environment, error) {
	env := environment.New()
	env.Interp = interp.New()
	env.Compiler = compiler.New()
	switch providerName {
	case "interp":
		env.ActiveProvider = env.Interp
	case "compiler":
		env.ActiveProvider = env.Compiler
	default:
		return nil, fmt.Errorf("unknown provider %q (want interp or compiler)", providerName)
	}
	if profile {
		env.Profiler = jit.NewProfiler()
	}
	stdlib.Install(env)
	return env, nil
}

func reportProfile(env *environment.Environment) {
	if env.Profiler == nil {
		return
	}
	stats := env.Profiler.Hottest()
	if len(stats) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "\n--- call profile ---")
	for _, s := range stats {
		fmt.Fprintf(os.Stderr, "%6d calls  %-8s %s\n", s.Calls, tierLabel(s.Tier), s.Name)
	}
}

func tierLabel(t jit.Tier) string {
	switch t {
	case jit.TierHot:
		return "hot"
	case jit.TierWarm:
		return "warm"
	default:
		return "cold"
	}
}

func runFile(path, providerName string, profile bool) error {
	env, err := newEnvironment(providerName, profile)
	if err != nil {
		return err
	}
	fn, err := env.CompileFile(path, environment.CompileInfo{Name: path})
	if err != nil {
		return err
	}
	_, err = env.Call(fn, nil)
	reportProfile(env)
	if err != nil {
		if rerr, ok := err.(*environment.RuntimeError); ok {
			return fmt.Errorf("%s", environment.RenderError(rerr, env.ToDisplayString))
		}
		return err
	}
	return nil
}

func main() {
	var provider string
	var profile bool

	root := &cobra.Command{
		Use:     "rebar",
		Short:   "rebar runs scripts against the tagged-value scripting engine",
		Version: version,
	}
	root.PersistentFlags().StringVar(&provider, "provider", "compiler", "execution provider: interp or compiler")
	root.PersistentFlags().BoolVar(&profile, "profile", false, "print a per-function call profile to stderr on exit")

	runCmd := &cobra.Command{
		Use:   "run <file>",
		Short: "compile and run a script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0], provider, profile)
		},
	}

	compileCmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "compile a script file and report success without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(provider, false)
			if err != nil {
				return err
			}
			_, err = env.CompileFile(args[0], environment.CompileInfo{Name: args[0]})
			return err
		},
	}

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "start an interactive read-eval-print loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(provider, profile)
			if err != nil {
				return err
			}
			repl.Start(env)
			reportProfile(env)
			return nil
		},
	}

	testCmd := &cobra.Command{
		Use:   "test <path>",
		Short: "run every *.rbr test file under path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := rtesting.RunSuite(args[0], func() *environment.Environment {
				env, _ := newEnvironment(provider, false)
				return env
			})
			if err != nil {
				return err
			}
			rtesting.PrintReport(os.Stdout, result)
			if result.Failed > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	root.AddCommand(runCmd, compileCmd, replCmd, testCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
