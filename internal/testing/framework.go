// Package testing is the engine's own test runner: it discovers *.rbr
// script files under a directory and runs each one as a test, concurrently,
// with assertion builtins (assert, assert_equal, ...) bound into each
// file's own Environment. This is the `rebar test` subcommand's engine;
// it has nothing to do with Go's testing package.
package testing

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"rebar/internal/environment"
)

// Result is one *.rbr file's outcome.
type Result struct {
	File     string
	Passed   bool
	Duration time.Duration
	Failures []string
	Err      error
}

// Stats summarizes a full run, in Discover order.
type Stats struct {
	Results []Result
	Passed  int
	Failed  int
	Total   int
}

// EnvFactory builds a fresh, already-configured Environment (provider +
// stdlib installed) for exactly one test file. Every goroutine in RunSuite
// calls it once, so no state crosses file boundaries (§5's
// single-threaded-per-environment rule: concurrency is across
// Environments, never inside one).
type EnvFactory func() *environment.Environment

// Discover finds every *.rbr file under dir, recursively.
func Discover(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".rbr" {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// RunSuite discovers and runs every test file under dir concurrently,
// bounded by GOMAXPROCS through errgroup's default (unlimited) scheduling
// over OS threads being the real limiter.
func RunSuite(dir string, newEnv EnvFactory) (*Stats, error) {
	files, err := Discover(dir)
	if err != nil {
		return nil, fmt.Errorf("discovering tests under %s: %w", dir, err)
	}

	results := make([]Result, len(files))
	g, _ := errgroup.WithContext(context.Background())
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = runFile(f, newEnv())
			return nil
		})
	}
	// errgroup.Go's thunks never return an error themselves (failures are
	// recorded per-file in results), so Wait only surfaces a scheduling
	// problem, never a test failure.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{Results: results, Total: len(results)}
	for _, r := range results {
		if r.Passed {
			stats.Passed++
		} else {
			stats.Failed++
		}
	}
	return stats, nil
}

func runFile(path string, env *environment.Environment) Result {
	counter := &assertCounter{}
	installAssertions(env, counter)

	start := time.Now()
	fn, err := env.CompileFile(path, environment.CompileInfo{Name: path})
	if err != nil {
		return Result{File: path, Duration: time.Since(start), Err: err}
	}
	_, callErr := env.Call(fn, nil)
	dur := time.Since(start)

	if callErr != nil {
		if rerr, ok := callErr.(*environment.RuntimeError); ok {
			return Result{File: path, Duration: dur, Err: fmt.Errorf("%s", environment.RenderError(rerr, env.ToDisplayString))}
		}
		return Result{File: path, Duration: dur, Err: callErr}
	}
	if counter.failed > 0 {
		return Result{File: path, Duration: dur, Failures: counter.messages}
	}
	return Result{File: path, Duration: dur, Passed: true}
}
