// Package bazelengine orchestrates the full pipeline: check the cache,
// issue the aquery, decode and process the action graph, write back to the
// cache, and deliver results via a completion callback.
package bazelengine

import (
	"fmt"
	"strings"

	"github.com/sean7218/bazel-sourcekit-bsp/server/actiongraph"
	"github.com/sean7218/bazel-sourcekit-bsp/server/procrunner"
	"github.com/sean7218/bazel-sourcekit-bsp/server/targetbuilder"
	"github.com/sean7218/bazel-sourcekit-bsp/server/targetcache"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/log"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

// Completion is invoked with the target list whenever one becomes
// available: once synchronously on a cache miss, once immediately on a
// cache hit, and a second time after a background refresh if (and only if)
// the refreshed list differs from the cached one.
type Completion func(targets []targetbuilder.BazelTarget)

// Runner abstracts process invocation so tests can stub out `bazel` without
// spawning a real subprocess; procrunner.Run satisfies this signature.
type Runner func(executable, cwd string, args []string) (*procrunner.Result, error)

// Engine is the C8 facade.
type Engine struct {
	Cache  *targetcache.Cache
	Logger log.Sink

	// BazelExecutable defaults to "bazel"; overridable for tests.
	BazelExecutable string
	// Run defaults to procrunner.Run; overridable for tests.
	Run Runner
}

// New constructs an Engine backed by cache.
func New(cache *targetcache.Cache, logger log.Sink) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{Cache: cache, Logger: logger, BazelExecutable: "bazel", Run: procrunner.Run}
}

// Execute runs the read-through-refresh-behind cache protocol for labels
// against the workspace rooted at root with execution root execroot,
// appending aqueryArgs to the aquery invocation, and delivers results to
// completion.
func (e *Engine) Execute(labels []string, root, execroot string, aqueryArgs []string, completion Completion) error {
	key := targetcache.Key(labels)

	if cached, ok := e.Cache.Load(key); ok {
		completion(cached)
		go e.refresh(labels, key, root, execroot, aqueryArgs, cached, completion)
		return nil
	}

	fresh, err := e.runFreshPipeline(labels, root, execroot, aqueryArgs)
	if err != nil {
		return err
	}
	if err := e.Cache.Save(key, fresh); err != nil {
		e.Logger.Warningf("failed to save cache entry for %s: %s", key, err)
	}
	completion(fresh)
	return nil
}

// refresh runs the fresh pipeline in the background, writes its result to
// the cache, and, only if that result differs from cached by set-equality,
// invokes completion a second time.
func (e *Engine) refresh(labels []string, key, root, execroot string, aqueryArgs []string, cached []targetbuilder.BazelTarget, completion Completion) {
	fresh, err := e.runFreshPipeline(labels, root, execroot, aqueryArgs)
	if err != nil {
		e.Logger.Warningf("background refresh for %s failed, keeping stale cache: %s", key, err)
		return
	}
	if err := e.Cache.Save(key, fresh); err != nil {
		e.Logger.Warningf("failed to save refreshed cache entry for %s: %s", key, err)
		return
	}
	if !targetbuilder.SetEqual(cached, fresh) {
		completion(fresh)
	}
}

// runFreshPipeline builds the aquery expression, runs it via the process
// runner, decodes the result, and processes it into BazelTargets.
func (e *Engine) runFreshPipeline(labels []string, root, execroot string, aqueryArgs []string) ([]targetbuilder.BazelTarget, error) {
	expr := aqueryExpression(labels)
	args := append([]string{"aquery", expr, "--output=jsonproto"}, aqueryArgs...)

	run := e.Run
	if run == nil {
		run = procrunner.Run
	}
	result, err := run(e.BazelExecutable, root, args)
	if err != nil {
		return nil, err
	}
	if len(result.Stdout) == 0 {
		return nil, status.CustomErrorf("aquery produced no output (exit code %d): %s", result.ExitCode, string(result.Stderr))
	}

	graph, err := actiongraph.Decode(result.Stdout)
	if err != nil {
		return nil, err
	}

	targets := targetbuilder.Process(graph, targetbuilder.Options{
		WorkspaceRoot: root,
		ExecRoot:      execroot,
		Logger:        e.Logger,
	})
	return targets, nil
}

// aqueryExpression builds mnemonic("SwiftCompile|ObjcCompile", deps(set(<labels>))).
func aqueryExpression(labels []string) string {
	return fmt.Sprintf(`mnemonic("SwiftCompile|ObjcCompile", deps(set(%s)))`, strings.Join(labels, " "))
}
