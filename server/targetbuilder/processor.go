package targetbuilder

import (
	"fmt"
	"path"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sean7218/bazel-sourcekit-bsp/server/actiongraph"
	"github.com/sean7218/bazel-sourcekit-bsp/server/argrewrite"
	"github.com/sean7218/bazel-sourcekit-bsp/server/sdkselect"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/disk"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/log"
)

// acceptedExtensions are the source file extensions retained in a target's
// input_files list.
var acceptedExtensions = map[string]bool{
	"swift": true,
	"m":     true,
	"h":     true,
}

// Options bundles the context every action needs in order to become a
// BazelTarget: the workspace root (for input_files URIs), the execution
// root (for argument rewriting), and caller-supplied aquery arguments are
// not needed here since they only affect the query itself, not processing.
type Options struct {
	WorkspaceRoot string
	ExecRoot      string
	Logger        log.Sink
}

// Process runs the parallel fan-out: for each action in
// g.Actions, concurrently builds input_files, selects an SDK, rewrites
// arguments, and assembles a BazelTarget, then deduplicates the collected
// records by value equality. The fan-out is bounded by GOMAXPROCS, mirroring
// the errgroup.SetLimit pattern used elsewhere in the server for bounded
// parallel work over an in-memory graph.
func Process(g *actiongraph.Graph, opts Options) []BazelTarget {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	var (
		mu      sync.Mutex
		results []BazelTarget
		done    int
	)

	eg := new(errgroup.Group)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	total := len(g.Actions)
	for i := range g.Actions {
		action := g.Actions[i]
		eg.Go(func() error {
			target, ok := processAction(g, action, opts)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				results = append(results, target)
			}
			done++
			if done%10 == 0 || done == total {
				opts.Logger.Infof("processed %d/%d actions", done, total)
			}
			return nil
		})
	}
	// Process never returns an error from any action: per-action failures
	// are logged and that action is skipped,
	// so the errgroup's Wait() error is always nil here.
	_ = eg.Wait()

	return Dedup(results)
}

// processAction converts a single action into a BazelTarget. It returns
// ok=false when the action's target_id has no corresponding Target or any other per-action step fails; those failures are logged and
// the action is skipped, never propagated.
func processAction(g *actiongraph.Graph, action actiongraph.Action, opts Options) (BazelTarget, bool) {
	target, ok := g.TargetsByID[action.TargetID]
	if !ok {
		opts.Logger.Warningf("skipping action: no target found for target_id %d", action.TargetID)
		return BazelTarget{}, false
	}

	inputFiles := buildInputFiles(g, action, opts.WorkspaceRoot)

	sdkPath, err := sdkselect.Select(action.Environment)
	if err != nil {
		opts.Logger.Warningf("skipping action for target %s: %s", target.Label, err)
		return BazelTarget{}, false
	}

	rewritten := argrewrite.Rewrite(argrewrite.Input{
		Arguments:    action.Arguments,
		ExecRootURI:  "file://" + opts.ExecRoot,
		ExecRootPath: opts.ExecRoot,
		SDKPath:      sdkPath,
		PathExists:   func(p string) bool { return disk.FileExists(p) },
	})

	return BazelTarget{
		ID:                target.ID,
		URI:               fmt.Sprintf("bazel://%s#%d", target.Label, target.ID),
		Label:             target.Label,
		Kind:              Kind,
		Tags:              nil,
		InputFiles:        inputFiles,
		CompilerArguments: rewritten.Arguments,
	}, true
}

// buildInputFiles collects the closure of artifact IDs under each of the
// action's input dep-sets, resolves each artifact's path, and keeps only
// those whose extension is accepted and which exist on disk, returned as
// file:// URIs.
func buildInputFiles(g *actiongraph.Graph, action actiongraph.Action, workspaceRoot string) []string {
	var files []string
	for _, depSetID := range action.InputDepSetIDs {
		for _, artifactID := range g.Closure(depSetID) {
			artifact, ok := g.Artifacts[artifactID]
			if !ok {
				continue
			}
			relPath := g.ResolvePath(artifact.PathFragmentID)
			if relPath == "" {
				continue
			}
			ext := strings.TrimPrefix(path.Ext(relPath), ".")
			if !acceptedExtensions[ext] {
				continue
			}
			absPath := strings.TrimRight(workspaceRoot, "/") + "/" + relPath
			if !disk.FileExists(absPath) {
				continue
			}
			files = append(files, "file://"+absPath)
		}
	}
	return files
}
