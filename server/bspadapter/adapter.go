// Package bspadapter maps BSP-method semantics onto the current BazelTarget
// list: workspace/buildTargets, buildTarget/sources,
// textDocument/sourceKitOptions, textDocument/registerForChanges,
// buildTarget/prepare, workspace/didChangeWatchedFiles.
package bspadapter

import (
	"strings"
	"sync"

	"github.com/sean7218/bazel-sourcekit-bsp/server/bspconfig"
	"github.com/sean7218/bazel-sourcekit-bsp/server/procrunner"
	"github.com/sean7218/bazel-sourcekit-bsp/server/targetbuilder"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/log"
)

// BuildTargetCapabilities mirrors the BSP BuildTargetCapabilities shape.
type BuildTargetCapabilities struct {
	CanCompile bool `json:"canCompile"`
	CanTest    bool `json:"canTest"`
	CanRun     bool `json:"canRun"`
	CanDebug   bool `json:"canDebug"`
}

// BuildTarget is the BSP-facing projection of a BazelTarget.
type BuildTarget struct {
	ID           BuildTargetIdentifier   `json:"id"`
	DisplayName  string                  `json:"displayName"`
	BaseDir      string                  `json:"baseDirectory,omitempty"`
	Tags         []string                `json:"tags"`
	LanguageIDs  []string                `json:"languageIds"`
	Dependencies []BuildTargetIdentifier `json:"dependencies"`
	Capabilities BuildTargetCapabilities `json:"capabilities"`
}

// BuildTargetIdentifier wraps a target URI.
type BuildTargetIdentifier struct {
	URI string `json:"uri"`
}

// SourceItem is one entry in a buildTarget/sources response.
type SourceItem struct {
	URI       string `json:"uri"`
	Kind      int    `json:"kind"` // 1 = file
	Generated bool   `json:"generated"`
}

const sourceItemKindFile = 1

// SourcesItem groups a target's sources with sourcekit-specific metadata.
type SourcesItem struct {
	Target   BuildTargetIdentifier `json:"target"`
	Sources  []SourceItem          `json:"sources"`
	DataKind string                `json:"dataKind"`
	Data     map[string]any        `json:"data"`
}

// SourceKitOptionsResult is the response to textDocument/sourceKitOptions.
type SourceKitOptionsResult struct {
	CompilerArguments []string `json:"compilerArguments"`
	WorkingDirectory  string   `json:"workingDirectory"`
}

// RegisterForChangesNotification is the notification payload returned by
// textDocument/registerForChanges.
type RegisterForChangesNotification struct {
	URI               string   `json:"uri"`
	UpdatedOptions    []string `json:"updatedOptions"`
}

// DidChangeNotification is emitted in response to
// workspace/didChangeWatchedFiles.
type DidChangeNotification struct {
	Changes []TargetChange `json:"changes"`
}

// TargetChange names one changed target; Kind is always "changed".
type TargetChange struct {
	Target BuildTargetIdentifier `json:"target"`
	Kind   string                `json:"kind"`
}

const changeKindChanged = "changed"

// Adapter holds the current target list behind a read/write discipline:
// readers snapshot, the engine's completion callback replaces.
type Adapter struct {
	mu      sync.RWMutex
	targets []targetbuilder.BazelTarget

	Config *bspconfig.Config
	Logger log.Sink

	// Run defaults to procrunner.Run; overridable for tests.
	Run func(executable, cwd string, args []string) (*procrunner.Result, error)
}

// New constructs an Adapter for cfg, with an empty target list until the
// first engine completion installs one.
func New(cfg *bspconfig.Config, logger log.Sink) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{Config: cfg, Logger: logger, Run: procrunner.Run}
}

// SetTargets installs a new target list; called from the engine's
// Completion callback. Replacement is atomic with respect to concurrent
// readers of BuildTargets/Sources/SourceKitOptions/RegisterForChanges.
func (a *Adapter) SetTargets(targets []targetbuilder.BazelTarget) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.targets = targets
}

func (a *Adapter) snapshot() []targetbuilder.BazelTarget {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.targets
}

// BuildTargets implements workspace/buildTargets: project every current
// BazelTarget to the BSP target shape.
func (a *Adapter) BuildTargets() []BuildTarget {
	snapshot := a.snapshot()
	out := make([]BuildTarget, 0, len(snapshot))
	for _, t := range snapshot {
		out = append(out, BuildTarget{
			ID:           BuildTargetIdentifier{URI: t.URI},
			DisplayName:  t.Label,
			Tags:         []string{},
			LanguageIDs:  []string{"swift"},
			Dependencies: []BuildTargetIdentifier{},
			Capabilities: BuildTargetCapabilities{
				CanCompile: true,
				CanTest:    strings.Contains(t.Kind, "test"),
				CanRun:     strings.Contains(t.Kind, "binary"),
				CanDebug:   false,
			},
		})
	}
	return out
}

// Sources implements buildTarget/sources: for each requested URI, locate
// the matching BazelTarget and map its input_files to source items.
func (a *Adapter) Sources(requestedURIs []string) []SourcesItem {
	snapshot := a.snapshot()
	byURI := make(map[string]targetbuilder.BazelTarget, len(snapshot))
	for _, t := range snapshot {
		byURI[t.URI] = t
	}

	items := make([]SourcesItem, 0, len(requestedURIs))
	for _, uri := range requestedURIs {
		t, ok := byURI[uri]
		if !ok {
			continue
		}
		sources := make([]SourceItem, 0, len(t.InputFiles))
		for _, f := range t.InputFiles {
			sources = append(sources, SourceItem{URI: f, Kind: sourceItemKindFile, Generated: false})
		}
		items = append(items, SourcesItem{
			Target:   BuildTargetIdentifier{URI: uri},
			Sources:  sources,
			DataKind: "sourceKit",
			Data:     map[string]any{},
		})
	}
	return items
}

// SourceKitOptions implements textDocument/sourceKitOptions: locate the
// target by identifier URI and return its compiler_arguments with
// working_directory set to the workspace root; falls back to
// config.defaultSettings if not found.
func (a *Adapter) SourceKitOptions(targetURI, workspaceRoot string) SourceKitOptionsResult {
	snapshot := a.snapshot()
	for _, t := range snapshot {
		if t.URI == targetURI {
			return SourceKitOptionsResult{CompilerArguments: t.CompilerArguments, WorkingDirectory: workspaceRoot}
		}
	}
	return SourceKitOptionsResult{CompilerArguments: a.defaultSettings(), WorkingDirectory: workspaceRoot}
}

// RegisterForChanges implements textDocument/registerForChanges: scan every
// target's input_files for a match on the requested URI; use that target's
// compiler_arguments if found, else defaultSettings.
func (a *Adapter) RegisterForChanges(fileURI string) RegisterForChangesNotification {
	snapshot := a.snapshot()
	for _, t := range snapshot {
		for _, f := range t.InputFiles {
			if f == fileURI {
				return RegisterForChangesNotification{URI: fileURI, UpdatedOptions: t.CompilerArguments}
			}
		}
	}
	return RegisterForChangesNotification{URI: fileURI, UpdatedOptions: a.defaultSettings()}
}

func (a *Adapter) defaultSettings() []string {
	if a.Config == nil {
		return nil
	}
	return a.Config.DefaultSettings
}

// Prepare implements buildTarget/prepare: invoke `bazel build <targets>
// <aqueryArgs>` asynchronously and return immediately; build output is
// never surfaced to the request's response, only logged.
func (a *Adapter) Prepare(workspaceRoot string) {
	go func() {
		args := append([]string{"build"}, a.Config.Targets...)
		args = append(args, a.Config.AqueryArgs...)
		result, err := a.Run("bazel", workspaceRoot, args)
		if err != nil {
			a.Logger.Warningf("buildTarget/prepare: bazel build failed to start: %s", err)
			return
		}
		if result.ExitCode != 0 {
			a.Logger.Warningf("buildTarget/prepare: bazel build exited %d", result.ExitCode)
			return
		}
		a.Logger.Infof("buildTarget/prepare: bazel build completed successfully")
	}()
}

// DidChangeWatchedFiles implements workspace/didChangeWatchedFiles: emit a
// buildTarget/didChange notification listing every current target as
// "changed". If the target list is empty, emits no changes and logs a
// warning.
func (a *Adapter) DidChangeWatchedFiles() DidChangeNotification {
	snapshot := a.snapshot()
	if len(snapshot) == 0 {
		a.Logger.Warningf("workspace/didChangeWatchedFiles: no targets known yet, emitting no changes")
		return DidChangeNotification{Changes: []TargetChange{}}
	}
	changes := make([]TargetChange, 0, len(snapshot))
	for _, t := range snapshot {
		changes = append(changes, TargetChange{Target: BuildTargetIdentifier{URI: t.URI}, Kind: changeKindChanged})
	}
	return DidChangeNotification{Changes: changes}
}
