package bspadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean7218/bazel-sourcekit-bsp/server/bspconfig"
	"github.com/sean7218/bazel-sourcekit-bsp/server/procrunner"
	"github.com/sean7218/bazel-sourcekit-bsp/server/targetbuilder"
)

func testConfig() *bspconfig.Config {
	return &bspconfig.Config{
		Name:              "bazel-sourcekit-bsp",
		Targets:           []string{"//app:Lib"},
		IndexDatabasePath: "/tmp/index",
		AqueryArgs:        []string{"--config=ios"},
		DefaultSettings:   []string{"-DFALLBACK"},
	}
}

func TestBuildTargets_EmptyBeforeFirstCompletion(t *testing.T) {
	a := New(testConfig(), nil)
	assert.Empty(t, a.BuildTargets())
}

func TestBuildTargets_ProjectsCapabilities(t *testing.T) {
	a := New(testConfig(), nil)
	a.SetTargets([]targetbuilder.BazelTarget{
		{URI: "bazel://t#1", Label: "//app:LibTests", Kind: "swift_test"},
		{URI: "bazel://t#2", Label: "//app:Lib", Kind: targetbuilder.Kind},
	})

	got := a.BuildTargets()
	require.Len(t, got, 2)
	assert.True(t, got[0].Capabilities.CanTest)
	assert.False(t, got[1].Capabilities.CanTest)
	assert.True(t, got[1].Capabilities.CanCompile)
}

func TestSources_MapsInputFilesAndSkipsUnknownURIs(t *testing.T) {
	a := New(testConfig(), nil)
	a.SetTargets([]targetbuilder.BazelTarget{
		{URI: "bazel://t#1", Label: "//app:Lib", InputFiles: []string{"file:///a.swift", "file:///b.swift"}},
	})

	got := a.Sources([]string{"bazel://t#1", "bazel://unknown"})
	require.Len(t, got, 1)
	assert.Equal(t, "sourceKit", got[0].DataKind)
	assert.Len(t, got[0].Sources, 2)
	assert.Equal(t, sourceItemKindFile, got[0].Sources[0].Kind)
}

func TestSourceKitOptions_FoundTargetReturnsItsArguments(t *testing.T) {
	a := New(testConfig(), nil)
	a.SetTargets([]targetbuilder.BazelTarget{
		{URI: "bazel://t#1", CompilerArguments: []string{"-DFOO"}},
	})

	got := a.SourceKitOptions("bazel://t#1", "/root")
	assert.Equal(t, []string{"-DFOO"}, got.CompilerArguments)
	assert.Equal(t, "/root", got.WorkingDirectory)
}

func TestSourceKitOptions_UnknownTargetFallsBackToDefaultSettings(t *testing.T) {
	a := New(testConfig(), nil)
	got := a.SourceKitOptions("bazel://missing", "/root")
	assert.Equal(t, []string{"-DFALLBACK"}, got.CompilerArguments)
}

func TestRegisterForChanges_MatchesByInputFile(t *testing.T) {
	a := New(testConfig(), nil)
	a.SetTargets([]targetbuilder.BazelTarget{
		{URI: "bazel://t#1", InputFiles: []string{"file:///a.swift"}, CompilerArguments: []string{"-DA"}},
	})

	got := a.RegisterForChanges("file:///a.swift")
	assert.Equal(t, []string{"-DA"}, got.UpdatedOptions)
}

func TestRegisterForChanges_UnmatchedFileFallsBackToDefaultSettings(t *testing.T) {
	a := New(testConfig(), nil)
	got := a.RegisterForChanges("file:///unknown.swift")
	assert.Equal(t, []string{"-DFALLBACK"}, got.UpdatedOptions)
}

func TestDidChangeWatchedFiles_EmptyTargetsYieldsNoChanges(t *testing.T) {
	a := New(testConfig(), nil)
	got := a.DidChangeWatchedFiles()
	assert.Empty(t, got.Changes)
}

func TestDidChangeWatchedFiles_ListsEveryTargetAsChanged(t *testing.T) {
	a := New(testConfig(), nil)
	a.SetTargets([]targetbuilder.BazelTarget{
		{URI: "bazel://t#1"},
		{URI: "bazel://t#2"},
	})

	got := a.DidChangeWatchedFiles()
	require.Len(t, got.Changes, 2)
	for _, c := range got.Changes {
		assert.Equal(t, changeKindChanged, c.Kind)
	}
}

func TestPrepare_InvokesBazelBuildWithTargetsAndAqueryArgs(t *testing.T) {
	a := New(testConfig(), nil)

	done := make(chan []string, 1)
	a.Run = func(executable, cwd string, args []string) (*procrunner.Result, error) {
		done <- args
		return &procrunner.Result{ExitCode: 0}, nil
	}

	a.Prepare("/root")
	args := <-done
	assert.Equal(t, []string{"build", "//app:Lib", "--config=ios"}, args)
}
