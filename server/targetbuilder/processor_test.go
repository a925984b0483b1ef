package targetbuilder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean7218/bazel-sourcekit-bsp/server/actiongraph"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte("// test\n"), 0644))
}

func TestProcess_SingleSwiftLibrary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Sources/Foo.swift")

	g := &actiongraph.Graph{
		Artifacts: map[uint32]actiongraph.Artifact{
			1: {ID: 1, PathFragmentID: 3},
		},
		DepSets: map[uint32]actiongraph.DepSetOfFiles{
			100: {ID: 100, DirectArtifactIDs: []uint32{1}},
		},
		PathFragments: map[uint32]actiongraph.PathFragment{
			2: {ID: 2, Label: "Sources"},
			3: {ID: 3, Label: "Foo.swift", ParentID: u32p(2)},
		},
		Actions: []actiongraph.Action{
			{
				TargetID: 1000,
				Arguments: []string{
					"swiftc",
					"Sources/Foo.swift",
				},
				Environment:    map[string]string{"APPLE_SDK_PLATFORM": "MacOSX"},
				InputDepSetIDs: []uint32{100},
			},
		},
		TargetsByID: map[uint32]actiongraph.Target{
			1000: {ID: 1000, Label: "//app:Lib"},
		},
	}

	targets := Process(g, Options{WorkspaceRoot: root, ExecRoot: "/e"})
	require.Len(t, targets, 1)
	tgt := targets[0]
	assert.Equal(t, "bazel://"+"//app:Lib"+"#1000", tgt.URI)
	assert.Equal(t, Kind, tgt.Kind)
	assert.Empty(t, tgt.Tags)
	require.Len(t, tgt.InputFiles, 1)
	assert.Equal(t, "file://"+filepath.Join(root, "Sources/Foo.swift"), tgt.InputFiles[0])
	assert.Equal(t, []string{"Sources/Foo.swift"}, tgt.CompilerArguments)
}

func TestProcess_SkipsActionWithMissingTarget(t *testing.T) {
	g := &actiongraph.Graph{
		Actions: []actiongraph.Action{
			{TargetID: 999, Environment: map[string]string{"APPLE_SDK_PLATFORM": "MacOSX"}},
		},
		TargetsByID: map[uint32]actiongraph.Target{},
	}
	targets := Process(g, Options{WorkspaceRoot: t.TempDir(), ExecRoot: "/e"})
	assert.Empty(t, targets)
}

func TestProcess_SkipsActionWithMissingSDKEnv(t *testing.T) {
	g := &actiongraph.Graph{
		Actions: []actiongraph.Action{
			{TargetID: 1, Environment: map[string]string{}},
		},
		TargetsByID: map[uint32]actiongraph.Target{
			1: {ID: 1, Label: "//app:Lib"},
		},
	}
	targets := Process(g, Options{WorkspaceRoot: t.TempDir(), ExecRoot: "/e"})
	assert.Empty(t, targets)
}

func TestProcess_DeduplicatesIdenticalTargets(t *testing.T) {
	root := t.TempDir()
	g := &actiongraph.Graph{
		TargetsByID: map[uint32]actiongraph.Target{
			1: {ID: 1, Label: "//app:Lib"},
		},
		Actions: []actiongraph.Action{
			{TargetID: 1, Arguments: []string{"-DFOO"}, Environment: map[string]string{"APPLE_SDK_PLATFORM": "MacOSX"}},
			{TargetID: 1, Arguments: []string{"-DFOO"}, Environment: map[string]string{"APPLE_SDK_PLATFORM": "MacOSX"}},
		},
	}
	targets := Process(g, Options{WorkspaceRoot: root, ExecRoot: "/e"})
	assert.Len(t, targets, 1)
}

func u32p(v uint32) *uint32 { return &v }
