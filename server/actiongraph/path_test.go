package actiongraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func u32(v uint32) *uint32 { return &v }

func TestResolvePath(t *testing.T) {
	g := &Graph{
		PathFragments: map[uint32]PathFragment{
			1: {ID: 1, Label: "Sources"},
			2: {ID: 2, Label: "App", ParentID: u32(1)},
			3: {ID: 3, Label: "Foo.swift", ParentID: u32(2)},
		},
	}
	assert.Equal(t, "Sources/App/Foo.swift", g.ResolvePath(3))
	assert.Equal(t, "Sources", g.ResolvePath(1))
	assert.Equal(t, "", g.ResolvePath(999))
}

func TestClosure(t *testing.T) {
	g := &Graph{
		DepSets: map[uint32]DepSetOfFiles{
			1: {ID: 1, DirectArtifactIDs: []uint32{10, 11}, TransitiveDepSetIDs: []uint32{2}},
			2: {ID: 2, DirectArtifactIDs: []uint32{12}, TransitiveDepSetIDs: []uint32{3}},
			3: {ID: 3, DirectArtifactIDs: []uint32{10}}, // duplicate of 10, permitted
		},
	}
	ids := g.Closure(1)
	assert.ElementsMatch(t, []uint32{10, 11, 12, 10}, ids)
}

func TestClosure_MissingDepSet(t *testing.T) {
	g := &Graph{DepSets: map[uint32]DepSetOfFiles{}}
	assert.Nil(t, g.Closure(42))
}
