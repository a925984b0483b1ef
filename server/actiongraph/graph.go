// Package actiongraph decodes Bazel's `aquery --output=jsonproto` action
// graph into in-memory, id-keyed maps, and reconstructs file paths and
// dep-set closures from them.
package actiongraph

import (
	"encoding/json"

	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

// PathFragment is one labeled edge in Bazel's path trie.
type PathFragment struct {
	ID       uint32  `json:"id"`
	Label    string  `json:"label"`
	ParentID *uint32 `json:"parentId,omitempty"`
}

// Artifact represents one file produced or consumed by an action.
type Artifact struct {
	ID             uint32 `json:"id"`
	PathFragmentID uint32 `json:"pathFragmentId"`
}

// DepSetOfFiles is Bazel's deduplicated, union-friendly file collection.
type DepSetOfFiles struct {
	ID                   uint32   `json:"id"`
	DirectArtifactIDs    []uint32 `json:"directArtifactIds"`
	TransitiveDepSetIDs  []uint32 `json:"transitiveDepSetIds"`
}

// Action is one concrete invocation Bazel would perform.
type Action struct {
	TargetID       uint32            `json:"targetId"`
	Arguments      []string          `json:"arguments"`
	Environment    map[string]string `json:"environment"`
	InputDepSetIDs []uint32          `json:"inputDepSetIds"`
}

// Target is one node from the aquery `targets` array.
type Target struct {
	ID    uint32 `json:"id"`
	Label string `json:"label"`
}

// rawKeyValue and rawAction mirror the jsonproto action shape Bazel actually
// emits: environment is an array of {key, value} pairs rather than a map.
// We decode into these wire shapes then project into the public Action type
// above; targets decode directly into Target.
type rawKeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type rawAction struct {
	TargetID            uint32        `json:"targetId"`
	Arguments           []string      `json:"arguments"`
	EnvironmentVariables []rawKeyValue `json:"environmentVariables"`
	InputDepSetIDs      []uint32      `json:"inputDepSetIds"`
}

type document struct {
	Artifacts     []Artifact      `json:"artifacts"`
	DepSetOfFiles []DepSetOfFiles `json:"depSetOfFiles"`
	PathFragments []PathFragment  `json:"pathFragments"`
	Actions       []rawAction     `json:"actions"`
	Targets       []Target        `json:"targets"`
}

// Graph is the fully decoded in-memory action graph: id-keyed maps plus the
// flat action and target lists, scoped to the lifetime of one query
// execution.
type Graph struct {
	Artifacts     map[uint32]Artifact
	DepSets       map[uint32]DepSetOfFiles
	PathFragments map[uint32]PathFragment
	Actions       []Action
	Targets       []Target
	TargetsByID   map[uint32]Target
}

// Decode parses a UTF-8 JSON buffer containing the aquery jsonproto document
// into a Graph. It fails on an empty buffer or malformed JSON, surfacing the
// buffer size in the error for diagnosis.
func Decode(data []byte) (*Graph, error) {
	if len(data) == 0 {
		return nil, status.CustomErrorf("aquery output was empty")
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, status.JSONErrorf("failed to decode action graph (%d bytes): %s", len(data), err)
	}

	g := &Graph{
		Artifacts:     make(map[uint32]Artifact, len(doc.Artifacts)),
		DepSets:       make(map[uint32]DepSetOfFiles, len(doc.DepSetOfFiles)),
		PathFragments: make(map[uint32]PathFragment, len(doc.PathFragments)),
		Actions:       make([]Action, 0, len(doc.Actions)),
		Targets:       doc.Targets,
		TargetsByID:   make(map[uint32]Target, len(doc.Targets)),
	}

	for _, a := range doc.Artifacts {
		g.Artifacts[a.ID] = a
	}
	for _, d := range doc.DepSetOfFiles {
		g.DepSets[d.ID] = d
	}
	for _, p := range doc.PathFragments {
		g.PathFragments[p.ID] = p
	}
	for _, t := range doc.Targets {
		g.TargetsByID[t.ID] = t
	}
	for _, ra := range doc.Actions {
		env := make(map[string]string, len(ra.EnvironmentVariables))
		for _, kv := range ra.EnvironmentVariables {
			env[kv.Key] = kv.Value
		}
		g.Actions = append(g.Actions, Action{
			TargetID:       ra.TargetID,
			Arguments:      ra.Arguments,
			Environment:    env,
			InputDepSetIDs: ra.InputDepSetIDs,
		})
	}

	return g, nil
}
