package actiongraph

import "strings"

// ResolvePath reconstructs the workspace-relative path for the path
// fragment leafID by walking parent links to the root and joining labels
// with "/" in root-to-leaf order. A missing fragment id yields "".
func (g *Graph) ResolvePath(leafID uint32) string {
	var labels []string
	id := leafID
	visited := make(map[uint32]bool)
	for {
		frag, ok := g.PathFragments[id]
		if !ok {
			if len(labels) == 0 {
				return ""
			}
			break
		}
		if visited[id] {
			// Defensive: the graph is assumed acyclic; bail out rather
			// than looping forever if that assumption is ever violated.
			break
		}
		visited[id] = true
		labels = append(labels, frag.Label)
		if frag.ParentID == nil {
			break
		}
		id = *frag.ParentID
	}
	// labels were collected leaf-to-root; reverse for root-to-leaf order.
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, "/")
}

// Closure computes the transitive closure of artifact IDs under depSetID:
// the direct artifacts unioned with the closures of all transitive dep-sets,
// via depth-first traversal. Duplicate artifact IDs are permitted and not
// deduplicated.
func (g *Graph) Closure(depSetID uint32) []uint32 {
	depSet, ok := g.DepSets[depSetID]
	if !ok {
		return nil
	}
	ids := make([]uint32, 0, len(depSet.DirectArtifactIDs))
	ids = append(ids, depSet.DirectArtifactIDs...)
	for _, transID := range depSet.TransitiveDepSetIDs {
		ids = append(ids, g.Closure(transID)...)
	}
	return ids
}
