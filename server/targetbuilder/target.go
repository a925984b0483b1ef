// Package targetbuilder assembles BazelTarget records from the decoded
// action graph.
package targetbuilder

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is fixed at "swift_library" for every BazelTarget the core emits;
// the action-to-target mapping never propagates the actual Bazel rule
// class.
const Kind = "swift_library"

// BazelTarget is the core's output entity. Equality and hashing are by
// value over all fields; Key() produces a canonical string so BazelTarget
// values can be compared and deduplicated via a Go map even though slices
// aren't themselves comparable.
type BazelTarget struct {
	ID                uint32   `json:"id"`
	URI               string   `json:"uri"`
	Label             string   `json:"label"`
	Kind              string   `json:"kind"`
	Tags              []string `json:"tags"`
	InputFiles        []string `json:"inputFiles"`
	CompilerArguments []string `json:"compilerArguments"`
}

// Key returns a canonical string encoding of every field, suitable for use
// as a map key when deduplicating or set-comparing BazelTarget values.
func (t BazelTarget) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\x1f%s\x1f%s\x1f%s\x1f", t.ID, t.URI, t.Label, t.Kind)
	b.WriteString(strings.Join(t.Tags, "\x1e"))
	b.WriteByte(0x1f)
	b.WriteString(strings.Join(t.InputFiles, "\x1e"))
	b.WriteByte(0x1f)
	b.WriteString(strings.Join(t.CompilerArguments, "\x1e"))
	return b.String()
}

// Dedup folds targets through a value-equality set, eliminating duplicates
// that arise when multiple actions yield byte-identical target records
//. Order of the returned slice is unspecified.
func Dedup(targets []BazelTarget) []BazelTarget {
	seen := make(map[string]struct{}, len(targets))
	out := make([]BazelTarget, 0, len(targets))
	for _, t := range targets {
		k := t.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SetEqual reports whether a and b contain the same BazelTarget values,
// ignoring order and duplicate counts.
func SetEqual(a, b []BazelTarget) bool {
	as := toSet(a)
	bs := toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if _, ok := bs[k]; !ok {
			return false
		}
	}
	return true
}

func toSet(targets []BazelTarget) map[string]struct{} {
	s := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		s[t.Key()] = struct{}{}
	}
	return s
}

// SortByURI orders targets deterministically by URI. Neither Process nor
// the cache calls it; the order Process returns is never implied by the
// concurrency model itself.
func SortByURI(targets []BazelTarget) {
	sort.Slice(targets, func(i, j int) bool { return targets[i].URI < targets[j].URI })
}
