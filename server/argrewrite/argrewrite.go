// Package argrewrite normalizes a Bazel action's raw compiler argument
// vector into a form the indexer can execute directly against the
// workspace: dropping wrapper/incompatible flags and substituting Bazel's
// placeholder tokens for real paths.
//
// Rules are applied positionally, in the listed order, per token; the first
// matching rule consumes the token (and possibly its successor) and the
// cursor advances. Implementations must preserve rule order: rule 2
// (execution-root placeholder) must run before rules 8-9 (bazel-out/,
// external/ prefix rewriting) because execution-root substitution produces
// an absolute path that could otherwise spuriously match those prefixes.
package argrewrite

import "strings"

const (
	placeholderExecRoot   = "__BAZEL_EXECUTION_ROOT__"
	placeholderSDKRoot    = "__BAZEL_XCODE_SDKROOT__"
	placeholderDeveloper  = "__BAZEL_XCODE_DEVELOPER_DIR__/"
	xcodeDeveloperDirPath = "/Applications/Xcode.app/Contents/Developer/"

	bazelOutPrefix  = "bazel-out/"
	externalPrefix  = "external/"
)

// Input bundles everything the rewriter needs to resolve placeholders for
// one action's argument list.
type Input struct {
	Arguments    []string
	ExecRootURI  string // substituted for __BAZEL_EXECUTION_ROOT__
	ExecRootPath string // prefixed onto bazel-out/ and external/ tokens
	SDKPath      string // substituted for __BAZEL_XCODE_SDKROOT__
	// PathExists checks whether a path-shaped token refers to a file that
	// exists on disk; injectable so tests don't need a real filesystem.
	PathExists func(path string) bool
}

// Result is the rewritten argument vector plus the path-validation sidecar
// lists (collected for future diagnostics; not returned to BSP clients in
// this revision).
type Result struct {
	Arguments    []string
	ValidPaths   []string
	InvalidPaths []string
}

// Rewrite applies the rule table to in.Arguments and returns the rewritten
// vector along with path-validation sidecar data.
func Rewrite(in Input) Result {
	exists := in.PathExists
	if exists == nil {
		exists = func(string) bool { return false }
	}

	var out Result
	args := in.Arguments
	i := 0
	for i < len(args) {
		tok := args[i]
		var next string
		hasNext := i+1 < len(args)
		if hasNext {
			next = args[i+1]
		}

		switch {
		// 1. Drop wrapper tokens.
		case strings.Contains(tok, "-Xwrapped-swift") ||
			strings.HasSuffix(tok, "worker") ||
			strings.HasPrefix(tok, "swiftc") ||
			strings.Contains(tok, "wrapped_clang"):
			i++

		// 2. Execution-root placeholder.
		case strings.Contains(tok, placeholderExecRoot):
			rewritten := strings.ReplaceAll(tok, placeholderExecRoot, in.ExecRootURI)
			out.Arguments = append(out.Arguments, rewritten)
			i++

		// 3. Drop batch mode (incompatible with -index-file the indexer injects).
		case strings.Contains(tok, "-enable-batch-mode"):
			i++

		// 4. Drop index-store-path pair.
		case strings.Contains(tok, "-index-store-path") && hasNext && strings.Contains(next, "indexstore"):
			i += 2

		// 5. Drop const-gather-protocols pair.
		case strings.Contains(tok, "-Xfrontend") && hasNext &&
			(strings.Contains(next, "-const-gather-protocols-file") || strings.Contains(next, "const_protocols_to_gather.json")):
			i += 2

		// 6. SDK placeholder.
		case strings.Contains(tok, placeholderSDKRoot):
			rewritten := strings.ReplaceAll(tok, placeholderSDKRoot, in.SDKPath)
			out.Arguments = append(out.Arguments, rewritten)
			recordValidity(&out, rewritten, exists)
			i++

		// 7. Xcode developer-dir placeholder.
		case strings.Contains(tok, placeholderDeveloper):
			rewritten := strings.ReplaceAll(tok, placeholderDeveloper, xcodeDeveloperDirPath)
			out.Arguments = append(out.Arguments, rewritten)
			i++

		// 8. Rewrite bazel-out/ prefix, unless already rewritten (idempotence).
		case strings.Contains(tok, bazelOutPrefix) && !strings.Contains(tok, in.ExecRootPath+"/"+bazelOutPrefix):
			rewritten := strings.ReplaceAll(tok, bazelOutPrefix, in.ExecRootPath+"/"+bazelOutPrefix)
			out.Arguments = append(out.Arguments, rewritten)
			recordValidity(&out, rewritten, exists)
			i++

		// 9. Rewrite external/ prefix, unless already rewritten (idempotence).
		case strings.Contains(tok, externalPrefix) && !strings.Contains(tok, in.ExecRootPath+"/"+externalPrefix):
			rewritten := strings.ReplaceAll(tok, externalPrefix, in.ExecRootPath+"/"+externalPrefix)
			out.Arguments = append(out.Arguments, rewritten)
			recordValidity(&out, rewritten, exists)
			i++

		// 10. Default: emit unchanged.
		default:
			out.Arguments = append(out.Arguments, tok)
			recordValidity(&out, tok, exists)
			i++
		}
	}
	return out
}

// recordValidity checks whether tok is path-shaped and, if so, records it
// as valid or invalid depending on whether it exists on disk. Tokens of the
// form -I<path> or -F<path> have their path suffix extracted first.
func recordValidity(out *Result, tok string, exists func(string) bool) {
	path, ok := pathShapedToken(tok)
	if !ok {
		return
	}
	if exists(path) {
		out.ValidPaths = append(out.ValidPaths, path)
	} else {
		out.InvalidPaths = append(out.InvalidPaths, path)
	}
}

// pathShapedToken reports whether tok looks like a filesystem path
// (contains "/" and does not begin with "-"), extracting the path suffix
// from -I/-F flag tokens first.
func pathShapedToken(tok string) (string, bool) {
	candidate := tok
	if strings.HasPrefix(tok, "-I") || strings.HasPrefix(tok, "-F") {
		candidate = tok[2:]
	} else if strings.HasPrefix(tok, "-") {
		return "", false
	}
	if !strings.Contains(candidate, "/") {
		return "", false
	}
	return candidate, true
}
