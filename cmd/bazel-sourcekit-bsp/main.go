package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sean7218/bazel-sourcekit-bsp/server/bazelengine"
	"github.com/sean7218/bazel-sourcekit-bsp/server/bspadapter"
	"github.com/sean7218/bazel-sourcekit-bsp/server/bspconfig"
	"github.com/sean7218/bazel-sourcekit-bsp/server/bspserver"
	"github.com/sean7218/bazel-sourcekit-bsp/server/procrunner"
	"github.com/sean7218/bazel-sourcekit-bsp/server/targetcache"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/log"
)

var (
	workspace = flag.String("workspace", "", "path to the Bazel workspace root; defaults to the current directory")
	verbose   = flag.Bool("verbose", false, "enable debug logging")
)

func main() {
	flag.Parse()
	log.Configure(*verbose)

	root := *workspace
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to determine current directory: %s", err)
		}
		root = cwd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		log.Fatalf("failed to resolve workspace root %q: %s", root, err)
	}

	cfg, err := bspconfig.Load(root)
	if err != nil {
		log.Fatalf("failed to load buildServer.json: %s", err)
	}

	execroot, err := resolveExecutionRoot(root)
	if err != nil {
		log.Fatalf("failed to resolve bazel execution root: %s", err)
	}

	homeDir, err := cacheHomeDir()
	if err != nil {
		log.Fatalf("failed to resolve cache directory: %s", err)
	}

	logger := log.Default()
	cache, err := targetcache.New(homeDir, logger)
	if err != nil {
		log.Fatalf("failed to open target cache: %s", err)
	}
	defer cache.Close()

	engine := bazelengine.New(cache, logger)
	adapter := bspadapter.New(cfg, logger)
	server := bspserver.NewServer(cfg, adapter, engine, execroot, logger)
	transport := bspserver.NewTransport(server, os.Stdin, os.Stdout)

	if err := transport.Run(); err != nil {
		log.Fatalf("transport terminated: %s", err)
	}
}

// resolveExecutionRoot shells out to `bazel info execution_root` since the
// execution root is workspace- and output-base-specific and cannot be
// derived from the workspace path alone.
func resolveExecutionRoot(workspaceRoot string) (string, error) {
	result, err := procrunner.Run("bazel", workspaceRoot, []string{"info", "execution_root"})
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("bazel info execution_root exited %d: %s", result.ExitCode, string(result.Stderr))
	}
	return strings.TrimSpace(string(result.Stdout)), nil
}

// cacheHomeDir resolves the directory the on-disk target cache lives under,
// honoring BAZEL_SOURCEKIT_BSP_HOME for tests and power users, falling back
// to the user's home directory otherwise.
func cacheHomeDir() (string, error) {
	if dir := os.Getenv("BAZEL_SOURCEKIT_BSP_HOME"); dir != "" {
		return dir, nil
	}
	return os.UserHomeDir()
}
