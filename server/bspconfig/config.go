// Package bspconfig loads the buildServer.json discovery file BSP clients
// use to configure the server.
package bspconfig

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

// Config mirrors the upstream BSP discovery contract: fields the BSP
// discovery convention defines (Name, Argv, Version, BSPVersion, Languages)
// plus the Bazel-specific fields this server additionally packs into the
// same file (Targets, IndexDatabasePath, AqueryArgs, DefaultSettings).
type Config struct {
	Name              string   `json:"name"`
	Argv              []string `json:"argv"`
	Version           string   `json:"version"`
	BSPVersion        string   `json:"bspVersion"`
	Languages         []string `json:"languages"`
	Targets           []string `json:"targets"`
	IndexDatabasePath string   `json:"indexDatabasePath"`
	AqueryArgs        []string `json:"aqueryArgs"`
	DefaultSettings   []string `json:"defaultSettings,omitempty"`
}

const fileName = "buildServer.json"

// Load reads <workspaceRoot>/buildServer.json and validates that the fields
// the core actually depends on (Name, Targets, IndexDatabasePath) are
// present.
func Load(workspaceRoot string) (*Config, error) {
	path := filepath.Join(workspaceRoot, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.ConfigErrorf("%s not found at workspace root %q", fileName, workspaceRoot)
		}
		return nil, status.ConfigErrorf("failed to read %s: %s", fileName, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, status.JSONErrorf("failed to decode %s: %s", fileName, err)
	}

	if cfg.Name == "" {
		return nil, status.ConfigErrorf("%s is missing required field \"name\"", fileName)
	}
	if len(cfg.Targets) == 0 {
		return nil, status.ConfigErrorf("%s is missing required field \"targets\"", fileName)
	}
	if cfg.IndexDatabasePath == "" {
		return nil, status.ConfigErrorf("%s is missing required field \"indexDatabasePath\"", fileName)
	}

	return &cfg, nil
}

// IndexStorePath computes the index store location advertised to clients:
// <execroot>/bazel-out/_global_index_store.
func IndexStorePath(execroot string) string {
	return execroot + "/bazel-out/_global_index_store"
}
