// Package targetcache implements the on-disk, key-addressed cache of prior
// BazelTarget lists: a process-wide JSON file with a
// read-through load and a single-writer serialized save.
package targetcache

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sean7218/bazel-sourcekit-bsp/server/targetbuilder"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/disk"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/log"
)

const cacheDirName = ".bazel-sourcekit-bsp"
const cacheFileName = "bazel-targets-cache.json"

// Entry is one cache slot: the targets computed for a given label set and
// the instant they were written.
type Entry struct {
	Targets   []targetbuilder.BazelTarget `json:"targets"`
	Timestamp time.Time                   `json:"timestamp"`
}

// file is the on-disk schema.
type file struct {
	Entries map[string]Entry `json:"entries"`
}

// Key returns the canonical cache key for a set of top-level labels: the
// sorted, "|"-joined concatenation.
func Key(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// saveRequest is one item on the single-writer queue.
type saveRequest struct {
	key     string
	targets []targetbuilder.BazelTarget
	done    chan error
}

// Cache is the on-disk cache. Writes are serialized through a single
// goroutine draining a channel, mirroring a dedicated single-threaded
// executor so concurrent save() calls never interleave writes to the same
// file.
type Cache struct {
	path     string
	requests chan saveRequest
	wg       sync.WaitGroup
	logger   log.Sink
}

// New creates a Cache backed by <homeDir>/.bazel-sourcekit-bsp/bazel-targets-cache.json,
// creating the directory if absent, and starts its writer goroutine.
func New(homeDir string, logger log.Sink) (*Cache, error) {
	if logger == nil {
		logger = log.Default()
	}
	dir := filepath.Join(homeDir, cacheDirName)
	if err := disk.EnsureDirectoryExists(dir); err != nil {
		return nil, err
	}
	c := &Cache{
		path:     filepath.Join(dir, cacheFileName),
		requests: make(chan saveRequest, 64),
		logger:   logger,
	}
	c.wg.Add(1)
	go c.writeLoop()
	return c, nil
}

// Load returns the cached targets for key, or (nil, false) if the file does
// not exist or has no entry for key.
func (c *Cache) Load(key string) ([]targetbuilder.BazelTarget, bool) {
	f, err := c.readFile()
	if err != nil {
		return nil, false
	}
	entry, ok := f.Entries[key]
	if !ok {
		return nil, false
	}
	return entry.Targets, true
}

// Save enqueues (key, targets) to be written to disk and blocks until the
// write completes. Each save re-reads the existing file, updates
// entries[key], and writes the full file back in pretty-printed JSON via an
// atomic rename.
func (c *Cache) Save(key string, targets []targetbuilder.BazelTarget) error {
	req := saveRequest{key: key, targets: targets, done: make(chan error, 1)}
	c.requests <- req
	return <-req.done
}

// Close stops the writer goroutine once all pending saves have drained.
func (c *Cache) Close() {
	close(c.requests)
	c.wg.Wait()
}

func (c *Cache) writeLoop() {
	defer c.wg.Done()
	for req := range c.requests {
		req.done <- c.doSave(req.key, req.targets)
	}
}

func (c *Cache) doSave(key string, targets []targetbuilder.BazelTarget) error {
	f, err := c.readFile()
	if err != nil {
		// A failure to read the existing file is treated as an empty cache
		// for the purposes of this save.
		c.logger.Warningf("cache: treating unreadable existing file as empty: %s", err)
		f = &file{Entries: map[string]Entry{}}
	}
	if f.Entries == nil {
		f.Entries = map[string]Entry{}
	}
	f.Entries[key] = Entry{Targets: targets, Timestamp: time.Now()}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return disk.WriteFileAtomic(c.path, data)
}

func (c *Cache) readFile() (*file, error) {
	data, err := disk.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
